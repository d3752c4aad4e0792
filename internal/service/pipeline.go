// Package service defines what the HTTP layer needs from the pipeline.
package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_service.go -package=mocks docflow/internal/service PipelineService,LedgerReporter

import (
	"context"
	"fmt"

	"docflow/internal/convert"
	"docflow/internal/extract"
	"docflow/internal/ingest"
	"docflow/internal/maintenance"
	"docflow/internal/pipeline"
)

// Pass names accepted by RunPass.
const (
	PassIngest  = "ingest"
	PassConvert = "convert"
	PassExtract = "extract"
	PassAll     = "run"
)

// PipelineService runs passes and ledger maintenance one at a time.
// *pipeline.Runner implements it.
type PipelineService interface {
	Ingest(ctx context.Context) (*ingest.Summary, error)
	Convert(ctx context.Context) (*convert.Summary, error)
	Extract(ctx context.Context) (*extract.Summary, error)
	RunAll(ctx context.Context) (*pipeline.Result, error)
	Dedupe(ctx context.Context) (removed, remaining int, err error)
}

// LedgerReporter computes ledger statistics.
type LedgerReporter interface {
	Report(ctx context.Context) (*maintenance.Report, error)
}

// Summary is a pass outcome that can be shown to people.
type Summary interface {
	String() string
}

// RunPass runs the named pass.
func RunPass(ctx context.Context, svc PipelineService, pass string) (Summary, error) {
	switch pass {
	case PassIngest:
		s, err := svc.Ingest(ctx)
		if err != nil {
			return nil, err
		}
		return s, nil
	case PassConvert:
		s, err := svc.Convert(ctx)
		if err != nil {
			return nil, err
		}
		return s, nil
	case PassExtract:
		s, err := svc.Extract(ctx)
		if err != nil {
			return nil, err
		}
		return s, nil
	case PassAll:
		s, err := svc.RunAll(ctx)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	return nil, &ValidationError{
		Field:   "pass",
		Message: fmt.Sprintf("unknown pass %q, want one of %s, %s, %s, %s", pass, PassIngest, PassConvert, PassExtract, PassAll),
	}
}
