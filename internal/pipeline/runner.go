// Package pipeline runs the ingest, convert and extract passes one at a time.
package pipeline

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_passes.go -package=mocks docflow/internal/pipeline IngestPass,ConvertPass,ExtractPass,Deduper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"docflow/internal/contextutil"
	"docflow/internal/convert"
	"docflow/internal/extract"
	"docflow/internal/ingest"
	"docflow/internal/storage"
)

// ErrBusy is returned when a pass is already running in this process.
var ErrBusy = errors.New("a pipeline pass is already running")

// IngestPass downloads new attachments.
type IngestPass interface {
	Run(ctx context.Context) (*ingest.Summary, error)
}

// ConvertPass transcribes downloaded PDFs.
type ConvertPass interface {
	Run(ctx context.Context) (*convert.Summary, error)
}

// ExtractPass extracts JSON from transcribed documents.
type ExtractPass interface {
	Run(ctx context.Context) (*extract.Summary, error)
}

// Deduper collapses duplicate ledger rows.
type Deduper interface {
	Dedupe(ctx context.Context) (removed, remaining int, err error)
}

// Result collects the summaries of a full run. A nil summary means the pass did not run.
type Result struct {
	Ingest  *ingest.Summary  `json:"ingest,omitempty"`
	Convert *convert.Summary `json:"convert,omitempty"`
	Extract *extract.Summary `json:"extract,omitempty"`
}

// String renders every summary that is present.
func (r *Result) String() string {
	var parts []string
	if r.Ingest != nil {
		parts = append(parts, r.Ingest.String())
	}
	if r.Convert != nil {
		parts = append(parts, r.Convert.String())
	}
	if r.Extract != nil {
		parts = append(parts, r.Extract.String())
	}
	return strings.Join(parts, "\n\n")
}

// Runner serializes passes over the shared ledger.
type Runner struct {
	mu        sync.Mutex
	ingester  IngestPass
	converter ConvertPass
	extractor ExtractPass
	deduper   Deduper
}

// NewRunner creates a Runner. Any pass may be nil when its collaborators are
// not configured; running it then returns an error.
func NewRunner(ingester IngestPass, converter ConvertPass, extractor ExtractPass, deduper Deduper) *Runner {
	return &Runner{ingester: ingester, converter: converter, extractor: extractor, deduper: deduper}
}

// Ingest runs the download pass.
func (r *Runner) Ingest(ctx context.Context) (*ingest.Summary, error) {
	if !r.mu.TryLock() {
		return nil, ErrBusy
	}
	defer r.mu.Unlock()
	return r.ingest(ctx)
}

// Convert runs the markdown pass.
func (r *Runner) Convert(ctx context.Context) (*convert.Summary, error) {
	if !r.mu.TryLock() {
		return nil, ErrBusy
	}
	defer r.mu.Unlock()
	return r.convert(ctx)
}

// Extract runs the json pass.
func (r *Runner) Extract(ctx context.Context) (*extract.Summary, error) {
	if !r.mu.TryLock() {
		return nil, ErrBusy
	}
	defer r.mu.Unlock()
	return r.extract(ctx)
}

// Dedupe runs the ledger deduplication sweep. It shares the pass lock so
// rows are never removed under a running pass.
func (r *Runner) Dedupe(ctx context.Context) (removed, remaining int, err error) {
	if !r.mu.TryLock() {
		return 0, 0, ErrBusy
	}
	defer r.mu.Unlock()
	if r.deduper == nil {
		return 0, 0, errors.New("dedupe is not configured")
	}
	return r.deduper.Dedupe(ctx)
}

// RunAll runs ingest, convert and extract in order. A failing pass does not
// stop the later ones unless the ledger is unavailable or ctx is done.
func (r *Runner) RunAll(ctx context.Context) (*Result, error) {
	if !r.mu.TryLock() {
		return nil, ErrBusy
	}
	defer r.mu.Unlock()

	logger := contextutil.LoggerFromContext(ctx).With("pipeline_id", uuid.New().String())
	ctx = contextutil.WithLogger(ctx, logger)

	res := &Result{}
	var errs []error
	stop := func(err error) bool {
		if err == nil {
			return false
		}
		errs = append(errs, err)
		return errors.Is(err, storage.ErrLedgerUnavailable) || ctx.Err() != nil
	}

	var err error
	res.Ingest, err = r.ingest(ctx)
	if stop(err) {
		return res, errors.Join(errs...)
	}
	res.Convert, err = r.convert(ctx)
	if stop(err) {
		return res, errors.Join(errs...)
	}
	res.Extract, err = r.extract(ctx)
	stop(err)

	if len(errs) > 0 {
		logger.WarnContext(ctx, "pipeline finished with errors", "errors", len(errs))
	}
	return res, errors.Join(errs...)
}

func (r *Runner) ingest(ctx context.Context) (*ingest.Summary, error) {
	if r.ingester == nil {
		return nil, errors.New("ingest pass is not configured")
	}
	s, err := r.ingester.Run(ctx)
	if err != nil {
		return s, fmt.Errorf("ingest: %w", err)
	}
	return s, nil
}

func (r *Runner) convert(ctx context.Context) (*convert.Summary, error) {
	if r.converter == nil {
		return nil, errors.New("convert pass is not configured")
	}
	s, err := r.converter.Run(ctx)
	if err != nil {
		return s, fmt.Errorf("convert: %w", err)
	}
	return s, nil
}

func (r *Runner) extract(ctx context.Context) (*extract.Summary, error) {
	if r.extractor == nil {
		return nil, errors.New("extract pass is not configured")
	}
	s, err := r.extractor.Run(ctx)
	if err != nil {
		return s, fmt.Errorf("extract: %w", err)
	}
	return s, nil
}
