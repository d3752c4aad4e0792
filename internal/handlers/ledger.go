package handlers

import (
	"net/http"

	"docflow/internal/contextutil"
	"docflow/internal/maintenance"
	"docflow/internal/service"
)

// LedgerHandler serves ledger statistics and maintenance.
type LedgerHandler struct {
	reporter service.LedgerReporter
	pipeline service.PipelineService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(reporter service.LedgerReporter, pipeline service.PipelineService) *LedgerHandler {
	return &LedgerHandler{reporter: reporter, pipeline: pipeline}
}

// ReportResponse carries the ledger report and its text rendering.
type ReportResponse struct {
	Report  *maintenance.Report `json:"report"`
	Summary string              `json:"summary"`
}

// DedupeResponse is the outcome of a ledger dedupe.
type DedupeResponse struct {
	Removed   int `json:"removed"`
	Remaining int `json:"remaining"`
}

// Report handles GET /api/ledger.
func (h *LedgerHandler) Report(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	report, err := h.reporter.Report(ctx)
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	writeJSON(ctx, w, http.StatusOK, ReportResponse{Report: report, Summary: report.String()})
}

// Dedupe handles POST /api/ledger/dedupe.
func (h *LedgerHandler) Dedupe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	removed, remaining, err := h.pipeline.Dedupe(ctx)
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}
	logger.InfoContext(ctx, "ledger deduplicated", "removed", removed, "remaining", remaining)
	writeJSON(ctx, w, http.StatusOK, DedupeResponse{Removed: removed, Remaining: remaining})
}
