package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"docflow/internal/contextutil"
	"docflow/internal/service"
)

// PassHandler runs one pipeline pass per request.
type PassHandler struct {
	pipeline service.PipelineService
}

// NewPassHandler creates a new PassHandler.
func NewPassHandler(pipeline service.PipelineService) *PassHandler {
	return &PassHandler{pipeline: pipeline}
}

// PassResponse is the outcome of a pass.
type PassResponse struct {
	Pass    string `json:"pass"`
	Summary string `json:"summary"`
	Result  any    `json:"result"`
}

// ServeHTTP handles POST /api/{pass}.
//
// The pass is detached from the request's cancellation.
func (h *PassHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodPost {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		writeError(ctx, w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	pass := chi.URLParam(r, "pass")
	logger.InfoContext(ctx, "running pass", "pass", pass)

	summary, err := service.RunPass(context.WithoutCancel(ctx), h.pipeline, pass)
	if err != nil {
		handleServiceError(ctx, w, err)
		return
	}

	writeJSON(ctx, w, http.StatusOK, PassResponse{
		Pass:    pass,
		Summary: summary.String(),
		Result:  summary,
	})
}
