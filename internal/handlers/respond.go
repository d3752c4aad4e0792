package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"docflow/internal/contextutil"
	"docflow/internal/pipeline"
	"docflow/internal/service"
	"docflow/internal/storage"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes v as the response body with the given status.
func writeJSON(ctx context.Context, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		contextutil.LoggerFromContext(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	writeJSON(ctx, w, status, ErrorResponse{Error: message})
}

// handleServiceError maps service errors to HTTP status codes.
func handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	logger := contextutil.LoggerFromContext(ctx)

	var validationErr *service.ValidationError
	switch {
	case errors.As(err, &validationErr):
		logger.WarnContext(ctx, "validation error", "field", validationErr.Field, "message", validationErr.Message)
		writeError(ctx, w, http.StatusBadRequest, validationErr.Error())
	case errors.Is(err, service.ErrInvalidInput):
		logger.WarnContext(ctx, "invalid input", "error", err)
		writeError(ctx, w, http.StatusBadRequest, err.Error())
	case errors.Is(err, pipeline.ErrBusy):
		logger.InfoContext(ctx, "pipeline busy")
		writeError(ctx, w, http.StatusConflict, "Another pass is already running")
	case errors.Is(err, storage.ErrLedgerUnavailable):
		logger.ErrorContext(ctx, "ledger unavailable", "error", err)
		writeError(ctx, w, http.StatusServiceUnavailable, "Ledger unavailable")
	default:
		logger.ErrorContext(ctx, "service error", "error", err)
		writeError(ctx, w, http.StatusInternalServerError, "Internal server error")
	}
}
