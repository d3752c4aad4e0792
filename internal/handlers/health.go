package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"docflow/internal/contextutil"
	"docflow/internal/storage"
)

// HealthHandler handles HTTP requests for health checks.
type HealthHandler struct {
	ledger             storage.LedgerStore
	healthCheckTimeout time.Duration
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(ledger storage.LedgerStore) *HealthHandler {
	return &HealthHandler{
		ledger:             ledger,
		healthCheckTimeout: 5 * time.Second,
	}
}

// HealthResponse represents the health check response.
type HealthResponse struct {
	// "healthy" or "unhealthy"
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks"`
	Issues    []string          `json:"issues,omitempty"`
}

// ServeHTTP handles GET /api/health.
// Returns 200 when the ledger can be read, 503 otherwise.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := contextutil.LoggerFromContext(ctx)

	if r.Method != http.MethodGet {
		logger.WarnContext(ctx, "method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	checkCtx, cancel := context.WithTimeout(ctx, h.healthCheckTimeout)
	defer cancel()

	checks := make(map[string]string)
	var issues []string

	if h.checkLedger(checkCtx, logger) {
		checks["ledger"] = "ok"
	} else {
		checks["ledger"] = "error"
		issues = append(issues, "ledger_unavailable")
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if len(issues) > 0 {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(ctx, w, httpStatus, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Checks:    checks,
		Issues:    issues,
	})
}

func (h *HealthHandler) checkLedger(ctx context.Context, logger *slog.Logger) bool {
	if _, err := h.ledger.Load(ctx); err != nil {
		logger.WarnContext(ctx, "ledger health check failed", "error", err)
		return false
	}
	return true
}
