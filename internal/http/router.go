package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"docflow/internal/handlers"
	"docflow/internal/service"
	"docflow/internal/storage"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Pipeline service.PipelineService
	Ledger   service.LedgerReporter
	Store    storage.LedgerStore
}

// NewRouter creates a new HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware)
	r.Use(RequestLogger)
	r.Use(CORS)

	passHandler := handlers.NewPassHandler(deps.Pipeline)
	ledgerHandler := handlers.NewLedgerHandler(deps.Ledger, deps.Pipeline)
	healthHandler := handlers.NewHealthHandler(deps.Store)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodGet, "/health", healthHandler)
		r.Get("/ledger", ledgerHandler.Report)
		r.Post("/ledger/dedupe", ledgerHandler.Dedupe)
		r.Method(http.MethodPost, "/{pass}", passHandler)
	})

	return r
}
