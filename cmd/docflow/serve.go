package main

import (
	"context"
	"errors"
	"log/slog"
	nethttp "net/http"
	"time"

	"github.com/spf13/cobra"

	"docflow/internal/http"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the HTTP API.

Routes:
  POST /api/{ingest,convert,extract,run}  run a pass
  GET  /api/ledger                        ledger statistics
  POST /api/ledger/dedupe                 remove duplicate ledger rows
  GET  /api/health                        ledger reachability`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withApp(ctx, func(a *app) error {
			runner, err := a.runner(ctx, allPasses)
			if err != nil {
				return err
			}

			port := servePort
			if port == "" {
				port = a.cfg.APIPort
			}
			srv := &nethttp.Server{
				Addr: ":" + port,
				Handler: http.NewRouter(&http.Deps{
					Pipeline: runner,
					Ledger:   a.maintainer(),
					Store:    a.store,
				}),
				ReadHeaderTimeout: 10 * time.Second,
			}
			return listen(ctx, srv)
		})
	},
}

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "port to listen on (default: API_PORT)")
}

// listen serves until ctx is cancelled, then shuts down gracefully.
func listen(ctx context.Context, srv *nethttp.Server) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting API server", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	slog.Info("Shutting down API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
