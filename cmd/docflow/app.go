package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"docflow/internal/config"
	"docflow/internal/convert"
	"docflow/internal/extract"
	"docflow/internal/ingest"
	"docflow/internal/llm"
	"docflow/internal/mail"
	"docflow/internal/maintenance"
	"docflow/internal/pipeline"
	"docflow/internal/render"
	"docflow/internal/stage"
	"docflow/internal/storage"
	"docflow/internal/workspace"
)

const retryDelay = 2 * time.Second

// model is what both providers offer.
type model interface {
	llm.Transcriber
	llm.Completer
}

// app owns the ledger connection and builds pipeline components on demand.
type app struct {
	cfg     *config.Config
	store   *storage.LedgerRepo
	layout  workspace.Layout
	model   model
	closers []io.Closer
}

// newApp opens and migrates the ledger and prepares the workspace.
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	layout := workspace.Layout{
		Root:     cfg.WorkDir,
		Download: cfg.DownloadDir,
		Images:   cfg.ImagesDir,
		Output:   cfg.OutputDir,
		Results:  cfg.ResultsDir,
	}
	if err := layout.Ensure(); err != nil {
		return nil, fmt.Errorf("failed to prepare workspace: %w", err)
	}

	db, err := storage.New(cfg.LedgerPath)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open ledger: %w", storage.ErrLedgerUnavailable, err)
	}
	store := storage.NewLedgerRepo(db)
	if err := store.Initialize(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: failed to migrate ledger: %w", storage.ErrLedgerUnavailable, err)
	}
	slog.Debug("Ledger initialized", "path", cfg.LedgerPath)

	return &app{
		cfg:     cfg,
		store:   store,
		layout:  layout,
		closers: []io.Closer{db},
	}, nil
}

// Close releases every resource the app opened.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	return errors.Join(errs...)
}

func (a *app) retryAttempts() uint {
	return uint(a.cfg.RetryAttempts)
}

func (a *app) ingester(ctx context.Context) (*ingest.Ingester, error) {
	client, err := mail.NewGmailClientFromFiles(ctx, a.cfg.GmailCredentialsFile, a.cfg.GmailTokenFile, a.cfg.GmailUser)
	if err != nil {
		return nil, err
	}
	return ingest.NewIngester(client, a.store, a.layout, ingest.Options{
		Lookback:      a.cfg.MailLookback,
		RetryAttempts: a.retryAttempts(),
		RetryDelay:    retryDelay,
	}), nil
}

// llmClient builds the configured provider once.
func (a *app) llmClient(ctx context.Context) (model, error) {
	if a.model != nil {
		return a.model, nil
	}
	if err := a.cfg.RequireLLM(); err != nil {
		return nil, err
	}

	params := llm.Params{VisionModel: a.cfg.VisionModel, TextModel: a.cfg.TextModel}
	switch a.cfg.LLMProvider {
	case config.ProviderVertex:
		client, err := llm.NewGeminiClient(ctx, a.cfg.VertexProjectID, a.cfg.VertexRegion, params)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client)
		a.model = client
	default:
		a.model = llm.NewOpenAIClient(llm.OpenAIConfig{
			BaseURL: a.cfg.LLMBaseURL,
			APIKey:  a.cfg.LLMAPIKey,
			Params:  params,
		})
	}
	slog.Debug("LLM configured", "provider", a.cfg.LLMProvider, "vision_model", a.cfg.VisionModel, "text_model", a.cfg.TextModel)
	return a.model, nil
}

func (a *app) converter(ctx context.Context) (*convert.Converter, error) {
	m, err := a.llmClient(ctx)
	if err != nil {
		return nil, err
	}
	raster := render.NewPDFRasterizer(a.cfg.PdftoppmPath, a.cfg.RasterDPI, a.layout.Images)
	tracker := stage.NewTracker(a.store, stage.Markdown)
	return convert.NewConverter(raster, m, tracker, a.layout, convert.Options{
		RetryAttempts: a.retryAttempts(),
		RetryDelay:    retryDelay,
	}), nil
}

func (a *app) extractor(ctx context.Context) (*extract.Extractor, error) {
	m, err := a.llmClient(ctx)
	if err != nil {
		return nil, err
	}
	registry, err := extract.Builtin()
	if err != nil {
		return nil, err
	}
	if a.cfg.SchemaDir != "" {
		if err := registry.LoadDir(a.cfg.SchemaDir); err != nil {
			return nil, err
		}
	}
	tracker := stage.NewTracker(a.store, stage.JSON)
	return extract.NewExtractor(m, registry, tracker, a.layout, extract.Options{
		RetryAttempts: a.retryAttempts(),
		RetryDelay:    retryDelay,
	}), nil
}

func (a *app) maintainer() *maintenance.Maintainer {
	return maintenance.NewMaintainer(a.store, a.cfg.LedgerPath)
}

// passes selects which components a runner gets.
type passes struct {
	ingest, convert, extract bool
}

var allPasses = passes{ingest: true, convert: true, extract: true}

// runner builds a pipeline runner with the requested passes. Passes left out
// report that they are not configured.
func (a *app) runner(ctx context.Context, p passes) (*pipeline.Runner, error) {
	var (
		ingester  pipeline.IngestPass
		converter pipeline.ConvertPass
		extractor pipeline.ExtractPass
	)
	if p.ingest {
		i, err := a.ingester(ctx)
		if err != nil {
			return nil, err
		}
		ingester = i
	}
	if p.convert {
		c, err := a.converter(ctx)
		if err != nil {
			return nil, err
		}
		converter = c
	}
	if p.extract {
		e, err := a.extractor(ctx)
		if err != nil {
			return nil, err
		}
		extractor = e
	}
	return pipeline.NewRunner(ingester, converter, extractor, a.maintainer()), nil
}

// withApp opens the app for one command and closes it afterwards.
func withApp(ctx context.Context, fn func(*app) error) error {
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			slog.Warn("failed to close resources", "error", err)
		}
	}()
	return fn(a)
}
