// Package convert transcribes downloaded PDFs into per-document markdown.
package convert

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_rasterizer.go -package=mocks docflow/internal/convert Rasterizer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"

	"docflow/internal/contextutil"
	"docflow/internal/llm"
	"docflow/internal/markdown"
	"docflow/internal/render"
	"docflow/internal/stage"
	"docflow/internal/workspace"
)

// Rasterizer renders a PDF into page images ordered by page number.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath string) ([]string, error)
}

// Options tunes a Converter.
type Options struct {
	RetryAttempts uint
	RetryDelay    time.Duration
}

// Converter runs the markdown stage.
type Converter struct {
	raster  Rasterizer
	model   llm.Transcriber
	tracker *stage.Tracker
	layout  workspace.Layout
	opts    Options
}

// NewConverter creates a new Converter. The tracker must track stage.Markdown.
func NewConverter(raster Rasterizer, model llm.Transcriber, tracker *stage.Tracker, layout workspace.Layout, opts Options) *Converter {
	if opts.RetryAttempts == 0 {
		opts.RetryAttempts = 1
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	return &Converter{
		raster:  raster,
		model:   model,
		tracker: tracker,
		layout:  layout,
		opts:    opts,
	}
}

// Run converts every PDF in the download directory whose markdown stage is
// not completed. A failing document is recorded and the run moves on; only
// an unreadable ledger or download directory stops the pass.
func (c *Converter) Run(ctx context.Context) (*Summary, error) {
	logger := contextutil.LoggerFromContext(ctx).With("run_id", uuid.New().String(), "stage", string(stage.Markdown))
	ctx = contextutil.WithLogger(ctx, logger)

	c.purgeImages(ctx)

	pdfs, err := c.layout.PendingPDFs()
	if err != nil {
		return nil, err
	}

	summary := &Summary{Found: len(pdfs)}
	for _, pdf := range pdfs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		name := filepath.Base(pdf)
		done, err := c.tracker.IsCompleted(ctx, stage.KeyFromPath(pdf))
		if err != nil {
			return summary, fmt.Errorf("failed to check markdown stage: %w", err)
		}
		if done {
			logger.DebugContext(ctx, "skipping converted document", "file", name)
			summary.Skipped = append(summary.Skipped, name)
			continue
		}

		out, err := c.ConvertOne(ctx, pdf)
		if err != nil {
			logger.WarnContext(ctx, "document conversion failed", "file", name, "error", err)
			summary.Failed = append(summary.Failed, Failure{File: name, Error: err.Error()})
			continue
		}
		summary.Converted = append(summary.Converted, out)
	}

	logger.InfoContext(ctx, "markdown stage finished",
		"found", summary.Found,
		"converted", len(summary.Converted),
		"skipped", len(summary.Skipped),
		"failed", len(summary.Failed),
	)
	return summary, nil
}

// ConvertOne rasterizes one PDF, transcribes its pages in a single session,
// writes output/<key>/output_all_pages.md and marks the markdown stage.
// It does not check whether the document was converted before. Page images
// are removed before it returns.
func (c *Converter) ConvertOne(ctx context.Context, pdfPath string) (string, error) {
	logger := contextutil.LoggerFromContext(ctx)
	key := stage.KeyFromPath(pdfPath)
	defer c.purgeImages(ctx)

	pages, err := c.raster.Rasterize(ctx, pdfPath)
	if err != nil {
		return "", fmt.Errorf("failed to rasterize: %w", err)
	}
	if len(pages) == 0 {
		return "", errors.New("no page images produced")
	}

	session, err := retry.DoWithData(
		func() (llm.Session, error) {
			return c.model.StartSession(ctx)
		},
		c.retryOptions(ctx, "start session")...,
	)
	if err != nil {
		return "", fmt.Errorf("failed to start transcription session: %w", err)
	}

	sections := make([]string, 0, len(pages))
	for i, page := range pages {
		num, ok := render.PageNumber(page)
		if !ok {
			num = i + 1
		}
		text, err := c.transcribe(ctx, session, page)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", num, err)
		}
		logger.DebugContext(ctx, "transcribed page", "key", key, "page", num, "chars", len(text))
		sections = append(sections, fmt.Sprintf("## Page %d\n\n%s\n\n---\n", num, text))
	}
	content := strings.Join(sections, "\n")

	out := c.layout.MarkdownPath(key)
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(out, []byte(content), 0644); err != nil {
		return "", fmt.Errorf("failed to write markdown: %w", err)
	}

	meta := markdown.Inspect(content)
	logger.InfoContext(ctx, "wrote markdown",
		"key", key,
		"pages", len(pages),
		"sections", len(meta.Sections),
		"tables", meta.Tables,
		"path", out,
	)

	if _, err := c.tracker.MarkCompleted(ctx, key); err != nil {
		return out, fmt.Errorf("markdown written but not recorded: %w", err)
	}
	return out, nil
}

func (c *Converter) transcribe(ctx context.Context, session llm.Session, page string) (string, error) {
	image, err := os.ReadFile(page)
	if err != nil {
		return "", fmt.Errorf("failed to read page image: %w", err)
	}
	return retry.DoWithData(
		func() (string, error) {
			return session.TranscribePage(ctx, image, "image/png")
		},
		c.retryOptions(ctx, "transcribe page")...,
	)
}

func (c *Converter) retryOptions(ctx context.Context, op string) []retry.Option {
	logger := contextutil.LoggerFromContext(ctx)
	return []retry.Option{
		retry.Context(ctx),
		retry.Attempts(c.opts.RetryAttempts),
		retry.Delay(c.opts.RetryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(llm.IsTransient),
		retry.OnRetry(func(n uint, err error) {
			logger.WarnContext(ctx, "retrying model call", "op", op, "attempt", n+1, "error", err)
		}),
	}
}

func (c *Converter) purgeImages(ctx context.Context) {
	if _, err := c.layout.PurgeImages(); err != nil {
		contextutil.LoggerFromContext(ctx).WarnContext(ctx, "failed to purge page images", "error", err)
	}
}
