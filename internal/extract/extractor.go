package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"

	"docflow/internal/contextutil"
	"docflow/internal/llm"
	"docflow/internal/markdown"
	"docflow/internal/stage"
	"docflow/internal/storage"
	"docflow/internal/workspace"
)

// Result statuses written to artifacts.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is the artifact written for one markdown document.
type Result struct {
	Status           string             `json:"status"`
	Data             any                `json:"data"`
	FilePath         string             `json:"file_path"`
	Schema           string             `json:"schema,omitempty"`
	ParseMode        ParseMode          `json:"parse_mode,omitempty"`
	ValidationErrors []string           `json:"validation_errors,omitempty"`
	Metadata         *markdown.Metadata `json:"metadata,omitempty"`
	Error            string             `json:"error,omitempty"`
}

// Options tunes an Extractor.
type Options struct {
	RetryAttempts uint
	RetryDelay    time.Duration
}

// Extractor runs the json stage.
type Extractor struct {
	model    llm.Completer
	registry *Registry
	tracker  *stage.Tracker
	layout   workspace.Layout
	opts     Options
	now      func() time.Time
}

// NewExtractor creates a new Extractor. The tracker must track stage.JSON.
func NewExtractor(model llm.Completer, registry *Registry, tracker *stage.Tracker, layout workspace.Layout, opts Options) *Extractor {
	if opts.RetryAttempts == 0 {
		opts.RetryAttempts = 1
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	return &Extractor{
		model:    model,
		registry: registry,
		tracker:  tracker,
		layout:   layout,
		opts:     opts,
		now:      time.Now,
	}
}

// Run extracts every markdown document whose json stage is not completed.
// Successful documents get a result artifact and the stage flag; failed ones
// get an error artifact and res_status=failed so the next run retries them.
func (e *Extractor) Run(ctx context.Context) (*Summary, error) {
	logger := contextutil.LoggerFromContext(ctx).With("run_id", uuid.New().String(), "stage", string(stage.JSON))
	ctx = contextutil.WithLogger(ctx, logger)

	docs, err := e.layout.MarkdownDocs(ctx)
	if err != nil {
		return nil, err
	}

	summary := &Summary{Found: len(docs)}
	checked := make(map[string]bool)
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		done, ok := checked[doc.Key]
		if !ok {
			done, err = e.tracker.IsCompleted(ctx, doc.Key)
			if err != nil {
				return summary, fmt.Errorf("failed to check json stage: %w", err)
			}
			checked[doc.Key] = done
		}
		if done {
			logger.DebugContext(ctx, "skipping extracted document", "key", doc.Key, "file", doc.RelPath)
			summary.Skipped = append(summary.Skipped, doc.RelPath)
			continue
		}

		res := e.ExtractOne(ctx, doc.AbsPath)
		out, err := e.record(ctx, doc, res)
		switch {
		case err != nil:
			logger.WarnContext(ctx, "failed to record extraction", "key", doc.Key, "error", err)
			summary.Failed = append(summary.Failed, Failure{File: doc.RelPath, Error: err.Error()})
		case res.Status != StatusSuccess:
			logger.WarnContext(ctx, "extraction failed", "key", doc.Key, "error", res.Error, "artifact", out)
			summary.Failed = append(summary.Failed, Failure{File: doc.RelPath, Error: res.Error})
		default:
			if res.ParseMode != ModeStrict {
				summary.Recovered++
			}
			summary.Extracted = append(summary.Extracted, out)
			// One result per document; other markdown files in the folder are skipped.
			checked[doc.Key] = true
		}
	}

	logger.InfoContext(ctx, "json stage finished",
		"found", summary.Found,
		"extracted", len(summary.Extracted),
		"skipped", len(summary.Skipped),
		"failed", len(summary.Failed),
	)
	return summary, nil
}

// ExtractOne runs schema selection, the model call, JSON recovery, table
// repair and validation for one markdown file. Failures are reported in the
// result, never as an error.
func (e *Extractor) ExtractOne(ctx context.Context, path string) *Result {
	logger := contextutil.LoggerFromContext(ctx).With("key", filepath.Base(filepath.Dir(path)))
	res := &Result{Status: StatusError, Data: map[string]any{}, FilePath: path}

	raw, err := os.ReadFile(path)
	if err != nil {
		res.Error = fmt.Sprintf("failed to read markdown: %v", err)
		return res
	}
	content := string(raw)
	if !markdown.Validate(content) {
		logger.WarnContext(ctx, "markdown does not have the expected structure")
	}
	meta := markdown.Inspect(content)
	res.Metadata = &meta

	schema, err := e.registry.Select(content)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Schema = schema.ID
	res.Data = schema.EmptyData()
	logger.DebugContext(ctx, "selected schema", "schema", schema.ID)

	prompt, err := schema.Prompt(content)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	reply, err := retry.DoWithData(
		func() (string, error) {
			return e.model.Complete(ctx, prompt)
		},
		retry.Context(ctx),
		retry.Attempts(e.opts.RetryAttempts),
		retry.Delay(e.opts.RetryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(llm.IsTransient),
		retry.OnRetry(func(n uint, err error) {
			logger.WarnContext(ctx, "retrying extraction call", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		res.Error = fmt.Sprintf("model call failed: %v", err)
		return res
	}

	parsed, err := ParseJSON(reply)
	if err != nil {
		logger.WarnContext(ctx, "unrecoverable model reply", "reply_chars", len(reply))
		res.Error = err.Error()
		return res
	}
	if len(parsed.Value) == 0 {
		res.Error = "model returned an empty JSON object"
		return res
	}
	res.ParseMode = parsed.Mode

	data := RepairTables(parsed.Value, schema.ArrayFields()...)
	res.Data = data
	res.ValidationErrors = schema.Validate(data)
	if len(res.ValidationErrors) > 0 {
		logger.InfoContext(ctx, "extracted record does not match schema", "violations", len(res.ValidationErrors))
	}
	res.Status = StatusSuccess
	return res
}

// record writes the artifact for res and updates the ledger. It returns the
// artifact path.
func (e *Extractor) record(ctx context.Context, doc workspace.MarkdownDoc, res *Result) (string, error) {
	key := doc.Key
	ts := e.now()
	if res.Status != StatusSuccess {
		out := e.layout.ErrorResultPath(key, doc.AbsPath, ts)
		if err := writeJSON(out, res); err != nil {
			return "", err
		}
		if _, err := e.tracker.MarkResult(ctx, key, stage.Result{Status: storage.ResultFailed}); err != nil {
			return out, fmt.Errorf("failed to record failure: %w", err)
		}
		return out, nil
	}

	out := e.layout.ResultPath(key, doc.AbsPath, ts)
	if err := writeJSON(out, res); err != nil {
		return "", err
	}
	done := stage.Result{Path: out, Status: storage.ResultSuccess, Completed: true}
	if _, err := e.tracker.MarkResult(ctx, key, done); err != nil {
		return out, fmt.Errorf("result written but not recorded: %w", err)
	}
	return out, nil
}

func writeJSON(path string, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create results directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}
