// Package stage tracks per-document completion of the markdown and json stages.
package stage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"docflow/internal/contextutil"
	"docflow/internal/storage"
)

// Stage names a ledger completion column.
type Stage string

const (
	Markdown Stage = "markdown"
	JSON     Stage = "json"
)

// saveAttempts bounds how often an update is re-applied after a version conflict.
const saveAttempts = 3

// Result is the outcome of the json stage for one document.
type Result struct {
	Path      string
	Status    string
	Completed bool
}

// Tracker answers and records stage completion by document key.
// The key is the stored filename without extension.
type Tracker struct {
	store storage.LedgerStore
	stage Stage
}

// NewTracker creates a tracker for one stage.
func NewTracker(store storage.LedgerStore, stage Stage) *Tracker {
	return &Tracker{store: store, stage: stage}
}

// Stage returns the tracked stage.
func (t *Tracker) Stage() Stage {
	return t.stage
}

// KeyFor returns the document key of a ledger row.
func KeyFor(row *storage.LedgerRow) string {
	if row.SourceKey != "" {
		return row.SourceKey
	}
	paths := storage.SplitCell(row.FilePaths)
	if len(paths) == 0 {
		return ""
	}
	return KeyFromPath(paths[0])
}

// KeyFromPath returns the base name of path without its extension.
func KeyFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// IsCompleted reports whether any row for key has the stage completed.
func (t *Tracker) IsCompleted(ctx context.Context, key string) (bool, error) {
	table, err := t.store.Load(ctx)
	if err != nil {
		return false, err
	}
	for i := range table.Rows {
		row := &table.Rows[i]
		if KeyFor(row) == key && row.StageValue(string(t.stage)) == storage.StageCompleted {
			return true, nil
		}
	}
	return false, nil
}

// MarkCompleted sets the stage flag on every row for key and returns the number of matching rows.
func (t *Tracker) MarkCompleted(ctx context.Context, key string) (int, error) {
	return t.update(ctx, key, func(row *storage.LedgerRow) bool {
		if row.StageValue(string(t.stage)) == storage.StageCompleted {
			return false
		}
		row.SetStageValue(string(t.stage), storage.StageCompleted)
		return true
	})
}

// MarkResult records the extraction outcome for key. A completed result also
// sets the stage flag; a failed one never clears it.
func (t *Tracker) MarkResult(ctx context.Context, key string, res Result) (int, error) {
	return t.update(ctx, key, func(row *storage.LedgerRow) bool {
		changed := false
		if res.Path != "" && row.ResPath != res.Path {
			row.ResPath = res.Path
			changed = true
		}
		if res.Status != "" && row.ResStatus != res.Status {
			row.ResStatus = res.Status
			changed = true
		}
		if res.Completed && row.StageValue(string(t.stage)) != storage.StageCompleted {
			row.SetStageValue(string(t.stage), storage.StageCompleted)
			changed = true
		}
		return changed
	})
}

// update applies mutate to every row for key on a fresh load and saves if
// anything changed. A version conflict reloads and re-applies.
func (t *Tracker) update(ctx context.Context, key string, mutate func(*storage.LedgerRow) bool) (int, error) {
	logger := contextutil.LoggerFromContext(ctx).With("stage", string(t.stage), "key", key)

	var matched int
	err := retry.Do(
		func() error {
			table, err := t.store.Load(ctx)
			if err != nil {
				return retry.Unrecoverable(err)
			}

			matched = 0
			changed := false
			for i := range table.Rows {
				row := &table.Rows[i]
				if KeyFor(row) != key {
					continue
				}
				matched++
				if mutate(row) {
					changed = true
				}
			}
			if !changed {
				return nil
			}
			if err := t.store.Save(ctx, table); err != nil {
				if errors.Is(err, storage.ErrVersionConflict) {
					return err
				}
				return retry.Unrecoverable(err)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(saveAttempts),
		retry.Delay(50*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.WarnContext(ctx, "ledger changed during update, retrying", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return 0, err
	}

	if matched == 0 {
		logger.WarnContext(ctx, "no ledger row matched document key")
	}
	return matched, nil
}
