// Package ingest downloads new document attachments and records them in the ledger.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"

	"docflow/internal/contextutil"
	"docflow/internal/dedupe"
	"docflow/internal/fingerprint"
	"docflow/internal/mail"
	"docflow/internal/stage"
	"docflow/internal/storage"
	"docflow/internal/workspace"
)

// saveAttempts bounds how often new rows are merged after a version conflict.
const saveAttempts = 3

// Options tunes an Ingester.
type Options struct {
	Lookback      time.Duration
	RetryAttempts uint
	RetryDelay    time.Duration
}

// Ingester runs the download stage.
type Ingester struct {
	client mail.Client
	store  storage.LedgerStore
	layout workspace.Layout
	opts   Options
	now    func() time.Time
}

// NewIngester creates a new Ingester.
func NewIngester(client mail.Client, store storage.LedgerStore, layout workspace.Layout, opts Options) *Ingester {
	if opts.Lookback <= 0 {
		opts.Lookback = 24 * time.Hour
	}
	if opts.RetryAttempts == 0 {
		opts.RetryAttempts = 1
	}
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = 500 * time.Millisecond
	}
	return &Ingester{
		client: client,
		store:  store,
		layout: layout,
		opts:   opts,
		now:    time.Now,
	}
}

// Run lists recent messages with attachments, downloads every document that
// is not a duplicate and saves the ledger once at the end. Per-message and
// per-attachment failures are recorded in the summary and never abort the run.
// A cancelled run stops listing messages but still records what it wrote.
func (g *Ingester) Run(ctx context.Context) (*Summary, error) {
	logger := contextutil.LoggerFromContext(ctx).With("run_id", uuid.New().String(), "stage", "ingest")
	ctx = contextutil.WithLogger(ctx, logger)

	table, err := g.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}
	if err := g.layout.Ensure(); err != nil {
		return nil, err
	}

	summary := &Summary{Lookback: g.opts.Lookback}
	query := mail.AttachmentQuery(g.now(), g.opts.Lookback)

	messages, err := retry.DoWithData(
		func() ([]mail.MessageSummary, error) {
			return g.client.ListMessages(ctx, query)
		},
		g.retryOptions(ctx, "list messages")...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	logger.InfoContext(ctx, "starting ingestion", "query", query, "messages", len(messages))
	before := table.Len()

	for _, ms := range messages {
		if ctx.Err() != nil {
			break
		}

		summary.MessagesScanned++
		if err := g.ingestMessage(ctx, table, ms, summary); err != nil {
			logger.ErrorContext(ctx, "failed to process message", "email_id", ms.ID, "error", err)
			summary.Failed = append(summary.Failed, Failure{File: "message " + ms.ID, Error: err.Error()})
			continue
		}
	}

	// Files already written must get their rows even when the run was cancelled.
	if table.Len() > before {
		added := append([]storage.LedgerRow(nil), table.Rows[before:]...)
		if err := g.save(context.WithoutCancel(ctx), table, added); err != nil {
			summary.Unrecorded = true
			return summary, fmt.Errorf("failed to save ledger: %w", err)
		}
	}
	if err := ctx.Err(); err != nil {
		logger.WarnContext(ctx, "ingestion cancelled", "downloaded", len(summary.Downloaded))
		return summary, err
	}

	logger.InfoContext(ctx, "ingestion completed",
		"downloaded", len(summary.Downloaded),
		"skipped", len(summary.Skipped),
		"errors", len(summary.Failed),
	)
	return summary, nil
}

func (g *Ingester) ingestMessage(ctx context.Context, table *storage.Table, ms mail.MessageSummary, summary *Summary) error {
	logger := contextutil.LoggerFromContext(ctx)

	msg, err := retry.DoWithData(
		func() (*mail.Message, error) {
			return g.client.GetMessage(ctx, ms.ID)
		},
		g.retryOptions(ctx, "get message")...,
	)
	if err != nil {
		return err
	}

	docs := msg.Documents()
	if len(docs) == 0 {
		return nil
	}

	threadID := msg.ThreadID
	if threadID == "" {
		threadID = ms.ThreadID
	}
	subject := msg.Subject()
	sender := msg.Sender()
	messageHash := fingerprint.Message(msg.ID, threadID, subject)
	firstInbox := firstInboxMsg(table, threadID, msg.Header("Date"))
	downloadedHere := 0

	for _, part := range docs {
		data, err := g.partData(ctx, msg.ID, part)
		if err != nil {
			logger.ErrorContext(ctx, "failed to download attachment", "filename", part.Filename, "email_id", msg.ID, "error", err)
			summary.Failed = append(summary.Failed, Failure{File: part.Filename, Error: err.Error()})
			continue
		}
		if data == nil {
			continue
		}

		verdict := dedupe.Classify(ctx, table, dedupe.Candidate{
			Filename: part.Filename,
			Data:     data,
			EmailID:  msg.ID,
			ThreadID: threadID,
		})
		if verdict.Duplicate {
			logger.InfoContext(ctx, "skipping duplicate attachment", "filename", part.Filename, "rule", verdict.Rule)
			summary.Skipped = append(summary.Skipped, Skip{File: part.Filename, Reason: verdict.Reason})
			continue
		}

		path, err := g.write(table, part.Filename, data)
		if err != nil {
			logger.ErrorContext(ctx, "failed to store attachment", "filename", part.Filename, "error", err)
			summary.Failed = append(summary.Failed, Failure{File: part.Filename, Error: err.Error()})
			continue
		}

		finalName := filepath.Base(path)
		contentHash := fingerprint.Content(data)
		now := storage.FormatTime(g.now())

		table.Append(storage.LedgerRow{
			Subject:            subject,
			EmailID:            msg.ID,
			ThreadID:           threadID,
			Sender:             sender,
			FirstInboxMsg:      firstInbox,
			LastCheckDate:      now,
			DownloadDate:       now,
			DuplicateCheckDate: now,
			CountDownload:      1,
			ListNameCount:      finalName,
			AttachmentNames:    finalName,
			FilePaths:          path,
			OriginalFilenames:  part.Filename,
			MessageHash:        messageHash,
			FileHashes:         contentHash,
			UniqueFileIDs:      fingerprint.CompositeFileID(finalName, contentHash, msg.ID),
			ProcessStatus:      storage.StatusDownloaded,
			DuplicateStatus:    storage.DuplicateUnique,
			SourceKey:          stage.KeyFromPath(finalName),
		})
		summary.Downloaded = append(summary.Downloaded, finalName)
		downloadedHere++

		logger.InfoContext(ctx, "downloaded attachment", "filename", finalName, "email_id", msg.ID, "bytes", len(data))
	}

	if downloadedHere > 0 {
		summary.Emails = append(summary.Emails, sender+": "+subject)
	}
	return nil
}

// partData returns the attachment bytes, fetching them when not inline.
// A part with neither inline data nor an attachment id yields nil.
func (g *Ingester) partData(ctx context.Context, messageID string, part mail.Part) ([]byte, error) {
	if len(part.Data) > 0 {
		return part.Data, nil
	}
	if part.AttachmentID == "" {
		return nil, nil
	}
	return retry.DoWithData(
		func() ([]byte, error) {
			return g.client.GetAttachment(ctx, messageID, part.AttachmentID)
		},
		g.retryOptions(ctx, "get attachment")...,
	)
}

// write stores data under a name whose key no ledger row uses.
func (g *Ingester) write(table *storage.Table, filename string, data []byte) (string, error) {
	path, err := g.layout.UniqueDownloadPath(filename, func(stem string) bool {
		for i := range table.Rows {
			if stage.KeyFor(&table.Rows[i]) == stem {
				return true
			}
		}
		return false
	})
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

// save writes the ledger. After a version conflict the new rows are merged
// into a fresh copy and the save is tried again.
func (g *Ingester) save(ctx context.Context, table *storage.Table, added []storage.LedgerRow) error {
	logger := contextutil.LoggerFromContext(ctx)
	return retry.Do(
		func() error {
			err := g.store.Save(ctx, table)
			if !errors.Is(err, storage.ErrVersionConflict) {
				return err
			}
			fresh, loadErr := g.store.Load(ctx)
			if loadErr != nil {
				return retry.Unrecoverable(loadErr)
			}
			table = mergeRows(fresh, added)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(saveAttempts),
		retry.Delay(50*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool { return errors.Is(err, storage.ErrVersionConflict) }),
		retry.OnRetry(func(n uint, err error) {
			logger.WarnContext(ctx, "ledger changed during ingestion, merging", slog.Uint64("attempt", uint64(n+1)))
		}),
	)
}

// mergeRows appends rows whose file id is not already in fresh.
func mergeRows(fresh *storage.Table, rows []storage.LedgerRow) *storage.Table {
	seen := make(map[string]bool, fresh.Len())
	for i := range fresh.Rows {
		seen[fresh.Rows[i].UniqueFileIDs] = true
	}
	for _, row := range rows {
		if row.UniqueFileIDs != "" && seen[row.UniqueFileIDs] {
			continue
		}
		fresh.Append(row)
	}
	return fresh
}

func (g *Ingester) retryOptions(ctx context.Context, op string) []retry.Option {
	logger := contextutil.LoggerFromContext(ctx)
	return []retry.Option{
		retry.Context(ctx),
		retry.Attempts(g.opts.RetryAttempts),
		retry.Delay(g.opts.RetryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(mail.IsTransient),
		retry.OnRetry(func(n uint, err error) {
			logger.WarnContext(ctx, "mail call failed, retrying", slog.String("op", op), slog.Uint64("attempt", uint64(n+1)), slog.Any("error", err))
		}),
	}
}

// firstInboxMsg returns the first_inbox_msg of the earliest row in the thread,
// or date when the thread is new.
func firstInboxMsg(table *storage.Table, threadID, date string) string {
	if threadID == "" {
		return date
	}
	for i := range table.Rows {
		if table.Rows[i].ThreadID == threadID {
			return table.Rows[i].FirstInboxMsg
		}
	}
	return date
}
