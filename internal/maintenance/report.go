// Package maintenance reports on and cleans up the ledger.
package maintenance

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"docflow/internal/contextutil"
	"docflow/internal/storage"
)

const (
	recentWindow  = 7 * 24 * time.Hour
	recentEntries = 5
	subjectWidth  = 40
)

// Entry is a ledger row as shown in a report.
type Entry struct {
	File         string `json:"file"`
	Sender       string `json:"sender"`
	Subject      string `json:"subject"`
	DownloadDate string `json:"download_date"`
}

// Report holds ledger statistics.
type Report struct {
	Location          string         `json:"location"`
	TotalFiles        int            `json:"total_files"`
	UniqueEmails      int            `json:"unique_emails"`
	UniqueThreads     int            `json:"unique_threads"`
	UniqueSenders     int            `json:"unique_senders"`
	UniqueContent     int            `json:"unique_content"`
	RecentDownloads   int            `json:"recent_downloads"`
	FileTypes         map[string]int `json:"file_types"`
	MarkdownCompleted int            `json:"markdown_completed"`
	JSONCompleted     int            `json:"json_completed"`
	JSONFailed        int            `json:"json_failed"`
	Recent            []Entry        `json:"recent"`
}

// Maintainer runs ledger maintenance tasks.
type Maintainer struct {
	store    storage.LedgerStore
	location string
	now      func() time.Time
}

// NewMaintainer creates a Maintainer. location is only used for display.
func NewMaintainer(store storage.LedgerStore, location string) *Maintainer {
	return &Maintainer{store: store, location: location, now: time.Now}
}

// Report computes statistics over the whole ledger.
func (m *Maintainer) Report(ctx context.Context) (*Report, error) {
	table, err := m.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	rep := &Report{
		Location:   m.location,
		TotalFiles: table.Len(),
		FileTypes:  make(map[string]int),
		Recent:     []Entry{},
	}

	emails := map[string]bool{}
	threads := map[string]bool{}
	senders := map[string]bool{}
	hashes := map[string]bool{}
	cutoff := m.now().Add(-recentWindow)

	for i := range table.Rows {
		row := &table.Rows[i]
		addNonEmpty(emails, row.EmailID)
		addNonEmpty(threads, row.ThreadID)
		addNonEmpty(senders, row.Sender)
		for _, h := range storage.SplitCell(row.FileHashes) {
			hashes[h] = true
		}

		if t, err := storage.ParseTime(row.DownloadDate); err == nil && t.After(cutoff) {
			rep.RecentDownloads++
		}
		if row.AttachmentNames != "" {
			rep.FileTypes[strings.ToLower(filepath.Ext(row.AttachmentNames))]++
		}
		if row.Markdown == storage.StageCompleted {
			rep.MarkdownCompleted++
		}
		if row.JSON == storage.StageCompleted {
			rep.JSONCompleted++
		}
		if row.ResStatus == storage.ResultFailed {
			rep.JSONFailed++
		}
	}
	rep.UniqueEmails = len(emails)
	rep.UniqueThreads = len(threads)
	rep.UniqueSenders = len(senders)
	rep.UniqueContent = len(hashes)

	start := max(table.Len()-recentEntries, 0)
	for _, row := range table.Rows[start:] {
		rep.Recent = append(rep.Recent, Entry{
			File:         row.AttachmentNames,
			Sender:       row.Sender,
			Subject:      row.Subject,
			DownloadDate: row.DownloadDate,
		})
	}
	return rep, nil
}

func addNonEmpty(set map[string]bool, v string) {
	if v != "" {
		set[v] = true
	}
}

// String renders the report for people.
func (r *Report) String() string {
	if r.TotalFiles == 0 {
		return "Ledger is empty. No downloads recorded yet."
	}

	var b strings.Builder
	b.WriteString("Download ledger summary (one row per file)\n")
	b.WriteString(strings.Repeat("=", 50) + "\n")
	fmt.Fprintf(&b, "Total files downloaded: %d\n", r.TotalFiles)
	fmt.Fprintf(&b, "Unique emails processed: %d\n", r.UniqueEmails)
	fmt.Fprintf(&b, "Unique email threads: %d\n", r.UniqueThreads)
	fmt.Fprintf(&b, "Unique files by content: %d\n", r.UniqueContent)
	fmt.Fprintf(&b, "Unique senders: %d\n", r.UniqueSenders)
	fmt.Fprintf(&b, "Recent downloads (7 days): %d\n", r.RecentDownloads)
	fmt.Fprintf(&b, "Markdown converted: %d\n", r.MarkdownCompleted)
	fmt.Fprintf(&b, "JSON extracted: %d (failed: %d)\n", r.JSONCompleted, r.JSONFailed)
	if r.Location != "" {
		fmt.Fprintf(&b, "Ledger location: %s\n", r.Location)
	}

	if len(r.FileTypes) > 0 {
		b.WriteString("\nFile type breakdown:\n")
		exts := make([]string, 0, len(r.FileTypes))
		for ext := range r.FileTypes {
			exts = append(exts, ext)
		}
		sort.Strings(exts)
		for _, ext := range exts {
			fmt.Fprintf(&b, "   - %s: %d files\n", ext, r.FileTypes[ext])
		}
	}

	if len(r.Recent) > 0 {
		b.WriteString("\nRecent file entries:\n")
		for _, e := range r.Recent {
			subject := e.Subject
			if len(subject) > subjectWidth {
				subject = subject[:subjectWidth] + "..."
			}
			fmt.Fprintf(&b, "   - %s\n", e.File)
			fmt.Fprintf(&b, "     From: %s | Subject: %s\n", e.Sender, subject)
			fmt.Fprintf(&b, "     Downloaded: %s\n", e.DownloadDate)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// Dedupe collapses rows describing the same file down to the first
// occurrence. Rows are keyed by unique_file_ids, else file_hashes, else
// message_hash plus attachment_names; rows with no key are kept. The ledger
// is saved only when something was removed.
func (m *Maintainer) Dedupe(ctx context.Context) (removed, remaining int, err error) {
	logger := contextutil.LoggerFromContext(ctx)

	err = retry.Do(
		func() error {
			table, err := m.store.Load(ctx)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("failed to load ledger: %w", err))
			}

			seen := make(map[string]bool, table.Len())
			kept := make([]storage.LedgerRow, 0, table.Len())
			for _, row := range table.Rows {
				key := dedupeKey(&row)
				if key != "" && seen[key] {
					continue
				}
				if key != "" {
					seen[key] = true
				}
				kept = append(kept, row)
			}

			removed = table.Len() - len(kept)
			remaining = len(kept)
			if removed == 0 {
				return nil
			}

			table.Rows = kept
			if err := m.store.Save(ctx, table); err != nil {
				if errors.Is(err, storage.ErrVersionConflict) {
					return err
				}
				return retry.Unrecoverable(err)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(3),
		retry.Delay(50*time.Millisecond),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			logger.WarnContext(ctx, "ledger changed during dedupe, retrying", "attempt", n+1)
		}),
	)
	if err != nil {
		return 0, 0, err
	}

	if removed > 0 {
		logger.InfoContext(ctx, "removed duplicate ledger rows", "removed", removed, "remaining", remaining)
	}
	return removed, remaining, nil
}

func dedupeKey(row *storage.LedgerRow) string {
	switch {
	case row.UniqueFileIDs != "":
		return "id:" + row.UniqueFileIDs
	case row.FileHashes != "":
		return "hash:" + row.FileHashes
	case row.MessageHash != "" || row.AttachmentNames != "":
		return "msg:" + row.MessageHash + "|" + row.AttachmentNames
	}
	return ""
}
