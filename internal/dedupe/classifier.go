// Package dedupe decides whether a candidate attachment was already downloaded.
package dedupe

import (
	"context"
	"fmt"

	"docflow/internal/contextutil"
	"docflow/internal/fingerprint"
	"docflow/internal/storage"
)

// Rule identifies which check produced a verdict.
type Rule string

const (
	RuleEmptyLedger Rule = "empty_ledger"
	RuleContent     Rule = "content"
	RuleThread      Rule = "thread"
	RuleCompositeID Rule = "composite_id"
	RuleNew         Rule = "new"
)

// Candidate is an attachment about to be downloaded.
type Candidate struct {
	Filename string // name as sent, before collision resolution
	Data     []byte
	EmailID  string
	ThreadID string
}

// Verdict is the classification outcome.
type Verdict struct {
	Duplicate bool
	Rule      Rule
	Reason    string
	// Match is the ledger row that caused a duplicate verdict.
	Match *storage.LedgerRow
}

// Classify checks a candidate against the ledger. Checks run in order and the
// first match wins: content hash, same name in the same thread, then the
// composite file id. Cells are compared whole, and legacy list cells item by
// item, never by substring.
func Classify(ctx context.Context, table *storage.Table, c Candidate) Verdict {
	logger := contextutil.LoggerFromContext(ctx)

	if table == nil || table.Empty() {
		return Verdict{Rule: RuleEmptyLedger, Reason: "no previous downloads"}
	}

	contentHash := fingerprint.Content(c.Data)
	compositeID := fingerprint.CompositeFileID(c.Filename, contentHash, c.EmailID)

	for i := range table.Rows {
		row := &table.Rows[i]
		if row.Has(row.FileHashes, contentHash) {
			return Verdict{
				Duplicate: true,
				Rule:      RuleContent,
				Reason: fmt.Sprintf("identical file content already exists (downloaded on %s from %s, subject: %s)",
					row.DownloadDate, row.Sender, row.Subject),
				Match: row,
			}
		}
	}

	if c.ThreadID != "" {
		for i := range table.Rows {
			row := &table.Rows[i]
			if row.ThreadID != c.ThreadID || !hasName(row, c.Filename) {
				continue
			}
			return Verdict{
				Duplicate: true,
				Rule:      RuleThread,
				Reason: fmt.Sprintf("same filename already downloaded in this email thread (original download: %s, subject: %s)",
					row.DownloadDate, row.Subject),
				Match: row,
			}
		}
	}

	for i := range table.Rows {
		if hasName(&table.Rows[i], c.Filename) {
			logger.InfoContext(ctx, "file with same name but different content",
				"filename", c.Filename,
				"existing_email_id", table.Rows[i].EmailID,
			)
			break
		}
	}

	for i := range table.Rows {
		row := &table.Rows[i]
		if row.Has(row.UniqueFileIDs, compositeID) {
			return Verdict{
				Duplicate: true,
				Rule:      RuleCompositeID,
				Reason:    fmt.Sprintf("this exact file from this email has already been processed (original download: %s)", row.DownloadDate),
				Match:     row,
			}
		}
	}

	return Verdict{Rule: RuleNew, Reason: "file is new"}
}

// hasName reports whether the row recorded filename under its stored or original name.
func hasName(row *storage.LedgerRow, filename string) bool {
	return row.Has(row.AttachmentNames, filename) || row.Has(row.OriginalFilenames, filename)
}
