package storage

import (
	"strings"
	"time"
)

// TimeLayout is the layout used for every timestamp cell written by the pipeline.
const TimeLayout = "2006-01-02 15:04:05"

// Cell values with a fixed meaning.
const (
	StatusDownloaded = "downloaded"
	DuplicateUnique  = "unique"
	StageCompleted   = "completed"
	ResultSuccess    = "success"
	ResultFailed     = "failed"
)

// Columns is the fixed, ordered ledger column set.
var Columns = []string{
	// identity
	"subject",
	"email_id",
	"thread_id",
	"sender",
	// timeline
	"first_inbox_msg",
	"last_check_date",
	"download_date",
	"duplicate_check_date",
	// file management
	"count_download",
	"list_name_count",
	"attachment_names",
	"file_paths",
	"original_filenames",
	"res_path",
	// integrity
	"message_hash",
	"file_hashes",
	"unique_file_ids",
	// status
	"process_status",
	"classification",
	"duplicate_status",
	"markdown",
	"json",
	"res_status",
	// explicit document key used by the stage tracker
	"source_key",
}

// LedgerRow is one downloaded file. Multi-valued cells (hashes, ids, names)
// hold a comma-separated list for compatibility with older ledgers.
type LedgerRow struct {
	ID string // UUID, storage identity only

	Subject  string
	EmailID  string
	ThreadID string
	Sender   string

	FirstInboxMsg      string // original Date header of the first message in the thread
	LastCheckDate      string
	DownloadDate       string
	DuplicateCheckDate string

	CountDownload     int
	ListNameCount     string
	AttachmentNames   string // stored filename after collision resolution
	FilePaths         string
	OriginalFilenames string // filename as sent
	ResPath           string

	MessageHash   string
	FileHashes    string
	UniqueFileIDs string

	ProcessStatus   string
	Classification  string
	DuplicateStatus string
	Markdown        string // '' or "completed"
	JSON            string // '' or "completed"
	ResStatus       string

	SourceKey string // stored filename without extension
}

// Legacy reports whether the row predates single-valued cells. Legacy rows
// may hold comma-separated lists in their name, path, hash and id cells.
func (r *LedgerRow) Legacy() bool {
	return r.SourceKey == ""
}

// Has reports whether value is recorded in cell, one of the row's own cells.
// Cells of current rows are compared whole, so names may contain commas.
func (r *LedgerRow) Has(cell, value string) bool {
	if value == "" {
		return false
	}
	if !r.Legacy() {
		return strings.TrimSpace(cell) == value
	}
	return CellContains(cell, value)
}

// StageValue returns the completion flag for the named stage column.
func (r *LedgerRow) StageValue(column string) string {
	switch column {
	case "markdown":
		return r.Markdown
	case "json":
		return r.JSON
	}
	return ""
}

// SetStageValue sets the completion flag for the named stage column.
func (r *LedgerRow) SetStageValue(column, value string) {
	switch column {
	case "markdown":
		r.Markdown = value
	case "json":
		r.JSON = value
	}
}

// Table is the in-memory ledger. Version is the persisted version the rows
// were loaded at and is checked on save.
type Table struct {
	Rows    []LedgerRow
	Version int64
}

// NewTable returns an empty table at version 0.
func NewTable() *Table {
	return &Table{}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool {
	return len(t.Rows) == 0
}

// Append adds a row at the end of the table.
func (t *Table) Append(row LedgerRow) {
	t.Rows = append(t.Rows, row)
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	rows := make([]LedgerRow, len(t.Rows))
	copy(rows, t.Rows)
	return &Table{Rows: rows, Version: t.Version}
}

// SplitCell splits a multi-valued cell into its trimmed, non-empty items.
func SplitCell(cell string) []string {
	if strings.TrimSpace(cell) == "" {
		return nil
	}
	parts := strings.Split(cell, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// CellContains reports whether value is the cell or, for legacy cells holding
// a comma-separated list, one of its items. Values may contain commas.
func CellContains(cell, value string) bool {
	if value == "" {
		return false
	}
	if strings.TrimSpace(cell) == value {
		return true
	}
	if strings.Contains(value, ",") {
		return containsListed(cell, value)
	}
	for _, item := range SplitCell(cell) {
		if item == value {
			return true
		}
	}
	return false
}

// containsListed matches a value with commas against the ", "-joined items of a legacy list cell.
func containsListed(cell, value string) bool {
	items := strings.Split(cell, ",")
	parts := len(strings.Split(value, ","))
	for i := 0; i+parts <= len(items); i++ {
		if strings.TrimSpace(strings.Join(items[i:i+parts], ",")) == value {
			return true
		}
	}
	return false
}

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.Format(TimeLayout)
}

// ParseTime parses a timestamp cell written with TimeLayout or RFC3339.
func ParseTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(TimeLayout, s, time.Local)
	if err != nil {
		return time.Parse(time.RFC3339, s)
	}
	return t, nil
}
