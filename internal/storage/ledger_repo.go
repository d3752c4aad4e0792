package storage

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_ledger_store.go -package=mocks docflow/internal/storage LedgerStore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

var (
	// ErrLedgerUnavailable is returned when the ledger exists but cannot be read.
	ErrLedgerUnavailable = errors.New("ledger unavailable")
	// ErrVersionConflict is returned when the ledger changed since it was loaded.
	ErrVersionConflict = errors.New("ledger modified since load")
)

// LedgerStore defines the persistence operations on the ledger.
// The ledger is read whole, mutated in memory and written back whole.
type LedgerStore interface {
	// Load returns the full ledger. A missing or empty ledger is an empty table.
	Load(ctx context.Context) (*Table, error)
	// Save replaces the persisted ledger with t.
	// Returns ErrVersionConflict if the ledger was saved by someone else since t was loaded.
	Save(ctx context.Context, t *Table) error
}

// LedgerRepo stores the ledger in SQLite.
// It implements the LedgerStore interface.
type LedgerRepo struct {
	db *sql.DB
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(db *sql.DB) *LedgerRepo {
	return &LedgerRepo{db: db}
}

// Initialize creates the ledger schema if it does not exist.
func (r *LedgerRepo) Initialize(ctx context.Context) error {
	return Migrate(ctx, r.db)
}

// Load reads every ledger row in insertion order.
func (r *LedgerRepo) Load(ctx context.Context) (*Table, error) {
	if err := Migrate(ctx, r.db); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLedgerUnavailable, err)
	}

	t := NewTable()
	if err := r.db.QueryRowContext(ctx, "SELECT version FROM ledger_meta WHERE id = 1").Scan(&t.Version); err != nil {
		return nil, fmt.Errorf("%w: failed to read ledger version: %w", ErrLedgerUnavailable, err)
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT id, "+strings.Join(Columns, ", ")+" FROM ledger ORDER BY rowid",
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query ledger: %w", ErrLedgerUnavailable, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLedgerUnavailable, err)
		}
		if row.ID == "" {
			row.ID = uuid.New().String()
		}
		t.Append(row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to iterate ledger: %w", ErrLedgerUnavailable, err)
	}

	return t, nil
}

// Save writes t in a single transaction, replacing all persisted rows.
// On success t.Version is advanced to the new persisted version.
func (r *LedgerRepo) Save(ctx context.Context, t *Table) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var current int64
	if err := tx.QueryRowContext(ctx, "SELECT version FROM ledger_meta WHERE id = 1").Scan(&current); err != nil {
		return fmt.Errorf("failed to read ledger version: %w", err)
	}
	if current != t.Version {
		return fmt.Errorf("%w: loaded version %d, stored version %d", ErrVersionConflict, t.Version, current)
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM ledger"); err != nil {
		return fmt.Errorf("failed to clear ledger: %w", err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(Columns)+1), ", ")
	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO ledger (id, "+strings.Join(Columns, ", ")+") VALUES ("+placeholders+")",
	)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() {
		_ = stmt.Close()
	}()

	for i := range t.Rows {
		row := &t.Rows[i]
		if row.ID == "" {
			row.ID = uuid.New().String()
		}
		if _, err := stmt.ExecContext(ctx, rowValues(row)...); err != nil {
			return fmt.Errorf("failed to insert ledger row %d: %w", i, err)
		}
	}

	if _, err := tx.ExecContext(ctx, "UPDATE ledger_meta SET version = version + 1 WHERE id = 1"); err != nil {
		return fmt.Errorf("failed to bump ledger version: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ledger: %w", err)
	}
	t.Version = current + 1

	return nil
}

func rowValues(r *LedgerRow) []any {
	return []any{
		r.ID,
		r.Subject, r.EmailID, r.ThreadID, r.Sender,
		r.FirstInboxMsg, r.LastCheckDate, r.DownloadDate, r.DuplicateCheckDate,
		r.CountDownload, r.ListNameCount, r.AttachmentNames, r.FilePaths, r.OriginalFilenames, r.ResPath,
		r.MessageHash, r.FileHashes, r.UniqueFileIDs,
		r.ProcessStatus, r.Classification, r.DuplicateStatus, r.Markdown, r.JSON, r.ResStatus,
		r.SourceKey,
	}
}

// scanRow reads one row. Columns added to legacy ledgers may hold NULL, so
// every cell is scanned as a nullable string.
func scanRow(rows *sql.Rows) (LedgerRow, error) {
	cells := make([]sql.NullString, len(Columns)+1)
	dest := make([]any, len(cells))
	for i := range cells {
		dest[i] = &cells[i]
	}
	if err := rows.Scan(dest...); err != nil {
		return LedgerRow{}, fmt.Errorf("failed to scan ledger row: %w", err)
	}

	v := func(i int) string { return cells[i].String }

	row := LedgerRow{
		ID:                 v(0),
		Subject:            v(1),
		EmailID:            v(2),
		ThreadID:           v(3),
		Sender:             v(4),
		FirstInboxMsg:      v(5),
		LastCheckDate:      v(6),
		DownloadDate:       v(7),
		DuplicateCheckDate: v(8),
		ListNameCount:      v(10),
		AttachmentNames:    v(11),
		FilePaths:          v(12),
		OriginalFilenames:  v(13),
		ResPath:            v(14),
		MessageHash:        v(15),
		FileHashes:         v(16),
		UniqueFileIDs:      v(17),
		ProcessStatus:      v(18),
		Classification:     v(19),
		DuplicateStatus:    v(20),
		Markdown:           v(21),
		JSON:               v(22),
		ResStatus:          v(23),
		SourceKey:          v(24),
	}

	row.CountDownload = 1
	if s := strings.TrimSpace(v(9)); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			row.CountDownload = n
		} else if f, err := strconv.ParseFloat(s, 64); err == nil {
			row.CountDownload = int(f)
		}
	}

	return row, nil
}
