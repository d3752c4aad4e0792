package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"docflow/internal/contextutil"
)

// New opens the SQLite ledger database at the given path.
// Writers wait on a busy database instead of failing and every transaction
// takes the write lock up front.
func New(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// columnDDL returns the column definition used when creating or repairing a column.
func columnDDL(name string) string {
	if name == "count_download" {
		return name + " INTEGER NOT NULL DEFAULT 1"
	}
	return name + " TEXT NOT NULL DEFAULT ''"
}

// Migrate creates the ledger tables and repairs schema drift by adding any
// missing columns. It is idempotent and can be run multiple times safely.
func Migrate(ctx context.Context, db *sql.DB) error {
	logger := contextutil.LoggerFromContext(ctx)

	ledgerDDL := "CREATE TABLE IF NOT EXISTS ledger (\n\tid TEXT PRIMARY KEY"
	for _, col := range Columns {
		ledgerDDL += ",\n\t" + columnDDL(col)
	}
	ledgerDDL += "\n);"

	schema := []string{
		ledgerDDL,
		`CREATE TABLE IF NOT EXISTS ledger_meta (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			version INTEGER NOT NULL DEFAULT 0
		);`,
		`INSERT OR IGNORE INTO ledger_meta (id, version) VALUES (1, 0);`,
	}

	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}

	added, err := ensureColumns(ctx, db)
	if err != nil {
		return err
	}
	if len(added) > 0 {
		logger.InfoContext(ctx, "ledger schema repaired", "added_columns", added)
	}

	if _, err := db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_ledger_thread_id ON ledger(thread_id);"); err != nil {
		return err
	}

	// Legacy ledgers may already hold duplicate ids; the dedupe sweep cleans those up.
	if _, err := db.ExecContext(ctx,
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_ledger_unique_file_id ON ledger(unique_file_ids) WHERE unique_file_ids <> '';",
	); err != nil {
		logger.WarnContext(ctx, "unique file id index not created, run dedupe to clean the ledger", "error", err)
	}

	return nil
}

// ensureColumns adds every ledger column missing from an existing table.
func ensureColumns(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, "PRAGMA table_info(ledger)")
	if err != nil {
		return nil, fmt.Errorf("failed to read ledger schema: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	present := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("failed to scan ledger schema: %w", err)
		}
		present[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	_ = rows.Close()

	var added []string
	wanted := append([]string{"id"}, Columns...)
	for _, col := range wanted {
		if present[col] {
			continue
		}
		if _, err := db.ExecContext(ctx, "ALTER TABLE ledger ADD COLUMN "+columnDDL(col)); err != nil {
			return added, fmt.Errorf("failed to add column %s: %w", col, err)
		}
		added = append(added, col)
	}
	return added, nil
}
