// Package sqlite implements storage.Store on an embedded SQLite database
// (pure-Go modernc driver). One file, WAL mode, and every reconciliation
// commit in a single transaction.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite" // database/sql driver

	"ledgermatch/internal/logging"
	"ledgermatch/internal/reconerror"
	"ledgermatch/internal/storage"
)

const timeLayout = time.RFC3339Nano

// DB implements storage.Store.
type DB struct {
	db     *sql.DB
	logger logging.Logger
}

var _ storage.Store = (*DB)(nil)

// Open opens (creating if needed) the database at path and applies the
// schema migrations.
func Open(path string, logger logging.Logger) (*DB, error) {
	if logger == nil {
		logger = logging.GetLogger()
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY
	// churn between pool connections under concurrent workers.
	db.SetMaxOpenConns(1)

	s := &DB{db: db, logger: logger.WithField("component", "sqlite.DB")}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *DB) Close() error {
	return s.db.Close()
}

// migrations returns the schema statements. Each string is one SQL
// statement; SQLite executes them one at a time.
func migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id                TEXT PRIMARY KEY,
			declared_type     TEXT NOT NULL DEFAULT '',
			detected_type     TEXT NOT NULL DEFAULT '',
			status            TEXT NOT NULL,
			source_name       TEXT NOT NULL DEFAULT '',
			blob_ref          TEXT NOT NULL DEFAULT '',
			checksum          TEXT NOT NULL DEFAULT '',
			confidence        REAL NOT NULL DEFAULT 0,
			fields            TEXT NOT NULL DEFAULT '{}',
			review_reason     TEXT NOT NULL DEFAULT '',
			failure_info      TEXT NOT NULL DEFAULT '',
			manually_verified INTEGER NOT NULL DEFAULT 0,
			retry_count       INTEGER NOT NULL DEFAULT 0,
			created_at        TEXT NOT NULL,
			updated_at        TEXT NOT NULL,
			processed_at      TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status)`,

		`CREATE TABLE IF NOT EXISTS fingerprints (
			fingerprint TEXT PRIMARY KEY,
			document_id TEXT NOT NULL,
			txn_date    TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS accounts (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			kind       TEXT NOT NULL,
			last_four  TEXT NOT NULL DEFAULT '',
			active     INTEGER NOT NULL DEFAULT 1,
			created_at TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS book_transactions (
			id                TEXT PRIMARY KEY,
			side              TEXT NOT NULL,
			account_id        TEXT NOT NULL,
			vendor            TEXT NOT NULL DEFAULT '',
			amount            TEXT NOT NULL,
			txn_date          TEXT NOT NULL,
			description       TEXT NOT NULL DEFAULT '',
			category          TEXT NOT NULL DEFAULT '',
			status            TEXT NOT NULL,
			document_id       TEXT NOT NULL DEFAULT '',
			manually_verified INTEGER NOT NULL DEFAULT 0,
			created_at        TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_book_account_date ON book_transactions(account_id, txn_date)`,
		`CREATE INDEX IF NOT EXISTS idx_book_status ON book_transactions(status)`,

		`CREATE TABLE IF NOT EXISTS statement_lines (
			id          TEXT PRIMARY KEY,
			account_id  TEXT NOT NULL,
			posted_date TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			amount      TEXT NOT NULL,
			direction   TEXT NOT NULL,
			matched     INTEGER NOT NULL DEFAULT 0,
			document_id TEXT NOT NULL DEFAULT '',
			created_at  TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_lines_account_date ON statement_lines(account_id, posted_date)`,
		`CREATE INDEX IF NOT EXISTS idx_lines_matched ON statement_lines(matched)`,

		`CREATE TABLE IF NOT EXISTS reconciliation_records (
			id                TEXT PRIMARY KEY,
			statement_line_id TEXT NOT NULL,
			transaction_id    TEXT NOT NULL,
			transaction_side  TEXT NOT NULL,
			match_type        TEXT NOT NULL,
			confidence        REAL NOT NULL,
			amount_difference TEXT NOT NULL DEFAULT '0.00',
			status            TEXT NOT NULL,
			created_by        TEXT NOT NULL DEFAULT '',
			notes             TEXT NOT NULL DEFAULT '',
			created_at        TEXT NOT NULL,
			voided_at         TEXT,
			void_reason       TEXT NOT NULL DEFAULT ''
		)`,
		// Partial unique indexes enforce the one-active-record invariant at
		// the storage layer, not just in application checks.
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_active_record_line
			ON reconciliation_records(statement_line_id) WHERE status = 'active'`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_active_record_txn
			ON reconciliation_records(transaction_id) WHERE status = 'active'`,

		`CREATE TABLE IF NOT EXISTS review_items (
			id          TEXT PRIMARY KEY,
			line_id     TEXT NOT NULL,
			account_id  TEXT NOT NULL DEFAULT '',
			reason      TEXT NOT NULL DEFAULT '',
			suggestions TEXT NOT NULL DEFAULT '[]',
			status      TEXT NOT NULL,
			resolved_by TEXT NOT NULL DEFAULT '',
			created_at  TEXT NOT NULL,
			resolved_at TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_review_status ON review_items(status)`,
		`CREATE INDEX IF NOT EXISTS idx_review_line ON review_items(line_id)`,

		`CREATE TABLE IF NOT EXISTS audit_events (
			seq            INTEGER PRIMARY KEY AUTOINCREMENT,
			type           TEXT NOT NULL,
			actor          TEXT NOT NULL DEFAULT '',
			document_id    TEXT NOT NULL DEFAULT '',
			line_id        TEXT NOT NULL DEFAULT '',
			transaction_id TEXT NOT NULL DEFAULT '',
			record_id      TEXT NOT NULL DEFAULT '',
			payload        TEXT NOT NULL DEFAULT '{}',
			created_at     TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS monthly_summaries (
			period       TEXT PRIMARY KEY,
			year         INTEGER NOT NULL,
			month        INTEGER NOT NULL,
			summary      TEXT NOT NULL,
			generated_at TEXT NOT NULL
		)`,
	}
}

func (s *DB) migrate() error {
	for _, stmt := range migrations() {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("applying migration: %w", err)
		}
	}
	return nil
}

// wrapErr classifies storage failures. Lock contention is transient and
// retryable; everything else passes through.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	if strings.Contains(msg, "locked") || strings.Contains(msg, "busy") {
		return &reconerror.TransientStorageError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// inTx runs fn inside a transaction, rolling back on error.
func (s *DB) inTx(ctx context.Context, op string, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapErr(op, err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return wrapErr(op, err)
	}
	return nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTimePtr(s sql.NullString) *time.Time {
	if !s.Valid || s.String == "" {
		return nil
	}
	t := parseTime(s.String)
	return &t
}

func formatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func parseAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
