package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"ledgermatch/internal/models"
	"ledgermatch/internal/storage"
)

const bookColumns = `id, side, account_id, vendor, amount, txn_date, description,
	category, status, document_id, manually_verified, created_at`

const lineColumns = `id, account_id, posted_date, description, amount, direction,
	matched, document_id, created_at`

func (s *DB) CreateBookTransaction(ctx context.Context, txn *models.BookTransaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO book_transactions (`+bookColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		txn.ID, string(txn.Side), txn.AccountID, txn.Vendor, formatAmount(txn.Amount),
		formatTime(txn.Date), txn.Description, txn.Category, string(txn.Status),
		txn.DocumentID, boolToInt(txn.ManuallyVerified), formatTime(txn.CreatedAt))
	return wrapErr("create book transaction", err)
}

func (s *DB) CreateStatementLine(ctx context.Context, line *models.StatementTransaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO statement_lines (`+lineColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		line.ID, line.AccountID, formatTime(line.PostedDate), line.Description,
		formatAmount(line.Amount), string(line.Direction), boolToInt(line.Matched),
		line.DocumentID, formatTime(line.CreatedAt))
	return wrapErr("create statement line", err)
}

func (s *DB) GetBookTransaction(ctx context.Context, id string) (*models.BookTransaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+bookColumns+` FROM book_transactions WHERE id = ?`, id)
	txn, err := scanBookTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, wrapErr("get book transaction", err)
	}
	return txn, nil
}

func (s *DB) GetStatementLine(ctx context.Context, id string) (*models.StatementTransaction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+lineColumns+` FROM statement_lines WHERE id = ?`, id)
	line, err := scanStatementLine(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, wrapErr("get statement line", err)
	}
	return line, nil
}

func (s *DB) ListUnmatchedLines(ctx context.Context, accountID string, from, to time.Time) ([]*models.StatementTransaction, error) {
	return s.queryLines(ctx, `matched = 0`, accountID, from, to)
}

func (s *DB) ListStatementLines(ctx context.Context, accountID string, from, to time.Time) ([]*models.StatementTransaction, error) {
	return s.queryLines(ctx, `1 = 1`, accountID, from, to)
}

func (s *DB) ListUnreconciledTransactions(ctx context.Context, accountID string, from, to time.Time) ([]*models.BookTransaction, error) {
	return s.queryBookTxns(ctx, `status = 'unreconciled'`, accountID, from, to)
}

func (s *DB) ListBookTransactions(ctx context.Context, accountID string, from, to time.Time) ([]*models.BookTransaction, error) {
	return s.queryBookTxns(ctx, `1 = 1`, accountID, from, to)
}

func (s *DB) queryLines(ctx context.Context, where, accountID string, from, to time.Time) ([]*models.StatementTransaction, error) {
	query := `SELECT ` + lineColumns + ` FROM statement_lines WHERE ` + where
	args := []interface{}{}
	if accountID != "" {
		query += ` AND account_id = ?`
		args = append(args, accountID)
	}
	if !from.IsZero() {
		query += ` AND posted_date >= ?`
		args = append(args, formatTime(from))
	}
	if !to.IsZero() {
		query += ` AND posted_date <= ?`
		args = append(args, formatTime(to))
	}
	query += ` ORDER BY posted_date, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list statement lines", err)
	}
	defer rows.Close()

	var lines []*models.StatementTransaction
	for rows.Next() {
		line, err := scanStatementLine(rows)
		if err != nil {
			return nil, wrapErr("list statement lines", err)
		}
		lines = append(lines, line)
	}
	return lines, wrapErr("list statement lines", rows.Err())
}

func (s *DB) queryBookTxns(ctx context.Context, where, accountID string, from, to time.Time) ([]*models.BookTransaction, error) {
	query := `SELECT ` + bookColumns + ` FROM book_transactions WHERE ` + where
	args := []interface{}{}
	if accountID != "" {
		query += ` AND account_id = ?`
		args = append(args, accountID)
	}
	if !from.IsZero() {
		query += ` AND txn_date >= ?`
		args = append(args, formatTime(from))
	}
	if !to.IsZero() {
		query += ` AND txn_date <= ?`
		args = append(args, formatTime(to))
	}
	query += ` ORDER BY txn_date, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list book transactions", err)
	}
	defer rows.Close()

	var txns []*models.BookTransaction
	for rows.Next() {
		txn, err := scanBookTransaction(rows)
		if err != nil {
			return nil, wrapErr("list book transactions", err)
		}
		txns = append(txns, txn)
	}
	return txns, wrapErr("list book transactions", rows.Err())
}

func scanBookTransaction(row scanner) (*models.BookTransaction, error) {
	txn := &models.BookTransaction{}
	var side, amount, txnDate, status, createdAt string
	var verified int

	err := row.Scan(&txn.ID, &side, &txn.AccountID, &txn.Vendor, &amount, &txnDate,
		&txn.Description, &txn.Category, &status, &txn.DocumentID, &verified, &createdAt)
	if err != nil {
		return nil, err
	}

	txn.Side = models.TransactionSide(side)
	txn.Amount = parseAmount(amount)
	txn.Date = parseTime(txnDate)
	txn.Status = models.ReconciliationStatus(status)
	txn.ManuallyVerified = verified == 1
	txn.CreatedAt = parseTime(createdAt)
	return txn, nil
}

func scanStatementLine(row scanner) (*models.StatementTransaction, error) {
	line := &models.StatementTransaction{}
	var postedDate, amount, direction, createdAt string
	var matched int

	err := row.Scan(&line.ID, &line.AccountID, &postedDate, &line.Description,
		&amount, &direction, &matched, &line.DocumentID, &createdAt)
	if err != nil {
		return nil, err
	}

	line.PostedDate = parseTime(postedDate)
	line.Amount = parseAmount(amount)
	line.Direction = models.Direction(direction)
	line.Matched = matched == 1
	line.CreatedAt = parseTime(createdAt)
	return line, nil
}
