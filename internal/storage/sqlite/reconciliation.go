package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"ledgermatch/internal/models"
	"ledgermatch/internal/reconerror"
	"ledgermatch/internal/storage"
)

const recordColumns = `id, statement_line_id, transaction_id, transaction_side,
	match_type, confidence, amount_difference, status, created_by, notes,
	created_at, voided_at, void_reason`

// CommitMatch creates the record and flips both sides inside one transaction.
// The partial unique indexes back up the explicit conflict checks, so even a
// racing writer cannot slip a second active record past them.
func (s *DB) CommitMatch(ctx context.Context, record *models.ReconciliationRecord) error {
	return s.inTx(ctx, "commit match", func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM statement_lines WHERE id = ?`, record.StatementLineID).Scan(&exists)
		if err != nil {
			return wrapErr("commit match", err)
		}
		if exists == 0 {
			return storage.ErrNotFound
		}
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM book_transactions WHERE id = ?`, record.TransactionID).Scan(&exists)
		if err != nil {
			return wrapErr("commit match", err)
		}
		if exists == 0 {
			return storage.ErrNotFound
		}

		if err := s.checkNoActive(ctx, tx, `statement_line_id`, record.StatementLineID, record); err != nil {
			return err
		}
		if err := s.checkNoActive(ctx, tx, `transaction_id`, record.TransactionID, record); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO reconciliation_records (`+recordColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			record.ID, record.StatementLineID, record.TransactionID,
			string(record.TransactionSide), string(record.MatchType), record.Confidence,
			formatAmount(record.AmountDifference), string(record.Status), record.CreatedBy,
			record.Notes, formatTime(record.CreatedAt), formatTimePtr(record.VoidedAt),
			record.VoidReason)
		if err != nil {
			return wrapErr("commit match", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE statement_lines SET matched = 1 WHERE id = ?`, record.StatementLineID); err != nil {
			return wrapErr("commit match", err)
		}

		status := models.ReconMatched
		if record.MatchType == models.MatchManual {
			status = models.ReconManual
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE book_transactions SET status = ? WHERE id = ?`,
			string(status), record.TransactionID); err != nil {
			return wrapErr("commit match", err)
		}
		return nil
	})
}

func (s *DB) checkNoActive(ctx context.Context, tx *sql.Tx, column, id string, record *models.ReconciliationRecord) error {
	var existingID string
	err := tx.QueryRowContext(ctx,
		`SELECT id FROM reconciliation_records WHERE `+column+` = ? AND status = 'active'`,
		id).Scan(&existingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return wrapErr("commit match", err)
	}
	return &reconerror.ReconciliationConflictError{
		LineID:           record.StatementLineID,
		TransactionID:    record.TransactionID,
		ExistingRecordID: existingID,
	}
}

// VoidRecord voids the record and returns both sides to the matching pool.
// Voiding an already-void record is a no-op.
func (s *DB) VoidRecord(ctx context.Context, recordID, reason string) error {
	return s.inTx(ctx, "void record", func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx,
			`SELECT `+recordColumns+` FROM reconciliation_records WHERE id = ?`, recordID)
		record, err := scanRecord(row)
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ErrNotFound
		}
		if err != nil {
			return wrapErr("void record", err)
		}
		if !record.Active() {
			return nil
		}

		record.Void(reason)
		if _, err := tx.ExecContext(ctx, `
			UPDATE reconciliation_records
			SET status = ?, voided_at = ?, void_reason = ?
			WHERE id = ?`,
			string(record.Status), formatTimePtr(record.VoidedAt), record.VoidReason,
			recordID); err != nil {
			return wrapErr("void record", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE statement_lines SET matched = 0 WHERE id = ?`,
			record.StatementLineID); err != nil {
			return wrapErr("void record", err)
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE book_transactions SET status = ? WHERE id = ?`,
			string(models.ReconUnreconciled), record.TransactionID); err != nil {
			return wrapErr("void record", err)
		}
		return nil
	})
}

func (s *DB) ActiveRecordForLine(ctx context.Context, lineID string) (*models.ReconciliationRecord, error) {
	return s.activeRecord(ctx, `statement_line_id`, lineID)
}

func (s *DB) ActiveRecordForTransaction(ctx context.Context, txnID string) (*models.ReconciliationRecord, error) {
	return s.activeRecord(ctx, `transaction_id`, txnID)
}

func (s *DB) activeRecord(ctx context.Context, column, id string) (*models.ReconciliationRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM reconciliation_records
		WHERE `+column+` = ? AND status = 'active'`, id)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, wrapErr("active record", err)
	}
	return record, nil
}

func (s *DB) ListRecords(ctx context.Context, includeVoided bool) ([]*models.ReconciliationRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM reconciliation_records`
	if !includeVoided {
		query += ` WHERE status = 'active'`
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, wrapErr("list records", err)
	}
	defer rows.Close()

	var records []*models.ReconciliationRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, wrapErr("list records", err)
		}
		records = append(records, record)
	}
	return records, wrapErr("list records", rows.Err())
}

func scanRecord(row scanner) (*models.ReconciliationRecord, error) {
	record := &models.ReconciliationRecord{}
	var side, matchType, amountDiff, status, createdAt string
	var voidedAt sql.NullString

	err := row.Scan(&record.ID, &record.StatementLineID, &record.TransactionID,
		&side, &matchType, &record.Confidence, &amountDiff, &status,
		&record.CreatedBy, &record.Notes, &createdAt, &voidedAt, &record.VoidReason)
	if err != nil {
		return nil, err
	}

	record.TransactionSide = models.TransactionSide(side)
	record.MatchType = models.MatchType(matchType)
	record.AmountDifference = parseAmount(amountDiff)
	record.Status = models.RecordStatus(status)
	record.CreatedAt = parseTime(createdAt)
	record.VoidedAt = parseTimePtr(voidedAt)
	return record, nil
}
