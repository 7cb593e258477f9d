package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"ledgermatch/internal/models"
	"ledgermatch/internal/storage"
)

const documentColumns = `id, declared_type, detected_type, status, source_name, blob_ref,
	checksum, confidence, fields, review_reason, failure_info, manually_verified,
	retry_count, created_at, updated_at, processed_at`

func (s *DB) CreateDocument(ctx context.Context, doc *models.Document) error {
	fields, err := json.Marshal(doc.Fields)
	if err != nil {
		return wrapErr("create document", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, string(doc.DeclaredType), string(doc.DetectedType), string(doc.Status),
		doc.SourceName, doc.BlobRef, doc.Checksum, doc.Confidence, string(fields),
		doc.ReviewReason, doc.FailureInfo, boolToInt(doc.ManuallyVerified),
		doc.RetryCount, formatTime(doc.CreatedAt), formatTime(doc.UpdatedAt),
		formatTimePtr(doc.ProcessedAt))
	return wrapErr("create document", err)
}

func (s *DB) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, wrapErr("get document", err)
	}
	return doc, nil
}

func (s *DB) UpdateDocument(ctx context.Context, doc *models.Document) error {
	fields, err := json.Marshal(doc.Fields)
	if err != nil {
		return wrapErr("update document", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents SET
			declared_type = ?, detected_type = ?, status = ?, source_name = ?,
			blob_ref = ?, checksum = ?, confidence = ?, fields = ?,
			review_reason = ?, failure_info = ?, manually_verified = ?,
			retry_count = ?, updated_at = ?, processed_at = ?
		WHERE id = ?`,
		string(doc.DeclaredType), string(doc.DetectedType), string(doc.Status),
		doc.SourceName, doc.BlobRef, doc.Checksum, doc.Confidence, string(fields),
		doc.ReviewReason, doc.FailureInfo, boolToInt(doc.ManuallyVerified),
		doc.RetryCount, formatTime(time.Now()), formatTimePtr(doc.ProcessedAt),
		doc.ID)
	if err != nil {
		return wrapErr("update document", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ClaimDocument is the atomic pending->processing transition. The WHERE
// clause on status makes the claim a compare-and-set; a second worker's
// update matches zero rows.
func (s *DB) ClaimDocument(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE documents SET status = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		string(models.DocStatusProcessing), formatTime(time.Now()),
		id, string(models.DocStatusPending))
	if err != nil {
		return false, wrapErr("claim document", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, wrapErr("claim document", err)
	}
	return n == 1, nil
}

func (s *DB) ListDocumentsByStatus(ctx context.Context, status models.DocumentStatus, limit int) ([]*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE status = ? ORDER BY created_at`
	args := []interface{}{string(status)}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list documents", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, wrapErr("list documents", err)
		}
		docs = append(docs, doc)
	}
	return docs, wrapErr("list documents", rows.Err())
}

func (s *DB) RecordFingerprint(ctx context.Context, fingerprint, documentID string, txnDate time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fingerprints (fingerprint, document_id, txn_date)
		VALUES (?, ?, ?)
		ON CONFLICT(fingerprint) DO NOTHING`,
		fingerprint, documentID, formatTime(txnDate))
	return wrapErr("record fingerprint", err)
}

func (s *DB) LookupFingerprint(ctx context.Context, fingerprint string, since time.Time) (string, error) {
	var documentID string
	err := s.db.QueryRowContext(ctx, `
		SELECT document_id FROM fingerprints
		WHERE fingerprint = ? AND txn_date >= ?`,
		fingerprint, formatTime(since)).Scan(&documentID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", wrapErr("lookup fingerprint", err)
	}
	return documentID, nil
}

func (s *DB) UpsertAccount(ctx context.Context, account *models.PaymentAccount) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, name, kind, last_four, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, kind = excluded.kind,
			last_four = excluded.last_four, active = excluded.active`,
		account.ID, account.Name, string(account.Kind), account.LastFour,
		boolToInt(account.Active), formatTime(account.CreatedAt))
	return wrapErr("upsert account", err)
}

func (s *DB) GetAccount(ctx context.Context, id string) (*models.PaymentAccount, error) {
	account := &models.PaymentAccount{}
	var kind, createdAt string
	var active int
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, kind, last_four, active, created_at FROM accounts WHERE id = ?`, id).
		Scan(&account.ID, &account.Name, &kind, &account.LastFour, &active, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, wrapErr("get account", err)
	}
	account.Kind = models.AccountKind(kind)
	account.Active = active == 1
	account.CreatedAt = parseTime(createdAt)
	return account, nil
}

func (s *DB) ListAccounts(ctx context.Context) ([]*models.PaymentAccount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, kind, last_four, active, created_at FROM accounts ORDER BY id`)
	if err != nil {
		return nil, wrapErr("list accounts", err)
	}
	defer rows.Close()

	var accounts []*models.PaymentAccount
	for rows.Next() {
		account := &models.PaymentAccount{}
		var kind, createdAt string
		var active int
		if err := rows.Scan(&account.ID, &account.Name, &kind, &account.LastFour, &active, &createdAt); err != nil {
			return nil, wrapErr("list accounts", err)
		}
		account.Kind = models.AccountKind(kind)
		account.Active = active == 1
		account.CreatedAt = parseTime(createdAt)
		accounts = append(accounts, account)
	}
	return accounts, wrapErr("list accounts", rows.Err())
}

// scanner abstracts sql.Row and sql.Rows for the shared scan helpers.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row scanner) (*models.Document, error) {
	doc := &models.Document{}
	var declared, detected, status, fields, createdAt, updatedAt string
	var verified int
	var processedAt sql.NullString

	err := row.Scan(&doc.ID, &declared, &detected, &status, &doc.SourceName,
		&doc.BlobRef, &doc.Checksum, &doc.Confidence, &fields, &doc.ReviewReason,
		&doc.FailureInfo, &verified, &doc.RetryCount, &createdAt, &updatedAt, &processedAt)
	if err != nil {
		return nil, err
	}

	doc.DeclaredType = models.DocumentType(declared)
	doc.DetectedType = models.DocumentType(detected)
	doc.Status = models.DocumentStatus(status)
	doc.ManuallyVerified = verified == 1
	doc.CreatedAt = parseTime(createdAt)
	doc.UpdatedAt = parseTime(updatedAt)
	doc.ProcessedAt = parseTimePtr(processedAt)
	if err := json.Unmarshal([]byte(fields), &doc.Fields); err != nil {
		doc.Fields = nil
	}
	return doc, nil
}
