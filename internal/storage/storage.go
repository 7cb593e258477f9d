// Package storage defines the persistence contract the pipeline, matcher,
// review queue and audit ledger are written against. The sqlite subpackage
// provides the embedded production implementation; MemoryStore backs tests.
package storage

import (
	"context"
	"errors"
	"time"

	"ledgermatch/internal/models"
)

// ErrNotFound is returned by Get-style lookups for unknown identifiers.
// Maybe-style lookups (fingerprints, active records) return nil instead.
var ErrNotFound = errors.New("not found")

// ReviewFilter narrows ListReviewItems.
type ReviewFilter struct {
	AccountID     string
	Status        models.ReviewStatus
	From, To      time.Time
	MinConfidence float64
}

// Store is the full persistence surface. A reconciliation commit mutates
// both transaction sides and creates the record in one atomic step; every
// implementation must uphold that or the matched-flag invariants fall apart.
type Store interface {
	// Documents.
	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocument(ctx context.Context, id string) (*models.Document, error)
	UpdateDocument(ctx context.Context, doc *models.Document) error
	// ClaimDocument atomically moves a pending document to processing.
	// Returns false when another worker already holds it.
	ClaimDocument(ctx context.Context, id string) (bool, error)
	ListDocumentsByStatus(ctx context.Context, status models.DocumentStatus, limit int) ([]*models.Document, error)

	// Fingerprints for duplicate detection.
	RecordFingerprint(ctx context.Context, fingerprint, documentID string, txnDate time.Time) error
	// LookupFingerprint returns the retaining document ID, or "" when the
	// fingerprint is unseen since the given time.
	LookupFingerprint(ctx context.Context, fingerprint string, since time.Time) (string, error)

	// Accounts.
	UpsertAccount(ctx context.Context, account *models.PaymentAccount) error
	GetAccount(ctx context.Context, id string) (*models.PaymentAccount, error)
	ListAccounts(ctx context.Context) ([]*models.PaymentAccount, error)

	// Transactions.
	CreateBookTransaction(ctx context.Context, txn *models.BookTransaction) error
	CreateStatementLine(ctx context.Context, line *models.StatementTransaction) error
	GetBookTransaction(ctx context.Context, id string) (*models.BookTransaction, error)
	GetStatementLine(ctx context.Context, id string) (*models.StatementTransaction, error)
	ListUnmatchedLines(ctx context.Context, accountID string, from, to time.Time) ([]*models.StatementTransaction, error)
	ListUnreconciledTransactions(ctx context.Context, accountID string, from, to time.Time) ([]*models.BookTransaction, error)
	ListStatementLines(ctx context.Context, accountID string, from, to time.Time) ([]*models.StatementTransaction, error)
	ListBookTransactions(ctx context.Context, accountID string, from, to time.Time) ([]*models.BookTransaction, error)

	// Reconciliation. CommitMatch fails with ReconciliationConflictError
	// when either side already carries an active record.
	CommitMatch(ctx context.Context, record *models.ReconciliationRecord) error
	VoidRecord(ctx context.Context, recordID, reason string) error
	ActiveRecordForLine(ctx context.Context, lineID string) (*models.ReconciliationRecord, error)
	ActiveRecordForTransaction(ctx context.Context, txnID string) (*models.ReconciliationRecord, error)
	ListRecords(ctx context.Context, includeVoided bool) ([]*models.ReconciliationRecord, error)

	// Review items.
	CreateReviewItem(ctx context.Context, item *models.ReviewItem) error
	GetReviewItem(ctx context.Context, id string) (*models.ReviewItem, error)
	UpdateReviewItem(ctx context.Context, item *models.ReviewItem) error
	ListReviewItems(ctx context.Context, filter ReviewFilter) ([]*models.ReviewItem, error)
	PendingReviewItemForLine(ctx context.Context, lineID string) (*models.ReviewItem, error)

	// Audit ledger. AppendAuditEvent assigns the sequence number.
	AppendAuditEvent(ctx context.Context, event *models.AuditEvent) error
	ListAuditEvents(ctx context.Context, fromSeq int64) ([]*models.AuditEvent, error)

	// Monthly summaries.
	UpsertMonthlySummary(ctx context.Context, summary *models.MonthlySummary) error
	GetMonthlySummary(ctx context.Context, year int, month time.Month) (*models.MonthlySummary, error)

	Close() error
}
