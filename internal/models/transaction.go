// Package models provides the data structures used throughout the application.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BookTransaction is a candidate transaction the pipeline derived from a
// document: an outgoing payment (invoice, check) or incoming revenue (sales
// report, deposit). Amounts are positive magnitudes canonicalized to two
// decimal places; Side carries the sign.
type BookTransaction struct {
	ID               string               `json:"id"`
	Side             TransactionSide      `json:"side"`
	AccountID        string               `json:"account_id"`
	Vendor           string               `json:"vendor,omitempty"`
	Amount           decimal.Decimal      `json:"amount"`
	Date             time.Time            `json:"date"`
	Description      string               `json:"description"`
	Category         string               `json:"category,omitempty"`
	Status           ReconciliationStatus `json:"status"`
	DocumentID       string               `json:"document_id,omitempty"`
	ManuallyVerified bool                 `json:"manually_verified"`
	CreatedAt        time.Time            `json:"created_at"`
}

// MatchesDirection reports whether this transaction can reconcile against a
// statement line of the given direction: outgoing money appears as a debit,
// incoming money as a credit.
func (t *BookTransaction) MatchesDirection(d Direction) bool {
	switch t.Side {
	case SideOutgoing:
		return d == DirectionDebit
	case SideIncoming:
		return d == DirectionCredit
	}
	return false
}

// Unreconciled reports whether the transaction is still in the matching pool.
func (t *BookTransaction) Unreconciled() bool {
	return t.Status == ReconUnreconciled
}

// StatementTransaction is one line from a bank or card statement. Lines are
// never mutated after ingest; only the Matched flag moves, and only through
// reconciliation commits.
type StatementTransaction struct {
	ID          string          `json:"id"`
	AccountID   string          `json:"account_id"`
	PostedDate  time.Time       `json:"posted_date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Direction   Direction       `json:"direction"`
	Matched     bool            `json:"matched"`
	DocumentID  string          `json:"document_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// IsDebit reports whether the line is money leaving the account.
func (s *StatementTransaction) IsDebit() bool {
	return s.Direction == DirectionDebit
}

// IsCredit reports whether the line is money entering the account.
func (s *StatementTransaction) IsCredit() bool {
	return s.Direction == DirectionCredit
}
