package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ReconciliationRecord links one statement line to one book transaction.
// At most one ACTIVE record may exist per statement line and per book
// transaction; relinking voids the old record rather than deleting it.
type ReconciliationRecord struct {
	ID               string          `json:"id"`
	StatementLineID  string          `json:"statement_line_id"`
	TransactionID    string          `json:"transaction_id"`
	TransactionSide  TransactionSide `json:"transaction_side"`
	MatchType        MatchType       `json:"match_type"`
	Confidence       float64         `json:"confidence"`
	AmountDifference decimal.Decimal `json:"amount_difference"`
	Status           RecordStatus    `json:"status"`
	CreatedBy        string          `json:"created_by"`
	Notes            string          `json:"notes,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	VoidedAt         *time.Time      `json:"voided_at,omitempty"`
	VoidReason       string          `json:"void_reason,omitempty"`
}

// NewReconciliationRecord builds an active record with a fresh ID. The amount
// difference is stored as an absolute value at two decimals.
func NewReconciliationRecord(line *StatementTransaction, txn *BookTransaction, matchType MatchType, confidence float64, createdBy string) *ReconciliationRecord {
	diff := line.Amount.Sub(txn.Amount).Abs().Round(2)
	return &ReconciliationRecord{
		ID:               uuid.New().String(),
		StatementLineID:  line.ID,
		TransactionID:    txn.ID,
		TransactionSide:  txn.Side,
		MatchType:        matchType,
		Confidence:       confidence,
		AmountDifference: diff,
		Status:           RecordActive,
		CreatedBy:        createdBy,
		CreatedAt:        time.Now().UTC(),
	}
}

// Active reports whether the record currently binds its pair.
func (r *ReconciliationRecord) Active() bool {
	return r.Status == RecordActive
}

// Void marks the record voided with a reason. Idempotent.
func (r *ReconciliationRecord) Void(reason string) {
	if r.Status == RecordVoid {
		return
	}
	now := time.Now().UTC()
	r.Status = RecordVoid
	r.VoidedAt = &now
	r.VoidReason = reason
}
