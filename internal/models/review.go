package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReviewStatus tracks a review item through adjudication.
type ReviewStatus string

const (
	ReviewPending   ReviewStatus = "pending"
	ReviewConfirmed ReviewStatus = "confirmed"
	ReviewRejected  ReviewStatus = "rejected"
)

// Suggestion is one proposed match for a statement line, produced by a
// matching strategy that was not confident enough to commit on its own.
type Suggestion struct {
	TransactionID    string          `json:"transaction_id"`
	Side             TransactionSide `json:"side"`
	Strategy         MatchType       `json:"strategy"`
	Confidence       float64         `json:"confidence"`
	AmountDifference decimal.Decimal `json:"amount_difference"`
	Description      string          `json:"description,omitempty"`
}

// ReviewItem is one statement line awaiting human adjudication, with its
// candidate matches ranked by confidence. A line has at most one pending
// item; re-running the matcher refreshes the suggestions instead of
// stacking new items.
type ReviewItem struct {
	ID          string       `json:"id"`
	LineID      string       `json:"line_id"`
	AccountID   string       `json:"account_id"`
	Reason      string       `json:"reason"`
	Suggestions []Suggestion `json:"suggestions,omitempty"`
	Status      ReviewStatus `json:"status"`
	ResolvedBy  string       `json:"resolved_by,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	ResolvedAt  *time.Time   `json:"resolved_at,omitempty"`
}

// TopSuggestion returns the highest-confidence suggestion, if any.
func (r *ReviewItem) TopSuggestion() (Suggestion, bool) {
	if len(r.Suggestions) == 0 {
		return Suggestion{}, false
	}
	return r.Suggestions[0], true
}

// SuggestionFor returns the suggestion targeting the given transaction.
func (r *ReviewItem) SuggestionFor(txnID string) (Suggestion, bool) {
	for _, s := range r.Suggestions {
		if s.TransactionID == txnID {
			return s, true
		}
	}
	return Suggestion{}, false
}
