package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionBuilder provides a fluent API for constructing book
// transactions. Setters short-circuit once an error is recorded, so a chain
// of calls surfaces exactly the first problem at Build.
type TransactionBuilder struct {
	tx  BookTransaction
	err error
}

// NewTransactionBuilder creates a builder with unreconciled status and the
// outgoing side preset.
func NewTransactionBuilder() *TransactionBuilder {
	return &TransactionBuilder{
		tx: BookTransaction{
			Side:   SideOutgoing,
			Status: ReconUnreconciled,
			Amount: decimal.Zero,
		},
	}
}

// WithID sets the transaction ID. Build generates one when unset.
func (b *TransactionBuilder) WithID(id string) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	b.tx.ID = id
	return b
}

// AsOutgoing marks the transaction as money leaving the books.
func (b *TransactionBuilder) AsOutgoing() *TransactionBuilder {
	if b.err != nil {
		return b
	}
	b.tx.Side = SideOutgoing
	return b
}

// AsIncoming marks the transaction as money entering the books.
func (b *TransactionBuilder) AsIncoming() *TransactionBuilder {
	if b.err != nil {
		return b
	}
	b.tx.Side = SideIncoming
	return b
}

// WithAccount sets the payment account the transaction settles against.
func (b *TransactionBuilder) WithAccount(accountID string) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	b.tx.AccountID = accountID
	return b
}

// WithVendor sets the counterparty name (already canonicalized upstream).
func (b *TransactionBuilder) WithVendor(vendor string) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	b.tx.Vendor = vendor
	return b
}

// WithAmount sets the amount. Amounts are magnitudes; a negative value is an
// upstream sign-handling bug and is rejected here.
func (b *TransactionBuilder) WithAmount(amount decimal.Decimal) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	if amount.IsNegative() {
		b.err = fmt.Errorf("amount must not be negative, got %s", amount.String())
		return b
	}
	b.tx.Amount = amount
	return b
}

// WithDate sets the transaction date.
func (b *TransactionBuilder) WithDate(date time.Time) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	if date.IsZero() {
		b.err = errors.New("date cannot be zero")
		return b
	}
	b.tx.Date = date
	return b
}

// WithDescription sets the free-text description.
func (b *TransactionBuilder) WithDescription(description string) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	b.tx.Description = description
	return b
}

// WithCategory sets the expense or revenue category.
func (b *TransactionBuilder) WithCategory(category string) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	b.tx.Category = category
	return b
}

// WithDocument links the source document.
func (b *TransactionBuilder) WithDocument(documentID string) *TransactionBuilder {
	if b.err != nil {
		return b
	}
	b.tx.DocumentID = documentID
	return b
}

// ManuallyVerified marks the transaction as human-confirmed.
func (b *TransactionBuilder) ManuallyVerified() *TransactionBuilder {
	if b.err != nil {
		return b
	}
	b.tx.ManuallyVerified = true
	return b
}

// Build validates required fields and returns the finished transaction.
// The amount is canonicalized to two decimal places and missing ID and
// CreatedAt are filled in.
func (b *TransactionBuilder) Build() (BookTransaction, error) {
	if b.err != nil {
		return BookTransaction{}, fmt.Errorf("builder error: %w", b.err)
	}

	if b.tx.AccountID == "" {
		return BookTransaction{}, errors.New("account is required")
	}
	if b.tx.Date.IsZero() {
		return BookTransaction{}, errors.New("date is required")
	}
	if b.tx.Amount.IsZero() {
		return BookTransaction{}, errors.New("amount must be non-zero")
	}

	b.tx.Amount = b.tx.Amount.Round(2)
	if b.tx.ID == "" {
		b.tx.ID = uuid.New().String()
	}
	if b.tx.CreatedAt.IsZero() {
		b.tx.CreatedAt = time.Now().UTC()
	}

	return b.tx, nil
}

// Reset returns a fresh builder.
func (b *TransactionBuilder) Reset() *TransactionBuilder {
	return NewTransactionBuilder()
}
