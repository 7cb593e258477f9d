package models

import "time"

// PaymentAccount is a bank or card account statements are reconciled against.
type PaymentAccount struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Kind      AccountKind `json:"kind"`
	LastFour  string      `json:"last_four,omitempty"`
	Active    bool        `json:"active"`
	CreatedAt time.Time   `json:"created_at"`
}
