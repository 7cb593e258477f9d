package models

import "time"

// Vendor is a supplier or counterparty the books know by a canonical name.
// Aliases hold the raw spellings seen on documents and statement lines that
// resolve to this vendor.
type Vendor struct {
	ID              string    `json:"id" yaml:"id"`
	CanonicalName   string    `json:"canonical_name" yaml:"canonical_name"`
	Aliases         []string  `json:"aliases,omitempty" yaml:"aliases,omitempty"`
	DefaultCategory string    `json:"default_category,omitempty" yaml:"default_category,omitempty"`
	CreatedAt       time.Time `json:"created_at" yaml:"-"`
}

// HasAlias reports whether the given normalized name is a known alias.
func (v *Vendor) HasAlias(name string) bool {
	for _, a := range v.Aliases {
		if a == name {
			return true
		}
	}
	return false
}
