package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MonthlySummary is a recomputable aggregate over one calendar month.
// Rebuilding a month replaces the stored row; nothing downstream depends on
// summaries, so they can always be regenerated from transactions and active
// reconciliation records.
type MonthlySummary struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`

	TotalIncoming decimal.Decimal `json:"total_incoming"`
	TotalOutgoing decimal.Decimal `json:"total_outgoing"`
	NetCashFlow   decimal.Decimal `json:"net_cash_flow"`

	MatchedLines    int     `json:"matched_lines"`
	UnmatchedLines  int     `json:"unmatched_lines"`
	MatchedPercent  float64 `json:"matched_percent"`
	UnmatchedBooked int     `json:"unmatched_booked"`

	// DiscrepancyTotal sums the absolute amount differences across active
	// tolerance matches in the month.
	DiscrepancyTotal decimal.Decimal `json:"discrepancy_total"`

	TopVendors  []VendorTotal `json:"top_vendors,omitempty"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// VendorTotal is one vendor's outgoing spend within a summary month.
type VendorTotal struct {
	Vendor string          `json:"vendor"`
	Total  decimal.Decimal `json:"total"`
	Count  int             `json:"count"`
}

// PeriodKey returns the canonical YYYY-MM identifier for the summary month.
func (s *MonthlySummary) PeriodKey() string {
	return time.Date(s.Year, s.Month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}
