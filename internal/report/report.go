// Package report builds monthly reconciliation summaries. A summary is a
// pure aggregate over stored transactions and active reconciliation
// records, so rebuilding a month any number of times yields the same row.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"ledgermatch/internal/auditlog"
	"ledgermatch/internal/dateutils"
	"ledgermatch/internal/logging"
	"ledgermatch/internal/models"
	"ledgermatch/internal/storage"
)

// topVendorLimit caps the vendor breakdown in a monthly summary.
const topVendorLimit = 5

// Builder computes and stores monthly summaries.
type Builder struct {
	store  storage.Store
	ledger *auditlog.Ledger
	logger logging.Logger
}

func NewBuilder(store storage.Store, ledger *auditlog.Ledger, logger logging.Logger) *Builder {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Builder{
		store:  store,
		ledger: ledger,
		logger: logger.WithField("component", "report.Builder"),
	}
}

// Rebuild recomputes the summary for one calendar month across all accounts
// and replaces the stored row.
func (b *Builder) Rebuild(ctx context.Context, year int, month time.Month) (*models.MonthlySummary, error) {
	from, to := dateutils.MonthRange(year, month)

	lines, err := b.store.ListStatementLines(ctx, "", from, to)
	if err != nil {
		return nil, fmt.Errorf("loading statement lines for %d-%02d: %w", year, month, err)
	}
	txns, err := b.store.ListBookTransactions(ctx, "", from, to)
	if err != nil {
		return nil, fmt.Errorf("loading book transactions for %d-%02d: %w", year, month, err)
	}
	records, err := b.store.ListRecords(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("loading reconciliation records: %w", err)
	}

	summary := b.compute(year, month, lines, txns, records)
	if err := b.store.UpsertMonthlySummary(ctx, summary); err != nil {
		return nil, fmt.Errorf("storing summary %s: %w", summary.PeriodKey(), err)
	}
	if err := b.ledger.SummaryRebuilt(ctx, year, month); err != nil {
		return nil, err
	}

	b.logger.Info("monthly summary rebuilt",
		logging.Field{Key: "period", Value: summary.PeriodKey()},
		logging.Field{Key: "matched_lines", Value: summary.MatchedLines},
		logging.Field{Key: "unmatched_lines", Value: summary.UnmatchedLines})
	return summary, nil
}

// Get returns the stored summary for a month, or storage.ErrNotFound when
// no rebuild has run for it yet.
func (b *Builder) Get(ctx context.Context, year int, month time.Month) (*models.MonthlySummary, error) {
	return b.store.GetMonthlySummary(ctx, year, month)
}

func (b *Builder) compute(year int, month time.Month, lines []*models.StatementTransaction, txns []*models.BookTransaction, records []*models.ReconciliationRecord) *models.MonthlySummary {
	summary := &models.MonthlySummary{
		Year:             year,
		Month:            month,
		TotalIncoming:    decimal.Zero,
		TotalOutgoing:    decimal.Zero,
		NetCashFlow:      decimal.Zero,
		DiscrepancyTotal: decimal.Zero,
		GeneratedAt:      time.Now().UTC(),
	}

	// Cash flow follows the statement: what the bank saw, not what the
	// books hoped for.
	for _, line := range lines {
		switch line.Direction {
		case models.DirectionCredit:
			summary.TotalIncoming = summary.TotalIncoming.Add(line.Amount)
		case models.DirectionDebit:
			summary.TotalOutgoing = summary.TotalOutgoing.Add(line.Amount)
		}
		if line.Matched {
			summary.MatchedLines++
		} else {
			summary.UnmatchedLines++
		}
	}
	summary.NetCashFlow = summary.TotalIncoming.Sub(summary.TotalOutgoing)
	if total := summary.MatchedLines + summary.UnmatchedLines; total > 0 {
		summary.MatchedPercent = float64(summary.MatchedLines) / float64(total)
	}

	lineIDs := make(map[string]bool, len(lines))
	for _, line := range lines {
		lineIDs[line.ID] = true
	}
	for _, rec := range records {
		if rec.MatchType == models.MatchAmountOnly && lineIDs[rec.StatementLineID] {
			summary.DiscrepancyTotal = summary.DiscrepancyTotal.Add(rec.AmountDifference)
		}
	}

	vendorTotals := make(map[string]*models.VendorTotal)
	for _, txn := range txns {
		if txn.Status == models.ReconUnreconciled {
			summary.UnmatchedBooked++
		}
		if txn.Side != models.SideOutgoing || txn.Vendor == "" {
			continue
		}
		vt, ok := vendorTotals[txn.Vendor]
		if !ok {
			vt = &models.VendorTotal{Vendor: txn.Vendor, Total: decimal.Zero}
			vendorTotals[txn.Vendor] = vt
		}
		vt.Total = vt.Total.Add(txn.Amount)
		vt.Count++
	}
	summary.TopVendors = rankVendors(vendorTotals)

	return summary
}

// rankVendors orders vendors by outgoing spend, name as tiebreak, truncated
// to the display limit.
func rankVendors(totals map[string]*models.VendorTotal) []models.VendorTotal {
	ranked := make([]models.VendorTotal, 0, len(totals))
	for _, vt := range totals {
		ranked = append(ranked, *vt)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if !ranked[i].Total.Equal(ranked[j].Total) {
			return ranked[i].Total.GreaterThan(ranked[j].Total)
		}
		return ranked[i].Vendor < ranked[j].Vendor
	})
	if len(ranked) > topVendorLimit {
		ranked = ranked[:topVendorLimit]
	}
	return ranked
}

// RenderJSON formats a summary for CLI output.
func RenderJSON(summary *models.MonthlySummary) ([]byte, error) {
	out, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling summary %s: %w", summary.PeriodKey(), err)
	}
	return out, nil
}
