package report

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgermatch/internal/auditlog"
	"ledgermatch/internal/logging"
	"ledgermatch/internal/models"
	"ledgermatch/internal/storage"
)

func testBuilder(t *testing.T) (*Builder, *storage.MemoryStore) {
	t.Helper()
	store := storage.NewMemoryStore()
	ledger := auditlog.New(store, "report-test", &logging.MockLogger{})
	return NewBuilder(store, ledger, &logging.MockLogger{}), store
}

func addLine(t *testing.T, store *storage.MemoryStore, day int, amount string, direction models.Direction, matched bool) *models.StatementTransaction {
	t.Helper()
	line := &models.StatementTransaction{
		ID:          uuid.New().String(),
		AccountID:   "checking",
		PostedDate:  time.Date(2024, time.March, day, 0, 0, 0, 0, time.UTC),
		Description: "LINE",
		Amount:      decimal.RequireFromString(amount),
		Direction:   direction,
		Matched:     matched,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, store.CreateStatementLine(context.Background(), line))
	return line
}

func addTxn(t *testing.T, store *storage.MemoryStore, day int, amount, vendor string, status models.ReconciliationStatus) *models.BookTransaction {
	t.Helper()
	txn := &models.BookTransaction{
		ID:          uuid.New().String(),
		Side:        models.SideOutgoing,
		AccountID:   "checking",
		Vendor:      vendor,
		Amount:      decimal.RequireFromString(amount),
		Date:        time.Date(2024, time.March, day, 0, 0, 0, 0, time.UTC),
		Description: vendor + " purchase",
		Status:      status,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, store.CreateBookTransaction(context.Background(), txn))
	return txn
}

func TestRebuild(t *testing.T) {
	ctx := context.Background()
	builder, store := testBuilder(t)

	addLine(t, store, 5, "1500.00", models.DirectionCredit, true)
	addLine(t, store, 10, "500.00", models.DirectionDebit, true)
	addLine(t, store, 12, "89.99", models.DirectionDebit, false)

	addTxn(t, store, 10, "498.50", "Sysco Foods", models.ReconMatched)
	addTxn(t, store, 14, "250.00", "Sysco Foods", models.ReconUnreconciled)
	addTxn(t, store, 20, "900.00", "US Foods", models.ReconMatched)

	addLine(t, store, 10, "500.00", models.DirectionDebit, true)
	require.NoError(t, store.CreateStatementLine(ctx, &models.StatementTransaction{
		ID: uuid.New().String(), AccountID: "checking",
		PostedDate: time.Date(2024, time.April, 2, 0, 0, 0, 0, time.UTC),
		Amount:     decimal.RequireFromString("77.00"), Direction: models.DirectionDebit,
		CreatedAt:  time.Now().UTC(),
	}))

	summary, err := builder.Rebuild(ctx, 2024, time.March)
	require.NoError(t, err)

	t.Run("cash flow follows the statement", func(t *testing.T) {
		assert.Equal(t, "1500.00", summary.TotalIncoming.StringFixed(2))
		assert.Equal(t, "1089.99", summary.TotalOutgoing.StringFixed(2))
		assert.Equal(t, "410.01", summary.NetCashFlow.StringFixed(2))
	})

	t.Run("match coverage", func(t *testing.T) {
		assert.Equal(t, 3, summary.MatchedLines)
		assert.Equal(t, 1, summary.UnmatchedLines)
		assert.InDelta(t, 0.75, summary.MatchedPercent, 0.001)
		assert.Equal(t, 1, summary.UnmatchedBooked)
	})

	t.Run("vendor ranking aggregates outgoing spend", func(t *testing.T) {
		require.Len(t, summary.TopVendors, 2)
		assert.Equal(t, "US Foods", summary.TopVendors[0].Vendor)
		assert.Equal(t, "900.00", summary.TopVendors[0].Total.StringFixed(2))
		assert.Equal(t, "Sysco Foods", summary.TopVendors[1].Vendor)
		assert.Equal(t, "748.50", summary.TopVendors[1].Total.StringFixed(2))
		assert.Equal(t, 2, summary.TopVendors[1].Count)
	})

	t.Run("april line stays out of march", func(t *testing.T) {
		assert.Equal(t, 4, summary.MatchedLines+summary.UnmatchedLines)
	})

	t.Run("stored and retrievable", func(t *testing.T) {
		got, err := builder.Get(ctx, 2024, time.March)
		require.NoError(t, err)
		assert.Equal(t, summary.NetCashFlow.StringFixed(2), got.NetCashFlow.StringFixed(2))
	})
}

func TestRebuildDiscrepancyTotal(t *testing.T) {
	ctx := context.Background()
	builder, store := testBuilder(t)

	line := addLine(t, store, 8, "100.00", models.DirectionDebit, false)
	txn := addTxn(t, store, 8, "98.50", "Vendor", models.ReconUnreconciled)
	record := models.NewReconciliationRecord(line, txn, models.MatchAmountOnly, 0.75, "matcher")
	require.NoError(t, store.CommitMatch(ctx, record))

	summary, err := builder.Rebuild(ctx, 2024, time.March)
	require.NoError(t, err)
	assert.Equal(t, "1.50", summary.DiscrepancyTotal.StringFixed(2))

	t.Run("voided record drops out on rebuild", func(t *testing.T) {
		require.NoError(t, store.VoidRecord(ctx, record.ID, "wrong vendor"))
		summary, err := builder.Rebuild(ctx, 2024, time.March)
		require.NoError(t, err)
		assert.Equal(t, "0.00", summary.DiscrepancyTotal.StringFixed(2))
	})
}

func TestRebuildIsIdempotent(t *testing.T) {
	ctx := context.Background()
	builder, store := testBuilder(t)

	addLine(t, store, 3, "42.00", models.DirectionDebit, false)

	first, err := builder.Rebuild(ctx, 2024, time.March)
	require.NoError(t, err)
	second, err := builder.Rebuild(ctx, 2024, time.March)
	require.NoError(t, err)

	assert.Equal(t, first.TotalOutgoing.StringFixed(2), second.TotalOutgoing.StringFixed(2))
	assert.Equal(t, first.UnmatchedLines, second.UnmatchedLines)
}

func TestRebuildEmptyMonth(t *testing.T) {
	ctx := context.Background()
	builder, _ := testBuilder(t)

	summary, err := builder.Rebuild(ctx, 2024, time.January)
	require.NoError(t, err)
	assert.Equal(t, "0.00", summary.NetCashFlow.StringFixed(2))
	assert.Equal(t, 0.0, summary.MatchedPercent)
	assert.Empty(t, summary.TopVendors)
}
