package normalize

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgermatch/internal/extractor"
	"ledgermatch/internal/logging"
	"ledgermatch/internal/models"
	"ledgermatch/internal/vendors"
)

func testNormalizer(t *testing.T) *Normalizer {
	t.Helper()
	registry := vendors.NewRegistry(filepath.Join(t.TempDir(), "vendors.yaml"), &logging.MockLogger{})
	registry.Learn("SYSCO FOODS SVC", "Sysco Foods", "food_supplies")
	return New(registry, &logging.MockLogger{})
}

func TestNormalizeInvoice(t *testing.T) {
	n := testNormalizer(t)

	res := extractor.NewResult(0.9)
	res.Fields[extractor.FieldDate] = "2024-03-15"
	res.Fields[extractor.FieldAmount] = "$1,234.56"
	res.Fields[extractor.FieldVendor] = "SYSCO FOODS SVC"
	res.Fields[extractor.FieldInvoiceNumber] = "INV-8842"

	out, err := n.Normalize(models.DocTypeInvoice, "checking", "doc-1", res)
	require.NoError(t, err)
	require.Len(t, out.Transactions, 1)
	assert.Empty(t, out.ReviewReasons)
	assert.InDelta(t, 1.0, out.Completeness, 0.001)

	txn := out.Transactions[0]
	assert.Equal(t, models.SideOutgoing, txn.Side)
	assert.True(t, txn.Amount.Equal(decimal.RequireFromString("1234.56")))
	assert.Equal(t, "Sysco Foods", txn.Vendor)
	assert.Equal(t, "food_supplies", txn.Category)
	assert.Equal(t, "Sysco Foods invoice INV-8842", txn.Description)
	assert.Equal(t, "doc-1", txn.DocumentID)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), txn.Date)
}

func TestNormalizeAmbiguousDateFlagged(t *testing.T) {
	n := testNormalizer(t)

	res := extractor.NewResult(0.9)
	res.Fields[extractor.FieldDate] = "03/04/2024"
	res.Fields[extractor.FieldAmount] = "50.00"
	res.Fields[extractor.FieldVendor] = "Acme"

	out, err := n.Normalize(models.DocTypeInvoice, "checking", "doc-1", res)
	require.NoError(t, err)
	assert.Contains(t, out.ReviewReasons, models.ReasonAmbiguousDate)
	// The US-first reading still produces a transaction; review decides.
	require.Len(t, out.Transactions, 1)
	assert.Equal(t, time.March, out.Transactions[0].Date.Month())
}

func TestNormalizeNegativeAmountFlagged(t *testing.T) {
	n := testNormalizer(t)

	res := extractor.NewResult(0.9)
	res.Fields[extractor.FieldDate] = "2024-03-15"
	res.Fields[extractor.FieldAmount] = "(42.50)"
	res.Fields[extractor.FieldVendor] = "Acme"

	out, err := n.Normalize(models.DocTypeInvoice, "checking", "doc-1", res)
	require.NoError(t, err)
	// A credit-memo style amount keeps its magnitude; the side question is
	// for a reviewer, not a failure.
	assert.Contains(t, out.ReviewReasons, models.ReasonNegativeAmount)
	require.Len(t, out.Transactions, 1)
	assert.True(t, out.Transactions[0].Amount.Equal(decimal.RequireFromString("42.50")))
	assert.Equal(t, models.SideOutgoing, out.Transactions[0].Side)
}

func TestNormalizeIncompleteInvoice(t *testing.T) {
	n := testNormalizer(t)

	res := extractor.NewResult(0.9)
	res.Fields[extractor.FieldVendor] = "Acme"

	out, err := n.Normalize(models.DocTypeInvoice, "checking", "doc-1", res)
	require.NoError(t, err)
	assert.Empty(t, out.Transactions)
	assert.Contains(t, out.ReviewReasons, models.ReasonIncomplete)
	assert.InDelta(t, 1.0/3.0, out.Completeness, 0.001)
}

func TestNormalizeCheckUsesPayee(t *testing.T) {
	n := testNormalizer(t)

	res := extractor.NewResult(0.7)
	res.Fields[extractor.FieldDate] = "2024-03-10"
	res.Fields[extractor.FieldAmount] = "200.00"
	res.Fields[extractor.FieldPayee] = "Jane's Produce"
	res.Fields[extractor.FieldCheckNumber] = "1187"

	out, err := n.Normalize(models.DocTypeCheckImage, "checking", "doc-1", res)
	require.NoError(t, err)
	require.Len(t, out.Transactions, 1)
	assert.Equal(t, "Jane's Produce", out.Transactions[0].Vendor)
	assert.Equal(t, "Check 1187 to Jane's Produce", out.Transactions[0].Description)
	assert.InDelta(t, 1.0, out.Completeness, 0.001)
}

func TestNormalizeStatement(t *testing.T) {
	n := testNormalizer(t)

	res := extractor.NewResult(0.9)
	res.Lines = []extractor.RawLine{
		{PostedDate: "2024-03-05", Description: "CHECK 1234", Amount: "125.00", Direction: "debit"},
		{Date: "2024-03-06", Description: "DEPOSIT", Amount: "980.00", Direction: "credit"},
		{PostedDate: "2024-03-07", Description: "CARD PURCHASE", Amount: "-42.50"},
		{PostedDate: "", Description: "garbage", Amount: "not a number"},
	}

	out, err := n.Normalize(models.DocTypeBankStatement, "checking", "doc-1", res)
	require.NoError(t, err)
	require.Len(t, out.Lines, 3)
	assert.InDelta(t, 0.75, out.Completeness, 0.001)
	assert.Contains(t, out.ReviewReasons, models.ReasonGarbledContent)

	assert.Equal(t, models.DirectionDebit, out.Lines[0].Direction)
	assert.Equal(t, models.DirectionCredit, out.Lines[1].Direction)
	// Sign decides when the extractor had no direction column.
	assert.Equal(t, models.DirectionDebit, out.Lines[2].Direction)
	assert.True(t, out.Lines[2].Amount.Equal(decimal.RequireFromString("42.50")), "amounts are stored as magnitudes")
	for _, line := range out.Lines {
		assert.Equal(t, "checking", line.AccountID)
		assert.Equal(t, "doc-1", line.DocumentID)
		assert.NotEmpty(t, line.ID)
	}
}

func TestNormalizeEmptyStatement(t *testing.T) {
	n := testNormalizer(t)

	out, err := n.Normalize(models.DocTypeBankStatement, "checking", "doc-1", extractor.NewResult(0.9))
	require.NoError(t, err)
	assert.Empty(t, out.Lines)
	assert.Contains(t, out.ReviewReasons, models.ReasonIncomplete)
}

func TestNormalizeSalesReport(t *testing.T) {
	n := testNormalizer(t)

	t.Run("prefers reported total", func(t *testing.T) {
		res := extractor.NewResult(0.95)
		res.Fields[extractor.FieldTotal] = "4,812.00"
		res.Fields[extractor.FieldPeriodStart] = "2024-03-01"
		res.Fields[extractor.FieldPeriodEnd] = "2024-03-07"
		res.Lines = []extractor.RawLine{
			{Date: "2024-03-01", Amount: "1000.00", Direction: "credit"},
			{Date: "2024-03-02", Amount: "3812.00", Direction: "credit"},
		}

		out, err := n.Normalize(models.DocTypeSalesReport, "checking", "doc-1", res)
		require.NoError(t, err)
		require.Len(t, out.Transactions, 1)
		txn := out.Transactions[0]
		assert.Equal(t, models.SideIncoming, txn.Side)
		assert.True(t, txn.Amount.Equal(decimal.RequireFromString("4812.00")))
		assert.Equal(t, "sales", txn.Category)
		assert.Contains(t, txn.Description, "2024-03-01")
	})

	t.Run("sums lines when total missing", func(t *testing.T) {
		res := extractor.NewResult(0.95)
		res.Fields[extractor.FieldPeriodEnd] = "2024-03-07"
		res.Lines = []extractor.RawLine{
			{Date: "2024-03-01", Amount: "100.00", Direction: "credit"},
			{Date: "2024-03-02", Amount: "250.00", Direction: "credit"},
		}

		out, err := n.Normalize(models.DocTypeSalesReport, "checking", "doc-1", res)
		require.NoError(t, err)
		require.Len(t, out.Transactions, 1)
		assert.True(t, out.Transactions[0].Amount.Equal(decimal.RequireFromString("350.00")))
	})
}

func TestNormalizeUnknownType(t *testing.T) {
	n := testNormalizer(t)
	_, err := n.Normalize("mystery", "checking", "doc-1", extractor.NewResult(0.5))
	assert.Error(t, err)
}
