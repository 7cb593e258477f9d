package textextractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgermatch/internal/extractor"
)

func TestExtract(t *testing.T) {
	ctx := context.Background()
	ext := New(nil)

	t.Run("invoice text", func(t *testing.T) {
		content := []byte("Sysco Foods Inc\nInvoice #8841\nDate: 01/15/2024\nAmount Due: $1,284.50\n")

		res, err := ext.Extract(ctx, content)
		require.NoError(t, err)
		assert.Equal(t, "1,284.50", res.Fields[extractor.FieldAmount])
		assert.Equal(t, "01/15/2024", res.Fields[extractor.FieldDate])
		assert.Equal(t, "8841", res.Fields[extractor.FieldInvoiceNumber])
		assert.Equal(t, "Sysco Foods Inc", res.Fields[extractor.FieldVendor])
	})

	t.Run("labeled vendor wins over letterhead", func(t *testing.T) {
		content := []byte("ACME ACCOUNTING LLC\nVendor: Mountain Coffee Roasters\nTotal: $96.00\n")

		res, err := ext.Extract(ctx, content)
		require.NoError(t, err)
		assert.Equal(t, "Mountain Coffee Roasters", res.Fields[extractor.FieldVendor])
	})

	t.Run("check text yields payee and check number", func(t *testing.T) {
		content := []byte("Check No. 1042\nPay to the Order of Sysco Foods\nAmount: $420.00\nDate: 01/20/2024")

		res, err := ext.Extract(ctx, content)
		require.NoError(t, err)
		assert.Equal(t, "1042", res.Fields[extractor.FieldCheckNumber])
		assert.Contains(t, res.Fields[extractor.FieldPayee], "Sysco Foods")
		assert.Equal(t, "420.00", res.Fields[extractor.FieldAmount])
	})

	t.Run("conflicting labeled amounts halve confidence", func(t *testing.T) {
		content := []byte("Total: $100.00\nAmount Due: $95.00\nDate: 01/15/2024")

		res, err := ext.Extract(ctx, content)
		require.NoError(t, err)
		assert.NotEmpty(t, res.Warnings)
		assert.LessOrEqual(t, res.Confidence, 0.4)
	})

	t.Run("binary content errors", func(t *testing.T) {
		_, err := ext.Extract(ctx, []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05})
		assert.Error(t, err)
	})

	t.Run("text with no fields errors", func(t *testing.T) {
		_, err := ext.Extract(ctx, []byte("\n\n"))
		assert.Error(t, err)
	})
}
