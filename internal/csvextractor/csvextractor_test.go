package csvextractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	ctx := context.Background()
	ext := New(nil)

	t.Run("standard bank export", func(t *testing.T) {
		content := []byte("Date,Description,Amount,Balance\n" +
			"01/15/2024,SYSCO FOODS DEBIT,-42.50,4217.30\n" +
			"01/16/2024,CUSTOMER DEPOSIT,100.00,4317.30\n")

		res, err := ext.Extract(ctx, content)
		require.NoError(t, err)
		require.Len(t, res.Lines, 2)
		assert.Equal(t, 1.0, res.Confidence)
		assert.Equal(t, "01/15/2024", res.Lines[0].Date)
		assert.Equal(t, "SYSCO FOODS DEBIT", res.Lines[0].Description)
		assert.Equal(t, "-42.50", res.Lines[0].Amount)
	})

	t.Run("aliased headers with split debit credit columns", func(t *testing.T) {
		content := []byte("Posting Date,Details,Withdrawal,Deposit\n" +
			"01-15-2024,Vendor payment,42.50,\n" +
			"01-16-2024,Card settlement,,310.00\n")

		res, err := ext.Extract(ctx, content)
		require.NoError(t, err)
		require.Len(t, res.Lines, 2)
		assert.Equal(t, "debit", res.Lines[0].Direction)
		assert.Equal(t, "42.50", res.Lines[0].Amount)
		assert.Equal(t, "credit", res.Lines[1].Direction)
		assert.Equal(t, "310.00", res.Lines[1].Amount)
	})

	t.Run("semicolon delimiter is sniffed", func(t *testing.T) {
		content := []byte("Date;Description;Amount\n" +
			"01/15/2024;COFFEE SUPPLY;-18.20\n")

		res, err := ext.Extract(ctx, content)
		require.NoError(t, err)
		require.Len(t, res.Lines, 1)
		assert.Equal(t, "COFFEE SUPPLY", res.Lines[0].Description)
	})

	t.Run("rows without amounts are skipped with a warning", func(t *testing.T) {
		content := []byte("Date,Description,Amount\n" +
			"01/15/2024,GOOD ROW,-10.00\n" +
			"01/16/2024,NO AMOUNT,\n")

		res, err := ext.Extract(ctx, content)
		require.NoError(t, err)
		assert.Len(t, res.Lines, 1)
		assert.NotEmpty(t, res.Warnings)
	})

	t.Run("no usable lines is an error", func(t *testing.T) {
		_, err := ext.Extract(ctx, []byte("Date,Description,Amount\n"))
		assert.Error(t, err)
	})

	t.Run("binary garbage is an error not a panic", func(t *testing.T) {
		_, err := ext.Extract(ctx, []byte("\x00\xff\"unterminated"))
		assert.Error(t, err)
	})
}
