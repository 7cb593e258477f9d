package camtextractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgermatch/internal/extractor"
)

const sampleStatement = `<?xml version="1.0" encoding="UTF-8"?>
<Document>
  <BkToCstmrStmt>
    <Stmt>
      <Acct><Id><IBAN>CH9300762011623852957</IBAN></Id></Acct>
      <Ntry>
        <Amt Ccy="USD">42.50</Amt>
        <CdtDbtInd>DBIT</CdtDbtInd>
        <BookgDt><Dt>2024-01-15</Dt></BookgDt>
        <ValDt><Dt>2024-01-15</Dt></ValDt>
        <AddtlNtryInf>SYSCO FOODS PAYMENT</AddtlNtryInf>
      </Ntry>
      <Ntry>
        <Amt Ccy="USD">310.00</Amt>
        <CdtDbtInd>CRDT</CdtDbtInd>
        <BookgDt><Dt>2024-01-16</Dt></BookgDt>
        <AddtlNtryInf>CARD SETTLEMENT</AddtlNtryInf>
      </Ntry>
    </Stmt>
  </BkToCstmrStmt>
</Document>`

func TestExtract(t *testing.T) {
	ctx := context.Background()
	ext := New(nil)

	t.Run("parses entries into raw lines", func(t *testing.T) {
		res, err := ext.Extract(ctx, []byte(sampleStatement))
		require.NoError(t, err)
		require.Len(t, res.Lines, 2)

		assert.Equal(t, 1.0, res.Confidence)
		assert.Equal(t, "CH9300762011623852957", res.Fields[extractor.FieldAccount])

		assert.Equal(t, "42.50", res.Lines[0].Amount)
		assert.Equal(t, "debit", res.Lines[0].Direction)
		assert.Equal(t, "2024-01-15", res.Lines[0].Date)
		assert.Equal(t, "SYSCO FOODS PAYMENT", res.Lines[0].Description)

		assert.Equal(t, "credit", res.Lines[1].Direction)
	})

	t.Run("value date falls back to booking date", func(t *testing.T) {
		res, err := ext.Extract(ctx, []byte(sampleStatement))
		require.NoError(t, err)
		assert.Equal(t, "2024-01-16", res.Lines[1].Date)
	})

	t.Run("non-XML content errors", func(t *testing.T) {
		_, err := ext.Extract(ctx, []byte("Date,Amount\n01/01/2024,5.00"))
		assert.Error(t, err)
	})

	t.Run("XML without statement element errors", func(t *testing.T) {
		_, err := ext.Extract(ctx, []byte("<Document><Other/></Document>"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a camt.053")
	})

	t.Run("statement without entries errors", func(t *testing.T) {
		empty := `<Document><BkToCstmrStmt><Stmt></Stmt></BkToCstmrStmt></Document>`
		_, err := ext.Extract(ctx, []byte(empty))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no entries")
	})
}
