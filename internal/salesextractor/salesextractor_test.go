package salesextractor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExtract_CSV(t *testing.T) {
	ctx := context.Background()
	ext := New(nil)

	t.Run("daily rows become credit lines", func(t *testing.T) {
		content := []byte("Date,Gross Sales,Net Sales,Notes\n" +
			"01/15/2024,2400.00,2180.00,weekday\n" +
			"01/16/2024,3100.00,2815.00,\n")

		res, err := ext.Extract(ctx, content)
		require.NoError(t, err)
		require.Len(t, res.Lines, 2)
		assert.Equal(t, "credit", res.Lines[0].Direction)
		assert.Equal(t, "2180.00", res.Lines[0].Amount, "net sales preferred over gross")
		assert.Contains(t, res.Lines[0].Description, "weekday")
	})

	t.Run("gross used when net is absent", func(t *testing.T) {
		content := []byte("Day,Total Sales\n01/15/2024,2400.00\n")

		res, err := ext.Extract(ctx, content)
		require.NoError(t, err)
		require.Len(t, res.Lines, 1)
		assert.Equal(t, "2400.00", res.Lines[0].Amount)
	})

	t.Run("empty report errors", func(t *testing.T) {
		_, err := ext.Extract(ctx, []byte("Date,Net Sales\n"))
		assert.Error(t, err)
	})
}

func TestExtract_XLSX(t *testing.T) {
	ctx := context.Background()
	ext := New(nil)

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]interface{}{"Date", "Net Sales"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]interface{}{"01/15/2024", "2180.00"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]interface{}{"01/16/2024", "2815.00"}))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	res, err := ext.Extract(ctx, buf.Bytes())
	require.NoError(t, err)
	require.Len(t, res.Lines, 2)
	assert.Equal(t, "01/15/2024", res.Lines[0].Date)
	assert.Equal(t, "2180.00", res.Lines[0].Amount)
	assert.Equal(t, "credit", res.Lines[1].Direction)
}

func TestExtract_Garbage(t *testing.T) {
	_, err := New(nil).Extract(context.Background(), []byte("PK\x03\x04 but not a real zip"))
	assert.Error(t, err)
}
