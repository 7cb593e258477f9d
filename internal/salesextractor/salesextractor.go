// Package salesextractor extracts daily revenue entries from point-of-sale
// reports, delivered either as CSV exports or XLSX workbooks. Every row
// becomes one incoming raw line; the normalizer turns these into incoming
// book transactions.
package salesextractor

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/xuri/excelize/v2"

	"ledgermatch/internal/extractor"
	"ledgermatch/internal/logging"
)

// salesRow is one report row for gocsv binding.
type salesRow struct {
	Date       string `csv:"date"`
	GrossSales string `csv:"gross_sales"`
	NetSales   string `csv:"net_sales"`
	Notes      string `csv:"notes"`
}

// columnAliases canonicalizes report headers across POS vendors.
var columnAliases = map[string]string{
	"date":        "date",
	"sales date":  "date",
	"day":         "date",
	"gross sales": "gross_sales",
	"gross":       "gross_sales",
	"total sales": "gross_sales",
	"net sales":   "net_sales",
	"net":         "net_sales",
	"notes":       "notes",
	"comments":    "notes",
}

// xlsxMagic is the ZIP container signature; XLSX files are ZIP archives.
var xlsxMagic = []byte("PK\x03\x04")

// Extractor parses sales reports in CSV or XLSX form.
type Extractor struct {
	logger logging.Logger
}

// New creates a sales report extractor.
func New(logger logging.Logger) *Extractor {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Extractor{logger: logger.WithField("component", "salesextractor")}
}

// Name implements extractor.Extractor.
func (e *Extractor) Name() string { return "sales-report" }

// Extract implements extractor.Extractor.
func (e *Extractor) Extract(_ context.Context, content []byte) (*extractor.Result, error) {
	var rows []*salesRow
	var err error
	if bytes.HasPrefix(content, xlsxMagic) {
		rows, err = e.readXLSX(content)
	} else {
		rows, err = e.readCSV(content)
	}
	if err != nil {
		return nil, err
	}

	res := extractor.NewResult(1.0)
	for _, row := range rows {
		if row.Date == "" {
			continue
		}
		amount := row.NetSales
		if amount == "" {
			amount = row.GrossSales
		}
		if amount == "" {
			res.Warn(fmt.Sprintf("sales row for %s has no amount", row.Date))
			continue
		}
		desc := "Daily sales"
		if row.Notes != "" {
			desc = desc + " - " + row.Notes
		}
		res.Lines = append(res.Lines, extractor.RawLine{
			Date:        strings.TrimSpace(row.Date),
			Amount:      strings.TrimSpace(amount),
			Description: desc,
			Direction:   "credit",
		})
	}

	if len(res.Lines) == 0 {
		return nil, fmt.Errorf("no sales rows found in report")
	}

	e.logger.Debug("extracted sales rows",
		logging.Field{Key: logging.FieldCount, Value: len(res.Lines)})
	return res, nil
}

func (e *Extractor) readCSV(content []byte) ([]*salesRow, error) {
	canonical, err := canonicalizeRecords(recordsFromCSV(content))
	if err != nil {
		return nil, err
	}
	var rows []*salesRow
	if err := gocsv.UnmarshalBytes(canonical, &rows); err != nil {
		return nil, fmt.Errorf("unmarshaling sales CSV: %w", err)
	}
	return rows, nil
}

func (e *Extractor) readXLSX(content []byte) ([]*salesRow, error) {
	xl, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("opening XLSX report: %w", err)
	}
	defer func() {
		if cerr := xl.Close(); cerr != nil {
			e.logger.WithError(cerr).Warn("failed to close XLSX reader")
		}
	}()

	sheets := xl.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("XLSX report has no sheets")
	}
	records, err := xl.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading XLSX rows: %w", err)
	}

	canonical, err := canonicalizeRecords(records, nil)
	if err != nil {
		return nil, err
	}
	var rows []*salesRow
	if err := gocsv.UnmarshalBytes(canonical, &rows); err != nil {
		return nil, fmt.Errorf("unmarshaling XLSX rows: %w", err)
	}
	return rows, nil
}
