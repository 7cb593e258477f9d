// Package csvextractor extracts statement lines from bank and credit-card
// CSV exports. Banks disagree on header vocabulary, so the extractor
// canonicalizes the header row against an alias table before handing the
// bytes to gocsv.
package csvextractor

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/gocarina/gocsv"

	"ledgermatch/internal/extractor"
	"ledgermatch/internal/logging"
)

// statementRow is a canonical statement line for gocsv unmarshaling. The
// header aliases below rewrite whatever the bank calls these columns into
// the canonical names.
type statementRow struct {
	Date        string `csv:"date"`
	PostedDate  string `csv:"posted_date"`
	Description string `csv:"description"`
	Amount      string `csv:"amount"`
	Debit       string `csv:"debit"`
	Credit      string `csv:"credit"`
	Balance     string `csv:"balance"`
}

// headerAliases maps lowercased source headers to canonical column names.
// Unknown columns pass through untouched and are ignored by gocsv.
var headerAliases = map[string]string{
	"date":             "date",
	"transaction date": "date",
	"trans date":       "date",
	"posting date":     "posted_date",
	"posted date":      "posted_date",
	"post date":        "posted_date",
	"description":      "description",
	"details":          "description",
	"memo":             "description",
	"payee":            "description",
	"transaction":      "description",
	"amount":           "amount",
	"transaction amount": "amount",
	"debit":            "debit",
	"withdrawal":       "debit",
	"withdrawals":      "debit",
	"credit":           "credit",
	"deposit":          "credit",
	"deposits":         "credit",
	"balance":          "balance",
	"running balance":  "balance",
}

// Extractor parses delimited statement exports. Deterministic structured
// input, so it self-reports full confidence when the parse succeeds.
type Extractor struct {
	logger logging.Logger
}

// New creates a CSV statement extractor.
func New(logger logging.Logger) *Extractor {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Extractor{logger: logger.WithField("component", "csvextractor")}
}

// Name implements extractor.Extractor.
func (e *Extractor) Name() string { return "csv-statement" }

// Extract implements extractor.Extractor.
func (e *Extractor) Extract(_ context.Context, content []byte) (*extractor.Result, error) {
	canonical, err := canonicalizeHeader(content)
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	var rows []*statementRow
	if err := gocsv.UnmarshalBytes(canonical, &rows); err != nil {
		return nil, fmt.Errorf("unmarshaling statement CSV: %w", err)
	}

	res := extractor.NewResult(1.0)
	for _, row := range rows {
		if row.Date == "" && row.Description == "" {
			continue
		}
		line := extractor.RawLine{
			Date:        strings.TrimSpace(row.Date),
			PostedDate:  strings.TrimSpace(row.PostedDate),
			Description: strings.TrimSpace(row.Description),
		}
		switch {
		case row.Amount != "":
			line.Amount = strings.TrimSpace(row.Amount)
		case row.Debit != "":
			line.Amount = strings.TrimSpace(row.Debit)
			line.Direction = "debit"
		case row.Credit != "":
			line.Amount = strings.TrimSpace(row.Credit)
			line.Direction = "credit"
		default:
			res.Warn(fmt.Sprintf("statement line %q has no amount column", line.Description))
			continue
		}
		res.Lines = append(res.Lines, line)
	}

	if len(res.Lines) == 0 {
		return nil, fmt.Errorf("no statement lines found in CSV")
	}

	e.logger.Debug("extracted statement lines from CSV",
		logging.Field{Key: logging.FieldCount, Value: len(res.Lines)})
	return res, nil
}

// canonicalizeHeader rewrites the first CSV record through headerAliases so
// gocsv can bind columns regardless of the bank's vocabulary. The delimiter
// is sniffed from the header line: comma unless semicolons dominate.
func canonicalizeHeader(content []byte) ([]byte, error) {
	delimiter := sniffDelimiter(content)

	r := csv.NewReader(bytes.NewReader(content))
	r.Comma = delimiter
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, err
	}
	for i, col := range header {
		key := strings.ToLower(strings.TrimSpace(col))
		if canonical, ok := headerAliases[key]; ok {
			header[i] = canonical
		}
	}

	var out bytes.Buffer
	w := csv.NewWriter(&out)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return out.Bytes(), w.Error()
}

func sniffDelimiter(content []byte) rune {
	line := content
	if i := bytes.IndexByte(content, '\n'); i >= 0 {
		line = content[:i]
	}
	if bytes.Count(line, []byte{';'}) > bytes.Count(line, []byte{','}) {
		return ';'
	}
	return ','
}
