package salesextractor

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
)

// recordsFromCSV reads raw CSV content into records without enforcing a
// fixed field count; POS exports pad summary rows unevenly.
func recordsFromCSV(content []byte) ([][]string, error) {
	r := csv.NewReader(bytes.NewReader(content))
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading sales CSV: %w", err)
	}
	return records, nil
}

// canonicalizeRecords rewrites the header row through columnAliases, pads
// short rows to header width and re-encodes to CSV bytes for gocsv.
func canonicalizeRecords(records [][]string, err error) ([]byte, error) {
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("sales report is empty")
	}

	header := records[0]
	for i, col := range header {
		key := strings.ToLower(strings.TrimSpace(col))
		if canonical, ok := columnAliases[key]; ok {
			header[i] = canonical
		}
	}

	var out bytes.Buffer
	w := csv.NewWriter(&out)
	for _, record := range records {
		for len(record) < len(header) {
			record = append(record, "")
		}
		if len(record) > len(header) {
			record = record[:len(header)]
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	return out.Bytes(), w.Error()
}
