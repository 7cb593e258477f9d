// Package camtextractor extracts statement lines from ISO 20022 camt.053
// account statements. European banks deliver these as XML; the extractor
// walks the entry elements with XPath and emits one raw line per entry.
package camtextractor

import (
	"context"
	"fmt"
	"strings"

	"ledgermatch/internal/extractor"
	"ledgermatch/internal/logging"
	"ledgermatch/internal/xmlutils"
)

// Extractor parses camt.053 XML statements. Structured input, full
// self-reported confidence on a successful parse.
type Extractor struct {
	logger logging.Logger
}

// New creates a camt.053 statement extractor.
func New(logger logging.Logger) *Extractor {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Extractor{logger: logger.WithField("component", "camtextractor")}
}

// Name implements extractor.Extractor.
func (e *Extractor) Name() string { return "camt053-statement" }

// Extract implements extractor.Extractor.
func (e *Extractor) Extract(_ context.Context, content []byte) (*extractor.Result, error) {
	root, err := xmlutils.ParseXML(content)
	if err != nil {
		return nil, err
	}
	if !xmlutils.Exists(root, xmlutils.XPathStatement) {
		return nil, fmt.Errorf("not a camt.053 document: no statement element")
	}

	amounts, err := xmlutils.ExtractFromXML(root, xmlutils.XPathAmount)
	if err != nil {
		return nil, err
	}
	if len(amounts) == 0 {
		return nil, fmt.Errorf("camt.053 statement contains no entries")
	}

	inds, _ := xmlutils.ExtractFromXML(root, xmlutils.XPathCreditDebitInd)
	bookingDates, _ := xmlutils.ExtractFromXML(root, xmlutils.XPathBookingDate)
	valueDates, _ := xmlutils.ExtractFromXML(root, xmlutils.XPathValueDate)
	remittance, _ := xmlutils.ExtractFromXML(root, xmlutils.XPathRemittanceInfo)
	entryInfo, _ := xmlutils.ExtractFromXML(root, xmlutils.XPathAddEntryInfo)
	ibans, _ := xmlutils.ExtractFromXML(root, xmlutils.XPathIBAN)

	res := extractor.NewResult(1.0)
	if iban := xmlutils.GetOrEmpty(ibans, 0); iban != "" {
		res.Fields[extractor.FieldAccount] = iban
	}

	for i := range amounts {
		line := extractor.RawLine{
			Amount:      amounts[i],
			Date:        xmlutils.GetOrEmpty(valueDates, i),
			PostedDate:  xmlutils.GetOrEmpty(bookingDates, i),
			Description: entryDescription(xmlutils.GetOrEmpty(remittance, i), xmlutils.GetOrEmpty(entryInfo, i)),
		}
		if line.Date == "" {
			line.Date = line.PostedDate
		}
		switch strings.ToUpper(xmlutils.GetOrEmpty(inds, i)) {
		case "DBIT":
			line.Direction = "debit"
		case "CRDT":
			line.Direction = "credit"
		default:
			res.Warn(fmt.Sprintf("entry %d has no credit/debit indicator", i))
		}
		res.Lines = append(res.Lines, line)
	}

	e.logger.Debug("extracted statement entries from camt.053",
		logging.Field{Key: logging.FieldCount, Value: len(res.Lines)})
	return res, nil
}

// entryDescription prefers the unstructured remittance text and falls back
// to the additional entry info.
func entryDescription(remittance, entryInfo string) string {
	if s := xmlutils.CleanText(remittance); s != "" {
		return s
	}
	return xmlutils.CleanText(entryInfo)
}
