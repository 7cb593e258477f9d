// Package textextractor scrapes transaction fields out of plain-text
// document content: invoices, receipts and anything the classifier could
// not place. It is the registry fallback, so it never reports more than
// moderate confidence and degrades by omitting fields rather than erroring.
package textextractor

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"ledgermatch/internal/extractor"
	"ledgermatch/internal/logging"
)

var (
	// Labeled amounts outrank bare ones; "Amount Due: $1,234.56" is the
	// document telling us which number matters.
	labeledAmountRe = regexp.MustCompile(`(?i)(total|amount due|balance due|grand total|amount)\s*[:=]?\s*\(?\$?\s*(-?[\d,']+\.?\d{0,2})\)?`)
	bareAmountRe    = regexp.MustCompile(`\$\s*(-?[\d,']+\.\d{2})`)

	dateRe = regexp.MustCompile(`\b(\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|\d{4}-\d{2}-\d{2}|(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Oct|Nov|Dec)[a-z]* \d{1,2},? \d{4})\b`)

	invoiceNumRe = regexp.MustCompile(`(?i)invoice\s*(?:no\.?|number|#)?\s*[:=]?\s*([A-Z0-9][A-Z0-9-]{2,})`)
	checkNumRe   = regexp.MustCompile(`(?i)check\s*(?:no\.?|number|#)?\s*[:=]?\s*(\d{3,})`)
	payToRe      = regexp.MustCompile(`(?i)pay to the order of\s*[:=]?\s*([A-Za-z][A-Za-z0-9 .,&'-]+)`)
	vendorLineRe = regexp.MustCompile(`(?i)^(?:from|vendor|sold by|bill from)\s*[:=]\s*(.+)$`)
)

// Extractor scrapes fields from text content with regular expressions.
type Extractor struct {
	logger logging.Logger
}

// New creates a text field extractor.
func New(logger logging.Logger) *Extractor {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Extractor{logger: logger.WithField("component", "textextractor")}
}

// Name implements extractor.Extractor.
func (e *Extractor) Name() string { return "text-scrape" }

// Extract implements extractor.Extractor.
func (e *Extractor) Extract(_ context.Context, content []byte) (*extractor.Result, error) {
	text := string(content)
	if !printable(text) {
		return nil, fmt.Errorf("content is not text")
	}

	res := extractor.NewResult(0.8)
	res.RawText = text

	if m := invoiceNumRe.FindStringSubmatch(text); m != nil {
		res.Fields[extractor.FieldInvoiceNumber] = strings.TrimSpace(m[1])
	}
	if m := checkNumRe.FindStringSubmatch(text); m != nil {
		res.Fields[extractor.FieldCheckNumber] = strings.TrimSpace(m[1])
	}
	if m := payToRe.FindStringSubmatch(text); m != nil {
		res.Fields[extractor.FieldPayee] = strings.TrimSpace(m[1])
	}

	e.scrapeAmount(text, res)
	e.scrapeDate(text, res)
	e.scrapeVendor(text, res)

	if len(res.Fields) == 0 {
		return nil, fmt.Errorf("no recognizable fields in text")
	}
	return res, nil
}

// scrapeAmount records the dominant amount. Multiple conflicting labeled
// amounts are a genuine ambiguity: both are recorded as a warning and the
// confidence drops so normalization routes the document to review.
func (e *Extractor) scrapeAmount(text string, res *extractor.Result) {
	labeled := labeledAmountRe.FindAllStringSubmatch(text, -1)
	if len(labeled) > 0 {
		first := labeled[0][2]
		for _, m := range labeled[1:] {
			if m[2] != first {
				res.Warn(fmt.Sprintf("conflicting labeled amounts: %s vs %s", first, m[2]))
				res.Confidence *= 0.5
				break
			}
		}
		res.Fields[extractor.FieldAmount] = first
		return
	}

	if m := bareAmountRe.FindStringSubmatch(text); m != nil {
		res.Fields[extractor.FieldAmount] = m[1]
		res.Confidence *= 0.9
	}
}

func (e *Extractor) scrapeDate(text string, res *extractor.Result) {
	if m := dateRe.FindString(text); m != "" {
		res.Fields[extractor.FieldDate] = m
	}
}

// scrapeVendor prefers an explicit vendor label, then the check payee line,
// then the first line of the document, which is where invoices put the
// letterhead.
func (e *Extractor) scrapeVendor(text string, res *extractor.Result) {
	for _, line := range strings.Split(text, "\n") {
		if m := vendorLineRe.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			res.Fields[extractor.FieldVendor] = strings.TrimSpace(m[1])
			return
		}
	}
	if payee, ok := res.Fields[extractor.FieldPayee]; ok {
		res.Fields[extractor.FieldVendor] = payee
		return
	}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) >= 3 && !dateRe.MatchString(line) && !strings.ContainsAny(line, "$") {
			res.Fields[extractor.FieldVendor] = line
			res.Confidence *= 0.9
			return
		}
	}
}

// printable reports whether the content looks like text rather than a
// binary blob. A small share of control bytes is tolerated; scanned PDFs
// and images fail here and belong to the vision extractor.
func printable(s string) bool {
	if s == "" {
		return false
	}
	control := 0
	for _, r := range s {
		if r == 0xFFFD || (r < 0x20 && r != '\n' && r != '\r' && r != '\t') {
			control++
		}
	}
	return float64(control)/float64(len(s)) < 0.05
}
