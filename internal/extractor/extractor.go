// Package extractor defines the extraction contract and the registry that
// dispatches document content to a format-specific extractor. Extractors are
// pure functions over bytes: all file and store I/O belongs to the caller.
package extractor

import (
	"context"

	"ledgermatch/internal/models"
)

// Well-known field names extractors emit. Normalization keys off these.
const (
	FieldDate          = "date"
	FieldAmount        = "amount"
	FieldVendor        = "vendor"
	FieldDescription   = "description"
	FieldTotal         = "total"
	FieldInvoiceNumber = "invoice_number"
	FieldCheckNumber   = "check_number"
	FieldPayee         = "payee"
	FieldAccount       = "account"
	FieldPeriodStart   = "period_start"
	FieldPeriodEnd     = "period_end"
)

// RawLine is one statement or report line as the extractor saw it, before
// any type validation. All values are raw strings; the normalizer owns
// parsing and canonicalization.
type RawLine struct {
	Date        string
	PostedDate  string
	Description string
	Amount      string
	Direction   string
}

// Result is what an extractor produces from document bytes. Confidence is
// the extractor's self-reported quality signal: 1.0-ish for deterministic
// structured formats, lower for scraped or recognized content.
type Result struct {
	Fields     map[string]string
	Lines      []RawLine
	RawText    string
	Confidence float64
	Warnings   []string
}

// NewResult returns an empty result with an initialized field map.
func NewResult(confidence float64) *Result {
	return &Result{
		Fields:     make(map[string]string),
		Confidence: confidence,
	}
}

// Warn appends a warning to the result.
func (r *Result) Warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
}

// Extractor turns document bytes into a Result. Implementations must not
// panic on garbage content and must not perform I/O beyond the given bytes.
type Extractor interface {
	// Name identifies the extractor in logs and audit payloads.
	Name() string

	// Extract produces structured fields and/or raw lines from content.
	// A failure to find anything usable is an error; the registry turns it
	// into a degraded zero-confidence result rather than propagating it.
	Extract(ctx context.Context, content []byte) (*Result, error)
}

// Priors are the per-document-type extraction confidence baselines. An
// extractor's self-reported confidence is scaled by the prior of the type it
// was dispatched for, so a clean CSV parse still outranks a clean
// handwriting transcription.
var Priors = map[models.DocumentType]float64{
	models.DocTypeBankStatement:       0.90,
	models.DocTypeCreditCardStatement: 0.90,
	models.DocTypeSalesReport:         0.95,
	models.DocTypeInvoice:             0.75,
	models.DocTypeReceipt:             0.75,
	models.DocTypeCheckImage:          0.70,
	models.DocTypeHandwrittenNote:     0.40,
}

// PriorFor returns the confidence prior for a document type, defaulting to a
// conservative baseline for types with no entry.
func PriorFor(docType models.DocumentType) float64 {
	if p, ok := Priors[docType]; ok {
		return p
	}
	return 0.5
}
