// Package normalize turns raw extractor output into canonical transactions.
// All parsing ambiguity is surfaced here: a value that could be read two
// ways is flagged for review, never guessed.
package normalize

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ledgermatch/internal/currencyutils"
	"ledgermatch/internal/dateutils"
	"ledgermatch/internal/extractor"
	"ledgermatch/internal/logging"
	"ledgermatch/internal/models"
	"ledgermatch/internal/reconerror"
	"ledgermatch/internal/vendors"
)

// requiredFields is the per-type completeness contract. Statement types are
// scored on their lines instead.
var requiredFields = map[models.DocumentType][]string{
	models.DocTypeInvoice:         {extractor.FieldDate, extractor.FieldAmount, extractor.FieldVendor},
	models.DocTypeReceipt:         {extractor.FieldDate, extractor.FieldAmount, extractor.FieldVendor},
	models.DocTypeCheckImage:      {extractor.FieldDate, extractor.FieldAmount, extractor.FieldPayee},
	models.DocTypeHandwrittenNote: {extractor.FieldDate, extractor.FieldAmount},
	models.DocTypeSalesReport:     {extractor.FieldTotal, extractor.FieldPeriodEnd},
}

// Output is everything normalization derived from one document.
type Output struct {
	Transactions []models.BookTransaction
	Lines        []models.StatementTransaction

	// Completeness is present-over-required for the document type.
	Completeness float64
	// ReviewReasons collects ambiguity and quality flags. A non-empty list
	// routes the document to needs_review regardless of scores.
	ReviewReasons []string

	Vendor   string
	Category string
}

func (o *Output) flag(reason string) {
	for _, r := range o.ReviewReasons {
		if r == reason {
			return
		}
	}
	o.ReviewReasons = append(o.ReviewReasons, reason)
}

// Normalizer canonicalizes extracted fields and builds transactions.
type Normalizer struct {
	vendors *vendors.Registry
	logger  logging.Logger
}

func New(registry *vendors.Registry, logger logging.Logger) *Normalizer {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Normalizer{
		vendors: registry,
		logger:  logger.WithField("component", "normalize.Normalizer"),
	}
}

// Normalize converts an extraction result for a document of the given type
// into canonical transactions. Statement documents yield statement lines;
// everything else yields book transactions.
func (n *Normalizer) Normalize(docType models.DocumentType, accountID, documentID string, res *extractor.Result) (*Output, error) {
	if res == nil {
		return nil, &reconerror.ValidationError{Field: "result", Reason: "extraction result is nil"}
	}

	switch docType {
	case models.DocTypeBankStatement, models.DocTypeCreditCardStatement:
		return n.normalizeStatement(accountID, documentID, res)
	case models.DocTypeSalesReport:
		return n.normalizeSalesReport(accountID, documentID, res)
	case models.DocTypeInvoice, models.DocTypeReceipt, models.DocTypeCheckImage, models.DocTypeHandwrittenNote:
		return n.normalizeSingle(docType, accountID, documentID, res)
	default:
		return nil, &reconerror.ValidationError{Field: "document_type", Value: string(docType), Reason: "no normalization for this type"}
	}
}

// normalizeSingle handles one-transaction documents: invoices, receipts,
// checks and handwritten notes, all outgoing.
func (n *Normalizer) normalizeSingle(docType models.DocumentType, accountID, documentID string, res *extractor.Result) (*Output, error) {
	out := &Output{}
	out.Completeness = completeness(docType, res)

	rawAmount := firstField(res, extractor.FieldAmount, extractor.FieldTotal)
	amount, ok := n.parseAmount(rawAmount, out)
	if !ok {
		out.flag(models.ReasonIncomplete)
		return out, nil
	}
	if amount.IsNegative() {
		// A parenthesized or signed amount on a single-transaction document
		// is usually a credit memo or refund. Keep the magnitude and let a
		// reviewer settle the side.
		amount = amount.Abs()
		out.flag(models.ReasonNegativeAmount)
	}

	date, ok := n.parseDate(res.Fields[extractor.FieldDate], out)
	if !ok {
		out.flag(models.ReasonIncomplete)
		return out, nil
	}

	rawVendor := firstField(res, extractor.FieldVendor, extractor.FieldPayee)
	vendor, category := n.resolveVendor(rawVendor)
	out.Vendor = vendor
	out.Category = category

	description := res.Fields[extractor.FieldDescription]
	if description == "" {
		description = buildDescription(docType, res, vendor)
	}

	txn, err := models.NewTransactionBuilder().
		AsOutgoing().
		WithAccount(accountID).
		WithVendor(vendor).
		WithAmount(amount).
		WithDate(date).
		WithDescription(description).
		WithCategory(category).
		WithDocument(documentID).
		Build()
	if err != nil {
		return nil, &reconerror.ValidationError{Field: "transaction", Reason: err.Error()}
	}

	out.Transactions = append(out.Transactions, txn)
	return out, nil
}

// normalizeStatement converts raw lines into statement transactions. Lines
// that fail to parse are dropped with a review flag; one bad line must not
// sink the rest of the statement.
func (n *Normalizer) normalizeStatement(accountID, documentID string, res *extractor.Result) (*Output, error) {
	out := &Output{}
	if len(res.Lines) == 0 {
		out.flag(models.ReasonIncomplete)
		return out, nil
	}

	parsed := 0
	for _, raw := range res.Lines {
		amount, ok := n.parseAmount(raw.Amount, out)
		if !ok {
			continue
		}

		rawDate := raw.PostedDate
		if rawDate == "" {
			rawDate = raw.Date
		}
		date, ok := n.parseDate(rawDate, out)
		if !ok {
			continue
		}

		direction := models.Direction(raw.Direction)
		if direction != models.DirectionDebit && direction != models.DirectionCredit {
			// Undeclared direction falls back to the amount sign.
			if amount.IsNegative() {
				direction = models.DirectionDebit
			} else {
				direction = models.DirectionCredit
			}
		}

		out.Lines = append(out.Lines, models.StatementTransaction{
			ID:          uuid.New().String(),
			AccountID:   accountID,
			PostedDate:  date,
			Description: strings.TrimSpace(raw.Description),
			Amount:      currencyutils.Canonical(amount.Abs()),
			Direction:   direction,
			DocumentID:  documentID,
			CreatedAt:   time.Now().UTC(),
		})
		parsed++
	}

	out.Completeness = float64(parsed) / float64(len(res.Lines))
	if parsed == 0 {
		out.flag(models.ReasonGarbledContent)
	}
	return out, nil
}

// normalizeSalesReport produces one incoming transaction for the reporting
// period, preferring the report's own total over a recomputed sum.
func (n *Normalizer) normalizeSalesReport(accountID, documentID string, res *extractor.Result) (*Output, error) {
	out := &Output{}
	out.Completeness = completeness(models.DocTypeSalesReport, res)

	total, totalOK := n.parseAmount(firstField(res, extractor.FieldTotal, extractor.FieldAmount), out)
	if !totalOK && len(res.Lines) > 0 {
		sum := decimal.Zero
		summed := 0
		for _, raw := range res.Lines {
			amount, ok := n.parseAmount(raw.Amount, out)
			if !ok {
				continue
			}
			sum = sum.Add(amount.Abs())
			summed++
		}
		if summed > 0 {
			total, totalOK = sum, true
		}
	}
	if !totalOK {
		out.flag(models.ReasonIncomplete)
		return out, nil
	}

	rawDate := firstField(res, extractor.FieldPeriodEnd, extractor.FieldDate)
	date, ok := n.parseDate(rawDate, out)
	if !ok {
		out.flag(models.ReasonIncomplete)
		return out, nil
	}

	description := res.Fields[extractor.FieldDescription]
	if description == "" {
		description = "Sales deposit"
		if start := res.Fields[extractor.FieldPeriodStart]; start != "" {
			description = fmt.Sprintf("Sales deposit %s to %s", start, rawDate)
		}
	}

	txn, err := models.NewTransactionBuilder().
		AsIncoming().
		WithAccount(accountID).
		WithAmount(total.Abs()).
		WithDate(date).
		WithDescription(description).
		WithCategory("sales").
		WithDocument(documentID).
		Build()
	if err != nil {
		return nil, &reconerror.ValidationError{Field: "transaction", Reason: err.Error()}
	}

	out.Transactions = append(out.Transactions, txn)
	return out, nil
}

func (n *Normalizer) parseAmount(raw string, out *Output) (decimal.Decimal, bool) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, false
	}
	amount, ambiguous, err := currencyutils.ParseAmount(raw)
	if err != nil {
		out.flag(models.ReasonGarbledContent)
		return decimal.Zero, false
	}
	if ambiguous {
		out.flag(models.ReasonAmbiguousAmount)
	}
	return amount, true
}

func (n *Normalizer) parseDate(raw string, out *Output) (time.Time, bool) {
	if strings.TrimSpace(raw) == "" {
		return time.Time{}, false
	}
	date, ambiguous, err := dateutils.ParseDate(raw)
	if err != nil {
		out.flag(models.ReasonGarbledContent)
		return time.Time{}, false
	}
	if ambiguous {
		out.flag(models.ReasonAmbiguousDate)
	}
	return date, true
}

// resolveVendor runs a raw vendor string through the registry. Unknown
// vendors keep their cleaned-up raw name with no category.
func (n *Normalizer) resolveVendor(raw string) (name, category string) {
	raw = strings.Join(strings.Fields(raw), " ")
	if raw == "" {
		return "", ""
	}
	if n.vendors != nil {
		if vendor, ok := n.vendors.Resolve(raw); ok {
			return vendor.CanonicalName, vendor.DefaultCategory
		}
	}
	return raw, ""
}

// completeness scores present over required fields for the type. Types
// without a contract score 1.0; their quality gate is confidence.
func completeness(docType models.DocumentType, res *extractor.Result) float64 {
	required := requiredFields[docType]
	if len(required) == 0 {
		return 1.0
	}
	present := 0
	for _, field := range required {
		value := res.Fields[field]
		// Amount and payee style fields have acceptable substitutes.
		if value == "" {
			switch field {
			case extractor.FieldAmount:
				value = res.Fields[extractor.FieldTotal]
			case extractor.FieldTotal:
				value = res.Fields[extractor.FieldAmount]
			case extractor.FieldVendor:
				value = res.Fields[extractor.FieldPayee]
			case extractor.FieldPayee:
				value = res.Fields[extractor.FieldVendor]
			}
		}
		if strings.TrimSpace(value) != "" {
			present++
		}
	}
	return float64(present) / float64(len(required))
}

func firstField(res *extractor.Result, names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(res.Fields[name]); v != "" {
			return v
		}
	}
	return ""
}

func buildDescription(docType models.DocumentType, res *extractor.Result, vendor string) string {
	switch docType {
	case models.DocTypeInvoice:
		if num := res.Fields[extractor.FieldInvoiceNumber]; num != "" {
			return fmt.Sprintf("%s invoice %s", vendor, num)
		}
		return fmt.Sprintf("%s invoice", vendor)
	case models.DocTypeCheckImage:
		if num := res.Fields[extractor.FieldCheckNumber]; num != "" {
			return fmt.Sprintf("Check %s to %s", num, vendor)
		}
		return fmt.Sprintf("Check to %s", vendor)
	}
	return vendor
}
