package extractor

import (
	"strings"

	"ledgermatch/internal/models"
)

// classifierMinHits is the number of keyword hits a type needs before the
// classifier will claim it. One stray word is not evidence.
const classifierMinHits = 2

// classifierSample bounds how much of the document the classifier reads.
// Type-identifying vocabulary lives in headers and the first page.
const classifierSample = 8 * 1024

// typeKeywords drive classification of documents whose type was not
// declared. Order in classifierPriority breaks hit-count ties: a statement
// mentioning an "invoice" line item is still a statement.
var typeKeywords = map[models.DocumentType][]string{
	models.DocTypeBankStatement: {
		"statement period", "beginning balance", "ending balance",
		"deposits", "withdrawals", "account number", "statement",
	},
	models.DocTypeCreditCardStatement: {
		"credit card", "minimum payment", "payment due", "apr",
		"card ending", "credit limit", "new balance",
	},
	models.DocTypeInvoice: {
		"invoice", "bill to", "due date", "amount due", "invoice number",
		"remit to", "net 30",
	},
	models.DocTypeSalesReport: {
		"sales report", "total sales", "gross sales", "net sales",
		"daily sales", "covers", "register",
	},
	models.DocTypeCheckImage: {
		"pay to the order of", "dollars", "memo", "void after",
	},
	models.DocTypeReceipt: {
		"receipt", "subtotal", "change due", "cashier", "thank you",
	},
}

var classifierPriority = []models.DocumentType{
	models.DocTypeBankStatement,
	models.DocTypeCreditCardStatement,
	models.DocTypeInvoice,
	models.DocTypeSalesReport,
	models.DocTypeCheckImage,
	models.DocTypeReceipt,
}

// Classify guesses the document type from its content by keyword hits.
// Returns false when no type reaches classifierMinHits; callers degrade to
// generic text extraction rather than failing.
func Classify(content []byte) (models.DocumentType, bool) {
	sample := content
	if len(sample) > classifierSample {
		sample = sample[:classifierSample]
	}
	text := strings.ToLower(string(sample))

	best := models.DocumentType("")
	bestHits := 0
	for _, docType := range classifierPriority {
		hits := 0
		for _, kw := range typeKeywords[docType] {
			if strings.Contains(text, kw) {
				hits++
			}
		}
		if hits > bestHits {
			best, bestHits = docType, hits
		}
	}

	if bestHits < classifierMinHits {
		return "", false
	}
	return best, true
}
