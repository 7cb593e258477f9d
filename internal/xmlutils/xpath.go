// Package xmlutils provides the XPath helpers the camt statement extractor
// is built on.
package xmlutils

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/xmlpath.v2"
)

// XPath expressions for camt.053 statement entries.
const (
	XPathStatement      = "//BkToCstmrStmt/Stmt"
	XPathIBAN           = "//BkToCstmrStmt/Stmt/Acct/Id/IBAN"
	XPathAmount         = "//Ntry/Amt"
	XPathCurrency       = "//Ntry/Amt/@Ccy"
	XPathCreditDebitInd = "//Ntry/CdtDbtInd" // #nosec G101 -- XPath expression, not credentials
	XPathBookingDate    = "//Ntry/BookgDt/Dt"
	XPathValueDate      = "//Ntry/ValDt/Dt"
	XPathRemittanceInfo = "//Ntry/NtryDtls/TxDtls/RmtInf/Ustrd"
	XPathAddEntryInfo   = "//Ntry/AddtlNtryInf"
	XPathDebtorName     = "//Ntry/NtryDtls/TxDtls/RltdPties/Dbtr/Nm"
	XPathCreditorName   = "//Ntry/NtryDtls/TxDtls/RltdPties/Cdtr/Nm"
)

// ParseXML parses XML bytes into an xmlpath root node.
func ParseXML(content []byte) (*xmlpath.Node, error) {
	root, err := xmlpath.Parse(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}
	return root, nil
}

// ExtractFromXML extracts all values matching an XPath expression.
func ExtractFromXML(root *xmlpath.Node, xpath string) ([]string, error) {
	path, err := xmlpath.Compile(xpath)
	if err != nil {
		return nil, fmt.Errorf("failed to compile XPath: %w", err)
	}

	var values []string
	iter := path.Iter(root)
	for iter.Next() {
		values = append(values, iter.Node().String())
	}
	return values, nil
}

// Exists reports whether an XPath expression matches anything under root.
func Exists(root *xmlpath.Node, xpath string) bool {
	path, err := xmlpath.Compile(xpath)
	if err != nil {
		return false
	}
	return path.Iter(root).Next()
}

// GetOrEmpty returns slice[index] or an empty string when out of bounds.
// camt files omit optional elements, so the parallel value slices extracted
// per entry are not guaranteed to be the same length.
func GetOrEmpty(slice []string, index int) string {
	if index < len(slice) {
		return slice[index]
	}
	return ""
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	ibanRe       = regexp.MustCompile(`\b[A-Z]{2}[0-9]{2}[A-Z0-9]{4}[0-9]{7}([A-Z0-9]?){0,16}\b`)
)

// CleanText collapses whitespace and strips IBAN noise from XML text
// content so descriptions read like statement lines, not markup.
func CleanText(text string) string {
	text = whitespaceRe.ReplaceAllString(strings.TrimSpace(text), " ")
	text = ibanRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
