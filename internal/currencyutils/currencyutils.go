// Package currencyutils provides amount parsing and formatting shared by the
// extractors and the normalizer.
package currencyutils

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var log = logrus.New()

// SetLogger sets a custom logger for this package
func SetLogger(logger *logrus.Logger) {
	if logger != nil {
		log = logger
	}
}

var symbolRe = regexp.MustCompile(`[€$£¥₣₤₧₹₺₽₩฿₫₲₴₸₼₪\s]|(?i)\b(USD|EUR|GBP|CHF|CAD)\b`)

// ParseAmount parses a raw amount string into a decimal value.
//
// It strips currency symbols and whitespace, treats parentheses as negation,
// and resolves separators: when both '.' and ',' appear, the rightmost one is
// the decimal separator. A value like "1,234" or "1.234" that reads
// differently under US and European conventions parses under the US reading
// and returns ambiguous=true so callers can route it to review instead of
// silently trusting the guess.
func ParseAmount(raw string) (amount decimal.Decimal, ambiguous bool, err error) {
	if strings.TrimSpace(raw) == "" {
		return decimal.Zero, false, fmt.Errorf("empty amount")
	}

	s := symbolRe.ReplaceAllString(raw, "")
	s = strings.ReplaceAll(s, "'", "")

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSuffix(strings.TrimPrefix(s, "("), ")")
	}
	if strings.HasPrefix(s, "-") {
		negative = !negative
		s = strings.TrimPrefix(s, "-")
	}
	if s == "" {
		return decimal.Zero, false, fmt.Errorf("no digits in amount '%s'", raw)
	}

	hasDot := strings.Contains(s, ".")
	hasComma := strings.Contains(s, ",")

	var canonical string
	switch {
	case hasDot && hasComma:
		// Rightmost separator wins as the decimal point.
		if strings.LastIndex(s, ".") < strings.LastIndex(s, ",") {
			canonical = strings.ReplaceAll(s, ".", "")
			canonical = strings.ReplaceAll(canonical, ",", ".")
		} else {
			canonical = strings.ReplaceAll(s, ",", "")
		}
	case hasDot || hasComma:
		us, usOK := readUS(s)
		eu, euOK := readEuropean(s)
		switch {
		case usOK && euOK && us != eu:
			ambiguous = true
			canonical = us
			log.WithField("amount", raw).Debug("ambiguous amount format, using US reading")
		case usOK:
			canonical = us
		case euOK:
			canonical = eu
		default:
			return decimal.Zero, false, fmt.Errorf("unparseable amount '%s'", raw)
		}
	default:
		canonical = s
	}

	amount, parseErr := decimal.NewFromString(canonical)
	if parseErr != nil {
		return decimal.Zero, false, fmt.Errorf("failed to parse amount '%s': %w", raw, parseErr)
	}
	if negative {
		amount = amount.Neg()
	}
	return amount, ambiguous, nil
}

// readUS interprets '.' as the decimal separator and ',' as a thousands
// separator. Returns the canonical form and whether the reading is valid.
func readUS(s string) (string, bool) {
	intPart, fracPart := s, ""
	if i := strings.Index(s, "."); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
		if strings.ContainsAny(fracPart, ".,") {
			return "", false
		}
	}
	if strings.Contains(intPart, ",") && !validGroups(strings.Split(intPart, ",")) {
		return "", false
	}
	intPart = strings.ReplaceAll(intPart, ",", "")
	if fracPart == "" {
		return intPart, intPart != ""
	}
	return intPart + "." + fracPart, true
}

// readEuropean interprets ',' as the decimal separator and '.' as a
// thousands separator.
func readEuropean(s string) (string, bool) {
	intPart, fracPart := s, ""
	if i := strings.Index(s, ","); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
		if strings.ContainsAny(fracPart, ".,") {
			return "", false
		}
	}
	if strings.Contains(intPart, ".") && !validGroups(strings.Split(intPart, ".")) {
		return "", false
	}
	intPart = strings.ReplaceAll(intPart, ".", "")
	if fracPart == "" {
		return intPart, intPart != ""
	}
	return intPart + "." + fracPart, true
}

// validGroups checks thousands grouping: the first group has 1 to 3 digits,
// every following group exactly 3.
func validGroups(groups []string) bool {
	for i, g := range groups {
		if i == 0 {
			if len(g) == 0 || len(g) > 3 {
				return false
			}
			continue
		}
		if len(g) != 3 {
			return false
		}
	}
	return len(groups) > 1
}

// Canonical rounds an amount to the two-decimal form stored everywhere in
// the books.
func Canonical(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// FormatAmount renders an amount for CLI output, two decimal places with an
// optional currency code prefix.
func FormatAmount(amount decimal.Decimal, currency string) string {
	formatted := amount.StringFixed(2)
	if currency == "" {
		return formatted
	}
	switch strings.ToUpper(currency) {
	case "USD":
		return "$" + formatted
	case "EUR":
		return "€" + formatted
	case "GBP":
		return "£" + formatted
	default:
		return currency + " " + formatted
	}
}
