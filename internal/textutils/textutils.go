// Package textutils provides vendor-name and description normalization plus
// the text similarity used by fuzzy matching.
package textutils

import (
	"regexp"
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// corporateSuffixes are trailing legal-entity tokens stripped from vendor
// names so "SYSCO FOODS CO" and "Sysco Foods, Inc." resolve to the same
// canonical name. Stripping repeats until no suffix remains.
var corporateSuffixes = map[string]bool{
	"INC":          true,
	"INCORPORATED": true,
	"LLC":          true,
	"LLP":          true,
	"LP":           true,
	"LTD":          true,
	"LIMITED":      true,
	"CORP":         true,
	"CORPORATION":  true,
	"CO":           true,
	"COMPANY":      true,
}

// bankingStopWords are transaction-channel tokens that carry no identity:
// two descriptions should not look similar merely because both say
// "PURCHASE" or "ACH".
var bankingStopWords = map[string]bool{
	"DEBIT":      true,
	"CREDIT":     true,
	"PURCHASE":   true,
	"PAYMENT":    true,
	"TRANSFER":   true,
	"WITHDRAWAL": true,
	"POS":        true,
	"ACH":        true,
}

var nonAlnumRe = regexp.MustCompile(`[^A-Z0-9 ]+`)

// NormalizeVendorName canonicalizes a raw vendor string: uppercase, strip
// punctuation, collapse whitespace, drop trailing corporate suffixes.
func NormalizeVendorName(raw string) string {
	tokens := tokenize(raw)
	for len(tokens) > 1 && corporateSuffixes[tokens[len(tokens)-1]] {
		tokens = tokens[:len(tokens)-1]
	}
	return strings.Join(tokens, " ")
}

// NormalizeDescription canonicalizes a transaction description for matching:
// uppercase, strip punctuation, drop banking stop-words.
func NormalizeDescription(raw string) string {
	tokens := tokenize(raw)
	kept := tokens[:0]
	for _, tok := range tokens {
		if !bankingStopWords[tok] {
			kept = append(kept, tok)
		}
	}
	return strings.Join(kept, " ")
}

// tokenize uppercases, replaces punctuation with spaces and splits.
func tokenize(raw string) []string {
	s := strings.ToUpper(raw)
	s = nonAlnumRe.ReplaceAllString(s, " ")
	return strings.Fields(s)
}

// Similarity scores two descriptions in [0,1]. Both are normalized first;
// the score is the better of the edit-distance ratio and the token overlap,
// with a floor of containmentScore when one normalized string contains the
// other. Empty normalized input scores zero.
func Similarity(a, b string) float64 {
	na := NormalizeDescription(a)
	nb := NormalizeDescription(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}

	score := levenshtein.RatioForStrings([]rune(na), []rune(nb), levenshtein.DefaultOptions)
	if overlap := tokenOverlap(na, nb); overlap > score {
		score = overlap
	}
	if score < containmentScore && isContained(na, nb) {
		score = containmentScore
	}
	return score
}

// containmentScore is the similarity assigned when one description fully
// contains the other. Statement lines often embed the vendor name inside
// processor noise; containment is stronger evidence than the raw edit
// distance suggests.
const containmentScore = 0.85

// minContainmentLen keeps trivial fragments from claiming containment.
const minContainmentLen = 4

func isContained(a, b string) bool {
	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	return len(shorter) >= minContainmentLen && strings.Contains(longer, shorter)
}

// tokenOverlap is the Jaccard index of the two token sets.
func tokenOverlap(a, b string) float64 {
	setA := tokenSet(a)
	setB := tokenSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for tok := range setA {
		if setB[tok] {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

func tokenSet(s string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range strings.Fields(s) {
		set[tok] = true
	}
	return set
}
