package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// fingerprintTokenLimit bounds how much of the description participates in
// the duplicate key. Trailing reference numbers and page noise past this
// point vary between re-scans of the same document.
const fingerprintTokenLimit = 12

// ComputeFingerprint derives the duplicate-detection key for a candidate
// transaction: SHA-256 over source account, two-decimal amount, ISO date and
// a canonicalized description prefix. Two documents producing the same
// fingerprint inside the dedupe window describe the same real-world payment.
func ComputeFingerprint(accountID string, amount decimal.Decimal, date time.Time, description string) string {
	canonical := strings.Join([]string{
		accountID,
		amount.StringFixed(2),
		date.Format("2006-01-02"),
		canonicalDescription(description),
	}, "|")

	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// canonicalDescription uppercases, strips everything but letters, digits and
// spaces, and keeps the first fingerprintTokenLimit tokens.
func canonicalDescription(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToUpper(s) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}

	tokens := strings.Fields(b.String())
	if len(tokens) > fingerprintTokenLimit {
		tokens = tokens[:fingerprintTokenLimit]
	}
	return strings.Join(tokens, " ")
}
