package matcher

import (
	"github.com/shopspring/decimal"

	"ledgermatch/internal/dateutils"
	"ledgermatch/internal/models"
)

// Tolerance scores stay well below any auto-confirm threshold: an amount
// mismatch is a material discrepancy a human has to sign off on.
const (
	toleranceBaseScore = 0.4
	toleranceSpanScore = 0.35
)

// toleranceStrategy matches amounts within a percentage tolerance of the
// statement amount, date within the fuzzy window. Covers fee deductions and
// rounding drift. Never auto-confirmed.
type toleranceStrategy struct {
	tolerance float64
	window    int
}

func (s *toleranceStrategy) Name() models.MatchType { return models.MatchAmountOnly }

func (s *toleranceStrategy) Match(line *models.StatementTransaction, pool []*models.BookTransaction) []Candidate {
	if s.tolerance <= 0 {
		return nil
	}
	limit := line.Amount.Mul(decimal.NewFromFloat(s.tolerance))
	if limit.LessThan(amountCent) {
		return nil
	}

	var candidates []Candidate
	for _, txn := range pool {
		if !eligible(line, txn) {
			continue
		}
		diff := amountDiff(line, txn)
		if diff.GreaterThan(limit) {
			continue
		}
		if dateutils.DayDistance(line.PostedDate, txn.Date) > s.window {
			continue
		}

		closeness, _ := decimal.NewFromInt(1).Sub(diff.Div(limit)).Float64()
		candidates = append(candidates, Candidate{
			Txn:              txn,
			Score:            toleranceBaseScore + toleranceSpanScore*closeness,
			AmountDifference: diff,
		})
	}
	sortCandidates(candidates)
	return candidates
}
