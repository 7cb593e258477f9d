package matcher

import (
	"ledgermatch/internal/dateutils"
	"ledgermatch/internal/models"
)

// exactStrategy matches identical amounts on dates within the exact window
// (same day by default). Confidence is always 1.0 and the match is
// auto-confirmed unless tied.
type exactStrategy struct {
	window int
}

func (s *exactStrategy) Name() models.MatchType { return models.MatchExact }

func (s *exactStrategy) Match(line *models.StatementTransaction, pool []*models.BookTransaction) []Candidate {
	var candidates []Candidate
	for _, txn := range pool {
		if !eligible(line, txn) {
			continue
		}
		if amountDiff(line, txn).GreaterThanOrEqual(amountCent) {
			continue
		}
		if dateutils.DayDistance(line.PostedDate, txn.Date) > s.window {
			continue
		}
		candidates = append(candidates, Candidate{
			Txn:              txn,
			Score:            1.0,
			AmountDifference: amountDiff(line, txn),
		})
	}
	sortCandidates(candidates)
	return candidates
}
