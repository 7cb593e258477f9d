package matcher

import (
	"ledgermatch/internal/dateutils"
	"ledgermatch/internal/models"
)

// dateOnlyScore is deliberately weak; a shared date proves very little.
const dateOnlyScore = 0.3

// dateOnlyStrategy is the last resort: same calendar day, direction
// compatible, nothing else in common. It only speaks up when exactly one
// candidate booked that day; two candidates on a date is no signal at all.
type dateOnlyStrategy struct {
	window int
}

func (s *dateOnlyStrategy) Name() models.MatchType { return models.MatchDateOnly }

func (s *dateOnlyStrategy) Match(line *models.StatementTransaction, pool []*models.BookTransaction) []Candidate {
	var candidates []Candidate
	for _, txn := range pool {
		if !eligible(line, txn) {
			continue
		}
		if dateutils.DayDistance(line.PostedDate, txn.Date) > s.window {
			continue
		}
		candidates = append(candidates, Candidate{
			Txn:              txn,
			Score:            dateOnlyScore,
			AmountDifference: amountDiff(line, txn),
		})
	}
	if len(candidates) != 1 {
		return nil
	}
	return candidates
}
