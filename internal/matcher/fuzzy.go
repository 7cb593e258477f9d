package matcher

import (
	"ledgermatch/internal/dateutils"
	"ledgermatch/internal/models"
	"ledgermatch/internal/textutils"
)

// Fuzzy score weights: amount identity dominates, text similarity carries
// the identification, date proximity breaks the remainder.
const (
	fuzzyAmountWeight = 0.4
	fuzzyDateWeight   = 0.2
	fuzzyTextWeight   = 0.4
)

// fuzzyStrategy matches identical amounts within the fuzzy date window,
// scored by description similarity and date proximity. The threshold gates
// what counts as a candidate at all; auto-confirmation is the engine's call.
type fuzzyStrategy struct {
	window    int
	threshold float64
}

func (s *fuzzyStrategy) Name() models.MatchType { return models.MatchFuzzy }

func (s *fuzzyStrategy) Match(line *models.StatementTransaction, pool []*models.BookTransaction) []Candidate {
	var candidates []Candidate
	for _, txn := range pool {
		if !eligible(line, txn) {
			continue
		}
		if amountDiff(line, txn).GreaterThanOrEqual(amountCent) {
			continue
		}
		dist := dateutils.DayDistance(line.PostedDate, txn.Date)
		if dist > s.window {
			continue
		}

		dateScore := 1.0 - float64(dist)/float64(s.window+1)
		textScore := textutils.Similarity(line.Description, txn.Description)
		// Statement descriptions often carry only the vendor name.
		if vendorScore := textutils.Similarity(line.Description, txn.Vendor); vendorScore > textScore {
			textScore = vendorScore
		}

		score := fuzzyAmountWeight + fuzzyDateWeight*dateScore + fuzzyTextWeight*textScore
		if score < s.threshold {
			continue
		}
		candidates = append(candidates, Candidate{
			Txn:              txn,
			Score:            score,
			AmountDifference: amountDiff(line, txn),
		})
	}
	sortCandidates(candidates)
	return candidates
}
