// Package matcher pairs statement lines with book transactions. Strategies
// run in fixed priority order and the first one that produces a decision for
// a line ends the chain; a book transaction consumed by a committed match
// leaves the pool for the rest of the batch.
package matcher

import (
	"sort"

	"github.com/shopspring/decimal"

	"ledgermatch/internal/models"
)

// Config carries the matching thresholds and date windows. Values come from
// the application configuration; the zero value is unusable on purpose.
type Config struct {
	FuzzyThreshold       float64
	AutoConfirmThreshold float64
	// AmountTolerance is a fraction of the statement amount.
	AmountTolerance float64
	ExactDateWindow int
	FuzzyDateWindow int
	DateOnlyWindow  int
	TieMargin       float64
}

// Candidate is one scored pairing of the line under consideration with a
// book transaction.
type Candidate struct {
	Txn              *models.BookTransaction
	Score            float64
	AmountDifference decimal.Decimal
}

// Strategy proposes candidates for one statement line from the available
// pool. Implementations must not mutate the pool.
type Strategy interface {
	Name() models.MatchType
	Match(line *models.StatementTransaction, pool []*models.BookTransaction) []Candidate
}

// decision is what the chain produced for one line.
type decision struct {
	strategy   models.MatchType
	candidates []Candidate
	auto       bool
	reason     string
}

// amountCent is the equality margin for "identical" amounts.
var amountCent = decimal.NewFromFloat(0.01)

// eligible is the common pool filter: direction compatibility and the
// unreconciled status both strategies assume.
func eligible(line *models.StatementTransaction, txn *models.BookTransaction) bool {
	return txn.Unreconciled() && txn.MatchesDirection(line.Direction)
}

// sortCandidates orders by score descending, transaction ID as a
// deterministic tiebreak.
func sortCandidates(candidates []Candidate) {
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Txn.ID < candidates[j].Txn.ID
	})
}

func amountDiff(line *models.StatementTransaction, txn *models.BookTransaction) decimal.Decimal {
	return line.Amount.Sub(txn.Amount).Abs().Round(2)
}
