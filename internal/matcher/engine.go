package matcher

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"

	"ledgermatch/internal/auditlog"
	"ledgermatch/internal/logging"
	"ledgermatch/internal/metrics"
	"ledgermatch/internal/models"
	"ledgermatch/internal/reconerror"
	"ledgermatch/internal/storage"
)

// maxSuggestions caps how many ranked candidates a review item carries.
const maxSuggestions = 5

// lockStripes must be a power of two for the mask in stripeFor.
const lockStripes = 16

// MatchReport summarizes one batch run.
type MatchReport struct {
	AccountID   string    `json:"account_id"`
	From        time.Time `json:"from"`
	To          time.Time `json:"to"`
	Lines       int       `json:"lines"`
	AutoMatched int       `json:"auto_matched"`
	SentReview  int       `json:"sent_to_review"`
	Unmatched   int       `json:"unmatched"`
	Cancelled   bool      `json:"cancelled,omitempty"`
}

// Engine runs the strategy chain over batches of unmatched lines. Batches
// for the same account serialize on a striped lock; disjoint accounts run
// concurrently.
type Engine struct {
	store      storage.Store
	ledger     *auditlog.Ledger
	cfg        Config
	strategies []Strategy
	logger     logging.Logger
	locks      [lockStripes]sync.Mutex
}

// NewEngine builds the engine with the standard strategy chain:
// exact, fuzzy, amount-tolerance, date-only.
func NewEngine(store storage.Store, ledger *auditlog.Ledger, cfg Config, logger logging.Logger) *Engine {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Engine{
		store:  store,
		ledger: ledger,
		cfg:    cfg,
		strategies: []Strategy{
			&exactStrategy{window: cfg.ExactDateWindow},
			&fuzzyStrategy{window: cfg.FuzzyDateWindow, threshold: cfg.FuzzyThreshold},
			&toleranceStrategy{tolerance: cfg.AmountTolerance, window: cfg.FuzzyDateWindow},
			&dateOnlyStrategy{window: cfg.DateOnlyWindow},
		},
		logger: logger.WithField("component", "matcher.Engine"),
	}
}

func (e *Engine) stripeFor(accountID string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(accountID))
	return &e.locks[h.Sum32()&(lockStripes-1)]
}

// RunBatch matches all unmatched lines for one account and date range.
// Cancellation stops cleanly: matches already committed stand, the report
// covers what was processed.
func (e *Engine) RunBatch(ctx context.Context, accountID string, from, to time.Time) (*MatchReport, error) {
	if accountID == "" {
		return nil, &reconerror.ValidationError{Field: "account_id", Reason: "batch requires an account"}
	}

	mu := e.stripeFor(accountID)
	mu.Lock()
	defer mu.Unlock()

	report := &MatchReport{AccountID: accountID, From: from, To: to}

	lines, err := e.store.ListUnmatchedLines(ctx, accountID, from, to)
	if err != nil {
		return nil, fmt.Errorf("loading unmatched lines: %w", err)
	}
	report.Lines = len(lines)

	// The candidate pool is padded by the widest window so edge-of-range
	// lines see every transaction a strategy could legally pair them with.
	pad := e.widestWindow()
	poolFrom, poolTo := from, to
	if !poolFrom.IsZero() {
		poolFrom = poolFrom.AddDate(0, 0, -pad)
	}
	if !poolTo.IsZero() {
		poolTo = poolTo.AddDate(0, 0, pad)
	}
	pool, err := e.store.ListUnreconciledTransactions(ctx, accountID, poolFrom, poolTo)
	if err != nil {
		return nil, fmt.Errorf("loading candidate pool: %w", err)
	}

	e.logger.Info("matching batch started",
		logging.Field{Key: "account", Value: accountID},
		logging.Field{Key: "lines", Value: len(lines)},
		logging.Field{Key: "pool", Value: len(pool)})

	for _, line := range lines {
		if ctx.Err() != nil {
			report.Cancelled = true
			break
		}

		dec := e.decide(line, pool)
		if dec == nil {
			report.Unmatched++
			metrics.LinesUnmatched.Inc()
			continue
		}

		if dec.auto {
			committed, err := e.commit(ctx, line, dec)
			if err != nil {
				return report, err
			}
			if committed {
				report.AutoMatched++
				pool = remove(pool, dec.candidates[0].Txn.ID)
				continue
			}
			// Lost a conflict race; the line stays for the next run.
			report.Unmatched++
			continue
		}

		if err := e.sendToReview(ctx, line, dec); err != nil {
			return report, err
		}
		report.SentReview++
		metrics.LinesSentToReview.Inc()
	}

	e.logger.Info("matching batch finished",
		logging.Field{Key: "account", Value: accountID},
		logging.Field{Key: "auto_matched", Value: report.AutoMatched},
		logging.Field{Key: "sent_to_review", Value: report.SentReview},
		logging.Field{Key: "unmatched", Value: report.Unmatched})
	return report, nil
}

// decide runs the strategy chain for one line. The first strategy with
// candidates owns the decision; ties inside a strategy escalate to review
// with every tied candidate attached.
func (e *Engine) decide(line *models.StatementTransaction, pool []*models.BookTransaction) *decision {
	for _, strategy := range e.strategies {
		candidates := strategy.Match(line, pool)
		if len(candidates) == 0 {
			continue
		}

		if tied := tiedLeaders(candidates, e.cfg.TieMargin); len(tied) > 1 {
			ambErr := &reconerror.AmbiguousMatchError{
				LineID:   line.ID,
				Strategy: string(strategy.Name()),
				Score:    tied[0].Score,
			}
			for _, c := range tied {
				ambErr.CandidateIDs = append(ambErr.CandidateIDs, c.Txn.ID)
			}
			e.logger.Info("ambiguous match escalated to review",
				logging.Field{Key: "line", Value: line.ID},
				logging.Field{Key: "error", Value: ambErr.Error()})
			return &decision{
				strategy:   strategy.Name(),
				candidates: tied,
				reason:     "ambiguous_match",
			}
		}

		auto := false
		switch strategy.Name() {
		case models.MatchExact:
			auto = true
		case models.MatchFuzzy:
			auto = candidates[0].Score >= e.cfg.AutoConfirmThreshold
		}

		reason := models.ReasonLowConfidence
		if strategy.Name() == models.MatchAmountOnly {
			reason = "amount_discrepancy"
		}
		if len(candidates) > maxSuggestions {
			candidates = candidates[:maxSuggestions]
		}
		return &decision{
			strategy:   strategy.Name(),
			candidates: candidates,
			auto:       auto,
			reason:     reason,
		}
	}
	return nil
}

// commit writes the record for an auto-confirmed decision. A conflict from
// a concurrent manual link is survivable; the line simply stays unmatched
// in this batch.
func (e *Engine) commit(ctx context.Context, line *models.StatementTransaction, dec *decision) (bool, error) {
	top := dec.candidates[0]
	record := models.NewReconciliationRecord(line, top.Txn, dec.strategy, top.Score, "matcher")

	err := e.store.CommitMatch(ctx, record)
	if err != nil {
		var conflict *reconerror.ReconciliationConflictError
		if errors.As(err, &conflict) {
			e.logger.Warn("match commit lost to existing record",
				logging.Field{Key: "line", Value: line.ID},
				logging.Field{Key: "existing_record", Value: conflict.ExistingRecordID})
			return false, nil
		}
		return false, fmt.Errorf("committing match for line %s: %w", line.ID, err)
	}

	if e.ledger != nil {
		if err := e.ledger.MatchCreated(ctx, record); err != nil {
			return false, err
		}
	}
	metrics.MatchesCommitted.WithLabelValues(string(dec.strategy)).Inc()
	return true, nil
}

// sendToReview creates or refreshes the line's pending review item. A line
// has at most one pending item; re-running a batch replaces the suggestions
// rather than stacking duplicates.
func (e *Engine) sendToReview(ctx context.Context, line *models.StatementTransaction, dec *decision) error {
	suggestions := make([]models.Suggestion, 0, len(dec.candidates))
	for _, c := range dec.candidates {
		suggestions = append(suggestions, models.Suggestion{
			TransactionID:    c.Txn.ID,
			Side:             c.Txn.Side,
			Strategy:         dec.strategy,
			Confidence:       c.Score,
			AmountDifference: c.AmountDifference,
			Description:      c.Txn.Description,
		})
	}

	existing, err := e.store.PendingReviewItemForLine(ctx, line.ID)
	if err != nil {
		return fmt.Errorf("checking pending review item for line %s: %w", line.ID, err)
	}
	if existing != nil {
		existing.Reason = dec.reason
		existing.Suggestions = suggestions
		if err := e.store.UpdateReviewItem(ctx, existing); err != nil {
			return fmt.Errorf("refreshing review item %s: %w", existing.ID, err)
		}
		return nil
	}

	item := &models.ReviewItem{
		ID:          uuid.New().String(),
		LineID:      line.ID,
		AccountID:   line.AccountID,
		Reason:      dec.reason,
		Suggestions: suggestions,
		Status:      models.ReviewPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := e.store.CreateReviewItem(ctx, item); err != nil {
		return fmt.Errorf("creating review item for line %s: %w", line.ID, err)
	}
	return nil
}

func (e *Engine) widestWindow() int {
	widest := e.cfg.ExactDateWindow
	if e.cfg.FuzzyDateWindow > widest {
		widest = e.cfg.FuzzyDateWindow
	}
	if e.cfg.DateOnlyWindow > widest {
		widest = e.cfg.DateOnlyWindow
	}
	return widest
}

// tiedLeaders returns every candidate within margin of the top score.
// Candidates must already be sorted.
func tiedLeaders(candidates []Candidate, margin float64) []Candidate {
	tied := candidates[:1]
	for _, c := range candidates[1:] {
		if candidates[0].Score-c.Score >= margin {
			break
		}
		tied = candidates[:len(tied)+1]
	}
	return tied
}

func remove(pool []*models.BookTransaction, id string) []*models.BookTransaction {
	for i, txn := range pool {
		if txn.ID == id {
			return append(pool[:i:i], pool[i+1:]...)
		}
	}
	return pool
}
