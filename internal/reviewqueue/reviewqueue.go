// Package reviewqueue is the human adjudication surface: listing pending
// review items and turning operator decisions into reconciliation records.
// Confirm, Reject and ManualLink are per-pair critical sections so two
// reviewers cannot commit the same statement line or transaction twice.
package reviewqueue

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"ledgermatch/internal/auditlog"
	"ledgermatch/internal/logging"
	"ledgermatch/internal/metrics"
	"ledgermatch/internal/models"
	"ledgermatch/internal/reconerror"
	"ledgermatch/internal/storage"
)

const lockStripes = 16

// Queue exposes the review operations over the store.
type Queue struct {
	store  storage.Store
	ledger *auditlog.Ledger
	logger logging.Logger
	locks  [lockStripes]sync.Mutex
}

func New(store storage.Store, ledger *auditlog.Ledger, logger logging.Logger) *Queue {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Queue{
		store:  store,
		ledger: ledger,
		logger: logger.WithField("component", "reviewqueue.Queue"),
	}
}

// List returns review items matching the filter, suggestions already ranked.
func (q *Queue) List(ctx context.Context, filter storage.ReviewFilter) ([]*models.ReviewItem, error) {
	items, err := q.store.ListReviewItems(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("listing review items: %w", err)
	}
	return items, nil
}

// Confirm promotes one suggestion of a pending item to an active record.
func (q *Queue) Confirm(ctx context.Context, itemID, transactionID, reviewer string) (*models.ReconciliationRecord, error) {
	item, err := q.store.GetReviewItem(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("loading review item %s: %w", itemID, err)
	}
	if item.Status != models.ReviewPending {
		return nil, &reconerror.ValidationError{
			Field: "review_item", Value: itemID,
			Reason: fmt.Sprintf("already resolved (%s)", item.Status),
		}
	}
	suggestion, ok := item.SuggestionFor(transactionID)
	if !ok {
		return nil, &reconerror.ValidationError{
			Field: "transaction_id", Value: transactionID,
			Reason: "not among the item's suggestions",
		}
	}

	unlock := q.lockPair(item.LineID, transactionID)
	defer unlock()

	line, txn, err := q.loadPair(ctx, item.LineID, transactionID)
	if err != nil {
		return nil, err
	}

	record := models.NewReconciliationRecord(line, txn, suggestion.Strategy, suggestion.Confidence, reviewer)
	if err := q.store.CommitMatch(ctx, record); err != nil {
		return nil, err
	}

	if err := q.resolveItem(ctx, item, models.ReviewConfirmed, reviewer); err != nil {
		return nil, err
	}

	if q.ledger != nil {
		if err := q.ledger.MatchCreated(ctx, record); err != nil {
			return nil, err
		}
		if err := q.ledger.ReviewResolved(ctx, item, models.EventReviewConfirmed, transactionID); err != nil {
			return nil, err
		}
	}
	metrics.ReviewResolutions.WithLabelValues("confirmed").Inc()

	q.logger.Info("review item confirmed",
		logging.Field{Key: "item", Value: itemID},
		logging.Field{Key: "record", Value: record.ID})
	return record, nil
}

// Reject discards a pending item. Both sides stay unmatched; the line is
// eligible again on the next matcher run.
func (q *Queue) Reject(ctx context.Context, itemID, reviewer string) error {
	item, err := q.store.GetReviewItem(ctx, itemID)
	if err != nil {
		return fmt.Errorf("loading review item %s: %w", itemID, err)
	}
	if item.Status != models.ReviewPending {
		return &reconerror.ValidationError{
			Field: "review_item", Value: itemID,
			Reason: fmt.Sprintf("already resolved (%s)", item.Status),
		}
	}

	item.Suggestions = nil
	if err := q.resolveItem(ctx, item, models.ReviewRejected, reviewer); err != nil {
		return err
	}

	if q.ledger != nil {
		if err := q.ledger.ReviewResolved(ctx, item, models.EventReviewRejected, ""); err != nil {
			return err
		}
	}
	metrics.ReviewResolutions.WithLabelValues("rejected").Inc()
	return nil
}

// ManualLink reconciles a pair directly, bypassing the strategy chain.
// Confidence is 1.0 by definition: a human looked at both sides.
func (q *Queue) ManualLink(ctx context.Context, lineID, transactionID, reviewer string) (*models.ReconciliationRecord, error) {
	unlock := q.lockPair(lineID, transactionID)
	defer unlock()

	line, txn, err := q.loadPair(ctx, lineID, transactionID)
	if err != nil {
		return nil, err
	}
	if !txn.MatchesDirection(line.Direction) {
		return nil, &reconerror.ValidationError{
			Field: "transaction_id", Value: transactionID,
			Reason: fmt.Sprintf("%s transaction cannot reconcile a %s line", txn.Side, line.Direction),
		}
	}

	record := models.NewReconciliationRecord(line, txn, models.MatchManual, 1.0, reviewer)
	if err := q.store.CommitMatch(ctx, record); err != nil {
		return nil, err
	}

	// A pending item for this line is resolved by the manual decision.
	if item, err := q.store.PendingReviewItemForLine(ctx, lineID); err == nil && item != nil {
		if err := q.resolveItem(ctx, item, models.ReviewConfirmed, reviewer); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("checking pending review item for line %s: %w", lineID, err)
	}

	if q.ledger != nil {
		if err := q.ledger.ManualLink(ctx, record); err != nil {
			return nil, err
		}
	}
	metrics.ReviewResolutions.WithLabelValues("manual_link").Inc()

	q.logger.Info("manual link created",
		logging.Field{Key: "line", Value: lineID},
		logging.Field{Key: "transaction", Value: transactionID})
	return record, nil
}

// Relink voids the line's active record and manually links the new target.
// The voided record is retained for audit.
func (q *Queue) Relink(ctx context.Context, lineID, transactionID, reviewer, reason string) (*models.ReconciliationRecord, error) {
	existing, err := q.store.ActiveRecordForLine(ctx, lineID)
	if err != nil {
		return nil, fmt.Errorf("checking active record for line %s: %w", lineID, err)
	}
	if existing != nil {
		if err := q.Void(ctx, existing.ID, reviewer, reason); err != nil {
			return nil, err
		}
	}
	return q.ManualLink(ctx, lineID, transactionID, reviewer)
}

// Void voids an active record, returning both sides to the matching pool.
func (q *Queue) Void(ctx context.Context, recordID, reviewer, reason string) error {
	records, err := q.store.ListRecords(ctx, true)
	if err != nil {
		return fmt.Errorf("loading record %s: %w", recordID, err)
	}
	var record *models.ReconciliationRecord
	for _, r := range records {
		if r.ID == recordID {
			record = r
			break
		}
	}
	if record == nil {
		return storage.ErrNotFound
	}

	unlock := q.lockPair(record.StatementLineID, record.TransactionID)
	defer unlock()

	if err := q.store.VoidRecord(ctx, recordID, reason); err != nil {
		return err
	}
	if q.ledger != nil {
		if err := q.ledger.MatchVoided(ctx, record, reason); err != nil {
			return err
		}
	}
	metrics.ReviewResolutions.WithLabelValues("voided").Inc()
	return nil
}

func (q *Queue) resolveItem(ctx context.Context, item *models.ReviewItem, status models.ReviewStatus, reviewer string) error {
	now := time.Now().UTC()
	item.Status = status
	item.ResolvedBy = reviewer
	item.ResolvedAt = &now
	if err := q.store.UpdateReviewItem(ctx, item); err != nil {
		return fmt.Errorf("resolving review item %s: %w", item.ID, err)
	}
	return nil
}

func (q *Queue) loadPair(ctx context.Context, lineID, transactionID string) (*models.StatementTransaction, *models.BookTransaction, error) {
	line, err := q.store.GetStatementLine(ctx, lineID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading statement line %s: %w", lineID, err)
	}
	txn, err := q.store.GetBookTransaction(ctx, transactionID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading transaction %s: %w", transactionID, err)
	}
	return line, txn, nil
}

// lockPair acquires both stripes for a (line, transaction) pair in index
// order so concurrent reviewers touching the same pair serialize without
// deadlocking.
func (q *Queue) lockPair(lineID, transactionID string) func() {
	a := stripe(lineID)
	b := stripe(transactionID)
	if a > b {
		a, b = b, a
	}
	q.locks[a].Lock()
	if b != a {
		q.locks[b].Lock()
	}
	return func() {
		if b != a {
			q.locks[b].Unlock()
		}
		q.locks[a].Unlock()
	}
}

func stripe(id string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return h.Sum32() & (lockStripes - 1)
}
