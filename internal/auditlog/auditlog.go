// Package auditlog is the append-only event ledger and its replay check.
// Every state transition in the system lands here; replaying the ledger
// from the beginning must reproduce the live reconciliation state, which
// makes Verify the cheapest end-to-end consistency probe available.
package auditlog

import (
	"context"
	"fmt"
	"time"

	"ledgermatch/internal/logging"
	"ledgermatch/internal/models"
	"ledgermatch/internal/storage"
)

// Ledger wraps the store's audit surface with typed event constructors.
type Ledger struct {
	store  storage.Store
	logger logging.Logger
	actor  string
}

func New(store storage.Store, actor string, logger logging.Logger) *Ledger {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Ledger{
		store:  store,
		logger: logger.WithField("component", "auditlog.Ledger"),
		actor:  actor,
	}
}

// Record appends one event, filling actor and timestamp when unset. The
// store assigns the sequence number.
func (l *Ledger) Record(ctx context.Context, event *models.AuditEvent) error {
	if event.Actor == "" {
		event.Actor = l.actor
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if err := l.store.AppendAuditEvent(ctx, event); err != nil {
		return fmt.Errorf("recording audit event %s: %w", event.Type, err)
	}
	l.logger.Debug("audit event recorded",
		logging.Field{Key: "seq", Value: event.Seq},
		logging.Field{Key: "type", Value: string(event.Type)})
	return nil
}

// DocumentIngested records a document entering the system.
func (l *Ledger) DocumentIngested(ctx context.Context, doc *models.Document) error {
	return l.Record(ctx, &models.AuditEvent{
		Type:       models.EventDocumentIngested,
		DocumentID: doc.ID,
		Payload: map[string]string{
			"source":        doc.SourceName,
			"declared_type": string(doc.DeclaredType),
			"checksum":      doc.Checksum,
		},
	})
}

// StateChanged records a document status transition.
func (l *Ledger) StateChanged(ctx context.Context, docID string, from, to models.DocumentStatus, reason string) error {
	payload := map[string]string{"from": string(from), "to": string(to)}
	if reason != "" {
		payload["reason"] = reason
	}
	return l.Record(ctx, &models.AuditEvent{
		Type:       models.EventStateChanged,
		DocumentID: docID,
		Payload:    payload,
	})
}

// DuplicateDetected records a fingerprint collision.
func (l *Ledger) DuplicateDetected(ctx context.Context, docID, duplicateOf, fingerprint string) error {
	return l.Record(ctx, &models.AuditEvent{
		Type:       models.EventDuplicateDetected,
		DocumentID: docID,
		Payload: map[string]string{
			"duplicate_of": duplicateOf,
			"fingerprint":  fingerprint,
		},
	})
}

// TransactionCreated records a book transaction or statement line birth.
func (l *Ledger) TransactionCreated(ctx context.Context, docID, entityID, kind string) error {
	return l.Record(ctx, &models.AuditEvent{
		Type:          models.EventTransactionCreated,
		DocumentID:    docID,
		TransactionID: entityID,
		Payload:       map[string]string{"kind": kind},
	})
}

// MatchCreated records a committed reconciliation.
func (l *Ledger) MatchCreated(ctx context.Context, record *models.ReconciliationRecord) error {
	return l.Record(ctx, &models.AuditEvent{
		Type:          models.EventMatchCreated,
		LineID:        record.StatementLineID,
		TransactionID: record.TransactionID,
		RecordID:      record.ID,
		Payload: map[string]string{
			"match_type": string(record.MatchType),
			"confidence": fmt.Sprintf("%.4f", record.Confidence),
			"created_by": record.CreatedBy,
		},
	})
}

// MatchVoided records a voided reconciliation.
func (l *Ledger) MatchVoided(ctx context.Context, record *models.ReconciliationRecord, reason string) error {
	return l.Record(ctx, &models.AuditEvent{
		Type:          models.EventMatchVoided,
		LineID:        record.StatementLineID,
		TransactionID: record.TransactionID,
		RecordID:      record.ID,
		Payload:       map[string]string{"reason": reason},
	})
}

// ReviewResolved records a review confirmation or rejection.
func (l *Ledger) ReviewResolved(ctx context.Context, item *models.ReviewItem, eventType models.AuditEventType, chosenTxn string) error {
	payload := map[string]string{"review_item": item.ID, "resolved_by": item.ResolvedBy}
	if chosenTxn != "" {
		payload["transaction_id"] = chosenTxn
	}
	return l.Record(ctx, &models.AuditEvent{
		Type:          eventType,
		LineID:        item.LineID,
		TransactionID: chosenTxn,
		Payload:       payload,
	})
}

// ManualLink records an operator-made reconciliation outside the queue.
func (l *Ledger) ManualLink(ctx context.Context, record *models.ReconciliationRecord) error {
	return l.Record(ctx, &models.AuditEvent{
		Type:          models.EventManualLink,
		LineID:        record.StatementLineID,
		TransactionID: record.TransactionID,
		RecordID:      record.ID,
		Payload:       map[string]string{"created_by": record.CreatedBy},
	})
}

// SummaryRebuilt records a monthly summary regeneration.
func (l *Ledger) SummaryRebuilt(ctx context.Context, year int, month time.Month) error {
	return l.Record(ctx, &models.AuditEvent{
		Type:    models.EventSummaryRebuilt,
		Payload: map[string]string{"period": fmt.Sprintf("%04d-%02d", year, int(month))},
	})
}
