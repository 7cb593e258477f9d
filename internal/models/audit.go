package models

import "time"

// AuditEventType enumerates everything the audit ledger records.
type AuditEventType string

const (
	EventDocumentIngested  AuditEventType = "document_ingested"
	EventStateChanged      AuditEventType = "state_changed"
	EventDuplicateDetected AuditEventType = "duplicate_detected"
	EventTransactionCreated AuditEventType = "transaction_created"
	EventMatchCreated      AuditEventType = "match_created"
	EventMatchVoided       AuditEventType = "match_voided"
	EventReviewConfirmed   AuditEventType = "review_confirmed"
	EventReviewRejected    AuditEventType = "review_rejected"
	EventManualLink        AuditEventType = "manual_link"
	EventDisputed          AuditEventType = "disputed"
	EventSummaryRebuilt    AuditEventType = "summary_rebuilt"
)

// AuditEvent is one append-only ledger entry. Seq is assigned by the store
// and is strictly increasing; replaying events in Seq order from an empty
// state must reproduce current reconciliation state.
type AuditEvent struct {
	Seq           int64             `json:"seq"`
	Type          AuditEventType    `json:"type"`
	Actor         string            `json:"actor"`
	DocumentID    string            `json:"document_id,omitempty"`
	LineID        string            `json:"line_id,omitempty"`
	TransactionID string            `json:"transaction_id,omitempty"`
	RecordID      string            `json:"record_id,omitempty"`
	Payload       map[string]string `json:"payload,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}
