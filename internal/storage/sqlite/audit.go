package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"ledgermatch/internal/models"
)

func (s *DB) AppendAuditEvent(ctx context.Context, event *models.AuditEvent) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_events (type, actor, document_id, line_id, transaction_id, record_id, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		string(event.Type), event.Actor, event.DocumentID, event.LineID,
		event.TransactionID, event.RecordID, string(payload), formatTime(event.CreatedAt))
	if err != nil {
		return wrapErr("append audit event", err)
	}
	seq, err := res.LastInsertId()
	if err != nil {
		return wrapErr("append audit event", err)
	}
	event.Seq = seq
	return nil
}

func (s *DB) ListAuditEvents(ctx context.Context, fromSeq int64) ([]*models.AuditEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, type, actor, document_id, line_id, transaction_id, record_id, payload, created_at
		FROM audit_events WHERE seq >= ? ORDER BY seq`, fromSeq)
	if err != nil {
		return nil, wrapErr("list audit events", err)
	}
	defer rows.Close()

	var events []*models.AuditEvent
	for rows.Next() {
		event := &models.AuditEvent{}
		var eventType, payload, createdAt string
		if err := rows.Scan(&event.Seq, &eventType, &event.Actor, &event.DocumentID,
			&event.LineID, &event.TransactionID, &event.RecordID, &payload, &createdAt); err != nil {
			return nil, wrapErr("list audit events", err)
		}
		if err := json.Unmarshal([]byte(payload), &event.Payload); err != nil {
			return nil, fmt.Errorf("decoding audit payload: %w", err)
		}
		event.Type = models.AuditEventType(eventType)
		event.CreatedAt = parseTime(createdAt)
		events = append(events, event)
	}
	return events, wrapErr("list audit events", rows.Err())
}
