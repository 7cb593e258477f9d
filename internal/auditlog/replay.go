package auditlog

import (
	"context"
	"fmt"
	"time"

	"ledgermatch/internal/logging"
	"ledgermatch/internal/models"
)

var zeroTime time.Time

// State is the reconciliation state derived by folding the ledger. It
// covers exactly what the ledger can prove: which lines are matched, which
// records are active and where each book transaction stands.
type State struct {
	// LineRecord maps a matched statement line to its active record ID.
	LineRecord map[string]string
	// TxnStatus holds the derived status for every transaction the ledger
	// has touched. Untouched transactions are implicitly unreconciled.
	TxnStatus map[string]models.ReconciliationStatus
	// ActiveRecords maps active record IDs to their line ID.
	ActiveRecords map[string]string
	// LastSeq is the highest sequence folded.
	LastSeq int64
}

func newState() *State {
	return &State{
		LineRecord:    make(map[string]string),
		TxnStatus:     make(map[string]models.ReconciliationStatus),
		ActiveRecords: make(map[string]string),
	}
}

// Replay folds every ledger event in sequence order from an empty state.
func (l *Ledger) Replay(ctx context.Context) (*State, error) {
	events, err := l.store.ListAuditEvents(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("replaying ledger: %w", err)
	}

	state := newState()
	for _, event := range events {
		if event.Seq <= state.LastSeq {
			return nil, fmt.Errorf("ledger sequence not strictly increasing at seq %d", event.Seq)
		}
		state.LastSeq = event.Seq
		state.fold(event)
	}
	return state, nil
}

func (s *State) fold(event *models.AuditEvent) {
	switch event.Type {
	case models.EventMatchCreated, models.EventManualLink:
		s.LineRecord[event.LineID] = event.RecordID
		s.ActiveRecords[event.RecordID] = event.LineID
		if event.Payload["match_type"] == string(models.MatchManual) || event.Type == models.EventManualLink {
			s.TxnStatus[event.TransactionID] = models.ReconManual
		} else {
			s.TxnStatus[event.TransactionID] = models.ReconMatched
		}
	case models.EventMatchVoided:
		delete(s.ActiveRecords, event.RecordID)
		if s.LineRecord[event.LineID] == event.RecordID {
			delete(s.LineRecord, event.LineID)
		}
		s.TxnStatus[event.TransactionID] = models.ReconUnreconciled
	case models.EventDisputed:
		if event.TransactionID != "" {
			s.TxnStatus[event.TransactionID] = models.ReconDisputed
		}
	}
}

// Divergence is one disagreement between the derived and the live state.
type Divergence struct {
	Entity string
	ID     string
	Detail string
}

func (d Divergence) String() string {
	return fmt.Sprintf("%s %s: %s", d.Entity, d.ID, d.Detail)
}

// Verify replays the ledger and compares the derived state against the live
// store. An empty result means the ledger fully explains the current books.
func (l *Ledger) Verify(ctx context.Context) ([]Divergence, error) {
	state, err := l.Replay(ctx)
	if err != nil {
		return nil, err
	}

	var divergences []Divergence

	records, err := l.store.ListRecords(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("verifying ledger: %w", err)
	}
	liveActive := make(map[string]*models.ReconciliationRecord, len(records))
	for _, record := range records {
		liveActive[record.ID] = record
		if _, ok := state.ActiveRecords[record.ID]; !ok {
			divergences = append(divergences, Divergence{
				Entity: "record", ID: record.ID,
				Detail: "active in store but never committed in ledger",
			})
		}
	}
	for recordID, lineID := range state.ActiveRecords {
		if _, ok := liveActive[recordID]; !ok {
			divergences = append(divergences, Divergence{
				Entity: "record", ID: recordID,
				Detail: fmt.Sprintf("ledger says active for line %s but store disagrees", lineID),
			})
		}
	}

	lines, err := l.store.ListStatementLines(ctx, "", zeroTime, zeroTime)
	if err != nil {
		return nil, fmt.Errorf("verifying ledger: %w", err)
	}
	for _, line := range lines {
		_, derivedMatched := state.LineRecord[line.ID]
		if line.Matched != derivedMatched {
			divergences = append(divergences, Divergence{
				Entity: "line", ID: line.ID,
				Detail: fmt.Sprintf("store matched=%t, ledger derives %t", line.Matched, derivedMatched),
			})
		}
	}

	txns, err := l.store.ListBookTransactions(ctx, "", zeroTime, zeroTime)
	if err != nil {
		return nil, fmt.Errorf("verifying ledger: %w", err)
	}
	for _, txn := range txns {
		derived, touched := state.TxnStatus[txn.ID]
		if !touched {
			derived = models.ReconUnreconciled
		}
		if txn.Status != derived {
			divergences = append(divergences, Divergence{
				Entity: "transaction", ID: txn.ID,
				Detail: fmt.Sprintf("store status=%s, ledger derives %s", txn.Status, derived),
			})
		}
	}

	if len(divergences) > 0 {
		l.logger.Warn("ledger verification found divergences",
			logging.Field{Key: "count", Value: len(divergences)})
	}
	return divergences, nil
}
