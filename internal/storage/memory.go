package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"ledgermatch/internal/models"
	"ledgermatch/internal/reconerror"
)

// MemoryStore is an in-process Store used by tests and by audit replay,
// which folds the event log into a scratch state. All methods are
// goroutine-safe behind one mutex; this store optimizes for correctness,
// not throughput.
type MemoryStore struct {
	mu sync.Mutex

	documents    map[string]*models.Document
	fingerprints map[string]fingerprintEntry
	accounts     map[string]*models.PaymentAccount
	bookTxns     map[string]*models.BookTransaction
	lines        map[string]*models.StatementTransaction
	records      map[string]*models.ReconciliationRecord
	reviewItems  map[string]*models.ReviewItem
	events       []*models.AuditEvent
	summaries    map[string]*models.MonthlySummary
	nextSeq      int64
}

type fingerprintEntry struct {
	documentID string
	txnDate    time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		documents:    make(map[string]*models.Document),
		fingerprints: make(map[string]fingerprintEntry),
		accounts:     make(map[string]*models.PaymentAccount),
		bookTxns:     make(map[string]*models.BookTransaction),
		lines:        make(map[string]*models.StatementTransaction),
		records:      make(map[string]*models.ReconciliationRecord),
		reviewItems:  make(map[string]*models.ReviewItem),
		summaries:    make(map[string]*models.MonthlySummary),
		nextSeq:      1,
	}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) CreateDocument(_ context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *doc
	s.documents[doc.ID] = &cp
	return nil
}

func (s *MemoryStore) GetDocument(_ context.Context, id string) (*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (s *MemoryStore) UpdateDocument(_ context.Context, doc *models.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[doc.ID]; !ok {
		return ErrNotFound
	}
	cp := *doc
	cp.UpdatedAt = time.Now().UTC()
	s.documents[doc.ID] = &cp
	return nil
}

func (s *MemoryStore) ClaimDocument(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return false, ErrNotFound
	}
	if doc.Status != models.DocStatusPending {
		return false, nil
	}
	doc.Status = models.DocStatusProcessing
	doc.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *MemoryStore) ListDocumentsByStatus(_ context.Context, status models.DocumentStatus, limit int) ([]*models.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Document
	for _, doc := range s.documents {
		if doc.Status == status {
			cp := *doc
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) RecordFingerprint(_ context.Context, fingerprint, documentID string, txnDate time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.fingerprints[fingerprint]; !exists {
		s.fingerprints[fingerprint] = fingerprintEntry{documentID: documentID, txnDate: txnDate}
	}
	return nil
}

func (s *MemoryStore) LookupFingerprint(_ context.Context, fingerprint string, since time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.fingerprints[fingerprint]
	if !ok || entry.txnDate.Before(since) {
		return "", nil
	}
	return entry.documentID, nil
}

func (s *MemoryStore) UpsertAccount(_ context.Context, account *models.PaymentAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *account
	s.accounts[account.ID] = &cp
	return nil
}

func (s *MemoryStore) GetAccount(_ context.Context, id string) (*models.PaymentAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *account
	return &cp, nil
}

func (s *MemoryStore) ListAccounts(_ context.Context) ([]*models.PaymentAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*models.PaymentAccount, 0, len(s.accounts))
	for _, account := range s.accounts {
		cp := *account
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) CreateBookTransaction(_ context.Context, txn *models.BookTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *txn
	s.bookTxns[txn.ID] = &cp
	return nil
}

func (s *MemoryStore) CreateStatementLine(_ context.Context, line *models.StatementTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *line
	s.lines[line.ID] = &cp
	return nil
}

func (s *MemoryStore) GetBookTransaction(_ context.Context, id string) (*models.BookTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	txn, ok := s.bookTxns[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *txn
	return &cp, nil
}

func (s *MemoryStore) GetStatementLine(_ context.Context, id string) (*models.StatementTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	line, ok := s.lines[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *line
	return &cp, nil
}

func (s *MemoryStore) ListUnmatchedLines(_ context.Context, accountID string, from, to time.Time) ([]*models.StatementTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.StatementTransaction
	for _, line := range s.lines {
		if line.Matched || !lineInScope(line, accountID, from, to) {
			continue
		}
		cp := *line
		out = append(out, &cp)
	}
	sortLines(out)
	return out, nil
}

func (s *MemoryStore) ListStatementLines(_ context.Context, accountID string, from, to time.Time) ([]*models.StatementTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.StatementTransaction
	for _, line := range s.lines {
		if !lineInScope(line, accountID, from, to) {
			continue
		}
		cp := *line
		out = append(out, &cp)
	}
	sortLines(out)
	return out, nil
}

func (s *MemoryStore) ListUnreconciledTransactions(_ context.Context, accountID string, from, to time.Time) ([]*models.BookTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.BookTransaction
	for _, txn := range s.bookTxns {
		if txn.Status != models.ReconUnreconciled || !txnInScope(txn, accountID, from, to) {
			continue
		}
		cp := *txn
		out = append(out, &cp)
	}
	sortTxns(out)
	return out, nil
}

func (s *MemoryStore) ListBookTransactions(_ context.Context, accountID string, from, to time.Time) ([]*models.BookTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.BookTransaction
	for _, txn := range s.bookTxns {
		if !txnInScope(txn, accountID, from, to) {
			continue
		}
		cp := *txn
		out = append(out, &cp)
	}
	sortTxns(out)
	return out, nil
}

func (s *MemoryStore) CommitMatch(_ context.Context, record *models.ReconciliationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	line, ok := s.lines[record.StatementLineID]
	if !ok {
		return ErrNotFound
	}
	txn, ok := s.bookTxns[record.TransactionID]
	if !ok {
		return ErrNotFound
	}

	if existing := s.activeForLineLocked(record.StatementLineID); existing != nil {
		return &reconerror.ReconciliationConflictError{
			LineID:           record.StatementLineID,
			TransactionID:    record.TransactionID,
			ExistingRecordID: existing.ID,
		}
	}
	if existing := s.activeForTxnLocked(record.TransactionID); existing != nil {
		return &reconerror.ReconciliationConflictError{
			LineID:           record.StatementLineID,
			TransactionID:    record.TransactionID,
			ExistingRecordID: existing.ID,
		}
	}

	cp := *record
	s.records[record.ID] = &cp
	line.Matched = true
	if record.MatchType == models.MatchManual {
		txn.Status = models.ReconManual
	} else {
		txn.Status = models.ReconMatched
	}
	return nil
}

func (s *MemoryStore) VoidRecord(_ context.Context, recordID, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[recordID]
	if !ok {
		return ErrNotFound
	}
	if !record.Active() {
		return nil
	}
	record.Void(reason)

	if line, ok := s.lines[record.StatementLineID]; ok {
		line.Matched = false
	}
	if txn, ok := s.bookTxns[record.TransactionID]; ok {
		txn.Status = models.ReconUnreconciled
	}
	return nil
}

func (s *MemoryStore) ActiveRecordForLine(_ context.Context, lineID string) (*models.ReconciliationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record := s.activeForLineLocked(lineID); record != nil {
		cp := *record
		return &cp, nil
	}
	return nil, nil
}

func (s *MemoryStore) ActiveRecordForTransaction(_ context.Context, txnID string) (*models.ReconciliationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if record := s.activeForTxnLocked(txnID); record != nil {
		cp := *record
		return &cp, nil
	}
	return nil, nil
}

func (s *MemoryStore) ListRecords(_ context.Context, includeVoided bool) ([]*models.ReconciliationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.ReconciliationRecord
	for _, record := range s.records {
		if !includeVoided && !record.Active() {
			continue
		}
		cp := *record
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) CreateReviewItem(_ context.Context, item *models.ReviewItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *item
	cp.Suggestions = append([]models.Suggestion(nil), item.Suggestions...)
	s.reviewItems[item.ID] = &cp
	return nil
}

func (s *MemoryStore) GetReviewItem(_ context.Context, id string) (*models.ReviewItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.reviewItems[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *item
	cp.Suggestions = append([]models.Suggestion(nil), item.Suggestions...)
	return &cp, nil
}

func (s *MemoryStore) UpdateReviewItem(_ context.Context, item *models.ReviewItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reviewItems[item.ID]; !ok {
		return ErrNotFound
	}
	cp := *item
	cp.Suggestions = append([]models.Suggestion(nil), item.Suggestions...)
	s.reviewItems[item.ID] = &cp
	return nil
}

func (s *MemoryStore) ListReviewItems(_ context.Context, filter ReviewFilter) ([]*models.ReviewItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.ReviewItem
	for _, item := range s.reviewItems {
		if filter.Status != "" && item.Status != filter.Status {
			continue
		}
		if filter.AccountID != "" && item.AccountID != filter.AccountID {
			continue
		}
		if !filter.From.IsZero() && item.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && item.CreatedAt.After(filter.To) {
			continue
		}
		if filter.MinConfidence > 0 {
			top, ok := item.TopSuggestion()
			if !ok || top.Confidence < filter.MinConfidence {
				continue
			}
		}
		cp := *item
		cp.Suggestions = append([]models.Suggestion(nil), item.Suggestions...)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) PendingReviewItemForLine(_ context.Context, lineID string) (*models.ReviewItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.reviewItems {
		if item.LineID == lineID && item.Status == models.ReviewPending {
			cp := *item
			cp.Suggestions = append([]models.Suggestion(nil), item.Suggestions...)
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *MemoryStore) AppendAuditEvent(_ context.Context, event *models.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *event
	cp.Seq = s.nextSeq
	s.nextSeq++
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now().UTC()
	}
	s.events = append(s.events, &cp)
	event.Seq = cp.Seq
	return nil
}

func (s *MemoryStore) ListAuditEvents(_ context.Context, fromSeq int64) ([]*models.AuditEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.AuditEvent
	for _, event := range s.events {
		if event.Seq >= fromSeq {
			cp := *event
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) UpsertMonthlySummary(_ context.Context, summary *models.MonthlySummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *summary
	s.summaries[summary.PeriodKey()] = &cp
	return nil
}

func (s *MemoryStore) GetMonthlySummary(_ context.Context, year int, month time.Month) (*models.MonthlySummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := (&models.MonthlySummary{Year: year, Month: month}).PeriodKey()
	summary, ok := s.summaries[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *summary
	return &cp, nil
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) activeForLineLocked(lineID string) *models.ReconciliationRecord {
	for _, record := range s.records {
		if record.StatementLineID == lineID && record.Active() {
			return record
		}
	}
	return nil
}

func (s *MemoryStore) activeForTxnLocked(txnID string) *models.ReconciliationRecord {
	for _, record := range s.records {
		if record.TransactionID == txnID && record.Active() {
			return record
		}
	}
	return nil
}

func lineInScope(line *models.StatementTransaction, accountID string, from, to time.Time) bool {
	if accountID != "" && line.AccountID != accountID {
		return false
	}
	return inRange(line.PostedDate, from, to)
}

func txnInScope(txn *models.BookTransaction, accountID string, from, to time.Time) bool {
	if accountID != "" && txn.AccountID != accountID {
		return false
	}
	return inRange(txn.Date, from, to)
}

func inRange(t time.Time, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && t.After(to) {
		return false
	}
	return true
}

func sortLines(lines []*models.StatementTransaction) {
	sort.Slice(lines, func(i, j int) bool {
		if !lines[i].PostedDate.Equal(lines[j].PostedDate) {
			return lines[i].PostedDate.Before(lines[j].PostedDate)
		}
		return lines[i].ID < lines[j].ID
	})
}

func sortTxns(txns []*models.BookTransaction) {
	sort.Slice(txns, func(i, j int) bool {
		if !txns[i].Date.Equal(txns[j].Date) {
			return txns[i].Date.Before(txns[j].Date)
		}
		return txns[i].ID < txns[j].ID
	})
}
