package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgermatch/internal/auditlog"
	"ledgermatch/internal/blob"
	"ledgermatch/internal/extractor"
	"ledgermatch/internal/logging"
	"ledgermatch/internal/models"
	"ledgermatch/internal/normalize"
	"ledgermatch/internal/reconerror"
	"ledgermatch/internal/storage"
	"ledgermatch/internal/vendors"
)

type stubExtractor struct {
	name string
	res  *extractor.Result
}

func (s *stubExtractor) Name() string { return s.name }

func (s *stubExtractor) Extract(_ context.Context, _ []byte) (*extractor.Result, error) {
	// Results carry maps and slices, so hand each caller a fresh copy.
	out := extractor.NewResult(s.res.Confidence)
	for k, v := range s.res.Fields {
		out.Fields[k] = v
	}
	out.Lines = append(out.Lines, s.res.Lines...)
	return out, nil
}

// flakyStore injects transient faults into transaction writes.
type flakyStore struct {
	storage.Store
	mu       sync.Mutex
	failures int
}

func (f *flakyStore) CreateBookTransaction(ctx context.Context, txn *models.BookTransaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return &reconerror.TransientStorageError{Op: "create book transaction", Err: errors.New("database is locked")}
	}
	return f.Store.CreateBookTransaction(ctx, txn)
}

func invoiceResult() *extractor.Result {
	res := extractor.NewResult(1.0)
	res.Fields[extractor.FieldDate] = "2024-03-15"
	res.Fields[extractor.FieldAmount] = "1234.56"
	res.Fields[extractor.FieldVendor] = "Sysco Foods"
	res.Fields[extractor.FieldInvoiceNumber] = "INV-8842"
	return res
}

func statementResult(lines ...extractor.RawLine) *extractor.Result {
	res := extractor.NewResult(1.0)
	res.Lines = lines
	return res
}

func testPipeline(t *testing.T, store storage.Store, extractors map[models.DocumentType]*extractor.Result) *Pipeline {
	t.Helper()
	logger := &logging.MockLogger{}

	blobs, err := blob.NewFileStore(t.TempDir(), logger)
	require.NoError(t, err)

	registry := extractor.NewRegistry(logger)
	for docType, res := range extractors {
		registry.Register(docType, &stubExtractor{name: string(docType), res: res})
	}

	normalizer := normalize.New(vendors.NewRegistry(filepath.Join(t.TempDir(), "vendors.yaml"), logger), logger)
	ledger := auditlog.New(store, "pipeline-test", logger)

	return New(store, blobs, registry, normalizer, ledger, Config{
		Workers:               2,
		AutoAcceptThreshold:   0.7,
		CompletenessThreshold: 0.7,
		DedupeWindowDays:      90,
		MaxRetries:            2,
		RetryBase:             time.Millisecond,
		RetryCap:              5 * time.Millisecond,
		DefaultAccount:        "primary",
	}, logger)
}

func TestIntakeRejectsUnknownType(t *testing.T) {
	ctx := context.Background()
	p := testPipeline(t, storage.NewMemoryStore(), nil)

	_, err := p.Intake(ctx, []byte("x"), models.DocTypeInvoice, "inv.pdf", "checking")
	var ve *reconerror.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "declared_type", ve.Field)
}

func TestInvoiceCompletes(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	p := testPipeline(t, store, map[models.DocumentType]*extractor.Result{
		models.DocTypeInvoice: invoiceResult(),
	})

	doc, err := p.Intake(ctx, []byte("invoice bytes"), models.DocTypeInvoice, "inv-8842.pdf", "checking")
	require.NoError(t, err)
	require.NoError(t, p.ProcessOne(ctx, doc.ID))

	got, err := store.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DocStatusCompleted, got.Status)
	require.NotNil(t, got.ProcessedAt)
	assert.Equal(t, "1234.56", got.Fields[extractor.FieldAmount])

	txns, err := store.ListBookTransactions(ctx, "checking", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, "1234.56", txns[0].Amount.StringFixed(2))
	assert.Equal(t, doc.ID, txns[0].DocumentID)

	t.Run("fingerprint retained", func(t *testing.T) {
		fp := models.ComputeFingerprint(txns[0].AccountID, txns[0].Amount, txns[0].Date, txns[0].Description)
		holder, err := store.LookupFingerprint(ctx, fp, time.Now().UTC().AddDate(0, 0, -90))
		require.NoError(t, err)
		assert.Equal(t, doc.ID, holder)
	})

	t.Run("ledger has the full trail", func(t *testing.T) {
		events, err := store.ListAuditEvents(ctx, 0)
		require.NoError(t, err)
		var types []models.AuditEventType
		for _, e := range events {
			types = append(types, e.Type)
		}
		assert.Contains(t, types, models.EventDocumentIngested)
		assert.Contains(t, types, models.EventTransactionCreated)
		assert.Contains(t, types, models.EventStateChanged)
	})
}

func TestDuplicateInvoiceNeverCreatesTransactions(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	p := testPipeline(t, store, map[models.DocumentType]*extractor.Result{
		models.DocTypeInvoice: invoiceResult(),
	})

	first, err := p.Intake(ctx, []byte("invoice bytes"), models.DocTypeInvoice, "inv.pdf", "checking")
	require.NoError(t, err)
	require.NoError(t, p.ProcessOne(ctx, first.ID))

	second, err := p.Intake(ctx, []byte("same invoice, rescanned"), models.DocTypeInvoice, "inv-copy.pdf", "checking")
	require.NoError(t, err)
	require.NoError(t, p.ProcessOne(ctx, second.ID))

	got, err := store.GetDocument(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DocStatusFailed, got.Status)
	assert.Equal(t, models.ReasonDuplicate, got.FailureInfo)

	txns, err := store.ListBookTransactions(ctx, "checking", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, txns, 1, "duplicate must not create a second transaction")

	events, err := store.ListAuditEvents(ctx, 0)
	require.NoError(t, err)
	var dup *models.AuditEvent
	for _, e := range events {
		if e.Type == models.EventDuplicateDetected {
			dup = e
		}
	}
	require.NotNil(t, dup)
	assert.Equal(t, second.ID, dup.DocumentID)
	assert.Equal(t, first.ID, dup.Payload["duplicate_of"])
}

func TestStatementSkipsAlreadySeenLines(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	lineA := extractor.RawLine{Date: "2024-03-10", Description: "SYSCO FOODS 8842", Amount: "-521.40", Direction: "debit"}
	lineB := extractor.RawLine{Date: "2024-03-11", Description: "STRIPE PAYOUT", Amount: "912.00", Direction: "credit"}
	lineC := extractor.RawLine{Date: "2024-03-12", Description: "COMCAST BUSINESS", Amount: "-189.99", Direction: "debit"}

	p := testPipeline(t, store, map[models.DocumentType]*extractor.Result{
		models.DocTypeBankStatement: statementResult(lineA, lineB),
	})
	doc1, err := p.Intake(ctx, []byte("statement one"), models.DocTypeBankStatement, "march-a.csv", "checking")
	require.NoError(t, err)
	require.NoError(t, p.ProcessOne(ctx, doc1.ID))

	lines, err := store.ListStatementLines(ctx, "checking", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, lines, 2)

	t.Run("overlapping statement keeps only the new line", func(t *testing.T) {
		p2 := testPipeline(t, store, map[models.DocumentType]*extractor.Result{
			models.DocTypeBankStatement: statementResult(lineA, lineB, lineC),
		})
		doc2, err := p2.Intake(ctx, []byte("statement two"), models.DocTypeBankStatement, "march-b.csv", "checking")
		require.NoError(t, err)
		require.NoError(t, p2.ProcessOne(ctx, doc2.ID))

		got, err := store.GetDocument(ctx, doc2.ID)
		require.NoError(t, err)
		assert.Equal(t, models.DocStatusCompleted, got.Status)

		lines, err := store.ListStatementLines(ctx, "checking", time.Time{}, time.Time{})
		require.NoError(t, err)
		require.Len(t, lines, 3)
	})

	t.Run("fully duplicate statement fails", func(t *testing.T) {
		p3 := testPipeline(t, store, map[models.DocumentType]*extractor.Result{
			models.DocTypeBankStatement: statementResult(lineA, lineB),
		})
		doc3, err := p3.Intake(ctx, []byte("statement three"), models.DocTypeBankStatement, "march-c.csv", "checking")
		require.NoError(t, err)
		require.NoError(t, p3.ProcessOne(ctx, doc3.ID))

		got, err := store.GetDocument(ctx, doc3.ID)
		require.NoError(t, err)
		assert.Equal(t, models.DocStatusFailed, got.Status)
		assert.Equal(t, models.ReasonDuplicate, got.FailureInfo)

		lines, err := store.ListStatementLines(ctx, "checking", time.Time{}, time.Time{})
		require.NoError(t, err)
		assert.Len(t, lines, 3)
	})
}

func TestUnclassifiableContentGoesToReview(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	p := testPipeline(t, store, map[models.DocumentType]*extractor.Result{
		models.DocTypeInvoice: invoiceResult(),
	})

	doc, err := p.Intake(ctx, []byte("%%%% binary noise 0x00 0xFF %%%%"), "", "mystery.bin", "")
	require.NoError(t, err)
	require.NoError(t, p.ProcessOne(ctx, doc.ID))

	got, err := store.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DocStatusNeedsReview, got.Status)
	assert.Equal(t, models.ReasonUnclassified, got.ReviewReason)

	txns, err := store.ListBookTransactions(ctx, "primary", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, txns, "unreviewed documents must not produce transactions")
}

func TestLowConfidenceGoesToReview(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()

	res := extractor.NewResult(1.0)
	res.Fields[extractor.FieldDate] = "2024-03-15"
	res.Fields[extractor.FieldAmount] = "45.00"
	p := testPipeline(t, store, map[models.DocumentType]*extractor.Result{
		models.DocTypeHandwrittenNote: res,
	})

	doc, err := p.Intake(ctx, []byte("scrawled note"), models.DocTypeHandwrittenNote, "note.jpg", "checking")
	require.NoError(t, err)
	require.NoError(t, p.ProcessOne(ctx, doc.ID))

	got, err := store.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DocStatusNeedsReview, got.Status)
	assert.Contains(t, got.ReviewReason, models.ReasonLowConfidence)

	txns, err := store.ListBookTransactions(ctx, "checking", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, txns)
}

func TestTransientFaultRetriesThenSucceeds(t *testing.T) {
	ctx := context.Background()
	flaky := &flakyStore{Store: storage.NewMemoryStore(), failures: 1}
	p := testPipeline(t, flaky, map[models.DocumentType]*extractor.Result{
		models.DocTypeInvoice: invoiceResult(),
	})

	doc, err := p.Intake(ctx, []byte("invoice bytes"), models.DocTypeInvoice, "inv.pdf", "checking")
	require.NoError(t, err)
	require.NoError(t, p.ProcessOne(ctx, doc.ID))

	got, err := flaky.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DocStatusCompleted, got.Status)

	txns, err := flaky.ListBookTransactions(ctx, "checking", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}

func TestRetriesExhaustedFailsDocument(t *testing.T) {
	ctx := context.Background()
	flaky := &flakyStore{Store: storage.NewMemoryStore(), failures: 100}
	p := testPipeline(t, flaky, map[models.DocumentType]*extractor.Result{
		models.DocTypeInvoice: invoiceResult(),
	})

	doc, err := p.Intake(ctx, []byte("invoice bytes"), models.DocTypeInvoice, "inv.pdf", "checking")
	require.NoError(t, err)
	require.NoError(t, p.ProcessOne(ctx, doc.ID))

	got, err := flaky.GetDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DocStatusFailed, got.Status)
	assert.True(t, strings.Contains(got.FailureInfo, "retries exhausted"), got.FailureInfo)
}

func TestReprocessingIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	p := testPipeline(t, store, map[models.DocumentType]*extractor.Result{
		models.DocTypeInvoice: invoiceResult(),
	})

	doc, err := p.Intake(ctx, []byte("invoice bytes"), models.DocTypeInvoice, "inv.pdf", "checking")
	require.NoError(t, err)
	require.NoError(t, p.ProcessOne(ctx, doc.ID))

	// A completed document is no longer claimable; reprocessing is a no-op.
	require.NoError(t, p.ProcessOne(ctx, doc.ID))

	txns, err := store.ListBookTransactions(ctx, "checking", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, txns, 1)
}

func TestProcessPendingSweep(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	p := testPipeline(t, store, map[models.DocumentType]*extractor.Result{
		models.DocTypeInvoice: invoiceResult(),
	})

	good, err := p.Intake(ctx, []byte("invoice bytes"), models.DocTypeInvoice, "inv.pdf", "checking")
	require.NoError(t, err)
	_, err = p.Intake(ctx, []byte("%%%% noise %%%%"), "", "mystery.bin", "")
	require.NoError(t, err)

	report, err := p.ProcessPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Processed)
	assert.Equal(t, 1, report.Completed)
	assert.Equal(t, 1, report.NeedsReview)
	assert.Equal(t, 0, report.Failed)

	got, err := store.GetDocument(ctx, good.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DocStatusCompleted, got.Status)

	t.Run("second sweep finds nothing pending", func(t *testing.T) {
		report, err := p.ProcessPending(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, report.Processed)
	})
}
