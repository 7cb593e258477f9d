package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"ledgermatch/internal/extractor"
	"ledgermatch/internal/logging"
	"ledgermatch/internal/metrics"
	"ledgermatch/internal/models"
	"ledgermatch/internal/normalize"
	"ledgermatch/internal/reconerror"
)

// pendingBatchLimit bounds one ProcessPending sweep. Leftovers are picked
// up by the next sweep.
const pendingBatchLimit = 500

// Report summarizes one ProcessPending sweep.
type Report struct {
	Processed   int `json:"processed"`
	Completed   int `json:"completed"`
	NeedsReview int `json:"needs_review"`
	Failed      int `json:"failed"`
	Duplicates  int `json:"duplicates"`
}

// ProcessPending drains the pending queue with a bounded worker pool. Each
// worker claims documents through the store, so concurrent sweeps never
// process the same document twice.
func (p *Pipeline) ProcessPending(ctx context.Context) (*Report, error) {
	docs, err := p.store.ListDocumentsByStatus(ctx, models.DocStatusPending, pendingBatchLimit)
	if err != nil {
		return nil, err
	}

	var (
		report Report
		mu     sync.Mutex
		wg     sync.WaitGroup
	)
	ids := make(chan string)

	for i := 0; i < p.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range ids {
				outcome, err := p.processClaimed(ctx, id)
				mu.Lock()
				if err != nil {
					p.logger.Error("document processing aborted",
						logging.Field{Key: "document", Value: id},
						logging.Field{Key: "error", Value: err.Error()})
				} else if outcome != "" {
					report.Processed++
					switch outcome {
					case models.DocStatusCompleted:
						report.Completed++
					case models.DocStatusNeedsReview:
						report.NeedsReview++
					case models.DocStatusFailed:
						report.Failed++
					case outcomeDuplicate:
						report.Failed++
						report.Duplicates++
					}
				}
				mu.Unlock()
			}
		}()
	}

	for _, doc := range docs {
		select {
		case <-ctx.Done():
			close(ids)
			wg.Wait()
			return &report, ctx.Err()
		case ids <- doc.ID:
		}
	}
	close(ids)
	wg.Wait()

	p.logger.Info("pending sweep finished",
		logging.Field{Key: "processed", Value: report.Processed},
		logging.Field{Key: "completed", Value: report.Completed},
		logging.Field{Key: "needs_review", Value: report.NeedsReview},
		logging.Field{Key: "failed", Value: report.Failed},
		logging.Field{Key: "duplicates", Value: report.Duplicates})
	return &report, nil
}

// ProcessOne claims and processes a single document. Processing a document
// someone else already claimed, or one past pending, is a no-op.
func (p *Pipeline) ProcessOne(ctx context.Context, docID string) error {
	_, err := p.processClaimed(ctx, docID)
	return err
}

// outcomeDuplicate distinguishes a duplicate failure from other failures in
// sweep accounting. It is never stored.
const outcomeDuplicate models.DocumentStatus = "duplicate"

func (p *Pipeline) processClaimed(ctx context.Context, docID string) (models.DocumentStatus, error) {
	var claimed bool
	err := p.withRetry(ctx, "claim document", func() error {
		var err error
		claimed, err = p.store.ClaimDocument(ctx, docID)
		return err
	})
	if err != nil {
		return "", err
	}
	if !claimed {
		return "", nil
	}
	if err := p.ledger.StateChanged(ctx, docID, models.DocStatusPending, models.DocStatusProcessing, ""); err != nil {
		return "", err
	}

	doc, err := p.store.GetDocument(ctx, docID)
	if err != nil {
		return "", err
	}

	status, err := p.process(ctx, doc)
	if err != nil && reconerror.IsTransient(err) && ctx.Err() == nil {
		// Retries are spent. Fail the document rather than stranding it in
		// processing forever.
		return p.fail(ctx, doc, err.Error())
	}
	return status, err
}

// process runs a claimed document through extraction, normalization, dedupe
// and the quality gates, then finalizes it. Validation failures land the
// document in failed; transient store faults bubble up after retries so the
// document stays in processing for the operator to inspect.
func (p *Pipeline) process(ctx context.Context, doc *models.Document) (models.DocumentStatus, error) {
	content, err := p.blobs.Get(ctx, doc.BlobRef)
	if err != nil {
		return p.fail(ctx, doc, "reading stored content: "+err.Error())
	}

	res, detected, err := p.registry.Extract(ctx, content, doc.DeclaredType)
	var verr *reconerror.ValidationError
	if errors.As(err, &verr) {
		return p.fail(ctx, doc, verr.Error())
	}
	if err != nil {
		return "", err
	}
	doc.DetectedType = detected
	doc.Confidence = res.Confidence

	docType := doc.EffectiveType()
	if docType == "" {
		return p.review(ctx, doc, res, models.ReasonUnclassified)
	}

	account := p.resolveAccount(doc, res)
	out, err := p.normalizer.Normalize(docType, account, doc.ID, res)
	if errors.As(err, &verr) {
		return p.fail(ctx, doc, verr.Error())
	}
	if err != nil {
		return "", err
	}
	mergeFields(doc, res)

	// Dedupe runs before the quality gates. A duplicate of an already
	// ingested payment must never create transactions, even one that would
	// otherwise sail through.
	since := time.Now().UTC().AddDate(0, 0, -p.cfg.DedupeWindowDays)
	dup, err := p.screenDuplicates(ctx, doc, out, since)
	if err != nil {
		return "", err
	}
	if dup {
		status, err := p.fail(ctx, doc, models.ReasonDuplicate)
		if err != nil {
			return status, err
		}
		metrics.DuplicatesDetected.Inc()
		return outcomeDuplicate, nil
	}

	reasons := out.ReviewReasons
	if doc.Confidence < p.cfg.AutoAcceptThreshold {
		reasons = appendReason(reasons, models.ReasonLowConfidence)
	}
	if out.Completeness < p.cfg.CompletenessThreshold {
		reasons = appendReason(reasons, models.ReasonIncomplete)
	}
	if len(reasons) > 0 {
		return p.review(ctx, doc, res, reasons...)
	}

	if err := p.persist(ctx, doc, out); err != nil {
		return "", err
	}
	return p.finalize(ctx, doc, models.DocStatusCompleted, "")
}

// resolveAccount picks the account for this document: intake wins, then the
// extracted account field, then the configured default.
func (p *Pipeline) resolveAccount(doc *models.Document, res *extractor.Result) string {
	if acct := doc.Fields[extractor.FieldAccount]; acct != "" {
		return acct
	}
	if acct := res.Fields[extractor.FieldAccount]; acct != "" {
		return acct
	}
	return p.cfg.DefaultAccount
}

// screenDuplicates fingerprints every candidate and consults the dedupe
// window. For a single-transaction document any hit marks the whole document
// a duplicate. For statements, already-seen lines are silently dropped and
// only an all-duplicate statement fails.
func (p *Pipeline) screenDuplicates(ctx context.Context, doc *models.Document, out *normalize.Output, since time.Time) (bool, error) {
	for _, txn := range out.Transactions {
		fp := models.ComputeFingerprint(txn.AccountID, txn.Amount, txn.Date, txn.Description)
		holder, err := p.lookupFingerprint(ctx, fp, since)
		if err != nil {
			return false, err
		}
		if holder != "" && holder != doc.ID {
			if err := p.ledger.DuplicateDetected(ctx, doc.ID, holder, fp); err != nil {
				return false, err
			}
			return true, nil
		}
	}

	if len(out.Lines) == 0 {
		return false, nil
	}
	kept := out.Lines[:0]
	for _, line := range out.Lines {
		fp := models.ComputeFingerprint(line.AccountID, line.Amount, line.PostedDate, line.Description)
		holder, err := p.lookupFingerprint(ctx, fp, since)
		if err != nil {
			return false, err
		}
		if holder != "" && holder != doc.ID {
			if err := p.ledger.DuplicateDetected(ctx, doc.ID, holder, fp); err != nil {
				return false, err
			}
			continue
		}
		kept = append(kept, line)
	}
	if len(kept) == 0 {
		return true, nil
	}
	out.Lines = kept
	return false, nil
}

func (p *Pipeline) lookupFingerprint(ctx context.Context, fp string, since time.Time) (string, error) {
	var holder string
	err := p.withRetry(ctx, "lookup fingerprint", func() error {
		var err error
		holder, err = p.store.LookupFingerprint(ctx, fp, since)
		return err
	})
	return holder, err
}

// persist writes the candidate transactions and their fingerprints, with an
// audit event per entity.
func (p *Pipeline) persist(ctx context.Context, doc *models.Document, out *normalize.Output) error {
	for i := range out.Transactions {
		txn := &out.Transactions[i]
		if txn.ID == "" {
			txn.ID = uuid.New().String()
		}
		if err := p.withRetry(ctx, "create book transaction", func() error {
			return p.store.CreateBookTransaction(ctx, txn)
		}); err != nil {
			return err
		}
		fp := models.ComputeFingerprint(txn.AccountID, txn.Amount, txn.Date, txn.Description)
		if err := p.withRetry(ctx, "record fingerprint", func() error {
			return p.store.RecordFingerprint(ctx, fp, doc.ID, txn.Date)
		}); err != nil {
			return err
		}
		if err := p.ledger.TransactionCreated(ctx, doc.ID, txn.ID, "book_transaction"); err != nil {
			return err
		}
	}

	for i := range out.Lines {
		line := &out.Lines[i]
		if line.ID == "" {
			line.ID = uuid.New().String()
		}
		if err := p.withRetry(ctx, "create statement line", func() error {
			return p.store.CreateStatementLine(ctx, line)
		}); err != nil {
			return err
		}
		fp := models.ComputeFingerprint(line.AccountID, line.Amount, line.PostedDate, line.Description)
		if err := p.withRetry(ctx, "record fingerprint", func() error {
			return p.store.RecordFingerprint(ctx, fp, doc.ID, line.PostedDate)
		}); err != nil {
			return err
		}
		if err := p.ledger.TransactionCreated(ctx, doc.ID, line.ID, "statement_line"); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) review(ctx context.Context, doc *models.Document, res *extractor.Result, reasons ...string) (models.DocumentStatus, error) {
	mergeFields(doc, res)
	doc.ReviewReason = joinReasons(reasons)
	return p.finalize(ctx, doc, models.DocStatusNeedsReview, doc.ReviewReason)
}

func (p *Pipeline) fail(ctx context.Context, doc *models.Document, info string) (models.DocumentStatus, error) {
	doc.FailureInfo = info
	return p.finalize(ctx, doc, models.DocStatusFailed, info)
}

// finalize moves the document to its terminal state, stamps ProcessedAt and
// writes the state transition to the ledger.
func (p *Pipeline) finalize(ctx context.Context, doc *models.Document, status models.DocumentStatus, reason string) (models.DocumentStatus, error) {
	from := doc.Status
	now := time.Now().UTC()
	doc.Status = status
	doc.UpdatedAt = now
	doc.ProcessedAt = &now

	if err := p.withRetry(ctx, "finalize document", func() error {
		return p.store.UpdateDocument(ctx, doc)
	}); err != nil {
		return "", err
	}
	if err := p.ledger.StateChanged(ctx, doc.ID, from, status, reason); err != nil {
		return "", err
	}
	metrics.DocumentsProcessed.WithLabelValues(string(status)).Inc()

	p.logger.Info("document finalized",
		logging.Field{Key: "document", Value: doc.ID},
		logging.Field{Key: "status", Value: string(status)},
		logging.Field{Key: "reason", Value: reason})
	return status, nil
}

func mergeFields(doc *models.Document, res *extractor.Result) {
	if doc.Fields == nil {
		doc.Fields = map[string]string{}
	}
	for k, v := range res.Fields {
		if _, taken := doc.Fields[k]; !taken {
			doc.Fields[k] = v
		}
	}
}

func appendReason(reasons []string, reason string) []string {
	for _, r := range reasons {
		if r == reason {
			return reasons
		}
	}
	return append(reasons, reason)
}

func joinReasons(reasons []string) string {
	switch len(reasons) {
	case 0:
		return ""
	case 1:
		return reasons[0]
	}
	joined := reasons[0]
	for _, r := range reasons[1:] {
		joined += "," + r
	}
	return joined
}
