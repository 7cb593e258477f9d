// Package pipeline moves documents from intake to a final state: completed
// with persisted transactions, needs_review for a human, or failed. Workers
// claim documents through an atomic store transition, so re-running the
// pipeline over the same pending set is safe.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ledgermatch/internal/auditlog"
	"ledgermatch/internal/blob"
	"ledgermatch/internal/extractor"
	"ledgermatch/internal/logging"
	"ledgermatch/internal/metrics"
	"ledgermatch/internal/models"
	"ledgermatch/internal/normalize"
	"ledgermatch/internal/reconerror"
	"ledgermatch/internal/storage"
)

// Config carries the pipeline tunables.
type Config struct {
	Workers               int
	AutoAcceptThreshold   float64
	CompletenessThreshold float64
	DedupeWindowDays      int
	MaxRetries            int
	RetryBase             time.Duration
	RetryCap              time.Duration
	// DefaultAccount is used when neither intake nor extraction names one.
	DefaultAccount string
}

// Pipeline wires storage, blob store, extraction and normalization.
type Pipeline struct {
	store      storage.Store
	blobs      blob.Store
	registry   *extractor.Registry
	normalizer *normalize.Normalizer
	ledger     *auditlog.Ledger
	cfg        Config
	logger     logging.Logger
}

func New(store storage.Store, blobs blob.Store, registry *extractor.Registry, normalizer *normalize.Normalizer, ledger *auditlog.Ledger, cfg Config, logger logging.Logger) *Pipeline {
	if logger == nil {
		logger = logging.GetLogger()
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.DefaultAccount == "" {
		cfg.DefaultAccount = "primary"
	}
	return &Pipeline{
		store:      store,
		blobs:      blobs,
		registry:   registry,
		normalizer: normalizer,
		ledger:     ledger,
		cfg:        cfg,
		logger:     logger.WithField("component", "pipeline.Pipeline"),
	}
}

// Intake accepts raw document bytes, writes the blob and creates the
// pending document. Content validation happens during processing; intake
// rejects only an unusable declared type.
func (p *Pipeline) Intake(ctx context.Context, content []byte, declaredType models.DocumentType, sourceName, accountID string) (*models.Document, error) {
	if declaredType != "" && !p.registry.Knows(declaredType) {
		return nil, &reconerror.ValidationError{
			Field: "declared_type", Value: string(declaredType),
			Reason: "no extractor registered for this type",
		}
	}

	ref, checksum, err := p.blobs.Put(ctx, bytes.NewReader(content), declaredType, sourceName)
	if err != nil {
		return nil, fmt.Errorf("storing document content: %w", err)
	}

	now := time.Now().UTC()
	doc := &models.Document{
		ID:           uuid.New().String(),
		DeclaredType: declaredType,
		Status:       models.DocStatusPending,
		SourceName:   sourceName,
		BlobRef:      ref,
		Checksum:     checksum,
		Fields:       map[string]string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if accountID != "" {
		doc.Fields[extractor.FieldAccount] = accountID
	}

	if err := p.withRetry(ctx, "create document", func() error {
		return p.store.CreateDocument(ctx, doc)
	}); err != nil {
		return nil, err
	}
	if err := p.ledger.DocumentIngested(ctx, doc); err != nil {
		return nil, err
	}
	metrics.DocumentsIngested.WithLabelValues(string(declaredType)).Inc()

	p.logger.Info("document ingested",
		logging.Field{Key: "document", Value: doc.ID},
		logging.Field{Key: "source", Value: sourceName},
		logging.Field{Key: "type", Value: string(declaredType)})
	return doc, nil
}

// withRetry runs fn, retrying transient storage faults with bounded
// exponential backoff. Terminal errors pass through untouched.
func (p *Pipeline) withRetry(ctx context.Context, op string, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if err == nil || !reconerror.IsTransient(err) {
			return err
		}
		if attempt >= p.cfg.MaxRetries {
			return fmt.Errorf("%s: retries exhausted: %w", op, err)
		}

		delay := p.cfg.RetryBase << attempt
		if p.cfg.RetryCap > 0 && delay > p.cfg.RetryCap {
			delay = p.cfg.RetryCap
		}
		metrics.ProcessingRetries.Inc()
		p.logger.Warn("transient failure, backing off",
			logging.Field{Key: "op", Value: op},
			logging.Field{Key: "attempt", Value: attempt + 1},
			logging.Field{Key: "delay", Value: delay.String()})

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}
