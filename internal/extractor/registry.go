package extractor

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"ledgermatch/internal/logging"
	"ledgermatch/internal/models"
	"ledgermatch/internal/reconerror"
)

// Registry maps document types to extractors. Dispatch is a tagged lookup,
// not inheritance: registering a type replaces whatever handled it before.
type Registry struct {
	mu         sync.RWMutex
	extractors map[models.DocumentType]Extractor
	fallback   Extractor
	logger     logging.Logger
}

// NewRegistry creates an empty registry. A fallback extractor handles
// content that no classifier rule claims; without one, unclassifiable
// content yields an empty zero-confidence result.
func NewRegistry(logger logging.Logger) *Registry {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Registry{
		extractors: make(map[models.DocumentType]Extractor),
		logger:     logger.WithField("component", "extractor.Registry"),
	}
}

// Register binds an extractor to a document type.
func (reg *Registry) Register(docType models.DocumentType, ext Extractor) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.extractors[docType] = ext
}

// Knows reports whether an extractor is registered for docType.
func (reg *Registry) Knows(docType models.DocumentType) bool {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	_, ok := reg.extractors[docType]
	return ok
}

// SetFallback sets the extractor used when classification finds no winner.
func (reg *Registry) SetFallback(ext Extractor) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.fallback = ext
}

// Types returns the registered document types in stable order.
func (reg *Registry) Types() []models.DocumentType {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	types := make([]models.DocumentType, 0, len(reg.extractors))
	for t := range reg.extractors {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Extract dispatches content to the extractor for declaredType. An empty
// declared type triggers classification; classification failure degrades to
// the fallback extractor rather than erroring. The only error Extract
// returns is a ValidationError for a declared type nothing handles;
// unreadable content comes back as a zero-confidence result, never an error.
func (reg *Registry) Extract(ctx context.Context, content []byte, declaredType models.DocumentType) (*Result, models.DocumentType, error) {
	if len(content) == 0 {
		return nil, "", &reconerror.ValidationError{
			Field:  "content",
			Reason: "document is empty",
		}
	}

	docType := declaredType
	if docType == "" {
		detected, ok := Classify(content)
		if !ok {
			reg.logger.Debug("classification found no winner, using fallback extractor")
			res := reg.runFallback(ctx, content)
			res.Warn("document type could not be classified")
			return res, "", nil
		}
		docType = detected
	}

	reg.mu.RLock()
	ext, ok := reg.extractors[docType]
	reg.mu.RUnlock()
	if !ok {
		return nil, docType, &reconerror.ValidationError{
			Field:  "document_type",
			Value:  string(docType),
			Reason: "no extractor registered",
		}
	}

	res := reg.run(ctx, ext, content)
	res.Confidence = clamp01(res.Confidence * PriorFor(docType))
	return res, docType, nil
}

// run invokes an extractor with panic containment. A panicking extractor is
// a bug, but a corrupt document must never take the pipeline down with it.
func (reg *Registry) run(ctx context.Context, ext Extractor, content []byte) (res *Result) {
	defer func() {
		if r := recover(); r != nil {
			reg.logger.Error("extractor panicked on document content",
				logging.Field{Key: "extractor", Value: ext.Name()},
				logging.Field{Key: "panic", Value: fmt.Sprintf("%v", r)})
			res = NewResult(0)
			res.Warn(fmt.Sprintf("extractor %s panicked: %v", ext.Name(), r))
		}
	}()

	out, err := ext.Extract(ctx, content)
	if err != nil {
		reg.logger.WithError(err).Warn("extraction failed, degrading to zero confidence",
			logging.Field{Key: "extractor", Value: ext.Name()})
		res = NewResult(0)
		res.Warn((&reconerror.ExtractionFailure{
			DocType: ext.Name(),
			Reason:  err.Error(),
			Err:     err,
		}).Error())
		return res
	}
	if out == nil {
		out = NewResult(0)
		out.Warn(fmt.Sprintf("extractor %s returned no result", ext.Name()))
	}
	if out.Fields == nil {
		out.Fields = make(map[string]string)
	}
	return out
}

func (reg *Registry) runFallback(ctx context.Context, content []byte) *Result {
	reg.mu.RLock()
	fb := reg.fallback
	reg.mu.RUnlock()
	if fb == nil {
		return NewResult(0)
	}
	res := reg.run(ctx, fb, content)
	// An unclassified document keeps only a sliver of whatever confidence
	// the generic extraction claims.
	res.Confidence = clamp01(res.Confidence * PriorFor(""))
	return res
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
