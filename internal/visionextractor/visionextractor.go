// Package visionextractor handles image-bound documents: scanned checks and
// handwritten notes. Recognition is delegated to an Engine so the extractor
// logic tests without network access; the production engine is Gemini
// multimodal.
package visionextractor

import (
	"context"
	"fmt"
	"strings"

	"ledgermatch/internal/extractor"
	"ledgermatch/internal/logging"
)

// Engine turns an image into a line-oriented "field: value" transcription.
// Implementations report their own recognition confidence in [0,1].
type Engine interface {
	// Transcribe runs recognition over image bytes guided by a prompt.
	Transcribe(ctx context.Context, image []byte, prompt string) (text string, confidence float64, err error)
}

const transcriptionPrompt = `Read this financial document image. Respond with one field per line in the exact form "name: value", using these field names where present: payee, amount, date, check_number, memo, vendor. Omit fields you cannot read. Do not add commentary.`

// Extractor recognizes fields in document images through an Engine.
type Extractor struct {
	engine Engine
	logger logging.Logger
}

// New creates a vision extractor backed by the given engine.
func New(engine Engine, logger logging.Logger) *Extractor {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &Extractor{
		engine: engine,
		logger: logger.WithField("component", "visionextractor"),
	}
}

// Name implements extractor.Extractor.
func (e *Extractor) Name() string { return "vision" }

// Extract implements extractor.Extractor.
func (e *Extractor) Extract(ctx context.Context, content []byte) (*extractor.Result, error) {
	if e.engine == nil {
		return nil, fmt.Errorf("no vision engine configured")
	}

	text, confidence, err := e.engine.Transcribe(ctx, content, transcriptionPrompt)
	if err != nil {
		return nil, fmt.Errorf("vision transcription: %w", err)
	}

	res := extractor.NewResult(confidence)
	res.RawText = text
	for _, line := range strings.Split(text, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		switch key {
		case "payee":
			res.Fields[extractor.FieldPayee] = value
			if _, ok := res.Fields[extractor.FieldVendor]; !ok {
				res.Fields[extractor.FieldVendor] = value
			}
		case "vendor":
			res.Fields[extractor.FieldVendor] = value
		case "amount":
			res.Fields[extractor.FieldAmount] = value
		case "date":
			res.Fields[extractor.FieldDate] = value
		case "check_number":
			res.Fields[extractor.FieldCheckNumber] = value
		case "memo":
			res.Fields[extractor.FieldDescription] = value
		}
	}

	if len(res.Fields) == 0 {
		return nil, fmt.Errorf("vision engine found no readable fields")
	}

	e.logger.Debug("vision extraction complete",
		logging.Field{Key: logging.FieldCount, Value: len(res.Fields)},
		logging.Field{Key: logging.FieldConfidence, Value: res.Confidence})
	return res, nil
}
