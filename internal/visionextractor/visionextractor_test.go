package visionextractor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgermatch/internal/extractor"
)

func TestExtract(t *testing.T) {
	ctx := context.Background()

	t.Run("parses field lines from transcription", func(t *testing.T) {
		engine := &StubEngine{
			Text:       "payee: Sysco Foods\namount: $420.00\ndate: 01/20/2024\ncheck_number: 1042\nmemo: produce order",
			Confidence: 0.85,
		}
		ext := New(engine, nil)

		res, err := ext.Extract(ctx, []byte("fake-image-bytes"))
		require.NoError(t, err)
		assert.Equal(t, 0.85, res.Confidence)
		assert.Equal(t, "Sysco Foods", res.Fields[extractor.FieldPayee])
		assert.Equal(t, "Sysco Foods", res.Fields[extractor.FieldVendor], "payee doubles as vendor")
		assert.Equal(t, "$420.00", res.Fields[extractor.FieldAmount])
		assert.Equal(t, "1042", res.Fields[extractor.FieldCheckNumber])
		assert.Equal(t, "produce order", res.Fields[extractor.FieldDescription])
		assert.Len(t, engine.Calls, 1)
	})

	t.Run("explicit vendor overrides payee", func(t *testing.T) {
		engine := &StubEngine{Text: "payee: cash\nvendor: Sysco Foods\namount: 50.00", Confidence: 0.7}
		res, err := New(engine, nil).Extract(ctx, []byte("img"))
		require.NoError(t, err)
		assert.Equal(t, "Sysco Foods", res.Fields[extractor.FieldVendor])
	})

	t.Run("commentary lines are ignored", func(t *testing.T) {
		engine := &StubEngine{Text: "I can see a check.\namount: 10.00\n\nunreadable scrawl", Confidence: 0.4}
		res, err := New(engine, nil).Extract(ctx, []byte("img"))
		require.NoError(t, err)
		assert.Equal(t, "10.00", res.Fields[extractor.FieldAmount])
		assert.Len(t, res.Fields, 1)
	})

	t.Run("engine error propagates for degradation upstream", func(t *testing.T) {
		engine := &StubEngine{Err: errors.New("model timeout")}
		_, err := New(engine, nil).Extract(ctx, []byte("img"))
		assert.Error(t, err)
	})

	t.Run("empty transcription errors", func(t *testing.T) {
		engine := &StubEngine{Text: "nothing legible", Confidence: 0.2}
		_, err := New(engine, nil).Extract(ctx, []byte("img"))
		assert.Error(t, err)
	})

	t.Run("nil engine errors", func(t *testing.T) {
		_, err := New(nil, nil).Extract(ctx, []byte("img"))
		assert.Error(t, err)
	})
}
