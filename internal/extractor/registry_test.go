package extractor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgermatch/internal/models"
	"ledgermatch/internal/reconerror"
)

type fakeExtractor struct {
	name   string
	result *Result
	err    error
	panics bool
}

func (f *fakeExtractor) Name() string { return f.name }

func (f *fakeExtractor) Extract(_ context.Context, _ []byte) (*Result, error) {
	if f.panics {
		panic("corrupt buffer")
	}
	return f.result, f.err
}

func TestRegistry_Extract(t *testing.T) {
	ctx := context.Background()

	t.Run("dispatches by declared type and applies prior", func(t *testing.T) {
		reg := NewRegistry(nil)
		res := NewResult(1.0)
		res.Fields[FieldAmount] = "42.50"
		reg.Register(models.DocTypeBankStatement, &fakeExtractor{name: "csv", result: res})

		out, docType, err := reg.Extract(ctx, []byte("anything"), models.DocTypeBankStatement)
		require.NoError(t, err)
		assert.Equal(t, models.DocTypeBankStatement, docType)
		assert.InDelta(t, 0.90, out.Confidence, 1e-9)
		assert.Equal(t, "42.50", out.Fields[FieldAmount])
	})

	t.Run("handwritten prior drags confidence down", func(t *testing.T) {
		reg := NewRegistry(nil)
		reg.Register(models.DocTypeHandwrittenNote, &fakeExtractor{name: "vision", result: NewResult(1.0)})

		out, _, err := reg.Extract(ctx, []byte("x"), models.DocTypeHandwrittenNote)
		require.NoError(t, err)
		assert.InDelta(t, 0.40, out.Confidence, 1e-9)
	})

	t.Run("empty content is a validation error", func(t *testing.T) {
		reg := NewRegistry(nil)
		_, _, err := reg.Extract(ctx, nil, models.DocTypeInvoice)
		var ve *reconerror.ValidationError
		require.ErrorAs(t, err, &ve)
	})

	t.Run("unknown declared type is a validation error", func(t *testing.T) {
		reg := NewRegistry(nil)
		_, _, err := reg.Extract(ctx, []byte("x"), models.DocumentType("fax"))
		var ve *reconerror.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Contains(t, ve.Error(), "no extractor registered")
	})

	t.Run("extractor error degrades to zero confidence", func(t *testing.T) {
		reg := NewRegistry(nil)
		reg.Register(models.DocTypeInvoice, &fakeExtractor{name: "text", err: errors.New("garbage in")})

		out, _, err := reg.Extract(ctx, []byte("\x00\x01\x02"), models.DocTypeInvoice)
		require.NoError(t, err, "extraction must never fail for unreadable content")
		assert.Zero(t, out.Confidence)
		assert.NotEmpty(t, out.Warnings)
	})

	t.Run("panicking extractor is contained", func(t *testing.T) {
		reg := NewRegistry(nil)
		reg.Register(models.DocTypeInvoice, &fakeExtractor{name: "text", panics: true})

		out, _, err := reg.Extract(ctx, []byte("x"), models.DocTypeInvoice)
		require.NoError(t, err)
		assert.Zero(t, out.Confidence)
		assert.NotEmpty(t, out.Warnings)
	})

	t.Run("unclassifiable content uses fallback", func(t *testing.T) {
		reg := NewRegistry(nil)
		fb := NewResult(0.8)
		fb.Fields[FieldVendor] = "SOMEONE"
		reg.SetFallback(&fakeExtractor{name: "fallback", result: fb})

		out, docType, err := reg.Extract(ctx, []byte("nothing recognizable here"), "")
		require.NoError(t, err)
		assert.Empty(t, docType)
		assert.Equal(t, "SOMEONE", out.Fields[FieldVendor])
		assert.Less(t, out.Confidence, 0.5)
		assert.NotEmpty(t, out.Warnings)
	})

	t.Run("classification routes undeclared content", func(t *testing.T) {
		reg := NewRegistry(nil)
		res := NewResult(1.0)
		reg.Register(models.DocTypeInvoice, &fakeExtractor{name: "text", result: res})

		content := []byte("INVOICE #1234\nBill To: Joe's Diner\nAmount Due: $500.00")
		_, docType, err := reg.Extract(ctx, content, "")
		require.NoError(t, err)
		assert.Equal(t, models.DocTypeInvoice, docType)
	})
}

func TestPriorFor_Unknown(t *testing.T) {
	assert.Equal(t, 0.5, PriorFor(models.DocumentType("mystery")))
}
