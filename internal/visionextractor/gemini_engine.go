package visionextractor

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"ledgermatch/internal/logging"
)

// geminiConfidence is what a Gemini transcription self-reports. The API
// exposes no per-response confidence, so a flat value stands in and the
// per-type prior does the real gating.
const geminiConfidence = 0.85

// GeminiEngine implements Engine against the Gemini multimodal API.
type GeminiEngine struct {
	client *genai.Client
	model  *genai.GenerativeModel
	logger logging.Logger
}

// NewGeminiEngine creates a Gemini-backed vision engine.
func NewGeminiEngine(ctx context.Context, apiKey, model string, logger logging.Logger) (*GeminiEngine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}
	if logger == nil {
		logger = logging.GetLogger()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiEngine{
		client: client,
		model:  client.GenerativeModel(model),
		logger: logger.WithField("component", "GeminiEngine"),
	}, nil
}

// Transcribe implements Engine.
func (g *GeminiEngine) Transcribe(ctx context.Context, image []byte, prompt string) (string, float64, error) {
	format := imageFormat(image)
	if format == "" {
		return "", 0, fmt.Errorf("unsupported image format")
	}

	resp, err := g.model.GenerateContent(ctx,
		genai.ImageData(format, image),
		genai.Text(prompt))
	if err != nil {
		return "", 0, fmt.Errorf("Gemini API error: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", 0, fmt.Errorf("no response from Gemini API")
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}

	g.logger.Debug("Gemini transcription received",
		logging.Field{Key: "bytes", Value: b.Len()})
	return b.String(), geminiConfidence, nil
}

// Close releases the underlying API client.
func (g *GeminiEngine) Close() error {
	return g.client.Close()
}

// imageFormat sniffs the image container and returns the format label the
// Gemini SDK expects, or empty for content that is not a known image.
func imageFormat(content []byte) string {
	switch http.DetectContentType(content) {
	case "image/jpeg":
		return "jpeg"
	case "image/png":
		return "png"
	case "image/webp":
		return "webp"
	}
	return ""
}
