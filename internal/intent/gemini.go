package intent

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"

	"github.com/manno/shipmate/internal/fault"
)

const DefaultModel = "gemini-2.0-flash"

// Gemini is the production Extractor, backed by the Google GenAI API.
type Gemini struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

func NewGemini(ctx context.Context, apiKey, model string, logger *slog.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required: use --gemini-api-key flag or GEMINI_API_KEY env var")
	}
	if model == "" {
		model = DefaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Gemini{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

func (g *Gemini) Extract(ctx context.Context, req Request) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(req.User), cfg)
	if err != nil {
		return "", fault.New(fault.Transient, "intent.complete", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fault.Newf(fault.Ambiguous, "intent.complete", "model returned an empty completion")
	}

	g.logger.Debug("completion received", "model", g.model, "json", req.JSON, "length", len(text))
	return text, nil
}
