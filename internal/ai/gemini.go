package ai

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

type GeminiBackend struct {
	usageTracker
	client *genai.Client
	model  string
}

// NewGeminiBackend creates a Gemini backend. An empty baseURL uses the
// public endpoint.
func NewGeminiBackend(ctx context.Context, apiKey, model, baseURL string, pricing RequestPricing) (*GeminiBackend, error) {
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{BaseURL: baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiBackend{
		usageTracker: usageTracker{pricing: pricing},
		client:       client,
		model:        model,
	}, nil
}

func (p *GeminiBackend) Name() string {
	return p.model
}

func (p *GeminiBackend) Generate(ctx context.Context, req *GenerateRequest) (string, error) {
	parts := []*genai.Part{{Text: userText(req)}}
	if req.Image != nil {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{Data: req.Image.Data, MIMEType: req.Image.MIMEType},
		})
	}

	contents := []*genai.Content{{Role: "user", Parts: parts}}

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: req.Instruction}}},
		ResponseMIMEType:  "application/json",
	}
	if req.Schema != nil {
		config.ResponseJsonSchema = req.Schema
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}

	result, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini API error: %w", err)
	}

	// Track usage
	if result.UsageMetadata != nil {
		p.trackUsage(ctx, int64(result.UsageMetadata.PromptTokenCount), int64(result.UsageMetadata.CandidatesTokenCount))
	}

	content := result.Text()
	if content == "" {
		return "", errors.New("no response from Gemini")
	}
	return content, nil
}
