package ai

import (
	"context"
	"fmt"

	"github.com/kozaktomas/xiangxin/internal/config"
	"github.com/kozaktomas/xiangxin/internal/constants"
	"github.com/kozaktomas/xiangxin/internal/database"
)

// NewBackend creates the backend selected by ANALYSIS_PROVIDER.
func NewBackend(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.Analysis.Provider {
	case constants.ProviderOpenAI:
		if cfg.OpenAI.Token == "" {
			return nil, fmt.Errorf("OPENAI_TOKEN environment variable is required")
		}
		model := cfg.OpenAI.Model
		if model == "" {
			model = defaultOpenAIModel
		}
		return NewOpenAIBackend(OpenAIOptions{
			APIKey:  cfg.OpenAI.Token,
			BaseURL: cfg.OpenAI.BaseURL,
			Model:   model,
			Pricing: pricing(cfg, model),
		}), nil

	case constants.ProviderArk:
		if cfg.Ark.APIKey == "" || cfg.Ark.EndpointID == "" {
			return nil, fmt.Errorf("ARK_API_KEY and ARK_ENDPOINT_ID environment variables are required")
		}
		return NewArkBackend(cfg.Ark.APIKey, cfg.Ark.EndpointID, cfg.Ark.URL, pricing(cfg, cfg.Ark.EndpointID)), nil

	case constants.ProviderGemini:
		if cfg.Gemini.APIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
		}
		model := cfg.Gemini.Model
		if model == "" {
			model = defaultGeminiModel
		}
		return NewGeminiBackend(ctx, cfg.Gemini.APIKey, model, cfg.Gemini.URL, pricing(cfg, model))

	case constants.ProviderOllama:
		return NewOllamaBackend(cfg.Ollama.URL, cfg.Ollama.Model), nil

	default:
		return nil, fmt.Errorf("unknown provider: %s (use 'openai', 'ark', 'gemini' or 'ollama')", cfg.Analysis.Provider)
	}
}

// NewPipeline wraps a backend in the pipeline selected by ANALYSIS_PIPELINE.
func NewPipeline(pipeline string, backend Backend) (Analyzer, error) {
	switch pipeline {
	case constants.PipelineSingle, "":
		return NewSingleStage(backend), nil
	case constants.PipelineTwoStage:
		return NewTwoStage(backend), nil
	default:
		return nil, fmt.Errorf("unknown pipeline: %s (use 'single' or 'two-stage')", pipeline)
	}
}

// New builds the configured Analyzer. When recorder is non-nil every run is
// written to it.
func New(ctx context.Context, cfg *config.Config, recorder database.RunRecorder) (Analyzer, Backend, error) {
	backend, err := NewBackend(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	analyzer, err := NewPipeline(cfg.Analysis.Pipeline, backend)
	if err != nil {
		return nil, nil, err
	}

	if recorder != nil {
		analyzer = NewRecording(analyzer, recorder, cfg.Analysis.Pipeline, backend.Name())
	}
	return analyzer, backend, nil
}

func pricing(cfg *config.Config, model string) RequestPricing {
	p := cfg.GetModelPricing(model).Standard
	return RequestPricing{Input: p.Input, Output: p.Output}
}
