package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/kozaktomas/xiangxin/internal/report"
)

const (
	defaultOpenAIModel = openai.ChatModelGPT4_1Mini
	defaultArkURL      = "https://ark.cn-beijing.volces.com/api/v3"
	defaultMaxTokens   = 4096
)

// OpenAIBackend talks to the chat completions API. It also serves
// OpenAI-compatible endpoints such as Volcengine Ark.
type OpenAIBackend struct {
	usageTracker
	client *openai.Client
	model  string
	name   string

	// jsonObject selects the json_object response format for endpoints that
	// do not support strict json_schema. The schema is then appended to the
	// instruction instead.
	jsonObject bool
}

// OpenAIOptions configures an OpenAIBackend.
type OpenAIOptions struct {
	APIKey     string
	BaseURL    string
	Model      string
	Pricing    RequestPricing
	JSONObject bool
	Name       string
}

func NewOpenAIBackend(opts OpenAIOptions) *OpenAIBackend {
	model := opts.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	name := opts.Name
	if name == "" {
		name = model
	}

	// One POST per stage: retries are a user decision.
	reqOpts := []option.RequestOption{
		option.WithAPIKey(opts.APIKey),
		option.WithMaxRetries(0),
	}
	if opts.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(opts.BaseURL))
	}

	client := openai.NewClient(reqOpts...)
	return &OpenAIBackend{
		usageTracker: usageTracker{pricing: opts.Pricing},
		client:       &client,
		model:        model,
		name:         name,
		jsonObject:   opts.JSONObject,
	}
}

// NewArkBackend creates a backend for a Volcengine Ark inference endpoint.
// Ark takes the endpoint ID in place of a model name.
func NewArkBackend(apiKey, endpointID, baseURL string, pricing RequestPricing) *OpenAIBackend {
	if baseURL == "" {
		baseURL = defaultArkURL
	}
	return NewOpenAIBackend(OpenAIOptions{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		Model:      endpointID,
		Pricing:    pricing,
		JSONObject: true,
		Name:       "ark/" + endpointID,
	})
}

func (p *OpenAIBackend) Name() string {
	return p.name
}

func (p *OpenAIBackend) Generate(ctx context.Context, req *GenerateRequest) (string, error) {
	instruction := req.Instruction
	if p.jsonObject {
		instruction += "\n\nJSON Schema:\n" + report.SchemaJSON(req.Schema)
	}

	parts := []openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart(userText(req)),
	}
	if req.Image != nil {
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL:    req.Image.DataURL(),
			Detail: "high",
		}))
	}

	messages := []openai.ChatCompletionMessageParamUnion{
		{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: openai.String(instruction),
				},
			},
		},
		{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfArrayOfContentParts: parts,
				},
			},
		},
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:          p.model,
		Messages:       messages,
		ResponseFormat: p.responseFormat(req),
		MaxTokens:      openai.Int(int64(maxTokens)),
	})
	if err != nil {
		return "", fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", errors.New("no response from OpenAI")
	}

	// Track usage
	if resp.Usage.PromptTokens > 0 || resp.Usage.CompletionTokens > 0 {
		p.trackUsage(ctx, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
	}

	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAIBackend) responseFormat(req *GenerateRequest) openai.ChatCompletionNewParamsResponseFormatUnion {
	if p.jsonObject || req.Schema == nil {
		return openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	name := req.SchemaName
	if name == "" {
		name = "report"
	}
	return openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
			JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:   strings.ReplaceAll(name, "-", "_"),
				Schema: req.Schema,
				Strict: openai.Bool(true),
			},
		},
	}
}
