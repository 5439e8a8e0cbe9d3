package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kozaktomas/xiangxin/internal/constants"
	"gopkg.in/yaml.v3"
)

//go:embed prices.yaml
var pricesYAML []byte

type Config struct {
	Analysis AnalysisConfig
	OpenAI   OpenAIConfig
	Ark      ArkConfig
	Gemini   GeminiConfig
	Ollama   OllamaConfig
	Camera   CameraConfig
	Database DatabaseConfig
	Web      WebConfig
	Log      LogConfig
	Prices   PricesConfig
}

type AnalysisConfig struct {
	Provider       string // openai, ark, gemini or ollama
	Pipeline       string // single or two-stage
	MaxUploadBytes int64
	Timeout        time.Duration
}

type OpenAIConfig struct {
	Token   string
	BaseURL string // optional, for OpenAI-compatible gateways
	Model   string // defaults to gpt-4.1-mini
}

// ArkConfig configures the Volcengine Ark endpoint (OpenAI-compatible chat completions).
type ArkConfig struct {
	APIKey     string
	EndpointID string // Ark inference endpoint ID, sent as the model name
	URL        string // defaults to https://ark.cn-beijing.volces.com/api/v3
}

type GeminiConfig struct {
	APIKey string
	Model  string // defaults to gemini-2.5-flash
	URL    string // optional, overrides the Gemini API endpoint
}

type OllamaConfig struct {
	URL   string // defaults to http://localhost:11434
	Model string // defaults to llama3.2-vision:11b
}

type CameraConfig struct {
	SnapshotURL string // empty means no camera is attached
	Width       int
	Height      int
	Timeout     time.Duration
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL, optional
	MaxOpenConns int    // Maximum open connections (default 10)
	MaxIdleConns int    // Maximum idle connections (default 2)
}

type WebConfig struct {
	Host           string
	Port           int
	SessionSecret  string   // signs session cookies; a development default is used when empty
	AllowedOrigins []string // CORS whitelist in addition to localhost
}

type LogConfig struct {
	Level  string
	Format string
}

type PricesConfig struct {
	Models map[string]ModelPricing `yaml:"models"`
}

type ModelPricing struct {
	Standard RequestPricing `yaml:"standard"`
}

type RequestPricing struct {
	Input  float64 `yaml:"input"`
	Output float64 `yaml:"output"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envList splits a comma-separated environment variable, dropping blanks.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// envDuration reads an environment variable as a Go duration ("30s", "2m").
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func Load() *Config {
	var prices PricesConfig
	if err := yaml.Unmarshal(pricesYAML, &prices); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded prices.yaml: " + err.Error())
	}

	return &Config{
		Analysis: AnalysisConfig{
			Provider:       envString("ANALYSIS_PROVIDER", constants.ProviderOpenAI),
			Pipeline:       envString("ANALYSIS_PIPELINE", constants.PipelineSingle),
			MaxUploadBytes: int64(envInt("MAX_UPLOAD_BYTES", constants.MaxUploadSize)),
			Timeout:        envDuration("ANALYSIS_TIMEOUT", constants.DefaultAnalysisTimeout),
		},
		OpenAI: OpenAIConfig{
			Token:   os.Getenv("OPENAI_TOKEN"),
			BaseURL: os.Getenv("OPENAI_BASE_URL"),
			Model:   os.Getenv("OPENAI_MODEL"),
		},
		Ark: ArkConfig{
			APIKey:     os.Getenv("ARK_API_KEY"),
			EndpointID: os.Getenv("ARK_ENDPOINT_ID"),
			URL:        os.Getenv("ARK_URL"),
		},
		Gemini: GeminiConfig{
			APIKey: os.Getenv("GEMINI_API_KEY"),
			Model:  os.Getenv("GEMINI_MODEL"),
			URL:    os.Getenv("GEMINI_URL"),
		},
		Ollama: OllamaConfig{
			URL:   os.Getenv("OLLAMA_URL"),
			Model: os.Getenv("OLLAMA_MODEL"),
		},
		Camera: CameraConfig{
			SnapshotURL: os.Getenv("CAMERA_SNAPSHOT_URL"),
			Width:       envInt("CAMERA_WIDTH", constants.CameraWidth),
			Height:      envInt("CAMERA_HEIGHT", constants.CameraHeight),
			Timeout:     envDuration("CAMERA_TIMEOUT", constants.DefaultCameraTimeout),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 2),
		},
		Web: WebConfig{
			Host:           envString("WEB_HOST", "0.0.0.0"),
			Port:           envInt("WEB_PORT", 8080),
			SessionSecret:  os.Getenv("WEB_SESSION_SECRET"),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		Log: LogConfig{
			Level:  os.Getenv("LOG_LEVEL"),
			Format: os.Getenv("LOG_FORMAT"),
		},
		Prices: prices,
	}
}

// Validate checks the settings that select the analysis pipeline.
func (c *Config) Validate() error {
	switch c.Analysis.Provider {
	case constants.ProviderOpenAI, constants.ProviderArk, constants.ProviderGemini, constants.ProviderOllama:
	default:
		return fmt.Errorf("unknown ANALYSIS_PROVIDER %q", c.Analysis.Provider)
	}
	switch c.Analysis.Pipeline {
	case constants.PipelineSingle, constants.PipelineTwoStage:
	default:
		return fmt.Errorf("unknown ANALYSIS_PIPELINE %q", c.Analysis.Pipeline)
	}
	return nil
}

// GetModelPricing returns pricing for a specific model, with fallback defaults
func (c *Config) GetModelPricing(modelName string) ModelPricing {
	if pricing, ok := c.Prices.Models[modelName]; ok {
		return pricing
	}
	// Return zero pricing if model not found
	return ModelPricing{}
}
