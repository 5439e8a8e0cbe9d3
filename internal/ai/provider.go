package ai

import (
	"context"
	"sync"

	"github.com/kozaktomas/xiangxin/internal/capture"
	"github.com/kozaktomas/xiangxin/internal/report"
)

// Analyzer produces a report from a captured image or fails with one of
// BackendUnavailable, MalformedResponse or ValidationError.
type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, img capture.EncodedImage) (*report.AnalysisReport, error)
}

// Backend is the transport to one inference provider. It returns the raw
// textual payload of a single schema-constrained call.
type Backend interface {
	Name() string
	Generate(ctx context.Context, req *GenerateRequest) (string, error)

	// Usage tracking.
	GetUsage() Usage
	ResetUsage()
}

// GenerateRequest is one inference call. Context is optional structured
// input sent as user text, Image is optional.
type GenerateRequest struct {
	Instruction string
	Context     string
	Image       *capture.EncodedImage
	Schema      map[string]any
	SchemaName  string
	MaxTokens   int
}

// Usage tracks token usage and calculates cost.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalCost    float64 // in USD
}

// RequestPricing holds input/output prices per 1M tokens
type RequestPricing struct {
	Input  float64
	Output float64
}

// usageTracker is shared by backends. Backends are used by concurrent
// sessions so the counters are guarded.
type usageTracker struct {
	mu      sync.Mutex
	usage   Usage
	pricing RequestPricing
}

func (u *usageTracker) GetUsage() Usage {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.usage
}

func (u *usageTracker) ResetUsage() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.usage = Usage{}
}

func (u *usageTracker) trackUsage(ctx context.Context, inputTokens, outputTokens int64) {
	cost := float64(inputTokens)/1_000_000*u.pricing.Input + float64(outputTokens)/1_000_000*u.pricing.Output

	u.mu.Lock()
	u.usage.add(inputTokens, outputTokens, cost)
	u.mu.Unlock()

	if run, ok := ctx.Value(runUsageKey{}).(*runUsage); ok {
		run.mu.Lock()
		run.usage.add(inputTokens, outputTokens, cost)
		run.mu.Unlock()
	}
}

func (u *Usage) add(inputTokens, outputTokens int64, cost float64) {
	u.InputTokens += int(inputTokens)
	u.OutputTokens += int(outputTokens)
	u.TotalCost += cost
}

type runUsageKey struct{}

// runUsage accumulates the usage of a single pipeline run across stages.
type runUsage struct {
	mu    sync.Mutex
	usage Usage
}

func withRunUsage(ctx context.Context) (context.Context, *runUsage) {
	run := &runUsage{}
	return context.WithValue(ctx, runUsageKey{}, run), run
}

func (r *runUsage) get() Usage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.usage
}

// userText is the text part of the user message for a request.
func userText(req *GenerateRequest) string {
	if req.Context != "" {
		return req.Context
	}
	return "请分析这张照片。"
}
