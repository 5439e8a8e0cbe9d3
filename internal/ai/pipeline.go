package ai

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/kozaktomas/xiangxin/internal/apperrors"
	"github.com/kozaktomas/xiangxin/internal/capture"
	"github.com/kozaktomas/xiangxin/internal/logger"
	"github.com/kozaktomas/xiangxin/internal/report"
)

//go:embed prompts/single.txt
var singlePrompt string

//go:embed prompts/observe.txt
var observePrompt string

//go:embed prompts/reason.txt
var reasonPrompt string

// Stage names used in logs and errors.
const (
	StageSingle  = "single"
	StageObserve = "observe"
	StageReason  = "reason"
)

const (
	observeMaxTokens = 1500
	reportMaxTokens  = 4096
)

// SingleStage asks the backend for the full report in one call.
type SingleStage struct {
	backend Backend
}

func NewSingleStage(backend Backend) *SingleStage {
	return &SingleStage{backend: backend}
}

func (p *SingleStage) Name() string {
	return "single/" + p.backend.Name()
}

func (p *SingleStage) Analyze(ctx context.Context, img capture.EncodedImage) (*report.AnalysisReport, error) {
	raw, err := generate(ctx, p.backend, StageSingle, &GenerateRequest{
		Instruction: singlePrompt,
		Image:       &img,
		Schema:      report.Schema(),
		SchemaName:  "face_report",
		MaxTokens:   reportMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	r, err := report.Parse(raw)
	if err != nil {
		return nil, contractViolation(p.backend, StageSingle, err)
	}
	return r, nil
}

// TwoStage first extracts observations from the image, then reasons over
// the observations alone to produce the extended report.
type TwoStage struct {
	backend Backend
}

func NewTwoStage(backend Backend) *TwoStage {
	return &TwoStage{backend: backend}
}

func (p *TwoStage) Name() string {
	return "two-stage/" + p.backend.Name()
}

func (p *TwoStage) Analyze(ctx context.Context, img capture.EncodedImage) (*report.AnalysisReport, error) {
	observations, err := p.observe(ctx, img)
	if err != nil {
		return nil, err
	}

	observed, err := json.Marshal(map[string]any{"observations": observations})
	if err != nil {
		return nil, fmt.Errorf("failed to encode observations: %w", err)
	}

	raw, err := generate(ctx, p.backend, StageReason, &GenerateRequest{
		Instruction: reasonPrompt,
		Context:     string(observed),
		Schema:      report.ExtendedSchema(),
		SchemaName:  "face_report_extended",
		MaxTokens:   reportMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	r, err := report.ParseExtended(raw)
	if err != nil {
		return nil, contractViolation(p.backend, StageReason, err)
	}
	r.Observations = observations
	return r, nil
}

func (p *TwoStage) observe(ctx context.Context, img capture.EncodedImage) ([]report.Observation, error) {
	raw, err := generate(ctx, p.backend, StageObserve, &GenerateRequest{
		Instruction: observePrompt,
		Image:       &img,
		Schema:      report.ObservationsSchema(),
		SchemaName:  "face_observations",
		MaxTokens:   observeMaxTokens,
	})
	if err != nil {
		return nil, err
	}

	observations, err := report.ParseObservations(raw)
	if err != nil {
		return nil, contractViolation(p.backend, StageObserve, err)
	}
	return observations, nil
}

// generate performs one backend call and maps transport failures.
func generate(ctx context.Context, backend Backend, stage string, req *GenerateRequest) (string, error) {
	log := stageLog(backend, stage)
	log.Debug("sending inference request")

	raw, err := backend.Generate(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			log.Debug("inference request cancelled")
		} else {
			log.WithError(err).Warn("inference backend failed")
		}
		return "", apperrors.BackendUnavailable(fmt.Sprintf("stage %s failed", stage), err)
	}
	return raw, nil
}

func contractViolation(backend Backend, stage string, err error) error {
	stageLog(backend, stage).WithError(err).Error("backend response violates the report contract")
	return err
}

func stageLog(backend Backend, stage string) *logrus.Entry {
	return logger.WithFields(logrus.Fields{
		"provider": backend.Name(),
		"stage":    stage,
	})
}
