package ai

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/kozaktomas/xiangxin/internal/apperrors"
	"github.com/kozaktomas/xiangxin/internal/capture"
	"github.com/kozaktomas/xiangxin/internal/database"
	"github.com/kozaktomas/xiangxin/internal/fingerprint"
	"github.com/kozaktomas/xiangxin/internal/logger"
	"github.com/kozaktomas/xiangxin/internal/report"
)

const recordTimeout = 5 * time.Second

// Recording wraps an Analyzer and writes every attempt to a run log.
// Recording failures are logged and never change the analysis result.
type Recording struct {
	next     Analyzer
	recorder database.RunRecorder
	pipeline string
	provider string
}

func NewRecording(next Analyzer, recorder database.RunRecorder, pipeline, provider string) *Recording {
	return &Recording{next: next, recorder: recorder, pipeline: pipeline, provider: provider}
}

func (r *Recording) Name() string {
	return r.next.Name()
}

func (r *Recording) Analyze(ctx context.Context, img capture.EncodedImage) (*report.AnalysisReport, error) {
	runCtx, usage := withRunUsage(ctx)
	start := time.Now()

	result, err := r.next.Analyze(runCtx, img)

	spent := usage.get()
	run := &database.AnalysisRun{
		Pipeline:     r.pipeline,
		Provider:     r.provider,
		Outcome:      database.OutcomeOK,
		DurationMs:   time.Since(start).Milliseconds(),
		InputTokens:  spent.InputTokens,
		OutputTokens: spent.OutputTokens,
		Cost:         spent.TotalCost,
		CreatedAt:    start,
	}
	if hash, hashErr := fingerprint.Compute(img.Data); hashErr == nil {
		run.ImageHash = hash.String()
	} else {
		logger.WithError(hashErr).Debug("could not fingerprint analyzed image")
	}
	if err != nil {
		run.Outcome = string(apperrors.KindOf(err))
		if run.Outcome == "" {
			run.Outcome = "error"
		}
	} else {
		score := result.Score
		run.Score = &score
		run.Category = string(result.PrimaryCategory)
	}

	// The caller's context may already be cancelled; the record is still written.
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	if recErr := r.recorder.Record(recCtx, run); recErr != nil {
		logger.WithFields(logrus.Fields{
			"pipeline": r.pipeline,
			"provider": r.provider,
		}).WithError(recErr).Warn("failed to record analysis run")
	}

	return result, err
}
