package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/xiangxin/internal/ai"
	"github.com/kozaktomas/xiangxin/internal/config"
	"github.com/kozaktomas/xiangxin/internal/database"
	"github.com/kozaktomas/xiangxin/internal/database/postgres"
	"github.com/kozaktomas/xiangxin/internal/logger"
)

// addAnalysisFlags registers the flags that override ANALYSIS_PROVIDER and ANALYSIS_PIPELINE.
func addAnalysisFlags(cmd *cobra.Command) {
	cmd.Flags().String("provider", "", "AI provider: openai, ark, gemini, ollama (default from ANALYSIS_PROVIDER)")
	cmd.Flags().String("pipeline", "", "Pipeline: single or two-stage (default from ANALYSIS_PIPELINE)")
}

// loadConfig loads the environment configuration and applies flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Load()
	if provider := mustGetString(cmd, "provider"); provider != "" {
		cfg.Analysis.Provider = provider
	}
	if pipeline := mustGetString(cmd, "pipeline"); pipeline != "" {
		cfg.Analysis.Pipeline = pipeline
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openRunStore connects to PostgreSQL when DATABASE_URL is set.
// It returns a nil store when no database is configured.
func openRunStore(cfg *config.Config) (*postgres.RunRepository, error) {
	if cfg.Database.URL == "" {
		return nil, nil
	}
	if err := postgres.Initialize(context.Background(), &cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}
	logger.Logger.Info("analysis run log enabled (PostgreSQL)")
	return postgres.NewRunRepository(postgres.GetGlobalPool()), nil
}

// closeRunStore closes the global pool if one was opened.
func closeRunStore() {
	if pool := postgres.GetGlobalPool(); pool != nil {
		if err := pool.Close(); err != nil {
			logger.WithError(err).Warn("failed to close database pool")
		}
	}
}

// newAnalyzer builds the configured pipeline, recording runs when store is non-nil.
func newAnalyzer(ctx context.Context, cfg *config.Config, store *postgres.RunRepository) (ai.Analyzer, ai.Backend, error) {
	var recorder database.RunRecorder
	if store != nil {
		recorder = store
	}
	analyzer, backend, err := ai.New(ctx, cfg, recorder)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create analyzer: %w", err)
	}
	return analyzer, backend, nil
}
