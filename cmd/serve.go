package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/xiangxin/internal/capture"
	"github.com/kozaktomas/xiangxin/internal/config"
	"github.com/kozaktomas/xiangxin/internal/database/postgres"
	"github.com/kozaktomas/xiangxin/internal/logger"
	"github.com/kozaktomas/xiangxin/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the 相心 web server.

Every browser gets its own capture session: open the camera, freeze a
frame or upload a photo, and follow the analysis over server-sent events.
A run log is kept in PostgreSQL when DATABASE_URL is set.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", 0, "Port to listen on (default from WEB_PORT, 8080)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from WEB_HOST, 0.0.0.0)")
	serveCmd.Flags().String("session-secret", "", "Secret for signing session cookies (default from WEB_SESSION_SECRET)")
	addAnalysisFlags(serveCmd)
}

// applyServeFlags lets explicit flags win over the environment.
func applyServeFlags(cmd *cobra.Command, cfg *config.Config) {
	if port := mustGetInt(cmd, "port"); port != 0 {
		cfg.Web.Port = port
	}
	if host := mustGetString(cmd, "host"); host != "" {
		cfg.Web.Host = host
	}
	if secret := mustGetString(cmd, "session-secret"); secret != "" {
		cfg.Web.SessionSecret = secret
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	applyServeFlags(cmd, cfg)

	store, err := openRunStore(cfg)
	if err != nil {
		return err
	}
	defer closeRunStore()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	analyzer, _, err := newAnalyzer(ctx, cfg, store)
	if err != nil {
		return err
	}

	deps := web.Dependencies{Analyzer: analyzer}
	if store != nil {
		deps.Runs = store
		deps.DB = postgres.GetGlobalPool()
	}
	if cfg.Camera.SnapshotURL != "" {
		deps.Camera = capture.NewSnapshotCamera(cfg.Camera.SnapshotURL, cfg.Camera.Timeout)
		logger.WithField("url", cfg.Camera.SnapshotURL).Info("snapshot camera enabled")
	} else {
		logger.Logger.Info("no camera configured, upload only")
	}
	if cfg.Web.SessionSecret == "" {
		logger.Logger.Warn("WEB_SESSION_SECRET not set, session cookies use a development secret")
	}

	server := web.NewServer(cfg, deps)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Logger.Info("received shutdown signal")

		shutdownCtx, shutdownCancel := context.WithTimeout(ctx, 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("error during shutdown")
		}
	}()

	logger.WithFields(map[string]any{
		"provider": analyzer.Name(),
		"pipeline": cfg.Analysis.Pipeline,
	}).Infof("starting 相心 web UI on http://%s:%d", cfg.Web.Host, cfg.Web.Port)

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}
