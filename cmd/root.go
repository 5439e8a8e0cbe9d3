package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/xiangxin/internal/logger"
)

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "xiangxin",
	Short: "Face photo to structured reading report",
	Long: `Xiangxin captures a face photo from a camera or a file, sends it to a
vision-capable model and renders the structured reading it returns.

Providers (ANALYSIS_PROVIDER): openai, ark, gemini, ollama.
Pipelines (ANALYSIS_PIPELINE): single, two-stage.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default from LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: json or text (default from LOG_FORMAT)")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()

	if logLevel == "" {
		logLevel = os.Getenv("LOG_LEVEL")
	}
	if logFormat == "" {
		logFormat = os.Getenv("LOG_FORMAT")
	}
	logger.Configure(logLevel, logFormat)
}
