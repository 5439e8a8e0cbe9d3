package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/xiangxin/internal/apperrors"
	"github.com/kozaktomas/xiangxin/internal/capture"
	"github.com/kozaktomas/xiangxin/internal/report"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>",
	Short: "Analyze a face photo from a file",
	Long: `Analyze a face photo and print the reading.

The image is checked against MAX_UPLOAD_BYTES, decoded, downscaled and
re-encoded as JPEG before it is sent to the configured provider.

Examples:
  # Analyze with the configured provider
  xiangxin analyze face.jpg

  # Two-stage pipeline via Gemini, JSON output
  xiangxin analyze face.jpg --provider gemini --pipeline two-stage --json`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().Bool("json", false, "Output as JSON")
	addAnalysisFlags(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	size := int64(capture.UnknownSize)
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}

	img, err := capture.FromFile(f, size, cfg.Analysis.MaxUploadBytes)
	if err != nil {
		return userError(err)
	}

	store, err := openRunStore(cfg)
	if err != nil {
		return err
	}
	defer closeRunStore()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Analysis.Timeout)
	defer cancel()

	analyzer, backend, err := newAnalyzer(ctx, cfg, store)
	if err != nil {
		return err
	}

	result, err := withSpinner("正在解读 ("+analyzer.Name()+")", func() (*report.AnalysisReport, error) {
		return analyzer.Analyze(ctx, img)
	})
	if err != nil {
		return userError(err)
	}

	if jsonOutput {
		return outputJSON(result)
	}
	printReport(result)
	printUsage(backend)
	return nil
}

// userError pairs the user-facing message with the underlying cause.
func userError(err error) error {
	if kind := apperrors.KindOf(err); kind != "" {
		return fmt.Errorf("%s (%s): %w", apperrors.UserMessage(err), kind, err)
	}
	return err
}
