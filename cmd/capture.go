package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/xiangxin/internal/capture"
	"github.com/kozaktomas/xiangxin/internal/report"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture a frame from the configured camera and analyze it",
	Long: `Grab one frame from CAMERA_SNAPSHOT_URL and analyze it.

The camera is opened for the capture only and released before the
analysis starts.

Examples:
  xiangxin capture
  xiangxin capture --save frame.jpg --json`,
	Args: cobra.NoArgs,
	RunE: runCapture,
}

func init() {
	rootCmd.AddCommand(captureCmd)

	captureCmd.Flags().Bool("json", false, "Output as JSON")
	captureCmd.Flags().String("save", "", "Also write the captured JPEG to this path")
	addAnalysisFlags(captureCmd)
}

func runCapture(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")
	savePath := mustGetString(cmd, "save")

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.Camera.SnapshotURL == "" {
		return errors.New("CAMERA_SNAPSHOT_URL environment variable is required")
	}

	camera := capture.NewSnapshotCamera(cfg.Camera.SnapshotURL, cfg.Camera.Timeout)
	constraints := capture.DefaultConstraints()
	constraints.Width = cfg.Camera.Width
	constraints.Height = cfg.Camera.Height

	img, err := grabFrame(cmd.Context(), camera, constraints)
	if err != nil {
		return userError(err)
	}

	if savePath != "" {
		if err := os.WriteFile(savePath, img.Data, 0o644); err != nil {
			return fmt.Errorf("failed to save frame: %w", err)
		}
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

// grabFrame opens the camera, freezes one frame and releases the stream.
func grabFrame(ctx context.Context, camera capture.Camera, constraints capture.Constraints) (capture.EncodedImage, error) {
	handle, err := capture.Acquire(ctx, camera, constraints)
	if err != nil {
		return capture.EncodedImage{}, err
	}
	defer handle.Release()

	return handle.Capture(ctx)
}
