package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/kozaktomas/xiangxin/internal/ai"
	"github.com/kozaktomas/xiangxin/internal/report"
)

func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON output: %w", err)
	}
	return nil
}

// withSpinner shows an indeterminate spinner on stderr while fn runs.
func withSpinner[T any](description string, fn func() (T, error)) (T, error) {
	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionClearOnFinish(),
	)

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				_ = bar.Add(1)
			}
		}
	}()

	result, err := fn()
	close(done)
	_ = bar.Finish()
	return result, err
}

// printReport renders a report for the terminal.
func printReport(r *report.AnalysisReport) {
	if r.Headline != nil {
		fmt.Printf("%s\n%s\n\n", r.Headline.Verse, r.Headline.Summary)
	}

	fmt.Printf("综合评分: %d\n", r.Score)
	fmt.Printf("五行: %s (%s)\n\n", r.PrimaryCategory, r.CategoryRationale)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "宫位\t状态\t解读")
	for _, s := range r.Sections {
		fmt.Fprintf(w, "%s\t%s\t%s\n", s.Name, s.Status, s.Detail)
	}
	w.Flush()
	fmt.Println()

	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "指标\t数值\t标签\t说明")
	for _, m := range r.RiskMetrics {
		fmt.Fprintf(w, "%s\t%d%%\t%s\t%s\n", m.Label, m.NormalizedValue, m.QualitativeTag, m.Detail)
	}
	w.Flush()
	fmt.Println()

	fmt.Printf("过去: %s\n", r.NarrativeBlocks.Past)
	fmt.Printf("现在: %s\n", r.NarrativeBlocks.Present)
	fmt.Printf("未来: %s\n\n", r.NarrativeBlocks.Future)

	fmt.Printf("角色: %s\n", r.RoleProfile.Role)
	fmt.Printf("  优势: %s\n", strings.Join(r.RoleProfile.Strengths, "、"))
	fmt.Printf("  建议: %s\n", r.RoleProfile.Advice)
	fmt.Printf("  相合: %s\n\n", r.RoleProfile.Compatibility)

	fmt.Printf("性格: %s\n", r.PersonalitySummary)
	fmt.Printf("社交: %s\n", r.SocialGuidance)
	fmt.Printf("推荐活动: %s\n", strings.Join(r.SuggestedActivities, "、"))
	fmt.Printf("当前状态: %s - %s\n", r.CurrentStateLabel, r.CurrentStateMessage)

	if len(r.Moles) > 0 {
		fmt.Println()
		for _, m := range r.Moles {
			fmt.Printf("痣 %s (%s): %s\n", m.Position, m.Nature, m.Meaning)
		}
	}

	if r.ExtendedLog != nil {
		fmt.Println()
		fmt.Printf("骨相: %s\n", r.ExtendedLog.StructuralNotes)
		fmt.Printf("神态: %s\n", r.ExtendedLog.DemeanorNotes)
		fmt.Printf("风险: %s\n", r.ExtendedLog.RiskNotes)
	}
}

// printUsage prints token usage and cost for the run.
func printUsage(backend ai.Backend) {
	usage := backend.GetUsage()
	fmt.Fprintf(os.Stderr, "\n%s: %d input / %d output tokens, $%.4f\n",
		backend.Name(), usage.InputTokens, usage.OutputTokens, usage.TotalCost)
}
