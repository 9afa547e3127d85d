package main

import (
	"fmt"
	"time"

	"haca/internal/app"
	"haca/internal/engine"
	"haca/internal/models"

	"github.com/spf13/cobra"
)

var (
	scanReport   bool
	scanCategory string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan the configuration and print the issues found",
	Long: `Run every rule against automations.yaml, scripts.yaml and scenes.yaml
and the registries, then print the health score and the issues.

Examples:
  haca scan                        # Summary and all issues
  haca scan --category security    # Only one category
  haca scan --report               # Also write haca_reports/haca_report_<ts>.json`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&scanReport, "report", false, "Write a JSON report under haca_reports")
	scanCmd.Flags().StringVar(&scanCategory, "category", "", "Only print issues of this category")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	eng, done, err := app.NewOfflineEngine(cfg)
	if err != nil {
		return err
	}
	defer done()

	res, err := eng.Run(cmd.Context())
	if err != nil {
		return err
	}
	if scanReport {
		path, err := eng.WriteReport()
		if err != nil {
			return err
		}
		if !jsonOutput {
			fmt.Printf("Report written to %s\n\n", path)
		}
	}

	if jsonOutput {
		return printJSON(engine.Report(res))
	}
	return scanTable(res)
}

func scoreStyle(score int) string {
	s := fmt.Sprintf("%d%%", score)
	switch {
	case score >= 80:
		return passStyle.Render(s)
	case score >= 50:
		return mediumStyle.Render(s)
	}
	return highStyle.Render(s)
}

func severityLabel(s models.Severity) string {
	switch s {
	case models.SeverityHigh:
		return highStyle.Render("HIGH  ")
	case models.SeverityMedium:
		return mediumStyle.Render("MEDIUM")
	}
	return lowStyle.Render("LOW   ")
}

func scanTable(res *engine.Result) error {
	fmt.Printf("Health score: %s  (%d issues, %s)\n\n", scoreStyle(res.Score), res.Total, res.Duration.Round(time.Millisecond))

	counts := res.Counts()
	for _, c := range models.Categories {
		fmt.Printf("  %-12s %d\n", c, counts[c])
	}
	fmt.Println()

	for _, c := range models.Categories {
		if scanCategory != "" && string(c) != scanCategory {
			continue
		}
		issues := res.Issues[c]
		if len(issues) == 0 {
			continue
		}
		fmt.Println(boldStyle.Render(string(c)))
		for _, i := range issues {
			fix := ""
			if i.FixAvailable {
				fix = passStyle.Render(" [fixable]")
			}
			fmt.Printf("  %s %s %s%s\n", severityLabel(i.Severity), i.EntityID, mutedStyle.Render(string(i.Type)), fix)
			fmt.Printf("         %s\n", i.Message)
			if i.Location != "" {
				fmt.Printf("         %s\n", mutedStyle.Render("at "+i.Location))
			}
			if i.Recommendation != "" {
				fmt.Printf("         %s\n", mutedStyle.Render(i.Recommendation))
			}
		}
		fmt.Println()
	}
	return nil
}
