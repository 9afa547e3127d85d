package main

import (
	"fmt"

	"haca/internal/app"
	"haca/internal/backup"
	"haca/internal/refactor"

	"github.com/spf13/cobra"
)

var (
	fixType        string
	fixMode        string
	fixDescription string
	fixDryRun      bool
)

var fixCmd = &cobra.Command{
	Use:   "fix",
	Short: "Preview or apply an automatic fix",
}

var fixPreviewCmd = &cobra.Command{
	Use:   "preview <automation>",
	Short: "Show the change set and diff of a fix",
	Long: `Compute the changes a fix would make without touching any file.
The automation is named by id, alias, entity id or automation.unknown_<x>.

Fix types:
  device_id    Replace device triggers, conditions and actions with entity ones
  mode         Change the run mode (--mode single|restart|queued|parallel)
  template     Replace simple is_state templates with state conditions
  description  Add a description (--description "...")`,
	Args: cobra.ExactArgs(1),
	RunE: runFixPreview,
}

var fixApplyCmd = &cobra.Command{
	Use:   "apply <automation>",
	Short: "Apply a fix after backing up the file",
	Args:  cobra.ExactArgs(1),
	RunE:  runFixApply,
}

func init() {
	for _, c := range []*cobra.Command{fixPreviewCmd, fixApplyCmd} {
		c.Flags().StringVarP(&fixType, "type", "t", "", "Fix type: device_id, mode, template, description")
		c.Flags().StringVar(&fixMode, "mode", "", "Target mode for --type mode")
		c.Flags().StringVar(&fixDescription, "description", "", "Text for --type description")
		_ = c.MarkFlagRequired("type")
	}
	fixApplyCmd.Flags().BoolVar(&fixDryRun, "dry-run", false, "Validate against the live file without writing")

	fixCmd.AddCommand(fixPreviewCmd)
	fixCmd.AddCommand(fixApplyCmd)
}

func newAssistant() (*refactor.Assistant, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	provider, done, err := app.NewProvider(cfg)
	if err != nil {
		return nil, nil, err
	}
	return refactor.NewAssistant(cfg.ConfigDir, provider, backup.NewManager(cfg.ConfigDir)), done, nil
}

func fixRequest(target string) refactor.Request {
	return refactor.Request{
		Target:      target,
		Fix:         refactor.Fix(fixType),
		Mode:        fixMode,
		Description: fixDescription,
	}
}

func runFixPreview(cmd *cobra.Command, args []string) error {
	assistant, done, err := newAssistant()
	if err != nil {
		return err
	}
	defer done()

	preview, err := assistant.Preview(cmd.Context(), fixRequest(args[0]))
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(preview)
	}

	fmt.Printf("%s %s (%s)\n\n", boldStyle.Render("Fix "+string(preview.Fix)+" for"), preview.EntityID, preview.File)
	for _, c := range preview.Changes {
		fmt.Printf("  - %s\n", c.Description)
	}
	fmt.Println()
	fmt.Println(preview.Diff)
	return nil
}

func runFixApply(cmd *cobra.Command, args []string) error {
	assistant, done, err := newAssistant()
	if err != nil {
		return err
	}
	defer done()

	preview, err := assistant.Preview(cmd.Context(), fixRequest(args[0]))
	if err != nil {
		return err
	}
	res, err := assistant.Apply(cmd.Context(), preview, fixDryRun)
	if err != nil {
		if res != nil && res.BackupPath != "" {
			return fmt.Errorf("%w (backup at %s)", err, res.BackupPath)
		}
		return err
	}
	if jsonOutput {
		return printJSON(res)
	}

	fmt.Println(passStyle.Render(res.Message))
	for _, c := range res.Changes {
		fmt.Printf("  - %s\n", c.Description)
	}
	if res.BackupPath != "" {
		fmt.Printf("Applied %d changes, backup at %s\n", res.ChangesApplied, res.BackupPath)
	}
	return nil
}
