// Command haca audits a Home Assistant configuration and previews or
// applies fixes from the command line.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"haca/internal/config"
	"haca/internal/utils"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

// Global flags
var (
	jsonOutput bool
	configDir  string
	logLevel   string
)

// Styles for output
var (
	highStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#f07171",
		Dark:  "#f07178",
	})
	mediumStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#f2ae49",
		Dark:  "#ffb454",
	})
	lowStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#399ee6",
		Dark:  "#59c2ff",
	})
	passStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#86b300",
		Dark:  "#c2d94c",
	})
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{
		Light: "#828c99",
		Dark:  "#6c7680",
	})
	boldStyle = lipgloss.NewStyle().Bold(true)
)

var rootCmd = &cobra.Command{
	Use:   "haca",
	Short: "Audit Home Assistant automations, scripts and scenes",
	Long: `haca finds fragile device references, inefficient templates, wrong run
modes, broken entity links and leaked secrets in a Home Assistant
configuration, scores its health and rewrites fixable issues with a backup.

Examples:
  haca scan                                  # Scan and print issues
  haca scan --json                           # Full report as JSON
  haca fix preview 1700000000000 --type device_id
  haca fix apply "Hall light" --type mode --mode restart
  haca backup list
  haca serve                                 # Run the API and scheduler`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := logLevel
		if level == "" {
			level = "warn"
		}
		return utils.InitLogging(level)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVarP(&configDir, "config-dir", "c", "", "Home Assistant configuration directory (default CONFIG_DIR)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(hashPasswordCmd)
}

func main() {
	defer utils.SyncLogging()
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, highStyle.Render("Error: "+err.Error()))
		os.Exit(1)
	}
}

// loadConfig reads the configuration and applies command line overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if configDir != "" {
		cfg.ConfigDir = configDir
	}
	return cfg, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
