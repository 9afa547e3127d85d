package main

import (
	"os"
	"path/filepath"
	"testing"

	"haca/internal/backup"
	"haca/internal/document"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const automations = `- id: '1'
  alias: Porch
  conditions:
    - condition: template
      value_template: "{{ is_state('sun.sun', 'below_horizon') }}"
  actions:
    - action: light.turn_on
      target:
        entity_id: light.porch
`

// resetFlags clears the package level flag values, which cobra keeps
// between Execute calls
func resetFlags() {
	jsonOutput, configDir, logLevel = false, "", ""
	scanReport, scanCategory = false, ""
	fixType, fixMode, fixDescription, fixDryRun = "", "", "", false
}

func run(t *testing.T, args ...string) error {
	t.Helper()
	resetFlags()
	t.Cleanup(resetFlags)
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func setup(t *testing.T) (string, []byte) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, document.AutomationsFile)
	require.NoError(t, os.WriteFile(path, []byte(automations), 0o644))
	return dir, []byte(automations)
}

func TestScanWritesReport(t *testing.T) {
	dir, _ := setup(t)
	require.NoError(t, run(t, "scan", "--config-dir", dir, "--report", "--json"))

	reports, err := filepath.Glob(filepath.Join(dir, "haca_reports", "haca_report_*.json"))
	require.NoError(t, err)
	assert.Len(t, reports, 1)
}

func TestFixApplyDryRunAndApply(t *testing.T) {
	dir, original := setup(t)
	path := filepath.Join(dir, document.AutomationsFile)

	require.NoError(t, run(t, "fix", "apply", "1", "--config-dir", dir, "--type", "template", "--dry-run"))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, data)

	require.NoError(t, run(t, "fix", "apply", "Porch", "--config-dir", dir, "--type", "mode", "--mode", "restart"))
	data, err = os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "mode: restart")

	err = run(t, "fix", "preview", "1", "--config-dir", dir, "--type", "mode", "--mode", "often")
	assert.Error(t, err)
}

func TestBackupCommands(t *testing.T) {
	dir, _ := setup(t)
	require.NoError(t, run(t, "backup", "create", "automations", "--config-dir", dir))

	list, err := backup.NewManager(dir).List()
	require.NoError(t, err)
	require.Len(t, list, 1)

	require.NoError(t, run(t, "backup", "list", "--config-dir", dir, "--json"))
	assert.Error(t, run(t, "backup", "delete", filepath.Join(dir, document.AutomationsFile), "--config-dir", dir))
	require.NoError(t, run(t, "backup", "delete", list[0].Path, "--config-dir", dir))
	assert.NoFileExists(t, list[0].Path)

	assert.Error(t, run(t, "backup", "create", "secrets", "--config-dir", dir))
}
