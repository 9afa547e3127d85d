package main

import (
	"fmt"
	"path/filepath"

	"haca/internal/backup"
	"haca/internal/document"

	"github.com/spf13/cobra"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage backups of the document files",
}

var backupListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recent backups",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := backupManager()
		if err != nil {
			return err
		}
		list, err := m.List()
		if err != nil {
			return err
		}
		if jsonOutput {
			return printJSON(list)
		}
		if len(list) == 0 {
			fmt.Println(mutedStyle.Render("No backups in " + m.Dir()))
			return nil
		}
		for _, b := range list {
			fmt.Printf("  %s  %-18s %8d  %s\n", b.Created, b.Source, b.Size, mutedStyle.Render(b.Path))
		}
		return nil
	},
}

var backupCreateCmd = &cobra.Command{
	Use:       "create <automations|scripts|scenes>",
	Short:     "Back up one document file",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"automations", "scripts", "scenes"},
	RunE: func(cmd *cobra.Command, args []string) error {
		files := map[string]string{
			"automations": document.AutomationsFile,
			"scripts":     document.ScriptsFile,
			"scenes":      document.ScenesFile,
		}
		file, ok := files[args[0]]
		if !ok {
			return fmt.Errorf("unknown file %q: use automations, scripts or scenes", args[0])
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path, err := backup.NewManager(cfg.ConfigDir).Create(filepath.Join(cfg.ConfigDir, file))
		if err != nil {
			return err
		}
		fmt.Println(path)
		return nil
	},
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <path>",
	Short: "Restore a backup over its source file",
	Long:  "Restore a backup. The current file is backed up first.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := backupManager()
		if err != nil {
			return err
		}
		restored, pre, err := m.Restore(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Restored %s\n", restored)
		if pre != "" {
			fmt.Println(mutedStyle.Render("Previous content saved to " + pre))
		}
		return nil
	},
}

var backupDeleteCmd = &cobra.Command{
	Use:   "delete <path>",
	Short: "Delete one backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := backupManager()
		if err != nil {
			return err
		}
		return m.Delete(args[0])
	},
}

func init() {
	backupCmd.AddCommand(backupListCmd)
	backupCmd.AddCommand(backupCreateCmd)
	backupCmd.AddCommand(backupRestoreCmd)
	backupCmd.AddCommand(backupDeleteCmd)
}

func backupManager() (*backup.Manager, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return backup.NewManager(cfg.ConfigDir), nil
}
