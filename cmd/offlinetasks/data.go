package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"offlinetasks/backend"
	"offlinetasks/internal/utils"

	"github.com/spf13/cobra"
)

// newDataCmd groups migration, snapshots and database maintenance.
func newDataCmd() *cobra.Command {
	dataCmd := &cobra.Command{
		Use:   "data",
		Short: "Migrate, export, import and maintain the database",
		Long: `Move task data in and out of the local database.

Examples:
  offlinetasks data migrate                  # Import the legacy JSON file once
  offlinetasks data export tasks.yaml        # Snapshot to YAML (or .json)
  offlinetasks data import tasks.yaml        # Replace everything with a snapshot
  offlinetasks data info                     # Record counts and sync backlog
  offlinetasks data purge --older-than 30d   # Drop old tombstones
  offlinetasks data vacuum                   # Compact the database file`,
	}

	dataCmd.AddCommand(newMigrateCmd())
	dataCmd.AddCommand(newExportCmd())
	dataCmd.AddCommand(newImportCmd())
	dataCmd.AddCommand(newInfoCmd())
	dataCmd.AddCommand(newPurgeCmd())
	dataCmd.AddCommand(newVacuumCmd())
	return dataCmd
}

func newMigrateCmd() *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Import the legacy flat JSON file",
		Long: `Copy every task from the legacy flat JSON file into the database and
clear the file. Ids are kept and every record is pushed on the next sync.
Running it again after a successful migration does nothing.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp(cmd)
			if err != nil {
				return err
			}
			n, err := a.MigrateFromLegacy(cmd.Context(), from)
			if err != nil {
				return err
			}
			if n == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to migrate")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Migrated %d task(s)\n", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "legacy file (default: legacy.path from config)")
	return cmd
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Write a snapshot of every task",
		Long: `Write every task, deleted ones included, with their history. The format
follows the file extension (.yaml/.yml or .json); without a file the snapshot
goes to stdout in the --format given (JSON by default).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp(cmd)
			if err != nil {
				return err
			}
			snapshot, err := a.Export(cmd.Context())
			if err != nil {
				return err
			}

			if len(args) == 0 {
				format, ok := structuredFormat()
				if !ok {
					format = utils.FormatJSON
				}
				return utils.Write(cmd.OutOrStdout(), snapshot, format)
			}

			path := args[0]
			data, err := utils.Marshal(snapshot, utils.FormatFromPath(path))
			if err != nil {
				return err
			}
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return fmt.Errorf("failed to create directory: %w", err)
			}
			if err := os.WriteFile(path, data, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d task(s) to %s\n", len(snapshot.Tasks), path)
			return nil
		},
	}
}

func newImportCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace every task with a snapshot",
		Long: `Replace the database contents with a snapshot written by 'data export'.
The sync queue is cleared and every imported record is pushed on the next sync.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return utils.ErrInvalidSnapshot(path, err)
			}
			var snapshot backend.Snapshot
			if err := utils.Unmarshal(data, utils.FormatFromPath(path), &snapshot); err != nil {
				return utils.ErrInvalidSnapshot(path, err)
			}

			if !force && !confirm(fmt.Sprintf("Replace all local tasks with %d task(s) from %s?", len(snapshot.Tasks), path)) {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
				return nil
			}

			a, err := getApp(cmd)
			if err != nil {
				return err
			}
			n, err := a.Import(cmd.Context(), &snapshot)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d task(s)\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "do not ask for confirmation")
	return cmd
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show database statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp(cmd)
			if err != nil {
				return err
			}
			info, err := a.Info(cmd.Context())
			if err != nil {
				return err
			}
			return printData(cmd, info, func() {
				fmt.Fprintf(cmd.OutOrStdout(), "Database: %s (schema v%d)\n", info.Path, info.SchemaVersion)
				fmt.Fprintln(cmd.OutOrStdout(), info.String())
			})
		},
	}
}

func newPurgeCmd() *cobra.Command {
	var olderThan string

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Permanently remove old deleted tasks",
		Long: `Hard-delete tombstones last changed before the cutoff. The cutoff is an
age (30d, 12h) or a date (YYYY-MM-DD).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cutoff, err := utils.ParseCutoff(olderThan, time.Now())
			if err != nil {
				return err
			}
			a, err := getApp(cmd)
			if err != nil {
				return err
			}
			n, err := a.Purge(cmd.Context(), cutoff)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %d deleted task(s) older than %s\n", n, cutoff.Format("2006-01-02 15:04"))
			return nil
		},
	}

	cmd.Flags().StringVar(&olderThan, "older-than", "30d", "age or date cutoff")
	return cmd
}

func newVacuumCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vacuum",
		Short: "Compact the database file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp(cmd)
			if err != nil {
				return err
			}
			return utils.LogOperation("vacuum", func() error {
				return a.Vacuum(cmd.Context())
			})
		},
	}
}
