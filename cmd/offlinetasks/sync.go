package main

import (
	"fmt"
	"os"
	"time"

	"offlinetasks/backend"
	"offlinetasks/internal/config"
	"offlinetasks/internal/connectivity"
	isync "offlinetasks/internal/sync"
	"offlinetasks/internal/utils"

	"github.com/spf13/cobra"
)

// newSyncCmd creates the sync command
func newSyncCmd() *cobra.Command {
	var fullSync bool
	var background bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Push local changes to the remote",
		Long: `Push every unsynced record and drain the queue of operations recorded
while offline. Operations that keep failing are retried with backoff and
end up in the dead letter queue (see 'offlinetasks queue').

Examples:
  offlinetasks sync                # Push pending changes
  offlinetasks sync --full         # Push every record again
  offlinetasks sync --background   # Sync in a detached process`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if background {
				var extra []string
				if configPath != "" {
					extra = append(extra, "--config", configPath)
				}
				if err := isync.SpawnBackgroundSync(extra...); err != nil {
					return fmt.Errorf("failed to start background sync: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Background sync started")
				return nil
			}

			a, err := getApp(cmd)
			if err != nil {
				return err
			}
			result, err := a.Sync(cmd.Context(), fullSync)
			if err != nil {
				return err
			}
			return printData(cmd, result, func() {
				newDisplay(cmd).ShowSyncResult(result)
			})
		},
	}

	cmd.Flags().BoolVar(&fullSync, "full", false, "mark every record unsynced and push it again")
	cmd.Flags().BoolVar(&background, "background", false, "run in a detached process and return immediately")
	return cmd
}

// newStatusCmd creates the 'status' command
func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show connectivity and sync backlog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp(cmd)
			if err != nil {
				return err
			}
			status, err := a.Status(cmd.Context())
			if err != nil {
				return err
			}
			return printData(cmd, status, func() {
				newDisplay(cmd).ShowStatus(status)
			})
		},
	}
}

// newQueueCmd creates the 'queue' command with its subcommands
func newQueueCmd() *cobra.Command {
	var dead bool

	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Show and manage queued operations",
		Long: `Display operations waiting to be pushed.

Examples:
  offlinetasks queue              # All queued operations
  offlinetasks queue --dead       # Only dead letters
  offlinetasks queue retry        # Move every dead letter back to pending
  offlinetasks queue retry 12     # Retry one operation
  offlinetasks queue clear --dead # Drop dead letters`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp(cmd)
			if err != nil {
				return err
			}
			var state backend.QueueState
			if dead {
				state = backend.QueueDead
			}
			items, err := a.Queue(cmd.Context(), state)
			if err != nil {
				return err
			}
			return printData(cmd, items, func() {
				newDisplay(cmd).ShowQueue(items)
			})
		},
	}
	queueCmd.Flags().BoolVar(&dead, "dead", false, "only show dead letters")

	queueCmd.AddCommand(newQueueRetryCmd())
	queueCmd.AddCommand(newQueueClearCmd())
	return queueCmd
}

func newQueueRetryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "retry [operation-id]",
		Short: "Move dead letters back to pending",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var id int64
			if len(args) == 1 {
				parsed, err := parseTaskID(args[0])
				if err != nil {
					return fmt.Errorf("invalid operation id %q", args[0])
				}
				id = parsed
			}
			a, err := getApp(cmd)
			if err != nil {
				return err
			}
			n, err := a.RequeueDead(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d operation(s)\n", n)
			return nil
		},
	}
}

func newQueueClearCmd() *cobra.Command {
	var dead bool
	var force bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Drop queued operations",
		Long: `Drop queued operations. Dropped operations are never pushed; the local
records keep their content.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp(cmd)
			if err != nil {
				return err
			}
			var state backend.QueueState
			what := "all queued operations"
			if dead {
				state = backend.QueueDead
				what = "all dead letters"
			}
			if !force && !confirm(fmt.Sprintf("Drop %s?", what)) {
				fmt.Fprintln(cmd.OutOrStdout(), "Cancelled")
				return nil
			}
			n, err := a.ClearQueue(cmd.Context(), state)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Dropped %d operation(s)\n", n)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dead, "dead", false, "only drop dead letters")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "do not ask for confirmation")
	return cmd
}

func newConflictsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "conflicts",
		Short: "List records the remote rejected as conflicting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp(cmd)
			if err != nil {
				return err
			}
			tasks, err := a.Conflicts(cmd.Context())
			if err != nil {
				return err
			}
			return printData(cmd, tasks, func() {
				newDisplay(cmd).ShowConflicts(tasks)
			})
		},
	}
}

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <id> <local|remote>",
		Short: "Settle a conflict",
		Long: `Settle a manual conflict.

  local   keep the local record and push it again
  remote  accept the remote copy; queued operations for the record are dropped`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"local", "remote"},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			resolution := backend.ConflictResolution(args[1])
			if resolution != backend.ConflictLocal && resolution != backend.ConflictRemote {
				return fmt.Errorf("resolution must be local or remote, got %q", args[1])
			}
			a, err := getApp(cmd)
			if err != nil {
				return err
			}
			if err := a.ResolveConflict(cmd.Context(), id, resolution); err != nil {
				return userError(id, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task %d resolved (%s)\n", id, resolution)
			return nil
		},
	}
}

// newOfflineCmd toggles the offline marker.
func newOfflineCmd() *cobra.Command {
	offlineCmd := &cobra.Command{
		Use:   "offline [on|off]",
		Short: "Force offline mode on or off",
		Long: `While offline mode is on, every change is queued instead of pushed,
even if the remote is reachable. Without an argument, shows the current mode.`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.GetConfig()
			if err != nil {
				return err
			}
			marker, err := cfg.MarkerPath()
			if err != nil {
				return err
			}

			if len(args) == 0 {
				forced := connectivity.MarkerPresent(marker)
				return printData(cmd, map[string]bool{"forced_offline": forced}, func() {
					if forced {
						fmt.Fprintln(cmd.OutOrStdout(), "Offline mode: on")
					} else {
						fmt.Fprintln(cmd.OutOrStdout(), "Offline mode: off")
					}
				})
			}

			var offline bool
			switch args[0] {
			case "on":
				offline = true
			case "off":
				offline = false
			default:
				return fmt.Errorf("expected on or off, got %q", args[0])
			}
			if err := connectivity.SetOfflineMarker(marker, offline); err != nil {
				return err
			}
			if offline {
				fmt.Fprintln(cmd.OutOrStdout(), "Offline mode on: changes will be queued")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "Offline mode off: run 'offlinetasks sync' to push queued changes")
			}
			return nil
		},
	}
	return offlineCmd
}

func newDaemonCmd() *cobra.Command {
	var shutdownTimeout time.Duration

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Watch connectivity and sync in the background",
		Long: `Run in the foreground, probing the remote and watching the offline
marker. Queued changes are pushed whenever the remote comes back and on the
configured sync interval. Stop with Ctrl-C or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp(cmd)
			if err != nil {
				return err
			}

			logOpts, err := a.Config().LogFile()
			if err != nil {
				return err
			}
			logger, err := utils.SetLogFile(logOpts)
			if err != nil {
				return err
			}
			defer logger.Close()

			ctx := cmd.Context()
			if err := a.StartBackground(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (pid %d)\n", a.Monitor().Status(), os.Getpid())

			<-ctx.Done()
			fmt.Fprintln(cmd.OutOrStdout(), "Shutting down...")
			if !a.StopBackground(shutdownTimeout) {
				fmt.Fprintln(cmd.ErrOrStderr(), "Sync did not finish in time; pending changes stay queued")
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&shutdownTimeout, "shutdown-timeout", 10*time.Second, "how long to wait for a running sync on exit")
	return cmd
}

// confirm asks on stdin; without a terminal the answer is no.
func confirm(question string) bool {
	return utils.PromptYesNo(question)
}
