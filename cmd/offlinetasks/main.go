package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"offlinetasks/internal/app"
	"offlinetasks/internal/cli"
	"offlinetasks/internal/config"
	"offlinetasks/internal/utils"

	"github.com/spf13/cobra"
)

var (
	// application is opened lazily by commands that need the store
	application *app.App

	configPath   string
	verbose      bool
	outputFormat string
	noColor      bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	closeApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "offlinetasks",
		Short: "Offline-first task manager with deferred sync",
		Long: `Manage tasks in a local SQLite database. Every change works offline;
changes made while the remote is unreachable are queued and pushed once
connectivity returns.

Examples:
  offlinetasks add "Write report" -p high -t work
  offlinetasks ls --view blocked
  offlinetasks ls --where "priority:gte:media" --sort created_at:desc
  offlinetasks sync
  offlinetasks offline on`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				config.SetCustomConfigPath(configPath)
			}
			cfg, err := config.GetConfig()
			if err != nil {
				return err
			}
			utils.SetVerboseMode(verbose || cfg.Logging.Verbose)
			if outputFormat != "" && outputFormat != "text" {
				if _, err := utils.ParseFormat(outputFormat); err != nil {
					return err
				}
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file or directory (default $XDG_CONFIG_HOME/offlinetasks/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "o", "text", "output format: text, json or yaml")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddGroup(
		&cobra.Group{ID: "tasks", Title: "Tasks:"},
		&cobra.Group{ID: "sync", Title: "Sync:"},
		&cobra.Group{ID: "admin", Title: "Administration:"},
	)

	for _, cmd := range newTaskCmds() {
		cmd.GroupID = "tasks"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{newSyncCmd(), newStatusCmd(), newQueueCmd(), newConflictsCmd(), newResolveCmd(), newOfflineCmd(), newDaemonCmd()} {
		cmd.GroupID = "sync"
		rootCmd.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{newDataCmd(), newViewCmd(), newCredentialsCmd(), newConfigCmd()} {
		cmd.GroupID = "admin"
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(newBackgroundSyncCmd())

	return rootCmd
}

// getApp opens the application on first use.
func getApp(cmd *cobra.Command) (*app.App, error) {
	if application != nil {
		return application, nil
	}
	cfg, err := config.GetConfig()
	if err != nil {
		return nil, err
	}
	a, err := app.New(cmd.Context(), cfg, app.Options{})
	if err != nil {
		return nil, err
	}
	application = a
	return application, nil
}

func closeApp() {
	if application == nil {
		return
	}
	if err := application.Close(); err != nil {
		utils.Warnf("Failed to close database: %v", err)
	}
	application = nil
}

// structuredFormat returns the requested json/yaml format, or false for text.
func structuredFormat() (utils.Format, bool) {
	if outputFormat == "" || outputFormat == "text" {
		return "", false
	}
	format, err := utils.ParseFormat(outputFormat)
	if err != nil {
		return "", false
	}
	return format, true
}

// printData writes v as json/yaml when requested, otherwise calls text.
func printData(cmd *cobra.Command, v interface{}, text func()) error {
	if format, ok := structuredFormat(); ok {
		return utils.Write(cmd.OutOrStdout(), v, format)
	}
	text()
	return nil
}

func useColor() bool {
	return !noColor && os.Getenv("NO_COLOR") == "" && utils.IsTerminal(os.Stdout)
}

func newDisplay(cmd *cobra.Command) *cli.Display {
	return cli.NewDisplay(cmd.OutOrStdout(), useColor())
}
