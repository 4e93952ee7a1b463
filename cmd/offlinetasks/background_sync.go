package main

import (
	"time"

	isync "offlinetasks/internal/sync"
	"offlinetasks/internal/utils"

	"github.com/spf13/cobra"
)

// newBackgroundSyncCmd creates a hidden command that runs sync in background
// This is spawned as a separate process to allow the main CLI to exit immediately
func newBackgroundSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:    isync.BackgroundCommand,
		Hidden: true, // Don't show in help
		Short:  "Internal command for background sync (do not call directly)",
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := getApp(cmd)
			if err != nil {
				return nil // Silent fail, nobody is watching stderr
			}
			if !a.SyncEnabled() {
				return nil
			}

			logOpts, err := a.Config().LogFile()
			if err != nil {
				return nil
			}
			logger, err := utils.NewBackgroundLogger(logOpts)
			if err != nil {
				return nil
			}
			defer logger.Close()

			// Give it a moment to ensure parent process has exited
			time.Sleep(100 * time.Millisecond)

			if err := a.RunBackgroundSync(cmd.Context(), logger); err != nil {
				logger.Printf("Background sync failed: %v", err)
			}
			return nil
		},
	}
}
