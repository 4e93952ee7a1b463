package sync

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"offlinetasks/internal/utils"
)

// BackgroundCommand is the hidden CLI command run by SpawnBackgroundSync.
const BackgroundCommand = "_internal_background_sync"

// SpawnBackgroundSync spawns a detached process that runs one sync, so the
// CLI can exit right after an online write. extraArgs are passed through
// (for example a --config override).
func SpawnBackgroundSync(extraArgs ...string) error {
	executable, err := os.Executable()
	if err != nil {
		return err
	}

	// Resolve symlinks
	executable, err = filepath.EvalSymlinks(executable)
	if err != nil {
		return err
	}

	args := append([]string{BackgroundCommand}, extraArgs...)
	cmd := exec.Command(executable, args...)

	// Detach from parent process
	cmd.Stdout = nil
	cmd.Stderr = nil
	cmd.Stdin = nil

	if err := cmd.Start(); err != nil {
		return err
	}
	// Don't wait; the parent exits immediately.
	return cmd.Process.Release()
}

// RunBackgroundSync runs one sync in the current process, bounded by timeout,
// and records the outcome in logger (which may be nil).
func RunBackgroundSync(ctx context.Context, syncer Syncer, timeout time.Duration, logger *utils.BackgroundLogger) error {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	logger.Printf("Started background sync at %s (PID: %d)", time.Now().Format(time.RFC3339), os.Getpid())

	result, err := syncer.Sync(ctx)
	if err != nil {
		logger.Printf("Sync error: %v", err)
		return err
	}
	logger.Printf("Sync finished: %s", result)
	for _, e := range result.Errors {
		logger.Printf("  item error: %v", e)
	}
	return nil
}
