package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"offlinetasks/backend"
	backendsync "offlinetasks/backend/sync"
	"offlinetasks/internal/app"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// GetTerminalWidth returns the current terminal width, defaulting to 80 if unable to detect
func GetTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		// Default to 80 if we can't detect terminal size
		return 80
	}
	return width
}

// Display prints sync state in a human-readable layout.
type Display struct {
	w     io.Writer
	color bool
	now   func() time.Time
}

// NewDisplay writes to w, styling output when color is set.
func NewDisplay(w io.Writer, color bool) *Display {
	return &Display{w: w, color: color, now: time.Now}
}

func (d *Display) paint(style lipgloss.Style, s string) string {
	if !d.color {
		return s
	}
	return style.Render(s)
}

// header prints a boxed section title sized to the terminal.
func (d *Display) header(title string) {
	width := GetTerminalWidth() - 2
	if width < 40 {
		width = 40
	}
	if width > 100 {
		width = 100
	}
	text := "─ " + title + " "
	pad := width - lipgloss.Width(text)
	if pad < 0 {
		pad = 0
	}
	fmt.Fprintln(d.w, d.paint(titleStyle, "┌"+text+strings.Repeat("─", pad)+"┐"))
}

// ShowQueue lists queued operations, dead letters last.
func (d *Display) ShowQueue(items []backend.SyncOperation) {
	if len(items) == 0 {
		fmt.Fprintln(d.w, "No pending operations")
		return
	}
	d.header(fmt.Sprintf("Sync queue (%d)", len(items)))
	now := d.now()
	for _, item := range items {
		state := d.paint(okStyle, string(item.State))
		if item.State == backend.QueueDead {
			state = d.paint(errStyle, string(item.State))
		}
		line := fmt.Sprintf("  #%-5d %-7s task %-6d %s", item.ID, item.Operation, item.TaskID, state)
		if item.RetryCount > 0 {
			line += d.paint(warnStyle, fmt.Sprintf("  retries %d", item.RetryCount))
		}
		if item.State == backend.QueuePending && item.NextAttemptAt.After(now) {
			line += d.paint(dimStyle, fmt.Sprintf("  next in %s", item.NextAttemptAt.Sub(now).Round(time.Second)))
		}
		fmt.Fprintln(d.w, line)
		if item.LastError != "" {
			fmt.Fprintf(d.w, "         %s\n", d.paint(dimStyle, item.LastError))
		}
	}
}

// ShowConflicts lists records waiting for a manual decision.
func (d *Display) ShowConflicts(tasks []backend.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(d.w, "No conflicts")
		return
	}
	d.header(fmt.Sprintf("Conflicts (%d)", len(tasks)))
	for _, task := range tasks {
		fmt.Fprintf(d.w, "  %s %s %s\n",
			d.paint(warnStyle, fmt.Sprintf("#%d", task.ID)),
			task.Title,
			d.paint(dimStyle, fmt.Sprintf("(v%d, modified %s)", task.Sync.Version, task.Sync.LastModified.Format(time.RFC3339))))
	}
	fmt.Fprintln(d.w)
	fmt.Fprintln(d.w, d.paint(dimStyle, "Resolve with: offlinetasks resolve <id> local|remote"))
}

// ShowStatus prints connectivity, backlog and the last background run.
func (d *Display) ShowStatus(status *app.Status) {
	d.header("Sync status")

	connection := d.paint(okStyle, "online")
	if !status.Connectivity.Online {
		connection = d.paint(warnStyle, "offline")
		if status.Connectivity.Forced {
			connection += " (forced)"
		} else if status.Connectivity.ProbeError != "" {
			connection += " (" + status.Connectivity.ProbeError + ")"
		}
	}
	fmt.Fprintf(d.w, "  Connection:   %s\n", connection)

	if status.SyncEnabled {
		fmt.Fprintf(d.w, "  Sync:         %s\n", d.paint(okStyle, "enabled"))
	} else {
		reason := "disabled"
		if status.SyncError != "" {
			reason += " (" + firstLine(status.SyncError) + ")"
		}
		fmt.Fprintf(d.w, "  Sync:         %s\n", d.paint(dimStyle, reason))
	}

	if info := status.Database; info != nil {
		fmt.Fprintf(d.w, "  Tasks:        %d active, %d deleted\n", info.Active, info.Deleted)
		unsynced := fmt.Sprintf("%d", info.Unsynced)
		if info.Unsynced > 0 {
			unsynced = d.paint(warnStyle, unsynced)
		}
		fmt.Fprintf(d.w, "  Unsynced:     %s\n", unsynced)
		fmt.Fprintf(d.w, "  Queue:        %d pending, %d dead\n", info.QueuePending, info.QueueDead)
		if info.Conflicts > 0 {
			fmt.Fprintf(d.w, "  Conflicts:    %s\n", d.paint(errStyle, fmt.Sprintf("%d", info.Conflicts)))
		}
		if info.Diverged > 0 {
			fmt.Fprintf(d.w, "  Diverged:     %s (remote kept, local copy not refreshed)\n", d.paint(warnStyle, fmt.Sprintf("%d", info.Diverged)))
		}
	}

	if !status.LastRun.IsZero() {
		fmt.Fprintf(d.w, "  Last sync:    %s ago, %s\n", formatDuration(d.now().Sub(status.LastRun)), status.LastResult)
	}
}

// ShowSyncResult summarizes one sync run.
func (d *Display) ShowSyncResult(result *backendsync.SyncResult) {
	fmt.Fprintf(d.w, "%s %s\n", d.paint(okStyle, "✓"), result.String())
	if result.DeadLettered > 0 {
		fmt.Fprintf(d.w, "  %s\n", d.paint(errStyle, fmt.Sprintf("%d operations moved to the dead letter queue", result.DeadLettered)))
	}
	if result.Skipped > 0 {
		fmt.Fprintf(d.w, "  %s\n", d.paint(dimStyle, fmt.Sprintf("%d records skipped (manual conflict)", result.Skipped)))
	}
	for _, err := range result.Errors {
		fmt.Fprintf(d.w, "  %s %v\n", d.paint(warnStyle, "!"), err)
	}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// formatDuration renders d with the largest sensible unit.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
