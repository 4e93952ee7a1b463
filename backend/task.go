package backend

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is a step of the task workflow.
type Status string

const (
	StatusTodo       Status = "a_fazer"
	StatusInProgress Status = "em_progresso"
	StatusDone       Status = "concluido"
)

// Statuses lists the workflow in order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusDone}

// Valid reports whether s is a known workflow status.
func (s Status) Valid() bool {
	return slices.Contains(Statuses, s)
}

// Ordinal returns the position of s in the workflow, or -1.
func (s Status) Ordinal() int {
	return slices.Index(Statuses, s)
}

// DisplayName returns a short human label for the status.
func (s Status) DisplayName() string {
	switch s {
	case StatusTodo:
		return "TODO"
	case StatusInProgress:
		return "DOING"
	case StatusDone:
		return "DONE"
	default:
		return string(s)
	}
}

// ParseStatus converts user input (canonical values or English aliases) to a Status.
func ParseStatus(value string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "a_fazer", "t", "todo", "to-do", "to_do":
		return StatusTodo, nil
	case "em_progresso", "p", "doing", "in-progress", "in_progress", "progress":
		return StatusInProgress, nil
	case "concluido", "d", "done", "completed":
		return StatusDone, nil
	default:
		return "", fmt.Errorf("%w: invalid status %q (valid: a_fazer/todo, em_progresso/doing, concluido/done)", ErrValidation, value)
	}
}

// Priority ranks a task. Ordering is low < normal < medium < high.
type Priority string

const (
	PriorityLow    Priority = "baixa"
	PriorityNormal Priority = "normal"
	PriorityMedium Priority = "media"
	PriorityHigh   Priority = "alta"
)

// Priorities lists priorities from lowest to highest.
var Priorities = []Priority{PriorityLow, PriorityNormal, PriorityMedium, PriorityHigh}

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return slices.Contains(Priorities, p)
}

// Ordinal returns the rank of p (0 = low), or -1 when unknown.
func (p Priority) Ordinal() int {
	return slices.Index(Priorities, p)
}

// ParsePriority converts user input (canonical values or English aliases) to a Priority.
func ParsePriority(value string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "baixa", "low", "l":
		return PriorityLow, nil
	case "normal", "n":
		return PriorityNormal, nil
	case "media", "média", "medium", "m":
		return PriorityMedium, nil
	case "alta", "high", "h":
		return PriorityHigh, nil
	default:
		return "", fmt.Errorf("%w: invalid priority %q (valid: baixa/low, normal, media/medium, alta/high)", ErrValidation, value)
	}
}

// StatusEntry records one workflow transition.
type StatusEntry struct {
	Status    Status    `json:"status" yaml:"status"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// BlockerEntry records a block or unblock of a task.
type BlockerEntry struct {
	ID        string    `json:"id" yaml:"id"`
	Blocked   bool      `json:"blocked" yaml:"blocked"`
	Reason    string    `json:"reason,omitempty" yaml:"reason,omitempty"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// Task is the managed entity.
type Task struct {
	ID              int64          `json:"id" yaml:"id"`
	Title           string         `json:"title" yaml:"title"`
	Description     string         `json:"description,omitempty" yaml:"description,omitempty"`
	Status          Status         `json:"status" yaml:"status"`
	StatusHistory   []StatusEntry  `json:"status_history" yaml:"status_history"`
	Priority        Priority       `json:"priority" yaml:"priority"`
	Blocked         bool           `json:"blocked" yaml:"blocked"`
	BlockedReason   string         `json:"blocked_reason,omitempty" yaml:"blocked_reason,omitempty"`
	BlockedSince    *time.Time     `json:"blocked_since,omitempty" yaml:"blocked_since,omitempty"`
	BlockerHistory  []BlockerEntry `json:"blocker_history,omitempty" yaml:"blocker_history,omitempty"`
	BlockedMinutes  int            `json:"blocked_minutes" yaml:"blocked_minutes"`
	CreatedAt       time.Time      `json:"created_at" yaml:"created_at"`
	StartedAt       *time.Time     `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	CompletedAt     *time.Time     `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	SortOrder       int            `json:"sort_order" yaml:"sort_order"`
	Tags            []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
	Category        string         `json:"category,omitempty" yaml:"category,omitempty"`
	Complexity      string         `json:"complexity,omitempty" yaml:"complexity,omitempty"`
	PriorityChanges int            `json:"priority_changes" yaml:"priority_changes"`
	Active          bool           `json:"active" yaml:"active"`
	ExternalID      string         `json:"external_id,omitempty" yaml:"external_id,omitempty"`
	ExternalSynced  bool           `json:"external_synced,omitempty" yaml:"external_synced,omitempty"`

	// Sync is local bookkeeping and never leaves the store in snapshots.
	Sync SyncMetadata `json:"-" yaml:"-"`
}

func (t Task) String() string {
	blocked := ""
	if t.Blocked {
		blocked = " [blocked]"
	}
	return fmt.Sprintf("#%d %s (%s, %s)%s", t.ID, t.Title, t.Status.DisplayName(), t.Priority, blocked)
}

// TransitionTo moves the task to status and records the transition.
// It returns false when the task is already in that status.
//
// StartedAt is set on the first entry into in-progress. CompletedAt keeps the
// first completion time; moving a task back out of done does not clear it.
func (t *Task) TransitionTo(status Status, now time.Time) bool {
	if t.Status == status && len(t.StatusHistory) > 0 {
		return false
	}
	t.Status = status
	t.StatusHistory = append(t.StatusHistory, StatusEntry{Status: status, Timestamp: now})
	t.stampWorkflowDates(now)
	return true
}

func (t *Task) stampWorkflowDates(now time.Time) {
	switch t.Status {
	case StatusInProgress:
		if t.StartedAt == nil {
			started := now
			t.StartedAt = &started
		}
	case StatusDone:
		if t.CompletedAt == nil {
			completed := now
			t.CompletedAt = &completed
		}
	}
}

// SetPriority changes the priority and counts the change.
func (t *Task) SetPriority(p Priority) bool {
	if t.Priority == p {
		return false
	}
	t.Priority = p
	t.PriorityChanges++
	return true
}

// SetBlocked blocks or unblocks the task. Unblocking adds the elapsed whole
// minutes of the episode to BlockedMinutes. Changing the reason of an
// already blocked task does not open a new episode.
func (t *Task) SetBlocked(blocked bool, reason string, now time.Time) bool {
	reason = strings.TrimSpace(reason)
	switch {
	case blocked && !t.Blocked:
		since := now
		t.Blocked = true
		t.BlockedReason = reason
		t.BlockedSince = &since
		t.BlockerHistory = append(t.BlockerHistory, BlockerEntry{
			ID:        uuid.NewString(),
			Blocked:   true,
			Reason:    reason,
			Timestamp: now,
		})
		return true
	case blocked && t.Blocked:
		if reason == t.BlockedReason {
			return false
		}
		t.BlockedReason = reason
		return true
	case !blocked && t.Blocked:
		if t.BlockedSince != nil && now.After(*t.BlockedSince) {
			t.BlockedMinutes += int(now.Sub(*t.BlockedSince) / time.Minute)
		}
		t.BlockerHistory = append(t.BlockerHistory, BlockerEntry{
			ID:        uuid.NewString(),
			Blocked:   false,
			Reason:    t.BlockedReason,
			Timestamp: now,
		})
		t.Blocked = false
		t.BlockedReason = ""
		t.BlockedSince = nil
		return true
	}
	return false
}

// CurrentBlockedMinutes includes the running episode, if any.
func (t *Task) CurrentBlockedMinutes(now time.Time) int {
	total := t.BlockedMinutes
	if t.Blocked && t.BlockedSince != nil && now.After(*t.BlockedSince) {
		total += int(now.Sub(*t.BlockedSince) / time.Minute)
	}
	return total
}

// HasTag reports whether the task carries tag (case-insensitive).
func (t *Task) HasTag(tag string) bool {
	return slices.Contains(t.Tags, strings.ToLower(strings.TrimSpace(tag)))
}

// NormalizeTags trims, lower-cases and deduplicates tags, keeping first-seen order.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// NormalizeStatusHistory collapses consecutive duplicate entries and makes
// sure the history starts with an entry for the creation status.
func NormalizeStatusHistory(history []StatusEntry, initial Status, createdAt time.Time) []StatusEntry {
	out := make([]StatusEntry, 0, len(history)+1)
	if len(history) == 0 {
		return append(out, StatusEntry{Status: initial, Timestamp: createdAt})
	}
	for _, entry := range history {
		if n := len(out); n > 0 && out[n-1].Status == entry.Status {
			continue
		}
		out = append(out, entry)
	}
	return out
}
