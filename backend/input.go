package backend

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// validationError turns validator output into an ErrValidation-wrapped error.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		msgs := make([]string, 0, len(verrs))
		for _, fe := range verrs {
			if fe.Param() != "" {
				msgs = append(msgs, fmt.Sprintf("%s failed %s=%s", strings.ToLower(fe.Field()), fe.Tag(), fe.Param()))
			} else {
				msgs = append(msgs, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
			}
		}
		return fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
	}
	return fmt.Errorf("%w: %v", ErrValidation, err)
}

// NewTask is the input for creating a task.
type NewTask struct {
	Title         string   `json:"title" yaml:"title" validate:"required,max=200"`
	Description   string   `json:"description,omitempty" yaml:"description,omitempty" validate:"max=10000"`
	Status        Status   `json:"status,omitempty" yaml:"status,omitempty" validate:"omitempty,oneof=a_fazer em_progresso concluido"`
	Priority      Priority `json:"priority,omitempty" yaml:"priority,omitempty" validate:"omitempty,oneof=baixa normal media alta"`
	Tags          []string `json:"tags,omitempty" yaml:"tags,omitempty" validate:"max=32,dive,max=40"`
	Category      string   `json:"category,omitempty" yaml:"category,omitempty" validate:"max=60"`
	Complexity    string   `json:"complexity,omitempty" yaml:"complexity,omitempty" validate:"max=60"`
	Blocked       bool     `json:"blocked,omitempty" yaml:"blocked,omitempty"`
	BlockedReason string   `json:"blocked_reason,omitempty" yaml:"blocked_reason,omitempty" validate:"max=500"`
}

// Validate checks the input before any mutation happens.
func (in NewTask) Validate() error {
	in.Title = strings.TrimSpace(in.Title)
	if err := getValidator().Struct(in); err != nil {
		return validationError(err)
	}
	return nil
}

// Build materializes the task. Metadata is left for the store to stamp.
func (in NewTask) Build(id int64, sortOrder int, now time.Time) Task {
	status := in.Status
	if status == "" {
		status = StatusTodo
	}
	priority := in.Priority
	if priority == "" {
		priority = PriorityNormal
	}

	t := Task{
		ID:          id,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Priority:    priority,
		CreatedAt:   now,
		SortOrder:   sortOrder,
		Tags:        NormalizeTags(in.Tags),
		Category:    strings.TrimSpace(in.Category),
		Complexity:  strings.TrimSpace(in.Complexity),
		Active:      true,
	}
	t.TransitionTo(status, now)
	if in.Blocked {
		t.SetBlocked(true, in.BlockedReason, now)
	}
	return t
}

// TaskPatch is a partial update. Nil fields are left untouched.
type TaskPatch struct {
	Title          *string   `json:"title,omitempty" yaml:"title,omitempty" validate:"omitempty,max=200"`
	Description    *string   `json:"description,omitempty" yaml:"description,omitempty" validate:"omitempty,max=10000"`
	Status         *Status   `json:"status,omitempty" yaml:"status,omitempty" validate:"omitempty,oneof=a_fazer em_progresso concluido"`
	Priority       *Priority `json:"priority,omitempty" yaml:"priority,omitempty" validate:"omitempty,oneof=baixa normal media alta"`
	Blocked        *bool     `json:"blocked,omitempty" yaml:"blocked,omitempty"`
	BlockedReason  *string   `json:"blocked_reason,omitempty" yaml:"blocked_reason,omitempty" validate:"omitempty,max=500"`
	Tags           *[]string `json:"tags,omitempty" yaml:"tags,omitempty" validate:"omitempty,max=32,dive,max=40"`
	Category       *string   `json:"category,omitempty" yaml:"category,omitempty" validate:"omitempty,max=60"`
	Complexity     *string   `json:"complexity,omitempty" yaml:"complexity,omitempty" validate:"omitempty,max=60"`
	ExternalID     *string   `json:"external_id,omitempty" yaml:"external_id,omitempty"`
	ExternalSynced *bool     `json:"external_synced,omitempty" yaml:"external_synced,omitempty"`

	// SortOrder is only set by reordering; Update rejects it.
	SortOrder *int `json:"sort_order,omitempty" yaml:"sort_order,omitempty" validate:"omitempty,min=0"`
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && p.Priority == nil &&
		p.Blocked == nil && p.BlockedReason == nil && p.Tags == nil && p.Category == nil &&
		p.Complexity == nil && p.ExternalID == nil && p.ExternalSynced == nil && p.SortOrder == nil
}

// Validate rejects empty or malformed patches.
func (p TaskPatch) Validate() error {
	if p.IsEmpty() {
		return fmt.Errorf("%w: patch changes nothing", ErrValidation)
	}
	if p.Title != nil && strings.TrimSpace(*p.Title) == "" {
		return fmt.Errorf("%w: title cannot be empty", ErrValidation)
	}
	if err := getValidator().Struct(p); err != nil {
		return validationError(err)
	}
	return nil
}

// ApplyTo merges the patch into t through the domain transitions.
// It returns true if the task reached the done status through this patch.
func (p TaskPatch) ApplyTo(t *Task, now time.Time) (completed bool) {
	if p.Title != nil {
		t.Title = strings.TrimSpace(*p.Title)
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		if t.TransitionTo(*p.Status, now) && *p.Status == StatusDone {
			completed = true
		}
	}
	if p.Priority != nil {
		t.SetPriority(*p.Priority)
	}
	if p.Blocked != nil {
		reason := t.BlockedReason
		if p.BlockedReason != nil {
			reason = *p.BlockedReason
		}
		t.SetBlocked(*p.Blocked, reason, now)
	} else if p.BlockedReason != nil && t.Blocked {
		t.SetBlocked(true, *p.BlockedReason, now)
	}
	if p.Tags != nil {
		t.Tags = NormalizeTags(*p.Tags)
	}
	if p.Category != nil {
		t.Category = strings.TrimSpace(*p.Category)
	}
	if p.Complexity != nil {
		t.Complexity = strings.TrimSpace(*p.Complexity)
	}
	if p.ExternalID != nil {
		t.ExternalID = *p.ExternalID
	}
	if p.ExternalSynced != nil {
		t.ExternalSynced = *p.ExternalSynced
	}
	if p.SortOrder != nil {
		t.SortOrder = *p.SortOrder
	}
	return completed
}
