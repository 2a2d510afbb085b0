package service

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"task-tracker/internal/repository"
)

var (
	// ErrForbidden is returned when an authorization gate denies an action.
	ErrForbidden = errors.New("forbidden")
	// ErrVisibilityLookup wraps store failures while resolving visible staff.
	ErrVisibilityLookup = errors.New("visibility lookup failed")
	// ErrInvalidInput marks validation failures of caller supplied data.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound is returned for missing or soft-deleted rows.
	ErrNotFound = repository.ErrNotFound
	// ErrAlreadyReplicated is returned when another run cleared the recurrence guard first.
	ErrAlreadyReplicated = repository.ErrAlreadyReplicated
)

// Reason explains why a task cannot be replicated.
type Reason string

const (
	ReasonNoRepeatInterval Reason = "no_repeat_interval"
	ReasonNoDueDate        Reason = "no_due_date"
	ReasonNotCompleted     Reason = "not_completed"
	ReasonDeleted          Reason = "deleted"
)

// NotEligibleError is the expected outcome for tasks that must not spawn a
// next occurrence.
type NotEligibleError struct {
	TaskID uint
	Reason Reason
}

func (e *NotEligibleError) Error() string {
	return fmt.Sprintf("task %d not eligible for replication: %s", e.TaskID, e.Reason)
}

// IsNotEligible reports whether err carries a NotEligibleError.
func IsNotEligible(err error) bool {
	var target *NotEligibleError
	return errors.As(err, &target)
}

// PartialReplicationError collects cascade failures that happened after the
// new occurrence was committed.
type PartialReplicationError struct {
	SourceID uint
	NewID    uint
	Causes   []error
}

func (e *PartialReplicationError) Error() string {
	msgs := make([]string, 0, len(e.Causes))
	for _, cause := range e.Causes {
		msgs = append(msgs, cause.Error())
	}
	return fmt.Sprintf("partial replication of task %d into %d: %s", e.SourceID, e.NewID, strings.Join(msgs, "; "))
}

func (e *PartialReplicationError) Unwrap() []error {
	return e.Causes
}
