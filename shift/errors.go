/*
errors.go - Error taxonomy for shift transitions

Three families, matching how callers must react:
  - Authorization: wrong role or not the assigned worker. No state change.
  - State: transition attempted from an invalid source state. No state
    change; retrying a failed transition stays a no-op.
  - Validation: malformed input, rejected before any side effect.
*/
package shift

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound         = errors.New("shift not found")
	ErrNotManager       = errors.New("only a manager may perform this action")
	ErrNotAssignee      = errors.New("only the assigned worker may respond to a proposal")
	ErrNoWorkerAssigned = errors.New("shift has no assigned worker")
	ErrHasHistory       = errors.New("shift has payroll history and cannot be deleted")
	ErrLocationNotFound = errors.New("location not found")
)

// StateError reports a transition attempted from the wrong status.
type StateError struct {
	Action string
	Status Status
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s a shift in status %q", e.Action, e.Status)
}

// ConflictError reports a worker already holding an overlapping shift.
type ConflictError struct {
	WorkerID string
	Date     time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("worker %s already has a shift overlapping %s", e.WorkerID, e.Date.Format("2006-01-02"))
}

// ValidationError reports malformed shift input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
