/*
Package dimona manages mandatory Belgian work declarations.

PURPOSE:

	Every flexi-job shift must be declared to the ONSS (Dimona) before the
	work happens, and retracted if the shift is cancelled after acceptance.
	This package owns the declaration state machine, the collaborator
	boundary to the government API, the manual-portal fallback, and the
	batch/retry plumbing.

KEY CONCEPTS IN THIS FILE (types.go):
  - Declaration: one shift+worker declaration with its status machine
  - Type/Status/CancelReason: closed enums with validated transitions
  - Declarant: the declare/cancel capability (automated or manual)

STATE MACHINE:

	pending -> ready -> sent -> ok | nok | error
	error   -> sent                 (retry loop)
	ok      -> cancelled            (explicit cancel with reason)

	pending/ready declarations that are no longer needed are deleted
	outright; an ok declaration is never deleted, only cancelled, because
	an accepted-but-unretracted Dimona is a regulatory liability.

SEE ALSO:
  - manager.go: push, batch, retry, manual reporting
  - onss.go: the HTTP collaborator implementation
  - shift package: derives ready declarations on acceptance
*/
package dimona

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// =============================================================================
// ENUMS - Closed sets, validated at construction time
// =============================================================================

type Type string

const (
	TypeIn     Type = "IN"
	TypeCancel Type = "CANCEL"
	TypeUpdate Type = "UPDATE"
)

func (t Type) Valid() bool {
	switch t {
	case TypeIn, TypeCancel, TypeUpdate:
		return true
	}
	return false
}

type Status string

const (
	StatusPending   Status = "pending"
	StatusReady     Status = "ready"
	StatusSent      Status = "sent"
	StatusOK        Status = "ok"
	StatusNOK       Status = "nok"
	StatusError     Status = "error"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusReady, StatusSent, StatusOK, StatusNOK, StatusError, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether s -> to is a legal move.
func (s Status) CanTransition(to Status) bool {
	switch s {
	case StatusPending:
		return to == StatusReady
	case StatusReady:
		return to == StatusSent || to == StatusOK || to == StatusNOK
	case StatusSent:
		return to == StatusOK || to == StatusNOK || to == StatusError
	case StatusError:
		return to == StatusSent
	case StatusOK:
		// Cancelled when the shift dies; back to ready when an edited
		// shift must be re-declared as an UPDATE.
		return to == StatusCancelled || to == StatusReady
	}
	return false
}

type CancelReason string

const (
	ReasonWorkerCancelled  CancelReason = "worker_cancelled"
	ReasonNoShow           CancelReason = "no_show"
	ReasonManagerCancelled CancelReason = "manager_cancelled"
)

func (r CancelReason) Valid() bool {
	switch r {
	case ReasonWorkerCancelled, ReasonNoShow, ReasonManagerCancelled:
		return true
	}
	return false
}

// =============================================================================
// DECLARATION
// =============================================================================

type Declaration struct {
	ID         string
	ShiftID    string
	WorkerID   string
	LocationID string
	Type       Type
	Status     Status

	// PeriodID is the external identifier returned by the ONSS once the
	// declaration is accepted. Required to retract it later.
	PeriodID string

	// RetractionOwed marks an ok declaration whose shift was cancelled
	// but whose CANCEL has not yet been delivered to the ONSS.
	RetractionOwed bool
	CancelReason   CancelReason

	Notes     string
	LastError string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Transition moves the declaration to a new status or fails.
func (d *Declaration) Transition(to Status) error {
	if !d.Status.CanTransition(to) {
		return &TransitionError{From: d.Status, To: to}
	}
	d.Status = to
	d.UpdatedAt = time.Now().UTC()
	return nil
}

// =============================================================================
// COLLABORATOR BOUNDARY
// =============================================================================

// Declarant is the declare/cancel capability. Two implementations exist:
// the automated ONSS HTTP client and the manual-portal fallback. Batch
// and retry logic is shared regardless of which path is configured.
type Declarant interface {
	// Declare files the declaration and returns the ONSS period id.
	Declare(ctx context.Context, d Declaration) (periodID string, err error)

	// Cancel retracts a previously accepted declaration.
	Cancel(ctx context.Context, periodID string, reason CancelReason) error
}

// CollaboratorError is a failure from the external ONSS collaborator.
// Timeout/network failures are retryable; rejections need a human.
type CollaboratorError struct {
	Timeout bool
	Reason  string
}

func (e *CollaboratorError) Error() string {
	if e.Timeout {
		return "onss collaborator timed out: " + e.Reason
	}
	return "onss collaborator rejected declaration: " + e.Reason
}

// Retryable reports whether the failure might succeed on retry.
func (e *CollaboratorError) Retryable() bool { return e.Timeout }

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrNotFound   = errors.New("declaration not found")
	ErrManualOnly = errors.New("automated declaration disabled, use the government portal and self-report")
)

type TransitionError struct {
	From, To Status
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("illegal declaration transition %s -> %s", e.From, e.To)
}

// =============================================================================
// STORE
// =============================================================================

// Store persists declarations. Creation of ready declarations happens
// inside the shift-acceptance transaction; deletion of never-sent ones
// inside the cancellation cascade. This interface covers the rest.
type Store interface {
	GetDeclaration(ctx context.Context, id string) (*Declaration, error)
	GetDeclarationByShift(ctx context.Context, shiftID string) (*Declaration, error)
	ListDeclarations(ctx context.Context, status Status) ([]Declaration, error)
	ListRetractionsOwed(ctx context.Context) ([]Declaration, error)
	UpdateDeclaration(ctx context.Context, d Declaration) error
}
