/*
service.go - Shift transitions, guards, and cascades

TRANSITION TABLE:

	| action   | actor            | precondition          | side effect
	| create   | manager          | valid location+times  | draft (or proposed via CreateMany)
	| propose  | manager          | draft, worker set     | proposed
	| accept   | assigned worker  | proposed              | accepted + ready Dimona declaration (same tx)
	| refuse   | assigned worker  | proposed              | refused
	| update   | manager          | not cancelled         | fields updated; contract snapshots untouched
	| cancel   | manager          | not cancelled         | cancelled + full cascade (same tx)
	| delete   | manager          | no payroll history    | hard removal

CANCEL CASCADE:

	One transaction covers: shift status, open time entry deletion,
	never-worked student contract deletion, and the declaration move
	(delete un-sent, cancel accepted ones). The external ONSS retraction
	happens after commit and is retried later if it fails; the declaration
	record itself is never lost.

MULTI-DAY CREATION POLICY:

	CreateMany creates one proposed shift per requested day in a single
	transaction. Days where the worker already holds an overlapping
	non-cancelled shift are rejected individually and reported back; the
	remaining days are still created. Nothing is skipped silently.
*/
package shift

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/horeca/flexi-engine/dimona"
	"github.com/horeca/flexi-engine/identity"
	"github.com/horeca/flexi-engine/payroll"
)

// =============================================================================
// STORE INTERFACES
// =============================================================================

// Store is the basic shift persistence interface.
type Store interface {
	GetShift(ctx context.Context, id string) (*Shift, error)
	InsertShift(ctx context.Context, s Shift) error
	InsertShifts(ctx context.Context, shifts []Shift) error
	UpdateShift(ctx context.Context, s Shift) error
	DeleteShift(ctx context.Context, id string) error
	ListShifts(ctx context.Context, f Filter) ([]Shift, error)

	// FindOverlapping returns the worker's non-cancelled shifts on a date.
	FindOverlapping(ctx context.Context, workerID string, date time.Time) ([]Shift, error)

	// HasPayrollHistory reports whether any time entry or cost line
	// references the shift.
	HasPayrollHistory(ctx context.Context, shiftID string) (bool, error)

	GetLocation(ctx context.Context, id string) (*Location, error)
	GetLocationByToken(ctx context.Context, token string) (*Location, error)
}

// TxStore extends Store with the sibling records that accept/cancel must
// touch atomically, plus a transactional closure: all writes inside fn
// commit together or not at all.
type TxStore interface {
	Store

	CreateDeclaration(ctx context.Context, d dimona.Declaration) error
	GetDeclarationByShift(ctx context.Context, shiftID string) (*dimona.Declaration, error)
	DeleteDeclaration(ctx context.Context, id string) error
	UpdateDeclaration(ctx context.Context, d dimona.Declaration) error

	DeleteOpenEntry(ctx context.Context, shiftID string) error
	DeleteUnsignedShiftContract(ctx context.Context, shiftID string) error

	WithTx(ctx context.Context, fn func(TxStore) error) error
}

type Filter struct {
	WorkerID   string
	LocationID string
	Status     Status
	From       time.Time
	To         time.Time
}

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	Store TxStore

	// Declarant, when set, is used to retract accepted declarations at
	// the ONSS right after a cancellation commits. Optional; the
	// dimona.Manager retraction retry covers failures and nil.
	Declarant dimona.Declarant
}

// =============================================================================
// CREATION
// =============================================================================

type CreateInput struct {
	LocationID string
	WorkerID   string // optional while draft
	Date       time.Time
	Start      string
	End        string
	Role       string
}

// Create adds a draft shift.
func (svc *Service) Create(ctx context.Context, actor identity.Actor, in CreateInput) (*Shift, error) {
	if !actor.IsManager() {
		return nil, ErrNotManager
	}
	if err := svc.validateInput(ctx, in); err != nil {
		return nil, err
	}

	if in.WorkerID != "" {
		if err := svc.checkConflict(ctx, svc.Store, in.WorkerID, in.Date, in.Start, in.End, ""); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	s := Shift{
		ID:         uuid.NewString(),
		LocationID: in.LocationID,
		WorkerID:   in.WorkerID,
		Date:       dateOnly(in.Date),
		Start:      in.Start,
		End:        in.End,
		Role:       in.Role,
		Status:     StatusDraft,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := svc.Store.InsertShift(ctx, s); err != nil {
		return nil, fmt.Errorf("failed to insert shift: %w", err)
	}
	return &s, nil
}

type DaySpec struct {
	Date  time.Time
	Start string
	End   string
}

type CreateManyInput struct {
	LocationID string
	WorkerID   string
	Role       string
	Days       []DaySpec
}

type RejectedDay struct {
	Date   time.Time
	Reason string
}

type CreateManyResult struct {
	Created  []Shift
	Rejected []RejectedDay
}

// CreateMany creates one proposed shift per day in a single transaction.
// Conflicting days are rejected individually and reported.
func (svc *Service) CreateMany(ctx context.Context, actor identity.Actor, in CreateManyInput) (*CreateManyResult, error) {
	if !actor.IsManager() {
		return nil, ErrNotManager
	}
	if in.WorkerID == "" {
		return nil, &ValidationError{Field: "worker", Message: "multi-day proposals need an assigned worker"}
	}
	if in.Role == "" {
		return nil, &ValidationError{Field: "role", Message: "role is required"}
	}
	if len(in.Days) == 0 {
		return nil, &ValidationError{Field: "days", Message: "at least one day is required"}
	}
	loc, err := svc.Store.GetLocation(ctx, in.LocationID)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, ErrLocationNotFound
	}

	result := &CreateManyResult{}
	err = svc.Store.WithTx(ctx, func(tx TxStore) error {
		now := time.Now().UTC()
		var batch []Shift
		for _, day := range in.Days {
			if _, err := payroll.Hours(day.Start, day.End); err != nil {
				result.Rejected = append(result.Rejected, RejectedDay{Date: day.Date, Reason: err.Error()})
				continue
			}
			if err := svc.checkConflict(ctx, tx, in.WorkerID, day.Date, day.Start, day.End, ""); err != nil {
				result.Rejected = append(result.Rejected, RejectedDay{Date: day.Date, Reason: err.Error()})
				continue
			}
			// Days within the same batch can collide with each other too.
			conflictInBatch := false
			for _, b := range batch {
				if b.Date.Equal(dateOnly(day.Date)) && Overlaps(b.Start, b.End, day.Start, day.End) {
					conflictInBatch = true
					break
				}
			}
			if conflictInBatch {
				result.Rejected = append(result.Rejected, RejectedDay{Date: day.Date, Reason: "overlaps another day in this batch"})
				continue
			}

			batch = append(batch, Shift{
				ID:         uuid.NewString(),
				LocationID: in.LocationID,
				WorkerID:   in.WorkerID,
				Date:       dateOnly(day.Date),
				Start:      day.Start,
				End:        day.End,
				Role:       in.Role,
				Status:     StatusProposed,
				CreatedAt:  now,
				UpdatedAt:  now,
			})
		}
		if len(batch) == 0 {
			return nil
		}
		if err := tx.InsertShifts(ctx, batch); err != nil {
			return fmt.Errorf("failed to insert shifts: %w", err)
		}
		result.Created = batch
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// =============================================================================
// PROPOSAL RESPONSES
// =============================================================================

// Propose moves a draft shift to proposed so the worker can respond.
func (svc *Service) Propose(ctx context.Context, actor identity.Actor, shiftID string) (*Shift, error) {
	if !actor.IsManager() {
		return nil, ErrNotManager
	}
	s, err := svc.get(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if s.Status != StatusDraft {
		return nil, &StateError{Action: "propose", Status: s.Status}
	}
	if s.WorkerID == "" {
		return nil, ErrNoWorkerAssigned
	}

	s.Status = StatusProposed
	s.UpdatedAt = time.Now().UTC()
	if err := svc.Store.UpdateShift(ctx, *s); err != nil {
		return nil, err
	}
	return s, nil
}

// Accept records the worker's acceptance and derives the ready Dimona
// declaration in the same transaction.
func (svc *Service) Accept(ctx context.Context, actor identity.Actor, shiftID string) (*Shift, error) {
	s, err := svc.get(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(s.WorkerID) {
		return nil, ErrNotAssignee
	}
	if s.Status != StatusProposed {
		return nil, &StateError{Action: "accept", Status: s.Status}
	}

	err = svc.Store.WithTx(ctx, func(tx TxStore) error {
		// Re-check the overlap invariant under the transaction; another
		// acceptance may have landed since the proposal.
		if err := svc.checkConflict(ctx, tx, s.WorkerID, s.Date, s.Start, s.End, s.ID); err != nil {
			return err
		}

		s.Status = StatusAccepted
		s.UpdatedAt = time.Now().UTC()
		if err := tx.UpdateShift(ctx, *s); err != nil {
			return err
		}

		now := time.Now().UTC()
		return tx.CreateDeclaration(ctx, dimona.Declaration{
			ID:         uuid.NewString(),
			ShiftID:    s.ID,
			WorkerID:   s.WorkerID,
			LocationID: s.LocationID,
			Type:       dimona.TypeIn,
			Status:     dimona.StatusReady,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Refuse records the worker's refusal.
func (svc *Service) Refuse(ctx context.Context, actor identity.Actor, shiftID string) (*Shift, error) {
	s, err := svc.get(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(s.WorkerID) {
		return nil, ErrNotAssignee
	}
	if s.Status != StatusProposed {
		return nil, &StateError{Action: "refuse", Status: s.Status}
	}

	s.Status = StatusRefused
	s.UpdatedAt = time.Now().UTC()
	if err := svc.Store.UpdateShift(ctx, *s); err != nil {
		return nil, err
	}
	return s, nil
}

// =============================================================================
// UPDATE
// =============================================================================

type UpdateInput struct {
	Date  *time.Time
	Start *string
	End   *string
	Role  *string
}

// Update edits time/role on any non-cancelled shift. Contract snapshots
// taken at signing time are never rewritten; cost previews downstream
// recompute from the updated fields.
func (svc *Service) Update(ctx context.Context, actor identity.Actor, shiftID string, in UpdateInput) (*Shift, error) {
	if !actor.IsManager() {
		return nil, ErrNotManager
	}
	s, err := svc.get(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if s.Status == StatusCancelled {
		return nil, &StateError{Action: "update", Status: s.Status}
	}

	if in.Date != nil {
		s.Date = dateOnly(*in.Date)
	}
	if in.Start != nil {
		s.Start = *in.Start
	}
	if in.End != nil {
		s.End = *in.End
	}
	if in.Role != nil {
		s.Role = *in.Role
	}
	if _, err := payroll.Hours(s.Start, s.End); err != nil {
		return nil, &ValidationError{Field: "time", Message: err.Error()}
	}
	if s.WorkerID != "" {
		if err := svc.checkConflict(ctx, svc.Store, s.WorkerID, s.Date, s.Start, s.End, s.ID); err != nil {
			return nil, err
		}
	}

	s.UpdatedAt = time.Now().UTC()
	err = svc.Store.WithTx(ctx, func(tx TxStore) error {
		if err := tx.UpdateShift(ctx, *s); err != nil {
			return err
		}
		d, err := tx.GetDeclarationByShift(ctx, s.ID)
		if err != nil {
			return err
		}
		if d == nil || d.Status != dimona.StatusOK {
			// Unsent declarations read the shift fresh at push time;
			// nothing to re-queue.
			return nil
		}
		// The ONSS already holds the old details; re-queue as an UPDATE
		// against the accepted period.
		d.Type = dimona.TypeUpdate
		if err := d.Transition(dimona.StatusReady); err != nil {
			return err
		}
		return tx.UpdateDeclaration(ctx, *d)
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// =============================================================================
// CANCELLATION - The cascade
// =============================================================================

// Cancel cancels a shift and cascades atomically through the open time
// entry, the never-worked student contract, and the Dimona declaration.
func (svc *Service) Cancel(ctx context.Context, actor identity.Actor, shiftID string, reason dimona.CancelReason) (*Shift, error) {
	if !actor.IsManager() {
		return nil, ErrNotManager
	}
	if !reason.Valid() {
		return nil, &ValidationError{Field: "reason", Message: fmt.Sprintf("unknown cancellation reason %q", reason)}
	}
	s, err := svc.get(ctx, shiftID)
	if err != nil {
		return nil, err
	}
	if s.Status == StatusCancelled {
		return nil, &StateError{Action: "cancel", Status: s.Status}
	}

	var retract *dimona.Declaration
	err = svc.Store.WithTx(ctx, func(tx TxStore) error {
		s.Status = StatusCancelled
		s.UpdatedAt = time.Now().UTC()
		if err := tx.UpdateShift(ctx, *s); err != nil {
			return err
		}
		if err := tx.DeleteOpenEntry(ctx, s.ID); err != nil {
			return err
		}
		if err := tx.DeleteUnsignedShiftContract(ctx, s.ID); err != nil {
			return err
		}

		d, err := tx.GetDeclarationByShift(ctx, s.ID)
		if err != nil {
			return err
		}
		if d == nil {
			return nil
		}

		switch {
		case (d.Status == dimona.StatusPending || d.Status == dimona.StatusReady) && d.PeriodID == "":
			// Never sent: nothing to retract, delete outright. A ready
			// declaration holding a period id is a re-queued UPDATE
			// whose original IN the ONSS accepted; it falls through.
			return tx.DeleteDeclaration(ctx, d.ID)
		case d.Status == dimona.StatusCancelled:
			return nil
		default:
			// Sent or accepted: the record is audit history. Mark it
			// cancelled; a retraction is owed wherever a period id exists.
			d.Status = dimona.StatusCancelled
			d.CancelReason = reason
			d.RetractionOwed = d.PeriodID != ""
			d.UpdatedAt = time.Now().UTC()
			if err := tx.UpdateDeclaration(ctx, *d); err != nil {
				return err
			}
			if d.RetractionOwed {
				retract = d
			}
			return nil
		}
	})
	if err != nil {
		return nil, err
	}

	// Best-effort retraction after commit. On failure the declaration
	// stays flagged and dimona.Manager.RetryRetractions picks it up.
	if retract != nil && svc.Declarant != nil {
		if err := svc.Declarant.Cancel(ctx, retract.PeriodID, reason); err != nil {
			log.Printf("shift: onss retraction for declaration %s deferred: %v", retract.ID, err)
		} else {
			retract.RetractionOwed = false
			retract.UpdatedAt = time.Now().UTC()
			if err := svc.Store.UpdateDeclaration(ctx, *retract); err != nil {
				log.Printf("shift: failed to clear retraction flag on %s: %v", retract.ID, err)
			}
		}
	}

	return s, nil
}

// =============================================================================
// DELETION
// =============================================================================

// Delete hard-removes a shift. Irreversible, and only permitted when no
// payroll history (time entries, cost lines) or accepted declaration
// references it.
func (svc *Service) Delete(ctx context.Context, actor identity.Actor, shiftID string) error {
	if !actor.IsManager() {
		return ErrNotManager
	}
	s, err := svc.get(ctx, shiftID)
	if err != nil {
		return err
	}

	history, err := svc.Store.HasPayrollHistory(ctx, s.ID)
	if err != nil {
		return err
	}
	if history {
		return ErrHasHistory
	}

	return svc.Store.WithTx(ctx, func(tx TxStore) error {
		d, err := tx.GetDeclarationByShift(ctx, s.ID)
		if err != nil {
			return err
		}
		if d != nil {
			if d.PeriodID != "" || d.Status == dimona.StatusOK || d.Status == dimona.StatusSent {
				return ErrHasHistory
			}
			if err := tx.DeleteDeclaration(ctx, d.ID); err != nil {
				return err
			}
		}
		if err := tx.DeleteUnsignedShiftContract(ctx, s.ID); err != nil {
			return err
		}
		return tx.DeleteShift(ctx, s.ID)
	})
}

// =============================================================================
// READS
// =============================================================================

func (svc *Service) Get(ctx context.Context, shiftID string) (*Shift, error) {
	return svc.get(ctx, shiftID)
}

func (svc *Service) List(ctx context.Context, f Filter) ([]Shift, error) {
	return svc.Store.ListShifts(ctx, f)
}

// =============================================================================
// HELPERS
// =============================================================================

func (svc *Service) get(ctx context.Context, id string) (*Shift, error) {
	s, err := svc.Store.GetShift(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrNotFound
	}
	return s, nil
}

func (svc *Service) validateInput(ctx context.Context, in CreateInput) error {
	if in.Role == "" {
		return &ValidationError{Field: "role", Message: "role is required"}
	}
	if in.Date.IsZero() {
		return &ValidationError{Field: "date", Message: "date is required"}
	}
	if _, err := payroll.Hours(in.Start, in.End); err != nil {
		return &ValidationError{Field: "time", Message: err.Error()}
	}
	loc, err := svc.Store.GetLocation(ctx, in.LocationID)
	if err != nil {
		return err
	}
	if loc == nil {
		return ErrLocationNotFound
	}
	return nil
}

func (svc *Service) checkConflict(ctx context.Context, store Store, workerID string, date time.Time, start, end, excludeID string) error {
	existing, err := store.FindOverlapping(ctx, workerID, dateOnly(date))
	if err != nil {
		return err
	}
	for _, other := range existing {
		if other.ID == excludeID || other.Status == StatusCancelled || other.Status == StatusRefused {
			continue
		}
		if Overlaps(start, end, other.Start, other.End) {
			return &ConflictError{WorkerID: workerID, Date: dateOnly(date)}
		}
	}
	return nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
