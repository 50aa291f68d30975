/*
engine.go - Clock-in / clock-out flows

PORTAL FLOW:

	The caller is authenticated; the actor's worker id must own the shift.

KIOSK FLOW:

	The shared tablet is unauthenticated. It presents a per-location
	opaque token; the worker types their id and PIN. Token resolution and
	PIN verification are independent checks and both must pass. The shift
	is then resolved as the worker's accepted shift at that location
	today.

CLOCK-IN PRECONDITIONS, in order:
 1. Shift accepted, owned by the worker, worker active
 2. Contract gate clear (framework + per-shift student contract)
 3. Geofence clear when enforceable
 4. No open entry (the store's uniqueness constraint decides the race)

A second clock-in without an intervening clock-out fails with
ErrAlreadyClockedIn and never creates a second entry.
*/
package tracking

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/horeca/flexi-engine/identity"
	"github.com/horeca/flexi-engine/pin"
	"github.com/horeca/flexi-engine/shift"
	"github.com/horeca/flexi-engine/worker"
)

// =============================================================================
// COLLABORATOR INTERFACES - Narrow views of the other packages
// =============================================================================

// ShiftDirectory is the engine's read view of shifts and locations.
type ShiftDirectory interface {
	GetShift(ctx context.Context, id string) (*shift.Shift, error)
	GetLocation(ctx context.Context, id string) (*shift.Location, error)
	GetLocationByToken(ctx context.Context, token string) (*shift.Location, error)
	FindAcceptedShift(ctx context.Context, workerID, locationID string, date time.Time) (*shift.Shift, error)
}

// WorkerDirectory is the engine's read view of workers.
type WorkerDirectory interface {
	GetWorker(ctx context.Context, id string) (*worker.Worker, error)
}

// ContractGate decides whether work may start. Blocking errors are
// typed by the contract package and pass through untouched.
type ContractGate interface {
	Check(ctx context.Context, w worker.Worker, s shift.Shift, loc shift.Location) error
}

// PINVerifier guards the kiosk flow.
type PINVerifier interface {
	Verify(ctx context.Context, workerID, pinCode string) (*pin.Identity, error)
}

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	Store   Store
	Shifts  ShiftDirectory
	Workers WorkerDirectory
	Gate    ContractGate
	PIN     PINVerifier
}

// ClockIn opens a time entry for the actor's own accepted shift.
func (e *Engine) ClockIn(ctx context.Context, actor identity.Actor, shiftID string, geo *Geo) (*TimeEntry, error) {
	s, w, loc, err := e.resolve(ctx, shiftID, actor.WorkerID)
	if err != nil {
		return nil, err
	}
	return e.clockIn(ctx, *s, *w, *loc, geo)
}

// KioskClockIn opens a time entry from the shared tablet, gated by the
// location token and the worker's PIN instead of a session.
func (e *Engine) KioskClockIn(ctx context.Context, kioskToken, workerID, pinCode string, geo *Geo) (*TimeEntry, error) {
	loc, err := e.Shifts.GetLocationByToken(ctx, kioskToken)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, ErrKioskToken
	}

	if _, err := e.PIN.Verify(ctx, workerID, pinCode); err != nil {
		return nil, err
	}

	s, err := e.Shifts.FindAcceptedShift(ctx, workerID, loc.ID, today())
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrNoShiftToday
	}

	w, err := e.Workers.GetWorker(ctx, workerID)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, worker.ErrNotFound
	}

	return e.clockIn(ctx, *s, *w, *loc, geo)
}

func (e *Engine) clockIn(ctx context.Context, s shift.Shift, w worker.Worker, loc shift.Location, geo *Geo) (*TimeEntry, error) {
	if s.Status != shift.StatusAccepted {
		return nil, ErrShiftNotAccepted
	}
	if !w.Active {
		return nil, worker.ErrInactive
	}

	if err := e.Gate.Check(ctx, w, s, loc); err != nil {
		return nil, err
	}

	verified, err := checkGeofence(loc, geo)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entry := TimeEntry{
		ID:                 uuid.NewString(),
		ShiftID:            s.ID,
		WorkerID:           w.ID,
		ClockIn:            now,
		ClockInGeoVerified: verified,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if geo != nil {
		entry.ClockInLatitude = &geo.Latitude
		entry.ClockInLongitude = &geo.Longitude
	}

	// The store's open-entry uniqueness constraint settles concurrent
	// clock-ins: exactly one insert wins.
	if err := e.Store.InsertEntry(ctx, entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// ClockOut closes the actor's open entry on a shift and computes the
// worked hours.
func (e *Engine) ClockOut(ctx context.Context, actor identity.Actor, shiftID string, geo *Geo) (*TimeEntry, error) {
	s, _, loc, err := e.resolve(ctx, shiftID, actor.WorkerID)
	if err != nil {
		return nil, err
	}

	entry, err := e.Store.GetOpenEntry(ctx, s.ID, actor.WorkerID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrNoOpenEntry
	}
	return e.clockOut(ctx, entry, *loc, geo)
}

// KioskClockOut closes the worker's open entry from the shared tablet.
func (e *Engine) KioskClockOut(ctx context.Context, kioskToken, workerID, pinCode string, geo *Geo) (*TimeEntry, error) {
	loc, err := e.Shifts.GetLocationByToken(ctx, kioskToken)
	if err != nil {
		return nil, err
	}
	if loc == nil {
		return nil, ErrKioskToken
	}

	if _, err := e.PIN.Verify(ctx, workerID, pinCode); err != nil {
		return nil, err
	}

	entry, err := e.Store.GetOpenEntryForWorker(ctx, workerID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrNoOpenEntry
	}
	return e.clockOut(ctx, entry, *loc, geo)
}

func (e *Engine) clockOut(ctx context.Context, entry *TimeEntry, loc shift.Location, geo *Geo) (*TimeEntry, error) {
	verified, err := checkGeofence(loc, geo)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entry.ClockOut = &now
	entry.ClockOutGeoVerified = verified
	if geo != nil {
		entry.ClockOutLatitude = &geo.Latitude
		entry.ClockOutLongitude = &geo.Longitude
	}

	worked := now.Sub(entry.ClockIn)
	entry.ActualHours = decimal.NewFromFloat(worked.Minutes()).Div(decimal.NewFromInt(60)).Round(2)
	entry.UpdatedAt = now

	if err := e.Store.UpdateEntry(ctx, *entry); err != nil {
		return nil, fmt.Errorf("failed to close entry: %w", err)
	}
	return entry, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (e *Engine) resolve(ctx context.Context, shiftID, workerID string) (*shift.Shift, *worker.Worker, *shift.Location, error) {
	s, err := e.Shifts.GetShift(ctx, shiftID)
	if err != nil {
		return nil, nil, nil, err
	}
	if s == nil {
		return nil, nil, nil, shift.ErrNotFound
	}
	if s.WorkerID != workerID {
		return nil, nil, nil, ErrNotYourShift
	}

	w, err := e.Workers.GetWorker(ctx, workerID)
	if err != nil {
		return nil, nil, nil, err
	}
	if w == nil {
		return nil, nil, nil, worker.ErrNotFound
	}

	loc, err := e.Shifts.GetLocation(ctx, s.LocationID)
	if err != nil {
		return nil, nil, nil, err
	}
	if loc == nil {
		return nil, nil, nil, shift.ErrLocationNotFound
	}

	return s, w, loc, nil
}

// checkGeofence validates supplied coordinates against the location's
// registered geofence. Returns whether the coordinates were verified.
// Absent coordinates or an unconfigured radius record as unverified.
func checkGeofence(loc shift.Location, geo *Geo) (bool, error) {
	if geo == nil || loc.RadiusMeters <= 0 {
		return false, nil
	}
	d := DistanceMeters(loc.Latitude, loc.Longitude, geo.Latitude, geo.Longitude)
	if d > loc.RadiusMeters {
		return false, &GeofenceError{DistanceMeters: d, RadiusMeters: loc.RadiusMeters}
	}
	return true, nil
}

func today() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
