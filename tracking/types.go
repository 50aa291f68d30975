/*
Package tracking records who actually worked, when, and where.

PURPOSE:

	Clock-in and clock-out against an accepted shift, from the personal
	portal or the PIN-gated kiosk tablet. One invariant rules this
	package: at most one open time entry per (shift, worker), enforced by
	the store's uniqueness constraint so concurrent double-taps cannot
	create two entries.

KEY CONCEPTS IN THIS FILE (types.go):
  - TimeEntry: one clock-in/clock-out pair with geolocation evidence
  - Store:     persistence with the open-entry uniqueness contract

GEOLOCATION:

	Coordinates are optional input. When the location has a configured
	geofence radius and coordinates are supplied, they are validated with
	a great-circle distance check and out-of-radius punches are rejected.
	An entry records whether its coordinates were actually verified.

VALIDATION:

	A manager validates worked hours before they become money. Validated
	entries are immutable except through the explicit correction action.

SEE ALSO:
  - engine.go: clock-in/out flows and the kiosk variants
  - validate.go: manager validation and corrections
*/
package tracking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TIME ENTRY
// =============================================================================

type TimeEntry struct {
	ID       string
	ShiftID  string
	WorkerID string

	ClockIn            time.Time
	ClockInLatitude    *float64
	ClockInLongitude   *float64
	ClockInGeoVerified bool

	ClockOut            *time.Time
	ClockOutLatitude    *float64
	ClockOutLongitude   *float64
	ClockOutGeoVerified bool

	// ActualHours is computed at clock-out, 2 decimals.
	ActualHours decimal.Decimal

	Validated   bool
	ValidatedBy string
	ValidatedAt *time.Time

	// CorrectionNote is set when a validated entry was explicitly
	// corrected; empty otherwise.
	CorrectionNote string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Open reports whether the entry is still awaiting clock-out.
func (e TimeEntry) Open() bool { return e.ClockOut == nil }

// Geo is an optional coordinate pair supplied by the caller.
type Geo struct {
	Latitude  float64
	Longitude float64
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrAlreadyClockedIn = errors.New("already clocked in for this shift")
	ErrNoOpenEntry      = errors.New("no open time entry to clock out")
	ErrEntryNotFound    = errors.New("time entry not found")
	ErrAlreadyValidated = errors.New("time entry is already validated")
	ErrNotValidated     = errors.New("only validated entries can be corrected")
	ErrShiftNotAccepted = errors.New("shift must be accepted before clocking in")
	ErrNotYourShift     = errors.New("shift is assigned to another worker")
	ErrEntryOpen        = errors.New("entry must be clocked out before validation")
	ErrKioskToken       = errors.New("unknown kiosk token")
	ErrNoShiftToday     = errors.New("no accepted shift at this location today")
)

// GeofenceError reports an out-of-radius punch.
type GeofenceError struct {
	DistanceMeters float64
	RadiusMeters   float64
}

func (e *GeofenceError) Error() string {
	return fmt.Sprintf("location is %.0fm from the site, outside the %.0fm geofence", e.DistanceMeters, e.RadiusMeters)
}

// =============================================================================
// STORE
// =============================================================================

type EntryFilter struct {
	WorkerID  string
	ShiftID   string
	Validated *bool
	From      time.Time
	To        time.Time
}

// Store persists time entries. InsertEntry must enforce the single open
// entry per (shift, worker) invariant with a real uniqueness constraint
// and return ErrAlreadyClockedIn on violation.
type Store interface {
	InsertEntry(ctx context.Context, e TimeEntry) error
	GetEntry(ctx context.Context, id string) (*TimeEntry, error)
	GetOpenEntry(ctx context.Context, shiftID, workerID string) (*TimeEntry, error)
	GetOpenEntryForWorker(ctx context.Context, workerID string) (*TimeEntry, error)
	UpdateEntry(ctx context.Context, e TimeEntry) error
	ListEntries(ctx context.Context, f EntryFilter) ([]TimeEntry, error)
}
