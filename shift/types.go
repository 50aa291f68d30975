/*
Package shift owns the shift lifecycle state machine.

PURPOSE:

	A shift is the unit everything else hangs off: time entries, student
	contracts, Dimona declarations, and cost lines all reference one. The
	transitions in this package are the only way a shift changes status,
	and each transition carries its regulatory side effects with it.

STATE MACHINE:

	draft -> proposed -> accepted | refused
	accepted, and any pre-completed state -> cancelled (manager)
	draft -> cancelled directly permitted

	"completed" is a derived read-model state (accepted + date passed +
	validated entry), never stored. See EffectiveStatus.

KEY CONCEPTS IN THIS FILE (types.go):
  - Shift:    the scheduled work, worker nullable while draft
  - Location: the restaurant site, with geofence and kiosk token
  - Status:   the stored state machine states

SEE ALSO:
  - service.go: transitions, guards, cascades
  - errors.go: the error taxonomy for rejected transitions
*/
package shift

import (
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// STATUS
// =============================================================================

type Status string

const (
	StatusDraft     Status = "draft"
	StatusProposed  Status = "proposed"
	StatusAccepted  Status = "accepted"
	StatusRefused   Status = "refused"
	StatusCancelled Status = "cancelled"

	// StatusCompleted is derived only; it is never written to the store.
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusProposed, StatusAccepted, StatusRefused, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further stored transition is possible.
func (s Status) Terminal() bool {
	return s == StatusRefused || s == StatusCancelled
}

// =============================================================================
// SHIFT
// =============================================================================

type Shift struct {
	ID         string
	LocationID string
	WorkerID   string // empty while draft-unassigned
	Date       time.Time
	Start      string // "HH:MM"
	End        string // "HH:MM"; before Start means overnight
	Role       string // e.g. "service", "kitchen", "bar"
	Status     Status
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// EffectiveStatus resolves the derived completed state: an accepted
// shift whose date has passed and whose time entry was validated.
func (s Shift) EffectiveStatus(now time.Time, hasValidatedEntry bool) Status {
	if s.Status == StatusAccepted && hasValidatedEntry && s.Date.Before(startOfDay(now)) {
		return StatusCompleted
	}
	return s.Status
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Overlaps reports whether two same-date time windows intersect.
// Windows are "HH:MM" strings; zero-padded strings compare correctly.
func Overlaps(aStart, aEnd, bStart, bEnd string) bool {
	// Overnight windows run to end of day for conflict purposes.
	if aEnd < aStart {
		aEnd = "24:00"
	}
	if bEnd < bStart {
		bEnd = "24:00"
	}
	return aStart < bEnd && bStart < aEnd
}

// =============================================================================
// LOCATION
// =============================================================================

type Location struct {
	ID   string
	Name string

	// Geofence center and radius for clock-in validation. A radius of 0
	// disables distance checks for the location.
	Latitude     float64
	Longitude    float64
	RadiusMeters float64

	// KioskToken is the opaque per-location token the shared tablet
	// presents. Independent of worker identity.
	KioskToken string

	CreatedAt time.Time
}

// NewLocation mints a venue with a fresh kiosk token.
func NewLocation(name string, lat, lng, radiusMeters float64) Location {
	return Location{
		ID:           uuid.NewString(),
		Name:         name,
		Latitude:     lat,
		Longitude:    lng,
		RadiusMeters: radiusMeters,
		KioskToken:   uuid.NewString(),
		CreatedAt:    time.Now(),
	}
}
