package tracking_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/horeca/flexi-engine/contract"
	"github.com/horeca/flexi-engine/identity"
	"github.com/horeca/flexi-engine/pin"
	"github.com/horeca/flexi-engine/shift"
	"github.com/horeca/flexi-engine/store/sqlite"
	"github.com/horeca/flexi-engine/tracking"
	"github.com/horeca/flexi-engine/worker"
)

// =============================================================================
// TEST SETUP
// =============================================================================

// The venue sits on the Brussels Grand-Place; coordinates ~5 km away
// are outside any realistic restaurant geofence.
const (
	venueLat = 50.8466
	venueLng = 4.3528
)

type fixture struct {
	engine *tracking.Engine
	store  *sqlite.Store
	loc    shift.Location
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	loc := shift.NewLocation("Brasserie Central", venueLat, venueLng, 150)
	require.NoError(t, store.CreateLocation(context.Background(), loc))

	engine := &tracking.Engine{
		Store:   store,
		Shifts:  store,
		Workers: store,
		Gate:    &contract.Gate{Store: store},
		PIN:     &pin.Verifier{Store: store},
	}
	return &fixture{engine: engine, store: store, loc: loc}
}

// seedWorker creates an active worker whose framework contract is
// already signed, with PIN 1234.
func (f *fixture) seedWorker(t *testing.T, id string, status worker.Status) worker.Worker {
	t.Helper()
	signed := time.Now().UTC().Add(-24 * time.Hour)
	hash, salt := pin.Hasher{}.Hash("1234")
	w := worker.Worker{
		ID:                id,
		IdentityID:        "idp-" + id,
		Name:              "Worker " + id,
		Email:             id + "@example.be",
		Status:            status,
		HourlyRate:        decimal.RequireFromString("12.50"),
		FrameworkSignedAt: &signed,
		Active:            true,
		CreatedAt:         time.Now().UTC(),
		UpdatedAt:         time.Now().UTC(),
	}
	require.NoError(t, f.store.CreateWorker(context.Background(), w, hash, salt))
	return w
}

// seedAcceptedShift writes an accepted shift for today directly.
func (f *fixture) seedAcceptedShift(t *testing.T, workerID string) shift.Shift {
	t.Helper()
	now := time.Now().UTC()
	s := shift.Shift{
		ID:         uuid.NewString(),
		LocationID: f.loc.ID,
		WorkerID:   workerID,
		Date:       time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC),
		Start:      "18:00",
		End:        "23:00",
		Role:       "runner",
		Status:     shift.StatusAccepted,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, f.store.InsertShift(context.Background(), s))
	return s
}

func atVenue() *tracking.Geo {
	return &tracking.Geo{Latitude: venueLat, Longitude: venueLng}
}

func asWorker(id string) identity.Actor {
	return identity.Actor{UserID: "u-" + id, Role: identity.RoleFlexi, WorkerID: id}
}

var manager = identity.Actor{UserID: "mgr-1", Role: identity.RoleManager}

// =============================================================================
// CLOCK-IN TESTS
// =============================================================================

func TestClockIn_HappyPath(t *testing.T) {
	f := newFixture(t)
	f.seedWorker(t, "w-1", worker.StatusEmployee)
	s := f.seedAcceptedShift(t, "w-1")

	entry, err := f.engine.ClockIn(context.Background(), asWorker("w-1"), s.ID, atVenue())
	require.NoError(t, err)
	assert.True(t, entry.Open())
	assert.True(t, entry.ClockInGeoVerified)
	assert.Equal(t, s.ID, entry.ShiftID)
}

func TestClockIn_DoubleClockIn_ExactlyOneWins(t *testing.T) {
	// GIVEN: an open entry on the shift
	// WHEN: the worker clocks in again without clocking out
	// THEN: the second attempt fails and only one entry exists

	f := newFixture(t)
	f.seedWorker(t, "w-1", worker.StatusEmployee)
	s := f.seedAcceptedShift(t, "w-1")

	_, err := f.engine.ClockIn(context.Background(), asWorker("w-1"), s.ID, atVenue())
	require.NoError(t, err)

	_, err = f.engine.ClockIn(context.Background(), asWorker("w-1"), s.ID, atVenue())
	assert.ErrorIs(t, err, tracking.ErrAlreadyClockedIn)

	entries, err := f.store.ListEntries(context.Background(), tracking.EntryFilter{ShiftID: s.ID})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestClockIn_ConcurrentRace_OneWinnerTypedLosers(t *testing.T) {
	// GIVEN: several simultaneous clock-ins on the same shift
	// THEN: exactly one entry exists and every loser sees the typed
	// already-clocked-in error, not a wrapped constraint failure

	f := newFixture(t)
	f.seedWorker(t, "w-1", worker.StatusEmployee)
	s := f.seedAcceptedShift(t, "w-1")

	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.engine.ClockIn(context.Background(), asWorker("w-1"), s.ID, atVenue())
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	won, lost := 0, 0
	for err := range errs {
		if err == nil {
			won++
			continue
		}
		lost++
		assert.ErrorIs(t, err, tracking.ErrAlreadyClockedIn)
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, attempts-1, lost)

	entries, err := f.store.ListEntries(context.Background(), tracking.EntryFilter{ShiftID: s.ID})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestClockIn_ShiftNotAccepted_Rejected(t *testing.T) {
	f := newFixture(t)
	f.seedWorker(t, "w-1", worker.StatusEmployee)
	s := f.seedAcceptedShift(t, "w-1")
	s.Status = shift.StatusProposed
	require.NoError(t, f.store.UpdateShift(context.Background(), s))

	_, err := f.engine.ClockIn(context.Background(), asWorker("w-1"), s.ID, atVenue())
	assert.ErrorIs(t, err, tracking.ErrShiftNotAccepted)
}

func TestClockIn_SomeoneElsesShift_Rejected(t *testing.T) {
	f := newFixture(t)
	f.seedWorker(t, "w-1", worker.StatusEmployee)
	f.seedWorker(t, "w-2", worker.StatusEmployee)
	s := f.seedAcceptedShift(t, "w-1")

	_, err := f.engine.ClockIn(context.Background(), asWorker("w-2"), s.ID, atVenue())
	assert.ErrorIs(t, err, tracking.ErrNotYourShift)
}

func TestClockIn_OutsideGeofence_Rejected(t *testing.T) {
	f := newFixture(t)
	f.seedWorker(t, "w-1", worker.StatusEmployee)
	s := f.seedAcceptedShift(t, "w-1")

	// ~5 km north of the venue.
	_, err := f.engine.ClockIn(context.Background(), asWorker("w-1"), s.ID,
		&tracking.Geo{Latitude: venueLat + 0.05, Longitude: venueLng})

	var geoErr *tracking.GeofenceError
	require.ErrorAs(t, err, &geoErr)
	assert.Greater(t, geoErr.DistanceMeters, geoErr.RadiusMeters)
}

func TestClockIn_NoCoordinates_RecordedUnverified(t *testing.T) {
	// Missing coordinates do not block the clock-in; the entry simply
	// records that the position was never verified.

	f := newFixture(t)
	f.seedWorker(t, "w-1", worker.StatusEmployee)
	s := f.seedAcceptedShift(t, "w-1")

	entry, err := f.engine.ClockIn(context.Background(), asWorker("w-1"), s.ID, nil)
	require.NoError(t, err)
	assert.False(t, entry.ClockInGeoVerified)
}

// =============================================================================
// CONTRACT GATE INTEGRATION
// =============================================================================

func TestClockIn_FrameworkUnsigned_Blocked(t *testing.T) {
	f := newFixture(t)
	hash, salt := pin.Hasher{}.Hash("1234")
	w := worker.Worker{
		ID: "w-unsigned", Name: "Unsigned", Status: worker.StatusEmployee,
		HourlyRate: decimal.RequireFromString("12.50"), Active: true,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, f.store.CreateWorker(context.Background(), w, hash, salt))
	s := f.seedAcceptedShift(t, "w-unsigned")

	_, err := f.engine.ClockIn(context.Background(), asWorker("w-unsigned"), s.ID, atVenue())
	assert.ErrorIs(t, err, contract.ErrFrameworkRequired)
}

func TestClockIn_Student_BlockedThenSignedThenClear(t *testing.T) {
	// GIVEN: a student with no contract for this shift
	// WHEN: they clock in
	// THEN: blocked with the terms; after signing, the clock-in succeeds

	f := newFixture(t)
	w := f.seedWorker(t, "w-1", worker.StatusStudent)
	s := f.seedAcceptedShift(t, "w-1")

	_, err := f.engine.ClockIn(context.Background(), asWorker("w-1"), s.ID, atVenue())
	var required *contract.ShiftContractRequiredError
	require.ErrorAs(t, err, &required)
	assert.Equal(t, s.ID, required.Terms.ShiftID)
	assert.Equal(t, w.HourlyRate, required.Terms.HourlyRate)
	assert.Equal(t, f.loc.Name, required.Terms.LocationName)

	gate := &contract.Gate{Store: f.store}
	_, err = gate.SignShiftContract(context.Background(), w, s, f.loc, "sig-ref")
	require.NoError(t, err)

	entry, err := f.engine.ClockIn(context.Background(), asWorker("w-1"), s.ID, atVenue())
	require.NoError(t, err)
	assert.True(t, entry.Open())
}

// =============================================================================
// CLOCK-OUT TESTS
// =============================================================================

func TestClockOut_WithoutOpenEntry_Rejected(t *testing.T) {
	f := newFixture(t)
	f.seedWorker(t, "w-1", worker.StatusEmployee)
	s := f.seedAcceptedShift(t, "w-1")

	_, err := f.engine.ClockOut(context.Background(), asWorker("w-1"), s.ID, atVenue())
	assert.ErrorIs(t, err, tracking.ErrNoOpenEntry)
}

func TestClockOut_ClosesEntryAndComputesHours(t *testing.T) {
	f := newFixture(t)
	f.seedWorker(t, "w-1", worker.StatusEmployee)
	s := f.seedAcceptedShift(t, "w-1")

	// Open an entry that started four hours ago.
	now := time.Now().UTC()
	require.NoError(t, f.store.InsertEntry(context.Background(), tracking.TimeEntry{
		ID: uuid.NewString(), ShiftID: s.ID, WorkerID: "w-1",
		ClockIn:   now.Add(-4 * time.Hour),
		CreatedAt: now.Add(-4 * time.Hour), UpdatedAt: now.Add(-4 * time.Hour),
	}))

	closed, err := f.engine.ClockOut(context.Background(), asWorker("w-1"), s.ID, atVenue())
	require.NoError(t, err)
	require.NotNil(t, closed.ClockOut)
	assert.True(t, closed.ActualHours.GreaterThanOrEqual(decimal.RequireFromString("3.99")))
	assert.True(t, closed.ActualHours.LessThanOrEqual(decimal.RequireFromString("4.01")))

	// A second clock-out has nothing left to close.
	_, err = f.engine.ClockOut(context.Background(), asWorker("w-1"), s.ID, atVenue())
	assert.ErrorIs(t, err, tracking.ErrNoOpenEntry)
}

// =============================================================================
// KIOSK FLOW
// =============================================================================

func TestKioskClockIn_HappyPath(t *testing.T) {
	f := newFixture(t)
	f.seedWorker(t, "w-1", worker.StatusEmployee)
	s := f.seedAcceptedShift(t, "w-1")

	entry, err := f.engine.KioskClockIn(context.Background(), f.loc.KioskToken, "w-1", "1234", atVenue())
	require.NoError(t, err)
	assert.Equal(t, s.ID, entry.ShiftID)
}

func TestKioskClockIn_BadToken_Rejected(t *testing.T) {
	f := newFixture(t)
	f.seedWorker(t, "w-1", worker.StatusEmployee)
	f.seedAcceptedShift(t, "w-1")

	_, err := f.engine.KioskClockIn(context.Background(), "bogus-token", "w-1", "1234", atVenue())
	assert.ErrorIs(t, err, tracking.ErrKioskToken)
}

func TestKioskClockIn_WrongPIN_Rejected(t *testing.T) {
	f := newFixture(t)
	f.seedWorker(t, "w-1", worker.StatusEmployee)
	f.seedAcceptedShift(t, "w-1")

	_, err := f.engine.KioskClockIn(context.Background(), f.loc.KioskToken, "w-1", "9999", atVenue())
	assert.ErrorIs(t, err, pin.ErrWrongPIN)
}

func TestKioskClockIn_NoShiftToday_Rejected(t *testing.T) {
	f := newFixture(t)
	f.seedWorker(t, "w-1", worker.StatusEmployee)

	_, err := f.engine.KioskClockIn(context.Background(), f.loc.KioskToken, "w-1", "1234", atVenue())
	assert.ErrorIs(t, err, tracking.ErrNoShiftToday)
}

func TestKioskClockOut_ClosesOpenEntry(t *testing.T) {
	f := newFixture(t)
	f.seedWorker(t, "w-1", worker.StatusEmployee)
	f.seedAcceptedShift(t, "w-1")

	_, err := f.engine.KioskClockIn(context.Background(), f.loc.KioskToken, "w-1", "1234", atVenue())
	require.NoError(t, err)

	closed, err := f.engine.KioskClockOut(context.Background(), f.loc.KioskToken, "w-1", "1234", atVenue())
	require.NoError(t, err)
	assert.NotNil(t, closed.ClockOut)
}

// =============================================================================
// VALIDATION AND CORRECTION
// =============================================================================

func closedEntry(t *testing.T, f *fixture, workerID string) tracking.TimeEntry {
	t.Helper()
	s := f.seedAcceptedShift(t, workerID)
	now := time.Now().UTC()
	out := now.Add(-30 * time.Minute)
	in := out.Add(-4 * time.Hour)
	entry := tracking.TimeEntry{
		ID: uuid.NewString(), ShiftID: s.ID, WorkerID: workerID,
		ClockIn: in, ClockOut: &out,
		ActualHours: decimal.RequireFromString("4"),
		CreatedAt:   in, UpdatedAt: out,
	}
	require.NoError(t, f.store.InsertEntry(context.Background(), entry))
	return entry
}

func TestValidate_ManagerOnly(t *testing.T) {
	f := newFixture(t)
	f.seedWorker(t, "w-1", worker.StatusEmployee)
	entry := closedEntry(t, f, "w-1")

	_, err := f.engine.Validate(context.Background(), asWorker("w-1"), entry.ID)
	assert.ErrorIs(t, err, shift.ErrNotManager)
}

func TestValidate_OpenEntry_Rejected(t *testing.T) {
	f := newFixture(t)
	f.seedWorker(t, "w-1", worker.StatusEmployee)
	s := f.seedAcceptedShift(t, "w-1")

	opened, err := f.engine.ClockIn(context.Background(), asWorker("w-1"), s.ID, atVenue())
	require.NoError(t, err)

	_, err = f.engine.Validate(context.Background(), manager, opened.ID)
	assert.ErrorIs(t, err, tracking.ErrEntryOpen)
}

func TestValidate_ThenDoubleValidate_Rejected(t *testing.T) {
	f := newFixture(t)
	f.seedWorker(t, "w-1", worker.StatusEmployee)
	entry := closedEntry(t, f, "w-1")

	validated, err := f.engine.Validate(context.Background(), manager, entry.ID)
	require.NoError(t, err)
	assert.True(t, validated.Validated)
	assert.Equal(t, manager.UserID, validated.ValidatedBy)

	_, err = f.engine.Validate(context.Background(), manager, entry.ID)
	assert.ErrorIs(t, err, tracking.ErrAlreadyValidated)
}

func TestCorrect_RequiresValidationAndNote(t *testing.T) {
	f := newFixture(t)
	f.seedWorker(t, "w-1", worker.StatusEmployee)
	entry := closedEntry(t, f, "w-1")

	// Correcting an unvalidated entry is meaningless.
	_, err := f.engine.Correct(context.Background(), manager, entry.ID,
		decimal.RequireFromString("3.5"), "typo")
	assert.ErrorIs(t, err, tracking.ErrNotValidated)

	_, err = f.engine.Validate(context.Background(), manager, entry.ID)
	require.NoError(t, err)

	// The note is mandatory.
	_, err = f.engine.Correct(context.Background(), manager, entry.ID,
		decimal.RequireFromString("3.5"), "")
	assert.Error(t, err)

	corrected, err := f.engine.Correct(context.Background(), manager, entry.ID,
		decimal.RequireFromString("3.5"), "forgot to clock out at the break")
	require.NoError(t, err)
	assert.Equal(t, "3.5", corrected.ActualHours.String())
	assert.Equal(t, "forgot to clock out at the break", corrected.CorrectionNote)
}
