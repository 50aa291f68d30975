package shift_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/horeca/flexi-engine/contract"
	"github.com/horeca/flexi-engine/dimona"
	"github.com/horeca/flexi-engine/identity"
	"github.com/horeca/flexi-engine/shift"
	"github.com/horeca/flexi-engine/store/sqlite"
	"github.com/horeca/flexi-engine/tracking"
	"github.com/horeca/flexi-engine/worker"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var (
	manager  = identity.Actor{UserID: "mgr-1", Role: identity.RoleManager}
	asWorker = func(id string) identity.Actor {
		return identity.Actor{UserID: "u-" + id, Role: identity.RoleFlexi, WorkerID: id}
	}
)

func newTestService(t *testing.T) (*shift.Service, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return &shift.Service{Store: store}, store
}

func seedLocation(t *testing.T, store *sqlite.Store) shift.Location {
	t.Helper()
	loc := shift.NewLocation("Brasserie Central", 50.8466, 4.3528, 100)
	require.NoError(t, store.CreateLocation(context.Background(), loc))
	return loc
}

func seedWorker(t *testing.T, store *sqlite.Store, id string, status worker.Status) worker.Worker {
	t.Helper()
	w := worker.Worker{
		ID:         id,
		IdentityID: "idp-" + id,
		Name:       "Worker " + id,
		Email:      id + "@example.be",
		NISS:       "85.07.30-033." + id,
		IBAN:       "BE68539007547034",
		Status:     status,
		HourlyRate: decimal.RequireFromString("12.50"),
		Active:     true,
		CreatedAt:  time.Now().UTC(),
		UpdatedAt:  time.Now().UTC(),
	}
	require.NoError(t, store.CreateWorker(context.Background(), w, "hash", "salt"))
	return w
}

func proposedShift(t *testing.T, svc *shift.Service, loc shift.Location, workerID string, date time.Time, start, end string) *shift.Shift {
	t.Helper()
	s, err := svc.Create(context.Background(), manager, shift.CreateInput{
		LocationID: loc.ID,
		WorkerID:   workerID,
		Date:       date,
		Start:      start,
		End:        end,
		Role:       "runner",
	})
	require.NoError(t, err)
	s, err = svc.Propose(context.Background(), manager, s.ID)
	require.NoError(t, err)
	return s
}

func day(d int) time.Time {
	return time.Date(2026, time.October, d, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// LIFECYCLE TESTS
// =============================================================================

func TestCreate_RequiresManager(t *testing.T) {
	svc, store := newTestService(t)
	loc := seedLocation(t, store)

	_, err := svc.Create(context.Background(), asWorker("w-1"), shift.CreateInput{
		LocationID: loc.ID, Date: day(5), Start: "18:00", End: "23:00", Role: "runner",
	})
	assert.ErrorIs(t, err, shift.ErrNotManager)
}

func TestCreate_UnknownLocation_Rejected(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), manager, shift.CreateInput{
		LocationID: "nope", Date: day(5), Start: "18:00", End: "23:00", Role: "runner",
	})
	assert.ErrorIs(t, err, shift.ErrLocationNotFound)
}

func TestCreate_InvalidTimes_Rejected(t *testing.T) {
	svc, store := newTestService(t)
	loc := seedLocation(t, store)

	_, err := svc.Create(context.Background(), manager, shift.CreateInput{
		LocationID: loc.ID, Date: day(5), Start: "18h00", End: "23:00", Role: "runner",
	})
	var vErr *shift.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestPropose_WithoutWorker_Rejected(t *testing.T) {
	// GIVEN: a draft with no worker assigned
	// WHEN: the manager proposes it
	// THEN: rejected, there is nobody to respond

	svc, store := newTestService(t)
	loc := seedLocation(t, store)

	s, err := svc.Create(context.Background(), manager, shift.CreateInput{
		LocationID: loc.ID, Date: day(5), Start: "18:00", End: "23:00", Role: "runner",
	})
	require.NoError(t, err)

	_, err = svc.Propose(context.Background(), manager, s.ID)
	assert.ErrorIs(t, err, shift.ErrNoWorkerAssigned)
}

func TestAccept_OnlyAssigneeMayRespond(t *testing.T) {
	svc, store := newTestService(t)
	loc := seedLocation(t, store)
	seedWorker(t, store, "w-1", worker.StatusEmployee)
	seedWorker(t, store, "w-2", worker.StatusEmployee)

	s := proposedShift(t, svc, loc, "w-1", day(5), "18:00", "23:00")

	_, err := svc.Accept(context.Background(), asWorker("w-2"), s.ID)
	assert.ErrorIs(t, err, shift.ErrNotAssignee)

	// Managers cannot accept on a worker's behalf either.
	_, err = svc.Accept(context.Background(), manager, s.ID)
	assert.ErrorIs(t, err, shift.ErrNotAssignee)
}

func TestAccept_CreatesReadyDeclaration(t *testing.T) {
	// GIVEN: a proposed shift
	// WHEN: the assigned worker accepts
	// THEN: the shift is accepted and a ready IN declaration exists

	svc, store := newTestService(t)
	loc := seedLocation(t, store)
	seedWorker(t, store, "w-1", worker.StatusEmployee)

	s := proposedShift(t, svc, loc, "w-1", day(5), "18:00", "23:00")

	accepted, err := svc.Accept(context.Background(), asWorker("w-1"), s.ID)
	require.NoError(t, err)
	assert.Equal(t, shift.StatusAccepted, accepted.Status)

	d, err := store.GetDeclarationByShift(context.Background(), s.ID)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, dimona.TypeIn, d.Type)
	assert.Equal(t, dimona.StatusReady, d.Status)
	assert.Equal(t, "w-1", d.WorkerID)
}

func TestAccept_FromDraft_Rejected(t *testing.T) {
	svc, store := newTestService(t)
	loc := seedLocation(t, store)
	seedWorker(t, store, "w-1", worker.StatusEmployee)

	s, err := svc.Create(context.Background(), manager, shift.CreateInput{
		LocationID: loc.ID, WorkerID: "w-1", Date: day(5), Start: "18:00", End: "23:00", Role: "runner",
	})
	require.NoError(t, err)

	_, err = svc.Accept(context.Background(), asWorker("w-1"), s.ID)
	var stateErr *shift.StateError
	assert.ErrorAs(t, err, &stateErr)
	assert.Equal(t, shift.StatusDraft, stateErr.Status)
}

func TestRefuse_TerminalForProposal(t *testing.T) {
	svc, store := newTestService(t)
	loc := seedLocation(t, store)
	seedWorker(t, store, "w-1", worker.StatusEmployee)

	s := proposedShift(t, svc, loc, "w-1", day(5), "18:00", "23:00")

	refused, err := svc.Refuse(context.Background(), asWorker("w-1"), s.ID)
	require.NoError(t, err)
	assert.Equal(t, shift.StatusRefused, refused.Status)

	// A refused proposal takes no further worker responses.
	_, err = svc.Accept(context.Background(), asWorker("w-1"), s.ID)
	var stateErr *shift.StateError
	assert.ErrorAs(t, err, &stateErr)

	// No declaration was ever created.
	d, err := store.GetDeclarationByShift(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Nil(t, d)
}

// =============================================================================
// DOUBLE-BOOKING TESTS
// =============================================================================

func TestCreate_OverlappingAssignment_Rejected(t *testing.T) {
	svc, store := newTestService(t)
	loc := seedLocation(t, store)
	seedWorker(t, store, "w-1", worker.StatusEmployee)

	_, err := svc.Create(context.Background(), manager, shift.CreateInput{
		LocationID: loc.ID, WorkerID: "w-1", Date: day(5), Start: "18:00", End: "23:00", Role: "runner",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), manager, shift.CreateInput{
		LocationID: loc.ID, WorkerID: "w-1", Date: day(5), Start: "21:00", End: "23:30", Role: "bar",
	})
	var conflict *shift.ConflictError
	assert.ErrorAs(t, err, &conflict)
	assert.Equal(t, "w-1", conflict.WorkerID)
}

func TestCreate_BackToBackSameDay_Allowed(t *testing.T) {
	// 11:00-15:00 and 18:00-23:00 on the same day do not overlap.
	svc, store := newTestService(t)
	loc := seedLocation(t, store)
	seedWorker(t, store, "w-1", worker.StatusEmployee)

	_, err := svc.Create(context.Background(), manager, shift.CreateInput{
		LocationID: loc.ID, WorkerID: "w-1", Date: day(5), Start: "11:00", End: "15:00", Role: "runner",
	})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), manager, shift.CreateInput{
		LocationID: loc.ID, WorkerID: "w-1", Date: day(5), Start: "18:00", End: "23:00", Role: "runner",
	})
	assert.NoError(t, err)
}

func TestAccept_ConflictRecheckedAtAcceptance(t *testing.T) {
	// GIVEN: two overlapping proposals to the same worker
	// WHEN: the worker accepts both
	// THEN: the second acceptance is rejected as a conflict

	svc, store := newTestService(t)
	loc := seedLocation(t, store)
	seedWorker(t, store, "w-1", worker.StatusEmployee)

	first := proposedShift(t, svc, loc, "w-1", day(5), "18:00", "23:00")

	// The second proposal is written directly: Create would already
	// refuse the overlap, but two venues can race their proposals in.
	second := *first
	second.ID = "shift-overlap"
	second.Start = "20:00"
	second.End = "23:30"
	require.NoError(t, store.InsertShift(context.Background(), second))

	_, err := svc.Accept(context.Background(), asWorker("w-1"), first.ID)
	require.NoError(t, err)

	_, err = svc.Accept(context.Background(), asWorker("w-1"), second.ID)
	var conflict *shift.ConflictError
	assert.ErrorAs(t, err, &conflict)

	// The losing acceptance left no declaration behind.
	d, err := store.GetDeclarationByShift(context.Background(), second.ID)
	require.NoError(t, err)
	assert.Nil(t, d)
}

// =============================================================================
// MULTI-DAY PROPOSALS
// =============================================================================

func TestCreateMany_PartialAcceptance(t *testing.T) {
	// GIVEN: a 3-day proposal where day 2 collides with an existing shift
	// WHEN: the batch is created
	// THEN: days 1 and 3 are proposed, day 2 is reported rejected

	svc, store := newTestService(t)
	loc := seedLocation(t, store)
	seedWorker(t, store, "w-1", worker.StatusEmployee)

	_, err := svc.Create(context.Background(), manager, shift.CreateInput{
		LocationID: loc.ID, WorkerID: "w-1", Date: day(6), Start: "18:00", End: "23:00", Role: "runner",
	})
	require.NoError(t, err)

	result, err := svc.CreateMany(context.Background(), manager, shift.CreateManyInput{
		LocationID: loc.ID,
		WorkerID:   "w-1",
		Role:       "runner",
		Days: []shift.DaySpec{
			{Date: day(5), Start: "18:00", End: "23:00"},
			{Date: day(6), Start: "19:00", End: "22:00"},
			{Date: day(7), Start: "18:00", End: "23:00"},
		},
	})
	require.NoError(t, err)

	require.Len(t, result.Created, 2)
	for _, s := range result.Created {
		assert.Equal(t, shift.StatusProposed, s.Status)
	}
	require.Len(t, result.Rejected, 1)
	assert.Equal(t, day(6), result.Rejected[0].Date)
	assert.NotEmpty(t, result.Rejected[0].Reason)
}

func TestCreateMany_BatchInternalOverlap(t *testing.T) {
	svc, store := newTestService(t)
	loc := seedLocation(t, store)
	seedWorker(t, store, "w-1", worker.StatusEmployee)

	result, err := svc.CreateMany(context.Background(), manager, shift.CreateManyInput{
		LocationID: loc.ID,
		WorkerID:   "w-1",
		Role:       "runner",
		Days: []shift.DaySpec{
			{Date: day(5), Start: "18:00", End: "23:00"},
			{Date: day(5), Start: "20:00", End: "23:30"},
		},
	})
	require.NoError(t, err)
	assert.Len(t, result.Created, 1)
	assert.Len(t, result.Rejected, 1)
}

// =============================================================================
// CANCELLATION CASCADE
// =============================================================================

func acceptedShift(t *testing.T, svc *shift.Service, store *sqlite.Store, loc shift.Location, workerID string) *shift.Shift {
	t.Helper()
	s := proposedShift(t, svc, loc, workerID, day(5), "18:00", "23:00")
	s, err := svc.Accept(context.Background(), asWorker(workerID), s.ID)
	require.NoError(t, err)
	return s
}

// =============================================================================
// UPDATE TESTS
// =============================================================================

func strPtr(s string) *string { return &s }

func TestUpdate_RequeuesAcceptedDeclarationAsUpdate(t *testing.T) {
	// GIVEN: an accepted shift whose IN declaration the ONSS accepted
	// WHEN: the manager changes the end time
	// THEN: the declaration is re-queued as an UPDATE, keeping its period

	svc, store := newTestService(t)
	loc := seedLocation(t, store)
	seedWorker(t, store, "w-1", worker.StatusEmployee)
	s := acceptedShift(t, svc, store, loc, "w-1")

	d, err := store.GetDeclarationByShift(context.Background(), s.ID)
	require.NoError(t, err)
	d.Status = dimona.StatusOK
	d.PeriodID = "period-123"
	require.NoError(t, store.UpdateDeclaration(context.Background(), *d))

	updated, err := svc.Update(context.Background(), manager, s.ID, shift.UpdateInput{End: strPtr("23:30")})
	require.NoError(t, err)
	assert.Equal(t, "23:30", updated.End)

	d, err = store.GetDeclarationByShift(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, dimona.TypeUpdate, d.Type)
	assert.Equal(t, dimona.StatusReady, d.Status)
	assert.Equal(t, "period-123", d.PeriodID)
}

func TestUpdate_LeavesUnsentDeclarationAlone(t *testing.T) {
	// An unsent declaration reads the shift fresh at push time; editing
	// the shift must not touch it.

	svc, store := newTestService(t)
	loc := seedLocation(t, store)
	seedWorker(t, store, "w-1", worker.StatusEmployee)
	s := acceptedShift(t, svc, store, loc, "w-1")

	_, err := svc.Update(context.Background(), manager, s.ID, shift.UpdateInput{End: strPtr("23:30")})
	require.NoError(t, err)

	d, err := store.GetDeclarationByShift(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, dimona.TypeIn, d.Type)
	assert.Equal(t, dimona.StatusReady, d.Status)
}

func TestCancel_RequeuedUpdateStillOwesRetraction(t *testing.T) {
	// A ready declaration holding a period id is a re-queued UPDATE;
	// cancelling the shift must keep the record and owe the retraction
	// rather than delete it.

	svc, store := newTestService(t)
	svc.Declarant = &failingDeclarant{}
	loc := seedLocation(t, store)
	seedWorker(t, store, "w-1", worker.StatusEmployee)
	s := acceptedShift(t, svc, store, loc, "w-1")

	d, err := store.GetDeclarationByShift(context.Background(), s.ID)
	require.NoError(t, err)
	d.Status = dimona.StatusOK
	d.PeriodID = "period-123"
	require.NoError(t, store.UpdateDeclaration(context.Background(), *d))
	_, err = svc.Update(context.Background(), manager, s.ID, shift.UpdateInput{End: strPtr("23:30")})
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), manager, s.ID, dimona.ReasonNoShow)
	require.NoError(t, err)

	d, err = store.GetDeclarationByShift(context.Background(), s.ID)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, dimona.StatusCancelled, d.Status)
	assert.True(t, d.RetractionOwed)
}

func TestCancel_InvalidReason_Rejected(t *testing.T) {
	svc, store := newTestService(t)
	loc := seedLocation(t, store)
	seedWorker(t, store, "w-1", worker.StatusEmployee)
	s := acceptedShift(t, svc, store, loc, "w-1")

	_, err := svc.Cancel(context.Background(), manager, s.ID, "because")
	var vErr *shift.ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestCancel_DeletesUnsentDeclaration(t *testing.T) {
	// A ready declaration was never sent to the ONSS: cancel deletes it
	// outright, there is nothing to retract.

	svc, store := newTestService(t)
	loc := seedLocation(t, store)
	seedWorker(t, store, "w-1", worker.StatusEmployee)
	s := acceptedShift(t, svc, store, loc, "w-1")

	cancelled, err := svc.Cancel(context.Background(), manager, s.ID, dimona.ReasonManagerCancelled)
	require.NoError(t, err)
	assert.Equal(t, shift.StatusCancelled, cancelled.Status)

	d, err := store.GetDeclarationByShift(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestCancel_AcceptedDeclaration_MarkedCancelledWithRetraction(t *testing.T) {
	// GIVEN: the declaration was accepted by the ONSS (ok + period id)
	// WHEN: the shift is cancelled and the ONSS is unreachable
	// THEN: the cascade still commits, the declaration is cancelled with
	//       the reason recorded and the retraction flagged as owed

	svc, store := newTestService(t)
	svc.Declarant = &failingDeclarant{}
	loc := seedLocation(t, store)
	seedWorker(t, store, "w-1", worker.StatusEmployee)
	s := acceptedShift(t, svc, store, loc, "w-1")

	d, err := store.GetDeclarationByShift(context.Background(), s.ID)
	require.NoError(t, err)
	d.Status = dimona.StatusOK
	d.PeriodID = "period-123"
	require.NoError(t, store.UpdateDeclaration(context.Background(), *d))

	cancelled, err := svc.Cancel(context.Background(), manager, s.ID, dimona.ReasonNoShow)
	require.NoError(t, err)
	assert.Equal(t, shift.StatusCancelled, cancelled.Status)

	d, err = store.GetDeclarationByShift(context.Background(), s.ID)
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, dimona.StatusCancelled, d.Status)
	assert.Equal(t, dimona.ReasonNoShow, d.CancelReason)
	assert.True(t, d.RetractionOwed, "unreachable ONSS leaves the retraction owed")
}

func TestCancel_RetractionClearedWhenONSSReachable(t *testing.T) {
	svc, store := newTestService(t)
	declarant := &recordingDeclarant{}
	svc.Declarant = declarant
	loc := seedLocation(t, store)
	seedWorker(t, store, "w-1", worker.StatusEmployee)
	s := acceptedShift(t, svc, store, loc, "w-1")

	d, err := store.GetDeclarationByShift(context.Background(), s.ID)
	require.NoError(t, err)
	d.Status = dimona.StatusOK
	d.PeriodID = "period-123"
	require.NoError(t, store.UpdateDeclaration(context.Background(), *d))

	_, err = svc.Cancel(context.Background(), manager, s.ID, dimona.ReasonWorkerCancelled)
	require.NoError(t, err)

	assert.Equal(t, []string{"period-123"}, declarant.cancelled)

	d, err = store.GetDeclarationByShift(context.Background(), s.ID)
	require.NoError(t, err)
	assert.False(t, d.RetractionOwed)
}

func TestCancel_DeletesOpenEntryAndUnsignedContract(t *testing.T) {
	svc, store := newTestService(t)
	loc := seedLocation(t, store)
	seedWorker(t, store, "w-1", worker.StatusStudent)
	s := acceptedShift(t, svc, store, loc, "w-1")

	now := time.Now().UTC()
	require.NoError(t, store.InsertEntry(context.Background(), tracking.TimeEntry{
		ID: "entry-1", ShiftID: s.ID, WorkerID: "w-1",
		ClockIn: now, CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, store.InsertContract(context.Background(), contract.Contract{
		ID: "ctr-1", Kind: contract.KindStudent, WorkerID: "w-1", ShiftID: s.ID,
		SignedAt: now, SignatureRef: "sig",
	}))

	_, err := svc.Cancel(context.Background(), manager, s.ID, dimona.ReasonNoShow)
	require.NoError(t, err)

	open, err := store.GetOpenEntry(context.Background(), s.ID, "w-1")
	require.NoError(t, err)
	assert.Nil(t, open, "open entry removed by the cascade")

	c, err := store.GetShiftContract(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Nil(t, c, "never-worked student contract removed")
}

func TestCancel_KeepsContractWhenHoursWereWorked(t *testing.T) {
	svc, store := newTestService(t)
	loc := seedLocation(t, store)
	seedWorker(t, store, "w-1", worker.StatusStudent)
	s := acceptedShift(t, svc, store, loc, "w-1")

	now := time.Now().UTC()
	out := now.Add(4 * time.Hour)
	require.NoError(t, store.InsertEntry(context.Background(), tracking.TimeEntry{
		ID: "entry-1", ShiftID: s.ID, WorkerID: "w-1",
		ClockIn: now, ClockOut: &out,
		ActualHours: decimal.RequireFromString("4"),
		CreatedAt:   now, UpdatedAt: now,
	}))
	require.NoError(t, store.InsertContract(context.Background(), contract.Contract{
		ID: "ctr-1", Kind: contract.KindStudent, WorkerID: "w-1", ShiftID: s.ID,
		SignedAt: now, SignatureRef: "sig",
	}))

	_, err := svc.Cancel(context.Background(), manager, s.ID, dimona.ReasonManagerCancelled)
	require.NoError(t, err)

	// Worked hours make the contract payroll history. It stays.
	c, err := store.GetShiftContract(context.Background(), s.ID)
	require.NoError(t, err)
	assert.NotNil(t, c)
}

func TestCancel_Twice_Rejected(t *testing.T) {
	svc, store := newTestService(t)
	loc := seedLocation(t, store)
	seedWorker(t, store, "w-1", worker.StatusEmployee)
	s := acceptedShift(t, svc, store, loc, "w-1")

	_, err := svc.Cancel(context.Background(), manager, s.ID, dimona.ReasonNoShow)
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), manager, s.ID, dimona.ReasonNoShow)
	var stateErr *shift.StateError
	assert.ErrorAs(t, err, &stateErr)
}

// =============================================================================
// DELETION
// =============================================================================

func TestDelete_WithTimeEntries_Rejected(t *testing.T) {
	svc, store := newTestService(t)
	loc := seedLocation(t, store)
	seedWorker(t, store, "w-1", worker.StatusEmployee)
	s := acceptedShift(t, svc, store, loc, "w-1")

	now := time.Now().UTC()
	require.NoError(t, store.InsertEntry(context.Background(), tracking.TimeEntry{
		ID: "entry-1", ShiftID: s.ID, WorkerID: "w-1",
		ClockIn: now, CreatedAt: now, UpdatedAt: now,
	}))

	err := svc.Delete(context.Background(), manager, s.ID)
	assert.ErrorIs(t, err, shift.ErrHasHistory)
}

func TestDelete_DraftWithoutHistory_Removed(t *testing.T) {
	svc, store := newTestService(t)
	loc := seedLocation(t, store)

	s, err := svc.Create(context.Background(), manager, shift.CreateInput{
		LocationID: loc.ID, Date: day(5), Start: "18:00", End: "23:00", Role: "runner",
	})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), manager, s.ID))

	_, err = svc.Get(context.Background(), s.ID)
	assert.ErrorIs(t, err, shift.ErrNotFound)
}

// =============================================================================
// TEST DOUBLES
// =============================================================================

type failingDeclarant struct{}

func (failingDeclarant) Declare(ctx context.Context, d dimona.Declaration) (string, error) {
	return "", &dimona.CollaboratorError{Timeout: true, Reason: "connection refused"}
}

func (failingDeclarant) Cancel(ctx context.Context, periodID string, reason dimona.CancelReason) error {
	return errors.New("onss unreachable")
}

type recordingDeclarant struct {
	cancelled []string
}

func (d *recordingDeclarant) Declare(ctx context.Context, dec dimona.Declaration) (string, error) {
	return "period-" + dec.ID, nil
}

func (d *recordingDeclarant) Cancel(ctx context.Context, periodID string, reason dimona.CancelReason) error {
	d.cancelled = append(d.cancelled, periodID)
	return nil
}
