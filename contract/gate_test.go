package contract_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/horeca/flexi-engine/contract"
	"github.com/horeca/flexi-engine/shift"
	"github.com/horeca/flexi-engine/store/sqlite"
	"github.com/horeca/flexi-engine/worker"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newGate(t *testing.T) (*contract.Gate, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return &contract.Gate{Store: store}, store
}

func seedWorker(t *testing.T, store *sqlite.Store, status worker.Status) worker.Worker {
	t.Helper()
	now := time.Now().UTC()
	w := worker.Worker{
		ID:         uuid.NewString(),
		IdentityID: "idp-" + uuid.NewString(),
		Name:       "Lotte Claes",
		Email:      "lotte@example.be",
		Status:     status,
		HourlyRate: decimal.RequireFromString("13.25"),
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, store.CreateWorker(context.Background(), w, "hash", "salt"))
	return w
}

func seedShift(t *testing.T, store *sqlite.Store, workerID string) (shift.Shift, shift.Location) {
	t.Helper()
	loc := shift.NewLocation("Taverne Zuid", 51.0543, 3.7174, 75)
	require.NoError(t, store.CreateLocation(context.Background(), loc))

	now := time.Now().UTC()
	s := shift.Shift{
		ID:         uuid.NewString(),
		LocationID: loc.ID,
		WorkerID:   workerID,
		Date:       time.Date(2026, 10, 9, 0, 0, 0, 0, time.UTC),
		Start:      "18:00",
		End:        "23:00",
		Role:       "service",
		Status:     shift.StatusAccepted,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(t, store.InsertShift(context.Background(), s))
	return s, loc
}

// =============================================================================
// THE GATE
// =============================================================================

func TestCheck_FrameworkUnsigned_BlocksEveryone(t *testing.T) {
	gate, store := newGate(t)
	w := seedWorker(t, store, worker.StatusPensioner)
	s, loc := seedShift(t, store, w.ID)

	// WHEN checking before any framework contract exists
	err := gate.Check(context.Background(), w, s, loc)

	// THEN the framework gate blocks, even for non-students
	assert.ErrorIs(t, err, contract.ErrFrameworkRequired)
}

func TestCheck_FrameworkSigned_ClearsNonStudent(t *testing.T) {
	gate, store := newGate(t)
	w := seedWorker(t, store, worker.StatusEmployee)
	s, loc := seedShift(t, store, w.ID)

	_, err := gate.SignFramework(context.Background(), w, "sig-ref-1")
	require.NoError(t, err)

	// THEN a non-student needs nothing further
	assert.NoError(t, gate.Check(context.Background(), w, s, loc))
}

func TestCheck_Student_NeedsShiftContract(t *testing.T) {
	gate, store := newGate(t)
	w := seedWorker(t, store, worker.StatusStudent)
	s, loc := seedShift(t, store, w.ID)

	_, err := gate.SignFramework(context.Background(), w, "sig-ref-1")
	require.NoError(t, err)

	// WHEN the student has no contract for this shift
	err = gate.Check(context.Background(), w, s, loc)

	// THEN the gate blocks with the terms the consent screen must show
	var blocked *contract.ShiftContractRequiredError
	require.ErrorAs(t, err, &blocked)
	assert.Equal(t, w.ID, blocked.Terms.WorkerID)
	assert.Equal(t, s.ID, blocked.Terms.ShiftID)
	assert.True(t, blocked.Terms.HourlyRate.Equal(w.HourlyRate))
	assert.Equal(t, "18:00", blocked.Terms.Start)
	assert.Equal(t, "Taverne Zuid", blocked.Terms.LocationName)
}

func TestCheck_Student_ClearsAfterShiftContract(t *testing.T) {
	gate, store := newGate(t)
	w := seedWorker(t, store, worker.StatusStudent)
	s, loc := seedShift(t, store, w.ID)

	_, err := gate.SignFramework(context.Background(), w, "sig-ref-1")
	require.NoError(t, err)
	_, err = gate.SignShiftContract(context.Background(), w, s, loc, "sig-ref-2")
	require.NoError(t, err)

	assert.NoError(t, gate.Check(context.Background(), w, s, loc))
}

func TestCheck_Student_SigningOneShiftDoesNotCoverAnother(t *testing.T) {
	gate, store := newGate(t)
	w := seedWorker(t, store, worker.StatusStudent)
	first, loc := seedShift(t, store, w.ID)
	second := first
	second.ID = uuid.NewString()
	second.Date = first.Date.AddDate(0, 0, 1)
	require.NoError(t, store.InsertShift(context.Background(), second))

	_, err := gate.SignFramework(context.Background(), w, "sig-ref-1")
	require.NoError(t, err)
	_, err = gate.SignShiftContract(context.Background(), w, first, loc, "sig-ref-2")
	require.NoError(t, err)

	// THEN the second shift still needs its own signature
	var blocked *contract.ShiftContractRequiredError
	assert.ErrorAs(t, gate.Check(context.Background(), w, second, loc), &blocked)
}

// =============================================================================
// SIGNING
// =============================================================================

func TestSignFramework_SnapshotAndStamp(t *testing.T) {
	gate, store := newGate(t)
	w := seedWorker(t, store, worker.StatusOther)

	c, err := gate.SignFramework(context.Background(), w, "sig-ref-1")
	require.NoError(t, err)
	assert.Equal(t, contract.KindFramework, c.Kind)
	assert.Empty(t, c.ShiftID)
	assert.True(t, c.HourlyRate.Equal(w.HourlyRate))

	// THEN the roster row carries the signing timestamp
	stored, err := store.GetWorker(context.Background(), w.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.FrameworkSignedAt)
}

func TestSignFramework_ReplayReturnsExisting(t *testing.T) {
	gate, store := newGate(t)
	w := seedWorker(t, store, worker.StatusOther)

	first, err := gate.SignFramework(context.Background(), w, "sig-ref-1")
	require.NoError(t, err)

	// WHEN the same worker signs again
	second, err := gate.SignFramework(context.Background(), w, "sig-ref-other")
	require.NoError(t, err)

	// THEN no duplicate is created
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "sig-ref-1", second.SignatureRef)
}

func TestSignFramework_RequiresSignature(t *testing.T) {
	gate, store := newGate(t)
	w := seedWorker(t, store, worker.StatusOther)

	_, err := gate.SignFramework(context.Background(), w, "")
	assert.Error(t, err)
}

func TestSignShiftContract_FreezesTerms(t *testing.T) {
	gate, store := newGate(t)
	w := seedWorker(t, store, worker.StatusStudent)
	s, loc := seedShift(t, store, w.ID)

	c, err := gate.SignShiftContract(context.Background(), w, s, loc, "sig-ref-2")
	require.NoError(t, err)
	assert.Equal(t, contract.KindStudent, c.Kind)
	assert.Equal(t, s.ID, c.ShiftID)
	assert.Equal(t, "23:00", c.End)
	assert.Equal(t, loc.Name, c.LocationName)

	// WHEN the shift is edited after signing
	s.End = "23:30"
	require.NoError(t, store.UpdateShift(context.Background(), s))

	// THEN the snapshot keeps what was actually signed
	stored, err := store.GetShiftContract(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, "23:00", stored.End)
}

func TestSignShiftContract_ReplayReturnsExisting(t *testing.T) {
	gate, store := newGate(t)
	w := seedWorker(t, store, worker.StatusStudent)
	s, loc := seedShift(t, store, w.ID)

	first, err := gate.SignShiftContract(context.Background(), w, s, loc, "sig-ref-2")
	require.NoError(t, err)
	second, err := gate.SignShiftContract(context.Background(), w, s, loc, "sig-ref-3")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
}

func TestSignShiftContract_StudentsOnly(t *testing.T) {
	gate, store := newGate(t)
	w := seedWorker(t, store, worker.StatusPensioner)
	s, loc := seedShift(t, store, w.ID)

	_, err := gate.SignShiftContract(context.Background(), w, s, loc, "sig-ref-2")
	assert.Error(t, err)
}

// =============================================================================
// RENDERING
// =============================================================================

type stubRenderer struct {
	ref string
	err error
}

func (r stubRenderer) Render(_ context.Context, _ contract.Contract) (string, error) {
	return r.ref, r.err
}

func TestSignFramework_RendererFailureIsNonFatal(t *testing.T) {
	gate, store := newGate(t)
	gate.Renderer = stubRenderer{err: errors.New("pdf service down")}
	w := seedWorker(t, store, worker.StatusOther)

	// WHEN the PDF collaborator fails
	c, err := gate.SignFramework(context.Background(), w, "sig-ref-1")

	// THEN the signature record still stands, without a document
	require.NoError(t, err)
	assert.Empty(t, c.DocumentRef)
}

func TestSignFramework_RendererRefStored(t *testing.T) {
	gate, store := newGate(t)
	gate.Renderer = stubRenderer{ref: "doc-42"}
	w := seedWorker(t, store, worker.StatusOther)

	c, err := gate.SignFramework(context.Background(), w, "sig-ref-1")
	require.NoError(t, err)
	assert.Equal(t, "doc-42", c.DocumentRef)
}
