/*
handlers.go - HTTP API handlers for the flexi workforce engine

PURPOSE:

	Exposes the shift, tracking, contract and payroll engines via REST.
	Handles HTTP request/response, JSON serialization, and delegates to
	domain logic. No business rules live here.

ARCHITECTURE:

	Handler struct holds all dependencies:
	- Workers/Shifts/Tracking/Gate/Dimona/Payroll: domain services
	- Calendar: Belgian public holiday oracle
	- Store: direct reads for listings that have no domain behavior

ERROR HANDLING:

	Domain errors map to HTTP status via mapError:
	- 400: validation, malformed input
	- 401: wrong PIN, unknown kiosk token
	- 403: role/ownership violations, geofence rejection
	- 404: unknown worker/shift/entry/declaration
	- 409: state conflicts, double bookings, contract gate
	- 423: PIN lockout
	- 502: ONSS collaborator failures
	- 500: everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - shifts.go, timesheet.go, payroll.go: Handler implementations
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/horeca/flexi-engine/calendar"
	"github.com/horeca/flexi-engine/contract"
	"github.com/horeca/flexi-engine/dimona"
	"github.com/horeca/flexi-engine/payroll"
	"github.com/horeca/flexi-engine/pin"
	"github.com/horeca/flexi-engine/shift"
	"github.com/horeca/flexi-engine/store/sqlite"
	"github.com/horeca/flexi-engine/tracking"
	"github.com/horeca/flexi-engine/worker"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Workers  *worker.Service
	Shifts   *shift.Service
	Tracking *tracking.Engine
	Gate     *contract.Gate
	Dimona   *dimona.Manager
	Payroll  *payroll.Aggregator
	Calendar *calendar.Oracle

	// Store backs plain listings that carry no domain behavior.
	Store *sqlite.Store

	// DefaultGeofenceRadius applies to locations created without an
	// explicit radius.
	DefaultGeofenceRadius float64
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// WORKER HANDLERS
// =============================================================================

// ProvisionWorker creates a worker, their identity and their PIN.
func (h *Handler) ProvisionWorker(w http.ResponseWriter, r *http.Request) {
	if !actorFrom(r).IsManager() {
		writeError(w, http.StatusForbidden, "manager role required", nil)
		return
	}

	var req ProvisionWorkerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	rate, err := decimal.NewFromString(req.HourlyRate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid hourly_rate", err)
		return
	}

	created, err := h.Workers.Provision(r.Context(), worker.ProvisionInput{
		Name:       req.Name,
		Email:      req.Email,
		NISS:       req.NISS,
		IBAN:       req.IBAN,
		Status:     worker.Status(req.Status),
		HourlyRate: rate,
		PIN:        req.PIN,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWorkerDTO(*created))
}

// ListWorkers returns all workers.
func (h *Handler) ListWorkers(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	workers, err := h.Store.ListWorkers(r.Context(), activeOnly)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list workers", err)
		return
	}
	dtos := make([]WorkerDTO, len(workers))
	for i, wk := range workers {
		dtos[i] = toWorkerDTO(wk)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetWorker returns a single worker.
func (h *Handler) GetWorker(w http.ResponseWriter, r *http.Request) {
	wk, err := h.Store.GetWorker(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get worker", err)
		return
	}
	if wk == nil {
		writeError(w, http.StatusNotFound, "worker not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toWorkerDTO(*wk))
}

// DeactivateWorker soft-deletes a worker. History stays.
func (h *Handler) DeactivateWorker(w http.ResponseWriter, r *http.Request) {
	if !actorFrom(r).IsManager() {
		writeError(w, http.StatusForbidden, "manager role required", nil)
		return
	}
	if err := h.Workers.Deactivate(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CorrectWorkerYTD applies an audited manual override of the year-to-date
// earnings counter.
func (h *Handler) CorrectWorkerYTD(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	if !actor.IsManager() {
		writeError(w, http.StatusForbidden, "manager role required", nil)
		return
	}

	var req YTDCorrectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	newYTD, err := decimal.NewFromString(req.NewYTD)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid new_ytd", err)
		return
	}
	if req.Note == "" {
		writeError(w, http.StatusBadRequest, "note is required", nil)
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.Workers.CorrectYTD(r.Context(), id, newYTD, actor.UserID, req.Note); err != nil {
		writeDomainError(w, err)
		return
	}
	wk, err := h.Store.GetWorker(r.Context(), id)
	if err != nil || wk == nil {
		writeError(w, http.StatusInternalServerError, "failed to reload worker", err)
		return
	}
	writeJSON(w, http.StatusOK, toWorkerDTO(*wk))
}

// =============================================================================
// LOCATION HANDLERS
// =============================================================================

// CreateLocation registers a venue with its geofence and kiosk token.
func (h *Handler) CreateLocation(w http.ResponseWriter, r *http.Request) {
	if !actorFrom(r).IsManager() {
		writeError(w, http.StatusForbidden, "manager role required", nil)
		return
	}

	var req CreateLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	radius := req.RadiusMeters
	if radius == 0 {
		radius = h.DefaultGeofenceRadius
	}
	loc := shift.NewLocation(req.Name, req.Latitude, req.Longitude, radius)
	if err := h.Store.CreateLocation(r.Context(), loc); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create location", err)
		return
	}
	writeJSON(w, http.StatusCreated, toLocationDTO(loc))
}

// ListLocations returns all venues.
func (h *Handler) ListLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := h.Store.ListLocations(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list locations", err)
		return
	}
	dtos := make([]LocationDTO, len(locations))
	for i, loc := range locations {
		dtos[i] = toLocationDTO(loc)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetLocation returns a single venue.
func (h *Handler) GetLocation(w http.ResponseWriter, r *http.Request) {
	loc, err := h.Store.GetLocation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get location", err)
		return
	}
	if loc == nil {
		writeError(w, http.StatusNotFound, "location not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toLocationDTO(*loc))
}

// =============================================================================
// CONTRACT HANDLERS
// =============================================================================

// SignFramework records the worker's framework contract signature.
func (h *Handler) SignFramework(w http.ResponseWriter, r *http.Request) {
	var req SignContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	actor := actorFrom(r)
	if !actor.IsManager() && !actor.Owns(req.WorkerID) {
		writeError(w, http.StatusForbidden, "cannot sign for another worker", nil)
		return
	}

	wk, err := h.Store.GetWorker(r.Context(), req.WorkerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get worker", err)
		return
	}
	if wk == nil {
		writeError(w, http.StatusNotFound, "worker not found", nil)
		return
	}

	c, err := h.Gate.SignFramework(r.Context(), *wk, req.SignatureRef)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toContractDTO(*c))
}

// SignShiftContract records a student's per-shift contract signature.
func (h *Handler) SignShiftContract(w http.ResponseWriter, r *http.Request) {
	var req SignContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	actor := actorFrom(r)
	if !actor.IsManager() && !actor.Owns(req.WorkerID) {
		writeError(w, http.StatusForbidden, "cannot sign for another worker", nil)
		return
	}

	ctx := r.Context()
	wk, err := h.Store.GetWorker(ctx, req.WorkerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get worker", err)
		return
	}
	if wk == nil {
		writeError(w, http.StatusNotFound, "worker not found", nil)
		return
	}
	s, err := h.Shifts.Get(ctx, chi.URLParam(r, "shiftID"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	loc, err := h.Store.GetLocation(ctx, s.LocationID)
	if err != nil || loc == nil {
		writeError(w, http.StatusInternalServerError, "failed to get location", err)
		return
	}

	c, err := h.Gate.SignShiftContract(ctx, *wk, *s, *loc, req.SignatureRef)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toContractDTO(*c))
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError translates a domain error into an HTTP response.
func writeDomainError(w http.ResponseWriter, err error) {
	var (
		validationErr *shift.ValidationError
		stateErr      *shift.StateError
		conflictErr   *shift.ConflictError
		geofenceErr   *tracking.GeofenceError
		lockedErr     *pin.LockedError
		wrongPINErr   *pin.WrongPINError
		contractErr   *contract.ShiftContractRequiredError
		transitionErr *dimona.TransitionError
		collabErr     *dimona.CollaboratorError
	)

	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Error(), nil)
	case errors.Is(err, worker.ErrInvalidStatus),
		errors.Is(err, worker.ErrInvalidRate),
		errors.Is(err, worker.ErrInvalidPIN),
		errors.Is(err, payroll.ErrNegativeHours),
		errors.Is(err, tracking.ErrNotValidated):
		writeError(w, http.StatusBadRequest, err.Error(), nil)

	case errors.As(err, &wrongPINErr):
		writeError(w, http.StatusUnauthorized, wrongPINErr.Error(), nil)
	case errors.Is(err, pin.ErrInvalidPIN), errors.Is(err, tracking.ErrKioskToken):
		writeError(w, http.StatusUnauthorized, err.Error(), nil)

	case errors.Is(err, shift.ErrNotManager),
		errors.Is(err, shift.ErrNotAssignee),
		errors.Is(err, tracking.ErrNotYourShift):
		writeError(w, http.StatusForbidden, err.Error(), nil)
	case errors.As(err, &geofenceErr):
		writeError(w, http.StatusForbidden, geofenceErr.Error(), nil)

	case errors.Is(err, shift.ErrNotFound),
		errors.Is(err, shift.ErrLocationNotFound),
		errors.Is(err, worker.ErrNotFound),
		errors.Is(err, dimona.ErrNotFound),
		errors.Is(err, tracking.ErrEntryNotFound),
		errors.Is(err, tracking.ErrNoShiftToday),
		errors.Is(err, tracking.ErrNoOpenEntry):
		writeError(w, http.StatusNotFound, err.Error(), nil)

	case errors.As(err, &contractErr):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error: contractErr.Error(),
			Terms: &contractErr.Terms,
		})
	case errors.As(err, &stateErr), errors.As(err, &conflictErr), errors.As(err, &transitionErr):
		writeError(w, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, tracking.ErrAlreadyClockedIn),
		errors.Is(err, tracking.ErrAlreadyValidated),
		errors.Is(err, tracking.ErrShiftNotAccepted),
		errors.Is(err, tracking.ErrEntryOpen),
		errors.Is(err, shift.ErrHasHistory),
		errors.Is(err, shift.ErrNoWorkerAssigned),
		errors.Is(err, worker.ErrInactive),
		errors.Is(err, contract.ErrFrameworkRequired),
		errors.Is(err, contract.ErrDuplicate):
		writeError(w, http.StatusConflict, err.Error(), nil)

	case errors.As(err, &lockedErr):
		writeError(w, http.StatusLocked, lockedErr.Error(), nil)

	case errors.As(err, &collabErr), errors.Is(err, dimona.ErrManualOnly):
		writeError(w, http.StatusBadGateway, err.Error(), nil)

	default:
		writeError(w, http.StatusInternalServerError, "internal error", err)
	}
}

func parseDateParam(value, name string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s (use YYYY-MM-DD)", name)
	}
	return t, nil
}
