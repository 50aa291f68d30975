/*
timesheet.go - Clock events, kiosk flows, validation

The personal-device flow authenticates by actor headers; the kiosk flow
authenticates by location token + worker PIN and never reads the actor.
Validation and correction are manager-only and delegate to the tracking
engine's guards.
*/
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/horeca/flexi-engine/tracking"
)

func geoFrom(lat, lng *float64) *tracking.Geo {
	if lat == nil || lng == nil {
		return nil
	}
	return &tracking.Geo{Latitude: *lat, Longitude: *lng}
}

// ClockIn starts a time entry on the worker's own device.
func (h *Handler) ClockIn(w http.ResponseWriter, r *http.Request) {
	var req ClockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	entry, err := h.Tracking.ClockIn(r.Context(), actorFrom(r), chi.URLParam(r, "id"),
		geoFrom(req.Latitude, req.Longitude))
	countClock("clock_in", err)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTimeEntryDTO(*entry))
}

// ClockOut closes the worker's open entry.
func (h *Handler) ClockOut(w http.ResponseWriter, r *http.Request) {
	var req ClockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	entry, err := h.Tracking.ClockOut(r.Context(), actorFrom(r), chi.URLParam(r, "id"),
		geoFrom(req.Latitude, req.Longitude))
	countClock("clock_out", err)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTimeEntryDTO(*entry))
}

// KioskClockIn starts an entry from the shared tablet.
func (h *Handler) KioskClockIn(w http.ResponseWriter, r *http.Request) {
	var req KioskClockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	entry, err := h.Tracking.KioskClockIn(r.Context(), req.KioskToken, req.WorkerID, req.PIN,
		geoFrom(req.Latitude, req.Longitude))
	countClock("kiosk_clock_in", err)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTimeEntryDTO(*entry))
}

// KioskClockOut closes an entry from the shared tablet.
func (h *Handler) KioskClockOut(w http.ResponseWriter, r *http.Request) {
	var req KioskClockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	entry, err := h.Tracking.KioskClockOut(r.Context(), req.KioskToken, req.WorkerID, req.PIN,
		geoFrom(req.Latitude, req.Longitude))
	countClock("kiosk_clock_out", err)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTimeEntryDTO(*entry))
}

// ListEntries returns time entries filtered by query parameters.
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := tracking.EntryFilter{
		WorkerID: q.Get("worker_id"),
		ShiftID:  q.Get("shift_id"),
	}
	if v := q.Get("validated"); v != "" {
		validated := v == "true"
		f.Validated = &validated
	}
	if v := q.Get("from"); v != "" {
		from, err := parseDateParam(v, "from")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		f.From = from
	}
	if v := q.Get("to"); v != "" {
		to, err := parseDateParam(v, "to")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		f.To = to
	}

	actor := actorFrom(r)
	if !actor.IsManager() {
		f.WorkerID = actor.WorkerID
	}

	entries, err := h.Store.ListEntries(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list entries", err)
		return
	}
	dtos := make([]TimeEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toTimeEntryDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ValidateEntry approves a closed entry for payroll.
func (h *Handler) ValidateEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := h.Tracking.Validate(r.Context(), actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTimeEntryDTO(*entry))
}

// CorrectEntry overrides a validated entry's hours with a mandatory note.
func (h *Handler) CorrectEntry(w http.ResponseWriter, r *http.Request) {
	var req CorrectEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	hours, err := decimal.NewFromString(req.Hours)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid hours", err)
		return
	}

	entry, err := h.Tracking.Correct(r.Context(), actorFrom(r), chi.URLParam(r, "id"), hours, req.Note)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTimeEntryDTO(*entry))
}
