/*
shifts.go - Shift lifecycle endpoints

Create/propose/accept/refuse/cancel plus the multi-day batch proposal.
Responses always carry the effective status, so a past accepted shift
with a validated entry reads as "completed" without that state ever
being stored.
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/horeca/flexi-engine/dimona"
	"github.com/horeca/flexi-engine/identity"
	"github.com/horeca/flexi-engine/shift"
	"github.com/horeca/flexi-engine/tracking"
)

// CreateShift adds a draft shift.
func (h *Handler) CreateShift(w http.ResponseWriter, r *http.Request) {
	var req CreateShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	date, err := parseDateParam(req.Date, "date")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	s, err := h.Shifts.Create(r.Context(), actorFrom(r), shift.CreateInput{
		LocationID: req.LocationID,
		WorkerID:   req.WorkerID,
		Date:       date,
		Start:      req.Start,
		End:        req.End,
		Role:       req.Role,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	shiftEvents.WithLabelValues("created").Inc()
	writeJSON(w, http.StatusCreated, toShiftDTO(*s, s.Status))
}

// CreateShiftBatch proposes one shift per day. Conflicting days are
// rejected individually; the response reports both lists.
func (h *Handler) CreateShiftBatch(w http.ResponseWriter, r *http.Request) {
	var req CreateShiftBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	in := shift.CreateManyInput{
		LocationID: req.LocationID,
		WorkerID:   req.WorkerID,
		Role:       req.Role,
	}
	for _, d := range req.Days {
		date, err := parseDateParam(d.Date, "date")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		in.Days = append(in.Days, shift.DaySpec{Date: date, Start: d.Start, End: d.End})
	}

	result, err := h.Shifts.CreateMany(r.Context(), actorFrom(r), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := ShiftBatchResponse{Created: []ShiftDTO{}, Rejected: []RejectedDayDTO{}}
	for _, s := range result.Created {
		resp.Created = append(resp.Created, toShiftDTO(s, s.Status))
	}
	for _, rej := range result.Rejected {
		resp.Rejected = append(resp.Rejected, RejectedDayDTO{
			Date:   rej.Date.Format("2006-01-02"),
			Reason: rej.Reason,
		})
	}
	shiftEvents.WithLabelValues("created").Add(float64(len(result.Created)))
	writeJSON(w, http.StatusCreated, resp)
}

// GetShift returns one shift with its effective status.
func (h *Handler) GetShift(w http.ResponseWriter, r *http.Request) {
	s, err := h.Shifts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftDTO(*s, h.effectiveStatus(r, *s)))
}

// ListShifts returns shifts filtered by query parameters.
func (h *Handler) ListShifts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := shift.Filter{
		WorkerID:   q.Get("worker_id"),
		LocationID: q.Get("location_id"),
		Status:     shift.Status(q.Get("status")),
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

	// Flexi workers only see their own schedule.
	actor := actorFrom(r)
	if !actor.IsManager() {
		f.WorkerID = actor.WorkerID
	}

	shifts, err := h.Shifts.List(r.Context(), f)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list shifts", err)
		return
	}
	dtos := make([]ShiftDTO, len(shifts))
	for i, s := range shifts {
		dtos[i] = toShiftDTO(s, h.effectiveStatus(r, s))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// UpdateShift edits time or role on a non-cancelled shift.
func (h *Handler) UpdateShift(w http.ResponseWriter, r *http.Request) {
	var req UpdateShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	in := shift.UpdateInput{Start: req.Start, End: req.End, Role: req.Role}
	if req.Date != nil {
		date, err := parseDateParam(*req.Date, "date")
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error(), nil)
			return
		}
		in.Date = &date
	}

	s, err := h.Shifts.Update(r.Context(), actorFrom(r), chi.URLParam(r, "id"), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftDTO(*s, s.Status))
}

// DeleteShift removes a draft with no history.
func (h *Handler) DeleteShift(w http.ResponseWriter, r *http.Request) {
	if err := h.Shifts.Delete(r.Context(), actorFrom(r), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ProposeShift sends a draft to its worker for response.
func (h *Handler) ProposeShift(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "proposed", h.Shifts.Propose)
}

// AcceptShift records the worker's acceptance and queues the Dimona
// declaration.
func (h *Handler) AcceptShift(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "accepted", h.Shifts.Accept)
}

// RefuseShift records the worker's refusal.
func (h *Handler) RefuseShift(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "refused", h.Shifts.Refuse)
}

// CancelShift cancels with a reason and runs the cleanup cascade.
func (h *Handler) CancelShift(w http.ResponseWriter, r *http.Request) {
	var req CancelShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	s, err := h.Shifts.Cancel(r.Context(), actorFrom(r), chi.URLParam(r, "id"),
		dimona.CancelReason(req.Reason))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	shiftEvents.WithLabelValues("cancelled").Inc()
	writeJSON(w, http.StatusOK, toShiftDTO(*s, s.Status))
}

// transition runs one lifecycle move and counts it.
func (h *Handler) transition(w http.ResponseWriter, r *http.Request, kind string,
	fn func(context.Context, identity.Actor, string) (*shift.Shift, error)) {

	s, err := fn(r.Context(), actorFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	shiftEvents.WithLabelValues(kind).Inc()
	writeJSON(w, http.StatusOK, toShiftDTO(*s, s.Status))
}

// effectiveStatus derives "completed" for read models: accepted, date
// passed, and at least one validated entry.
func (h *Handler) effectiveStatus(r *http.Request, s shift.Shift) shift.Status {
	if s.Status != shift.StatusAccepted {
		return s.Status
	}
	validated := true
	entries, err := h.Store.ListEntries(r.Context(), tracking.EntryFilter{
		ShiftID:   s.ID,
		Validated: &validated,
	})
	if err != nil {
		return s.Status
	}
	return s.EffectiveStatus(time.Now(), len(entries) > 0)
}
