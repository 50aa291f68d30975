/*
payroll.go - Cost reports, CSV export, Dimona queue, holiday calendar

Period endpoints take from/to as YYYY-MM-DD query parameters, both
inclusive. The CSV export mirrors the social secretariat's intake
format: one row per cost line, amounts as decimal strings.
*/
package api

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/horeca/flexi-engine/calendar"
	"github.com/horeca/flexi-engine/dimona"
	"github.com/horeca/flexi-engine/payroll"
)

func periodParams(r *http.Request) (time.Time, time.Time, error) {
	from, err := parseDateParam(r.URL.Query().Get("from"), "from")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parseDateParam(r.URL.Query().Get("to"), "to")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("to precedes from")
	}
	return from, to, nil
}

// RegeneratePayroll recomputes the period's cost lines from validated
// entries and adjusts YTD counters by the delta.
func (h *Handler) RegeneratePayroll(w http.ResponseWriter, r *http.Request) {
	if !actorFrom(r).IsManager() {
		writeError(w, http.StatusForbidden, "manager role required", nil)
		return
	}
	from, to, err := periodParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	lines, err := h.Payroll.RegeneratePeriod(r.Context(), from, to)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]CostLineDTO, len(lines))
	for i, l := range lines {
		dtos[i] = toCostLineDTO(l)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// PayrollSummary aggregates the period's cost lines per worker.
func (h *Handler) PayrollSummary(w http.ResponseWriter, r *http.Request) {
	if !actorFrom(r).IsManager() {
		writeError(w, http.StatusForbidden, "manager role required", nil)
		return
	}
	from, to, err := periodParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	lines, err := h.Store.CostLinesForPeriod(r.Context(), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load cost lines", err)
		return
	}

	summaries := payroll.Summarize(lines)
	dtos := make([]WorkerSummaryDTO, len(summaries))
	for i, s := range summaries {
		dtos[i] = WorkerSummaryDTO{
			WorkerID:             s.WorkerID,
			Shifts:               s.Shifts,
			Hours:                s.Hours,
			BaseSalary:           s.BaseSalary,
			Premium:              s.Premium,
			TotalSalary:          s.TotalSalary,
			EmployerContribution: s.EmployerContribution,
			TotalCost:            s.TotalCost,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ExportPayrollCSV streams the period's cost lines as CSV.
func (h *Handler) ExportPayrollCSV(w http.ResponseWriter, r *http.Request) {
	if !actorFrom(r).IsManager() {
		writeError(w, http.StatusForbidden, "manager role required", nil)
		return
	}
	from, to, err := periodParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	lines, err := h.Store.CostLinesForPeriod(r.Context(), from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load cost lines", err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="payroll_%s_%s.csv"`,
			from.Format("2006-01-02"), to.Format("2006-01-02")))

	cw := csv.NewWriter(w)
	cw.Write([]string{"worker_id", "shift_id", "date", "hours", "base_salary",
		"premium", "total_salary", "employer_contribution", "total_cost"})
	for _, l := range lines {
		cw.Write([]string{
			l.WorkerID, l.ShiftID, l.Date.Format("2006-01-02"),
			l.Hours.String(), l.BaseSalary.String(), l.Premium.String(),
			l.TotalSalary.String(), l.EmployerContribution.String(),
			l.TotalCost.String(),
		})
	}
	cw.Flush()
}

// =============================================================================
// DIMONA QUEUE
// =============================================================================

// ListDeclarations returns the queue, optionally filtered by status.
func (h *Handler) ListDeclarations(w http.ResponseWriter, r *http.Request) {
	if !actorFrom(r).IsManager() {
		writeError(w, http.StatusForbidden, "manager role required", nil)
		return
	}

	declarations, err := h.Store.ListDeclarations(r.Context(),
		dimona.Status(r.URL.Query().Get("status")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list declarations", err)
		return
	}
	dtos := make([]DeclarationDTO, len(declarations))
	for i, d := range declarations {
		dtos[i] = toDeclarationDTO(d)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// PushDeclaration sends one declaration to the ONSS.
func (h *Handler) PushDeclaration(w http.ResponseWriter, r *http.Request) {
	if !actorFrom(r).IsManager() {
		writeError(w, http.StatusForbidden, "manager role required", nil)
		return
	}

	d, err := h.Dimona.Push(r.Context(), chi.URLParam(r, "id"))
	if d != nil {
		declarationPushes.WithLabelValues(string(d.Status)).Inc()
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDeclarationDTO(*d))
}

// ManualReport records a portal-entered declaration's outcome.
func (h *Handler) ManualReport(w http.ResponseWriter, r *http.Request) {
	if !actorFrom(r).IsManager() {
		writeError(w, http.StatusForbidden, "manager role required", nil)
		return
	}

	var req ManualReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	outcome := dimona.Status(req.Outcome)
	if outcome != dimona.StatusOK && outcome != dimona.StatusNOK {
		writeError(w, http.StatusBadRequest, "outcome must be ok or nok", nil)
		return
	}

	d, err := h.Dimona.ManualReport(r.Context(), chi.URLParam(r, "id"), outcome, req.PeriodID, req.Notes)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDeclarationDTO(*d))
}

// PushReady pushes every ready declaration.
func (h *Handler) PushReady(w http.ResponseWriter, r *http.Request) {
	h.batch(w, r, h.Dimona.PushReady)
}

// RetryErrored retries declarations stuck in error.
func (h *Handler) RetryErrored(w http.ResponseWriter, r *http.Request) {
	h.batch(w, r, h.Dimona.RetryErrored)
}

// RetryRetractions retries cancellations the ONSS has not yet accepted.
func (h *Handler) RetryRetractions(w http.ResponseWriter, r *http.Request) {
	h.batch(w, r, h.Dimona.RetryRetractions)
}

func (h *Handler) batch(w http.ResponseWriter, r *http.Request,
	fn func(context.Context) (dimona.BatchResult, error)) {

	if !actorFrom(r).IsManager() {
		writeError(w, http.StatusForbidden, "manager role required", nil)
		return
	}
	result, err := fn(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{
		"succeeded": result.Succeeded,
		"failed":    result.Failed,
	})
}

// =============================================================================
// CALENDAR
// =============================================================================

// ListHolidays returns the Belgian public holidays for a year.
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil || year < 1900 || year > 2200 {
		writeError(w, http.StatusBadRequest, "invalid year", nil)
		return
	}

	dates := calendar.Holidays(year)
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format("2006-01-02")
	}
	writeJSON(w, http.StatusOK, out)
}
