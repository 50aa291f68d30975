/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:

	Defines the JSON structures for API communication. These types decouple
	the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:

	All monetary amounts are serialized as decimal strings ("12.34"),
	never floats. shopspring/decimal marshals this way natively.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/horeca/flexi-engine/contract"
	"github.com/horeca/flexi-engine/dimona"
	"github.com/horeca/flexi-engine/payroll"
	"github.com/horeca/flexi-engine/shift"
	"github.com/horeca/flexi-engine/tracking"
	"github.com/horeca/flexi-engine/worker"
)

// =============================================================================
// WORKERS
// =============================================================================

type WorkerDTO struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Email           string          `json:"email"`
	NISS            string          `json:"niss"`
	IBAN            string          `json:"iban"`
	Status          string          `json:"status"`
	HourlyRate      decimal.Decimal `json:"hourly_rate"`
	YTDEarnings     decimal.Decimal `json:"ytd_earnings"`
	ProfileComplete bool            `json:"profile_complete"`
	FrameworkSigned bool            `json:"framework_signed"`
	Active          bool            `json:"active"`
}

type ProvisionWorkerRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	NISS       string `json:"niss"`
	IBAN       string `json:"iban"`
	Status     string `json:"status"`
	HourlyRate string `json:"hourly_rate"`
	PIN        string `json:"pin"`
}

type YTDCorrectionRequest struct {
	NewYTD string `json:"new_ytd"`
	Note   string `json:"note"`
}

func toWorkerDTO(w worker.Worker) WorkerDTO {
	return WorkerDTO{
		ID:              w.ID,
		Name:            w.Name,
		Email:           w.Email,
		NISS:            w.NISS,
		IBAN:            w.IBAN,
		Status:          string(w.Status),
		HourlyRate:      w.HourlyRate,
		YTDEarnings:     w.YTDEarnings,
		ProfileComplete: w.ProfileComplete,
		FrameworkSigned: w.FrameworkSignedAt != nil,
		Active:          w.Active,
	}
}

// =============================================================================
// LOCATIONS
// =============================================================================

type LocationDTO struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius_meters"`
	KioskToken   string  `json:"kiosk_token,omitempty"`
}

type CreateLocationRequest struct {
	Name         string  `json:"name"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius_meters"`
}

func toLocationDTO(loc shift.Location) LocationDTO {
	return LocationDTO{
		ID:           loc.ID,
		Name:         loc.Name,
		Latitude:     loc.Latitude,
		Longitude:    loc.Longitude,
		RadiusMeters: loc.RadiusMeters,
		KioskToken:   loc.KioskToken,
	}
}

// =============================================================================
// SHIFTS
// =============================================================================

type ShiftDTO struct {
	ID         string `json:"id"`
	LocationID string `json:"location_id"`
	WorkerID   string `json:"worker_id,omitempty"`
	Date       string `json:"date"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Role       string `json:"role"`
	Status     string `json:"status"`
}

type CreateShiftRequest struct {
	LocationID string `json:"location_id"`
	WorkerID   string `json:"worker_id,omitempty"`
	Date       string `json:"date"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Role       string `json:"role"`
}

type DaySpecRequest struct {
	Date  string `json:"date"`
	Start string `json:"start"`
	End   string `json:"end"`
}

type CreateShiftBatchRequest struct {
	LocationID string           `json:"location_id"`
	WorkerID   string           `json:"worker_id"`
	Role       string           `json:"role"`
	Days       []DaySpecRequest `json:"days"`
}

type RejectedDayDTO struct {
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

type ShiftBatchResponse struct {
	Created  []ShiftDTO       `json:"created"`
	Rejected []RejectedDayDTO `json:"rejected"`
}

type UpdateShiftRequest struct {
	Date  *string `json:"date,omitempty"`
	Start *string `json:"start,omitempty"`
	End   *string `json:"end,omitempty"`
	Role  *string `json:"role,omitempty"`
}

type CancelShiftRequest struct {
	Reason string `json:"reason"`
}

func toShiftDTO(s shift.Shift, status shift.Status) ShiftDTO {
	return ShiftDTO{
		ID:         s.ID,
		LocationID: s.LocationID,
		WorkerID:   s.WorkerID,
		Date:       s.Date.Format("2006-01-02"),
		Start:      s.Start,
		End:        s.End,
		Role:       s.Role,
		Status:     string(status),
	}
}

// =============================================================================
// TIME ENTRIES
// =============================================================================

type TimeEntryDTO struct {
	ID             string          `json:"id"`
	ShiftID        string          `json:"shift_id"`
	WorkerID       string          `json:"worker_id"`
	ClockIn        string          `json:"clock_in"`
	ClockOut       string          `json:"clock_out,omitempty"`
	GeoVerifiedIn  bool            `json:"geo_verified_in"`
	GeoVerifiedOut bool            `json:"geo_verified_out"`
	ActualHours    decimal.Decimal `json:"actual_hours"`
	Validated      bool            `json:"validated"`
	ValidatedBy    string          `json:"validated_by,omitempty"`
	CorrectionNote string          `json:"correction_note,omitempty"`
}

type ClockRequest struct {
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

type KioskClockRequest struct {
	KioskToken string   `json:"kiosk_token"`
	WorkerID   string   `json:"worker_id"`
	PIN        string   `json:"pin"`
	Latitude   *float64 `json:"latitude,omitempty"`
	Longitude  *float64 `json:"longitude,omitempty"`
}

type CorrectEntryRequest struct {
	Hours string `json:"hours"`
	Note  string `json:"note"`
}

func toTimeEntryDTO(e tracking.TimeEntry) TimeEntryDTO {
	dto := TimeEntryDTO{
		ID:             e.ID,
		ShiftID:        e.ShiftID,
		WorkerID:       e.WorkerID,
		ClockIn:        e.ClockIn.Format(time.RFC3339),
		GeoVerifiedIn:  e.ClockInGeoVerified,
		GeoVerifiedOut: e.ClockOutGeoVerified,
		ActualHours:    e.ActualHours,
		Validated:      e.Validated,
		ValidatedBy:    e.ValidatedBy,
		CorrectionNote: e.CorrectionNote,
	}
	if e.ClockOut != nil {
		dto.ClockOut = e.ClockOut.Format(time.RFC3339)
	}
	return dto
}

// =============================================================================
// CONTRACTS
// =============================================================================

type ContractDTO struct {
	ID           string          `json:"id"`
	Kind         string          `json:"kind"`
	WorkerID     string          `json:"worker_id"`
	ShiftID      string          `json:"shift_id,omitempty"`
	SignedAt     string          `json:"signed_at"`
	HourlyRate   decimal.Decimal `json:"hourly_rate"`
	Date         string          `json:"date,omitempty"`
	Start        string          `json:"start,omitempty"`
	End          string          `json:"end,omitempty"`
	LocationName string          `json:"location_name,omitempty"`
}

type SignContractRequest struct {
	WorkerID     string `json:"worker_id"`
	SignatureRef string `json:"signature_ref"`
}

func toContractDTO(c contract.Contract) ContractDTO {
	dto := ContractDTO{
		ID:           c.ID,
		Kind:         string(c.Kind),
		WorkerID:     c.WorkerID,
		ShiftID:      c.ShiftID,
		SignedAt:     c.SignedAt.Format(time.RFC3339),
		HourlyRate:   c.HourlyRate,
		Start:        c.Start,
		End:          c.End,
		LocationName: c.LocationName,
	}
	if !c.Date.IsZero() {
		dto.Date = c.Date.Format("2006-01-02")
	}
	return dto
}

// =============================================================================
// DECLARATIONS
// =============================================================================

type DeclarationDTO struct {
	ID             string `json:"id"`
	ShiftID        string `json:"shift_id"`
	WorkerID       string `json:"worker_id"`
	Type           string `json:"type"`
	Status         string `json:"status"`
	PeriodID       string `json:"period_id,omitempty"`
	RetractionOwed bool   `json:"retraction_owed"`
	CancelReason   string `json:"cancel_reason,omitempty"`
	LastError      string `json:"last_error,omitempty"`
}

type ManualReportRequest struct {
	Outcome  string `json:"outcome"`
	PeriodID string `json:"period_id"`
	Notes    string `json:"notes"`
}

func toDeclarationDTO(d dimona.Declaration) DeclarationDTO {
	return DeclarationDTO{
		ID:             d.ID,
		ShiftID:        d.ShiftID,
		WorkerID:       d.WorkerID,
		Type:           string(d.Type),
		Status:         string(d.Status),
		PeriodID:       d.PeriodID,
		RetractionOwed: d.RetractionOwed,
		CancelReason:   string(d.CancelReason),
		LastError:      d.LastError,
	}
}

// =============================================================================
// PAYROLL
// =============================================================================

type CostLineDTO struct {
	WorkerID             string          `json:"worker_id"`
	ShiftID              string          `json:"shift_id"`
	Date                 string          `json:"date"`
	Hours                decimal.Decimal `json:"hours"`
	BaseSalary           decimal.Decimal `json:"base_salary"`
	Premium              decimal.Decimal `json:"premium"`
	TotalSalary          decimal.Decimal `json:"total_salary"`
	EmployerContribution decimal.Decimal `json:"employer_contribution"`
	TotalCost            decimal.Decimal `json:"total_cost"`
}

type WorkerSummaryDTO struct {
	WorkerID             string          `json:"worker_id"`
	Shifts               int             `json:"shifts"`
	Hours                decimal.Decimal `json:"hours"`
	BaseSalary           decimal.Decimal `json:"base_salary"`
	Premium              decimal.Decimal `json:"premium"`
	TotalSalary          decimal.Decimal `json:"total_salary"`
	EmployerContribution decimal.Decimal `json:"employer_contribution"`
	TotalCost            decimal.Decimal `json:"total_cost"`
}

func toCostLineDTO(l payroll.CostLine) CostLineDTO {
	return CostLineDTO{
		WorkerID:             l.WorkerID,
		ShiftID:              l.ShiftID,
		Date:                 l.Date.Format("2006-01-02"),
		Hours:                l.Hours,
		BaseSalary:           l.BaseSalary,
		Premium:              l.Premium,
		TotalSalary:          l.TotalSalary,
		EmployerContribution: l.EmployerContribution,
		TotalCost:            l.TotalCost,
	}
}

// =============================================================================
// ERRORS
// =============================================================================

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`

	// Terms is set on the contract-required conflict so the kiosk can
	// render the consent screen directly from the rejection.
	Terms *contract.Terms `json:"terms,omitempty"`
}
