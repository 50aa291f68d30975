/*
Package worker manages the flexi-job worker roster.

PURPOSE:

	Workers are the people who pick up shifts: students, pensioners, people
	with a main job elsewhere. This package owns their records, their
	provisioning (identity + profile row created together or not at all),
	and the rules around deactivation and year-to-date earnings.

KEY CONCEPTS IN THIS FILE (worker.go):
  - Worker: the roster record, including the CP 302 hourly rate
  - Status: the flexi-job eligibility category of the worker
  - Store:  persistence interface implemented by store/sqlite

YTD EARNINGS:

	YTDEarnings is written by exactly one path: payroll period
	regeneration. The only other mutation is an explicit admin correction
	(CorrectYTD), which records who and why. Nothing else may touch it.

SEE ALSO:
  - worker/service.go: provisioning with compensating rollback
  - payroll/aggregate.go: the sole regular writer of YTD
*/
package worker

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// STATUS - Flexi-job eligibility category
// =============================================================================

type Status string

const (
	StatusStudent   Status = "student"
	StatusPensioner Status = "pensioner"
	StatusEmployee  Status = "employee"
	StatusOther     Status = "other"
)

func (s Status) Valid() bool {
	switch s {
	case StatusStudent, StatusPensioner, StatusEmployee, StatusOther:
		return true
	}
	return false
}

// =============================================================================
// WORKER
// =============================================================================

type Worker struct {
	ID         string
	IdentityID string // id at the external identity provider
	Name       string
	Email      string
	NISS       string // Belgian national registry number, opaque here
	IBAN       string
	Status     Status
	HourlyRate decimal.Decimal

	// Accumulated gross salary for the current calendar year. Written
	// only by payroll aggregation and CorrectYTD.
	YTDEarnings decimal.Decimal

	ProfileComplete   bool
	FrameworkSignedAt *time.Time
	Active            bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	ErrNotFound      = errors.New("worker not found")
	ErrInactive      = errors.New("worker is deactivated")
	ErrInvalidStatus = errors.New("invalid worker status")
	ErrInvalidRate   = errors.New("hourly rate must be positive")
	ErrInvalidPIN    = errors.New("pin must be exactly 4 digits")
)
