/*
Package payroll computes what a flexi-job shift costs the employer.

PURPOSE:

	Single source of truth for all money arithmetic in the system. Every
	cost display (planning preview, validation table, period export) goes
	through Calculate; nothing else is allowed to reimplement it.

KEY CONCEPTS IN THIS FILE (cost.go):
  - Breakdown: the full cost decomposition for one worked shift
  - Calculate: (hours, rate, premium day) -> Breakdown
  - Hours:     ("17:00", "21:30") -> 4.5, with overnight wrap

RULES (CP 302 flexi-jobs):

	baseSalary   = hours * hourlyRate
	premium      = premium day ? min(hours * 2.00, 12.00) : 0
	totalSalary  = baseSalary + premium
	contribution = totalSalary * 28% (special flexi employer contribution)
	totalCost    = totalSalary + contribution
	All amounts rounded half-up to the cent.

PRECISION:

	Uses decimal.Decimal throughout. Monetary arithmetic on float64 is how
	payroll systems end up a cent short in an audit.

SEE ALSO:
  - calendar/calendar.go: decides what a premium day is
  - payroll/aggregate.go: turns validated time entries into cost lines
*/
package payroll

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CONSTANTS - CP 302 flexi-job rates
// =============================================================================

var (
	// PremiumPerHour is the Sunday/holiday surcharge per worked hour.
	PremiumPerHour = decimal.RequireFromString("2.00")

	// PremiumDailyCap bounds the surcharge for a single day.
	PremiumDailyCap = decimal.RequireFromString("12.00")

	// ContributionRate is the special employer contribution on flexi wages.
	ContributionRate = decimal.RequireFromString("0.28")

	// ComparisonContributionRate approximates the all-in overhead of a
	// regular CP 302 employee (ONSS, holiday pay, end-of-year premium).
	// Used only for the savings comparison shown to managers.
	ComparisonContributionRate = decimal.RequireFromString("0.50")
)

var (
	ErrNegativeHours = errors.New("hours must not be negative")
	ErrInvalidRate   = errors.New("hourly rate must be positive")
)

// =============================================================================
// BREAKDOWN - Cost decomposition for one worked shift
// =============================================================================

type Breakdown struct {
	Hours                decimal.Decimal
	BaseSalary           decimal.Decimal
	Premium              decimal.Decimal
	TotalSalary          decimal.Decimal
	EmployerContribution decimal.Decimal
	TotalCost            decimal.Decimal

	// What the same hours would cost with a regular employee, and the
	// difference. Informational only; never exported to payroll.
	ComparisonBaseline decimal.Decimal
	Savings            decimal.Decimal
}

// Calculate produces the cost breakdown for worked hours at a given rate.
// Deterministic and side-effect free.
func Calculate(hours, hourlyRate decimal.Decimal, premiumDay bool) (Breakdown, error) {
	if hours.IsNegative() {
		return Breakdown{}, ErrNegativeHours
	}
	if !hourlyRate.IsPositive() {
		return Breakdown{}, ErrInvalidRate
	}

	base := hours.Mul(hourlyRate).Round(2)

	premium := decimal.Zero
	if premiumDay {
		premium = decimal.Min(hours.Mul(PremiumPerHour), PremiumDailyCap).Round(2)
	}

	totalSalary := base.Add(premium)
	contribution := totalSalary.Mul(ContributionRate).Round(2)
	totalCost := totalSalary.Add(contribution)

	baseline := base.Mul(one.Add(ComparisonContributionRate)).Round(2)

	return Breakdown{
		Hours:                hours.Round(2),
		BaseSalary:           base,
		Premium:              premium,
		TotalSalary:          totalSalary,
		EmployerContribution: contribution,
		TotalCost:            totalCost,
		ComparisonBaseline:   baseline,
		Savings:              baseline.Sub(totalCost),
	}, nil
}

var one = decimal.NewFromInt(1)

// =============================================================================
// HOURS - Duration between two times of day
// =============================================================================

// Hours returns the duration in hours between two "HH:MM" times of day,
// rounded to 2 decimals. An end before the start is treated as an
// overnight shift and wraps by 24 hours.
func Hours(start, end string) (decimal.Decimal, error) {
	s, err := minutesOfDay(start)
	if err != nil {
		return decimal.Zero, err
	}
	e, err := minutesOfDay(end)
	if err != nil {
		return decimal.Zero, err
	}

	minutes := e - s
	if minutes < 0 {
		minutes += 24 * 60
	}

	return decimal.NewFromInt(int64(minutes)).Div(decimal.NewFromInt(60)).Round(2), nil
}

func minutesOfDay(hhmm string) (int, error) {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", hhmm)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid hour in %q", hhmm)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid minute in %q", hhmm)
	}
	return h*60 + m, nil
}
