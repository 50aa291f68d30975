/*
aggregate.go - Cost lines derived from validated time entries

PURPOSE:

	After a manager validates worked hours, those hours become money. This
	file turns validated time entries for a period into immutable CostLine
	rows and keeps worker year-to-date earnings in step.

OWNERSHIP:

	The Aggregator is the ONLY writer of cost lines and of worker YTD
	earnings. Validation, clock-out, and the API never touch either
	directly. Corrections happen by regenerating a whole period.

REGENERATION:

	RegeneratePeriod recomputes every cost line in [from, to] from scratch
	and replaces the stored ones atomically, adjusting each worker's YTD by
	the difference between the new and old totals. Running it twice is a
	no-op the second time.

SEE ALSO:
  - cost.go: the arithmetic
  - tracking/validate.go: where entries become validated
*/
package payroll

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// COST LINE - Immutable derived monetary record
// =============================================================================

type CostLine struct {
	ID                   string
	WorkerID             string
	ShiftID              string
	EntryID              string
	Date                 time.Time
	Hours                decimal.Decimal
	BaseSalary           decimal.Decimal
	Premium              decimal.Decimal
	TotalSalary          decimal.Decimal
	EmployerContribution decimal.Decimal
	TotalCost            decimal.Decimal
	CreatedAt            time.Time
}

// ValidatedEntry is the read model the aggregator consumes: a validated
// time entry joined with its shift and worker.
type ValidatedEntry struct {
	EntryID    string
	ShiftID    string
	WorkerID   string
	WorkerName string
	Date       time.Time
	Hours      decimal.Decimal
	HourlyRate decimal.Decimal
}

// PremiumOracle answers whether a date carries the Sunday/holiday premium.
type PremiumOracle interface {
	IsPremiumDay(date time.Time) bool
}

// Store is the persistence the aggregator needs. ReplacePeriod must apply
// the delete, the inserts, and the YTD adjustments in one transaction.
type Store interface {
	ListValidatedEntries(ctx context.Context, from, to time.Time) ([]ValidatedEntry, error)
	CostLinesForPeriod(ctx context.Context, from, to time.Time) ([]CostLine, error)
	ReplacePeriod(ctx context.Context, from, to time.Time, lines []CostLine, ytdDelta map[string]decimal.Decimal) error
}

// =============================================================================
// AGGREGATOR
// =============================================================================

type Aggregator struct {
	Store  Store
	Oracle PremiumOracle
}

// RegeneratePeriod rebuilds all cost lines in [from, to] from the
// validated time entries and returns the new lines.
func (a *Aggregator) RegeneratePeriod(ctx context.Context, from, to time.Time) ([]CostLine, error) {
	entries, err := a.Store.ListValidatedEntries(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load validated entries: %w", err)
	}

	existing, err := a.Store.CostLinesForPeriod(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to load existing cost lines: %w", err)
	}

	now := time.Now().UTC()
	lines := make([]CostLine, 0, len(entries))
	for _, e := range entries {
		breakdown, err := Calculate(e.Hours, e.HourlyRate, a.Oracle.IsPremiumDay(e.Date))
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", e.EntryID, err)
		}
		lines = append(lines, CostLine{
			ID:                   uuid.NewString(),
			WorkerID:             e.WorkerID,
			ShiftID:              e.ShiftID,
			EntryID:              e.EntryID,
			Date:                 e.Date,
			Hours:                breakdown.Hours,
			BaseSalary:           breakdown.BaseSalary,
			Premium:              breakdown.Premium,
			TotalSalary:          breakdown.TotalSalary,
			EmployerContribution: breakdown.EmployerContribution,
			TotalCost:            breakdown.TotalCost,
			CreatedAt:            now,
		})
	}

	// YTD moves by the difference in gross salary per worker, so a
	// regeneration never double-counts.
	delta := make(map[string]decimal.Decimal)
	for _, l := range lines {
		delta[l.WorkerID] = delta[l.WorkerID].Add(l.TotalSalary)
	}
	for _, l := range existing {
		delta[l.WorkerID] = delta[l.WorkerID].Sub(l.TotalSalary)
	}
	for id, d := range delta {
		if d.IsZero() {
			delete(delta, id)
		}
	}

	if err := a.Store.ReplacePeriod(ctx, from, to, lines, delta); err != nil {
		return nil, fmt.Errorf("failed to replace period: %w", err)
	}

	return lines, nil
}

// =============================================================================
// SUMMARIES - Per-worker period totals for export
// =============================================================================

type WorkerSummary struct {
	WorkerID             string
	Shifts               int
	Hours                decimal.Decimal
	BaseSalary           decimal.Decimal
	Premium              decimal.Decimal
	TotalSalary          decimal.Decimal
	EmployerContribution decimal.Decimal
	TotalCost            decimal.Decimal
}

// Summarize folds cost lines into per-worker totals, ordered by worker id.
func Summarize(lines []CostLine) []WorkerSummary {
	byWorker := make(map[string]*WorkerSummary)
	var order []string
	for _, l := range lines {
		s, ok := byWorker[l.WorkerID]
		if !ok {
			s = &WorkerSummary{WorkerID: l.WorkerID}
			byWorker[l.WorkerID] = s
			order = append(order, l.WorkerID)
		}
		s.Shifts++
		s.Hours = s.Hours.Add(l.Hours)
		s.BaseSalary = s.BaseSalary.Add(l.BaseSalary)
		s.Premium = s.Premium.Add(l.Premium)
		s.TotalSalary = s.TotalSalary.Add(l.TotalSalary)
		s.EmployerContribution = s.EmployerContribution.Add(l.EmployerContribution)
		s.TotalCost = s.TotalCost.Add(l.TotalCost)
	}

	for i := 1; i < len(order); i++ {
		for j := i; j > 0 && order[j] < order[j-1]; j-- {
			order[j], order[j-1] = order[j-1], order[j]
		}
	}

	out := make([]WorkerSummary, 0, len(order))
	for _, id := range order {
		out = append(out, *byWorker[id])
	}
	return out
}
