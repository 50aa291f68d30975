/*
timesheet.go - Time entries and payroll cost lines

Implements tracking.Store and payroll.Store. The single-open-entry
invariant is enforced here by idx_open_entry: a second concurrent
clock-in loses the index race and surfaces as ErrAlreadyClockedIn.
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/horeca/flexi-engine/payroll"
	"github.com/horeca/flexi-engine/tracking"
)

// =============================================================================
// TIME ENTRIES (tracking.Store interface)
// =============================================================================

const entryColumns = `id, shift_id, worker_id,
	clock_in, clock_in_lat, clock_in_lng, clock_in_geo_verified,
	clock_out, clock_out_lat, clock_out_lng, clock_out_geo_verified,
	actual_hours, validated, validated_by, validated_at, correction_note,
	created_at, updated_at`

func (s *Store) InsertEntry(ctx context.Context, e tracking.TimeEntry) error {
	defer s.lock()()

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO time_entries
		(id, shift_id, worker_id,
		 clock_in, clock_in_lat, clock_in_lng, clock_in_geo_verified,
		 clock_out, clock_out_lat, clock_out_lng, clock_out_geo_verified,
		 actual_hours, validated, validated_by, validated_at, correction_note,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.ShiftID, e.WorkerID,
		formatTime(e.ClockIn), nullFloat(e.ClockInLatitude), nullFloat(e.ClockInLongitude), e.ClockInGeoVerified,
		nullTime(e.ClockOut), nullFloat(e.ClockOutLatitude), nullFloat(e.ClockOutLongitude), e.ClockOutGeoVerified,
		e.ActualHours.String(), e.Validated, e.ValidatedBy, nullTime(e.ValidatedAt), e.CorrectionNote,
		formatTime(e.CreatedAt), formatTime(e.UpdatedAt))
	if err != nil {
		// The driver reports the violated columns, not the index name.
		if isUniqueViolation(err, "time_entries.shift_id") {
			return tracking.ErrAlreadyClockedIn
		}
		return fmt.Errorf("failed to insert time entry: %w", err)
	}
	return nil
}

func (s *Store) GetEntry(ctx context.Context, id string) (*tracking.TimeEntry, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM time_entries WHERE id = ?`, id)
	return scanEntryFields(row)
}

func (s *Store) GetOpenEntry(ctx context.Context, shiftID, workerID string) (*tracking.TimeEntry, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+entryColumns+` FROM time_entries
		WHERE shift_id = ? AND worker_id = ? AND clock_out IS NULL`,
		shiftID, workerID)
	return scanEntryFields(row)
}

func (s *Store) GetOpenEntryForWorker(ctx context.Context, workerID string) (*tracking.TimeEntry, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+entryColumns+` FROM time_entries
		WHERE worker_id = ? AND clock_out IS NULL
		ORDER BY clock_in DESC LIMIT 1`,
		workerID)
	return scanEntryFields(row)
}

func (s *Store) UpdateEntry(ctx context.Context, e tracking.TimeEntry) error {
	defer s.lock()()

	res, err := s.q.ExecContext(ctx, `
		UPDATE time_entries SET
			clock_out = ?, clock_out_lat = ?, clock_out_lng = ?, clock_out_geo_verified = ?,
			actual_hours = ?, validated = ?, validated_by = ?, validated_at = ?,
			correction_note = ?, updated_at = ?
		WHERE id = ?`,
		nullTime(e.ClockOut), nullFloat(e.ClockOutLatitude), nullFloat(e.ClockOutLongitude), e.ClockOutGeoVerified,
		e.ActualHours.String(), e.Validated, e.ValidatedBy, nullTime(e.ValidatedAt),
		e.CorrectionNote, formatTime(e.UpdatedAt), e.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return tracking.ErrEntryNotFound
	}
	return nil
}

func (s *Store) ListEntries(ctx context.Context, f tracking.EntryFilter) ([]tracking.TimeEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM time_entries WHERE 1=1`
	var args []any
	if f.WorkerID != "" {
		query += ` AND worker_id = ?`
		args = append(args, f.WorkerID)
	}
	if f.ShiftID != "" {
		query += ` AND shift_id = ?`
		args = append(args, f.ShiftID)
	}
	if f.Validated != nil {
		query += ` AND validated = ?`
		args = append(args, *f.Validated)
	}
	if !f.From.IsZero() {
		query += ` AND clock_in >= ?`
		args = append(args, formatTime(f.From))
	}
	if !f.To.IsZero() {
		query += ` AND clock_in < ?`
		args = append(args, formatTime(f.To))
	}
	query += ` ORDER BY clock_in`

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query time entries: %w", err)
	}
	defer rows.Close()

	var out []tracking.TimeEntry
	for rows.Next() {
		e, err := scanEntryFields(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func scanEntryFields(sc rowScanner) (*tracking.TimeEntry, error) {
	var (
		e                     tracking.TimeEntry
		clockIn, hours        string
		clockOut, validatedAt sql.NullString
		inLat, inLng          sql.NullFloat64
		outLat, outLng        sql.NullFloat64
		created, updated      string
	)
	err := sc.Scan(&e.ID, &e.ShiftID, &e.WorkerID,
		&clockIn, &inLat, &inLng, &e.ClockInGeoVerified,
		&clockOut, &outLat, &outLng, &e.ClockOutGeoVerified,
		&hours, &e.Validated, &e.ValidatedBy, &validatedAt, &e.CorrectionNote,
		&created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan time entry: %w", err)
	}
	e.ClockIn = parseTime(clockIn)
	e.ClockInLatitude = floatPtr(inLat)
	e.ClockInLongitude = floatPtr(inLng)
	e.ClockOut = timePtr(clockOut)
	e.ClockOutLatitude = floatPtr(outLat)
	e.ClockOutLongitude = floatPtr(outLng)
	e.ActualHours, _ = decimal.NewFromString(hours)
	e.ValidatedAt = timePtr(validatedAt)
	e.CreatedAt = parseTime(created)
	e.UpdatedAt = parseTime(updated)
	return &e, nil
}

// =============================================================================
// COST LINES (payroll.Store interface)
// =============================================================================

func (s *Store) ListValidatedEntries(ctx context.Context, from, to time.Time) ([]payroll.ValidatedEntry, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT e.id, e.shift_id, e.worker_id, w.name, s.date, e.actual_hours, w.hourly_rate
		FROM time_entries e
		JOIN shifts s ON s.id = e.shift_id
		JOIN workers w ON w.id = e.worker_id
		WHERE e.validated AND s.date >= ? AND s.date <= ?
		ORDER BY s.date, e.clock_in`,
		formatDate(from), formatDate(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query validated entries: %w", err)
	}
	defer rows.Close()

	var out []payroll.ValidatedEntry
	for rows.Next() {
		var (
			v           payroll.ValidatedEntry
			date        string
			hours, rate string
		)
		if err := rows.Scan(&v.EntryID, &v.ShiftID, &v.WorkerID, &v.WorkerName,
			&date, &hours, &rate); err != nil {
			return nil, err
		}
		v.Date = parseDate(date)
		v.Hours, _ = decimal.NewFromString(hours)
		v.HourlyRate, _ = decimal.NewFromString(rate)
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) CostLinesForPeriod(ctx context.Context, from, to time.Time) ([]payroll.CostLine, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, worker_id, shift_id, entry_id, date, hours, base_salary,
			premium, total_salary, employer_contribution, total_cost, created_at
		FROM cost_lines
		WHERE date >= ? AND date <= ?
		ORDER BY date, worker_id`,
		formatDate(from), formatDate(to))
	if err != nil {
		return nil, fmt.Errorf("failed to query cost lines: %w", err)
	}
	defer rows.Close()

	var out []payroll.CostLine
	for rows.Next() {
		line, err := scanCostLine(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *line)
	}
	return out, rows.Err()
}

// ReplacePeriod swaps a period's cost lines for freshly computed ones and
// applies the per-worker YTD deltas, all in one transaction. Regenerating
// the same period twice is therefore idempotent: the second delta is zero.
func (s *Store) ReplacePeriod(ctx context.Context, from, to time.Time, lines []payroll.CostLine, ytdDelta map[string]decimal.Decimal) error {
	return s.withTx(ctx, func(tx *Store) error {
		if _, err := tx.q.ExecContext(ctx,
			`DELETE FROM cost_lines WHERE date >= ? AND date <= ?`,
			formatDate(from), formatDate(to)); err != nil {
			return fmt.Errorf("failed to clear period: %w", err)
		}
		for _, l := range lines {
			if _, err := tx.q.ExecContext(ctx, `
				INSERT INTO cost_lines
				(id, worker_id, shift_id, entry_id, date, hours, base_salary,
				 premium, total_salary, employer_contribution, total_cost, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
				l.ID, l.WorkerID, l.ShiftID, l.EntryID, formatDate(l.Date),
				l.Hours.String(), l.BaseSalary.String(), l.Premium.String(),
				l.TotalSalary.String(), l.EmployerContribution.String(),
				l.TotalCost.String(), formatTime(l.CreatedAt)); err != nil {
				return fmt.Errorf("failed to insert cost line: %w", err)
			}
		}
		for workerID, delta := range ytdDelta {
			if delta.IsZero() {
				continue
			}
			var current string
			if err := tx.q.QueryRowContext(ctx,
				`SELECT ytd_earnings FROM workers WHERE id = ?`, workerID).Scan(&current); err != nil {
				return fmt.Errorf("failed to read ytd for %s: %w", workerID, err)
			}
			ytd, _ := decimal.NewFromString(current)
			if _, err := tx.q.ExecContext(ctx,
				`UPDATE workers SET ytd_earnings = ?, updated_at = ? WHERE id = ?`,
				ytd.Add(delta).String(), formatTime(time.Now()), workerID); err != nil {
				return fmt.Errorf("failed to update ytd for %s: %w", workerID, err)
			}
		}
		return nil
	})
}

func scanCostLine(rows *sql.Rows) (*payroll.CostLine, error) {
	var (
		l                                          payroll.CostLine
		date, created                              string
		hours, base, premium, total, contrib, cost string
	)
	if err := rows.Scan(&l.ID, &l.WorkerID, &l.ShiftID, &l.EntryID, &date,
		&hours, &base, &premium, &total, &contrib, &cost, &created); err != nil {
		return nil, fmt.Errorf("failed to scan cost line: %w", err)
	}
	l.Date = parseDate(date)
	l.Hours, _ = decimal.NewFromString(hours)
	l.BaseSalary, _ = decimal.NewFromString(base)
	l.Premium, _ = decimal.NewFromString(premium)
	l.TotalSalary, _ = decimal.NewFromString(total)
	l.EmployerContribution, _ = decimal.NewFromString(contrib)
	l.TotalCost, _ = decimal.NewFromString(cost)
	l.CreatedAt = parseTime(created)
	return &l, nil
}
