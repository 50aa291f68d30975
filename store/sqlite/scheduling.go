/*
scheduling.go - Shifts, locations, Dimona declarations

Implements shift.Store/shift.TxStore and dimona.Store. The cancel
cascade's sibling deletes (open entry, unsigned student contract) also
live here because shift.TxStore is their only caller.
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/horeca/flexi-engine/dimona"
	"github.com/horeca/flexi-engine/shift"
)

// WithTx implements shift.TxStore: every store call inside fn joins one
// SQLite transaction; fn's error rolls everything back.
func (s *Store) WithTx(ctx context.Context, fn func(shift.TxStore) error) error {
	return s.withTx(ctx, func(tx *Store) error { return fn(tx) })
}

// =============================================================================
// SHIFTS (shift.Store interface)
// =============================================================================

const shiftColumns = `id, location_id, worker_id, date, start_time, end_time, role, status, created_at, updated_at`

func (s *Store) GetShift(ctx context.Context, id string) (*shift.Shift, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+shiftColumns+` FROM shifts WHERE id = ?`, id)
	sh, err := scanShift(row)
	return sh, err
}

func (s *Store) InsertShift(ctx context.Context, sh shift.Shift) error {
	defer s.lock()()
	return s.insertShift(ctx, sh)
}

// InsertShifts writes a multi-day batch atomically.
func (s *Store) InsertShifts(ctx context.Context, shifts []shift.Shift) error {
	return s.withTx(ctx, func(tx *Store) error {
		for _, sh := range shifts {
			if err := tx.insertShift(ctx, sh); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) insertShift(ctx context.Context, sh shift.Shift) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO shifts (id, location_id, worker_id, date, start_time, end_time, role, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sh.ID, sh.LocationID, sh.WorkerID, formatDate(sh.Date), sh.Start, sh.End,
		sh.Role, string(sh.Status), formatTime(sh.CreatedAt), formatTime(sh.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert shift: %w", err)
	}
	return nil
}

func (s *Store) UpdateShift(ctx context.Context, sh shift.Shift) error {
	defer s.lock()()

	res, err := s.q.ExecContext(ctx, `
		UPDATE shifts SET location_id = ?, worker_id = ?, date = ?, start_time = ?,
			end_time = ?, role = ?, status = ?, updated_at = ?
		WHERE id = ?`,
		sh.LocationID, sh.WorkerID, formatDate(sh.Date), sh.Start, sh.End,
		sh.Role, string(sh.Status), formatTime(sh.UpdatedAt), sh.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return shift.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteShift(ctx context.Context, id string) error {
	defer s.lock()()
	_, err := s.q.ExecContext(ctx, `DELETE FROM shifts WHERE id = ?`, id)
	return err
}

func (s *Store) ListShifts(ctx context.Context, f shift.Filter) ([]shift.Shift, error) {
	query := `SELECT ` + shiftColumns + ` FROM shifts WHERE 1=1`
	var args []any
	if f.WorkerID != "" {
		query += ` AND worker_id = ?`
		args = append(args, f.WorkerID)
	}
	if f.LocationID != "" {
		query += ` AND location_id = ?`
		args = append(args, f.LocationID)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	if !f.From.IsZero() {
		query += ` AND date >= ?`
		args = append(args, formatDate(f.From))
	}
	if !f.To.IsZero() {
		query += ` AND date <= ?`
		args = append(args, formatDate(f.To))
	}
	query += ` ORDER BY date, start_time`

	return s.queryShifts(ctx, query, args...)
}

func (s *Store) FindOverlapping(ctx context.Context, workerID string, date time.Time) ([]shift.Shift, error) {
	return s.queryShifts(ctx, `
		SELECT `+shiftColumns+` FROM shifts
		WHERE worker_id = ? AND date = ? AND status NOT IN ('cancelled', 'refused')`,
		workerID, formatDate(date))
}

// FindAcceptedShift resolves the kiosk flow's target shift: the
// worker's accepted shift at the location on the given date.
func (s *Store) FindAcceptedShift(ctx context.Context, workerID, locationID string, date time.Time) (*shift.Shift, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+shiftColumns+` FROM shifts
		WHERE worker_id = ? AND location_id = ? AND date = ? AND status = 'accepted'
		ORDER BY start_time LIMIT 1`,
		workerID, locationID, formatDate(date))
	return scanShift(row)
}

func (s *Store) HasPayrollHistory(ctx context.Context, shiftID string) (bool, error) {
	var count int
	err := s.q.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM time_entries WHERE shift_id = ?) +
		       (SELECT COUNT(*) FROM cost_lines WHERE shift_id = ?)`,
		shiftID, shiftID).Scan(&count)
	return count > 0, err
}

func (s *Store) queryShifts(ctx context.Context, query string, args ...any) ([]shift.Shift, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query shifts: %w", err)
	}
	defer rows.Close()

	var out []shift.Shift
	for rows.Next() {
		sh, err := scanShiftRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *sh)
	}
	return out, rows.Err()
}

func scanShiftFields(sc rowScanner) (*shift.Shift, error) {
	var (
		sh               shift.Shift
		date, status     string
		created, updated string
	)
	err := sc.Scan(&sh.ID, &sh.LocationID, &sh.WorkerID, &date, &sh.Start, &sh.End,
		&sh.Role, &status, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan shift: %w", err)
	}
	sh.Date = parseDate(date)
	sh.Status = shift.Status(status)
	sh.CreatedAt = parseTime(created)
	sh.UpdatedAt = parseTime(updated)
	return &sh, nil
}

func scanShift(row *sql.Row) (*shift.Shift, error)       { return scanShiftFields(row) }
func scanShiftRows(rows *sql.Rows) (*shift.Shift, error) { return scanShiftFields(rows) }

// =============================================================================
// LOCATIONS
// =============================================================================

func (s *Store) CreateLocation(ctx context.Context, loc shift.Location) error {
	defer s.lock()()

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO locations (id, name, latitude, longitude, radius_meters, kiosk_token, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		loc.ID, loc.Name, loc.Latitude, loc.Longitude, loc.RadiusMeters,
		loc.KioskToken, formatTime(loc.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert location: %w", err)
	}
	return nil
}

const locationColumns = `id, name, latitude, longitude, radius_meters, COALESCE(kiosk_token, ''), created_at`

func (s *Store) GetLocation(ctx context.Context, id string) (*shift.Location, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+locationColumns+` FROM locations WHERE id = ?`, id)
	return scanLocation(row)
}

func (s *Store) GetLocationByToken(ctx context.Context, token string) (*shift.Location, error) {
	if token == "" {
		return nil, nil
	}
	row := s.q.QueryRowContext(ctx, `SELECT `+locationColumns+` FROM locations WHERE kiosk_token = ?`, token)
	return scanLocation(row)
}

func (s *Store) ListLocations(ctx context.Context) ([]shift.Location, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+locationColumns+` FROM locations ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []shift.Location
	for rows.Next() {
		var (
			loc     shift.Location
			created string
		)
		if err := rows.Scan(&loc.ID, &loc.Name, &loc.Latitude, &loc.Longitude,
			&loc.RadiusMeters, &loc.KioskToken, &created); err != nil {
			return nil, err
		}
		loc.CreatedAt = parseTime(created)
		out = append(out, loc)
	}
	return out, rows.Err()
}

func scanLocation(row *sql.Row) (*shift.Location, error) {
	var (
		loc     shift.Location
		created string
	)
	err := row.Scan(&loc.ID, &loc.Name, &loc.Latitude, &loc.Longitude,
		&loc.RadiusMeters, &loc.KioskToken, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan location: %w", err)
	}
	loc.CreatedAt = parseTime(created)
	return &loc, nil
}

// =============================================================================
// DECLARATIONS (dimona.Store interface + shift cascade ops)
// =============================================================================

const declarationColumns = `id, shift_id, worker_id, location_id, type, status, period_id,
	retraction_owed, cancel_reason, notes, last_error, created_at, updated_at`

func (s *Store) CreateDeclaration(ctx context.Context, d dimona.Declaration) error {
	defer s.lock()()

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO declarations
		(id, shift_id, worker_id, location_id, type, status, period_id,
		 retraction_owed, cancel_reason, notes, last_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.ShiftID, d.WorkerID, d.LocationID, string(d.Type), string(d.Status),
		d.PeriodID, d.RetractionOwed, string(d.CancelReason), d.Notes, d.LastError,
		formatTime(d.CreatedAt), formatTime(d.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert declaration: %w", err)
	}
	return nil
}

func (s *Store) GetDeclaration(ctx context.Context, id string) (*dimona.Declaration, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+declarationColumns+` FROM declarations WHERE id = ?`, id)
	return scanDeclaration(row)
}

func (s *Store) GetDeclarationByShift(ctx context.Context, shiftID string) (*dimona.Declaration, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+declarationColumns+` FROM declarations WHERE shift_id = ?`, shiftID)
	return scanDeclaration(row)
}

func (s *Store) ListDeclarations(ctx context.Context, status dimona.Status) ([]dimona.Declaration, error) {
	query := `SELECT ` + declarationColumns + ` FROM declarations`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at`

	return s.queryDeclarations(ctx, query, args...)
}

func (s *Store) ListRetractionsOwed(ctx context.Context) ([]dimona.Declaration, error) {
	return s.queryDeclarations(ctx,
		`SELECT `+declarationColumns+` FROM declarations WHERE retraction_owed ORDER BY created_at`)
}

func (s *Store) UpdateDeclaration(ctx context.Context, d dimona.Declaration) error {
	defer s.lock()()

	res, err := s.q.ExecContext(ctx, `
		UPDATE declarations SET status = ?, period_id = ?, retraction_owed = ?,
			cancel_reason = ?, notes = ?, last_error = ?, updated_at = ?
		WHERE id = ?`,
		string(d.Status), d.PeriodID, d.RetractionOwed, string(d.CancelReason),
		d.Notes, d.LastError, formatTime(d.UpdatedAt), d.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return dimona.ErrNotFound
	}
	return nil
}

func (s *Store) DeleteDeclaration(ctx context.Context, id string) error {
	defer s.lock()()
	_, err := s.q.ExecContext(ctx, `DELETE FROM declarations WHERE id = ?`, id)
	return err
}

func (s *Store) queryDeclarations(ctx context.Context, query string, args ...any) ([]dimona.Declaration, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query declarations: %w", err)
	}
	defer rows.Close()

	var out []dimona.Declaration
	for rows.Next() {
		d, err := scanDeclarationFields(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func scanDeclarationFields(sc rowScanner) (*dimona.Declaration, error) {
	var (
		d                dimona.Declaration
		typ, status      string
		reason           string
		created, updated string
	)
	err := sc.Scan(&d.ID, &d.ShiftID, &d.WorkerID, &d.LocationID, &typ, &status,
		&d.PeriodID, &d.RetractionOwed, &reason, &d.Notes, &d.LastError, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan declaration: %w", err)
	}
	d.Type = dimona.Type(typ)
	d.Status = dimona.Status(status)
	d.CancelReason = dimona.CancelReason(reason)
	d.CreatedAt = parseTime(created)
	d.UpdatedAt = parseTime(updated)
	return &d, nil
}

func scanDeclaration(row *sql.Row) (*dimona.Declaration, error) { return scanDeclarationFields(row) }

// =============================================================================
// CASCADE SIBLING DELETES (shift.TxStore interface)
// =============================================================================

// DeleteOpenEntry removes a shift's open time entry during the
// cancellation cascade. Closed entries are history and stay.
func (s *Store) DeleteOpenEntry(ctx context.Context, shiftID string) error {
	defer s.lock()()
	_, err := s.q.ExecContext(ctx,
		`DELETE FROM time_entries WHERE shift_id = ? AND clock_out IS NULL`, shiftID)
	return err
}

// DeleteUnsignedShiftContract removes a never-worked student contract:
// the shift was cancelled before any hours were actually clocked out.
func (s *Store) DeleteUnsignedShiftContract(ctx context.Context, shiftID string) error {
	defer s.lock()()
	_, err := s.q.ExecContext(ctx, `
		DELETE FROM contracts WHERE shift_id = ? AND kind = 'student_shift'
		AND NOT EXISTS (
			SELECT 1 FROM time_entries
			WHERE time_entries.shift_id = contracts.shift_id AND clock_out IS NOT NULL
		)`, shiftID)
	return err
}
