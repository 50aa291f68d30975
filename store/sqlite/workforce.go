/*
workforce.go - Workers, kiosk credentials, contracts

Implements worker.Store, pin.Store, and contract.Store. The worker row
carries the verifier-owned PIN state; pin.Store exposes only the
credential slice of it and never the full worker.
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/horeca/flexi-engine/contract"
	"github.com/horeca/flexi-engine/pin"
	"github.com/horeca/flexi-engine/worker"
)

// =============================================================================
// WORKER STORE (worker.Store interface)
// =============================================================================

func (s *Store) CreateWorker(ctx context.Context, w worker.Worker, pinHash, pinSalt string) error {
	defer s.lock()()

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO workers
		(id, identity_id, name, email, niss, iban, status, hourly_rate, ytd_earnings,
		 profile_complete, framework_signed_at, active, pin_hash, pin_salt,
		 failed_attempts, locked_until, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, NULL, ?, ?)`,
		w.ID, w.IdentityID, w.Name, w.Email, w.NISS, w.IBAN, string(w.Status),
		w.HourlyRate.String(), w.YTDEarnings.String(), w.ProfileComplete,
		nullTime(w.FrameworkSignedAt), w.Active, pinHash, pinSalt,
		formatTime(w.CreatedAt), formatTime(w.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert worker: %w", err)
	}
	return nil
}

const workerColumns = `id, identity_id, name, email, niss, iban, status, hourly_rate,
	ytd_earnings, profile_complete, framework_signed_at, active, created_at, updated_at`

func (s *Store) GetWorker(ctx context.Context, id string) (*worker.Worker, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+workerColumns+` FROM workers WHERE id = ?`, id)
	return scanWorker(row)
}

func (s *Store) ListWorkers(ctx context.Context, activeOnly bool) ([]worker.Worker, error) {
	query := `SELECT ` + workerColumns + ` FROM workers`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY name`

	rows, err := s.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query workers: %w", err)
	}
	defer rows.Close()

	var out []worker.Worker
	for rows.Next() {
		w, err := scanWorkerRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, rows.Err()
}

func (s *Store) DeactivateWorker(ctx context.Context, id string) error {
	defer s.lock()()

	res, err := s.q.ExecContext(ctx,
		`UPDATE workers SET active = FALSE, updated_at = ? WHERE id = ?`,
		formatTime(time.Now()), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return worker.ErrNotFound
	}
	return nil
}

// CorrectYTD is the audited admin override; the regular writer of YTD
// is ReplacePeriod in timesheet.go.
func (s *Store) CorrectYTD(ctx context.Context, id string, newYTD decimal.Decimal, actorID, note string) error {
	return s.withTx(ctx, func(tx *Store) error {
		var old string
		err := tx.q.QueryRowContext(ctx, `SELECT ytd_earnings FROM workers WHERE id = ?`, id).Scan(&old)
		if errors.Is(err, sql.ErrNoRows) {
			return worker.ErrNotFound
		}
		if err != nil {
			return err
		}

		if _, err := tx.q.ExecContext(ctx,
			`UPDATE workers SET ytd_earnings = ?, updated_at = ? WHERE id = ?`,
			newYTD.String(), formatTime(time.Now()), id); err != nil {
			return err
		}

		_, err = tx.q.ExecContext(ctx, `
			INSERT INTO ytd_corrections (id, worker_id, old_value, new_value, actor_id, note, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), id, old, newYTD.String(), actorID, note, formatTime(time.Now()))
		return err
	})
}

type rowScanner interface{ Scan(dest ...any) error }

func scanWorkerFields(sc rowScanner) (*worker.Worker, error) {
	var (
		w         worker.Worker
		status    string
		rate, ytd string
		signedAt  sql.NullString
		created   string
		updated   string
	)
	err := sc.Scan(&w.ID, &w.IdentityID, &w.Name, &w.Email, &w.NISS, &w.IBAN,
		&status, &rate, &ytd, &w.ProfileComplete, &signedAt, &w.Active, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan worker: %w", err)
	}

	w.Status = worker.Status(status)
	w.HourlyRate, _ = decimal.NewFromString(rate)
	w.YTDEarnings, _ = decimal.NewFromString(ytd)
	w.FrameworkSignedAt = timePtr(signedAt)
	w.CreatedAt = parseTime(created)
	w.UpdatedAt = parseTime(updated)
	return &w, nil
}

func scanWorker(row *sql.Row) (*worker.Worker, error)       { return scanWorkerFields(row) }
func scanWorkerRows(rows *sql.Rows) (*worker.Worker, error) { return scanWorkerFields(rows) }

// =============================================================================
// PIN STORE (pin.Store interface)
// =============================================================================

func (s *Store) GetCredential(ctx context.Context, workerID string) (*pin.Credential, error) {
	var (
		c           pin.Credential
		lockedUntil sql.NullString
	)
	err := s.q.QueryRowContext(ctx, `
		SELECT id, name, active, pin_hash, pin_salt, failed_attempts, locked_until
		FROM workers WHERE id = ?`, workerID).
		Scan(&c.WorkerID, &c.Name, &c.Active, &c.Hash, &c.Salt, &c.FailedAttempts, &lockedUntil)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}
	c.LockedUntil = timePtr(lockedUntil)
	return &c, nil
}

func (s *Store) SetAttempts(ctx context.Context, workerID string, attempts int, lockedUntil *time.Time) error {
	defer s.lock()()

	_, err := s.q.ExecContext(ctx,
		`UPDATE workers SET failed_attempts = ?, locked_until = ? WHERE id = ?`,
		attempts, nullTime(lockedUntil), workerID)
	return err
}

// =============================================================================
// CONTRACT STORE (contract.Store interface)
// =============================================================================

const contractColumns = `id, kind, worker_id, shift_id, signed_at, signature_ref,
	document_ref, hourly_rate, date, start_time, end_time, location_name`

func (s *Store) GetFrameworkContract(ctx context.Context, workerID string) (*contract.Contract, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+contractColumns+` FROM contracts WHERE worker_id = ? AND kind = ?`,
		workerID, string(contract.KindFramework))
	return scanContract(row)
}

func (s *Store) GetShiftContract(ctx context.Context, shiftID string) (*contract.Contract, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+contractColumns+` FROM contracts WHERE shift_id = ? AND kind = ?`,
		shiftID, string(contract.KindStudent))
	return scanContract(row)
}

// InsertContract also stamps the worker's framework-signed timestamp
// for framework contracts, in the same transaction.
func (s *Store) InsertContract(ctx context.Context, c contract.Contract) error {
	return s.withTx(ctx, func(tx *Store) error {
		var date any
		if !c.Date.IsZero() {
			date = formatDate(c.Date)
		}
		_, err := tx.q.ExecContext(ctx, `
			INSERT INTO contracts
			(id, kind, worker_id, shift_id, signed_at, signature_ref, document_ref,
			 hourly_rate, date, start_time, end_time, location_name)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, string(c.Kind), c.WorkerID, c.ShiftID, formatTime(c.SignedAt),
			c.SignatureRef, c.DocumentRef, c.HourlyRate.String(), date,
			c.Start, c.End, c.LocationName)
		if err != nil {
			if isUniqueViolation(err, "contracts") {
				return contract.ErrDuplicate
			}
			return fmt.Errorf("failed to insert contract: %w", err)
		}

		if c.Kind == contract.KindFramework {
			_, err = tx.q.ExecContext(ctx,
				`UPDATE workers SET framework_signed_at = ?, updated_at = ? WHERE id = ?`,
				formatTime(c.SignedAt), formatTime(time.Now()), c.WorkerID)
		}
		return err
	})
}

func scanContract(row *sql.Row) (*contract.Contract, error) {
	var (
		c    contract.Contract
		kind string
		rate string
		date sql.NullString
		sign string
	)
	err := row.Scan(&c.ID, &kind, &c.WorkerID, &c.ShiftID, &sign, &c.SignatureRef,
		&c.DocumentRef, &rate, &date, &c.Start, &c.End, &c.LocationName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan contract: %w", err)
	}
	c.Kind = contract.Kind(kind)
	c.SignedAt = parseTime(sign)
	c.HourlyRate, _ = decimal.NewFromString(rate)
	if date.Valid {
		c.Date = parseDate(date.String)
	}
	return &c, nil
}
