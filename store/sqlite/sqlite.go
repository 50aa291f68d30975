/*
Package sqlite is the SQLite-backed implementation of every domain store
interface in the engine.

INTERFACES IMPLEMENTED:

	worker.Store    roster + YTD corrections
	pin.Store       kiosk credentials and lockout counters
	shift.TxStore   shifts, locations, declarations, cascade transactions
	tracking.Store  time entries with the open-entry uniqueness constraint
	contract.Store  framework and per-shift student contracts
	dimona.Store    declaration status machine persistence
	payroll.Store   validated-entry reads and atomic period replacement

INVARIANTS LIVE IN THE SCHEMA:
  - idx_open_entry: at most one open time entry per (shift, worker).
    Concurrent clock-ins are settled here, not in application code.
  - idx_framework_contract / idx_student_contract: one framework
    contract per worker, one student contract per shift. A retried
    signature cannot create a duplicate row.
  - idx_declaration_shift: one live declaration per shift.

TRANSACTIONS:

	WithTx runs a closure against a transaction-backed clone of the Store;
	every store method inside the closure joins the same transaction. The
	shift cancellation cascade and payroll period replacement depend on
	this all-or-nothing behavior.

CONCURRENCY:

	A single mutex serializes writers, like WAL SQLite wants. This also
	serializes PIN counter updates per process.

USAGE:

	store, err := sqlite.New("./data/flexi.db")   // or ":memory:"

SEE ALSO:
  - workforce.go: workers, credentials, contracts
  - scheduling.go: shifts, locations, declarations
  - timesheet.go: time entries, cost lines
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store implements all persistence interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu *sync.Mutex
	q  querier // db outside a transaction, *sql.Tx inside
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// New opens (or creates) the database and migrates the schema.
// Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, mu: &sync.Mutex{}, q: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS workers (
		id TEXT PRIMARY KEY,
		identity_id TEXT NOT NULL,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		niss TEXT,
		iban TEXT,
		status TEXT NOT NULL,
		hourly_rate TEXT NOT NULL,
		ytd_earnings TEXT NOT NULL DEFAULT '0',
		profile_complete BOOLEAN NOT NULL DEFAULT FALSE,
		framework_signed_at TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		pin_hash TEXT NOT NULL,
		pin_salt TEXT NOT NULL,
		failed_attempts INTEGER NOT NULL DEFAULT 0,
		locked_until TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Audit trail for explicit YTD corrections
	CREATE TABLE IF NOT EXISTS ytd_corrections (
		id TEXT PRIMARY KEY,
		worker_id TEXT NOT NULL,
		old_value TEXT NOT NULL,
		new_value TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		note TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS locations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		latitude REAL NOT NULL DEFAULT 0,
		longitude REAL NOT NULL DEFAULT 0,
		radius_meters REAL NOT NULL DEFAULT 0,
		kiosk_token TEXT UNIQUE,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS shifts (
		id TEXT PRIMARY KEY,
		location_id TEXT NOT NULL,
		worker_id TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		role TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_shifts_worker_date
		ON shifts(worker_id, date, status);
	CREATE INDEX IF NOT EXISTS idx_shifts_location_date
		ON shifts(location_id, date);

	CREATE TABLE IF NOT EXISTS time_entries (
		id TEXT PRIMARY KEY,
		shift_id TEXT NOT NULL,
		worker_id TEXT NOT NULL,
		clock_in TEXT NOT NULL,
		clock_in_lat REAL,
		clock_in_lng REAL,
		clock_in_geo_verified BOOLEAN NOT NULL DEFAULT FALSE,
		clock_out TEXT,
		clock_out_lat REAL,
		clock_out_lng REAL,
		clock_out_geo_verified BOOLEAN NOT NULL DEFAULT FALSE,
		actual_hours TEXT NOT NULL DEFAULT '0',
		validated BOOLEAN NOT NULL DEFAULT FALSE,
		validated_by TEXT NOT NULL DEFAULT '',
		validated_at TEXT,
		correction_note TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- CRITICAL: at most one open entry per (shift, worker). Concurrent
	-- clock-ins race on this index; exactly one insert wins.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_open_entry
		ON time_entries(shift_id, worker_id)
		WHERE clock_out IS NULL;

	CREATE INDEX IF NOT EXISTS idx_entries_worker
		ON time_entries(worker_id, clock_in);
	CREATE INDEX IF NOT EXISTS idx_entries_validated
		ON time_entries(validated, clock_in);

	CREATE TABLE IF NOT EXISTS contracts (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		worker_id TEXT NOT NULL,
		shift_id TEXT NOT NULL DEFAULT '',
		signed_at TEXT NOT NULL,
		signature_ref TEXT NOT NULL,
		document_ref TEXT NOT NULL DEFAULT '',
		hourly_rate TEXT NOT NULL DEFAULT '0',
		date TEXT,
		start_time TEXT NOT NULL DEFAULT '',
		end_time TEXT NOT NULL DEFAULT '',
		location_name TEXT NOT NULL DEFAULT ''
	);

	-- One framework contract per worker, one student contract per shift.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_framework_contract
		ON contracts(worker_id) WHERE kind = 'framework';
	CREATE UNIQUE INDEX IF NOT EXISTS idx_student_contract
		ON contracts(shift_id) WHERE kind = 'student_shift';

	CREATE TABLE IF NOT EXISTS declarations (
		id TEXT PRIMARY KEY,
		shift_id TEXT NOT NULL,
		worker_id TEXT NOT NULL,
		location_id TEXT NOT NULL,
		type TEXT NOT NULL,
		status TEXT NOT NULL,
		period_id TEXT NOT NULL DEFAULT '',
		retraction_owed BOOLEAN NOT NULL DEFAULT FALSE,
		cancel_reason TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		last_error TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_declaration_shift
		ON declarations(shift_id);
	CREATE INDEX IF NOT EXISTS idx_declarations_status
		ON declarations(status);

	CREATE TABLE IF NOT EXISTS cost_lines (
		id TEXT PRIMARY KEY,
		worker_id TEXT NOT NULL,
		shift_id TEXT NOT NULL,
		entry_id TEXT NOT NULL,
		date TEXT NOT NULL,
		hours TEXT NOT NULL,
		base_salary TEXT NOT NULL,
		premium TEXT NOT NULL,
		total_salary TEXT NOT NULL,
		employer_contribution TEXT NOT NULL,
		total_cost TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_cost_lines_date
		ON cost_lines(date);
	CREATE INDEX IF NOT EXISTS idx_cost_lines_worker
		ON cost_lines(worker_id, date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// withTx is the shared transactional closure. Exposed through the
// interface-shaped wrappers in scheduling.go.
func (s *Store) withTx(ctx context.Context, fn func(*Store) error) error {
	if _, already := s.q.(*sql.Tx); already {
		// Nested call joins the enclosing transaction.
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	clone := &Store{db: s.db, mu: s.mu, q: tx}
	if err := fn(clone); err != nil {
		return err
	}
	return tx.Commit()
}

// lock serializes writers outside a transaction. Inside one, the
// enclosing WithTx already holds the mutex.
func (s *Store) lock() func() {
	if _, inTx := s.q.(*sql.Tx); inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// =============================================================================
// HELPERS
// =============================================================================

func isUniqueViolation(err error, needle string) bool {
	return err != nil &&
		strings.Contains(err.Error(), "UNIQUE constraint failed") &&
		strings.Contains(err.Error(), needle)
}

func formatTime(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

func formatDate(t time.Time) string { return t.Format("2006-01-02") }

func parseDate(s string) time.Time {
	t, _ := time.Parse("2006-01-02", s)
	return t
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func timePtr(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t := parseTime(ns.String)
	return &t
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func floatPtr(nf sql.NullFloat64) *float64 {
	if !nf.Valid {
		return nil
	}
	v := nf.Float64
	return &v
}
