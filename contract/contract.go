/*
Package contract gates work behind the legally required signatures.

PURPOSE:

	Belgian flexi-jobs need two kinds of binding documents:
	- A framework contract, signed once per employer relationship, before
	  any work at all.
	- For student workers, a per-shift student contract signed before that
	  specific shift's clock-in. Signing one shift never satisfies the
	  next; the check is re-derived per shift.

SNAPSHOTS:

	A signed contract freezes the terms (rate, times, date, location) as
	they were at signing. Later rate or shift edits never rewrite the
	snapshot; audits compare what was signed, not what is current.

IDEMPOTENCY:

	A retried or forged re-signature must not create duplicate rows. The
	store enforces one framework contract per worker and one student
	contract per shift; Sign* returns the existing record on replay.

SEE ALSO:
  - gate.go: the clock-in gate itself
  - tracking package: calls the gate before creating a time entry
*/
package contract

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CONTRACT RECORD
// =============================================================================

type Kind string

const (
	KindFramework Kind = "framework"
	KindStudent   Kind = "student_shift"
)

type Contract struct {
	ID       string
	Kind     Kind
	WorkerID string
	ShiftID  string // empty for framework contracts

	SignedAt     time.Time
	SignatureRef string // opaque signature artifact reference
	DocumentRef  string // rendered PDF reference from the collaborator

	// Terms snapshot, captured at signing and never recomputed.
	HourlyRate   decimal.Decimal
	Date         time.Time
	Start        string
	End          string
	LocationName string
}

// Terms is what the consent screen needs to show before signing.
type Terms struct {
	WorkerID     string          `json:"worker_id"`
	ShiftID      string          `json:"shift_id"`
	HourlyRate   decimal.Decimal `json:"hourly_rate"`
	Date         time.Time       `json:"date"`
	Start        string          `json:"start"`
	End          string          `json:"end"`
	LocationName string          `json:"location_name"`
}

// =============================================================================
// COLLABORATORS AND STORE
// =============================================================================

// Renderer is the external PDF collaborator. The engine stores only the
// returned document reference.
type Renderer interface {
	Render(ctx context.Context, c Contract) (documentRef string, err error)
}

// ErrDuplicate is returned by the store when a contract already exists
// for the same worker (framework) or shift (student).
var ErrDuplicate = errors.New("contract already signed")

type Store interface {
	GetFrameworkContract(ctx context.Context, workerID string) (*Contract, error)
	GetShiftContract(ctx context.Context, shiftID string) (*Contract, error)

	// InsertContract persists a contract and, for framework contracts,
	// stamps the worker's framework-signed timestamp in the same
	// transaction. Returns ErrDuplicate on uniqueness violations.
	InsertContract(ctx context.Context, c Contract) error
}
