/*
validate.go - Manager validation of worked hours

Validated entries are the only input to payroll aggregation. Once
validated an entry is immutable; the on-the-record escape hatch is
Correct, which rewrites the hours with a mandatory note and re-stamps
the validator.
*/
package tracking

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/horeca/flexi-engine/identity"
	"github.com/horeca/flexi-engine/shift"
)

// Validate confirms an entry's worked hours. Manager only; the entry
// must be clocked out and not validated yet.
func (e *Engine) Validate(ctx context.Context, actor identity.Actor, entryID string) (*TimeEntry, error) {
	if !actor.IsManager() {
		return nil, shift.ErrNotManager
	}

	entry, err := e.Store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrEntryNotFound
	}
	if entry.Open() {
		return nil, ErrEntryOpen
	}
	if entry.Validated {
		return nil, ErrAlreadyValidated
	}

	now := time.Now().UTC()
	entry.Validated = true
	entry.ValidatedBy = actor.UserID
	entry.ValidatedAt = &now
	entry.UpdatedAt = now

	if err := e.Store.UpdateEntry(ctx, *entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Correct rewrites the hours of an already-validated entry. The note is
// mandatory; corrections without a paper trail are how audits go wrong.
func (e *Engine) Correct(ctx context.Context, actor identity.Actor, entryID string, hours decimal.Decimal, note string) (*TimeEntry, error) {
	if !actor.IsManager() {
		return nil, shift.ErrNotManager
	}
	if note == "" {
		return nil, fmt.Errorf("a correction note is required")
	}
	if hours.IsNegative() {
		return nil, fmt.Errorf("corrected hours cannot be negative")
	}

	entry, err := e.Store.GetEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, ErrEntryNotFound
	}
	if !entry.Validated {
		return nil, ErrNotValidated
	}

	now := time.Now().UTC()
	entry.ActualHours = hours.Round(2)
	entry.CorrectionNote = note
	entry.ValidatedBy = actor.UserID
	entry.ValidatedAt = &now
	entry.UpdatedAt = now

	if err := e.Store.UpdateEntry(ctx, *entry); err != nil {
		return nil, err
	}
	return entry, nil
}
