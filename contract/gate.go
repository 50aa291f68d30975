/*
gate.go - The clock-in gate and the signing operations

GATE ORDER:
 1. Framework contract signed? Blocks everyone until signed.
 2. Student worker on this shift? Needs a signed contract for THIS
    shift; the blocked error carries the terms so the caller can render
    the consent screen and come straight back.

Both blocking errors are typed so the kiosk and the portal can tell
"sign the framework first" apart from "sign for this shift".
*/
package contract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/horeca/flexi-engine/shift"
	"github.com/horeca/flexi-engine/worker"
)

// =============================================================================
// BLOCKING ERRORS
// =============================================================================

var ErrFrameworkRequired = errors.New("framework contract must be signed before any work")

// ShiftContractRequiredError blocks a student clock-in and carries the
// terms the consent screen must display.
type ShiftContractRequiredError struct {
	Terms Terms
}

func (e *ShiftContractRequiredError) Error() string {
	return fmt.Sprintf("student contract for shift %s must be signed before clock-in", e.Terms.ShiftID)
}

// =============================================================================
// GATE
// =============================================================================

type Gate struct {
	Store    Store
	Renderer Renderer // optional; nil skips PDF rendering
}

// Check decides whether the worker may start working this shift.
// Returns nil when clear, ErrFrameworkRequired or a typed
// *ShiftContractRequiredError when blocked.
func (g *Gate) Check(ctx context.Context, w worker.Worker, s shift.Shift, loc shift.Location) error {
	if w.FrameworkSignedAt == nil {
		fc, err := g.Store.GetFrameworkContract(ctx, w.ID)
		if err != nil {
			return err
		}
		if fc == nil {
			return ErrFrameworkRequired
		}
	}

	if w.Status != worker.StatusStudent {
		return nil
	}

	sc, err := g.Store.GetShiftContract(ctx, s.ID)
	if err != nil {
		return err
	}
	if sc != nil {
		return nil
	}

	return &ShiftContractRequiredError{Terms: Terms{
		WorkerID:     w.ID,
		ShiftID:      s.ID,
		HourlyRate:   w.HourlyRate,
		Date:         s.Date,
		Start:        s.Start,
		End:          s.End,
		LocationName: loc.Name,
	}}
}

// =============================================================================
// SIGNING
// =============================================================================

// SignFramework records the employer-relationship framework contract.
// Replays return the existing record instead of a duplicate.
func (g *Gate) SignFramework(ctx context.Context, w worker.Worker, signatureRef string) (*Contract, error) {
	if signatureRef == "" {
		return nil, fmt.Errorf("a signature artifact is required")
	}

	existing, err := g.Store.GetFrameworkContract(ctx, w.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	c := Contract{
		ID:           uuid.NewString(),
		Kind:         KindFramework,
		WorkerID:     w.ID,
		SignedAt:     time.Now().UTC(),
		SignatureRef: signatureRef,
		HourlyRate:   w.HourlyRate,
	}
	c.DocumentRef = g.render(ctx, c)

	if err := g.Store.InsertContract(ctx, c); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return g.Store.GetFrameworkContract(ctx, w.ID)
		}
		return nil, err
	}
	return &c, nil
}

// SignShiftContract records the per-shift student contract with its
// terms snapshot. Replays for the same shift return the existing record.
func (g *Gate) SignShiftContract(ctx context.Context, w worker.Worker, s shift.Shift, loc shift.Location, signatureRef string) (*Contract, error) {
	if signatureRef == "" {
		return nil, fmt.Errorf("a signature artifact is required")
	}
	if w.Status != worker.StatusStudent {
		return nil, fmt.Errorf("per-shift contracts apply to student workers only")
	}

	existing, err := g.Store.GetShiftContract(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	c := Contract{
		ID:           uuid.NewString(),
		Kind:         KindStudent,
		WorkerID:     w.ID,
		ShiftID:      s.ID,
		SignedAt:     time.Now().UTC(),
		SignatureRef: signatureRef,
		HourlyRate:   w.HourlyRate,
		Date:         s.Date,
		Start:        s.Start,
		End:          s.End,
		LocationName: loc.Name,
	}
	c.DocumentRef = g.render(ctx, c)

	if err := g.Store.InsertContract(ctx, c); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return g.Store.GetShiftContract(ctx, s.ID)
		}
		return nil, err
	}
	return &c, nil
}

func (g *Gate) render(ctx context.Context, c Contract) string {
	if g.Renderer == nil {
		return ""
	}
	ref, err := g.Renderer.Render(ctx, c)
	if err != nil {
		// Rendering is a convenience; the signature record stands alone.
		return ""
	}
	return ref
}
