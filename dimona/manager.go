/*
manager.go - Declaration push, batching, retries, manual reporting

PUSH FLOW:

	ready -> sent (persisted) -> Declare() -> ok | nok | error

	The sent status is persisted before the network call so a crash
	mid-call leaves a visibly in-flight declaration rather than a silent
	loss. The outcome is persisted after.

FAILURE SEMANTICS:
  - Timeout / network failure  -> status error (retryable, error->sent)
  - Structured ONSS rejection  -> status nok (needs human correction)
    Both record the failure text on the declaration; nothing is dropped.

BATCHING:

	PushReady attempts every ready declaration. Items fail independently;
	the result is (succeeded, failed), never an all-or-nothing abort.

MANUAL FALLBACK:

	When the manager files through the government portal by hand, they
	self-report the outcome with ManualReport (ok + period id, or nok).
*/
package dimona

import (
	"context"
	"errors"
	"fmt"
	"log"
)

type Manager struct {
	Store     Store
	Declarant Declarant
}

// =============================================================================
// PUSH - Single declaration
// =============================================================================

// Push files one ready (or errored, when retrying) declaration through
// the configured declarant.
func (m *Manager) Push(ctx context.Context, declarationID string) (*Declaration, error) {
	d, err := m.Store.GetDeclaration(ctx, declarationID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrNotFound
	}

	if d.Status != StatusReady && d.Status != StatusError {
		return nil, &TransitionError{From: d.Status, To: StatusSent}
	}

	if err := d.Transition(StatusSent); err != nil {
		return nil, err
	}
	if err := m.Store.UpdateDeclaration(ctx, *d); err != nil {
		return nil, fmt.Errorf("failed to mark declaration sent: %w", err)
	}

	periodID, declareErr := m.Declarant.Declare(ctx, *d)
	if declareErr != nil {
		return m.recordFailure(ctx, d, declareErr)
	}

	d.PeriodID = periodID
	d.LastError = ""
	if err := d.Transition(StatusOK); err != nil {
		return nil, err
	}
	if err := m.Store.UpdateDeclaration(ctx, *d); err != nil {
		return nil, fmt.Errorf("failed to record accepted declaration: %w", err)
	}
	return d, nil
}

func (m *Manager) recordFailure(ctx context.Context, d *Declaration, declareErr error) (*Declaration, error) {
	if errors.Is(declareErr, ErrManualOnly) {
		// Roll back to ready; the declaration waits for a manual report.
		d.Status = StatusReady
		d.LastError = declareErr.Error()
		if err := m.Store.UpdateDeclaration(ctx, *d); err != nil {
			return nil, err
		}
		return d, declareErr
	}

	var collab *CollaboratorError
	target := StatusNOK
	if errors.As(declareErr, &collab) && collab.Retryable() {
		target = StatusError
	}

	d.LastError = declareErr.Error()
	if err := d.Transition(target); err != nil {
		return nil, err
	}
	if err := m.Store.UpdateDeclaration(ctx, *d); err != nil {
		return nil, fmt.Errorf("failed to record declaration failure: %w", err)
	}
	return d, declareErr
}

// =============================================================================
// BATCH
// =============================================================================

type BatchResult struct {
	Succeeded int
	Failed    int
}

// PushReady attempts all ready declarations. Per-item failures are
// expected and reported, not fatal to the batch.
func (m *Manager) PushReady(ctx context.Context) (BatchResult, error) {
	ready, err := m.Store.ListDeclarations(ctx, StatusReady)
	if err != nil {
		return BatchResult{}, err
	}

	var result BatchResult
	for _, d := range ready {
		if _, err := m.Push(ctx, d.ID); err != nil {
			result.Failed++
			log.Printf("dimona: declaration %s failed: %v", d.ID, err)
			continue
		}
		result.Succeeded++
	}
	return result, nil
}

// RetryErrored re-pushes declarations stuck in the error status.
func (m *Manager) RetryErrored(ctx context.Context) (BatchResult, error) {
	errored, err := m.Store.ListDeclarations(ctx, StatusError)
	if err != nil {
		return BatchResult{}, err
	}

	var result BatchResult
	for _, d := range errored {
		if _, err := m.Push(ctx, d.ID); err != nil {
			result.Failed++
			continue
		}
		result.Succeeded++
	}
	return result, nil
}

// =============================================================================
// MANUAL REPORTING
// =============================================================================

// ManualReport records the outcome of a declaration the manager filed by
// hand through the government portal.
func (m *Manager) ManualReport(ctx context.Context, declarationID string, outcome Status, periodID, notes string) (*Declaration, error) {
	if outcome != StatusOK && outcome != StatusNOK {
		return nil, fmt.Errorf("manual outcome must be ok or nok, got %q", outcome)
	}
	if outcome == StatusOK && periodID == "" {
		return nil, fmt.Errorf("an accepted declaration needs the portal period id")
	}

	d, err := m.Store.GetDeclaration(ctx, declarationID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrNotFound
	}

	if d.Status != StatusReady && d.Status != StatusSent && d.Status != StatusError {
		return nil, &TransitionError{From: d.Status, To: outcome}
	}

	// The portal path skips sent-by-us; normalize through sent so the
	// transition table stays closed.
	if d.Status != StatusSent {
		if err := d.Transition(StatusSent); err != nil {
			return nil, err
		}
	}
	if err := d.Transition(outcome); err != nil {
		return nil, err
	}

	d.PeriodID = periodID
	if notes != "" {
		d.Notes = notes
	}
	d.LastError = ""

	if err := m.Store.UpdateDeclaration(ctx, *d); err != nil {
		return nil, err
	}
	return d, nil
}

// =============================================================================
// RETRACTIONS - Cancelled shifts whose ONSS retraction is still owed
// =============================================================================

// RetryRetractions delivers CANCELs for declarations that were cancelled
// locally but not yet retracted at the ONSS. Called after a cascade
// whose external cancel failed, or periodically.
func (m *Manager) RetryRetractions(ctx context.Context) (BatchResult, error) {
	owed, err := m.Store.ListRetractionsOwed(ctx)
	if err != nil {
		return BatchResult{}, err
	}

	var result BatchResult
	for _, d := range owed {
		if err := m.Declarant.Cancel(ctx, d.PeriodID, d.CancelReason); err != nil {
			d.LastError = err.Error()
			if uerr := m.Store.UpdateDeclaration(ctx, d); uerr != nil {
				log.Printf("dimona: failed to record retraction error for %s: %v", d.ID, uerr)
			}
			result.Failed++
			continue
		}
		d.RetractionOwed = false
		d.LastError = ""
		if err := m.Store.UpdateDeclaration(ctx, d); err != nil {
			result.Failed++
			continue
		}
		result.Succeeded++
	}
	return result, nil
}
