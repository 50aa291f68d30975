/*
Package pin guards the unauthenticated kiosk flows.

PURPOSE:

	The shared tablet at a restaurant has no user session. A worker proves
	who they are with a 4-digit PIN. This package owns the stored PIN
	secret, the failure counter, and the temporary lockout that stops
	brute-forcing a 4-digit space.

LOCKOUT RULES:
  - 5 consecutive failures lock the worker for 5 minutes.
  - Attempts during the lockout fail immediately with the remaining
    time and do NOT increment the counter.
  - When the lockout expires, the counter is reset before the next
    attempt is evaluated.
  - A success resets the counter to zero.

SECRECY:

	The stored PIN never leaves this package. Verify returns only the
	worker's id and display name on success. PINs are stored as salted
	SHA-256 and compared in constant time.

CONCURRENCY:

	Counter updates are serialized under the verifier's mutex so that
	concurrent attempts cannot slip past the 5-attempt cap.
*/
package pin

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"
)

const (
	// MaxAttempts is the number of consecutive failures before lockout.
	MaxAttempts = 5

	// LockoutDuration is how long a locked worker must wait.
	LockoutDuration = 5 * time.Minute
)

var (
	ErrWorkerNotFound = errors.New("worker not found")
	ErrWorkerInactive = errors.New("worker is deactivated")
	ErrInvalidPIN     = errors.New("pin must be exactly 4 digits")
	ErrWrongPIN       = errors.New("wrong pin")
)

var pinPattern = regexp.MustCompile(`^\d{4}$`)

// =============================================================================
// ERRORS WITH CONTEXT
// =============================================================================

// LockedError is returned while a worker is locked out.
type LockedError struct {
	RemainingMinutes int
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("too many failed attempts, locked for %d more minute(s)", e.RemainingMinutes)
}

// WrongPINError carries how many attempts remain before lockout.
type WrongPINError struct {
	AttemptsLeft int
}

func (e *WrongPINError) Error() string {
	return fmt.Sprintf("wrong pin, %d attempt(s) left", e.AttemptsLeft)
}

func (e *WrongPINError) Unwrap() error { return ErrWrongPIN }

// =============================================================================
// STORE
// =============================================================================

// Credential is the verifier-owned secret state for one worker.
type Credential struct {
	WorkerID       string
	Name           string
	Active         bool
	Hash           string
	Salt           string
	FailedAttempts int
	LockedUntil    *time.Time
}

// Store persists credentials. Implemented by store/sqlite.
type Store interface {
	GetCredential(ctx context.Context, workerID string) (*Credential, error)
	SetAttempts(ctx context.Context, workerID string, attempts int, lockedUntil *time.Time) error
}

// =============================================================================
// IDENTITY - The only thing a successful verify reveals
// =============================================================================

type Identity struct {
	WorkerID string
	Name     string
}

// =============================================================================
// VERIFIER
// =============================================================================

type Verifier struct {
	Store Store

	// Now is the clock; overridable in tests. Defaults to time.Now.
	Now func() time.Time

	mu sync.Mutex
}

func NewVerifier(store Store) *Verifier {
	return &Verifier{Store: store, Now: time.Now}
}

// Verify checks a worker's PIN, maintaining the failure counter and
// lockout. On success it returns the worker's public identity only.
func (v *Verifier) Verify(ctx context.Context, workerID, pin string) (*Identity, error) {
	if !pinPattern.MatchString(pin) {
		return nil, ErrInvalidPIN
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	cred, err := v.Store.GetCredential(ctx, workerID)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, ErrWorkerNotFound
	}
	if !cred.Active {
		return nil, ErrWorkerInactive
	}

	clock := v.Now
	if clock == nil {
		clock = time.Now
	}
	now := clock()

	if cred.LockedUntil != nil {
		if now.Before(*cred.LockedUntil) {
			remaining := int(cred.LockedUntil.Sub(now).Minutes()) + 1
			return nil, &LockedError{RemainingMinutes: remaining}
		}
		// Lock expired: reset before re-evaluating.
		cred.FailedAttempts = 0
		cred.LockedUntil = nil
	}

	if !matches(cred.Hash, cred.Salt, pin) {
		attempts := cred.FailedAttempts + 1
		var lockedUntil *time.Time
		if attempts >= MaxAttempts {
			t := now.Add(LockoutDuration)
			lockedUntil = &t
		}
		if err := v.Store.SetAttempts(ctx, workerID, attempts, lockedUntil); err != nil {
			return nil, err
		}
		if lockedUntil != nil {
			return nil, &LockedError{RemainingMinutes: int(LockoutDuration.Minutes())}
		}
		return nil, &WrongPINError{AttemptsLeft: MaxAttempts - attempts}
	}

	if err := v.Store.SetAttempts(ctx, workerID, 0, nil); err != nil {
		return nil, err
	}

	return &Identity{WorkerID: cred.WorkerID, Name: cred.Name}, nil
}

// =============================================================================
// HASHING
// =============================================================================

// Hasher produces salted PIN hashes for storage.
type Hasher struct{}

// Hash returns (hash, salt) for a raw PIN.
func (Hasher) Hash(pin string) (string, string) {
	saltBytes := make([]byte, 16)
	rand.Read(saltBytes)
	salt := hex.EncodeToString(saltBytes)
	return digest(salt, pin), salt
}

func digest(salt, pin string) string {
	sum := sha256.Sum256([]byte(salt + ":" + pin))
	return hex.EncodeToString(sum[:])
}

func matches(hash, salt, pin string) bool {
	return subtle.ConstantTimeCompare([]byte(hash), []byte(digest(salt, pin))) == 1
}
