/*
service.go - Worker provisioning and lifecycle

PROVISIONING:

	Creating a worker is a two-step operation against two systems: an
	identity at the external provider, then the roster row here. The row
	insert can fail (duplicate NISS, db error) after the identity already
	exists, so the service compensates by deleting the identity again.
	A worker is never left half-created.

DEACTIVATION:

	Workers are never deleted; history (time entries, cost lines, Dimona
	declarations) must survive. Deactivation flips the Active flag, which
	blocks PIN verification and clock-ins downstream.
*/
package worker

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IdentityProvider is the external identity collaborator. The engine
// never authenticates anyone itself.
type IdentityProvider interface {
	CreateIdentity(ctx context.Context, email, role string) (string, error)
	DeleteIdentity(ctx context.Context, identityID string) error
}

// Store is the persistence interface for workers.
type Store interface {
	CreateWorker(ctx context.Context, w Worker, pinHash, pinSalt string) error
	GetWorker(ctx context.Context, id string) (*Worker, error)
	ListWorkers(ctx context.Context, activeOnly bool) ([]Worker, error)
	DeactivateWorker(ctx context.Context, id string) error
	CorrectYTD(ctx context.Context, id string, newYTD decimal.Decimal, actorID, note string) error
}

// PINHasher turns a raw PIN into a stored hash. Implemented by the pin
// package; the worker service never sees stored hashes again.
type PINHasher interface {
	Hash(pin string) (hash, salt string)
}

type Service struct {
	Store    Store
	Identity IdentityProvider
	Hasher   PINHasher
}

type ProvisionInput struct {
	Name       string
	Email      string
	NISS       string
	IBAN       string
	Status     Status
	HourlyRate decimal.Decimal
	PIN        string
}

var pinPattern = regexp.MustCompile(`^\d{4}$`)

// Provision creates the identity and the worker record. If the record
// insert fails the identity is deleted again (compensating rollback).
func (s *Service) Provision(ctx context.Context, in ProvisionInput) (*Worker, error) {
	if in.Name == "" || in.Email == "" {
		return nil, fmt.Errorf("%w: name and email are required", ErrInvalidStatus)
	}
	if !in.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, in.Status)
	}
	if !in.HourlyRate.IsPositive() {
		return nil, ErrInvalidRate
	}
	if !pinPattern.MatchString(in.PIN) {
		return nil, ErrInvalidPIN
	}

	identityID, err := s.Identity.CreateIdentity(ctx, in.Email, "flexi")
	if err != nil {
		return nil, fmt.Errorf("failed to create identity: %w", err)
	}

	now := time.Now().UTC()
	w := Worker{
		ID:              uuid.NewString(),
		IdentityID:      identityID,
		Name:            in.Name,
		Email:           in.Email,
		NISS:            in.NISS,
		IBAN:            in.IBAN,
		Status:          in.Status,
		HourlyRate:      in.HourlyRate,
		YTDEarnings:     decimal.Zero,
		ProfileComplete: in.NISS != "" && in.IBAN != "",
		Active:          true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	hash, salt := s.Hasher.Hash(in.PIN)
	if err := s.Store.CreateWorker(ctx, w, hash, salt); err != nil {
		// Roll the identity back; a half-created worker is worse than a
		// failed creation. The delete error is secondary.
		if delErr := s.Identity.DeleteIdentity(ctx, identityID); delErr != nil {
			return nil, fmt.Errorf("failed to create worker record: %w (identity %s left orphaned: %v)", err, identityID, delErr)
		}
		return nil, fmt.Errorf("failed to create worker record: %w", err)
	}

	return &w, nil
}

// Deactivate retires a worker while preserving all history.
func (s *Service) Deactivate(ctx context.Context, id string) error {
	w, err := s.Store.GetWorker(ctx, id)
	if err != nil {
		return err
	}
	if w == nil {
		return ErrNotFound
	}
	return s.Store.DeactivateWorker(ctx, id)
}

// CorrectYTD is the explicit admin override for year-to-date earnings.
// Everything else goes through payroll period regeneration.
func (s *Service) CorrectYTD(ctx context.Context, id string, newYTD decimal.Decimal, actorID, note string) error {
	if newYTD.IsNegative() {
		return fmt.Errorf("ytd cannot be negative")
	}
	if note == "" {
		return fmt.Errorf("a correction note is required")
	}
	return s.Store.CorrectYTD(ctx, id, newYTD, actorID, note)
}
