package identity

import (
	"context"

	"github.com/google/uuid"
)

// LocalProvider mints opaque identity IDs locally. Used when no
// external identity collaborator is configured; the IDs are accepted
// by the gateway as-is.
type LocalProvider struct{}

func (LocalProvider) CreateIdentity(ctx context.Context, email, role string) (string, error) {
	return uuid.NewString(), nil
}

func (LocalProvider) DeleteIdentity(ctx context.Context, identityID string) error {
	return nil
}
