package account

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, a *Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetInOrg(ctx context.Context, orgID int64, id uuid.UUID) (*Account, error)
	ListByOrg(ctx context.Context, orgID int64, limit, offset int) ([]*Account, int, error)
	SetActive(ctx context.Context, orgID int64, id uuid.UUID, active bool) error
	ActivateByEmail(ctx context.Context, email string) error
	// SetRefreshToken overwrites the stored token; nil clears it.
	SetRefreshToken(ctx context.Context, id uuid.UUID, token *string) error
	// RotateRefreshToken replaces old with next only if old is still the
	// stored token. It reports whether the swap happened.
	RotateRefreshToken(ctx context.Context, id uuid.UUID, old, next string) (bool, error)
}
