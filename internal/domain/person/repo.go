package person

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, p *Person) error
	Get(ctx context.Context, orgID int64, id uuid.UUID) (*Person, error)
	Update(ctx context.Context, p *Person) error
	Delete(ctx context.Context, orgID int64, id uuid.UUID) error
	List(ctx context.Context, orgID int64, f ListFilter, limit, offset int) ([]*Person, int, error)
}
