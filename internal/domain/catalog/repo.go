package catalog

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, t *TestDefinition) error
	Get(ctx context.Context, orgID int64, id uuid.UUID) (*TestDefinition, error)
	GetMany(ctx context.Context, orgID int64, ids []uuid.UUID) ([]*TestDefinition, error)
	Update(ctx context.Context, t *TestDefinition) error
	Delete(ctx context.Context, orgID int64, id uuid.UUID) error
	List(ctx context.Context, orgID int64, f ListFilter, limit, offset int) ([]*TestDefinition, int, error)

	// SetParent points every listed test at parent, or clears the link when
	// parent is nil. Returns the number of rows touched.
	SetParent(ctx context.Context, orgID int64, ids []uuid.UUID, parent *uuid.UUID) (int64, error)
	SetSubTests(ctx context.Context, orgID int64, groupID uuid.UUID, ids []uuid.UUID) error
	// RemoveSubTest drops child from the SubTests list of its group.
	RemoveSubTest(ctx context.Context, orgID int64, groupID, child uuid.UUID) error
}
