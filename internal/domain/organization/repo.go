package organization

import (
	"context"
)

type Repository interface {
	// Create inserts o. It reports false, without error, when the generated
	// OrgID or SPID is already taken.
	Create(ctx context.Context, o *Organization) (bool, error)
	GetByOrgID(ctx context.Context, orgID int64) (*Organization, error)
	Update(ctx context.Context, o *Organization) error
}
