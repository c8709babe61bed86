package printsettings

import "context"

type Repository interface {
	// Get returns nil, nil when the organization has no saved settings.
	Get(ctx context.Context, orgID int64) (*Settings, error)
	Upsert(ctx context.Context, s *Settings) error
}
