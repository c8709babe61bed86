package printsettings

import (
	"context"

	"github.com/rs/zerolog"
)

type Service struct {
	repo   Repository
	logger zerolog.Logger
}

func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With().Str("component", "printsettings").Logger()}
}

func (s *Service) Get(ctx context.Context, orgID int64) (*Settings, error) {
	st, err := s.repo.Get(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return Defaults(orgID), nil
	}
	return st, nil
}

// Upsert replaces the organization's settings.
func (s *Service) Upsert(ctx context.Context, orgID int64, in Settings) (*Settings, error) {
	in.OrgID = orgID
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.repo.Upsert(ctx, &in); err != nil {
		return nil, err
	}
	s.logger.Debug().Int64("orgid", orgID).Msg("print settings saved")
	return &in, nil
}
