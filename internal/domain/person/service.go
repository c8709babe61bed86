package person

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lims/lims/internal/platform/apperr"
	"github.com/lims/lims/internal/platform/validate"
)

// PublicViews drops cached public views that show a person.
type PublicViews interface {
	ForgetPerson(ctx context.Context, orgID int64, personID uuid.UUID)
}

type Service struct {
	repo   Repository
	views  PublicViews
	logger zerolog.Logger
}

// NewService builds the person service. Edits invalidate views when it is
// non-nil.
func NewService(repo Repository, views PublicViews, logger zerolog.Logger) *Service {
	return &Service{repo: repo, views: views, logger: logger.With().Str("component", "person").Logger()}
}

func (s *Service) Create(ctx context.Context, orgID int64, role Role, in Input) (*Person, error) {
	p := in.toPerson(role)
	p.OrgID = orgID
	if err := p.Normalize(); err != nil {
		return nil, err
	}
	p.Phone = validate.NormalizePhone(p.Phone)
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.logger.Debug().Int64("orgid", orgID).Str("role", string(role)).Str("id", p.ID.String()).Msg("person created")
	return p, nil
}

// Get returns the person only if it has the given role. A role mismatch is
// reported as not found so ids cannot be probed across the two routes.
func (s *Service) Get(ctx context.Context, orgID int64, role Role, id uuid.UUID) (*Person, error) {
	p, err := s.repo.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if p.Role != role {
		return nil, apperr.NotFound(resourceName(role))
	}
	return p, nil
}

// Expect checks that id names a person with role in the tenant. Callers
// referencing a person from another record get a Validation error instead
// of NotFound.
func (s *Service) Expect(ctx context.Context, orgID int64, role Role, id uuid.UUID) (*Person, error) {
	p, err := s.Get(ctx, orgID, role, id)
	if apperr.KindOf(err) == apperr.KindNotFound {
		return nil, apperr.Validation("%s %s does not exist", resourceName(role), id)
	}
	return p, err
}

// Lookup fetches any person in the tenant regardless of role.
func (s *Service) Lookup(ctx context.Context, orgID int64, id uuid.UUID) (*Person, error) {
	return s.repo.Get(ctx, orgID, id)
}

// Update replaces the editable fields. Doctor details not present in the
// input keep their stored values.
func (s *Service) Update(ctx context.Context, orgID int64, role Role, id uuid.UUID, in Input) (*Person, error) {
	p, err := s.Get(ctx, orgID, role, id)
	if err != nil {
		return nil, err
	}
	p.Name, p.Gender, p.Age = in.Name, in.Gender, in.Age
	p.Phone, p.Email, p.Address = in.Phone, in.Email, in.Address
	if role == RoleDoctor {
		if p.Doctor == nil {
			p.Doctor = &DoctorDetails{}
		}
		if in.HospitalName != nil {
			p.Doctor.HospitalName = *in.HospitalName
		}
		if in.RevenueShare != nil {
			p.Doctor.RevenueShare = *in.RevenueShare
		}
	} else if in.HospitalName != nil || in.RevenueShare != nil {
		return nil, apperr.Validation("doctor details are not allowed on a patient")
	}
	if err := p.Normalize(); err != nil {
		return nil, err
	}
	p.Phone = validate.NormalizePhone(p.Phone)
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	if s.views != nil {
		s.views.ForgetPerson(ctx, orgID, p.ID)
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, orgID int64, role Role, id uuid.UUID) error {
	if _, err := s.Get(ctx, orgID, role, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, orgID, id)
}

func (s *Service) List(ctx context.Context, orgID int64, f ListFilter, limit, offset int) ([]*Person, int, error) {
	return s.repo.List(ctx, orgID, f, limit, offset)
}
