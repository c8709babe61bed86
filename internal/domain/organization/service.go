package organization

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/lims/lims/internal/domain/account"
	"github.com/lims/lims/internal/platform/apperr"
	"github.com/lims/lims/internal/platform/auth"
	"github.com/lims/lims/internal/platform/db"
	"github.com/lims/lims/internal/platform/validate"
)

const maxIDAttempts = 5

// AccountCreator stores the registering admin account.
type AccountCreator interface {
	Create(ctx context.Context, a *account.Account) error
}

type Service struct {
	repo     Repository
	accounts AccountCreator
	tx       db.Transactor
	logger   zerolog.Logger

	// swapped in tests
	genOrgID func() (int64, error)
	genSPID  func() (string, error)
}

func NewService(repo Repository, accounts AccountCreator, tx db.Transactor, logger zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		accounts: accounts,
		tx:       tx,
		logger:   logger.With().Str("component", "organization").Logger(),
		genOrgID: newOrgID,
		genSPID:  newSPID,
	}
}

// Register creates an organization and its first ADMIN account in one
// transaction. The account starts inactive and must be activated before it
// can log in.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Organization, *account.Account, error) {
	req.OrgName = strings.TrimSpace(req.OrgName)
	if req.OrgName == "" {
		return nil, nil, apperr.Validation("orgName is required")
	}
	email := account.NormalizeEmail(req.Email)
	if email == "" {
		return nil, nil, apperr.Validation("email is required")
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, nil, apperr.Validation("%s", err.Error())
	}

	org := &Organization{
		Name:    req.OrgName,
		Email:   email,
		Phone:   validate.NormalizePhone(req.Phone),
		Address: req.Address,
	}
	admin := &account.Account{
		Email:        email,
		PasswordHash: &hash,
		Role:         auth.RoleAdmin,
		Active:       false,
		Name:         req.AdminName,
	}

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.insertWithFreshIDs(ctx, org); err != nil {
			return err
		}
		admin.OrgID = org.OrgID
		return s.accounts.Create(ctx, admin)
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info().Int64("orgid", org.OrgID).Str("spid", org.SPID).Msg("organization registered")
	return org, admin, nil
}

func (s *Service) insertWithFreshIDs(ctx context.Context, org *Organization) error {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		orgID, err := s.genOrgID()
		if err != nil {
			return apperr.Internal(fmt.Errorf("generate orgid: %w", err))
		}
		spid, err := s.genSPID()
		if err != nil {
			return apperr.Internal(fmt.Errorf("generate spid: %w", err))
		}
		org.OrgID, org.SPID = orgID, spid

		ok, err := s.repo.Create(ctx, org)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		s.logger.Debug().Int("attempt", attempt+1).Msg("organization id collision, retrying")
	}
	return apperr.Internal(fmt.Errorf("could not allocate organization id after %d attempts", maxIDAttempts))
}

func (s *Service) Get(ctx context.Context, orgID int64) (*Organization, error) {
	return s.repo.GetByOrgID(ctx, orgID)
}

// Update applies a partial update. The tenant id itself is not editable.
func (s *Service) Update(ctx context.Context, orgID int64, req UpdateRequest) (*Organization, error) {
	org, err := s.repo.GetByOrgID(ctx, orgID)
	if err != nil {
		return nil, err
	}
	req.Apply(org)
	org.Name = strings.TrimSpace(org.Name)
	if org.Name == "" {
		return nil, apperr.Validation("name is required")
	}
	org.Phone = validate.NormalizePhone(org.Phone)
	if err := s.repo.Update(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}
