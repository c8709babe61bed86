package account

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lims/lims/internal/platform/apperr"
	"github.com/lims/lims/internal/platform/auth"
)

var errInvalidCredentials = apperr.Unauthorized("invalid email or password")

// Tokens issues and verifies the session token pair.
type Tokens interface {
	Issue(s auth.Subject) (*auth.TokenPair, error)
	VerifyRefresh(token string) (*auth.RefreshClaims, error)
}

type Service struct {
	repo   Repository
	tokens Tokens
	logger zerolog.Logger
}

func NewService(repo Repository, tokens Tokens, logger zerolog.Logger) *Service {
	return &Service{repo: repo, tokens: tokens, logger: logger.With().Str("component", "account").Logger()}
}

// Login checks credentials and starts a new session, replacing any session
// the account already had.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	a, err := s.repo.GetByEmail(ctx, req.Email)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, errInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if a.PasswordHash == nil || !auth.CheckPassword(*a.PasswordHash, req.Password) {
		return nil, errInvalidCredentials
	}
	if !a.Active {
		return nil, apperr.Forbidden("account is not active")
	}

	pair, err := s.tokens.Issue(a.Subject())
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if err := s.repo.SetRefreshToken(ctx, a.ID, &pair.RefreshToken); err != nil {
		return nil, err
	}
	return &Session{Account: a, Tokens: pair}, nil
}

// Refresh exchanges a refresh token for a new pair. A token that verifies but
// is no longer the stored one means it was replayed; the stored session is
// revoked so both holders must log in again.
func (s *Service) Refresh(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, apperr.Unauthorized("missing refresh token")
	}
	claims, err := s.tokens.VerifyRefresh(token)
	if err != nil {
		return nil, apperr.Unauthorized("invalid or expired refresh token")
	}
	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, apperr.Unauthorized("invalid or expired refresh token")
	}

	a, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Unauthorized("invalid or expired refresh token")
	}
	if err != nil {
		return nil, err
	}
	if !a.Active {
		return nil, apperr.Forbidden("account is not active")
	}

	if a.RefreshToken == nil || *a.RefreshToken != token {
		s.revoke(ctx, a.ID)
		return nil, apperr.Unauthorized("refresh token has been revoked")
	}

	pair, err := s.tokens.Issue(a.Subject())
	if err != nil {
		return nil, apperr.Internal(err)
	}
	swapped, err := s.repo.RotateRefreshToken(ctx, a.ID, token, pair.RefreshToken)
	if err != nil {
		return nil, err
	}
	if !swapped {
		// Lost a race with another refresh using the same token.
		s.revoke(ctx, a.ID)
		return nil, apperr.Unauthorized("refresh token has been revoked")
	}
	return &Session{Account: a, Tokens: pair}, nil
}

func (s *Service) revoke(ctx context.Context, id uuid.UUID) {
	s.logger.Warn().Str("user_id", id.String()).Msg("refresh token mismatch, revoking session")
	if err := s.repo.SetRefreshToken(ctx, id, nil); err != nil {
		s.logger.Error().Err(err).Str("user_id", id.String()).Msg("revoke session")
	}
}

// Logout clears the stored refresh token.
func (s *Service) Logout(ctx context.Context, userID uuid.UUID) error {
	return s.repo.SetRefreshToken(ctx, userID, nil)
}

func (s *Service) Me(ctx context.Context, orgID int64, userID uuid.UUID) (*Account, error) {
	return s.repo.GetInOrg(ctx, orgID, userID)
}

// CreateUser adds an active staff account to orgID.
func (s *Service) CreateUser(ctx context.Context, orgID int64, req CreateUserRequest) (*Account, error) {
	if req.Name == "" {
		return nil, apperr.Validation("name is required")
	}
	if req.Role == "" {
		req.Role = auth.RoleUser
	}
	if !ValidRole(req.Role) {
		return nil, apperr.Validation("role must be one of [ADMIN USER]")
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperr.Validation("%s", err.Error())
	}

	a := &Account{
		OrgID:        orgID,
		Email:        NormalizeEmail(req.Email),
		PasswordHash: &hash,
		Role:         req.Role,
		Active:       true,
		Name:         req.Name,
	}
	if a.Email == "" {
		return nil, apperr.Validation("email is required")
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) ListUsers(ctx context.Context, orgID int64, limit, offset int) ([]*Account, int, error) {
	return s.repo.ListByOrg(ctx, orgID, limit, offset)
}

// SetActive toggles an account in the caller's organization. Admins cannot
// deactivate themselves.
func (s *Service) SetActive(ctx context.Context, orgID int64, actorID, id uuid.UUID, active bool) (*Account, error) {
	if actorID == id && !active {
		return nil, apperr.Validation("cannot deactivate your own account")
	}
	if err := s.repo.SetActive(ctx, orgID, id, active); err != nil {
		return nil, err
	}
	if !active {
		if err := s.repo.SetRefreshToken(ctx, id, nil); err != nil {
			return nil, err
		}
	}
	return s.repo.GetInOrg(ctx, orgID, id)
}

// Activate enables a freshly registered account by email.
func (s *Service) Activate(ctx context.Context, email string) error {
	if NormalizeEmail(email) == "" {
		return apperr.Validation("email is required")
	}
	return s.repo.ActivateByEmail(ctx, email)
}
