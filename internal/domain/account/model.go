package account

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lims/lims/internal/platform/auth"
)

// Account is an authenticated identity. Password hash and the stored
// refresh token never leave the server.
type Account struct {
	ID           uuid.UUID `json:"id"`
	OrgID        int64     `json:"orgid"`
	Email        string    `json:"email"`
	PasswordHash *string   `json:"-"`
	Role         string    `json:"role"`
	Active       bool      `json:"active"`
	GoogleID     *string   `json:"googleId,omitempty"`
	RefreshToken *string   `json:"-"`
	Name         string    `json:"name"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (a *Account) Subject() auth.Subject {
	return auth.Subject{UserID: a.ID, OrgID: a.OrgID, Role: a.Role, Email: a.Email}
}

// NormalizeEmail lower-cases and trims an address so uniqueness is
// case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidRole(role string) bool {
	return role == auth.RoleAdmin || role == auth.RoleUser
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type CreateUserRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=ADMIN USER"`
}

type SetActiveRequest struct {
	Active *bool `json:"active" validate:"required"`
}

// Session is the result of a successful login or refresh.
type Session struct {
	Account *Account
	Tokens  *auth.TokenPair
}
