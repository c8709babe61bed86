package auth

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/lims/lims/internal/platform/apperr"
)

// OrgIDHeader carries the tenant the caller claims to act for.
const OrgIDHeader = "X-Org-ID"

type contextKey string

const claimsKey contextKey = "auth_claims"

// Verifier is the part of TokenIssuer the gate needs.
type Verifier interface {
	VerifyAccess(token string) (*Claims, error)
}

// Authorize extracts the bearer token and tenant header from r and checks
// that they agree. Missing or unverifiable credentials are Unauthorized; a
// token issued for another tenant is Forbidden. Tenant ids are compared as
// strings.
func Authorize(r *http.Request, v Verifier) (*Claims, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, apperr.Unauthorized("missing authorization header")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return nil, apperr.Unauthorized("invalid authorization format")
	}

	orgHeader := strings.TrimSpace(r.Header.Get(OrgIDHeader))
	if orgHeader == "" {
		return nil, apperr.Unauthorized("missing " + OrgIDHeader + " header")
	}

	claims, err := v.VerifyAccess(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, apperr.Unauthorized("invalid or expired token")
	}

	if strconv.FormatInt(claims.OrgID, 10) != orgHeader {
		return nil, apperr.Forbidden("organization mismatch")
	}
	return claims, nil
}

// Gate rejects requests that fail Authorize and stores the claims on the
// request context for downstream handlers.
func Gate(v Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, err := Authorize(c.Request(), v)
			if err != nil {
				return err
			}
			c.Set("org_id", strconv.FormatInt(claims.OrgID, 10))
			c.SetRequest(c.Request().WithContext(WithClaims(c.Request().Context(), claims)))
			return next(c)
		}
	}
}

func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func ClaimsFromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok && claims != nil
}

// MustClaims returns the gate's claims for a handler on a protected route.
// Reaching a handler without them means the route was wired without Gate.
func MustClaims(c echo.Context) (*Claims, error) {
	claims, ok := ClaimsFromContext(c.Request().Context())
	if !ok {
		return nil, apperr.Unauthorized("not authenticated")
	}
	return claims, nil
}
