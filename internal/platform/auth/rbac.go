package auth

import (
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/lims/lims/internal/platform/apperr"
)

// RequireRole allows the request when the caller holds one of roles. It must
// run after Gate.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := ClaimsFromContext(c.Request().Context())
			if !ok {
				return apperr.Unauthorized("not authenticated")
			}
			for _, r := range roles {
				if claims.Role == r {
					return next(c)
				}
			}
			return apperr.Forbidden(fmt.Sprintf("required role: %s", strings.Join(roles, " or ")))
		}
	}
}
