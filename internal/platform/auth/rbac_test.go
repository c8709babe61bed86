package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/lims/lims/internal/platform/apperr"
)

func contextWithRole(role string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if role != "" {
		req = req.WithContext(WithClaims(req.Context(), &Claims{UserID: "u1", OrgID: 1, Role: role}))
	}
	return e.NewContext(req, httptest.NewRecorder())
}

func TestRequireRole(t *testing.T) {
	ok := func(c echo.Context) error { return nil }

	if err := RequireRole(RoleAdmin)(ok)(contextWithRole(RoleAdmin)); err != nil {
		t.Errorf("admin should pass: %v", err)
	}
	if err := RequireRole(RoleAdmin, RoleUser)(ok)(contextWithRole(RoleUser)); err != nil {
		t.Errorf("user should pass when listed: %v", err)
	}

	err := RequireRole(RoleAdmin)(ok)(contextWithRole(RoleUser))
	if !errors.Is(err, apperr.ErrForbidden) {
		t.Errorf("expected forbidden, got %v", err)
	}
	if err.Error() != "required role: ADMIN" {
		t.Errorf("unexpected message %q", err.Error())
	}

	if err := RequireRole(RoleAdmin)(ok)(contextWithRole("")); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("expected unauthorized without claims, got %v", err)
	}
}
