package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/lims/lims/internal/platform/apperr"
)

func gatedRequest(t *testing.T, ti *TokenIssuer, authHeader, orgHeader string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	if orgHeader != "" {
		req.Header.Set(OrgIDHeader, orgHeader)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestAuthorize(t *testing.T) {
	ti := newTestIssuer(t)
	pair, _ := ti.Issue(testSubject())
	bearer := "Bearer " + pair.AccessToken

	tests := []struct {
		name     string
		auth     string
		org      string
		wantKind apperr.Kind
		wantOK   bool
	}{
		{"valid", bearer, "123456", 0, true},
		{"lowercase scheme", "bearer " + pair.AccessToken, "123456", 0, true},
		{"missing token", "", "123456", apperr.KindUnauthorized, false},
		{"basic auth", "Basic dXNlcjpwYXNz", "123456", apperr.KindUnauthorized, false},
		{"empty bearer", "Bearer ", "123456", apperr.KindUnauthorized, false},
		{"missing org header", bearer, "", apperr.KindUnauthorized, false},
		{"bad signature", "Bearer " + pair.AccessToken + "x", "123456", apperr.KindUnauthorized, false},
		{"refresh token as access", "Bearer " + pair.RefreshToken, "123456", apperr.KindUnauthorized, false},
		{"tenant mismatch", bearer, "654321", apperr.KindForbidden, false},
		{"non numeric tenant", bearer, "abc", apperr.KindForbidden, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := gatedRequest(t, ti, tt.auth, tt.org)
			claims, err := Authorize(c.Request(), ti)
			if tt.wantOK {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if claims.OrgID != 123456 {
					t.Errorf("unexpected org %d", claims.OrgID)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if got := apperr.KindOf(err); got != tt.wantKind {
				t.Errorf("kind = %v, want %v", got, tt.wantKind)
			}
		})
	}
}

func TestGate_StoresClaims(t *testing.T) {
	ti := newTestIssuer(t)
	s := testSubject()
	pair, _ := ti.Issue(s)
	c, rec := gatedRequest(t, ti, "Bearer "+pair.AccessToken, "123456")

	h := Gate(ti)(func(c echo.Context) error {
		claims, err := MustClaims(c)
		if err != nil {
			t.Fatalf("expected claims: %v", err)
		}
		if claims.UserID != s.UserID.String() {
			t.Errorf("unexpected user %s", claims.UserID)
		}
		if c.Get("org_id") != "123456" {
			t.Errorf("expected org_id on echo context, got %v", c.Get("org_id"))
		}
		return c.NoContent(http.StatusNoContent)
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

func TestGate_BlocksHandler(t *testing.T) {
	ti := newTestIssuer(t)
	c, _ := gatedRequest(t, ti, "", "")

	called := false
	err := Gate(ti)(func(c echo.Context) error {
		called = true
		return nil
	})(c)

	if !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("expected unauthorized, got %v", err)
	}
	if called {
		t.Error("handler must not run without credentials")
	}
}

func TestMustClaims_WithoutGate(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	if _, err := MustClaims(c); !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("expected unauthorized, got %v", err)
	}
}
