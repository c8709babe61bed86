package account

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lims/lims/internal/platform/apperr"
	"github.com/lims/lims/internal/platform/auth"
	"github.com/lims/lims/internal/platform/validate"
)

func newTestHandler(t *testing.T) (*Handler, *mockRepo, *echo.Echo) {
	t.Helper()
	svc, repo := newTestService(t)
	e := echo.New()
	e.Validator = validate.New()
	return NewHandler(svc, true, time.Hour), repo, e
}

func jsonRequest(method, body string) *http.Request {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}

func TestHandler_Login_SetsCookie(t *testing.T) {
	h, repo, e := newTestHandler(t)
	seedAccount(t, repo, "admin@lab.test", "s3cret-pass", true)

	rec := httptest.NewRecorder()
	c := e.NewContext(jsonRequest(http.MethodPost, `{"email":"admin@lab.test","password":"s3cret-pass"}`), rec)
	if err := h.Login(c); err != nil {
		t.Fatalf("login: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Status int `json:"status"`
		Data   struct {
			User        map[string]interface{} `json:"user"`
			AccessToken string                 `json:"accessToken"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Data.AccessToken == "" {
		t.Error("expected access token in body")
	}
	if _, leaked := body.Data.User["refreshToken"]; leaked {
		t.Error("refresh token must not be serialized")
	}
	if _, leaked := body.Data.User["passwordHash"]; leaked {
		t.Error("password hash must not be serialized")
	}

	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != refreshCookie || !cookies[0].HttpOnly || !cookies[0].Secure {
		t.Errorf("unexpected cookies %+v", cookies)
	}
}

func TestHandler_Login_Validation(t *testing.T) {
	h, _, e := newTestHandler(t)
	c := e.NewContext(jsonRequest(http.MethodPost, `{"email":"not-an-email","password":"x"}`), httptest.NewRecorder())
	if err := h.Login(c); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestHandler_Refresh_FromCookie(t *testing.T) {
	h, repo, e := newTestHandler(t)
	seedAccount(t, repo, "admin@lab.test", "s3cret-pass", true)
	sess, err := h.svc.Login(context.Background(), LoginRequest{Email: "admin@lab.test", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.AddCookie(&http.Cookie{Name: refreshCookie, Value: sess.Tokens.RefreshToken})
	rec := httptest.NewRecorder()
	if err := h.Refresh(e.NewContext(req, rec)); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_Refresh_Missing(t *testing.T) {
	h, _, e := newTestHandler(t)
	rec := httptest.NewRecorder()
	err := h.Refresh(e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec))
	if !errors.Is(err, apperr.ErrUnauthorized) {
		t.Errorf("expected unauthorized, got %v", err)
	}
}

func TestHandler_Me(t *testing.T) {
	h, repo, e := newTestHandler(t)
	a := seedAccount(t, repo, "admin@lab.test", "s3cret-pass", true)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(auth.WithClaims(req.Context(), &auth.Claims{UserID: a.ID.String(), OrgID: testOrg, Role: auth.RoleAdmin}))
	rec := httptest.NewRecorder()
	if err := h.Me(e.NewContext(req, rec)); err != nil {
		t.Fatalf("me: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"email":"admin@lab.test"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_CreateUser(t *testing.T) {
	h, _, e := newTestHandler(t)

	req := jsonRequest(http.MethodPost, `{"name":"Tech","email":"tech@lab.test","password":"longenough"}`)
	req = req.WithContext(auth.WithClaims(req.Context(), &auth.Claims{UserID: "u", OrgID: testOrg, Role: auth.RoleAdmin}))
	rec := httptest.NewRecorder()
	if err := h.CreateUser(e.NewContext(req, rec)); err != nil {
		t.Fatalf("create user: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
}
