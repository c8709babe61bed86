package account

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/lims/lims/internal/platform/apperr"
	"github.com/lims/lims/internal/platform/auth"
	"github.com/lims/lims/internal/platform/respond"
	"github.com/lims/lims/pkg/pagination"
)

const refreshCookie = "refresh_token"

type Handler struct {
	svc          *Service
	secureCookie bool
	cookieTTL    time.Duration
}

// NewHandler builds the account handler. secureCookie marks the refresh
// cookie Secure and should be true outside development.
func NewHandler(svc *Service, secureCookie bool, cookieTTL time.Duration) *Handler {
	return &Handler{svc: svc, secureCookie: secureCookie, cookieTTL: cookieTTL}
}

// RegisterRoutes mounts login and refresh on public and the rest on
// protected, which must already carry auth.Gate.
func (h *Handler) RegisterRoutes(public, protected *echo.Group) {
	public.POST("/auth/login", h.Login)
	public.POST("/auth/refresh", h.Refresh)

	protected.POST("/auth/logout", h.Logout)
	protected.GET("/auth/me", h.Me)

	admin := protected.Group("", auth.RequireRole(auth.RoleAdmin))
	admin.GET("/users", h.ListUsers)
	admin.POST("/users", h.CreateUser)
	admin.PATCH("/users/:id/active", h.SetActive)
}

type sessionResponse struct {
	User        *Account  `json:"user"`
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

func (h *Handler) Login(c echo.Context) error {
	var req LoginRequest
	if err := respond.Bind(c, &req); err != nil {
		return err
	}
	sess, err := h.svc.Login(c.Request().Context(), req)
	if err != nil {
		return err
	}
	h.setRefreshCookie(c, sess.Tokens.RefreshToken, sess.Tokens.RefreshExpiresAt)
	return respond.JSON(c, http.StatusOK, toSessionResponse(sess), "login successful")
}

// Refresh reads the token from the cookie, falling back to the body for
// clients that cannot hold cookies.
func (h *Handler) Refresh(c echo.Context) error {
	token := ""
	if ck, err := c.Cookie(refreshCookie); err == nil {
		token = ck.Value
	}
	if token == "" {
		var req RefreshRequest
		if err := c.Bind(&req); err == nil {
			token = req.RefreshToken
		}
	}

	sess, err := h.svc.Refresh(c.Request().Context(), token)
	if err != nil {
		h.clearRefreshCookie(c)
		return err
	}
	h.setRefreshCookie(c, sess.Tokens.RefreshToken, sess.Tokens.RefreshExpiresAt)
	return respond.OK(c, toSessionResponse(sess))
}

func (h *Handler) Logout(c echo.Context) error {
	claims, err := auth.MustClaims(c)
	if err != nil {
		return err
	}
	uid, err := claims.UserUUID()
	if err != nil {
		return apperr.Unauthorized("invalid token subject")
	}
	if err := h.svc.Logout(c.Request().Context(), uid); err != nil {
		return err
	}
	h.clearRefreshCookie(c)
	return respond.JSON(c, http.StatusOK, nil, "logged out")
}

func (h *Handler) Me(c echo.Context) error {
	claims, err := auth.MustClaims(c)
	if err != nil {
		return err
	}
	uid, err := claims.UserUUID()
	if err != nil {
		return apperr.Unauthorized("invalid token subject")
	}
	a, err := h.svc.Me(c.Request().Context(), claims.OrgID, uid)
	if err != nil {
		return err
	}
	return respond.OK(c, a)
}

func (h *Handler) ListUsers(c echo.Context) error {
	claims, err := auth.MustClaims(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListUsers(c.Request().Context(), claims.OrgID, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return respond.OK(c, pagination.NewResponse(items, total, pg))
}

func (h *Handler) CreateUser(c echo.Context) error {
	claims, err := auth.MustClaims(c)
	if err != nil {
		return err
	}
	var req CreateUserRequest
	if err := respond.Bind(c, &req); err != nil {
		return err
	}
	a, err := h.svc.CreateUser(c.Request().Context(), claims.OrgID, req)
	if err != nil {
		return err
	}
	return respond.Created(c, a, "user created")
}

func (h *Handler) SetActive(c echo.Context) error {
	claims, err := auth.MustClaims(c)
	if err != nil {
		return err
	}
	id, err := respond.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req SetActiveRequest
	if err := respond.Bind(c, &req); err != nil {
		return err
	}
	actor, err := claims.UserUUID()
	if err != nil {
		return apperr.Unauthorized("invalid token subject")
	}
	a, err := h.svc.SetActive(c.Request().Context(), claims.OrgID, actor, id, *req.Active)
	if err != nil {
		return err
	}
	return respond.OK(c, a)
}

func toSessionResponse(s *Session) sessionResponse {
	return sessionResponse{
		User:        s.Account,
		AccessToken: s.Tokens.AccessToken,
		ExpiresAt:   s.Tokens.AccessExpiresAt,
	}
}

func (h *Handler) setRefreshCookie(c echo.Context, token string, expires time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookie,
		Value:    token,
		Path:     "/api/v1/auth",
		Expires:  expires,
		MaxAge:   int(h.cookieTTL.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handler) clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookie,
		Value:    "",
		Path:     "/api/v1/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
	})
}
