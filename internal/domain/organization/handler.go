package organization

import (
	"github.com/labstack/echo/v4"

	"github.com/lims/lims/internal/domain/account"
	"github.com/lims/lims/internal/platform/auth"
	"github.com/lims/lims/internal/platform/respond"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(public, protected *echo.Group) {
	public.POST("/auth/register", h.Register)

	protected.GET("/organization", h.Get)
	protected.PUT("/organization", h.Update, auth.RequireRole(auth.RoleAdmin))
}

type registerResponse struct {
	Organization *Organization    `json:"organization"`
	User         *account.Account `json:"user"`
}

func (h *Handler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := respond.Bind(c, &req); err != nil {
		return err
	}
	org, admin, err := h.svc.Register(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return respond.Created(c, registerResponse{Organization: org, User: admin},
		"registration successful, account pending activation")
}

func (h *Handler) Get(c echo.Context) error {
	claims, err := auth.MustClaims(c)
	if err != nil {
		return err
	}
	org, err := h.svc.Get(c.Request().Context(), claims.OrgID)
	if err != nil {
		return err
	}
	return respond.OK(c, org)
}

func (h *Handler) Update(c echo.Context) error {
	claims, err := auth.MustClaims(c)
	if err != nil {
		return err
	}
	var req UpdateRequest
	if err := respond.Bind(c, &req); err != nil {
		return err
	}
	org, err := h.svc.Update(c.Request().Context(), claims.OrgID, req)
	if err != nil {
		return err
	}
	return respond.OK(c, org)
}
