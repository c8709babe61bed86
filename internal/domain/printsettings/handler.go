package printsettings

import (
	"github.com/labstack/echo/v4"

	"github.com/lims/lims/internal/platform/auth"
	"github.com/lims/lims/internal/platform/respond"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(protected *echo.Group) {
	protected.GET("/print-settings", h.Get)
	protected.PUT("/print-settings", h.Put)
}

func (h *Handler) Get(c echo.Context) error {
	claims, err := auth.MustClaims(c)
	if err != nil {
		return err
	}
	st, err := h.svc.Get(c.Request().Context(), claims.OrgID)
	if err != nil {
		return err
	}
	return respond.OK(c, st)
}

// Put starts from the defaults so omitted fields fall back to them.
func (h *Handler) Put(c echo.Context) error {
	claims, err := auth.MustClaims(c)
	if err != nil {
		return err
	}
	in := Defaults(claims.OrgID)
	if err := respond.Bind(c, in); err != nil {
		return err
	}
	st, err := h.svc.Upsert(c.Request().Context(), claims.OrgID, *in)
	if err != nil {
		return err
	}
	return respond.OK(c, st)
}
