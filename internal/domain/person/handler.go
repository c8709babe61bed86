package person

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/lims/lims/internal/platform/auth"
	"github.com/lims/lims/internal/platform/respond"
	"github.com/lims/lims/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts the same handlers under /patients and /doctors, each
// bound to its role.
func (h *Handler) RegisterRoutes(protected *echo.Group) {
	for prefix, role := range map[string]Role{"/patients": RolePatient, "/doctors": RoleDoctor} {
		g := protected.Group(prefix)
		g.GET("", h.list(role))
		g.POST("", h.create(role))
		g.GET("/:id", h.get(role))
		g.PUT("/:id", h.update(role))
		g.DELETE("/:id", h.delete(role))
	}
}

func (h *Handler) create(role Role) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := auth.MustClaims(c)
		if err != nil {
			return err
		}
		var in Input
		if err := respond.Bind(c, &in); err != nil {
			return err
		}
		p, err := h.svc.Create(c.Request().Context(), claims.OrgID, role, in)
		if err != nil {
			return err
		}
		return respond.Created(c, p, "")
	}
}

func (h *Handler) get(role Role) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := auth.MustClaims(c)
		if err != nil {
			return err
		}
		id, err := respond.UUIDParam(c, "id")
		if err != nil {
			return err
		}
		p, err := h.svc.Get(c.Request().Context(), claims.OrgID, role, id)
		if err != nil {
			return err
		}
		return respond.OK(c, p)
	}
}

func (h *Handler) update(role Role) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := auth.MustClaims(c)
		if err != nil {
			return err
		}
		id, err := respond.UUIDParam(c, "id")
		if err != nil {
			return err
		}
		var in Input
		if err := respond.Bind(c, &in); err != nil {
			return err
		}
		p, err := h.svc.Update(c.Request().Context(), claims.OrgID, role, id, in)
		if err != nil {
			return err
		}
		return respond.OK(c, p)
	}
}

func (h *Handler) delete(role Role) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := auth.MustClaims(c)
		if err != nil {
			return err
		}
		id, err := respond.UUIDParam(c, "id")
		if err != nil {
			return err
		}
		if err := h.svc.Delete(c.Request().Context(), claims.OrgID, role, id); err != nil {
			return err
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func (h *Handler) list(role Role) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, err := auth.MustClaims(c)
		if err != nil {
			return err
		}
		pg := pagination.FromContext(c)
		f := ListFilter{Role: role, Search: strings.TrimSpace(c.QueryParam("search"))}
		items, total, err := h.svc.List(c.Request().Context(), claims.OrgID, f, pg.Limit, pg.Offset)
		if err != nil {
			return err
		}
		return respond.OK(c, pagination.NewResponse(items, total, pg))
	}
}
