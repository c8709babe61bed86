package catalog

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

func (h *Handler) RegisterRoutes(protected *echo.Group) {
	g := protected.Group("/tests")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.PUT("/:id/subtests", h.SetSubTests)
}

func (h *Handler) Create(c echo.Context) error {
	claims, err := auth.MustClaims(c)
	if err != nil {
		return err
	}
	var in Input
	if err := respond.Bind(c, &in); err != nil {
		return err
	}
	t, err := h.svc.Create(c.Request().Context(), claims.OrgID, in)
	if err != nil {
		return err
	}
	return respond.Created(c, t, "")
}

func (h *Handler) Get(c echo.Context) error {
	claims, err := auth.MustClaims(c)
	if err != nil {
		return err
	}
	id, err := respond.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	t, err := h.svc.Get(c.Request().Context(), claims.OrgID, id)
	if err != nil {
		return err
	}
	return respond.OK(c, t)
}

func (h *Handler) List(c echo.Context) error {
	claims, err := auth.MustClaims(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	f := ListFilter{
		Search:   strings.TrimSpace(c.QueryParam("search")),
		Category: c.QueryParam("category"),
		Kind:     Kind(c.QueryParam("kind")),
	}
	items, total, err := h.svc.List(c.Request().Context(), claims.OrgID, f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return respond.OK(c, pagination.NewResponse(items, total, pg))
}

func (h *Handler) Update(c echo.Context) error {
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
	t, err := h.svc.Update(c.Request().Context(), claims.OrgID, id, in)
	if err != nil {
		return err
	}
	return respond.OK(c, t)
}

func (h *Handler) Delete(c echo.Context) error {
	claims, err := auth.MustClaims(c)
	if err != nil {
		return err
	}
	id, err := respond.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), claims.OrgID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SetSubTests(c echo.Context) error {
	claims, err := auth.MustClaims(c)
	if err != nil {
		return err
	}
	id, err := respond.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req SubTestsRequest
	if err := respond.Bind(c, &req); err != nil {
		return err
	}
	t, err := h.svc.SetSubTests(c.Request().Context(), claims.OrgID, id, req.SubTests)
	if err != nil {
		return err
	}
	return respond.OK(c, t)
}
