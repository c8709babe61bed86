package report

import (
	"net/http"

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

func (h *Handler) RegisterRoutes(public, protected *echo.Group) {
	g := protected.Group("/reports")
	g.POST("/create", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)

	public.GET("/public/reports/:id", h.PublicReport)
	public.GET("/public/bills/:id", h.PublicBill)
}

// Create answers 201 for a new report and 200 when the bill already had one.
func (h *Handler) Create(c echo.Context) error {
	claims, err := auth.MustClaims(c)
	if err != nil {
		return err
	}
	var req CreateRequest
	if err := respond.Bind(c, &req); err != nil {
		return err
	}
	r, created, err := h.svc.Synthesize(c.Request().Context(), claims.OrgID, req.BillID)
	if err != nil {
		return err
	}
	if !created {
		return respond.JSON(c, http.StatusOK, r, "report already exists")
	}
	return respond.Created(c, r, "report created")
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
	v, err := h.svc.Get(c.Request().Context(), claims.OrgID, id)
	if err != nil {
		return err
	}
	return respond.OK(c, v)
}

func (h *Handler) List(c echo.Context) error {
	claims, err := auth.MustClaims(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), claims.OrgID, c.QueryParam("status"), pg.Limit, pg.Offset)
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
	var req UpdateRequest
	if err := respond.Bind(c, &req); err != nil {
		return err
	}
	v, err := h.svc.Update(c.Request().Context(), claims.OrgID, id, req)
	if err != nil {
		return err
	}
	return respond.OK(c, v)
}

func (h *Handler) PublicReport(c echo.Context) error {
	id, err := respond.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	r, err := h.svc.PublicReport(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond.OK(c, r)
}

func (h *Handler) PublicBill(c echo.Context) error {
	id, err := respond.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	b, err := h.svc.PublicBill(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return respond.OK(c, b)
}
