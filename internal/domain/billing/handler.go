package billing

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/lims/lims/internal/platform/apperr"
	"github.com/lims/lims/internal/platform/auth"
	"github.com/lims/lims/internal/platform/respond"
	"github.com/lims/lims/pkg/pagination"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(protected *echo.Group) {
	g := protected.Group("/bills")
	g.GET("", h.List)
	g.POST("", h.Create)
	g.GET("/export", h.Export)
	g.GET("/:id", h.Get)
	g.DELETE("/:id", h.Delete)
	g.PUT("/:id/payment", h.UpdatePayment)
}

func (h *Handler) Create(c echo.Context) error {
	claims, err := auth.MustClaims(c)
	if err != nil {
		return err
	}
	var req CreateRequest
	if err := respond.Bind(c, &req); err != nil {
		return err
	}
	b, err := h.svc.Create(c.Request().Context(), claims.OrgID, req)
	if err != nil {
		return err
	}
	return respond.Created(c, b, "")
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
	b, err := h.svc.Get(c.Request().Context(), claims.OrgID, id)
	if err != nil {
		return err
	}
	return respond.OK(c, b)
}

func (h *Handler) List(c echo.Context) error {
	claims, err := auth.MustClaims(c)
	if err != nil {
		return err
	}
	f, err := parseFilter(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.List(c.Request().Context(), claims.OrgID, f, pg.Limit, pg.Offset)
	if err != nil {
		return err
	}
	return respond.OK(c, pagination.NewResponse(items, total, pg))
}

func parseFilter(c echo.Context) (ListFilter, error) {
	f := ListFilter{Status: Status(c.QueryParam("status"))}
	if v := c.QueryParam("patientId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			return f, apperr.Validation("invalid patientId")
		}
		f.PatientID = &id
	}
	from, err := parseDate(c.QueryParam("from"), "from")
	if err != nil {
		return f, err
	}
	to, err := parseDate(c.QueryParam("to"), "to")
	if err != nil {
		return f, err
	}
	if !from.IsZero() {
		f.From = &from
	}
	if !to.IsZero() {
		f.To = &to
	}
	return f, nil
}

// parseDate accepts RFC 3339 or a plain date. A plain "to" date covers the
// whole day.
func parseDate(v, name string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, apperr.Validation("invalid %s date", name)
	}
	if name == "to" {
		t = t.AddDate(0, 0, 1)
	}
	return t, nil
}

func (h *Handler) UpdatePayment(c echo.Context) error {
	claims, err := auth.MustClaims(c)
	if err != nil {
		return err
	}
	id, err := respond.UUIDParam(c, "id")
	if err != nil {
		return err
	}
	var req PaymentRequest
	if err := respond.Bind(c, &req); err != nil {
		return err
	}
	b, err := h.svc.UpdatePayment(c.Request().Context(), claims.OrgID, id, req)
	if err != nil {
		return err
	}
	return respond.OK(c, b)
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

func (h *Handler) Export(c echo.Context) error {
	claims, err := auth.MustClaims(c)
	if err != nil {
		return err
	}
	from, err := parseDate(c.QueryParam("from"), "from")
	if err != nil {
		return err
	}
	to, err := parseDate(c.QueryParam("to"), "to")
	if err != nil {
		return err
	}
	data, err := h.svc.ExportXLSX(c.Request().Context(), claims.OrgID, from, to)
	if err != nil {
		return err
	}
	name := fmt.Sprintf("bills-%d-%s.xlsx", claims.OrgID, time.Now().UTC().Format("20060102"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename=%q`, name))
	return c.Blob(http.StatusOK, xlsxMIME, data)
}
