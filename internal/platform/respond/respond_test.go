package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/lims/lims/internal/platform/apperr"
)

func TestCreated_Envelope(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)

	if err := Created(c, map[string]string{"id": "r1"}, "report created"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"].(float64) != 201 || body["message"] != "report created" {
		t.Errorf("unexpected body %v", body)
	}
	if body["data"].(map[string]interface{})["id"] != "r1" {
		t.Errorf("unexpected data %v", body["data"])
	}
}

func TestOK_OmitsEmptyMessage(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	_ = OK(c, []int{1})
	if strings.Contains(rec.Body.String(), "message") {
		t.Errorf("message should be omitted: %s", rec.Body.String())
	}
}

type okValidator struct{}

func (okValidator) Validate(interface{}) error { return nil }

func TestBind_InvalidJSON(t *testing.T) {
	e := echo.New()
	e.Validator = okValidator{}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())

	var v struct{ Name string }
	if err := Bind(c, &v); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestUUIDParam(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	id := uuid.New()
	c.SetParamNames("id")
	c.SetParamValues(id.String())

	got, err := UUIDParam(c, "id")
	if err != nil || got != id {
		t.Fatalf("got %v, %v", got, err)
	}

	c.SetParamValues("nope")
	if _, err := UUIDParam(c, "id"); err == nil || err.Error() != "invalid id" {
		t.Errorf("expected invalid id, got %v", err)
	}
}
