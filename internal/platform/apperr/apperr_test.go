package apperr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestKind_HTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{Validation("billId is required"), http.StatusBadRequest},
		{Unauthorized("missing token"), http.StatusUnauthorized},
		{Forbidden("tenant mismatch"), http.StatusForbidden},
		{NotFound("report"), http.StatusNotFound},
		{Conflict("email already registered"), http.StatusConflict},
		{Internal(errors.New("boom")), http.StatusInternalServerError},
		{errors.New("plain"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusOf(tt.err); got != tt.want {
			t.Errorf("StatusOf(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestError_IsSentinel(t *testing.T) {
	err := fmt.Errorf("lookup: %w", NotFound("bill"))
	if !errors.Is(err, ErrNotFound) {
		t.Error("expected wrapped NotFound to match ErrNotFound")
	}
	if errors.Is(err, ErrValidation) {
		t.Error("NotFound must not match ErrValidation")
	}
	if err.Error() != "lookup: bill not found" {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestInternal_KeepsClassifiedErrors(t *testing.T) {
	orig := Forbidden("nope")
	if Internal(orig) != orig {
		t.Error("Internal should pass classified errors through")
	}
	if Internal(nil) != nil {
		t.Error("Internal(nil) should be nil")
	}
	wrapped := Internal(errors.New("connection reset"))
	if wrapped.Error() != "connection reset" {
		t.Errorf("expected raw message, got %q", wrapped.Error())
	}
}

func TestHTTPErrorHandler_Envelope(t *testing.T) {
	e := echo.New()
	e.HTTPErrorHandler = HTTPErrorHandler(zerolog.Nop())

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantMsg    string
	}{
		{"domain not found", NotFound("report"), 404, "report not found"},
		{"echo error", echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded"), 429, "rate limit exceeded"},
		{"raw error", errors.New("relation does not exist"), 500, "relation does not exist"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)
			e.HTTPErrorHandler(tt.err, c)

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			var body Body
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Status != tt.wantStatus || body.Error != tt.wantMsg {
				t.Errorf("unexpected body %+v", body)
			}
		})
	}
}
