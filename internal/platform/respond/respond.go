// Package respond writes the success envelope shared by all JSON endpoints.
package respond

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Body is the success envelope: {status, data, message?}.
type Body struct {
	Status  int         `json:"status"`
	Data    interface{} `json:"data"`
	Message string      `json:"message,omitempty"`
}

func JSON(c echo.Context, status int, data interface{}, message string) error {
	return c.JSON(status, Body{Status: status, Data: data, Message: message})
}

func OK(c echo.Context, data interface{}) error {
	return JSON(c, http.StatusOK, data, "")
}

func Created(c echo.Context, data interface{}, message string) error {
	return JSON(c, http.StatusCreated, data, message)
}
