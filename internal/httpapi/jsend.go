package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// JSend statuses: "success" and "fail" describe request outcomes, "error"
// means the service itself broke.
const (
	statusSuccess = "success"
	statusFail    = "fail"
	statusError   = "error"
)

// envelope is the JSend wrapper every endpoint responds with. Code is only
// populated on error responses.
type envelope struct {
	Status  string `json:"status"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

func success(c echo.Context, data any) error {
	return successWithStatus(c, http.StatusOK, data)
}

func successWithStatus(c echo.Context, httpCode int, data any) error {
	return c.JSON(httpCode, envelope{Status: statusSuccess, Data: data})
}

// fail reports a problem with the request itself; data carries structured
// detail when there is any.
func fail(c echo.Context, httpCode int, message string, data any) error {
	return c.JSON(httpCode, envelope{Status: statusFail, Message: message, Data: data})
}

func failValidation(c echo.Context, fieldErrors map[string]string) error {
	return fail(c, http.StatusBadRequest, "Validation failed", map[string]any{
		"validation_errors": fieldErrors,
	})
}

func failNotFound(c echo.Context, message string) error {
	return fail(c, http.StatusNotFound, message, nil)
}

func internalError(c echo.Context, message string) error {
	return c.JSON(http.StatusInternalServerError, envelope{
		Status:  statusError,
		Message: message,
		Code:    http.StatusInternalServerError,
	})
}
