package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ErrorResponse is the fixed error shape of the public API.
type ErrorResponse struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	RequestID  string   `json:"requestId"`
	Details    []string `json:"details"`
}

// requestID returns the correlation id assigned by the RequestID middleware.
func requestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}

func newErrorResponse(c echo.Context, status int, message string, details ...string) ErrorResponse {
	if details == nil {
		details = []string{}
	}
	return ErrorResponse{
		StatusCode: status,
		Message:    message,
		RequestID:  requestID(c),
		Details:    details,
	}
}

// unauthorizedResponse writes the API 401 response. Details carry only the
// documented parse-failure strings, never internal errors.
func unauthorizedResponse(c echo.Context, message string, details ...string) error {
	return c.JSON(http.StatusUnauthorized, newErrorResponse(c, http.StatusUnauthorized, message, details...))
}

// internalErrorResponse writes a generic API 500 response.
func internalErrorResponse(c echo.Context) error {
	return c.JSON(http.StatusInternalServerError, newErrorResponse(c, http.StatusInternalServerError, "Internal server error."))
}
