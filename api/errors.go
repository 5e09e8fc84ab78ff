package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"evalgo.org/strata/errcat"
)

// APIError is a structured error response with an HTTP status code,
// grounded on graphium's internal/api/errors.go.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Details)
	}
	return e.Message
}

func notFoundError(resource, name string) *APIError {
	return &APIError{Code: http.StatusNotFound, Message: fmt.Sprintf("%s not found", resource), Details: name}
}

func internalError(err error) *APIError {
	return &APIError{Code: http.StatusInternalServerError, Message: "internal error", Details: err.Error()}
}

// HTTPErrorHandler maps a handler error to a JSON APIError response,
// recognizing the core's own errcat error kinds so a missing service or a
// failed convergence comes back with a meaningful status code instead of a
// blanket 500.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		_ = c.JSON(apiErr.Code, apiErr)
		return
	}

	var noSuchService *errcat.NoSuchService
	if errors.As(err, &noSuchService) {
		_ = c.JSON(http.StatusNotFound, &APIError{Code: http.StatusNotFound, Message: err.Error()})
		return
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		_ = c.JSON(httpErr.Code, &APIError{Code: httpErr.Code, Message: fmt.Sprint(httpErr.Message)})
		return
	}

	_ = c.JSON(http.StatusInternalServerError, internalError(err))
}
