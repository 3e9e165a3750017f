package backend

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	c.JSON(mapErrorToHTTPStatus(err), ErrorResponse{Error: err.Error()})
}

// mapErrorToHTTPStatus maps backend errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound

	case errors.Is(err, ErrDriverUnknown):
		return http.StatusBadRequest

	case errors.Is(err, ErrTripNotCancellable),
		errors.Is(err, ErrTripNotRatable):
		return http.StatusConflict

	default:
		return http.StatusInternalServerError
	}
}
