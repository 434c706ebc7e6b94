package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"carmonitor/internal/domain"
	"carmonitor/internal/repository"
	"carmonitor/internal/service"
	"carmonitor/internal/simulator"
)

const timeLayout = "2006-01-02T15:04:05Z07:00"

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondError sends an error response with the appropriate HTTP status code.
func respondError(c *gin.Context, err error) {
	code := mapErrorToHTTPStatus(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// respondJSON sends a JSON response with the given status code.
func respondJSON(c *gin.Context, code int, data any) {
	c.JSON(code, data)
}

// respondBadRequest is used for malformed request bodies.
func respondBadRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg})
}

// bindOptionalJSON binds a JSON body that may be absent. An empty body leaves
// obj untouched; chunked bodies are read like any other.
func bindOptionalJSON(c *gin.Context, obj any) error {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return nil
	}
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// formatTime renders t, or "" when t is zero.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timeLayout)
}

// mapErrorToHTTPStatus maps service/repository errors to HTTP status codes.
func mapErrorToHTTPStatus(err error) int {
	switch {
	// Not found errors
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound

	// Validation errors - Bad Request
	case errors.Is(err, service.ErrInvalidTripID),
		errors.Is(err, service.ErrInvalidDriverID),
		errors.Is(err, service.ErrInvalidVehicleID),
		errors.Is(err, service.ErrInvalidLocation),
		errors.Is(err, service.ErrInvalidFineAmount),
		errors.Is(err, service.ErrInvalidTripStatus),
		errors.Is(err, service.ErrInvalidCost),
		errors.Is(err, simulator.ErrInvalidInterval):
		return http.StatusBadRequest

	// Conflict errors
	case errors.Is(err, domain.ErrInvalidStateTransition),
		errors.Is(err, service.ErrVehicleHasActiveTrip),
		errors.Is(err, service.ErrDriverHasActiveTrip),
		errors.Is(err, service.ErrTripCostExists),
		errors.Is(err, service.ErrEntityBusy):
		return http.StatusConflict

	// Default to internal server error
	default:
		return http.StatusInternalServerError
	}
}
