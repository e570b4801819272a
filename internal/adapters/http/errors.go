package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/wayfarer/internal/core/domain"
)

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`    // Error code: bad_request, not_found, internal_error, etc.
	Message   string `json:"message"` // Human-readable message
	RequestID string `json:"request_id,omitempty"`

	// Set for boundary_load_failed so clients can offer a retry for the
	// country that was attempted.
	Country        string `json:"country,omitempty"`
	UpstreamStatus int    `json:"upstream_status,omitempty"`
}

// newError builds a JSON error response with a request ID.
func newError(c *fiber.Ctx, status int, code string, message string) error {
	return sendError(c, APIError{Status: status, Code: code, Message: message})
}

func sendError(c *fiber.Ctx, e APIError) error {
	e.RequestID, _ = c.Locals("requestid").(string)
	return c.Status(e.Status).JSON(e)
}

// errBadRequest returns a 400 error.
func errBadRequest(c *fiber.Ctx, msg string) error {
	return newError(c, 400, "bad_request", msg)
}

// errNotFound returns a 404 error.
func errNotFound(c *fiber.Ctx, msg string) error {
	return newError(c, 404, "not_found", msg)
}

// errInternal returns a 500 error.
func errInternal(c *fiber.Ctx, msg string) error {
	return newError(c, 500, "internal_error", msg)
}

// errConflict returns a 409 error.
func errConflict(c *fiber.Ctx, msg string) error {
	return newError(c, 409, "conflict", msg)
}

// errUnavailable returns a 503 error.
func errUnavailable(c *fiber.Ctx, msg string) error {
	return newError(c, 503, "service_unavailable", msg)
}

// errFromDomain maps core errors onto HTTP statuses. Anything unrecognised
// is logged and reported as a 500 without its internal message.
func errFromDomain(c *fiber.Ctx, err error) error {
	var ble *domain.BoundaryLoadError
	var rue *domain.RouteUnavailableError
	switch {
	case errors.As(err, &ble):
		return sendError(c, APIError{
			Status:         502,
			Code:           "boundary_load_failed",
			Message:        "could not load subdivision boundaries",
			Country:        ble.Code,
			UpstreamStatus: ble.Status,
		})
	case errors.As(err, &rue):
		return sendError(c, APIError{
			Status:         502,
			Code:           "route_unavailable",
			Message:        "no route could be computed",
			UpstreamStatus: rue.Status,
		})
	case errors.Is(err, domain.ErrDayNotFound):
		return newError(c, 404, "day_not_found", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		return errNotFound(c, err.Error())
	case errors.Is(err, domain.ErrDuplicateWaypoint):
		return newError(c, 409, "duplicate_waypoint", err.Error())
	case errors.Is(err, domain.ErrVersionConflict):
		return errConflict(c, err.Error())
	case errors.Is(err, domain.ErrInvalidWaypoint):
		return newError(c, 400, "invalid_waypoint", err.Error())
	case errors.Is(err, domain.ErrTripTooLong):
		return newError(c, 400, "invalid_date_range", err.Error())
	case errors.Is(err, domain.ErrStaleResponse):
		return errConflict(c, "selection changed while the request was running")
	}
	LoggerFromCtx(c.UserContext()).Error("request failed", "path", c.Path(), "error", err)
	return errInternal(c, "internal error")
}
