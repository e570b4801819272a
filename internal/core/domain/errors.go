package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrDayNotFound       = errors.New("day not found")
	ErrDuplicateWaypoint = errors.New("duplicate waypoint id")
	ErrInvalidWaypoint   = errors.New("invalid waypoint")
	ErrVersionConflict   = errors.New("itinerary was modified concurrently")
	ErrTripTooLong       = errors.New("date range too long")

	// ErrRouteUnavailable means a leg could not be computed. Callers render
	// the waypoints without a path.
	ErrRouteUnavailable = errors.New("route unavailable")

	// ErrBoundaryLoadFailed means a country's subdivision map could not be loaded.
	ErrBoundaryLoadFailed = errors.New("boundary load failed")

	// ErrStaleResponse is returned when an async result arrives after its
	// selection context moved on. It is never shown to users.
	ErrStaleResponse = errors.New("stale response discarded")
)

// RouteUnavailableError carries the upstream status when the provider answered.
type RouteUnavailableError struct {
	Status int
	Err    error
}

func (e *RouteUnavailableError) Error() string {
	switch {
	case e.Status != 0 && e.Err != nil:
		return fmt.Sprintf("route unavailable: upstream status %d: %v", e.Status, e.Err)
	case e.Status != 0:
		return fmt.Sprintf("route unavailable: upstream status %d", e.Status)
	case e.Err != nil:
		return "route unavailable: " + e.Err.Error()
	}
	return "route unavailable"
}

func (e *RouteUnavailableError) Unwrap() error { return e.Err }

func (e *RouteUnavailableError) Is(target error) bool { return target == ErrRouteUnavailable }

// BoundaryLoadError records the country code that was attempted.
type BoundaryLoadError struct {
	Code   string
	Status int // 0 when the failure happened before a response
	Err    error
}

func (e *BoundaryLoadError) Error() string {
	msg := "boundary load failed for " + e.Code
	if e.Status != 0 {
		msg += fmt.Sprintf(": upstream status %d", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BoundaryLoadError) Unwrap() error { return e.Err }

func (e *BoundaryLoadError) Is(target error) bool { return target == ErrBoundaryLoadFailed }
