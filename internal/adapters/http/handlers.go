package http

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/wayfarer/internal/core/domain"
)

const dateLayout = "2006-01-02"

// parseDate accepts YYYY-MM-DD or RFC 3339. Empty input means no date.
func parseDate(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(dateLayout, raw); err == nil {
		return &t, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return &t, nil
}

type itineraryRequest struct {
	Name      string `json:"name"`
	Country   string `json:"country"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// dateRange parses both dates and rejects ranges longer than a trip may be.
func (r itineraryRequest) dateRange() (start, end *time.Time, err error) {
	if start, err = parseDate(r.StartDate); err != nil {
		return nil, nil, err
	}
	if end, err = parseDate(r.EndDate); err != nil {
		return nil, nil, err
	}
	if err = domain.CheckDateRange(start, end); err != nil {
		return nil, nil, err
	}
	return start, end, nil
}

// ListItinerariesHandler returns itineraries newest first.
func ListItinerariesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 20)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 100 {
			limit = 20
		}

		items, total, err := deps.Schedule.List(c.UserContext(), offset, limit)
		if err != nil {
			return errFromDomain(c, err)
		}

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		c.Set("Cache-Control", "private, no-cache")
		return c.JSON(PaginatedResponse{Data: items, Pagination: pg})
	}
}

// CreateItineraryHandler creates an itinerary with days derived from its dates.
func CreateItineraryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req itineraryRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if strings.TrimSpace(req.Name) == "" {
			return errBadRequest(c, "name is required")
		}
		if len(req.Name) > 200 {
			return errBadRequest(c, "name too long (max 200 characters)")
		}
		start, end, err := req.dateRange()
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		it, err := deps.Schedule.Create(c.UserContext(), req.Name, req.Country, start, end)
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Location("/v1/itineraries/" + it.ID)
		return c.Status(fiber.StatusCreated).JSON(it)
	}
}

// GetItineraryHandler returns one itinerary with all its days.
func GetItineraryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		it, err := deps.Schedule.Get(c.UserContext(), c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Set("Cache-Control", "private, no-cache")
		return c.JSON(it)
	}
}

// DeleteItineraryHandler deletes an itinerary and drops its map state.
func DeleteItineraryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		if err := deps.Schedule.Delete(c.UserContext(), id); err != nil {
			return errFromDomain(c, err)
		}
		deps.MapView.Forget(id)
		deps.Regions.Forget(id)
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// SetDatesHandler re-derives the day list from a new date range. Days past
// the new count are dropped together with their waypoints.
func SetDatesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req itineraryRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		start, end, err := req.dateRange()
		if err != nil {
			return errBadRequest(c, err.Error())
		}
		it, err := deps.Schedule.SetDateRange(c.UserContext(), c.Params("id"), start, end)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(it)
	}
}

// SetCountryHandler changes the destination country and loads its
// subdivisions. The itinerary is saved even when the boundary load fails;
// the failure is reported alongside it so the client can retry.
func SetCountryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req itineraryRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if strings.TrimSpace(req.Country) == "" {
			return errBadRequest(c, "country is required")
		}
		id := c.Params("id")
		it, err := deps.Schedule.SetCountry(c.UserContext(), id, req.Country)
		if err != nil {
			return errFromDomain(c, err)
		}

		// Re-sending the current country keeps the selection; a failed
		// earlier load is retried.
		if cur, ok := deps.Regions.Country(id); ok && cur == it.Country {
			if view, err := deps.Regions.View(id); err == nil {
				return c.JSON(fiber.Map{"itinerary": it, "boundaries": view})
			}
		}
		view, err := deps.Regions.SelectCountry(c.UserContext(), id, it.Country)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(fiber.Map{"itinerary": it, "boundaries": view})
	}
}

type waypointRequest struct {
	ID    string              `json:"id"`
	Name  string              `json:"name"`
	Kind  domain.WaypointKind `json:"kind"`
	Lat   *float64            `json:"lat"`
	Lon   *float64            `json:"lon"`
	Note  string              `json:"note"`
	Index *int                `json:"index"`
}

// InsertWaypointHandler inserts a waypoint into a day. A missing index appends.
func InsertWaypointHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		day, err := c.ParamsInt("day")
		if err != nil || day < 1 {
			return errBadRequest(c, "day must be a positive integer")
		}
		var req waypointRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if (req.Lat == nil) != (req.Lon == nil) {
			return errBadRequest(c, "lat and lon must be given together")
		}

		wp := domain.Waypoint{ID: req.ID, Name: req.Name, Kind: req.Kind, Note: req.Note}
		if req.Lat != nil {
			wp.Position = &domain.GeoPoint{Lat: *req.Lat, Lon: *req.Lon}
		}
		index := int(^uint(0) >> 1)
		if req.Index != nil {
			index = *req.Index
		}

		it, err := deps.Schedule.InsertWaypoint(c.UserContext(), c.Params("id"), day, wp, index)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(it)
	}
}

// RemoveWaypointHandler removes a waypoint. Removing an absent id is a no-op.
func RemoveWaypointHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		day, err := c.ParamsInt("day")
		if err != nil || day < 1 {
			return errBadRequest(c, "day must be a positive integer")
		}
		it, err := deps.Schedule.RemoveWaypoint(c.UserContext(), c.Params("id"), day, c.Params("waypointID"))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(it)
	}
}

// ReorderWaypointHandler moves a waypoint to a new index within its day.
func ReorderWaypointHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		day, err := c.ParamsInt("day")
		if err != nil || day < 1 {
			return errBadRequest(c, "day must be a positive integer")
		}
		var req waypointRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if req.Index == nil {
			return errBadRequest(c, "index is required")
		}
		it, err := deps.Schedule.ReorderWaypoint(c.UserContext(), c.Params("id"), day, c.Params("waypointID"), *req.Index)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(it)
	}
}

// ExpandDayHandler makes a day the one the map follows.
func ExpandDayHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		day, err := c.ParamsInt("day")
		if err != nil || day < 1 {
			return errBadRequest(c, "day must be a positive integer")
		}
		if err := deps.Schedule.ExpandDay(c.UserContext(), c.Params("id"), day); err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(fiber.Map{"expanded_day": day})
	}
}

// PrefetchHandler starts background leg warm-up for every day.
func PrefetchHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Prefetch == nil {
			return errUnavailable(c, "prefetch is not configured")
		}
		id := c.Params("id")
		if _, err := deps.Schedule.Get(c.UserContext(), id); err != nil {
			return errFromDomain(c, err)
		}
		runID, err := deps.Prefetch.SchedulePrefetch(c.UserContext(), id)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"itinerary_id": id, "run_id": runID})
	}
}
