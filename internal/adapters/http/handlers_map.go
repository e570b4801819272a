package http

import (
	"errors"
	"net/url"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/wayfarer/internal/core/domain"
	"github.com/samirrijal/wayfarer/internal/core/usecases"
	"github.com/samirrijal/wayfarer/internal/pkg/country"
)

// RenderPlanHandler returns the render plan for one day. Without ?day= the
// expanded day is used.
func RenderPlanHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		day := c.QueryInt("day", 0)
		if day < 0 {
			return errBadRequest(c, "day must be a positive integer")
		}
		color := strings.TrimSpace(c.Query("color"))
		if color != "" && !strings.HasPrefix(color, "#") {
			color = "#" + color
		}

		plan, err := deps.MapView.Sync(c.UserContext(), c.Params("id"), usecases.SyncOptions{Day: day, Color: color})
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Set("Cache-Control", "private, no-cache")
		return c.JSON(plan)
	}
}

type mapClickRequest struct {
	Day int      `json:"day"`
	Lat *float64 `json:"lat"`
	Lon *float64 `json:"lon"`
}

// MapClickHandler reports an add-waypoint intent. The schedule is not touched.
func MapClickHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req mapClickRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if req.Lat == nil || req.Lon == nil {
			return errBadRequest(c, "lat and lon are required")
		}
		intent, err := deps.MapView.MapClick(c.UserContext(), c.Params("id"), req.Day, *req.Lat, *req.Lon)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(intent)
	}
}

type regionClickRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// RegionClickHandler hit-tests a viewport point and reports a toggle intent.
func RegionClickHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req regionClickRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		intent, err := deps.MapView.RegionClick(c.UserContext(), c.Params("id"), req.X, req.Y)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.Status(fiber.StatusAccepted).JSON(intent)
	}
}

// RegionsHandler returns the styled choropleth for an itinerary's country.
// Boundaries are loaded on first access after a restart.
func RegionsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Params("id")
		view, err := deps.Regions.View(id)
		if errors.Is(err, domain.ErrNotFound) {
			it, gerr := deps.Schedule.Get(c.UserContext(), id)
			if gerr != nil {
				return errFromDomain(c, gerr)
			}
			if it.Country == "" {
				return errNotFound(c, "itinerary has no country")
			}
			view, err = deps.Regions.SelectCountry(c.UserContext(), id, it.Country)
		}
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(view)
	}
}

// ToggleRegionHandler flips a region's selection.
func ToggleRegionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		r, err := deps.Regions.ToggleSelected(c.Params("id"), regionParam(c))
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(r)
	}
}

type visitedRequest struct {
	Visited bool `json:"visited"`
}

// MarkVisitedHandler persists a region's visited flag.
func MarkVisitedHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req visitedRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		r, err := deps.Regions.MarkVisited(c.UserContext(), c.Params("id"), regionParam(c), req.Visited)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(r)
	}
}

type hoverRequest struct {
	Name string `json:"name"`
}

// HoverRegionHandler sets or clears (empty name) the hovered region.
func HoverRegionHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req hoverRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if err := deps.Regions.SetHovered(c.Params("id"), req.Name); err != nil {
			return errFromDomain(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// regionParam decodes the :name segment. Subdivision names routinely
// contain spaces and non-ASCII letters.
func regionParam(c *fiber.Ctx) string {
	raw := c.Params("name")
	if name, err := url.PathUnescape(raw); err == nil {
		return name
	}
	return raw
}

// BoundariesHandler returns a country's projected subdivisions in the
// neutral state. Accepts ISO alpha-2/alpha-3 codes or English names.
func BoundariesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		input, _ := url.PathUnescape(c.Params("country"))
		if len(country.Resolve(input)) != 2 {
			return errBadRequest(c, "unknown country: "+input)
		}
		set, err := deps.Boundaries.Build(c.UserContext(), input)
		if err != nil {
			return errFromDomain(c, err)
		}
		view := set.View(nil, deps.Palette)
		c.Set("Cache-Control", "public, max-age=3600")
		return c.JSON(view)
	}
}

type routeRequest struct {
	Coordinates []domain.GeoPoint `json:"coordinates"`
}

// RouteHandler computes a leg for an arbitrary coordinate sequence.
func RouteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req routeRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if len(req.Coordinates) < 2 {
			return errBadRequest(c, "at least two coordinates are required")
		}
		if len(req.Coordinates) > 50 {
			return errBadRequest(c, "too many coordinates (max 50)")
		}
		for _, p := range req.Coordinates {
			if !p.Valid() {
				return errBadRequest(c, "coordinates out of range")
			}
		}

		leg, err := deps.Legs.Route(c.UserContext(), req.Coordinates)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(leg)
	}
}

// GeoIPCountryHandler suggests a destination from the caller's address.
func GeoIPCountryHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if deps.Locator == nil {
			return errUnavailable(c, "geoip is not configured")
		}
		ip := c.IP()
		if fwd := c.IPs(); len(fwd) > 0 {
			ip = fwd[0]
		}
		code, err := deps.Locator.CountryCode(ip)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(fiber.Map{"country": code, "name": country.Name(code)})
	}
}
