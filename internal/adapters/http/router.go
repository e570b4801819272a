package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/wayfarer/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// deprecatedRoutes are old paths kept for existing clients.
var deprecatedRoutes = []DeprecatedRoute{
	{
		Path:        "/v1/countries/:country/boundaries",
		SunsetDate:  time.Date(2027, time.June, 30, 0, 0, 0, 0, time.UTC),
		Alternative: "/v1/boundaries/:country",
	},
}

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", func(c *fiber.Ctx) error {
		if deps.DB != nil {
			metrics.UpdateDBPoolMetrics(deps.DB.Pool.Stat())
		}
		return c.Next()
	}, metrics.Handler())

	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	app.Use(requestid.New())
	app.Use(RequestIDLogMiddleware())
	app.Use(AccessLogMiddleware())

	// Rate limiting: 120 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, 429, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	app.Use(DeprecationMiddleware(deprecatedRoutes))
	app.Use(ETagMiddleware())
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	v1 := app.Group("/v1")
	route := func(h fiber.Handler) fiber.Handler { return timeout.NewWithContext(h, requestTimeout) }

	v1.Get("/itineraries", route(ListItinerariesHandler(deps)))
	v1.Post("/itineraries", route(CreateItineraryHandler(deps)))
	v1.Get("/itineraries/:id", route(GetItineraryHandler(deps)))
	v1.Delete("/itineraries/:id", route(DeleteItineraryHandler(deps)))
	v1.Put("/itineraries/:id/dates", route(SetDatesHandler(deps)))
	v1.Put("/itineraries/:id/country", route(SetCountryHandler(deps)))

	v1.Post("/itineraries/:id/days/:day/waypoints", route(InsertWaypointHandler(deps)))
	v1.Delete("/itineraries/:id/days/:day/waypoints/:waypointID", route(RemoveWaypointHandler(deps)))
	v1.Patch("/itineraries/:id/days/:day/waypoints/:waypointID", route(ReorderWaypointHandler(deps)))
	v1.Post("/itineraries/:id/days/:day/expand", route(ExpandDayHandler(deps)))

	v1.Get("/itineraries/:id/render-plan", route(RenderPlanHandler(deps)))
	v1.Post("/itineraries/:id/map-click", route(MapClickHandler(deps)))
	v1.Post("/itineraries/:id/region-click", route(RegionClickHandler(deps)))
	v1.Post("/itineraries/:id/prefetch", route(PrefetchHandler(deps)))

	// hover is registered before :name so it is not taken for a region
	v1.Get("/itineraries/:id/regions", route(RegionsHandler(deps)))
	v1.Put("/itineraries/:id/regions/hover", route(HoverRegionHandler(deps)))
	v1.Post("/itineraries/:id/regions/:name/toggle", route(ToggleRegionHandler(deps)))
	v1.Put("/itineraries/:id/regions/:name/visited", route(MarkVisitedHandler(deps)))

	v1.Post("/routes", route(RouteHandler(deps)))
	v1.Get("/boundaries/:country", route(BoundariesHandler(deps)))
	v1.Get("/countries/:country/boundaries", route(BoundariesHandler(deps)))
	v1.Get("/geoip/country", route(GeoIPCountryHandler(deps)))

	app.Post("/graphql", GraphQLHandler(deps))

	SetupDocs(app, deps.OpenAPIPath)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(WebSocketHandler(deps)))
}
