package http

import (
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/wayfarer/internal/adapters/postgres"
	"github.com/samirrijal/wayfarer/internal/adapters/valkey"
	"github.com/samirrijal/wayfarer/internal/core/domain"
	"github.com/samirrijal/wayfarer/internal/core/ports"
	"github.com/samirrijal/wayfarer/internal/core/usecases"
)

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Schedule   *usecases.ScheduleService
	Legs       *usecases.LegService
	Boundaries *usecases.BoundaryService
	Regions    *usecases.RegionService
	MapView    *usecases.MapViewService
	Palette    domain.RegionPalette
	Locator    ports.CountryLocator    // optional
	Prefetch   ports.PrefetchScheduler // optional
	NATS       *nats.Conn
	DB         *postgres.DB
	Cache      *valkey.Cache

	OpenAPIPath string // served under /docs; empty uses DefaultOpenAPIPath
}
