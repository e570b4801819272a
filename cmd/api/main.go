package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/samirrijal/wayfarer/internal/adapters/boundary"
	"github.com/samirrijal/wayfarer/internal/adapters/geoip"
	"github.com/samirrijal/wayfarer/internal/adapters/http"
	natsadapter "github.com/samirrijal/wayfarer/internal/adapters/nats"
	"github.com/samirrijal/wayfarer/internal/adapters/postgres"
	"github.com/samirrijal/wayfarer/internal/adapters/routing"
	"github.com/samirrijal/wayfarer/internal/adapters/valkey"
	"github.com/samirrijal/wayfarer/internal/core/domain"
	"github.com/samirrijal/wayfarer/internal/core/ports"
	"github.com/samirrijal/wayfarer/internal/core/usecases"
	"github.com/samirrijal/wayfarer/internal/pkg/config"
	"github.com/samirrijal/wayfarer/internal/pkg/geospatial"
	"github.com/samirrijal/wayfarer/internal/pkg/logging"
	"github.com/samirrijal/wayfarer/internal/pkg/telemetry"
	"github.com/samirrijal/wayfarer/internal/workflows"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("wayfarer-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Cache. Services run uncached when Valkey is down.
	var cache ports.CacheService
	vc, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		cache = vc
		defer vc.Close()
	}

	// NATS
	var publisher ports.EventPublisher
	nc, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		publisher = nc
		defer nc.Close()
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer natsConn.Drain()
	}

	// Repos
	itineraryRepo := postgres.NewItineraryRepo(db)
	visitRepo := postgres.NewRegionVisitRepo(db)

	// Use cases
	provider, source := boundary.FromConfig(cfg.Boundary)
	boundaryViewport := geospatial.Viewport{
		Width:   cfg.Boundary.ViewportWidth,
		Height:  cfg.Boundary.ViewportHeight,
		Padding: cfg.Boundary.Padding,
	}
	palette := domain.DefaultRegionPalette

	scheduleSvc := usecases.NewScheduleService(itineraryRepo, publisher)
	legSvc := usecases.NewLegService(routing.FromConfig(cfg.Routing), cache, cfg.Routing.CacheTTLSeconds, cfg.Routing.MaxConcurrent)
	boundarySvc := usecases.NewBoundaryService(provider, cache, cfg.Boundary.CacheTTLSeconds, boundaryViewport, source)
	regionSvc := usecases.NewRegionService(boundarySvc, visitRepo, palette)
	mapViewSvc := usecases.NewMapViewService(scheduleSvc, legSvc, regionSvc, publisher, usecases.MapViewOptions{
		Viewport: geospatial.Viewport{
			Width:   cfg.MapView.ViewportWidth,
			Height:  cfg.MapView.ViewportHeight,
			Padding: cfg.MapView.Padding,
		},
		MaxZoom: cfg.MapView.MaxZoom,
		Palette: cfg.MapView.Palette,
	})

	deps := &http.Dependencies{
		Schedule:   scheduleSvc,
		Legs:       legSvc,
		Boundaries: boundarySvc,
		Regions:    regionSvc,
		MapView:    mapViewSvc,
		Palette:    palette,
		NATS:       natsConn,
		DB:         db,
		Cache:      vc,

		OpenAPIPath: cfg.Server.OpenAPIPath,
	}

	// Optional integrations
	if cfg.GeoIP.DBPath != "" {
		locator, err := geoip.Open(cfg.GeoIP.DBPath)
		if err != nil {
			slog.Warn("geoip unavailable", "path", cfg.GeoIP.DBPath, "error", err)
		} else {
			deps.Locator = locator
			defer locator.Close()
		}
	}
	if tc, err := workflows.Dial(cfg.Temporal); err != nil {
		slog.Warn("temporal unavailable, prefetch disabled", "host_port", cfg.Temporal.HostPort, "error", err)
	} else {
		deps.Prefetch = workflows.NewScheduler(tc, cfg.Temporal.TaskQueue)
		defer tc.Close()
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "Wayfarer API",
		// Path params end up as long-lived map keys in the services.
		Immutable: true,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, If-None-Match",
		ExposeHeaders:    "ETag, Link, Location, X-Request-Id",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
