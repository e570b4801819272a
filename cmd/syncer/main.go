package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

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
)

const durableName = "mapview-syncer"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("wayfarer-syncer")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	var cache ports.CacheService
	if vc, err := valkey.New(cfg.Valkey.Addr); err != nil {
		slog.Warn("valkey unavailable, legs will not be cached", "error", err)
	} else {
		cache = vc
		defer vc.Close()
	}

	publisher, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats publisher: %v", err)
	}
	defer publisher.Close()

	subscriber, err := natsadapter.NewSubscriber(cfg.NATS.URL, durableName)
	if err != nil {
		log.Fatalf("nats subscriber: %v", err)
	}
	defer subscriber.Close()

	// The syncer only reads itineraries; it never re-publishes their events.
	schedule := usecases.NewScheduleService(postgres.NewItineraryRepo(db), nil)
	legs := usecases.NewLegService(routing.FromConfig(cfg.Routing), cache, cfg.Routing.CacheTTLSeconds, cfg.Routing.MaxConcurrent)
	mapView := usecases.NewMapViewService(schedule, legs, nil, publisher, usecases.MapViewOptions{
		Viewport: geospatial.Viewport{
			Width:   cfg.MapView.ViewportWidth,
			Height:  cfg.MapView.ViewportHeight,
			Padding: cfg.MapView.Padding,
		},
		MaxZoom: cfg.MapView.MaxZoom,
		Palette: cfg.MapView.Palette,
	})

	err = subscriber.SubscribeItineraryEvents(ctx, func(ctx context.Context, event *domain.ItineraryEvent) error {
		return handleEvent(ctx, schedule, mapView, event)
	})
	if err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	slog.Info("map view syncer started", "durable", durableName)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	slog.Info("shutting down map view syncer", "signal", sig.String())
}

// handleEvent re-syncs the render plan an event affects. The expanded day is
// mirrored from day_expanded events so plans follow the day the client
// opened. A returned error naks the message.
func handleEvent(ctx context.Context, schedule *usecases.ScheduleService, mapView *usecases.MapViewService, event *domain.ItineraryEvent) error {
	if event.Kind == domain.EventDeleted {
		mapView.Forget(event.ItineraryID)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	var err error
	if event.Kind == domain.EventDayExpanded {
		err = schedule.ExpandDay(ctx, event.ItineraryID, event.Day)
	}
	var plan *domain.RenderPlan
	if err == nil {
		plan, err = mapView.SyncAndPublish(ctx, event.ItineraryID, usecases.SyncOptions{})
	}
	switch {
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrDayNotFound):
		// Deleted or shrunk before we got here; a later event supersedes this one.
		slog.Debug("skipping sync for vanished target", "itinerary_id", event.ItineraryID, "kind", event.Kind)
		return nil
	case err != nil:
		return err
	case plan == nil:
		return nil
	}
	slog.Debug("render plan published",
		"itinerary_id", event.ItineraryID,
		"kind", event.Kind,
		"day", plan.Day,
		"revision", plan.Revision,
	)
	return nil
}
