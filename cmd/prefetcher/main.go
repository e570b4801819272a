package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/worker"

	"github.com/samirrijal/wayfarer/internal/adapters/postgres"
	"github.com/samirrijal/wayfarer/internal/adapters/routing"
	"github.com/samirrijal/wayfarer/internal/adapters/valkey"
	"github.com/samirrijal/wayfarer/internal/core/usecases"
	"github.com/samirrijal/wayfarer/internal/pkg/config"
	"github.com/samirrijal/wayfarer/internal/pkg/logging"
	"github.com/samirrijal/wayfarer/internal/pkg/telemetry"
	"github.com/samirrijal/wayfarer/internal/workflows"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("wayfarer-prefetcher")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	ctx := context.Background()

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

	// Warming is pointless without a shared cache.
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		log.Fatalf("valkey: %v", err)
	}
	defer cache.Close()

	// Prefetch never mutates itineraries, so no publisher is needed.
	schedule := usecases.NewScheduleService(postgres.NewItineraryRepo(db), nil)
	legs := usecases.NewLegService(routing.FromConfig(cfg.Routing), cache, cfg.Routing.CacheTTLSeconds, cfg.Routing.MaxConcurrent)

	c, err := workflows.Dial(cfg.Temporal)
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.LegPrefetchWorkflow)
	w.RegisterActivity(&workflows.PrefetchActivities{
		Schedule: schedule,
		Legs:     legs,
	})

	slog.Info("prefetch worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
