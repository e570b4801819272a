package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
)

var errDisconnected = errors.New("disconnected")

// HealthHandler returns a basic liveness check.
func HealthHandler(deps *Dependencies) fiber.Handler {
	startedAt := time.Now()

	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"uptime":  time.Since(startedAt).String(),
			"version": "dev",
		})
	}
}

// dependencyCheck probes one backing service. required failures make the
// instance not ready; optional ones are only reported.
type dependencyCheck struct {
	name     string
	required bool
	probe    func(ctx context.Context) (configured bool, err error)
}

// ReadyHandler checks DB, NATS and cache connectivity plus the optional
// GeoIP and prefetch integrations.
func ReadyHandler(deps *Dependencies) fiber.Handler {
	checks := []dependencyCheck{
		{name: "database", required: true, probe: func(ctx context.Context) (bool, error) {
			if deps.DB == nil {
				return false, nil
			}
			return true, deps.DB.Ping(ctx)
		}},
		{name: "nats", probe: func(ctx context.Context) (bool, error) {
			if deps.NATS == nil {
				return false, nil
			}
			if !deps.NATS.IsConnected() {
				return true, errDisconnected
			}
			return true, nil
		}},
		{name: "cache", probe: func(ctx context.Context) (bool, error) {
			if deps.Cache == nil {
				return false, nil
			}
			return true, deps.Cache.Ping(ctx)
		}},
		{name: "geoip", probe: func(ctx context.Context) (bool, error) {
			return deps.Locator != nil, nil
		}},
		{name: "prefetch", probe: func(ctx context.Context) (bool, error) {
			return deps.Prefetch != nil, nil
		}},
	}

	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
		defer cancel()

		results := make(map[string]string, len(checks))
		allOK := true
		for _, chk := range checks {
			configured, err := chk.probe(ctx)
			switch {
			case !configured:
				results[chk.name] = "not configured"
				if chk.required {
					allOK = false
				}
			case err != nil:
				results[chk.name] = "error: " + err.Error()
				allOK = false
			default:
				results[chk.name] = "ok"
			}
		}

		status := "ready"
		code := 200
		if !allOK {
			status = "not ready"
			code = 503
		}

		return c.Status(code).JSON(fiber.Map{
			"status": status,
			"checks": results,
		})
	}
}
