package ports

import (
	"context"
	"errors"

	"github.com/samirrijal/wayfarer/internal/core/domain"
)

// RoutingProvider turns an ordered coordinate list into a travel leg.
// Fewer than two coordinates yields (nil, nil). Failures are reported as
// *domain.RouteUnavailableError; implementations never retry or cache.
type RoutingProvider interface {
	Route(ctx context.Context, coords []domain.GeoPoint) (*domain.Leg, error)
}

// BoundaryProvider fetches the raw subdivision document for a resolved
// country code. Failures are reported as *domain.BoundaryLoadError.
type BoundaryProvider interface {
	Fetch(ctx context.Context, code string) ([]byte, error)
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishItineraryEvent(ctx context.Context, event *domain.ItineraryEvent) error
	PublishIntent(ctx context.Context, intent *domain.Intent) error
	PublishRenderPlan(ctx context.Context, plan *domain.RenderPlan) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeItineraryEvents(ctx context.Context, handler func(ctx context.Context, event *domain.ItineraryEvent) error) error
}

// ErrCacheMiss is returned by CacheService.Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// CountryLocator suggests a destination country from a client address.
type CountryLocator interface {
	CountryCode(ip string) (string, error)
}

// PrefetchScheduler starts background leg warm-up for an itinerary.
type PrefetchScheduler interface {
	SchedulePrefetch(ctx context.Context, itineraryID string) (string, error)
}
