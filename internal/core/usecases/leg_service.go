package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/samirrijal/wayfarer/internal/core/domain"
	"github.com/samirrijal/wayfarer/internal/core/ports"
	"github.com/samirrijal/wayfarer/internal/pkg/metrics"
	"github.com/samirrijal/wayfarer/internal/pkg/telemetry"
)

const legCachePrefix = "legs:"

// LegResult is the outcome for one pair of consecutive positioned waypoints.
// Leg is nil when no route was available; Err says why.
type LegResult struct {
	From domain.Waypoint
	To   domain.Waypoint
	Leg  *domain.Leg
	Err  error
}

// LegService resolves travel legs through a cache keyed by the exact
// coordinate sequence.
type LegService struct {
	router        ports.RoutingProvider
	cache         ports.CacheService
	ttlSeconds    int
	maxConcurrent int
}

// NewLegService creates a new LegService. cache may be nil.
func NewLegService(router ports.RoutingProvider, cache ports.CacheService, ttlSeconds, maxConcurrent int) *LegService {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &LegService{router: router, cache: cache, ttlSeconds: ttlSeconds, maxConcurrent: maxConcurrent}
}

// Route returns the leg for coords, consulting the cache first. Successful
// lookups are cached even if the caller has stopped waiting for them.
func (s *LegService) Route(ctx context.Context, coords []domain.GeoPoint) (*domain.Leg, error) {
	if len(coords) < 2 {
		return nil, nil
	}

	cacheKey := legCachePrefix + domain.CoordinateKey(coords)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil && data != nil {
			var leg domain.Leg
			if err := json.Unmarshal(data, &leg); err == nil {
				metrics.CacheLookup("legs", true)
				trace.SpanFromContext(ctx).SetAttributes(attribute.Bool(telemetry.AttrCacheHit, true))
				return &leg, nil
			}
		}
		metrics.CacheLookup("legs", false)
	}

	leg, err := s.router.Route(ctx, coords)
	if err != nil {
		return nil, err
	}
	if leg == nil {
		return nil, &domain.RouteUnavailableError{Err: fmt.Errorf("provider returned no route")}
	}

	if s.cache != nil {
		if data, err := json.Marshal(leg); err == nil {
			// Detached so a cancelled request still warms the cache.
			_ = s.cache.Set(context.WithoutCancel(ctx), cacheKey, data, s.ttlSeconds)
		}
	}
	return leg, nil
}

// Pairs returns consecutive positioned waypoints of a day. Waypoints without
// a position are skipped, so a note between two places does not break the route.
func Pairs(day domain.Day) [][2]domain.Waypoint {
	var positioned []domain.Waypoint
	for _, w := range day.Waypoints {
		if w.Positioned() {
			positioned = append(positioned, w)
		}
	}
	if len(positioned) < 2 {
		return nil
	}
	out := make([][2]domain.Waypoint, 0, len(positioned)-1)
	for i := 1; i < len(positioned); i++ {
		out = append(out, [2]domain.Waypoint{positioned[i-1], positioned[i]})
	}
	return out
}

// ResolveDay fetches every leg of day concurrently. Unavailable routes are
// reported per pair and never fail the whole day; only cancellation does.
func (s *LegService) ResolveDay(ctx context.Context, day domain.Day) ([]LegResult, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanLegsResolve)
	defer span.End()

	pairs := Pairs(day)
	span.SetAttributes(attribute.Int(telemetry.AttrDay, day.Number), attribute.Int(telemetry.AttrWaypoints, len(day.Waypoints)))
	if len(pairs) == 0 {
		return nil, nil
	}

	// Identical pairs share one lookup.
	type outcome struct {
		leg *domain.Leg
		err error
	}
	keys := make([]string, len(pairs))
	byKey := make(map[string]*outcome, len(pairs))
	for i, p := range pairs {
		keys[i] = domain.CoordinateKey([]domain.GeoPoint{*p[0].Position, *p[1].Position})
		if _, ok := byKey[keys[i]]; !ok {
			byKey[keys[i]] = &outcome{}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)
	seen := make(map[string]bool, len(byKey))
	for i, p := range pairs {
		key := keys[i]
		if seen[key] {
			continue
		}
		seen[key] = true
		o := byKey[key]
		coords := []domain.GeoPoint{*p[0].Position, *p[1].Position}
		g.Go(func() error {
			o.leg, o.err = s.Route(gctx, coords)
			if o.err != nil && gctx.Err() != nil {
				return gctx.Err()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	results := make([]LegResult, len(pairs))
	for i, p := range pairs {
		o := byKey[keys[i]]
		results[i] = LegResult{From: p[0], To: p[1], Leg: o.leg, Err: o.err}
		if o.err != nil && !errors.Is(o.err, domain.ErrRouteUnavailable) {
			results[i].Err = &domain.RouteUnavailableError{Err: o.err}
		}
	}
	return results, nil
}
