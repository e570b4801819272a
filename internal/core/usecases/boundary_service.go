package usecases

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/wayfarer/internal/core/domain"
	"github.com/samirrijal/wayfarer/internal/core/ports"
	"github.com/samirrijal/wayfarer/internal/pkg/country"
	"github.com/samirrijal/wayfarer/internal/pkg/generation"
	"github.com/samirrijal/wayfarer/internal/pkg/geospatial"
	"github.com/samirrijal/wayfarer/internal/pkg/metrics"
	"github.com/samirrijal/wayfarer/internal/pkg/telemetry"
	"github.com/samirrijal/wayfarer/internal/pkg/topology"
)

// BoundaryCachePrefix namespaces cached boundary documents by country code.
const BoundaryCachePrefix = "boundary:doc:"

// BoundarySet is one country's subdivisions together with the single
// projection every path and hit-test uses.
type BoundarySet struct {
	Code         string
	Subdivisions []domain.Subdivision
	Projection   geospatial.Projection
	Paths        []domain.SubdivisionPath
}

// Names returns the subdivision names in dataset order.
func (b *BoundarySet) Names() []string {
	out := make([]string, len(b.Subdivisions))
	for i, s := range b.Subdivisions {
		out[i] = s.Name
	}
	return out
}

// Locate returns the subdivision under viewport point (px, py).
func (b *BoundarySet) Locate(px, py float64) (string, bool) {
	x, y := b.Projection.Invert(px, py)
	for _, s := range b.Subdivisions {
		if geospatial.ContainsPoint(s.Geometry.MultiPolygon, x, y) {
			return s.Name, true
		}
	}
	return "", false
}

// View styles every subdivision. A nil state renders everything neutral.
func (b *BoundarySet) View(st *domain.RegionVisitState, palette domain.RegionPalette) domain.BoundaryView {
	view := domain.BoundaryView{
		Country: b.Code,
		Width:   b.Projection.Viewport.Width,
		Height:  b.Projection.Viewport.Height,
		Regions: make([]domain.RegionView, 0, len(b.Paths)),
	}
	for _, p := range b.Paths {
		r := domain.RegionRender{Name: p.Name, State: domain.RegionNeutral}
		if st != nil {
			r = st.RenderStateFor(p.Name)
		}
		style := palette.Style(r)
		view.Regions = append(view.Regions, domain.RegionView{
			Name:    p.Name,
			D:       p.D,
			State:   r.State,
			Hovered: r.Hovered,
			Fill:    style.Fill,
			Stroke:  style.Stroke,
		})
	}
	return view
}

// BoundaryService loads subdivision datasets and keeps the current set per
// scope. A newer load for a scope always wins over an older one.
type BoundaryService struct {
	provider   ports.BoundaryProvider
	cache      ports.CacheService
	ttlSeconds int
	viewport   geospatial.Viewport
	source     string

	gen     *generation.Counter
	mu      sync.RWMutex
	current map[string]*BoundarySet
}

// NewBoundaryService creates a new BoundaryService. source labels metrics
// ("http" or "shapefile"); cache may be nil.
func NewBoundaryService(provider ports.BoundaryProvider, cache ports.CacheService, ttlSeconds int, viewport geospatial.Viewport, source string) *BoundaryService {
	if viewport.Width <= 0 || viewport.Height <= 0 {
		viewport = geospatial.DefaultViewport
	}
	return &BoundaryService{
		provider:   provider,
		cache:      cache,
		ttlSeconds: ttlSeconds,
		viewport:   viewport,
		source:     source,
		gen:        generation.New(),
		current:    make(map[string]*BoundarySet),
	}
}

// Build resolves, fetches, decodes and projects a country without touching
// any scope.
func (s *BoundaryService) Build(ctx context.Context, countryInput string) (*BoundarySet, error) {
	code := country.Resolve(countryInput)
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanBoundaryLoad)
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.AttrCountry, code))

	if code == "" {
		return nil, &domain.BoundaryLoadError{Code: code, Err: errors.New("country is required")}
	}

	set, err := s.build(ctx, code)
	if err != nil {
		metrics.BoundaryLoads.WithLabelValues(s.source, "error").Inc()
		span.RecordError(err)
		return nil, err
	}
	metrics.BoundaryLoads.WithLabelValues(s.source, "ok").Inc()
	metrics.BoundaryRegions.WithLabelValues(code).Set(float64(len(set.Subdivisions)))
	span.SetAttributes(attribute.Int(telemetry.AttrRegions, len(set.Subdivisions)))
	return set, nil
}

func (s *BoundaryService) build(ctx context.Context, code string) (*BoundarySet, error) {
	cacheKey := BoundaryCachePrefix + code

	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil && data != nil {
			if set, err := s.decode(code, data); err == nil {
				metrics.CacheLookup("boundary", true)
				trace.SpanFromContext(ctx).SetAttributes(attribute.Bool(telemetry.AttrCacheHit, true))
				return set, nil
			}
			_ = s.cache.Delete(ctx, cacheKey)
		}
		metrics.CacheLookup("boundary", false)
	}

	data, err := s.provider.Fetch(ctx, code)
	if err != nil {
		var ble *domain.BoundaryLoadError
		if errors.As(err, &ble) {
			return nil, err
		}
		return nil, &domain.BoundaryLoadError{Code: code, Err: err}
	}

	set, err := s.decode(code, data)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.Set(context.WithoutCancel(ctx), cacheKey, data, s.ttlSeconds)
	}
	return set, nil
}

func (s *BoundaryService) decode(code string, data []byte) (*BoundarySet, error) {
	regions, err := topology.Decode(data)
	if err != nil {
		return nil, &domain.BoundaryLoadError{Code: code, Err: err}
	}

	set := &BoundarySet{Code: code, Subdivisions: make([]domain.Subdivision, len(regions))}
	shapes := make([][][][][]float64, len(regions))
	for i, r := range regions {
		set.Subdivisions[i] = domain.Subdivision{Name: r.Name, Geometry: r.Geometry}
		shapes[i] = r.Geometry.MultiPolygon
	}

	ext, ok := geospatial.ExtentOf(shapes...)
	if !ok {
		return nil, &domain.BoundaryLoadError{Code: code, Err: topology.ErrNoCollection}
	}
	set.Projection = geospatial.Fit(ext, s.viewport)

	set.Paths = make([]domain.SubdivisionPath, len(regions))
	for i, r := range regions {
		set.Paths[i] = domain.SubdivisionPath{Name: r.Name, D: set.Projection.PathData(shapes[i])}
	}
	return set, nil
}

// Load replaces scope's boundary set. The previous set is dropped before the
// fetch begins; a load overtaken by a newer one returns ErrStaleResponse.
func (s *BoundaryService) Load(ctx context.Context, scope, countryInput string) (*BoundarySet, error) {
	token := s.gen.Advance(scope)

	s.mu.Lock()
	delete(s.current, scope)
	s.mu.Unlock()

	set, err := s.Build(ctx, countryInput)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.gen.Valid(token) {
		metrics.StaleDiscarded.WithLabelValues("boundary").Inc()
		slog.Debug("discarding stale boundary load", "scope", scope, "country", countryInput)
		return nil, domain.ErrStaleResponse
	}
	if err != nil {
		return nil, err
	}
	s.current[scope] = set
	return set, nil
}

// Current returns scope's loaded set, if any.
func (s *BoundaryService) Current(scope string) (*BoundarySet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	set, ok := s.current[scope]
	return set, ok
}

// Forget drops scope entirely and invalidates any in-flight load for it.
func (s *BoundaryService) Forget(scope string) {
	s.gen.Forget(scope)
	s.mu.Lock()
	delete(s.current, scope)
	s.mu.Unlock()
}
