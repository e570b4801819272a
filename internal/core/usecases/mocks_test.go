package usecases_test

import (
	"context"
	"sync"

	"github.com/samirrijal/wayfarer/internal/core/domain"
	"github.com/samirrijal/wayfarer/internal/core/ports"
)

// --- Mock ItineraryRepository ---

// mockItineraryRepo stores itineraries in memory; function fields override
// individual calls.
type mockItineraryRepo struct {
	mu     sync.Mutex
	items  map[string]domain.Itinerary
	saves  int
	saveFn func(ctx context.Context, it *domain.Itinerary, expectedVersion int64) error
}

func newMockItineraryRepo() *mockItineraryRepo {
	return &mockItineraryRepo{items: make(map[string]domain.Itinerary)}
}

func (m *mockItineraryRepo) Create(ctx context.Context, it *domain.Itinerary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[it.ID] = *it
	return nil
}

func (m *mockItineraryRepo) GetByID(ctx context.Context, id string) (*domain.Itinerary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &it, nil
}

func (m *mockItineraryRepo) Save(ctx context.Context, it *domain.Itinerary, expectedVersion int64) error {
	if m.saveFn != nil {
		if err := m.saveFn(ctx, it, expectedVersion); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.items[it.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Version != expectedVersion {
		return domain.ErrVersionConflict
	}
	m.items[it.ID] = *it
	m.saves++
	return nil
}

func (m *mockItineraryRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.items, id)
	return nil
}

func (m *mockItineraryRepo) List(ctx context.Context, offset, limit int) ([]domain.Itinerary, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Itinerary
	for _, it := range m.items {
		out = append(out, it)
	}
	total := len(out)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return out[offset:end], total, nil
}

// --- Mock RegionVisitRepository ---

type mockVisitRepo struct {
	listVisitedFn func(ctx context.Context, itineraryID, country string) ([]string, error)
	setVisitedFn  func(ctx context.Context, itineraryID, country, region string, visited bool) error
}

func (m *mockVisitRepo) ListVisited(ctx context.Context, itineraryID, country string) ([]string, error) {
	if m.listVisitedFn != nil {
		return m.listVisitedFn(ctx, itineraryID, country)
	}
	return nil, nil
}

func (m *mockVisitRepo) SetVisited(ctx context.Context, itineraryID, country, region string, visited bool) error {
	if m.setVisitedFn != nil {
		return m.setVisitedFn(ctx, itineraryID, country, region, visited)
	}
	return nil
}

// --- Mock RoutingProvider ---

type mockRouter struct {
	mu      sync.Mutex
	calls   int
	routeFn func(ctx context.Context, coords []domain.GeoPoint) (*domain.Leg, error)
}

func (m *mockRouter) Route(ctx context.Context, coords []domain.GeoPoint) (*domain.Leg, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	if m.routeFn != nil {
		return m.routeFn(ctx, coords)
	}
	return straightLeg(coords), nil
}

func (m *mockRouter) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func straightLeg(coords []domain.GeoPoint) *domain.Leg {
	return &domain.Leg{
		From:            coords[0],
		To:              coords[len(coords)-1],
		DistanceMeters:  1000,
		DurationSeconds: 60,
		Path:            coords,
	}
}

// --- Mock BoundaryProvider ---

type mockBoundaryProvider struct {
	fetchFn func(ctx context.Context, code string) ([]byte, error)
}

func (m *mockBoundaryProvider) Fetch(ctx context.Context, code string) ([]byte, error) {
	if m.fetchFn != nil {
		return m.fetchFn(ctx, code)
	}
	return nil, &domain.BoundaryLoadError{Code: code, Status: 404}
}

// --- Mock CacheService ---

type mockCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMockCache() *mockCache { return &mockCache{data: make(map[string][]byte)} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, ports.ErrCacheMiss
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *mockCache) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	mu      sync.Mutex
	events  []domain.ItineraryEvent
	intents []domain.Intent
	plans   []domain.RenderPlan
}

func (m *mockPublisher) PublishItineraryEvent(ctx context.Context, event *domain.ItineraryEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, *event)
	return nil
}

func (m *mockPublisher) PublishIntent(ctx context.Context, intent *domain.Intent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intents = append(m.intents, *intent)
	return nil
}

func (m *mockPublisher) PublishRenderPlan(ctx context.Context, plan *domain.RenderPlan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.plans = append(m.plans, *plan)
	return nil
}

func (m *mockPublisher) Kinds() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.Kind
	}
	return out
}

// Two adjoining unit squares, nested under a second key the way some
// providers wrap their collections.
const twoRegionDoc = `{
	"meta": {"source": "test"},
	"collection": {
		"type": "FeatureCollection",
		"features": [
			{"type": "Feature", "properties": {"name": "West"},
			 "geometry": {"type": "Polygon", "coordinates": [[[0,0],[1,0],[1,1],[0,1],[0,0]]]}},
			{"type": "Feature", "properties": {"name": "East"},
			 "geometry": {"type": "Polygon", "coordinates": [[[1,0],[2,0],[2,1],[1,1],[1,0]]]}}
		]
	}
}`
