package main

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/samirrijal/wayfarer/internal/core/domain"
	"github.com/samirrijal/wayfarer/internal/core/usecases"
)

type memRepo struct {
	mu    sync.Mutex
	items map[string]domain.Itinerary
}

func (m *memRepo) Create(ctx context.Context, it *domain.Itinerary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[it.ID] = *it
	return nil
}

func (m *memRepo) GetByID(ctx context.Context, id string) (*domain.Itinerary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.items[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &it, nil
}

func (m *memRepo) Save(ctx context.Context, it *domain.Itinerary, expectedVersion int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[it.ID] = *it
	return nil
}

func (m *memRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, id)
	return nil
}

func (m *memRepo) List(ctx context.Context, offset, limit int) ([]domain.Itinerary, int, error) {
	return nil, 0, nil
}

type straightRouter struct{}

func (straightRouter) Route(ctx context.Context, coords []domain.GeoPoint) (*domain.Leg, error) {
	return &domain.Leg{From: coords[0], To: coords[len(coords)-1], DistanceMeters: 1000, Path: coords}, nil
}

type planRecorder struct {
	mu    sync.Mutex
	plans []*domain.RenderPlan
}

func (p *planRecorder) PublishItineraryEvent(ctx context.Context, event *domain.ItineraryEvent) error {
	return nil
}

func (p *planRecorder) PublishIntent(ctx context.Context, intent *domain.Intent) error { return nil }

func (p *planRecorder) PublishRenderPlan(ctx context.Context, plan *domain.RenderPlan) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.plans = append(p.plans, plan)
	return nil
}

func (p *planRecorder) last() *domain.RenderPlan {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.plans) == 0 {
		return nil
	}
	return p.plans[len(p.plans)-1]
}

type syncerFixture struct {
	schedule *usecases.ScheduleService
	mapView  *usecases.MapViewService
	plans    *planRecorder
	id       string
}

func newSyncerFixture(t *testing.T) *syncerFixture {
	t.Helper()
	ctx := context.Background()
	schedule := usecases.NewScheduleService(&memRepo{items: make(map[string]domain.Itinerary)}, nil)
	legs := usecases.NewLegService(straightRouter{}, nil, 0, 2)
	plans := &planRecorder{}
	mapView := usecases.NewMapViewService(schedule, legs, nil, plans, usecases.MapViewOptions{})

	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)
	it, err := schedule.Create(ctx, "Kyoto", "jp", &start, &end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	add := func(day int, id string, lat, lon float64) {
		t.Helper()
		wp := domain.Waypoint{ID: id, Name: id, Kind: domain.WaypointPlace, Position: &domain.GeoPoint{Lat: lat, Lon: lon}}
		if _, err := schedule.InsertWaypoint(ctx, it.ID, day, wp, 99); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	add(1, "fushimi", 34.967, 135.772)
	add(1, "gion", 35.003, 135.775)
	add(2, "arashiyama", 35.009, 135.667)

	return &syncerFixture{schedule: schedule, mapView: mapView, plans: plans, id: it.ID}
}

func TestHandleEvent_PublishesPlanForExpandedDay(t *testing.T) {
	f := newSyncerFixture(t)
	ctx := context.Background()

	err := handleEvent(ctx, f.schedule, f.mapView, &domain.ItineraryEvent{ItineraryID: f.id, Kind: domain.EventWaypointInserted, Day: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	plan := f.plans.last()
	if plan == nil {
		t.Fatal("expected a published plan")
	}
	if plan.Day != 1 || len(plan.Markers) != 2 || len(plan.Polylines) != 1 {
		t.Errorf("unexpected plan: day=%d markers=%d polylines=%d", plan.Day, len(plan.Markers), len(plan.Polylines))
	}
}

func TestHandleEvent_FollowsDayExpanded(t *testing.T) {
	f := newSyncerFixture(t)
	ctx := context.Background()

	err := handleEvent(ctx, f.schedule, f.mapView, &domain.ItineraryEvent{ItineraryID: f.id, Kind: domain.EventDayExpanded, Day: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	plan := f.plans.last()
	if plan == nil || plan.Day != 2 {
		t.Fatalf("expected a day 2 plan, got %+v", plan)
	}
	if len(plan.Markers) != 1 || len(plan.Polylines) != 0 {
		t.Errorf("expected 1 marker and no polylines, got %d/%d", len(plan.Markers), len(plan.Polylines))
	}
}

func TestHandleEvent_VanishedTargetsAreAcked(t *testing.T) {
	f := newSyncerFixture(t)
	ctx := context.Background()

	if err := handleEvent(ctx, f.schedule, f.mapView, &domain.ItineraryEvent{ItineraryID: "missing", Kind: domain.EventWaypointRemoved}); err != nil {
		t.Errorf("expected unknown itinerary to be skipped, got %v", err)
	}
	if err := handleEvent(ctx, f.schedule, f.mapView, &domain.ItineraryEvent{ItineraryID: f.id, Kind: domain.EventDayExpanded, Day: 9}); err != nil {
		t.Errorf("expected unknown day to be skipped, got %v", err)
	}
	if err := handleEvent(ctx, f.schedule, f.mapView, &domain.ItineraryEvent{ItineraryID: f.id, Kind: domain.EventDeleted}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if got := f.plans.last(); got != nil {
		t.Errorf("expected nothing published, got plan for day %d", got.Day)
	}
}
