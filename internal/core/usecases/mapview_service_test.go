package usecases_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/samirrijal/wayfarer/internal/core/domain"
	"github.com/samirrijal/wayfarer/internal/core/usecases"
	"github.com/samirrijal/wayfarer/internal/pkg/geospatial"
)

type mapViewFixture struct {
	schedule *usecases.ScheduleService
	router   *mockRouter
	pub      *mockPublisher
	regions  *usecases.RegionService
	svc      *usecases.MapViewService
	it       *domain.Itinerary
}

func newMapViewFixture(t *testing.T, router *mockRouter, wps ...domain.Waypoint) *mapViewFixture {
	t.Helper()
	ctx := context.Background()
	f := &mapViewFixture{router: router, pub: &mockPublisher{}}
	f.schedule = usecases.NewScheduleService(newMockItineraryRepo(), nil)
	legs := usecases.NewLegService(router, newMockCache(), 60, 2)
	f.regions = newRegionService(staticProvider(twoRegionDoc), nil)
	f.svc = usecases.NewMapViewService(f.schedule, legs, f.regions, f.pub, usecases.MapViewOptions{
		Viewport: geospatial.Viewport{Width: 800, Height: 600, Padding: 48},
		MaxZoom:  15,
		Palette:  []string{"#111111", "#222222"},
	})

	it, err := f.schedule.Create(ctx, "Trip", "th", day("2024-03-01"), day("2024-03-02"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, wp := range wps {
		it, err = f.schedule.InsertWaypoint(ctx, it.ID, 1, wp, i)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	f.it = it
	return f
}

func TestMapViewService_TwoWaypoints(t *testing.T) {
	f := newMapViewFixture(t, &mockRouter{}, placeAt("Bangkok", 13.75, 100.50), placeAt("Kanchanaburi", 14.04, 99.25))

	plan, err := f.svc.Sync(context.Background(), f.it.ID, usecases.SyncOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Markers) != 2 {
		t.Fatalf("expected 2 markers, got %d", len(plan.Markers))
	}
	if plan.Markers[0].Label != "1" || plan.Markers[1].Label != "2" {
		t.Errorf("expected labels 1 and 2, got %s and %s", plan.Markers[0].Label, plan.Markers[1].Label)
	}
	if plan.Markers[0].Color != "#111111" {
		t.Errorf("expected day 1 colour, got %s", plan.Markers[0].Color)
	}
	if len(plan.Polylines) != 1 || plan.Polylines[0].Color != plan.Markers[0].Color {
		t.Errorf("expected one polyline in the origin colour, got %+v", plan.Polylines)
	}
	if plan.Camera == nil {
		t.Fatal("expected a camera instruction")
	}
	for _, m := range plan.Markers {
		if !plan.Camera.Bounds.Contains(m.Position) {
			t.Errorf("expected camera bounds to contain %+v", m.Position)
		}
	}
	if plan.Camera.Zoom > 15 || plan.Camera.Zoom < 1 {
		t.Errorf("unexpected zoom %f", plan.Camera.Zoom)
	}
	if plan.TotalDistanceMeters != 1000 {
		t.Errorf("expected total 1000m, got %f", plan.TotalDistanceMeters)
	}
}

func TestMapViewService_UpstreamFailureStillRendersMarkers(t *testing.T) {
	router := &mockRouter{routeFn: func(ctx context.Context, coords []domain.GeoPoint) (*domain.Leg, error) {
		return nil, &domain.RouteUnavailableError{Status: 500}
	}}
	f := newMapViewFixture(t, router, placeAt("Bangkok", 13.75, 100.50), placeAt("Kanchanaburi", 14.04, 99.25))

	plan, err := f.svc.Sync(context.Background(), f.it.ID, usecases.SyncOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Markers) != 2 {
		t.Errorf("expected 2 markers, got %d", len(plan.Markers))
	}
	if len(plan.Polylines) != 0 {
		t.Errorf("expected 0 polylines, got %d", len(plan.Polylines))
	}
	if len(plan.Unrouted) != 1 {
		t.Errorf("expected 1 unrouted pair, got %d", len(plan.Unrouted))
	}
}

func TestMapViewService_SinglePointCapsZoom(t *testing.T) {
	f := newMapViewFixture(t, &mockRouter{}, placeAt("Bangkok", 13.75, 100.50))

	plan, err := f.svc.Sync(context.Background(), f.it.ID, usecases.SyncOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Camera == nil || plan.Camera.Zoom != 15 {
		t.Errorf("expected zoom capped at 15, got %+v", plan.Camera)
	}
}

func TestMapViewService_EmptyDayHasNoCamera(t *testing.T) {
	f := newMapViewFixture(t, &mockRouter{})
	plan, err := f.svc.Sync(context.Background(), f.it.ID, usecases.SyncOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Camera != nil || len(plan.Markers) != 0 {
		t.Errorf("expected empty plan, got %+v", plan)
	}
}

func TestMapViewService_RebuildOnlyWhenLayoutChanges(t *testing.T) {
	f := newMapViewFixture(t, &mockRouter{}, placeAt("Bangkok", 13.75, 100.50), placeAt("Kanchanaburi", 14.04, 99.25))
	ctx := context.Background()

	first, _ := f.svc.Sync(ctx, f.it.ID, usecases.SyncOptions{})
	second, _ := f.svc.Sync(ctx, f.it.ID, usecases.SyncOptions{})
	if !first.Rebuild || second.Rebuild {
		t.Errorf("expected rebuild then reuse, got %v then %v", first.Rebuild, second.Rebuild)
	}
	if second.Revision != first.Revision {
		t.Errorf("expected revision to hold, got %d then %d", first.Revision, second.Revision)
	}

	wps := f.it.Days[0].Waypoints
	if _, err := f.schedule.ReorderWaypoint(ctx, f.it.ID, 1, wps[1].ID, 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	third, _ := f.svc.Sync(ctx, f.it.ID, usecases.SyncOptions{})
	if !third.Rebuild || third.Revision != first.Revision+1 {
		t.Errorf("expected rebuild with a new revision, got %+v", third)
	}

	// Switching days never reuses markers.
	fourth, _ := f.svc.Sync(ctx, f.it.ID, usecases.SyncOptions{Day: 2})
	if !fourth.Rebuild || len(fourth.Markers) != 0 {
		t.Errorf("expected empty rebuilt plan for day 2, got %+v", fourth)
	}
	if fourth.Markers == nil {
		t.Error("expected empty marker slice rather than nil")
	}
}

func TestMapViewService_FollowsExpandedDay(t *testing.T) {
	f := newMapViewFixture(t, &mockRouter{}, placeAt("Bangkok", 13.75, 100.50))
	ctx := context.Background()
	if err := f.schedule.ExpandDay(ctx, f.it.ID, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	plan, err := f.svc.Sync(ctx, f.it.ID, usecases.SyncOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Day != 2 {
		t.Errorf("expected day 2, got %d", plan.Day)
	}
	if len(plan.Markers) != 0 {
		t.Errorf("expected no markers on day 2, got %d", len(plan.Markers))
	}
}

func TestMapViewService_StaleLegsAreRecomputed(t *testing.T) {
	var f *mapViewFixture
	var changed atomic.Bool
	router := &mockRouter{}
	router.routeFn = func(ctx context.Context, coords []domain.GeoPoint) (*domain.Leg, error) {
		if changed.CompareAndSwap(false, true) {
			// The schedule changes while this leg is in flight.
			wps := f.it.Days[0].Waypoints
			if _, err := f.schedule.RemoveWaypoint(ctx, f.it.ID, 1, wps[2].ID); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if _, err := f.svc.Sync(ctx, f.it.ID, usecases.SyncOptions{}); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}
		return straightLeg(coords), nil
	}
	f = newMapViewFixture(t, router, placeAt("a", 1, 1), placeAt("b", 2, 2), placeAt("c", 3, 3))

	plan, err := f.svc.Sync(context.Background(), f.it.ID, usecases.SyncOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Markers) != 2 {
		t.Errorf("expected plan for the updated day with 2 markers, got %d", len(plan.Markers))
	}
}

func TestMapViewService_OtherDayReadsDoNotCancel(t *testing.T) {
	var f *mapViewFixture
	var reads atomic.Int32
	router := &mockRouter{}
	router.routeFn = func(ctx context.Context, coords []domain.GeoPoint) (*domain.Leg, error) {
		// Another client reads day 2 while every day 1 leg is in flight.
		reads.Add(1)
		if _, err := f.svc.Sync(ctx, f.it.ID, usecases.SyncOptions{Day: 2}); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		return straightLeg(coords), nil
	}
	f = newMapViewFixture(t, router, placeAt("a", 1, 1), placeAt("b", 2, 2), placeAt("c", 3, 3))

	plan, err := f.svc.Sync(context.Background(), f.it.ID, usecases.SyncOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reads.Load() == 0 {
		t.Fatal("expected day 2 reads during the sync")
	}
	if plan.Day != 1 || len(plan.Polylines) != 2 {
		t.Errorf("unexpected plan: day=%d polylines=%d", plan.Day, len(plan.Polylines))
	}
	if plan.Revision != 1 || !plan.Rebuild {
		t.Errorf("expected first build of day 1, got revision %d rebuild %v", plan.Revision, plan.Rebuild)
	}
}

func TestMapViewService_SwitchingExpandedDayCancelsInFlight(t *testing.T) {
	var f *mapViewFixture
	var switched atomic.Bool
	router := &mockRouter{}
	router.routeFn = func(ctx context.Context, coords []domain.GeoPoint) (*domain.Leg, error) {
		if switched.CompareAndSwap(false, true) {
			if err := f.schedule.ExpandDay(ctx, f.it.ID, 2); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if _, err := f.svc.Sync(ctx, f.it.ID, usecases.SyncOptions{}); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}
		return straightLeg(coords), nil
	}
	f = newMapViewFixture(t, router, placeAt("a", 1, 1), placeAt("b", 2, 2))

	plan, err := f.svc.Sync(context.Background(), f.it.ID, usecases.SyncOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan.Day != 2 || len(plan.Markers) != 0 {
		t.Errorf("expected the empty day 2 plan, got day %d with %d markers", plan.Day, len(plan.Markers))
	}
}

func TestMapViewService_ForgetResetsEveryDay(t *testing.T) {
	f := newMapViewFixture(t, &mockRouter{}, placeAt("a", 1, 1), placeAt("b", 2, 2))
	ctx := context.Background()
	f.svc.Sync(ctx, f.it.ID, usecases.SyncOptions{})
	f.svc.Sync(ctx, f.it.ID, usecases.SyncOptions{Day: 2})

	f.svc.Forget(f.it.ID)

	for _, d := range []int{1, 2} {
		plan, err := f.svc.Sync(ctx, f.it.ID, usecases.SyncOptions{Day: d})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !plan.Rebuild || plan.Revision != 1 {
			t.Errorf("day %d: expected fresh view state, got revision %d rebuild %v", d, plan.Revision, plan.Rebuild)
		}
	}
}

func TestMapViewService_CallerColour(t *testing.T) {
	f := newMapViewFixture(t, &mockRouter{}, placeAt("a", 1, 1), placeAt("b", 2, 2))
	plan, _ := f.svc.Sync(context.Background(), f.it.ID, usecases.SyncOptions{Color: "#abcdef"})
	for _, m := range plan.Markers {
		if m.Color != "#abcdef" {
			t.Errorf("expected caller colour, got %s", m.Color)
		}
	}
}

func TestMapViewService_Intents(t *testing.T) {
	f := newMapViewFixture(t, &mockRouter{})
	ctx := context.Background()

	intent, err := f.svc.MapClick(ctx, f.it.ID, 1, 13.75, 100.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if intent.Kind != domain.IntentAddWaypoint || intent.Position.Lat != 13.75 {
		t.Errorf("unexpected intent %+v", intent)
	}
	if _, err := f.svc.MapClick(ctx, f.it.ID, 1, 120, 0); !errors.Is(err, domain.ErrInvalidWaypoint) {
		t.Errorf("expected ErrInvalidWaypoint, got %v", err)
	}

	if _, err := f.svc.RegionClick(ctx, f.it.ID, 10, 10); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound without boundaries, got %v", err)
	}
	if _, err := f.regions.SelectCountry(ctx, f.it.ID, "th"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	set, _ := usecases.NewBoundaryService(staticProvider(twoRegionDoc), nil, 60, geospatial.DefaultViewport, "test").Build(ctx, "th")
	px, py := set.Projection.Project(1.5, 0.5)
	intent, err = f.svc.RegionClick(ctx, f.it.ID, px, py)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if intent.Kind != domain.IntentToggleRegion || intent.Region != "East" {
		t.Errorf("unexpected intent %+v", intent)
	}

	if len(f.pub.intents) != 2 {
		t.Errorf("expected 2 published intents, got %d", len(f.pub.intents))
	}
	got, _ := f.schedule.Get(ctx, f.it.ID)
	if len(got.Days[0].Waypoints) != 0 {
		t.Error("expected intents to leave the schedule untouched")
	}
}

func TestMapViewService_SyncAndPublish(t *testing.T) {
	f := newMapViewFixture(t, &mockRouter{}, placeAt("a", 1, 1))
	plan, err := f.svc.SyncAndPublish(context.Background(), f.it.ID, usecases.SyncOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if plan == nil || len(f.pub.plans) != 1 {
		t.Errorf("expected one published plan, got %d", len(f.pub.plans))
	}
}

func TestMapViewService_UnknownDay(t *testing.T) {
	f := newMapViewFixture(t, &mockRouter{})
	if _, err := f.svc.Sync(context.Background(), f.it.ID, usecases.SyncOptions{Day: 7}); !errors.Is(err, domain.ErrDayNotFound) {
		t.Errorf("expected ErrDayNotFound, got %v", err)
	}
}
