package workflows_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/mocks"
	"go.temporal.io/sdk/testsuite"

	"github.com/samirrijal/wayfarer/internal/core/domain"
	"github.com/samirrijal/wayfarer/internal/core/usecases"
	"github.com/samirrijal/wayfarer/internal/workflows"
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

func (m *memRepo) Delete(ctx context.Context, id string) error { return nil }

func (m *memRepo) List(ctx context.Context, offset, limit int) ([]domain.Itinerary, int, error) {
	return nil, 0, nil
}

// countingRouter fails every leg that starts at failFrom.
type countingRouter struct {
	mu       sync.Mutex
	calls    map[string]int
	failFrom *domain.GeoPoint
}

func (r *countingRouter) Route(ctx context.Context, coords []domain.GeoPoint) (*domain.Leg, error) {
	r.mu.Lock()
	r.calls[domain.CoordinateKey(coords)]++
	r.mu.Unlock()
	if r.failFrom != nil && coords[0] == *r.failFrom {
		return nil, &domain.RouteUnavailableError{Status: 503}
	}
	return &domain.Leg{From: coords[0], To: coords[1], DistanceMeters: 500, Path: coords}, nil
}

func (r *countingRouter) total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		n += c
	}
	return n
}

var (
	bangkok   = domain.GeoPoint{Lat: 13.75, Lon: 100.5}
	ayutthaya = domain.GeoPoint{Lat: 14.35, Lon: 100.57}
	chiangMai = domain.GeoPoint{Lat: 18.79, Lon: 98.98}
	pai       = domain.GeoPoint{Lat: 19.36, Lon: 98.44}
)

func setup(t *testing.T, router *countingRouter) (*workflows.PrefetchActivities, string) {
	t.Helper()
	schedule := usecases.NewScheduleService(&memRepo{items: make(map[string]domain.Itinerary)}, nil)
	ctx := context.Background()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 2)
	it, err := schedule.Create(ctx, "North", "th", &start, &end)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	add := func(day int, id string, p domain.GeoPoint) {
		t.Helper()
		pos := p
		if _, err := schedule.InsertWaypoint(ctx, it.ID, day, domain.Waypoint{ID: id, Name: id, Kind: domain.WaypointPlace, Position: &pos}, 99); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	add(1, "bkk", bangkok)
	add(1, "ayu", ayutthaya)
	add(2, "cnx", chiangMai)
	add(2, "pai", pai)
	// day 3 stays empty

	acts := &workflows.PrefetchActivities{
		Schedule: schedule,
		Legs:     usecases.NewLegService(router, nil, 60, 2),
	}
	return acts, it.ID
}

func runPrefetch(t *testing.T, acts *workflows.PrefetchActivities, id string) workflows.PrefetchResult {
	t.Helper()
	var s testsuite.WorkflowTestSuite
	env := s.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(workflows.LegPrefetchWorkflow)
	env.RegisterActivity(acts)

	env.ExecuteWorkflow(workflows.LegPrefetchWorkflow, workflows.PrefetchInput{ItineraryID: id})
	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var res workflows.PrefetchResult
	if err := env.GetWorkflowResult(&res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return res
}

func TestLegPrefetchWorkflow_WarmsEveryDay(t *testing.T) {
	router := &countingRouter{calls: make(map[string]int)}
	acts, id := setup(t, router)

	res := runPrefetch(t, acts, id)
	if res.Days != 2 {
		t.Errorf("expected 2 routable days, got %d", res.Days)
	}
	if res.Legs != 2 {
		t.Errorf("expected 2 legs, got %d", res.Legs)
	}
	if len(res.FailedDays) != 0 {
		t.Errorf("expected no failed days, got %v", res.FailedDays)
	}
	if router.total() != 2 {
		t.Errorf("expected 2 provider calls, got %d", router.total())
	}
}

func TestLegPrefetchWorkflow_FailedDayIsRetriedThenReported(t *testing.T) {
	failFrom := chiangMai
	router := &countingRouter{calls: make(map[string]int), failFrom: &failFrom}
	acts, id := setup(t, router)

	res := runPrefetch(t, acts, id)
	if len(res.FailedDays) != 1 || res.FailedDays[0] != 2 {
		t.Fatalf("expected day 2 to fail, got %v", res.FailedDays)
	}
	if res.Legs != 1 {
		t.Errorf("expected 1 warmed leg, got %d", res.Legs)
	}
	key := domain.CoordinateKey([]domain.GeoPoint{chiangMai, pai})
	if router.calls[key] != 3 {
		t.Errorf("expected 3 attempts for the failing leg, got %d", router.calls[key])
	}
}

func TestLegPrefetchWorkflow_UnknownItinerary(t *testing.T) {
	router := &countingRouter{calls: make(map[string]int)}
	acts, _ := setup(t, router)

	var s testsuite.WorkflowTestSuite
	env := s.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(workflows.LegPrefetchWorkflow)
	env.RegisterActivity(acts)

	env.ExecuteWorkflow(workflows.LegPrefetchWorkflow, workflows.PrefetchInput{ItineraryID: "missing"})
	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	if env.GetWorkflowError() == nil {
		t.Fatal("expected an error for a missing itinerary")
	}
	if router.total() != 0 {
		t.Errorf("expected no provider calls, got %d", router.total())
	}
}

func TestScheduler_StartsWorkflowPerItinerary(t *testing.T) {
	run := &mocks.WorkflowRun{}
	run.On("GetRunID").Return("run-1")

	c := &mocks.Client{}
	c.On("ExecuteWorkflow", mock.Anything, mock.MatchedBy(func(o client.StartWorkflowOptions) bool {
		return o.ID == workflows.PrefetchWorkflowID("it-1") && o.TaskQueue == "prefetch"
	}), mock.Anything, workflows.PrefetchInput{ItineraryID: "it-1"}).Return(run, nil)

	runID, err := workflows.NewScheduler(c, "prefetch").SchedulePrefetch(context.Background(), "it-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runID != "run-1" {
		t.Errorf("expected run-1, got %s", runID)
	}
	c.AssertExpectations(t)
}
