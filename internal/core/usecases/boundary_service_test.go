package usecases_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/samirrijal/wayfarer/internal/core/domain"
	"github.com/samirrijal/wayfarer/internal/core/usecases"
	"github.com/samirrijal/wayfarer/internal/pkg/geospatial"
)

func staticProvider(doc string) *mockBoundaryProvider {
	return &mockBoundaryProvider{fetchFn: func(ctx context.Context, code string) ([]byte, error) {
		return []byte(doc), nil
	}}
}

func TestBoundaryService_BuildNestedDocument(t *testing.T) {
	svc := usecases.NewBoundaryService(staticProvider(twoRegionDoc), nil, 60, geospatial.DefaultViewport, "test")

	set, err := svc.Build(context.Background(), "Thailand")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set.Code != "th" {
		t.Errorf("expected code th, got %s", set.Code)
	}
	if names := set.Names(); len(names) != 2 || names[0] != "West" || names[1] != "East" {
		t.Errorf("unexpected names %v", names)
	}
	// 2x1 extent in 800x600: width-bound, scale 400.
	if math.Abs(set.Projection.Scale-400) > 1e-9 {
		t.Errorf("expected scale 400, got %f", set.Projection.Scale)
	}
	if len(set.Paths) != 2 || set.Paths[0].D == "" {
		t.Errorf("expected a path per region, got %+v", set.Paths)
	}
}

func TestBoundarySet_Locate(t *testing.T) {
	svc := usecases.NewBoundaryService(staticProvider(twoRegionDoc), nil, 60, geospatial.DefaultViewport, "test")
	set, err := svc.Build(context.Background(), "th")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	px, py := set.Projection.Project(0.5, 0.5)
	if name, ok := set.Locate(px, py); !ok || name != "West" {
		t.Errorf("expected West, got %q (%v)", name, ok)
	}
	px, py = set.Projection.Project(1.5, 0.5)
	if name, ok := set.Locate(px, py); !ok || name != "East" {
		t.Errorf("expected East, got %q (%v)", name, ok)
	}
	if _, ok := set.Locate(5, 5); ok {
		t.Error("expected no region at the viewport corner")
	}
}

func TestBoundaryService_FetchFailure(t *testing.T) {
	provider := &mockBoundaryProvider{fetchFn: func(ctx context.Context, code string) ([]byte, error) {
		return nil, &domain.BoundaryLoadError{Code: code, Status: 503}
	}}
	svc := usecases.NewBoundaryService(provider, nil, 60, geospatial.DefaultViewport, "test")

	_, err := svc.Load(context.Background(), "it-1", "usa")
	if !errors.Is(err, domain.ErrBoundaryLoadFailed) {
		t.Fatalf("expected ErrBoundaryLoadFailed, got %v", err)
	}
	var ble *domain.BoundaryLoadError
	if !errors.As(err, &ble) || ble.Code != "us" || ble.Status != 503 {
		t.Errorf("expected code us and status 503, got %+v", ble)
	}
	if _, ok := svc.Current("it-1"); ok {
		t.Error("expected no current set after a failed load")
	}
}

func TestBoundaryService_UndecodableDocument(t *testing.T) {
	svc := usecases.NewBoundaryService(staticProvider(`{"a": 1}`), nil, 60, geospatial.DefaultViewport, "test")
	_, err := svc.Build(context.Background(), "th")
	if !errors.Is(err, domain.ErrBoundaryLoadFailed) {
		t.Fatalf("expected ErrBoundaryLoadFailed, got %v", err)
	}
}

func TestBoundaryService_CachesDocuments(t *testing.T) {
	var calls int
	provider := &mockBoundaryProvider{fetchFn: func(ctx context.Context, code string) ([]byte, error) {
		calls++
		return []byte(twoRegionDoc), nil
	}}
	cache := newMockCache()
	svc := usecases.NewBoundaryService(provider, cache, 60, geospatial.DefaultViewport, "test")

	for i := 0; i < 2; i++ {
		if _, err := svc.Build(context.Background(), "th"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("expected 1 fetch, got %d", calls)
	}
	if !cache.Has("boundary:doc:th") {
		t.Error("expected document to be cached under boundary:doc:th")
	}
}

func TestBoundaryService_NewerLoadWins(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	provider := &mockBoundaryProvider{fetchFn: func(ctx context.Context, code string) ([]byte, error) {
		if code == "th" {
			close(started)
			<-release
		}
		return []byte(twoRegionDoc), nil
	}}
	svc := usecases.NewBoundaryService(provider, nil, 60, geospatial.DefaultViewport, "test")

	var wg sync.WaitGroup
	var slowErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, slowErr = svc.Load(context.Background(), "it-1", "th")
	}()

	<-started
	if _, err := svc.Load(context.Background(), "it-1", "vn"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	close(release)
	wg.Wait()

	if !errors.Is(slowErr, domain.ErrStaleResponse) {
		t.Errorf("expected ErrStaleResponse for overtaken load, got %v", slowErr)
	}
	set, ok := svc.Current("it-1")
	if !ok || set.Code != "vn" {
		t.Errorf("expected vn to be current, got %+v", set)
	}
}

func TestBoundarySet_ViewWithoutState(t *testing.T) {
	svc := usecases.NewBoundaryService(staticProvider(twoRegionDoc), nil, 60, geospatial.Viewport{Width: 400, Height: 300}, "test")
	set, _ := svc.Build(context.Background(), "th")

	view := set.View(nil, domain.DefaultRegionPalette)
	if view.Width != 400 || view.Height != 300 {
		t.Errorf("expected 400x300, got %vx%v", view.Width, view.Height)
	}
	neutral := domain.DefaultRegionPalette.Base[domain.RegionNeutral]
	for _, r := range view.Regions {
		if r.State != domain.RegionNeutral || r.Fill != neutral.Fill {
			t.Errorf("expected neutral style, got %+v", r)
		}
	}
}
