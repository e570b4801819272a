package usecases

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/wayfarer/internal/core/domain"
	"github.com/samirrijal/wayfarer/internal/core/ports"
	"github.com/samirrijal/wayfarer/internal/pkg/country"
	"github.com/samirrijal/wayfarer/internal/pkg/telemetry"
)

// RegionService tracks visited and selected subdivisions per itinerary.
// Visited is persisted; selection and hover live only in memory.
type RegionService struct {
	boundaries *BoundaryService
	visits     ports.RegionVisitRepository
	palette    domain.RegionPalette

	mu     sync.Mutex
	states map[string]*domain.RegionVisitState
}

// NewRegionService creates a new RegionService. visits may be nil, in which
// case visited marks are not persisted.
func NewRegionService(boundaries *BoundaryService, visits ports.RegionVisitRepository, palette domain.RegionPalette) *RegionService {
	if palette.Base == nil {
		palette = domain.DefaultRegionPalette
	}
	return &RegionService{
		boundaries: boundaries,
		visits:     visits,
		palette:    palette,
		states:     make(map[string]*domain.RegionVisitState),
	}
}

// SelectCountry switches scope to a new country. The region state is reset
// before the boundary fetch starts, so nothing rendered in between can mix
// the old country's marks with the new one.
func (s *RegionService) SelectCountry(ctx context.Context, scope, countryInput string) (*domain.BoundaryView, error) {
	code := country.Resolve(countryInput)
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanSelectCountry)
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.AttrItineraryID, scope), attribute.String(telemetry.AttrCountry, code))

	s.mu.Lock()
	st := s.stateFor(scope)
	st.Reset(code)
	s.mu.Unlock()

	set, err := s.boundaries.Load(ctx, scope, code)
	if err != nil {
		return nil, err
	}

	var visited []string
	if s.visits != nil {
		visited, err = s.visits.ListVisited(ctx, scope, code)
		if err != nil {
			return nil, fmt.Errorf("list visited regions: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	// Another selection may have started while we were loading.
	if cur := s.states[scope]; cur != st || st.Country != code || st.Bound() {
		return nil, domain.ErrStaleResponse
	}
	st.Bind(set.Names())
	for _, name := range visited {
		st.MarkVisited(name, true)
	}
	view := set.View(st, s.palette)
	return &view, nil
}

// ToggleSelected flips a region's selection and returns its new render state.
func (s *RegionService) ToggleSelected(scope, name string) (domain.RegionRender, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.boundState(scope, name)
	if err != nil {
		return domain.RegionRender{}, err
	}
	st.ToggleSelected(name)
	return st.RenderStateFor(name), nil
}

// MarkVisited persists the visited flag for a region.
func (s *RegionService) MarkVisited(ctx context.Context, scope, name string, visited bool) (domain.RegionRender, error) {
	s.mu.Lock()
	st, err := s.boundState(scope, name)
	code := ""
	if st != nil {
		code = st.Country
	}
	s.mu.Unlock()
	if err != nil {
		return domain.RegionRender{}, err
	}

	if s.visits != nil {
		if err := s.visits.SetVisited(ctx, scope, code, name, visited); err != nil {
			return domain.RegionRender{}, fmt.Errorf("set visited: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.states[scope] != st || st.Country != code {
		return domain.RegionRender{}, domain.ErrStaleResponse
	}
	st.MarkVisited(name, visited)
	return st.RenderStateFor(name), nil
}

// SetHovered marks the hovered region. An empty name clears hover.
func (s *RegionService) SetHovered(scope, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[scope]
	if !ok || !st.Bound() {
		return domain.ErrNotFound
	}
	st.SetHovered(name)
	return nil
}

// RenderStates resolves every loaded region of scope.
func (s *RegionService) RenderStates(scope string) ([]domain.RegionRender, error) {
	set, ok := s.boundaries.Current(scope)
	if !ok {
		return nil, domain.ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[scope]
	if !ok || !st.Bound() || st.Country != set.Code {
		return nil, domain.ErrNotFound
	}
	out := make([]domain.RegionRender, 0, len(set.Subdivisions))
	for _, name := range set.Names() {
		out = append(out, st.RenderStateFor(name))
	}
	return out, nil
}

// View returns the styled choropleth for scope.
func (s *RegionService) View(scope string) (*domain.BoundaryView, error) {
	set, ok := s.boundaries.Current(scope)
	if !ok {
		return nil, domain.ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[scope]
	if !ok || !st.Bound() || st.Country != set.Code {
		return nil, domain.ErrNotFound
	}
	view := set.View(st, s.palette)
	return &view, nil
}

// Locate hit-tests a viewport point against scope's boundaries.
func (s *RegionService) Locate(scope string, px, py float64) (string, bool) {
	set, ok := s.boundaries.Current(scope)
	if !ok {
		return "", false
	}
	return set.Locate(px, py)
}

// Country returns the country scope is currently showing.
func (s *RegionService) Country(scope string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[scope]
	if !ok {
		return "", false
	}
	return st.Country, true
}

// Forget drops all region state for scope.
func (s *RegionService) Forget(scope string) {
	s.mu.Lock()
	delete(s.states, scope)
	s.mu.Unlock()
	s.boundaries.Forget(scope)
}

func (s *RegionService) stateFor(scope string) *domain.RegionVisitState {
	st, ok := s.states[scope]
	if !ok {
		st = domain.NewRegionVisitState("")
		s.states[scope] = st
	}
	return st
}

func (s *RegionService) boundState(scope, name string) (*domain.RegionVisitState, error) {
	st, ok := s.states[scope]
	if !ok || !st.Bound() {
		return nil, domain.ErrNotFound
	}
	if !st.Known(name) {
		return st, fmt.Errorf("region %q: %w", name, domain.ErrNotFound)
	}
	return st, nil
}
