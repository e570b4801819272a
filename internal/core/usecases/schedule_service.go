package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/wayfarer/internal/core/domain"
	"github.com/samirrijal/wayfarer/internal/core/ports"
	"github.com/samirrijal/wayfarer/internal/pkg/country"
	"github.com/samirrijal/wayfarer/internal/pkg/metrics"
)

// ScheduleListener is notified after every committed itinerary change.
type ScheduleListener func(it domain.Itinerary, event domain.ItineraryEvent)

// ScheduleService applies itinerary transitions, persists the result and
// tells everyone who is watching.
type ScheduleService struct {
	itineraries ports.ItineraryRepository
	publisher   ports.EventPublisher
	now         func() time.Time

	mu        sync.Mutex
	locks     map[string]*sync.Mutex
	expanded  map[string]int
	listeners map[int]ScheduleListener
	nextID    int
}

// NewScheduleService creates a new ScheduleService. publisher may be nil.
func NewScheduleService(itineraries ports.ItineraryRepository, publisher ports.EventPublisher) *ScheduleService {
	return &ScheduleService{
		itineraries: itineraries,
		publisher:   publisher,
		now:         time.Now,
		locks:       make(map[string]*sync.Mutex),
		expanded:    make(map[string]int),
		listeners:   make(map[int]ScheduleListener),
	}
}

// Create stores a new itinerary. The country may be a name, an alias or an ISO code.
func (s *ScheduleService) Create(ctx context.Context, name, countryInput string, start, end *time.Time) (*domain.Itinerary, error) {
	if name == "" {
		return nil, fmt.Errorf("itinerary name must not be empty")
	}
	if err := domain.CheckDateRange(start, end); err != nil {
		return nil, err
	}

	it := domain.NewItinerary(uuid.NewString(), name, country.Resolve(countryInput), start, end, s.now().UTC())
	it.Version = 1
	if err := s.itineraries.Create(ctx, &it); err != nil {
		return nil, fmt.Errorf("create itinerary: %w", err)
	}

	s.emit(ctx, it, domain.ItineraryEvent{Kind: domain.EventCreated})
	return &it, nil
}

// Get returns a single itinerary.
func (s *ScheduleService) Get(ctx context.Context, id string) (*domain.Itinerary, error) {
	return s.itineraries.GetByID(ctx, id)
}

// List returns a page of itineraries and the total count.
func (s *ScheduleService) List(ctx context.Context, offset, limit int) ([]domain.Itinerary, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.itineraries.List(ctx, offset, limit)
}

// Delete removes an itinerary and its in-memory view state.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()

	cur, err := s.itineraries.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.itineraries.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete itinerary: %w", err)
	}

	s.mu.Lock()
	delete(s.expanded, id)
	delete(s.locks, id)
	s.mu.Unlock()

	s.emit(ctx, *cur, domain.ItineraryEvent{Kind: domain.EventDeleted})
	return nil
}

// SetDateRange re-derives the itinerary's days. An end before the start is
// normalized to a single day.
func (s *ScheduleService) SetDateRange(ctx context.Context, id string, start, end *time.Time) (*domain.Itinerary, error) {
	if err := domain.CheckDateRange(start, end); err != nil {
		return nil, err
	}
	return s.mutate(ctx, id, func(it domain.Itinerary) (domain.Itinerary, domain.ItineraryEvent, bool, error) {
		return it.SetDateRange(start, end), domain.ItineraryEvent{Kind: domain.EventDateRangeSet}, true, nil
	})
}

// SetCountry changes the destination country.
func (s *ScheduleService) SetCountry(ctx context.Context, id, countryInput string) (*domain.Itinerary, error) {
	code := country.Resolve(countryInput)
	return s.mutate(ctx, id, func(it domain.Itinerary) (domain.Itinerary, domain.ItineraryEvent, bool, error) {
		if it.Country == code {
			return it, domain.ItineraryEvent{}, false, nil
		}
		it.Country = code
		return it, domain.ItineraryEvent{Kind: domain.EventCountrySet}, true, nil
	})
}

// InsertWaypoint adds wp to day at index. A missing waypoint ID is generated.
func (s *ScheduleService) InsertWaypoint(ctx context.Context, id string, day int, wp domain.Waypoint, index int) (*domain.Itinerary, error) {
	if wp.ID == "" {
		wp.ID = uuid.NewString()
	}
	return s.mutate(ctx, id, func(it domain.Itinerary) (domain.Itinerary, domain.ItineraryEvent, bool, error) {
		next, err := it.InsertWaypoint(day, wp, index)
		if err != nil {
			return it, domain.ItineraryEvent{}, false, err
		}
		return next, domain.ItineraryEvent{Kind: domain.EventWaypointInserted, Day: day, WaypointID: wp.ID}, true, nil
	})
}

// RemoveWaypoint deletes a waypoint from day. Removing an absent waypoint changes nothing.
func (s *ScheduleService) RemoveWaypoint(ctx context.Context, id string, day int, waypointID string) (*domain.Itinerary, error) {
	return s.mutate(ctx, id, func(it domain.Itinerary) (domain.Itinerary, domain.ItineraryEvent, bool, error) {
		if _, ok := it.Day(day); !ok {
			return it, domain.ItineraryEvent{}, false, domain.ErrDayNotFound
		}
		if d, _, ok := it.FindWaypoint(waypointID); !ok || d != day {
			return it, domain.ItineraryEvent{}, false, nil
		}
		next, err := it.RemoveWaypoint(day, waypointID)
		return next, domain.ItineraryEvent{Kind: domain.EventWaypointRemoved, Day: day, WaypointID: waypointID}, true, err
	})
}

// ReorderWaypoint moves a waypoint within its day.
func (s *ScheduleService) ReorderWaypoint(ctx context.Context, id string, day int, waypointID string, toIndex int) (*domain.Itinerary, error) {
	return s.mutate(ctx, id, func(it domain.Itinerary) (domain.Itinerary, domain.ItineraryEvent, bool, error) {
		if _, ok := it.Day(day); !ok {
			return it, domain.ItineraryEvent{}, false, domain.ErrDayNotFound
		}
		d, idx, ok := it.FindWaypoint(waypointID)
		if !ok || d != day || idx == clampIndex(toIndex, len(it.Days[day-1].Waypoints)-1) {
			return it, domain.ItineraryEvent{}, false, nil
		}
		next, err := it.ReorderWaypoint(day, waypointID, toIndex)
		return next, domain.ItineraryEvent{Kind: domain.EventWaypointMoved, Day: day, WaypointID: waypointID}, true, err
	})
}

// ExpandDay makes day the one the map view follows.
func (s *ScheduleService) ExpandDay(ctx context.Context, id string, day int) error {
	it, err := s.itineraries.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if _, ok := it.Day(day); !ok {
		return domain.ErrDayNotFound
	}

	s.mu.Lock()
	s.expanded[id] = day
	s.mu.Unlock()

	s.emit(ctx, *it, domain.ItineraryEvent{Kind: domain.EventDayExpanded, Day: day})
	return nil
}

// ExpandedDay returns the expanded day for an itinerary with dayCount days.
// It defaults to 1 and never exceeds dayCount.
func (s *ScheduleService) ExpandedDay(id string, dayCount int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.expanded[id]
	if !ok || d < 1 {
		return 1
	}
	if dayCount >= 1 && d > dayCount {
		return dayCount
	}
	return d
}

// Subscribe registers l for every committed change. The returned function
// removes the listener.
func (s *ScheduleService) Subscribe(l ScheduleListener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

type transition func(it domain.Itinerary) (next domain.Itinerary, event domain.ItineraryEvent, changed bool, err error)

// mutate loads, transforms and saves an itinerary under its lock. Unchanged
// results are returned without a write.
func (s *ScheduleService) mutate(ctx context.Context, id string, fn transition) (*domain.Itinerary, error) {
	l := s.lockFor(id)
	l.Lock()
	defer l.Unlock()

	cur, err := s.itineraries.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next, event, changed, err := fn(*cur)
	if err != nil {
		return nil, err
	}
	if !changed {
		return cur, nil
	}

	next.Version = cur.Version + 1
	next.UpdatedAt = s.now().UTC()
	if err := s.itineraries.Save(ctx, &next, cur.Version); err != nil {
		return nil, fmt.Errorf("save itinerary: %w", err)
	}

	s.mu.Lock()
	if d, ok := s.expanded[id]; ok && d > len(next.Days) {
		s.expanded[id] = len(next.Days)
	}
	s.mu.Unlock()

	s.emit(ctx, next, event)
	return &next, nil
}

func (s *ScheduleService) emit(ctx context.Context, it domain.Itinerary, event domain.ItineraryEvent) {
	event.ItineraryID = it.ID
	event.Version = it.Version
	event.At = s.now().UTC()
	metrics.ItineraryEvents.WithLabelValues(event.Kind).Inc()

	s.mu.Lock()
	listeners := make([]ScheduleListener, 0, len(s.listeners))
	for _, l := range s.listeners {
		listeners = append(listeners, l)
	}
	s.mu.Unlock()
	for _, l := range listeners {
		l(it, event)
	}

	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishItineraryEvent(ctx, &event); err != nil {
		slog.Warn("publish itinerary event failed", "itinerary_id", it.ID, "kind", event.Kind, "error", err)
	}
}

func (s *ScheduleService) lockFor(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	return l
}

func clampIndex(i, hi int) int {
	if i < 0 {
		return 0
	}
	if i > hi {
		return hi
	}
	return i
}
