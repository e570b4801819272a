package usecases

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"

	"github.com/samirrijal/wayfarer/internal/core/domain"
	"github.com/samirrijal/wayfarer/internal/core/ports"
	"github.com/samirrijal/wayfarer/internal/pkg/generation"
	"github.com/samirrijal/wayfarer/internal/pkg/geospatial"
	"github.com/samirrijal/wayfarer/internal/pkg/metrics"
	"github.com/samirrijal/wayfarer/internal/pkg/telemetry"
)

const maxSyncAttempts = 3

// MapViewOptions configures camera fitting and day colours.
type MapViewOptions struct {
	Viewport geospatial.Viewport
	MaxZoom  int
	Palette  []string
}

// SyncOptions tunes one Sync call. Zero values fall back to the expanded day
// and the configured palette.
type SyncOptions struct {
	Day     int
	Palette []string
	Color   string // overrides Palette when set
}

type viewState struct {
	signature string
	revision  uint64
}

// dayKey scopes view state to one day of an itinerary. Reading one day never
// invalidates work in flight for another.
func dayKey(itineraryID string, day int) string {
	return itineraryID + "#" + strconv.Itoa(day)
}

// MapViewService derives render plans from the schedule and the leg cache.
// It never changes the schedule; map clicks come back as intents.
type MapViewService struct {
	schedule  *ScheduleService
	legs      *LegService
	regions   *RegionService
	publisher ports.EventPublisher
	opts      MapViewOptions

	gen    *generation.Counter
	mu     sync.Mutex
	views  map[string]*viewState // by dayKey
	active map[string]int        // expanded day last followed, by itinerary
}

// NewMapViewService creates a new MapViewService. regions and publisher may be nil.
func NewMapViewService(schedule *ScheduleService, legs *LegService, regions *RegionService, publisher ports.EventPublisher, opts MapViewOptions) *MapViewService {
	if opts.Viewport.Width <= 0 || opts.Viewport.Height <= 0 {
		opts.Viewport = geospatial.Viewport{Width: 800, Height: 600, Padding: 48}
	}
	if opts.MaxZoom <= 0 {
		opts.MaxZoom = 15
	}
	if len(opts.Palette) == 0 {
		opts.Palette = []string{"#e11d48", "#2563eb", "#16a34a", "#d97706"}
	}
	return &MapViewService{
		schedule:  schedule,
		legs:      legs,
		regions:   regions,
		publisher: publisher,
		opts:      opts,
		gen:       generation.New(),
		views:     make(map[string]*viewState),
		active:    make(map[string]int),
	}
}

// Sync builds the render plan for one day of an itinerary. Results computed
// against a selection that changed mid-flight are thrown away and rebuilt.
func (s *MapViewService) Sync(ctx context.Context, itineraryID string, opts SyncOptions) (*domain.RenderPlan, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanMapViewSync)
	defer span.End()
	span.SetAttributes(attribute.String(telemetry.AttrItineraryID, itineraryID))

	for attempt := 0; attempt < maxSyncAttempts; attempt++ {
		plan, err := s.syncOnce(ctx, itineraryID, opts)
		if errors.Is(err, domain.ErrStaleResponse) {
			metrics.StaleDiscarded.WithLabelValues("mapview").Inc()
			continue
		}
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		metrics.RenderPlans.WithLabelValues(strconv.FormatBool(plan.Rebuild)).Inc()
		return plan, nil
	}
	return nil, domain.ErrStaleResponse
}

func (s *MapViewService) syncOnce(ctx context.Context, itineraryID string, opts SyncOptions) (*domain.RenderPlan, error) {
	it, err := s.schedule.Get(ctx, itineraryID)
	if err != nil {
		return nil, err
	}
	dayNum := opts.Day
	if dayNum == 0 {
		dayNum = s.schedule.ExpandedDay(itineraryID, len(it.Days))
	}
	day, ok := it.Day(dayNum)
	if !ok {
		return nil, domain.ErrDayNotFound
	}

	sig := signature(day)
	key := dayKey(itineraryID, day.Number)
	s.mu.Lock()
	vs, ok := s.views[key]
	if !ok {
		vs = &viewState{}
		s.views[key] = vs
	}
	rebuild := !ok || vs.signature != sig
	var token generation.Token
	if rebuild {
		vs.signature = sig
		vs.revision++
		token = s.gen.Advance(key)
	} else {
		token = s.gen.Current(key)
	}
	// Following the expanded day: switching to another day cancels work
	// still in flight for the previous one.
	var follow generation.Token
	if opts.Day == 0 {
		if prev, seen := s.active[itineraryID]; !seen || prev != day.Number {
			s.active[itineraryID] = day.Number
			follow = s.gen.Advance(itineraryID)
			rebuild = true
		} else {
			follow = s.gen.Current(itineraryID)
		}
	}
	revision := vs.revision
	s.mu.Unlock()

	results, err := s.legs.ResolveDay(ctx, day)
	if err != nil {
		return nil, err
	}
	if !s.gen.Valid(token) || (opts.Day == 0 && !s.gen.Valid(follow)) {
		return nil, domain.ErrStaleResponse
	}

	plan := &domain.RenderPlan{
		ItineraryID: itineraryID,
		Day:         day.Number,
		Revision:    revision,
		Rebuild:     rebuild,
		Markers:     []domain.Marker{},
		Polylines:   []domain.Polyline{},
	}

	colors := make(map[string]string)
	var positions []domain.GeoPoint
	for _, w := range day.Waypoints {
		if !w.Positioned() {
			continue
		}
		color := s.colorFor(day.Number, len(plan.Markers), opts)
		colors[w.ID] = color
		plan.Markers = append(plan.Markers, domain.Marker{
			WaypointID: w.ID,
			Label:      strconv.Itoa(w.Ordinal),
			Ordinal:    w.Ordinal,
			Name:       w.Name,
			Kind:       w.Kind,
			Position:   *w.Position,
			Color:      color,
		})
		positions = append(positions, *w.Position)
	}

	for _, r := range results {
		if r.Leg == nil {
			metrics.UnroutedPairs.Inc()
			plan.Unrouted = append(plan.Unrouted, domain.UnroutedPair{FromWaypointID: r.From.ID, ToWaypointID: r.To.ID})
			continue
		}
		plan.Polylines = append(plan.Polylines, domain.Polyline{
			FromWaypointID:  r.From.ID,
			ToWaypointID:    r.To.ID,
			Color:           colors[r.From.ID],
			Path:            r.Leg.Path,
			DistanceMeters:  r.Leg.DistanceMeters,
			DurationSeconds: r.Leg.DurationSeconds,
		})
		plan.TotalDistanceMeters += r.Leg.DistanceMeters
		plan.TotalDurationSeconds += r.Leg.DurationSeconds
	}

	plan.Camera = s.camera(positions)
	return plan, nil
}

// SyncAndPublish builds a plan and fans it out. Stale results are dropped
// silently and yield (nil, nil).
func (s *MapViewService) SyncAndPublish(ctx context.Context, itineraryID string, opts SyncOptions) (*domain.RenderPlan, error) {
	plan, err := s.Sync(ctx, itineraryID, opts)
	if errors.Is(err, domain.ErrStaleResponse) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if s.publisher != nil {
		if err := s.publisher.PublishRenderPlan(ctx, plan); err != nil {
			slog.Warn("publish render plan failed", "itinerary_id", itineraryID, "error", err)
		}
	}
	return plan, nil
}

// Forget drops cached view state for an itinerary and invalidates every
// sync still in flight for it.
func (s *MapViewService) Forget(itineraryID string) {
	prefix := itineraryID + "#"
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.views {
		if strings.HasPrefix(key, prefix) {
			s.gen.Forget(key)
			delete(s.views, key)
		}
	}
	s.gen.Forget(itineraryID)
	delete(s.active, itineraryID)
}

// MapClick reports a request to add a waypoint at the clicked position.
func (s *MapViewService) MapClick(ctx context.Context, itineraryID string, day int, lat, lon float64) (*domain.Intent, error) {
	p := domain.GeoPoint{Lat: lat, Lon: lon}
	if !p.Valid() {
		return nil, domain.ErrInvalidWaypoint
	}
	intent := &domain.Intent{ItineraryID: itineraryID, Kind: domain.IntentAddWaypoint, Day: day, Position: &p}
	s.publishIntent(ctx, intent)
	return intent, nil
}

// RegionClick hit-tests a viewport point and reports a region toggle.
func (s *MapViewService) RegionClick(ctx context.Context, itineraryID string, x, y float64) (*domain.Intent, error) {
	if s.regions == nil {
		return nil, domain.ErrNotFound
	}
	name, ok := s.regions.Locate(itineraryID, x, y)
	if !ok {
		return nil, domain.ErrNotFound
	}
	intent := &domain.Intent{ItineraryID: itineraryID, Kind: domain.IntentToggleRegion, Region: name}
	s.publishIntent(ctx, intent)
	return intent, nil
}

func (s *MapViewService) publishIntent(ctx context.Context, intent *domain.Intent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishIntent(ctx, intent); err != nil {
		slog.Warn("publish intent failed", "itinerary_id", intent.ItineraryID, "kind", intent.Kind, "error", err)
	}
}

func (s *MapViewService) colorFor(day, marker int, opts SyncOptions) string {
	switch {
	case opts.Color != "":
		return opts.Color
	case len(opts.Palette) > 0:
		return opts.Palette[marker%len(opts.Palette)]
	}
	return s.opts.Palette[(day-1)%len(s.opts.Palette)]
}

func (s *MapViewService) camera(positions []domain.GeoPoint) *domain.CameraInstruction {
	b, ok := domain.BoundsOf(positions)
	if !ok {
		return nil
	}
	vp := s.opts.Viewport
	return &domain.CameraInstruction{
		Bounds:  b,
		Center:  b.Center(),
		Zoom:    geospatial.FitZoom(b.MinLat, b.MinLon, b.MaxLat, b.MaxLon, vp.Width, vp.Height, vp.Padding, s.opts.MaxZoom),
		Padding: int(vp.Padding),
		MaxZoom: s.opts.MaxZoom,
	}
}

// signature identifies a day's waypoint layout: which day, which waypoints,
// in which order, at which positions.
func signature(day domain.Day) string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(day.Number))
	for _, w := range day.Waypoints {
		b.WriteByte('|')
		b.WriteString(w.ID)
		if w.Position != nil {
			b.WriteByte('@')
			b.WriteString(w.Position.Key())
		}
	}
	return b.String()
}
