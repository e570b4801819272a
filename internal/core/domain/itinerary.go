package domain

import (
	"fmt"
	"sort"
	"time"
)

// The transitions below never mutate their receiver. Each returns a fresh
// Itinerary so a failed operation cannot leave a half-renumbered day behind.

// NewItinerary creates an itinerary with days derived from the date range.
func NewItinerary(id, name, country string, start, end *time.Time, now time.Time) Itinerary {
	it := Itinerary{
		ID:        id,
		Name:      name,
		Country:   country,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return it.SetDateRange(start, end)
}

// MaxTripDays caps the number of days a date range may derive.
const MaxTripDays = 366

// DayCount returns max(1, days_between(start, end) + 1). A missing date or an
// end before the start yields a single day.
func DayCount(start, end *time.Time) int {
	if start == nil || end == nil {
		return 1
	}
	s, e := civilDate(*start), civilDate(*end)
	if e.Before(s) {
		return 1
	}
	// Both are UTC midnights. Duration arithmetic would saturate past ~292 years.
	return int((e.Unix()-s.Unix())/86400) + 1
}

// CheckDateRange rejects ranges that derive more than MaxTripDays days.
func CheckDateRange(start, end *time.Time) error {
	if n := DayCount(start, end); n > MaxTripDays {
		return fmt.Errorf("%w: %d days, max %d", ErrTripTooLong, n, MaxTripDays)
	}
	return nil
}

// Day returns the day with the given 1-based number.
func (it Itinerary) Day(number int) (Day, bool) {
	if number < 1 || number > len(it.Days) {
		return Day{}, false
	}
	return it.Days[number-1], true
}

// FindWaypoint locates a waypoint by id across all days.
func (it Itinerary) FindWaypoint(id string) (day int, index int, ok bool) {
	for _, d := range it.Days {
		for i, w := range d.Waypoints {
			if w.ID == id {
				return d.Number, i, true
			}
		}
	}
	return 0, 0, false
}

// SetDateRange re-derives the day list. Days past the new count are dropped
// together with their waypoints; new days are created empty.
func (it Itinerary) SetDateRange(start, end *time.Time) Itinerary {
	next := it.clone()

	var s, e *time.Time
	if start != nil {
		v := civilDate(*start)
		s = &v
	}
	if end != nil {
		v := civilDate(*end)
		e = &v
	}
	if s != nil && e != nil && e.Before(*s) {
		v := *s
		e = &v
	}
	next.StartDate, next.EndDate = s, e

	n := DayCount(s, e)
	days := make([]Day, n)
	for i := range days {
		if i < len(next.Days) {
			days[i] = next.Days[i]
		} else {
			days[i] = Day{Waypoints: []Waypoint{}}
		}
		days[i].Number = i + 1
		days[i].Date = nil
		if s != nil {
			d := s.AddDate(0, 0, i)
			days[i].Date = &d
		}
	}
	next.Days = days
	return next
}

// InsertWaypoint inserts wp into day at atIndex (clamped) and renumbers the day.
func (it Itinerary) InsertWaypoint(day int, wp Waypoint, atIndex int) (Itinerary, error) {
	if day < 1 || day > len(it.Days) {
		return it, ErrDayNotFound
	}
	if err := validateWaypoint(&wp); err != nil {
		return it, err
	}
	if _, _, exists := it.FindWaypoint(wp.ID); exists {
		return it, ErrDuplicateWaypoint
	}

	next := it.clone()
	d := &next.Days[day-1]
	d.Waypoints = insertAt(d.Waypoints, wp, atIndex)
	renumber(d.Waypoints)
	return next, nil
}

// RemoveWaypoint removes a waypoint from day and renumbers. An absent id is a no-op.
func (it Itinerary) RemoveWaypoint(day int, waypointID string) (Itinerary, error) {
	if day < 1 || day > len(it.Days) {
		return it, ErrDayNotFound
	}
	idx := indexOf(it.Days[day-1].Waypoints, waypointID)
	if idx < 0 {
		return it, nil
	}

	next := it.clone()
	d := &next.Days[day-1]
	d.Waypoints = append(d.Waypoints[:idx], d.Waypoints[idx+1:]...)
	renumber(d.Waypoints)
	return next, nil
}

// ReorderWaypoint moves a waypoint to toIndex (clamped) within its day.
// An absent id is a no-op.
func (it Itinerary) ReorderWaypoint(day int, waypointID string, toIndex int) (Itinerary, error) {
	if day < 1 || day > len(it.Days) {
		return it, ErrDayNotFound
	}
	idx := indexOf(it.Days[day-1].Waypoints, waypointID)
	if idx < 0 {
		return it, nil
	}

	next := it.clone()
	d := &next.Days[day-1]
	wp := d.Waypoints[idx]
	rest := append(d.Waypoints[:idx], d.Waypoints[idx+1:]...)
	d.Waypoints = insertAt(rest, wp, toIndex)
	renumber(d.Waypoints)
	return next, nil
}

// Records flattens the itinerary into persistence rows.
func (it Itinerary) Records() []WaypointRecord {
	var out []WaypointRecord
	for _, d := range it.Days {
		for _, w := range d.Waypoints {
			rec := WaypointRecord{
				ItineraryID: it.ID,
				DayNumber:   d.Number,
				Ordinal:     w.Ordinal,
				ID:          w.ID,
				Name:        w.Name,
				Kind:        w.Kind,
				Note:        w.Note,
			}
			if w.Position != nil {
				lat, lon := w.Position.Lat, w.Position.Lon
				rec.Lat, rec.Lon = &lat, &lon
			}
			out = append(out, rec)
		}
	}
	return out
}

// ItineraryFromRecords rebuilds an itinerary from its header and waypoint rows.
// Rows are ordered by (day, ordinal) and renumbered; rows for days outside the
// derived day count are ignored.
func ItineraryFromRecords(header Itinerary, records []WaypointRecord) Itinerary {
	header.Days = nil
	it := header.SetDateRange(header.StartDate, header.EndDate)

	sorted := make([]WaypointRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].DayNumber != sorted[j].DayNumber {
			return sorted[i].DayNumber < sorted[j].DayNumber
		}
		return sorted[i].Ordinal < sorted[j].Ordinal
	})

	for _, r := range sorted {
		if r.DayNumber < 1 || r.DayNumber > len(it.Days) {
			continue
		}
		w := Waypoint{ID: r.ID, Name: r.Name, Kind: r.Kind, Note: r.Note}
		if r.Lat != nil && r.Lon != nil {
			w.Position = &GeoPoint{Lat: *r.Lat, Lon: *r.Lon}
		}
		d := &it.Days[r.DayNumber-1]
		d.Waypoints = append(d.Waypoints, w)
	}
	for i := range it.Days {
		renumber(it.Days[i].Waypoints)
	}
	return it
}

func validateWaypoint(wp *Waypoint) error {
	if wp.ID == "" {
		return ErrInvalidWaypoint
	}
	if wp.Kind == "" {
		wp.Kind = WaypointPlace
	}
	switch wp.Kind {
	case WaypointPlace:
		if !wp.Positioned() {
			return ErrInvalidWaypoint
		}
	case WaypointNote:
		if wp.Position != nil && !wp.Position.Valid() {
			return ErrInvalidWaypoint
		}
	default:
		return ErrInvalidWaypoint
	}
	return nil
}

func (it Itinerary) clone() Itinerary {
	next := it
	next.Days = make([]Day, len(it.Days))
	for i, d := range it.Days {
		nd := d
		nd.Waypoints = make([]Waypoint, len(d.Waypoints))
		for j, w := range d.Waypoints {
			if w.Position != nil {
				p := *w.Position
				w.Position = &p
			}
			nd.Waypoints[j] = w
		}
		next.Days[i] = nd
	}
	return next
}

func insertAt(ws []Waypoint, wp Waypoint, at int) []Waypoint {
	if at < 0 {
		at = 0
	}
	if at > len(ws) {
		at = len(ws)
	}
	out := make([]Waypoint, 0, len(ws)+1)
	out = append(out, ws[:at]...)
	out = append(out, wp)
	return append(out, ws[at:]...)
}

func indexOf(ws []Waypoint, id string) int {
	for i, w := range ws {
		if w.ID == id {
			return i
		}
	}
	return -1
}

func renumber(ws []Waypoint) {
	for i := range ws {
		ws[i].Ordinal = i + 1
	}
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
