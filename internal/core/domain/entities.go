package domain

import (
	"time"

	geojson "github.com/paulmach/go.geojson"
)

// WaypointKind discriminates what a waypoint represents.
type WaypointKind string

const (
	WaypointPlace WaypointKind = "place"
	WaypointNote  WaypointKind = "note"
)

// Waypoint is a single stop within a day.
type Waypoint struct {
	ID       string       `json:"id"`
	Name     string       `json:"name"`
	Kind     WaypointKind `json:"kind"`
	Position *GeoPoint    `json:"position,omitempty"` // notes may have no position
	Ordinal  int          `json:"ordinal"`            // 1-based within its day
	Note     string       `json:"note,omitempty"`
}

// Positioned reports whether the waypoint can be placed on a map.
func (w Waypoint) Positioned() bool {
	return w.Position != nil && w.Position.Valid()
}

// Day is an ordered list of waypoints.
type Day struct {
	Number    int        `json:"number"`
	Date      *time.Time `json:"date,omitempty"`
	Waypoints []Waypoint `json:"waypoints"`
}

// Itinerary is a named multi-day trip.
type Itinerary struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Country   string     `json:"country,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
	Days      []Day      `json:"days"`
	Version   int64      `json:"version"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Leg is the computed travel segment between two consecutive waypoints.
type Leg struct {
	From            GeoPoint   `json:"from"`
	To              GeoPoint   `json:"to"`
	DistanceMeters  float64    `json:"distance_meters"`
	DurationSeconds float64    `json:"duration_seconds"`
	Path            []GeoPoint `json:"path"`
}

// Key returns the leg cache key for the ordered pair it answers.
func (l Leg) Key() string {
	return CoordinateKey([]GeoPoint{l.From, l.To})
}

// Subdivision is an administrative region of a country. Geometry is always
// a MultiPolygon in the boundary dataset's own coordinate space.
type Subdivision struct {
	Name     string            `json:"name"`
	Geometry *geojson.Geometry `json:"geometry"`
}

// WaypointRecord is the flat shape used by persistence adapters.
type WaypointRecord struct {
	ItineraryID string       `json:"itinerary_id"`
	DayNumber   int          `json:"day_number"`
	Ordinal     int          `json:"ordinal"`
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Kind        WaypointKind `json:"kind"`
	Lat         *float64     `json:"lat,omitempty"`
	Lon         *float64     `json:"lon,omitempty"`
	Note        string       `json:"note,omitempty"`
}

// ItineraryEvent is published whenever an itinerary changes.
type ItineraryEvent struct {
	ItineraryID string    `json:"itinerary_id"`
	Kind        string    `json:"kind"`
	Day         int       `json:"day,omitempty"`
	WaypointID  string    `json:"waypoint_id,omitempty"`
	Version     int64     `json:"version"`
	At          time.Time `json:"at"`
}

// Itinerary event kinds.
const (
	EventCreated          = "created"
	EventDeleted          = "deleted"
	EventDateRangeSet     = "date_range_set"
	EventCountrySet       = "country_set"
	EventWaypointInserted = "waypoint_inserted"
	EventWaypointRemoved  = "waypoint_removed"
	EventWaypointMoved    = "waypoint_reordered"
	EventDayExpanded      = "day_expanded"
)
