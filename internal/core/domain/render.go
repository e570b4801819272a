package domain

// Marker is one numbered waypoint pin.
type Marker struct {
	WaypointID string       `json:"waypoint_id"`
	Label      string       `json:"label"`
	Ordinal    int          `json:"ordinal"`
	Name       string       `json:"name"`
	Kind       WaypointKind `json:"kind"`
	Position   GeoPoint     `json:"position"`
	Color      string       `json:"color"`
}

// Polyline is the drawn path of one resolved leg.
type Polyline struct {
	FromWaypointID  string     `json:"from_waypoint_id"`
	ToWaypointID    string     `json:"to_waypoint_id"`
	Color           string     `json:"color"`
	Path            []GeoPoint `json:"path"`
	DistanceMeters  float64    `json:"distance_meters"`
	DurationSeconds float64    `json:"duration_seconds"`
}

// CameraInstruction fits the view to Bounds with Padding pixels, never
// zooming past MaxZoom.
type CameraInstruction struct {
	Bounds  Bounds   `json:"bounds"`
	Center  GeoPoint `json:"center"`
	Zoom    float64  `json:"zoom"`
	Padding int      `json:"padding"`
	MaxZoom int      `json:"max_zoom"`
}

// UnroutedPair names two consecutive waypoints without a drawn path.
type UnroutedPair struct {
	FromWaypointID string `json:"from_waypoint_id"`
	ToWaypointID   string `json:"to_waypoint_id"`
}

// RenderPlan is everything a map surface needs to draw one day.
// Rebuild tells the surface to clear all markers and polylines first.
type RenderPlan struct {
	ItineraryID          string             `json:"itinerary_id"`
	Day                  int                `json:"day"`
	Revision             uint64             `json:"revision"`
	Rebuild              bool               `json:"rebuild"`
	Markers              []Marker           `json:"markers"`
	Polylines            []Polyline         `json:"polylines"`
	Unrouted             []UnroutedPair     `json:"unrouted,omitempty"`
	Camera               *CameraInstruction `json:"camera,omitempty"`
	TotalDistanceMeters  float64            `json:"total_distance_meters"`
	TotalDurationSeconds float64            `json:"total_duration_seconds"`
}

// IntentKind names what the user asked for on the map surface.
type IntentKind string

const (
	IntentAddWaypoint  IntentKind = "add_waypoint"
	IntentToggleRegion IntentKind = "toggle_region"
)

// Intent is reported upward from the map surface. Nothing applies it
// automatically.
type Intent struct {
	ItineraryID string     `json:"itinerary_id"`
	Kind        IntentKind `json:"kind"`
	Day         int        `json:"day,omitempty"`
	Position    *GeoPoint  `json:"position,omitempty"`
	Region      string     `json:"region,omitempty"`
}

// SubdivisionPath is one subdivision drawn in viewport space.
type SubdivisionPath struct {
	Name string `json:"name"`
	D    string `json:"d"` // SVG path data
}

// RegionView is a projected subdivision with its resolved style.
type RegionView struct {
	Name    string      `json:"name"`
	D       string      `json:"d"`
	State   RenderState `json:"state"`
	Hovered bool        `json:"hovered"`
	Fill    string      `json:"fill"`
	Stroke  string      `json:"stroke"`
}

// BoundaryView is the choropleth contract for one country.
type BoundaryView struct {
	Country string       `json:"country"`
	Width   float64      `json:"width"`
	Height  float64      `json:"height"`
	Regions []RegionView `json:"regions"`
}
