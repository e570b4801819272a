package telemetry

const instrumentationName = "github.com/samirrijal/wayfarer"

// Span names used for instrumentation.
const (
	// Outbound
	SpanRoute         = "routing.route"
	SpanBoundaryFetch = "boundary.fetch"

	// Usecases
	SpanBoundaryLoad  = "boundary.load"
	SpanLegsResolve   = "legs.resolve"
	SpanMapViewSync   = "mapview.sync"
	SpanSelectCountry = "regions.select_country"
)

// Span attribute keys.
const (
	AttrItineraryID = "wayfarer.itinerary_id"
	AttrDay         = "wayfarer.day"
	AttrCountry     = "wayfarer.country"
	AttrWaypoints   = "wayfarer.waypoints"
	AttrRegions     = "wayfarer.regions"
	AttrCacheHit    = "wayfarer.cache_hit"
	AttrUpstream    = "wayfarer.upstream_status"
)
