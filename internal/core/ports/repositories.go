package ports

import (
	"context"

	"github.com/samirrijal/wayfarer/internal/core/domain"
)

// ItineraryRepository persists itineraries together with their days and waypoints.
type ItineraryRepository interface {
	Create(ctx context.Context, it *domain.Itinerary) error
	GetByID(ctx context.Context, id string) (*domain.Itinerary, error)
	// Save replaces the stored itinerary. It fails with domain.ErrVersionConflict
	// unless the stored version equals expectedVersion.
	Save(ctx context.Context, it *domain.Itinerary, expectedVersion int64) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, offset, limit int) ([]domain.Itinerary, int, error)
}

// RegionVisitRepository persists visited subdivisions per itinerary and country.
type RegionVisitRepository interface {
	ListVisited(ctx context.Context, itineraryID, country string) ([]string, error)
	SetVisited(ctx context.Context, itineraryID, country, region string, visited bool) error
}
