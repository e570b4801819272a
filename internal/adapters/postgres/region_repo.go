package postgres

import (
	"context"
)

// RegionVisitRepo implements ports.RegionVisitRepository.
type RegionVisitRepo struct {
	db *DB
}

func NewRegionVisitRepo(db *DB) *RegionVisitRepo {
	return &RegionVisitRepo{db: db}
}

func (r *RegionVisitRepo) ListVisited(ctx context.Context, itineraryID, country string) ([]string, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT region FROM region_visits
		WHERE itinerary_id = $1 AND country = $2
		ORDER BY region
	`, itineraryID, country)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regions []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		regions = append(regions, name)
	}
	return regions, rows.Err()
}

// SetVisited inserts or removes the visit mark. Both directions are idempotent.
func (r *RegionVisitRepo) SetVisited(ctx context.Context, itineraryID, country, region string, visited bool) error {
	if !visited {
		_, err := r.db.Pool.Exec(ctx, `
			DELETE FROM region_visits WHERE itinerary_id = $1 AND country = $2 AND region = $3
		`, itineraryID, country, region)
		return err
	}
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO region_visits (itinerary_id, country, region)
		VALUES ($1, $2, $3)
		ON CONFLICT (itinerary_id, country, region) DO NOTHING
	`, itineraryID, country, region)
	return err
}
