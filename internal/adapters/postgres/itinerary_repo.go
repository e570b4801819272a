package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/samirrijal/wayfarer/internal/core/domain"
)

// ItineraryRepo implements ports.ItineraryRepository.
type ItineraryRepo struct {
	db *DB
}

func NewItineraryRepo(db *DB) *ItineraryRepo {
	return &ItineraryRepo{db: db}
}

const selectItinerary = `
	SELECT id, name, COALESCE(country, ''), start_date, end_date, version, created_at, updated_at
	FROM itineraries`

func (r *ItineraryRepo) Create(ctx context.Context, it *domain.Itinerary) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	_, err = tx.Exec(ctx, `
		INSERT INTO itineraries (id, name, country, start_date, end_date, version, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8)
	`, it.ID, it.Name, it.Country, it.StartDate, it.EndDate, it.Version, it.CreatedAt, it.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert itinerary: %w", err)
	}
	if err := insertWaypoints(ctx, tx, it.Records()); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *ItineraryRepo) GetByID(ctx context.Context, id string) (*domain.Itinerary, error) {
	header, err := scanItinerary(r.db.Pool.QueryRow(ctx, selectItinerary+` WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	records, err := r.waypoints(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	it := domain.ItineraryFromRecords(header, records[id])
	return &it, nil
}

// Save replaces the header and every waypoint in one transaction, guarded by
// the version column.
func (r *ItineraryRepo) Save(ctx context.Context, it *domain.Itinerary, expectedVersion int64) error {
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	tag, err := tx.Exec(ctx, `
		UPDATE itineraries
		SET name = $2, country = NULLIF($3, ''), start_date = $4, end_date = $5, version = $6, updated_at = $7
		WHERE id = $1 AND version = $8
	`, it.ID, it.Name, it.Country, it.StartDate, it.EndDate, it.Version, it.UpdatedAt, expectedVersion)
	if err != nil {
		return fmt.Errorf("update itinerary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM itineraries WHERE id = $1)`, it.ID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return domain.ErrNotFound
		}
		return domain.ErrVersionConflict
	}

	if _, err := tx.Exec(ctx, `DELETE FROM waypoints WHERE itinerary_id = $1`, it.ID); err != nil {
		return fmt.Errorf("clear waypoints: %w", err)
	}
	if err := insertWaypoints(ctx, tx, it.Records()); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *ItineraryRepo) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, `DELETE FROM itineraries WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns itineraries newest first together with the total count.
func (r *ItineraryRepo) List(ctx context.Context, offset, limit int) ([]domain.Itinerary, int, error) {
	var total int
	if err := r.db.Pool.QueryRow(ctx, `SELECT count(*) FROM itineraries`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Pool.Query(ctx, selectItinerary+` ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var headers []domain.Itinerary
	var ids []string
	for rows.Next() {
		h, err := scanItinerary(rows)
		if err != nil {
			return nil, 0, err
		}
		headers = append(headers, h)
		ids = append(ids, h.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	records, err := r.waypoints(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	out := make([]domain.Itinerary, len(headers))
	for i, h := range headers {
		out[i] = domain.ItineraryFromRecords(h, records[h.ID])
	}
	return out, total, nil
}

// waypoints loads the waypoint rows of several itineraries, keyed by itinerary.
func (r *ItineraryRepo) waypoints(ctx context.Context, ids []string) (map[string][]domain.WaypointRecord, error) {
	out := make(map[string][]domain.WaypointRecord, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := r.db.Pool.Query(ctx, `
		SELECT itinerary_id, day_number, ordinal, id, name, kind, lat, lon, COALESCE(note, '')
		FROM waypoints
		WHERE itinerary_id = ANY($1)
		ORDER BY itinerary_id, day_number, ordinal
	`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var rec domain.WaypointRecord
		if err := rows.Scan(&rec.ItineraryID, &rec.DayNumber, &rec.Ordinal, &rec.ID, &rec.Name,
			&rec.Kind, &rec.Lat, &rec.Lon, &rec.Note); err != nil {
			return nil, err
		}
		out[rec.ItineraryID] = append(out[rec.ItineraryID], rec)
	}
	return out, rows.Err()
}

func insertWaypoints(ctx context.Context, tx pgx.Tx, records []domain.WaypointRecord) error {
	if len(records) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, rec := range records {
		batch.Queue(`
			INSERT INTO waypoints (itinerary_id, day_number, ordinal, id, name, kind, lat, lon, note)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NULLIF($9, ''))
		`, rec.ItineraryID, rec.DayNumber, rec.Ordinal, rec.ID, rec.Name, string(rec.Kind), rec.Lat, rec.Lon, rec.Note)
	}
	br := tx.SendBatch(ctx, batch)
	for range records {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("insert waypoint: %w", err)
		}
	}
	return br.Close()
}

func scanItinerary(row pgx.Row) (domain.Itinerary, error) {
	var it domain.Itinerary
	var start, end *time.Time
	err := row.Scan(&it.ID, &it.Name, &it.Country, &start, &end, &it.Version, &it.CreatedAt, &it.UpdatedAt)
	it.StartDate, it.EndDate = start, end
	return it, err
}
