package persistence

import (
	"context"
	"time"

	"itk_server/core/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type venueRow struct {
	ID                 uuid.UUID  `db:"id"`
	City               string     `db:"city"`
	VenueName          string     `db:"venue_name"`
	VenueType          string     `db:"venue_type"`
	Address            *string    `db:"address"`
	Website            *string    `db:"website"`
	LastSearched       *time.Time `db:"last_searched"`
	LastEventsSearched *time.Time `db:"last_events_searched"`
	CachedEvents       []byte     `db:"cached_events"`
	CreatedAt          time.Time  `db:"created_at"`
}

func (r venueRow) toDomain() *domain.CityVenue {
	return &domain.CityVenue{
		ID:                 r.ID,
		City:               r.City,
		VenueName:          r.VenueName,
		VenueType:          r.VenueType,
		Address:            r.Address,
		Website:            r.Website,
		LastSearched:       r.LastSearched,
		LastEventsSearched: r.LastEventsSearched,
		CachedEvents:       decodeEvents(r.CachedEvents),
		CreatedAt:          r.CreatedAt,
	}
}

// VenueAdapter implements out.VenueRepository using PostgreSQL.
type VenueAdapter struct {
	store *Store
}

func NewVenueAdapter(store *Store) *VenueAdapter {
	return &VenueAdapter{store: store}
}

func (a *VenueAdapter) ListByCity(ctx context.Context, city, venueType string) ([]*domain.CityVenue, error) {
	var rows []venueRow
	query := `
		SELECT id, city, venue_name, venue_type, address, website,
		       last_searched, last_events_searched, cached_events, created_at
		FROM city_venues
		WHERE city = $1 AND venue_type = $2
		ORDER BY venue_name ASC`
	if err := sqlx.SelectContext(ctx, a.store.ext(ctx), &rows, query, city, venueType); err != nil {
		return nil, err
	}

	venues := make([]*domain.CityVenue, 0, len(rows))
	for _, row := range rows {
		venues = append(venues, row.toDomain())
	}
	return venues, nil
}

func (a *VenueAdapter) Insert(ctx context.Context, venue *domain.CityVenue) error {
	if venue.ID == uuid.Nil {
		venue.ID = uuid.New()
	}
	cache, err := encodeEvents(venue.CachedEvents)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO city_venues (id, city, venue_name, venue_type, address, website,
		                         last_searched, last_events_searched, cached_events, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())`
	_, err = a.store.ext(ctx).ExecContext(ctx, query,
		venue.ID, venue.City, venue.VenueName, venue.VenueType, venue.Address, venue.Website,
		venue.LastSearched, venue.LastEventsSearched, cache)
	return err
}

func (a *VenueAdapter) UpdateDirectoryEntry(ctx context.Context, id uuid.UUID, address, website *string, searchedAt time.Time) error {
	query := `
		UPDATE city_venues
		SET address = $2, website = $3, last_searched = $4
		WHERE id = $1`
	_, err := a.store.ext(ctx).ExecContext(ctx, query, id, address, website, searchedAt)
	return err
}

func (a *VenueAdapter) UpdateEventCache(ctx context.Context, id uuid.UUID, events []domain.Event, searchedAt time.Time) error {
	cache, err := encodeEvents(events)
	if err != nil {
		return err
	}
	query := `UPDATE city_venues SET cached_events = $2, last_events_searched = $3 WHERE id = $1`
	_, err = a.store.ext(ctx).ExecContext(ctx, query, id, cache, searchedAt)
	return err
}
