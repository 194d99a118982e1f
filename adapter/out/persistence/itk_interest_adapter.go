package persistence

import (
	"context"
	"time"

	"itk_server/core/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// TagAdapter implements out.TagRepository using PostgreSQL.
type TagAdapter struct {
	store *Store
}

func NewTagAdapter(store *Store) *TagAdapter {
	return &TagAdapter{store: store}
}

func (a *TagAdapter) GetByName(ctx context.Context, name string) (*domain.HobbyTag, error) {
	var tag domain.HobbyTag
	query := `SELECT id, tag_name, search_prompt, created_at FROM hobby_tags WHERE tag_name = $1`
	if err := sqlx.GetContext(ctx, a.store.ext(ctx), &tag, query, name); err != nil {
		return nil, notFound(err)
	}
	return &tag, nil
}

func (a *TagAdapter) Create(ctx context.Context, tag *domain.HobbyTag) error {
	if tag.ID == uuid.Nil {
		tag.ID = uuid.New()
	}
	query := `
		INSERT INTO hobby_tags (id, tag_name, search_prompt, created_at)
		VALUES ($1, $2, $3, now())`
	_, err := a.store.ext(ctx).ExecContext(ctx, query, tag.ID, tag.TagName, tag.SearchPrompt)
	return err
}

type pairRow struct {
	ID            uuid.UUID  `db:"id"`
	HobbyTagID    uuid.UUID  `db:"hobby_tag_id"`
	TagName       string     `db:"tag_name"`
	SearchPrompt  string     `db:"search_prompt"`
	City          string     `db:"city"`
	Frequency     int        `db:"frequency"`
	LastSearched  *time.Time `db:"last_searched"`
	CachedResults []byte     `db:"cached_results"`
}

func (r pairRow) toDomain() *domain.HobbyCityPair {
	return &domain.HobbyCityPair{
		ID:            r.ID,
		HobbyTagID:    r.HobbyTagID,
		TagName:       r.TagName,
		SearchPromptTemplate: r.SearchPrompt,
		City:          r.City,
		Frequency:     r.Frequency,
		LastSearched:  r.LastSearched,
		CachedResults: decodeEvents(r.CachedResults),
	}
}

// PairAdapter implements out.PairRepository using PostgreSQL.
type PairAdapter struct {
	store *Store
}

func NewPairAdapter(store *Store) *PairAdapter {
	return &PairAdapter{store: store}
}

func (a *PairAdapter) GetByTagAndCity(ctx context.Context, tagID uuid.UUID, city string) (*domain.HobbyCityPair, error) {
	var row pairRow
	query := `
		SELECT p.id, p.hobby_tag_id, t.tag_name, t.search_prompt, p.city, p.frequency,
		       p.last_searched, p.cached_results
		FROM hobby_city_pairs p
		JOIN hobby_tags t ON t.id = p.hobby_tag_id
		WHERE p.hobby_tag_id = $1 AND p.city = $2`
	if err := sqlx.GetContext(ctx, a.store.ext(ctx), &row, query, tagID, city); err != nil {
		return nil, notFound(err)
	}
	return row.toDomain(), nil
}

func (a *PairAdapter) Create(ctx context.Context, pair *domain.HobbyCityPair) error {
	if pair.ID == uuid.Nil {
		pair.ID = uuid.New()
	}
	cache, err := encodeEvents(pair.CachedResults)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO hobby_city_pairs (id, hobby_tag_id, city, frequency, last_searched, cached_results)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = a.store.ext(ctx).ExecContext(ctx, query,
		pair.ID, pair.HobbyTagID, pair.City, pair.Frequency, pair.LastSearched, cache)
	return err
}

func (a *PairAdapter) IncrementFrequency(ctx context.Context, id uuid.UUID, by int) error {
	query := `UPDATE hobby_city_pairs SET frequency = frequency + $2 WHERE id = $1`
	_, err := a.store.ext(ctx).ExecContext(ctx, query, id, by)
	return err
}

func (a *PairAdapter) ListByFrequency(ctx context.Context, city string, limit int) ([]*domain.HobbyCityPair, error) {
	query := `
		SELECT p.id, p.hobby_tag_id, t.tag_name, t.search_prompt, p.city, p.frequency,
		       p.last_searched, p.cached_results
		FROM hobby_city_pairs p
		JOIN hobby_tags t ON t.id = p.hobby_tag_id`
	args := []any{}
	if city != "" {
		query += ` WHERE p.city = $1`
		args = append(args, city)
	}
	query += ` ORDER BY p.frequency DESC`
	if limit > 0 {
		if city != "" {
			query += ` LIMIT $2`
		} else {
			query += ` LIMIT $1`
		}
		args = append(args, limit)
	}

	var rows []pairRow
	if err := sqlx.SelectContext(ctx, a.store.ext(ctx), &rows, query, args...); err != nil {
		return nil, err
	}

	pairs := make([]*domain.HobbyCityPair, 0, len(rows))
	for _, row := range rows {
		pairs = append(pairs, row.toDomain())
	}
	return pairs, nil
}

func (a *PairAdapter) UpdateCache(ctx context.Context, id uuid.UUID, events []domain.Event, searchedAt time.Time) error {
	cache, err := encodeEvents(events)
	if err != nil {
		return err
	}
	query := `UPDATE hobby_city_pairs SET cached_results = $2, last_searched = $3 WHERE id = $1`
	_, err = a.store.ext(ctx).ExecContext(ctx, query, id, cache, searchedAt)
	return err
}
