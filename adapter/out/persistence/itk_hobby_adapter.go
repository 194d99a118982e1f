package persistence

import (
	"context"
	"time"

	"itk_server/core/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type hobbyRow struct {
	ID         uuid.UUID      `db:"id"`
	UserID     uuid.UUID      `db:"user_id"`
	RawText    string         `db:"raw_text"`
	ParsedTags pq.StringArray `db:"parsed_tags"`
	CreatedAt  time.Time      `db:"created_at"`
}

func (r hobbyRow) toDomain() *domain.UserHobby {
	return &domain.UserHobby{
		ID:         r.ID,
		UserID:     r.UserID,
		RawText:    r.RawText,
		ParsedTags: []string(r.ParsedTags),
		CreatedAt:  r.CreatedAt,
	}
}

// HobbyAdapter implements out.HobbyRepository using PostgreSQL.
type HobbyAdapter struct {
	store *Store
}

func NewHobbyAdapter(store *Store) *HobbyAdapter {
	return &HobbyAdapter{store: store}
}

func (a *HobbyAdapter) LatestByUser(ctx context.Context, userID uuid.UUID) (*domain.UserHobby, error) {
	var row hobbyRow
	query := `
		SELECT id, user_id, raw_text, parsed_tags, created_at
		FROM user_hobbies
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1`
	if err := sqlx.GetContext(ctx, a.store.ext(ctx), &row, query, userID); err != nil {
		return nil, notFound(err)
	}
	return row.toDomain(), nil
}

func (a *HobbyAdapter) Insert(ctx context.Context, hobby *domain.UserHobby) error {
	if hobby.ID == uuid.Nil {
		hobby.ID = uuid.New()
	}
	query := `
		INSERT INTO user_hobbies (id, user_id, raw_text, parsed_tags, created_at)
		VALUES ($1, $2, $3, $4, now())`
	_, err := a.store.ext(ctx).ExecContext(ctx, query,
		hobby.ID, hobby.UserID, hobby.RawText, pq.StringArray(hobby.ParsedTags))
	return err
}

func (a *HobbyAdapter) UpdateParsedTags(ctx context.Context, id uuid.UUID, tags []string) error {
	query := `UPDATE user_hobbies SET parsed_tags = $2 WHERE id = $1`
	_, err := a.store.ext(ctx).ExecContext(ctx, query, id, pq.StringArray(tags))
	return err
}

type goalRow struct {
	ID        uuid.UUID      `db:"id"`
	UserID    uuid.UUID      `db:"user_id"`
	RawText   string         `db:"raw_text"`
	GoalTypes pq.StringArray `db:"goal_types"`
	CreatedAt time.Time      `db:"created_at"`
}

func (r goalRow) toDomain() *domain.UserGoal {
	return &domain.UserGoal{
		ID:        r.ID,
		UserID:    r.UserID,
		RawText:   r.RawText,
		GoalTypes: []string(r.GoalTypes),
		CreatedAt: r.CreatedAt,
	}
}

// GoalAdapter implements out.GoalRepository using PostgreSQL.
type GoalAdapter struct {
	store *Store
}

func NewGoalAdapter(store *Store) *GoalAdapter {
	return &GoalAdapter{store: store}
}

func (a *GoalAdapter) LatestByUser(ctx context.Context, userID uuid.UUID) (*domain.UserGoal, error) {
	var row goalRow
	query := `
		SELECT id, user_id, raw_text, goal_types, created_at
		FROM user_goals
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1`
	if err := sqlx.GetContext(ctx, a.store.ext(ctx), &row, query, userID); err != nil {
		return nil, notFound(err)
	}
	return row.toDomain(), nil
}

func (a *GoalAdapter) Insert(ctx context.Context, goal *domain.UserGoal) error {
	if goal.ID == uuid.Nil {
		goal.ID = uuid.New()
	}
	query := `
		INSERT INTO user_goals (id, user_id, raw_text, goal_types, created_at)
		VALUES ($1, $2, $3, $4, now())`
	_, err := a.store.ext(ctx).ExecContext(ctx, query,
		goal.ID, goal.UserID, goal.RawText, pq.StringArray(goal.GoalTypes))
	return err
}
