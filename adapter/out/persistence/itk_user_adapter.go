package persistence

import (
	"context"
	"strings"

	"itk_server/core/domain"
	"itk_server/core/port/out"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// UserAdapter implements out.UserRepository using PostgreSQL.
type UserAdapter struct {
	store *Store
}

func NewUserAdapter(store *Store) *UserAdapter {
	return &UserAdapter{store: store}
}

const userColumns = `id, name, email, address, city, lat, lng, concision_pref,
	       event_radius_miles, dating_preference, is_subscribed, onboarding_token,
	       created_at, updated_at`

func (a *UserAdapter) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	if err := sqlx.GetContext(ctx, a.store.ext(ctx), &user, query, id); err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (a *UserAdapter) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = $1`
	if err := sqlx.GetContext(ctx, a.store.ext(ctx), &user, query, strings.ToLower(strings.TrimSpace(email))); err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (a *UserAdapter) ListAll(ctx context.Context) ([]*domain.User, error) {
	var users []*domain.User
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at ASC`
	if err := sqlx.SelectContext(ctx, a.store.ext(ctx), &users, query); err != nil {
		return nil, err
	}
	return users, nil
}

func (a *UserAdapter) ListSubscribed(ctx context.Context) ([]*domain.User, error) {
	var users []*domain.User
	query := `SELECT ` + userColumns + ` FROM users WHERE is_subscribed = true ORDER BY created_at ASC`
	if err := sqlx.SelectContext(ctx, a.store.ext(ctx), &users, query); err != nil {
		return nil, err
	}
	return users, nil
}

func (a *UserAdapter) SetSubscribed(ctx context.Context, id uuid.UUID, subscribed bool) error {
	query := `UPDATE users SET is_subscribed = $2, updated_at = now() WHERE id = $1`
	result, err := a.store.ext(ctx).ExecContext(ctx, query, id, subscribed)
	if err != nil {
		return err
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return out.ErrNotFound
	}
	return nil
}
