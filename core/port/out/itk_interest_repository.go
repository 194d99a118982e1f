package out

import (
	"context"
	"time"

	"itk_server/core/domain"

	"github.com/google/uuid"
)

// HobbyRepository stores append-only raw interest statements.
type HobbyRepository interface {
	LatestByUser(ctx context.Context, userID uuid.UUID) (*domain.UserHobby, error)
	Insert(ctx context.Context, hobby *domain.UserHobby) error
	UpdateParsedTags(ctx context.Context, id uuid.UUID, tags []string) error
}

// GoalRepository stores append-only goal statements.
type GoalRepository interface {
	LatestByUser(ctx context.Context, userID uuid.UUID) (*domain.UserGoal, error)
	Insert(ctx context.Context, goal *domain.UserGoal) error
}

// TagRepository stores canonical interest tags, created lazily by name.
type TagRepository interface {
	GetByName(ctx context.Context, name string) (*domain.HobbyTag, error)
	Create(ctx context.Context, tag *domain.HobbyTag) error
}

// PairRepository stores frequency-weighted (tag, city) pairs and their
// cached search results.
type PairRepository interface {
	GetByTagAndCity(ctx context.Context, tagID uuid.UUID, city string) (*domain.HobbyCityPair, error)
	Create(ctx context.Context, pair *domain.HobbyCityPair) error
	IncrementFrequency(ctx context.Context, id uuid.UUID, by int) error
	// ListByFrequency returns pairs in descending frequency order, optionally
	// filtered to one city. limit <= 0 means no limit.
	ListByFrequency(ctx context.Context, city string, limit int) ([]*domain.HobbyCityPair, error)
	// UpdateCache stores search results and stamps last_searched, even when
	// events is empty, so a failing pair cannot hot-loop inside the window.
	UpdateCache(ctx context.Context, id uuid.UUID, events []domain.Event, searchedAt time.Time) error
}
