package out

import (
	"context"
	"time"

	"itk_server/core/domain"

	"github.com/google/uuid"
)

// NewsletterRepository stores drafted and sent newsletters.
type NewsletterRepository interface {
	Insert(ctx context.Context, newsletter *domain.Newsletter) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Newsletter, error)
	LatestByUser(ctx context.Context, userID uuid.UUID) (*domain.Newsletter, error)
	// ListUnsent returns newsletters with sent_at null, optionally filtered
	// to one user (nil means all users).
	ListUnsent(ctx context.Context, userID *uuid.UUID) ([]*domain.Newsletter, error)
	MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error
}

// FeedbackRepository stores classified reply feedback.
type FeedbackRepository interface {
	Insert(ctx context.Context, feedback *domain.NewsletterFeedback) error
	// RecentSummaries returns up to limit rewritten feedback lines for a user,
	// newest first.
	RecentSummaries(ctx context.Context, userID uuid.UUID, limit int) ([]string, error)
}
