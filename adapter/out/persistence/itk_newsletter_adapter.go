package persistence

import (
	"context"
	"time"

	"itk_server/core/domain"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type newsletterRow struct {
	ID             uuid.UUID  `db:"id"`
	UserID         uuid.UUID  `db:"user_id"`
	Subject        string     `db:"subject"`
	HTMLContent    string     `db:"html_content"`
	EventsIncluded []byte     `db:"events_included"`
	SentAt         *time.Time `db:"sent_at"`
	CreatedAt      time.Time  `db:"created_at"`
}

func (r newsletterRow) toDomain() *domain.Newsletter {
	return &domain.Newsletter{
		ID:             r.ID,
		UserID:         r.UserID,
		Subject:        r.Subject,
		HTMLContent:    r.HTMLContent,
		EventsIncluded: decodeEvents(r.EventsIncluded),
		SentAt:         r.SentAt,
		CreatedAt:      r.CreatedAt,
	}
}

// NewsletterAdapter implements out.NewsletterRepository using PostgreSQL.
type NewsletterAdapter struct {
	store *Store
}

func NewNewsletterAdapter(store *Store) *NewsletterAdapter {
	return &NewsletterAdapter{store: store}
}

const newsletterColumns = `id, user_id, subject, html_content, events_included, sent_at, created_at`

func (a *NewsletterAdapter) Insert(ctx context.Context, newsletter *domain.Newsletter) error {
	if newsletter.ID == uuid.Nil {
		newsletter.ID = uuid.New()
	}
	events, err := encodeEvents(newsletter.EventsIncluded)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO newsletters (id, user_id, subject, html_content, events_included, sent_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())`
	_, err = a.store.ext(ctx).ExecContext(ctx, query,
		newsletter.ID, newsletter.UserID, newsletter.Subject, newsletter.HTMLContent,
		events, newsletter.SentAt)
	return err
}

func (a *NewsletterAdapter) GetByID(ctx context.Context, id uuid.UUID) (*domain.Newsletter, error) {
	var row newsletterRow
	query := `SELECT ` + newsletterColumns + ` FROM newsletters WHERE id = $1`
	if err := sqlx.GetContext(ctx, a.store.ext(ctx), &row, query, id); err != nil {
		return nil, notFound(err)
	}
	return row.toDomain(), nil
}

func (a *NewsletterAdapter) LatestByUser(ctx context.Context, userID uuid.UUID) (*domain.Newsletter, error) {
	var row newsletterRow
	query := `
		SELECT ` + newsletterColumns + `
		FROM newsletters
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1`
	if err := sqlx.GetContext(ctx, a.store.ext(ctx), &row, query, userID); err != nil {
		return nil, notFound(err)
	}
	return row.toDomain(), nil
}

func (a *NewsletterAdapter) ListUnsent(ctx context.Context, userID *uuid.UUID) ([]*domain.Newsletter, error) {
	query := `SELECT ` + newsletterColumns + ` FROM newsletters WHERE sent_at IS NULL`
	args := []any{}
	if userID != nil {
		query += ` AND user_id = $1`
		args = append(args, *userID)
	}
	query += ` ORDER BY created_at ASC`

	var rows []newsletterRow
	if err := sqlx.SelectContext(ctx, a.store.ext(ctx), &rows, query, args...); err != nil {
		return nil, err
	}

	newsletters := make([]*domain.Newsletter, 0, len(rows))
	for _, row := range rows {
		newsletters = append(newsletters, row.toDomain())
	}
	return newsletters, nil
}

func (a *NewsletterAdapter) MarkSent(ctx context.Context, id uuid.UUID, sentAt time.Time) error {
	query := `UPDATE newsletters SET sent_at = $2 WHERE id = $1`
	_, err := a.store.ext(ctx).ExecContext(ctx, query, id, sentAt)
	return err
}

// FeedbackAdapter implements out.FeedbackRepository using PostgreSQL.
type FeedbackAdapter struct {
	store *Store
}

func NewFeedbackAdapter(store *Store) *FeedbackAdapter {
	return &FeedbackAdapter{store: store}
}

func (a *FeedbackAdapter) Insert(ctx context.Context, feedback *domain.NewsletterFeedback) error {
	if feedback.ID == uuid.Nil {
		feedback.ID = uuid.New()
	}
	query := `
		INSERT INTO newsletter_feedback (id, user_id, newsletter_id, raw_reply, rewritten_feedback, feedback_type, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())`
	_, err := a.store.ext(ctx).ExecContext(ctx, query,
		feedback.ID, feedback.UserID, feedback.NewsletterID, feedback.RawReply,
		feedback.RewrittenFeedback, feedback.FeedbackType)
	return err
}

func (a *FeedbackAdapter) RecentSummaries(ctx context.Context, userID uuid.UUID, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 6
	}
	var summaries []string
	query := `
		SELECT rewritten_feedback
		FROM newsletter_feedback
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	if err := sqlx.SelectContext(ctx, a.store.ext(ctx), &summaries, query, userID, limit); err != nil {
		return nil, err
	}
	return summaries, nil
}
