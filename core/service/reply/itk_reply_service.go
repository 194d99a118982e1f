package reply

import (
	"context"
	"strings"

	"itk_server/core/domain"
	"itk_server/core/port/out"
	"itk_server/pkg/logger"

	"github.com/google/uuid"
)

// HobbyReparser re-runs tag extraction after an interest mutation.
type HobbyReparser interface {
	ParseAndStore(ctx context.Context, userID uuid.UUID) ([]string, error)
}

// Updates reports which effects one reply actually applied.
type Updates struct {
	AddedInterests   int  `json:"added_interests"`
	RemovedInterests int  `json:"removed_interests"`
	Unsubscribed     bool `json:"unsubscribed"`
	FeedbackSaved    bool `json:"feedback_saved"`
}

// ProcessResult is the webhook response body.
type ProcessResult struct {
	Processed         bool    `json:"processed"`
	Detail            string  `json:"detail,omitempty"`
	SenderEmail       string  `json:"sender_email,omitempty"`
	UserID            string  `json:"user_id,omitempty"`
	NewsletterID      *string `json:"newsletter_id,omitempty"`
	Intent            string  `json:"intent"`
	FeedbackType      string  `json:"feedback_type,omitempty"`
	RewrittenFeedback string  `json:"rewritten_feedback,omitempty"`
	Updates           *Updates `json:"updates,omitempty"`
}

// Service resolves the replying user, classifies the reply, and applies its
// effects in a single transaction.
type Service struct {
	users       out.UserRepository
	hobbies     out.HobbyRepository
	goals       out.GoalRepository
	newsletters out.NewsletterRepository
	feedback    out.FeedbackRepository
	classifier  *Classifier
	reparser    HobbyReparser
	tx          out.TxRunner
}

func NewService(
	users out.UserRepository,
	hobbies out.HobbyRepository,
	goals out.GoalRepository,
	newsletters out.NewsletterRepository,
	feedback out.FeedbackRepository,
	classifier *Classifier,
	reparser HobbyReparser,
	tx out.TxRunner,
) *Service {
	return &Service{
		users:       users,
		hobbies:     hobbies,
		goals:       goals,
		newsletters: newsletters,
		feedback:    feedback,
		classifier:  classifier,
		reparser:    reparser,
		tx:          tx,
	}
}

// resolve finds the user and newsletter a reply belongs to: first by a
// newsletter UUID embedded in any recipient address, then by sender email
// with the user's latest newsletter as context.
func (s *Service) resolve(ctx context.Context, senderEmail string, recipients []string) (*domain.User, *domain.Newsletter, error) {
	if newsletterID := extractNewsletterID(recipients); newsletterID != nil {
		newsletter, err := s.newsletters.GetByID(ctx, *newsletterID)
		if err == nil {
			user, err := s.users.GetByID(ctx, newsletter.UserID)
			if err == nil {
				return user, newsletter, nil
			}
			if err != out.ErrNotFound {
				return nil, nil, err
			}
		} else if err != out.ErrNotFound {
			return nil, nil, err
		}
	}

	user, err := s.users.GetByEmail(ctx, senderEmail)
	if err == out.ErrNotFound {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	latest, err := s.newsletters.LatestByUser(ctx, user.ID)
	if err == out.ErrNotFound {
		return user, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	return user, latest, nil
}

// applyAddInterests appends a new interest statement merging the user's
// latest raw text with the additions, then re-runs extraction so the tags
// and city aggregate reflect it.
func (s *Service) applyAddInterests(ctx context.Context, user *domain.User, interests []string) (int, error) {
	if len(interests) == 0 {
		return 0, nil
	}

	existingRaw := ""
	if latest, err := s.hobbies.LatestByUser(ctx, user.ID); err == nil {
		existingRaw = latest.RawText
	} else if err != out.ErrNotFound {
		return 0, err
	}

	mergedRaw := strings.TrimSpace(existingRaw + "\nAlso interested in: " + strings.Join(interests, ", "))
	err := s.hobbies.Insert(ctx, &domain.UserHobby{
		UserID:     user.ID,
		RawText:    mergedRaw,
		ParsedTags: []string{},
	})
	if err != nil {
		return 0, err
	}

	if _, err := s.reparser.ParseAndStore(ctx, user.ID); err != nil {
		return 0, err
	}
	return len(interests), nil
}

// applyRemoveInterests records an avoid-style goal; composition reads it as
// a content filter rather than deleting history.
func (s *Service) applyRemoveInterests(ctx context.Context, user *domain.User, interests []string) (int, error) {
	if len(interests) == 0 {
		return 0, nil
	}
	err := s.goals.Insert(ctx, &domain.UserGoal{
		UserID:    user.ID,
		RawText:   "User asked to avoid or reduce these topics in recommendations: " + strings.Join(interests, ", "),
		GoalTypes: []string{"avoid", "content_filter"},
	})
	if err != nil {
		return 0, err
	}
	return len(interests), nil
}

// ProcessPayload handles one inbound reply webhook. The whole effect set
// commits atomically; an unresolvable sender is processed=false, not an
// error. Classification itself happens before the transaction opens so a
// slow model call does not hold a database transaction.
func (s *Service) ProcessPayload(ctx context.Context, payload map[string]any) (*ProcessResult, error) {
	senderEmail := extractSenderEmail(stringField(payloadData(payload), "from"))
	recipients := extractRecipientCandidates(payload)
	rawReply := extractReplyText(payload)

	user, newsletter, err := s.resolve(ctx, senderEmail, recipients)
	if err != nil {
		return nil, err
	}

	result := s.classifier.Classify(ctx, rawReply, newsletter, user)

	if user == nil {
		logger.WithField("sender", senderEmail).Warn("Inbound reply did not match a user")
		return &ProcessResult{
			Processed:   false,
			Detail:      "No matching user found for inbound reply.",
			SenderEmail: senderEmail,
			Intent:      result.Intent,
		}, nil
	}

	updates := &Updates{}
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		switch result.Intent {
		case domain.IntentUnsubscribe:
			if err := s.users.SetSubscribed(ctx, user.ID, false); err != nil {
				return err
			}
			updates.Unsubscribed = true

		case domain.IntentAddInterests:
			added, err := s.applyAddInterests(ctx, user, result.AddInterests)
			if err != nil {
				return err
			}
			updates.AddedInterests = added

		case domain.IntentRemoveInterests:
			removed, err := s.applyRemoveInterests(ctx, user, result.RemoveInterests)
			if err != nil {
				return err
			}
			updates.RemovedInterests = removed

		case domain.IntentFeedback:
			storedReply := rawReply
			if storedReply == "" {
				storedReply = "(empty reply)"
			}
			var newsletterID *uuid.UUID
			if newsletter != nil {
				newsletterID = &newsletter.ID
			}
			err := s.feedback.Insert(ctx, &domain.NewsletterFeedback{
				UserID:            user.ID,
				NewsletterID:      newsletterID,
				RawReply:          storedReply,
				RewrittenFeedback: result.RewrittenFeedback,
				FeedbackType:      result.FeedbackType,
			})
			if err != nil {
				return err
			}
			updates.FeedbackSaved = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	response := &ProcessResult{
		Processed:         true,
		UserID:            user.ID.String(),
		Intent:            result.Intent,
		FeedbackType:      result.FeedbackType,
		RewrittenFeedback: result.RewrittenFeedback,
		Updates:           updates,
	}
	if newsletter != nil {
		id := newsletter.ID.String()
		response.NewsletterID = &id
	}
	return response, nil
}

func stringField(data map[string]any, key string) string {
	if value, ok := data[key].(string); ok {
		return value
	}
	return ""
}
