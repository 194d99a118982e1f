package domain

import (
	"time"

	"github.com/google/uuid"
)

// Newsletter is one send attempt. SentAt nil means queued/unsent.
type Newsletter struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	UserID         uuid.UUID  `json:"user_id" db:"user_id"`
	Subject        string     `json:"subject" db:"subject"`
	HTMLContent    string     `json:"html_content" db:"html_content"`
	EventsIncluded []Event    `json:"events_included" db:"-"`
	SentAt         *time.Time `json:"sent_at,omitempty" db:"sent_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// Feedback type tags for classified inbound replies.
const (
	FeedbackPositive   = "positive"
	FeedbackNegative   = "negative"
	FeedbackPreference = "preference"
	FeedbackSuggestion = "suggestion"
)

// NewsletterFeedback is one classified inbound reply of intent "feedback".
type NewsletterFeedback struct {
	ID                 uuid.UUID  `json:"id" db:"id"`
	UserID             uuid.UUID  `json:"user_id" db:"user_id"`
	NewsletterID       *uuid.UUID `json:"newsletter_id,omitempty" db:"newsletter_id"`
	RawReply           string     `json:"raw_reply" db:"raw_reply"`
	RewrittenFeedback  string     `json:"rewritten_feedback" db:"rewritten_feedback"`
	FeedbackType       string     `json:"feedback_type" db:"feedback_type"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
}

// Reply intents for the inbound classifier.
const (
	IntentAddInterests    = "add_interests"
	IntentRemoveInterests = "remove_interests"
	IntentUnsubscribe     = "unsubscribe"
	IntentFeedback        = "feedback"
)

// ValidIntent reports whether s is one of the four classifier intents.
func ValidIntent(s string) bool {
	switch s {
	case IntentAddInterests, IntentRemoveInterests, IntentUnsubscribe, IntentFeedback:
		return true
	}
	return false
}

// ValidFeedbackType reports whether s is a known feedback type tag.
func ValidFeedbackType(s string) bool {
	switch s {
	case FeedbackPositive, FeedbackNegative, FeedbackPreference, FeedbackSuggestion:
		return true
	}
	return false
}
