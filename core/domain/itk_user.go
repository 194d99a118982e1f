package domain

import (
	"time"

	"github.com/google/uuid"
)

// DatingPreference values a user can set explicitly or have derived from goals.
const (
	DatingPrefDateNightSpots = "date_night_spots"
	DatingPrefMeetingPeople  = "meeting_people"
	DatingPrefBoth           = "both"
	DatingPrefNotSpecified   = "not_specified"
)

// Concision preference values.
const (
	ConcisionBrief    = "brief"
	ConcisionDetailed = "detailed"
)

type User struct {
	ID               uuid.UUID `json:"id" db:"id"`
	Name             string    `json:"name" db:"name"`
	Email            string    `json:"email" db:"email"`
	Address          string    `json:"address" db:"address"`
	City             string    `json:"city" db:"city"`
	Lat              *float64  `json:"lat,omitempty" db:"lat"`
	Lng              *float64  `json:"lng,omitempty" db:"lng"`
	ConcisionPref    string    `json:"concision_pref" db:"concision_pref"`
	EventRadiusMiles int       `json:"event_radius_miles" db:"event_radius_miles"`
	DatingPreference *string   `json:"dating_preference,omitempty" db:"dating_preference"`
	IsSubscribed     bool      `json:"is_subscribed" db:"is_subscribed"`
	OnboardingToken  string    `json:"-" db:"onboarding_token"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// UserHobby is one raw free-text interest statement. Append-only: new
// statements accumulate, the latest one (by created_at) is authoritative.
type UserHobby struct {
	ID         uuid.UUID `json:"id" db:"id"`
	UserID     uuid.UUID `json:"user_id" db:"user_id"`
	RawText    string    `json:"raw_text" db:"raw_text"`
	ParsedTags []string  `json:"parsed_tags" db:"parsed_tags"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// UserGoal is the parallel append-only goal statement with derived goal types.
type UserGoal struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	RawText   string    `json:"raw_text" db:"raw_text"`
	GoalTypes []string  `json:"goal_types" db:"goal_types"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// OAuthToken stores encrypted provider credentials for a user.
type OAuthToken struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	UserID       uuid.UUID  `json:"user_id" db:"user_id"`
	Provider     string     `json:"provider" db:"provider"`
	AccessToken  string     `json:"-" db:"access_token"`
	RefreshToken *string    `json:"-" db:"refresh_token"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty" db:"expires_at"`
}
