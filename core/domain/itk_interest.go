package domain

import (
	"time"

	"github.com/google/uuid"
)

// HobbyTag is a canonical lowercase interest tag, unique by name, created
// lazily on first sighting.
type HobbyTag struct {
	ID           uuid.UUID `json:"id" db:"id"`
	TagName      string    `json:"tag_name" db:"tag_name"`
	SearchPrompt string    `json:"search_prompt" db:"search_prompt"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// HobbyCityPair joins a tag with a normalized city. Frequency accumulates
// monotonically across all users ever processed for that city and ranks which
// pairs are searched first. CachedResults holds the last external search.
type HobbyCityPair struct {
	ID         uuid.UUID `json:"id" db:"id"`
	HobbyTagID uuid.UUID `json:"hobby_tag_id" db:"hobby_tag_id"`
	TagName    string    `json:"tag_name" db:"tag_name"`
	// SearchPromptTemplate is the joined tag prompt with a {city} slot.
	SearchPromptTemplate string     `json:"search_prompt,omitempty" db:"search_prompt"`
	City                 string     `json:"city" db:"city"`
	Frequency            int        `json:"frequency" db:"frequency"`
	LastSearched         *time.Time `json:"last_searched,omitempty" db:"last_searched"`
	CachedResults        []Event    `json:"cached_results" db:"-"`
}

// IsFresh reports whether the cached search results are still inside the
// freshness window. An empty cache is never fresh.
func (p *HobbyCityPair) IsFresh(now time.Time, window time.Duration) bool {
	if p.LastSearched == nil || len(p.CachedResults) == 0 {
		return false
	}
	return p.LastSearched.After(now.Add(-window))
}
