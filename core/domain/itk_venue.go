package domain

import (
	"time"

	"github.com/google/uuid"
)

// CityVenue is a (city, venue_name) unique row with two independent freshness
// timestamps: LastSearched covers the venue's existence in the directory,
// LastEventsSearched covers its cached event list.
type CityVenue struct {
	ID                 uuid.UUID  `json:"id" db:"id"`
	City               string     `json:"city" db:"city"`
	VenueName          string     `json:"venue_name" db:"venue_name"`
	VenueType          string     `json:"venue_type" db:"venue_type"`
	Address            *string    `json:"address,omitempty" db:"address"`
	Website            *string    `json:"website,omitempty" db:"website"`
	LastSearched       *time.Time `json:"last_searched,omitempty" db:"last_searched"`
	LastEventsSearched *time.Time `json:"last_events_searched,omitempty" db:"last_events_searched"`
	CachedEvents       []Event    `json:"cached_events" db:"-"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
}

// EventsFresh reports whether the venue's event cache is inside the window.
func (v *CityVenue) EventsFresh(now time.Time, window time.Duration) bool {
	if v.LastEventsSearched == nil || len(v.CachedEvents) == 0 {
		return false
	}
	return v.LastEventsSearched.After(now.Add(-window))
}
