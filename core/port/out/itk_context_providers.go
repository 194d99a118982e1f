package out

import "context"

// Track is a recently-played music item used as personalization context.
type Track struct {
	Name    string   `json:"name"`
	Artists []string `json:"artists"`
}

// BusyWindow is one busy interval from the user's calendar.
type BusyWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// MusicProvider reads recent listening context with a bearer token.
// Degrades to an empty list on any non-2xx response.
type MusicProvider interface {
	RecentTracks(ctx context.Context, accessToken string) ([]Track, error)
}

// CalendarProvider reads busy windows for the coming week with a bearer
// token. Degrades to an empty list on any non-2xx response.
type CalendarProvider interface {
	BusyWindows(ctx context.Context, accessToken string) ([]BusyWindow, error)
}
