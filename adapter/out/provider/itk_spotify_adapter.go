package provider

import (
	"context"
	"fmt"
	"net/http"

	"itk_server/core/port/out"
	"itk_server/pkg/httputil"
	"itk_server/pkg/logger"

	"github.com/goccy/go-json"
)

const spotifyRecentlyPlayedURL = "https://api.spotify.com/v1/me/player/recently-played?limit=10"

// SpotifyAdapter reads a user's recently played tracks for newsletter
// personalization. Any non-2xx response degrades to an empty list because
// listening context is never worth failing a draft over.
type SpotifyAdapter struct {
	httpClient *http.Client
	baseURL    string
}

func NewSpotifyAdapter() *SpotifyAdapter {
	return &SpotifyAdapter{
		httpClient: httputil.NewContextAPIClient(),
	}
}

func (a *SpotifyAdapter) url() string {
	if a.baseURL != "" {
		return a.baseURL
	}
	return spotifyRecentlyPlayedURL
}

func (a *SpotifyAdapter) RecentTracks(ctx context.Context, accessToken string) ([]out.Track, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.url(), nil)
	if err != nil {
		return nil, fmt.Errorf("spotify request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("spotify recently-played: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		logger.WithField("status", resp.StatusCode).Debug("Spotify recently-played returned an error, skipping music context")
		return nil, nil
	}

	var body struct {
		Items []struct {
			Track struct {
				Name    string `json:"name"`
				Artists []struct {
					Name string `json:"name"`
				} `json:"artists"`
			} `json:"track"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("spotify response: %w", err)
	}

	tracks := make([]out.Track, 0, len(body.Items))
	for _, item := range body.Items {
		track := out.Track{Name: item.Track.Name}
		for _, artist := range item.Track.Artists {
			track.Artists = append(track.Artists, artist.Name)
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}
