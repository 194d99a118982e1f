// Package venues maintains the pilot-city venue directory and its per-venue
// event caches.
package venues

import (
	"context"
	"fmt"
	"strings"
	"time"

	"itk_server/core/agent/llm"
	"itk_server/core/domain"
	"itk_server/core/port/out"
	"itk_server/pkg/logger"

	"github.com/goccy/go-json"
)

// PilotCities are the only cities the venue pipeline serves. Requests for
// other cities are a no-op, not an error.
var PilotCities = []string{"austin", "san antonio"}

const (
	VenueTypeMusic = "music"

	fallbackEventURL = "https://itk-so.vercel.app"

	// cachedEventsPerVenueWrite caps what one refresh stores per venue.
	cachedEventsPerVenueWrite = 6
	// cachedEventsPerVenueRead caps what composition reads back per venue.
	cachedEventsPerVenueRead = 3
)

type Service struct {
	venues          out.VenueRepository
	oracle          out.CompletionOracle
	venueFreshness  time.Duration
	eventsFreshness time.Duration
	now             func() time.Time
}

func NewService(venues out.VenueRepository, oracle out.CompletionOracle, venueFreshness, eventsFreshness time.Duration) *Service {
	return &Service{
		venues:          venues,
		oracle:          oracle,
		venueFreshness:  venueFreshness,
		eventsFreshness: eventsFreshness,
		now:             time.Now,
	}
}

// NormalizeCity collapses user-entered city strings onto the canonical
// lowercase form: punctuation stripped, state suffixes removed, inner
// whitespace collapsed. "Austin, TX" and "austin" are the same city.
func NormalizeCity(value string) string {
	normalized := strings.Join(strings.Fields(strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), ".", "")), " ")
	if idx := strings.Index(normalized, ","); idx >= 0 {
		normalized = strings.TrimSpace(normalized[:idx])
	}
	for _, suffix := range []string{", tx", ", texas", " tx", " texas"} {
		if strings.HasSuffix(normalized, suffix) {
			normalized = strings.TrimSpace(strings.TrimSuffix(normalized, suffix))
			break
		}
	}
	return normalized
}

func isPilotCity(city string) bool {
	for _, pilot := range PilotCities {
		if city == pilot {
			return true
		}
	}
	return false
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, word := range words {
		words[i] = strings.ToUpper(word[:1]) + word[1:]
	}
	return strings.Join(words, " ")
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type venueListing struct {
	VenueName string
	Address   string
	Website   string
}

// fallbackVenues is the seed directory used when discovery produces nothing,
// so a pilot city always has a non-empty venue list.
func fallbackVenues(city string) []venueListing {
	switch city {
	case "austin":
		return []venueListing{
			{VenueName: "Mohawk Austin", Address: "912 Red River St, Austin, TX", Website: "https://mohawkaustin.com"},
			{VenueName: "ACL Live at The Moody Theater", Address: "310 W Willie Nelson Blvd, Austin, TX", Website: "https://acllive.com"},
			{VenueName: "Stubb's Waller Creek Amphitheater", Address: "801 Red River St, Austin, TX", Website: "https://www.stubbsaustin.com"},
			{VenueName: "Emo's Austin", Address: "2015 E Riverside Dr, Austin, TX", Website: "https://www.emosaustin.com"},
			{VenueName: "Scoot Inn", Address: "1308 E 4th St, Austin, TX", Website: "https://www.scootinnaustin.com"},
		}
	case "san antonio":
		return []venueListing{
			{VenueName: "The Aztec Theatre", Address: "104 N St Mary's St, San Antonio, TX", Website: "https://www.aztectheatre.com"},
			{VenueName: "Tobin Center for the Performing Arts", Address: "100 Auditorium Cir, San Antonio, TX", Website: "https://www.tobincenter.org"},
			{VenueName: "Paper Tiger", Address: "2410 N St Mary's St, San Antonio, TX", Website: "https://papertigersa.com"},
			{VenueName: "Sam's Burger Joint", Address: "330 E Grayson St, San Antonio, TX", Website: "https://samsburgerjoint.com"},
			{VenueName: "Stable Hall", Address: "307 Pearl Pkwy, San Antonio, TX", Website: "https://stablehall.com"},
		}
	}
	return nil
}

// parseVenueListings accepts an array of objects or bare strings; entries
// without a venue name are dropped.
func parseVenueListings(payload string) []venueListing {
	var listings []venueListing
	for _, raw := range llm.ExtractJSONArray(payload) {
		var asString string
		if err := json.Unmarshal(raw, &asString); err == nil {
			if name := strings.TrimSpace(asString); name != "" {
				listings = append(listings, venueListing{VenueName: name})
			}
			continue
		}

		var asObject struct {
			VenueName string `json:"venue_name"`
			Address   string `json:"address"`
			Website   string `json:"website"`
		}
		if err := json.Unmarshal(raw, &asObject); err != nil {
			continue
		}
		name := strings.TrimSpace(asObject.VenueName)
		if name == "" {
			continue
		}
		listings = append(listings, venueListing{
			VenueName: name,
			Address:   strings.TrimSpace(asObject.Address),
			Website:   strings.TrimSpace(asObject.Website),
		})
	}
	return listings
}

// DiscoverCity refreshes the music venue directory for one city. Non-pilot
// cities are skipped. Discovery is rate limited by the newest venue-existence
// timestamp unless forced.
func (s *Service) DiscoverCity(ctx context.Context, city string, forceRefresh bool) (int, error) {
	normalized := NormalizeCity(city)
	if !isPilotCity(normalized) {
		return 0, nil
	}

	now := s.now()
	existing, err := s.venues.ListByCity(ctx, normalized, VenueTypeMusic)
	if err != nil {
		return 0, err
	}

	if len(existing) > 0 && !forceRefresh {
		var newest *time.Time
		for _, venue := range existing {
			if venue.LastSearched != nil && (newest == nil || venue.LastSearched.After(*newest)) {
				newest = venue.LastSearched
			}
		}
		if newest != nil && newest.After(now.Add(-s.venueFreshness)) {
			return 0, nil
		}
	}

	prompt := fmt.Sprintf(
		"List major live music venues in %s, Texas.\n"+
			"Return strict JSON array of objects with keys: venue_name, address, website.\n"+
			"Keep only established venues with frequent live shows.", titleCase(normalized))
	response, err := s.oracle.Chat(ctx, prompt, "Return strict JSON only.")
	if err != nil {
		logger.WithError(err).WithField("city", normalized).Warn("Venue discovery oracle call failed, using seed list")
		response = ""
	}

	listings := parseVenueListings(response)
	if len(listings) == 0 {
		listings = fallbackVenues(normalized)
	}

	existingByName := make(map[string]*domain.CityVenue, len(existing))
	for _, venue := range existing {
		existingByName[strings.ToLower(strings.TrimSpace(venue.VenueName))] = venue
	}

	touched := 0
	for _, listing := range listings {
		if row, ok := existingByName[strings.ToLower(listing.VenueName)]; ok {
			err := s.venues.UpdateDirectoryEntry(ctx, row.ID, strPtr(listing.Address), strPtr(listing.Website), now)
			if err != nil {
				return touched, err
			}
			touched++
			continue
		}

		err := s.venues.Insert(ctx, &domain.CityVenue{
			City:         normalized,
			VenueName:    listing.VenueName,
			VenueType:    VenueTypeMusic,
			Address:      strPtr(listing.Address),
			Website:      strPtr(listing.Website),
			LastSearched: &now,
			CachedEvents: []domain.Event{},
		})
		if err != nil {
			return touched, err
		}
		touched++
	}
	return touched, nil
}

// DiscoverPilotCities refreshes the directory for every pilot city.
func (s *Service) DiscoverPilotCities(ctx context.Context, forceRefresh bool) (int, error) {
	total := 0
	for _, city := range PilotCities {
		touched, err := s.DiscoverCity(ctx, city, forceRefresh)
		if err != nil {
			return total, err
		}
		total += touched
	}
	return total, nil
}

func fallbackVenueEvents(city, venueName string) []domain.Event {
	return []domain.Event{{
		Name:        venueName + " Weekly Showcase",
		Date:        "This week",
		Location:    venueName + ", " + titleCase(city),
		Price:       "$$",
		Description: "Popular local venue with frequent lineups worth checking before plans fill up.",
		URL:         fallbackEventURL,
		Category:    "Music",
	}}
}

// parseVenueEvents maps the oracle response into events, defaulting the
// fields composition depends on.
func parseVenueEvents(payload, city, venueName string) []domain.Event {
	var events []domain.Event
	for _, raw := range llm.ExtractJSONArray(payload) {
		event, ok := domain.EventFromWire(raw)
		if !ok {
			continue
		}
		if event.Date == "" {
			event.Date = "Date TBA"
		}
		if event.Location == "" {
			event.Location = venueName + ", " + titleCase(city)
		}
		if event.Price == "" {
			event.Price = "$$"
		}
		if event.Description == "" {
			event.Description = "Lineup worth checking."
		}
		if event.URL == "" {
			event.URL = fallbackEventURL
		}
		if event.Category == "" {
			event.Category = "Music"
		}
		events = append(events, event)
	}
	return events
}

// RefreshCityEvents refreshes each stale venue event cache in one city.
// An empty directory triggers discovery first. Returns the number of venues
// whose cache was rewritten.
func (s *Service) RefreshCityEvents(ctx context.Context, city string, forceRefresh bool) (int, error) {
	normalized := NormalizeCity(city)
	if !isPilotCity(normalized) {
		return 0, nil
	}

	cityVenues, err := s.venues.ListByCity(ctx, normalized, VenueTypeMusic)
	if err != nil {
		return 0, err
	}
	if len(cityVenues) == 0 {
		if _, err := s.DiscoverCity(ctx, normalized, false); err != nil {
			return 0, err
		}
		cityVenues, err = s.venues.ListByCity(ctx, normalized, VenueTypeMusic)
		if err != nil {
			return 0, err
		}
	}

	now := s.now()
	processed := 0
	for _, venue := range cityVenues {
		if !forceRefresh && venue.EventsFresh(now, s.eventsFreshness) {
			continue
		}

		prompt := fmt.Sprintf(
			"List upcoming events at %s in %s, Texas for the next 14 days.\n"+
				"Return strict JSON array with keys: name, date, location, price, why, url, category.\n"+
				"If exact data is uncertain, still return best known likely events with concise notes.",
			venue.VenueName, titleCase(normalized))
		response, err := s.oracle.Chat(ctx, prompt, "Return strict JSON only.")
		if err != nil {
			logger.WithError(err).WithFields(map[string]interface{}{
				"city":  normalized,
				"venue": venue.VenueName,
			}).Warn("Venue event search failed, storing fallback")
			response = ""
		}

		events := parseVenueEvents(response, normalized, venue.VenueName)
		if len(events) == 0 {
			events = fallbackVenueEvents(normalized, venue.VenueName)
		}
		if len(events) > cachedEventsPerVenueWrite {
			events = events[:cachedEventsPerVenueWrite]
		}

		if err := s.venues.UpdateEventCache(ctx, venue.ID, events, now); err != nil {
			return processed, err
		}
		processed++
	}
	return processed, nil
}

// RefreshEvents refreshes venue event caches, for one city or for all pilot
// cities when city is empty.
func (s *Service) RefreshEvents(ctx context.Context, city string, forceRefresh bool) (int, error) {
	if city != "" {
		return s.RefreshCityEvents(ctx, city, forceRefresh)
	}
	total := 0
	for _, pilotCity := range PilotCities {
		processed, err := s.RefreshCityEvents(ctx, pilotCity, forceRefresh)
		if err != nil {
			return total, err
		}
		total += processed
	}
	return total, nil
}

// GetCachedEvents reads back up to limit events across a city's venues,
// at most three per venue in stable venue-name order, backfilling location
// and category for composition.
func (s *Service) GetCachedEvents(ctx context.Context, city string, limit int) ([]domain.Event, error) {
	normalized := NormalizeCity(city)
	cityVenues, err := s.venues.ListByCity(ctx, normalized, VenueTypeMusic)
	if err != nil {
		return nil, err
	}

	var events []domain.Event
	for _, venue := range cityVenues {
		cached := venue.CachedEvents
		if len(cached) > cachedEventsPerVenueRead {
			cached = cached[:cachedEventsPerVenueRead]
		}
		for _, event := range cached {
			if event.Location == "" {
				event.Location = venue.VenueName + ", " + titleCase(normalized)
			}
			if event.Category == "" {
				event.Category = "Music"
			}
			events = append(events, event)
			if limit > 0 && len(events) >= limit {
				return events, nil
			}
		}
	}
	return events, nil
}
