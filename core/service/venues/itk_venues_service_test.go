package venues

import (
	"context"
	"strings"
	"testing"
	"time"

	"itk_server/core/domain"

	"github.com/google/uuid"
)

type fakeOracle struct {
	response string
	err      error
	calls    int
	prompts  []string
}

func (f *fakeOracle) Chat(ctx context.Context, prompt, system string) (string, error) {
	f.calls++
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}
func (f *fakeOracle) Search(ctx context.Context, prompt, system string) (string, error) {
	return "", nil
}
func (f *fakeOracle) Write(ctx context.Context, prompt, system string) (string, error) {
	return "", nil
}

type fakeVenueRepo struct {
	venues       []*domain.CityVenue
	directoryUps int
	cacheWrites  map[uuid.UUID][]domain.Event
}

func newFakeVenueRepo(venues ...*domain.CityVenue) *fakeVenueRepo {
	return &fakeVenueRepo{venues: venues, cacheWrites: make(map[uuid.UUID][]domain.Event)}
}

func (f *fakeVenueRepo) ListByCity(ctx context.Context, city, venueType string) ([]*domain.CityVenue, error) {
	var matched []*domain.CityVenue
	for _, venue := range f.venues {
		if venue.City == city && venue.VenueType == venueType {
			matched = append(matched, venue)
		}
	}
	return matched, nil
}

func (f *fakeVenueRepo) Insert(ctx context.Context, venue *domain.CityVenue) error {
	venue.ID = uuid.New()
	f.venues = append(f.venues, venue)
	return nil
}

func (f *fakeVenueRepo) UpdateDirectoryEntry(ctx context.Context, id uuid.UUID, address, website *string, searchedAt time.Time) error {
	f.directoryUps++
	for _, venue := range f.venues {
		if venue.ID == id {
			venue.Address = address
			venue.Website = website
			venue.LastSearched = &searchedAt
		}
	}
	return nil
}

func (f *fakeVenueRepo) UpdateEventCache(ctx context.Context, id uuid.UUID, events []domain.Event, searchedAt time.Time) error {
	f.cacheWrites[id] = events
	for _, venue := range f.venues {
		if venue.ID == id {
			venue.CachedEvents = events
			venue.LastEventsSearched = &searchedAt
		}
	}
	return nil
}

func TestNormalizeCity(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Austin", "austin"},
		{"  Austin, TX ", "austin"},
		{"San Antonio, Texas", "san antonio"},
		{"austin tx", "austin"},
		{"St. Louis", "st louis"},
		{"SAN   ANTONIO", "san antonio"},
	}
	for _, tt := range tests {
		if got := NormalizeCity(tt.in); got != tt.want {
			t.Errorf("NormalizeCity(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDiscoverCitySkipsNonPilot(t *testing.T) {
	oracle := &fakeOracle{}
	svc := NewService(newFakeVenueRepo(), oracle, 30*24*time.Hour, 6*24*time.Hour)

	touched, err := svc.DiscoverCity(context.Background(), "Houston", false)
	if err != nil {
		t.Fatalf("DiscoverCity: %v", err)
	}
	if touched != 0 || oracle.calls != 0 {
		t.Errorf("non-pilot city must be a no-op; touched=%d calls=%d", touched, oracle.calls)
	}
}

func TestDiscoverCityFreshDirectoryShortCircuits(t *testing.T) {
	searched := time.Now().Add(-24 * time.Hour)
	repo := newFakeVenueRepo(&domain.CityVenue{
		ID: uuid.New(), City: "austin", VenueName: "Mohawk Austin",
		VenueType: VenueTypeMusic, LastSearched: &searched,
	})
	oracle := &fakeOracle{}
	svc := NewService(repo, oracle, 30*24*time.Hour, 6*24*time.Hour)

	touched, err := svc.DiscoverCity(context.Background(), "Austin, TX", false)
	if err != nil {
		t.Fatalf("DiscoverCity: %v", err)
	}
	if touched != 0 || oracle.calls != 0 {
		t.Errorf("fresh directory must skip discovery; touched=%d calls=%d", touched, oracle.calls)
	}
}

func TestDiscoverCityReconcilesByName(t *testing.T) {
	stale := time.Now().Add(-60 * 24 * time.Hour)
	existing := &domain.CityVenue{
		ID: uuid.New(), City: "austin", VenueName: "mohawk austin",
		VenueType: VenueTypeMusic, LastSearched: &stale,
	}
	repo := newFakeVenueRepo(existing)
	oracle := &fakeOracle{response: `[
		{"venue_name": "Mohawk Austin", "address": "912 Red River St", "website": "https://mohawkaustin.com"},
		{"venue_name": "Empire Control Room", "address": "606 E 7th St"}
	]`}
	svc := NewService(repo, oracle, 30*24*time.Hour, 6*24*time.Hour)

	touched, err := svc.DiscoverCity(context.Background(), "austin", false)
	if err != nil {
		t.Fatalf("DiscoverCity: %v", err)
	}
	if touched != 2 {
		t.Errorf("touched = %d, want 2", touched)
	}
	if repo.directoryUps != 1 {
		t.Errorf("case-insensitive match must update, not insert; updates = %d", repo.directoryUps)
	}
	if len(repo.venues) != 2 {
		t.Errorf("venue rows = %d, want 2 (one updated, one inserted)", len(repo.venues))
	}
}

func TestDiscoverCityFallsBackToSeedList(t *testing.T) {
	repo := newFakeVenueRepo()
	svc := NewService(repo, &fakeOracle{response: "no venues today"}, 30*24*time.Hour, 6*24*time.Hour)

	touched, err := svc.DiscoverCity(context.Background(), "san antonio", false)
	if err != nil {
		t.Fatalf("DiscoverCity: %v", err)
	}
	if touched != 5 {
		t.Errorf("touched = %d, want the 5 seed venues", touched)
	}
	found := false
	for _, venue := range repo.venues {
		if venue.VenueName == "Paper Tiger" {
			found = true
		}
	}
	if !found {
		t.Error("seed list venue missing from directory")
	}
}

func TestRefreshCityEventsCapsAndSkipsFresh(t *testing.T) {
	freshAt := time.Now().Add(-time.Hour)
	freshVenue := &domain.CityVenue{
		ID: uuid.New(), City: "austin", VenueName: "ACL Live",
		VenueType: VenueTypeMusic, LastEventsSearched: &freshAt,
		CachedEvents: []domain.Event{{Name: "Cached Show"}},
	}
	staleVenue := &domain.CityVenue{
		ID: uuid.New(), City: "austin", VenueName: "Mohawk Austin",
		VenueType: VenueTypeMusic,
	}
	repo := newFakeVenueRepo(freshVenue, staleVenue)

	var names []string
	for i := 0; i < 8; i++ {
		names = append(names, `{"name": "Show `+string(rune('A'+i))+`"}`)
	}
	oracle := &fakeOracle{response: "[" + strings.Join(names, ",") + "]"}
	svc := NewService(repo, oracle, 30*24*time.Hour, 6*24*time.Hour)

	processed, err := svc.RefreshCityEvents(context.Background(), "austin", false)
	if err != nil {
		t.Fatalf("RefreshCityEvents: %v", err)
	}
	if processed != 1 {
		t.Errorf("processed = %d, want 1 (fresh venue skipped)", processed)
	}
	stored := repo.cacheWrites[staleVenue.ID]
	if len(stored) != cachedEventsPerVenueWrite {
		t.Errorf("stored %d events, want cap of %d", len(stored), cachedEventsPerVenueWrite)
	}
	if stored[0].Location != "Mohawk Austin, Austin" {
		t.Errorf("location backfill = %q", stored[0].Location)
	}
	if stored[0].Category != "Music" || stored[0].Price != "$$" {
		t.Errorf("defaults not applied: %+v", stored[0])
	}
}

func TestRefreshCityEventsStoresFallbackShowcase(t *testing.T) {
	venue := &domain.CityVenue{
		ID: uuid.New(), City: "san antonio", VenueName: "Stable Hall",
		VenueType: VenueTypeMusic,
	}
	repo := newFakeVenueRepo(venue)
	svc := NewService(repo, &fakeOracle{response: ""}, 30*24*time.Hour, 6*24*time.Hour)

	if _, err := svc.RefreshCityEvents(context.Background(), "san antonio", false); err != nil {
		t.Fatalf("RefreshCityEvents: %v", err)
	}
	stored := repo.cacheWrites[venue.ID]
	if len(stored) != 1 || stored[0].Name != "Stable Hall Weekly Showcase" {
		t.Fatalf("fallback events = %+v", stored)
	}
	if stored[0].Date != "This week" || stored[0].Location != "Stable Hall, San Antonio" {
		t.Errorf("fallback fields = %+v", stored[0])
	}
}

func TestGetCachedEventsReadCapAndBackfill(t *testing.T) {
	venueA := &domain.CityVenue{
		ID: uuid.New(), City: "austin", VenueName: "ACL Live", VenueType: VenueTypeMusic,
		CachedEvents: []domain.Event{
			{Name: "One"}, {Name: "Two"}, {Name: "Three"}, {Name: "Four"},
		},
	}
	venueB := &domain.CityVenue{
		ID: uuid.New(), City: "austin", VenueName: "Mohawk Austin", VenueType: VenueTypeMusic,
		CachedEvents: []domain.Event{{Name: "Five", Location: "Outdoor stage", Category: "Comedy"}},
	}
	repo := newFakeVenueRepo(venueA, venueB)
	svc := NewService(repo, &fakeOracle{}, 30*24*time.Hour, 6*24*time.Hour)

	events, err := svc.GetCachedEvents(context.Background(), "Austin, TX", 8)
	if err != nil {
		t.Fatalf("GetCachedEvents: %v", err)
	}
	if len(events) != 4 {
		t.Fatalf("events = %d, want 3 from first venue + 1 from second", len(events))
	}
	if events[0].Location != "ACL Live, Austin" || events[0].Category != "Music" {
		t.Errorf("backfill missing: %+v", events[0])
	}
	if events[3].Location != "Outdoor stage" || events[3].Category != "Comedy" {
		t.Errorf("existing fields must not be overwritten: %+v", events[3])
	}
}

func TestGetCachedEventsHonorsLimit(t *testing.T) {
	venue := &domain.CityVenue{
		ID: uuid.New(), City: "austin", VenueName: "ACL Live", VenueType: VenueTypeMusic,
		CachedEvents: []domain.Event{{Name: "One"}, {Name: "Two"}, {Name: "Three"}},
	}
	repo := newFakeVenueRepo(venue)
	svc := NewService(repo, &fakeOracle{}, 30*24*time.Hour, 6*24*time.Hour)

	events, err := svc.GetCachedEvents(context.Background(), "austin", 2)
	if err != nil {
		t.Fatalf("GetCachedEvents: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("limit not honored, got %d events", len(events))
	}
}
