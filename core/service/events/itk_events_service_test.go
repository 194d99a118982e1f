package events

import (
	"context"
	"errors"
	"testing"
	"time"

	"itk_server/core/domain"

	"github.com/google/uuid"
)

type fakeOracle struct {
	searchResponse string
	searchErr      error
	searchCalls    int
	lastPrompt     string
}

func (f *fakeOracle) Chat(ctx context.Context, prompt, system string) (string, error) {
	return "", nil
}
func (f *fakeOracle) Search(ctx context.Context, prompt, system string) (string, error) {
	f.searchCalls++
	f.lastPrompt = prompt
	return f.searchResponse, f.searchErr
}
func (f *fakeOracle) Write(ctx context.Context, prompt, system string) (string, error) {
	return "", nil
}

type cacheWrite struct {
	pairID     uuid.UUID
	events     []domain.Event
	searchedAt time.Time
}

type fakePairRepo struct {
	listed  []*domain.HobbyCityPair
	listErr error
	writes  []cacheWrite
}

func (f *fakePairRepo) GetByTagAndCity(ctx context.Context, tagID uuid.UUID, city string) (*domain.HobbyCityPair, error) {
	return nil, errors.New("not used")
}
func (f *fakePairRepo) Create(ctx context.Context, pair *domain.HobbyCityPair) error {
	return errors.New("not used")
}
func (f *fakePairRepo) IncrementFrequency(ctx context.Context, id uuid.UUID, by int) error {
	return errors.New("not used")
}
func (f *fakePairRepo) ListByFrequency(ctx context.Context, city string, limit int) ([]*domain.HobbyCityPair, error) {
	return f.listed, f.listErr
}
func (f *fakePairRepo) UpdateCache(ctx context.Context, id uuid.UUID, events []domain.Event, searchedAt time.Time) error {
	f.writes = append(f.writes, cacheWrite{pairID: id, events: events, searchedAt: searchedAt})
	return nil
}

func newPair(tag, city string) *domain.HobbyCityPair {
	return &domain.HobbyCityPair{
		ID:                   uuid.New(),
		HobbyTagID:           uuid.New(),
		TagName:              tag,
		SearchPromptTemplate: "Find upcoming " + tag + " events in {city} this week",
		City:                 city,
	}
}

func TestSearchPairFreshCacheSkipsOracle(t *testing.T) {
	searched := time.Now().Add(-time.Hour)
	pair := newPair("jazz", "austin")
	pair.LastSearched = &searched
	pair.CachedResults = []domain.Event{{Name: "Jazz at the Elephant Room"}}

	oracle := &fakeOracle{}
	repo := &fakePairRepo{}
	svc := NewService(repo, oracle, 7*24*time.Hour, 50)

	events, fresh, err := svc.SearchPair(context.Background(), pair)
	if err != nil {
		t.Fatalf("SearchPair: %v", err)
	}
	if !fresh {
		t.Error("expected fresh hit")
	}
	if oracle.searchCalls != 0 {
		t.Errorf("oracle called %d times, want 0", oracle.searchCalls)
	}
	if len(repo.writes) != 0 {
		t.Errorf("cache written %d times, want 0", len(repo.writes))
	}
	if len(events) != 1 || events[0].Name != "Jazz at the Elephant Room" {
		t.Errorf("unexpected events %+v", events)
	}
}

func TestSearchPairStaleCacheCallsOracle(t *testing.T) {
	searched := time.Now().Add(-8 * 24 * time.Hour)
	pair := newPair("jazz", "austin")
	pair.LastSearched = &searched
	pair.CachedResults = []domain.Event{{Name: "Old Event"}}

	oracle := &fakeOracle{searchResponse: `[{"name": "Jazz Brunch", "date": "2026-09-05", "cost": "$15"}]`}
	repo := &fakePairRepo{}
	svc := NewService(repo, oracle, 7*24*time.Hour, 50)

	events, fresh, err := svc.SearchPair(context.Background(), pair)
	if err != nil {
		t.Fatalf("SearchPair: %v", err)
	}
	if fresh {
		t.Error("stale cache reported as fresh")
	}
	if oracle.lastPrompt != "Find upcoming jazz events in austin this week" {
		t.Errorf("prompt = %q", oracle.lastPrompt)
	}
	if len(events) != 1 || events[0].Name != "Jazz Brunch" {
		t.Fatalf("unexpected events %+v", events)
	}
	if events[0].Price != "$15" {
		t.Errorf("cost alias not mapped to price: %+v", events[0])
	}
	if events[0].SourceHobby != "jazz" {
		t.Errorf("event not tagged with source hobby: %+v", events[0])
	}
	if len(repo.writes) != 1 {
		t.Fatalf("cache writes = %d, want 1", len(repo.writes))
	}
}

func TestSearchPairUnusableResponseStoresPlaceholder(t *testing.T) {
	tests := []struct {
		name     string
		response string
	}{
		{name: "empty response from unconfigured oracle", response: ""},
		{name: "prose with no JSON array", response: "No events found this week, sorry!"},
		{name: "array of nameless objects", response: `[{"date": "friday"}]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pair := newPair("rock climbing", "san antonio")
			repo := &fakePairRepo{}
			svc := NewService(repo, &fakeOracle{searchResponse: tt.response}, 7*24*time.Hour, 50)

			events, _, err := svc.SearchPair(context.Background(), pair)
			if err != nil {
				t.Fatalf("SearchPair: %v", err)
			}
			if len(events) != 1 {
				t.Fatalf("expected single placeholder, got %+v", events)
			}
			placeholder := events[0]
			if placeholder.Name != "Local Rock Climbing Meetup" {
				t.Errorf("placeholder name = %q", placeholder.Name)
			}
			if placeholder.Date != "TBD" || placeholder.Location != "San Antonio" {
				t.Errorf("placeholder date/location = %q/%q", placeholder.Date, placeholder.Location)
			}
			if placeholder.URL != placeholderEventURL {
				t.Errorf("placeholder url = %q", placeholder.URL)
			}
			if len(repo.writes) != 1 {
				t.Fatalf("placeholder must still be cached, writes = %d", len(repo.writes))
			}
		})
	}
}

func TestSearchCityIsolatesPairFailures(t *testing.T) {
	good := newPair("jazz", "austin")
	bad := newPair("tacos", "austin")

	calls := 0
	oracle := &scriptedOracle{script: func(prompt string) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("upstream 502")
		}
		return `[{"name": "Taco Crawl"}]`, nil
	}}
	repo := &fakePairRepo{listed: []*domain.HobbyCityPair{good, bad}}
	svc := NewService(repo, oracle, 7*24*time.Hour, 50)

	summary, err := svc.SearchCity(context.Background(), "Austin")
	if err != nil {
		t.Fatalf("SearchCity: %v", err)
	}
	if summary.PairsProcessed != 2 || summary.Failures != 1 || summary.OracleCalls != 1 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.EventsStored != 1 {
		t.Errorf("events stored = %d, want 1", summary.EventsStored)
	}
	if len(repo.writes) != 1 {
		t.Errorf("a failed pair must not stamp the cache; writes = %d", len(repo.writes))
	}
}

type scriptedOracle struct {
	script func(prompt string) (string, error)
}

func (s *scriptedOracle) Chat(ctx context.Context, prompt, system string) (string, error) {
	return "", nil
}
func (s *scriptedOracle) Search(ctx context.Context, prompt, system string) (string, error) {
	return s.script(prompt)
}
func (s *scriptedOracle) Write(ctx context.Context, prompt, system string) (string, error) {
	return "", nil
}

func TestSearchPairIdempotentWithinWindow(t *testing.T) {
	pair := newPair("jazz", "austin")
	oracle := &fakeOracle{searchResponse: `[{"name": "Jazz Brunch"}]`}
	repo := &fakePairRepo{}
	svc := NewService(repo, oracle, 7*24*time.Hour, 50)

	events, _, err := svc.SearchPair(context.Background(), pair)
	if err != nil {
		t.Fatalf("first search: %v", err)
	}

	// Reload as the repository would return it after the write.
	write := repo.writes[0]
	pair.CachedResults = write.events
	pair.LastSearched = &write.searchedAt

	again, fresh, err := svc.SearchPair(context.Background(), pair)
	if err != nil {
		t.Fatalf("second search: %v", err)
	}
	if !fresh {
		t.Error("second call within window must hit the cache")
	}
	if oracle.searchCalls != 1 {
		t.Errorf("oracle calls = %d, want exactly 1", oracle.searchCalls)
	}
	if len(again) != len(events) || again[0].Name != events[0].Name {
		t.Errorf("cached result diverged: %+v vs %+v", again, events)
	}
}
