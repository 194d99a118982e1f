package hobby

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"itk_server/core/domain"
	"itk_server/core/port/out"

	"github.com/google/uuid"
)

type fakeOracle struct {
	chatResponse string
	chatErr      error
}

func (f *fakeOracle) Chat(ctx context.Context, prompt, system string) (string, error) {
	return f.chatResponse, f.chatErr
}
func (f *fakeOracle) Search(ctx context.Context, prompt, system string) (string, error) {
	return "", nil
}
func (f *fakeOracle) Write(ctx context.Context, prompt, system string) (string, error) {
	return "", nil
}

type fakeTagRepo struct {
	tags    map[string]*domain.HobbyTag
	created []string
}

func newFakeTagRepo() *fakeTagRepo {
	return &fakeTagRepo{tags: make(map[string]*domain.HobbyTag)}
}

func (f *fakeTagRepo) GetByName(ctx context.Context, name string) (*domain.HobbyTag, error) {
	if tag, ok := f.tags[name]; ok {
		return tag, nil
	}
	return nil, out.ErrNotFound
}

func (f *fakeTagRepo) Create(ctx context.Context, tag *domain.HobbyTag) error {
	tag.ID = uuid.New()
	f.tags[tag.TagName] = tag
	f.created = append(f.created, tag.TagName)
	return nil
}

type fakePairRepo struct {
	pairs      map[string]*domain.HobbyCityPair // key: tagID|city
	increments map[uuid.UUID]int
}

func newFakePairRepo() *fakePairRepo {
	return &fakePairRepo{
		pairs:      make(map[string]*domain.HobbyCityPair),
		increments: make(map[uuid.UUID]int),
	}
}

func pairKey(tagID uuid.UUID, city string) string { return tagID.String() + "|" + city }

func (f *fakePairRepo) GetByTagAndCity(ctx context.Context, tagID uuid.UUID, city string) (*domain.HobbyCityPair, error) {
	if pair, ok := f.pairs[pairKey(tagID, city)]; ok {
		return pair, nil
	}
	return nil, out.ErrNotFound
}

func (f *fakePairRepo) Create(ctx context.Context, pair *domain.HobbyCityPair) error {
	pair.ID = uuid.New()
	f.pairs[pairKey(pair.HobbyTagID, pair.City)] = pair
	return nil
}

func (f *fakePairRepo) IncrementFrequency(ctx context.Context, pairID uuid.UUID, delta int) error {
	f.increments[pairID] += delta
	for _, pair := range f.pairs {
		if pair.ID == pairID {
			pair.Frequency += delta
		}
	}
	return nil
}

func (f *fakePairRepo) ListByFrequency(ctx context.Context, city string, limit int) ([]*domain.HobbyCityPair, error) {
	return nil, nil
}

func (f *fakePairRepo) UpdateCache(ctx context.Context, pairID uuid.UUID, events []domain.Event, searchedAt time.Time) error {
	return nil
}

func TestHeuristicTags(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "comma separated",
			raw:  "Live music, rock climbing, tacos",
			want: []string{"live music", "rock climbing", "tacos"},
		},
		{
			name: "mixed separators and trailing punctuation",
			raw:  "hiking.\ntrail running; yoga,",
			want: []string{"hiking", "trail running", "yoga"},
		},
		{
			name: "drops single-char and over-long tokens",
			raw:  "a, board games, " + strings.Repeat("x", 40),
			want: []string{"board games"},
		},
		{
			name: "dedupes case-insensitively",
			raw:  "Jazz, jazz, JAZZ, funk",
			want: []string{"jazz", "funk"},
		},
		{
			name: "empty input",
			raw:  "",
			want: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := heuristicTags(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("heuristicTags(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestHeuristicTagsCap(t *testing.T) {
	raw := "one one, two two, three three, four four, five five, six six, " +
		"seven seven, eight eight, nine nine, ten ten, eleven, twelve, thirteen, fourteen"
	got := heuristicTags(raw)
	if len(got) != maxTags {
		t.Fatalf("expected cap of %d tags, got %d: %v", maxTags, len(got), got)
	}
}

func TestExtractTags(t *testing.T) {
	tests := []struct {
		name     string
		response string
		raw      string
		want     []string
	}{
		{
			name:     "clean JSON array",
			response: `["live music", "climbing"]`,
			raw:      "ignored",
			want:     []string{"live music", "climbing"},
		},
		{
			name:     "fenced block with prose",
			response: "Here you go:\n```json\n[\"Comedy\", \"trivia nights\"]\n```",
			raw:      "ignored",
			want:     []string{"comedy", "trivia nights"},
		},
		{
			name:     "duplicate entries collapse",
			response: `["jazz", "Jazz", "funk"]`,
			raw:      "ignored",
			want:     []string{"jazz", "funk"},
		},
		{
			name:     "garbage response falls back to heuristic",
			response: "I could not produce a list, sorry.",
			raw:      "salsa dancing, pottery",
			want:     []string{"salsa dancing", "pottery"},
		},
		{
			name:     "unconfigured oracle falls back to heuristic",
			response: "",
			raw:      "karaoke; film club",
			want:     []string{"karaoke", "film club"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(nil, nil, nil, nil, &fakeOracle{chatResponse: tt.response})
			got := svc.ExtractTags(context.Background(), tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ExtractTags() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUpsertPairsCreatesAndIncrements(t *testing.T) {
	tags := newFakeTagRepo()
	pairs := newFakePairRepo()
	svc := NewService(nil, nil, tags, pairs, &fakeOracle{})
	ctx := context.Background()

	if err := svc.UpsertPairs(ctx, "  Austin ", []string{"jazz", "jazz", "tacos"}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	jazzTag := tags.tags["jazz"]
	if jazzTag == nil {
		t.Fatal("expected jazz tag to be created")
	}
	if jazzTag.SearchPrompt != "Find upcoming jazz events in {city} this week" {
		t.Errorf("unexpected search prompt %q", jazzTag.SearchPrompt)
	}

	jazzPair, err := pairs.GetByTagAndCity(ctx, jazzTag.ID, "austin")
	if err != nil {
		t.Fatalf("jazz pair not created under normalized city: %v", err)
	}
	if jazzPair.Frequency != 2 {
		t.Errorf("jazz frequency = %d, want 2 (both occurrences counted)", jazzPair.Frequency)
	}

	if err := svc.UpsertPairs(ctx, "austin", []string{"jazz"}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if jazzPair.Frequency != 3 {
		t.Errorf("jazz frequency after second upsert = %d, want 3", jazzPair.Frequency)
	}
	if len(tags.created) != 2 {
		t.Errorf("tag creations = %v, want exactly jazz and tacos once each", tags.created)
	}
}

func TestUpsertPairsReusesExistingTag(t *testing.T) {
	tags := newFakeTagRepo()
	existing := &domain.HobbyTag{ID: uuid.New(), TagName: "hiking", SearchPrompt: "custom prompt"}
	tags.tags["hiking"] = existing
	pairs := newFakePairRepo()
	svc := NewService(nil, nil, tags, pairs, &fakeOracle{})

	if err := svc.UpsertPairs(context.Background(), "san antonio", []string{"hiking"}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if len(tags.created) != 0 {
		t.Errorf("expected no new tag rows, got %v", tags.created)
	}
	if _, err := pairs.GetByTagAndCity(context.Background(), existing.ID, "san antonio"); err != nil {
		t.Errorf("pair should reference the existing tag id: %v", err)
	}
}
