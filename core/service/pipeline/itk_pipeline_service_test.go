package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"itk_server/core/domain"
	"itk_server/core/port/out"
	"itk_server/core/service/events"
	"itk_server/core/service/newsletter"

	"github.com/google/uuid"
)

type fakeUserRepo struct {
	all []*domain.User
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return nil, out.ErrNotFound
}
func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return nil, out.ErrNotFound
}
func (f *fakeUserRepo) ListAll(ctx context.Context) ([]*domain.User, error) { return f.all, nil }
func (f *fakeUserRepo) ListSubscribed(ctx context.Context) ([]*domain.User, error) {
	var subscribed []*domain.User
	for _, user := range f.all {
		if user.IsSubscribed {
			subscribed = append(subscribed, user)
		}
	}
	return subscribed, nil
}
func (f *fakeUserRepo) SetSubscribed(ctx context.Context, id uuid.UUID, subscribed bool) error {
	return nil
}

type fakeHobbyParser struct {
	tagsFor map[uuid.UUID][]string
	errFor  map[uuid.UUID]error
}

func (f *fakeHobbyParser) ParseAndStore(ctx context.Context, userID uuid.UUID) ([]string, error) {
	if err, ok := f.errFor[userID]; ok {
		return nil, err
	}
	return f.tagsFor[userID], nil
}

type fakeEventSearcher struct {
	summary *events.SearchSummary
	err     error
}

func (f *fakeEventSearcher) SearchAll(ctx context.Context) (*events.SearchSummary, error) {
	return f.summary, f.err
}

type fakeVenueMaintainer struct {
	discovered int
	refreshed  int
}

func (f *fakeVenueMaintainer) DiscoverPilotCities(ctx context.Context, forceRefresh bool) (int, error) {
	return f.discovered, nil
}
func (f *fakeVenueMaintainer) RefreshEvents(ctx context.Context, city string, forceRefresh bool) (int, error) {
	return f.refreshed, nil
}

type fakeDrafter struct {
	mu      sync.Mutex
	drafted []uuid.UUID
	failFor uuid.UUID
}

func (f *fakeDrafter) DraftForUser(ctx context.Context, user *domain.User) (*domain.Newsletter, error) {
	if user.ID == f.failFor {
		return nil, errors.New("compose blew up")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drafted = append(f.drafted, user.ID)
	return &domain.Newsletter{ID: uuid.New(), UserID: user.ID}, nil
}

type fakeSender struct {
	summary *newsletter.DispatchSummary
	err     error
}

func (f *fakeSender) SendUnsent(ctx context.Context, userID *uuid.UUID) (*newsletter.DispatchSummary, error) {
	return f.summary, f.err
}

func makeUsers(n int) []*domain.User {
	var users []*domain.User
	for i := 0; i < n; i++ {
		users = append(users, &domain.User{ID: uuid.New(), IsSubscribed: true})
	}
	return users
}

func TestRunHappyPath(t *testing.T) {
	users := makeUsers(3)
	parser := &fakeHobbyParser{tagsFor: map[uuid.UUID][]string{
		users[0].ID: {"jazz"},
		users[1].ID: {"tacos"},
	}}
	drafter := &fakeDrafter{}
	svc := NewService(
		&fakeUserRepo{all: users},
		parser,
		&fakeEventSearcher{summary: &events.SearchSummary{PairsProcessed: 7}},
		&fakeVenueMaintainer{discovered: 5, refreshed: 4},
		drafter,
		&fakeSender{summary: &newsletter.DispatchSummary{Sent: 3}},
		2,
	)

	summary := svc.Run(context.Background())
	if len(summary.StageErrors) != 0 {
		t.Fatalf("stage errors = %v", summary.StageErrors)
	}
	if summary.UsersSeen != 3 || summary.ParsedHobbies != 2 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.SearchedPairs != 7 || summary.VenuesDiscovered != 5 || summary.VenueEventsRefreshed != 4 {
		t.Errorf("summary = %+v", summary)
	}
	if summary.DraftedNewsletters != 3 || summary.SentNewsletters != 3 {
		t.Errorf("summary = %+v", summary)
	}
	if len(drafter.drafted) != 3 {
		t.Errorf("drafted users = %d", len(drafter.drafted))
	}
}

func TestRunStageFailureIsContained(t *testing.T) {
	users := makeUsers(2)
	svc := NewService(
		&fakeUserRepo{all: users},
		&fakeHobbyParser{},
		&fakeEventSearcher{err: errors.New("search upstream down")},
		&fakeVenueMaintainer{discovered: 1, refreshed: 1},
		&fakeDrafter{},
		&fakeSender{summary: &newsletter.DispatchSummary{Sent: 2}},
		2,
	)

	summary := svc.Run(context.Background())
	if _, ok := summary.StageErrors[StageSearchEvents]; !ok {
		t.Fatalf("search stage error not recorded: %v", summary.StageErrors)
	}
	// Later stages still ran.
	if summary.VenuesDiscovered != 1 || summary.DraftedNewsletters != 2 || summary.SentNewsletters != 2 {
		t.Errorf("later stages did not run: %+v", summary)
	}
}

func TestRunPerUserIsolation(t *testing.T) {
	users := makeUsers(4)
	parser := &fakeHobbyParser{
		tagsFor: map[uuid.UUID][]string{users[1].ID: {"jazz"}},
		errFor:  map[uuid.UUID]error{users[0].ID: errors.New("oracle refused")},
	}
	drafter := &fakeDrafter{failFor: users[2].ID}
	svc := NewService(
		&fakeUserRepo{all: users},
		parser,
		&fakeEventSearcher{summary: &events.SearchSummary{}},
		&fakeVenueMaintainer{},
		drafter,
		&fakeSender{summary: &newsletter.DispatchSummary{}},
		2,
	)

	summary := svc.Run(context.Background())
	if summary.ParsedHobbies != 1 {
		t.Errorf("parsed = %d, want 1 (one failed, two had no tags)", summary.ParsedHobbies)
	}
	if summary.DraftedNewsletters != 3 || summary.DraftFailures != 1 {
		t.Errorf("drafts = %d failures = %d, want 3/1", summary.DraftedNewsletters, summary.DraftFailures)
	}
	// A per-user failure is not a stage failure.
	if len(summary.StageErrors) != 0 {
		t.Errorf("stage errors = %v", summary.StageErrors)
	}
}
