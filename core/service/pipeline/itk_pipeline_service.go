// Package pipeline runs the weekly content pipeline: tag extraction, event
// search, venue refresh, drafting, dispatch. Stages are containment
// boundaries; one stage failing is recorded and the rest still run.
package pipeline

import (
	"context"
	"fmt"
	"sync/atomic"

	"itk_server/core/domain"
	"itk_server/core/port/out"
	"itk_server/core/service/events"
	"itk_server/core/service/newsletter"
	"itk_server/pkg/logger"

	"github.com/go-pkgz/pool"
	"github.com/google/uuid"
)

// Stage names used as containment keys in run summaries.
const (
	StageParseHobbies      = "parse_hobbies"
	StageSearchEvents      = "search_events"
	StageDiscoverVenues    = "discover_venues"
	StageSearchVenueEvents = "search_venue_events"
	StageDraftNewsletters  = "draft_newsletters"
	StageSendNewsletters   = "send_newsletters"
)

// HobbyParser extracts and stores tags for one user.
type HobbyParser interface {
	ParseAndStore(ctx context.Context, userID uuid.UUID) ([]string, error)
}

// EventSearcher refreshes the pair event caches.
type EventSearcher interface {
	SearchAll(ctx context.Context) (*events.SearchSummary, error)
}

// VenueMaintainer refreshes the venue directory and per-venue event caches.
type VenueMaintainer interface {
	DiscoverPilotCities(ctx context.Context, forceRefresh bool) (int, error)
	RefreshEvents(ctx context.Context, city string, forceRefresh bool) (int, error)
}

// Drafter composes one newsletter for one user.
type Drafter interface {
	DraftForUser(ctx context.Context, user *domain.User) (*domain.Newsletter, error)
}

// Sender delivers unsent newsletters.
type Sender interface {
	SendUnsent(ctx context.Context, userID *uuid.UUID) (*newsletter.DispatchSummary, error)
}

// RunSummary reports one weekly run. StageErrors maps a stage name to the
// error that aborted it; absent keys completed.
type RunSummary struct {
	UsersSeen            int               `json:"users_seen"`
	ParsedHobbies        int               `json:"parsed_hobbies"`
	SearchedPairs        int               `json:"searched_pairs"`
	VenuesDiscovered     int               `json:"venues_discovered"`
	VenueEventsRefreshed int               `json:"venue_events_refreshed"`
	DraftedNewsletters   int               `json:"drafted_newsletters"`
	DraftFailures        int               `json:"draft_failures"`
	SentNewsletters      int               `json:"sent_newsletters"`
	StageErrors          map[string]string `json:"stage_errors,omitempty"`
}

type Service struct {
	users        out.UserRepository
	hobbyParser  HobbyParser
	eventSearch  EventSearcher
	venueService VenueMaintainer
	drafter      Drafter
	sender       Sender
	draftWorkers int
}

func NewService(
	users out.UserRepository,
	hobbyParser HobbyParser,
	eventSearch EventSearcher,
	venueService VenueMaintainer,
	drafter Drafter,
	sender Sender,
	draftWorkers int,
) *Service {
	if draftWorkers < 1 {
		draftWorkers = 1
	}
	return &Service{
		users:        users,
		hobbyParser:  hobbyParser,
		eventSearch:  eventSearch,
		venueService: venueService,
		drafter:      drafter,
		sender:       sender,
		draftWorkers: draftWorkers,
	}
}

func (s *Service) stageFailed(summary *RunSummary, stage string, err error) {
	logger.WithError(err).WithStage(stage).Error("Pipeline stage failed, continuing with next stage")
	summary.StageErrors[stage] = err.Error()
}

// parseHobbiesStage re-extracts tags for every user, isolating per-user
// failures. A user yielding at least one tag counts as parsed.
func (s *Service) parseHobbiesStage(ctx context.Context, summary *RunSummary) {
	users, err := s.users.ListAll(ctx)
	if err != nil {
		s.stageFailed(summary, StageParseHobbies, err)
		return
	}
	summary.UsersSeen = len(users)

	for _, user := range users {
		tags, err := s.hobbyParser.ParseAndStore(ctx, user.ID)
		if err != nil {
			logger.WithError(err).WithStage(StageParseHobbies).WithField("user_id", user.ID.String()).
				Warn("Hobby parsing failed for user, continuing")
			continue
		}
		if len(tags) > 0 {
			summary.ParsedHobbies++
		}
	}
}

// draftWorker adapts the composer to the pool worker interface.
type draftWorker struct {
	drafter  Drafter
	drafted  atomic.Int64
	failures atomic.Int64
}

func (w *draftWorker) Do(ctx context.Context, user *domain.User) error {
	if _, err := w.drafter.DraftForUser(ctx, user); err != nil {
		w.failures.Add(1)
		logger.WithError(err).WithStage(StageDraftNewsletters).WithField("user_id", user.ID.String()).
			Error("Draft failed for user, continuing")
		return err
	}
	w.drafted.Add(1)
	return nil
}

// draftStage fans subscribed users out over a bounded worker pool and
// collects per-user outcomes. Individual draft failures never abort the
// stage.
func (s *Service) draftStage(ctx context.Context, summary *RunSummary) {
	users, err := s.users.ListSubscribed(ctx)
	if err != nil {
		s.stageFailed(summary, StageDraftNewsletters, err)
		return
	}
	if len(users) == 0 {
		return
	}

	worker := &draftWorker{drafter: s.drafter}
	group := pool.New[*domain.User](s.draftWorkers, worker).WithContinueOnError()
	if err := group.Go(ctx); err != nil {
		s.stageFailed(summary, StageDraftNewsletters, err)
		return
	}
	for _, user := range users {
		group.Submit(user)
	}
	if err := group.Close(ctx); err != nil && worker.drafted.Load() == 0 {
		s.stageFailed(summary, StageDraftNewsletters, err)
	}

	summary.DraftedNewsletters = int(worker.drafted.Load())
	summary.DraftFailures = int(worker.failures.Load())
}

// Run executes the full weekly pipeline in stage order.
func (s *Service) Run(ctx context.Context) *RunSummary {
	summary := &RunSummary{StageErrors: make(map[string]string)}

	s.parseHobbiesStage(ctx, summary)

	if searchSummary, err := s.eventSearch.SearchAll(ctx); err != nil {
		s.stageFailed(summary, StageSearchEvents, err)
	} else {
		summary.SearchedPairs = searchSummary.PairsProcessed
	}

	if discovered, err := s.venueService.DiscoverPilotCities(ctx, false); err != nil {
		s.stageFailed(summary, StageDiscoverVenues, err)
	} else {
		summary.VenuesDiscovered = discovered
	}

	if refreshed, err := s.venueService.RefreshEvents(ctx, "", false); err != nil {
		s.stageFailed(summary, StageSearchVenueEvents, err)
	} else {
		summary.VenueEventsRefreshed = refreshed
	}

	s.draftStage(ctx, summary)

	if dispatch, err := s.sender.SendUnsent(ctx, nil); err != nil {
		s.stageFailed(summary, StageSendNewsletters, err)
	} else {
		summary.SentNewsletters = dispatch.Sent
	}

	logger.WithFields(map[string]interface{}{
		"users_seen": summary.UsersSeen,
		"drafted":    summary.DraftedNewsletters,
		"sent":       summary.SentNewsletters,
		"stages_err": len(summary.StageErrors),
	}).Info("Weekly pipeline run complete")
	return summary
}

// String renders a compact one-line digest for logs.
func (r *RunSummary) String() string {
	return fmt.Sprintf("users=%d parsed=%d pairs=%d venues=%d venue_events=%d drafted=%d sent=%d errors=%d",
		r.UsersSeen, r.ParsedHobbies, r.SearchedPairs, r.VenuesDiscovered,
		r.VenueEventsRefreshed, r.DraftedNewsletters, r.SentNewsletters, len(r.StageErrors))
}
