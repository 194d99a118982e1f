package in

import (
	"context"

	"itk_server/core/service/events"
	"itk_server/core/service/pipeline"

	"github.com/google/uuid"
)

// PipelineUseCase exposes the weekly pipeline and its individual stages to
// the trigger endpoints. Each stage method mirrors one scheduler entry so a
// failed stage can be re-run alone.
type PipelineUseCase interface {
	// Run executes every stage in order and reports per-stage outcomes.
	Run(ctx context.Context) *pipeline.RunSummary
}

// HobbyParseUseCase extracts and stores interest tags for one user.
type HobbyParseUseCase interface {
	ParseAndStore(ctx context.Context, userID uuid.UUID) ([]string, error)
}

// EventSearchUseCase refreshes cached events for stale interest-city pairs.
type EventSearchUseCase interface {
	SearchCityLimited(ctx context.Context, city string, limit int) (*events.SearchSummary, error)
}

// VenueUseCase maintains the venue directory and its event caches.
type VenueUseCase interface {
	DiscoverCity(ctx context.Context, city string, forceRefresh bool) (int, error)
	DiscoverPilotCities(ctx context.Context, forceRefresh bool) (int, error)
	RefreshEvents(ctx context.Context, city string, forceRefresh bool) (int, error)
}

// DraftUseCase composes newsletters.
type DraftUseCase interface {
	DraftUser(ctx context.Context, userID uuid.UUID) (int, error)
	DraftAll(ctx context.Context) (int, error)
}
