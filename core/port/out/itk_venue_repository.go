package out

import (
	"context"
	"time"

	"itk_server/core/domain"

	"github.com/google/uuid"
)

// VenueRepository stores the per-city venue directory. (city, venue_name) is
// the unique merge key for reconciliation.
type VenueRepository interface {
	// ListByCity returns venues of the given type in stable name-sorted order.
	ListByCity(ctx context.Context, city, venueType string) ([]*domain.CityVenue, error)
	Insert(ctx context.Context, venue *domain.CityVenue) error
	// UpdateDirectoryEntry refreshes address/website and the venue-existence
	// timestamp for a rediscovered venue.
	UpdateDirectoryEntry(ctx context.Context, id uuid.UUID, address, website *string, searchedAt time.Time) error
	// UpdateEventCache stores the venue's event list and stamps the per-venue
	// event timestamp.
	UpdateEventCache(ctx context.Context, id uuid.UUID, events []domain.Event, searchedAt time.Time) error
}
