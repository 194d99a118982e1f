// Package out defines outbound ports: repositories and external collaborators.
package out

import (
	"context"
	"errors"

	"itk_server/core/domain"

	"github.com/google/uuid"
)

// ErrNotFound is returned by point lookups when the referenced entity does
// not exist. Callers treat it as "no mutation performed".
var ErrNotFound = errors.New("entity not found")

// UserRepository provides user lookups and subscription mutation.
type UserRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ListAll(ctx context.Context) ([]*domain.User, error)
	ListSubscribed(ctx context.Context) ([]*domain.User, error)
	SetSubscribed(ctx context.Context, id uuid.UUID, subscribed bool) error
}
