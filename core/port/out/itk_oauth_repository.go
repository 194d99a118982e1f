package out

import (
	"context"

	"itk_server/core/domain"

	"github.com/google/uuid"
)

// OAuthTokenRepository supplies decrypted bearer tokens for a user+provider
// pair. Absence or decrypt failure surfaces as ErrNotFound, never as a fatal
// condition for the caller.
type OAuthTokenRepository interface {
	GetByUserAndProvider(ctx context.Context, userID uuid.UUID, provider string) (*domain.OAuthToken, error)
}
