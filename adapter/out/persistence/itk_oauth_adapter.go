package persistence

import (
	"context"

	"itk_server/core/domain"
	"itk_server/pkg/crypto"
	"itk_server/pkg/logger"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// OAuthAdapter implements out.OAuthTokenRepository using PostgreSQL. Tokens
// are stored sealed; reads open them transparently. A sealed value that
// fails to open is treated as missing context rather than an error, so a
// rotated key degrades the newsletter instead of breaking the pipeline.
type OAuthAdapter struct {
	store  *Store
	cipher *crypto.TokenCipher
}

// NewOAuthAdapter creates an adapter. cipher may be nil, in which case
// tokens pass through unchanged.
func NewOAuthAdapter(store *Store, cipher *crypto.TokenCipher) *OAuthAdapter {
	if cipher == nil {
		logger.Warn("Token encryption disabled: no key configured")
	}
	return &OAuthAdapter{store: store, cipher: cipher}
}

func (a *OAuthAdapter) openToken(stored string) string {
	if a.cipher == nil || !crypto.IsSealed(stored) {
		return stored
	}
	token, err := a.cipher.Open(stored)
	if err != nil {
		logger.WithError(err).Debug("Stored OAuth token failed to open")
		return ""
	}
	return token
}

func (a *OAuthAdapter) GetByUserAndProvider(ctx context.Context, userID uuid.UUID, provider string) (*domain.OAuthToken, error) {
	var token domain.OAuthToken
	query := `
		SELECT id, user_id, provider, access_token, refresh_token, expires_at
		FROM oauth_tokens
		WHERE user_id = $1 AND provider = $2`
	if err := sqlx.GetContext(ctx, a.store.ext(ctx), &token, query, userID, provider); err != nil {
		return nil, notFound(err)
	}

	token.AccessToken = a.openToken(token.AccessToken)
	if token.RefreshToken != nil {
		opened := a.openToken(*token.RefreshToken)
		token.RefreshToken = &opened
	}
	return &token, nil
}
