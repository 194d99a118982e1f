// Package crypto seals provider OAuth tokens before they reach Postgres.
//
// Sealed tokens are AES-256-GCM ciphertext, base64url-encoded and prefixed
// with a version marker so a read path can tell a sealed value from a legacy
// plaintext row without guessing at base64.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// sealedPrefix marks the current token format. Bump it if the layout of the
// sealed payload ever changes.
const sealedPrefix = "tok1:"

var (
	ErrNoKey      = errors.New("token encryption key not configured")
	ErrBadToken   = errors.New("sealed token is malformed")
	ErrOpenFailed = errors.New("sealed token failed authentication")
)

// TokenCipher seals and opens OAuth access/refresh tokens.
type TokenCipher struct {
	aead cipher.AEAD
}

// NewTokenCipher derives a cipher from arbitrary key material. Anything that
// is not exactly 32 bytes is stretched with SHA-256, so operators can use a
// passphrase-style TOKEN_ENCRYPTION_KEY.
func NewTokenCipher(key []byte) (*TokenCipher, error) {
	if len(key) == 0 {
		return nil, ErrNoKey
	}
	if len(key) != 32 {
		sum := sha256.Sum256(key)
		key = sum[:]
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("token cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("token cipher: %w", err)
	}
	return &TokenCipher{aead: aead}, nil
}

// Seal encrypts a token for storage. Empty tokens stay empty.
func (c *TokenCipher) Seal(token string) (string, error) {
	if token == "" {
		return "", nil
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("seal token: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(token), nil)
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open decrypts a stored value. Values without the sealed prefix are treated
// as legacy plaintext and returned unchanged.
func (c *TokenCipher) Open(stored string) (string, error) {
	if !IsSealed(stored) {
		return stored, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(stored, sealedPrefix))
	if err != nil {
		return "", ErrBadToken
	}
	nonceSize := c.aead.NonceSize()
	if len(raw) < nonceSize {
		return "", ErrBadToken
	}

	token, err := c.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return "", ErrOpenFailed
	}
	return string(token), nil
}

// IsSealed reports whether a stored value carries the sealed-token marker.
func IsSealed(stored string) bool {
	return strings.HasPrefix(stored, sealedPrefix)
}
