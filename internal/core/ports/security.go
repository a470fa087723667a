package ports

import (
	"context"
	"crypto/rsa"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// KeyProvider supplies the material used to sign tokens.
type KeyProvider interface {
	// SigningKey returns the RSA private key and its key id.
	// Fails with domain.ErrConfiguration when the key is unset or malformed.
	SigningKey() (*rsa.PrivateKey, string, error)
	RefreshSecret() []byte
}

// CredentialVerifier hashes and compares passwords.
type CredentialVerifier interface {
	Hash(plaintext string) (string, error)
	// Compare reports whether plaintext matches digest. A mismatch is not an error.
	Compare(plaintext, digest string) bool
}

// TokenIssuer mints access/refresh token pairs.
type TokenIssuer interface {
	IssueTokens(ctx context.Context, user *domain.User) (domain.TokenPair, error)
	// Rotate issues a fresh pair and only then removes the record oldID.
	Rotate(ctx context.Context, user *domain.User, oldID int64) (domain.TokenPair, error)
}

// EventPublisher hands auth events to the messaging layer. Publishing never blocks the
// request path and never fails it.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.AuthEvent)
}
