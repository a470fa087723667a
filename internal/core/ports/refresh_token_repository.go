package ports

import (
	"context"
	"time"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// RefreshTokenRepository persists the records backing issued refresh tokens.
type RefreshTokenRepository interface {
	Create(ctx context.Context, userID int64, expiresAt time.Time) (*domain.RefreshToken, error)
	// FindByID returns domain.ErrRefreshTokenNotFound when no record exists.
	FindByID(ctx context.Context, id int64) (*domain.RefreshToken, error)
	// DeleteByID is idempotent; deleted is false when there was nothing to delete.
	DeleteByID(ctx context.Context, id int64) (deleted bool, err error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// RefreshTokenStore is the revocation-aware view of refresh token records used by the
// token issuer and the refresh middleware.
type RefreshTokenStore interface {
	Save(ctx context.Context, userID int64) (*domain.RefreshToken, error)
	// FindByID returns a nil record and nil error when the record does not exist.
	FindByID(ctx context.Context, id int64) (*domain.RefreshToken, error)
	DeleteByID(ctx context.Context, id int64) (bool, error)
	// IsRevoked reports true unless a record with id == jti owned by sub exists.
	IsRevoked(ctx context.Context, p domain.Principal) bool
}
