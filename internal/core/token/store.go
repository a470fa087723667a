package token

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

// RefreshStore implements ports.RefreshTokenStore over a repository.
type RefreshStore struct {
	repo ports.RefreshTokenRepository
	now  func() time.Time
	log  zerolog.Logger
}

func NewRefreshStore(repo ports.RefreshTokenRepository, log zerolog.Logger) *RefreshStore {
	return &RefreshStore{repo: repo, now: time.Now, log: log}
}

// Save creates a record for userID expiring exactly RefreshTokenTTL from now.
func (s *RefreshStore) Save(ctx context.Context, userID int64) (*domain.RefreshToken, error) {
	return s.repo.Create(ctx, userID, s.now().Add(RefreshTokenTTL).UTC())
}

// FindByID returns nil without error when the record does not exist.
func (s *RefreshStore) FindByID(ctx context.Context, id int64) (*domain.RefreshToken, error) {
	rec, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, domain.ErrRefreshTokenNotFound) {
		return nil, nil
	}
	return rec, err
}

func (s *RefreshStore) DeleteByID(ctx context.Context, id int64) (bool, error) {
	return s.repo.DeleteByID(ctx, id)
}

// IsRevoked fails closed: a malformed payload, a lookup error, a missing record, a record
// owned by another user or an expired record all count as revoked.
func (s *RefreshStore) IsRevoked(ctx context.Context, p domain.Principal) bool {
	id, err := p.RefreshTokenID()
	if err != nil {
		return true
	}
	userID, err := p.UserID()
	if err != nil {
		return true
	}

	rec, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, domain.ErrRefreshTokenNotFound) {
			s.log.Error().Err(err).Int64("refresh_token_id", id).Msg("refresh token lookup failed")
		}
		return true
	}
	if rec.UserID != userID {
		return true
	}
	return rec.Expired(s.now())
}

// DeleteExpired removes every record whose expiry has passed.
func (s *RefreshStore) DeleteExpired(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpired(ctx, s.now().UTC())
}
