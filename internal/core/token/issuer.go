package token

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

// IssuerOptions configures an Issuer. Zero values fall back to the package defaults.
type IssuerOptions struct {
	Issuer string
	Now    func() time.Time
	Logger zerolog.Logger
}

// Issuer implements ports.TokenIssuer.
type Issuer struct {
	keys   ports.KeyProvider
	store  ports.RefreshTokenStore
	issuer string
	now    func() time.Time
	log    zerolog.Logger
}

func NewIssuer(keys ports.KeyProvider, store ports.RefreshTokenStore, opts IssuerOptions) *Issuer {
	if opts.Issuer == "" {
		opts.Issuer = DefaultIssuer
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Issuer{
		keys:   keys,
		store:  store,
		issuer: opts.Issuer,
		now:    opts.Now,
		log:    opts.Logger,
	}
}

// IssueTokens signs an access token, persists a refresh token record and signs a refresh
// token whose jti is that record's id. The signing key is resolved before anything is
// persisted; a refresh signing failure removes the record again.
func (i *Issuer) IssueTokens(ctx context.Context, user *domain.User) (domain.TokenPair, error) {
	pair, _, err := i.issue(ctx, user)
	return pair, err
}

func (i *Issuer) issue(ctx context.Context, user *domain.User) (domain.TokenPair, int64, error) {
	key, kid, err := i.keys.SigningKey()
	if err != nil {
		return domain.TokenPair{}, 0, err
	}

	now := i.now()
	access := jwt.NewWithClaims(jwt.SigningMethodRS256, &Claims{
		Role:   user.Role,
		Tenant: user.Tenant(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Subject(),
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(AccessTokenTTL)),
		},
	})
	access.Header["kid"] = kid
	accessToken, err := access.SignedString(key)
	if err != nil {
		return domain.TokenPair{}, 0, fmt.Errorf("%w: sign access token: %v", domain.ErrConfiguration, err)
	}

	record, err := i.store.Save(ctx, user.ID)
	if err != nil {
		return domain.TokenPair{}, 0, fmt.Errorf("persist refresh token: %w", err)
	}

	refresh := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Role:   user.Role,
		Tenant: user.Tenant(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        strconv.FormatInt(record.ID, 10),
			Subject:   user.Subject(),
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(record.ExpiresAt),
		},
	})
	refreshToken, err := refresh.SignedString(i.keys.RefreshSecret())
	if err != nil {
		i.discard(ctx, record.ID, "failed to remove unsigned refresh token record")
		return domain.TokenPair{}, 0, fmt.Errorf("%w: sign refresh token: %v", domain.ErrConfiguration, err)
	}

	return domain.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, record.ID, nil
}

// Rotate issues a new pair for user and then deletes the record oldID. The old record
// survives any failure to issue. When the old record cannot be deleted the new record is
// removed again and the old token stays the valid one. Two concurrent rotations of the
// same oldID both succeed; the second delete is a no-op.
func (i *Issuer) Rotate(ctx context.Context, user *domain.User, oldID int64) (domain.TokenPair, error) {
	pair, newID, err := i.issue(ctx, user)
	if err != nil {
		return domain.TokenPair{}, err
	}

	deleted, err := i.store.DeleteByID(ctx, oldID)
	if err != nil {
		i.discard(ctx, newID, "failed to remove refresh token record of aborted rotation")
		return domain.TokenPair{}, fmt.Errorf("delete rotated refresh token %d: %w", oldID, err)
	}
	if !deleted {
		i.log.Debug().Int64("refresh_token_id", oldID).Int64("user_id", user.ID).Msg("rotated refresh token already removed")
	}
	return pair, nil
}

func (i *Issuer) discard(ctx context.Context, id int64, msg string) {
	if _, err := i.store.DeleteByID(context.WithoutCancel(ctx), id); err != nil {
		i.log.Error().Err(err).Int64("refresh_token_id", id).Msg(msg)
	}
}
