package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const defaultCleanupInterval = time.Hour

// ExpiredTokenSweeper deletes refresh token records past their expiry.
type ExpiredTokenSweeper interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// TokenCleaner periodically removes expired refresh token records, including records
// created for requests whose client disconnected before receiving the token.
type TokenCleaner struct {
	sweeper  ExpiredTokenSweeper
	interval time.Duration
	log      zerolog.Logger
}

func NewTokenCleaner(sweeper ExpiredTokenSweeper, interval time.Duration, log zerolog.Logger) *TokenCleaner {
	if interval <= 0 {
		interval = defaultCleanupInterval
	}
	return &TokenCleaner{sweeper: sweeper, interval: interval, log: log}
}

// Run sweeps once immediately and then every interval until ctx is cancelled.
func (c *TokenCleaner) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.Sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep(ctx)
		}
	}
}

func (c *TokenCleaner) Sweep(ctx context.Context) int64 {
	n, err := c.sweeper.DeleteExpired(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("expired refresh token cleanup failed")
		return 0
	}
	if n > 0 {
		c.log.Info().Int64("deleted", n).Msg("expired refresh tokens removed")
	}
	return n
}
