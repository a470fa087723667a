package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/99minutos/auth-service/internal/core/domain"
)

type RefreshTokenRepository struct {
	db  *DB
	now func() time.Time
}

func NewRefreshTokenRepository(db *DB) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db, now: time.Now}
}

func (r *RefreshTokenRepository) Create(ctx context.Context, userID int64, expiresAt time.Time) (*domain.RefreshToken, error) {
	now := storedTime(r.now())
	rec := domain.RefreshToken{
		UserID:    userID,
		ExpiresAt: storedTime(expiresAt),
		CreatedAt: now,
		UpdatedAt: now,
	}
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, expires_at, created_at, updated_at) VALUES (?,?,?,?)",
		rec.UserID, rec.ExpiresAt, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert refresh token: %w", err)
	}
	if rec.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("insert refresh token: %w", err)
	}
	return &rec, nil
}

func (r *RefreshTokenRepository) FindByID(ctx context.Context, id int64) (*domain.RefreshToken, error) {
	var rec domain.RefreshToken
	err := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, expires_at, created_at, updated_at FROM refresh_tokens WHERE id = ? LIMIT 1", id).
		Scan(&rec.ID, &rec.UserID, &rec.ExpiresAt, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRefreshTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return &rec, nil
}

func (r *RefreshTokenRepository) DeleteByID(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete refresh token: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, "DELETE FROM refresh_tokens WHERE expires_at <= ?", storedTime(before))
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	return res.RowsAffected()
}
