package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/99minutos/auth-service/internal/core/domain"
)

type RefreshTokenRepository struct {
	col *mongo.Collection
	ids *sequence
	now func() time.Time
}

func NewRefreshTokenRepository(db *mongo.Database) *RefreshTokenRepository {
	return &RefreshTokenRepository{
		col: db.Collection(collectionRefreshTokens),
		ids: newSequence(db, collectionRefreshTokens),
		now: time.Now,
	}
}

type refreshTokenDoc struct {
	ID        int64     `bson:"_id"`
	UserID    int64     `bson:"user_id"`
	ExpiresAt time.Time `bson:"expires_at"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (d *refreshTokenDoc) toDomain() *domain.RefreshToken {
	return &domain.RefreshToken{
		ID:        d.ID,
		UserID:    d.UserID,
		ExpiresAt: d.ExpiresAt.UTC(),
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

func (r *RefreshTokenRepository) Create(ctx context.Context, userID int64, expiresAt time.Time) (*domain.RefreshToken, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := r.ids.next(ctx)
	if err != nil {
		return nil, err
	}
	now := storedTime(r.now())
	doc := refreshTokenDoc{
		ID:        id,
		UserID:    userID,
		ExpiresAt: storedTime(expiresAt),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert refresh token: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *RefreshTokenRepository) FindByID(ctx context.Context, id int64) (*domain.RefreshToken, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc refreshTokenDoc
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrRefreshTokenNotFound
		}
		return nil, fmt.Errorf("find refresh token: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *RefreshTokenRepository) DeleteByID(ctx context.Context, id int64) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("delete refresh token: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": storedTime(before)}})
	if err != nil {
		return 0, fmt.Errorf("delete expired refresh tokens: %w", err)
	}
	return res.DeletedCount, nil
}
