package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// UserFilter carries the query parameters for listing users.
type UserFilter struct {
	Query   string // optional: partial match on first name, last name or email
	Role    string // optional: exact role
	Page    int    // 1-based
	PerPage int
}

// UserRepository defines persistence operations for user records.
type UserRepository interface {
	// Create inserts a user and returns it with its assigned id.
	// Returns domain.ErrUserExists when the email is already taken.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) ([]*domain.User, int64, error)
	Update(ctx context.Context, user *domain.User) error
	// Delete removes the user; the user's refresh token records go with it.
	Delete(ctx context.Context, id int64) error
}
