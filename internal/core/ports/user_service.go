package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// CreateManagerInput carries the fields an admin supplies for a new manager.
type CreateManagerInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
	TenantID  *int64
}

// UpdateUserInput carries the mutable fields of a user.
type UpdateUserInput struct {
	FirstName string
	LastName  string
	Email     string
	Role      string
	TenantID  *int64
}

// Page is a single page of a listing.
type Page[T any] struct {
	CurrentPage int   `json:"currentPage"`
	PerPage     int   `json:"perPage"`
	Total       int64 `json:"total"`
	Data        []T   `json:"data"`
}

type UserService interface {
	CreateManager(ctx context.Context, in CreateManagerInput) (*domain.User, error)
	List(ctx context.Context, filter UserFilter) (*Page[*domain.User], error)
	Get(ctx context.Context, id int64) (*domain.User, error)
	Update(ctx context.Context, id int64, in UpdateUserInput) error
	Delete(ctx context.Context, id int64) error
}
