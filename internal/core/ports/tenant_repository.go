package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// TenantFilter carries the query parameters for listing tenants.
type TenantFilter struct {
	Query   string // optional: partial match on name or address
	Page    int
	PerPage int
}

// TenantRepository defines persistence operations for tenants.
type TenantRepository interface {
	Create(ctx context.Context, t *domain.Tenant) (*domain.Tenant, error)
	FindByID(ctx context.Context, id int64) (*domain.Tenant, error)
	List(ctx context.Context, filter TenantFilter) ([]*domain.Tenant, int64, error)
	Update(ctx context.Context, t *domain.Tenant) error
	Delete(ctx context.Context, id int64) error
}
