package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// TenantInput carries the mutable fields of a tenant.
type TenantInput struct {
	Name    string
	Address string
}

type TenantService interface {
	Create(ctx context.Context, in TenantInput) (*domain.Tenant, error)
	List(ctx context.Context, filter TenantFilter) (*Page[*domain.Tenant], error)
	Get(ctx context.Context, id int64) (*domain.Tenant, error)
	Update(ctx context.Context, id int64, in TenantInput) error
	Delete(ctx context.Context, id int64) error
}
