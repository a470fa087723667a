package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

type TenantService struct {
	repo ports.TenantRepository
	log  zerolog.Logger
}

func NewTenantService(repo ports.TenantRepository, log zerolog.Logger) *TenantService {
	return &TenantService{repo: repo, log: log}
}

func (s *TenantService) Create(ctx context.Context, in ports.TenantInput) (*domain.Tenant, error) {
	now := time.Now().UTC()
	t, err := s.repo.Create(ctx, &domain.Tenant{
		Name:      strings.TrimSpace(in.Name),
		Address:   strings.TrimSpace(in.Address),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, fmt.Errorf("create tenant: %w", err)
	}
	s.log.Info().Int64("tenant_id", t.ID).Msg("tenant created")
	return t, nil
}

func (s *TenantService) List(ctx context.Context, filter ports.TenantFilter) (*ports.Page[*domain.Tenant], error) {
	filter.Query = strings.TrimSpace(filter.Query)
	filter.Page, filter.PerPage = normalizePage(filter.Page, filter.PerPage)

	tenants, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	if tenants == nil {
		tenants = []*domain.Tenant{}
	}
	return &ports.Page[*domain.Tenant]{
		CurrentPage: filter.Page,
		PerPage:     filter.PerPage,
		Total:       total,
		Data:        tenants,
	}, nil
}

func (s *TenantService) Get(ctx context.Context, id int64) (*domain.Tenant, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *TenantService) Update(ctx context.Context, id int64, in ports.TenantInput) error {
	t, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	t.Name = strings.TrimSpace(in.Name)
	t.Address = strings.TrimSpace(in.Address)
	t.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, t); err != nil {
		return err
	}
	s.log.Info().Int64("tenant_id", id).Msg("tenant updated")
	return nil
}

func (s *TenantService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Int64("tenant_id", id).Msg("tenant deleted")
	return nil
}
