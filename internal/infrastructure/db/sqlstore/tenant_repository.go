package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

const tenantColumns = "id, name, address, created_at, updated_at"

type TenantRepository struct {
	db *DB
}

func NewTenantRepository(db *DB) *TenantRepository {
	return &TenantRepository{db: db}
}

func (r *TenantRepository) Create(ctx context.Context, t *domain.Tenant) (*domain.Tenant, error) {
	created := *t
	created.CreatedAt = storedTime(t.CreatedAt)
	created.UpdatedAt = storedTime(t.UpdatedAt)

	res, err := r.db.ExecContext(ctx,
		"INSERT INTO tenants (name, address, created_at, updated_at) VALUES (?,?,?,?)",
		created.Name, created.Address, created.CreatedAt, created.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert tenant: %w", err)
	}
	if created.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("insert tenant: %w", err)
	}
	return &created, nil
}

func (r *TenantRepository) FindByID(ctx context.Context, id int64) (*domain.Tenant, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+tenantColumns+" FROM tenants WHERE id = ? LIMIT 1", id)
	return scanTenant(row)
}

func (r *TenantRepository) List(ctx context.Context, filter ports.TenantFilter) ([]*domain.Tenant, int64, error) {
	where := ""
	var args []any
	if filter.Query != "" {
		like := likePattern(filter.Query)
		where = " WHERE name LIKE ? ESCAPE '!' OR address LIKE ? ESCAPE '!'"
		args = append(args, like, like)
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tenants"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count tenants: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+tenantColumns+" FROM tenants"+where+" ORDER BY id DESC LIMIT ? OFFSET ?",
		append(args, filter.PerPage, offset(filter.Page, filter.PerPage))...)
	if err != nil {
		return nil, 0, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	tenants := make([]*domain.Tenant, 0, filter.PerPage)
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, 0, err
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list tenants: %w", err)
	}
	return tenants, total, nil
}

func (r *TenantRepository) Update(ctx context.Context, t *domain.Tenant) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE tenants SET name = ?, address = ?, updated_at = ? WHERE id = ?",
		t.Name, t.Address, storedTime(t.UpdatedAt), t.ID)
	if err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}
	return expectOne(res, domain.ErrTenantNotFound)
}

// Delete removes the tenant; users attached to it are detached by the foreign key.
func (r *TenantRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM tenants WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete tenant: %w", err)
	}
	return expectOne(res, domain.ErrTenantNotFound)
}

func scanTenant(s scanner) (*domain.Tenant, error) {
	var t domain.Tenant
	err := s.Scan(&t.ID, &t.Name, &t.Address, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrTenantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan tenant: %w", err)
	}
	return &t, nil
}
