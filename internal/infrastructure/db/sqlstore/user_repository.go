package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

const userColumns = "id, first_name, last_name, email, password_hash, role, tenant_id, created_at, updated_at"

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	created := *user
	created.CreatedAt = storedTime(user.CreatedAt)
	created.UpdatedAt = storedTime(user.UpdatedAt)

	res, err := r.db.ExecContext(ctx,
		"INSERT INTO users (first_name, last_name, email, password_hash, role, tenant_id, created_at, updated_at) VALUES (?,?,?,?,?,?,?,?)",
		created.FirstName, created.LastName, created.Email, created.PasswordHash, created.Role,
		nullableID(created.TenantID), created.CreatedAt, created.UpdatedAt)
	if err != nil {
		if isDuplicate(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}
	created.ID = id
	return &created, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ? LIMIT 1", id)
	return scanUser(row)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ? LIMIT 1", email)
	return scanUser(row)
}

func (r *UserRepository) List(ctx context.Context, filter ports.UserFilter) ([]*domain.User, int64, error) {
	var (
		conds []string
		args  []any
	)
	if filter.Query != "" {
		like := likePattern(filter.Query)
		conds = append(conds, "(first_name LIKE ? ESCAPE '!' OR last_name LIKE ? ESCAPE '!' OR email LIKE ? ESCAPE '!')")
		args = append(args, like, like, like)
	}
	if filter.Role != "" {
		conds = append(conds, "role = ?")
		args = append(args, filter.Role)
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users"+where+" ORDER BY id DESC LIMIT ? OFFSET ?",
		append(args, filter.PerPage, offset(filter.Page, filter.PerPage))...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := make([]*domain.User, 0, filter.PerPage)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET first_name = ?, last_name = ?, email = ?, role = ?, tenant_id = ?, updated_at = ? WHERE id = ?",
		user.FirstName, user.LastName, user.Email, user.Role, nullableID(user.TenantID), storedTime(user.UpdatedAt), user.ID)
	if err != nil {
		if isDuplicate(err) {
			return domain.ErrUserExists
		}
		return fmt.Errorf("update user: %w", err)
	}
	return expectOne(res, domain.ErrUserNotFound)
}

// Delete removes the user; the foreign key cascades to refresh_tokens.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return expectOne(res, domain.ErrUserNotFound)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (*domain.User, error) {
	var (
		u      domain.User
		tenant sql.NullInt64
	)
	err := s.Scan(&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.Role, &tenant, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if tenant.Valid {
		id := tenant.Int64
		u.TenantID = &id
	}
	return &u, nil
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

// expectOne maps an update or delete that matched no rows to notFound.
func expectOne(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
