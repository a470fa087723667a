package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

const (
	defaultPerPage = 6
	maxPerPage     = 100
)

// UserService implements the admin user operations.
type UserService struct {
	users   ports.UserRepository
	tenants ports.TenantRepository
	creds   ports.CredentialVerifier
	log     zerolog.Logger
}

func NewUserService(users ports.UserRepository, tenants ports.TenantRepository, creds ports.CredentialVerifier, log zerolog.Logger) *UserService {
	return &UserService{users: users, tenants: tenants, creds: creds, log: log}
}

// CreateManager creates a user with the manager role, optionally attached to a tenant.
func (s *UserService) CreateManager(ctx context.Context, in ports.CreateManagerInput) (*domain.User, error) {
	if err := s.checkTenant(ctx, in.TenantID); err != nil {
		return nil, err
	}
	user, err := s.create(ctx, in.FirstName, in.LastName, in.Email, in.Password, domain.RoleManager, in.TenantID)
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("user_id", user.ID).Msg("manager created")
	return user, nil
}

// EnsureAdmin creates an admin account unless one with email already exists.
func (s *UserService) EnsureAdmin(ctx context.Context, email, password string) (created bool, err error) {
	_, err = s.users.FindByEmail(ctx, domain.NormalizeEmail(email))
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return false, fmt.Errorf("ensure admin: %w", err)
	}
	if _, err := s.create(ctx, "Admin", "Admin", email, password, domain.RoleAdmin, nil); err != nil {
		return false, fmt.Errorf("ensure admin: %w", err)
	}
	return true, nil
}

func (s *UserService) List(ctx context.Context, filter ports.UserFilter) (*ports.Page[*domain.User], error) {
	filter.Query = strings.TrimSpace(filter.Query)
	filter.Role = strings.TrimSpace(filter.Role)
	filter.Page, filter.PerPage = normalizePage(filter.Page, filter.PerPage)

	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if users == nil {
		users = []*domain.User{}
	}
	return &ports.Page[*domain.User]{
		CurrentPage: filter.Page,
		PerPage:     filter.PerPage,
		Total:       total,
		Data:        users,
	}, nil
}

func (s *UserService) Get(ctx context.Context, id int64) (*domain.User, error) {
	return s.users.FindByID(ctx, id)
}

func (s *UserService) Update(ctx context.Context, id int64, in ports.UpdateUserInput) error {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if !domain.ValidRole(in.Role) {
		return domain.NewValidationError("body", "role", "Invalid role")
	}
	if err := s.checkTenant(ctx, in.TenantID); err != nil {
		return err
	}

	user.FirstName = strings.TrimSpace(in.FirstName)
	user.LastName = strings.TrimSpace(in.LastName)
	user.Email = domain.NormalizeEmail(in.Email)
	user.Role = in.Role
	user.TenantID = in.TenantID
	user.UpdatedAt = time.Now().UTC()

	if err := s.users.Update(ctx, user); err != nil {
		return err
	}
	s.log.Info().Int64("user_id", id).Msg("user updated")
	return nil
}

// Delete removes the user; the repository cascades to the user's refresh tokens, which
// revokes every session the user holds.
func (s *UserService) Delete(ctx context.Context, id int64) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Int64("user_id", id).Msg("user deleted")
	return nil
}

func (s *UserService) create(ctx context.Context, first, last, email, password, role string, tenantID *int64) (*domain.User, error) {
	email = domain.NormalizeEmail(email)

	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, domain.ErrUserExists
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, err
	}

	hash, err := s.creds.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	return s.users.Create(ctx, &domain.User{
		FirstName:    strings.TrimSpace(first),
		LastName:     strings.TrimSpace(last),
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		TenantID:     tenantID,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
}

func (s *UserService) checkTenant(ctx context.Context, tenantID *int64) error {
	if tenantID == nil {
		return nil
	}
	_, err := s.tenants.FindByID(ctx, *tenantID)
	if errors.Is(err, domain.ErrTenantNotFound) {
		return domain.NewValidationError("body", "tenantId", "Tenant does not exist")
	}
	return err
}

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}
