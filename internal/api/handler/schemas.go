package handler

import (
	"strings"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// --- Request / Response types ---

type registerRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName"  validate:"required"`
	Email     string `json:"email"     validate:"required,email"`
	Password  string `json:"password"  validate:"required,min=6"`
}

func (r *registerRequest) normalize() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = domain.NormalizeEmail(r.Email)
}

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

func (r *loginRequest) normalize() {
	r.Email = domain.NormalizeEmail(r.Email)
}

type createManagerRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName"  validate:"required"`
	Email     string `json:"email"     validate:"required,email"`
	Password  string `json:"password"  validate:"required,min=6"`
	TenantID  *int64 `json:"tenantId"  validate:"omitempty,gt=0"`
}

func (r *createManagerRequest) normalize() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = domain.NormalizeEmail(r.Email)
}

type updateUserRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName"  validate:"required"`
	Email     string `json:"email"     validate:"required,email"`
	Role      string `json:"role"      validate:"required,oneof=customer manager admin"`
	TenantID  *int64 `json:"tenantId"  validate:"omitempty,gt=0"`
}

func (r *updateUserRequest) normalize() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = domain.NormalizeEmail(r.Email)
	r.Role = strings.TrimSpace(r.Role)
}

type tenantRequest struct {
	Name    string `json:"name"    validate:"required,max=100"`
	Address string `json:"address" validate:"required,max=255"`
}

func (r *tenantRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Address = strings.TrimSpace(r.Address)
}

// idResponse is returned by the register, login, refresh and create endpoints.
type idResponse struct {
	ID int64 `json:"id"`
}

// userPage and tenantPage exist for the swagger annotations.
type userPage struct {
	CurrentPage int            `json:"currentPage"`
	PerPage     int            `json:"perPage"`
	Total       int64          `json:"total"`
	Data        []*domain.User `json:"data"`
}

type tenantPage struct {
	CurrentPage int              `json:"currentPage"`
	PerPage     int              `json:"perPage"`
	Total       int64            `json:"total"`
	Data        []*domain.Tenant `json:"data"`
}

// errorItem mirrors one entry of the error envelope for swagger.
type errorItem struct {
	Ref      string  `json:"ref,omitempty"`
	Type     string  `json:"type"`
	Msg      string  `json:"msg"`
	Path     string  `json:"path"`
	Method   string  `json:"method,omitempty"`
	Location string  `json:"location"`
	Stack    *string `json:"stack,omitempty"`
}

type errorResponse struct {
	Errors []errorItem `json:"errors"`
}
