package domain

import (
	"strconv"
	"strings"
	"time"
)

const (
	RoleCustomer = "customer"
	RoleManager  = "manager"
	RoleAdmin    = "admin"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r string) bool {
	switch r {
	case RoleCustomer, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// User models an account that can authenticate against the service.
type User struct {
	ID           int64     `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	TenantID     *int64    `json:"tenantId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Subject is the user id in the string form carried by the sub claim.
func (u *User) Subject() string {
	return strconv.FormatInt(u.ID, 10)
}

// Tenant returns the tenant id as a claim value, or "" when the user has none.
func (u *User) Tenant() string {
	if u.TenantID == nil {
		return ""
	}
	return strconv.FormatInt(*u.TenantID, 10)
}

// NormalizeEmail trims and lowercases an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
