// Package token mints and verifies the service's access and refresh tokens and owns the
// revocation-aware view of refresh token records.
package token

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// DefaultIssuer is the iss claim of every token this service signs.
const DefaultIssuer = "auth-service"

const (
	AccessTokenTTL  = time.Hour
	RefreshTokenTTL = 365 * 24 * time.Hour
)

var (
	errMissingSubject = errors.New("token has no subject")
	errMissingRole    = errors.New("token has no role")
	errMissingJTI     = errors.New("refresh token has no jti")
)

// Claims is the payload shared by access and refresh tokens. Refresh tokens additionally
// carry the backing record id in the registered jti claim.
type Claims struct {
	Role   string `json:"role"`
	Tenant string `json:"tenant,omitempty"`
	jwt.RegisteredClaims
}

// Validate is called by the jwt parser after the registered claims are checked.
func (c *Claims) Validate() error {
	if c.Subject == "" {
		return errMissingSubject
	}
	if c.Role == "" {
		return errMissingRole
	}
	return nil
}

// Principal converts verified claims into the request-scoped identity.
func (c *Claims) Principal() domain.Principal {
	return domain.Principal{
		Subject:   c.Subject,
		Role:      c.Role,
		RefreshID: c.ID,
		TenantID:  c.Tenant,
	}
}
