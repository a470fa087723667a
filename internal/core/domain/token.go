package domain

import (
	"fmt"
	"strconv"
	"time"
)

// RefreshToken is the persisted record backing one issued refresh token.
// Its ID is embedded as the jti claim; deleting the record revokes the token.
type RefreshToken struct {
	ID        int64
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Expired reports whether the record is past its expiry at now.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Principal is the authenticated identity attached to a request.
type Principal struct {
	Subject   string
	Role      string
	RefreshID string
	TenantID  string
}

// UserID parses Subject as a numeric user id.
func (p Principal) UserID() (int64, error) {
	id, err := strconv.ParseInt(p.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: subject %q", ErrUnauthenticated, p.Subject)
	}
	return id, nil
}

// RefreshTokenID parses RefreshID as a numeric record id.
func (p Principal) RefreshTokenID() (int64, error) {
	id, err := strconv.ParseInt(p.RefreshID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: jti %q", ErrUnauthenticated, p.RefreshID)
	}
	return id, nil
}

// TokenPair is the credential set handed to a client after login, registration or refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}
