package ports

import (
	"context"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// RegisterInput carries an already-normalized registration request.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// LoginResult is the outcome of a credential check. Authenticated is false on an unknown
// email or a wrong password; User and Tokens are set only on success.
type LoginResult struct {
	Authenticated bool
	User          *domain.User
	Tokens        domain.TokenPair
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, domain.TokenPair, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Whoami(ctx context.Context, p domain.Principal) (*domain.User, error)
	Refresh(ctx context.Context, p domain.Principal) (*domain.User, domain.TokenPair, error)
	// Logout revokes the refresh token described by refresh. It reports false when the
	// token was already revoked or belongs to a different subject than access.
	Logout(ctx context.Context, access, refresh domain.Principal) (bool, error)
}
