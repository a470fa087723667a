package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

// AuthService implements registration, login, whoami, refresh and logout.
type AuthService struct {
	users  ports.UserRepository
	store  ports.RefreshTokenStore
	issuer ports.TokenIssuer
	creds  ports.CredentialVerifier
	events ports.EventPublisher
	log    zerolog.Logger

	dummyOnce   sync.Once
	dummyDigest string
}

func NewAuthService(
	users ports.UserRepository,
	store ports.RefreshTokenStore,
	issuer ports.TokenIssuer,
	creds ports.CredentialVerifier,
	events ports.EventPublisher,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:  users,
		store:  store,
		issuer: issuer,
		creds:  creds,
		events: events,
		log:    log,
	}
}

// Register creates a customer account and issues its first token pair.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, domain.TokenPair, error) {
	email := domain.NormalizeEmail(in.Email)

	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, domain.TokenPair{}, domain.ErrUserExists
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, domain.TokenPair{}, fmt.Errorf("register: %w", err)
	}

	hash, err := s.creds.Hash(in.Password)
	if err != nil {
		return nil, domain.TokenPair{}, fmt.Errorf("register: hash password: %w", err)
	}

	now := time.Now().UTC()
	user, err := s.users.Create(ctx, &domain.User{
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleCustomer,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, domain.TokenPair{}, err
	}
	s.log.Info().Int64("user_id", user.ID).Msg("user registered")

	pair, err := s.issuer.IssueTokens(ctx, user)
	if err != nil {
		return nil, domain.TokenPair{}, err
	}

	s.publish(ctx, domain.EventUserRegistered, user)
	return user, pair, nil
}

// Login checks credentials. An unknown email and a wrong password produce the same
// unauthenticated result; only infrastructure faults are returned as errors.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, domain.NormalizeEmail(email))
	if errors.Is(err, domain.ErrUserNotFound) {
		// spend comparable time on unknown emails
		s.creds.Compare(password, s.dummyHash())
		return &ports.LoginResult{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	if !s.creds.Compare(password, user.PasswordHash) {
		s.log.Debug().Int64("user_id", user.ID).Msg("password mismatch")
		return &ports.LoginResult{}, nil
	}

	pair, err := s.issuer.IssueTokens(ctx, user)
	if err != nil {
		return nil, err
	}

	s.log.Info().Int64("user_id", user.ID).Msg("user logged in")
	s.publish(ctx, domain.EventUserLoggedIn, user)
	return &ports.LoginResult{Authenticated: true, User: user, Tokens: pair}, nil
}

// Whoami loads the user behind an access token principal.
func (s *AuthService) Whoami(ctx context.Context, p domain.Principal) (*domain.User, error) {
	id, err := p.UserID()
	if err != nil {
		return nil, err
	}
	return s.users.FindByID(ctx, id)
}

// Refresh rotates a verified, non-revoked refresh token. The user is reloaded so that
// the new pair carries the current role and tenant.
func (s *AuthService) Refresh(ctx context.Context, p domain.Principal) (*domain.User, domain.TokenPair, error) {
	oldID, err := p.RefreshTokenID()
	if err != nil {
		return nil, domain.TokenPair{}, err
	}
	userID, err := p.UserID()
	if err != nil {
		return nil, domain.TokenPair{}, err
	}

	user, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, domain.ErrUserNotFound) {
		return nil, domain.TokenPair{}, fmt.Errorf("%w: user %d no longer exists", domain.ErrUnauthenticated, userID)
	}
	if err != nil {
		return nil, domain.TokenPair{}, fmt.Errorf("refresh: %w", err)
	}

	pair, err := s.issuer.Rotate(ctx, user, oldID)
	if err != nil {
		return nil, domain.TokenPair{}, err
	}

	s.log.Info().Int64("user_id", user.ID).Int64("rotated_refresh_token_id", oldID).Msg("refresh token rotated")
	s.publish(ctx, domain.EventTokenRefreshed, user)
	return user, pair, nil
}

// Logout deletes the refresh token record named by refresh. Expiry is not checked, so a
// client can still end a session whose refresh token has lapsed. It reports false, without
// error, when the token is not owned by the access principal or its record is gone.
func (s *AuthService) Logout(ctx context.Context, access, refresh domain.Principal) (bool, error) {
	if access.Subject != refresh.Subject {
		return false, nil
	}
	id, err := refresh.RefreshTokenID()
	if err != nil {
		return false, nil
	}
	userID, err := refresh.UserID()
	if err != nil {
		return false, nil
	}

	rec, err := s.store.FindByID(ctx, id)
	if err != nil {
		s.log.Error().Err(err).Int64("refresh_token_id", id).Msg("logout: refresh token lookup failed")
		return false, nil
	}
	if rec == nil || rec.UserID != userID {
		return false, nil
	}

	deleted, err := s.store.DeleteByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("logout: %w", err)
	}
	if !deleted {
		return false, nil
	}

	s.log.Info().Int64("user_id", userID).Int64("refresh_token_id", id).Msg("user logged out")
	s.publish(ctx, domain.EventUserLoggedOut, &domain.User{ID: userID, Role: refresh.Role})
	return true, nil
}

func (s *AuthService) publish(ctx context.Context, typ domain.AuthEventType, user *domain.User) {
	if s.events == nil {
		return
	}
	s.events.Publish(ctx, domain.AuthEvent{
		ID:         uuid.NewString(),
		Type:       typ,
		UserID:     user.ID,
		Role:       user.Role,
		TenantID:   user.TenantID,
		OccurredAt: time.Now().UTC(),
	})
}

func (s *AuthService) dummyHash() string {
	s.dummyOnce.Do(func() {
		hash, err := s.creds.Hash(uuid.NewString())
		if err != nil {
			s.log.Warn().Err(err).Msg("failed to prepare dummy password hash")
		}
		s.dummyDigest = hash
	})
	return s.dummyDigest
}
