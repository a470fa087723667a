package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/api/middleware"
	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

type stubAuthService struct {
	registerFn func(ctx context.Context, in ports.RegisterInput) (*domain.User, domain.TokenPair, error)
	loginFn    func(ctx context.Context, email, password string) (*ports.LoginResult, error)
	whoamiFn   func(ctx context.Context, p domain.Principal) (*domain.User, error)
	refreshFn  func(ctx context.Context, p domain.Principal) (*domain.User, domain.TokenPair, error)
	logoutFn   func(ctx context.Context, access, refresh domain.Principal) (bool, error)
}

func (s *stubAuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, domain.TokenPair, error) {
	return s.registerFn(ctx, in)
}

func (s *stubAuthService) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	return s.loginFn(ctx, email, password)
}

func (s *stubAuthService) Whoami(ctx context.Context, p domain.Principal) (*domain.User, error) {
	return s.whoamiFn(ctx, p)
}

func (s *stubAuthService) Refresh(ctx context.Context, p domain.Principal) (*domain.User, domain.TokenPair, error) {
	return s.refreshFn(ctx, p)
}

func (s *stubAuthService) Logout(ctx context.Context, access, refresh domain.Principal) (bool, error) {
	return s.logoutFn(ctx, access, refresh)
}

type recordingCookies struct {
	access, refresh string
	cleared         bool
}

func (r *recordingCookies) SetAuthCookies(_ echo.Context, access, refresh string) {
	r.access, r.refresh = access, refresh
}

func (r *recordingCookies) ClearAuthCookies(echo.Context) { r.cleared = true }

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

func jsonContext(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestAuthHandler_Register_Success(t *testing.T) {
	e := newTestEcho()
	cookies := &recordingCookies{}
	stub := &stubAuthService{
		registerFn: func(_ context.Context, in ports.RegisterInput) (*domain.User, domain.TokenPair, error) {
			if in.Email != "ada@example.com" || in.FirstName != "Ada" {
				t.Fatalf("unexpected input: %+v", in)
			}
			return &domain.User{ID: 7}, domain.TokenPair{AccessToken: "a", RefreshToken: "r"}, nil
		},
	}
	h := NewAuthHandler(stub, cookies, zerolog.Nop())

	c, rec := jsonContext(e, http.MethodPost, "/api/auth/register",
		`{"firstName":"  Ada ","lastName":"Lovelace","email":" ADA@example.com ","password":"secret1"}`)
	if err := h.Register(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp["id"] != float64(7) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
	if cookies.access != "a" || cookies.refresh != "r" {
		t.Fatalf("cookies not set: %+v", cookies)
	}
}

func TestAuthHandler_Register_ValidationError(t *testing.T) {
	e := newTestEcho()
	h := NewAuthHandler(&stubAuthService{}, &recordingCookies{}, zerolog.Nop())

	c, _ := jsonContext(e, http.MethodPost, "/api/auth/register",
		`{"firstName":" ","lastName":"L","email":"nope","password":"123"}`)
	err := h.Register(c)

	var ve *domain.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	got := map[string]string{}
	for _, is := range ve.Issues {
		got[is.Path] = is.Msg
	}
	want := map[string]string{
		"firstName": "First name cannot be empty",
		"email":     "Invalid email address",
		"password":  "Password must be at least 6 characters long",
	}
	for path, msg := range want {
		if got[path] != msg {
			t.Fatalf("issue %s: expected %q, got %q", path, msg, got[path])
		}
	}
}

func TestAuthHandler_Register_UserExists(t *testing.T) {
	e := newTestEcho()
	stub := &stubAuthService{
		registerFn: func(context.Context, ports.RegisterInput) (*domain.User, domain.TokenPair, error) {
			return nil, domain.TokenPair{}, domain.ErrUserExists
		},
	}
	h := NewAuthHandler(stub, &recordingCookies{}, zerolog.Nop())

	c, _ := jsonContext(e, http.MethodPost, "/api/auth/register",
		`{"firstName":"A","lastName":"B","email":"a@example.com","password":"secret1"}`)
	if err := h.Register(c); !errors.Is(err, domain.ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}
}

func TestAuthHandler_Login_NotAuthenticated(t *testing.T) {
	e := newTestEcho()
	cookies := &recordingCookies{}
	stub := &stubAuthService{
		loginFn: func(context.Context, string, string) (*ports.LoginResult, error) {
			return &ports.LoginResult{Authenticated: false}, nil
		},
	}
	h := NewAuthHandler(stub, cookies, zerolog.Nop())

	c, _ := jsonContext(e, http.MethodPost, "/api/auth/login", `{"email":"a@example.com","password":"x"}`)
	if err := h.Login(c); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if cookies.access != "" {
		t.Fatal("cookies must not be set on failed login")
	}
}

func TestAuthHandler_Login_Success(t *testing.T) {
	e := newTestEcho()
	cookies := &recordingCookies{}
	stub := &stubAuthService{
		loginFn: func(_ context.Context, email, _ string) (*ports.LoginResult, error) {
			if email != "a@example.com" {
				t.Fatalf("email not normalized: %q", email)
			}
			return &ports.LoginResult{
				Authenticated: true,
				User:          &domain.User{ID: 3},
				Tokens:        domain.TokenPair{AccessToken: "a", RefreshToken: "r"},
			}, nil
		},
	}
	h := NewAuthHandler(stub, cookies, zerolog.Nop())

	c, rec := jsonContext(e, http.MethodPost, "/api/auth/login", `{"email":"A@Example.com","password":"x"}`)
	if err := h.Login(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != `{"id":3}` {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
	if cookies.refresh != "r" {
		t.Fatal("refresh cookie not set")
	}
}

func TestAuthHandler_Whoami_MissingPrincipal(t *testing.T) {
	e := newTestEcho()
	h := NewAuthHandler(&stubAuthService{}, &recordingCookies{}, zerolog.Nop())

	c, _ := jsonContext(e, http.MethodGet, "/api/auth/whoami", "")
	if err := h.Whoami(c); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestAuthHandler_Logout(t *testing.T) {
	tests := []struct {
		name    string
		ok      bool
		wantErr error
		cleared bool
	}{
		{name: "revokes", ok: true, cleared: true},
		{name: "already revoked", ok: false, wantErr: domain.ErrTokenRevoked},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEcho()
			cookies := &recordingCookies{}
			stub := &stubAuthService{
				logoutFn: func(_ context.Context, access, refresh domain.Principal) (bool, error) {
					if access.Subject != "1" || refresh.RefreshID != "9" {
						t.Fatalf("unexpected principals: %+v %+v", access, refresh)
					}
					return tt.ok, nil
				},
			}
			h := NewAuthHandler(stub, cookies, zerolog.Nop())

			c, rec := jsonContext(e, http.MethodPost, "/api/auth/logout", "")
			middleware.SetPrincipal(c, domain.Principal{Subject: "1", Role: domain.RoleCustomer})
			middleware.SetRefreshPrincipal(c, domain.Principal{Subject: "1", RefreshID: "9"})

			err := h.Logout(c)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("handler error: %v", err)
			}
			if rec.Code != http.StatusOK || strings.TrimSpace(rec.Body.String()) != "{}" {
				t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
			}
			if cookies.cleared != tt.cleared {
				t.Fatalf("cleared = %v", cookies.cleared)
			}
		})
	}
}

func TestAuthHandler_Refresh_SetsCookies(t *testing.T) {
	e := newTestEcho()
	cookies := &recordingCookies{}
	stub := &stubAuthService{
		refreshFn: func(_ context.Context, p domain.Principal) (*domain.User, domain.TokenPair, error) {
			if p.RefreshID != "4" {
				t.Fatalf("unexpected principal %+v", p)
			}
			return &domain.User{ID: 2}, domain.TokenPair{AccessToken: "a2", RefreshToken: "r2"}, nil
		},
	}
	h := NewAuthHandler(stub, cookies, zerolog.Nop())

	c, rec := jsonContext(e, http.MethodPost, "/api/auth/refresh", "")
	middleware.SetRefreshPrincipal(c, domain.Principal{Subject: "2", RefreshID: "4"})
	if err := h.Refresh(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK || cookies.access != "a2" || cookies.refresh != "r2" {
		t.Fatalf("unexpected result %d %+v", rec.Code, cookies)
	}
}
