// Package session writes and clears the access and refresh token cookies.
package session

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"

	defaultAccessMaxAge  = time.Hour
	defaultRefreshMaxAge = 365 * 24 * time.Hour
)

// Options configures the cookies. Zero max ages fall back to the token lifetimes.
type Options struct {
	Domain        string
	Secure        bool
	AccessMaxAge  time.Duration
	RefreshMaxAge time.Duration
}

// Manager sets HttpOnly, SameSite=Strict cookies scoped to a domain.
type Manager struct {
	opts Options
}

func NewManager(opts Options) *Manager {
	if opts.AccessMaxAge <= 0 {
		opts.AccessMaxAge = defaultAccessMaxAge
	}
	if opts.RefreshMaxAge <= 0 {
		opts.RefreshMaxAge = defaultRefreshMaxAge
	}
	return &Manager{opts: opts}
}

// SetAuthCookies attaches both tokens to the response.
func (m *Manager) SetAuthCookies(c echo.Context, access, refresh string) {
	c.SetCookie(m.cookie(AccessTokenCookie, access, m.opts.AccessMaxAge))
	c.SetCookie(m.cookie(RefreshTokenCookie, refresh, m.opts.RefreshMaxAge))
}

// ClearAuthCookies expires both cookies immediately.
func (m *Manager) ClearAuthCookies(c echo.Context) {
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie} {
		ck := m.cookie(name, "", 0)
		ck.MaxAge = -1
		ck.Expires = time.Unix(0, 0)
		c.SetCookie(ck)
	}
}

func (m *Manager) cookie(name, value string, maxAge time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   m.opts.Domain,
		MaxAge:   int(maxAge / time.Second),
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}
