// Package middleware composes request authentication and authorization out of named
// stages, plus rate limiting and request metrics.
package middleware

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/api/metrics"
	"github.com/99minutos/auth-service/internal/core/domain"
)

const (
	principalKey        = "auth.principal"
	refreshPrincipalKey = "auth.refresh_principal"
)

// State carries values between the stages of one pipeline run.
type State struct {
	Token     string
	Principal domain.Principal
}

// Stage is one named step of a middleware pipeline. Reason labels the failure metric
// when Run returns an error.
type Stage struct {
	Name   string
	Reason string
	Run    func(c echo.Context, s *State) error
}

// Pipeline runs stages in order and stops at the first error, which is returned to the
// terminal error handler with the stage name attached.
func Pipeline(stages ...Stage) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var s State
			for _, st := range stages {
				if err := st.Run(c, &s); err != nil {
					if st.Reason != "" {
						metrics.AuthFailuresTotal.WithLabelValues(st.Reason).Inc()
					}
					return fmt.Errorf("%s: %w", st.Name, err)
				}
			}
			return next(c)
		}
	}
}

// SetPrincipal attaches an access token principal to c.
func SetPrincipal(c echo.Context, p domain.Principal) {
	c.Set(principalKey, p)
}

// SetRefreshPrincipal attaches a refresh token principal to c.
func SetRefreshPrincipal(c echo.Context, p domain.Principal) {
	c.Set(refreshPrincipalKey, p)
}

// PrincipalFrom returns the access token principal attached by Authenticate.
func PrincipalFrom(c echo.Context) (domain.Principal, bool) {
	p, ok := c.Get(principalKey).(domain.Principal)
	return p, ok
}

// RefreshPrincipalFrom returns the refresh token principal attached by
// ValidateRefreshToken or ParseRefresh.
func RefreshPrincipalFrom(c echo.Context) (domain.Principal, bool) {
	p, ok := c.Get(refreshPrincipalKey).(domain.Principal)
	return p, ok
}
