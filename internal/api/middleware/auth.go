package middleware

import (
	"context"
	"fmt"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/auth-service/internal/api/session"
	"github.com/99minutos/auth-service/internal/core/domain"
)

// TokenVerifier checks the tokens a client presents. token.Verifier implements it.
type TokenVerifier interface {
	VerifyAccess(ctx context.Context, raw string) (domain.Principal, error)
	VerifyRefresh(raw string) (domain.Principal, error)
	ParseRefresh(raw string) (domain.Principal, error)
}

// RevocationChecker reports whether a refresh token principal has been revoked.
type RevocationChecker interface {
	IsRevoked(ctx context.Context, p domain.Principal) bool
}

// some clients send the literal string when their stored token is unset
const undefinedToken = "undefined"

// ExtractAccessToken reads the bearer token from the Authorization header, falling back
// to the access token cookie.
func ExtractAccessToken() Stage {
	return Stage{
		Name:   "extract access token",
		Reason: "missing_token",
		Run: func(c echo.Context, s *State) error {
			if tok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization)); tok != "" {
				s.Token = tok
				return nil
			}
			if tok := cookieToken(c, session.AccessTokenCookie); tok != "" {
				s.Token = tok
				return nil
			}
			return fmt.Errorf("%w: no access token", domain.ErrUnauthenticated)
		},
	}
}

// VerifyAccessToken checks the RS256 signature, issuer and expiry.
func VerifyAccessToken(v TokenVerifier) Stage {
	return Stage{
		Name:   "verify access token",
		Reason: "invalid_token",
		Run: func(c echo.Context, s *State) (err error) {
			s.Principal, err = v.VerifyAccess(c.Request().Context(), s.Token)
			return err
		},
	}
}

// AttachPrincipal stores the verified principal on the request context.
func AttachPrincipal() Stage {
	return Stage{
		Name: "attach principal",
		Run: func(c echo.Context, s *State) error {
			SetPrincipal(c, s.Principal)
			return nil
		},
	}
}

func ExtractRefreshToken() Stage {
	return Stage{
		Name:   "extract refresh token",
		Reason: "missing_token",
		Run: func(c echo.Context, s *State) error {
			if tok := cookieToken(c, session.RefreshTokenCookie); tok != "" {
				s.Token = tok
				return nil
			}
			return fmt.Errorf("%w: no refresh token", domain.ErrUnauthenticated)
		},
	}
}

// VerifyRefreshToken checks the HS256 signature, issuer and expiry.
func VerifyRefreshToken(v TokenVerifier) Stage {
	return Stage{
		Name:   "verify refresh token",
		Reason: "invalid_token",
		Run: func(_ echo.Context, s *State) (err error) {
			s.Principal, err = v.VerifyRefresh(s.Token)
			return err
		},
	}
}

// ParseRefreshToken checks only the signature, so an expired token can still log out.
func ParseRefreshToken(v TokenVerifier) Stage {
	return Stage{
		Name:   "parse refresh token",
		Reason: "invalid_token",
		Run: func(_ echo.Context, s *State) (err error) {
			s.Principal, err = v.ParseRefresh(s.Token)
			return err
		},
	}
}

// CheckRevocation fails closed: any doubt in the store counts as revoked.
func CheckRevocation(store RevocationChecker) Stage {
	return Stage{
		Name:   "check revocation",
		Reason: "revoked",
		Run: func(c echo.Context, s *State) error {
			if store.IsRevoked(c.Request().Context(), s.Principal) {
				return fmt.Errorf("%w: jti %s", domain.ErrTokenRevoked, s.Principal.RefreshID)
			}
			return nil
		},
	}
}

func AttachRefreshPrincipal() Stage {
	return Stage{
		Name: "attach refresh principal",
		Run: func(c echo.Context, s *State) error {
			SetRefreshPrincipal(c, s.Principal)
			return nil
		},
	}
}

// Authenticate requires a valid access token.
func Authenticate(v TokenVerifier) echo.MiddlewareFunc {
	return Pipeline(ExtractAccessToken(), VerifyAccessToken(v), AttachPrincipal())
}

// ValidateRefreshToken requires a valid, unrevoked refresh token cookie.
func ValidateRefreshToken(v TokenVerifier, store RevocationChecker) echo.MiddlewareFunc {
	return Pipeline(ExtractRefreshToken(), VerifyRefreshToken(v), CheckRevocation(store), AttachRefreshPrincipal())
}

// ParseRefresh requires a correctly signed refresh token cookie, expired or not.
func ParseRefresh(v TokenVerifier) echo.MiddlewareFunc {
	return Pipeline(ExtractRefreshToken(), ParseRefreshToken(v), AttachRefreshPrincipal())
}

func bearerToken(header string) string {
	scheme, tok, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return ""
	}
	return usable(tok)
}

func cookieToken(c echo.Context, name string) string {
	ck, err := c.Cookie(name)
	if err != nil {
		return ""
	}
	return usable(ck.Value)
}

func usable(tok string) string {
	tok = strings.TrimSpace(tok)
	if tok == undefinedToken {
		return ""
	}
	return tok
}
