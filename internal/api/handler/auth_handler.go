package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/api/metrics"
	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/pkg/logger"
)

// CookieWriter sets and clears the session cookies on a response.
type CookieWriter interface {
	SetAuthCookies(c echo.Context, access, refresh string)
	ClearAuthCookies(c echo.Context)
}

type AuthHandler struct {
	authService ports.AuthService
	cookies     CookieWriter
	logger      zerolog.Logger
}

func NewAuthHandler(authService ports.AuthService, cookies CookieWriter, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, cookies: cookies, logger: logger}
}

// Register creates a customer account and starts a session.
//
// @Summary      Register a new customer
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "User registration details"
// @Success      201   {object}  idResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, tokens, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		return err
	}

	metrics.TokensIssuedTotal.WithLabelValues("register").Inc()
	h.cookies.SetAuthCookies(c, tokens.AccessToken, tokens.RefreshToken)
	return c.JSON(http.StatusCreated, idResponse{ID: user.ID})
}

// Login checks credentials and starts a session.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  idResponse
// @Failure      400   {object}  errorResponse
// @Failure      401   {object}  errorResponse
// @Failure      429   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	res, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}
	if !res.Authenticated {
		metrics.AuthFailuresTotal.WithLabelValues("bad_credentials").Inc()
		return domain.ErrInvalidCredentials
	}

	metrics.TokensIssuedTotal.WithLabelValues("login").Inc()
	h.cookies.SetAuthCookies(c, res.Tokens.AccessToken, res.Tokens.RefreshToken)
	return c.JSON(http.StatusOK, idResponse{ID: res.User.ID})
}

// Whoami returns the user behind the access token.
//
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.User
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /auth/whoami [get]
func (h *AuthHandler) Whoami(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	user, err := h.authService.Whoami(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Refresh exchanges a valid refresh token for a new token pair.
//
// @Summary      Refresh session
// @Tags         auth
// @Produce      json
// @Success      200  {object}  idResponse
// @Failure      401  {object}  errorResponse
// @Router       /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	p, err := refreshPrincipal(c)
	if err != nil {
		return err
	}
	user, tokens, err := h.authService.Refresh(c.Request().Context(), p)
	if err != nil {
		return err
	}

	metrics.TokensIssuedTotal.WithLabelValues("refresh").Inc()
	metrics.RefreshTokensRevokedTotal.WithLabelValues("rotation").Inc()
	h.cookies.SetAuthCookies(c, tokens.AccessToken, tokens.RefreshToken)
	return c.JSON(http.StatusOK, idResponse{ID: user.ID})
}

// Logout revokes the refresh token and clears the session cookies.
//
// @Summary      Logout
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  errorResponse
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	access, err := principal(c)
	if err != nil {
		return err
	}
	refresh, err := refreshPrincipal(c)
	if err != nil {
		return err
	}

	ok, err := h.authService.Logout(c.Request().Context(), access, refresh)
	if err != nil {
		return err
	}
	if !ok {
		log := logger.FromContext(c.Request().Context(), h.logger)
		log.Debug().
			Str("sub", access.Subject).
			Str("jti", refresh.RefreshID).
			Msg("logout with revoked refresh token")
		return domain.ErrTokenRevoked
	}

	metrics.RefreshTokensRevokedTotal.WithLabelValues("logout").Inc()
	h.cookies.ClearAuthCookies(c)
	return c.JSON(http.StatusOK, struct{}{})
}
