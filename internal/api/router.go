package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/99minutos/auth-service/docs"
	"github.com/99minutos/auth-service/internal/api/handler"
	"github.com/99minutos/auth-service/internal/api/middleware"
	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/pkg/logger"
)

// Deps carries everything the router needs. Limiter may be nil to disable rate limiting.
type Deps struct {
	Logger      zerolog.Logger
	Production  bool
	FrontendURL string

	Auth    ports.AuthService
	Users   ports.UserService
	Tenants ports.TenantService

	Verifier   middleware.TokenVerifier
	Revocation middleware.RevocationChecker
	Cookies    handler.CookieWriter
	Keys       handler.KeySet
	Limiter    middleware.Limiter

	Health []handler.Dependency
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Logger, d.Production)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestScope(d.Logger))
	e.Use(requestLogger(d.Logger))
	if d.FrontendURL != "" {
		e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
			AllowOrigins:     []string{d.FrontendURL},
			AllowCredentials: true,
		}))
	}
	e.Use(middleware.Metrics())

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(d.Auth, d.Cookies, d.Logger)
	userHandler := handler.NewUserHandler(d.Users)
	tenantHandler := handler.NewTenantHandler(d.Tenants)
	jwksHandler := handler.NewJWKSHandler(d.Keys)
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(d.Health...)

	authenticate := middleware.Authenticate(d.Verifier)
	adminOnly := middleware.CanAccess(domain.RoleAdmin)
	rateLimit := middleware.RateLimit(d.Limiter, d.Logger)

	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, "Welcome to Auth Service")
	})
	e.GET("/.well-known/jwks.json", jwksHandler.Serve)

	// --- Auth routes ---
	api := e.Group("/api")
	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register, rateLimit)
	auth.POST("/login", authHandler.Login, rateLimit)
	auth.GET("/whoami", authHandler.Whoami, authenticate)
	auth.POST("/refresh", authHandler.Refresh, middleware.ValidateRefreshToken(d.Verifier, d.Revocation))
	auth.POST("/logout", authHandler.Logout, authenticate, middleware.ParseRefresh(d.Verifier))

	// --- Admin routes ---
	tenants := api.Group("/tenants", authenticate, adminOnly)
	tenants.POST("", tenantHandler.Create)
	tenants.GET("", tenantHandler.List)
	tenants.GET("/:id", tenantHandler.Get)
	tenants.PATCH("/:id", tenantHandler.Update)
	tenants.DELETE("/:id", tenantHandler.Delete)

	users := api.Group("/users", authenticate, adminOnly)
	users.POST("", userHandler.Create)
	users.GET("", userHandler.List)
	users.GET("/:id", userHandler.Get)
	users.PATCH("/:id", userHandler.Update)
	users.DELETE("/:id", userHandler.Delete)

	// --- Health probes (no auth required) ---
	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Observability ---
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	if !d.Production {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}

	return e
}

// requestScope attaches a logger tagged with the request id to the request context.
func requestScope(log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Response().Header().Get(echo.HeaderXRequestID)
			scoped := log.With().Str("request_id", id).Logger()
			req := c.Request()
			c.SetRequest(req.WithContext(logger.NewContext(req.Context(), scoped)))
			return next(c)
		}
	}
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			event := log.Info()
			if v.Status >= http.StatusInternalServerError {
				event = log.Error()
			}
			event.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
