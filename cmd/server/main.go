// @title           Auth Service API
// @version         1.0
// @description     Issues and verifies session tokens, and manages users and tenants.
// @BasePath        /api
// @securityDefinitions.apikey BearerAuth
// @in              header
// @name            Authorization
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"

	"github.com/99minutos/auth-service/internal/api"
	"github.com/99minutos/auth-service/internal/api/handler"
	"github.com/99minutos/auth-service/internal/api/metrics"
	"github.com/99minutos/auth-service/internal/api/middleware"
	"github.com/99minutos/auth-service/internal/api/session"
	"github.com/99minutos/auth-service/internal/core/ports"
	"github.com/99minutos/auth-service/internal/core/service"
	"github.com/99minutos/auth-service/internal/core/token"
	"github.com/99minutos/auth-service/internal/infrastructure/config"
	mongostore "github.com/99minutos/auth-service/internal/infrastructure/db/mongo"
	redisstore "github.com/99minutos/auth-service/internal/infrastructure/db/redis"
	"github.com/99minutos/auth-service/internal/infrastructure/db/sqlstore"
	"github.com/99minutos/auth-service/internal/infrastructure/keys"
	"github.com/99minutos/auth-service/internal/infrastructure/queue"
	"github.com/99minutos/auth-service/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "auth-service: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return fmt.Errorf("loading .env: %w", err)
		}
	}

	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  !cfg.IsProduction(),
		Service: cfg.ServiceName,
	})
	if !cfg.IsProduction() {
		displayAppname(cfg.ServiceName)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// background work outlives the signal so it can drain during shutdown
	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	// --- Storage ---
	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := st.close(closeCtx); err != nil {
			log.Error().Err(err).Msg("closing store")
		}
	}()
	health := []handler.Dependency{st.health}

	// --- Rate limiting (optional) ---
	var limiter middleware.Limiter
	if cfg.Redis.Addr != "" {
		rdb, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, rate limiting disabled")
		} else {
			defer rdb.Close()
			limiter = redisstore.NewRateLimiter(rdb, redisstore.RateLimitConfig{
				Capacity:       cfg.Limit.Capacity,
				RefillTokens:   cfg.Limit.RefillTokens,
				RefillInterval: cfg.Limit.RefillInterval,
				Prefix:         cfg.ServiceName + ":rl",
			})
			health = append(health, handler.Dependency{
				Name:  "redis",
				Check: func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			})
		}
	}

	// --- Events ---
	var sink queue.Sink = queue.NewLogSink(log)
	if cfg.Events.AMQPURL != "" {
		amqpSink, err := queue.NewAMQPSink(cfg.Events.AMQPURL, cfg.Events.Exchange)
		if err != nil {
			log.Warn().Err(err).Msg("rabbitmq unavailable, auth events will be logged only")
		} else {
			defer amqpSink.Close()
			sink = amqpSink
		}
	}
	dispatcher := queue.NewDispatcher(sink, queue.Options{
		Workers:  cfg.Events.Workers,
		Buffer:   cfg.Events.Buffer,
		Observer: metrics.EventObserver{},
	}, log)
	dispatcher.Start(bgCtx)
	defer dispatcher.Close()

	// --- Keys and tokens ---
	provider, err := keys.NewProvider(keys.Options{
		PrivateKeyPEM:  cfg.Keys.PrivateKey,
		PrivateKeyFile: cfg.Keys.PrivateKeyFile,
		RefreshSecret:  cfg.Keys.RefreshTokenSecret,
		JWKSURI:        cfg.Keys.JWKSURI,
		Production:     cfg.IsProduction(),
	})
	if err != nil {
		return err
	}
	if _, _, err := provider.SigningKey(); err != nil {
		log.Warn().Err(err).Msg("no usable signing key, token issuance will fail")
	}

	verifier := token.NewVerifier(provider.Keyfunc, provider.RefreshSecret())
	if uri := provider.JWKSURI(); uri != "" {
		jwks := keys.NewJWKSClient(uri, keys.ClientOptions{
			MinRefresh: cfg.Keys.JWKSMinRefresh,
			OnFetch:    metrics.ObserveJWKSFetch,
			Logger:     log,
		})
		verifier = token.NewContextVerifier(jwks.KeyfuncContext, provider.RefreshSecret())
	}

	store := token.NewRefreshStore(st.refresh, log)
	issuer := token.NewIssuer(provider, store, token.IssuerOptions{Logger: log})

	// --- Services ---
	creds := service.NewBcryptVerifier(cfg.Crypto.BcryptCost)
	authService := service.NewAuthService(st.users, store, issuer, creds, dispatcher, log)
	userService := service.NewUserService(st.users, st.tenants, creds, log)
	tenantService := service.NewTenantService(st.tenants, log)

	if cfg.AdminEmail != "" {
		created, err := userService.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword)
		if err != nil {
			return err
		}
		if created {
			log.Info().Str("email", cfg.AdminEmail).Msg("admin account created")
		}
	}

	cleanerCtx, stopCleaner := context.WithCancel(bgCtx)
	defer stopCleaner()
	cleaner := service.NewTokenCleaner(meteredSweeper{store}, cfg.TokenCleanupInterval, log)
	go cleaner.Run(cleanerCtx)

	// --- HTTP ---
	e := api.NewRouter(api.Deps{
		Logger:      log,
		Production:  cfg.IsProduction(),
		FrontendURL: cfg.FrontendURL,
		Auth:        authService,
		Users:       userService,
		Tenants:     tenantService,
		Verifier:    verifier,
		Revocation:  store,
		Cookies: session.NewManager(session.Options{
			Domain: cfg.Cookie.Domain,
			Secure: cfg.CookieSecure(),
		}),
		Keys:    provider,
		Limiter: limiter,
		Health:  health,
	})

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("store", cfg.Store.Driver).Msg("server listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	log.Info().Msg("server stopped")
	return nil
}

// stores is the repository set for the configured STORE_DRIVER.
type stores struct {
	users   ports.UserRepository
	tenants ports.TenantRepository
	refresh ports.RefreshTokenRepository
	health  handler.Dependency
	close   func(ctx context.Context) error
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	log := logger.Get()
	if cfg.Store.Driver == config.StoreMongo {
		client, db, err := mongostore.Connect(ctx, mongostore.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			return nil, err
		}
		if err := mongostore.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return nil, err
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("connected to mongodb")
		return &stores{
			users:   mongostore.NewUserRepository(db),
			tenants: mongostore.NewTenantRepository(db),
			refresh: mongostore.NewRefreshTokenRepository(db),
			health: handler.Dependency{
				Name:  "mongodb",
				Check: func(ctx context.Context) error { return mongostore.HealthCheck(ctx, db) },
			},
			close: client.Disconnect,
		}, nil
	}

	sqlCfg := sqlstore.Config{Driver: sqlstore.DriverSQLite, DSN: sqlstore.SQLiteDSN(cfg.SQLite.Path)}
	if cfg.Store.Driver == config.StoreMySQL {
		sqlCfg = sqlstore.Config{
			Driver: sqlstore.DriverMySQL,
			DSN:    sqlstore.MySQLDSN(cfg.MySQL.User, cfg.MySQL.Password, cfg.MySQL.Host, cfg.MySQL.Port, cfg.MySQL.Database),
		}
	}
	db, err := sqlstore.Open(ctx, sqlCfg)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info().Str("driver", db.Driver()).Msg("connected to sql store")
	return &stores{
		users:   sqlstore.NewUserRepository(db),
		tenants: sqlstore.NewTenantRepository(db),
		refresh: sqlstore.NewRefreshTokenRepository(db),
		health:  handler.Dependency{Name: db.Driver(), Check: db.HealthCheck},
		close:   func(context.Context) error { return db.Close() },
	}, nil
}

// meteredSweeper counts the records removed by the cleanup job.
type meteredSweeper struct {
	*token.RefreshStore
}

func (m meteredSweeper) DeleteExpired(ctx context.Context) (int64, error) {
	n, err := m.RefreshStore.DeleteExpired(ctx)
	if n > 0 {
		metrics.RefreshTokensRevokedTotal.WithLabelValues("expired").Add(float64(n))
	}
	return n, err
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
