package config

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/sethvargo/go-envconfig"
)

const (
	StoreMySQL  = "mysql"
	StoreSQLite = "sqlite"
	StoreMongo  = "mongo"
)

type Config struct {
	Port        string `env:"PORT,         default=5501"`
	Env         string `env:"ENV,          default=development"`
	LogLevel    string `env:"LOG_LEVEL,    default=info"`
	ServiceName string `env:"SERVICE_NAME, default=auth-service"`
	FrontendURL string `env:"FRONTEND_URL, default=http://localhost:5173"`

	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	TokenCleanupInterval time.Duration `env:"TOKEN_CLEANUP_INTERVAL, default=1h"`

	Cookie CookieConfig
	Keys   KeysConfig
	Store  StoreConfig
	MySQL  MySQLConfig
	SQLite SQLiteConfig
	Mongo  MongoConfig
	Redis  RedisConfig
	Limit  RateLimitConfig
	Events EventsConfig
	Crypto CryptoConfig
}

type CookieConfig struct {
	Domain string `env:"COOKIE_DOMAIN, default=localhost"`
	// Secure is "true" or "false"; empty follows IsProduction.
	Secure string `env:"COOKIE_SECURE"`
}

type KeysConfig struct {
	PrivateKey         string        `env:"PRIVATE_KEY"`
	PrivateKeyFile     string        `env:"PRIVATE_KEY_FILE"`
	RefreshTokenSecret string        `env:"REFRESH_TOKEN_SECRET"`
	JWKSURI            string        `env:"JWKS_URI"`
	JWKSMinRefresh     time.Duration `env:"JWKS_MIN_REFRESH, default=30s"`
}

type StoreConfig struct {
	Driver string `env:"STORE_DRIVER, default=sqlite"`
}

type MySQLConfig struct {
	Host     string `env:"MYSQL_HOST,     default=localhost"`
	Port     string `env:"MYSQL_PORT,     default=3306"`
	User     string `env:"MYSQL_USER,     default=root"`
	Password string `env:"MYSQL_PASSWORD"`
	Database string `env:"MYSQL_DB,       default=auth_service"`
}

type SQLiteConfig struct {
	Path string `env:"SQLITE_PATH, default=data/auth.db"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=auth_service"`
}

type RedisConfig struct {
	// Addr empty disables rate limiting.
	Addr     string `env:"REDIS_ADDR"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB, default=0"`
}

type RateLimitConfig struct {
	Capacity       int           `env:"RATE_LIMIT_CAPACITY,        default=10"`
	RefillTokens   int           `env:"RATE_LIMIT_REFILL_TOKENS,   default=1"`
	RefillInterval time.Duration `env:"RATE_LIMIT_REFILL_INTERVAL, default=6s"`
}

type EventsConfig struct {
	AMQPURL  string `env:"AMQP_URL"`
	Exchange string `env:"AMQP_EXCHANGE, default=auth.events"`
	Workers  int    `env:"EVENT_WORKERS, default=4"`
	Buffer   int    `env:"EVENT_BUFFER,  default=256"`
}

type CryptoConfig struct {
	BcryptCost int `env:"BCRYPT_COST, default=10"`
}

// IsProduction reports whether ENV is "production".
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// CookieSecure resolves COOKIE_SECURE, defaulting to IsProduction.
func (c *Config) CookieSecure() bool {
	if secure, err := strconv.ParseBool(c.Cookie.Secure); err == nil {
		return secure
	}
	return c.IsProduction()
}

// Validate checks the settings that have no usable default.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreMySQL, StoreSQLite, StoreMongo:
	default:
		return fmt.Errorf("config: unsupported STORE_DRIVER %q", c.Store.Driver)
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		return fmt.Errorf("config: ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	if c.Events.Workers < 1 {
		return fmt.Errorf("config: EVENT_WORKERS must be positive")
	}
	return nil
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	cfg, err := LoadFrom(context.Background(), envconfig.OsLookuper())
	if err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return cfg
}

// LoadFrom processes configuration from l.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
