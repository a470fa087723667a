// Package sqlstore implements the user, tenant and refresh token repositories on
// database/sql for MySQL (production) and SQLite (development and tests).
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
)

const (
	DriverMySQL  = "mysql"
	DriverSQLite = "sqlite3"

	connectionTimeout = 5 * time.Second
	dirPermissions    = 0750
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Config selects the driver and connection parameters.
type Config struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DB wraps a sql.DB together with the dialect it talks to.
type DB struct {
	*sql.DB
	driver string
}

// MySQLDSN builds a DSN that scans DATETIME columns into UTC time.Time values and
// reports matched rather than changed rows for UPDATE.
func MySQLDSN(user, pass, host, port, name string) string {
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = pass
	cfg.Net = "tcp"
	cfg.Addr = host + ":" + port
	cfg.DBName = name
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.ClientFoundRows = true
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// SQLiteDSN enables foreign keys (needed for the refresh token cascade) and WAL.
func SQLiteDSN(path string) string {
	return fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on&_journal_mode=WAL", path)
}

// Open connects with cfg and verifies the connection.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	switch cfg.Driver {
	case DriverMySQL:
		if cfg.MaxOpenConns == 0 {
			cfg.MaxOpenConns = 25
		}
		if cfg.MaxIdleConns == 0 {
			cfg.MaxIdleConns = cfg.MaxOpenConns
		}
		if cfg.ConnMaxLifetime == 0 {
			cfg.ConnMaxLifetime = 30 * time.Minute
		}
	case DriverSQLite:
		if path := sqlitePath(cfg.DSN); path != "" && path != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(path), dirPermissions); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		// single writer
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
		if cfg.ConnMaxLifetime == 0 {
			cfg.ConnMaxLifetime = time.Hour
		}
	default:
		return nil, fmt.Errorf("sqlstore: unsupported driver %q", cfg.Driver)
	}

	sqlDB, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, connectionTimeout)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close() //nolint:errcheck
		return nil, fmt.Errorf("verifying database connection: %w", err)
	}

	return &DB{DB: sqlDB, driver: cfg.Driver}, nil
}

// Driver returns the name of the sql driver in use.
func (db *DB) Driver() string {
	return db.driver
}

// Migrate applies the dialect's schema. Every statement is idempotent.
func (db *DB) Migrate(ctx context.Context) error {
	name := "schema/sqlite.sql"
	if db.driver == DriverMySQL {
		name = "schema/mysql.sql"
	}
	raw, err := schemaFS.ReadFile(name)
	if err != nil {
		return fmt.Errorf("reading schema: %w", err)
	}
	for _, stmt := range strings.Split(string(raw), ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	return nil
}

// HealthCheck runs a trivial query.
func (db *DB) HealthCheck(ctx context.Context) error {
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

func sqlitePath(dsn string) string {
	path := strings.TrimPrefix(dsn, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	return path
}

// isDuplicate reports a unique constraint violation on either dialect.
func isDuplicate(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

// storedTime normalises a timestamp to what both dialects round-trip exactly.
func storedTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

func offset(page, perPage int) int {
	if page < 1 {
		return 0
	}
	return (page - 1) * perPage
}

// likePattern escapes q for a LIKE ... ESCAPE '!' clause.
func likePattern(q string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return "%" + r.Replace(q) + "%"
}
