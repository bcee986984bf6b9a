// Package database opens the SQL backends and applies embedded migrations
// with golang-migrate.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Connect creates a pgx pool and pings it.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database DSN: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// OpenPostgres opens a database/sql handle through lib/pq and pings it.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// OpenSQLite opens the SQLite file at path with foreign keys on and a busy
// timeout so concurrent writers wait instead of failing.
func OpenSQLite(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", SQLiteDSN(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows a single writer; serialising in the pool avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return db, nil
}

// SQLiteDSN builds the go-sqlite3 DSN for path.
func SQLiteDSN(path string) string {
	return "file:" + path + "?_foreign_keys=on&_busy_timeout=5000"
}

// Target names a database for Migrate.
type Target struct {
	// URL is a golang-migrate database URL: pgx5://, postgres:// or sqlite3://.
	URL string
	// MigrationsTable overrides the version table so several schemas can
	// share one database.
	MigrationsTable string
}

// PgxTarget returns the golang-migrate pgx5 URL for a postgres DSN.
func PgxTarget(dsn, table string) Target {
	u := strings.TrimPrefix(strings.TrimPrefix(dsn, "postgres://"), "postgresql://")
	return Target{URL: "pgx5://" + u, MigrationsTable: table}
}

// PostgresTarget returns the golang-migrate lib/pq URL for a postgres DSN.
func PostgresTarget(dsn, table string) Target {
	return Target{URL: dsn, MigrationsTable: table}
}

// SQLiteTarget returns the golang-migrate sqlite3 URL for a file path.
func SQLiteTarget(path string) Target {
	return Target{URL: "sqlite3://" + SQLiteDSN(path)}
}

func (t Target) url() (string, error) {
	if t.MigrationsTable == "" {
		return t.URL, nil
	}
	u, err := url.Parse(t.URL)
	if err != nil {
		return "", fmt.Errorf("parse migration URL: %w", err)
	}
	q := u.Query()
	q.Set("x-migrations-table", t.MigrationsTable)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Migrate applies the SQL migrations under dir of src to target.
func Migrate(src fs.FS, dir string, target Target, logger *slog.Logger) error {
	source, err := iofs.New(src, dir)
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbURL, err := target.url()
	if err != nil {
		return err
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, dbURL)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	version, dirty, _ := m.Version()
	if logger != nil {
		logger.Info("migrations applied",
			slog.String("source", dir),
			slog.Uint64("version", uint64(version)),
			slog.Bool("dirty", dirty),
		)
	}
	return nil
}
