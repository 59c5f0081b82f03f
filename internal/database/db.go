// Package database provides the PostgreSQL store for sounds, guild settings and join sound bindings.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file" // File source driver for migrations
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/parsascontentcorner/soundfx/internal/config"
)

// ErrNotFound is returned by single-row lookups that match nothing.
// List reads never return it; an empty result is an empty slice.
var ErrNotFound = errors.New("not found")

// PageSize is the number of rows returned by paged listings
const PageSize = 25

const migrationsTable = "schema_migrations"

// DB is the relational store: sounds, guild settings and join sound bindings
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB opens a connection pool and waits until the server answers
func NewDB(cfg *config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	connector, err := pq.NewConnector(cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database dsn: %w", err)
	}

	sqlDB := sql.OpenDB(connector)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.String("host", cfg.Host),
		zap.String("database", cfg.Name),
		zap.Int("max_open_conns", cfg.MaxOpenConns),
	)

	return &DB{
		DB:     sqlDB,
		logger: logger,
	}, nil
}

// Close closes the pool
func (db *DB) Close() error {
	db.logger.Info("closing database connection")
	return db.DB.Close()
}

// Health pings the server with a short timeout. It backs the gRPC health service.
func (db *DB) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	return nil
}

// migrator reads migrations from migrationsPath over a dedicated connection.
// Close the result to return the connection to the pool.
func (db *DB) migrator(migrationsPath string) (*migrate.Migrate, error) {
	ctx := context.Background()

	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}

	driver, err := postgres.WithConnection(ctx, conn, &postgres.Config{
		MigrationsTable: migrationsTable,
	})
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to create postgres driver instance: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		_ = driver.Close()
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return m, nil
}

func (db *DB) closeMigrator(m *migrate.Migrate) {
	srcErr, dbErr := m.Close()
	if srcErr != nil || dbErr != nil {
		db.logger.Warn("failed to close migrator",
			zap.NamedError("source_error", srcErr),
			zap.NamedError("database_error", dbErr),
		)
	}
}

// RunMigrations applies every pending migration
func (db *DB) RunMigrations(migrationsPath string) error {
	return db.MigrateSteps(migrationsPath, 0)
}

// MigrateSteps applies n migrations, rolls back -n when negative, or applies all
// pending ones when n is zero. Being already at the target is not an error.
func (db *DB) MigrateSteps(migrationsPath string, n int) error {
	db.logger.Info("running database migrations",
		zap.String("path", migrationsPath),
		zap.Int("steps", n),
	)

	m, err := db.migrator(migrationsPath)
	if err != nil {
		return err
	}
	defer db.closeMigrator(m)

	if n == 0 {
		err = m.Up()
	} else {
		err = m.Steps(n)
	}
	if errors.Is(err, migrate.ErrNoChange) {
		db.logger.Info("database schema is already up to date")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	db.logVersion(m)
	return nil
}

// SchemaVersion returns the applied migration version. ok is false on an empty schema.
func (db *DB) SchemaVersion(migrationsPath string) (version uint, dirty bool, ok bool, err error) {
	m, err := db.migrator(migrationsPath)
	if err != nil {
		return 0, false, false, err
	}
	defer db.closeMigrator(m)

	version, dirty, err = m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, false, nil
	}
	if err != nil {
		return 0, false, false, fmt.Errorf("failed to read migration version: %w", err)
	}

	return version, dirty, true, nil
}

func (db *DB) logVersion(m *migrate.Migrate) {
	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		db.logger.Info("every migration has been rolled back")
	case err != nil:
		db.logger.Warn("failed to get migration version", zap.Error(err))
	default:
		db.logger.Info("database migrations completed",
			zap.Uint("version", version),
			zap.Bool("dirty", dirty),
		)
	}
}
