package testutil

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/parsascontentcorner/soundfx/internal/config"
	"github.com/parsascontentcorner/soundfx/internal/database"
	"github.com/parsascontentcorner/soundfx/internal/models"
)

var (
	containerOnce sync.Once
	adminConfig   config.DatabaseConfig
	containerErr  error

	databaseSeq atomic.Int64
)

// MigrationsPath is the absolute path of the SQL migrations, independent of the
// directory tests run from
func MigrationsPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "database", "migrations")
}

// startContainer boots one PostgreSQL container per test binary. The testcontainers
// reaper removes it when the process exits.
func startContainer(ctx context.Context) (config.DatabaseConfig, error) {
	containerOnce.Do(func() {
		pgContainer, err := postgres.RunContainer(ctx,
			testcontainers.WithImage("postgres:15-alpine"),
			postgres.WithDatabase("soundfx"),
			postgres.WithUsername("soundfx"),
			postgres.WithPassword("soundfx"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second),
			),
		)
		if err != nil {
			containerErr = fmt.Errorf("failed to start postgres container: %w", err)
			return
		}

		host, err := pgContainer.Host(ctx)
		if err != nil {
			containerErr = fmt.Errorf("failed to get container host: %w", err)
			return
		}

		port, err := pgContainer.MappedPort(ctx, "5432")
		if err != nil {
			containerErr = fmt.Errorf("failed to get mapped port: %w", err)
			return
		}

		adminConfig = config.DatabaseConfig{
			Host:         host,
			Port:         port.Port(),
			User:         "soundfx",
			Password:     "soundfx",
			Name:         "soundfx",
			SSLMode:      "disable",
			MaxOpenConns: 5,
			MaxIdleConns: 2,
		}
	})

	return adminConfig, containerErr
}

// SetupTestDB returns a connection to a fresh, migrated database. Databases are
// created inside a shared container, one per call, and dropped by cleanup.
//
// Usage:
//
//	db, cleanup, err := testutil.SetupTestDB(ctx)
//	require.NoError(t, err)
//	defer cleanup()
func SetupTestDB(ctx context.Context) (*database.DB, func(), error) {
	admin, err := startContainer(ctx)
	if err != nil {
		return nil, nil, err
	}

	adminDB, err := database.NewDB(&admin, zap.NewNop())
	if err != nil {
		return nil, nil, err
	}
	defer adminDB.Close()

	name := fmt.Sprintf("soundfx_it_%d", databaseSeq.Add(1))
	if _, err := adminDB.ExecContext(ctx, "CREATE DATABASE "+name); err != nil {
		return nil, nil, fmt.Errorf("failed to create database %s: %w", name, err)
	}

	drop := func() {
		adminDB, err := database.NewDB(&admin, zap.NewNop())
		if err != nil {
			return
		}
		defer adminDB.Close()
		_, _ = adminDB.ExecContext(context.Background(), "DROP DATABASE IF EXISTS "+name+" WITH (FORCE)")
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		drop()
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}

	cfg := admin
	cfg.Name = name
	db, err := database.NewDB(&cfg, logger)
	if err != nil {
		drop()
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.RunMigrations(MigrationsPath()); err != nil {
		_ = db.Close()
		drop()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	cleanup := func() {
		if err := db.Close(); err != nil {
			logger.Error("failed to close db", zap.Error(err))
		}
		drop()
	}

	return db, cleanup, nil
}

// TruncateTables empties every table and restarts id sequences, keeping the schema
func TruncateTables(ctx context.Context, db *database.DB) error {
	query := `TRUNCATE TABLE join_sounds, favorite_sounds, sounds, servers RESTART IDENTITY CASCADE`
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to truncate tables: %w", err)
	}
	return nil
}

// SeedTestData inserts a guild with default settings and one public sound it owns.
// The sound is returned with its assigned ID.
func SeedTestData(ctx context.Context, db *database.DB) (*models.Sound, error) {
	if _, err := db.GetGuildConfig(ctx, TestGuildID); err != nil {
		return nil, fmt.Errorf("failed to seed test guild: %w", err)
	}

	sound := GeneratePublicSound("airhorn", TestGuildID, TestUserID)
	if err := db.CreateSound(ctx, sound, GenerateSource(64)); err != nil {
		return nil, fmt.Errorf("failed to seed test sound: %w", err)
	}

	return sound, nil
}
