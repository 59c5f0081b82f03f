package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/parsascontentcorner/soundfx/internal/config"
)

// schemaVersion is the number of the newest migration in migrations/
const schemaVersion = 4

func countTables(t *testing.T, db *DB) int {
	t.Helper()

	var n int
	err := db.QueryRowContext(context.Background(), `
		SELECT COUNT(*)
		FROM information_schema.tables
		WHERE table_schema = 'public'
		AND table_name IN ('servers', 'sounds', 'join_sounds', 'favorite_sounds')
	`).Scan(&n)
	require.NoError(t, err)
	return n
}

// emptyDB connects to a fresh database without running migrations
func emptyDB(t *testing.T) *DB {
	t.Helper()

	cfg, drop, err := createDatabase(context.Background())
	require.NoError(t, err)
	t.Cleanup(drop)

	db, err := NewDB(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

// ============================================================================
// Connection Tests
// ============================================================================

func TestNewDB_Success(t *testing.T) {
	ctx := context.Background()
	admin, err := startContainer(ctx)
	require.NoError(t, err)

	admin.MaxOpenConns = 7
	db, err := NewDB(&admin, zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, 7, db.Stats().MaxOpenConnections)

	var result int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT 1").Scan(&result))
	assert.Equal(t, 1, result)
}

func TestNewDB_InvalidCredentials(t *testing.T) {
	admin, err := startContainer(context.Background())
	require.NoError(t, err)

	admin.Password = "wrong"
	db, err := NewDB(&admin, zap.NewNop())

	assert.Error(t, err)
	assert.Nil(t, db)
	assert.Contains(t, err.Error(), "failed to ping database")
}

func TestNewDB_Unreachable(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host:         "127.0.0.1",
		Port:         "1",
		User:         "soundfx",
		Password:     "soundfx",
		Name:         "soundfx",
		SSLMode:      "disable",
		MaxOpenConns: 1,
		MaxIdleConns: 1,
	}

	db, err := NewDB(cfg, zap.NewNop())

	assert.Error(t, err)
	assert.Nil(t, db)
}

func TestDBHealth(t *testing.T) {
	db := emptyDB(t)

	assert.NoError(t, db.Health(context.Background()))

	require.NoError(t, db.Close())

	err := db.Health(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "database health check failed")
}

func TestDBHealth_CanceledContext(t *testing.T) {
	db := emptyDB(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, db.Health(ctx))
}

// ============================================================================
// Migration Tests
// ============================================================================

func TestRunMigrations_CreatesSchema(t *testing.T) {
	db := emptyDB(t)

	_, _, ok, err := db.SchemaVersion("migrations")
	require.NoError(t, err)
	assert.False(t, ok, "Fresh database has no schema version")

	require.NoError(t, db.RunMigrations("migrations"))
	assert.Equal(t, 4, countTables(t, db))

	version, dirty, ok, err := db.SchemaVersion("migrations")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, dirty)
	assert.Equal(t, uint(schemaVersion), version)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	db := emptyDB(t)

	require.NoError(t, db.RunMigrations("migrations"))
	assert.NoError(t, db.RunMigrations("migrations"), "Second run should be a no-op")
	assert.Equal(t, 4, countTables(t, db))
}

func TestMigrateSteps_RollbackAndReapply(t *testing.T) {
	db := emptyDB(t)
	require.NoError(t, db.RunMigrations("migrations"))

	// Dropping join_sounds only
	require.NoError(t, db.MigrateSteps("migrations", -1))
	assert.Equal(t, 3, countTables(t, db))

	version, _, ok, err := db.SchemaVersion("migrations")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, uint(schemaVersion-1), version)

	require.NoError(t, db.MigrateSteps("migrations", 1))
	assert.Equal(t, 4, countTables(t, db))

	require.NoError(t, db.MigrateSteps("migrations", -schemaVersion))
	assert.Equal(t, 0, countTables(t, db))

	_, _, ok, err = db.SchemaVersion("migrations")
	require.NoError(t, err)
	assert.False(t, ok, "Everything rolled back")
}

func TestRunMigrations_InvalidPath(t *testing.T) {
	db := emptyDB(t)

	err := db.RunMigrations("/nonexistent/path/to/migrations")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create migrate instance")
}

func TestSetupTestDB_Isolated(t *testing.T) {
	ctx := context.Background()

	first, cleanupFirst, err := setupTestDB(ctx)
	require.NoError(t, err)
	defer cleanupFirst()

	second, cleanupSecond, err := setupTestDB(ctx)
	require.NoError(t, err)
	defer cleanupSecond()

	_, err = first.GetGuildConfig(ctx, 1)
	require.NoError(t, err)

	var n int
	require.NoError(t, second.QueryRowContext(ctx, `SELECT COUNT(*) FROM servers`).Scan(&n))
	assert.Zero(t, n, "Databases of different tests must not share rows")
}
