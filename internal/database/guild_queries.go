package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/parsascontentcorner/soundfx/internal/models"
)

// GetGuildConfig retrieves the settings of a guild, creating the row with defaults
// the first time the guild is seen
func (db *DB) GetGuildConfig(ctx context.Context, guildID int64) (*models.GuildConfig, error) {
	cfg, err := db.selectGuildConfig(ctx, guildID)
	if err == nil {
		return cfg, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	// Concurrent first accesses race on the insert; the loser keeps the winner's row.
	defaults := models.NewGuildConfig(guildID)
	query := `
		INSERT INTO servers (id, prefix, volume, allow_greets, allowed_role)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`

	_, err = db.ExecContext(ctx, query,
		defaults.ID,
		defaults.Prefix,
		defaults.Volume,
		defaults.AllowGreets,
		defaults.AllowedRole,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create guild config: %w", err)
	}

	db.logger.Debug("created guild config", zap.Int64("guild_id", guildID))

	return db.selectGuildConfig(ctx, guildID)
}

// UpdateGuildConfig persists every field of a guild's settings
func (db *DB) UpdateGuildConfig(ctx context.Context, cfg *models.GuildConfig) error {
	query := `
		UPDATE servers
		SET prefix = $1,
		    volume = $2,
		    allow_greets = $3,
		    allowed_role = $4
		WHERE id = $5
	`

	result, err := db.ExecContext(ctx, query,
		cfg.Prefix,
		cfg.Volume,
		cfg.AllowGreets,
		cfg.AllowedRole,
		cfg.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update guild config: %w", err)
	}

	return expectAffected(result, fmt.Sprintf("guild %d", cfg.ID))
}

func (db *DB) selectGuildConfig(ctx context.Context, guildID int64) (*models.GuildConfig, error) {
	query := `
		SELECT id, prefix, volume, allow_greets, allowed_role
		FROM servers
		WHERE id = $1
	`

	var cfg models.GuildConfig
	err := db.QueryRowContext(ctx, query, guildID).Scan(
		&cfg.ID,
		&cfg.Prefix,
		&cfg.Volume,
		&cfg.AllowGreets,
		&cfg.AllowedRole,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("guild %d: %w", guildID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get guild config: %w", err)
	}

	return &cfg, nil
}
