package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/parsascontentcorner/soundfx/internal/models"
)

// GetJoinSound resolves the sound played when userID joins voice in scope.
// With guildOnly only a binding for that exact guild is eligible; otherwise a guild
// binding wins over the global one. The result is NULL when nothing is bound.
func (db *DB) GetJoinSound(ctx context.Context, userID int64, scope models.Scope, guildOnly bool) (sql.NullInt64, error) {
	query := `
		SELECT join_sound_id
		FROM join_sounds
		WHERE user_id = $1
		  AND (guild_id = $2 OR (NOT $3::boolean AND guild_id IS NULL))
		ORDER BY guild_id IS NULL
		LIMIT 1
	`

	var soundID sql.NullInt64
	err := db.QueryRowContext(ctx, query, userID, scope, guildOnly).Scan(&soundID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sql.NullInt64{}, nil
		}
		return sql.NullInt64{}, fmt.Errorf("failed to get join sound: %w", err)
	}

	return soundID, nil
}

// SetJoinSound replaces the binding of userID in scope. A NULL soundID only removes it.
// Delete and insert share one transaction so the pair never holds two rows or none
// after a failed insert.
func (db *DB) SetJoinSound(ctx context.Context, userID int64, scope models.Scope, soundID sql.NullInt64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	deleteQuery := `DELETE FROM join_sounds WHERE user_id = $1 AND guild_id IS NOT DISTINCT FROM $2`
	if _, err := tx.ExecContext(ctx, deleteQuery, userID, scope); err != nil {
		return fmt.Errorf("failed to delete join sound: %w", err)
	}

	if soundID.Valid {
		insertQuery := `
			INSERT INTO join_sounds (user_id, guild_id, join_sound_id)
			VALUES ($1, $2, $3)
		`
		if _, err := tx.ExecContext(ctx, insertQuery, userID, scope, soundID.Int64); err != nil {
			return fmt.Errorf("failed to insert join sound: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit join sound: %w", err)
	}

	return nil
}
