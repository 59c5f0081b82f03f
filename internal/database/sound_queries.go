package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/parsascontentcorner/soundfx/internal/models"
)

const soundColumns = `s.id, s.name, s.public, s.server_id, s.uploader_id`

// visibleTo restricts rows to sounds that are public, uploaded by $2 or owned by guild $3
const visibleTo = `(s.public OR s.uploader_id = $2 OR s.server_id = $3)`

// rankedOrder puts the caller's own sounds first, then favorites, then sounds of the
// current guild, then public ones. random() breaks the remaining ties on every call.
const rankedOrder = `
		ORDER BY
			COALESCE(s.uploader_id = $2, FALSE) DESC,
			EXISTS(
				SELECT 1 FROM favorite_sounds f
				WHERE f.sound_id = s.id AND f.user_id = $2
			) DESC,
			(s.server_id = $3) DESC,
			s.public DESC,
			random()`

// ParseSoundQuery extracts a sound id from a query that is either a bare unsigned
// integer or "id:<integer>" (prefix case-insensitive).
func ParseSoundQuery(query string) (int64, bool) {
	digits := query
	if len(query) > 3 && strings.EqualFold(query[:3], "id:") {
		digits = query[3:]
	}

	id, err := strconv.ParseUint(digits, 10, 63)
	if err != nil {
		return 0, false
	}

	return int64(id), true
}

// SearchSounds resolves a query to the sounds visible to userID in guildID.
// Id queries return at most one sound. Name queries match exactly when strict is
// set and by case-insensitive substring otherwise, best candidates first.
func (db *DB) SearchSounds(ctx context.Context, query string, guildID, userID int64, strict bool) ([]*models.Sound, error) {
	if id, ok := ParseSoundQuery(query); ok {
		q := `
			SELECT ` + soundColumns + `
			FROM sounds s
			WHERE s.id = $1 AND ` + visibleTo

		return db.querySounds(ctx, q, id, userID, guildID)
	}

	match := `s.name = $1`
	if !strict {
		match = `strpos(lower(s.name), lower($1)) > 0`
	}

	q := `
		SELECT ` + soundColumns + `
		FROM sounds s
		WHERE ` + match + ` AND ` + visibleTo + rankedOrder

	return db.querySounds(ctx, q, query, userID, guildID)
}

// AutocompleteUserSounds returns up to PageSize sounds whose name starts with prefix
// and that the user could play from guildID, including their favorites.
func (db *DB) AutocompleteUserSounds(ctx context.Context, prefix string, userID, guildID int64) ([]*models.Sound, error) {
	query := `
		SELECT ` + soundColumns + `
		FROM sounds s
		WHERE starts_with(lower(s.name), lower($1))
		  AND (
			` + visibleTo + `
			OR EXISTS(
				SELECT 1 FROM favorite_sounds f
				WHERE f.sound_id = s.id AND f.user_id = $2
			)
		  )
		ORDER BY COALESCE(s.uploader_id = $2, FALSE) DESC, (s.server_id = $3) DESC, s.id DESC
		LIMIT $4
	`

	return db.querySounds(ctx, query, prefix, userID, guildID, PageSize)
}

// AutocompleteFavoriteSounds returns up to PageSize of the user's favorites whose
// name starts with prefix
func (db *DB) AutocompleteFavoriteSounds(ctx context.Context, prefix string, userID int64) ([]*models.Sound, error) {
	query := `
		SELECT ` + soundColumns + `
		FROM sounds s
		INNER JOIN favorite_sounds f ON s.id = f.sound_id
		WHERE f.user_id = $2 AND starts_with(lower(s.name), lower($1))
		ORDER BY s.id DESC
		LIMIT $3
	`

	return db.querySounds(ctx, query, prefix, userID, PageSize)
}

// UserSounds returns one page of the sounds uploaded by userID, newest first
func (db *DB) UserSounds(ctx context.Context, userID int64, page int) ([]*models.Sound, error) {
	query := `
		SELECT ` + soundColumns + `
		FROM sounds s
		WHERE s.uploader_id = $1
		ORDER BY s.id DESC
		LIMIT $2 OFFSET $3
	`

	return db.querySounds(ctx, query, userID, PageSize, pageOffset(page))
}

// GuildSounds returns one page of the sounds owned by guildID, newest first
func (db *DB) GuildSounds(ctx context.Context, guildID int64, page int) ([]*models.Sound, error) {
	query := `
		SELECT ` + soundColumns + `
		FROM sounds s
		WHERE s.server_id = $1
		ORDER BY s.id DESC
		LIMIT $2 OFFSET $3
	`

	return db.querySounds(ctx, query, guildID, PageSize, pageOffset(page))
}

// FavoriteSounds returns one page of the sounds favorited by userID, newest first
func (db *DB) FavoriteSounds(ctx context.Context, userID int64, page int) ([]*models.Sound, error) {
	query := `
		SELECT ` + soundColumns + `
		FROM sounds s
		INNER JOIN favorite_sounds f ON s.id = f.sound_id
		WHERE f.user_id = $1
		ORDER BY s.id DESC
		LIMIT $2 OFFSET $3
	`

	return db.querySounds(ctx, query, userID, PageSize, pageOffset(page))
}

// CountUserSounds counts the sounds uploaded by userID
func (db *DB) CountUserSounds(ctx context.Context, userID int64) (int64, error) {
	return db.count(ctx, `SELECT COUNT(*) FROM sounds WHERE uploader_id = $1`, userID)
}

// CountGuildSounds counts the sounds owned by guildID
func (db *DB) CountGuildSounds(ctx context.Context, guildID int64) (int64, error) {
	return db.count(ctx, `SELECT COUNT(*) FROM sounds WHERE server_id = $1`, guildID)
}

// CountFavoriteSounds counts the sounds favorited by userID
func (db *DB) CountFavoriteSounds(ctx context.Context, userID int64) (int64, error) {
	return db.count(ctx, `SELECT COUNT(*) FROM favorite_sounds WHERE user_id = $1`, userID)
}

// CountNamedUserSounds counts the sounds uploaded by userID under exactly name
func (db *DB) CountNamedUserSounds(ctx context.Context, userID int64, name string) (int64, error) {
	return db.count(ctx, `SELECT COUNT(*) FROM sounds WHERE uploader_id = $1 AND name = $2`, userID, name)
}

// GetSoundByID retrieves a sound without any visibility check
func (db *DB) GetSoundByID(ctx context.Context, id int64) (*models.Sound, error) {
	query := `SELECT ` + soundColumns + ` FROM sounds s WHERE s.id = $1`

	sound, err := scanSound(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("sound %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get sound: %w", err)
	}

	return sound, nil
}

// RandomGuildSound picks any sound owned by guildID
func (db *DB) RandomGuildSound(ctx context.Context, guildID int64) (*models.Sound, error) {
	query := `
		SELECT ` + soundColumns + `
		FROM sounds s
		WHERE s.server_id = $1
		ORDER BY random()
		LIMIT 1
	`

	sound, err := scanSound(db.QueryRowContext(ctx, query, guildID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no sounds in guild %d: %w", guildID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to pick random sound: %w", err)
	}

	return sound, nil
}

// GetSoundSource loads the encoded audio of a sound
func (db *DB) GetSoundSource(ctx context.Context, id int64) ([]byte, error) {
	var src []byte
	err := db.QueryRowContext(ctx, `SELECT src FROM sounds WHERE id = $1`, id).Scan(&src)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("sound %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get sound source: %w", err)
	}

	return src, nil
}

// CreateSound inserts a sound with its encoded source and sets its ID
func (db *DB) CreateSound(ctx context.Context, sound *models.Sound, src []byte) error {
	query := `
		INSERT INTO sounds (name, public, server_id, uploader_id, src)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	err := db.QueryRowContext(ctx, query,
		sound.Name,
		sound.Public,
		sound.ServerID,
		sound.UploaderID,
		src,
	).Scan(&sound.ID)
	if err != nil {
		return fmt.Errorf("failed to create sound: %w", err)
	}

	return nil
}

// UpdateSoundVisibility persists the public flag of a sound
func (db *DB) UpdateSoundVisibility(ctx context.Context, sound *models.Sound) error {
	result, err := db.ExecContext(ctx, `UPDATE sounds SET public = $1 WHERE id = $2`, sound.Public, sound.ID)
	if err != nil {
		return fmt.Errorf("failed to update sound: %w", err)
	}

	return expectAffected(result, fmt.Sprintf("sound %d", sound.ID))
}

// DeleteSound removes a sound. Favorites and join sound bindings cascade.
func (db *DB) DeleteSound(ctx context.Context, id int64) error {
	result, err := db.ExecContext(ctx, `DELETE FROM sounds WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete sound: %w", err)
	}

	return expectAffected(result, fmt.Sprintf("sound %d", id))
}

// AddFavorite marks a sound as a favorite of userID. Adding twice is a no-op.
func (db *DB) AddFavorite(ctx context.Context, userID, soundID int64) error {
	query := `
		INSERT INTO favorite_sounds (user_id, sound_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, sound_id) DO NOTHING
	`

	if _, err := db.ExecContext(ctx, query, userID, soundID); err != nil {
		return fmt.Errorf("failed to add favorite: %w", err)
	}

	return nil
}

// RemoveFavorite unmarks a favorite
func (db *DB) RemoveFavorite(ctx context.Context, userID, soundID int64) error {
	query := `DELETE FROM favorite_sounds WHERE user_id = $1 AND sound_id = $2`

	if _, err := db.ExecContext(ctx, query, userID, soundID); err != nil {
		return fmt.Errorf("failed to remove favorite: %w", err)
	}

	return nil
}

func (db *DB) querySounds(ctx context.Context, query string, args ...interface{}) ([]*models.Sound, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sounds: %w", err)
	}
	defer rows.Close()

	sounds := make([]*models.Sound, 0)
	for rows.Next() {
		sound, err := scanSound(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sound: %w", err)
		}
		sounds = append(sounds, sound)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sounds: %w", err)
	}

	return sounds, nil
}

func (db *DB) count(ctx context.Context, query string, args ...interface{}) (int64, error) {
	var n int64
	if err := db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count sounds: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSound(row rowScanner) (*models.Sound, error) {
	var sound models.Sound
	err := row.Scan(
		&sound.ID,
		&sound.Name,
		&sound.Public,
		&sound.ServerID,
		&sound.UploaderID,
	)
	if err != nil {
		return nil, err
	}
	return &sound, nil
}

func pageOffset(page int) int {
	if page < 0 {
		page = 0
	}
	return page * PageSize
}

func expectAffected(result sql.Result, what string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}

	return nil
}
