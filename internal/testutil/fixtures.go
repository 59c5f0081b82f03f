package testutil

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"

	"github.com/parsascontentcorner/soundfx/internal/database"
	"github.com/parsascontentcorner/soundfx/internal/models"
)

// Snowflakes used by fixtures. Distinct so mixed-up arguments show up in assertions.
const (
	TestGuildID      int64 = 100000000000000001
	TestOtherGuildID int64 = 100000000000000002
	TestUserID       int64 = 200000000000000001
	TestOtherUserID  int64 = 200000000000000002
)

// GeneratePublicSound creates an unsaved public sound uploaded by uploaderID in guildID.
func GeneratePublicSound(name string, guildID, uploaderID int64) *models.Sound {
	return &models.Sound{
		Name:       name,
		Public:     true,
		ServerID:   guildID,
		UploaderID: sql.NullInt64{Int64: uploaderID, Valid: true},
	}
}

// GeneratePrivateSound creates an unsaved private sound uploaded by uploaderID in guildID.
func GeneratePrivateSound(name string, guildID, uploaderID int64) *models.Sound {
	sound := GeneratePublicSound(name, guildID, uploaderID)
	sound.Public = false
	return sound
}

// GenerateOrphanSound creates an unsaved sound whose uploader is unknown.
func GenerateOrphanSound(name string, guildID int64, public bool) *models.Sound {
	return &models.Sound{
		Name:     name,
		Public:   public,
		ServerID: guildID,
	}
}

// GenerateSource returns n random bytes standing in for encoded audio.
func GenerateSource(n int) []byte {
	src := make([]byte, n)
	if _, err := rand.Read(src); err != nil {
		panic(fmt.Sprintf("failed to generate sound source: %v", err))
	}
	return src
}

// CreateSounds stores count public sounds named prefix0..prefixN of guildID uploaded by
// uploaderID, returning them in insertion order.
func CreateSounds(ctx context.Context, db *database.DB, prefix string, count int, guildID, uploaderID int64) ([]*models.Sound, error) {
	sounds := make([]*models.Sound, 0, count)
	for i := 0; i < count; i++ {
		sound := GeneratePublicSound(fmt.Sprintf("%s%d", prefix, i), guildID, uploaderID)
		if err := db.CreateSound(ctx, sound, GenerateSource(16)); err != nil {
			return nil, fmt.Errorf("failed to create sound %d: %w", i, err)
		}
		sounds = append(sounds, sound)
	}
	return sounds, nil
}

// Bound wraps a sound ID as a join sound binding.
func Bound(soundID int64) sql.NullInt64 {
	return sql.NullInt64{Int64: soundID, Valid: true}
}
