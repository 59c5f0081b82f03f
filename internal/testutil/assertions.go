package testutil

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/parsascontentcorner/soundfx/internal/models"
)

// AssertSoundEqual performs a deep comparison of two Sound objects.
func AssertSoundEqual(t *testing.T, expected, actual *models.Sound) {
	t.Helper()

	if !assert.NotNil(t, actual, "sound should not be nil") {
		return
	}

	assert.Equal(t, expected.ID, actual.ID, "ID should match")
	assert.Equal(t, expected.Name, actual.Name, "Name should match")
	assert.Equal(t, expected.Public, actual.Public, "Public should match")
	assert.Equal(t, expected.ServerID, actual.ServerID, "ServerID should match")
	assert.Equal(t, expected.UploaderID, actual.UploaderID, "UploaderID should match")
}

// SoundIDs lists the IDs of sounds in order.
func SoundIDs(sounds []*models.Sound) []int64 {
	ids := make([]int64, 0, len(sounds))
	for _, s := range sounds {
		ids = append(ids, s.ID)
	}
	return ids
}

// AssertSoundIDs checks that actual holds exactly the expected IDs, in order.
func AssertSoundIDs(t *testing.T, expected []int64, actual []*models.Sound) {
	t.Helper()

	assert.Equal(t, expected, SoundIDs(actual), "sound IDs should match in order")
}

// AssertJoinSound checks a resolved join sound binding.
func AssertJoinSound(t *testing.T, expectedSoundID int64, actual sql.NullInt64) {
	t.Helper()

	assert.True(t, actual.Valid, "binding should be set")
	assert.Equal(t, expectedSoundID, actual.Int64, "bound sound should match")
}
