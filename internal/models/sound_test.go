package models

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
)

// ============================================================================
// Sound Tests
// ============================================================================

func uploaded(userID int64) sql.NullInt64 {
	return sql.NullInt64{Int64: userID, Valid: true}
}

func TestSound_UploadedBy(t *testing.T) {
	sound := &Sound{ID: 1, Name: "airhorn", ServerID: 10, UploaderID: uploaded(100)}

	assert.True(t, sound.UploadedBy(100))
	assert.False(t, sound.UploadedBy(101))
}

func TestSound_UploadedBy_Orphan(t *testing.T) {
	// Uploader left and the column was cleared
	sound := &Sound{ID: 1, Name: "airhorn", ServerID: 10}

	assert.False(t, sound.UploadedBy(0), "Zero user must not match a NULL uploader")
}

func TestSound_VisibleTo(t *testing.T) {
	tests := []struct {
		name     string
		sound    Sound
		userID   int64
		guildID  int64
		expected bool
	}{
		{"Public from anywhere", Sound{Public: true, ServerID: 10, UploaderID: uploaded(100)}, 200, 20, true},
		{"Private by uploader elsewhere", Sound{ServerID: 10, UploaderID: uploaded(100)}, 100, 20, true},
		{"Private in owning guild", Sound{ServerID: 10, UploaderID: uploaded(100)}, 200, 10, true},
		{"Private elsewhere", Sound{ServerID: 10, UploaderID: uploaded(100)}, 200, 20, false},
		{"Orphan private elsewhere", Sound{ServerID: 10}, 0, 20, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.sound.VisibleTo(tt.userID, tt.guildID))
		})
	}
}

func TestSound_Equal(t *testing.T) {
	a := &Sound{ID: 1, Name: "airhorn"}
	renamed := &Sound{ID: 1, Name: "horn", Public: true}
	other := &Sound{ID: 2, Name: "airhorn"}

	assert.True(t, a.Equal(renamed), "Same row with stale fields")
	assert.False(t, a.Equal(other))
	assert.False(t, a.Equal(nil))

	var none *Sound
	assert.True(t, none.Equal(nil))
}

// ============================================================================
// Scope Tests
// ============================================================================

func TestScopes(t *testing.T) {
	assert.False(t, GlobalScope.Valid)

	scope := GuildScope(10)
	assert.True(t, scope.Valid)
	assert.Equal(t, int64(10), scope.Int64)
	assert.NotEqual(t, GlobalScope, scope)
}
