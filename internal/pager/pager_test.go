package pager

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	want := State{Nonce: 3, Page: 2, Context: ContextGuild}

	id, err := Encode(want)
	require.NoError(t, err)

	got, err := Decode(id)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestEncode_FitsCustomID(t *testing.T) {
	id, err := Encode(State{Nonce: 255, Page: 1 << 30, Context: ContextFavorite})
	require.NoError(t, err)

	// Discord custom ids are limited to 100 characters
	assert.LessOrEqual(t, len(id), 100)
}

func TestEncode_RejectsInvalidState(t *testing.T) {
	_, err := Encode(State{Context: "bogus"})
	assert.Error(t, err)

	_, err = Encode(State{Page: -1, Context: ContextUser})
	assert.Error(t, err)
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		id   string
	}{
		{name: "soundboard play button", id: "42#instant"},
		{name: "soundboard stop button", id: "#stop"},
		{name: "empty", id: ""},
		{name: "truncated", id: `{"v":1,"n":0`},
		{name: "unknown version", id: `{"v":9,"n":0,"p":0,"c":"user"}`},
		{name: "unknown context", id: `{"v":1,"n":0,"p":0,"c":"channel"}`},
		{name: "negative page", id: `{"v":1,"n":0,"p":-2,"c":"user"}`},
		{name: "unknown field", id: `{"v":1,"n":0,"p":0,"c":"user","x":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.id)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDecode)
		})
	}
}

func TestMaxPage(t *testing.T) {
	tests := []struct {
		total int64
		want  int
	}{
		{total: 0, want: 0},
		{total: 1, want: 0},
		{total: 24, want: 0},
		{total: 25, want: 1},
		{total: 26, want: 1},
		{total: 51, want: 2},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, MaxPage(tt.total), "total=%d", tt.total)
	}
}

func TestControls_FirstPage(t *testing.T) {
	controls, err := Controls(State{Page: 0, Context: ContextUser}, MaxPage(26))
	require.NoError(t, err)
	require.Len(t, controls, 5)

	assert.True(t, controls[0].Disabled, "first")
	assert.True(t, controls[1].Disabled, "previous")
	assert.True(t, controls[2].Disabled, "current")
	assert.False(t, controls[3].Disabled, "next")
	assert.False(t, controls[4].Disabled, "last")

	next, err := Decode(controls[3].CustomID)
	require.NoError(t, err)
	assert.Equal(t, 1, next.Page)
	assert.Equal(t, ContextUser, next.Context)
}

func TestControls_LastPage(t *testing.T) {
	controls, err := Controls(State{Page: 1, Context: ContextGuild}, MaxPage(26))
	require.NoError(t, err)

	assert.False(t, controls[0].Disabled)
	assert.False(t, controls[1].Disabled)
	assert.True(t, controls[2].Disabled)
	assert.True(t, controls[3].Disabled, "next")
	assert.True(t, controls[4].Disabled, "last")

	prev, err := Decode(controls[1].CustomID)
	require.NoError(t, err)
	assert.Equal(t, 0, prev.Page)
}

func TestControls_CurrentCarriesCurrentPage(t *testing.T) {
	controls, err := Controls(State{Page: 3, Context: ContextFavorite}, 7)
	require.NoError(t, err)

	current, err := Decode(controls[2].CustomID)
	require.NoError(t, err)
	assert.Equal(t, 3, current.Page)
	assert.Equal(t, ContextFavorite, current.Context)
	assert.True(t, strings.Contains(controls[2].Label, "4"))

	last, err := Decode(controls[4].CustomID)
	require.NoError(t, err)
	assert.Equal(t, 7, last.Page)
}

func TestControls_CustomIDsAreDistinct(t *testing.T) {
	// On a single page every target is page 0
	controls, err := Controls(State{Page: 0, Context: ContextUser}, 0)
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, c := range controls {
		assert.False(t, seen[c.CustomID], "duplicate custom id %s", c.CustomID)
		seen[c.CustomID] = true
	}
}
