package models

import "database/sql"

// Sound is an uploaded audio clip. The encoded source lives in the store and is
// only loaded for playback or download.
type Sound struct {
	ID         int64         `json:"id"`
	Name       string        `json:"name"`
	Public     bool          `json:"public"`
	ServerID   int64         `json:"server_id"`
	UploaderID sql.NullInt64 `json:"uploader_id"`
}

// Equal reports whether two sounds refer to the same row. Other fields may be stale.
func (s *Sound) Equal(other *Sound) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.ID == other.ID
}

// UploadedBy reports whether userID uploaded the sound.
func (s *Sound) UploadedBy(userID int64) bool {
	return s.UploaderID.Valid && s.UploaderID.Int64 == userID
}

// VisibleTo reports whether the sound may be resolved by userID from guildID.
func (s *Sound) VisibleTo(userID, guildID int64) bool {
	return s.Public || s.UploadedBy(userID) || s.ServerID == guildID
}
