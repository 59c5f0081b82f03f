package models

import "database/sql"

// Scope selects which join sound binding applies. An invalid (NULL) scope is the
// user's global binding, a valid one is bound to a single guild.
type Scope = sql.NullInt64

// GlobalScope is the scope of bindings that apply in every guild
var GlobalScope = Scope{}

// GuildScope returns the scope of bindings that only apply in guildID
func GuildScope(guildID int64) Scope {
	return Scope{Int64: guildID, Valid: true}
}

