package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/parsascontentcorner/soundfx/internal/config"
)

// PremiumChecker grants unlimited uploads to holders of a role in a support guild
type PremiumChecker struct {
	session *discordgo.Session
	guildID string
	roleID  string
}

// NewPremiumChecker returns nil when no premium role is configured
func NewPremiumChecker(session *discordgo.Session, cfg config.SoundsConfig) *PremiumChecker {
	if !cfg.PremiumEnabled() {
		return nil
	}
	return &PremiumChecker{
		session: session,
		guildID: cfg.PatreonGuildID,
		roleID:  cfg.PatreonRoleID,
	}
}

// IsPremium reports whether userID holds the premium role
func (p *PremiumChecker) IsPremium(ctx context.Context, userID int64) (bool, error) {
	if p == nil {
		return false, nil
	}

	member, err := p.session.GuildMember(p.guildID, formatID(userID), discordgo.WithContext(ctx))
	if err != nil {
		return false, fmt.Errorf("failed to fetch premium guild member: %w", err)
	}

	for _, role := range member.Roles {
		if role == p.roleID {
			return true, nil
		}
	}
	return false, nil
}
