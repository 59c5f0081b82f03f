package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"

	"github.com/parsascontentcorner/soundfx/internal/pager"
)

var listContexts = map[string]pager.Context{
	"list user":     pager.ContextUser,
	"list server":   pager.ContextGuild,
	"list favorite": pager.ContextFavorite,
}

func (bot *Bot) handleSearch(ctx context.Context, req *request) error {
	query, _ := req.stringOption("query")

	results, err := bot.sounds.ResolveSound(ctx, query, req.guildID, req.userID, false)
	if err != nil {
		return err
	}

	return req.respond(&discordgo.InteractionResponseData{
		Embeds: []*discordgo.MessageEmbed{searchEmbed(results)},
	})
}

func (bot *Bot) handleList(ctx context.Context, req *request) error {
	listCtx, ok := listContexts[req.path]
	if !ok {
		return fmt.Errorf("no list context for %q", req.path)
	}

	data, err := bot.renderPage(ctx, req, pager.State{Context: listCtx})
	if err != nil {
		return err
	}
	data.Flags = discordgo.MessageFlagsEphemeral

	return req.respond(data)
}

// renderPage loads a page of sounds and renders the embed with its paging row
func (bot *Bot) renderPage(ctx context.Context, req *request, state pager.State) (*discordgo.InteractionResponseData, error) {
	page, err := bot.sounds.ListPage(ctx, state, req.userID, req.guildID)
	if err != nil {
		return nil, err
	}

	row, err := pagerRow(page)
	if err != nil {
		return nil, err
	}

	return &discordgo.InteractionResponseData{
		Embeds:     []*discordgo.MessageEmbed{listEmbed(page)},
		Components: []discordgo.MessageComponent{row},
	}, nil
}

// handlePagerClick re-renders the listing a paging button belongs to, in place
func (bot *Bot) handlePagerClick(ctx context.Context, req *request, state pager.State) error {
	data, err := bot.renderPage(ctx, req, state)
	if err != nil {
		return err
	}
	return req.update(data)
}
