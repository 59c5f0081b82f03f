package bot

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"

	"github.com/parsascontentcorner/soundfx/internal/models"
	"github.com/parsascontentcorner/soundfx/internal/pager"
	"github.com/parsascontentcorner/soundfx/internal/sounds"
)

const (
	themeColor = 0x00e0f3

	// messageLimit bounds the characters of embed fields we render
	messageLimit  = 2000
	maxFields     = 25
	buttonsPerRow = 5
)

// Soundboard control ids. Sound buttons carry the sound id, optionally
// followed by "#" and the selected mode.
const (
	boardStop    = "#stop"
	boardMode    = "#mode"
	boardInstant = "#instant"
	boardLoop    = "#loop"
	boardQueue   = "#queue"
)

var listTitles = map[pager.Context]string{
	pager.ContextUser:     "Your sounds",
	pager.ContextGuild:    "Server sounds",
	pager.ContextFavorite: "Your favorite sounds",
}

func visibility(s *models.Sound) string {
	if s.Public {
		return "*Public*"
	}
	return "*Private*"
}

// listEmbed renders one page of a sound listing
func listEmbed(page *sounds.Page) *discordgo.MessageEmbed {
	fields := make([]*discordgo.MessageEmbedField, 0, len(page.Sounds))
	for _, s := range page.Sounds {
		fields = append(fields, &discordgo.MessageEmbedField{
			Name:   s.Name,
			Value:  fmt.Sprintf("ID: `%d`\n%s", s.ID, visibility(s)),
			Inline: true,
		})
	}

	return &discordgo.MessageEmbed{
		Title:       listTitles[page.State.Context],
		Description: fmt.Sprintf("**%s** sounds:", humanize.Comma(page.Total)),
		Color:       themeColor,
		Fields:      fields,
	}
}

// pagerRow renders the paging buttons of a listing
func pagerRow(page *sounds.Page) (discordgo.ActionsRow, error) {
	controls, err := pager.Controls(page.State, page.MaxPage)
	if err != nil {
		return discordgo.ActionsRow{}, err
	}

	styles := []discordgo.ButtonStyle{
		discordgo.PrimaryButton,
		discordgo.SecondaryButton,
		discordgo.SuccessButton,
		discordgo.SecondaryButton,
		discordgo.PrimaryButton,
	}

	row := discordgo.ActionsRow{}
	for n, c := range controls {
		row.Components = append(row.Components, discordgo.Button{
			Label:    c.Label,
			Style:    styles[n%len(styles)],
			Disabled: c.Disabled,
			CustomID: c.CustomID,
		})
	}

	return row, nil
}

// searchEmbed renders search results, dropping fields past the message limit
func searchEmbed(results []*models.Sound) *discordgo.MessageEmbed {
	const title = "Public sounds matching filter:"

	embed := &discordgo.MessageEmbed{Title: title, Color: themeColor}
	if len(results) == 0 {
		embed.Description = "No sounds found."
		return embed
	}

	used := len(title)
	for n, s := range results {
		if n == maxFields {
			break
		}
		value := fmt.Sprintf("ID: %d", s.ID)
		used += len(s.Name) + len(value)
		if used > messageLimit {
			break
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   s.Name,
			Value:  value,
			Inline: true,
		})
	}

	return embed
}

// soundboardComponents renders one button per distinct sound, five per row,
// followed by the stop and mode controls
func soundboardComponents(board []*models.Sound) []discordgo.MessageComponent {
	var (
		rows []discordgo.MessageComponent
		row  discordgo.ActionsRow
		seen = make(map[int64]bool, len(board))
	)

	for _, s := range board {
		if seen[s.ID] {
			continue
		}
		seen[s.ID] = true

		row.Components = append(row.Components, discordgo.Button{
			Label:    s.Name,
			Style:    discordgo.PrimaryButton,
			CustomID: formatID(s.ID),
		})
		if len(row.Components) == buttonsPerRow {
			rows = append(rows, row)
			row = discordgo.ActionsRow{}
		}
	}
	if len(row.Components) > 0 {
		rows = append(rows, row)
	}

	return append(rows, discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "⏹ Stop", Style: discordgo.DangerButton, CustomID: boardStop},
			discordgo.Button{Label: "Mode:", Style: discordgo.SecondaryButton, CustomID: boardMode, Disabled: true},
			discordgo.Button{Label: "▶ Instant", Style: discordgo.SecondaryButton, CustomID: boardInstant, Disabled: true},
			discordgo.Button{Label: "🔁 Loop", Style: discordgo.SecondaryButton, CustomID: boardLoop},
		},
	})
}

func isBoardMode(id string) bool {
	return id == boardInstant || id == boardLoop || id == boardQueue
}

// switchBoardMode rewrites a soundboard for mode: sound buttons get the mode
// appended to their id and the selected mode button is disabled
func switchBoardMode(components []discordgo.MessageComponent, mode string) []discordgo.MessageComponent {
	out := make([]discordgo.MessageComponent, 0, len(components))

	for _, c := range components {
		var buttons []discordgo.MessageComponent
		switch row := c.(type) {
		case *discordgo.ActionsRow:
			buttons = row.Components
		case discordgo.ActionsRow:
			buttons = row.Components
		default:
			continue
		}

		rewritten := discordgo.ActionsRow{}
		for _, b := range buttons {
			var button discordgo.Button
			switch v := b.(type) {
			case *discordgo.Button:
				button = *v
			case discordgo.Button:
				button = v
			default:
				continue
			}
			if button.Style == discordgo.LinkButton {
				continue
			}

			if !strings.HasPrefix(button.CustomID, "#") {
				id, _, _ := strings.Cut(button.CustomID, "#")
				button.CustomID = id + mode
			}
			button.Disabled = button.CustomID == boardMode || button.CustomID == mode

			rewritten.Components = append(rewritten.Components, button)
		}

		out = append(out, rewritten)
	}

	return out
}

// parseBoardButton splits a sound button id into the sound query and whether
// it should loop
func parseBoardButton(id string) (query string, loop bool) {
	query, mode, _ := strings.Cut(id, "#")
	return query, "#"+mode == boardLoop
}

// autocompleteChoices offers sound names, answering with the id so the later
// lookup is exact
func autocompleteChoices(results []*models.Sound) []*discordgo.ApplicationCommandOptionChoice {
	choices := make([]*discordgo.ApplicationCommandOptionChoice, 0, len(results))
	for n, s := range results {
		if n == maxFields {
			break
		}
		choices = append(choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  s.Name,
			Value: formatID(s.ID),
		})
	}
	return choices
}

// downloadName is the file name a sound is sent as
func downloadName(s *models.Sound) string {
	return fmt.Sprintf("%d-%s.opus", s.ID, s.Name)
}
