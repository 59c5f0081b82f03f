package sounds

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/parsascontentcorner/soundfx/internal/models"
	"github.com/parsascontentcorner/soundfx/internal/pager"
)

// Page is one rendered page of a sound listing
type Page struct {
	State   pager.State
	Sounds  []*models.Sound
	Total   int64
	MaxPage int
}

// ListPage reads the page of state.Context and a fresh total count in parallel
func (s *Service) ListPage(ctx context.Context, state pager.State, userID, guildID int64) (*Page, error) {
	var (
		list  func(ctx context.Context, id int64, page int) ([]*models.Sound, error)
		count func(ctx context.Context, id int64) (int64, error)
		id    int64
	)

	switch state.Context {
	case pager.ContextUser:
		list, count, id = s.store.UserSounds, s.store.CountUserSounds, userID
	case pager.ContextGuild:
		list, count, id = s.store.GuildSounds, s.store.CountGuildSounds, guildID
	case pager.ContextFavorite:
		list, count, id = s.store.FavoriteSounds, s.store.CountFavoriteSounds, userID
	default:
		return nil, fmt.Errorf("unknown list context %q", state.Context)
	}

	page := &Page{State: state}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sounds, err := list(gctx, id, state.Page)
		if err != nil {
			return fmt.Errorf("failed to list sounds: %w", err)
		}
		page.Sounds = sounds
		return nil
	})
	g.Go(func() error {
		total, err := count(gctx, id)
		if err != nil {
			return fmt.Errorf("failed to count sounds: %w", err)
		}
		page.Total = total
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	page.MaxPage = pager.MaxPage(page.Total)
	return page, nil
}
