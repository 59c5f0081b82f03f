// Package voice plays stored sounds into guild voice channels.
package voice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// ErrNotConnected is returned for guilds without a voice connection
var ErrNotConnected = errors.New("not connected to voice")

// Conn is the part of a voice connection used for playback
type Conn interface {
	ChannelID() string
	Move(channelID string) error
	Speaking(speaking bool) error
	Opus() chan<- []byte
	Disconnect() error
}

// Joiner opens a voice connection to a channel of a guild
type Joiner func(guildID, channelID string) (Conn, error)

// Track is one playable item. Open returns a fresh Ogg/Opus stream each time it is called.
type Track struct {
	Name string
	Open func(ctx context.Context) (io.ReadCloser, error)
	Loop bool
}

// Manager owns one player per connected guild
type Manager struct {
	join   Joiner
	logger *zap.Logger

	mu      sync.Mutex
	players map[string]*player
}

// NewManager creates a manager that connects with join
func NewManager(join Joiner, logger *zap.Logger) *Manager {
	return &Manager{
		join:    join,
		logger:  logger,
		players: make(map[string]*player),
	}
}

// DiscordJoiner connects through the gateway session, deafened
func DiscordJoiner(s *discordgo.Session) Joiner {
	return func(guildID, channelID string) (Conn, error) {
		vc, err := s.ChannelVoiceJoin(guildID, channelID, false, true)
		if err != nil {
			return nil, fmt.Errorf("failed to join voice channel: %w", err)
		}
		return &discordConn{vc: vc}, nil
	}
}

type discordConn struct {
	vc *discordgo.VoiceConnection
}

func (c *discordConn) ChannelID() string {
	c.vc.RLock()
	defer c.vc.RUnlock()
	return c.vc.ChannelID
}

func (c *discordConn) Move(channelID string) error {
	return c.vc.ChangeChannel(channelID, false, true)
}

func (c *discordConn) Speaking(speaking bool) error {
	return c.vc.Speaking(speaking)
}

func (c *discordConn) Opus() chan<- []byte {
	return c.vc.OpusSend
}

func (c *discordConn) Disconnect() error {
	return c.vc.Disconnect()
}

// connect returns the player of guildID connected to channelID, joining or moving as needed
func (m *Manager) connect(guildID, channelID string) (*player, error) {
	m.mu.Lock()
	p, ok := m.players[guildID]
	m.mu.Unlock()

	if ok {
		if p.conn.ChannelID() != channelID {
			if err := p.conn.Move(channelID); err != nil {
				return nil, fmt.Errorf("failed to move voice connection: %w", err)
			}
		}
		return p, nil
	}

	conn, err := m.join(guildID, channelID)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Lost a race with another join of the same guild
	if existing, ok := m.players[guildID]; ok {
		return existing, nil
	}

	p = newPlayer(conn, m.logger.With(zap.String("guild_id", guildID)))
	m.players[guildID] = p
	go p.run()

	m.logger.Debug("voice connected",
		zap.String("guild_id", guildID),
		zap.String("channel_id", channelID),
	)

	return p, nil
}

// Play interrupts whatever is playing in the guild, clears its queue and plays track
func (m *Manager) Play(guildID, channelID string, track Track) error {
	p, err := m.connect(guildID, channelID)
	if err != nil {
		return err
	}
	p.replace([]Track{track})
	return nil
}

// Enqueue appends tracks to the guild queue. It returns the queue length afterwards.
func (m *Manager) Enqueue(guildID, channelID string, tracks ...Track) (int, error) {
	p, err := m.connect(guildID, channelID)
	if err != nil {
		return 0, err
	}
	return p.enqueue(tracks), nil
}

// Stop halts playback and clears the queue of the guild
func (m *Manager) Stop(guildID string) error {
	p, ok := m.player(guildID)
	if !ok {
		return ErrNotConnected
	}
	p.stop()
	return nil
}

// Disconnect stops playback and leaves the voice channel of the guild
func (m *Manager) Disconnect(guildID string) error {
	m.mu.Lock()
	p, ok := m.players[guildID]
	delete(m.players, guildID)
	m.mu.Unlock()

	if !ok {
		return ErrNotConnected
	}

	m.logger.Debug("voice disconnecting", zap.String("guild_id", guildID))
	return p.close()
}

// ChannelID returns the channel the bot is connected to in guildID
func (m *Manager) ChannelID(guildID string) (string, bool) {
	p, ok := m.player(guildID)
	if !ok {
		return "", false
	}
	return p.conn.ChannelID(), true
}

// Close disconnects from every guild
func (m *Manager) Close() {
	m.mu.Lock()
	players := m.players
	m.players = make(map[string]*player)
	m.mu.Unlock()

	for guildID, p := range players {
		if err := p.close(); err != nil {
			m.logger.Warn("voice disconnect failed", zap.String("guild_id", guildID), zap.Error(err))
		}
	}
}

func (m *Manager) player(guildID string) (*player, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[guildID]
	return p, ok
}

// player runs the queue of one guild on its own goroutine
type player struct {
	conn   Conn
	logger *zap.Logger

	mu      sync.Mutex
	queue   []Track
	gen     uint64
	current context.CancelFunc
	wake    chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newPlayer(conn Conn, logger *zap.Logger) *player {
	ctx, cancel := context.WithCancel(context.Background())
	return &player{
		conn:   conn,
		logger: logger,
		wake:   make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

func (p *player) signal() {
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *player) run() {
	defer close(p.done)

	for {
		track, ctx, gen, ok := p.next()
		if !ok {
			select {
			case <-p.wake:
				continue
			case <-p.ctx.Done():
				return
			}
		}

		p.play(ctx, track)
		p.finish(gen)
	}
}

func (p *player) next() (Track, context.Context, uint64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.queue) == 0 || p.ctx.Err() != nil {
		return Track{}, nil, 0, false
	}

	track := p.queue[0]
	p.queue = p.queue[1:]

	ctx, cancel := context.WithCancel(p.ctx)
	p.gen++
	p.current = cancel
	return track, ctx, p.gen, true
}

func (p *player) finish(gen uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.gen == gen && p.current != nil {
		p.current()
		p.current = nil
	}
}

func (p *player) play(ctx context.Context, track Track) {
	if err := p.conn.Speaking(true); err != nil {
		p.logger.Debug("failed to set speaking", zap.Error(err))
	}
	defer func() {
		if err := p.conn.Speaking(false); err != nil {
			p.logger.Debug("failed to clear speaking", zap.Error(err))
		}
	}()

	for {
		stream, err := track.Open(ctx)
		if err != nil {
			if ctx.Err() == nil {
				p.logger.Error("failed to open track", zap.String("track", track.Name), zap.Error(err))
			}
			return
		}

		err = SendOpus(ctx, stream, p.conn.Opus())
		_ = stream.Close()

		if ctx.Err() != nil {
			return
		}
		if err != nil {
			p.logger.Error("playback failed", zap.String("track", track.Name), zap.Error(err))
			return
		}
		if !track.Loop {
			return
		}
	}
}

// cancelCurrent stops the playing track. Caller holds p.mu.
func (p *player) cancelCurrent() {
	if p.current != nil {
		p.current()
		p.current = nil
	}
}

func (p *player) replace(tracks []Track) {
	p.mu.Lock()
	p.queue = append([]Track(nil), tracks...)
	p.cancelCurrent()
	p.mu.Unlock()

	p.signal()
}

func (p *player) enqueue(tracks []Track) int {
	p.mu.Lock()
	p.queue = append(p.queue, tracks...)
	n := len(p.queue)
	p.mu.Unlock()

	p.signal()
	return n
}

func (p *player) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.queue = nil
	p.cancelCurrent()
}

func (p *player) close() error {
	p.cancel()
	<-p.done
	return p.conn.Disconnect()
}
