// Package player tracks active playback sessions against the configured player ceilings and
// turns resolved media into decoder sessions with the right buffering profile.
package player

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	mcedia "github.com/tobyprime/Mcedia-sub001"
	"github.com/tobyprime/Mcedia-sub001/decoder"
	"github.com/tobyprime/Mcedia-sub001/generic"
	"github.com/tobyprime/Mcedia-sub001/internal/cache"
	"github.com/tobyprime/Mcedia-sub001/internal/pubsub"
)

var (
	ErrTooManyPlayers = errors.New("player limit reached")
	ErrManagerClosed  = errors.New("player manager closed")
)

type EventKind int

const (
	EventAdded EventKind = iota
	EventResolved
	EventFailed
	EventClosed
)

// Event describes one player lifecycle transition.
type Event struct {
	Kind     EventKind
	PlayerID string
	URL      string
	// Status carries the display status for failed events.
	Status string
}

// Service resolves URLs into MediaPlay handles. Satisfied by mcedia.Pipeline.
type Service interface {
	Resolve(rawURL string) *mcedia.MediaPlay
}

// EngineFactory opens a decode engine for resolved media.
type EngineFactory func(ctx context.Context, info *mcedia.MediaInfo) (decoder.Engine, error)

// Player is one playback slot: its resolution handle plus, once resolved, its decoder session.
type Player struct {
	id      string
	url     string
	play    *mcedia.MediaPlay
	profile decoder.Profile

	mu      sync.Mutex
	session *decoder.Session
	closed  atomic.Bool
}

func (p *Player) ID() string              { return p.id }
func (p *Player) URL() string             { return p.url }
func (p *Player) Play() *mcedia.MediaPlay { return p.play }

// Session returns the decoder session, or nil while resolution or engine startup is pending.
func (p *Player) Session() *decoder.Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.session
}

func (p *Player) setSession(s *decoder.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed.Load() {
		p.session = nil
		s.Close()
		return
	}
	p.session = s
}

type Manager struct {
	config    mcedia.ConfigProvider
	service   Service
	cache     *cache.Cache
	newEngine EngineFactory
	log       *zap.SugaredLogger

	mu      sync.Mutex
	players map[string]*Player
	events  pubsub.Publisher[Event]
	closed  bool
}

// NewManager creates a Manager. cache may be nil to disable resolution caching and history.
func NewManager(config mcedia.ConfigProvider, service Service, c *cache.Cache, newEngine EngineFactory) *Manager {
	return &Manager{
		config:    config,
		service:   service,
		cache:     c,
		newEngine: newEngine,
		log:       zap.S().Named("player"),
		players:   make(map[string]*Player),
		events:    pubsub.NewPublisher[Event](),
	}
}

// Subscribe returns a receiver of player lifecycle events.
func (m *Manager) Subscribe() (pubsub.ReceiverCloser[Event], error) {
	return m.events.Subscribe()
}

// Count returns the number of active players.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.players)
}

// Open starts playback of a URL. It enforces the configured player ceiling, picks the buffering
// profile from how many players are already active, and serves fresh cache hits without going
// through the pipeline.
func (m *Manager) Open(rawURL string) (*Player, error) {
	cfg := m.config.Current()

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrManagerClosed
	}
	if len(m.players) >= cfg.MaxPlayers {
		m.mu.Unlock()
		return nil, ErrTooManyPlayers
	}
	profile := decoder.Profile{VideoFrames: cfg.VideoQueueDepth, AudioChunks: cfg.AudioQueueDepth}
	if len(m.players) >= cfg.MaxNonLowOverheadPlayers {
		profile = decoder.Profile{VideoFrames: cfg.LowOverheadVideoQueueDepth, AudioChunks: cfg.LowOverheadAudioQueueDepth}
	}

	play := m.cachedPlay(rawURL)
	if play == nil {
		play = m.service.Resolve(rawURL)
	}
	p := &Player{
		id:      generic.Unwrap(uuid.NewRandom()).String(),
		url:     rawURL,
		play:    play,
		profile: profile,
	}
	m.players[p.id] = p
	m.mu.Unlock()

	m.events.Send(Event{Kind: EventAdded, PlayerID: p.id, URL: rawURL})
	go m.watch(p)
	return p, nil
}

// cachedPlay returns a pre-resolved play for a fresh cache hit, or nil.
func (m *Manager) cachedPlay(rawURL string) *mcedia.MediaPlay {
	if m.cache == nil {
		return nil
	}
	info, err := m.cache.Get(rawURL, cache.DefaultMaxAge)
	if err != nil {
		m.log.Warnw("cache lookup failed", "url", rawURL, "error", err)
		return nil
	}
	if info == nil {
		return nil
	}
	m.log.Debugw("cache hit", "url", rawURL, "title", info.Title)
	return mcedia.ResolvedPlay(rawURL, info)
}

// watch waits for the player's resolution outcome and brings up the decoder session.
func (m *Manager) watch(p *Player) {
	<-p.play.Done()
	if p.closed.Load() {
		return
	}
	info := p.play.Info()
	if info == nil {
		m.events.Send(Event{Kind: EventFailed, PlayerID: p.id, URL: p.url, Status: p.play.Status()})
		return
	}

	if m.cache != nil {
		if err := m.cache.Put(p.url, info); err != nil {
			m.log.Warnw("failed to cache resolution", "url", p.url, "error", err)
		}
		if err := m.cache.AppendHistory(p.url, info); err != nil {
			m.log.Warnw("failed to record history", "url", p.url, "error", err)
		}
	}

	engine, err := m.newEngine(context.Background(), info)
	if err != nil {
		m.log.Errorw("failed to open decode engine", "url", p.url, "error", err)
		m.events.Send(Event{Kind: EventFailed, PlayerID: p.id, URL: p.url, Status: mcedia.StatusResolveFailed})
		return
	}
	p.setSession(decoder.NewSession(engine, p.profile))
	m.events.Send(Event{Kind: EventResolved, PlayerID: p.id, URL: p.url})
}

// ClosePlayer tears down one player. Unknown ids are a no-op.
func (m *Manager) ClosePlayer(id string) {
	m.mu.Lock()
	p, ok := m.players[id]
	if ok {
		delete(m.players, id)
	}
	m.mu.Unlock()
	if !ok {
		return
	}
	m.teardown(p)
	m.events.Send(Event{Kind: EventClosed, PlayerID: p.id, URL: p.url})
}

// Close tears down every player and stops the event stream.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	players := make([]*Player, 0, len(m.players))
	for _, p := range m.players {
		players = append(players, p)
	}
	m.players = make(map[string]*Player)
	m.mu.Unlock()

	for _, p := range players {
		m.teardown(p)
	}
	m.events.Close()
}

func (m *Manager) teardown(p *Player) {
	p.closed.Store(true)
	p.play.Close()
	p.mu.Lock()
	session := p.session
	p.session = nil
	p.mu.Unlock()
	if session != nil {
		if err := session.Close(); err != nil {
			m.log.Warnw("session close failed", "player", p.id, "error", err)
		}
	}
}
