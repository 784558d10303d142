package player

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mcedia "github.com/tobyprime/Mcedia-sub001"
	"github.com/tobyprime/Mcedia-sub001/decoder"
	"github.com/tobyprime/Mcedia-sub001/internal/cache"
)

type stubService struct {
	resolves int
	fail     bool
}

func (s *stubService) Resolve(rawURL string) *mcedia.MediaPlay {
	s.resolves++
	if s.fail {
		return mcedia.FailedPlay(rawURL, mcedia.StatusResolveFailed)
	}
	return mcedia.ResolvedPlay(rawURL, &mcedia.MediaInfo{
		Title:     "测试视频",
		Platform:  "哔哩哔哩",
		RawURL:    rawURL,
		StreamURL: "https://upos.example.com/video.flv",
	})
}

type stubEngine struct {
	info decoder.StreamInfo
}

func (e *stubEngine) Info() decoder.StreamInfo    { return e.info }
func (e *stubEngine) Seek(ts time.Duration) error { return nil }
func (e *stubEngine) Close() error                { return nil }

func stubFactory(ctx context.Context, info *mcedia.MediaInfo) (decoder.Engine, error) {
	return &stubEngine{info: decoder.StreamInfo{Seekable: !info.Live, Live: info.Live}}, nil
}

func testConfig() mcedia.Config {
	cfg := mcedia.DefaultConfig
	cfg.MaxPlayers = 3
	cfg.MaxNonLowOverheadPlayers = 1
	return cfg
}

func newTestManager(t *testing.T, service Service) *Manager {
	m := NewManager(mcedia.StaticConfig(testConfig()), service, nil, stubFactory)
	t.Cleanup(m.Close)
	return m
}

func awaitEvent(t *testing.T, events <-chan Event, kind EventKind) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case e, ok := <-events:
			if !ok {
				t.Fatal("event stream closed while waiting")
			}
			if e.Kind == kind {
				return e
			}
		case <-deadline:
			t.Fatalf("timed out waiting for event kind %v", kind)
		}
	}
}

func awaitSession(t *testing.T, p *Player) *decoder.Session {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if s := p.Session(); s != nil {
			return s
		}
		select {
		case <-deadline:
			t.Fatal("timed out waiting for session")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestOpenResolvesAndStartsSession(t *testing.T) {
	assert := assert.New(t)
	m := newTestManager(t, &stubService{})
	sub, err := m.Subscribe()
	require.NoError(t, err)

	p, err := m.Open("https://www.bilibili.com/video/BV1xx411c7md")
	require.NoError(t, err)
	awaitEvent(t, sub.Receive(), EventAdded)
	awaitEvent(t, sub.Receive(), EventResolved)

	session := awaitSession(t, p)
	assert.Equal(testConfig().VideoQueueDepth, session.Video().Cap(), "first player gets the normal profile")
	assert.Equal(1, m.Count())
}

func TestOpenFailedResolution(t *testing.T) {
	m := newTestManager(t, &stubService{fail: true})
	sub, err := m.Subscribe()
	require.NoError(t, err)

	p, err := m.Open("https://example.com/whatever")
	require.NoError(t, err)
	e := awaitEvent(t, sub.Receive(), EventFailed)
	assert.Equal(t, mcedia.StatusResolveFailed, e.Status)
	assert.Nil(t, p.Session())
}

func TestOpenEnforcesPlayerLimit(t *testing.T) {
	m := newTestManager(t, &stubService{})
	for i := 0; i < testConfig().MaxPlayers; i++ {
		_, err := m.Open("https://www.bilibili.com/video/BV1xx411c7md")
		require.NoError(t, err)
	}
	_, err := m.Open("https://www.bilibili.com/video/BV1xx411c7md")
	assert.ErrorIs(t, err, ErrTooManyPlayers)
}

func TestLaterPlayersGetLowOverheadProfile(t *testing.T) {
	m := newTestManager(t, &stubService{})
	first, err := m.Open("https://www.bilibili.com/video/BV1xx411c7md")
	require.NoError(t, err)
	second, err := m.Open("https://www.bilibili.com/video/BV1xx411c7md")
	require.NoError(t, err)

	cfg := testConfig()
	assert.Equal(t, cfg.VideoQueueDepth, awaitSession(t, first).Video().Cap())
	assert.Equal(t, cfg.LowOverheadVideoQueueDepth, awaitSession(t, second).Video().Cap())
}

func TestClosePlayer(t *testing.T) {
	assert := assert.New(t)
	m := newTestManager(t, &stubService{})
	sub, err := m.Subscribe()
	require.NoError(t, err)

	p, err := m.Open("https://www.bilibili.com/video/BV1xx411c7md")
	require.NoError(t, err)
	session := awaitSession(t, p)

	m.ClosePlayer(p.ID())
	awaitEvent(t, sub.Receive(), EventClosed)
	assert.Equal(0, m.Count())
	select {
	case <-session.Closed():
	default:
		t.Fatal("closing the player must close its session")
	}

	// Unknown ids are a no-op.
	m.ClosePlayer("nope")
}

func TestCacheHitSkipsService(t *testing.T) {
	assert := assert.New(t)
	c, err := cache.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	service := &stubService{}
	m := NewManager(mcedia.StaticConfig(testConfig()), service, c, stubFactory)
	t.Cleanup(m.Close)

	url := "https://www.bilibili.com/video/BV1xx411c7md"
	first, err := m.Open(url)
	require.NoError(t, err)
	awaitSession(t, first)
	assert.Equal(1, service.resolves)
	m.ClosePlayer(first.ID())

	// The first resolution is now cached; a second open must not hit the service.
	second, err := m.Open(url)
	require.NoError(t, err)
	awaitSession(t, second)
	assert.Equal(1, service.resolves)
	assert.Equal("测试视频", second.Play().Info().Title)
}
