package mcedia

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/tobyprime/Mcedia-sub001/generic"
	"github.com/tobyprime/Mcedia-sub001/internal/observable"
	"github.com/tobyprime/Mcedia-sub001/internal/syncx"
)

// MediaPlay is the asynchronous handle for one resolution request. It starts in the loading state
// and moves exactly once to a terminal state: resolved (MediaInfo available) or failed (display
// status explains why). Both notification channels replay their last value to late subscribers, so
// a consumer attaching after a fast resolution already finished still observes the terminal state.
type MediaPlay struct {
	id  string
	url string

	status *observable.Value[string]
	info   *observable.Value[*MediaInfo]

	terminal  syncx.Event
	closeOnce sync.Once
}

func newMediaPlay(url string) *MediaPlay {
	return &MediaPlay{
		id:     generic.Unwrap(uuid.NewRandom()).String(),
		url:    url,
		status: observable.NewValue[string](),
		info:   observable.NewValue[*MediaInfo](),
	}
}

// ResolvedPlay constructs a MediaPlay already in the resolved terminal state. Used when a result
// comes from somewhere other than the pipeline worker, e.g. a cache hit.
func ResolvedPlay(url string, info *MediaInfo) *MediaPlay {
	p := newMediaPlay(url)
	p.succeed(info)
	return p
}

// FailedPlay constructs a MediaPlay already in the failed terminal state.
func FailedPlay(url string, status string) *MediaPlay {
	p := newMediaPlay(url)
	p.fail(status)
	return p
}

func (p *MediaPlay) String() string {
	return fmt.Sprintf("MediaPlay{ID:%q, URL:%q, Status:%q}", p.id, p.url, p.Status())
}

// ID is the unique identifier of this resolution request.
func (p *MediaPlay) ID() string {
	return p.id
}

// URL is the raw URL resolution started from.
func (p *MediaPlay) URL() string {
	return p.url
}

// Status returns the most recent display status, or "" before any was published.
func (p *MediaPlay) Status() string {
	s, _ := p.status.Get()
	return s
}

// Info returns the resolved MediaInfo, or nil while loading or after failure.
func (p *MediaPlay) Info() *MediaInfo {
	info, ok := p.info.Get()
	if !ok {
		return nil
	}
	return info
}

// Loading reports whether no terminal state has been reached yet.
func (p *MediaPlay) Loading() bool {
	return !p.terminal.IsSet()
}

// Resolved reports whether resolution succeeded.
func (p *MediaPlay) Resolved() bool {
	return p.Info() != nil
}

// Failed reports whether resolution reached the failed terminal state.
func (p *MediaPlay) Failed() bool {
	return p.terminal.IsSet() && p.Info() == nil
}

// Done returns a channel that closes when a terminal state is reached.
func (p *MediaPlay) Done() <-chan struct{} {
	return p.terminal.Wait()
}

// SubscribeStatus subscribes to display status updates. The status channel may fire several times
// (intermediate progress included) and replays the most recent status on subscribe.
func (p *MediaPlay) SubscribeStatus() *observable.Subscription[string] {
	return p.status.Subscribe()
}

// SubscribeInfo subscribes to the MediaInfo channel, which fires exactly once and only on success.
// Subscribing after success delivers the MediaInfo immediately.
func (p *MediaPlay) SubscribeInfo() *observable.Subscription[*MediaInfo] {
	return p.info.Subscribe()
}

// Close detaches all subscribers and stops further notification. It does NOT cancel an in-flight
// network call: a resolver may still complete afterwards, and its late result is silently
// discarded. Idempotent.
func (p *MediaPlay) Close() {
	p.closeOnce.Do(func() {
		p.terminal.Set()
		p.status.Close()
		p.info.Close()
	})
}

// setStatus publishes a non-terminal status. No-op after close.
func (p *MediaPlay) setStatus(status string) {
	p.status.Set(status)
}

// succeed moves to the resolved terminal state. No-op after close or a prior terminal state.
func (p *MediaPlay) succeed(info *MediaInfo) {
	if p.terminal.IsSet() {
		return
	}
	if p.info.Set(info) {
		p.status.Set(StatusResolved)
		p.terminal.Set()
	}
}

// fail moves to the failed terminal state. No-op after close or a prior terminal state.
func (p *MediaPlay) fail(status string) {
	if p.terminal.IsSet() {
		return
	}
	if p.status.Set(status) {
		p.terminal.Set()
	}
}
