package mcedia

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Length of the pending-resolution queue. Resolution requests beyond this fail fast instead of
// blocking the caller; with single-digit-second HTTP timeouts per resolver the queue only fills if
// something upstream is badly wrong.
const resolveQueueDepth = 64

// Upper bound on one complete resolution, on top of the per-resolver HTTP client timeouts. Guards
// the shared worker against a resolver that chains many slow hops.
const resolveTimeout = 30 * time.Second

// Dispatcher runs resolver selection and resolution synchronously for a Request. It is how a
// delegating resolver (short-link expansion) re-enters resolver selection with a rewritten URL
// without re-enqueueing on the worker it is already running on.
type Dispatcher interface {
	Dispatch(ctx context.Context, req Request) (*MediaInfo, error)
}

// Pipeline turns raw URLs into MediaPlay handles. All resolution work runs on one shared
// background worker, so requests are serialized relative to each other and never block the caller.
// Failures of any kind are normalized into a terminal failed MediaPlay; Resolve never returns an
// error and never panics.
type Pipeline struct {
	registry *Registry
	config   ConfigProvider
	log      *zap.SugaredLogger

	ctx       context.Context
	ctxCancel context.CancelFunc
	jobs      chan resolveJob
	done      chan struct{}
	closeOnce sync.Once
}

type resolveJob struct {
	play *MediaPlay
	req  Request
}

// NewPipeline creates a Pipeline over a registry and starts its worker. The registry must be fully
// populated before the first Resolve call; it is treated as read-only from here on.
func NewPipeline(registry *Registry, config ConfigProvider) *Pipeline {
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pipeline{
		registry:  registry,
		config:    config,
		log:       zap.S().Named("pipeline"),
		ctx:       ctx,
		ctxCancel: cancel,
		jobs:      make(chan resolveJob, resolveQueueDepth),
		done:      make(chan struct{}),
	}
	go p.work()
	return p
}

// Registry exposes the resolver registry, e.g. for listing resolver names.
func (p *Pipeline) Registry() *Registry {
	return p.registry
}

// IsSupported reports whether any registered resolver recognizes the URL, without side effects.
func (p *Pipeline) IsSupported(rawURL string) bool {
	return p.registry.IsSupported(rawURL)
}

// Resolve asynchronously resolves rawURL, returning immediately with the MediaPlay handle that
// will receive the outcome. The configuration snapshot is taken now; configuration changes during
// resolution do not affect this request.
func (p *Pipeline) Resolve(rawURL string) *MediaPlay {
	cfg := p.config.Current()
	play := newMediaPlay(rawURL)
	play.setStatus(StatusResolving)
	req := Request{
		URL:     rawURL,
		Quality: cfg.QualityCeiling,
		Cookie:  cfg.Cookie,
		Report:  play.setStatus,
	}
	select {
	case p.jobs <- resolveJob{play: play, req: req}:
	case <-p.ctx.Done():
		play.fail(StatusResolveFailed)
	default:
		p.log.Warnw("resolution queue full, rejecting request", "url", rawURL)
		play.fail(StatusResolveFailed)
	}
	return play
}

// Dispatch implements Dispatcher: it selects and runs a resolver synchronously on the calling
// goroutine. Used internally by the worker, and by delegating resolvers for multi-hop resolution.
func (p *Pipeline) Dispatch(ctx context.Context, req Request) (*MediaInfo, error) {
	resolver, err := p.registry.Match(req.URL)
	if err != nil {
		return nil, err
	}
	return resolver.Resolve(ctx, req)
}

// Close stops the worker. Pending requests that never ran reach the failed terminal state.
// In-flight HTTP calls are not interrupted beyond context cancellation of the current job.
func (p *Pipeline) Close() {
	p.closeOnce.Do(func() {
		p.ctxCancel()
		<-p.done
	})
}

func (p *Pipeline) work() {
	defer close(p.done)
	for {
		select {
		case <-p.ctx.Done():
			p.failPending()
			return
		case job := <-p.jobs:
			p.runResolve(job.play, job.req)
		}
	}
}

// failPending moves requests still queued at shutdown to the failed terminal state, so no
// MediaPlay is left loading forever.
func (p *Pipeline) failPending() {
	for {
		select {
		case job := <-p.jobs:
			job.play.fail(StatusResolveFailed)
		default:
			return
		}
	}
}

// runResolve executes one resolution on the worker, converting every failure mode (no match,
// resolver error, resolver panic) into a terminal status on the play.
func (p *Pipeline) runResolve(play *MediaPlay, req Request) {
	defer func() {
		if r := recover(); r != nil {
			p.log.Errorw("resolver panicked", "url", req.URL, "panic", r)
			play.fail(StatusParseError)
		}
	}()

	ctx, cancel := context.WithTimeout(p.ctx, resolveTimeout)
	defer cancel()

	info, err := p.Dispatch(ctx, req)
	switch {
	case err == nil && info != nil:
		p.log.Debugw("resolved", "url", req.URL, "platform", info.Platform, "title", info.Title)
		play.succeed(info)
	case errors.Is(err, ErrNoMatch):
		p.log.Debugw("no resolver matched", "url", req.URL)
		play.fail(StatusUnsupported)
	default:
		p.log.Warnw("resolution failed", "url", req.URL, "error", err)
		play.fail(statusForError(err))
	}
}

// statusForError maps a resolver-boundary error onto the display status taxonomy: parse failures,
// upstream rejections (with the HTTP code where useful), and everything else as a plain failure.
func statusForError(err error) string {
	var upstream *UpstreamError
	switch {
	case errors.As(err, &upstream):
		if upstream.StatusCode != 0 {
			return fmt.Sprintf("%s (HTTP %d)", StatusResolveFailed, upstream.StatusCode)
		}
		return StatusResolveFailed
	case errors.Is(err, ErrParse):
		return StatusParseError
	default:
		return StatusResolveFailed
	}
}
