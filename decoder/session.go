package decoder

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tobyprime/Mcedia-sub001/frame"
	"github.com/tobyprime/Mcedia-sub001/internal/syncx"
)

var (
	ErrSeekUnsupported = errors.New("seek not supported by this source")
	ErrSessionClosed   = errors.New("decoder session closed")
)

// Profile fixes the frame queue capacities for one session.
type Profile struct {
	VideoFrames int
	AudioChunks int
}

// DefaultProfile absorbs normal network/decode jitter: about two seconds of video and audio.
var DefaultProfile = Profile{VideoFrames: 60, AudioChunks: 120}

// LowOverheadProfile trades latency tolerance for memory and decode CPU, for when many players are
// active at once.
var LowOverheadProfile = Profile{VideoFrames: 10, AudioChunks: 60}

// Session owns the two bounded frame queues between a decode engine (producer) and the host's
// renderer/mixer (consumers), and answers playback queries by delegating to the engine. Frame
// ownership follows the frame package contract: the session releases whatever is still queued at
// teardown, consumers release what they pop.
type Session struct {
	engine Engine
	info   StreamInfo
	video  *frame.Buffer[*frame.VideoFrame]
	audio  *frame.Buffer[*frame.AudioChunk]

	decodeEnded syncx.Event
	closeOnce   sync.Once
	closeErr    error
	closed      syncx.Event
	log         *zap.SugaredLogger
}

// NewSession wraps an opened engine. Finite streams get blocking (backpressure) queues; live
// streams get drop-oldest queues so a slow consumer bounds latency instead of growing it.
func NewSession(engine Engine, profile Profile) *Session {
	info := engine.Info()
	policy := frame.Block
	if info.Live {
		policy = frame.DropOldest
	}
	return &Session{
		engine: engine,
		info:   info,
		video:  frame.NewBuffer[*frame.VideoFrame](profile.VideoFrames, policy),
		audio:  frame.NewBuffer[*frame.AudioChunk](profile.AudioChunks, policy),
		log:    zap.S().Named("decoder"),
	}
}

// Video is the video frame queue. The engine pushes; the renderer pops and releases.
func (s *Session) Video() *frame.Buffer[*frame.VideoFrame] {
	return s.video
}

// Audio is the audio chunk queue. The engine pushes; the mixer pops and releases.
func (s *Session) Audio() *frame.Buffer[*frame.AudioChunk] {
	return s.audio
}

// PushVideo enqueues a decoded frame, applying the session's capacity policy.
func (s *Session) PushVideo(ctx context.Context, f *frame.VideoFrame) error {
	return s.video.Push(ctx, f)
}

// PushAudio enqueues decoded samples, applying the session's capacity policy.
func (s *Session) PushAudio(ctx context.Context, c *frame.AudioChunk) error {
	return s.audio.Push(ctx, c)
}

// PopVideo dequeues the next frame for presentation. The caller owns it and must release it
// exactly once.
func (s *Session) PopVideo(ctx context.Context) (*frame.VideoFrame, error) {
	return s.video.Pop(ctx)
}

// TryPopVideo is PopVideo without blocking.
func (s *Session) TryPopVideo() (*frame.VideoFrame, bool) {
	return s.video.TryPop()
}

// PopAudio dequeues the next chunk for mixing. Same ownership rules as PopVideo.
func (s *Session) PopAudio(ctx context.Context) (*frame.AudioChunk, error) {
	return s.audio.Pop(ctx)
}

// TryPopAudio is PopAudio without blocking.
func (s *Session) TryPopAudio() (*frame.AudioChunk, bool) {
	return s.audio.TryPop()
}

func (s *Session) IsLiveStream() bool {
	return s.info.Live
}

func (s *Session) Duration() time.Duration {
	return s.info.Duration
}

func (s *Session) Width() int  { return s.info.Width }
func (s *Session) Height() int { return s.info.Height }

func (s *Session) SampleRate() int { return s.info.SampleRate }
func (s *Session) Channels() int   { return s.info.Channels }

// Seek requests repositioning. A seek is a request, not a guarantee: unseekable sources (live
// streams) get ErrSeekUnsupported. On success both queues are flushed, since buffered frames
// belong to the old position.
func (s *Session) Seek(timestamp time.Duration) error {
	if s.closed.IsSet() {
		return ErrSessionClosed
	}
	if !s.info.Seekable {
		return ErrSeekUnsupported
	}
	if err := s.engine.Seek(timestamp); err != nil {
		return err
	}
	s.video.Flush()
	s.audio.Flush()
	return nil
}

// MarkDecodeEnded records that the engine will push no more frames. Idempotent.
func (s *Session) MarkDecodeEnded() {
	s.decodeEnded.Set()
}

// IsDecodeEnded reports whether the producer has finished. Buffered frames may still be pending.
func (s *Session) IsDecodeEnded() bool {
	return s.decodeEnded.IsSet()
}

// IsEnded reports whether playback is fully over: the producer finished AND both queues have
// drained. Consumers should only tear down after IsEnded.
func (s *Session) IsEnded() bool {
	return s.decodeEnded.IsSet() && s.video.Len() == 0 && s.audio.Len() == 0
}

// Close tears the session down: both queues close (releasing queued frames exactly once) and the
// engine is closed. Idempotent; returns the engine's close error, if any.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Set()
		s.decodeEnded.Set()
		s.video.Close()
		s.audio.Close()
		if err := s.engine.Close(); err != nil {
			s.log.Warnw("engine close failed", "error", err)
			s.closeErr = err
		}
	})
	return s.closeErr
}

// Closed returns a channel that closes when the session is torn down.
func (s *Session) Closed() <-chan struct{} {
	return s.closed.Wait()
}
