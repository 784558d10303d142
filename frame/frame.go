// Package frame holds the decoded-media value types and the bounded blocking queues that connect
// a decoder (producer) to a renderer/audio mixer (consumer).
package frame

import (
	"sync/atomic"
	"time"
)

// Releasable is anything with an exactly-once release of its backing memory. Release reports
// whether this call performed the release; a second call is a detectable no-op, never a
// double-free.
type Releasable interface {
	Release() bool
}

// VideoFrame is one decoded picture: tightly packed RGBA pixels plus presentation metadata. A
// frame popped from a buffer is owned by the consumer, which must release it exactly once after
// use.
type VideoFrame struct {
	pixels     []byte
	width      int
	height     int
	timestamp  time.Duration
	shouldFree bool
	released   atomic.Bool
}

// NewVideoFrame wraps a pixel buffer the frame owns: releasing the frame drops the buffer.
func NewVideoFrame(pixels []byte, width, height int, timestamp time.Duration) *VideoFrame {
	return &VideoFrame{
		pixels:     pixels,
		width:      width,
		height:     height,
		timestamp:  timestamp,
		shouldFree: true,
	}
}

// NewBorrowedVideoFrame wraps a pixel buffer owned elsewhere (e.g. a reused scratch buffer);
// releasing such a frame is a no-op for the buffer itself.
func NewBorrowedVideoFrame(pixels []byte, width, height int, timestamp time.Duration) *VideoFrame {
	f := NewVideoFrame(pixels, width, height, timestamp)
	f.shouldFree = false
	return f
}

// Pixels returns the RGBA pixel data, or nil once an owned frame has been released.
func (f *VideoFrame) Pixels() []byte {
	if f.shouldFree && f.released.Load() {
		return nil
	}
	return f.pixels
}

func (f *VideoFrame) Width() int               { return f.width }
func (f *VideoFrame) Height() int              { return f.height }
func (f *VideoFrame) Timestamp() time.Duration { return f.timestamp }

// Released reports whether the frame has been released.
func (f *VideoFrame) Released() bool {
	return f.released.Load()
}

// Release frees the frame's backing buffer if the frame owns it. Idempotent by construction:
// returns true only for the call that actually performed the release.
func (f *VideoFrame) Release() bool {
	if !f.released.CompareAndSwap(false, true) {
		return false
	}
	if f.shouldFree {
		f.pixels = nil
	}
	return true
}

// AudioChunk is a run of decoded PCM samples: 16-bit signed little-endian, interleaved. Same
// ownership and exactly-once release contract as VideoFrame.
type AudioChunk struct {
	pcm        []byte
	sampleRate int
	channels   int
	shouldFree bool
	released   atomic.Bool
}

// NewAudioChunk wraps a PCM buffer the chunk owns.
func NewAudioChunk(pcm []byte, sampleRate, channels int) *AudioChunk {
	return &AudioChunk{
		pcm:        pcm,
		sampleRate: sampleRate,
		channels:   channels,
		shouldFree: true,
	}
}

// NewBorrowedAudioChunk wraps a PCM buffer owned elsewhere.
func NewBorrowedAudioChunk(pcm []byte, sampleRate, channels int) *AudioChunk {
	c := NewAudioChunk(pcm, sampleRate, channels)
	c.shouldFree = false
	return c
}

// PCM returns the sample data, or nil once an owned chunk has been released.
func (c *AudioChunk) PCM() []byte {
	if c.shouldFree && c.released.Load() {
		return nil
	}
	return c.pcm
}

func (c *AudioChunk) SampleRate() int { return c.sampleRate }
func (c *AudioChunk) Channels() int   { return c.channels }

// Released reports whether the chunk has been released.
func (c *AudioChunk) Released() bool {
	return c.released.Load()
}

// Release frees the chunk's backing buffer if the chunk owns it. Idempotent by construction.
func (c *AudioChunk) Release() bool {
	if !c.released.CompareAndSwap(false, true) {
		return false
	}
	if c.shouldFree {
		c.pcm = nil
	}
	return true
}
