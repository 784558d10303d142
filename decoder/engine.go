// Package decoder wraps an opaque decode engine behind the buffer/ownership contract the rest of
// the system relies on. The engine itself (codec invocation, demuxing) lives outside the core.
package decoder

import "time"

// StreamInfo is the engine's description of an opened stream.
type StreamInfo struct {
	// Duration of the stream; zero for live streams.
	Duration time.Duration
	Width    int
	Height   int

	SampleRate int
	Channels   int

	// Live marks an unbounded stream.
	Live bool
	// Seekable reports whether the engine can reposition this source.
	Seekable bool
}

// Engine is the decode engine boundary. Implementations decode an opened stream, push frames into
// the owning Session's sinks, and call MarkDecodeEnded when no more frames will be produced.
type Engine interface {
	// Info describes the opened stream. Valid for the lifetime of the engine.
	Info() StreamInfo
	// Seek requests repositioning to the given timestamp. Only called when Info().Seekable.
	Seek(timestamp time.Duration) error
	// Close releases engine resources. Called exactly once, by Session.Close.
	Close() error
}
