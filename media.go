package mcedia

// QualityInfo describes one selectable quality of a resolved stream. Pure value.
type QualityInfo struct {
	// ID is the platform-specific quality identifier (e.g. a Bilibili qn code).
	ID int
	// Label is the platform's human-readable name for this quality.
	Label string
	// Default marks the quality that gets picked under the configured quality ceiling.
	Default bool
}

// MediaInfo describes a resolved, playable stream: where to fetch it, the headers the stream host
// requires, and presentation metadata. Produced exactly once per successful resolution and
// immutable from then on; it is shared read-only between the owning MediaPlay and all subscribers.
type MediaInfo struct {
	Title    string
	Author   string
	Platform string

	// RawURL is the URL resolution started from.
	RawURL string
	// StreamURL is the concrete playable URL.
	StreamURL string
	// AudioURL is a separate audio stream, if the platform delivers audio and video separately.
	AudioURL string

	// Headers are the request headers the stream host requires (User-Agent, Referer, cookies).
	Headers map[string]string

	// Live marks an unbounded live stream; live sources do not support seeking.
	Live bool

	MultiPart  bool
	PartNumber int
	PartName   string

	// Qualities lists the available qualities in the platform's order, if known.
	Qualities []QualityInfo
	// CurrentQuality is the quality StreamURL was resolved at, or nil if the platform
	// does not report one.
	CurrentQuality *QualityInfo
}

// SeekSupported reports whether seeking makes sense for this source at the resolver-capability
// level. Finite streams are assumed seekable; whether a seek succeeds is still up to the decoder.
func (m *MediaInfo) SeekSupported() bool {
	return !m.Live
}

// Header returns a copy of the headers map, so callers can safely extend it per request.
func (m *MediaInfo) Header() map[string]string {
	h := make(map[string]string, len(m.Headers))
	for k, v := range m.Headers {
		h[k] = v
	}
	return h
}
