// Package playlist sequences URLs for back-to-back playback. It is a pure state machine: it
// never touches the resolver pipeline, it just answers "what plays next".
package playlist

import (
	"slices"
	"sync"
)

// Manager steps through an ordered URL list, optionally looping. The zero value is an empty,
// unstarted playlist and is ready to use. Safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	urls    []string
	current int
	loop    bool
	started bool
}

func NewManager() *Manager {
	return &Manager{}
}

// Load replaces the playlist contents and loop flag, resetting playback to the start. If both
// the URL list (element-wise, order-sensitive) and the loop flag match the current state, Load
// is a no-op and returns false, so a caller re-submitting the same state every tick never
// restarts an in-progress list.
func (m *Manager) Load(urls []string, loop bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if loop == m.loop && slices.Equal(urls, m.urls) {
		return false
	}
	m.urls = slices.Clone(urls)
	m.loop = loop
	m.current = 0
	m.started = false
	return true
}

// Next advances to the next URL and returns it. Once the list is exhausted it wraps to the
// start when looping, otherwise returns ok=false. An empty playlist returns ok=false without
// mutating any state.
func (m *Manager) Next() (url string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.urls) == 0 {
		return "", false
	}
	if !m.started {
		m.started = true
		m.current = 0
		return m.urls[0], true
	}
	m.current++
	if m.current >= len(m.urls) {
		if !m.loop {
			m.current = len(m.urls)
			return "", false
		}
		m.current = 0
	}
	return m.urls[m.current], true
}

// Current returns the URL playback is positioned at, or ok=false if the playlist has not been
// started or has run past the end.
func (m *Manager) Current() (url string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.started || m.current >= len(m.urls) {
		return "", false
	}
	return m.urls[m.current], true
}

// Len returns the number of queued URLs.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.urls)
}

// Loop reports whether the playlist wraps around at the end.
func (m *Manager) Loop() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loop
}

// Clear resets the manager to the empty, unstarted state.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.urls = nil
	m.current = 0
	m.loop = false
	m.started = false
}
