// Package observable provides a single-slot observable value: the last value set is remembered and
// replayed to subscribers that register after the fact, so a consumer can never miss a terminal
// update by subscribing "too late".
package observable

import (
	"sync"

	"github.com/tobyprime/Mcedia-sub001/internal/pubsub"
)

const subscriberBufSize = 16

// Value holds the most recent value passed to Set and a list of subscribers. Delivery uses
// keep-latest semantics per subscriber: a subscriber that never drains its channel only loses
// intermediate values, never the most recent one, and ordering of delivered values matches the
// order of Set calls.
type Value[T any] struct {
	mu          sync.Mutex
	subscribers map[*Subscription[T]]struct{}
	last        T
	fired       bool
	closed      bool
}

func NewValue[T any]() *Value[T] {
	return &Value[T]{
		subscribers: make(map[*Subscription[T]]struct{}),
	}
}

// Set stores the value and delivers it to every current subscriber. Returns false if the Value has
// been closed, in which case nothing is stored or delivered.
func (v *Value[T]) Set(value T) bool {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return false
	}
	v.last = value
	v.fired = true
	subs := make([]*Subscription[T], 0, len(v.subscribers))
	for s := range v.subscribers {
		subs = append(subs, s)
	}
	v.mu.Unlock()

	for _, s := range subs {
		if ok := s.ch.SendLatest(value); !ok {
			v.remove(s)
		}
	}
	return true
}

// Get returns the most recent value and whether Set has ever been called.
func (v *Value[T]) Get() (T, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.last, v.fired
}

// Subscribe registers a new subscriber. If a value has already been set, it is delivered to the new
// subscriber immediately, so late subscribers still observe the most recent (possibly terminal)
// value exactly once.
func (v *Value[T]) Subscribe() *Subscription[T] {
	s := &Subscription[T]{
		value: v,
		ch:    pubsub.NewLatestChannel[T](subscriberBufSize),
	}
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		s.ch.Close()
		return s
	}
	replay, fired := v.last, v.fired
	v.subscribers[s] = struct{}{}
	v.mu.Unlock()
	if fired {
		s.ch.SendLatest(replay)
	}
	return s
}

// Close detaches and closes every subscriber. Further Set calls become no-ops. Idempotent.
func (v *Value[T]) Close() {
	v.mu.Lock()
	if v.closed {
		v.mu.Unlock()
		return
	}
	v.closed = true
	subs := make([]*Subscription[T], 0, len(v.subscribers))
	for s := range v.subscribers {
		subs = append(subs, s)
	}
	v.subscribers = make(map[*Subscription[T]]struct{})
	v.mu.Unlock()
	for _, s := range subs {
		s.ch.Close()
	}
}

func (v *Value[T]) remove(s *Subscription[T]) {
	v.mu.Lock()
	delete(v.subscribers, s)
	v.mu.Unlock()
}

// Subscription is one subscriber's view of a Value.
type Subscription[T any] struct {
	value *Value[T]
	ch    pubsub.LatestChannel[T]
	once  sync.Once
}

// Receive returns the channel updates arrive on. The channel is closed when either the
// Subscription or the owning Value is closed.
func (s *Subscription[T]) Receive() <-chan T {
	return s.ch.Receive()
}

// Close detaches the subscription from the Value and closes its channel. Idempotent.
func (s *Subscription[T]) Close() {
	s.once.Do(func() {
		s.value.remove(s)
		s.ch.Close()
	})
}
