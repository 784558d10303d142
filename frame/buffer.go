package frame

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

var (
	ErrBufferClosed = errors.New("frame buffer closed")
)

// Policy selects what Push does when the buffer is full.
type Policy int

const (
	// Block makes a full buffer exert backpressure: Push waits until the consumer drains a slot.
	// The right choice for finite streams, where every frame must be presented.
	Block Policy = iota
	// DropOldest makes a full buffer discard (and release) its oldest frame to admit the new one,
	// bounding end-to-end latency. The right choice for live streams.
	DropOldest
)

// Buffer is a bounded, thread-safe queue of releasable frames between one producer and one or more
// consumers. Ownership transfers fully to the consumer on Pop; frames still queued when the buffer
// closes are released by the buffer, exactly once each.
type Buffer[T Releasable] struct {
	mu      sync.RWMutex
	ch      chan T
	done    chan struct{}
	closed  bool
	waiting sync.WaitGroup
	policy  Policy
	dropped atomic.Int64
}

// NewBuffer creates a Buffer holding up to capacity frames.
func NewBuffer[T Releasable](capacity int, policy Policy) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer[T]{
		ch:     make(chan T, capacity),
		done:   make(chan struct{}),
		policy: policy,
	}
}

// Push enqueues a frame, blocking for space under the Block policy. If Push returns an error the
// frame has already been released; the producer must not touch it again either way.
func (b *Buffer[T]) Push(ctx context.Context, item T) error {
	// Atomically ensure that either the enqueue is never attempted or that Close() waits until no
	// more enqueues are in flight.
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		item.Release()
		return ErrBufferClosed
	}
	b.waiting.Add(1)
	defer b.waiting.Done()
	b.mu.RUnlock()

	if b.policy == DropOldest {
		for {
			select {
			case b.ch <- item:
				return nil
			case <-b.done:
				item.Release()
				return ErrBufferClosed
			default:
			}
			// Full: evict the oldest frame to bound latency. A concurrent consumer may win the
			// race for it, which frees a slot just the same.
			select {
			case old := <-b.ch:
				old.Release()
				b.dropped.Add(1)
			default:
			}
		}
	}

	select {
	case b.ch <- item:
		return nil
	case <-b.done:
		item.Release()
		return ErrBufferClosed
	case <-ctx.Done():
		item.Release()
		return ctx.Err()
	}
}

// Pop dequeues the next frame, blocking until one is available, the buffer closes, or the context
// is cancelled. The caller owns the returned frame and must release it exactly once.
func (b *Buffer[T]) Pop(ctx context.Context) (T, error) {
	var zero T
	select {
	case item, ok := <-b.ch:
		if !ok {
			return zero, ErrBufferClosed
		}
		return item, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// TryPop dequeues the next frame without blocking.
func (b *Buffer[T]) TryPop() (T, bool) {
	var zero T
	select {
	case item, ok := <-b.ch:
		if !ok {
			return zero, false
		}
		return item, true
	default:
		return zero, false
	}
}

// Len returns how many frames are currently queued.
func (b *Buffer[T]) Len() int {
	return len(b.ch)
}

// Cap returns the buffer capacity.
func (b *Buffer[T]) Cap() int {
	return cap(b.ch)
}

// Dropped returns how many frames the DropOldest policy has discarded.
func (b *Buffer[T]) Dropped() int64 {
	return b.dropped.Load()
}

// Flush releases every queued frame without closing the buffer. Used on seek, where buffered
// frames belong to the old position.
func (b *Buffer[T]) Flush() {
	for {
		select {
		case item, ok := <-b.ch:
			if !ok {
				return
			}
			item.Release()
		default:
			return
		}
	}
}

// Close idempotently shuts the buffer: pending and future pushes fail, queued frames are released
// exactly once, and consumers see end-of-queue after draining.
func (b *Buffer[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	// Stop any blocked producers, and wait for in-flight pushes to exit.
	close(b.done)
	b.waiting.Wait()
	// Release whatever is still queued, then close the channel to notify consumers.
	b.Flush()
	close(b.ch)
	b.closed = true
}
