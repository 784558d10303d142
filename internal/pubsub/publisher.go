package pubsub

import (
	"errors"
	"sync"
)

const (
	DefaultPublisherBufSize  = 1
	DefaultSubscriberBufSize = 16
)

var (
	ErrPublisherClosed = errors.New("publisher closed")
)

// Publisher fans messages out to any number of subscribers. A subscriber that closes itself is
// silently dropped on the next delivery attempt.
type Publisher[T any] interface {
	SenderCloser[T]
	AddSubscriber(SenderCloser[T]) error
	Subscribe() (ReceiverCloser[T], error)
}

type publisher[T any] struct {
	mu          sync.Mutex
	ch          Channel[T]
	running     sync.WaitGroup // Goroutines in progress
	pending     sync.WaitGroup // Messages not yet sent to all subscribers
	subscribers map[SenderCloser[T]]struct{}
	closed      bool
}

func NewPublisher[T any]() Publisher[T] {
	p := &publisher[T]{
		ch:          NewChannel[T](DefaultPublisherBufSize),
		subscribers: make(map[SenderCloser[T]]struct{}),
	}
	p.running.Add(1)
	go func() {
		defer p.running.Done()
		for v := range p.ch.Receive() {
			// Snapshot the subscriber set, to avoid holding the lock while delivering
			p.mu.Lock()
			subscriberSlice := make([]SenderCloser[T], 0, len(p.subscribers))
			for s := range p.subscribers {
				subscriberSlice = append(subscriberSlice, s)
			}
			p.mu.Unlock()
			for _, s := range subscriberSlice {
				if ok := s.Send(v); !ok {
					p.unsubscribe(s)
				}
			}
			p.pending.Done()
		}
	}()
	return p
}

// Send will publish the value to all subscribers (non-blocking).
func (p *publisher[T]) Send(msg T) bool {
	p.pending.Add(1)
	if ok := p.ch.Send(msg); !ok {
		// Message was not sent, so don't wait for it
		p.pending.Done()
		return false
	} else {
		return true
	}
}

func (p *publisher[T]) Subscribe() (ReceiverCloser[T], error) {
	s := NewChannel[T](DefaultSubscriberBufSize)
	if err := p.AddSubscriber(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (p *publisher[T]) AddSubscriber(s SenderCloser[T]) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPublisherClosed
	}
	p.subscribers[s] = struct{}{}
	return nil
}

func (p *publisher[T]) unsubscribe(s SenderCloser[T]) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.subscribers, s)
}

// Close idempotently shuts down the publisher, closing all subscribers too.
func (p *publisher[T]) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()
	// Close the send channel, and wait for in-flight deliveries to finish
	p.ch.Close()
	p.pending.Wait()
	p.running.Wait()
	// Close all subscribers
	p.mu.Lock()
	subscriberSlice := make([]SenderCloser[T], 0, len(p.subscribers))
	for s := range p.subscribers {
		subscriberSlice = append(subscriberSlice, s)
	}
	p.subscribers = make(map[SenderCloser[T]]struct{})
	p.mu.Unlock()
	for _, s := range subscriberSlice {
		s.Close()
	}
}
