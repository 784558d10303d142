package observable

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recv[T any](t *testing.T, s *Subscription[T]) T {
	t.Helper()
	select {
	case v, ok := <-s.Receive():
		require.True(t, ok, "subscription closed while awaiting value")
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out awaiting value")
		panic("unreachable")
	}
}

func TestValueSetAndGet(t *testing.T) {
	assert := assert.New(t)
	v := NewValue[string]()
	_, fired := v.Get()
	assert.False(fired)
	assert.True(v.Set("a"))
	got, fired := v.Get()
	assert.True(fired)
	assert.Equal("a", got)
}

func TestValueDeliversInOrder(t *testing.T) {
	assert := assert.New(t)
	v := NewValue[int]()
	s := v.Subscribe()
	v.Set(1)
	v.Set(2)
	assert.Equal(1, recv(t, s))
	assert.Equal(2, recv(t, s))
}

func TestValueLateSubscribeReplaysLast(t *testing.T) {
	assert := assert.New(t)
	v := NewValue[string]()
	v.Set("early")
	v.Set("final")

	s := v.Subscribe()
	assert.Equal("final", recv(t, s))

	// Exactly once: nothing else is pending.
	select {
	case got := <-s.Receive():
		t.Fatalf("unexpected extra value %q", got)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestValueSlowSubscriberKeepsLatest(t *testing.T) {
	assert := assert.New(t)
	v := NewValue[int]()
	s := v.Subscribe()
	for i := 0; i < subscriberBufSize*3; i++ {
		v.Set(i)
	}
	var last int
	for {
		select {
		case last = <-s.Receive():
			continue
		default:
		}
		break
	}
	assert.Equal(subscriberBufSize*3-1, last)
}

func TestValueClose(t *testing.T) {
	assert := assert.New(t)
	v := NewValue[int]()
	s := v.Subscribe()
	v.Close()
	_, ok := <-s.Receive()
	assert.False(ok)
	assert.False(v.Set(1))

	// Subscribing after close yields an already-closed subscription.
	late := v.Subscribe()
	_, ok = <-late.Receive()
	assert.False(ok)
}

func TestSubscriptionCloseDetaches(t *testing.T) {
	assert := assert.New(t)
	v := NewValue[int]()
	s := v.Subscribe()
	s.Close()
	s.Close() // idempotent
	assert.True(v.Set(1))
	_, ok := <-s.Receive()
	assert.False(ok)
}
