package syncx

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEventSetIdempotent(t *testing.T) {
	assert := assert.New(t)
	var e Event
	assert.False(e.IsSet())
	assert.True(e.Set())
	assert.False(e.Set())
	assert.True(e.IsSet())
}

func TestEventWait(t *testing.T) {
	assert := assert.New(t)
	var e Event

	select {
	case <-e.Wait():
		t.Fatal("wait channel closed before Set")
	default:
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		e.Set()
	}()

	select {
	case <-e.Wait():
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
	assert.True(e.IsSet())

	// Waiting on an already-set event returns a closed channel.
	select {
	case <-e.Wait():
	default:
		t.Fatal("wait channel should be closed after Set")
	}
}
