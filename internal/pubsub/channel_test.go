package pubsub

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChannelSendReceive(t *testing.T) {
	assert := assert.New(t)
	c := NewChannel[int](1)
	assert.True(c.Send(1))
	assert.Equal(1, <-c.Receive())
}

func TestChannelSendAfterClose(t *testing.T) {
	assert := assert.New(t)
	c := NewChannel[int](1)
	c.Close()
	assert.False(c.Send(1))
	_, ok := <-c.Receive()
	assert.False(ok)
}

func TestChannelCloseUnblocksSender(t *testing.T) {
	assert := assert.New(t)
	c := NewChannel[int](0)
	sent := make(chan bool, 1)
	go func() {
		sent <- c.Send(1)
	}()
	time.Sleep(10 * time.Millisecond)
	c.Close()
	select {
	case ok := <-sent:
		assert.False(ok)
	case <-time.After(time.Second):
		t.Fatal("Send did not return after Close")
	}
}

func TestChannelSendLatestEvictsOldest(t *testing.T) {
	assert := assert.New(t)
	c := NewLatestChannel[int](2)
	assert.True(c.SendLatest(1))
	assert.True(c.SendLatest(2))
	assert.True(c.SendLatest(3)) // evicts 1
	assert.Equal(2, <-c.Receive())
	assert.Equal(3, <-c.Receive())
	c.Close()
	assert.False(c.SendLatest(4))
}

func TestPublisherFanOut(t *testing.T) {
	assert := assert.New(t)
	p := NewPublisher[string]()
	a, err := p.Subscribe()
	assert.NoError(err)
	b, err := p.Subscribe()
	assert.NoError(err)

	assert.True(p.Send("hello"))
	assert.Equal("hello", <-a.Receive())
	assert.Equal("hello", <-b.Receive())

	p.Close()
	_, ok := <-a.Receive()
	assert.False(ok)
	assert.False(p.Send("late"))
	_, err = p.Subscribe()
	assert.ErrorIs(err, ErrPublisherClosed)
}
