package frame

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFrame() *VideoFrame {
	return NewVideoFrame(make([]byte, 4), 1, 1, 0)
}

func TestBufferPushPop(t *testing.T) {
	assert := assert.New(t)
	b := NewBuffer[*VideoFrame](2, Block)
	ctx := context.Background()

	f := newFrame()
	assert.NoError(b.Push(ctx, f))
	assert.Equal(1, b.Len())

	got, err := b.Pop(ctx)
	assert.NoError(err)
	assert.Same(f, got)
	assert.True(got.Release())
}

func TestBufferBackpressureBlocks(t *testing.T) {
	assert := assert.New(t)
	b := NewBuffer[*VideoFrame](1, Block)
	ctx := context.Background()
	require.NoError(t, b.Push(ctx, newFrame()))

	// A second push must block until the consumer drains a slot.
	pushed := make(chan error, 1)
	go func() {
		pushed <- b.Push(ctx, newFrame())
	}()
	select {
	case err := <-pushed:
		t.Fatalf("push completed on a full buffer: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	got, err := b.Pop(ctx)
	require.NoError(t, err)
	got.Release()

	select {
	case err := <-pushed:
		assert.NoError(err)
	case <-time.After(time.Second):
		t.Fatal("push never unblocked after a pop")
	}
}

func TestBufferPushContextCancel(t *testing.T) {
	b := NewBuffer[*VideoFrame](1, Block)
	require.NoError(t, b.Push(context.Background(), newFrame()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	f := newFrame()
	err := b.Push(ctx, f)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	// A rejected frame was released by the buffer.
	assert.True(t, f.Released())
}

func TestBufferDropOldest(t *testing.T) {
	assert := assert.New(t)
	b := NewBuffer[*VideoFrame](2, DropOldest)
	ctx := context.Background()

	first := newFrame()
	assert.NoError(b.Push(ctx, first))
	assert.NoError(b.Push(ctx, newFrame()))
	assert.NoError(b.Push(ctx, newFrame())) // evicts first

	assert.Equal(int64(1), b.Dropped())
	assert.True(first.Released(), "evicted frame must be released by the buffer")
	assert.Equal(2, b.Len())
}

func TestBufferCloseReleasesQueued(t *testing.T) {
	assert := assert.New(t)
	b := NewBuffer[*VideoFrame](4, Block)
	ctx := context.Background()

	frames := []*VideoFrame{newFrame(), newFrame(), newFrame()}
	for _, f := range frames {
		require.NoError(t, b.Push(ctx, f))
	}
	b.Close()
	b.Close() // idempotent

	for _, f := range frames {
		assert.True(f.Released())
	}

	_, err := b.Pop(ctx)
	assert.ErrorIs(err, ErrBufferClosed)

	late := newFrame()
	assert.ErrorIs(b.Push(ctx, late), ErrBufferClosed)
	assert.True(late.Released())
}

func TestBufferCloseUnblocksProducer(t *testing.T) {
	b := NewBuffer[*VideoFrame](1, Block)
	require.NoError(t, b.Push(context.Background(), newFrame()))

	pushed := make(chan error, 1)
	go func() {
		pushed <- b.Push(context.Background(), newFrame())
	}()
	time.Sleep(20 * time.Millisecond)
	b.Close()

	select {
	case err := <-pushed:
		assert.ErrorIs(t, err, ErrBufferClosed)
	case <-time.After(time.Second):
		t.Fatal("producer still blocked after Close")
	}
}

func TestBufferExactlyOnceAcrossPopAndClose(t *testing.T) {
	assert := assert.New(t)
	b := NewBuffer[*VideoFrame](8, Block)
	ctx := context.Background()

	var all []*VideoFrame
	for i := 0; i < 8; i++ {
		f := newFrame()
		all = append(all, f)
		require.NoError(t, b.Push(ctx, f))
	}

	// Consumer takes half and releases each exactly once; Close releases the rest.
	for i := 0; i < 4; i++ {
		f, ok := b.TryPop()
		require.True(t, ok)
		assert.True(f.Release())
	}
	b.Close()

	for _, f := range all {
		assert.True(f.Released())
		assert.False(f.Release(), "second release must be a no-op")
	}
}

func TestBufferFlush(t *testing.T) {
	assert := assert.New(t)
	b := NewBuffer[*VideoFrame](4, Block)
	ctx := context.Background()
	f := newFrame()
	require.NoError(t, b.Push(ctx, f))
	b.Flush()
	assert.Equal(0, b.Len())
	assert.True(f.Released())

	// The buffer stays usable after a flush.
	assert.NoError(b.Push(ctx, newFrame()))
	assert.Equal(1, b.Len())
}
