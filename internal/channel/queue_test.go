package channel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Push / Pop ---

func TestDropQueue_PushPop(t *testing.T) {
	q := NewDropQueue[int](2)

	require.True(t, q.TryPush(1))
	require.True(t, q.TryPush(2))
	assert.Equal(t, 2, q.Len())

	v, err := q.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = q.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

// --- Drop policy ---

func TestDropQueue_DropsWhenFull(t *testing.T) {
	q := NewDropQueue[int](1)

	require.True(t, q.TryPush(1))
	assert.False(t, q.TryPush(2))
	assert.False(t, q.TryPush(3))

	assert.Equal(t, int64(1), q.Pushed())
	assert.Equal(t, int64(2), q.Dropped())
}

func TestDropQueue_ZeroDepthNeedsWaitingConsumer(t *testing.T) {
	q := NewDropQueue[int](0)

	// Nobody is waiting: the push must be shed, not block.
	assert.False(t, q.TryPush(1))

	got := make(chan int, 1)
	go func() {
		v, err := q.Pop(context.Background())
		if err == nil {
			got <- v
		}
	}()

	// Retry until the consumer goroutine is parked in Pop.
	require.Eventually(t, func() bool { return q.TryPush(42) }, time.Second, time.Millisecond)
	assert.Equal(t, 42, <-got)
}

// --- Cancellation / close ---

func TestDropQueue_PopHonoursContext(t *testing.T) {
	q := NewDropQueue[int](1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := q.Pop(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDropQueue_Close(t *testing.T) {
	q := NewDropQueue[int](1)
	require.True(t, q.TryPush(7))

	q.Close()
	q.Close() // idempotent

	// Pending value still drains.
	v, err := q.Pop(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 7, v)

	_, err = q.Pop(context.Background())
	assert.ErrorIs(t, err, ErrClosed)

	// Pushes after close are shed.
	assert.False(t, q.TryPush(8))
}
