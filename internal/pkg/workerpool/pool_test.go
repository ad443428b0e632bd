package workerpool

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPool_RunsTasks(t *testing.T) {
	p, err := New(2, 10, zap.NewNop())
	require.NoError(t, err)

	var done atomic.Int32
	finished := make(chan struct{}, 5)
	for i := 0; i < 5; i++ {
		require.NoError(t, p.Submit(context.Background(), func() {
			done.Add(1)
			finished <- struct{}{}
		}))
	}

	for i := 0; i < 5; i++ {
		select {
		case <-finished:
		case <-time.After(time.Second):
			t.Fatal("task did not finish")
		}
	}

	assert.Equal(t, int32(5), done.Load())
	assert.Equal(t, 2, p.Cap())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, p.Release(ctx))
}

func TestPool_Overload(t *testing.T) {
	p, err := New(1, 1, zap.NewNop())
	require.NoError(t, err)
	defer p.Release(context.Background())

	block := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), func() { <-block }))

	// one submitter may wait for the busy worker, a second one is rejected
	waiting := make(chan error, 1)
	go func() { waiting <- p.Submit(context.Background(), func() {}) }()

	require.Eventually(t, func() bool {
		return p.Waiting() == 1
	}, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, p.Submit(context.Background(), func() {}), ErrOverloaded)

	close(block)
	assert.NoError(t, <-waiting)
}

func TestPool_SubmitHonoursContext(t *testing.T) {
	p, err := New(1, 4, zap.NewNop())
	require.NoError(t, err)
	defer p.Release(context.Background())

	block := make(chan struct{})
	defer close(block)
	require.NoError(t, p.Submit(context.Background(), func() { <-block }))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	var ran atomic.Bool
	err = p.Submit(ctx, func() { ran.Store(true) })

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 0, p.Waiting())
	assert.False(t, ran.Load())
}

func TestPool_SlotIsFreedAfterTask(t *testing.T) {
	p, err := New(1, 0, zap.NewNop())
	require.NoError(t, err)
	defer p.Release(context.Background())

	for i := 0; i < 3; i++ {
		finished := make(chan struct{})
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		require.NoError(t, p.Submit(ctx, func() { close(finished) }))
		<-finished
		cancel()
	}
}
