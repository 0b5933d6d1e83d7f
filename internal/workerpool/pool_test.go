package workerpool_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taxrecon/internal/workerpool"
)

func TestPool_RunsAllTasks(t *testing.T) {
	p := workerpool.New(3)
	defer p.Close()

	var done int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		require.NoError(t, p.Submit(context.Background(), func(context.Context) {
			defer wg.Done()
			atomic.AddInt32(&done, 1)
		}))
	}
	wg.Wait()

	assert.Equal(t, int32(20), atomic.LoadInt32(&done))
}

func TestPool_BoundsConcurrency(t *testing.T) {
	p := workerpool.New(2)
	defer p.Close()

	var running, peak int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		require.NoError(t, p.Submit(context.Background(), func(context.Context) {
			defer wg.Done()
			n := atomic.AddInt32(&running, 1)
			for {
				old := atomic.LoadInt32(&peak)
				if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&running, -1)
		}))
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestPool_SurvivesPanickingTask(t *testing.T) {
	p := workerpool.New(1)
	defer p.Close()

	require.NoError(t, p.Submit(context.Background(), func(context.Context) { panic("boom") }))

	done := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), func(context.Context) { close(done) }))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not recover from panic")
	}
}

func TestPool_SubmitAfterClose(t *testing.T) {
	p := workerpool.New(1)
	p.Close()
	p.Close()

	err := p.Submit(context.Background(), func(context.Context) {})

	assert.ErrorIs(t, err, workerpool.ErrPoolClosed)
}

func TestPool_SubmitHonoursContext(t *testing.T) {
	p := workerpool.New(1)
	defer p.Close()

	release := make(chan struct{})
	require.NoError(t, p.Submit(context.Background(), func(context.Context) { <-release }))
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Submit(ctx, func(context.Context) {})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
