package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Validation(t *testing.T) {
	noop := func(context.Context, Job) error { return nil }

	tests := []struct {
		name    string
		workers int
		handler Handler
		wantErr bool
	}{
		{"one worker", 1, noop, false},
		{"many workers", 32, noop, false},
		{"zero workers", 0, noop, true},
		{"negative workers", -2, noop, true},
		{"nil handler", 1, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.workers, tt.handler)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, p)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.workers, p.Workers())
		})
	}

	_, err := New(0, noop)
	assert.ErrorIs(t, err, ErrInvalidWorkers)
}

func TestPool_ProcessesEveryJob(t *testing.T) {
	var (
		mu   sync.Mutex
		seen = make(map[string]int)
	)
	p, err := New(4, func(_ context.Context, job Job) error {
		mu.Lock()
		seen[job.Path]++
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))

	const jobs = 1000
	for i := 0; i < jobs; i++ {
		require.NoError(t, p.Submit(Job{Path: fmt.Sprintf("file-%d.txt", i)}))
	}
	p.Close()
	require.NoError(t, p.Wait())

	assert.Len(t, seen, jobs)
	for path, n := range seen {
		assert.Equal(t, 1, n, path)
	}
	stats := p.Stats()
	assert.Equal(t, int64(jobs), stats.Submitted)
	assert.Equal(t, int64(jobs), stats.Completed)
	assert.Zero(t, stats.Failed)
	assert.Zero(t, stats.Pending)
}

func TestPool_SubmitDoesNotBlock(t *testing.T) {
	release := make(chan struct{})
	p, err := New(1, func(context.Context, Job) error {
		<-release
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))

	// The only worker is stuck; submissions still return immediately.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10000; i++ {
			_ = p.Submit(Job{Path: "x"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Submit blocked on a busy worker")
	}

	close(release)
	p.Close()
	require.NoError(t, p.Wait())
	assert.Equal(t, int64(10000), p.Stats().Completed)
}

func TestPool_ErrorsAndPanicsAreContained(t *testing.T) {
	boom := errors.New("unreadable")
	var (
		mu     sync.Mutex
		failed = make(map[string]error)
		ok     atomic.Int64
	)
	p, err := New(3, func(_ context.Context, job Job) error {
		switch job.Path {
		case "bad":
			return boom
		case "panic":
			panic("tokenizer exploded")
		}
		ok.Add(1)
		return nil
	}, WithErrorHandler(func(job Job, err error) {
		mu.Lock()
		failed[job.Path] = err
		mu.Unlock()
	}))
	require.NoError(t, err)
	require.NoError(t, p.Start(context.Background()))

	for _, path := range []string{"a", "bad", "b", "panic", "c"} {
		require.NoError(t, p.Submit(Job{Path: path}))
	}
	p.Close()
	require.NoError(t, p.Wait())

	assert.Equal(t, int64(3), ok.Load())
	require.Len(t, failed, 2)
	assert.ErrorIs(t, failed["bad"], boom)
	assert.ErrorContains(t, failed["panic"], "tokenizer exploded")
	assert.Equal(t, int64(2), p.Stats().Failed)
}

func TestPool_ShutdownProtocol(t *testing.T) {
	noop := func(context.Context, Job) error { return nil }

	t.Run("wait before start", func(t *testing.T) {
		p, err := New(1, noop)
		require.NoError(t, err)
		p.Close()
		assert.ErrorIs(t, p.Wait(), ErrNotStarted)
	})

	t.Run("wait before close", func(t *testing.T) {
		p, err := New(2, noop)
		require.NoError(t, err)
		require.NoError(t, p.Start(context.Background()))
		assert.ErrorIs(t, p.Wait(), ErrNotClosed)
		p.Close()
		assert.NoError(t, p.Wait())
	})

	t.Run("submit after close", func(t *testing.T) {
		p, err := New(1, noop)
		require.NoError(t, err)
		require.NoError(t, p.Start(context.Background()))
		p.Close()
		assert.ErrorIs(t, p.Submit(Job{Path: "late"}), ErrClosed)
		p.Close()
		assert.NoError(t, p.Wait())
	})

	t.Run("double start", func(t *testing.T) {
		p, err := New(1, noop)
		require.NoError(t, err)
		require.NoError(t, p.Start(context.Background()))
		assert.ErrorIs(t, p.Start(context.Background()), ErrAlreadyStarted)
		p.Close()
		assert.NoError(t, p.Wait())
	})

	t.Run("idle workers exit on close", func(t *testing.T) {
		p, err := New(8, noop)
		require.NoError(t, err)
		require.NoError(t, p.Start(context.Background()))
		time.Sleep(10 * time.Millisecond)
		p.Close()

		done := make(chan error, 1)
		go func() { done <- p.Wait() }()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("idle workers did not exit after Close")
		}
	})
}

func TestPool_JobsSubmittedBeforeStart(t *testing.T) {
	var count atomic.Int64
	p, err := New(2, func(context.Context, Job) error {
		count.Add(1)
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, p.Submit(Job{Path: "early"}))
	require.NoError(t, p.Start(context.Background()))
	p.Close()
	require.NoError(t, p.Wait())
	assert.Equal(t, int64(1), count.Load())
}

func TestPool_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	var once sync.Once
	var count atomic.Int64

	p, err := New(1, func(ctx context.Context, _ Job) error {
		count.Add(1)
		once.Do(func() { close(started) })
		<-ctx.Done()
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, p.Start(ctx))

	for i := 0; i < 100; i++ {
		require.NoError(t, p.Submit(Job{Path: "slow"}))
	}
	<-started
	cancel()
	p.Close()

	assert.ErrorIs(t, p.Wait(), context.Canceled)
	assert.Equal(t, int64(1), count.Load(), "queued jobs must be abandoned after cancel")
}

func TestPool_CancelledWhileIdle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p, err := New(4, func(context.Context, Job) error { return nil })
	require.NoError(t, err)
	require.NoError(t, p.Start(ctx))

	cancel()
	p.Close()

	done := make(chan error, 1)
	go func() { done <- p.Wait() }()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled workers did not exit")
	}
}

func TestPool_DepthObserver(t *testing.T) {
	var maxDepth atomic.Int64
	release := make(chan struct{})
	p, err := New(1, func(context.Context, Job) error {
		<-release
		return nil
	}, WithDepthObserver(func(n int) {
		if int64(n) > maxDepth.Load() {
			maxDepth.Store(int64(n))
		}
	}))
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, p.Submit(Job{Path: "q"}))
	}
	require.NoError(t, p.Start(context.Background()))
	close(release)
	p.Close()
	require.NoError(t, p.Wait())

	assert.Equal(t, int64(5), maxDepth.Load())
	assert.Zero(t, p.Stats().Pending)
}
