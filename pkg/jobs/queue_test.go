package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestQueueProcessesJobs(t *testing.T) {
	defer goleak.VerifyNone(t)

	done := make(chan string, 3)
	q := NewQueue("thumbs", func(ctx context.Context, job Job) error {
		done <- job.ID
		return nil
	}, QueueConfig{Workers: 2})
	q.Start(context.Background())
	defer q.Stop()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, q.Enqueue(Job{ID: id, Type: "thumbnail"}))
	}

	seen := map[string]bool{}
	for i := 0; i < 3; i++ {
		select {
		case id := <-done:
			seen[id] = true
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}
	assert.Len(t, seen, 3)
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	defer goleak.VerifyNone(t)

	var attempts int32
	succeeded := make(chan struct{})
	q := NewQueue("thumbs", func(ctx context.Context, job Job) error {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return errors.New("decode failed")
		}
		close(succeeded)
		return nil
	}, QueueConfig{MaxRetries: 2, RetryDelay: 5 * time.Millisecond})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "retry"}))
	select {
	case <-succeeded:
	case <-time.After(2 * time.Second):
		t.Fatal("job never succeeded")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
}

func TestQueueStopCancelsPendingRetries(t *testing.T) {
	defer goleak.VerifyNone(t)

	failed := make(chan struct{}, 1)
	q := NewQueue("thumbs", func(ctx context.Context, job Job) error {
		failed <- struct{}{}
		return errors.New("boom")
	}, QueueConfig{MaxRetries: 5, RetryDelay: time.Hour})
	q.Start(context.Background())

	require.NoError(t, q.Enqueue(Job{ID: "slow"}))
	<-failed
	q.Stop()

	require.Error(t, q.Enqueue(Job{ID: "late"}))
}

func TestQueueTryEnqueueReportsFullBuffer(t *testing.T) {
	defer goleak.VerifyNone(t)

	block := make(chan struct{})
	started := make(chan struct{}, 1)
	q := NewQueue("thumbs", func(ctx context.Context, job Job) error {
		started <- struct{}{}
		select {
		case <-block:
		case <-ctx.Done():
		}
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1})
	q.Start(context.Background())
	defer q.Stop()
	defer close(block)

	require.NoError(t, q.TryEnqueue(Job{ID: "1"}))
	<-started
	require.NoError(t, q.TryEnqueue(Job{ID: "2"}))
	err := q.TryEnqueue(Job{ID: "3"})
	require.ErrorIs(t, err, ErrQueueFull)
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	q := NewQueue("thumbs", func(context.Context, Job) error { return nil }, QueueConfig{})
	require.Error(t, q.Enqueue(Job{ID: "x"}))
}
