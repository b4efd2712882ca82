package jobs

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestQueueProcessesJobs(t *testing.T) {
	done := make(chan string, 4)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		done <- job.ID
		return nil
	}, QueueConfig{Workers: 2, BufferSize: 4, Logger: zap.NewNop()})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "a"}))
	require.NoError(t, q.Enqueue(Job{ID: "b"}))

	seen := map[string]bool{}
	for i := 0; i < 2; i++ {
		select {
		case id := <-done:
			seen[id] = true
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for jobs")
		}
	}
	assert.True(t, seen["a"])
	assert.True(t, seen["b"])
}

func TestQueueRequiresStart(t *testing.T) {
	q := NewQueue("test", func(ctx context.Context, job Job) error { return nil }, QueueConfig{})
	err := q.Enqueue(Job{ID: "a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not started")
}

func TestQueueRejectsWhenFull(t *testing.T) {
	release := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		<-release
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 1, Logger: zap.NewNop()})

	q.Start(context.Background())
	defer func() {
		close(release)
		q.Stop()
	}()

	// first job occupies the worker, second fills the buffer
	require.NoError(t, q.Enqueue(Job{ID: "busy"}))
	var err error
	for i := 0; i < 50; i++ {
		err = q.Enqueue(Job{ID: fmt.Sprintf("fill-%d", i)})
		if err != nil {
			break
		}
	}
	require.Error(t, err)
	assert.Contains(t, err.Error(), "full")
}

func TestQueueDrainsOnStop(t *testing.T) {
	var mu sync.Mutex
	var handled []string
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		mu.Lock()
		handled = append(handled, job.ID)
		mu.Unlock()
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 8, Logger: zap.NewNop()})

	q.Start(context.Background())
	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(Job{ID: fmt.Sprintf("j-%d", i)}))
	}
	q.Stop()

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, handled, 5)

	err := q.Enqueue(Job{ID: "late"})
	require.Error(t, err)
}

func TestQueueRetriesFailedJobs(t *testing.T) {
	attempts := make(chan int, 8)
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		attempts <- job.Attempt
		if job.Attempt == 0 {
			return fmt.Errorf("transient")
		}
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 4, RetryDelay: 10 * time.Millisecond, Logger: zap.NewNop()})

	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "flaky"}))

	var got []int
	for i := 0; i < 2; i++ {
		select {
		case a := <-attempts:
			got = append(got, a)
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for retry")
		}
	}
	assert.Equal(t, []int{0, 1}, got)
}

func TestQueueReportsDepth(t *testing.T) {
	depths := make(chan int, 16)
	release := make(chan struct{})
	q := NewQueue("test", func(ctx context.Context, job Job) error {
		<-release
		return nil
	}, QueueConfig{Workers: 1, BufferSize: 4, OnDepth: func(d int) { depths <- d }, Logger: zap.NewNop()})

	q.Start(context.Background())
	defer func() {
		close(release)
		q.Stop()
	}()

	require.NoError(t, q.Enqueue(Job{ID: "a"}))
	select {
	case d := <-depths:
		assert.GreaterOrEqual(t, d, 0)
	case <-time.After(2 * time.Second):
		t.Fatal("depth callback never fired")
	}
}
