package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueProcessesJobs(t *testing.T) {
	done := make(chan string, 2)
	q := NewQueue("test", func(ctx context.Context, j Job) error {
		done <- j.ID
		return nil
	}, QueueConfig{Workers: 2})

	require.Error(t, q.Enqueue(Job{ID: "early"}), "enqueue before start must fail")

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
	assert.Equal(t, map[string]bool{"a": true, "b": true}, seen)
}

func TestQueueRetriesThenGivesUp(t *testing.T) {
	var calls int32
	gaveUp := make(chan Job, 1)
	q := NewQueue("retry", func(ctx context.Context, j Job) error {
		atomic.AddInt32(&calls, 1)
		return errors.New("boom")
	}, QueueConfig{
		MaxRetries: 2,
		RetryDelay: 5 * time.Millisecond,
		OnGiveUp:   func(j Job, err error) { gaveUp <- j },
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "flaky"}))
	select {
	case j := <-gaveUp:
		assert.Equal(t, "flaky", j.ID)
		assert.Equal(t, 3, j.Attempt)
	case <-time.After(2 * time.Second):
		t.Fatal("job was never given up")
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestQueuePermanentErrorSkipsRetries(t *testing.T) {
	var calls int32
	gaveUp := make(chan error, 1)
	q := NewQueue("permanent", func(ctx context.Context, j Job) error {
		atomic.AddInt32(&calls, 1)
		return Permanent(errors.New("signing key missing"))
	}, QueueConfig{
		MaxRetries: 5,
		RetryDelay: 5 * time.Millisecond,
		OnGiveUp:   func(j Job, err error) { gaveUp <- err },
	})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "export-1"}))
	select {
	case err := <-gaveUp:
		assert.True(t, IsPermanent(err))
		assert.EqualError(t, err, "signing key missing")
	case <-time.After(2 * time.Second):
		t.Fatal("job was never abandoned")
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, int64(1), q.Stats().Abandoned)
	assert.Zero(t, q.Stats().Retried)
}

func TestQueueRecoversHandlerPanic(t *testing.T) {
	gaveUp := make(chan error, 1)
	q := NewQueue("panicky", func(ctx context.Context, j Job) error {
		panic("nil section")
	}, QueueConfig{OnGiveUp: func(j Job, err error) { gaveUp <- err }})
	q.Start(context.Background())
	defer q.Stop()

	require.NoError(t, q.Enqueue(Job{ID: "p"}))
	select {
	case err := <-gaveUp:
		assert.Contains(t, err.Error(), "nil section")
	case <-time.After(2 * time.Second):
		t.Fatal("panic was not converted into a failure")
	}
}

func TestPermanentNil(t *testing.T) {
	assert.NoError(t, Permanent(nil))
	assert.False(t, IsPermanent(errors.New("transient")))
}
