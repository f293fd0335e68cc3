package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewQueue(t *testing.T) {
	tests := []struct {
		name    string
		workers int
		want    int
	}{
		{"explicit", 5, 5},
		{"zero falls back", 0, defaultWorkers},
		{"negative falls back", -1, defaultWorkers},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQueue(tt.workers)
			assert.Equal(t, tt.want, q.workers)
			assert.Equal(t, DefaultNamespace, q.keys.ns)
			assert.False(t, q.running)
		})
	}
}

func TestKeys(t *testing.T) {
	k := keys{ns: "twai:jobs"}
	assert.Equal(t, "twai:jobs:job:abc", k.job("abc"))
	assert.Equal(t, "twai:jobs:pending", k.pending())
	assert.Equal(t, "twai:jobs:processing", k.processing())
	assert.Equal(t, "twai:jobs:delayed", k.delayed())
	assert.Equal(t, "twai:jobs:stats", k.stats())
}

func TestQueue_StopWithoutStart(t *testing.T) {
	q := NewQueue(1)
	q.Stop()
	assert.False(t, q.running)
}

func TestQueue_FailedJobIsScheduledForRetry(t *testing.T) {
	ctx := context.Background()
	ops := &fakeBilling{err: errors.New("provider down")}
	q := newTestQueue(t, 1)
	q.billing = ops

	require.NoError(t, q.EnqueuePushLocalState(4))
	job, err := q.claim(ctx)
	require.NoError(t, err)

	q.run(ctx, job)

	processing, err := q.GetProcessingSize(ctx)
	require.NoError(t, err)
	assert.Zero(t, processing)

	delayed, err := q.client.ZRangeWithScores(ctx, q.keys.delayed(), 0, -1).Result()
	require.NoError(t, err)
	require.Len(t, delayed, 1)
	assert.Equal(t, job.ID, delayed[0].Member)
	assert.Greater(t, delayed[0].Score, float64(time.Now().Unix()))

	stored, err := q.load(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusRetrying, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	assert.Equal(t, "provider down", stored.LastError)

	size, err := q.GetQueueSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), size, "scheduled retries count as queued")
}

func TestQueue_ExhaustedJobFails(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t, 1)
	q.billing = &fakeBilling{err: errors.New("provider down")}

	require.NoError(t, q.EnqueuePushLocalState(5))
	job, err := q.claim(ctx)
	require.NoError(t, err)
	job.Attempts = job.MaxAttempts - 1

	q.run(ctx, job)

	stats, err := q.GetJobStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats[JobStatusFailed])

	count, err := q.client.ZCard(ctx, q.keys.delayed()).Result()
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestQueue_PromoteDue(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t, 1)

	past := float64(time.Now().Add(-time.Second).Unix())
	future := float64(time.Now().Add(time.Hour).Unix())
	require.NoError(t, q.client.ZAdd(ctx, q.keys.delayed(),
		redis.Z{Score: past, Member: "due"},
		redis.Z{Score: future, Member: "later"},
	).Err())

	q.promoteDue(ctx)

	pending, err := q.client.LRange(ctx, q.keys.pending(), 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"due"}, pending)

	left, err := q.client.ZRange(ctx, q.keys.delayed(), 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"later"}, left)

	// A second pass finds nothing due and does not duplicate the job.
	q.promoteDue(ctx)
	n, err := q.client.LLen(ctx, q.keys.pending()).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestQueue_PromoteBatches(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t, 1)

	past := float64(time.Now().Add(-time.Minute).Unix())
	for i := 0; i < 5; i++ {
		require.NoError(t, q.client.ZAdd(ctx, q.keys.delayed(), redis.Z{Score: past, Member: fmt.Sprintf("job-%d", i)}).Err())
	}

	moved, err := q.promote(ctx, time.Now(), 3)
	require.NoError(t, err)
	assert.Equal(t, 3, moved)

	delayed, err := q.client.ZCard(ctx, q.keys.delayed()).Result()
	require.NoError(t, err)
	pending, err := q.client.LLen(ctx, q.keys.pending()).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 2, delayed)
	assert.EqualValues(t, 3, pending)

	moved, err = q.promote(ctx, time.Now(), 3)
	require.NoError(t, err)
	assert.Equal(t, 2, moved)

	size, err := q.GetQueueSize(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 5, size)
}

func TestQueue_RecoverStuck(t *testing.T) {
	ctx := context.Background()
	q := newTestQueue(t, 1)

	require.NoError(t, q.EnqueueSendMail([]string{"ops@example.com"}, "s", "b"))
	job, err := q.claim(ctx)
	require.NoError(t, err)

	// Simulate a worker that died after starting the job.
	job.start(time.Now().Add(-time.Hour))
	_, err = q.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		q.save(ctx, pipe, job)
		return nil
	})
	require.NoError(t, err)

	// Orphaned ids without a record are dropped.
	require.NoError(t, q.client.LPush(ctx, q.keys.processing(), "ghost").Err())

	q.recoverStuck(ctx, 10*time.Minute)

	processing, err := q.GetProcessingSize(ctx)
	require.NoError(t, err)
	assert.Zero(t, processing)

	pending, err := q.client.LRange(ctx, q.keys.pending(), 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{job.ID}, pending)

	stored, err := q.load(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, JobStatusPending, stored.Status)
}
