package redisqueue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/geocoder89/storefront/internal/jobs"
	"github.com/geocoder89/storefront/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newQueue(t *testing.T, opts ...Option) (*Queue, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return New(rdb, opts...), mr
}

func createdJob(t *testing.T, id int64) jobs.Job {
	t.Helper()

	j, err := jobs.Build(jobs.JobUserCreated, jobs.UserCreatedPayload{UserID: id, Email: "u@x.io", UserName: "u"})
	require.NoError(t, err)
	return j
}

func TestPublishDequeue_FIFO(t *testing.T) {
	q, _ := newQueue(t)
	ctx := context.Background()

	first, second := createdJob(t, 1), createdJob(t, 2)
	require.NoError(t, q.Publish(ctx, first))
	require.NoError(t, q.Publish(ctx, second))

	got, err := q.Dequeue(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)

	got, err = q.Dequeue(ctx, 100*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
	assert.JSONEq(t, string(second.Payload), string(got.Payload))
}

func TestDequeue_EmptyTimesOut(t *testing.T) {
	q, _ := newQueue(t)

	_, err := q.Dequeue(context.Background(), 50*time.Millisecond)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestDequeue_GarbageGoesToDeadList(t *testing.T) {
	q, mr := newQueue(t)

	_, err := mr.Lpush(DefaultKeys().Ready, `{"not":"a job"}`)
	require.NoError(t, err)

	_, err = q.Dequeue(context.Background(), 50*time.Millisecond)
	assert.ErrorIs(t, err, jobs.ErrInvalidEnvelope)

	d, err := q.Depth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Depth{Ready: 0, Delayed: 0, Dead: 1}, d)
}

func TestRetry_ParksUntilDue(t *testing.T) {
	now := time.Now()
	q, _ := newQueue(t, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	j := createdJob(t, 3)
	require.NoError(t, q.Retry(ctx, j, 10*time.Second))

	n, err := q.PromoteDue(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, n, "not due yet")

	now = now.Add(11 * time.Second)

	n, err = q.PromoteDue(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := q.Dequeue(ctx, 50*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, j.ID, got.ID)
}

func TestDeadLetter_RecordsCause(t *testing.T) {
	q, _ := newQueue(t)
	ctx := context.Background()

	j := createdJob(t, 4)
	j.Attempts = j.MaxAttempts
	require.NoError(t, q.DeadLetter(ctx, j, errors.New("smtp 550")))

	dead, err := q.DeadLetters(ctx, 10)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	require.NotNil(t, dead[0].LastError)
	assert.Equal(t, "smtp 550", *dead[0].LastError)
}

func TestPublish_FailureCountsMetric(t *testing.T) {
	prom := observability.NewProm()
	q, mr := newQueue(t, WithProm(prom))
	mr.Close()

	err := q.Publish(context.Background(), createdJob(t, 5))
	assert.Error(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(prom.JobsPublishFail.WithLabelValues(string(jobs.JobUserCreated))))
}
