package redisqueue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/geocoder89/storefront/internal/jobs"
	"github.com/geocoder89/storefront/internal/observability"
	"github.com/redis/go-redis/v9"
)

// ErrEmpty is returned by Dequeue when nothing arrived before the timeout.
var ErrEmpty = errors.New("queue empty")

// Keys name the three Redis structures backing a queue.
type Keys struct {
	Ready   string // list, LPUSH in / BRPOP out
	Delayed string // sorted set scored by run_at in unix ms
	Dead    string // list of exhausted or undecodable jobs
}

func DefaultKeys() Keys {
	return Keys{
		Ready:   "storefront:jobs:ready",
		Delayed: "storefront:jobs:delayed",
		Dead:    "storefront:jobs:dead",
	}
}

type Queue struct {
	rdb  *redis.Client
	keys Keys
	prom *observability.Prom
	now  func() time.Time
}

type Option func(*Queue)

func WithKeys(k Keys) Option { return func(q *Queue) { q.keys = k } }

func WithProm(p *observability.Prom) Option { return func(q *Queue) { q.prom = p } }

func WithClock(now func() time.Time) Option { return func(q *Queue) { q.now = now } }

func New(rdb *redis.Client, opts ...Option) *Queue {
	q := &Queue{
		rdb:  rdb,
		keys: DefaultKeys(),
		now:  time.Now,
	}

	for _, opt := range opts {
		opt(q)
	}

	return q
}

// promoteScript moves due members from the delayed set onto the ready list in
// one step, so two workers never promote the same job twice.
var promoteScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
for _, m in ipairs(due) do
	redis.call('ZREM', KEYS[1], m)
	redis.call('LPUSH', KEYS[2], m)
end
return #due
`)

// Publish enqueues j; a RunAt in the future parks it in the delayed set.
func (q *Queue) Publish(ctx context.Context, j jobs.Job) error {
	err := q.push(ctx, j)

	if err != nil && q.prom != nil {
		q.prom.JobsPublishFail.WithLabelValues(string(j.Type)).Inc()
	}

	return err
}

func (q *Queue) push(ctx context.Context, j jobs.Job) error {
	b, err := jobs.Marshal(j)
	if err != nil {
		return err
	}

	if j.RunAt.After(q.now()) {
		return q.rdb.ZAdd(ctx, q.keys.Delayed, redis.Z{
			Score:  float64(j.RunAt.UnixMilli()),
			Member: b,
		}).Err()
	}

	return q.rdb.LPush(ctx, q.keys.Ready, b).Err()
}

// Dequeue blocks up to timeout for the oldest ready job. An envelope that
// cannot be decoded is moved to the dead list and reported as an error.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (jobs.Job, error) {
	res, err := q.rdb.BRPop(ctx, timeout, q.keys.Ready).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return jobs.Job{}, ErrEmpty
		}
		return jobs.Job{}, err
	}

	// res is [key, value]
	raw := res[1]

	j, err := jobs.Unmarshal([]byte(raw))
	if err != nil {
		if dlErr := q.rdb.LPush(ctx, q.keys.Dead, raw).Err(); dlErr != nil {
			return jobs.Job{}, errors.Join(err, dlErr)
		}
		return jobs.Job{}, err
	}

	return j, nil
}

// Retry schedules j to run again after delay.
func (q *Queue) Retry(ctx context.Context, j jobs.Job, delay time.Duration) error {
	j.RunAt = q.now().Add(delay).UTC()
	return q.push(ctx, j)
}

// PromoteDue moves up to limit due delayed jobs onto the ready list.
func (q *Queue) PromoteDue(ctx context.Context, limit int) (int, error) {
	n, err := promoteScript.Run(ctx, q.rdb,
		[]string{q.keys.Delayed, q.keys.Ready},
		strconv.FormatInt(q.now().UnixMilli(), 10),
		limit,
	).Int()
	if err != nil {
		return 0, fmt.Errorf("promote delayed jobs: %w", err)
	}

	return n, nil
}

func (q *Queue) DeadLetter(ctx context.Context, j jobs.Job, cause error) error {
	if cause != nil {
		msg := cause.Error()
		j.LastError = &msg
	}

	b, err := jobs.Marshal(j)
	if err != nil {
		return err
	}

	return q.rdb.LPush(ctx, q.keys.Dead, b).Err()
}

// DeadLetters returns up to limit dead jobs, newest first. Entries that no
// longer decode are skipped.
func (q *Queue) DeadLetters(ctx context.Context, limit int64) ([]jobs.Job, error) {
	raws, err := q.rdb.LRange(ctx, q.keys.Dead, 0, limit-1).Result()
	if err != nil {
		return nil, err
	}

	out := make([]jobs.Job, 0, len(raws))
	for _, raw := range raws {
		if j, err := jobs.Unmarshal([]byte(raw)); err == nil {
			out = append(out, j)
		}
	}

	return out, nil
}

type Depth struct {
	Ready   int64 `json:"ready"`
	Delayed int64 `json:"delayed"`
	Dead    int64 `json:"dead"`
}

func (q *Queue) Depth(ctx context.Context) (Depth, error) {
	var ready, delayed, dead *redis.IntCmd

	_, err := q.rdb.Pipelined(ctx, func(p redis.Pipeliner) error {
		ready = p.LLen(ctx, q.keys.Ready)
		delayed = p.ZCard(ctx, q.keys.Delayed)
		dead = p.LLen(ctx, q.keys.Dead)
		return nil
	})
	if err != nil {
		return Depth{}, err
	}

	return Depth{Ready: ready.Val(), Delayed: delayed.Val(), Dead: dead.Val()}, nil
}

func (q *Queue) Ping(ctx context.Context) error {
	return q.rdb.Ping(ctx).Err()
}
