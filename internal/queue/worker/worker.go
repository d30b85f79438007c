package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/geocoder89/storefront/internal/jobs"
	"github.com/geocoder89/storefront/internal/notifications"
	"github.com/geocoder89/storefront/internal/observability"
	"golang.org/x/sync/errgroup"
)

// Queue is the slice of redisqueue.Queue the worker drives. Dequeue returns
// redisqueue.ErrEmpty when a poll times out.
type Queue interface {
	Dequeue(ctx context.Context, timeout time.Duration) (jobs.Job, error)
	Retry(ctx context.Context, j jobs.Job, delay time.Duration) error
	DeadLetter(ctx context.Context, j jobs.Job, cause error) error
	PromoteDue(ctx context.Context, limit int) (int, error)
	Ping(ctx context.Context) error
}

type Config struct {
	WorkerID        string
	Concurrency     int
	PollTimeout     time.Duration
	PromoteInterval time.Duration
	JobTimeout      time.Duration
}

type Worker struct {
	cfg      Config
	queue    Queue
	notifier notifications.Notifier

	log     *slog.Logger
	prom    *observability.Prom
	stats   *observability.JobStats
	backoff func(attempt int) time.Duration

	readyMu sync.RWMutex
	ready   bool
}

type Option func(*Worker)

func WithLogger(l *slog.Logger) Option { return func(w *Worker) { w.log = l } }

func WithProm(p *observability.Prom) Option { return func(w *Worker) { w.prom = p } }

func WithStats(s *observability.JobStats) Option { return func(w *Worker) { w.stats = s } }

func WithBackoff(fn func(int) time.Duration) Option { return func(w *Worker) { w.backoff = fn } }

func New(cfg Config, queue Queue, notifier notifications.Notifier, opts ...Option) *Worker {
	if cfg.WorkerID == "" {
		host, _ := os.Hostname()
		cfg.WorkerID = fmt.Sprintf("%s-%d", host, os.Getpid())
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 2 * time.Second
	}
	if cfg.PromoteInterval <= 0 {
		cfg.PromoteInterval = time.Second
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 10 * time.Second
	}

	w := &Worker{
		cfg:      cfg,
		queue:    queue,
		notifier: notifier,
		log:      slog.Default(),
		stats:    observability.NewJobStats(),
		backoff:  ExponentialBackoff,
	}

	for _, opt := range opts {
		opt(w)
	}

	w.log = w.log.With("worker_id", cfg.WorkerID)

	return w
}

// Run consumes jobs until ctx is cancelled, then waits for in-flight jobs.
func (w *Worker) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	w.setReady(true)
	w.log.Info("worker started", "concurrency", w.cfg.Concurrency)

	g.Go(func() error {
		w.promoteLoop(gctx)
		return nil
	})

	for i := 0; i < w.cfg.Concurrency; i++ {
		g.Go(func() error {
			w.consumeLoop(gctx, i)
			return nil
		})
	}

	<-ctx.Done()
	w.setReady(false)
	w.log.Info("worker received shutdown signal")

	err := g.Wait()
	w.log.Info("worker stopped")

	return err
}

func (w *Worker) consumeLoop(ctx context.Context, slot int) {
	for ctx.Err() == nil {
		if _, err := w.ProcessOne(ctx); err != nil {
			w.log.Warn("dequeue failed", "slot", slot, "err", err)

			select {
			case <-ctx.Done():
			case <-time.After(500 * time.Millisecond):
			}
		}
	}
}

func (w *Worker) promoteLoop(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PromoteInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := w.queue.PromoteDue(ctx, 100)
			if err != nil && ctx.Err() == nil {
				w.log.Warn("promote delayed jobs failed", "err", err)
				continue
			}
			if n > 0 {
				w.log.Debug("delayed jobs promoted", "count", n)
			}
		}
	}
}

func (w *Worker) Stats() observability.JobStatsSnapshot {
	return w.stats.Snapshot()
}

func (w *Worker) setReady(v bool) {
	w.readyMu.Lock()
	w.ready = v
	w.readyMu.Unlock()
}

func (w *Worker) isReady() bool {
	w.readyMu.RLock()
	defer w.readyMu.RUnlock()
	return w.ready
}
