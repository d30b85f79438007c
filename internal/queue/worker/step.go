package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/geocoder89/storefront/internal/jobs"
	"github.com/geocoder89/storefront/internal/notifications"
	"github.com/geocoder89/storefront/internal/queue/redisqueue"
)

// errPermanent marks failures a retry cannot fix.
var errPermanent = errors.New("permanent job failure")

// ProcessOne handles at most one job. It reports whether a job was taken;
// job failures are retried or dead-lettered, not returned.
func (w *Worker) ProcessOne(ctx context.Context) (bool, error) {
	j, err := w.queue.Dequeue(ctx, w.cfg.PollTimeout)
	if err != nil {
		if errors.Is(err, redisqueue.ErrEmpty) || ctx.Err() != nil {
			return false, nil
		}
		return false, err
	}

	w.stats.IncClaimed()
	if w.prom != nil {
		w.prom.JobsInFlight.Inc()
		defer w.prom.JobsInFlight.Dec()
	}

	log := w.log.With("job_id", j.ID, "job_type", string(j.Type), "attempt", j.Attempts+1)
	start := time.Now()

	// finish the job even if shutdown starts mid-flight
	jobCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.cfg.JobTimeout)
	defer cancel()

	err = w.execute(jobCtx, j)
	elapsed := time.Since(start)
	w.stats.ObserveDuration(elapsed)

	if err == nil {
		w.stats.IncDone()
		w.observe(j, "done", elapsed)
		log.Info("job done", "duration_ms", elapsed.Milliseconds())
		return true, nil
	}

	bookCtx, cancelBook := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancelBook()

	result, ferr := w.handleFailure(bookCtx, j, err)
	w.observe(j, result, elapsed)
	log.Warn("job failed", "result", result, "err", err)

	return true, ferr
}

func (w *Worker) execute(ctx context.Context, j jobs.Job) error {
	payload, err := jobs.DecodePayload(j)
	if err != nil {
		return fmt.Errorf("%w: %v", errPermanent, err)
	}

	switch p := payload.(type) {
	case jobs.UserCreatedPayload:
		return w.notifier.SendWelcome(ctx, notifications.WelcomeInput{
			UserID:   p.UserID,
			Email:    p.Email,
			UserName: p.UserName,
			FullName: p.FullName,
		})

	case jobs.UserDeletedPayload:
		return w.notifier.SendFarewell(ctx, notifications.FarewellInput{
			UserID:   p.UserID,
			Email:    p.Email,
			UserName: p.UserName,
		})

	default:
		return fmt.Errorf("%w: no handler for %s", errPermanent, j.Type)
	}
}

func (w *Worker) handleFailure(ctx context.Context, j jobs.Job, cause error) (string, error) {
	j.Attempts++
	msg := cause.Error()
	j.LastError = &msg

	if errors.Is(cause, errPermanent) || j.Exhausted() {
		w.stats.IncDeadLettered()
		if err := w.queue.DeadLetter(ctx, j, cause); err != nil {
			return "dead", fmt.Errorf("dead-letter job %s: %w", j.ID, err)
		}
		return "dead", nil
	}

	w.stats.IncRetried()
	if err := w.queue.Retry(ctx, j, w.backoff(j.Attempts-1)); err != nil {
		return "retry", fmt.Errorf("retry job %s: %w", j.ID, err)
	}

	return "retry", nil
}

func (w *Worker) observe(j jobs.Job, result string, d time.Duration) {
	if w.prom != nil {
		w.prom.ObserveJob(string(j.Type), result, d)
	}
}
