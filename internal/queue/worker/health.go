package worker

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/geocoder89/storefront/internal/jobs"
	"github.com/geocoder89/storefront/internal/queue/redisqueue"
	"github.com/gin-gonic/gin"
)

// Inspector is implemented by queues that can report backlog and dead jobs.
type Inspector interface {
	Depth(ctx context.Context) (redisqueue.Depth, error)
	DeadLetters(ctx context.Context, limit int64) ([]jobs.Job, error)
}

const (
	defaultDeadLimit = 20
	maxDeadLimit     = 200
)

// HealthHandler serves liveness, readiness, counters and, when the worker has
// a Prom, /metrics. Queue depth and /dead are served when the queue is an
// Inspector.
func (w *Worker) HealthHandler() http.Handler {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	// liveness: process is up
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// readiness: accepting jobs and Redis answers
	r.GET("/readyz", func(c *gin.Context) {
		if !w.isReady() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
		defer cancel()

		if err := w.queue.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "queue": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	inspector, inspectable := w.queue.(Inspector)

	r.GET("/stats", func(c *gin.Context) {
		body := gin.H{"jobs": w.Stats()}

		if inspectable {
			ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
			defer cancel()

			if d, err := inspector.Depth(ctx); err != nil {
				body["queue_error"] = err.Error()
			} else {
				body["queue"] = d
			}
		}

		c.JSON(http.StatusOK, body)
	})

	if inspectable {
		r.GET("/dead", func(c *gin.Context) {
			limit := int64(defaultDeadLimit)
			if raw := c.Query("limit"); raw != "" {
				n, err := strconv.ParseInt(raw, 10, 64)
				if err != nil || n <= 0 {
					c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
					return
				}
				limit = min(n, maxDeadLimit)
			}

			ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
			defer cancel()

			dead, err := inspector.DeadLetters(ctx, limit)
			if err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
				return
			}

			c.JSON(http.StatusOK, gin.H{"items": dead, "count": len(dead)})
		})
	}

	if w.prom != nil {
		r.GET("/metrics", gin.WrapH(w.prom.Handler()))
	}

	return r
}
