package middlewares

import (
	"context"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/geocoder89/storefront/internal/http/handlers"
	"github.com/geocoder89/storefront/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// RateStore counts hits per key in fixed windows. Hit returns the count
// including this request and the time left in the current window.
type RateStore interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RedisRateStore shares counters across API replicas.
type RedisRateStore struct {
	rdb    *redis.Client
	prefix string
}

func NewRedisRateStore(rdb *redis.Client) *RedisRateStore {
	return &RedisRateStore{rdb: rdb, prefix: "storefront:ratelimit:"}
}

func (s *RedisRateStore) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	k := s.prefix + key

	var incr *redis.IntCmd
	var ttl *redis.DurationCmd

	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		ttl = p.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	left := ttl.Val()

	// first hit of a window, or a key that lost its expiry
	if incr.Val() == 1 || left < 0 {
		if err := s.rdb.PExpire(ctx, k, window).Err(); err != nil {
			return 0, 0, err
		}
		left = window
	}

	return incr.Val(), left, nil
}

// DefaultRateWindow replaces a non-positive window. A zero window would give
// counters no expiry, so every caller would stay limited for good.
const DefaultRateWindow = time.Minute

func normalizeWindow(window time.Duration) time.Duration {
	if window <= 0 {
		return DefaultRateWindow
	}
	return window
}

// MemoryRateStore is per process; used when Redis is not configured.
type MemoryRateStore struct {
	c *cache.Cache
}

func NewMemoryRateStore(window time.Duration) *MemoryRateStore {
	window = normalizeWindow(window)
	return &MemoryRateStore{c: cache.New(window, 2*window)}
}

func (s *MemoryRateStore) Hit(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	window = normalizeWindow(window)

	if err := s.c.Add(key, int64(1), window); err == nil {
		return 1, window, nil
	}

	n, err := s.c.IncrementInt64(key, 1)
	if err != nil {
		// expired between Add and Increment
		s.c.Set(key, int64(1), window)
		return 1, window, nil
	}

	_, exp, _ := s.c.GetWithExpiration(key)
	return n, time.Until(exp), nil
}

type RateLimiter struct {
	store  RateStore
	limit  int64
	window time.Duration
	prom   *observability.Prom
	log    *slog.Logger
}

// prom may be nil. A non-positive window becomes DefaultRateWindow.
func NewRateLimiter(store RateStore, limit int, window time.Duration, prom *observability.Prom, log *slog.Logger) *RateLimiter {
	return &RateLimiter{
		store:  store,
		limit:  int64(limit),
		window: normalizeWindow(window),
		prom:   prom,
		log:    log,
	}
}

// RateLimiterMiddleware enforces the limit for a derived key. Store errors
// let the request through.
func (rl *RateLimiter) RateLimiterMiddleware(keyFn func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := keyFn(c)
		if key == "" {
			// fallback to IP if key cannot be derived
			key = "ip:" + clientIP(c)
		}

		count, left, err := rl.store.Hit(c.Request.Context(), key, rl.window)
		if err != nil {
			rl.log.WarnContext(c.Request.Context(), "rate limiter unavailable", "err", err)
			c.Next()
			return
		}

		remaining := rl.limit - count
		if remaining < 0 {
			remaining = 0
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(rl.limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > rl.limit {
			retryAfter := int64(math.Ceil(left.Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}

			if rl.prom != nil {
				route := c.FullPath()
				if route == "" {
					route = "unmatched"
				}
				rl.prom.RateLimited.WithLabelValues(route).Inc()
			}

			c.Header("Retry-After", strconv.FormatInt(retryAfter, 10))
			handlers.RespondError(c, http.StatusTooManyRequests, "rate_limited", "Too many requests. Please try again shortly.", nil)
			c.Abort()
			return
		}

		c.Next()
	}
}

// for unauthenticated endpoints: rate limit by IP
func KeyByIP(c *gin.Context) string {
	return "ip:" + clientIP(c)
}

// KeyByUserOrIP prefers the verified user id when auth ran first.
func KeyByUserOrIP(c *gin.Context) string {
	if id, ok := UserIDFromContext(c); ok {
		return "user:" + id
	}

	return KeyByIP(c)
}

func clientIP(c *gin.Context) string {
	ip := c.ClientIP()

	host, _, err := net.SplitHostPort(ip)
	if err == nil && host != "" {
		return host
	}

	return ip
}
