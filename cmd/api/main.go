package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/geocoder89/storefront/internal/auth"
	"github.com/geocoder89/storefront/internal/cache"
	"github.com/geocoder89/storefront/internal/config"
	"github.com/geocoder89/storefront/internal/db"
	httpx "github.com/geocoder89/storefront/internal/http"
	"github.com/geocoder89/storefront/internal/http/handlers"
	"github.com/geocoder89/storefront/internal/http/middlewares"
	"github.com/geocoder89/storefront/internal/observability"
	"github.com/geocoder89/storefront/internal/queue/redisclient"
	"github.com/geocoder89/storefront/internal/queue/redisqueue"
	"github.com/geocoder89/storefront/internal/repo/memory"
	"github.com/geocoder89/storefront/internal/repo/postgres"
	"github.com/geocoder89/storefront/internal/security"
	"github.com/geocoder89/storefront/internal/service"
)

const serviceName = "storefront-api"

func main() {
	// Load the config set up
	cfg := config.Load()

	log := observability.NewLogger(cfg.Env, cfg.LogFormat)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("api exited", "err", err)
		os.Exit(1)
	}
}

// run owns every resource it opens, so each early return still releases them.
func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := observability.InitTracer(ctx, serviceName, cfg.Env, cfg.OTelEndpoint)
	if err != nil {
		return fmt.Errorf("tracer init: %w", err)
	}
	defer func() {
		tctx, cancel := config.WithTimeout(5 * time.Second)
		defer cancel()

		if err := shutdownTracer(tctx); err != nil {
			log.Error("tracer shutdown failed", "err", err)
		}
	}()

	prom := observability.NewProm()
	readiness := map[string]handlers.Pinger{}

	// record store
	var store service.RecordStore

	switch cfg.StoreDriver {
	case "memory":
		mem := memory.NewUsersRepo()
		store = mem
		readiness["store"] = mem
		log.Warn("using in-memory user store, data is lost on restart")

	default:
		pool, err := db.NewPool(ctx, cfg.DBURL, cfg.DBMaxConns)
		if err != nil {
			return fmt.Errorf("db connect: %w", err)
		}
		defer pool.Close()

		store = postgres.NewUsersRepo(pool, prom)
		readiness["store"] = pool
	}

	if cfg.UsersCacheTTL > 0 {
		store = cache.NewUsersCache(store, cfg.UsersCacheTTL)
	}

	opts := []service.Option{service.WithLogger(log)}

	// redis backs the lifecycle queue and the shared rate limiter
	var rateStore middlewares.RateStore = middlewares.NewMemoryRateStore(cfg.RateWindow)

	if cfg.RedisAddr != "" {
		rc, err := redisclient.Open(ctx, redisclient.Config{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		defer rc.Close()

		opts = append(opts, service.WithPublisher(redisqueue.New(rc.Raw(), redisqueue.WithProm(prom))))
		rateStore = middlewares.NewRedisRateStore(rc.Raw())
		readiness["redis"] = rc
	} else {
		log.Warn("REDIS_ADDR not set, lifecycle jobs are not published")
	}

	users := service.NewUserService(store, security.NewBcryptHasher(cfg.BcryptCost), opts...)

	seedCtx, cancelSeed := context.WithTimeout(ctx, 10*time.Second)
	if err := db.EnsureAdminUser(seedCtx, users, cfg, log); err != nil {
		log.Error("admin seed failed", "err", err)
	}
	cancelSeed()

	var verifier middlewares.TokenVerifier
	if cfg.JWTSecret != "" {
		verifier = auth.NewManager(cfg.JWTSecret, time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute)
	} else {
		log.Warn("JWT_SECRET not set, /users is unauthenticated")
	}

	router := httpx.NewRouter(httpx.RouterDeps{
		Env:                cfg.Env,
		ServiceName:        serviceName,
		Log:                log,
		Users:              users,
		Readiness:          readiness,
		Prom:               prom,
		Verifier:           verifier,
		RateStore:          rateStore,
		RateLimit:          cfg.RateLimit,
		RateWindow:         cfg.RateWindow,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		MaxBodyBytes:       cfg.MaxBodyBytes,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", "port", cfg.Port, "env", cfg.Env, "store", cfg.StoreDriver)

		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			stop()
		}
		close(serveErr)
	}()

	// Graceful shutdown
	<-ctx.Done()
	log.Info("server shutting down")

	shutdownCtx, cancel := config.WithTimeout(10 * time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "err", err)
	}

	if err := <-serveErr; err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	log.Info("shutdown complete")
	return nil
}
