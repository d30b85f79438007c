package http

import (
	"log/slog"
	"time"

	"github.com/geocoder89/storefront/internal/domain/user"
	"github.com/geocoder89/storefront/internal/http/handlers"
	"github.com/geocoder89/storefront/internal/http/middlewares"
	"github.com/geocoder89/storefront/internal/observability"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

type RouterDeps struct {
	Env         string
	ServiceName string
	Log         *slog.Logger

	Users handlers.UserService
	// Readiness names the dependencies /readyz pings.
	Readiness map[string]handlers.Pinger

	Prom *observability.Prom

	// nil disables token checks on /users
	Verifier middlewares.TokenVerifier

	RateStore  middlewares.RateStore
	RateLimit  int
	RateWindow time.Duration

	CORSAllowedOrigins []string
	MaxBodyBytes       int64
}

func NewRouter(d RouterDeps) *gin.Engine {
	if d.Env != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	r.Use(middlewares.RequestID())
	r.Use(otelgin.Middleware(d.ServiceName))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.RequestLogger(d.Log))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.CORSAllowedOrigins))

	// health
	h := handlers.NewHealthHandler(d.Readiness)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Prom != nil {
		r.GET("/metrics", gin.WrapH(d.Prom.Handler()))
	}

	users := r.Group("/users")
	users.Use(middlewares.RequireJSON())
	if d.MaxBodyBytes > 0 {
		users.Use(middlewares.MaxBodyBytes(d.MaxBodyBytes))
	}

	if d.Verifier != nil {
		authMW := middlewares.NewAuthMiddleware(d.Verifier)
		users.Use(authMW.RequireAuth(), authMW.RequireRole(user.RoleAdmin))
	}

	// after auth so the key can be the caller's id
	if d.RateStore != nil && d.RateLimit > 0 {
		rl := middlewares.NewRateLimiter(d.RateStore, d.RateLimit, d.RateWindow, d.Prom, d.Log)
		users.Use(rl.RateLimiterMiddleware(middlewares.KeyByUserOrIP))
	}

	uh := handlers.NewUsersHandler(d.Users)
	users.POST("", uh.CreateUser)
	users.GET("", uh.ListUsers)
	users.GET("/:id", uh.GetUserByID)
	users.PUT("/:id", uh.UpdateUser)
	users.PATCH("/:id", uh.PatchUser)
	users.DELETE("/:id", uh.DeleteUser)

	return r
}
