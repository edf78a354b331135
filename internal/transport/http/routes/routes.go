package routes

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/edujoy/auth-service/internal/infra/config"
	"github.com/edujoy/auth-service/internal/transport/http/handlers"
	"github.com/edujoy/auth-service/internal/transport/http/middleware"
	"github.com/edujoy/auth-service/internal/usecase"
)

// ServiceSet groups the services the HTTP layer depends on.
type ServiceSet struct {
	Auth          *usecase.AuthService
	Registration  *usecase.RegistrationService
	PasswordReset *usecase.PasswordResetService
	Profile       *usecase.ProfileService
}

// DatabaseChecker exposes readiness behavior for database connections.
type DatabaseChecker interface {
	Ping(ctx context.Context) error
}

// CacheChecker exposes readiness behavior for cache backends.
type CacheChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies encapsulates the objects required to register routes.
type Dependencies struct {
	Config      *config.AppConfig
	Logger      *zap.Logger
	RateLimiter *middleware.RateLimiter
	Metrics     *middleware.HTTPMetrics
	Services    ServiceSet
	Database    DatabaseChecker
	Cache       CacheChecker
}

// Register configures the Gin engine with routes and middleware.
func Register(deps Dependencies) *gin.Engine {
	if deps.Config.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.EnrichContext())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(deps.Logger))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: deps.Config.CORS.AllowedOrigins,
		AllowedHeaders: deps.Config.CORS.AllowedHeaders,
		MaxAge:         deps.Config.CORS.MaxAge,
	}))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Handler())
	}

	checks := map[string]handlers.ReadinessCheck{}
	if deps.Database != nil {
		checks["database"] = deps.Database.Ping
	}
	if deps.Cache != nil {
		checks["redis"] = deps.Cache.HealthCheck
	}
	healthHandler := handlers.NewHealthHandler(checks)

	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	isDev := deps.Config.App.Env == "development"

	authHandler := handlers.NewAuthHandler(
		deps.Services.Auth,
		deps.Services.Registration,
		deps.Services.PasswordReset,
		deps.Services.Profile,
		handlers.WithCookieDomain(deps.Config.Cookie.Domain),
		handlers.WithDevMode(isDev),
	)

	api := r.Group("/api/v1")
	authGroup := api.Group("/auth")
	authHandler.RegisterRoutes(authGroup, handlers.RouteMiddlewares{
		Login:         buildRateLimit(deps, "auth_login_ip", deps.Config.RateLimit.LoginMaxAttempts),
		Register:      buildRateLimit(deps, "auth_register_ip", deps.Config.RateLimit.RegisterMaxAttempts),
		PasswordReset: buildRateLimit(deps, "password_reset_ip", deps.Config.RateLimit.PasswordResetMaxAttempts),
	})

	return r
}

func buildRateLimit(deps Dependencies, name string, limit int) []gin.HandlerFunc {
	if deps.RateLimiter == nil || limit <= 0 {
		return nil
	}

	window := deps.Config.RateLimit.WindowDuration
	if window <= 0 {
		window = time.Minute
	}

	rule := middleware.RateLimitRule{
		Name:       name,
		Limit:      limit,
		Window:     window,
		Identifier: middleware.ClientIPIdentifier(),
	}

	return []gin.HandlerFunc{deps.RateLimiter.RateLimit(rule)}
}
