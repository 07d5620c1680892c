package router

import (
	"context"
	"time"

	"confcheckin/internal/config"
	"confcheckin/internal/handler"
	"confcheckin/internal/infra"
	"confcheckin/internal/metrics"
	"confcheckin/internal/middleware"
	"confcheckin/internal/model"
	"confcheckin/internal/repository"
	"confcheckin/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the process-wide resources the router wires into handlers.
type Deps struct {
	Config      *config.Config
	DB          *gorm.DB
	Redis       *redis.Client
	Jobs        service.JobEnqueuer // nil disables outgoing mail
	MailBreaker *infra.CircuitBreaker
	Metrics     *metrics.Metrics
	Gatherer    prometheus.Gatherer
}

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
// ctx bounds the background goroutines started here (rate limiter purge).
func New(ctx context.Context, d Deps) *gin.Engine {
	cfg := d.Config
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	apiLimiter := middleware.NewRateLimiter("api", 1000, time.Minute)
	loginLimiter := middleware.NewRateLimiter("login", 20, time.Minute)
	apiLimiter.StartPurge(ctx)
	loginLimiter.StartPurge(ctx)

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	r.Use(middleware.ErrorHandler())
	r.Use(apiLimiter.Handler())

	// ── Repositories ─────────────────────────────────────────────────────────
	attendeeRepo := repository.NewAttendeeRepository(d.DB)

	// ── Services ─────────────────────────────────────────────────────────────
	registrySvc := service.NewRegistryService(attendeeRepo, d.Jobs, cfg.EventName, cfg.EventTokenPrefix)
	checkInSvc := service.NewCheckInService(attendeeRepo, d.Jobs, d.Metrics, cfg.EventName)
	statsSvc := service.NewStatsService(attendeeRepo)
	authSvc := service.NewAuthService(attendeeRepo, cfg)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	checkInH := handler.NewCheckInHandler(checkInSvc)
	statsH := handler.NewStatsHandler(statsSvc)
	attendeesH := handler.NewAttendeesHandler(registrySvc, d.Redis, d.Metrics, cfg.EventName)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(d.DB, d.Redis, d.MailBreaker))
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", loginLimiter.Handler(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		// Any authenticated user: own identity
		v1.GET("/me", attendeesH.Me)
		v1.GET("/me/qr.png", attendeesH.MyQRCode)
		v1.GET("/me/badge.pdf", attendeesH.MyBadge)

		staff := v1.Group("", middleware.RequireRole(model.RoleStaff))
		{
			staff.POST("/check-in", checkInH.CheckIn)
			staff.POST("/manual-check-in", checkInH.ManualCheckIn)
			staff.POST("/check-out", checkInH.CheckOut)

			staff.GET("/stats", statsH.Stats)
			staff.GET("/recent-check-ins", statsH.RecentCheckIns)

			staff.POST("/attendees", attendeesH.Register)
			staff.GET("/attendees", attendeesH.Search)
		}
	}

	// Swagger UI, only enabled outside production
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
