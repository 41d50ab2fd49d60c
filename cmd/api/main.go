package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/api/handlers"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/api/middleware"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/api/routes"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/domain/meetup"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/domain/stats"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/infrastructure/cache"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/infrastructure/persistence/postgres/connection"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/infrastructure/persistence/postgres/migrations"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/internal/infrastructure/scheduler"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/pkg/clock"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/pkg/config"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/pkg/logger"
	"github.com/RayaneChCh-dev/mmhw-backend-dev/pkg/security/auth"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// @title           Hub Meetups API
// @version         1.0
// @description     Schedules one-to-one meetups at shared venues and drives them to completion.

// @host      localhost:8000
// @BasePath

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// A missing .env is fine, the environment may be set by the platform.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig("") // Empty string will make it search in default locations
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer appLog.Sync()
	zlog := appLog.Logger

	zlog.Info("Configuration loaded successfully",
		zap.String("mode", cfg.Server.Mode),
		zap.Bool("redis_enabled", cfg.Redis.Enabled),
		zap.Bool("scheduler_enabled", cfg.Scheduler.Enabled))

	if cfg.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	db, err := connection.NewDatabase(cfg, appLog.Named("database"))
	if err != nil {
		zlog.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := migrations.AutoMigrate(db, appLog.Named("migrations")); err != nil {
		zlog.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Redis is optional: without it rate limiting is per instance and every
	// instance runs every sweep.
	var redisClient *cache.RedisClient
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(cache.NewConfigFromEnv(cfg), appLog.Named("redis"))
		if err != nil {
			zlog.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
	}

	notificationSystem, err := SetupNotificationSystem(db, cfg, zlog)
	if err != nil {
		zlog.Fatal("Failed to initialize notification system", zap.Error(err))
	}
	defer notificationSystem.Shutdown()

	clk := clock.Real()

	var statsCache stats.StatsCache
	if redisClient != nil {
		statsCache = redisClient
	}
	statsLedger := stats.NewLedger(
		stats.NewRepository(db),
		notificationSystem.Dispatcher,
		statsCache,
		clk,
		appLog.Named("stats"),
	)

	engine := meetup.NewService(meetup.ServiceConfig{
		Repository: meetup.NewRepository(db),
		Ledger:     statsLedger,
		Notifier:   notificationSystem.Dispatcher,
		Clock:      clk,
		Logger:     appLog.Named("meetup"),
	})

	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		var locker scheduler.Locker
		if redisClient != nil {
			locker = redisClient
		}
		sched = scheduler.New(
			scheduler.LifecycleTasks(engine, statsLedger, notificationSystem.Service),
			locker,
			scheduler.Config{
				LockTTL:    cfg.Scheduler.LockTTL,
				Timeout:    cfg.Scheduler.SweepTimeout,
				RunOnStart: true,
			},
			appLog.Named("scheduler"),
			prometheus.DefaultRegisterer,
		)
		sched.Start()
	}

	router := newRouter(cfg, zlog, engine, statsLedger, notificationSystem, db, redisClient)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		zlog.Info("Server starting", zap.Int("port", cfg.Server.Port))
		var err error
		if cfg.Server.UseHTTPS {
			err = server.ListenAndServeTLS(cfg.Server.HTTPSCertFile, cfg.Server.HTTPSKeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	zlog.Info("Shutting down server...")
	if err := server.Shutdown(ctx); err != nil {
		zlog.Error("Server forced to shutdown", zap.Error(err))
	}
	if sched != nil {
		sched.Stop()
	}

	zlog.Info("Server exited properly")
}

func newRouter(
	cfg *config.Config,
	zlog *zap.Logger,
	engine meetup.Service,
	statsLedger stats.Ledger,
	ns *NotificationSystem,
	db *connection.Database,
	redisClient *cache.RedisClient,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(zlog.Named("http")))
	router.Use(middleware.NewMetricsMiddleware(prometheus.DefaultRegisterer).CollectMetrics())

	corsConfig := cors.Config{
		AllowMethods: cfg.CORS.AllowedMethods,
		AllowHeaders: append(cfg.CORS.AllowedHeaders,
			"Accept-Encoding",
			"Content-Type",
			"Authorization",
		),
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Encoding",
			"X-RateLimit-Remaining",
			"X-RateLimit-Reset",
		},
		AllowCredentials: cfg.CORS.AllowCredentials,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
		corsConfig.AllowCredentials = false
	} else {
		corsConfig.AllowOrigins = cfg.CORS.AllowedOrigins
	}
	router.Use(cors.New(corsConfig))

	var (
		rateLimiter   auth.RateLimiter
		responseCache handlers.ResponseCache
		cacheMetrics  func() map[string]interface{}
	)
	checks := map[string]handlers.Pinger{"database": db}
	if redisClient != nil {
		rateLimiter = auth.NewRedisRateLimiter(redisClient.GetClient(), cfg.Auth.RateWindow, int64(cfg.Auth.RateLimit))
		responseCache = redisClient
		cacheMetrics = redisClient.GetMetrics
		checks["redis"] = handlers.PingFunc(redisClient.HealthCheck)
	} else {
		rateLimiter = auth.NewMemoryRateLimiter(cfg.Auth.RateWindow, int64(cfg.Auth.RateLimit))
	}

	verifier := auth.NewVerifier(cfg)
	guards := routes.Guards{
		Auth:       middleware.NewAuthMiddleware(verifier, zlog.Named("auth")),
		RateLimit:  middleware.RateLimitMiddleware(rateLimiter, zlog.Named("ratelimit")),
		Validation: middleware.NewValidationMiddleware(zlog.Named("validation")),
	}

	routes.SetupHealthRoutes(router, handlers.NewHealthHandler(checks, cacheMetrics, zlog.Named("health")))
	routes.SetupSwaggerRoutes(router, cfg.Swagger)
	routes.NewEventRoutes(handlers.NewEventHandler(engine, zlog.Named("events")), guards).RegisterRoutes(router)
	routes.NewUserRoutes(handlers.NewUserHandler(statsLedger, responseCache, zlog.Named("users")), guards).RegisterRoutes(router)
	routes.NewNotificationRoutes(handlers.NewNotificationHandler(ns.Service, verifier, cfg.CORS.AllowedOrigins, zlog.Named("notifications")), guards).RegisterRoutes(router)

	for _, route := range router.Routes() {
		zlog.Debug("Route registered",
			zap.String("method", route.Method),
			zap.String("path", route.Path),
		)
	}
	return router
}
