package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"

	"github.com/errwatch/errwatch-backend/internal/config"
	"github.com/errwatch/errwatch-backend/internal/events"
	"github.com/errwatch/errwatch-backend/internal/handler"
	"github.com/errwatch/errwatch-backend/internal/middleware"
	"github.com/errwatch/errwatch-backend/internal/routes"
	"github.com/errwatch/errwatch-backend/internal/service"
	"github.com/errwatch/errwatch-backend/internal/ws"
	pkgcache "github.com/errwatch/errwatch-backend/pkg/cache"
	pkglogger "github.com/errwatch/errwatch-backend/pkg/logger"
	pkgredis "github.com/errwatch/errwatch-backend/pkg/redis"
)

// getConfigPath returns config file path based on APP_ENV environment variable
func getConfigPath() string {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("configs/config.%s.yaml", env)
}

func main() {
	dotenvFiles := config.LoadDotEnv()

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	pkglogger.InitStructured(env)
	pkglogger.Info("APP_ENV=%s, loaded env files: %v", env, dotenvFiles)

	configPath := getConfigPath()
	pkglogger.Info("Loading config from: %s", configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	config.LogResolved(cfg)

	// Redis connection (optional: rate limiting, query cache, ws fan-out)
	var redisClient *goredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(
			cfg.Redis.Host,
			cfg.Redis.Port,
			cfg.Redis.Password,
			cfg.Redis.DB,
			cfg.Redis.PoolSize,
		)
		if err != nil {
			pkglogger.Warn("Failed to connect to Redis: %v (continuing without Redis)", err)
			redisClient = nil
		} else {
			pkglogger.Info("Connected to Redis")
		}
	}

	var cacheService pkgcache.Service
	if redisClient != nil {
		cacheService = pkgcache.NewService(redisClient)
		pkglogger.Info("Cache service initialized")
	}

	// Engine wiring
	bus := events.NewBus(1024)

	eventStore := service.NewEventStore()
	groupStore := service.NewGroupStore(cfg.Tracking.MaxOccurrences, bus)
	statsAgg := service.NewStatsAggregator(cfg.Tracking.AggregationWindow, cfg.Tracking.BucketWidth)
	alertEngine := service.NewAlertEngine(statsAgg, bus)

	tracker := service.NewTrackerService(cfg.Tracking, eventStore, groupStore, statsAgg, alertEngine)
	if cacheService != nil {
		tracker.SetCache(cacheService)
	}

	analyzer := service.NewAnalyzerService(eventStore, groupStore, bus, cfg.Tracking.AnalysisInterval)
	analyzer.Start()

	sweeper := service.NewRetentionSweeper(
		eventStore, groupStore, statsAgg,
		cfg.Tracking.RetentionPeriod, cfg.Tracking.RetentionSweepInterval,
	)
	sweeper.Start()

	// WebSocket hub mirrors every engine event to dashboard clients
	wsHub := ws.NewHub(redisClient)
	bus.Register(wsHub)
	go wsHub.Run()

	// Router
	if env != "local" && env != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Metrics())

	allowOrigins := cfg.CORS.AllowOrigins
	if allowOrigins == "" {
		allowOrigins = "http://localhost:3000"
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     splitAndTrim(allowOrigins, ","),
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-API-Key", "X-Request-ID"},
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Remaining"},
		MaxAge:           12 * time.Hour,
	}))

	errorHandler := handler.NewErrorHandler(tracker)
	analysisHandler := handler.NewAnalysisHandler(analyzer)
	wsHandler := handler.NewWSHandler(wsHub, allowOrigins)
	healthHandler := handler.NewHealthHandler(cacheService, cfg.Tracking.Version)

	routes.Setup(router, errorHandler, analysisHandler, wsHandler, redisClient, cfg)

	router.GET("/health", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		pkglogger.Info("Server listening on :%d", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown: stop accepting requests, then halt background
	// tasks (in-flight iterations finish), then drain the event bus.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	pkglogger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		pkglogger.Error("Server shutdown error: %v", err)
	}

	sweeper.Stop()
	analyzer.Stop()
	wsHub.Stop()
	bus.Close()

	if redisClient != nil {
		_ = redisClient.Close()
	}

	pkglogger.Info("Shutdown complete")
}

func splitAndTrim(s, sep string) []string {
	parts := strings.Split(s, sep)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
