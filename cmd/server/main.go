package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/nfl-roo-sim/internal/api/handlers"
	"github.com/stitts-dev/nfl-roo-sim/internal/cache"
	"github.com/stitts-dev/nfl-roo-sim/internal/config"
	"github.com/stitts-dev/nfl-roo-sim/internal/storage"
	"github.com/stitts-dev/nfl-roo-sim/internal/websocket"
	"github.com/stitts-dev/nfl-roo-sim/pkg/logger"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	structuredLogger := logger.InitLogger(cfg.LogLevel, cfg.IsDevelopment())
	logger.WithService("nfl-roo-sim").WithFields(logrus.Fields{
		"environment": cfg.Env,
		"port":        cfg.Port,
		"trials":      cfg.Sim.Trials,
		"seed":        cfg.Sim.Seed,
	}).Info("Starting NFL ROO simulation service")

	if cfg.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Database is optional; without it runs are served memory-only
	var db *storage.DB
	if cfg.DatabaseURL != "" {
		db, err = storage.NewConnection(cfg.DatabaseURL, cfg.IsDevelopment())
		if err != nil {
			logger.WithService("nfl-roo-sim").Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()
		if err := db.Migrate(); err != nil {
			logger.WithService("nfl-roo-sim").Fatalf("Failed to migrate database: %v", err)
		}
	} else {
		logger.WithService("nfl-roo-sim").Warn("No database configured, run persistence disabled")
	}
	store := storage.NewRunStore(db)

	// Redis is optional as well
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.WithService("nfl-roo-sim").Fatalf("Failed to parse Redis URL: %v", err)
		}
		redisClient = redis.NewClient(opt)
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.WithService("nfl-roo-sim").Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.WithService("nfl-roo-sim").Warn("No Redis configured, result caching disabled")
	}
	projCache := cache.NewProjectionsCache(redisClient)

	wsHub := websocket.NewHub(structuredLogger)
	go wsHub.Run()

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	rooHandler := handlers.NewROOHandler(cfg, store, projCache, wsHub, structuredLogger)
	simulationHandler := handlers.NewSimulationHandler(cfg, store, projCache, wsHub, structuredLogger)
	healthHandler := handlers.NewHealthHandler(db, redisClient, structuredLogger)

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/roo", rooHandler.RunProjections)
		apiV1.GET("/roo/:id", rooHandler.GetProjections)
		apiV1.GET("/runs", rooHandler.ListRuns)

		apiV1.POST("/simulate", simulationHandler.RunSimulation)
		apiV1.GET("/simulate/:id/results", simulationHandler.GetResults)
	}

	router.GET("/ws/run-progress/:run_id", wsHub.HandleWebSocket)

	router.GET("/health", healthHandler.GetHealth)
	router.GET("/ready", healthHandler.GetReady)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: router,
	}

	go func() {
		logger.WithService("nfl-roo-sim").WithField("port", cfg.Port).Info("Service started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithService("nfl-roo-sim").Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.WithService("nfl-roo-sim").Info("Shutting down service...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.WithService("nfl-roo-sim").Fatalf("Service forced to shutdown: %v", err)
	}

	logger.WithService("nfl-roo-sim").Info("Service exited")
}
