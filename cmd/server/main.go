package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quest-maker/internal/config"
	"quest-maker/internal/database"
	"quest-maker/internal/handler"
	"quest-maker/internal/interfaces"
	"quest-maker/internal/logger"
	"quest-maker/internal/messaging"
	"quest-maker/internal/middleware"
	"quest-maker/internal/models"
	"quest-maker/internal/notify"
	"quest-maker/internal/repository"
	"quest-maker/internal/service"
	"quest-maker/internal/workspace"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	ginprometheus "github.com/zsais/go-gin-prometheus"
	"go.uber.org/zap"
)

func main() {
	envFile := flag.String("env-file", ".env", "path to an optional .env file")
	flag.Parse()

	// --- Configuration ---
	cfg, err := config.LoadConfig(*envFile)
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- Logger ---
	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Encoding: cfg.LogEncoding, Service: logger.ServiceServer})
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)
	log.Info("Configuration loaded",
		zap.String("env", cfg.Env),
		zap.Bool("library", cfg.LibraryEnabled()),
		zap.Bool("snapshots", cfg.SnapshotsEnabled()),
		zap.Bool("events", cfg.RabbitMQURL != ""),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	retry := database.RetryConfig{MaxRetries: cfg.ConnectRetries, Delay: cfg.ConnectRetryDelay}
	var svcOpts []service.Option

	// --- Quest library (PostgreSQL) ---
	if cfg.LibraryEnabled() {
		pool, err := database.SetupPostgres(ctx, database.PostgresConfig{
			DSN:         cfg.PostgresDSN(),
			MaxConns:    cfg.DBMaxConns,
			IdleTimeout: cfg.DBIdleTimeout,
		}, retry, log)
		if err != nil {
			log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
		}
		defer pool.Close()
		if err := database.ApplyMigrations(pool); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
		log.Info("Database migrations applied")
		svcOpts = append(svcOpts, service.WithQuestRepository(repository.NewPgQuestRepository(pool, log)))
	}

	// --- Play snapshots (Redis) ---
	if cfg.SnapshotsEnabled() {
		redisClient, err := database.SetupRedis(ctx, &redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, retry, log)
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisClient.Close()
		svcOpts = append(svcOpts, service.WithSessionRepository(repository.NewRedisSessionRepository(redisClient, cfg.PlaySnapshotTTL, log)))
	}

	// --- Quest events (RabbitMQ) ---
	var publisher interfaces.EventPublisher = messaging.NewNopPublisher(log)
	if cfg.RabbitMQURL != "" {
		conn, err := messaging.ConnectRabbitMQ(cfg.RabbitMQURL, cfg.ConnectRetries, cfg.ConnectRetryDelay, log)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer conn.Close()
		publisher, err = messaging.NewRabbitMQEventPublisher(conn, cfg.EventExchange, log)
		if err != nil {
			log.Fatal("Failed to create event publisher", zap.Error(err))
		}
	}
	defer publisher.Close()

	// --- Workspace, notifications, service ---
	hub := notify.NewHub(cfg.GetAllowedOrigins(), log)
	hub.Start()
	defer hub.Close()

	unlocks := service.NewUnlockNotifier(publisher, log, hub)
	defer unlocks.Wait()

	ws := workspace.New(models.DefaultQuest(), log, workspace.WithNotifier(unlocks))
	ws.Start()
	defer ws.Close()

	svcOpts = append(svcOpts, service.WithEventSink(hub))
	questService := service.NewQuestService(ws, publisher, log, svcOpts...)
	questHandler := handler.NewQuestHandler(questService, hub, cfg.MaxImportBytes, log)

	// --- HTTP Server (Gin) ---
	gin.SetMode(gin.ReleaseMode)
	if cfg.Env == "development" {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(middleware.GinZapLogger(log))
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.GetAllowedOrigins()
	if len(corsConfig.AllowOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", middleware.RequestIDHeader}
	corsConfig.ExposeHeaders = []string{"Content-Disposition", middleware.RequestIDHeader}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	healthHandler := func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "clients": hub.Clients()})
	}
	router.GET("/health", healthHandler)
	router.HEAD("/health", healthHandler)

	questHandler.RegisterRoutes(router)

	// /metrics регистрируется после маршрутов приложения
	p := ginprometheus.NewPrometheus("gin")
	p.Use(router)

	srv := &http.Server{
		Addr:        ":" + cfg.ServerPort,
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Starting HTTP server", zap.String("port", cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server listen error", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exiting")
}
