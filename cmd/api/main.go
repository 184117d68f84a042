package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wealthlens/internal/amfi"
	"wealthlens/internal/cache"
	"wealthlens/internal/config"
	"wealthlens/internal/database"
	"wealthlens/internal/events"
	"wealthlens/internal/logger"
	"wealthlens/internal/scheduler"
	"wealthlens/internal/server"
	"wealthlens/internal/validator"

	_ "wealthlens/internal/docs" // Import swagger docs
)

// @title           WealthLens API
// @version         1.0
// @description     WealthLens tracks personal investment holdings, resolves mutual fund names to AMFI schemes and keeps their NAVs current.
// @termsOfService  http://swagger.io/terms/

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// @securityDefinitions.apikey PipelineKey
// @in header
// @name X-API-Key

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(database.NewConfig(appConfig))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnf("database close error: %v", err)
		}
	}()

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	infra := server.Infra{DB: dbManager.DB()}

	// Redis backs job locks and the ISIN cache when configured
	if appConfig.RedisAddr != "" {
		rdb, err := cache.NewClient(appConfig.RedisAddr, appConfig.RedisPassword, appConfig.RedisDB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		infra.Locker = cache.NewRedisLocker(rdb, "")
		infra.Store = cache.NewRedisStore(rdb, "wealthlens:cache:")
	} else {
		log.Warn("REDIS_ADDR not set, using in-process locks and cache")
	}

	if len(appConfig.KafkaBrokers) > 0 {
		publisher := events.NewKafkaPublisher(appConfig.KafkaBrokers, appConfig.KafkaEventsTopic)
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Warnf("kafka publisher close error: %v", err)
			}
		}()
		infra.Publisher = publisher
	}

	client := amfi.NewClient(&http.Client{Timeout: appConfig.RequestTimeout}, appConfig.AMFINavURL, appConfig.MFAPIBaseURL)
	infra.SchemeSource = client
	infra.NAVProvider = client

	svc, err := server.NewServices(appConfig, infra)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	validator.Register()

	router := server.NewRouter(svc, server.RouterConfig{
		AuthJWTSecret:  appConfig.AuthJWTSecret,
		PipelineAPIKey: appConfig.PipelineAPIKey,
		HealthCheck:    dbManager.Ping,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sched *scheduler.Scheduler
	if appConfig.SchedulerEnabled {
		sched, err = scheduler.New(svc.Backfill, svc.NAVUpdate, svc.Snapshots, svc.Calendar, scheduler.Config{RunAt: appConfig.SchedulerRunAt})
		if err != nil {
			return fmt.Errorf("failed to create scheduler: %w", err)
		}
		if err := sched.Start(ctx); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
	}

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting WealthLens backend server on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
		log.Info("Shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if sched != nil {
		if err := sched.Stop(shutdownCtx); err != nil {
			log.Warnf("scheduler stop error: %v", err)
		}
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}
