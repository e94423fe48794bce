package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Fuuurma/FinanceHub-sub001/internal/config"
	"github.com/Fuuurma/FinanceHub-sub001/internal/controllers"
	"github.com/Fuuurma/FinanceHub-sub001/internal/messaging"
	"github.com/Fuuurma/FinanceHub-sub001/internal/middleware"
	"github.com/Fuuurma/FinanceHub-sub001/internal/monitoring"
	mongorepo "github.com/Fuuurma/FinanceHub-sub001/internal/repositories/mongo"
	"github.com/Fuuurma/FinanceHub-sub001/internal/routes"
	"github.com/Fuuurma/FinanceHub-sub001/internal/scheduler"
	"github.com/Fuuurma/FinanceHub-sub001/internal/services"
	"github.com/Fuuurma/FinanceHub-sub001/pkg/cache"
	"github.com/Fuuurma/FinanceHub-sub001/pkg/database"
	"github.com/Fuuurma/FinanceHub-sub001/pkg/logger"
)

const version = "1.0.0"

// @title FinanceHub Analytics API
// @version 1.0
// @description Quantitative analytics service: time series models, VaR and stress testing, performance and rebalancing

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8085
// @BasePath /api/v1/analytics

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	appLogger := logger.Init(cfg.Logger)
	log := appLogger.WithField("service", "analytics-api")

	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	log.WithField("backend", cfg.Analytics.Backend).Info("Starting Analytics API service...")

	// Initialize database connection
	db, err := database.NewMongoDB(cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB: ", err)
	}
	defer db.Disconnect()

	health := map[string]controllers.Pinger{"mongodb": db}

	// Initialize cache; without Redis the report cache stays in process
	var remote cache.Store
	if cfg.Cache.Enabled {
		redisClient, err := cache.NewRedisClient(cfg.Cache)
		if err != nil {
			log.Fatal("Failed to connect to Redis: ", err)
		}
		defer redisClient.Close()
		remote = redisClient
		health["redis"] = redisClient
	}
	reportCache := cache.NewReportCache(cfg.Cache, remote, appLogger)
	defer reportCache.Stop()

	// Initialize repositories
	mongoDB := db.GetDatabase()
	repos := services.Repositories{
		Targets:    mongorepo.NewTargetRepository(mongoDB),
		Snapshots:  mongorepo.NewSnapshotRepository(mongoDB),
		Sessions:   mongorepo.NewSessionRepository(mongoDB),
		VaRReports: mongorepo.NewVaRReportRepository(mongoDB),
	}

	metrics := monitoring.NewMetrics(nil)

	hub := controllers.NewDriftHub(metrics, appLogger)
	go hub.Run()
	defer hub.Stop()

	// Initialize event publisher
	var publisher messaging.EventPublisher = messaging.NewNoopPublisher(appLogger)
	if cfg.RabbitMQ.Enabled {
		amqpPublisher, err := messaging.NewAMQPPublisher(cfg.RabbitMQ, appLogger)
		if err != nil {
			log.Error("Failed to initialize RabbitMQ publisher, events disabled: ", err)
		} else {
			publisher = amqpPublisher
		}
	}
	defer publisher.Close()

	// Initialize services
	calc, err := services.NewCalculators(cfg.Analytics, appLogger)
	if err != nil {
		log.Fatal("Failed to initialize calculators: ", err)
	}
	if calc.Backend.Degraded() {
		log.Warn("Running on the fallback numeric backend, results are approximate")
	}

	analyticsService := services.NewAnalyticsService(
		cfg.Analytics,
		calc,
		repos,
		reportCache,
		cfg.Cache.ReportTTL,
		publisher,
		hub,
		metrics,
		appLogger,
	)

	rootCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	// Initialize RabbitMQ consumer
	var recalcConsumer *messaging.RecalculationConsumer
	if cfg.RabbitMQ.Enabled {
		recalcConsumer, err = messaging.NewRecalculationConsumer(cfg.RabbitMQ, func(ctx context.Context, portfolioID string) error {
			_, err := analyticsService.CheckDrift(ctx, portfolioID)
			metrics.RecordRecalculation(err)
			return err
		}, appLogger)
		if err != nil {
			log.Error("Failed to initialize RabbitMQ consumer: ", err)
		} else if err := recalcConsumer.Start(rootCtx); err != nil {
			log.Error("Failed to start RabbitMQ consumer: ", err)
		}
	}

	// Initialize scheduler
	var jobScheduler *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		jobScheduler, err = scheduler.NewScheduler(cfg.Scheduler, analyticsService, metrics, appLogger)
		if err != nil {
			log.Fatal("Failed to initialize scheduler: ", err)
		}
		if err := jobScheduler.Start(rootCtx); err != nil {
			log.Fatal("Failed to start scheduler: ", err)
		}
	}

	var rateLimiter *middleware.RateLimiter
	if cfg.RateLimit.Enabled {
		rateLimiter = middleware.NewRateLimiter(cfg.RateLimit)
	}

	// Setup HTTP server
	router := routes.SetupRouter(cfg, routes.Dependencies{
		Service:     analyticsService,
		Hub:         hub,
		Metrics:     metrics,
		RateLimiter: rateLimiter,
		Health:      controllers.NewHealthController(calc.Backend, version, health),
		Logger:      appLogger,
	})

	server := &http.Server{
		Addr:           fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:        router,
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.WithField("port", cfg.Server.Port).Info("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server: ", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown: ", err)
	}

	stopBackground()

	// Close RabbitMQ consumer
	if recalcConsumer != nil {
		if err := recalcConsumer.Close(); err != nil {
			log.WithError(err).Warn("Failed to close RabbitMQ consumer")
		}
	}

	// Stop scheduler
	if jobScheduler != nil {
		if err := jobScheduler.Stop(); err != nil {
			log.WithError(err).Warn("Failed to stop scheduler")
		}
	}

	if rateLimiter != nil {
		rateLimiter.Stop()
	}

	log.Info("Server exited")
}
