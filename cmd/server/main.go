package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/datawald/hub/internal/application/backoffice"
	"github.com/datawald/hub/internal/application/control"
	"github.com/datawald/hub/internal/application/frontend"
	"github.com/datawald/hub/internal/application/producer"
	"github.com/datawald/hub/internal/domain/connector"
	domain "github.com/datawald/hub/internal/domain/sync"
	"github.com/datawald/hub/internal/infrastructure/agency"
	"github.com/datawald/hub/internal/infrastructure/alert"
	"github.com/datawald/hub/internal/infrastructure/cache"
	"github.com/datawald/hub/internal/infrastructure/config"
	"github.com/datawald/hub/internal/infrastructure/logger"
	"github.com/datawald/hub/internal/infrastructure/persistence"
	"github.com/datawald/hub/internal/infrastructure/queue"
	"github.com/datawald/hub/internal/interfaces/http/handler"
	"github.com/datawald/hub/internal/interfaces/http/middleware"
	"github.com/datawald/hub/internal/interfaces/http/router"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting DataWald hub",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Database connection with zap-backed GORM logging
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	ledger := persistence.NewGormLedgerRepository(db.DB)
	store := persistence.NewGormEntityStore(db.DB)

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer bootCancel()

	// Work-queue backend
	var workQueue domain.WorkQueue
	switch cfg.Queue.Backend {
	case "sqs":
		sqsQueue, err := queue.NewSQSWorkQueue(bootCtx, queue.SQSOptions{
			Region:                   cfg.Queue.Region,
			Endpoint:                 cfg.Queue.Endpoint,
			VisibilityTimeoutSeconds: int(cfg.Queue.VisibilityTimeout.Seconds()),
		})
		if err != nil {
			log.Fatal("Failed to initialize SQS work queue", zap.Error(err))
		}
		workQueue = sqsQueue
		log.Info("Using SQS work queue", zap.String("region", cfg.Queue.Region))
	default:
		workQueue = queue.NewMemoryWorkQueue(cfg.Queue.VisibilityTimeout)
		log.Info("Using in-memory work queue")
	}

	// Out-of-band failure channel
	var alerter domain.Alerter
	switch cfg.Alert.Backend {
	case "sns":
		snsAlerter, err := alert.NewSNSAlerter(bootCtx, cfg.Alert.Region, cfg.Alert.TopicARN, log)
		if err != nil {
			log.Fatal("Failed to initialize SNS alerter", zap.Error(err))
		}
		alerter = snsAlerter
		log.Info("Using SNS alerter", zap.String("topic", cfg.Alert.TopicARN))
	default:
		alerter = alert.NewNoopAlerter(log)
	}

	// Idempotency store: Redis when reachable, in-memory otherwise
	idempotencyFactory := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log))
	idempotency, err := idempotencyFactory.CreateStore()
	if err != nil {
		log.Fatal("Failed to initialize idempotency store", zap.Error(err))
	}
	defer func() {
		if err := idempotency.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	// Connector registry. Integration agents (ERP and storefront adapters)
	// register themselves here at deploy time
	registry := connector.NewRegistry()

	clock := domain.SystemClock{}

	// Application services
	backofficeSvc := backoffice.NewService(registry, store, log)
	frontendSvc := frontend.NewService(registry, store, log)
	executor := control.NewRegistryExecutor(backofficeSvc, frontendSvc, log)

	aggregator := control.NewAggregator(ledger, store, alerter, clock, log, cfg.Sync.MaxPollAttempts)

	supervisor := control.NewDrainSupervisor(workQueue, executor, aggregator, idempotency, log, control.DrainConfig{
		ReceiveBatchSize: cfg.Sync.ReceiveBatchSize,
		Backoff:          cfg.Sync.DrainBackoff,
		ErrorBackoff:     cfg.Sync.DrainErrorBackoff,
		BackOfficeAgents: cfg.Sync.BackOfficeMaxTaskAgents,
		FrontEndAgents:   cfg.Sync.FrontEndMaxTaskAgents,
	})
	defer supervisor.Stop()

	dispatcher := control.NewDispatcher(workQueue, store, supervisor, log)

	defaultCutDt, err := time.Parse(domain.DtLayout, cfg.Sync.DefaultCutDt)
	if err != nil {
		log.Fatal("Invalid sync.default_cut_dt", zap.Error(err))
	}

	controlSvc := control.NewService(ledger, store, dispatcher, clock, log, control.Config{
		DefaultCutDt:   defaultCutDt.UTC(),
		FlushGrace:     cfg.Sync.FlushGrace,
		LedgerPageSize: cfg.Sync.LedgerPageSize,
	})

	producerSvc := producer.NewProducer(registry, store, controlSvc, log)

	// HTTP engine and middleware
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.CORSWithConfig(middleware.DefaultCORSConfig()),
		middleware.BodyLimit(middleware.DefaultMaxBodyBytes),
		middleware.RateLimit(middleware.NewRateLimiter(middleware.DefaultRateLimit, time.Minute)),
	)

	router.NewRouter(engine).
		Register(handler.NewSystemHandler(db, version)).
		Register(handler.NewControlHandler(controlSvc, log)).
		Register(handler.NewEntityHandler(store, clock, log)).
		Register(handler.NewFeedHandler(agency.NewFeedAgency(log, clock), store, clock, log)).
		Register(handler.NewProducerHandler(producerSvc, log)).
		Setup()

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown: stop accepting requests, then wait for in-flight
	// drain workers via the deferred supervisor.Stop
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
