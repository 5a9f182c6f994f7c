package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ferrylink/service-fleet/internal/application"
	"github.com/ferrylink/service-fleet/internal/config"
	"github.com/ferrylink/service-fleet/internal/domain/position"
	fleetEvents "github.com/ferrylink/service-fleet/internal/events"
	"github.com/ferrylink/service-fleet/internal/handler"
	"github.com/ferrylink/service-fleet/internal/live"
	"github.com/ferrylink/service-fleet/internal/platform/auth"
	"github.com/ferrylink/service-fleet/internal/platform/database"
	"github.com/ferrylink/service-fleet/internal/platform/health"
	"github.com/ferrylink/service-fleet/internal/platform/kafka"
	"github.com/ferrylink/service-fleet/internal/platform/logger"
	"github.com/ferrylink/service-fleet/internal/platform/middleware"
	"github.com/ferrylink/service-fleet/internal/portcatalog"
	"github.com/ferrylink/service-fleet/internal/repository"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, "service-fleet")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting service-fleet",
		zap.String("port", cfg.Port),
	)

	// Load the port catalog
	catalog, err := portcatalog.Load(cfg.PortCatalogPath)
	if err != nil {
		log.Fatal("failed to load port catalog", zap.Error(err))
	}
	log.Info("port catalog loaded", zap.Int("ports", catalog.Len()))

	// Connect to database
	db, err := database.Connect(cfg.DBConfig, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(&repository.VesselModel{}, &repository.SailingModel{}); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		log.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(cfg.DBConfig.DatabaseURL(), cfg.MigrationsDir, log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Initialize JWT manager
	jwtManager := auth.NewJWTManager(
		cfg.JWTConfig.Secret,
		cfg.JWTConfig.AccessTTL,
		cfg.JWTConfig.RefreshTTL,
	)

	// Initialize Kafka producer
	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()

	// Initialize repositories
	sailingRepo := repository.NewGormSailingRepository(db)
	vesselRepo := repository.NewGormVesselRepository(db)

	clock := position.SystemClock{}

	// Initialize application services
	sailingService := application.NewSailingService(
		sailingRepo,
		vesselRepo,
		catalog,
		kafkaProducer,
		clock,
		log,
	)
	vesselService := application.NewVesselService(vesselRepo, log)

	tracker := application.NewFleetTracker(sailingRepo, clock, application.TrackerConfig{
		RefreshInterval: cfg.Refresh.Interval,
		Lookback:        cfg.Refresh.Lookback,
		Lookahead:       cfg.Refresh.Lookahead,
		TickInterval:    cfg.MapConfig.TickInterval,
	}, log)

	// Timetable writes are visible on the map without waiting for the next refresh
	sailingService.OnChange(func(ctx context.Context) {
		if err := tracker.Refresh(ctx); err != nil {
			log.Warn("fleet refresh after write failed", zap.Error(err))
		}
	})

	// Initialize live feeds
	hub := live.NewHub(log)
	defer hub.Close()

	sinks := []live.Sink{hub}
	if cfg.MQTTConfig.Enabled {
		mqttPublisher, err := live.NewMQTTPublisher(
			cfg.MQTTConfig.Broker,
			cfg.MQTTConfig.ClientID,
			cfg.MQTTConfig.Topic,
			log,
		)
		if err != nil {
			log.Fatal("failed to connect to MQTT broker", zap.Error(err))
		}
		defer mqttPublisher.Close()
		sinks = append(sinks, mqttPublisher)
	}
	broadcaster := live.NewBroadcaster(tracker, cfg.MapConfig.TickInterval, log, sinks...)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		tracker.RefreshLoop(ctx)
	}()
	go func() {
		defer wg.Done()
		broadcaster.Run(ctx)
	}()

	// Initialize and start schedule event consumer in a goroutine
	groupID := cfg.KafkaConfig.GroupPrefix + "service-fleet"
	scheduleConsumer := fleetEvents.NewScheduleEventConsumer(
		cfg.KafkaConfig.Brokers,
		groupID,
		sailingService,
		log,
	)
	defer func() { _ = scheduleConsumer.Close() }()

	go func() {
		log.Info("starting schedule event consumer")
		if err := scheduleConsumer.Start(ctx); err != nil && err != context.Canceled {
			log.Error("schedule event consumer error", zap.Error(err))
		}
	}()

	// Initialize HTTP handlers
	sailingHandler := handler.NewSailingHandler(sailingService)
	vesselHandler := handler.NewVesselHandler(vesselService)
	adminSailingHandler := handler.NewAdminSailingHandler(sailingService)
	mapHandler := handler.NewMapHandler(tracker, hub, catalog, cfg.MapConfig)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.LoggerMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware())

	// Register health check routes
	healthHandler := health.NewHandler(db, "service-fleet")
	healthHandler.AddCheck("fleet", tracker.Ready)
	healthHandler.AddInfo("fleet", func() interface{} { return tracker.Snapshot() })
	healthHandler.RegisterRoutes(router)

	// Register routes
	sailingHandler.RegisterRoutes(&router.RouterGroup, jwtManager)
	vesselHandler.RegisterRoutes(&router.RouterGroup, jwtManager)
	adminSailingHandler.RegisterRoutes(&router.RouterGroup, jwtManager)
	mapHandler.RegisterRoutes(&router.RouterGroup)

	// Create HTTP server. No write timeout: /api/v1/ferries/live holds a websocket.
	srv := &http.Server{
		Addr:              cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down service-fleet...")

	// Stop the refresh loop, broadcaster and consumer
	cancel()
	wg.Wait()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info("service-fleet stopped")
}
