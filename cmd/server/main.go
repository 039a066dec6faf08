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

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/tiibntick/service-expedition/internal/application"
	"github.com/tiibntick/service-expedition/internal/config"
	"github.com/tiibntick/service-expedition/internal/domain/shipment"
	shipmentEvents "github.com/tiibntick/service-expedition/internal/events"
	"github.com/tiibntick/service-expedition/internal/geocoding"
	"github.com/tiibntick/service-expedition/internal/handler"
	"github.com/tiibntick/service-expedition/internal/platform/auth"
	"github.com/tiibntick/service-expedition/internal/platform/database"
	"github.com/tiibntick/service-expedition/internal/platform/kafka"
	"github.com/tiibntick/service-expedition/internal/platform/logger"
	"github.com/tiibntick/service-expedition/internal/platform/middleware"
	"github.com/tiibntick/service-expedition/internal/receipt"
	"github.com/tiibntick/service-expedition/internal/repository"
	"github.com/tiibntick/service-expedition/internal/routing"
	"go.uber.org/zap"
)

const serviceName = "service-expedition"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting "+serviceName,
		zap.String("port", cfg.Port),
	)

	// Connect to database
	db, err := database.Connect(cfg.DBConfig.DSN(), log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	// Run database migrations
	if cfg.AppEnv == "development" {
		if err := db.AutoMigrate(&repository.ShipmentModel{}, &repository.PhotoModel{}, &repository.CourierLocationModel{}); err != nil {
			log.Fatal("failed to run auto-migration", zap.Error(err))
		}
		log.Info("database migration completed (dev auto-migrate)")
	} else {
		if err := database.RunMigrations(cfg.DBConfig.URL(), cfg.MigrationsDir, log); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.AccessTokenTTL)

	kafkaProducer := kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
	defer func() { _ = kafkaProducer.Close() }()

	// Geocoding goes through the redis cache; a cache outage only costs upstream calls.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisConfig.Addr,
		Password: cfg.RedisConfig.Password,
		DB:       cfg.RedisConfig.DB,
	})
	defer func() { _ = redisClient.Close() }()

	geocoder := geocoding.NewCachedGeocoder(
		geocoding.NewNominatimClient(cfg.GeoConfig.GeocoderURL, cfg.GeoConfig.UserAgent, cfg.GeoConfig.HTTPTimeout, log),
		geocoding.NewRedisCache(redisClient),
		cfg.GeoConfig.CacheTTL,
		log,
	)
	router := routing.NewOSRMClient(cfg.GeoConfig.RouterURL, cfg.GeoConfig.UserAgent, cfg.GeoConfig.HTTPTimeout, log)

	// Initialize repositories
	shipmentRepo := repository.NewGormShipmentRepository(db)
	photoRepo := repository.NewGormPhotoRepository(db)
	locationRepo := repository.NewGormCourierLocationRepository(db)

	pricingStrategy := shipment.NewStandardPricingStrategy()

	// Initialize application services
	routeSessions := application.NewRouteSessionService(geocoder, router, pricingStrategy, cfg.RouteSessionTTL, log)
	shipmentService := application.NewShipmentService(
		shipmentRepo,
		pricingStrategy,
		routeSessions,
		receipt.NewRenderer(log),
		cfg.ReceiptDir,
		kafkaProducer,
		log,
	)
	geoService := application.NewGeoService(geocoder, router, pricingStrategy, log)
	locationService := application.NewCourierLocationService(locationRepo, kafkaProducer, log)
	photoService := application.NewPhotoService(photoRepo, shipmentRepo, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Payment confirmations move mobile-money shipments to paid
	groupID := cfg.KafkaConfig.GroupPrefix + "expedition-service"
	paymentConsumer := shipmentEvents.NewPaymentEventConsumer(
		cfg.KafkaConfig.Brokers,
		groupID,
		shipmentService,
		log,
	)
	defer func() { _ = paymentConsumer.Close() }()

	go func() {
		log.Info("starting payment event consumer")
		if err := paymentConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("payment event consumer error", zap.Error(err))
		}
	}()

	go routeSessions.RunJanitor(ctx, time.Minute)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	engine.Use(middleware.RecoveryMiddleware(log))
	engine.Use(middleware.LoggerMiddleware(log))
	engine.Use(middleware.RequestIDMiddleware())
	engine.Use(middleware.CORSMiddleware())
	engine.Use(middleware.SecurityHeadersMiddleware())

	handler.NewHealthHandler(db, redisClient, serviceName).RegisterRoutes(engine)

	handler.NewGeoHandler(geoService).RegisterRoutes(&engine.RouterGroup, jwtManager)
	handler.NewRouteSessionHandler(routeSessions).RegisterRoutes(&engine.RouterGroup, jwtManager)
	handler.NewShipmentHandler(shipmentService).RegisterRoutes(&engine.RouterGroup, jwtManager)
	handler.NewPhotoHandler(photoService).RegisterRoutes(&engine.RouterGroup, jwtManager)
	handler.NewCourierLocationHandler(locationService).RegisterRoutes(&engine.RouterGroup, jwtManager)
	handler.NewAdminShipmentHandler(shipmentService).RegisterRoutes(&engine.RouterGroup, jwtManager)

	srv := &http.Server{
		Addr:         cfg.Port,
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down " + serviceName + "...")

	// Stops the consumer and the session janitor
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info(serviceName + " stopped")
}
