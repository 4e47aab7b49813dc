package main

import (
	adminshandler "parkly/internal/admins/handler"
	adminsrepository "parkly/internal/admins/repository"
	adminsservice "parkly/internal/admins/service"
	adminsvalidator "parkly/internal/admins/validator"
	"parkly/internal/parking/catalog"
	"parkly/internal/parking/events"
	"parkly/internal/parking/handler"
	"parkly/internal/parking/service"
	"parkly/internal/parking/session"
	"parkly/internal/parking/store"
	"parkly/internal/parking/validator"
	"parkly/pkg/app"
	"parkly/pkg/config"
	"parkly/pkg/contracts"
	"parkly/pkg/kafka"
	kafka_config "parkly/pkg/kafka/config"
	kafka_middleware "parkly/pkg/kafka/middleware"
	"parkly/pkg/middleware"
	"parkly/pkg/sealer"

	"github.com/julienschmidt/httprouter"
)

const ServiceName = "parking"

func main() {
	cfg := config.Load(ServiceName)
	cfg.Log.Info("Starting Parking service")

	if cfg.AdminEnabled {
		cfg.SetMongo()
	}
	if cfg.RedisAddr != "" {
		cfg.SetRedis()
	}

	sessions := initSessions(cfg)
	publisher, publishMetrics := initPublisher(cfg)
	parkingService := service.NewParkingService(sessions, publisher, cfg)
	parkingHandler := handler.NewParkingHandler(parkingService, cfg.Log)

	handlers := []contracts.Handler{parkingHandler}
	if cfg.AdminEnabled {
		handlers = append(handlers, initAdmin(cfg, parkingHandler)...)
	}

	serverApp := app.NewApplication(cfg)
	serverApp.UseSessionCheck(sessions.Exists)
	serverApp.SetApp(handler.NewHealthHandler(cfg.Client.Mongo, sessions, cfg.Log), handlers...)
	serverApp.OnShutdown(sessions.Stop)
	serverApp.OnShutdown(func() {
		if err := publisher.Close(); err != nil {
			cfg.Log.Error("Failed to close event publisher", "error", err)
		}
		if publishMetrics != nil {
			snap := publishMetrics.Snapshot()
			cfg.Log.Info("Slot event totals",
				"published", snap.Published,
				"publish_failed", snap.PublishFailed,
				"avg_publish_ms", snap.AvgPublishDuration.Milliseconds(),
			)
		}
	})
	serverApp.Run()
}

func initSessions(cfg *config.Config) *session.Manager {
	bookingValidator := validator.NewBookingValidator(cfg.Log)
	opts := store.Options{
		PricingEnabled: cfg.PricingEnabled,
		HourlyRate:     cfg.HourlyRate,
		AdminEnabled:   cfg.AdminEnabled,
	}

	// Fail at start-up rather than on the first session if the catalog is broken.
	if _, err := store.New(catalog.Locations(), bookingValidator, opts); err != nil {
		cfg.Log.Fatal("Invalid location catalog", "error", err)
	}

	sessions := session.NewManager(func() (*store.Store, error) {
		return store.New(catalog.Locations(), bookingValidator, opts)
	}, cfg.SessionTTL, cfg.Log)
	sessions.Start()

	cfg.Log.Info("Session manager initialized",
		"session_ttl", cfg.SessionTTL,
		"locations", len(catalog.Locations()),
		"pricing_enabled", cfg.PricingEnabled,
		"admin_enabled", cfg.AdminEnabled,
	)
	return sessions
}

func initPublisher(cfg *config.Config) (events.Publisher, *kafka_middleware.Metrics) {
	if !cfg.EventsEnabled {
		cfg.Log.Info("Slot events disabled")
		return events.NoopPublisher{}, nil
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.EventsTopic, cfg.EventsDLQTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	metrics := kafka_middleware.NewMetrics()
	producer.Use(metrics.ProducerMiddleware())
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	}

	cfg.Log.Info("Slot events enabled", "topic", cfg.EventsTopic, "dlq_topic", cfg.EventsDLQTopic)
	return events.NewKafkaPublisher(producer, cfg.Log), metrics
}

func initAdmin(cfg *config.Config, parkingHandler *handler.ParkingHandler) []contracts.Handler {
	tokenSealer, err := sealer.New([]byte(cfg.AdminTokenKey))
	if err != nil {
		cfg.Log.Fatal("Invalid admin token key", "error", err)
	}

	adminValidator := adminsvalidator.NewAdminValidator(cfg.MinPasswordLength, cfg.Log)
	adminRepo := adminsrepository.NewMongoAdminRepository(cfg)
	adminService := adminsservice.NewAdminService(adminRepo, adminValidator, tokenSealer, cfg)

	auth := middleware.AdminAuth(tokenSealer, cfg.Log)
	overrideRoutes := contracts.HandlerFunc(func(router *httprouter.Router) {
		parkingHandler.RegisterAdminRoutes(router, auth)
	})

	cfg.Log.Info("Admin profile enabled",
		"database", cfg.MongoDatabaseName,
		"signup_enabled", cfg.AdminSignupEnabled,
	)
	return []contracts.Handler{adminshandler.NewAdminHandler(adminService, cfg.Log), overrideRoutes}
}
