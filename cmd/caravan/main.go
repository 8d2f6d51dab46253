package main

import (
	"caravan/internal/registration/events"
	"caravan/internal/registration/handler"
	"caravan/internal/registration/repository"
	"caravan/internal/registration/service"
	"caravan/internal/registration/validator"
	"caravan/pkg/app"
	"caravan/pkg/config"
	"caravan/pkg/kafka"
	kafka_config "caravan/pkg/kafka/config"
	kafka_middleware "caravan/pkg/kafka/middleware"
)

const ServiceName = "caravan"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()

	cfg.Log.Info("Starting Caravan registration service")
	serverApp := app.NewApplication(cfg)

	publisher := initPublisher(cfg, serverApp)
	coordinator := initServices(cfg, publisher)

	serverApp.SetApp(handler.NewRegistrationHandler(coordinator, cfg.Log))
	serverApp.Run()
}

func initServices(cfg *config.Config, publisher events.Publisher) service.Coordinator {
	registrationValidator := validator.NewRegistrationValidator(cfg.Log, cfg.MaxCapacity)
	travelDateRepo := repository.NewMongoTravelDateRepository(cfg)
	coordinator := service.NewCoordinator(
		travelDateRepo,
		registrationValidator,
		publisher,
		cfg,
	)

	cfg.Log.Info("Registration coordinator initialized",
		"database", cfg.MongoDatabaseName,
		"capacity_policy", cfg.CapacityPolicy,
	)
	return coordinator
}

func initPublisher(cfg *config.Config, serverApp *app.Application) events.Publisher {
	if !cfg.EventsEnabled {
		cfg.Log.Info("Event publishing disabled")
		return events.NoopPublisher{}
	}

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.Log, cfg.EventsTopic, cfg.EventsDLQTopic)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	if kafkaCfg.EnableMiddleware {
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
	}
	serverApp.OnShutdown(producer.Close)

	return events.NewKafkaPublisher(producer, ServiceName)
}
