package main

import (
	"coachbook/internal/lessons/credential"
	"coachbook/internal/lessons/events"
	"coachbook/internal/lessons/handler"
	"coachbook/internal/lessons/repository"
	"coachbook/internal/lessons/service"
	"coachbook/internal/lessons/validator"
	"coachbook/pkg/app"
	"coachbook/pkg/config"
	"coachbook/pkg/kafka"
	kafka_config "coachbook/pkg/kafka/config"
	kafka_middleware "coachbook/pkg/kafka/middleware"
)

const ServiceName = "lessons"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	cfg.SetRedis()

	cfg.Log.Info("Starting Lessons service")
	publisher := initPublisher(cfg)
	lessonService := initServices(cfg, publisher)

	serverApp := app.NewApplication(cfg)
	serverApp.SetApp(
		handler.NewLessonHandler(lessonService, cfg.Log),
		handler.NewHealthHandler(cfg.Client.Mongo, cfg.Log),
	)
	serverApp.OnShutdown("lesson-events", publisher)
	serverApp.Run()
}

func initPublisher(cfg *config.Config) events.Publisher {
	if !cfg.KafkaEnabled() {
		cfg.Log.Info("KAFKA_BROKERS not set, lesson events are disabled")
		return events.NewNopPublisher()
	}

	kafkaCfg, err := kafka_config.Load(cfg.KafkaBrokers)
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	producer, err := kafka.NewProducer(kafkaCfg, cfg.KafkaLessonTopic, cfg.Log)
	if err != nil {
		cfg.Log.Fatal("Failed to create Kafka producer", "error", err)
	}
	producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))

	cfg.Log.Info("Lesson events enabled", "topic", producer.Topic())
	return events.NewKafkaPublisher(producer)
}

func initServices(cfg *config.Config, publisher events.Publisher) service.LessonService {
	lessonService := service.NewLessonService(
		repository.NewMongoLessonRepository(cfg),
		repository.NewLessonLockRepository(cfg),
		repository.NewMongoCoachDirectory(cfg),
		repository.NewMongoUserDirectory(cfg),
		validator.NewLessonValidator(cfg.Log),
		credential.NewSecretHasher(cfg.BcryptCost),
		publisher,
		cfg,
	)

	cfg.Log.Info("Lesson service initialized", "database", cfg.MongoDatabaseName, "timezone", cfg.Timezone)
	return lessonService
}
