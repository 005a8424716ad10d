package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "coachbook"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort        = "8080"
	DefaultEnvironment = "development"
	DefaultLogLevel    = "info"

	DefaultRateLimitRequests = 10
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultTimezone        = "Asia/Seoul"
	DefaultOpenHour        = "07:00"
	DefaultCloseHour       = "23:00"
	DefaultSlotStep        = 30 * time.Minute
	DefaultWindowDays      = 7
	DefaultWeekdayCapacity = 5
	DefaultWeekendCapacity = 3

	DefaultBcryptCost  = 10
	DefaultSlotLockTTL = 10 * time.Second

	DefaultKafkaLessonTopic = "lesson-events"
)
