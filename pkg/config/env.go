package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort        = "PORT"
	EnvLogLevel    = "LOG_LEVEL"
	EnvEnvironment = "ENV"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvTimezone        = "TIMEZONE"
	EnvOpenHour        = "OPEN_HOUR"
	EnvCloseHour       = "CLOSE_HOUR"
	EnvSlotStep        = "SLOT_STEP"
	EnvWindowDays      = "WINDOW_DAYS"
	EnvWeekdayCapacity = "WEEKDAY_CAPACITY"
	EnvWeekendCapacity = "WEEKEND_CAPACITY"

	EnvBcryptCost  = "BCRYPT_COST"
	EnvSlotLockTTL = "SLOT_LOCK_TTL"

	EnvKafkaBrokers     = "KAFKA_BROKERS"
	EnvKafkaLessonTopic = "KAFKA_LESSON_TOPIC"

	EnvRedisURL = "REDIS_URL"
)
