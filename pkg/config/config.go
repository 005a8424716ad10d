package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
	// embedded zone database; TIMEZONE must resolve on minimal images too
	_ "time/tzdata"

	"coachbook/pkg/client"
	"coachbook/pkg/logger"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

var hourRegex = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

type Config struct {
	MongoURI          string
	MongoDatabaseName string
	MongoConnTimeout  time.Duration

	Port        string
	Environment string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	RequestTimeout time.Duration
	IdempotencyTTL time.Duration
	MaxRequestSize int

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	Timezone        string
	Location        *time.Location
	OpenHour        string
	CloseHour       string
	SlotStep        time.Duration
	WindowDays      int
	WeekdayCapacity int
	WeekendCapacity int

	BcryptCost  int
	SlotLockTTL time.Duration

	KafkaBrokers     string
	KafkaLessonTopic string

	RedisURL string

	Log    *logger.Logger
	Client *client.Client
}

func Load(serviceName string) *Config {
	// A missing .env file is fine; the process environment still applies.
	_ = godotenv.Load()

	environment := getEnvStr(EnvEnvironment, DefaultEnvironment)
	format := logger.CONSOLE
	if environment == "production" {
		format = logger.JSON
	}

	cfg := &Config{
		MongoURI:          getEnvStr(EnvMongoURI, DefaultMongoURI),
		MongoDatabaseName: getEnvStr(EnvMongoDatabaseName, DefaultMongoDatabaseName),
		MongoConnTimeout:  getEnvDuration(EnvMongoConnTimeout, DefaultMongoConnTimeout),

		Port:        getEnvStr(EnvPort, DefaultPort),
		Environment: environment,

		RateLimitRequests: getEnvNum(EnvRateLimitRequests, DefaultRateLimitRequests),
		RateLimitWindow:   getEnvDuration(EnvRateLimitWindow, DefaultRateLimitWindow),

		RequestTimeout: getEnvDuration(EnvRequestTimeout, DefaultRequestTimeout),
		IdempotencyTTL: getEnvDuration(EnvIdempotencyTTL, DefaultIdempotencyTTL),
		MaxRequestSize: getEnvNum(EnvMaxRequestSize, DefaultMaxRequestSize),

		ReadTimeout:     getEnvDuration(EnvReadTimeout, DefaultReadTimeout),
		WriteTimeout:    getEnvDuration(EnvWriteTimeout, DefaultWriteTimeout),
		IdleTimeout:     getEnvDuration(EnvIdleTimeout, DefaultIdleTimeout),
		ShutdownTimeout: getEnvDuration(EnvShutdownTimeout, DefaultShutdownTimeout),

		Timezone:        getEnvStr(EnvTimezone, DefaultTimezone),
		OpenHour:        getEnvStr(EnvOpenHour, DefaultOpenHour),
		CloseHour:       getEnvStr(EnvCloseHour, DefaultCloseHour),
		SlotStep:        getEnvDuration(EnvSlotStep, DefaultSlotStep),
		WindowDays:      getEnvNum(EnvWindowDays, DefaultWindowDays),
		WeekdayCapacity: getEnvNum(EnvWeekdayCapacity, DefaultWeekdayCapacity),
		WeekendCapacity: getEnvNum(EnvWeekendCapacity, DefaultWeekendCapacity),

		BcryptCost:  getEnvNum(EnvBcryptCost, DefaultBcryptCost),
		SlotLockTTL: getEnvDuration(EnvSlotLockTTL, DefaultSlotLockTTL),

		KafkaBrokers:     getEnvStr(EnvKafkaBrokers, ""),
		KafkaLessonTopic: getEnvStr(EnvKafkaLessonTopic, DefaultKafkaLessonTopic),

		RedisURL: getEnvStr(EnvRedisURL, ""),

		Log: logger.New(logger.Config{
			Level:     getEnvStr(EnvLogLevel, DefaultLogLevel),
			Format:    format,
			AddSource: true,
			Service:   serviceName,
		}),
		Client: client.NewClient(),
	}

	err := cfg.Validate()
	if err != nil {
		cfg.Log.Fatal(err.Error())
	}
	cfg.LogConfiguration()
	return cfg
}

func (cfg *Config) SetMongo() {
	cfg.Client.SetMongo(cfg.Log, cfg.MongoURI, cfg.MongoConnTimeout)
}

// SetRedis connects only when REDIS_URL is configured.
func (cfg *Config) SetRedis() {
	if cfg.RedisURL == "" {
		return
	}
	cfg.Client.SetRedis(cfg.Log, cfg.RedisURL, cfg.MongoConnTimeout)
}

// KafkaEnabled reports whether lesson events should be published.
func (cfg *Config) KafkaEnabled() bool {
	return strings.TrimSpace(cfg.KafkaBrokers) != ""
}

// Validate also resolves Location from Timezone.
func (cfg *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("Port must be between 1 and 65535, got: %s", cfg.Port))
	}

	if cfg.MongoURI == "" {
		errors = append(errors, "MongoURI cannot be empty")
	} else if len(cfg.MongoURI) < 10 || !regexp.MustCompile(`^mongodb(\+srv)?://`).MatchString(cfg.MongoURI) {
		errors = append(errors, fmt.Sprintf("MongoURI must start with 'mongodb://' or 'mongodb+srv://', got: %s", redactMongoURI(cfg.MongoURI)))
	}
	if cfg.MongoDatabaseName == "" {
		errors = append(errors, "MongoDatabaseName cannot be empty")
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		errors = append(errors, fmt.Sprintf("Timezone must be a valid IANA zone, got: %s", cfg.Timezone))
	} else {
		cfg.Location = loc
	}

	openOK := hourRegex.MatchString(cfg.OpenHour)
	closeOK := hourRegex.MatchString(cfg.CloseHour)
	if !openOK {
		errors = append(errors, fmt.Sprintf("OpenHour must be in HH:MM format (00:00-23:59), got: %s", cfg.OpenHour))
	}
	if !closeOK {
		errors = append(errors, fmt.Sprintf("CloseHour must be in HH:MM format (00:00-23:59), got: %s", cfg.CloseHour))
	}
	if openOK && closeOK && cfg.OpenHour >= cfg.CloseHour {
		errors = append(errors, fmt.Sprintf("OpenHour (%s) must be before CloseHour (%s)", cfg.OpenHour, cfg.CloseHour))
	}

	if cfg.SlotStep <= 0 {
		errors = append(errors, fmt.Sprintf("SlotStep must be positive, got: %s", cfg.SlotStep))
	}
	if cfg.WindowDays <= 0 {
		errors = append(errors, fmt.Sprintf("WindowDays must be positive, got: %d", cfg.WindowDays))
	}
	if cfg.WeekdayCapacity <= 0 {
		errors = append(errors, fmt.Sprintf("WeekdayCapacity must be positive, got: %d", cfg.WeekdayCapacity))
	}
	if cfg.WeekendCapacity <= 0 {
		errors = append(errors, fmt.Sprintf("WeekendCapacity must be positive, got: %d", cfg.WeekendCapacity))
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		errors = append(errors, fmt.Sprintf("BcryptCost must be between %d and %d, got: %d", bcrypt.MinCost, bcrypt.MaxCost, cfg.BcryptCost))
	}

	durations := map[string]time.Duration{
		"MongoConnTimeout": cfg.MongoConnTimeout,
		"RateLimitWindow":  cfg.RateLimitWindow,
		"RequestTimeout":   cfg.RequestTimeout,
		"IdempotencyTTL":   cfg.IdempotencyTTL,
		"ReadTimeout":      cfg.ReadTimeout,
		"WriteTimeout":     cfg.WriteTimeout,
		"IdleTimeout":      cfg.IdleTimeout,
		"ShutdownTimeout":  cfg.ShutdownTimeout,
		"SlotLockTTL":      cfg.SlotLockTTL,
	}
	for _, name := range []string{"MongoConnTimeout", "RateLimitWindow", "RequestTimeout", "IdempotencyTTL", "ReadTimeout", "WriteTimeout", "IdleTimeout", "ShutdownTimeout", "SlotLockTTL"} {
		if durations[name] <= 0 {
			errors = append(errors, fmt.Sprintf("%s must be positive, got: %s", name, durations[name]))
		}
	}

	if cfg.RateLimitRequests <= 0 {
		errors = append(errors, fmt.Sprintf("RateLimitRequests must be positive, got: %d", cfg.RateLimitRequests))
	}
	if cfg.MaxRequestSize <= 0 {
		errors = append(errors, fmt.Sprintf("MaxRequestSize must be positive, got: %d", cfg.MaxRequestSize))
	}
	if cfg.RedisURL != "" && !regexp.MustCompile(`^rediss?://`).MatchString(cfg.RedisURL) {
		errors = append(errors, "RedisURL must start with 'redis://' or 'rediss://'")
	}
	if cfg.KafkaEnabled() && cfg.KafkaLessonTopic == "" {
		errors = append(errors, "KafkaLessonTopic cannot be empty when KAFKA_BROKERS is set")
	}

	if len(errors) > 0 {
		errMsg := "Configuration validation failed:\n"
		for i, err := range errors {
			errMsg += fmt.Sprintf("  %d. %s\n", i+1, err)
		}
		return fmt.Errorf("%s", errMsg)
	}

	return nil
}

func (cfg *Config) LogConfiguration() {
	cfg.Log.Info("Configuration loaded successfully",
		"mongo_uri", redactMongoURI(cfg.MongoURI),
		"mongo_database", cfg.MongoDatabaseName,
		"mongo_conn_timeout", cfg.MongoConnTimeout,
		"port", cfg.Port,
		"environment", cfg.Environment,
		"rate_limit_requests", cfg.RateLimitRequests,
		"rate_limit_window", cfg.RateLimitWindow,
		"request_timeout", cfg.RequestTimeout,
		"idempotency_ttl", cfg.IdempotencyTTL,
		"max_request_size", cfg.MaxRequestSize,
		"read_timeout", cfg.ReadTimeout,
		"write_timeout", cfg.WriteTimeout,
		"idle_timeout", cfg.IdleTimeout,
		"shutdown_timeout", cfg.ShutdownTimeout,
		"timezone", cfg.Timezone,
		"open_hour", cfg.OpenHour,
		"close_hour", cfg.CloseHour,
		"slot_step", cfg.SlotStep,
		"window_days", cfg.WindowDays,
		"weekday_capacity", cfg.WeekdayCapacity,
		"weekend_capacity", cfg.WeekendCapacity,
		"bcrypt_cost", cfg.BcryptCost,
		"slot_lock_ttl", cfg.SlotLockTTL,
		"kafka_enabled", cfg.KafkaEnabled(),
		"kafka_lesson_topic", cfg.KafkaLessonTopic,
		"redis_enabled", cfg.RedisURL != "",
	)
}

func redactMongoURI(uri string) string {
	credentialRegex := regexp.MustCompile(`(mongodb(\+srv)?://)[^:]+:[^@]+@`)
	return credentialRegex.ReplaceAllString(uri, "${1}***:***@")
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvNum(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func (cfg *Config) GracefulShutdown() {
	cfg.Client.GracefulShutdown(cfg.Log)
}
