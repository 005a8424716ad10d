package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		MongoURI:          DefaultMongoURI,
		MongoDatabaseName: DefaultMongoDatabaseName,
		MongoConnTimeout:  DefaultMongoConnTimeout,
		Port:              DefaultPort,
		RateLimitRequests: DefaultRateLimitRequests,
		RateLimitWindow:   DefaultRateLimitWindow,
		RequestTimeout:    DefaultRequestTimeout,
		IdempotencyTTL:    DefaultIdempotencyTTL,
		MaxRequestSize:    DefaultMaxRequestSize,
		ReadTimeout:       DefaultReadTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
		ShutdownTimeout:   DefaultShutdownTimeout,
		Timezone:          DefaultTimezone,
		OpenHour:          DefaultOpenHour,
		CloseHour:         DefaultCloseHour,
		SlotStep:          DefaultSlotStep,
		WindowDays:        DefaultWindowDays,
		WeekdayCapacity:   DefaultWeekdayCapacity,
		WeekendCapacity:   DefaultWeekendCapacity,
		BcryptCost:        DefaultBcryptCost,
		SlotLockTTL:       DefaultSlotLockTTL,
		KafkaLessonTopic:  DefaultKafkaLessonTopic,
	}
}

func TestValidate_Defaults(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.Location == nil || cfg.Location.String() != "Asia/Seoul" {
		t.Errorf("Location = %v, want Asia/Seoul", cfg.Location)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"bad port", func(c *Config) { c.Port = "99999" }, "Port"},
		{"bad mongo scheme", func(c *Config) { c.MongoURI = "postgres://localhost:5432" }, "MongoURI"},
		{"unknown timezone", func(c *Config) { c.Timezone = "Mars/Olympus" }, "Timezone"},
		{"malformed open hour", func(c *Config) { c.OpenHour = "7am" }, "OpenHour"},
		{"open after close", func(c *Config) { c.OpenHour, c.CloseHour = "22:00", "08:00" }, "must be before CloseHour"},
		{"zero slot step", func(c *Config) { c.SlotStep = 0 }, "SlotStep"},
		{"zero weekend capacity", func(c *Config) { c.WeekendCapacity = 0 }, "WeekendCapacity"},
		{"bcrypt cost too high", func(c *Config) { c.BcryptCost = 40 }, "BcryptCost"},
		{"negative lock ttl", func(c *Config) { c.SlotLockTTL = -time.Second }, "SlotLockTTL"},
		{"kafka without topic", func(c *Config) { c.KafkaBrokers, c.KafkaLessonTopic = "localhost:9092", "" }, "KafkaLessonTopic"},
		{"bad redis scheme", func(c *Config) { c.RedisURL = "localhost:6379" }, "RedisURL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Port = "0"
	cfg.WindowDays = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "1. ") || !strings.Contains(err.Error(), "2. ") {
		t.Errorf("expected numbered errors, got %q", err.Error())
	}
}

func TestRedactMongoURI(t *testing.T) {
	got := redactMongoURI("mongodb://admin:hunter2@db:27017/coachbook")
	if strings.Contains(got, "hunter2") || !strings.Contains(got, "***:***@db") {
		t.Errorf("redactMongoURI = %q", got)
	}
}

func TestKafkaEnabled(t *testing.T) {
	cfg := validConfig()
	if cfg.KafkaEnabled() {
		t.Error("empty brokers should disable Kafka")
	}
	cfg.KafkaBrokers = " localhost:9092 "
	if !cfg.KafkaEnabled() {
		t.Error("brokers should enable Kafka")
	}
}
