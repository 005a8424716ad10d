package kafka_config

import (
	"slices"
	"testing"
)

func TestSplitBrokers(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"single", "localhost:9092", []string{"localhost:9092"}},
		{"spaces and empties", " a:9092 , ,b:9092,", []string{"a:9092", "b:9092"}},
		{"empty", "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SplitBrokers(tt.input); !slices.Equal(got, tt.want) {
				t.Errorf("SplitBrokers(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Setenv(EnvKafkaProducerCompression, "gzip")
	t.Setenv(EnvKafkaDLQEnabled, "true")

	cfg, err := Load("localhost:9092")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ProducerCompression != "gzip" {
		t.Errorf("compression = %s, want gzip", cfg.ProducerCompression)
	}
	if got := cfg.DLQTopic("lesson-events"); got != "lesson-events-dlq" {
		t.Errorf("DLQTopic = %s", got)
	}
}

func TestLoad_Invalid(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Error("expected error without brokers")
	}

	t.Setenv(EnvKafkaProducerRequireAcks, "2")
	if _, err := Load("localhost:9092"); err == nil {
		t.Error("expected error for invalid acks")
	}
}

func TestDLQTopic_Disabled(t *testing.T) {
	cfg := &Config{}
	if got := cfg.DLQTopic("lesson-events"); got != "" {
		t.Errorf("DLQTopic = %q, want empty", got)
	}
}
