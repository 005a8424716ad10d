package events

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"coachbook/pkg/kafka"
	"coachbook/pkg/model"
)

type mockMessageWriter struct {
	publishFunc func(ctx context.Context, msg kafka.Message) error
	published   []kafka.Message
	closed      bool
}

func (m *mockMessageWriter) Publish(ctx context.Context, msg kafka.Message) error {
	m.published = append(m.published, msg)
	if m.publishFunc != nil {
		return m.publishFunc(ctx, msg)
	}
	return nil
}

func (m *mockMessageWriter) Close() error {
	m.closed = true
	return nil
}

func testLesson() *model.Lesson {
	freq := 2
	return &model.Lesson{
		ID:               "665f1c2e8b3e4a0012345678",
		LessonType:       model.LessonTypeRecurring,
		FrequencyPerWeek: &freq,
		Duration:         60,
		StartTime:        time.Date(2025, time.June, 2, 10, 0, 0, 0, time.UTC),
		CoachID:          "coach-1",
		CoachName:        "Jane",
		SecretHash:       "$2a$04$secret-hash-value",
		IsActive:         true,
	}
}

func TestKafkaPublisher_Publish(t *testing.T) {
	writer := &mockMessageWriter{}
	pub := NewKafkaPublisher(writer)
	at := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)

	ctx := WithCorrelationID(context.Background(), "req-42")
	if err := pub.Publish(ctx, NewLessonEvent(TypeLessonBooked, testLesson(), at)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(writer.published) != 1 {
		t.Fatalf("expected 1 message, got %d", len(writer.published))
	}
	msg := writer.published[0]
	if msg.Key != "665f1c2e8b3e4a0012345678" {
		t.Errorf("key = %s, want lesson id", msg.Key)
	}
	if msg.GetEventType() != TypeLessonBooked {
		t.Errorf("event type = %s", msg.GetEventType())
	}
	if msg.GetCorrelationID() != "req-42" {
		t.Errorf("correlation id = %s", msg.GetCorrelationID())
	}
	if strings.Contains(string(msg.Value), "secret") {
		t.Error("payload must not include the secret hash")
	}

	var decoded LessonEvent
	if err := msg.DecodeValue(&decoded); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded.CoachName != "Jane" || decoded.Duration != 60 || *decoded.FrequencyPerWeek != 2 {
		t.Errorf("decoded event = %+v", decoded)
	}
}

func TestKafkaPublisher_PropagatesWriterError(t *testing.T) {
	boom := errors.New("broker down")
	writer := &mockMessageWriter{
		publishFunc: func(ctx context.Context, msg kafka.Message) error { return boom },
	}
	pub := NewKafkaPublisher(writer)

	err := pub.Publish(context.Background(), NewLessonEvent(TypeLessonCanceled, testLesson(), time.Now()))
	if !errors.Is(err, boom) {
		t.Errorf("expected writer error, got %v", err)
	}
	if err := pub.Close(); err != nil || !writer.closed {
		t.Error("Close should close the writer")
	}
}

func TestNopPublisher(t *testing.T) {
	pub := NewNopPublisher()
	if err := pub.Publish(context.Background(), LessonEvent{}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestCorrelationID_Missing(t *testing.T) {
	if got := CorrelationID(context.Background()); got != "" {
		t.Errorf("CorrelationID = %q, want empty", got)
	}
}
