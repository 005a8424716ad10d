// Package events announces lesson lifecycle changes on Kafka. Publishing
// happens after the store commit and never fails the request that caused it.
package events

import (
	"context"
	"time"

	"coachbook/pkg/kafka"
	"coachbook/pkg/model"
)

const (
	TypeLessonBooked   = "lesson.booked"
	TypeLessonUpdated  = "lesson.updated"
	TypeLessonCanceled = "lesson.canceled"

	SchemaVersion = "1"
	Source        = "lessons"
)

// LessonEvent never carries the password or its hash.
type LessonEvent struct {
	Type             string           `json:"type"`
	LessonID         string           `json:"lesson_id"`
	CoachID          string           `json:"coach_id"`
	CoachName        string           `json:"coach_name"`
	LessonType       model.LessonType `json:"lesson_type"`
	FrequencyPerWeek *int             `json:"frequency_per_week,omitempty"`
	Duration         int              `json:"duration"`
	StartTime        time.Time        `json:"start_time"`
	IsActive         bool             `json:"is_active"`
	OccurredAt       time.Time        `json:"occurred_at"`
}

func NewLessonEvent(eventType string, lesson *model.Lesson, at time.Time) LessonEvent {
	return LessonEvent{
		Type:             eventType,
		LessonID:         lesson.ID,
		CoachID:          lesson.CoachID,
		CoachName:        lesson.CoachName,
		LessonType:       lesson.LessonType,
		FrequencyPerWeek: lesson.FrequencyPerWeek,
		Duration:         lesson.Duration,
		StartTime:        lesson.StartTime,
		IsActive:         lesson.IsActive,
		OccurredAt:       at,
	}
}

type Publisher interface {
	Publish(ctx context.Context, event LessonEvent) error
	Close() error
}

// MessageWriter is the part of kafka.Producer the publisher needs.
type MessageWriter interface {
	Publish(ctx context.Context, msg kafka.Message) error
	Close() error
}

type kafkaPublisher struct {
	writer MessageWriter
}

func NewKafkaPublisher(writer MessageWriter) Publisher {
	return &kafkaPublisher{writer: writer}
}

func (p *kafkaPublisher) Publish(ctx context.Context, event LessonEvent) error {
	msg, err := kafka.NewMessage().
		WithKey(event.LessonID).
		WithValue(event).
		WithEventType(event.Type).
		WithCorrelationID(CorrelationID(ctx)).
		WithSchemaVersion(SchemaVersion).
		WithSource(Source).
		WithTimestamp(event.OccurredAt).
		BuildChecked()
	if err != nil {
		return err
	}
	return p.writer.Publish(ctx, msg)
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

type nopPublisher struct{}

// NewNopPublisher is used when no brokers are configured.
func NewNopPublisher() Publisher {
	return nopPublisher{}
}

func (nopPublisher) Publish(context.Context, LessonEvent) error { return nil }

func (nopPublisher) Close() error { return nil }

type correlationKey struct{}

func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
