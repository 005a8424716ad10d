package model

import (
	"time"
)

type LessonType string

const (
	LessonTypeOneTime   LessonType = "one-time"
	LessonTypeRecurring LessonType = "recurring"
)

func (t LessonType) Valid() bool {
	return t == LessonTypeOneTime || t == LessonTypeRecurring
}

// Lesson is a booked coaching lesson. It is never deleted; cancellation only
// flips IsActive to false.
type Lesson struct {
	ID               string     `json:"id,omitempty" bson:"_id,omitempty"`
	LessonType       LessonType `json:"lesson_type" bson:"lesson_type"`
	FrequencyPerWeek *int       `json:"frequency_per_week,omitempty" bson:"frequency_per_week,omitempty"`
	Duration         int        `json:"duration" bson:"duration"`
	StartTime        time.Time  `json:"start_time" bson:"start_time"`
	EndTime          time.Time  `json:"end_time" bson:"end_time"`
	CoachID          string     `json:"coach_id" bson:"coach_id"`
	CoachName        string     `json:"coach_name" bson:"coach_name"`
	UserID           string     `json:"user_id" bson:"user_id"`
	CourtID          string     `json:"court_id,omitempty" bson:"court_id,omitempty"`
	SecretHash       string     `json:"-" bson:"secret_hash"`
	IsActive         bool       `json:"is_active" bson:"is_active"`
	CreatedAt        time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at" bson:"updated_at"`
}

func (l *Lesson) IsRecurring() bool {
	return l.LessonType == LessonTypeRecurring
}

// LessonView is what a secret holder may see. It never carries the hash.
type LessonView struct {
	ID               string     `json:"id"`
	CoachName        string     `json:"coach_name"`
	LessonType       LessonType `json:"lesson_type"`
	FrequencyPerWeek *int       `json:"frequency_per_week,omitempty"`
	Duration         int        `json:"duration"`
	StartTime        time.Time  `json:"start_time"`
	EndTime          time.Time  `json:"end_time"`
	IsActive         bool       `json:"is_active"`
}

func (l *Lesson) View() LessonView {
	return LessonView{
		ID:               l.ID,
		CoachName:        l.CoachName,
		LessonType:       l.LessonType,
		FrequencyPerWeek: l.FrequencyPerWeek,
		Duration:         l.Duration,
		StartTime:        l.StartTime,
		EndTime:          l.EndTime,
		IsActive:         l.IsActive,
	}
}

// BookLessonRequest carries daysAndTimes as RFC3339 strings, one per requested
// occurrence. Frequency is only meaningful for recurring lessons.
type BookLessonRequest struct {
	UserName     string     `json:"user_name" validate:"required,min=1,max=100"`
	UserPhone    string     `json:"user_phone" validate:"required,e164"`
	CoachName    string     `json:"coach_name" validate:"required,min=1,max=100"`
	LessonType   LessonType `json:"lesson_type" validate:"required,oneof=one-time recurring"`
	Frequency    *int       `json:"frequency,omitempty" validate:"omitempty,min=1,max=3"`
	DaysAndTimes []string   `json:"days_and_times" validate:"required,min=1,dive,required,rfc3339"`
	Duration     int        `json:"duration" validate:"required,oneof=30 60"`
}

// BookLessonResult returns the plaintext password exactly once.
type BookLessonResult struct {
	ID                  string    `json:"id"`
	Password            string    `json:"password"`
	LessonStartDateTime time.Time `json:"lesson_start_date_time"`
}

type AvailabilityQuery struct {
	CoachName  string     `json:"coach_name" validate:"required,min=1,max=100"`
	LessonType LessonType `json:"lesson_type" validate:"required,oneof=one-time recurring"`
	Frequency  *int       `json:"frequency,omitempty" validate:"omitempty,min=1,max=3"`
	Duration   int        `json:"duration" validate:"required,oneof=30 60"`
}

type LessonCredentials struct {
	LessonID string `json:"lesson_id" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LessonUpdate is a partial patch; nil fields are left untouched.
type LessonUpdate struct {
	CoachName        *string  `json:"coach_name,omitempty" validate:"omitempty,min=1,max=100"`
	FrequencyPerWeek *int     `json:"frequency_per_week,omitempty" validate:"omitempty,min=1,max=3"`
	DaysAndTimes     []string `json:"days_and_times,omitempty" validate:"omitempty,min=1,dive,required,rfc3339"`
	Duration         *int     `json:"duration,omitempty" validate:"omitempty,oneof=30 60"`
}

func (u *LessonUpdate) IsEmpty() bool {
	return u.CoachName == nil && u.FrequencyPerWeek == nil && len(u.DaysAndTimes) == 0 && u.Duration == nil
}
