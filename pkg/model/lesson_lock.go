package model

import "time"

// LessonLock is an advisory lock on one (coach, start time) pair, held while a
// booking checks for conflicts and writes.
type LessonLock struct {
	ID        string    `bson:"_id" json:"id"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}
