package repository

import (
	"context"
	"fmt"
	"time"

	lessonserrors "coachbook/internal/lessons/errors"
	"coachbook/pkg/config"
	"coachbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const LessonLockCollectionName = "Lesson_locks"

// LessonLockRepository stores advisory locks. A TTL index on expires_at
// clears locks left behind by crashed requests.
type LessonLockRepository interface {
	Create(ctx context.Context, lock *model.LessonLock) (*model.LessonLock, error)
	Delete(ctx context.Context, lockID string) error
}

type mongoLessonLockRepository struct {
	collection *mongo.Collection
}

func NewLessonLockRepository(cfg *config.Config) LessonLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoLessonLockRepository{
		collection: db.Collection(LessonLockCollectionName),
	}
}

// Create returns ErrLockHeld if another request holds the same lock.
func (r *mongoLessonLockRepository) Create(ctx context.Context, lock *model.LessonLock) (*model.LessonLock, error) {
	lock.CreatedAt = time.Now().UTC()

	_, err := r.collection.InsertOne(ctx, lock)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: %s", lessonserrors.ErrLockHeld, lock.ID)
		}
		return nil, fmt.Errorf("failed to create lesson lock: %w", err)
	}

	return lock, nil
}

func (r *mongoLessonLockRepository) Delete(ctx context.Context, lockID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": lockID})
	return err
}
