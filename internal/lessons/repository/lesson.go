package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	lessonserrors "coachbook/internal/lessons/errors"
	"coachbook/pkg/config"
	mongotx "coachbook/pkg/db/mongo"
	"coachbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	LessonCollectionName = "Lessons"
)

type LessonRepository interface {
	Create(ctx context.Context, lesson *model.Lesson) error
	FindByID(ctx context.Context, id string) (*model.Lesson, error)
	FindActiveByID(ctx context.Context, id string) (*model.Lesson, error)
	FindByCoachAtExactTime(ctx context.Context, coachID string, startTime time.Time) (*model.Lesson, error)
	FindOverlapping(ctx context.Context, coachID string, dayStart, dayEnd time.Time) ([]*model.Lesson, error)
	Update(ctx context.Context, id string, lesson *model.Lesson) error
	Deactivate(ctx context.Context, id string) error
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type mongoLessonRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoLessonRepository(cfg *config.Config) LessonRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoLessonRepository{
		cfg:        cfg,
		collection: db.Collection(LessonCollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout leaves a SessionContext untouched: wrapping it would detach the
// operation from its transaction.
func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoLessonRepository) Create(ctx context.Context, lesson *model.Lesson) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	lesson.CreatedAt = now
	lesson.UpdatedAt = now

	result, err := r.collection.InsertOne(ctx, lesson)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", lessonserrors.ErrTimeConflict, lesson.StartTime.Format(time.RFC3339))
		}
		return fmt.Errorf("failed to create lesson: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		lesson.ID = oid.Hex()
	}
	return nil
}

func (r *mongoLessonRepository) FindByID(ctx context.Context, id string) (*model.Lesson, error) {
	return r.findOne(ctx, id, false)
}

func (r *mongoLessonRepository) FindActiveByID(ctx context.Context, id string) (*model.Lesson, error) {
	return r.findOne(ctx, id, true)
}

func (r *mongoLessonRepository) findOne(ctx context.Context, id string, activeOnly bool) (*model.Lesson, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", lessonserrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID}
	if activeOnly {
		filter["is_active"] = true
	}

	var lesson model.Lesson
	err = r.collection.FindOne(ctx, filter).Decode(&lesson)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, lessonserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find lesson: %w", err)
	}

	return &lesson, nil
}

func (r *mongoLessonRepository) FindByCoachAtExactTime(ctx context.Context, coachID string, startTime time.Time) (*model.Lesson, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"coach_id":   coachID,
		"start_time": startTime.UTC(),
		"is_active":  true,
	}

	var lesson model.Lesson
	err := r.collection.FindOne(ctx, filter).Decode(&lesson)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, lessonserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find lesson by start time: %w", err)
	}

	return &lesson, nil
}

// FindOverlapping returns active lessons of the coach that touch [dayStart, dayEnd).
func (r *mongoLessonRepository) FindOverlapping(ctx context.Context, coachID string, dayStart, dayEnd time.Time) ([]*model.Lesson, error) {
	ctx, cancel := withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"coach_id":   coachID,
		"is_active":  true,
		"start_time": bson.M{"$lt": dayEnd.UTC()},
		"end_time":   bson.M{"$gt": dayStart.UTC()},
	}
	opts := options.Find().SetSort(bson.D{{Key: "start_time", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find lessons: %w", err)
	}
	defer cursor.Close(ctx)

	var lessons []*model.Lesson
	if err = cursor.All(ctx, &lessons); err != nil {
		return nil, fmt.Errorf("failed to decode lessons: %w", err)
	}

	return lessons, nil
}

// Update writes the patchable fields. secret_hash, end_time and is_active are
// never touched here.
func (r *mongoLessonRepository) Update(ctx context.Context, id string, lesson *model.Lesson) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", lessonserrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID}
	update := bson.M{
		"$set": bson.M{
			"coach_id":           lesson.CoachID,
			"coach_name":         lesson.CoachName,
			"frequency_per_week": lesson.FrequencyPerWeek,
			"duration":           lesson.Duration,
			"start_time":         lesson.StartTime,
			"updated_at":         time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", lessonserrors.ErrTimeConflict, lesson.StartTime.Format(time.RFC3339))
		}
		return fmt.Errorf("failed to update lesson: %w", err)
	}

	if result.MatchedCount == 0 {
		return lessonserrors.ErrNotFound
	}

	return nil
}

// Deactivate is idempotent: an already canceled lesson still matches.
func (r *mongoLessonRepository) Deactivate(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", lessonserrors.ErrInvalidID, id)
	}

	filter := bson.M{"_id": objectID}
	update := bson.M{
		"$set": bson.M{
			"is_active":  false,
			"updated_at": time.Now().UTC().Truncate(time.Millisecond),
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to cancel lesson: %w", err)
	}

	if result.MatchedCount == 0 {
		return lessonserrors.ErrNotFound
	}

	return nil
}

func (r *mongoLessonRepository) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
