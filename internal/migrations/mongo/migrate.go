package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"coachbook/internal/lessons/repository"
	"coachbook/internal/migrations/mongo/validators"
	"coachbook/pkg/logger"
)

const CourtCollectionName = "Courts"

var (
	// Only active lessons hold a coach's start time, so a canceled lesson
	// never blocks rebooking the same slot.
	LessonsIndexes = []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "coach_id", Value: 1},
				{Key: "start_time", Value: 1},
			},
			Options: options.Index().
				SetName("uniq_active_coach_start").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"is_active": true}),
		},
		{Keys: bson.D{
			{Key: "coach_id", Value: 1},
			{Key: "start_time", Value: 1},
			{Key: "end_time", Value: 1},
		}},
		{Keys: bson.D{{Key: "user_id", Value: 1}}},
	}

	LessonLocksIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("ttl_expires_at").SetExpireAfterSeconds(0),
		},
	}

	CoachesIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	UsersIndexes = []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "name", Value: 1},
				{Key: "phone_number", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
	}

	CourtsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}},
	}
)

type collectionDefinition struct {
	Indexes   []mongo.IndexModel
	Validator bson.M
}

func collections() map[string]collectionDefinition {
	return map[string]collectionDefinition{
		repository.LessonCollectionName: {
			Indexes:   LessonsIndexes,
			Validator: validators.LessonValidator,
		},
		repository.LessonLockCollectionName: {
			Indexes:   LessonLocksIndexes,
			Validator: validators.LessonLockValidator,
		},
		repository.CoachCollectionName: {
			Indexes:   CoachesIndexes,
			Validator: validators.CoachValidator,
		},
		repository.UserCollectionName: {
			Indexes:   UsersIndexes,
			Validator: validators.UserValidator,
		},
		CourtCollectionName: {
			Indexes:   CourtsIndexes,
			Validator: validators.CourtValidator,
		},
	}
}

func RunMigration(ctx context.Context, client *mongo.Client, dbName string, log *logger.Logger) error {
	db := client.Database(dbName)
	log.Info("Running Mongo migrations", "database", dbName)

	for name, def := range collections() {
		if err := ensureCollection(ctx, db, name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	log.Info("All migrations applied successfully", "database", dbName)
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	log.Info("Collection already exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	coll := db.Collection(name)
	if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "count", len(models))
	return nil
}
