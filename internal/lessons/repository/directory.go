package repository

import (
	"context"
	"errors"
	"fmt"

	lessonserrors "coachbook/internal/lessons/errors"
	"coachbook/pkg/config"
	"coachbook/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	CoachCollectionName = "Coaches"
	UserCollectionName  = "Users"
)

type CoachDirectory interface {
	FindByName(ctx context.Context, name string) (*model.Coach, error)
}

type UserDirectory interface {
	FindByNameAndPhone(ctx context.Context, name, phone string) (*model.User, error)
}

type mongoCoachDirectory struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoCoachDirectory(cfg *config.Config) CoachDirectory {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoCoachDirectory{cfg: cfg, collection: db.Collection(CoachCollectionName)}
}

func (d *mongoCoachDirectory) FindByName(ctx context.Context, name string) (*model.Coach, error) {
	ctx, cancel := withTimeout(ctx, d.cfg.ReadTimeout)
	defer cancel()

	var coach model.Coach
	err := d.collection.FindOne(ctx, bson.M{"name": name}).Decode(&coach)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, lessonserrors.ErrCoachNotFound
		}
		return nil, fmt.Errorf("failed to find coach: %w", err)
	}
	return &coach, nil
}

type mongoUserDirectory struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoUserDirectory(cfg *config.Config) UserDirectory {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoUserDirectory{cfg: cfg, collection: db.Collection(UserCollectionName)}
}

func (d *mongoUserDirectory) FindByNameAndPhone(ctx context.Context, name, phone string) (*model.User, error) {
	ctx, cancel := withTimeout(ctx, d.cfg.ReadTimeout)
	defer cancel()

	var user model.User
	err := d.collection.FindOne(ctx, bson.M{"name": name, "phone_number": phone}).Decode(&user)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, lessonserrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return &user, nil
}
