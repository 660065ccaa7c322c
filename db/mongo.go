package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectMongo connects to MongoDB and verifies the connection with a ping.
func ConnectMongo(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongodb ping failed: %w", err)
	}

	return client, nil
}

// EnsureIndexes creates the unique indexes the duplicate guards rely on.
// Duplicate names within a backlog scope and duplicate sprint-item inserts
// are rejected by the store itself, not only by the application-level check.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	projectName := mongo.IndexModel{
		Keys:    bson.M{"name": 1},
		Options: options.Index().SetUnique(true),
	}
	if _, err := database.Collection("projects").Indexes().CreateOne(ctx, projectName); err != nil {
		return fmt.Errorf("failed to create unique index on project name: %w", err)
	}

	backlogScopeName := mongo.IndexModel{
		Keys:    bson.D{{Key: "projectId", Value: 1}, {Key: "parentId", Value: 1}, {Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := database.Collection("backlog_items").Indexes().CreateOne(ctx, backlogScopeName); err != nil {
		return fmt.Errorf("failed to create unique index on backlog scope and name: %w", err)
	}

	sprintOriginal := mongo.IndexModel{
		Keys:    bson.D{{Key: "sprintId", Value: 1}, {Key: "originalId", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := database.Collection("sprint_items").Indexes().CreateOne(ctx, sprintOriginal); err != nil {
		return fmt.Errorf("failed to create unique index on sprint items: %w", err)
	}

	pointsProject := mongo.IndexModel{
		Keys: bson.D{{Key: "projectId", Value: 1}, {Key: "userId", Value: 1}},
	}
	if _, err := database.Collection("points_events").Indexes().CreateOne(ctx, pointsProject); err != nil {
		return fmt.Errorf("failed to create index on points events: %w", err)
	}

	return nil
}
