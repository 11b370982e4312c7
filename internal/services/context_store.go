package services

import (
	"context"
	"fmt"
	"time"

	"venturekit/internal/database"
	"venturekit/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SnapshotStore persists one BusinessContext document per user.
type SnapshotStore interface {
	Get(ctx context.Context, userID string) (*models.BusinessContext, error)
	Save(ctx context.Context, snapshot *models.BusinessContext) error
}

// MongoSnapshotStore is the MongoDB-backed SnapshotStore.
type MongoSnapshotStore struct {
	collection *mongo.Collection
}

// NewMongoSnapshotStore creates a snapshot store bound to business_contexts.
func NewMongoSnapshotStore(mongodb *database.MongoDB) *MongoSnapshotStore {
	return &MongoSnapshotStore{
		collection: mongodb.Collection(database.CollectionBusinessContexts),
	}
}

// Get returns the user's stored snapshot, or nil when none exists yet.
func (s *MongoSnapshotStore) Get(ctx context.Context, userID string) (*models.BusinessContext, error) {
	var snapshot models.BusinessContext
	err := s.collection.FindOne(ctx, bson.M{"userId": userID}).Decode(&snapshot)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		if isNotProvisioned(err) {
			return nil, fmt.Errorf("%w: business_contexts collection absent", ErrNotProvisioned)
		}
		return nil, fmt.Errorf("%w: failed to load context snapshot: %v", ErrStoreUnavailable, err)
	}
	return &snapshot, nil
}

// Save upserts the snapshot for the user, bumping the version on every write.
// The rendered text, structured form, and hash land in one update so a reader
// never observes a partially written snapshot.
func (s *MongoSnapshotStore) Save(ctx context.Context, snapshot *models.BusinessContext) error {
	now := time.Now()
	filter := bson.M{"userId": snapshot.UserID}
	update := bson.M{
		"$set": bson.M{
			"rendered":   snapshot.Rendered,
			"structured": snapshot.Structured,
			"hash":       snapshot.Hash,
			"updatedAt":  now,
		},
		"$setOnInsert": bson.M{
			"createdAt": now,
		},
		"$inc": bson.M{
			"version": 1,
		},
	}

	_, err := s.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		if isNotProvisioned(err) {
			return fmt.Errorf("%w: business_contexts collection absent", ErrNotProvisioned)
		}
		return fmt.Errorf("%w: failed to save context snapshot: %v", ErrStoreUnavailable, err)
	}
	return nil
}
