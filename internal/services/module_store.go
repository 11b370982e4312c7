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

// ModuleStore is the record-store boundary for the lifecycle manager.
// Activations are keyed by (user, module), completions by (user, sub-module);
// saves upsert on those natural keys.
type ModuleStore interface {
	GetActivation(ctx context.Context, userID, moduleID string) (*models.ModuleActivation, error)
	SaveActivation(ctx context.Context, activation *models.ModuleActivation) error
	ListActivations(ctx context.Context, userID string) ([]models.ModuleActivation, error)

	SaveSubModuleCompletion(ctx context.Context, completion *models.SubModuleCompletion) error
	ListSubModuleCompletions(ctx context.Context, userID, moduleID string) ([]models.SubModuleCompletion, error)

	// RecentlyActiveUsers returns user ids with module activity since the
	// given time; used by the periodic context-refresh sweep.
	RecentlyActiveUsers(ctx context.Context, since time.Time) ([]string, error)
}

// MongoModuleStore is the MongoDB-backed ModuleStore.
type MongoModuleStore struct {
	activations *mongo.Collection
	completions *mongo.Collection
}

// NewMongoModuleStore creates a module store bound to the standard collections.
func NewMongoModuleStore(mongodb *database.MongoDB) *MongoModuleStore {
	return &MongoModuleStore{
		activations: mongodb.Collection(database.CollectionModuleActivations),
		completions: mongodb.Collection(database.CollectionSubModuleCompletions),
	}
}

// GetActivation returns the activation record for (user, module), or nil when
// no record exists.
func (s *MongoModuleStore) GetActivation(ctx context.Context, userID, moduleID string) (*models.ModuleActivation, error) {
	var activation models.ModuleActivation
	err := s.activations.FindOne(ctx, bson.M{"userId": userID, "moduleId": moduleID}).Decode(&activation)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		if isNotProvisioned(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to load activation: %v", ErrStoreUnavailable, err)
	}
	return &activation, nil
}

// SaveActivation upserts the activation on its (user, module) natural key.
func (s *MongoModuleStore) SaveActivation(ctx context.Context, activation *models.ModuleActivation) error {
	filter := bson.M{"userId": activation.UserID, "moduleId": activation.ModuleID}
	update := bson.M{"$set": bson.M{
		"moduleName":     activation.ModuleName,
		"status":         activation.Status,
		"progress":       activation.Progress,
		"metadata":       activation.Metadata,
		"outputs":        activation.Outputs,
		"activatedAt":    activation.ActivatedAt,
		"completedAt":    activation.CompletedAt,
		"lastActivityAt": activation.LastActivityAt,
	}}

	_, err := s.activations.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("%w: failed to save activation %s: %v", ErrStoreUnavailable, activation.ModuleID, err)
	}
	return nil
}

// ListActivations returns all of the user's module activations. A missing
// collection degrades to an empty result set.
func (s *MongoModuleStore) ListActivations(ctx context.Context, userID string) ([]models.ModuleActivation, error) {
	cursor, err := s.activations.Find(ctx, bson.M{"userId": userID})
	if err != nil {
		if isNotProvisioned(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to list activations: %v", ErrStoreUnavailable, err)
	}
	defer cursor.Close(ctx)

	var activations []models.ModuleActivation
	if err := cursor.All(ctx, &activations); err != nil {
		return nil, fmt.Errorf("%w: failed to decode activations: %v", ErrStoreUnavailable, err)
	}
	return activations, nil
}

// SaveSubModuleCompletion upserts the completion on its (user, sub-module)
// natural key; a repeat completion overwrites data and timestamp.
func (s *MongoModuleStore) SaveSubModuleCompletion(ctx context.Context, completion *models.SubModuleCompletion) error {
	filter := bson.M{"userId": completion.UserID, "subModuleId": completion.SubModuleID}
	update := bson.M{"$set": bson.M{
		"moduleId":    completion.ModuleID,
		"data":        completion.Data,
		"completedAt": completion.CompletedAt,
	}}

	_, err := s.completions.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("%w: failed to save sub-module completion %s: %v", ErrStoreUnavailable, completion.SubModuleID, err)
	}
	return nil
}

// ListSubModuleCompletions returns the user's completions within one module.
func (s *MongoModuleStore) ListSubModuleCompletions(ctx context.Context, userID, moduleID string) ([]models.SubModuleCompletion, error) {
	cursor, err := s.completions.Find(ctx, bson.M{"userId": userID, "moduleId": moduleID})
	if err != nil {
		if isNotProvisioned(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to list sub-module completions: %v", ErrStoreUnavailable, err)
	}
	defer cursor.Close(ctx)

	var completions []models.SubModuleCompletion
	if err := cursor.All(ctx, &completions); err != nil {
		return nil, fmt.Errorf("%w: failed to decode sub-module completions: %v", ErrStoreUnavailable, err)
	}
	return completions, nil
}

// RecentlyActiveUsers returns distinct user ids with activity since the cutoff.
func (s *MongoModuleStore) RecentlyActiveUsers(ctx context.Context, since time.Time) ([]string, error) {
	values, err := s.activations.Distinct(ctx, "userId", bson.M{"lastActivityAt": bson.M{"$gte": since}})
	if err != nil {
		if isNotProvisioned(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to list recently active users: %v", ErrStoreUnavailable, err)
	}

	userIDs := make([]string, 0, len(values))
	for _, v := range values {
		if id, ok := v.(string); ok {
			userIDs = append(userIDs, id)
		}
	}
	return userIDs, nil
}
