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

// ProfileService reads the user's business profile. The profile is owned by
// the onboarding flow; this backend only consumes it for context synthesis.
type ProfileService struct {
	collection *mongo.Collection
}

// NewProfileService creates a profile service.
func NewProfileService(mongodb *database.MongoDB) *ProfileService {
	return &ProfileService{
		collection: mongodb.Collection(database.CollectionProfiles),
	}
}

// Get returns the user's profile, or nil when none exists.
func (s *ProfileService) Get(ctx context.Context, userID string) (*models.CompleteProfile, error) {
	var profile models.CompleteProfile
	err := s.collection.FindOne(ctx, bson.M{"userId": userID}).Decode(&profile)
	if err != nil {
		if err == mongo.ErrNoDocuments || isNotProvisioned(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to load profile: %v", ErrStoreUnavailable, err)
	}
	return &profile, nil
}

// Upsert stores profile fields fed back by module outputs (e.g. the business
// name settled during the foundation module).
func (s *ProfileService) Upsert(ctx context.Context, profile *models.CompleteProfile) error {
	now := time.Now()
	filter := bson.M{"userId": profile.UserID}
	update := bson.M{
		"$set": bson.M{
			"fullName":       profile.FullName,
			"email":          profile.Email,
			"businessName":   profile.BusinessName,
			"businessType":   profile.BusinessType,
			"industry":       profile.Industry,
			"description":    profile.Description,
			"targetAudience": profile.TargetAudience,
			"state":          profile.State,
			"stage":          profile.Stage,
			"preferences":    profile.Preferences,
			"updatedAt":      now,
		},
		"$setOnInsert": bson.M{
			"createdAt": now,
		},
	}

	_, err := s.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("%w: failed to save profile: %v", ErrStoreUnavailable, err)
	}
	return nil
}
