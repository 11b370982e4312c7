package services

import (
	"context"
	"fmt"
	"log"
	"time"

	"venturekit/internal/database"
	"venturekit/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConversationService maintains the conversation counters and topic memories
// that context synthesis aggregates. Message bodies live elsewhere; only the
// numbers and topics this backend needs are kept here.
type ConversationService struct {
	conversations *mongo.Collection
	topics        *mongo.Collection
}

// NewConversationService creates a conversation aggregate service.
func NewConversationService(mongodb *database.MongoDB) *ConversationService {
	return &ConversationService{
		conversations: mongodb.Collection(database.CollectionConversations),
		topics:        mongodb.Collection(database.CollectionTopicMemories),
	}
}

// Stats returns the user's total message count and most recent conversation
// timestamp. No conversations yields zero values, never an error.
func (s *ConversationService) Stats(ctx context.Context, userID string) (models.ConversationStats, error) {
	var stats models.ConversationStats

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"userId": userID}}},
		{{Key: "$group", Value: bson.M{
			"_id":           nil,
			"messageCount":  bson.M{"$sum": "$messageCount"},
			"lastMessageAt": bson.M{"$max": "$lastMessageAt"},
		}}},
	}

	cursor, err := s.conversations.Aggregate(ctx, pipeline)
	if err != nil {
		if isNotProvisioned(err) {
			return stats, nil
		}
		return stats, fmt.Errorf("%w: failed to aggregate conversations: %v", ErrStoreUnavailable, err)
	}
	defer cursor.Close(ctx)

	var row struct {
		MessageCount  int       `bson:"messageCount"`
		LastMessageAt time.Time `bson:"lastMessageAt"`
	}
	if cursor.Next(ctx) {
		if err := cursor.Decode(&row); err != nil {
			return stats, fmt.Errorf("%w: failed to decode conversation stats: %v", ErrStoreUnavailable, err)
		}
		stats.MessageCount = row.MessageCount
		if !row.LastMessageAt.IsZero() {
			last := row.LastMessageAt
			stats.LastConversationAt = &last
		}
	}

	return stats, nil
}

// RecordMessage bumps the counters for one conversation thread. Called by the
// chat surface after each exchange.
func (s *ConversationService) RecordMessage(ctx context.Context, userID, conversationID, title string) error {
	now := time.Now()
	filter := bson.M{"userId": userID, "conversationId": conversationID}
	update := bson.M{
		"$inc": bson.M{"messageCount": 1},
		"$set": bson.M{
			"lastMessageAt": now,
			"updatedAt":     now,
		},
		"$setOnInsert": bson.M{
			"title":     title,
			"createdAt": now,
		},
	}

	_, err := s.conversations.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("%w: failed to record message: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// TopMemories returns the user's highest-scored topic memories.
func (s *ConversationService) TopMemories(ctx context.Context, userID string, limit int) ([]models.TopicMemory, error) {
	if limit <= 0 {
		limit = 5
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "score", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.topics.Find(ctx, bson.M{"userId": userID}, findOptions)
	if err != nil {
		if isNotProvisioned(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to find topic memories: %v", ErrStoreUnavailable, err)
	}
	defer cursor.Close(ctx)

	var memories []models.TopicMemory
	if err := cursor.All(ctx, &memories); err != nil {
		return nil, fmt.Errorf("%w: failed to decode topic memories: %v", ErrStoreUnavailable, err)
	}
	return memories, nil
}

// SaveTopicMemory upserts a topic memory by (user, topic), keeping the
// highest score seen so far.
func (s *ConversationService) SaveTopicMemory(ctx context.Context, userID, topic, summary string, score float64) error {
	now := time.Now()
	filter := bson.M{"userId": userID, "topic": topic}
	update := bson.M{
		"$set": bson.M{
			"summary":   summary,
			"updatedAt": now,
		},
		"$max": bson.M{"score": score},
		"$setOnInsert": bson.M{
			"createdAt": now,
		},
	}

	_, err := s.topics.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("%w: failed to save topic memory: %v", ErrStoreUnavailable, err)
	}

	log.Printf("🧠 [CONVERSATIONS] Saved topic memory %q for user %s (score %.2f)", topic, userID, score)
	return nil
}
