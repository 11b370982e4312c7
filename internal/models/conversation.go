package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Conversation tracks per-thread message counters for a user. The message
// bodies themselves live in the chat service; this backend only reads the
// aggregates it needs for context synthesis.
type Conversation struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID         string             `bson:"userId" json:"user_id"`
	ConversationID string             `bson:"conversationId" json:"conversation_id"`
	Title          string             `bson:"title,omitempty" json:"title,omitempty"`
	MessageCount   int                `bson:"messageCount" json:"message_count"`
	LastMessageAt  time.Time          `bson:"lastMessageAt" json:"last_message_at"`
	CreatedAt      time.Time          `bson:"createdAt" json:"created_at"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updated_at"`
}

// TopicMemory is a scored topic the assistant has learned about the user.
type TopicMemory struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    string             `bson:"userId" json:"user_id"`
	Topic     string             `bson:"topic" json:"topic"`
	Summary   string             `bson:"summary,omitempty" json:"summary,omitempty"`
	Score     float64            `bson:"score" json:"score"`
	CreatedAt time.Time          `bson:"createdAt" json:"created_at"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updated_at"`
}

// ConversationStats is the aggregate view consumed by context synthesis.
// Absence of data yields zero values, not an error.
type ConversationStats struct {
	MessageCount       int        `json:"message_count"`
	LastConversationAt *time.Time `json:"last_conversation_at,omitempty"`
}
