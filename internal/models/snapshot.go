package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ContextSnapshot is the structured form of a user's synthesized business
// context: identity, journey progress, recorded decisions, produced outputs,
// preferences, and conversation aggregates.
type ContextSnapshot struct {
	FullName       string `bson:"fullName,omitempty" json:"full_name,omitempty"`
	BusinessName   string `bson:"businessName,omitempty" json:"business_name,omitempty"`
	BusinessType   string `bson:"businessType,omitempty" json:"business_type,omitempty"`
	Industry       string `bson:"industry,omitempty" json:"industry,omitempty"`
	Description    string `bson:"description,omitempty" json:"description,omitempty"`
	TargetAudience string `bson:"targetAudience,omitempty" json:"target_audience,omitempty"`
	State          string `bson:"state,omitempty" json:"state,omitempty"`
	Stage          string `bson:"stage,omitempty" json:"stage,omitempty"`

	Progress      ProgressSummary     `bson:"progress" json:"progress"`
	Decisions     []Decision          `bson:"decisions,omitempty" json:"decisions,omitempty"`
	Outputs       OutputsSummary      `bson:"outputs" json:"outputs"`
	Preferences   ProfilePreferences  `bson:"preferences,omitempty" json:"preferences,omitempty"`
	Conversations ConversationSummary `bson:"conversations" json:"conversations"`
}

// ProgressSummary condenses the module lifecycle state.
type ProgressSummary struct {
	ModulesCompleted []string   `bson:"modulesCompleted,omitempty" json:"modules_completed,omitempty"`
	ModulesActive    []string   `bson:"modulesActive,omitempty" json:"modules_active,omitempty"`
	TotalCompleted   int        `bson:"totalCompleted" json:"total_completed"`
	LastActivityAt   *time.Time `bson:"lastActivityAt,omitempty" json:"last_activity_at,omitempty"`
}

// Decision is one business decision extracted from a completed module.
type Decision struct {
	Type   string    `bson:"type" json:"type"`
	Choice string    `bson:"choice" json:"choice"`
	Reason string    `bson:"reason,omitempty" json:"reason,omitempty"`
	Date   time.Time `bson:"date" json:"date"`
}

// OutputsSummary condenses what the modules have produced so far.
type OutputsSummary struct {
	Documents     []string        `bson:"documents,omitempty" json:"documents,omitempty"`
	Branding      BrandingSummary `bson:"branding" json:"branding"`
	WebsiteStatus string          `bson:"websiteStatus,omitempty" json:"website_status,omitempty"`
	Domain        string          `bson:"domain,omitempty" json:"domain,omitempty"`
}

// BrandingSummary is the brand identity settled during the branding module.
type BrandingSummary struct {
	PrimaryColor   string `bson:"primaryColor,omitempty" json:"primary_color,omitempty"`
	SecondaryColor string `bson:"secondaryColor,omitempty" json:"secondary_color,omitempty"`
	FontFamily     string `bson:"fontFamily,omitempty" json:"font_family,omitempty"`
	LogoURL        string `bson:"logoUrl,omitempty" json:"logo_url,omitempty"`
}

// ConversationSummary is the conversation aggregate view in the snapshot.
type ConversationSummary struct {
	MessageCount       int        `bson:"messageCount" json:"message_count"`
	LastConversationAt *time.Time `bson:"lastConversationAt,omitempty" json:"last_conversation_at,omitempty"`
	Topics             []string   `bson:"topics,omitempty" json:"topics,omitempty"`
}

// BusinessContext is the persisted snapshot document, one per user. The hash
// is computed over the rendered text and gates writes: an unchanged hash
// means no write.
type BusinessContext struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     string             `bson:"userId" json:"user_id"`
	Rendered   string             `bson:"rendered" json:"rendered"`
	Structured ContextSnapshot    `bson:"structured" json:"structured"`
	Hash       string             `bson:"hash" json:"hash"`
	Version    int                `bson:"version" json:"version"`
	CreatedAt  time.Time          `bson:"createdAt,omitempty" json:"created_at,omitempty"`
	UpdatedAt  time.Time          `bson:"updatedAt,omitempty" json:"updated_at,omitempty"`
}
