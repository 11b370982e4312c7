package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CompleteProfile is the user's business profile as captured by onboarding
// and enriched by module outputs.
type CompleteProfile struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID         string             `bson:"userId" json:"user_id"`
	FullName       string             `bson:"fullName,omitempty" json:"full_name,omitempty"`
	Email          string             `bson:"email,omitempty" json:"email,omitempty"`
	BusinessName   string             `bson:"businessName,omitempty" json:"business_name,omitempty"`
	BusinessType   string             `bson:"businessType,omitempty" json:"business_type,omitempty"`
	Industry       string             `bson:"industry,omitempty" json:"industry,omitempty"`
	Description    string             `bson:"description,omitempty" json:"description,omitempty"`
	TargetAudience string             `bson:"targetAudience,omitempty" json:"target_audience,omitempty"`
	State          string             `bson:"state,omitempty" json:"state,omitempty"`
	Stage          string             `bson:"stage,omitempty" json:"stage,omitempty"`
	Preferences    ProfilePreferences `bson:"preferences,omitempty" json:"preferences,omitempty"`
	CreatedAt      time.Time          `bson:"createdAt,omitempty" json:"created_at,omitempty"`
	UpdatedAt      time.Time          `bson:"updatedAt,omitempty" json:"updated_at,omitempty"`
}

// ProfilePreferences steers how generated guidance is phrased.
type ProfilePreferences struct {
	CommunicationStyle string `bson:"communicationStyle,omitempty" json:"communication_style,omitempty"`
	DetailLevel        string `bson:"detailLevel,omitempty" json:"detail_level,omitempty"`
}
