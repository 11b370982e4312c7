package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ModuleStatus is the lifecycle state of one module for one user.
type ModuleStatus string

const (
	ModuleStatusInactive  ModuleStatus = "inactive"
	ModuleStatusActive    ModuleStatus = "active"
	ModuleStatusPaused    ModuleStatus = "paused"
	ModuleStatusCompleted ModuleStatus = "completed"
)

// ModuleActivation is the per-user record of one module's lifecycle. Progress
// is always within [0,100]; progress 100 and status completed imply each
// other, and CompletedAt is set exactly when that transition first happens.
type ModuleActivation struct {
	ID             primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	UserID         string                 `bson:"userId" json:"user_id"`
	ModuleID       string                 `bson:"moduleId" json:"module_id"`
	ModuleName     string                 `bson:"moduleName" json:"module_name"`
	Status         ModuleStatus           `bson:"status" json:"status"`
	Progress       int                    `bson:"progress" json:"progress"`
	Metadata       map[string]interface{} `bson:"metadata,omitempty" json:"metadata,omitempty"`
	Outputs        map[string]interface{} `bson:"outputs,omitempty" json:"outputs,omitempty"`
	ActivatedAt    time.Time              `bson:"activatedAt" json:"activated_at"`
	CompletedAt    *time.Time             `bson:"completedAt,omitempty" json:"completed_at,omitempty"`
	LastActivityAt time.Time              `bson:"lastActivityAt" json:"last_activity_at"`
}

// SubModuleCompletion records one finished sub-step, keyed by
// (user, sub-module). Repeat completions overwrite data and timestamp.
type SubModuleCompletion struct {
	ID          primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	UserID      string                 `bson:"userId" json:"user_id"`
	ModuleID    string                 `bson:"moduleId" json:"module_id"`
	SubModuleID string                 `bson:"subModuleId" json:"sub_module_id"`
	Data        map[string]interface{} `bson:"data,omitempty" json:"data,omitempty"`
	CompletedAt time.Time              `bson:"completedAt" json:"completed_at"`
}

// SubModuleDefinition is one sub-step of a catalog module. Only required
// sub-modules count toward derived progress.
type SubModuleDefinition struct {
	ID       string `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	Required bool   `yaml:"required" json:"required"`
}

// ModuleDefinition is a catalog entry: what the module is, what it takes,
// and which earlier modules gate it.
type ModuleDefinition struct {
	ID            string                `yaml:"id" json:"id"`
	Name          string                `yaml:"name" json:"name"`
	Category      string                `yaml:"category" json:"category"`
	EstimatedTime string                `yaml:"estimated_time" json:"estimated_time"`
	Dependencies  []string              `yaml:"dependencies" json:"dependencies,omitempty"`
	SubModules    []SubModuleDefinition `yaml:"submodules" json:"submodules,omitempty"`
}

// RequiredSubModules returns the ids of the required sub-modules, in catalog
// order.
func (d ModuleDefinition) RequiredSubModules() []string {
	var required []string
	for _, sub := range d.SubModules {
		if sub.Required {
			required = append(required, sub.ID)
		}
	}
	return required
}
