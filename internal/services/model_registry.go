package services

import (
	"context"
	"log"
	"sync"

	"venturekit/internal/database"
	"venturekit/internal/models"

	"go.mongodb.org/mongo-driver/bson"
)

// ModelRegistry knows which generation models exist, what capabilities they
// advertise, and what they cost. Seeded with built-in entries; deployments
// override the lineup through the generation_models collection.
type ModelRegistry struct {
	mu           sync.RWMutex
	models       []models.ModelInfo
	defaultModel string
}

// NewModelRegistry returns the registry seeded with the built-in lineup.
func NewModelRegistry(defaultModel string) *ModelRegistry {
	if defaultModel == "" {
		defaultModel = "gpt-4o-mini"
	}
	return &ModelRegistry{
		models:       defaultModels(),
		defaultModel: defaultModel,
	}
}

// LoadFromStore replaces the seeded lineup with rows from the
// generation_models collection when any exist. A missing collection keeps
// the seed; registry overrides are an optional deployment feature.
func (r *ModelRegistry) LoadFromStore(ctx context.Context, mongodb *database.MongoDB) error {
	cursor, err := mongodb.Collection(database.CollectionGenerationModels).Find(ctx, bson.M{})
	if err != nil {
		if isNotProvisioned(err) {
			return nil
		}
		return err
	}
	defer cursor.Close(ctx)

	var rows []models.ModelInfo
	if err := cursor.All(ctx, &rows); err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}

	r.mu.Lock()
	r.models = rows
	r.mu.Unlock()

	log.Printf("✅ [MODELS] Loaded %d model registry overrides from store", len(rows))
	return nil
}

// Select picks the model for a capability and optimization priority:
// cost picks the cheapest per token, speed the smallest context window,
// quality the largest. No model advertising the capability falls back to
// the fixed default.
func (r *ModelRegistry) Select(capability string, priority models.Priority) models.ModelInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var candidates []models.ModelInfo
	for _, m := range r.models {
		if m.HasCapability(capability) {
			candidates = append(candidates, m)
		}
	}

	if len(candidates) == 0 {
		log.Printf("⚠️  [MODELS] No registry entry advertises %q, falling back to %s", capability, r.defaultModel)
		return models.ModelInfo{ID: r.defaultModel}
	}

	best := candidates[0]
	for _, m := range candidates[1:] {
		switch priority {
		case models.PrioritySpeed:
			if m.ContextWindow < best.ContextWindow {
				best = m
			}
		case models.PriorityQuality:
			if m.ContextWindow > best.ContextWindow {
				best = m
			}
		default: // cost
			if m.CostPer1KTokens < best.CostPer1KTokens {
				best = m
			}
		}
	}
	return best
}

// All returns a copy of the current lineup.
func (r *ModelRegistry) All() []models.ModelInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.ModelInfo, len(r.models))
	copy(out, r.models)
	return out
}

func defaultModels() []models.ModelInfo {
	return []models.ModelInfo{
		{
			ID:              "gpt-4o",
			Provider:        "openai",
			Capabilities:    []string{"business-planning", "legal-drafting", "conversation"},
			CostPer1KTokens: 0.0050,
			ContextWindow:   128000,
		},
		{
			ID:              "gpt-4o-mini",
			Provider:        "openai",
			Capabilities:    []string{"business-planning", "branding", "marketing-copy", "conversation"},
			CostPer1KTokens: 0.0006,
			ContextWindow:   128000,
		},
		{
			ID:              "gpt-4.1",
			Provider:        "openai",
			Capabilities:    []string{"business-planning", "legal-drafting"},
			CostPer1KTokens: 0.0080,
			ContextWindow:   1000000,
		},
		{
			ID:              "gpt-3.5-turbo",
			Provider:        "openai",
			Capabilities:    []string{"branding", "marketing-copy", "conversation"},
			CostPer1KTokens: 0.0005,
			ContextWindow:   16385,
		},
	}
}
