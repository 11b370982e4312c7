package services

import (
	"testing"

	"venturekit/internal/models"
)

func TestSelectByPriority(t *testing.T) {
	registry := NewModelRegistry("")

	tests := []struct {
		name       string
		capability string
		priority   models.Priority
		wantModel  string
	}{
		{"cost picks cheapest planner", "business-planning", models.PriorityCost, "gpt-4o-mini"},
		{"quality picks largest window", "business-planning", models.PriorityQuality, "gpt-4.1"},
		{"speed picks smallest window for copy", "marketing-copy", models.PrioritySpeed, "gpt-3.5-turbo"},
		{"cost picks cheapest legal drafter", "legal-drafting", models.PriorityCost, "gpt-4o"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := registry.Select(tt.capability, tt.priority)
			if got.ID != tt.wantModel {
				t.Errorf("Select(%s, %s) = %s, want %s", tt.capability, tt.priority, got.ID, tt.wantModel)
			}
		})
	}
}

func TestSelectUnknownCapabilityFallsBack(t *testing.T) {
	registry := NewModelRegistry("custom-default")

	got := registry.Select("quantum-accounting", models.PriorityCost)
	if got.ID != "custom-default" {
		t.Errorf("expected fallback to custom-default, got %s", got.ID)
	}
}

func TestDefaultModelWhenUnset(t *testing.T) {
	registry := NewModelRegistry("")

	got := registry.Select("nonexistent", models.PriorityCost)
	if got.ID != "gpt-4o-mini" {
		t.Errorf("expected built-in default gpt-4o-mini, got %s", got.ID)
	}
}

func TestHasCapability(t *testing.T) {
	m := models.ModelInfo{Capabilities: []string{"branding", "conversation"}}
	if !m.HasCapability("branding") {
		t.Error("expected branding capability")
	}
	if m.HasCapability("legal-drafting") {
		t.Error("did not expect legal-drafting capability")
	}
}
