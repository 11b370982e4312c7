package services

import (
	"sort"

	"venturekit/internal/models"
)

// DecisionExtractor pulls recorded decisions out of one module's activation
// record. Extractors are registered per module id so new decision-bearing
// modules plug in without touching the synthesis engine.
type DecisionExtractor func(activation models.ModuleActivation) []models.Decision

// DecisionExtractorRegistry maps module ids to their extractors.
type DecisionExtractorRegistry struct {
	byModule map[string][]DecisionExtractor
}

// NewDecisionExtractorRegistry returns the registry seeded with the standard
// extractors for the built-in catalog.
func NewDecisionExtractorRegistry() *DecisionExtractorRegistry {
	r := &DecisionExtractorRegistry{byModule: make(map[string][]DecisionExtractor)}
	r.Register("MOD_201", extractLegalDecisions)
	r.Register("MOD_301", extractBrandDecisions)
	return r
}

// Register adds an extractor for a module id.
func (r *DecisionExtractorRegistry) Register(moduleID string, extractor DecisionExtractor) {
	r.byModule[moduleID] = append(r.byModule[moduleID], extractor)
}

// Extract scans completed modules for recorded decisions, ordered by the
// module completion date.
func (r *DecisionExtractorRegistry) Extract(activations []models.ModuleActivation) []models.Decision {
	var decisions []models.Decision

	for _, a := range activations {
		if a.Status != models.ModuleStatusCompleted || a.CompletedAt == nil {
			continue
		}
		for _, extract := range r.byModule[a.ModuleID] {
			decisions = append(decisions, extract(a)...)
		}
	}

	sort.SliceStable(decisions, func(i, j int) bool {
		return decisions[i].Date.Before(decisions[j].Date)
	})
	return decisions
}

// extractLegalDecisions reads the legal-setup module's metadata. The field
// names match what the legal module has always written; changing them breaks
// older users' snapshots.
func extractLegalDecisions(a models.ModuleActivation) []models.Decision {
	var decisions []models.Decision

	if structure := stringField(a.Metadata, "legal_structure"); structure != "" {
		decisions = append(decisions, models.Decision{
			Type:   "legal_structure",
			Choice: structure,
			Reason: stringField(a.Metadata, "legal_structure_reason"),
			Date:   *a.CompletedAt,
		})
	}

	if state := stringField(a.Metadata, "incorporation_state"); state != "" {
		decisions = append(decisions, models.Decision{
			Type:   "incorporation_state",
			Choice: state,
			Date:   *a.CompletedAt,
		})
	}

	return decisions
}

// extractBrandDecisions records the brand direction settled during branding.
func extractBrandDecisions(a models.ModuleActivation) []models.Decision {
	var decisions []models.Decision

	if voice := stringField(a.Metadata, "brand_voice"); voice != "" {
		decisions = append(decisions, models.Decision{
			Type:   "brand_voice",
			Choice: voice,
			Date:   *a.CompletedAt,
		})
	}

	return decisions
}

func stringField(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
