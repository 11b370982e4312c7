package models

import "time"

// Priority steers model selection when more than one model advertises the
// requested capability.
type Priority string

const (
	PriorityCost    Priority = "cost"
	PriorityQuality Priority = "quality"
	PrioritySpeed   Priority = "speed"
)

// GenerationRequest is a single prompt submission to the generation gateway.
type GenerationRequest struct {
	Capability   string   `json:"capability"` // e.g. "business-planning"
	Priority     Priority `json:"priority,omitempty"`
	SystemPrompt string   `json:"system_prompt,omitempty"`
	UserPrompt   string   `json:"user_prompt"`
	MaxTokens    int      `json:"max_tokens,omitempty"`
	Temperature  float64  `json:"temperature,omitempty"`

	// CacheKey enables the lookaside cache for this operation. Empty means
	// no caching (free-form conversational generation).
	CacheKey string `json:"-"`

	// ExpectJSON requests the response be parsed as a structured document.
	ExpectJSON bool `json:"expect_json,omitempty"`
}

// GenerationResult is the outcome of a successful (or degraded) generation.
type GenerationResult struct {
	Content      string                 `json:"content"`
	Structured   map[string]interface{} `json:"structured,omitempty"`
	Model        string                 `json:"model"`
	FinishReason string                 `json:"finish_reason,omitempty"`
	TokensUsed   int                    `json:"tokens_used,omitempty"`
	Cached       bool                   `json:"cached"`
	Fallback     bool                   `json:"fallback"`
}

// CompletionResponse is the provider-level reply before gateway processing.
type CompletionResponse struct {
	Content      string
	FinishReason string
	TokensUsed   int
}

// ModelInfo is one entry in the generation model registry.
type ModelInfo struct {
	ID              string    `bson:"modelId" json:"model_id" yaml:"model_id"`
	Provider        string    `bson:"provider" json:"provider" yaml:"provider"`
	Capabilities    []string  `bson:"capabilities" json:"capabilities" yaml:"capabilities"`
	CostPer1KTokens float64   `bson:"costPer1kTokens" json:"cost_per_1k_tokens" yaml:"cost_per_1k_tokens"`
	ContextWindow   int       `bson:"contextWindow" json:"context_window" yaml:"context_window"`
	UpdatedAt       time.Time `bson:"updatedAt,omitempty" json:"updated_at,omitempty" yaml:"-"`
}

// HasCapability reports whether the model advertises the given capability.
func (m ModelInfo) HasCapability(capability string) bool {
	for _, c := range m.Capabilities {
		if c == capability {
			return true
		}
	}
	return false
}
