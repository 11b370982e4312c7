package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"venturekit/internal/models"
)

// GenerationService is the single gateway through which the rest of the
// system obtains generated text. It selects a model, consults the response
// cache, rate-limits outbound calls, and retries transient provider failures.
type GenerationService struct {
	registry *ModelRegistry
	client   CompletionClient
	cache    *GenerationCache
	policy   RetryPolicy
	limiter  *rate.Limiter
	metrics  *Metrics
}

// NewGenerationService creates the gateway. rps bounds outbound provider
// calls per second; zero disables the limiter.
func NewGenerationService(registry *ModelRegistry, client CompletionClient, cache *GenerationCache, rps float64) *GenerationService {
	var limiter *rate.Limiter
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
	return &GenerationService{
		registry: registry,
		client:   client,
		cache:    cache,
		policy:   DefaultRetryPolicy(),
		limiter:  limiter,
	}
}

// Registry exposes the model registry for listing endpoints.
func (s *GenerationService) Registry() *ModelRegistry {
	return s.registry
}

// SetMetrics attaches gateway instrumentation.
func (s *GenerationService) SetMetrics(m *Metrics) {
	s.metrics = m
}

// SetRetryPolicy overrides the default retry behavior.
func (s *GenerationService) SetRetryPolicy(p RetryPolicy) {
	s.policy = p
}

// Generate runs one generation request end to end. Cached responses are
// returned without touching the provider. An empty completion counts as a
// failed attempt against the retry budget. When ExpectJSON is set the
// content must parse as a JSON object; a parse failure is terminal and is
// never cached.
func (s *GenerationService) Generate(ctx context.Context, req models.GenerationRequest) (*models.GenerationResult, error) {
	model := s.registry.Select(req.Capability, req.Priority)

	if req.CacheKey != "" {
		if cached, ok := s.cache.Get(req.CacheKey); ok {
			if s.metrics != nil {
				s.metrics.GenerationCacheHits.Inc()
			}
			log.Printf("💾 [GENERATION] Cache hit for key %s", shortHash(req.CacheKey))
			result := *cached
			result.Cached = true
			return &result, nil
		}
	}

	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}
	}

	start := time.Now()
	var completion *models.CompletionResponse
	err := s.policy.Do(ctx, func(ctx context.Context) error {
		resp, callErr := s.client.Complete(ctx, model, req)
		if callErr != nil {
			log.Printf("⚠️ [GENERATION] Provider call failed (model %s): %v", model.ID, callErr)
			return callErr
		}
		if strings.TrimSpace(resp.Content) == "" {
			log.Printf("⚠️ [GENERATION] Empty completion from model %s", model.ID)
			return fmt.Errorf("empty completion from provider")
		}
		completion = resp
		return nil
	})
	if s.metrics != nil {
		s.metrics.GenerationDuration.Observe(time.Since(start).Seconds())
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.GenerationFailures.Inc()
		}
		return nil, err
	}

	result := &models.GenerationResult{
		Content:      completion.Content,
		Model:        model.ID,
		FinishReason: completion.FinishReason,
		TokensUsed:   completion.TokensUsed,
	}

	if req.ExpectJSON {
		structured, parseErr := parseJSONContent(completion.Content)
		if parseErr != nil {
			if s.metrics != nil {
				s.metrics.GenerationFailures.Inc()
			}
			return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, parseErr)
		}
		result.Structured = structured
	}

	if s.metrics != nil {
		s.metrics.GenerationRequests.Inc()
	}
	if req.CacheKey != "" {
		s.cache.Set(req.CacheKey, result)
	}
	return result, nil
}

// FallbackResponse returns deterministic offline guidance for a capability.
// Callers use it to degrade gracefully after the retry budget is exhausted.
func (s *GenerationService) FallbackResponse(capability string) *models.GenerationResult {
	content, ok := fallbackResponses[capability]
	if !ok {
		content = "The generation service is temporarily unavailable. Your progress is saved; please try again in a few minutes."
	}
	return &models.GenerationResult{
		Content:      content,
		Model:        "offline",
		FinishReason: "fallback",
		Fallback:     true,
	}
}

var fallbackResponses = map[string]string{
	"business-planning": "The planning assistant is temporarily offline. In the meantime, review your business foundation module: confirm your target market, value proposition, and revenue model before moving on.",
	"legal-drafting":    "The drafting assistant is temporarily offline. Your legal setup progress is saved. Consider reviewing your chosen legal structure and incorporation state while the service recovers.",
	"branding":          "The branding assistant is temporarily offline. Your brand choices are saved. Revisit your brand voice and color selections once the service is back.",
	"marketing-copy":    "The copywriting assistant is temporarily offline. Your campaign drafts are saved and will be available when the service recovers.",
	"conversation":      "The assistant is temporarily unavailable. Your conversation history is saved; please try again shortly.",
}

func parseJSONContent(content string) (map[string]interface{}, error) {
	trimmed := strings.TrimSpace(content)
	// Providers sometimes fence JSON in markdown blocks.
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
		trimmed = strings.TrimSpace(trimmed)
	}
	var structured map[string]interface{}
	if err := json.Unmarshal([]byte(trimmed), &structured); err != nil {
		return nil, err
	}
	return structured, nil
}

// IsRetryExhausted reports whether err is the gateway's retry-budget
// exhaustion failure. Handlers use it to decide on the offline fallback.
func IsRetryExhausted(err error) bool {
	return errors.Is(err, ErrRetryExhausted)
}
