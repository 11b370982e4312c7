package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"venturekit/internal/models"
)

// scriptedClient returns queued responses in order, then repeats the last.
type scriptedClient struct {
	responses []scriptedResponse
	calls     int
}

type scriptedResponse struct {
	content string
	err     error
}

func (c *scriptedClient) Complete(ctx context.Context, model models.ModelInfo, req models.GenerationRequest) (*models.CompletionResponse, error) {
	idx := c.calls
	if idx >= len(c.responses) {
		idx = len(c.responses) - 1
	}
	c.calls++
	r := c.responses[idx]
	if r.err != nil {
		return nil, r.err
	}
	return &models.CompletionResponse{Content: r.content, FinishReason: "stop", TokensUsed: 42}, nil
}

func newTestGenerationService(client CompletionClient) *GenerationService {
	svc := NewGenerationService(NewModelRegistry(""), client, NewGenerationCache(), 0)
	policy := DefaultRetryPolicy()
	policy.Sleep = func(ctx context.Context, d time.Duration) error { return nil }
	svc.SetRetryPolicy(policy)
	return svc
}

func TestGenerateSuccess(t *testing.T) {
	client := &scriptedClient{responses: []scriptedResponse{{content: "Your launch plan: start small."}}}
	svc := newTestGenerationService(client)

	result, err := svc.Generate(context.Background(), models.GenerationRequest{
		Capability: "business-planning",
		UserPrompt: "Plan my launch",
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.Content != "Your launch plan: start small." {
		t.Errorf("unexpected content: %q", result.Content)
	}
	if result.Cached || result.Fallback {
		t.Errorf("fresh result flagged cached=%v fallback=%v", result.Cached, result.Fallback)
	}
	if client.calls != 1 {
		t.Errorf("expected 1 provider call, got %d", client.calls)
	}
}

func TestGenerateEmptyResponseExhaustsBudget(t *testing.T) {
	client := &scriptedClient{responses: []scriptedResponse{{content: "   "}}}
	svc := newTestGenerationService(client)

	_, err := svc.Generate(context.Background(), models.GenerationRequest{
		Capability: "business-planning",
		UserPrompt: "Plan my launch",
	})
	if !errors.Is(err, ErrRetryExhausted) {
		t.Fatalf("expected ErrRetryExhausted, got %v", err)
	}
	if client.calls != 3 {
		t.Errorf("expected full 3-attempt budget, got %d calls", client.calls)
	}
}

func TestGenerateRecoversAfterOneFailure(t *testing.T) {
	client := &scriptedClient{responses: []scriptedResponse{
		{err: fmt.Errorf("provider error (status 500)")},
		{content: "Recovered answer"},
	}}
	svc := newTestGenerationService(client)

	result, err := svc.Generate(context.Background(), models.GenerationRequest{
		Capability: "business-planning",
		UserPrompt: "Plan my launch",
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.Content != "Recovered answer" {
		t.Errorf("unexpected content: %q", result.Content)
	}
	if client.calls != 2 {
		t.Errorf("expected 2 calls, got %d", client.calls)
	}
}

func TestGenerateAbortsConnectivityAfterTwo(t *testing.T) {
	client := &scriptedClient{responses: []scriptedResponse{
		{err: fmt.Errorf("%w: dial tcp refused", ErrConnectivity)},
	}}
	svc := newTestGenerationService(client)

	_, err := svc.Generate(context.Background(), models.GenerationRequest{
		Capability: "business-planning",
		UserPrompt: "Plan my launch",
	})
	if !errors.Is(err, ErrRetryExhausted) || !errors.Is(err, ErrConnectivity) {
		t.Fatalf("expected exhaustion wrapping connectivity, got %v", err)
	}
	if client.calls != 2 {
		t.Errorf("expected connectivity abort after 2 attempts, got %d", client.calls)
	}
}

func TestGenerateAuthenticationFailsFast(t *testing.T) {
	client := &scriptedClient{responses: []scriptedResponse{
		{err: fmt.Errorf("%w: status 401", ErrAuthentication)},
	}}
	svc := newTestGenerationService(client)

	_, err := svc.Generate(context.Background(), models.GenerationRequest{
		Capability: "business-planning",
		UserPrompt: "Plan my launch",
	})
	if !errors.Is(err, ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}
	if client.calls != 1 {
		t.Errorf("expected single call on auth failure, got %d", client.calls)
	}
}

func TestGenerateCacheHitSkipsProvider(t *testing.T) {
	client := &scriptedClient{responses: []scriptedResponse{{content: "Cached plan"}}}
	svc := newTestGenerationService(client)

	req := models.GenerationRequest{
		Capability: "business-planning",
		UserPrompt: "Plan my launch",
		CacheKey:   CacheKey("plan", "user-1", "Plan my launch"),
	}

	first, err := svc.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if first.Cached {
		t.Error("first result must not be flagged cached")
	}

	second, err := svc.Generate(context.Background(), req)
	if err != nil {
		t.Fatalf("second Generate failed: %v", err)
	}
	if !second.Cached {
		t.Error("expected cached flag on second result")
	}
	if second.Content != "Cached plan" {
		t.Errorf("unexpected cached content: %q", second.Content)
	}
	if client.calls != 1 {
		t.Errorf("expected provider untouched on cache hit, got %d calls", client.calls)
	}
}

func TestGenerateStructuredOutput(t *testing.T) {
	client := &scriptedClient{responses: []scriptedResponse{
		{content: "```json\n{\"name\": \"Driftwood Coffee\", \"tagline\": \"Slow roasted\"}\n```"},
	}}
	svc := newTestGenerationService(client)

	result, err := svc.Generate(context.Background(), models.GenerationRequest{
		Capability: "branding",
		UserPrompt: "Name my brand",
		ExpectJSON: true,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if result.Structured["name"] != "Driftwood Coffee" {
		t.Errorf("unexpected structured output: %v", result.Structured)
	}
}

func TestGenerateMalformedStructuredOutputNotCached(t *testing.T) {
	client := &scriptedClient{responses: []scriptedResponse{{content: "not json at all"}}}
	svc := newTestGenerationService(client)

	req := models.GenerationRequest{
		Capability: "branding",
		UserPrompt: "Name my brand",
		ExpectJSON: true,
		CacheKey:   CacheKey("brand", "user-1", "Name my brand"),
	}

	_, err := svc.Generate(context.Background(), req)
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}

	// The broken payload must not have been cached.
	if _, found := svc.cache.Get(req.CacheKey); found {
		t.Error("malformed result was cached")
	}
}

func TestFallbackResponse(t *testing.T) {
	svc := newTestGenerationService(&scriptedClient{responses: []scriptedResponse{{content: "x"}}})

	result := svc.FallbackResponse("legal-drafting")
	if !result.Fallback {
		t.Error("expected fallback flag")
	}
	if result.Content == "" {
		t.Error("expected non-empty fallback content")
	}

	unknown := svc.FallbackResponse("no-such-capability")
	if !unknown.Fallback || unknown.Content == "" {
		t.Error("expected generic fallback for unknown capability")
	}
	if !strings.Contains(unknown.Content, "temporarily unavailable") {
		t.Errorf("unexpected generic fallback: %q", unknown.Content)
	}
}
