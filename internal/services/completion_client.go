package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"venturekit/internal/models"
)

// CompletionClient submits one prompt to the generative-text provider and
// returns the raw completion. Implementations classify transport failures
// into the gateway's error taxonomy.
type CompletionClient interface {
	Complete(ctx context.Context, model models.ModelInfo, req models.GenerationRequest) (*models.CompletionResponse, error)
}

// HTTPCompletionClient talks to an OpenAI-compatible /chat/completions
// endpoint.
type HTTPCompletionClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewHTTPCompletionClient creates a provider client.
func NewHTTPCompletionClient(baseURL, apiKey string) *HTTPCompletionClient {
	return &HTTPCompletionClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// Complete performs the provider call. 401-class statuses classify as
// authentication failure, 400/422-class as malformed request, network errors
// as connectivity failure; 5xx stays a generic retryable error.
func (c *HTTPCompletionClient) Complete(ctx context.Context, model models.ModelInfo, genReq models.GenerationRequest) (*models.CompletionResponse, error) {
	messages := []map[string]interface{}{}
	if genReq.SystemPrompt != "" {
		messages = append(messages, map[string]interface{}{"role": "system", "content": genReq.SystemPrompt})
	}
	messages = append(messages, map[string]interface{}{"role": "user", "content": genReq.UserPrompt})

	reqBody := map[string]interface{}{
		"model":    model.ID,
		"messages": messages,
		"stream":   false,
	}
	if genReq.MaxTokens > 0 {
		reqBody["max_tokens"] = genReq.MaxTokens
	}
	if genReq.Temperature > 0 {
		reqBody["temperature"] = genReq.Temperature
	}

	reqJSON, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewBuffer(reqJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectivity, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return nil, fmt.Errorf("%w: status %d: %s", ErrAuthentication, resp.StatusCode, string(body))
		case resp.StatusCode == http.StatusUnprocessableEntity || resp.StatusCode == http.StatusBadRequest:
			return nil, fmt.Errorf("%w: status %d: %s", ErrMalformedResponse, resp.StatusCode, string(body))
		default:
			return nil, fmt.Errorf("provider error (status %d): %s", resp.StatusCode, string(body))
		}
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
			FinishReason string `json:"finish_reason"`
		} `json:"choices"`
		Usage struct {
			TotalTokens int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrMalformedResponse, err)
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", ErrMalformedResponse)
	}

	return &models.CompletionResponse{
		Content:      result.Choices[0].Message.Content,
		FinishReason: result.Choices[0].FinishReason,
		TokensUsed:   result.Usage.TotalTokens,
	}, nil
}
