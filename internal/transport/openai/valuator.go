package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/magnus-flipper/magnus/internal/domain"
	"github.com/magnus-flipper/magnus/internal/domain/valuation"
	"github.com/magnus-flipper/magnus/internal/metrics"
)

// Valuator appraises items with an OpenAI-compatible chat completion model.
type Valuator struct {
	client    *openai.Client
	model     string
	maxTokens int
	logger    *zap.Logger
}

// Config holds the chat model settings.
type Config struct {
	APIKey    string
	BaseURL   string // empty keeps the OpenAI default
	Model     string
	MaxTokens int
	Logger    *zap.Logger
}

// NewValuator creates an OpenAI-compatible valuation client.
func NewValuator(cfg *Config) *Valuator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Valuator{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		logger:    cfg.Logger,
	}
}

// MaxTokens is the completion budget requested per call.
func (v *Valuator) MaxTokens() int { return v.maxTokens }

// Appraise asks the model for a JSON estimate of the item.
func (v *Valuator) Appraise(ctx context.Context, item valuation.Item) (valuation.Estimate, error) {
	req := openai.ChatCompletionRequest{
		Model: v.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: valuation.SystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: valuation.Prompt(item)},
		},
		MaxTokens:   v.maxTokens,
		Temperature: 0.2,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	start := time.Now()
	resp, err := v.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(v.model, "error").Inc()
		return valuation.Estimate{}, parseAPIError(err)
	}

	if len(resp.Choices) == 0 {
		metrics.LLMRequestsTotal.WithLabelValues(v.model, "error").Inc()
		return valuation.Estimate{}, fmt.Errorf("empty completion response: %w", domain.ErrLLMProviderError)
	}

	est, err := decodeEstimate(resp.Choices[0].Message.Content)
	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(v.model, "error").Inc()
		v.logger.Warn("Unparseable valuation response",
			zap.String("model", v.model),
			zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
			zap.Error(err),
		)
		return valuation.Estimate{}, err
	}

	metrics.LLMRequestsTotal.WithLabelValues(v.model, "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues(v.model).Observe(duration.Seconds())
	if resp.Usage.TotalTokens > 0 {
		metrics.LLMTokensTotal.WithLabelValues(v.model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.LLMTokensTotal.WithLabelValues(v.model, "completion").Add(float64(resp.Usage.CompletionTokens))
	}

	est.TokensUsed = resp.Usage.TotalTokens
	return est, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (v *Valuator) HealthCheck(ctx context.Context) error {
	if _, err := v.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

func decodeEstimate(content string) (valuation.Estimate, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var est valuation.Estimate
	if err := json.Unmarshal([]byte(content), &est); err != nil {
		return valuation.Estimate{}, fmt.Errorf("decode estimate: %v: %w", err, domain.ErrLLMProviderError)
	}
	if est.EstimatedValue < 0 || est.Confidence < 0 || est.Confidence > 1 {
		return valuation.Estimate{}, fmt.Errorf("estimate out of range: %w", domain.ErrLLMProviderError)
	}
	return est, nil
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrLLMProviderError for correct 502 mapping.
func parseAPIError(err error) error {
	wrap := domain.ErrLLMProviderError

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("llm API error %d: %s: %w", reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("llm API error %d: %s: %w", reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("llm API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("llm request failed: %v: %w", err, wrap)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
