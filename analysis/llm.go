package analysis

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// LLMConfig configures an OpenAI-compatible chat completion backend such as
// Groq, OpenAI or a local Ollama.
type LLMConfig struct {
	BaseURL           string
	APIKey            string
	Model             string
	RequestsPerMinute int

	// MaxAttempts bounds retries of 429 and 5xx answers. Defaults to 3.
	MaxAttempts int

	// RetryDelay is the first backoff step; later steps grow linearly.
	RetryDelay time.Duration
}

// LLMAnalyzer implements Analyzer on top of a chat completion API.
type LLMAnalyzer struct {
	client     *openai.Client
	model      string
	limiter    *rate.Limiter
	attempts   int
	retryDelay time.Duration
	log        *zap.Logger
}

// NewLLMAnalyzer builds the analyzer.
func NewLLMAnalyzer(cfg LLMConfig, log *zap.Logger) *LLMAnalyzer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	limit := rate.Inf
	if cfg.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(cfg.RequestsPerMinute))
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	delay := cfg.RetryDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}

	log.Info("LLM analyzer initialized", zap.String("model", cfg.Model), zap.String("base_url", clientCfg.BaseURL))

	return &LLMAnalyzer{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		limiter:    rate.NewLimiter(limit, 1),
		attempts:   attempts,
		retryDelay: delay,
		log:        log.Named("llm"),
	}
}

func (a *LLMAnalyzer) Identifier() string {
	return "llm:" + a.model
}

func (a *LLMAnalyzer) Analyze(ctx context.Context, text string) ([]Candidate, error) {
	req := openai.ChatCompletionRequest{
		Model: a.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildUserPrompt(text)},
		},
		Temperature: 0,
		MaxTokens:   1024,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	var resp openai.ChatCompletionResponse
	var err error
	for attempt := 0; attempt < a.attempts; attempt++ {
		if werr := a.limiter.Wait(ctx); werr != nil {
			return nil, fmt.Errorf("%w: %w", ErrTimeout, werr)
		}

		resp, err = a.client.CreateChatCompletion(ctx, req)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
		}
		if !retryable(err) {
			a.log.Error("LLM request failed", zap.Error(err))
			return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
		}

		a.log.Warn("LLM request failed, retrying", zap.Int("attempt", attempt+1), zap.Error(err))
		if attempt < a.attempts-1 {
			select {
			case <-time.After(time.Duration(attempt+1) * a.retryDelay):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
			}
		}
	}
	if err != nil {
		a.log.Error("LLM request failed after retries", zap.Int("attempts", a.attempts), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", ErrInvalidResponse)
	}

	candidates, err := parseAssessments(resp.Choices[0].Message.Content)
	if err != nil {
		a.log.Warn("LLM returned unparsable content", zap.Error(err))
		return nil, err
	}

	a.log.Debug("LLM analysis complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)
	return candidates, nil
}

// retryable reports whether the request may succeed if sent again:
// rate limiting, server errors and transport failures.
func retryable(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= http.StatusInternalServerError
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= http.StatusInternalServerError
	}
	return true
}
