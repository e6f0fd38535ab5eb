package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// openAIProvider works with any OpenAI-compatible chat endpoint
// (OpenAI, OpenRouter, vLLM).
type openAIProvider struct {
	client *openaigo.Client
	name   string
	model  string
	logger *zap.Logger
}

var _ TextProvider = (*openAIProvider)(nil)

func newOpenAIProvider(cfg ProviderConfig, logger *zap.Logger) (TextProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("provider %s: api key is required", cfg.label())
	}
	clientCfg := openaigo.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	}
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	logger.Info("OpenAI-compatible provider created",
		zap.String("provider", cfg.label()),
		zap.String("baseURL", clientCfg.BaseURL),
		zap.String("model", cfg.Model),
		zap.Duration("timeout", cfg.Timeout))

	return &openAIProvider{
		client: openaigo.NewClientWithConfig(clientCfg),
		name:   cfg.label(),
		model:  cfg.Model,
		logger: logger.Named("OpenAIProvider"),
	}, nil
}

func (p *openAIProvider) Name() string { return p.name }

func (p *openAIProvider) Generate(ctx context.Context, req GenerationRequest) (GenerationResult, error) {
	labels := prometheus.Labels{"provider": p.name, "model": p.model}
	messages := []openaigo.ChatCompletionMessage{
		{Role: openaigo.ChatMessageRoleSystem, Content: req.SystemPrompt},
		{Role: openaigo.ChatMessageRoleUser, Content: req.UserPrompt},
	}

	start := time.Now()
	resp, err := p.client.CreateChatCompletion(ctx, openaigo.ChatCompletionRequest{
		Model:       p.model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	})
	duration := time.Since(start)
	aiRequestDuration.With(labels).Observe(duration.Seconds())

	if err != nil {
		aiRequestsTotal.With(prometheus.Labels{"provider": p.name, "model": p.model, "status": statusFor(ctx, err)}).Inc()
		p.logger.Warn("Chat completion failed",
			zap.String("userID", req.UserID), zap.Duration("duration", duration), zap.Error(err))
		return GenerationResult{}, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		aiRequestsTotal.With(prometheus.Labels{"provider": p.name, "model": p.model, "status": "error_empty_response"}).Inc()
		return GenerationResult{}, errEmptyResponse
	}

	aiRequestsTotal.With(prometheus.Labels{"provider": p.name, "model": p.model, "status": "success"}).Inc()
	usage := UsageInfo{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}
	p.logger.Debug("Chat completion received",
		zap.String("userID", req.UserID),
		zap.Duration("duration", duration),
		zap.Int("chars", len(resp.Choices[0].Message.Content)),
		zap.Int("totalTokens", usage.TotalTokens))

	model := resp.Model
	if model == "" {
		model = p.model
	}
	return GenerationResult{Text: resp.Choices[0].Message.Content, Model: model, Usage: usage}, nil
}

var errEmptyResponse = errors.New("provider returned an empty response")

func statusFor(ctx context.Context, err error) string {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return "error"
}
