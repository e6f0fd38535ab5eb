package ai

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type ollamaProvider struct {
	client *api.Client
	name   string
	model  string
	logger *zap.Logger
}

var _ TextProvider = (*ollamaProvider)(nil)

func newOllamaProvider(cfg ProviderConfig, logger *zap.Logger) (TextProvider, error) {
	baseURL := strings.TrimSuffix(strings.TrimSuffix(cfg.BaseURL, "/"), "/v1")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("provider %s: invalid base URL %q: %w", cfg.label(), baseURL, err)
	}

	logger.Info("Ollama provider created",
		zap.String("provider", cfg.label()),
		zap.String("baseURL", baseURL),
		zap.String("model", cfg.Model),
		zap.Duration("timeout", cfg.Timeout))

	return &ollamaProvider{
		client: api.NewClient(parsedURL, &http.Client{Timeout: cfg.Timeout}),
		name:   cfg.label(),
		model:  cfg.Model,
		logger: logger.Named("OllamaProvider"),
	}, nil
}

func (p *ollamaProvider) Name() string { return p.name }

func (p *ollamaProvider) Generate(ctx context.Context, req GenerationRequest) (GenerationResult, error) {
	stream := false
	chatReq := &api.ChatRequest{
		Model: p.model,
		Messages: []api.Message{
			{Role: "system", Content: req.SystemPrompt},
			{Role: "user", Content: req.UserPrompt},
		},
		Stream: &stream,
		Options: map[string]interface{}{
			"temperature": req.Temperature,
			"num_predict": req.MaxTokens,
		},
	}

	var content strings.Builder
	var usage UsageInfo
	start := time.Now()
	err := p.client.Chat(ctx, chatReq, func(resp api.ChatResponse) error {
		content.WriteString(resp.Message.Content)
		if resp.Done {
			usage.PromptTokens = resp.PromptEvalCount
			usage.CompletionTokens = resp.EvalCount
			usage.TotalTokens = resp.PromptEvalCount + resp.EvalCount
		}
		return nil
	})
	duration := time.Since(start)
	aiRequestDuration.With(prometheus.Labels{"provider": p.name, "model": p.model}).Observe(duration.Seconds())

	if err != nil {
		aiRequestsTotal.With(prometheus.Labels{"provider": p.name, "model": p.model, "status": statusFor(ctx, err)}).Inc()
		p.logger.Warn("Ollama chat failed",
			zap.String("userID", req.UserID), zap.Duration("duration", duration), zap.Error(err))
		return GenerationResult{}, fmt.Errorf("ollama chat: %w", err)
	}
	if strings.TrimSpace(content.String()) == "" {
		aiRequestsTotal.With(prometheus.Labels{"provider": p.name, "model": p.model, "status": "error_empty_response"}).Inc()
		return GenerationResult{}, errEmptyResponse
	}

	aiRequestsTotal.With(prometheus.Labels{"provider": p.name, "model": p.model, "status": "success"}).Inc()
	p.logger.Debug("Ollama chat completed",
		zap.String("userID", req.UserID),
		zap.Duration("duration", duration),
		zap.Int("evalCount", usage.CompletionTokens))

	return GenerationResult{Text: content.String(), Model: p.model, Usage: usage}, nil
}
