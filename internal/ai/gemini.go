package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

type geminiProvider struct {
	client *genai.Client
	name   string
	model  string
	logger *zap.Logger
}

var _ TextProvider = (*geminiProvider)(nil)

func newGeminiProvider(ctx context.Context, cfg ProviderConfig, logger *zap.Logger) (TextProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("provider %s: api key is required", cfg.label())
	}
	opts := []option.ClientOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(cfg.BaseURL))
	}
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("provider %s: create gemini client: %w", cfg.label(), err)
	}

	logger.Info("Gemini provider created", zap.String("provider", cfg.label()), zap.String("model", cfg.Model))
	return &geminiProvider{
		client: client,
		name:   cfg.label(),
		model:  cfg.Model,
		logger: logger.Named("GeminiProvider"),
	}, nil
}

func (p *geminiProvider) Name() string { return p.name }

func (p *geminiProvider) Generate(ctx context.Context, req GenerationRequest) (GenerationResult, error) {
	model := p.client.GenerativeModel(p.model)
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.SystemPrompt)}}
	model.SetTemperature(float32(req.Temperature))
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}

	start := time.Now()
	resp, err := model.GenerateContent(ctx, genai.Text(req.UserPrompt))
	duration := time.Since(start)
	aiRequestDuration.With(prometheus.Labels{"provider": p.name, "model": p.model}).Observe(duration.Seconds())

	if err != nil {
		aiRequestsTotal.With(prometheus.Labels{"provider": p.name, "model": p.model, "status": statusFor(ctx, err)}).Inc()
		p.logger.Warn("Gemini generation failed",
			zap.String("userID", req.UserID), zap.Duration("duration", duration), zap.Error(err))
		return GenerationResult{}, fmt.Errorf("gemini generate content: %w", err)
	}

	var text strings.Builder
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if t, ok := part.(genai.Text); ok {
				text.WriteString(string(t))
			}
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		aiRequestsTotal.With(prometheus.Labels{"provider": p.name, "model": p.model, "status": "error_empty_response"}).Inc()
		return GenerationResult{}, errEmptyResponse
	}

	var usage UsageInfo
	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		usage.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	aiRequestsTotal.With(prometheus.Labels{"provider": p.name, "model": p.model, "status": "success"}).Inc()
	return GenerationResult{Text: text.String(), Model: p.model, Usage: usage}, nil
}

// Close releases the underlying client connection.
func (p *geminiProvider) Close() error {
	return p.client.Close()
}
