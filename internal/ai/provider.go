// Package ai talks to the text-generation providers and turns their replies
// into story segments.
package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Provider kinds accepted by NewProvider.
const (
	KindOpenAI = "openai"
	KindOllama = "ollama"
	KindGemini = "gemini"
)

// GenerationRequest is the provider-neutral shape of one completion call.
type GenerationRequest struct {
	UserID       string
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
}

// UsageInfo holds token counts. Zero values mean the provider reported none.
type UsageInfo struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Estimated        bool
}

type GenerationResult struct {
	Text  string
	Model string
	Usage UsageInfo
}

// TextProvider is one upstream text-generation endpoint.
type TextProvider interface {
	Name() string
	Generate(ctx context.Context, req GenerationRequest) (GenerationResult, error)
}

// ProviderConfig configures a single provider.
type ProviderConfig struct {
	Name    string // метка в логах и метриках, по умолчанию Kind
	Kind    string
	BaseURL string
	Model   string
	APIKey  string
	Timeout time.Duration
}

func (c ProviderConfig) label() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Kind
}

// NewProvider builds the provider selected by cfg.Kind.
func NewProvider(ctx context.Context, cfg ProviderConfig, logger *zap.Logger) (TextProvider, error) {
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, fmt.Errorf("provider %s: model is required", cfg.label())
	}
	switch strings.ToLower(cfg.Kind) {
	case KindOpenAI:
		return newOpenAIProvider(cfg, logger)
	case KindOllama:
		return newOllamaProvider(cfg, logger)
	case KindGemini:
		return newGeminiProvider(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown AI provider kind %q", cfg.Kind)
	}
}
