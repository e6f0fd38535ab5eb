package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"tale-forge/internal/models"
	"tale-forge/internal/parser"
	"tale-forge/internal/prompt"
)

// GeneratedSegment is one story segment ready to be persisted.
type GeneratedSegment struct {
	Content string
	Choices []string
	// FallbackChoices is set when the generic choices replaced unparseable ones.
	FallbackChoices bool
	Provider        string
	Model           string
	Usage           UsageInfo
	Attempts        int
}

// SegmentGenerator is implemented by Orchestrator.
type SegmentGenerator interface {
	GenerateSegment(ctx context.Context, userID string, sc prompt.StoryContext) (*GeneratedSegment, error)
}

type OrchestratorOptions struct {
	// Timeout bounds each provider call separately.
	Timeout     time.Duration
	Temperature float64
	Tokens      TokenCounter
}

// Orchestrator tries a primary provider and at most one fallback.
type Orchestrator struct {
	providers []TextProvider
	opts      OrchestratorOptions
	logger    *zap.Logger
}

var _ SegmentGenerator = (*Orchestrator)(nil)

// NewOrchestrator accepts the primary provider optionally followed by a
// single fallback.
func NewOrchestrator(providers []TextProvider, opts OrchestratorOptions, logger *zap.Logger) (*Orchestrator, error) {
	if len(providers) == 0 {
		return nil, errors.New("orchestrator needs at least one provider")
	}
	if len(providers) > 2 {
		return nil, fmt.Errorf("orchestrator supports a primary and one fallback provider, got %d", len(providers))
	}
	for i, p := range providers {
		if p == nil {
			return nil, fmt.Errorf("provider %d is nil", i)
		}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &Orchestrator{
		providers: append([]TextProvider(nil), providers...),
		opts:      opts,
		logger:    logger.Named("Orchestrator"),
	}, nil
}

// Close releases providers that hold client connections (Gemini).
func (o *Orchestrator) Close() error {
	var errs []error
	for _, p := range o.providers {
		if c, ok := p.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close provider %s: %w", p.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// GenerateSegment returns a segment with exactly three choices. A provider
// error, timeout or unparseable reply moves on to the fallback. When no reply
// parses but one had narrative text, the latest such text is returned with
// the generic choices. Errors wrap models.ErrAIGenerationFailed.
func (o *Orchestrator) GenerateSegment(ctx context.Context, userID string, sc prompt.StoryContext) (*GeneratedSegment, error) {
	prompts := prompt.Build(sc)
	req := GenerationRequest{
		UserID:       userID,
		SystemPrompt: prompts.System,
		UserPrompt:   prompts.User,
		MaxTokens:    prompts.MaxTokens,
		Temperature:  o.opts.Temperature,
	}
	log := o.logger.With(zap.String("userID", userID), zap.Int("chapter", sc.ChapterNumber))

	var failures []error
	var salvage *GeneratedSegment

	for i, provider := range o.providers {
		attempt := i + 1
		if err := ctx.Err(); err != nil {
			failures = append(failures, err)
			break
		}
		if i > 0 {
			log.Warn("Falling back to next provider",
				zap.String("provider", provider.Name()),
				zap.Errors("previousFailures", failures))
		}

		result, err := o.call(ctx, provider, req)
		if err != nil {
			if i+1 < len(o.providers) {
				aiFallbacksTotal.WithLabelValues("provider_error").Inc()
			}
			failures = append(failures, fmt.Errorf("%s: %w", provider.Name(), err))
			continue
		}

		parsed := parser.Parse(result.Text)
		aiParseOutcomes.WithLabelValues(provider.Name(), parsed.Kind.String()).Inc()
		segment := &GeneratedSegment{
			Content:  parsed.Body,
			Choices:  parsed.ChoicesOrFallback(),
			Provider: provider.Name(),
			Model:    result.Model,
			Usage:    result.Usage,
			Attempts: attempt,
		}
		if segment.Usage.TotalTokens == 0 {
			segment.Usage = estimateUsage(o.opts.Tokens, req, result.Text)
		}

		if parsed.Kind == parser.Parsed {
			log.Info("Segment generated",
				zap.String("provider", provider.Name()),
				zap.Int("attempt", attempt),
				zap.Int("totalTokens", segment.Usage.TotalTokens))
			return segment, nil
		}

		log.Warn("Provider reply could not be parsed",
			zap.String("provider", provider.Name()), zap.String("reason", parsed.Reason))
		if i+1 < len(o.providers) {
			aiFallbacksTotal.WithLabelValues("unparseable").Inc()
		}
		if parsed.HasBody() {
			segment.FallbackChoices = true
			salvage = segment
		}
		failures = append(failures, fmt.Errorf("%s: unparseable reply: %s", provider.Name(), parsed.Reason))
	}

	if salvage != nil {
		log.Info("Using narrative with generic choices",
			zap.String("provider", salvage.Provider), zap.Int("attempts", salvage.Attempts))
		return salvage, nil
	}

	log.Error("All providers failed", zap.Errors("failures", failures))
	return nil, fmt.Errorf("%w: %w", models.ErrAIGenerationFailed, errors.Join(failures...))
}

func (o *Orchestrator) call(ctx context.Context, provider TextProvider, req GenerationRequest) (GenerationResult, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.opts.Timeout)
	defer cancel()

	result, err := provider.Generate(callCtx, req)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return GenerationResult{}, fmt.Errorf("timed out after %s: %w", o.opts.Timeout, err)
		}
		return GenerationResult{}, err
	}
	observeUsage(provider.Name(), result.Model, result.Usage)
	return result, nil
}
