package ai_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tale-forge/internal/ai"
	"tale-forge/internal/mocks"
	"tale-forge/internal/models"
	"tale-forge/internal/parser"
	"tale-forge/internal/prompt"
)

const wellFormedReply = "Mira followed the glowing fox deeper into the woods.\n\nCHOICES:\n1. Follow the fox\n2. Build a snow fort\n3. Call for Grandpa"

type fixedCounter int

func (c fixedCounter) Count(string) int { return int(c) }

func storyContext() prompt.StoryContext {
	return prompt.StoryContext{Genre: "fantasy", TargetAge: "7-9", ChapterNumber: 1, TotalChapters: 3, WordsPerChapter: 120}
}

func newOrchestrator(t *testing.T, providers ...ai.TextProvider) *ai.Orchestrator {
	t.Helper()
	o, err := ai.NewOrchestrator(providers, ai.OrchestratorOptions{Timeout: time.Second, Temperature: 0.7, Tokens: fixedCounter(10)}, zap.NewNop())
	require.NoError(t, err)
	return o
}

func TestNewOrchestrator_ProviderCount(t *testing.T) {
	_, err := ai.NewOrchestrator(nil, ai.OrchestratorOptions{}, zap.NewNop())
	assert.Error(t, err)

	p := mocks.NewMockTextProvider(t, "p")
	_, err = ai.NewOrchestrator([]ai.TextProvider{p, p, p}, ai.OrchestratorOptions{}, zap.NewNop())
	assert.Error(t, err)
}

func TestGenerateSegment_PrimarySucceeds(t *testing.T) {
	primary := mocks.NewMockTextProvider(t, "primary")
	fallback := mocks.NewMockTextProvider(t, "fallback")

	primary.On("Generate", mock.Anything, mock.MatchedBy(func(req ai.GenerationRequest) bool {
		return req.UserID == "user-1" && req.Temperature == 0.7 && req.MaxTokens > 0 && req.SystemPrompt != ""
	})).Return(ai.GenerationResult{Text: wellFormedReply, Model: "gpt", Usage: ai.UsageInfo{PromptTokens: 50, CompletionTokens: 70, TotalTokens: 120}}, nil).Once()

	seg, err := newOrchestrator(t, primary, fallback).GenerateSegment(context.Background(), "user-1", storyContext())
	require.NoError(t, err)

	assert.Equal(t, "primary", seg.Provider)
	assert.Equal(t, 1, seg.Attempts)
	assert.Equal(t, []string{"Follow the fox", "Build a snow fort", "Call for Grandpa"}, seg.Choices)
	assert.False(t, seg.FallbackChoices)
	assert.Equal(t, 120, seg.Usage.TotalTokens)
	fallback.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

func TestGenerateSegment_FallbackCalledExactlyOnce(t *testing.T) {
	primary := mocks.NewMockTextProvider(t, "primary")
	fallback := mocks.NewMockTextProvider(t, "fallback")

	primary.On("Generate", mock.Anything, mock.Anything).Return(ai.GenerationResult{}, errors.New("502 bad gateway")).Once()
	fallback.On("Generate", mock.Anything, mock.Anything).Return(ai.GenerationResult{Text: wellFormedReply, Model: "llama"}, nil).Once()

	seg, err := newOrchestrator(t, primary, fallback).GenerateSegment(context.Background(), "user-1", storyContext())
	require.NoError(t, err)
	assert.Equal(t, "fallback", seg.Provider)
	assert.Equal(t, 2, seg.Attempts)
	assert.True(t, seg.Usage.Estimated, "usage estimated when provider reports none")
	assert.Equal(t, 30, seg.Usage.TotalTokens)
}

func TestGenerateSegment_BothFail(t *testing.T) {
	primary := mocks.NewMockTextProvider(t, "primary")
	fallback := mocks.NewMockTextProvider(t, "fallback")

	primary.On("Generate", mock.Anything, mock.Anything).Return(ai.GenerationResult{}, errors.New("boom")).Once()
	fallback.On("Generate", mock.Anything, mock.Anything).Return(ai.GenerationResult{}, errors.New("also boom")).Once()

	seg, err := newOrchestrator(t, primary, fallback).GenerateSegment(context.Background(), "user-1", storyContext())
	require.Error(t, err)
	assert.Nil(t, seg)
	assert.True(t, errors.Is(err, models.ErrAIGenerationFailed))
	assert.Contains(t, err.Error(), "also boom")
	primary.AssertNumberOfCalls(t, "Generate", 1)
	fallback.AssertNumberOfCalls(t, "Generate", 1)
}

func TestGenerateSegment_PrimaryTimeout(t *testing.T) {
	primary := mocks.NewMockTextProvider(t, "primary")
	fallback := mocks.NewMockTextProvider(t, "fallback")

	primary.On("Generate", mock.Anything, mock.Anything).
		Return(func(ctx context.Context, _ ai.GenerationRequest) ai.GenerationResult {
			<-ctx.Done()
			return ai.GenerationResult{}
		}, func(ctx context.Context, _ ai.GenerationRequest) error {
			return ctx.Err()
		}).Once()
	fallback.On("Generate", mock.Anything, mock.Anything).Return(ai.GenerationResult{Text: wellFormedReply}, nil).Once()

	o, err := ai.NewOrchestrator([]ai.TextProvider{primary, fallback}, ai.OrchestratorOptions{Timeout: 20 * time.Millisecond}, zap.NewNop())
	require.NoError(t, err)

	seg, err := o.GenerateSegment(context.Background(), "user-1", storyContext())
	require.NoError(t, err)
	assert.Equal(t, "fallback", seg.Provider)
}

func TestGenerateSegment_UnparseableChoicesUseGenericSet(t *testing.T) {
	primary := mocks.NewMockTextProvider(t, "primary")
	fallback := mocks.NewMockTextProvider(t, "fallback")

	primary.On("Generate", mock.Anything, mock.Anything).Return(ai.GenerationResult{Text: "A story with no choices at all."}, nil).Once()
	fallback.On("Generate", mock.Anything, mock.Anything).Return(ai.GenerationResult{Text: "Another story, still no choices."}, nil).Once()

	seg, err := newOrchestrator(t, primary, fallback).GenerateSegment(context.Background(), "user-1", storyContext())
	require.NoError(t, err)
	assert.Equal(t, "Another story, still no choices.", seg.Content)
	assert.Equal(t, []string{"Continue the adventure", "Explore a different path", "Try something unexpected"}, seg.Choices)
	assert.Len(t, seg.Choices, parser.ChoiceCount)
	assert.True(t, seg.FallbackChoices)
}

func TestGenerateSegment_SalvagesPrimaryBodyWhenFallbackErrors(t *testing.T) {
	primary := mocks.NewMockTextProvider(t, "primary")
	fallback := mocks.NewMockTextProvider(t, "fallback")

	primary.On("Generate", mock.Anything, mock.Anything).Return(ai.GenerationResult{Text: "Only prose here."}, nil).Once()
	fallback.On("Generate", mock.Anything, mock.Anything).Return(ai.GenerationResult{}, errors.New("down")).Once()

	seg, err := newOrchestrator(t, primary, fallback).GenerateSegment(context.Background(), "user-1", storyContext())
	require.NoError(t, err)
	assert.Equal(t, "primary", seg.Provider)
	assert.Equal(t, parser.FallbackChoices, seg.Choices)
}

func TestGenerateSegment_CanceledContextSkipsProviders(t *testing.T) {
	primary := mocks.NewMockTextProvider(t, "primary")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newOrchestrator(t, primary).GenerateSegment(ctx, "user-1", storyContext())
	require.Error(t, err)
	assert.True(t, errors.Is(err, models.ErrAIGenerationFailed))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestGenerateSegment_BoldNumberedChoicesSkipFallback(t *testing.T) {
	primary := mocks.NewMockTextProvider(t, "primary")
	fallback := mocks.NewMockTextProvider(t, "fallback")

	reply := "Mia found a glowing door.\n\nCHOICES:\n**1.** Open the door\n**2.** Knock first\n**3.** Run home"
	primary.On("Generate", mock.Anything, mock.Anything).Return(ai.GenerationResult{Text: reply}, nil).Once()

	seg, err := newOrchestrator(t, primary, fallback).GenerateSegment(context.Background(), "user-1", storyContext())
	require.NoError(t, err)
	assert.Equal(t, "primary", seg.Provider)
	assert.Equal(t, []string{"Open the door", "Knock first", "Run home"}, seg.Choices)
	assert.False(t, seg.FallbackChoices)
	fallback.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
}

type closingProvider struct {
	*mocks.MockTextProvider
	closed int
	err    error
}

func (p *closingProvider) Close() error {
	p.closed++
	return p.err
}

func TestOrchestrator_CloseReleasesClosers(t *testing.T) {
	primary := &closingProvider{MockTextProvider: mocks.NewMockTextProvider(t, "gemini")}
	fallback := mocks.NewMockTextProvider(t, "ollama")

	require.NoError(t, newOrchestrator(t, primary, fallback).Close())
	assert.Equal(t, 1, primary.closed)

	primary.err = errors.New("conn already closed")
	err := newOrchestrator(t, primary).Close()
	assert.ErrorContains(t, err, "close provider gemini")
}
