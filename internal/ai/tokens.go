package ai

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter estimates token counts for providers that report no usage.
type TokenCounter interface {
	Count(text string) int
}

// TiktokenCounter counts with the cl100k_base encoding, loaded on first use.
// If the encoding cannot be loaded it falls back to a words-based estimate.
type TiktokenCounter struct {
	encoding string
	once     sync.Once
	enc      *tiktoken.Tiktoken
	err      error
}

func NewTiktokenCounter() *TiktokenCounter {
	return &TiktokenCounter{encoding: "cl100k_base"}
}

func (c *TiktokenCounter) Count(text string) int {
	c.once.Do(func() {
		c.enc, c.err = tiktoken.GetEncoding(c.encoding)
	})
	if c.err != nil || c.enc == nil {
		return WordCountEstimate(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}

// WordCountEstimate assumes roughly four tokens per three English words.
func WordCountEstimate(text string) int {
	words := len(strings.Fields(text))
	return (words*4 + 2) / 3
}

func estimateUsage(counter TokenCounter, req GenerationRequest, completion string) UsageInfo {
	count := WordCountEstimate
	if counter != nil {
		count = counter.Count
	}
	prompt := count(req.SystemPrompt) + count(req.UserPrompt)
	out := count(completion)
	return UsageInfo{
		PromptTokens:     prompt,
		CompletionTokens: out,
		TotalTokens:      prompt + out,
		Estimated:        true,
	}
}
