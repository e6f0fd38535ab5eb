// Package credits prices story generation and decides whether a caller can
// pay for it. Everything except Gate.Check is a pure function.
package credits

import (
	"fmt"

	"tale-forge/internal/models"
)

const (
	MinChapters        = 1
	MaxChapters        = 10
	MinWordsPerChapter = 100
	MaxWordsPerChapter = 400

	creditsPerChapter   = 1
	wordsPerAudioCredit = 100
)

// StoryParams is the length of a story plan.
type StoryParams struct {
	Chapters        int `json:"chapters"`
	WordsPerChapter int `json:"words_per_chapter"`
}

// TotalWords is chapters times words per chapter.
func (p StoryParams) TotalWords() int {
	return p.Chapters * p.WordsPerChapter
}

type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// CostResult is the text+image price of a story plan.
type CostResult struct {
	Total     int      `json:"total"`
	Breakdown []string `json:"breakdown"`
}

type AudioCost struct {
	Cost       int `json:"cost"`
	TotalWords int `json:"total_words"`
}

// GenerationCost is the full price of a generation request.
type GenerationCost struct {
	Total     int      `json:"total"`
	StoryCost int      `json:"story_cost"`
	AudioCost int      `json:"audio_cost"`
	Breakdown []string `json:"breakdown"`
}

// ValidateStoryParams reports every violated rule, not only the first.
func ValidateStoryParams(p StoryParams) ValidationResult {
	var errs []string
	if p.Chapters < MinChapters || p.Chapters > MaxChapters {
		errs = append(errs, fmt.Sprintf("chapters must be between %d and %d, got %d", MinChapters, MaxChapters, p.Chapters))
	}
	if p.WordsPerChapter < MinWordsPerChapter || p.WordsPerChapter > MaxWordsPerChapter {
		errs = append(errs, fmt.Sprintf("words_per_chapter must be between %d and %d, got %d", MinWordsPerChapter, MaxWordsPerChapter, p.WordsPerChapter))
	}
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// CalculateStoryCredits charges one credit per chapter; text and image are
// bundled.
func CalculateStoryCredits(p StoryParams) (CostResult, error) {
	if v := ValidateStoryParams(p); !v.Valid {
		return CostResult{}, models.NewValidationError(v.Errors...)
	}
	total := p.Chapters * creditsPerChapter
	return CostResult{
		Total: total,
		Breakdown: []string{
			fmt.Sprintf("%d chapter(s) × %d credit (text + image)", p.Chapters, creditsPerChapter),
			fmt.Sprintf("Total: %d credit(s)", total),
		},
	}, nil
}

// CalculateAudioCost charges one credit per started hundred words.
func CalculateAudioCost(p StoryParams) (AudioCost, error) {
	if v := ValidateStoryParams(p); !v.Valid {
		return AudioCost{}, models.NewValidationError(v.Errors...)
	}
	words := p.TotalWords()
	return AudioCost{
		Cost:       (words + wordsPerAudioCredit - 1) / wordsPerAudioCredit,
		TotalWords: words,
	}, nil
}

// CalculateGenerationCost prices a whole story plan. Requesting audio without
// the entitlement is reported together with any length violations.
func CalculateGenerationCost(p StoryParams, includeAudio, audioEntitled bool) (GenerationCost, error) {
	errs := ValidateStoryParams(p).Errors
	if includeAudio && !audioEntitled {
		errs = append(errs, models.ErrAudioNotEntitled.Error())
	}
	if len(errs) > 0 {
		return GenerationCost{}, models.NewValidationError(errs...)
	}

	story, err := CalculateStoryCredits(p)
	if err != nil {
		return GenerationCost{}, err
	}
	cost := GenerationCost{
		Total:     story.Total,
		StoryCost: story.Total,
		Breakdown: append([]string(nil), story.Breakdown[0]),
	}
	if includeAudio {
		audio, err := CalculateAudioCost(p)
		if err != nil {
			return GenerationCost{}, err
		}
		cost.AudioCost = audio.Cost
		cost.Total += audio.Cost
		cost.Breakdown = append(cost.Breakdown,
			fmt.Sprintf("Audio narration: %d words → %d credit(s)", audio.TotalWords, audio.Cost))
	}
	cost.Breakdown = append(cost.Breakdown, fmt.Sprintf("Total: %d credit(s)", cost.Total))
	return cost, nil
}
