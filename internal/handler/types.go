package handler

import (
	"encoding/json"
	"fmt"

	"tale-forge/internal/billing"
	"tale-forge/internal/models"
	"tale-forge/internal/service"

	"github.com/google/uuid"
)

// generateEnvelope is read first to pick the variant of the generate request.
type generateEnvelope struct {
	Kind string `json:"kind"`
}

type startStoryRequest struct {
	Kind            string   `json:"kind"`
	Title           string   `json:"title" validate:"max=200"`
	Description     string   `json:"description" validate:"max=2000"`
	Genre           string   `json:"genre" validate:"required,max=50"`
	TargetAge       string   `json:"target_age" validate:"required,max=10"`
	Characters      []string `json:"characters" validate:"max=10,dive,max=100"`
	Setting         string   `json:"setting" validate:"max=500"`
	Chapters        int      `json:"chapters"`
	WordsPerChapter int      `json:"words_per_chapter"`
	IncludeAudio    bool     `json:"include_audio"`
}

type continueStoryRequest struct {
	Kind        string `json:"kind"`
	StoryID     string `json:"story_id" validate:"required,uuid"`
	ChoiceIndex *int   `json:"choice_index" validate:"required,min=0,max=2"`
}

// decodeGenerateRequest decodes the tagged union on "kind". Each variant
// rejects the other variant's fields as unknown.
func decodeGenerateRequest(body []byte) (service.GenerateInput, error) {
	var env generateEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return service.GenerateInput{}, models.NewValidationError(jsonErrorMessage(err))
	}

	switch service.GenerationKind(env.Kind) {
	case service.GenerationKindStart:
		var req startStoryRequest
		if err := decodeStrict(body, &req); err != nil {
			return service.GenerateInput{}, err
		}
		return service.GenerateInput{
			Kind: service.GenerationKindStart,
			Start: &service.StartStoryInput{
				Title:           req.Title,
				Description:     req.Description,
				Genre:           req.Genre,
				TargetAge:       req.TargetAge,
				Characters:      req.Characters,
				Setting:         req.Setting,
				Chapters:        req.Chapters,
				WordsPerChapter: req.WordsPerChapter,
				IncludeAudio:    req.IncludeAudio,
			},
		}, nil
	case service.GenerationKindContinue:
		var req continueStoryRequest
		if err := decodeStrict(body, &req); err != nil {
			return service.GenerateInput{}, err
		}
		return service.GenerateInput{
			Kind: service.GenerationKindContinue,
			Continue: &service.ContinueStoryInput{
				StoryID:     uuid.MustParse(req.StoryID),
				ChoiceIndex: *req.ChoiceIndex,
			},
		}, nil
	case "":
		return service.GenerateInput{}, models.NewValidationError("kind is required")
	}
	return service.GenerateInput{}, models.NewValidationError(
		fmt.Sprintf("kind must be one of: start, continue, got %q", env.Kind))
}

type segmentResponse struct {
	ID       uuid.UUID `json:"id"`
	Position int       `json:"position"`
	Content  string    `json:"content"`
	Choices  []string  `json:"choices"`
	ImageURL *string   `json:"image_url,omitempty"`
	AudioURL *string   `json:"audio_url,omitempty"`
}

type creditsSummary struct {
	Charged int `json:"charged"`
	Balance int `json:"balance"`
}

type generateResponse struct {
	Success         bool               `json:"success"`
	StoryID         uuid.UUID          `json:"story_id"`
	Status          models.StoryStatus `json:"status"`
	Segment         segmentResponse    `json:"segment"`
	Credits         creditsSummary     `json:"credits"`
	FallbackChoices bool               `json:"fallback_choices,omitempty"`
}

func newGenerateResponse(o *service.GenerationOutcome) generateResponse {
	choices := make([]string, len(o.Segment.Choices))
	for i, ch := range o.Segment.Choices {
		choices[i] = ch.Text
	}
	return generateResponse{
		Success: true,
		StoryID: o.Story.ID,
		Status:  o.Story.Status,
		Segment: segmentResponse{
			ID:       o.Segment.ID,
			Position: o.Segment.Position,
			Content:  o.Segment.Content,
			Choices:  choices,
			ImageURL: o.Segment.ImageURL,
			AudioURL: o.Segment.AudioURL,
		},
		Credits:         creditsSummary{Charged: o.Charged, Balance: o.Balance},
		FallbackChoices: o.FallbackChoices,
	}
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type estimateRequest struct {
	Chapters        int  `json:"chapters"`
	WordsPerChapter int  `json:"words_per_chapter"`
	IncludeAudio    bool `json:"include_audio"`
}

type checkoutRequest struct {
	PriceID string `json:"price_id" validate:"required,max=100"`
	Mode    string `json:"mode" validate:"omitempty,oneof=payment subscription"`
}

func (r checkoutRequest) input() service.CheckoutInput {
	return service.CheckoutInput{PriceID: r.PriceID, Mode: billing.CheckoutMode(r.Mode)}
}

type grantCreditsRequest struct {
	UserID      string `json:"user_id" validate:"required,uuid"`
	Amount      int    `json:"amount" validate:"required,min=1,max=100000"`
	Description string `json:"description" validate:"max=200"`
}

type audioEntitlementRequest struct {
	Enabled *bool `json:"enabled" validate:"required"`
}

type mediaTaskResponse struct {
	TaskID    uuid.UUID        `json:"task_id"`
	Kind      models.MediaKind `json:"kind"`
	SegmentID uuid.UUID        `json:"segment_id"`
	Status    string           `json:"status"`
}

type storyListResponse struct {
	Stories []models.Story `json:"stories"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
}

type transactionListResponse struct {
	Transactions []models.CreditTransaction `json:"transactions"`
	Limit        int                        `json:"limit"`
	Offset       int                        `json:"offset"`
}
