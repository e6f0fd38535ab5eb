package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tale-forge/internal/database"
	"tale-forge/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChoiceLink identifies the choice the reader took to reach the new segment.
type ChoiceLink struct {
	SegmentID uuid.UUID
	Position  int
}

type WriteSegmentParams struct {
	Story      *models.Story
	IsNewStory bool
	Segment    models.StorySegment
	Choices    []string
	// TakenChoice is nil for the first segment of a story.
	TakenChoice *ChoiceLink
	// Complete marks the story completed in the same transaction.
	Complete          bool
	Charge            int
	ChargeDescription string
}

type WriteSegmentResult struct {
	Segment models.StorySegment
	Charged int
	// Balance after the debit; nil when nothing was charged.
	Balance *int
}

// Writer persists a generated segment together with its side effects.
type Writer interface {
	WriteSegment(ctx context.Context, params WriteSegmentParams) (*WriteSegmentResult, error)
}

type SegmentWriter struct {
	tx       database.TxRunner
	stories  StoryRepository
	segments SegmentRepository
	credits  CreditRepository
	logger   *zap.Logger
}

var _ Writer = (*SegmentWriter)(nil)

func NewSegmentWriter(tx database.TxRunner, stories StoryRepository, segments SegmentRepository, credits CreditRepository, logger *zap.Logger) *SegmentWriter {
	return &SegmentWriter{
		tx:       tx,
		stories:  stories,
		segments: segments,
		credits:  credits,
		logger:   logger.Named("SegmentWriter"),
	}
}

// WriteSegment stores the story (when new), the segment, its choices, the
// choice link, completion and the charge with its ledger entry in one
// transaction. Nothing is written if any step fails.
func (w *SegmentWriter) WriteSegment(ctx context.Context, params WriteSegmentParams) (*WriteSegmentResult, error) {
	if params.Story == nil {
		return nil, errors.New("write segment: story is required")
	}
	if len(params.Choices) == 0 {
		return nil, errors.New("write segment: choices are required")
	}
	if params.Charge < 0 {
		return nil, fmt.Errorf("write segment: negative charge %d", params.Charge)
	}

	story := params.Story
	segment := params.Segment
	if segment.ID == uuid.Nil {
		segment.ID = uuid.New()
	}
	segment.StoryID = story.ID
	if segment.WordCount == 0 {
		segment.WordCount = len(strings.Fields(segment.Content))
	}
	segment.Choices = make([]models.StoryChoice, len(params.Choices))
	for i, text := range params.Choices {
		segment.Choices[i] = models.StoryChoice{
			ID:        uuid.New(),
			SegmentID: segment.ID,
			Position:  i,
			Text:      text,
		}
	}

	log := w.logger.With(
		zap.String("storyID", story.ID.String()),
		zap.String("userID", story.UserID.String()),
		zap.Int("position", segment.Position),
		zap.Int("charge", params.Charge),
	)
	result := &WriteSegmentResult{}

	err := w.tx.WithTransaction(ctx, func(ctx context.Context, tx database.DBTX) error {
		if params.IsNewStory {
			if err := w.stories.Create(ctx, tx, story); err != nil {
				return err
			}
		}
		if err := w.segments.Insert(ctx, tx, &segment); err != nil {
			return err
		}
		if err := w.segments.InsertChoices(ctx, tx, segment.Choices); err != nil {
			return err
		}
		if params.TakenChoice != nil {
			if err := w.segments.LinkChoice(ctx, tx, params.TakenChoice.SegmentID, params.TakenChoice.Position, segment.ID); err != nil {
				return err
			}
		}
		if params.Complete {
			if err := w.stories.MarkCompleted(ctx, tx, story.ID); err != nil {
				return err
			}
		}
		if params.Charge == 0 {
			return nil
		}

		balance, err := w.credits.Debit(ctx, tx, story.UserID, params.Charge)
		if err != nil {
			return err
		}
		refType := models.ReferenceTypeStory
		refID := story.ID
		if err := w.credits.InsertTransaction(ctx, tx, &models.CreditTransaction{
			UserID:        story.UserID,
			Amount:        -params.Charge,
			BalanceAfter:  balance,
			Description:   params.ChargeDescription,
			ReferenceType: &refType,
			ReferenceID:   &refID,
		}); err != nil {
			return err
		}
		result.Charged = params.Charge
		result.Balance = &balance
		return nil
	})
	if err != nil {
		log.Warn("Segment write rolled back", zap.Error(err))
		return nil, wrapWriteError(err)
	}

	if params.Complete {
		story.Status = models.StoryStatusCompleted
	}
	result.Segment = segment
	log.Info("Segment persisted", zap.String("segmentID", segment.ID.String()), zap.Bool("completed", params.Complete))
	return result, nil
}

// wrapWriteError keeps domain errors as they are and marks the rest as
// database failures.
func wrapWriteError(err error) error {
	switch {
	case errors.Is(err, models.ErrInsufficientCredits),
		errors.Is(err, models.ErrSegmentPositionTaken):
		return err
	}
	return fmt.Errorf("%w: %w", models.ErrDatabase, err)
}
