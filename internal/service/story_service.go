package service

import (
	"context"
	"fmt"

	"tale-forge/internal/database"
	"tale-forge/internal/models"
	"tale-forge/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// StoryService is the read/manage side of a user's stories.
type StoryService interface {
	ListStories(ctx context.Context, identity models.Identity, limit, offset int) ([]models.Story, error)
	GetStory(ctx context.Context, identity models.Identity, storyID uuid.UUID) (*models.StoryDetails, error)
	UpdateStatus(ctx context.Context, identity models.Identity, storyID uuid.UUID, status models.StoryStatus) error
	DeleteStory(ctx context.Context, identity models.Identity, storyID uuid.UUID) error
}

type storyServiceImpl struct {
	tx       database.TxRunner
	stories  repository.StoryRepository
	segments repository.SegmentRepository
	logger   *zap.Logger
}

var _ StoryService = (*storyServiceImpl)(nil)

func NewStoryService(tx database.TxRunner, stories repository.StoryRepository, segments repository.SegmentRepository, logger *zap.Logger) StoryService {
	return &storyServiceImpl{
		tx:       tx,
		stories:  stories,
		segments: segments,
		logger:   logger.Named("StoryService"),
	}
}

// NormalizePage clamps paging parameters to sane values.
func NormalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func (s *storyServiceImpl) ListStories(ctx context.Context, identity models.Identity, limit, offset int) ([]models.Story, error) {
	limit, offset = NormalizePage(limit, offset)
	stories, err := s.stories.ListByUser(ctx, identity.UserID, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list stories", zap.String("userID", identity.UserID.String()), zap.Error(err))
		return nil, fmt.Errorf("%w: %w", models.ErrDatabase, err)
	}
	if stories == nil {
		stories = []models.Story{}
	}
	return stories, nil
}

func (s *storyServiceImpl) GetStory(ctx context.Context, identity models.Identity, storyID uuid.UUID) (*models.StoryDetails, error) {
	story, err := s.stories.GetByIDForUser(ctx, storyID, identity.UserID)
	if err != nil {
		return nil, err
	}
	segments, err := s.segments.ListByStory(ctx, story.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrDatabase, err)
	}
	if segments == nil {
		segments = []models.StorySegment{}
	}
	return &models.StoryDetails{Story: *story, Segments: segments}, nil
}

// UpdateStatus only accepts the statuses a user may set; completion is
// reserved for the writer and is final.
func (s *storyServiceImpl) UpdateStatus(ctx context.Context, identity models.Identity, storyID uuid.UUID, status models.StoryStatus) error {
	if !status.IsUserSettable() {
		return models.NewValidationError(fmt.Sprintf("status must be one of draft, published, archived, got %q", status))
	}
	story, err := s.stories.GetByIDForUser(ctx, storyID, identity.UserID)
	if err != nil {
		return err
	}
	if story.Status == models.StoryStatusCompleted {
		return fmt.Errorf("%w: status of a completed story cannot change", models.ErrStoryCompleted)
	}
	if err := s.stories.UpdateStatus(ctx, storyID, identity.UserID, status); err != nil {
		return err
	}
	s.logger.Info("Story status updated",
		zap.String("storyID", storyID.String()),
		zap.String("userID", identity.UserID.String()),
		zap.String("status", string(status)))
	return nil
}

// DeleteStory removes the story with all of its segments and choices.
// Ledger entries that reference it are kept.
func (s *storyServiceImpl) DeleteStory(ctx context.Context, identity models.Identity, storyID uuid.UUID) error {
	story, err := s.stories.GetByIDForUser(ctx, storyID, identity.UserID)
	if err != nil {
		return err
	}

	var removed int64
	err = s.tx.WithTransaction(ctx, func(ctx context.Context, tx database.DBTX) error {
		n, err := s.segments.DeleteByStory(ctx, tx, story.ID)
		if err != nil {
			return err
		}
		removed = n
		return s.stories.Delete(ctx, tx, story.ID)
	})
	if err != nil {
		s.logger.Error("Failed to delete story", zap.String("storyID", story.ID.String()), zap.Error(err))
		return fmt.Errorf("%w: %w", models.ErrDatabase, err)
	}

	s.logger.Info("Story deleted",
		zap.String("storyID", story.ID.String()),
		zap.String("userID", identity.UserID.String()),
		zap.Int64("segments", removed))
	return nil
}
