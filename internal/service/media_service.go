package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tale-forge/internal/messaging"
	"tale-forge/internal/models"
	"tale-forge/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MediaService hands image and audio work for a segment to the workers.
// Images are bundled with the chapter price and audio was prepaid with the
// story, so nothing is charged here.
type MediaService interface {
	RequestMedia(ctx context.Context, identity models.Identity, segmentID uuid.UUID, kind models.MediaKind) (*models.MediaTask, error)
}

type mediaServiceImpl struct {
	stories   repository.StoryRepository
	segments  repository.SegmentRepository
	customers repository.CustomerRepository
	publisher messaging.MediaTaskPublisher
	logger    *zap.Logger
}

var _ MediaService = (*mediaServiceImpl)(nil)

func NewMediaService(stories repository.StoryRepository, segments repository.SegmentRepository, customers repository.CustomerRepository, publisher messaging.MediaTaskPublisher, logger *zap.Logger) MediaService {
	return &mediaServiceImpl{
		stories:   stories,
		segments:  segments,
		customers: customers,
		publisher: publisher,
		logger:    logger.Named("MediaService"),
	}
}

func (s *mediaServiceImpl) RequestMedia(ctx context.Context, identity models.Identity, segmentID uuid.UUID, kind models.MediaKind) (*models.MediaTask, error) {
	if kind != models.MediaKindImage && kind != models.MediaKindAudio {
		return nil, models.NewValidationError(fmt.Sprintf("unknown media kind %q", kind))
	}

	segment, err := s.segments.GetByID(ctx, segmentID)
	if err != nil {
		return nil, err
	}
	// Чужой сегмент неотличим от несуществующего.
	story, err := s.stories.GetByIDForUser(ctx, segment.StoryID, identity.UserID)
	if errors.Is(err, models.ErrStoryNotFound) {
		return nil, fmt.Errorf("segment %s: %w", segmentID, models.ErrSegmentNotFound)
	}
	if err != nil {
		return nil, err
	}

	if kind == models.MediaKindAudio {
		if !story.IncludeAudio {
			return nil, models.NewValidationError("story was created without audio narration")
		}
		entitled := identity.IsAdmin()
		if !entitled {
			entitled, err = s.customers.IsAudioEnabled(ctx, identity.UserID)
			if err != nil {
				return nil, fmt.Errorf("%w: audio entitlement: %w", models.ErrDatabase, err)
			}
		}
		if !entitled {
			return nil, models.ErrAudioNotEntitled
		}
	}

	task := models.MediaTask{
		TaskID:    uuid.New(),
		Kind:      kind,
		UserID:    identity.UserID,
		StoryID:   story.ID,
		SegmentID: segment.ID,
		Text:      segment.Content,
		TargetAge: story.TargetAge,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.publisher.PublishMediaTask(ctx, task); err != nil {
		mediaTasksPublished.WithLabelValues(string(kind), outcomeError).Inc()
		s.logger.Error("Failed to publish media task",
			zap.String("segmentID", segmentID.String()), zap.String("kind", string(kind)), zap.Error(err))
		return nil, err
	}

	mediaTasksPublished.WithLabelValues(string(kind), outcomeSuccess).Inc()
	s.logger.Info("Media task published",
		zap.String("taskID", task.TaskID.String()),
		zap.String("segmentID", segmentID.String()),
		zap.String("kind", string(kind)))
	return &task, nil
}
