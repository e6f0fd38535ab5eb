package service_test

import (
	"context"
	"fmt"
	"testing"

	"tale-forge/internal/mocks"
	"tale-forge/internal/models"
	"tale-forge/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMediaService_RequestMedia(t *testing.T) {
	ctx := context.Background()
	identity := userIdentity()

	type fixture struct {
		stories   *mocks.StoryRepository
		segments  *mocks.SegmentRepository
		customers *mocks.CustomerRepository
		publisher *mocks.MediaTaskPublisher
		svc       service.MediaService
	}
	setup := func(includeAudio bool) (*fixture, *models.Story, models.StorySegment) {
		f := &fixture{
			stories:   new(mocks.StoryRepository),
			segments:  new(mocks.SegmentRepository),
			customers: new(mocks.CustomerRepository),
			publisher: new(mocks.MediaTaskPublisher),
		}
		f.svc = service.NewMediaService(f.stories, f.segments, f.customers, f.publisher, zap.NewNop())
		story, segs := storyWithSegments(identity.UserID, 3, 1)
		story.IncludeAudio = includeAudio
		f.segments.On("GetByID", ctx, segs[0].ID).Return(&segs[0], nil).Maybe()
		f.stories.On("GetByIDForUser", ctx, story.ID, identity.UserID).Return(story, nil).Maybe()
		return f, story, segs[0]
	}

	t.Run("image task is published", func(t *testing.T) {
		f, story, segment := setup(false)
		f.publisher.On("PublishMediaTask", ctx, mock.MatchedBy(func(task models.MediaTask) bool {
			return task.Kind == models.MediaKindImage && task.StoryID == story.ID &&
				task.SegmentID == segment.ID && task.Text == segment.Content && task.TargetAge == "7-9"
		})).Return(nil).Once()

		task, err := f.svc.RequestMedia(ctx, identity, segment.ID, models.MediaKindImage)

		require.NoError(t, err)
		assert.NotEqual(t, uuid.Nil, task.TaskID)
		f.publisher.AssertExpectations(t)
	})

	t.Run("audio needs a story with narration", func(t *testing.T) {
		f, _, segment := setup(false)

		_, err := f.svc.RequestMedia(ctx, identity, segment.ID, models.MediaKindAudio)

		assert.ErrorIs(t, err, models.ErrInvalidInput)
		f.publisher.AssertNotCalled(t, "PublishMediaTask", mock.Anything, mock.Anything)
	})

	t.Run("audio needs the entitlement", func(t *testing.T) {
		f, _, segment := setup(true)
		f.customers.On("IsAudioEnabled", ctx, identity.UserID).Return(false, nil).Once()

		_, err := f.svc.RequestMedia(ctx, identity, segment.ID, models.MediaKindAudio)

		assert.ErrorIs(t, err, models.ErrAudioNotEntitled)
	})

	t.Run("entitled audio", func(t *testing.T) {
		f, _, segment := setup(true)
		f.customers.On("IsAudioEnabled", ctx, identity.UserID).Return(true, nil).Once()
		f.publisher.On("PublishMediaTask", ctx, mock.Anything).Return(nil).Once()

		task, err := f.svc.RequestMedia(ctx, identity, segment.ID, models.MediaKindAudio)

		require.NoError(t, err)
		assert.Equal(t, models.MediaKindAudio, task.Kind)
	})

	t.Run("foreign segment looks missing", func(t *testing.T) {
		f, story, segment := setup(false)
		stranger := userIdentity()
		f.stories.On("GetByIDForUser", ctx, story.ID, stranger.UserID).Return(nil, models.ErrStoryNotFound).Once()

		_, err := f.svc.RequestMedia(ctx, stranger, segment.ID, models.MediaKindImage)

		assert.ErrorIs(t, err, models.ErrSegmentNotFound)
	})

	t.Run("unknown kind", func(t *testing.T) {
		f, _, segment := setup(false)

		_, err := f.svc.RequestMedia(ctx, identity, segment.ID, "video")

		assert.ErrorIs(t, err, models.ErrInvalidInput)
	})

	t.Run("publish failure", func(t *testing.T) {
		f, _, segment := setup(false)
		f.publisher.On("PublishMediaTask", ctx, mock.Anything).
			Return(fmt.Errorf("%w: channel closed", models.ErrPublishFailed)).Once()

		_, err := f.svc.RequestMedia(ctx, identity, segment.ID, models.MediaKindImage)

		assert.ErrorIs(t, err, models.ErrPublishFailed)
	})
}
