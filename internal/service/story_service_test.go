package service_test

import (
	"context"
	"errors"
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

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		name                  string
		limit, offset         int
		wantLimit, wantOffset int
	}{
		{"defaults", 0, 0, service.DefaultPageSize, 0},
		{"clamped", 500, 10, service.MaxPageSize, 10},
		{"negative offset", 5, -1, 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limit, offset := service.NormalizePage(tt.limit, tt.offset)
			assert.Equal(t, tt.wantLimit, limit)
			assert.Equal(t, tt.wantOffset, offset)
		})
	}
}

func TestStoryService(t *testing.T) {
	ctx := context.Background()
	identity := userIdentity()

	newService := func() (*mocks.TxRunner, *mocks.StoryRepository, *mocks.SegmentRepository, service.StoryService) {
		tx := new(mocks.TxRunner)
		stories := new(mocks.StoryRepository)
		segments := new(mocks.SegmentRepository)
		return tx, stories, segments, service.NewStoryService(tx, stories, segments, zap.NewNop())
	}

	t.Run("list uses default page and never returns nil", func(t *testing.T) {
		_, stories, _, svc := newService()
		stories.On("ListByUser", ctx, identity.UserID, service.DefaultPageSize, 0).Return(nil, nil).Once()

		list, err := svc.ListStories(ctx, identity, 0, 0)

		require.NoError(t, err)
		assert.NotNil(t, list)
		assert.Empty(t, list)
		stories.AssertExpectations(t)
	})

	t.Run("get returns segments in order", func(t *testing.T) {
		_, stories, segments, svc := newService()
		story, segs := storyWithSegments(identity.UserID, 3, 2)
		stories.On("GetByIDForUser", ctx, story.ID, identity.UserID).Return(story, nil).Once()
		segments.On("ListByStory", ctx, story.ID).Return(segs, nil).Once()

		details, err := svc.GetStory(ctx, identity, story.ID)

		require.NoError(t, err)
		assert.Equal(t, story.ID, details.ID)
		require.Len(t, details.Segments, 2)
		assert.Equal(t, 1, details.Segments[1].Position)
	})

	t.Run("get hides other users' stories", func(t *testing.T) {
		_, stories, _, svc := newService()
		id := uuid.New()
		stories.On("GetByIDForUser", ctx, id, identity.UserID).Return(nil, models.ErrStoryNotFound).Once()

		_, err := svc.GetStory(ctx, identity, id)

		assert.ErrorIs(t, err, models.ErrStoryNotFound)
	})

	t.Run("completed is not user settable", func(t *testing.T) {
		_, stories, _, svc := newService()

		err := svc.UpdateStatus(ctx, identity, uuid.New(), models.StoryStatusCompleted)

		assert.ErrorIs(t, err, models.ErrInvalidInput)
		stories.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("publish", func(t *testing.T) {
		_, stories, _, svc := newService()
		story, _ := storyWithSegments(identity.UserID, 3, 1)
		stories.On("GetByIDForUser", ctx, story.ID, identity.UserID).Return(story, nil).Once()
		stories.On("UpdateStatus", ctx, story.ID, identity.UserID, models.StoryStatusPublished).Return(nil).Once()

		require.NoError(t, svc.UpdateStatus(ctx, identity, story.ID, models.StoryStatusPublished))
		stories.AssertExpectations(t)
	})

	t.Run("completed story keeps its status", func(t *testing.T) {
		_, stories, _, svc := newService()
		story, _ := storyWithSegments(identity.UserID, 3, 3)
		story.Status = models.StoryStatusCompleted
		stories.On("GetByIDForUser", ctx, story.ID, identity.UserID).Return(story, nil).Once()

		err := svc.UpdateStatus(ctx, identity, story.ID, models.StoryStatusDraft)
		assert.ErrorIs(t, err, models.ErrStoryCompleted)
		stories.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("foreign story", func(t *testing.T) {
		_, stories, _, svc := newService()
		id := uuid.New()
		stories.On("GetByIDForUser", ctx, id, identity.UserID).Return(nil, models.ErrStoryNotFound).Once()

		err := svc.UpdateStatus(ctx, identity, id, models.StoryStatusArchived)
		assert.ErrorIs(t, err, models.ErrStoryNotFound)
	})

	t.Run("delete removes segments before the story", func(t *testing.T) {
		tx, stories, segments, svc := newService()
		story, _ := storyWithSegments(identity.UserID, 3, 2)
		var order []string

		stories.On("GetByIDForUser", ctx, story.ID, identity.UserID).Return(story, nil).Once()
		tx.On("WithTransaction", ctx).Once()
		segments.On("DeleteByStory", ctx, mock.Anything, story.ID).
			Run(func(mock.Arguments) { order = append(order, "segments") }).
			Return(int64(2), nil).Once()
		stories.On("Delete", ctx, mock.Anything, story.ID).
			Run(func(mock.Arguments) { order = append(order, "story") }).
			Return(nil).Once()

		require.NoError(t, svc.DeleteStory(ctx, identity, story.ID))
		assert.Equal(t, []string{"segments", "story"}, order)
		tx.AssertExpectations(t)
	})

	t.Run("delete failure is a database error", func(t *testing.T) {
		tx, stories, segments, svc := newService()
		story, _ := storyWithSegments(identity.UserID, 3, 1)

		stories.On("GetByIDForUser", ctx, story.ID, identity.UserID).Return(story, nil).Once()
		tx.On("WithTransaction", ctx).Once()
		segments.On("DeleteByStory", ctx, mock.Anything, story.ID).Return(int64(0), errors.New("deadlock")).Once()

		err := svc.DeleteStory(ctx, identity, story.ID)

		assert.ErrorIs(t, err, models.ErrDatabase)
		stories.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
	})
}
