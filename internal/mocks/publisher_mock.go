package mocks

import (
	"context"

	"tale-forge/internal/messaging"
	"tale-forge/internal/models"

	"github.com/stretchr/testify/mock"
)

// MediaTaskPublisher mock
type MediaTaskPublisher struct {
	mock.Mock
}

func (m *MediaTaskPublisher) PublishMediaTask(ctx context.Context, task models.MediaTask) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

var _ messaging.MediaTaskPublisher = (*MediaTaskPublisher)(nil)
