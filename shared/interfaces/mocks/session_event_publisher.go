package mocks

import (
	"context"

	"exposure-server/shared/interfaces"
	"exposure-server/shared/models"

	"github.com/stretchr/testify/mock"
)

// Mock SessionEventPublisher
type SessionEventPublisher struct {
	mock.Mock
}

var _ interfaces.SessionEventPublisher = (*SessionEventPublisher)(nil)

func (m *SessionEventPublisher) PublishSessionExit(ctx context.Context, record models.SessionExitRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *SessionEventPublisher) PublishSessionCompleted(ctx context.Context, record models.SessionCompletedRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *SessionEventPublisher) PublishSessionFeedback(ctx context.Context, feedback models.SessionFeedback) error {
	args := m.Called(ctx, feedback)
	return args.Error(0)
}
