package interfaces

import (
	"context"

	"exposure-server/shared/models"
)

// SessionEventPublisher delivers session side effects to the external collaborators.
//
//go:generate mockery --name SessionEventPublisher --output ./mocks --outpkg mocks --case=underscore
type SessionEventPublisher interface {
	PublishSessionExit(ctx context.Context, record models.SessionExitRecord) error
	PublishSessionCompleted(ctx context.Context, record models.SessionCompletedRecord) error
	PublishSessionFeedback(ctx context.Context, feedback models.SessionFeedback) error
}
