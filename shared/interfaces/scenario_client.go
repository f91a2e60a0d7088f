package interfaces

import (
	"context"

	"exposure-server/shared/models"
)

// ScenarioClient talks to the narrative generation backend.
// Failures are returned as errors wrapping models.ErrNetwork or models.ErrMalformedResponse,
// or as a *models.ScenarioError when the backend itself reports a problem.
//
//go:generate mockery --name ScenarioClient --output ./mocks --outpkg mocks --case=underscore
type ScenarioClient interface {
	Start(ctx context.Context, req models.StartScenarioRequest) (*models.ScenarioResult, error)
	Advance(ctx context.Context, req models.AdvanceScenarioRequest) (*models.ScenarioResult, error)
	Regress(ctx context.Context, req models.RegressScenarioRequest) (*models.ScenarioResult, error)
}

// MediaResolver suggests contextual assets for a chapter.
//
//go:generate mockery --name MediaResolver --output ./mocks --outpkg mocks --case=underscore
type MediaResolver interface {
	Resolve(ctx context.Context, req models.MediaRequest) (*models.MediaSuggestion, error)
}
