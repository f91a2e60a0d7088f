package mocks

import (
	"context"

	"exposure-server/shared/interfaces"
	"exposure-server/shared/models"

	"github.com/stretchr/testify/mock"
)

// Mock ScenarioClient
type ScenarioClient struct {
	mock.Mock
}

var _ interfaces.ScenarioClient = (*ScenarioClient)(nil)

func (m *ScenarioClient) Start(ctx context.Context, req models.StartScenarioRequest) (*models.ScenarioResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*models.ScenarioResult)
	return res, args.Error(1)
}

func (m *ScenarioClient) Advance(ctx context.Context, req models.AdvanceScenarioRequest) (*models.ScenarioResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*models.ScenarioResult)
	return res, args.Error(1)
}

func (m *ScenarioClient) Regress(ctx context.Context, req models.RegressScenarioRequest) (*models.ScenarioResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*models.ScenarioResult)
	return res, args.Error(1)
}

// Mock MediaResolver
type MediaResolver struct {
	mock.Mock
}

var _ interfaces.MediaResolver = (*MediaResolver)(nil)

func (m *MediaResolver) Resolve(ctx context.Context, req models.MediaRequest) (*models.MediaSuggestion, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*models.MediaSuggestion)
	return res, args.Error(1)
}
