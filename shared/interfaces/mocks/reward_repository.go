package mocks

import (
	"context"

	"exposure-server/shared/interfaces"
	"exposure-server/shared/models"

	"github.com/stretchr/testify/mock"
)

// Mock RewardRepository
type RewardRepository struct {
	mock.Mock
}

var _ interfaces.RewardRepository = (*RewardRepository)(nil)

func (m *RewardRepository) Get(ctx context.Context, patientID string) (*models.RewardState, error) {
	args := m.Called(ctx, patientID)
	state, _ := args.Get(0).(*models.RewardState)
	return state, args.Error(1)
}

func (m *RewardRepository) Save(ctx context.Context, patientID string, state *models.RewardState) error {
	args := m.Called(ctx, patientID, state)
	return args.Error(0)
}
