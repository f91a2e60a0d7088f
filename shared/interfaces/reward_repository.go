package interfaces

import (
	"context"

	"exposure-server/shared/models"
)

// RewardRepository persists the reward ledger of each patient.
//
//go:generate mockery --name RewardRepository --output ./mocks --outpkg mocks --case=underscore
type RewardRepository interface {
	// Get returns the stored ledger, or an empty one when the patient has none yet.
	Get(ctx context.Context, patientID string) (*models.RewardState, error)

	// Save replaces the stored ledger.
	Save(ctx context.Context, patientID string, state *models.RewardState) error
}
