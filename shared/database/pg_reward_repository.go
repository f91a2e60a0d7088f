package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"exposure-server/shared/interfaces"
	"exposure-server/shared/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Compile-time check to ensure implementation satisfies the interface.
var _ interfaces.RewardRepository = (*pgRewardRepository)(nil)

type pgRewardRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPgRewardRepository creates a Postgres-backed RewardRepository.
func NewPgRewardRepository(pool *pgxpool.Pool, logger *zap.Logger) interfaces.RewardRepository {
	return &pgRewardRepository{
		pool:   pool,
		logger: logger.Named("PgRewardRepo"),
	}
}

const getRewardLedgerQuery = `
SELECT coins, trophies, badges, session_dates
FROM patient_rewards
WHERE patient_id = $1`

const upsertRewardLedgerQuery = `
INSERT INTO patient_rewards (patient_id, coins, trophies, badges, session_dates, updated_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (patient_id) DO UPDATE SET
    coins = EXCLUDED.coins,
    trophies = EXCLUDED.trophies,
    badges = EXCLUDED.badges,
    session_dates = EXCLUDED.session_dates,
    updated_at = EXCLUDED.updated_at
`

// Get returns the stored ledger, or an empty one when no row exists yet.
func (r *pgRewardRepository) Get(ctx context.Context, patientID string) (*models.RewardState, error) {
	state := models.NewRewardState()
	var trophies, badges, dates pq.StringArray

	err := r.pool.QueryRow(ctx, getRewardLedgerQuery, patientID).Scan(
		&state.Coins,
		&trophies,
		&badges,
		&dates,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug("No reward ledger stored yet", zap.String("patientID", patientID))
			return state, nil
		}
		r.logger.Error("Failed to get reward ledger", zap.String("patientID", patientID), zap.Error(err))
		return nil, fmt.Errorf("failed to get reward ledger for patient %s: %w", patientID, err)
	}

	state.Trophies = nonNil(trophies)
	state.Badges = nonNil(badges)
	state.SessionDates = nonNil(dates)
	return state, nil
}

// Save upserts the ledger row of the patient.
func (r *pgRewardRepository) Save(ctx context.Context, patientID string, state *models.RewardState) error {
	if state == nil {
		return fmt.Errorf("%w: nil reward state", models.ErrInvalidInput)
	}
	_, err := r.pool.Exec(ctx, upsertRewardLedgerQuery,
		patientID,
		state.Coins,
		pq.StringArray(nonNil(state.Trophies)),
		pq.StringArray(nonNil(state.Badges)),
		pq.StringArray(nonNil(state.SessionDates)),
		time.Now().UTC(),
	)
	if err != nil {
		r.logger.Error("Failed to upsert reward ledger", zap.String("patientID", patientID), zap.Error(err))
		return fmt.Errorf("failed to upsert reward ledger for patient %s: %w", patientID, err)
	}
	return nil
}
