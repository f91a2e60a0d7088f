package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"exposure-server/shared/interfaces"
	"exposure-server/shared/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Compile-time check to ensure redisRewardRepository implements RewardRepository
var _ interfaces.RewardRepository = (*redisRewardRepository)(nil)

type redisRewardRepository struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisRewardRepository creates a Redis-backed RewardRepository.
// Each patient owns four keys, one per ledger field:
// rewards:{patientID}:coins -> integer
// rewards:{patientID}:trophies, :badges, :sessionDates -> JSON string arrays
func NewRedisRewardRepository(client *redis.Client, logger *zap.Logger) interfaces.RewardRepository {
	return &redisRewardRepository{
		client: client,
		logger: logger.Named("RedisRewardRepo"),
	}
}

func rewardKey(patientID, field string) string {
	return fmt.Sprintf("rewards:%s:%s", patientID, field)
}

// Get loads all four ledger keys in one round trip. Missing keys read as empty values.
func (r *redisRewardRepository) Get(ctx context.Context, patientID string) (*models.RewardState, error) {
	keys := []string{
		rewardKey(patientID, models.RewardKeyCoins),
		rewardKey(patientID, models.RewardKeyTrophies),
		rewardKey(patientID, models.RewardKeyBadges),
		rewardKey(patientID, models.RewardKeySessionDates),
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		r.logger.Error("Failed to read reward ledger from redis", zap.String("patientID", patientID), zap.Error(err))
		return nil, fmt.Errorf("failed to read reward ledger from redis: %w", err)
	}

	state := models.NewRewardState()
	if len(values) != len(keys) {
		return state, nil
	}

	if raw, ok := values[0].(string); ok && raw != "" {
		coins, convErr := strconv.Atoi(raw)
		if convErr != nil {
			return nil, fmt.Errorf("invalid coins value %q for patient %s: %w", raw, patientID, convErr)
		}
		state.Coins = coins
	}
	lists := []*[]string{&state.Trophies, &state.Badges, &state.SessionDates}
	for i, target := range lists {
		raw, ok := values[i+1].(string)
		if !ok || raw == "" {
			continue
		}
		if err := json.Unmarshal([]byte(raw), target); err != nil {
			return nil, fmt.Errorf("invalid %s value for patient %s: %w", keys[i+1], patientID, err)
		}
	}

	r.logger.Debug("Reward ledger loaded", zap.String("patientID", patientID), zap.Int("coins", state.Coins))
	return state, nil
}

// Save writes all ledger keys atomically.
func (r *redisRewardRepository) Save(ctx context.Context, patientID string, state *models.RewardState) error {
	if state == nil {
		return fmt.Errorf("%w: nil reward state", models.ErrInvalidInput)
	}
	trophies, err := json.Marshal(nonNil(state.Trophies))
	if err != nil {
		return fmt.Errorf("failed to marshal trophies: %w", err)
	}
	badges, err := json.Marshal(nonNil(state.Badges))
	if err != nil {
		return fmt.Errorf("failed to marshal badges: %w", err)
	}
	dates, err := json.Marshal(nonNil(state.SessionDates))
	if err != nil {
		return fmt.Errorf("failed to marshal session dates: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, rewardKey(patientID, models.RewardKeyCoins), state.Coins, 0)
		pipe.Set(ctx, rewardKey(patientID, models.RewardKeyTrophies), trophies, 0)
		pipe.Set(ctx, rewardKey(patientID, models.RewardKeyBadges), badges, 0)
		pipe.Set(ctx, rewardKey(patientID, models.RewardKeySessionDates), dates, 0)
		return nil
	})
	if err != nil {
		r.logger.Error("Failed to save reward ledger to redis", zap.String("patientID", patientID), zap.Error(err))
		return fmt.Errorf("failed to save reward ledger to redis: %w", err)
	}
	return nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
