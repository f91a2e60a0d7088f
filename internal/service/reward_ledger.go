package service

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"exposure-server/shared/interfaces"
	"exposure-server/shared/models"

	"go.uber.org/zap"
)

const (
	fiveSessionsCoins = 5 * models.CoinsPerSession
	tenSessionsCoins  = 10 * models.CoinsPerSession
)

// RewardLedger applies the gamification rules and persists the result.
// Unlocks are monotonic: keys are only ever added, coins only ever grow.
type RewardLedger struct {
	mu     sync.Mutex
	repo   interfaces.RewardRepository
	clock  func() time.Time
	logger *zap.Logger
}

// NewRewardLedger creates a ledger backed by repo. clock defaults to time.Now.
func NewRewardLedger(repo interfaces.RewardRepository, clock func() time.Time, logger *zap.Logger) *RewardLedger {
	if clock == nil {
		clock = time.Now
	}
	return &RewardLedger{
		repo:   repo,
		clock:  clock,
		logger: logger.Named("RewardLedger"),
	}
}

// Get returns the stored ledger of a patient.
func (l *RewardLedger) Get(ctx context.Context, patientID string) (models.RewardState, error) {
	state, err := l.repo.Get(ctx, patientID)
	if err != nil {
		return models.RewardState{}, fmt.Errorf("failed to load rewards for %s: %w", patientID, err)
	}
	return state.Clone(), nil
}

// RecordCompletion credits one completed session and returns the newly unlocked rewards.
func (l *RewardLedger) RecordCompletion(ctx context.Context, patientID string) ([]models.RewardUnlock, models.RewardState, error) {
	return l.update(ctx, patientID, func(state *models.RewardState) []models.RewardUnlock {
		var unlocks []models.RewardUnlock
		today := l.clock().Format(models.SessionDateLayout)

		state.Coins += models.CoinsPerSession
		if !slices.Contains(state.SessionDates, today) {
			state.SessionDates = append(state.SessionDates, today)
		}

		unlocks = appendTrophy(state, unlocks, models.TrophyFirstSession)
		if state.Coins >= fiveSessionsCoins {
			unlocks = appendTrophy(state, unlocks, models.TrophyFiveSessions)
		}
		if state.Coins >= tenSessionsCoins {
			unlocks = appendTrophy(state, unlocks, models.TrophyTenSessions)
			unlocks = appendBadge(state, unlocks, models.BadgeTenSessions)
		}

		streak := CurrentStreak(state.SessionDates, l.clock())
		if streak >= 3 {
			unlocks = appendBadge(state, unlocks, models.BadgeStreak3)
		}
		if streak >= 7 {
			unlocks = appendBadge(state, unlocks, models.BadgeStreak7)
		}
		return unlocks
	})
}

// RecordFeedback unlocks the first_feedback badge. Later submissions change nothing.
func (l *RewardLedger) RecordFeedback(ctx context.Context, patientID string) ([]models.RewardUnlock, models.RewardState, error) {
	return l.update(ctx, patientID, func(state *models.RewardState) []models.RewardUnlock {
		return appendBadge(state, nil, models.BadgeFirstFeedback)
	})
}

func (l *RewardLedger) update(ctx context.Context, patientID string, apply func(*models.RewardState) []models.RewardUnlock) ([]models.RewardUnlock, models.RewardState, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	state, err := l.repo.Get(ctx, patientID)
	if err != nil {
		return nil, models.RewardState{}, fmt.Errorf("failed to load rewards for %s: %w", patientID, err)
	}
	before := state.Coins
	unlocks := apply(state)

	if err := l.repo.Save(ctx, patientID, state); err != nil {
		return nil, models.RewardState{}, fmt.Errorf("failed to save rewards for %s: %w", patientID, err)
	}

	l.logger.Info("Reward ledger updated",
		zap.String("patientID", patientID),
		zap.Int("coinsBefore", before),
		zap.Int("coins", state.Coins),
		zap.Int("newUnlocks", len(unlocks)),
	)
	for _, u := range unlocks {
		rewardsUnlockedTotal.WithLabelValues(string(u.Kind), u.Key).Inc()
	}
	return unlocks, state.Clone(), nil
}

func appendTrophy(state *models.RewardState, unlocks []models.RewardUnlock, key string) []models.RewardUnlock {
	if state.HasTrophy(key) {
		return unlocks
	}
	state.Trophies = append(state.Trophies, key)
	return append(unlocks, models.RewardUnlock{Key: key, Kind: models.RewardKindTrophy})
}

func appendBadge(state *models.RewardState, unlocks []models.RewardUnlock, key string) []models.RewardUnlock {
	if state.HasBadge(key) {
		return unlocks
	}
	state.Badges = append(state.Badges, key)
	return append(unlocks, models.RewardUnlock{Key: key, Kind: models.RewardKindBadge})
}

// CurrentStreak counts consecutive calendar days with a session, ending today.
// A streak that ended yesterday counts as zero.
func CurrentStreak(dates []string, now time.Time) int {
	days := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		days[d] = struct{}{}
	}
	streak := 0
	for day := now; ; day = day.AddDate(0, 0, -1) {
		if _, ok := days[day.Format(models.SessionDateLayout)]; !ok {
			return streak
		}
		streak++
	}
}
