package service_test

import (
	"context"
	"testing"
	"time"

	"exposure-server/internal/playback"
	"exposure-server/internal/service"
	"exposure-server/shared/interfaces/mocks"
	"exposure-server/shared/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestRegistry(t *testing.T, repo *memRewardRepository, scenario *mocks.ScenarioClient) *service.SessionRegistry {
	t.Helper()
	logger := zap.NewNop()
	registry := service.NewSessionRegistry(service.EngineDeps{
		Scenario: scenario,
		Ledger:   service.NewRewardLedger(repo, nil, logger),
		Logger:   logger,
	}, func() playback.AudioDriver { return &testDriver{} })
	t.Cleanup(registry.Close)
	return registry
}

func TestSessionRegistry_GetOrCreate(t *testing.T) {
	repo := newMemRewardRepository()
	require.NoError(t, repo.Save(context.Background(), "p1", &models.RewardState{Coins: 40}))
	registry := newTestRegistry(t, repo, new(mocks.ScenarioClient))

	_, err := registry.Get("p1")
	assert.ErrorIs(t, err, models.ErrNoSession)

	_, err = registry.GetOrCreate(context.Background(), "")
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	engine, err := registry.GetOrCreate(context.Background(), "p1")
	require.NoError(t, err)
	again, err := registry.GetOrCreate(context.Background(), "p1")
	require.NoError(t, err)
	assert.Same(t, engine, again)
	assert.Equal(t, 1, registry.Len())
	assert.Equal(t, 40, engine.Snapshot().Rewards.Coins)

	got, err := registry.Get("p1")
	require.NoError(t, err)
	assert.Same(t, engine, got)

	rewards, err := registry.Rewards(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, rewards.Coins)
}

func TestSessionRegistry_PruneKeepsRunningSessions(t *testing.T) {
	scenario := new(mocks.ScenarioClient)
	scenario.On("Start", mock.Anything, mock.Anything).Return(chapterResult(1), nil).Once()
	registry := newTestRegistry(t, newMemRewardRepository(), scenario)
	ctx := context.Background()

	_, err := registry.GetOrCreate(ctx, "idle")
	require.NoError(t, err)
	running, err := registry.GetOrCreate(ctx, "running")
	require.NoError(t, err)
	require.NoError(t, running.Start(ctx, 30))

	pruned := registry.Prune(time.Now().Add(time.Hour), time.Minute)
	assert.Equal(t, 1, pruned)
	_, err = registry.Get("idle")
	assert.ErrorIs(t, err, models.ErrNoSession)
	_, err = registry.Get("running")
	assert.NoError(t, err)
}
