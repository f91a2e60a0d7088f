//go:build integration

package database_test

import (
	"context"
	"testing"
	"time"

	"exposure-server/shared/database"
	"exposure-server/shared/interfaces"
	"exposure-server/shared/models"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
)

// RewardRepositorySuite runs the same contract against both ledger stores.
type RewardRepositorySuite struct {
	suite.Suite
	pgContainer    *tcpostgres.PostgresContainer
	redisContainer *tcredis.RedisContainer
	pool           *pgxpool.Pool
	redisClient    *redis.Client
	repos          map[string]interfaces.RewardRepository
}

func (s *RewardRepositorySuite) SetupSuite() {
	ctx := context.Background()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:15-alpine",
		tcpostgres.WithDatabase("rewards-test"),
		tcpostgres.WithUsername("user"),
		tcpostgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(5*time.Minute),
		),
	)
	require.NoError(s.T(), err)
	s.pgContainer = pgContainer

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(s.T(), err)
	s.pool, err = pgxpool.New(ctx, connStr)
	require.NoError(s.T(), err)
	require.NoError(s.T(), database.NewMigrator(s.pool, zap.NewNop()).Up(ctx))

	redisContainer, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(s.T(), err)
	s.redisContainer = redisContainer

	redisURI, err := redisContainer.ConnectionString(ctx)
	require.NoError(s.T(), err)
	opts, err := redis.ParseURL(redisURI)
	require.NoError(s.T(), err)
	s.redisClient = redis.NewClient(opts)

	s.repos = map[string]interfaces.RewardRepository{
		"postgres": database.NewPgRewardRepository(s.pool, zap.NewNop()),
		"redis":    database.NewRedisRewardRepository(s.redisClient, zap.NewNop()),
	}
}

func (s *RewardRepositorySuite) TearDownSuite() {
	ctx := context.Background()
	if s.pool != nil {
		s.pool.Close()
	}
	if s.redisClient != nil {
		_ = s.redisClient.Close()
	}
	if s.pgContainer != nil {
		_ = s.pgContainer.Terminate(ctx)
	}
	if s.redisContainer != nil {
		_ = s.redisContainer.Terminate(ctx)
	}
}

func (s *RewardRepositorySuite) TestMigrationVersion() {
	version, dirty, err := database.NewMigrator(s.pool, zap.NewNop()).Version(context.Background())
	s.Require().NoError(err)
	s.False(dirty)
	s.Equal(uint(1), version)
}

func (s *RewardRepositorySuite) TestEmptyLedgerForUnknownPatient() {
	for name, repo := range s.repos {
		s.Run(name, func() {
			state, err := repo.Get(context.Background(), "unknown-"+name)
			s.Require().NoError(err)
			s.Equal(0, state.Coins)
			s.Empty(state.Trophies)
			s.Empty(state.Badges)
			s.Empty(state.SessionDates)
		})
	}
}

func (s *RewardRepositorySuite) TestSaveAndReload() {
	for name, repo := range s.repos {
		s.Run(name, func() {
			ctx := context.Background()
			patientID := "patient-" + name
			state := &models.RewardState{
				Coins:        30,
				Trophies:     []string{models.TrophyFirstSession},
				Badges:       []string{models.BadgeStreak3, models.BadgeFirstFeedback},
				SessionDates: []string{"2026-10-15", "2026-10-16", "2026-10-17"},
			}
			s.Require().NoError(repo.Save(ctx, patientID, state))

			loaded, err := repo.Get(ctx, patientID)
			s.Require().NoError(err)
			s.Equal(state, loaded)

			state.Coins = 40
			state.Trophies = append(state.Trophies, models.TrophyFiveSessions)
			s.Require().NoError(repo.Save(ctx, patientID, state))

			loaded, err = repo.Get(ctx, patientID)
			s.Require().NoError(err)
			s.Equal(40, loaded.Coins)
			s.Equal([]string{models.TrophyFirstSession, models.TrophyFiveSessions}, loaded.Trophies)
		})
	}
}

func TestRewardRepositorySuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode.")
	}
	suite.Run(t, new(RewardRepositorySuite))
}
