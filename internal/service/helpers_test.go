package service_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"exposure-server/internal/service"
	"exposure-server/shared/interfaces/mocks"
	"exposure-server/shared/models"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memRewardRepository keeps ledgers in memory.
type memRewardRepository struct {
	mu     sync.Mutex
	states map[string]models.RewardState
}

func newMemRewardRepository() *memRewardRepository {
	return &memRewardRepository{states: make(map[string]models.RewardState)}
}

func (r *memRewardRepository) Get(ctx context.Context, patientID string) (*models.RewardState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	state, ok := r.states[patientID]
	if !ok {
		return models.NewRewardState(), nil
	}
	clone := state.Clone()
	return &clone, nil
}

func (r *memRewardRepository) Save(ctx context.Context, patientID string, state *models.RewardState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states[patientID] = state.Clone()
	return nil
}

// testDriver completes loads immediately unless hold is set.
type testDriver struct {
	mu    sync.Mutex
	hold  chan struct{}
	plays int
}

func (d *testDriver) Load(ctx context.Context, reference string) error {
	d.mu.Lock()
	hold := d.hold
	d.mu.Unlock()
	if hold != nil {
		select {
		case <-hold:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (d *testDriver) Play() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.plays++
	return nil
}

func (d *testDriver) Pause() error               { return nil }
func (d *testDriver) Rewind() error              { return nil }
func (d *testDriver) SetRate(rate float64) error { return nil }
func (d *testDriver) Unload() error              { return nil }

func (d *testDriver) playCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.plays
}

// gatedResolver answers media requests, blocking on the gate registered for a stage.
type gatedResolver struct {
	mu    sync.Mutex
	gates map[int]chan struct{}
	sound bool
	err   error
}

func (r *gatedResolver) block(stage int) chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.gates == nil {
		r.gates = make(map[int]chan struct{})
	}
	gate := make(chan struct{})
	r.gates[stage] = gate
	return gate
}

func (r *gatedResolver) Resolve(ctx context.Context, req models.MediaRequest) (*models.MediaSuggestion, error) {
	r.mu.Lock()
	gate := r.gates[req.Stage]
	sound, err := r.sound, r.err
	r.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	image := fmt.Sprintf("https://media.test/image-%d.jpg", req.Stage)
	suggestion := &models.MediaSuggestion{Image: &image}
	if sound {
		s := fmt.Sprintf("https://media.test/sound-%d.mp3", req.Stage)
		suggestion.Sound = &s
	}
	return suggestion, nil
}

type engineFixture struct {
	engine    *service.SessionEngine
	scenario  *mocks.ScenarioClient
	publisher *mocks.SessionEventPublisher
	resolver  *gatedResolver
	driver    *testDriver
	repo      *memRewardRepository
	ledger    *service.RewardLedger
	now       time.Time
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	logger := zap.NewNop()

	f := &engineFixture{
		scenario:  new(mocks.ScenarioClient),
		publisher: new(mocks.SessionEventPublisher),
		resolver:  &gatedResolver{},
		driver:    &testDriver{},
		repo:      newMemRewardRepository(),
		now:       now,
	}
	f.ledger = service.NewRewardLedger(f.repo, clock, logger)
	f.engine = service.NewSessionEngine("patient-1", service.EngineDeps{
		Scenario:  f.scenario,
		Media:     f.resolver,
		Ledger:    f.ledger,
		Publisher: f.publisher,
		Clock:     clock,
		Logger:    logger,
	}, f.driver)
	t.Cleanup(f.engine.Close)
	return f
}

func chapterResult(stage int) *models.ScenarioResult {
	audio := fmt.Sprintf("https://scenario.test/static/audio/stage-%d.mp3", stage)
	return &models.ScenarioResult{
		Outcome: models.ScenarioOutcomeChapter,
		Chapter: &models.Chapter{
			Stage:          stage,
			NarrativeText:  fmt.Sprintf("chapter %d", stage),
			AudioReference: &audio,
			ScenarioState:  scenarioState(stage),
		},
	}
}

func scenarioState(stage int) models.ScenarioState {
	return json.RawMessage(fmt.Sprintf(`{"stage":%d}`, stage))
}

func doneResult() *models.ScenarioResult {
	return &models.ScenarioResult{Outcome: models.ScenarioOutcomeDone}
}

// startAt starts the fixture's engine on stage 1 with distress 50.
func (f *engineFixture) startAt(t *testing.T, result *models.ScenarioResult) {
	t.Helper()
	f.scenario.On("Start", mock.Anything, models.StartScenarioRequest{PatientID: "patient-1", InitialDistress: 50}).
		Return(result, nil).Once()
	require.NoError(t, f.engine.Start(context.Background(), 50))
}

// waitForEvent reads events until one of type want arrives.
func waitForEvent(t *testing.T, events <-chan models.SessionEvent, want models.SessionEventType) models.SessionEvent {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case evt, ok := <-events:
			require.True(t, ok, "event stream closed before %s", want)
			if evt.Type == want {
				return evt
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s event", want)
		}
	}
}
