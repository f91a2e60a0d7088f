package service

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"exposure-server/internal/playback"
	"exposure-server/shared/interfaces"
	"exposure-server/shared/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type operationKind string

const (
	opStart   operationKind = "start"
	opAdvance operationKind = "advance"
	opRegress operationKind = "regress"
)

// scenarioOperation remembers what a network-backed transition asked for,
// so the answer can be validated and the call retried.
type scenarioOperation struct {
	kind        operationKind
	distress    models.DistressRating
	fromStage   int
	targetStage int
}

// EngineDeps are the collaborators shared by all engines.
type EngineDeps struct {
	Scenario  interfaces.ScenarioClient
	Media     interfaces.MediaResolver
	Ledger    *RewardLedger
	Publisher interfaces.SessionEventPublisher
	Clock     func() time.Time
	Logger    *zap.Logger
}

// SessionEngine drives one patient through the narrative.
//
// Every transition runs under mu. Network calls run outside it and their answers are
// applied only if epoch still matches the value taken when the call was issued;
// Start, Exit and each new scenario call bump the epoch, which makes abandoned
// answers stale. Media results are tied to viewToken the same way.
type SessionEngine struct {
	patientID string
	scenario  interfaces.ScenarioClient
	media     interfaces.MediaResolver
	ledger    *RewardLedger
	publisher interfaces.SessionEventPublisher
	player    *playback.Controller
	bus       *EventBus
	errors    *CentralizedErrorHandler
	clock     func() time.Time
	logger    *zap.Logger

	lifecycle context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	mu          sync.Mutex
	state       models.SessionState
	activeStage int
	chapters    map[int]models.Chapter
	completed   map[int]struct{}
	startedAt   *time.Time
	endedAt     *time.Time
	gateOpen    bool
	distress    *models.DistressRating
	inFlight    bool
	epoch       uint64
	viewToken   uint64
	lastErr     *models.SessionError
	retryOp     *scenarioOperation
	mediaState  *models.MediaSuggestion
	rewards     models.RewardState
	lastTouched time.Time

	// stage mirrors activeStage for the playback listener, which must not take mu.
	stage atomic.Int64
}

// NewSessionEngine creates an idle engine for patientID that plays narration through driver.
func NewSessionEngine(patientID string, deps EngineDeps, driver playback.AudioDriver) *SessionEngine {
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger.Named("SessionEngine").With(zap.String("patientID", patientID))
	bus := NewEventBus(logger)
	lifecycle, cancel := context.WithCancel(context.Background())

	e := &SessionEngine{
		patientID:   patientID,
		scenario:    deps.Scenario,
		media:       deps.Media,
		ledger:      deps.Ledger,
		publisher:   deps.Publisher,
		player:      playback.NewController(driver, logger),
		bus:         bus,
		errors:      NewCentralizedErrorHandler(logger, bus, clock),
		clock:       clock,
		logger:      logger,
		lifecycle:   lifecycle,
		cancel:      cancel,
		state:       models.SessionStateIdle,
		chapters:    make(map[int]models.Chapter),
		completed:   make(map[int]struct{}),
		rewards:     *models.NewRewardState(),
		lastTouched: clock(),
	}
	e.player.OnStatusChange(func(state models.PlaybackState) {
		evt := models.NewSessionEvent(models.EventPlaybackStatusChanged, e.patientID, int(e.stage.Load()), e.clock())
		evt.Playback = &state
		e.bus.Publish(evt)
	})
	return e
}

// PatientID returns the patient the engine belongs to.
func (e *SessionEngine) PatientID() string {
	return e.patientID
}

// Subscribe streams future events. The returned function ends the subscription.
func (e *SessionEngine) Subscribe(buffer int) (<-chan models.SessionEvent, func()) {
	return e.bus.Subscribe(buffer)
}

// LoadRewards refreshes the cached reward ledger shown in snapshots.
func (e *SessionEngine) LoadRewards(ctx context.Context) error {
	if e.ledger == nil {
		return nil
	}
	state, err := e.ledger.Get(ctx, e.patientID)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.rewards = state
	e.mu.Unlock()
	return nil
}

// Start begins a new run. It is legal from Idle, Completed and Errored.
func (e *SessionEngine) Start(ctx context.Context, initialDistress models.DistressRating) error {
	if err := initialDistress.Validate(); err != nil {
		return e.reject(opStart, 0, err)
	}

	e.mu.Lock()
	if e.inFlight {
		stage := e.activeStage
		e.mu.Unlock()
		return e.reject(opStart, stage, models.ErrOperationInFlight)
	}
	switch e.state {
	case models.SessionStateIdle, models.SessionStateCompleted, models.SessionStateErrored:
	default:
		state, stage := e.state, e.activeStage
		e.mu.Unlock()
		return e.reject(opStart, stage, fmt.Errorf("%w: cannot start while %s", models.ErrInvalidTransition, state))
	}

	e.resetRunLocked()
	e.state = models.SessionStateLoading
	e.distress = &initialDistress
	op := scenarioOperation{kind: opStart, distress: initialDistress}
	epoch := e.beginLocked()
	e.player.Unload()
	e.mu.Unlock()

	e.logger.Info("Starting session", zap.Int("initialDistress", int(initialDistress)))
	res, err := e.scenario.Start(ctx, models.StartScenarioRequest{
		PatientID:       e.patientID,
		InitialDistress: initialDistress,
	})
	return e.complete(ctx, epoch, op, res, err)
}

// SubmitRating records the patient's distress for the active chapter and opens the gate.
func (e *SessionEngine) SubmitRating(distress models.DistressRating) error {
	e.mu.Lock()
	stage := e.activeStage
	if err := distress.Validate(); err != nil {
		e.mu.Unlock()
		return e.reject("rating", stage, err)
	}
	if e.state != models.SessionStateActive {
		state := e.state
		e.mu.Unlock()
		return e.reject("rating", stage, fmt.Errorf("%w: cannot rate while %s", models.ErrInvalidTransition, state))
	}
	e.distress = &distress
	e.gateOpen = true
	e.touchLocked()

	evt := models.NewSessionEvent(models.EventRatingSubmitted, e.patientID, stage, e.clock())
	evt.Distress = &distress
	e.bus.Publish(evt)
	e.mu.Unlock()
	return nil
}

// Exit abandons the run. It is legal from Active, Loading and Errored; an outstanding
// scenario call is not cancelled but its answer will be discarded.
func (e *SessionEngine) Exit(ctx context.Context) error {
	e.mu.Lock()
	switch e.state {
	case models.SessionStateActive, models.SessionStateLoading, models.SessionStateErrored:
	default:
		state, stage := e.state, e.activeStage
		e.mu.Unlock()
		return e.reject("exit", stage, fmt.Errorf("%w: cannot exit while %s", models.ErrInvalidTransition, state))
	}

	now := e.clock()
	e.endedAt = &now
	record := models.SessionExitRecord{
		Type:              models.MessageSessionExit,
		PatientID:         e.patientID,
		ExitTime:          now,
		StartedAt:         copyTime(e.startedAt),
		DurationSeconds:   e.durationLocked(now),
		ChaptersCompleted: len(e.completed),
		CurrentStage:      e.activeStage,
		FinalDistress:     copyDistress(e.distress),
	}

	e.epoch++
	e.inFlight = false
	e.state = models.SessionStateIdle
	e.gateOpen = false
	e.retryOp = nil
	e.lastErr = nil
	e.viewToken++
	e.mediaState = nil
	e.touchLocked()
	e.player.Unload()
	e.bus.Publish(models.NewSessionEvent(models.EventSessionExited, e.patientID, e.activeStage, now))
	e.mu.Unlock()

	sessionsExitedTotal.Inc()
	e.logger.Info("Session exited",
		zap.Int("stage", record.CurrentStage),
		zap.Int("chaptersCompleted", record.ChaptersCompleted),
	)

	if e.publisher != nil {
		if err := e.publisher.PublishSessionExit(context.WithoutCancel(ctx), record); err != nil {
			e.logger.Warn("Failed to publish session exit", zap.Error(err))
		}
	}
	return nil
}

// Retry re-issues the last failed scenario operation with its original arguments.
func (e *SessionEngine) Retry(ctx context.Context) error {
	e.mu.Lock()
	op := e.retryOp
	stage := e.activeStage
	e.mu.Unlock()

	if op == nil {
		return e.reject("retry", stage, models.ErrNothingToRetry)
	}
	e.logger.Info("Retrying failed operation", zap.String("operation", string(op.kind)))
	switch op.kind {
	case opStart:
		return e.Start(ctx, op.distress)
	case opAdvance:
		return e.advance(ctx, op.distress, true)
	default:
		return e.regress(ctx, op.targetStage, true)
	}
}

// SubmitFeedback forwards the post-session questionnaire and unlocks first_feedback.
func (e *SessionEngine) SubmitFeedback(ctx context.Context, feedback models.SessionFeedback) (models.SessionFeedback, error) {
	if err := feedback.Validate(); err != nil {
		return feedback, e.reject("feedback", 0, err)
	}
	feedback.Type = models.MessageSessionFeedback
	feedback.ID = uuid.New()
	feedback.PatientID = e.patientID
	feedback.SubmittedAt = e.clock()

	if e.publisher != nil {
		if err := e.publisher.PublishSessionFeedback(ctx, feedback); err != nil {
			e.logger.Error("Failed to publish session feedback", zap.Error(err))
			return feedback, fmt.Errorf("%w: failed to deliver feedback: %v", models.ErrNetwork, err)
		}
	}
	if e.ledger == nil {
		return feedback, nil
	}

	unlocks, rewards, err := e.ledger.RecordFeedback(context.WithoutCancel(ctx), e.patientID)
	if err != nil {
		e.errors.HandleError(ErrorContext{PatientID: e.patientID, Operation: "feedback", OriginalErr: err})
		return feedback, err
	}
	e.applyRewards(rewards, unlocks)
	return feedback, nil
}

// TogglePlayback plays or pauses the active chapter's narration.
func (e *SessionEngine) TogglePlayback() error {
	if err := e.player.PlayPause(); err != nil {
		return e.reject("playback", int(e.stage.Load()), err)
	}
	return nil
}

// ChangePlaybackRate adjusts the narration rate by delta and returns the new rate.
func (e *SessionEngine) ChangePlaybackRate(delta float64) float64 {
	return e.player.SetRate(delta)
}

// PlaybackFinished is reported by the device when narration reached its end.
func (e *SessionEngine) PlaybackFinished() error {
	return e.player.HandleFinished()
}

// Snapshot returns a deep copy of everything needed to render the session.
func (e *SessionEngine) Snapshot() models.SessionSnapshot {
	e.mu.Lock()
	completed := slices.Sorted(maps.Keys(e.completed))
	if completed == nil {
		completed = []int{}
	}
	run := models.SessionRun{
		PatientID:       e.patientID,
		State:           e.state,
		ActiveStage:     e.activeStage,
		Chapters:        maps.Clone(e.chapters),
		CompletedStages: completed,
		StartedAt:       copyTime(e.startedAt),
		EndedAt:         copyTime(e.endedAt),
		GateOpen:        e.gateOpen,
		CurrentDistress: copyDistress(e.distress),
		InFlight:        e.inFlight,
	}
	if e.lastErr != nil {
		lastErr := *e.lastErr
		run.LastError = &lastErr
	}
	var media *models.MediaSuggestion
	if e.mediaState != nil {
		m := *e.mediaState
		media = &m
	}
	rewards := e.rewards.Clone()
	e.mu.Unlock()

	return models.SessionSnapshot{
		Run:      run,
		Media:    media,
		Playback: e.player.State(),
		Rewards:  rewards,
	}
}

// IdleSince reports when the engine was last used and whether it is safe to drop,
// which is the case when no run is in progress.
func (e *SessionEngine) IdleSince() (time.Time, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	droppable := !e.inFlight && (e.state == models.SessionStateIdle || e.state == models.SessionStateCompleted)
	return e.lastTouched, droppable
}

// Close stops background work and ends all subscriptions.
func (e *SessionEngine) Close() {
	e.cancel()
	e.player.Unload()
	e.wg.Wait()
	e.bus.Close()
}

func (e *SessionEngine) resetRunLocked() {
	e.activeStage = 0
	e.stage.Store(0)
	e.chapters = make(map[int]models.Chapter)
	e.completed = make(map[int]struct{})
	e.startedAt = nil
	e.endedAt = nil
	e.gateOpen = false
	e.distress = nil
	e.lastErr = nil
	e.retryOp = nil
	e.mediaState = nil
	e.viewToken++
}

// beginLocked marks a scenario call as outstanding and returns its epoch.
func (e *SessionEngine) beginLocked() uint64 {
	e.epoch++
	e.inFlight = true
	e.touchLocked()
	return e.epoch
}

func (e *SessionEngine) touchLocked() {
	e.lastTouched = e.clock()
}

func (e *SessionEngine) durationLocked(now time.Time) int64 {
	if e.startedAt == nil {
		return 0
	}
	return int64(now.Sub(*e.startedAt).Seconds())
}

// reject reports a synchronous refusal on the event stream and returns err.
func (e *SessionEngine) reject(operation operationKind, stage int, err error) error {
	e.errors.HandleError(ErrorContext{
		PatientID:   e.patientID,
		Stage:       stage,
		Operation:   string(operation),
		OriginalErr: err,
	})
	return err
}

func (e *SessionEngine) applyRewards(rewards models.RewardState, unlocks []models.RewardUnlock) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rewards = rewards
	now := e.clock()
	for _, unlock := range unlocks {
		u := unlock
		evt := models.NewSessionEvent(models.EventRewardUnlocked, e.patientID, e.activeStage, now)
		evt.Reward = &u
		e.bus.Publish(evt)
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func copyDistress(d *models.DistressRating) *models.DistressRating {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}
