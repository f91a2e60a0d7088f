package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"exposure-server/internal/playback"
	"exposure-server/shared/models"

	"go.uber.org/zap"
)

// DriverFactory creates the audio driver of a new engine.
type DriverFactory func() playback.AudioDriver

// SessionRegistry holds one engine per patient.
type SessionRegistry struct {
	mu        sync.Mutex
	engines   map[string]*SessionEngine
	deps      EngineDeps
	newDriver DriverFactory
	logger    *zap.Logger
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry(deps EngineDeps, newDriver DriverFactory) *SessionRegistry {
	return &SessionRegistry{
		engines:   make(map[string]*SessionEngine),
		deps:      deps,
		newDriver: newDriver,
		logger:    deps.Logger.Named("SessionRegistry"),
	}
}

// Get returns the engine of patientID or models.ErrNoSession.
func (r *SessionRegistry) Get(patientID string) (*SessionEngine, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	engine, ok := r.engines[patientID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrNoSession, patientID)
	}
	return engine, nil
}

// GetOrCreate returns the engine of patientID, creating it with the stored rewards if needed.
func (r *SessionRegistry) GetOrCreate(ctx context.Context, patientID string) (*SessionEngine, error) {
	if patientID == "" {
		return nil, fmt.Errorf("%w: patient id is required", models.ErrInvalidInput)
	}
	r.mu.Lock()
	if engine, ok := r.engines[patientID]; ok {
		r.mu.Unlock()
		return engine, nil
	}
	engine := NewSessionEngine(patientID, r.deps, r.newDriver())
	r.engines[patientID] = engine
	activeSessions.Inc()
	r.mu.Unlock()

	if err := engine.LoadRewards(ctx); err != nil {
		r.logger.Warn("Failed to load rewards for new engine", zap.String("patientID", patientID), zap.Error(err))
	}
	r.logger.Info("Session engine created", zap.String("patientID", patientID))
	return engine, nil
}

// Rewards returns the stored ledger of patientID, whether or not an engine exists.
func (r *SessionRegistry) Rewards(ctx context.Context, patientID string) (models.RewardState, error) {
	if r.deps.Ledger == nil {
		return *models.NewRewardState(), nil
	}
	return r.deps.Ledger.Get(ctx, patientID)
}

// Len returns the number of engines held.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.engines)
}

// Prune closes engines that have no run in progress and were unused for longer than maxIdle.
func (r *SessionRegistry) Prune(now time.Time, maxIdle time.Duration) int {
	r.mu.Lock()
	var stale []*SessionEngine
	for id, engine := range r.engines {
		last, droppable := engine.IdleSince()
		if droppable && now.Sub(last) > maxIdle {
			stale = append(stale, engine)
			delete(r.engines, id)
		}
	}
	r.mu.Unlock()

	for _, engine := range stale {
		engine.Close()
		activeSessions.Dec()
	}
	if len(stale) > 0 {
		r.logger.Info("Pruned idle session engines", zap.Int("count", len(stale)))
	}
	return len(stale)
}

// RunJanitor prunes idle engines every interval until ctx is done.
func (r *SessionRegistry) RunJanitor(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.Prune(now, maxIdle)
		}
	}
}

// Close closes every engine.
func (r *SessionRegistry) Close() {
	r.mu.Lock()
	engines := r.engines
	r.engines = make(map[string]*SessionEngine)
	r.mu.Unlock()

	for _, engine := range engines {
		engine.Close()
		activeSessions.Dec()
	}
}
