package playback

import (
	"context"
	"fmt"
	"math"
	"sync"

	"exposure-server/shared/models"

	"go.uber.org/zap"
)

// AudioDriver performs the actual audio work for a Controller.
// The controller serialises calls, so drivers hold at most one resource.
type AudioDriver interface {
	Load(ctx context.Context, reference string) error
	Play() error
	Pause() error
	Rewind() error
	SetRate(rate float64) error
	Unload() error
}

// StatusListener is called after every state change, outside the controller lock.
type StatusListener func(state models.PlaybackState)

// Controller owns the narration of the active chapter.
//
// Loads complete asynchronously. A PlayPause issued while loading is remembered
// and applied once when the load finishes, and the one-shot auto-play flag is
// consumed the same way, so one load produces at most one play.
type Controller struct {
	mu       sync.Mutex
	driver   AudioDriver
	logger   *zap.Logger
	listener StatusListener

	status          models.PlaybackStatus
	rate            float64
	reference       string
	positionAtStart bool
	lastError       string

	// loadToken identifies the current resource; completions carrying an older token are ignored.
	loadToken   uint64
	pendingPlay bool
	autoPlay    bool
	autoPlayArm bool
}

// NewController creates an idle controller.
func NewController(driver AudioDriver, logger *zap.Logger) *Controller {
	return &Controller{
		driver: driver,
		logger: logger.Named("PlaybackController"),
		status: models.PlaybackIdle,
		rate:   models.DefaultPlaybackRate,
	}
}

// OnStatusChange registers the listener notified on every state change.
func (c *Controller) OnStatusChange(listener StatusListener) {
	c.mu.Lock()
	c.listener = listener
	c.mu.Unlock()
}

// State returns the current playback state.
func (c *Controller) State() models.PlaybackState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

// Load unloads any current resource and starts loading reference in the background.
// The auto-play flag is re-armed for the new resource.
func (c *Controller) Load(ctx context.Context, reference string) {
	c.mu.Lock()
	c.unloadLocked()
	c.loadToken++
	token := c.loadToken
	c.status = models.PlaybackLoading
	c.reference = reference
	c.autoPlayArm = true
	state := c.stateLocked()
	listener := c.listener
	c.mu.Unlock()

	c.logger.Debug("Loading narration", zap.String("reference", reference), zap.Uint64("token", token))
	notify(listener, state)

	go func() {
		err := c.driver.Load(ctx, reference)
		c.completeLoad(token, err)
	}()
}

func (c *Controller) completeLoad(token uint64, loadErr error) {
	c.mu.Lock()
	if token != c.loadToken {
		c.mu.Unlock()
		c.logger.Debug("Discarding stale narration load", zap.Uint64("token", token))
		return
	}

	if loadErr != nil {
		c.status = models.PlaybackError
		c.lastError = loadErr.Error()
		c.pendingPlay = false
		c.autoPlay = false
		state := c.stateLocked()
		listener := c.listener
		c.mu.Unlock()
		c.logger.Warn("Narration failed to load", zap.String("reference", state.Reference), zap.Error(loadErr))
		notify(listener, state)
		return
	}

	c.status = models.PlaybackPaused
	c.positionAtStart = true
	if err := c.driver.SetRate(c.rate); err != nil {
		c.logger.Warn("Driver rejected playback rate", zap.Float64("rate", c.rate), zap.Error(err))
	}
	if c.pendingPlay || c.autoPlay {
		c.pendingPlay = false
		c.autoPlay = false
		c.playLocked()
	}
	state := c.stateLocked()
	listener := c.listener
	c.mu.Unlock()
	notify(listener, state)
}

// RequestAutoPlay arms the one-shot auto-start for the resource currently loading.
// It reports whether the request was accepted; a resource auto-plays at most once.
func (c *Controller) RequestAutoPlay() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != models.PlaybackLoading || !c.autoPlayArm {
		return false
	}
	c.autoPlayArm = false
	c.autoPlay = true
	return true
}

// PlayPause toggles playback. While loading the request is deferred until the load completes.
func (c *Controller) PlayPause() error {
	c.mu.Lock()
	var err error
	changed := true
	switch c.status {
	case models.PlaybackIdle:
		err = models.ErrNoAudio
		changed = false
	case models.PlaybackError:
		err = fmt.Errorf("%w: %s", models.ErrPlaybackUnavailable, c.lastError)
		changed = false
	case models.PlaybackLoading:
		c.pendingPlay = true
	case models.PlaybackPlaying:
		if pauseErr := c.driver.Pause(); pauseErr != nil {
			c.failLocked(pauseErr)
			err = fmt.Errorf("%w: %v", models.ErrPlaybackUnavailable, pauseErr)
			break
		}
		c.status = models.PlaybackPaused
	case models.PlaybackPaused, models.PlaybackFinished:
		c.playLocked()
		if c.status == models.PlaybackError {
			err = fmt.Errorf("%w: %s", models.ErrPlaybackUnavailable, c.lastError)
		}
	}
	state := c.stateLocked()
	listener := c.listener
	c.mu.Unlock()

	if changed {
		notify(listener, state)
	}
	return err
}

// SetRate changes the playback rate by delta, snapped to 0.25 steps within [0.5, 2.0].
func (c *Controller) SetRate(delta float64) float64 {
	c.mu.Lock()
	c.rate = ClampRate(c.rate + delta)
	if c.loadedLocked() {
		if err := c.driver.SetRate(c.rate); err != nil {
			c.logger.Warn("Driver rejected playback rate", zap.Float64("rate", c.rate), zap.Error(err))
		}
	}
	rate := c.rate
	state := c.stateLocked()
	listener := c.listener
	c.mu.Unlock()
	notify(listener, state)
	return rate
}

// HandleFinished is called when the narration reached its end.
// The position is rewound and the status stays Finished until PlayPause.
func (c *Controller) HandleFinished() error {
	c.mu.Lock()
	if c.status != models.PlaybackPlaying {
		c.mu.Unlock()
		return fmt.Errorf("%w: playback is %s", models.ErrInvalidTransition, c.status)
	}
	if err := c.driver.Rewind(); err != nil {
		c.logger.Warn("Failed to rewind finished narration", zap.Error(err))
	}
	c.status = models.PlaybackFinished
	c.positionAtStart = true
	state := c.stateLocked()
	listener := c.listener
	c.mu.Unlock()
	notify(listener, state)
	return nil
}

// Unload releases the current resource. Outstanding loads become stale.
func (c *Controller) Unload() {
	c.mu.Lock()
	wasIdle := c.status == models.PlaybackIdle
	c.unloadLocked()
	c.loadToken++
	state := c.stateLocked()
	listener := c.listener
	c.mu.Unlock()
	if !wasIdle {
		notify(listener, state)
	}
}

func (c *Controller) unloadLocked() {
	if c.status != models.PlaybackIdle {
		if err := c.driver.Unload(); err != nil {
			c.logger.Warn("Driver failed to unload narration", zap.String("reference", c.reference), zap.Error(err))
		}
	}
	c.status = models.PlaybackIdle
	c.reference = ""
	c.positionAtStart = false
	c.lastError = ""
	c.pendingPlay = false
	c.autoPlay = false
	c.autoPlayArm = false
}

func (c *Controller) playLocked() {
	if err := c.driver.Play(); err != nil {
		c.failLocked(err)
		return
	}
	c.status = models.PlaybackPlaying
	c.positionAtStart = false
}

func (c *Controller) failLocked(err error) {
	c.status = models.PlaybackError
	c.lastError = err.Error()
	c.logger.Warn("Playback error", zap.String("reference", c.reference), zap.Error(err))
}

func (c *Controller) loadedLocked() bool {
	switch c.status {
	case models.PlaybackPlaying, models.PlaybackPaused, models.PlaybackFinished:
		return true
	default:
		return false
	}
}

func (c *Controller) stateLocked() models.PlaybackState {
	return models.PlaybackState{
		Status:          c.status,
		Rate:            c.rate,
		PositionAtStart: c.positionAtStart,
		Reference:       c.reference,
		Error:           c.lastError,
	}
}

func notify(listener StatusListener, state models.PlaybackState) {
	if listener != nil {
		listener(state)
	}
}

// ClampRate snaps rate to the nearest 0.25 step and clamps it to [0.5, 2.0].
func ClampRate(rate float64) float64 {
	snapped := math.Round(rate/models.PlaybackRateStep) * models.PlaybackRateStep
	return math.Min(models.MaxPlaybackRate, math.Max(models.MinPlaybackRate, snapped))
}
