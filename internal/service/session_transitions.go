package service

import (
	"context"
	"fmt"

	"exposure-server/shared/models"

	"go.uber.org/zap"
)

const (
	directionForward  = "forward"
	directionBackward = "backward"
	directionStart    = "start"

	sourceCache   = "cache"
	sourceBackend = "backend"
)

// Advance completes the active chapter and moves to the next one. The gate must be open.
// A next chapter already cached in this run is shown without a network call.
func (e *SessionEngine) Advance(ctx context.Context, distress models.DistressRating) error {
	if err := distress.Validate(); err != nil {
		return e.reject(opAdvance, int(e.stage.Load()), err)
	}
	return e.advance(ctx, distress, false)
}

// Regress moves back to an earlier stage of the run. Cached stages need no network call.
func (e *SessionEngine) Regress(ctx context.Context, targetStage int) error {
	return e.regress(ctx, targetStage, false)
}

func (e *SessionEngine) advance(ctx context.Context, distress models.DistressRating, retry bool) error {
	e.mu.Lock()
	from := e.activeStage
	if err := e.checkNavigableLocked(retry); err != nil {
		e.mu.Unlock()
		return e.reject(opAdvance, from, err)
	}
	if !e.gateOpen {
		e.mu.Unlock()
		return e.reject(opAdvance, from, models.ErrRatingRequired)
	}
	e.distress = &distress

	if next, ok := e.chapters[from+1]; ok {
		e.completed[from] = struct{}{}
		e.enterStageLocked(next, directionForward, sourceCache)
		e.mu.Unlock()
		return nil
	}

	current := e.chapters[from]
	op := scenarioOperation{kind: opAdvance, distress: distress, fromStage: from, targetStage: from + 1}
	e.state = models.SessionStateLoading
	epoch := e.beginLocked()
	e.mu.Unlock()

	res, err := e.scenario.Advance(ctx, models.AdvanceScenarioRequest{
		PatientID:       e.patientID,
		CurrentDistress: distress,
		ScenarioState:   current.ScenarioState,
	})
	return e.complete(ctx, epoch, op, res, err)
}

func (e *SessionEngine) regress(ctx context.Context, targetStage int, retry bool) error {
	e.mu.Lock()
	from := e.activeStage
	if err := e.checkNavigableLocked(retry); err != nil {
		e.mu.Unlock()
		return e.reject(opRegress, from, err)
	}
	if targetStage < 1 || targetStage >= from {
		e.mu.Unlock()
		return e.reject(opRegress, from, fmt.Errorf("%w: cannot go back from %d to %d", models.ErrInvalidStage, from, targetStage))
	}

	if cached, ok := e.chapters[targetStage]; ok {
		e.evictCompletedLocked(targetStage)
		e.enterStageLocked(cached, directionBackward, sourceCache)
		e.mu.Unlock()
		return nil
	}

	current := e.chapters[from]
	op := scenarioOperation{kind: opRegress, fromStage: from, targetStage: targetStage}
	e.state = models.SessionStateLoading
	epoch := e.beginLocked()
	e.mu.Unlock()

	res, err := e.scenario.Regress(ctx, models.RegressScenarioRequest{
		PatientID:     e.patientID,
		TargetStage:   targetStage,
		ScenarioState: current.ScenarioState,
	})
	return e.complete(ctx, epoch, op, res, err)
}

// checkNavigableLocked allows navigation from Active, and from Errored when retrying.
func (e *SessionEngine) checkNavigableLocked(retry bool) error {
	if e.inFlight {
		return models.ErrOperationInFlight
	}
	if e.state == models.SessionStateActive || (retry && e.state == models.SessionStateErrored) {
		return nil
	}
	return fmt.Errorf("%w: cannot navigate while %s", models.ErrInvalidTransition, e.state)
}

// complete applies the answer of a scenario call issued under epoch.
func (e *SessionEngine) complete(ctx context.Context, epoch uint64, op scenarioOperation, res *models.ScenarioResult, callErr error) error {
	e.mu.Lock()
	if epoch != e.epoch {
		e.mu.Unlock()
		staleResponsesTotal.WithLabelValues("scenario").Inc()
		scenarioRequestsTotal.WithLabelValues(string(op.kind), "stale").Inc()
		err := fmt.Errorf("%w: %s answer arrived after the session moved on", models.ErrStaleResponse, op.kind)
		e.errors.HandleError(ErrorContext{PatientID: e.patientID, Stage: op.fromStage, Operation: string(op.kind), OriginalErr: err})
		return err
	}
	e.inFlight = false

	err := callErr
	if err == nil {
		err = validateResult(op, res)
	}
	if err != nil {
		e.state = models.SessionStateErrored
		retryOp := op
		e.retryOp = &retryOp
		e.lastErr = e.errors.HandleError(ErrorContext{
			PatientID:   e.patientID,
			Stage:       e.activeStage,
			Operation:   string(op.kind),
			OriginalErr: err,
		})
		e.mu.Unlock()
		scenarioRequestsTotal.WithLabelValues(string(op.kind), "error").Inc()
		return fmt.Errorf("%s failed: %w", op.kind, err)
	}
	scenarioRequestsTotal.WithLabelValues(string(op.kind), string(res.Outcome)).Inc()

	if res.Outcome == models.ScenarioOutcomeDone {
		record := e.completeRunLocked()
		e.mu.Unlock()
		e.finishRun(ctx, record)
		return nil
	}

	chapter := *res.Chapter
	if cached, ok := e.chapters[chapter.Stage]; ok {
		chapter = cached
	} else {
		e.chapters[chapter.Stage] = chapter
	}

	direction := directionForward
	switch op.kind {
	case opStart:
		now := e.clock()
		e.startedAt = &now
		direction = directionStart
	case opAdvance:
		e.completed[op.fromStage] = struct{}{}
	case opRegress:
		e.evictCompletedLocked(chapter.Stage)
		direction = directionBackward
	}
	e.enterStageLocked(chapter, direction, sourceBackend)
	e.mu.Unlock()
	return nil
}

func validateResult(op scenarioOperation, res *models.ScenarioResult) error {
	if res == nil {
		return fmt.Errorf("%w: empty scenario result", models.ErrMalformedResponse)
	}
	if res.Outcome == models.ScenarioOutcomeDone {
		if op.kind != opAdvance {
			return fmt.Errorf("%w: %s cannot end the narrative", models.ErrMalformedResponse, op.kind)
		}
		return nil
	}
	if res.Chapter == nil || res.Chapter.Stage < 1 {
		return fmt.Errorf("%w: scenario result without a chapter", models.ErrMalformedResponse)
	}
	if op.kind != opStart && res.Chapter.Stage != op.targetStage {
		return fmt.Errorf("%w: expected stage %d, got %d", models.ErrMalformedResponse, op.targetStage, res.Chapter.Stage)
	}
	return nil
}

// evictCompletedLocked drops every completed stage at or beyond stage.
func (e *SessionEngine) evictCompletedLocked(stage int) {
	for s := range e.completed {
		if s >= stage {
			delete(e.completed, s)
		}
	}
}

// enterStageLocked shows chapter: the gate closes, narration loads and media resolution starts.
func (e *SessionEngine) enterStageLocked(chapter models.Chapter, direction, source string) {
	e.activeStage = chapter.Stage
	e.stage.Store(int64(chapter.Stage))
	e.state = models.SessionStateActive
	e.gateOpen = false
	e.lastErr = nil
	e.retryOp = nil
	e.mediaState = nil
	e.viewToken++
	e.touchLocked()

	stageTransitionsTotal.WithLabelValues(direction, source).Inc()
	e.logger.Info("Stage changed",
		zap.Int("stage", chapter.Stage),
		zap.String("direction", direction),
		zap.String("source", source),
	)
	e.bus.Publish(models.NewSessionEvent(models.EventStageChanged, e.patientID, chapter.Stage, e.clock()))

	if chapter.HasAudio() {
		e.player.Load(e.lifecycle, *chapter.AudioReference)
	} else {
		e.player.Unload()
	}

	if e.media == nil {
		return
	}
	token := e.viewToken
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.resolveMedia(token, chapter)
	}()
}

// resolveMedia fetches the ambient media of chapter and applies it if the stage is still shown.
func (e *SessionEngine) resolveMedia(token uint64, chapter models.Chapter) {
	suggestion, err := e.media.Resolve(e.lifecycle, models.MediaRequest{
		PatientID:     e.patientID,
		Stage:         chapter.Stage,
		NarrativeText: chapter.NarrativeText,
	})

	e.mu.Lock()
	defer e.mu.Unlock()
	if token != e.viewToken {
		staleResponsesTotal.WithLabelValues("media").Inc()
		e.logger.Debug("Discarded media for a stage no longer shown", zap.Int("stage", chapter.Stage))
		return
	}

	now := e.clock()
	if err != nil {
		mediaResolutionsTotal.WithLabelValues("error").Inc()
		e.logger.Warn("Media resolution failed", zap.Int("stage", chapter.Stage), zap.Error(err))
		failed := models.MediaSuggestion{Stage: chapter.Stage, Failed: true, Message: err.Error()}
		e.mediaState = &failed
		evt := models.NewSessionEvent(models.EventMediaFailed, e.patientID, chapter.Stage, now)
		evt.Media = &failed
		e.bus.Publish(evt)
		return
	}

	resolved := models.MediaSuggestion{Stage: chapter.Stage}
	if suggestion != nil {
		resolved = *suggestion
		resolved.Stage = chapter.Stage
	}
	e.mediaState = &resolved
	mediaResolutionsTotal.WithLabelValues("success").Inc()

	evt := models.NewSessionEvent(models.EventMediaResolved, e.patientID, chapter.Stage, now)
	media := resolved
	evt.Media = &media
	e.bus.Publish(evt)

	if resolved.HasSound() && e.player.RequestAutoPlay() {
		e.logger.Debug("Narration auto-play requested", zap.Int("stage", chapter.Stage))
	}
}

// completeRunLocked marks the run completed and returns the record for the collaborator.
func (e *SessionEngine) completeRunLocked() models.SessionCompletedRecord {
	last := e.activeStage
	e.completed[last] = struct{}{}
	now := e.clock()
	e.endedAt = &now
	e.state = models.SessionStateCompleted
	e.gateOpen = false
	e.lastErr = nil
	e.retryOp = nil
	e.mediaState = nil
	e.viewToken++
	e.touchLocked()
	e.player.Unload()
	e.bus.Publish(models.NewSessionEvent(models.EventSessionCompleted, e.patientID, last, now))

	return models.SessionCompletedRecord{
		Type:              models.MessageSessionCompleted,
		PatientID:         e.patientID,
		StartedAt:         copyTime(e.startedAt),
		EndedAt:           now,
		DurationSeconds:   e.durationLocked(now),
		ChaptersCompleted: len(e.completed),
		FinalDistress:     copyDistress(e.distress),
	}
}

// finishRun credits the completed run in the reward ledger and notifies the collaborator.
func (e *SessionEngine) finishRun(ctx context.Context, record models.SessionCompletedRecord) {
	sessionsCompletedTotal.Inc()
	e.logger.Info("Session completed",
		zap.Int("chaptersCompleted", record.ChaptersCompleted),
		zap.Int64("durationSeconds", record.DurationSeconds),
	)
	detached := context.WithoutCancel(ctx)

	if e.ledger != nil {
		unlocks, rewards, err := e.ledger.RecordCompletion(detached, e.patientID)
		if err != nil {
			e.errors.HandleError(ErrorContext{PatientID: e.patientID, Operation: "rewards", OriginalErr: err})
		} else {
			e.applyRewards(rewards, unlocks)
			record.Coins = rewards.Coins
		}
	}

	if e.publisher != nil {
		if err := e.publisher.PublishSessionCompleted(detached, record); err != nil {
			e.logger.Warn("Failed to publish session completion", zap.Error(err))
		}
	}
}
