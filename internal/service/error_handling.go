package service

import (
	"time"

	"exposure-server/shared/models"

	"go.uber.org/zap"
)

// ErrorContext describes a failure inside a session operation.
type ErrorContext struct {
	PatientID   string
	Stage       int
	Operation   string
	OriginalErr error
}

// CentralizedErrorHandler logs session failures by kind and reports them on the event stream.
type CentralizedErrorHandler struct {
	logger *zap.Logger
	bus    *EventBus
	clock  func() time.Time
}

// NewCentralizedErrorHandler creates a handler. bus may be nil.
func NewCentralizedErrorHandler(logger *zap.Logger, bus *EventBus, clock func() time.Time) *CentralizedErrorHandler {
	if clock == nil {
		clock = time.Now
	}
	return &CentralizedErrorHandler{
		logger: logger,
		bus:    bus,
		clock:  clock,
	}
}

// HandleError logs errCtx and returns the SessionError reported to clients.
// Stale responses are only logged.
func (h *CentralizedErrorHandler) HandleError(errCtx ErrorContext) *models.SessionError {
	kind := models.ClassifyError(errCtx.OriginalErr)
	logFields := []zap.Field{
		zap.String("operation", errCtx.Operation),
		zap.String("error_kind", string(kind)),
		zap.String("patient_id", errCtx.PatientID),
		zap.Int("stage", errCtx.Stage),
		zap.Error(errCtx.OriginalErr),
	}

	switch kind {
	case models.ErrorKindValidation:
		h.logger.Warn("Validation error in session", logFields...)
	case models.ErrorKindStale:
		h.logger.Debug("Discarded stale response", logFields...)
		return nil
	case models.ErrorKindNetwork:
		h.logger.Error("Network error in session", logFields...)
	case models.ErrorKindScenario:
		h.logger.Error("Scenario backend error in session", logFields...)
	case models.ErrorKindPlayback:
		h.logger.Warn("Playback error in session", logFields...)
	default:
		h.logger.Error("Internal error in session", logFields...)
	}

	sessionErr := &models.SessionError{
		Kind:      kind,
		Message:   errCtx.OriginalErr.Error(),
		Retryable: models.IsRetryable(errCtx.OriginalErr),
	}
	if h.bus != nil {
		evt := models.NewSessionEvent(models.EventError, errCtx.PatientID, errCtx.Stage, h.clock())
		evt.Error = sessionErr
		h.bus.Publish(evt)
	}
	return sessionErr
}
