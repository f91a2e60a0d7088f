package models

import (
	"errors"
	"fmt"
)

// Application-wide standard errors
var (
	// Common Resource/DB Errors
	ErrNotFound = errors.New("resource not found")

	// Session Progression Errors
	ErrRatingRequired    = errors.New("select a distress rating before continuing")
	ErrInvalidDistress   = errors.New("distress rating must be one of 10, 20, ..., 100")
	ErrInvalidTransition = errors.New("operation is not allowed in the current session state")
	ErrInvalidStage      = errors.New("target stage must be earlier than the active stage")
	ErrOperationInFlight = errors.New("another scenario request is already in progress")
	ErrNoSession         = errors.New("no session exists for this patient")
	ErrNothingToRetry    = errors.New("there is no failed operation to retry")
	ErrStaleResponse     = errors.New("response no longer matches the session state")

	// Boundary Errors
	ErrNetwork           = errors.New("network error")
	ErrMalformedResponse = errors.New("malformed response")

	// Playback Errors
	ErrNoAudio             = errors.New("no audio is loaded for the active chapter")
	ErrPlaybackUnavailable = errors.New("audio playback is unavailable")

	// General Request/Server Errors
	ErrInternalServer = errors.New("internal server error")
	ErrBadRequest     = errors.New("bad request")
	ErrInvalidInput   = errors.New("invalid input data")
)

// ErrorKind classifies failures surfaced to the session event stream.
type ErrorKind string

const (
	ErrorKindNetwork    ErrorKind = "network"
	ErrorKindValidation ErrorKind = "validation"
	ErrorKindScenario   ErrorKind = "scenario"
	ErrorKindStale      ErrorKind = "stale"
	ErrorKindPlayback   ErrorKind = "playback"
	ErrorKindInternal   ErrorKind = "internal"
)

// ScenarioError is returned when the narrative backend answers with status "error".
// The backend is reachable, so it is retryable like a network failure.
type ScenarioError struct {
	Message string
}

func (e *ScenarioError) Error() string {
	if e.Message == "" {
		return "scenario backend reported an error"
	}
	return fmt.Sprintf("scenario backend reported an error: %s", e.Message)
}

// ClassifyError maps an error to the ErrorKind reported to clients.
func ClassifyError(err error) ErrorKind {
	var scenarioErr *ScenarioError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRatingRequired),
		errors.Is(err, ErrInvalidDistress),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrInvalidStage),
		errors.Is(err, ErrOperationInFlight),
		errors.Is(err, ErrInvalidInput):
		return ErrorKindValidation
	case errors.Is(err, ErrStaleResponse):
		return ErrorKindStale
	case errors.Is(err, ErrNoAudio), errors.Is(err, ErrPlaybackUnavailable):
		return ErrorKindPlayback
	case errors.As(err, &scenarioErr):
		return ErrorKindScenario
	case errors.Is(err, ErrNetwork), errors.Is(err, ErrMalformedResponse):
		return ErrorKindNetwork
	default:
		return ErrorKindInternal
	}
}

// IsRetryable reports whether a failed scenario operation may be re-issued unchanged.
func IsRetryable(err error) bool {
	switch ClassifyError(err) {
	case ErrorKindNetwork, ErrorKindScenario, ErrorKindStale:
		return true
	default:
		return false
	}
}
