package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// SessionState is the lifecycle state of a session run.
type SessionState string

const (
	SessionStateIdle      SessionState = "idle"
	SessionStateLoading   SessionState = "loading"
	SessionStateActive    SessionState = "active"
	SessionStateCompleted SessionState = "completed"
	SessionStateErrored   SessionState = "errored"
)

// DistressRating is a subjective units of distress (SUD) value: 10..100 in steps of 10.
type DistressRating int

const (
	MinDistress  DistressRating = 10
	MaxDistress  DistressRating = 100
	DistressStep DistressRating = 10
)

// Validate rejects values outside the SUD scale.
func (d DistressRating) Validate() error {
	if d < MinDistress || d > MaxDistress || d%DistressStep != 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidDistress, int(d))
	}
	return nil
}

// ScenarioState is the opaque continuation token of the narrative backend.
// It is stored and forwarded byte for byte and never interpreted.
type ScenarioState = json.RawMessage

// Chapter is one installment of the generated narrative.
type Chapter struct {
	Stage          int           `json:"stage"`
	NarrativeText  string        `json:"narrative_text"`
	AudioReference *string       `json:"audio_reference,omitempty"`
	ScenarioState  ScenarioState `json:"scenario_state,omitempty"`
}

// HasAudio reports whether the chapter carries narration.
func (c Chapter) HasAudio() bool {
	return c.AudioReference != nil && *c.AudioReference != ""
}

// SessionError is the last failure recorded on a session run.
type SessionError struct {
	Kind      ErrorKind `json:"kind"`
	Message   string    `json:"message"`
	Retryable bool      `json:"retryable"`
}

// SessionRun is the serializable view of one pass through the narrative.
type SessionRun struct {
	PatientID       string          `json:"patient_id"`
	State           SessionState    `json:"state"`
	ActiveStage     int             `json:"active_stage"`
	Chapters        map[int]Chapter `json:"chapters"`
	CompletedStages []int           `json:"completed_stages"`
	StartedAt       *time.Time      `json:"started_at,omitempty"`
	EndedAt         *time.Time      `json:"ended_at,omitempty"`
	GateOpen        bool            `json:"gate_open"`
	CurrentDistress *DistressRating `json:"current_distress,omitempty"`
	InFlight        bool            `json:"in_flight"`
	LastError       *SessionError   `json:"last_error,omitempty"`
}

// ActiveChapter returns the cached chapter for the active stage.
func (r SessionRun) ActiveChapter() (Chapter, bool) {
	ch, ok := r.Chapters[r.ActiveStage]
	return ch, ok
}

// SessionSnapshot combines everything a client needs to render a session.
type SessionSnapshot struct {
	Run      SessionRun       `json:"run"`
	Media    *MediaSuggestion `json:"media,omitempty"`
	Playback PlaybackState    `json:"playback"`
	Rewards  RewardState      `json:"rewards"`
}
