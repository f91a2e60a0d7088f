package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionEventType names a discrete event of the session event stream.
type SessionEventType string

const (
	EventStageChanged          SessionEventType = "stageChanged"
	EventRatingSubmitted       SessionEventType = "ratingSubmitted"
	EventSessionCompleted      SessionEventType = "sessionCompleted"
	EventSessionExited         SessionEventType = "sessionExited"
	EventError                 SessionEventType = "error"
	EventRewardUnlocked        SessionEventType = "rewardUnlocked"
	EventMediaResolved         SessionEventType = "mediaResolved"
	EventMediaFailed           SessionEventType = "mediaFailed"
	EventPlaybackStatusChanged SessionEventType = "playbackStatusChanged"
)

// SessionEvent is delivered to event stream subscribers.
// Only the fields relevant to Type are set.
type SessionEvent struct {
	ID        uuid.UUID        `json:"id"`
	Type      SessionEventType `json:"type"`
	PatientID string           `json:"patient_id"`
	Stage     int              `json:"stage,omitempty"`
	Timestamp time.Time        `json:"timestamp"`

	Error    *SessionError    `json:"error,omitempty"`
	Reward   *RewardUnlock    `json:"reward,omitempty"`
	Media    *MediaSuggestion `json:"media,omitempty"`
	Playback *PlaybackState   `json:"playback,omitempty"`
	Distress *DistressRating  `json:"distress,omitempty"`
}

// NewSessionEvent stamps an event with a fresh id and time.
func NewSessionEvent(eventType SessionEventType, patientID string, stage int, at time.Time) SessionEvent {
	return SessionEvent{
		ID:        uuid.New(),
		Type:      eventType,
		PatientID: patientID,
		Stage:     stage,
		Timestamp: at,
	}
}
