package models

// PlaybackStatus is the state of the narration player.
type PlaybackStatus string

const (
	PlaybackIdle     PlaybackStatus = "idle"
	PlaybackLoading  PlaybackStatus = "loading"
	PlaybackPlaying  PlaybackStatus = "playing"
	PlaybackPaused   PlaybackStatus = "paused"
	PlaybackFinished PlaybackStatus = "finished"
	PlaybackError    PlaybackStatus = "error"
)

const (
	MinPlaybackRate     = 0.5
	MaxPlaybackRate     = 2.0
	DefaultPlaybackRate = 1.0
	PlaybackRateStep    = 0.25
)

// PlaybackState is the serializable view of the narration player.
type PlaybackState struct {
	Status          PlaybackStatus `json:"status"`
	Rate            float64        `json:"rate"`
	PositionAtStart bool           `json:"position_at_start"`
	Reference       string         `json:"reference,omitempty"`
	Error           string         `json:"error,omitempty"`
}
