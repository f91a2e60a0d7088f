package models

import "slices"

// Persistence keys of the reward ledger.
const (
	RewardKeyCoins        = "coins"
	RewardKeyTrophies     = "trophies"
	RewardKeyBadges       = "badges"
	RewardKeySessionDates = "sessionDates"
)

// Trophy and badge keys.
const (
	TrophyFirstSession = "first_session"
	TrophyFiveSessions = "five_sessions"
	TrophyTenSessions  = "ten_sessions"

	BadgeStreak3       = "streak_3"
	BadgeStreak7       = "streak_7"
	BadgeTenSessions   = "ten_sessions"
	BadgeFirstFeedback = "first_feedback"
)

// CoinsPerSession is credited once per completed session.
const CoinsPerSession = 10

// SessionDateLayout is the calendar-date format of RewardState.SessionDates.
const SessionDateLayout = "2006-01-02"

// RewardKind tells trophies and badges apart in unlock events.
type RewardKind string

const (
	RewardKindTrophy RewardKind = "trophy"
	RewardKindBadge  RewardKind = "badge"
)

// RewardState is the persisted gamification ledger of a patient.
// Trophies and Badges are ordered sets in unlock order.
type RewardState struct {
	Coins        int      `json:"coins"`
	Trophies     []string `json:"trophies"`
	Badges       []string `json:"badges"`
	SessionDates []string `json:"sessionDates"`
}

// NewRewardState returns an empty ledger with non-nil slices.
func NewRewardState() *RewardState {
	return &RewardState{
		Trophies:     []string{},
		Badges:       []string{},
		SessionDates: []string{},
	}
}

// Clone returns a deep copy.
func (s RewardState) Clone() RewardState {
	return RewardState{
		Coins:        s.Coins,
		Trophies:     append([]string{}, s.Trophies...),
		Badges:       append([]string{}, s.Badges...),
		SessionDates: append([]string{}, s.SessionDates...),
	}
}

// HasTrophy reports whether key is unlocked as a trophy.
func (s RewardState) HasTrophy(key string) bool {
	return slices.Contains(s.Trophies, key)
}

// HasBadge reports whether key is unlocked as a badge.
func (s RewardState) HasBadge(key string) bool {
	return slices.Contains(s.Badges, key)
}

// RewardUnlock is a newly unlocked trophy or badge.
type RewardUnlock struct {
	Key  string     `json:"key"`
	Kind RewardKind `json:"kind"`
}
