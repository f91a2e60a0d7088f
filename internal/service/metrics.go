package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scenarioRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_scenario_requests_total",
			Help: "Total number of scenario backend requests, partitioned by operation and outcome.",
		},
		[]string{"operation", "outcome"},
	)
	stageTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_stage_transitions_total",
			Help: "Total number of stage changes, partitioned by direction and whether the cache served them.",
		},
		[]string{"direction", "source"},
	)
	sessionsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "session_completed_total",
		Help: "Total number of sessions that reached the end of the narrative.",
	})
	sessionsExitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "session_exited_total",
		Help: "Total number of sessions left before completion.",
	})
	staleResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_stale_responses_total",
			Help: "Total number of late responses discarded, partitioned by source.",
		},
		[]string{"source"},
	)
	mediaResolutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_media_resolutions_total",
			Help: "Total number of media resolutions, partitioned by outcome.",
		},
		[]string{"outcome"},
	)
	rewardsUnlockedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_rewards_unlocked_total",
			Help: "Total number of trophies and badges unlocked.",
		},
		[]string{"kind", "key"},
	)
	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "session_engines_active",
		Help: "Number of session engines held in memory.",
	})
)
