package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scoringRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parseguard_scoring_runs_total",
		Help: "ScoreFromDocument calls by result code.",
	}, []string{"result"})

	droppedCandidatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parseguard_dropped_candidates_total",
		Help: "Analysis candidates rejected during validation, by reason.",
	}, []string{"reason"})

	riskScoresCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parseguard_risk_scores_created_total",
		Help: "Risk scores persisted, by source.",
	}, []string{"source"})

	unitOfWorkConflictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parseguard_unit_of_work_conflicts_total",
		Help: "Optimistic-concurrency conflicts, by operation.",
	}, []string{"operation"})

	collaboratorDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "parseguard_collaborator_duration_seconds",
		Help:    "Latency of extraction and analysis calls.",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"collaborator", "outcome"})

	statusTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "parseguard_status_transitions_total",
		Help: "Compliance item status changes, by source and target status.",
	}, []string{"from", "to"})
)
