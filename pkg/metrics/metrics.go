package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// TrainingRuns counts completed pipeline runs by outcome
// (trained, skipped, failed).
var TrainingRuns = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ordercast_training_runs_total",
		Help: "Total number of training pipeline runs by outcome",
	},
	[]string{"outcome"},
)

// TrainingDuration records end-to-end training pipeline duration
var TrainingDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "ordercast_training_duration_seconds",
		Help:    "End-to-end duration of a training pipeline run",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	},
)

// RowsValidated counts rows passing schema validation by stage
var RowsValidated = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ordercast_rows_validated_total",
		Help: "Rows that passed feature validation, by pipeline stage",
	},
	[]string{"stage"},
)

// Prediction guardrail metrics
var (
	PredictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ordercast_predictions_total",
			Help: "Total store predictions produced",
		},
	)

	PredictionsCapped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ordercast_predictions_capped_total",
			Help: "Quantile values capped at the plausibility ceiling",
		},
	)

	ZeroPredictionAlerts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ordercast_zero_prediction_alerts_total",
			Help: "Batches where most median predictions collapsed to zero",
		},
	)
)

func init() {
	prometheus.MustRegister(TrainingRuns, TrainingDuration, RowsValidated)
	prometheus.MustRegister(PredictionsTotal, PredictionsCapped, ZeroPredictionAlerts)
}
