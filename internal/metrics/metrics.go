package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels predictions served by the trained model.
	OutcomeSuccess = "success"
	// OutcomeDegraded labels predictions answered by the deterministic fallback path.
	OutcomeDegraded = "degraded"
	// OutcomeFallbackModel labels predictions served by the stand-in classifier.
	OutcomeFallbackModel = "fallback_model"
)

var (
	predictionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "africa_risk",
			Name:      "predictions_total",
			Help:      "Total number of predictions served, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	predictionDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "africa_risk",
			Name:      "prediction_seconds",
			Help:      "Prediction latency in seconds.",
			Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	retrainingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "africa_risk",
			Name:      "retrainings_total",
			Help:      "Total number of retraining runs, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	retrainingDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "africa_risk",
			Name:      "retraining_seconds",
			Help:      "Retraining run duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)
)

// Register attaches the platform collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		predictionsTotal,
		predictionDurationSeconds,
		retrainingsTotal,
		retrainingDurationSeconds,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObservePrediction records one served prediction.
func ObservePrediction(duration time.Duration, outcome string) {
	switch outcome {
	case OutcomeSuccess, OutcomeDegraded, OutcomeFallbackModel:
	default:
		outcome = OutcomeSuccess
	}
	predictionsTotal.WithLabelValues(outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	predictionDurationSeconds.Observe(duration.Seconds())
}

// ObserveRetraining records one retraining run.
func ObserveRetraining(duration time.Duration, success bool) {
	outcome := "success"
	if !success {
		outcome = "error"
	}
	retrainingsTotal.WithLabelValues(outcome).Inc()
	if duration < 0 {
		duration = 0
	}
	retrainingDurationSeconds.Observe(duration.Seconds())
}
