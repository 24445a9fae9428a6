// Package metrics exposes Prometheus collectors for both verdict pipelines.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/msgguard/msgguard/internal/risk"
)

// Pipeline label values.
const (
	PipelineText = "text"
	PipelineURL  = "url"
)

var (
	// Verdicts counts assembled verdicts by pipeline, prediction and risk level.
	// URL verdicts carry an empty risk label since they are not bucketed.
	Verdicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "msgguard",
		Name:      "verdicts_total",
		Help:      "Verdicts produced, by pipeline, prediction and risk level.",
	}, []string{"pipeline", "prediction", "risk"})

	// Errors counts failed requests by pipeline and error kind.
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "msgguard",
		Name:      "pipeline_errors_total",
		Help:      "Failed pipeline runs, by pipeline and error kind.",
	}, []string{"pipeline", "kind"})

	// Restarts counts background goroutines restarted after a panic or an
	// unexpected return.
	Restarts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "msgguard",
		Name:      "goroutine_restarts_total",
		Help:      "Supervised background goroutine restarts, by name.",
	}, []string{"name"})

	// Duration observes end-to-end pipeline latency.
	Duration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "msgguard",
		Name:      "pipeline_duration_seconds",
		Help:      "Time spent producing a verdict.",
		Buckets:   []float64{.005, .01, .05, .1, .25, .5, 1, 2.5, 5, 10},
	}, []string{"pipeline"})
)

// ObserveText records a text verdict.
func ObserveText(v *risk.Verdict, elapsed time.Duration) {
	Verdicts.WithLabelValues(PipelineText, v.Prediction, v.Risk).Inc()
	Duration.WithLabelValues(PipelineText).Observe(elapsed.Seconds())
}

// ObserveURL records a URL verdict.
func ObserveURL(v *risk.MalwareVerdict, elapsed time.Duration) {
	Verdicts.WithLabelValues(PipelineURL, v.Prediction, "").Inc()
	Duration.WithLabelValues(PipelineURL).Observe(elapsed.Seconds())
}

// ObserveError records a pipeline failure.
func ObserveError(pipeline string, err error) {
	Errors.WithLabelValues(pipeline, ErrorKind(err)).Inc()
}

// ErrorKind maps an error onto a low-cardinality label.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, risk.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, risk.ErrClassifierUnavailable):
		return "classifier_unavailable"
	case errors.Is(err, risk.ErrFetch):
		return "fetch"
	case errors.Is(err, risk.ErrScoring):
		return "scoring"
	default:
		return "internal"
	}
}
