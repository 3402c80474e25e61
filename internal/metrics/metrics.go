package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"playground/internal/domain"
)

var (
	Interpretations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playground_interpretations_total",
			Help: "Prompt interpretations by resulting action and outcome",
		},
		[]string{"action", "outcome"},
	)

	Overrides = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "playground_interpretation_overrides_total",
			Help: "Interpretations forced to GENERATE because no image was uploaded",
		},
	)

	Operations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "playground_operations_total",
			Help: "Image operations executed by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "playground_operation_duration_seconds",
			Help:    "Duration of image operations including the provider round trip",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"action"},
	)
)

// Outcome labels an error with a short, bounded-cardinality value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrEmptyPrompt), errors.Is(err, domain.ErrMissingImage),
		errors.Is(err, domain.ErrInvalidUpscaleFactor), errors.Is(err, domain.ErrInvalidFormat),
		errors.Is(err, domain.ErrUnsupportedImage):
		return "rejected"
	case errors.Is(err, domain.ErrMalformedResponse):
		return "malformed_response"
	case errors.Is(err, domain.ErrInvalidAction):
		return "invalid_action"
	case errors.Is(err, domain.ErrProviderNotConfigured):
		return "not_configured"
	default:
		return "failed"
	}
}

// ObserveOperation records one operation run.
func ObserveOperation(action domain.Action, started time.Time, err error) {
	Operations.WithLabelValues(string(action), Outcome(err)).Inc()
	OperationDuration.WithLabelValues(string(action)).Observe(time.Since(started).Seconds())
}

// ObserveInterpretation records one interpretation. action is empty on failure.
func ObserveInterpretation(action domain.Action, err error) {
	label := string(action)
	if label == "" {
		label = "none"
	}
	Interpretations.WithLabelValues(label, Outcome(err)).Inc()
}
