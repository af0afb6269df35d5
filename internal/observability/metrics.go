package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "weather_predict"

// Metrics holds the Prometheus collectors for the prediction service.
type Metrics struct {
	Predictions      *prometheus.CounterVec // labels: outcome={ok,bad_request,unauthorized,...}
	PipelineDuration prometheus.Histogram

	// Weather provider metrics.
	FetchAttempts *prometheus.CounterVec // labels: result={success,transport_error,unauthorized,not_found,upstream_error,malformed_response}
	FetchDuration prometheus.Histogram

	// Inference metrics.
	InferenceDuration  prometheus.Histogram
	InferenceFallbacks prometheus.Counter
	ModelLoaded        prometheus.Gauge

	// Prediction event metrics.
	EventsPublished *prometheus.CounterVec // labels: outcome={success,error}
}

func newCollectors() *Metrics {
	return &Metrics{
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Prediction requests by outcome kind.",
		}, []string{"outcome"}),
		PipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Duration of a complete fetch-extract-predict run.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		FetchAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "weather_fetch_attempts_total",
			Help:      "Weather API request attempts by result.",
		}, []string{"result"}),
		FetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "weather_fetch_duration_seconds",
			Help:      "Weather API single-attempt duration in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		}),
		InferenceDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "inference_duration_seconds",
			Help:      "Scaler transform plus model inference duration.",
			Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1},
		}),
		InferenceFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "inference_fallbacks_total",
			Help:      "Predictions replaced by the zero forecast because the model output was unusable.",
		}),
		ModelLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "model_loaded",
			Help:      "1 when the model and scaler are loaded, 0 otherwise.",
		}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prediction_events_total",
			Help:      "Prediction events published by outcome.",
		}, []string{"outcome"}),
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newCollectors()
	prometheus.MustRegister(
		m.Predictions,
		m.PipelineDuration,
		m.FetchAttempts,
		m.FetchDuration,
		m.InferenceDuration,
		m.InferenceFallbacks,
		m.ModelLoaded,
		m.EventsPublished,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newCollectors()
}
