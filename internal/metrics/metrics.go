// Package metrics provides Prometheus metrics for the EV station
// prediction server: model loading, batch classification, confidence
// distributions, and dashboard connections, exposed on the /metrics
// endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus collectors for the prediction server.
type Metrics struct {
	// Model registry metrics
	ModelsLoaded      prometheus.Gauge   // Number of models loaded at startup
	ModelLoadFailures prometheus.Counter // Artifacts that failed to deserialize

	// Prediction metrics
	PredictionsTotal   prometheus.Counter   // Successfully served prediction batches
	PredictionFailures prometheus.Counter   // Failed prediction batches
	FallbackUse        prometheus.Counter   // Requests served by the fallback model
	PredictionLatency  prometheus.Histogram // End-to-end batch latency in seconds
	BatchSize          prometheus.Histogram // Records per prediction batch
	ConfidenceScores   prometheus.Histogram // Distribution of served confidence values

	// Dataset and dashboard metrics
	DatasetRecords prometheus.Gauge // Historical prediction records available
	LiveClients    prometheus.Gauge // Connected live-feed WebSocket clients
}

// New creates and registers all metrics using the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates metrics with a custom registry, so tests can
// collect in isolation without touching the global registry.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		ModelsLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Name: "models_loaded",
			Help: "Number of models loaded at startup",
		}),
		ModelLoadFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "model_load_failures_total",
			Help: "Total number of model artifacts that failed to deserialize",
		}),
		PredictionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "predictions_total",
			Help: "Total number of successfully served prediction batches",
		}),
		PredictionFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "prediction_failures_total",
			Help: "Total number of failed prediction batches",
		}),
		FallbackUse: factory.NewCounter(prometheus.CounterOpts{
			Name: "model_fallback_use_total",
			Help: "Total number of requests served by the fallback model",
		}),
		PredictionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_latency_seconds",
			Help:    "End-to-end prediction batch latency in seconds",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}),
		BatchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_batch_size",
			Help:    "Number of records per prediction batch",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		ConfidenceScores: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "prediction_confidence_scores",
			Help:    "Distribution of served confidence values",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		}),
		DatasetRecords: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dataset_records",
			Help: "Historical prediction records available to the API",
		}),
		LiveClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "live_clients",
			Help: "Connected live-feed WebSocket clients",
		}),
	}
}
