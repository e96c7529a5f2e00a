// Package predict turns batches of candidate sites into suitability
// classifications using the models held by the registry. A batch is
// all-or-nothing: every record is vectorized and classified in a single
// model invocation, and any failure during vectorization or invocation
// fails the whole request with no partial results.
package predict

import (
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"evpredict/internal/model"
	"evpredict/internal/registry"
)

// neutralConfidence is reported for every record when the resolved model
// cannot estimate probabilities. Documented degradation, not an error.
const neutralConfidence = 0.5

// Metrics is the narrow metrics surface the service depends on.
type Metrics interface {
	PredictionsInc()
	FailuresInc()
	FallbackInc()
	LatencyObserve(float64)
	BatchSizeObserve(float64)
	ConfidenceObserve(float64)
}

// Result is the classification outcome for one input record. LocationID
// is the 0-based position of the record in the request batch.
type Result struct {
	LocationID     int     `json:"location_id"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
	Prediction     int     `json:"prediction"`
	Confidence     float64 `json:"confidence"`
	Recommendation string  `json:"recommendation"`
}

// BatchResult is the outcome of one prediction request. ModelUsed names
// the model that actually classified the batch, which differs from the
// requested name when the registry fell back to its default.
type BatchResult struct {
	Predictions      []Result  `json:"predictions"`
	ModelUsed        string    `json:"model_used"`
	ConfidenceScores []float64 `json:"confidence_scores"`
}

// Importance is one labeled feature-importance value.
type Importance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// BatchError wraps any failure raised while vectorizing or invoking the
// model. The whole batch failed; no partial output exists.
type BatchError struct {
	Model string
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("prediction failed (model %s): %v", e.Model, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// Service answers prediction and feature-importance requests against a
// read-only model registry. It holds no per-request state, so one
// Service serves all concurrent handlers.
type Service struct {
	registry *registry.Registry
	metrics  Metrics
}

func NewService(r *registry.Registry, m Metrics) *Service {
	return &Service{registry: r, metrics: m}
}

// Predict classifies every location with the requested model, falling
// back to the registry default when the name is unknown or empty.
// Returns registry.ErrNoModels when no models are loaded and *BatchError
// when vectorization or the model invocation fails.
func (s *Service) Predict(locations []Location, modelName string) (*BatchResult, error) {
	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.LatencyObserve(time.Since(start).Seconds())
		}
	}()

	if len(locations) == 0 {
		return nil, fmt.Errorf("empty batch: at least one location is required")
	}

	d, err := s.registry.Resolve(modelName)
	if err != nil {
		if s.metrics != nil {
			s.metrics.FailuresInc()
		}
		return nil, err
	}
	if modelName != "" && d.Name != modelName {
		log.Debug().Str("requested", modelName).Str("used", d.Name).Msg("unknown model, using fallback")
		if s.metrics != nil {
			s.metrics.FallbackInc()
		}
	}

	x, err := vectorize(locations)
	if err != nil {
		return nil, s.batchFailed(d.Name, err)
	}

	labels, err := d.Classifier.Predict(x)
	if err != nil {
		return nil, s.batchFailed(d.Name, err)
	}
	if len(labels) != len(locations) {
		return nil, s.batchFailed(d.Name, fmt.Errorf("model returned %d labels for %d records", len(labels), len(locations)))
	}

	confidences, err := s.confidences(d, x)
	if err != nil {
		return nil, s.batchFailed(d.Name, err)
	}

	results := make([]Result, len(locations))
	for i := range locations {
		rec := "Not Suitable"
		if labels[i] == 1 {
			rec = "Suitable"
		}
		results[i] = Result{
			LocationID:     i,
			Latitude:       locations[i].Latitude,
			Longitude:      locations[i].Longitude,
			Prediction:     labels[i],
			Confidence:     confidences[i],
			Recommendation: rec,
		}
		if s.metrics != nil {
			s.metrics.ConfidenceObserve(confidences[i])
		}
	}

	if s.metrics != nil {
		s.metrics.PredictionsInc()
		s.metrics.BatchSizeObserve(float64(len(locations)))
	}

	return &BatchResult{
		Predictions:      results,
		ModelUsed:        d.Name,
		ConfidenceScores: confidences,
	}, nil
}

// confidences returns the positive-class probability per record, or the
// neutral value for models without probability estimation.
func (s *Service) confidences(d *model.Descriptor, x [][]float64) ([]float64, error) {
	out := make([]float64, len(x))
	if d.Proba == nil {
		for i := range out {
			out[i] = neutralConfidence
		}
		return out, nil
	}

	probs, err := d.Proba.PredictProba(x)
	if err != nil {
		return nil, err
	}
	if len(probs) != len(x) {
		return nil, fmt.Errorf("model returned %d probability rows for %d records", len(probs), len(x))
	}
	for i, p := range probs {
		if len(p) < 2 {
			return nil, fmt.Errorf("probability row %d has %d classes, want 2", i, len(p))
		}
		out[i] = p[1]
	}
	return out, nil
}

func (s *Service) batchFailed(modelName string, err error) error {
	if s.metrics != nil {
		s.metrics.FailuresInc()
	}
	log.Error().Err(err).Str("model", modelName).Msg("batch prediction failed")
	return &BatchError{Model: modelName, Err: err}
}

// FeatureImportance returns, per model exposing the capability, the
// feature names paired positionally with their importance values and
// sorted descending. Models without importances are omitted.
func (s *Service) FeatureImportance() (map[string][]Importance, error) {
	if s.registry.Len() == 0 {
		return nil, registry.ErrNoModels
	}

	out := make(map[string][]Importance)
	for _, name := range s.registry.List() {
		d, err := s.registry.Resolve(name)
		if err != nil {
			return nil, err
		}
		if d.Importances == nil {
			continue
		}
		pairs := make([]Importance, len(d.Importances))
		for i, imp := range d.Importances {
			pairs[i] = Importance{Feature: model.FeatureNames[i], Importance: imp}
		}
		sort.SliceStable(pairs, func(a, b int) bool {
			return pairs[a].Importance > pairs[b].Importance
		})
		out[name] = pairs
	}
	return out, nil
}
