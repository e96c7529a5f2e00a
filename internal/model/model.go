// Package model defines the serialized classifier artifacts served by the
// prediction API. A model is loaded once from a JSON artifact into an
// in-memory predictor; its optional capabilities (probability estimation,
// feature importances) are resolved a single time at load and cached on a
// Descriptor, never probed per request.
package model

import (
	"fmt"
	"math"
)

// Classifier is the one capability every loaded model must provide:
// a batched class prediction over a 2D feature matrix.
type Classifier interface {
	// Predict returns one binary label (0 or 1) per input row.
	Predict(x [][]float64) ([]int, error)
}

// ProbabilityEstimator is an optional capability. PredictProba returns,
// per input row, the probability mass for each of the two classes; the
// second column is the positive class.
type ProbabilityEstimator interface {
	PredictProba(x [][]float64) ([][]float64, error)
}

// ImportanceReporter is an optional capability exposing global
// per-feature importance values in FeatureNames order.
type ImportanceReporter interface {
	FeatureImportances() []float64
}

// Descriptor is a capability-tagged handle to a loaded model. Proba and
// Importances are nil when the underlying model lacks the capability.
type Descriptor struct {
	Name        string
	Classifier  Classifier
	Proba       ProbabilityEstimator
	Importances []float64
}

// Describe builds a Descriptor for a classifier, detecting the optional
// capabilities once via type assertion.
func Describe(name string, c Classifier) *Descriptor {
	d := &Descriptor{Name: name, Classifier: c}
	if pe, ok := c.(ProbabilityEstimator); ok {
		d.Proba = pe
	}
	if ir, ok := c.(ImportanceReporter); ok {
		d.Importances = ir.FeatureImportances()
	}
	return d
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

func checkRow(row []float64, want int) error {
	if len(row) != want {
		return &DimensionError{Want: want, Got: len(row)}
	}
	return nil
}

// DimensionError reports a feature vector whose length does not match
// what the model was trained on.
type DimensionError struct {
	Want, Got int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("feature vector has %d values, model expects %d", e.Got, e.Want)
}
