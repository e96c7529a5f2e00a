package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ArtifactSuffix is the naming convention for serialized models: the
// registry key is the file stem with the "_model" suffix stripped, so
// "xgboost_model.json" loads as "xgboost".
const ArtifactSuffix = "_model.json"

// Supported artifact kinds.
const (
	KindTreeEnsemble = "tree_ensemble"
	KindLogistic     = "logistic"
	KindSVM          = "svm"
)

// artifact is the on-disk envelope shared by all model kinds. Params is
// decoded per kind.
type artifact struct {
	SchemaVersion int             `json:"schema_version"`
	Kind          string          `json:"kind"`
	NumFeatures   int             `json:"num_features"`
	TrainedAt     string          `json:"trained_at,omitempty"`
	Params        json.RawMessage `json:"params"`
}

type treeParams struct {
	Trees       []Tree    `json:"trees"`
	BaseScore   float64   `json:"base_score"`
	Importances []float64 `json:"importances,omitempty"`
}

type linearParams struct {
	Weights   []float64 `json:"weights"`
	Intercept float64   `json:"intercept"`
}

// NameFromPath derives the registry key for an artifact path.
func NameFromPath(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.TrimSuffix(stem, "_model")
}

// LoadFile deserializes one model artifact into a capability-tagged
// Descriptor.
func LoadFile(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}

	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("parse artifact %s: %w", filepath.Base(path), err)
	}
	if a.SchemaVersion != 1 {
		return nil, fmt.Errorf("artifact %s: unsupported schema version %d", filepath.Base(path), a.SchemaVersion)
	}
	if a.NumFeatures != NumFeatures {
		return nil, fmt.Errorf("artifact %s: trained on %d features, serving expects %d", filepath.Base(path), a.NumFeatures, NumFeatures)
	}

	var clf Classifier
	switch a.Kind {
	case KindTreeEnsemble:
		var p treeParams
		if err := json.Unmarshal(a.Params, &p); err != nil {
			return nil, fmt.Errorf("artifact %s: %w", filepath.Base(path), err)
		}
		clf, err = NewTreeEnsemble(p.Trees, p.BaseScore, p.Importances, a.NumFeatures)
	case KindLogistic:
		var p linearParams
		if err := json.Unmarshal(a.Params, &p); err != nil {
			return nil, fmt.Errorf("artifact %s: %w", filepath.Base(path), err)
		}
		clf, err = newLinear(p, a.NumFeatures, func(w []float64, b float64) (Classifier, error) {
			return NewLogistic(w, b)
		})
	case KindSVM:
		var p linearParams
		if err := json.Unmarshal(a.Params, &p); err != nil {
			return nil, fmt.Errorf("artifact %s: %w", filepath.Base(path), err)
		}
		clf, err = newLinear(p, a.NumFeatures, func(w []float64, b float64) (Classifier, error) {
			return NewMargin(w, b)
		})
	default:
		return nil, fmt.Errorf("artifact %s: unknown model kind %q", filepath.Base(path), a.Kind)
	}
	if err != nil {
		return nil, fmt.Errorf("artifact %s: %w", filepath.Base(path), err)
	}

	return Describe(NameFromPath(path), clf), nil
}

func newLinear(p linearParams, numFeatures int, build func([]float64, float64) (Classifier, error)) (Classifier, error) {
	if len(p.Weights) != numFeatures {
		return nil, fmt.Errorf("linear model has %d weights for %d features", len(p.Weights), numFeatures)
	}
	return build(p.Weights, p.Intercept)
}
