// Package registry loads the serialized classifiers found under the
// models directory at startup and answers name lookups for the lifetime
// of the process. The registry is immutable after Load, so concurrent
// request handlers read it without locking.
package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"evpredict/internal/model"
)

// ErrNoModels is returned when resolution is attempted against an empty
// registry. Callers surface it as a service-unavailable condition.
var ErrNoModels = errors.New("no models loaded")

// preferredDefault is the default model when it is loaded; otherwise
// the first discovered model is the default. Unknown names always fall
// back to the first discovered model.
const preferredDefault = "xgboost"

// LoadObserver receives per-artifact load outcomes.
type LoadObserver interface {
	ModelLoaded()
	ModelLoadFailed()
}

// Registry maps model names to loaded descriptors. Iteration order is
// the sorted artifact filename order, so the fallback model is stable
// across restarts for an unchanged artifact set.
type Registry struct {
	names  []string
	models map[string]*model.Descriptor
	def    string
}

// New builds a registry from already-loaded descriptors, preserving the
// given order. Used by Load and by tests.
func New(descs ...*model.Descriptor) *Registry {
	r := &Registry{models: make(map[string]*model.Descriptor, len(descs))}
	for _, d := range descs {
		if _, dup := r.models[d.Name]; dup {
			continue
		}
		r.names = append(r.names, d.Name)
		r.models[d.Name] = d
	}
	if _, ok := r.models[preferredDefault]; ok {
		r.def = preferredDefault
	} else if len(r.names) > 0 {
		r.def = r.names[0]
	}
	return r
}

// Load scans dir for "*_model.json" artifacts in filename order and
// deserializes each one. Loading is best-effort: a broken artifact is
// logged and counted but never prevents the rest from loading. A missing
// directory yields an empty registry, not an error.
func Load(dir string, obs LoadObserver) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("dir", dir).Msg("models directory not found, serving with no models")
			return New(), nil
		}
		return nil, fmt.Errorf("read models directory: %w", err)
	}

	var descs []*model.Descriptor
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), model.ArtifactSuffix) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		d, err := model.LoadFile(path)
		if err != nil {
			log.Warn().Err(err).Str("artifact", e.Name()).Msg("skipping model artifact")
			if obs != nil {
				obs.ModelLoadFailed()
			}
			continue
		}
		log.Info().
			Str("model", d.Name).
			Bool("probabilities", d.Proba != nil).
			Bool("importances", d.Importances != nil).
			Msg("loaded model")
		if obs != nil {
			obs.ModelLoaded()
		}
		descs = append(descs, d)
	}

	r := New(descs...)
	if r.Len() == 0 {
		log.Warn().Str("dir", dir).Msg("no usable model artifacts, serving degraded")
	}
	return r, nil
}

// Resolve returns the model for name. An empty name resolves to the
// default model; an unknown name falls back to the first discovered
// model. It fails only when the registry is empty.
func (r *Registry) Resolve(name string) (*model.Descriptor, error) {
	if len(r.names) == 0 {
		return nil, ErrNoModels
	}
	if d, ok := r.models[name]; ok {
		return d, nil
	}
	if name == "" {
		return r.models[r.def], nil
	}
	return r.models[r.names[0]], nil
}

// List returns the loaded model names in discovery order.
func (r *Registry) List() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Default returns the fallback model name, or "" for an empty registry.
func (r *Registry) Default() string {
	return r.def
}

// Len returns the number of loaded models.
func (r *Registry) Len() int {
	return len(r.names)
}
