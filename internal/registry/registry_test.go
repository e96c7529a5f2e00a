package registry

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"evpredict/internal/model"
)

type countingObserver struct {
	loaded, failed int
}

func (o *countingObserver) ModelLoaded()     { o.loaded++ }
func (o *countingObserver) ModelLoadFailed() { o.failed++ }

func writeLinearArtifact(t *testing.T, dir, file, kind string) {
	t.Helper()
	weights := make([]float64, model.NumFeatures)
	weights[0] = 1
	artifact := map[string]any{
		"schema_version": 1,
		"kind":           kind,
		"num_features":   model.NumFeatures,
		"params":         map[string]any{"weights": weights, "intercept": 0.0},
	}
	data, err := json.Marshal(artifact)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, file), data, 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestLoadBestEffort(t *testing.T) {
	dir := t.TempDir()
	writeLinearArtifact(t, dir, "logistic_model.json", model.KindLogistic)
	writeLinearArtifact(t, dir, "svm_model.json", model.KindSVM)
	if err := os.WriteFile(filepath.Join(dir, "broken_model.json"), []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}
	// Not matching the artifact suffix, must be ignored silently.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	obs := &countingObserver{}
	r, err := Load(dir, obs)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if r.Len() != 2 {
		t.Fatalf("Len = %d, want 2", r.Len())
	}
	if obs.loaded != 2 || obs.failed != 1 {
		t.Errorf("observer loaded=%d failed=%d, want 2/1", obs.loaded, obs.failed)
	}
}

func TestLoadMissingDirectory(t *testing.T) {
	r, err := Load(filepath.Join(t.TempDir(), "nope"), nil)
	if err != nil {
		t.Fatalf("missing directory must not be fatal: %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d, want 0", r.Len())
	}
	if r.Default() != "" {
		t.Errorf("Default = %q, want empty", r.Default())
	}
}

func TestLoadOrderIsDeterministic(t *testing.T) {
	dir := t.TempDir()
	writeLinearArtifact(t, dir, "bravo_model.json", model.KindLogistic)
	writeLinearArtifact(t, dir, "alpha_model.json", model.KindLogistic)

	r, err := Load(dir, nil)
	if err != nil {
		t.Fatal(err)
	}

	names := r.List()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "bravo" {
		t.Errorf("List = %v, want [alpha bravo]", names)
	}
	if r.Default() != "alpha" {
		t.Errorf("Default = %q, want alpha (first discovered)", r.Default())
	}
}

func TestDefaultPrefersXGBoost(t *testing.T) {
	dir := t.TempDir()
	writeLinearArtifact(t, dir, "adaboost_model.json", model.KindLogistic)
	writeLinearArtifact(t, dir, "xgboost_model.json", model.KindLogistic)

	r, err := Load(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	if r.Default() != "xgboost" {
		t.Errorf("Default = %q, want xgboost", r.Default())
	}
}

func TestResolve(t *testing.T) {
	clfA, _ := model.NewMargin(make([]float64, model.NumFeatures), 0)
	clfB, _ := model.NewMargin(make([]float64, model.NumFeatures), 1)
	r := New(model.Describe("alpha", clfA), model.Describe("bravo", clfB))

	exact, err := r.Resolve("bravo")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if exact.Name != "bravo" {
		t.Errorf("Resolve(bravo) = %q", exact.Name)
	}

	// Unknown and empty names fall back to the default, deterministically.
	for _, name := range []string{"unknown", ""} {
		for i := 0; i < 3; i++ {
			d, err := r.Resolve(name)
			if err != nil {
				t.Fatalf("Resolve(%q): %v", name, err)
			}
			if d.Name != "alpha" {
				t.Errorf("Resolve(%q) = %q, want alpha", name, d.Name)
			}
		}
	}
}

func TestResolveFallbackOrder(t *testing.T) {
	clfA, _ := model.NewMargin(make([]float64, model.NumFeatures), 0)
	clfX, _ := model.NewMargin(make([]float64, model.NumFeatures), 1)
	r := New(model.Describe("adaboost", clfA), model.Describe("xgboost", clfX))

	// Empty name resolves to the preferred default.
	d, err := r.Resolve("")
	if err != nil {
		t.Fatalf("Resolve(\"\"): %v", err)
	}
	if d.Name != "xgboost" {
		t.Errorf("Resolve(\"\") = %q, want xgboost", d.Name)
	}

	// Unknown names fall back to the first discovered model, not the
	// preferred default.
	d, err = r.Resolve("catboost")
	if err != nil {
		t.Fatalf("Resolve(catboost): %v", err)
	}
	if d.Name != "adaboost" {
		t.Errorf("Resolve(catboost) = %q, want adaboost", d.Name)
	}
}

func TestResolveEmptyRegistry(t *testing.T) {
	r := New()
	_, err := r.Resolve("anything")
	if !errors.Is(err, ErrNoModels) {
		t.Fatalf("err = %v, want ErrNoModels", err)
	}
}

func TestNewSkipsDuplicateNames(t *testing.T) {
	clf, _ := model.NewMargin(make([]float64, model.NumFeatures), 0)
	r := New(model.Describe("alpha", clf), model.Describe("alpha", clf))
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}
