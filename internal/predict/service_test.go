package predict

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"evpredict/internal/model"
	"evpredict/internal/registry"
)

// xgboostModel is a one-tree ensemble predicting suitable when
// population >= 5000, with probabilities and importances.
func xgboostModel(t *testing.T) *model.Descriptor {
	t.Helper()
	trees := []model.Tree{{Nodes: []model.TreeNode{
		{Feature: model.NumFeatures - 1, Threshold: 5000, Left: 1, Right: 2},
		{Feature: -1, Value: -2.0},
		{Feature: -1, Value: 2.0},
	}}}
	importances := make([]float64, model.NumFeatures)
	importances[model.NumFeatures-1] = 0.62 // population
	importances[0] = 0.21                   // parking
	importances[4] = 0.17                   // restaurant

	e, err := model.NewTreeEnsemble(trees, 0, importances, model.NumFeatures)
	if err != nil {
		t.Fatalf("NewTreeEnsemble: %v", err)
	}
	return model.Describe("xgboost", e)
}

// svmModel predicts suitable when parking >= 3 and has no probability
// capability.
func svmModel(t *testing.T) *model.Descriptor {
	t.Helper()
	weights := make([]float64, model.NumFeatures)
	weights[0] = 1
	m, err := model.NewMargin(weights, -3)
	if err != nil {
		t.Fatalf("NewMargin: %v", err)
	}
	return model.Describe("svm", m)
}

type errClassifier struct{}

func (errClassifier) Predict(x [][]float64) ([]int, error) {
	return nil, errors.New("matrix shape mismatch")
}

func TestPredictPreservesInputOrder(t *testing.T) {
	reg := registry.New(xgboostModel(t))

	for _, batchSize := range []int{1, 2, 5, 17} {
		t.Run(fmt.Sprintf("batch_%d", batchSize), func(t *testing.T) {
			svc := NewService(reg, nil)
			locations := make([]Location, batchSize)
			for i := range locations {
				locations[i] = Location{
					Latitude:   10.0 + float64(i),
					Longitude:  70.0 + float64(i),
					Population: float64(i * 1000), // mixed labels across the batch
				}
			}

			res, err := svc.Predict(locations, "xgboost")
			if err != nil {
				t.Fatalf("Predict: %v", err)
			}
			if len(res.Predictions) != batchSize {
				t.Fatalf("got %d results, want %d", len(res.Predictions), batchSize)
			}
			for i, p := range res.Predictions {
				if p.LocationID != i {
					t.Errorf("result %d has location_id %d", i, p.LocationID)
				}
				if p.Latitude != 10.0+float64(i) || p.Longitude != 70.0+float64(i) {
					t.Errorf("result %d echoes wrong coordinates: %f, %f", i, p.Latitude, p.Longitude)
				}
				if res.ConfidenceScores[i] != p.Confidence {
					t.Errorf("result %d confidence %f differs from score list %f", i, p.Confidence, res.ConfidenceScores[i])
				}
			}
		})
	}
}

func TestNeutralConfidenceWithoutProbabilities(t *testing.T) {
	reg := registry.New(svmModel(t))
	svc := NewService(reg, nil)

	locations := []Location{
		{Latitude: 1, Longitude: 2, Parking: 10},
		{Latitude: 3, Longitude: 4},
		{Latitude: 5, Longitude: 6, Parking: 4},
	}
	res, err := svc.Predict(locations, "svm")
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	for i, p := range res.Predictions {
		if p.Confidence != 0.5 {
			t.Errorf("result %d confidence = %f, want exactly 0.5", i, p.Confidence)
		}
	}
}

func TestRecommendationMatchesLabel(t *testing.T) {
	reg := registry.New(xgboostModel(t), svmModel(t))

	for _, name := range []string{"xgboost", "svm"} {
		svc := NewService(reg, nil)
		res, err := svc.Predict([]Location{
			{Population: 9000, Parking: 9},
			{Population: 100},
		}, name)
		if err != nil {
			t.Fatalf("Predict(%s): %v", name, err)
		}
		for i, p := range res.Predictions {
			want := "Not Suitable"
			if p.Prediction == 1 {
				want = "Suitable"
			}
			if p.Recommendation != want {
				t.Errorf("model %s result %d: prediction=%d recommendation=%q", name, i, p.Prediction, p.Recommendation)
			}
		}
	}
}

func TestUnknownModelFallsBack(t *testing.T) {
	reg := registry.New(xgboostModel(t))
	mm := &MockMetrics{}
	svc := NewService(reg, mm)

	res, err := svc.Predict([]Location{{Population: 100}}, "catboost")
	if err != nil {
		t.Fatalf("unknown model name must not fail the request: %v", err)
	}
	if res.ModelUsed == "catboost" {
		t.Error("model_used must report the substituted model")
	}
	found := false
	for _, name := range reg.List() {
		if name == res.ModelUsed {
			found = true
		}
	}
	if !found {
		t.Errorf("model_used %q is not a loaded model", res.ModelUsed)
	}
	if mm.Fallbacks() != 1 {
		t.Errorf("fallback count = %d, want 1", mm.Fallbacks())
	}
}

func TestPredictEmptyRegistry(t *testing.T) {
	svc := NewService(registry.New(), &MockMetrics{})

	res, err := svc.Predict([]Location{{Population: 100}}, "")
	if !errors.Is(err, registry.ErrNoModels) {
		t.Fatalf("err = %v, want ErrNoModels", err)
	}
	if res != nil {
		t.Error("failed request must produce zero results")
	}
}

func TestXGBoostScenario(t *testing.T) {
	reg := registry.New(xgboostModel(t))
	svc := NewService(reg, nil)

	res, err := svc.Predict([]Location{{Latitude: 28.6, Longitude: 77.2, Population: 7500}}, "xgboost")
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if len(res.Predictions) != 1 {
		t.Fatalf("got %d results, want 1", len(res.Predictions))
	}
	p := res.Predictions[0]
	if p.LocationID != 0 {
		t.Errorf("location_id = %d, want 0", p.LocationID)
	}
	if res.ModelUsed != "xgboost" {
		t.Errorf("model_used = %q, want xgboost", res.ModelUsed)
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		t.Errorf("confidence %f outside [0,1]", p.Confidence)
	}
}

func TestBatchFailureProducesNoPartialResults(t *testing.T) {
	reg := registry.New(xgboostModel(t))
	mm := &MockMetrics{}
	svc := NewService(reg, mm)

	locations := []Location{
		{Population: 1000},
		{Population: math.NaN()}, // poisons the whole batch
		{Population: 9000},
	}
	res, err := svc.Predict(locations, "xgboost")
	if res != nil {
		t.Fatal("expected no partial results for a failed batch")
	}
	var batchErr *BatchError
	if !errors.As(err, &batchErr) {
		t.Fatalf("err = %v, want *BatchError", err)
	}
	if mm.Failures() != 1 {
		t.Errorf("failure count = %d, want 1", mm.Failures())
	}
	if mm.Predictions() != 0 {
		t.Errorf("prediction count = %d, want 0", mm.Predictions())
	}
}

func TestModelErrorFailsBatch(t *testing.T) {
	reg := registry.New(model.Describe("flaky", errClassifier{}))
	svc := NewService(reg, nil)

	_, err := svc.Predict([]Location{{Population: 1}, {Population: 2}}, "flaky")
	var batchErr *BatchError
	if !errors.As(err, &batchErr) {
		t.Fatalf("err = %v, want *BatchError", err)
	}
	if batchErr.Model != "flaky" {
		t.Errorf("BatchError.Model = %q", batchErr.Model)
	}
}

func TestPredictEmptyBatch(t *testing.T) {
	svc := NewService(registry.New(xgboostModel(t)), nil)
	if _, err := svc.Predict(nil, ""); err == nil {
		t.Error("empty batch must be rejected")
	}
}

func TestFeatureImportance(t *testing.T) {
	reg := registry.New(xgboostModel(t), svmModel(t))
	svc := NewService(reg, nil)

	imp, err := svc.FeatureImportance()
	if err != nil {
		t.Fatalf("FeatureImportance: %v", err)
	}

	if _, ok := imp["svm"]; ok {
		t.Error("model without importances must be omitted, not reported")
	}

	pairs, ok := imp["xgboost"]
	if !ok {
		t.Fatal("xgboost importance missing")
	}
	if len(pairs) != model.NumFeatures {
		t.Fatalf("got %d pairs, want %d", len(pairs), model.NumFeatures)
	}
	for i := 1; i < len(pairs); i++ {
		if pairs[i-1].Importance < pairs[i].Importance {
			t.Errorf("pairs not sorted descending at %d: %f < %f", i, pairs[i-1].Importance, pairs[i].Importance)
		}
	}
	if pairs[0].Feature != "population" {
		t.Errorf("top feature = %q, want population", pairs[0].Feature)
	}
}

func TestFeatureImportanceEmptyRegistry(t *testing.T) {
	svc := NewService(registry.New(), nil)
	if _, err := svc.FeatureImportance(); !errors.Is(err, registry.ErrNoModels) {
		t.Fatalf("err = %v, want ErrNoModels", err)
	}
}
