package model

import "fmt"

// TreeNode is one node of a binary decision tree. A node with Feature < 0
// is a leaf and contributes Value to the ensemble margin; otherwise the
// sample goes left when x[Feature] < Threshold and right when not.
type TreeNode struct {
	Feature   int     `json:"feature"`
	Threshold float64 `json:"threshold"`
	Left      int     `json:"left"`
	Right     int     `json:"right"`
	Value     float64 `json:"value"`
}

// Tree is a flat node array rooted at index 0.
type Tree struct {
	Nodes []TreeNode `json:"nodes"`
}

// TreeEnsemble is an additive ensemble of binary decision trees with a
// logistic link, the shape gradient-boosted and forest models are
// exported in. Per-feature importances are computed at training time and
// carried in the artifact.
type TreeEnsemble struct {
	trees       []Tree
	baseScore   float64
	importances []float64
	numFeatures int
}

// NewTreeEnsemble validates the tree structure up front so scoring never
// has to bounds-check node links per sample.
func NewTreeEnsemble(trees []Tree, baseScore float64, importances []float64, numFeatures int) (*TreeEnsemble, error) {
	if len(trees) == 0 {
		return nil, fmt.Errorf("tree ensemble has no trees")
	}
	for ti, t := range trees {
		if len(t.Nodes) == 0 {
			return nil, fmt.Errorf("tree %d has no nodes", ti)
		}
		for ni, n := range t.Nodes {
			if n.Feature < 0 {
				continue // leaf
			}
			if n.Feature >= numFeatures {
				return nil, fmt.Errorf("tree %d node %d splits on feature %d, model has %d features", ti, ni, n.Feature, numFeatures)
			}
			if n.Left < 0 || n.Left >= len(t.Nodes) || n.Right < 0 || n.Right >= len(t.Nodes) {
				return nil, fmt.Errorf("tree %d node %d has out-of-range children", ti, ni)
			}
			if n.Left <= ni && n.Right <= ni {
				return nil, fmt.Errorf("tree %d node %d links backwards", ti, ni)
			}
		}
	}
	if importances != nil && len(importances) != numFeatures {
		return nil, fmt.Errorf("ensemble carries %d importances for %d features", len(importances), numFeatures)
	}
	return &TreeEnsemble{
		trees:       trees,
		baseScore:   baseScore,
		importances: importances,
		numFeatures: numFeatures,
	}, nil
}

func (t *Tree) score(x []float64) float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Feature < 0 {
			return n.Value
		}
		if x[n.Feature] < n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

func (e *TreeEnsemble) margin(row []float64) float64 {
	m := e.baseScore
	for i := range e.trees {
		m += e.trees[i].score(row)
	}
	return m
}

// Predict returns the positive class when the ensemble probability
// reaches 0.5.
func (e *TreeEnsemble) Predict(x [][]float64) ([]int, error) {
	labels := make([]int, len(x))
	for i, row := range x {
		if err := checkRow(row, e.numFeatures); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if sigmoid(e.margin(row)) >= 0.5 {
			labels[i] = 1
		}
	}
	return labels, nil
}

// PredictProba returns [P(class 0), P(class 1)] per row.
func (e *TreeEnsemble) PredictProba(x [][]float64) ([][]float64, error) {
	probs := make([][]float64, len(x))
	for i, row := range x {
		if err := checkRow(row, e.numFeatures); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		p := sigmoid(e.margin(row))
		probs[i] = []float64{1 - p, p}
	}
	return probs, nil
}

// FeatureImportances returns the training-time importance values, or nil
// when the artifact carried none.
func (e *TreeEnsemble) FeatureImportances() []float64 {
	return e.importances
}
