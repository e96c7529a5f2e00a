package model

import "fmt"

// Logistic is a logistic-regression classifier. It estimates
// probabilities but reports no feature importances.
type Logistic struct {
	weights   []float64
	intercept float64
}

func NewLogistic(weights []float64, intercept float64) (*Logistic, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("logistic model has no weights")
	}
	return &Logistic{weights: weights, intercept: intercept}, nil
}

func (l *Logistic) decision(row []float64) float64 {
	d := l.intercept
	for i, w := range l.weights {
		d += w * row[i]
	}
	return d
}

func (l *Logistic) Predict(x [][]float64) ([]int, error) {
	labels := make([]int, len(x))
	for i, row := range x {
		if err := checkRow(row, len(l.weights)); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		if sigmoid(l.decision(row)) >= 0.5 {
			labels[i] = 1
		}
	}
	return labels, nil
}

func (l *Logistic) PredictProba(x [][]float64) ([][]float64, error) {
	probs := make([][]float64, len(x))
	for i, row := range x {
		if err := checkRow(row, len(l.weights)); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		p := sigmoid(l.decision(row))
		probs[i] = []float64{1 - p, p}
	}
	return probs, nil
}

// Margin is a linear margin classifier (uncalibrated SVM). It only
// predicts labels: served predictions fall back to the neutral 0.5
// confidence because no probability estimate exists.
type Margin struct {
	weights   []float64
	intercept float64
}

func NewMargin(weights []float64, intercept float64) (*Margin, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("margin model has no weights")
	}
	return &Margin{weights: weights, intercept: intercept}, nil
}

func (m *Margin) Predict(x [][]float64) ([]int, error) {
	labels := make([]int, len(x))
	for i, row := range x {
		if err := checkRow(row, len(m.weights)); err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		d := m.intercept
		for j, w := range m.weights {
			d += w * row[j]
		}
		if d >= 0 {
			labels[i] = 1
		}
	}
	return labels, nil
}
