package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/couchcryptid/weather-predict-service/internal/domain"
)

// LinearRegression is a fitted ordinary least squares model. A 2-D
// coefficient matrix is multi-target and predicts a vector; a 1-D coefficient
// row is single-target and predicts a scalar.
type LinearRegression struct {
	coef        [][]float64 // [target][feature]
	intercept   []float64   // [target]
	multiTarget bool
}

// modelFile mirrors the coef_ and intercept_ attributes of a fitted
// scikit-learn LinearRegression.
type modelFile struct {
	Coef      json.RawMessage `json:"coef"`
	Intercept json.RawMessage `json:"intercept"`
}

// NewMultiTarget builds a vector-output model from coef[target][feature].
func NewMultiTarget(coef [][]float64, intercept []float64) (*LinearRegression, error) {
	if len(coef) == 0 {
		return nil, errors.New("model has no targets")
	}
	if len(intercept) != len(coef) {
		return nil, fmt.Errorf("model has %d coefficient rows but %d intercepts", len(coef), len(intercept))
	}
	width := len(coef[0])
	if width == 0 {
		return nil, errors.New("model has no features")
	}
	rows := make([][]float64, len(coef))
	for i, row := range coef {
		if len(row) != width {
			return nil, fmt.Errorf("model coefficient row %d has %d features, want %d", i, len(row), width)
		}
		rows[i] = append([]float64(nil), row...)
	}
	return &LinearRegression{
		coef:        rows,
		intercept:   append([]float64(nil), intercept...),
		multiTarget: true,
	}, nil
}

// NewSingleTarget builds a scalar-output model.
func NewSingleTarget(coef []float64, intercept float64) (*LinearRegression, error) {
	if len(coef) == 0 {
		return nil, errors.New("model has no features")
	}
	return &LinearRegression{
		coef:      [][]float64{append([]float64(nil), coef...)},
		intercept: []float64{intercept},
	}, nil
}

// LoadLinearRegression reads a model artifact written by the training job.
func LoadLinearRegression(path string) (*LinearRegression, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	var f modelFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", path, err)
	}
	if len(f.Coef) == 0 || len(f.Intercept) == 0 {
		return nil, fmt.Errorf("model %s: coef and intercept are required", path)
	}

	var m *LinearRegression
	var matrix [][]float64
	if err := json.Unmarshal(f.Coef, &matrix); err == nil {
		var intercept []float64
		if err := json.Unmarshal(f.Intercept, &intercept); err != nil {
			return nil, fmt.Errorf("model %s: multi-target intercept must be an array: %w", path, err)
		}
		m, err = NewMultiTarget(matrix, intercept)
		if err != nil {
			return nil, fmt.Errorf("model %s: %w", path, err)
		}
		return m, nil
	}

	var row []float64
	if err := json.Unmarshal(f.Coef, &row); err != nil {
		return nil, fmt.Errorf("model %s: coef must be a number array or matrix: %w", path, err)
	}
	var intercept float64
	if err := json.Unmarshal(f.Intercept, &intercept); err != nil {
		return nil, fmt.Errorf("model %s: single-target intercept must be a number: %w", path, err)
	}
	m, err = NewSingleTarget(row, intercept)
	if err != nil {
		return nil, fmt.Errorf("model %s: %w", path, err)
	}
	return m, nil
}

// NumFeatures is the input width the model was fitted on.
func (m *LinearRegression) NumFeatures() int { return len(m.coef[0]) }

// Predict evaluates the model on one standardized row.
func (m *LinearRegression) Predict(x []float64) (domain.ModelOutput, error) {
	if len(x) != m.NumFeatures() {
		return domain.ModelOutput{}, fmt.Errorf("model expects %d features, got %d", m.NumFeatures(), len(x))
	}
	values := make([]float64, len(m.coef))
	for t, row := range m.coef {
		sum := m.intercept[t]
		for i, c := range row {
			sum += c * x[i]
		}
		values[t] = sum
	}
	if !m.multiTarget {
		return domain.ScalarOutput(values[0]), nil
	}
	return domain.VectorOutput(values...), nil
}
