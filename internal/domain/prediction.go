package domain

import "math"

// FeatureCount is the width of the model input.
const FeatureCount = 4

// FeatureVector is (temperature, humidity, wind speed, pressure). The order
// matches the columns the scaler and model were fitted on.
type FeatureVector [FeatureCount]float64

// Slice returns a copy of the vector as a slice.
func (f FeatureVector) Slice() []float64 {
	out := make([]float64, FeatureCount)
	copy(out, f[:])
	return out
}

// ModelOutput is the prediction for one input row. Single-target regressors
// produce a scalar; multi-target regressors produce a vector.
type ModelOutput struct {
	Scalar bool
	Values []float64
}

// ScalarOutput wraps a single-target prediction.
func ScalarOutput(v float64) ModelOutput {
	return ModelOutput{Scalar: true, Values: []float64{v}}
}

// VectorOutput wraps a multi-target prediction row.
func VectorOutput(vs ...float64) ModelOutput {
	return ModelOutput{Values: vs}
}

// Prediction is the model's forecast, rounded for display.
type Prediction struct {
	Temperature   float64 `json:"predicted_temperature"`
	Precipitation float64 `json:"predicted_precipitation"`
}

// Recognized reports whether out has a usable shape: a single finite scalar
// or a vector of at least two finite values.
func (o ModelOutput) Recognized() bool {
	if o.Scalar && len(o.Values) != 1 {
		return false
	}
	if !o.Scalar && len(o.Values) < 2 {
		return false
	}
	for _, v := range o.Values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// NormalizeOutput maps raw model output to a Prediction.
//
//	vector of 2+ values -> (v[0], v[1])
//	scalar              -> (v, 0)
//	anything else       -> (0, 0)
//
// Non-finite values are treated as an unrecognised shape.
func NormalizeOutput(out ModelOutput) Prediction {
	if !out.Recognized() {
		return Prediction{}
	}
	if out.Scalar {
		return Prediction{Temperature: Round2(out.Values[0])}
	}
	return Prediction{
		Temperature:   Round2(out.Values[0]),
		Precipitation: Round2(out.Values[1]),
	}
}
