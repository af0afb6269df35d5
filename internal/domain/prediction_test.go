package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeOutput(t *testing.T) {
	cases := []struct {
		name string
		out  ModelOutput
		want Prediction
	}{
		{"scalar", ScalarOutput(5.5), Prediction{Temperature: 5.5}},
		{"two values", VectorOutput(5.5, 1.25), Prediction{Temperature: 5.5, Precipitation: 1.25}},
		{"extra values ignored", VectorOutput(1, 2, 3), Prediction{Temperature: 1, Precipitation: 2}},
		{"rounds to two decimals", VectorOutput(21.4567, 0.004), Prediction{Temperature: 21.46, Precipitation: 0}},
		{"scalar rounds", ScalarOutput(-3.14159), Prediction{Temperature: -3.14}},
		{"empty vector", VectorOutput(), Prediction{}},
		{"single-element vector", VectorOutput(7), Prediction{}},
		{"scalar with no value", ModelOutput{Scalar: true}, Prediction{}},
		{"scalar with two values", ModelOutput{Scalar: true, Values: []float64{1, 2}}, Prediction{}},
		{"zero value", ModelOutput{}, Prediction{}},
		{"NaN", VectorOutput(math.NaN(), 1), Prediction{}},
		{"Inf scalar", ScalarOutput(math.Inf(1)), Prediction{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, NormalizeOutput(tc.out))
		})
	}
}
