package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/weather-predict-service/internal/domain"
	"github.com/couchcryptid/weather-predict-service/internal/observability"
)

// Scaler standardizes a feature row.
type Scaler interface {
	NumFeatures() int
	Transform(x []float64) ([]float64, error)
}

// Regressor predicts targets for one standardized feature row.
type Regressor interface {
	NumFeatures() int
	Predict(x []float64) (domain.ModelOutput, error)
}

// Engine runs observations through a matched scaler and regressor. It is
// immutable after construction and safe for concurrent use.
type Engine struct {
	scaler  Scaler
	model   Regressor
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewEngine pairs a scaler with a regressor. Both are required and must be
// fitted on the same feature vector.
func NewEngine(scaler Scaler, model Regressor, logger *slog.Logger, metrics *observability.Metrics) (*Engine, error) {
	if scaler == nil || model == nil {
		return nil, errors.New("model and scaler must be loaded together")
	}
	if scaler.NumFeatures() != domain.FeatureCount {
		return nil, fmt.Errorf("scaler fitted on %d features, want %d", scaler.NumFeatures(), domain.FeatureCount)
	}
	if model.NumFeatures() != scaler.NumFeatures() {
		return nil, fmt.Errorf("model expects %d features but scaler produces %d", model.NumFeatures(), scaler.NumFeatures())
	}
	return &Engine{scaler: scaler, model: model, logger: logger, metrics: metrics}, nil
}

// LoadEngine reads both artifacts and pairs them. Any failure is fatal to
// startup.
func LoadEngine(modelPath, scalerPath string, logger *slog.Logger, metrics *observability.Metrics) (*Engine, error) {
	scaler, err := LoadScaler(scalerPath)
	if err != nil {
		return nil, err
	}
	lr, err := LoadLinearRegression(modelPath)
	if err != nil {
		return nil, err
	}
	e, err := NewEngine(scaler, lr, logger, metrics)
	if err != nil {
		return nil, fmt.Errorf("artifacts %s and %s: %w", modelPath, scalerPath, err)
	}
	metrics.ModelLoaded.Set(1)
	logger.Info("model and scaler loaded",
		"model_path", modelPath,
		"scaler_path", scalerPath,
		"multi_target", lr.multiTarget,
	)
	return e, nil
}

// Predict forecasts temperature and precipitation for obs. It never fails:
// unusable model output degrades to the zero forecast.
func (e *Engine) Predict(obs domain.Observation) domain.Prediction {
	start := time.Now()
	defer func() {
		e.metrics.InferenceDuration.Observe(time.Since(start).Seconds())
	}()

	out, err := e.infer(obs.Features())
	if err != nil {
		e.logger.Error("inference failed, using zero forecast", "city", obs.City, "error", err)
		e.metrics.InferenceFallbacks.Inc()
		return domain.Prediction{}
	}

	if !out.Recognized() {
		e.logger.Warn("unrecognised model output, using zero forecast",
			"city", obs.City, "scalar", out.Scalar, "values", len(out.Values))
		e.metrics.InferenceFallbacks.Inc()
	}
	return domain.NormalizeOutput(out)
}

func (e *Engine) infer(f domain.FeatureVector) (out domain.ModelOutput, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("model panicked: %v", r)
		}
	}()
	scaled, err := e.scaler.Transform(f.Slice())
	if err != nil {
		return domain.ModelOutput{}, fmt.Errorf("scale features: %w", err)
	}
	return e.model.Predict(scaled)
}

// CheckReadiness reports whether the artifacts are loaded.
func (e *Engine) CheckReadiness(_ context.Context) error {
	if e == nil || e.scaler == nil || e.model == nil {
		return errors.New("model not loaded")
	}
	return nil
}
