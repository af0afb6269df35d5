package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/couchcryptid/weather-predict-service/internal/domain"
	"github.com/couchcryptid/weather-predict-service/internal/observability"
)

// PublishTimeout bounds how long a prediction event may delay a response.
const PublishTimeout = 5 * time.Second

// WeatherSource retrieves the raw current-conditions payload for a city.
type WeatherSource interface {
	Fetch(ctx context.Context, city string) (domain.RawWeather, error)
}

// Predictor forecasts from an observation. It never fails.
type Predictor interface {
	Predict(obs domain.Observation) domain.Prediction
}

// EventPublisher emits a record of each successful prediction.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.PredictionEvent) error
}

// Pipeline orchestrates fetch, extract, predict and assemble for one city.
// It is the only place internal failures are translated to the caller-facing
// error contract.
type Pipeline struct {
	source    WeatherSource
	predictor Predictor
	publisher EventPublisher
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// New creates a Pipeline. publisher may be nil to disable prediction events.
func New(source WeatherSource, predictor Predictor, publisher EventPublisher, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		source:    source,
		predictor: predictor,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// Run produces a Result for city. Exactly one of Response or Error is set.
func (p *Pipeline) Run(ctx context.Context, city string) (res domain.Result) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("pipeline panicked", "city", city, "panic", r, "stack", string(debug.Stack()))
			res = failure(domain.KindServerError, http.StatusInternalServerError, "Prediction failed", fmt.Sprint(r))
		}
		p.metrics.PipelineDuration.Observe(time.Since(start).Seconds())
		p.metrics.Predictions.WithLabelValues(outcome(res)).Inc()
	}()

	city = strings.TrimSpace(city)
	if city == "" {
		return failure(domain.KindBadRequest, http.StatusBadRequest, "City name is required.", "")
	}

	raw, err := p.source.Fetch(ctx, city)
	if err != nil {
		return p.fetchFailure(city, err)
	}

	obs, err := domain.Extract(city, raw)
	if err != nil {
		if domain.KindOf(err) == domain.KindMalformedResponse {
			p.logger.Warn("unexpected weather payload", "city", city, "error", err)
			return failure(domain.KindMalformedResponse, http.StatusInternalServerError, "Unexpected API response format", err.Error())
		}
		return p.unexpected(city, err)
	}

	pred := p.predictor.Predict(obs)

	obs.City = domain.DisplayCity(city)
	resp := &domain.Response{
		Observation: obs,
		Prediction:  pred,
		Video:       domain.VideoFor(obs.Condition),
	}
	p.logger.Info("prediction served",
		"city", obs.City,
		"condition", obs.Condition,
		"predicted_temperature", pred.Temperature,
		"predicted_precipitation", pred.Precipitation,
	)

	p.publish(ctx, *resp)
	return domain.Result{Response: resp}
}

func (p *Pipeline) fetchFailure(city string, err error) domain.Result {
	kind := domain.KindOf(err)
	switch kind {
	case domain.KindUnauthorized:
		p.logger.Error("weather API rejected credentials", "city", city)
		return failure(kind, http.StatusUnauthorized, "Weather API authorization failed", "")
	case domain.KindNotFound:
		return failure(kind, http.StatusNotFound, fmt.Sprintf("City '%s' not found", city), "")
	case domain.KindUnavailable:
		p.logger.Error("weather API unavailable", "city", city, "error", err)
		return failure(kind, http.StatusServiceUnavailable, "Failed to retrieve weather data after multiple attempts", "")
	case domain.KindUpstream:
		status := upstreamStatus(err)
		p.logger.Error("weather API returned unexpected status", "city", city, "status", status)
		return failure(kind, status, fmt.Sprintf("Weather API returned status %d", status), "")
	case domain.KindMalformedResponse:
		p.logger.Warn("undecodable weather payload", "city", city, "error", err)
		return failure(kind, http.StatusInternalServerError, "Unexpected API response format", err.Error())
	default:
		return p.unexpected(city, err)
	}
}

func (p *Pipeline) unexpected(city string, err error) domain.Result {
	p.logger.Error("prediction failed", "city", city, "error", err)
	return failure(domain.KindServerError, http.StatusInternalServerError, "Prediction failed", err.Error())
}

// publish emits the prediction event. Failures are logged and counted; they
// never change the response. The caller's cancellation does not abort an
// in-flight publish, but PublishTimeout does.
func (p *Pipeline) publish(ctx context.Context, resp domain.Response) {
	if p.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), PublishTimeout)
	defer cancel()

	if err := p.publisher.Publish(pubCtx, domain.NewPredictionEvent(resp)); err != nil {
		p.logger.Warn("publish prediction event failed", "city", resp.City, "error", err)
		p.metrics.EventsPublished.WithLabelValues("error").Inc()
		return
	}
	p.metrics.EventsPublished.WithLabelValues("success").Inc()
}

// upstreamStatus passes a provider status through when it is a valid error
// status; anything else is reported as 502.
func upstreamStatus(err error) int {
	var de *domain.Error
	if errors.As(err, &de) && de.Status >= 400 && de.Status <= 599 {
		return de.Status
	}
	return http.StatusBadGateway
}

func failure(kind domain.Kind, status int, msg, details string) domain.Result {
	return domain.Result{Error: &domain.ErrorResponse{
		Kind:    kind,
		Message: msg,
		Details: details,
		Status:  status,
	}}
}

func outcome(res domain.Result) string {
	if res.Error != nil {
		return string(res.Error.Kind)
	}
	return "ok"
}
