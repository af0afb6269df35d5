// Package owm fetches current conditions from the OpenWeatherMap API.
package owm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/weather-predict-service/internal/domain"
	"github.com/couchcryptid/weather-predict-service/internal/observability"
)

const (
	defaultMaxAttempts = 3
	defaultBackoffUnit = time.Second
	currentWeatherPath = "/data/2.5/weather"
)

// Client retrieves the raw current-conditions payload for a city.
type Client struct {
	apiKey      string
	baseURL     string
	httpClient  *http.Client
	clock       clockwork.Clock
	maxAttempts int
	backoffUnit time.Duration
	logger      *slog.Logger
	metrics     *observability.Metrics
}

// NewClient creates an OpenWeatherMap client. timeout bounds each attempt.
func NewClient(apiKey, baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		clock:       clockwork.NewRealClock(),
		maxAttempts: defaultMaxAttempts,
		backoffUnit: defaultBackoffUnit,
		logger:      logger,
		metrics:     metrics,
	}
}

// Fetch requests current conditions for city in metric units.
//
// Authorization failures, unknown cities, other non-2xx statuses and
// undecodable bodies are returned immediately. Transport failures and
// timeouts are retried up to three attempts, waiting 2s then 4s between them.
func (c *Client) Fetch(ctx context.Context, city string) (domain.RawWeather, error) {
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		c.logger.Debug("weather request", "city", city, "attempt", attempt)
		start := time.Now()
		raw, err := c.fetchOnce(ctx, city)
		c.metrics.FetchDuration.Observe(time.Since(start).Seconds())
		if err == nil {
			c.metrics.FetchAttempts.WithLabelValues("success").Inc()
			return raw, nil
		}

		var de *domain.Error
		if errors.As(err, &de) {
			c.metrics.FetchAttempts.WithLabelValues(string(de.Kind)).Inc()
			c.logger.Warn("weather request rejected", "city", city, "kind", de.Kind, "status", de.Status)
			return domain.RawWeather{}, err
		}

		c.metrics.FetchAttempts.WithLabelValues("transport_error").Inc()
		lastErr = err
		if ctx.Err() != nil {
			return domain.RawWeather{}, &domain.Error{Kind: domain.KindUnavailable, Err: ctx.Err()}
		}
		if attempt == c.maxAttempts {
			break
		}

		wait := time.Duration(2*attempt) * c.backoffUnit
		c.logger.Warn("weather request failed, retrying",
			"city", city, "attempt", attempt, "backoff", wait, "error", err)
		select {
		case <-ctx.Done():
			return domain.RawWeather{}, &domain.Error{Kind: domain.KindUnavailable, Err: ctx.Err()}
		case <-c.clock.After(wait):
		}
	}

	c.logger.Error("weather request attempts exhausted", "city", city, "attempts", c.maxAttempts, "error", lastErr)
	return domain.RawWeather{}, &domain.Error{
		Kind: domain.KindUnavailable,
		Err:  fmt.Errorf("after %d attempts: %w", c.maxAttempts, lastErr),
	}
}

// fetchOnce performs one request. Classified failures come back as
// *domain.Error; anything else is a retryable transport failure.
func (c *Client) fetchOnce(ctx context.Context, city string) (domain.RawWeather, error) {
	resp, err := c.get(ctx, city)
	if err != nil {
		return domain.RawWeather{}, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return domain.RawWeather{}, &domain.Error{Kind: domain.KindUnauthorized, Status: resp.StatusCode}
	case resp.StatusCode == http.StatusNotFound:
		return domain.RawWeather{}, &domain.Error{Kind: domain.KindNotFound, City: city, Status: resp.StatusCode}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return domain.RawWeather{}, &domain.Error{
			Kind:   domain.KindUpstream,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("body: %s", body),
		}
	}

	var raw domain.RawWeather
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return domain.RawWeather{}, &domain.Error{Kind: domain.KindMalformedResponse, Err: fmt.Errorf("decode response: %w", err)}
	}
	return raw, nil
}

// Probe makes a single request for city and reports the HTTP status. It does
// not retry and does not decode the body.
func (c *Client) Probe(ctx context.Context, city string) (int, error) {
	resp, err := c.get(ctx, city)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func (c *Client) get(ctx context.Context, city string) (*http.Response, error) {
	params := url.Values{
		"q":     {city},
		"appid": {c.apiKey},
		"units": {"metric"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+currentWeatherPath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		// *url.Error carries the full URL, including appid.
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return nil, fmt.Errorf("weather request: %w", err)
	}
	return resp, nil
}
