package owm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weather-predict-service/internal/domain"
	"github.com/couchcryptid/weather-predict-service/internal/observability"
)

const (
	testKey           = "test-key"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
	londonPayload     = `{
		"weather": [{"main": "Rain", "icon": "10d"}],
		"main": {"temp": 10.0, "humidity": 80, "pressure": 1012},
		"wind": {"speed": 5.0},
		"rain": {"1h": 2.0}
	}`
)

func testClient(baseURL string, transport http.RoundTripper, clock clockwork.Clock) *Client {
	return &Client{
		apiKey:      testKey,
		baseURL:     baseURL,
		httpClient:  &http.Client{Timeout: 5 * time.Second, Transport: transport},
		clock:       clock,
		maxAttempts: defaultMaxAttempts,
		backoffUnit: defaultBackoffUnit,
		metrics:     observability.NewMetricsForTesting(),
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// mockRoundTripper answers requests without a network and counts them.
type mockRoundTripper struct {
	calls   atomic.Int32
	handler func(n int32, req *http.Request) (*http.Response, error)
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.handler(m.calls.Add(1), req)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{headerContentType: {contentTypeJSON}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestClient_Fetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, currentWeatherPath, r.URL.Path)
		assert.Equal(t, "London", r.URL.Query().Get("q"))
		assert.Equal(t, testKey, r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))

		w.Header().Set(headerContentType, contentTypeJSON)
		_, _ = io.WriteString(w, londonPayload)
	}))
	defer srv.Close()

	c := testClient(srv.URL, nil, clockwork.NewRealClock())
	raw, err := c.Fetch(context.Background(), "London")
	require.NoError(t, err)

	obs, err := domain.Extract("London", raw)
	require.NoError(t, err)
	assert.Equal(t, domain.Observation{
		City: "London", Temperature: 10, Humidity: 80, WindSpeed: 5, Pressure: 1012,
		Precipitation: 2, Condition: "rain", Icon: "10d",
	}, obs)
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.FetchAttempts.WithLabelValues("success")), 0)
}

func TestClient_Fetch_MistypedIconStillDecodes(t *testing.T) {
	rt := &mockRoundTripper{handler: func(_ int32, _ *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusOK, `{
			"weather": [{"id": "500", "main": "Rain", "description": 7, "icon": 5}],
			"main": {"temp": 10.0, "humidity": 80, "pressure": 1012},
			"wind": {"speed": 5.0}
		}`), nil
	}}
	c := testClient("http://owm.test", rt, clockwork.NewFakeClock())

	raw, err := c.Fetch(context.Background(), "London")
	require.NoError(t, err)

	obs, err := domain.Extract("London", raw)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultIcon, obs.Icon)
	assert.Equal(t, "rain", obs.Condition)
}

func fetchDurationSamples(t *testing.T, c *Client) uint64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.metrics.FetchDuration.Write(&m))
	return m.GetHistogram().GetSampleCount()
}

func TestClient_Fetch_TerminalStatuses(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		kind   domain.Kind
	}{
		{"unauthorized", http.StatusUnauthorized, `{"cod":401}`, domain.KindUnauthorized},
		{"not found", http.StatusNotFound, `{"cod":"404","message":"city not found"}`, domain.KindNotFound},
		{"server error", http.StatusInternalServerError, `oops`, domain.KindUpstream},
		{"rate limited", http.StatusTooManyRequests, `{"cod":429}`, domain.KindUpstream},
		{"malformed body", http.StatusOK, `not json`, domain.KindMalformedResponse},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rt := &mockRoundTripper{handler: func(_ int32, _ *http.Request) (*http.Response, error) {
				return jsonResponse(tc.status, tc.body), nil
			}}
			c := testClient("http://owm.test", rt, clockwork.NewFakeClock())

			_, err := c.Fetch(context.Background(), "Atlantis")
			require.Error(t, err)
			assert.Equal(t, tc.kind, domain.KindOf(err))
			assert.Equal(t, int32(1), rt.calls.Load(), "terminal failures are not retried")
		})
	}
}

func TestClient_Fetch_NotFoundCarriesCity(t *testing.T) {
	rt := &mockRoundTripper{handler: func(_ int32, _ *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusNotFound, `{}`), nil
	}}
	c := testClient("http://owm.test", rt, clockwork.NewFakeClock())

	_, err := c.Fetch(context.Background(), "Atlantis")
	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "Atlantis", de.City)
}

func TestClient_Fetch_UpstreamCarriesStatus(t *testing.T) {
	rt := &mockRoundTripper{handler: func(_ int32, _ *http.Request) (*http.Response, error) {
		return jsonResponse(http.StatusBadGateway, `bad gateway`), nil
	}}
	c := testClient("http://owm.test", rt, clockwork.NewFakeClock())

	_, err := c.Fetch(context.Background(), "London")
	var de *domain.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, http.StatusBadGateway, de.Status)
}

func TestClient_Fetch_RetriesTransportErrors(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rt := &mockRoundTripper{handler: func(n int32, _ *http.Request) (*http.Response, error) {
		if n < 3 {
			return nil, errors.New("connection reset by peer")
		}
		return jsonResponse(http.StatusOK, londonPayload), nil
	}}
	c := testClient("http://owm.test", rt, clock)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type result struct {
		raw domain.RawWeather
		err error
	}
	done := make(chan result, 1)
	go func() {
		raw, err := c.Fetch(ctx, "London")
		done <- result{raw, err}
	}()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.Equal(t, int32(1), rt.calls.Load())
	clock.Advance(2 * time.Second)

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	assert.Equal(t, int32(2), rt.calls.Load())
	clock.Advance(4 * time.Second)

	res := <-done
	require.NoError(t, res.err)
	require.NotNil(t, res.raw.Main)
	assert.Equal(t, int32(3), rt.calls.Load())
	assert.InDelta(t, 2, testutil.ToFloat64(c.metrics.FetchAttempts.WithLabelValues("transport_error")), 0)
	assert.Equal(t, uint64(3), fetchDurationSamples(t, c), "one duration sample per attempt")
}

func TestClient_Fetch_ExhaustsAttempts(t *testing.T) {
	rt := &mockRoundTripper{handler: func(_ int32, _ *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	}}
	c := testClient("http://owm.test", rt, clockwork.NewRealClock())
	c.backoffUnit = time.Millisecond

	_, err := c.Fetch(context.Background(), "London")
	require.Error(t, err)
	assert.Equal(t, domain.KindUnavailable, domain.KindOf(err))
	assert.Equal(t, int32(3), rt.calls.Load())
	assert.Equal(t, uint64(3), fetchDurationSamples(t, c))
	assert.NotContains(t, err.Error(), testKey, "errors must not leak the API key")
}

func TestClient_Fetch_TimeoutIsRetried(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := testClient(srv.URL, nil, clockwork.NewRealClock())
	c.httpClient.Timeout = 20 * time.Millisecond
	c.backoffUnit = time.Millisecond

	_, err := c.Fetch(context.Background(), "London")
	require.Error(t, err)
	assert.Equal(t, domain.KindUnavailable, domain.KindOf(err))
	assert.InDelta(t, 3, testutil.ToFloat64(c.metrics.FetchAttempts.WithLabelValues("transport_error")), 0)
}

func TestClient_Fetch_CancelDuringBackoff(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rt := &mockRoundTripper{handler: func(_ int32, _ *http.Request) (*http.Response, error) {
		return nil, errors.New("connection refused")
	}}
	c := testClient("http://owm.test", rt, clock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Fetch(ctx, "London")
		done <- err
	}()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))
	cancel()

	err := <-done
	require.Error(t, err)
	assert.Equal(t, domain.KindUnavailable, domain.KindOf(err))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), rt.calls.Load())
}

func TestClient_Probe(t *testing.T) {
	rt := &mockRoundTripper{handler: func(_ int32, req *http.Request) (*http.Response, error) {
		assert.Equal(t, "London", req.URL.Query().Get("q"))
		return jsonResponse(http.StatusUnauthorized, `{}`), nil
	}}
	c := testClient("http://owm.test", rt, clockwork.NewFakeClock())

	status, err := c.Probe(context.Background(), "London")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, int32(1), rt.calls.Load())
}

func TestClient_Probe_TransportError(t *testing.T) {
	rt := &mockRoundTripper{handler: func(_ int32, _ *http.Request) (*http.Response, error) {
		return nil, errors.New("no route to host")
	}}
	c := testClient("http://owm.test", rt, clockwork.NewFakeClock())

	_, err := c.Probe(context.Background(), "London")
	require.Error(t, err)
	assert.Equal(t, int32(1), rt.calls.Load())
}

func TestSimulatedSource(t *testing.T) {
	s := NewSimulatedSource()
	raw, err := s.Fetch(context.Background(), "anywhere")
	require.NoError(t, err)

	obs, err := domain.Extract("anywhere", raw)
	require.NoError(t, err)
	assert.Equal(t, 22.3, obs.Temperature)
	assert.Equal(t, 92.0, obs.Humidity)
	assert.Equal(t, 3.8, obs.WindSpeed)
	assert.Equal(t, 1001.0, obs.Pressure)
	assert.Equal(t, 3.2, obs.Precipitation)
	assert.Equal(t, "rain", obs.Condition)
	assert.Equal(t, "09d", obs.Icon)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Fetch(ctx, "anywhere")
	assert.Equal(t, domain.KindUnavailable, domain.KindOf(err))
}
