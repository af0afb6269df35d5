package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/weather-predict-service/internal/config"
	"github.com/couchcryptid/weather-predict-service/internal/domain"
)

const (
	probeCity     = "London"
	probeTimeout  = 5 * time.Second
	maxFormBytes  = 1 << 20
	writeHeadroom = 5 * time.Second
)

// Runner produces a prediction result for a city.
type Runner interface {
	Run(ctx context.Context, city string) domain.Result
}

// Prober checks that the weather provider accepts our credentials.
type Prober interface {
	Probe(ctx context.Context, city string) (int, error)
}

// Options configures the HTTP server.
type Options struct {
	Addr           string
	RequestTimeout time.Duration
	// PublishTimeout is how long a prediction run may spend publishing its
	// event after the request deadline. It extends the write timeout.
	PublishTimeout time.Duration
	AllowedOrigins []string
	// Clock stamps diagnostics responses. Defaults to the real clock.
	Clock clockwork.Clock
}

// Server exposes the prediction API alongside health, readiness, and metrics
// endpoints.
type Server struct {
	httpServer     *http.Server
	runner         Runner
	prober         Prober
	ready          sharedobs.ReadinessChecker
	requestTimeout time.Duration
	clock          clockwork.Clock
	logger         *slog.Logger
}

// NewServer creates the HTTP server. prober may be nil when the service runs
// on simulated data.
func NewServer(opts Options, runner Runner, prober Prober, ready sharedobs.ReadinessChecker, logger *slog.Logger) *Server {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	s := &Server{
		runner:         runner,
		prober:         prober,
		ready:          ready,
		requestTimeout: opts.RequestTimeout,
		clock:          clock,
		logger:         logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Post("/predict", s.handlePredict)
	r.Get("/health", handleHealth)
	r.Get("/test-apis", s.handleTestAPIs)
	r.Get("/healthz", sharedobs.LivenessHandler())
	r.Get("/readyz", sharedobs.ReadinessHandler(ready))
	r.Handle("/metrics", promhttp.Handler())

	s.httpServer = &http.Server{
		Addr:         opts.Addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: opts.RequestTimeout + opts.PublishTimeout + writeHeadroom,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// WriteTimeout reports how long a response may take to be written.
func (s *Server) WriteTimeout() time.Duration {
	return s.httpServer.WriteTimeout
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	// Parses urlencoded bodies too; ErrNotMultipart only means no multipart part.
	if err := r.ParseMultipartForm(maxFormBytes); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		_ = writeJSON(w, http.StatusBadRequest, domain.ErrorResponse{
			Kind:    domain.KindBadRequest,
			Message: "Invalid form body.",
			Details: err.Error(),
		})
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll() //nolint:errcheck // temp file cleanup
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	res := s.runner.Run(ctx, r.PostFormValue("city"))
	if err := writeJSON(w, res.StatusCode(), res.Body()); err != nil {
		s.logger.Error("encode prediction response", "error", err)
	}
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	_ = writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": config.Version})
}

type diagnostics struct {
	OpenWeatherAPI string `json:"openweather_api"`
	ModelLoaded    string `json:"model_loaded"`
	Timestamp      string `json:"timestamp"`
}

func (s *Server) handleTestAPIs(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
	defer cancel()

	d := diagnostics{
		OpenWeatherAPI: s.probeProvider(ctx),
		ModelLoaded:    "No",
		Timestamp:      s.clock.Now().UTC().Format(time.RFC3339),
	}
	if s.ready != nil && s.ready.CheckReadiness(ctx) == nil {
		d.ModelLoaded = "Yes"
	}
	_ = writeJSON(w, http.StatusOK, d)
}

func (s *Server) probeProvider(ctx context.Context) string {
	if s.prober == nil {
		return "Simulated (USE_FAKE_DATA)"
	}
	status, err := s.prober.Probe(ctx, probeCity)
	switch {
	case err != nil:
		s.logger.Warn("weather API probe failed", "error", err)
		return "Error: " + err.Error()
	case status == http.StatusOK:
		return "Working"
	default:
		return fmt.Sprintf("Error: Status %d", status)
	}
}

// logRequests logs one line per request with its status and latency.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// writeJSON encodes v before committing the status, so a value that cannot
// be encoded is served as a 500 error body instead of a truncated reply.
// The returned error reports only the encoding failure.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	var buf bytes.Buffer
	encErr := json.NewEncoder(&buf).Encode(v)
	if encErr != nil {
		buf.Reset()
		status = http.StatusInternalServerError
		_ = json.NewEncoder(&buf).Encode(domain.ErrorResponse{
			Kind:    domain.KindServerError,
			Message: "Prediction failed",
			Details: "encode response: " + encErr.Error(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
	return encErr
}
