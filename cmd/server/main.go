package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/weather-predict-service/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/weather-predict-service/internal/adapter/kafka"
	"github.com/couchcryptid/weather-predict-service/internal/adapter/owm"
	"github.com/couchcryptid/weather-predict-service/internal/config"
	"github.com/couchcryptid/weather-predict-service/internal/model"
	"github.com/couchcryptid/weather-predict-service/internal/observability"
	"github.com/couchcryptid/weather-predict-service/internal/pipeline"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		slog.Error("failed to load .env", "error", err)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	// The model and scaler are a matched pair; serving without them is not allowed.
	engine, err := model.LoadEngine(cfg.ModelPath, cfg.ScalerPath, logger, metrics)
	if err != nil {
		logger.Error("failed to load model artifacts", "error", err)
		os.Exit(1)
	}

	var (
		source pipeline.WeatherSource
		prober httpadapter.Prober
	)
	if cfg.UseFakeData {
		source = owm.NewSimulatedSource()
		logger.Warn("simulated weather data enabled, provider will not be called")
	} else {
		client := owm.NewClient(cfg.OpenWeatherAPIKey, cfg.OpenWeatherBaseURL, cfg.OpenWeatherTimeout, logger, metrics)
		source, prober = client, client
		logger.Info("openweathermap source enabled", "base_url", cfg.OpenWeatherBaseURL, "timeout", cfg.OpenWeatherTimeout)
	}

	var (
		publisher pipeline.EventPublisher
		kafkaPub  *kafkaadapter.Publisher
	)
	if cfg.EventsEnabled {
		kafkaPub = kafkaadapter.NewPublisher(cfg, logger)
		publisher = kafkaPub
	} else {
		logger.Info("prediction events disabled")
	}

	p := pipeline.New(source, engine, publisher, logger, metrics)

	srv := httpadapter.NewServer(httpadapter.Options{
		Addr:           cfg.HTTPAddr,
		RequestTimeout: cfg.RequestTimeout,
		PublishTimeout: pipeline.PublishTimeout,
		AllowedOrigins: cfg.AllowedOrigins,
	}, p, prober, engine, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaPub != nil {
		if err := kafkaPub.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
