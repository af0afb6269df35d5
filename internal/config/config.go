package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Version is reported by the /health endpoint.
const Version = "1.0.0"

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
	AllowedOrigins  []string

	// OpenWeatherMap provider configuration.
	OpenWeatherAPIKey  string
	OpenWeatherBaseURL string
	OpenWeatherTimeout time.Duration

	// UseFakeData serves a fixed rainy observation instead of calling the
	// provider. Resolved once at startup.
	UseFakeData bool

	// Model artifacts. Both must be present and describe the same features.
	ModelPath  string
	ScalerPath string

	// Prediction event publishing (optional).
	KafkaBrokers         []string
	KafkaPredictionTopic string
	EventsEnabled        bool
}

// LoadDotEnv loads a .env file from the working directory when one exists.
// Variables already set in the environment take precedence.
func LoadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil //nolint:nilerr // no .env file is the normal case
	}
	return godotenv.Load()
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	requestTimeout, err := parsePositiveDuration("REQUEST_TIMEOUT", "60s")
	if err != nil {
		return nil, err
	}

	owmTimeout, err := parsePositiveDuration("OPENWEATHER_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}

	useFake, err := parseBool("USE_FAKE_DATA", false)
	if err != nil {
		return nil, err
	}

	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}
	eventsEnabled, err := parseBool("PREDICTION_EVENTS_ENABLED", len(brokers) > 0)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
		RequestTimeout:  requestTimeout,
		AllowedOrigins:  sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),

		OpenWeatherAPIKey:  os.Getenv("OPENWEATHER_API_KEY"),
		OpenWeatherBaseURL: strings.TrimRight(sharedcfg.EnvOrDefault("OPENWEATHER_BASE_URL", "https://api.openweathermap.org"), "/"),
		OpenWeatherTimeout: owmTimeout,
		UseFakeData:        useFake,

		ModelPath:  sharedcfg.EnvOrDefault("MODEL_PATH", "model/model.json"),
		ScalerPath: sharedcfg.EnvOrDefault("SCALER_PATH", "model/scaler.json"),

		KafkaBrokers:         brokers,
		KafkaPredictionTopic: sharedcfg.EnvOrDefault("KAFKA_PREDICTION_TOPIC", "weather-predictions"),
		EventsEnabled:        eventsEnabled,
	}

	if !cfg.UseFakeData && cfg.OpenWeatherAPIKey == "" {
		return nil, errors.New("OPENWEATHER_API_KEY is required unless USE_FAKE_DATA is true")
	}
	if cfg.ModelPath == "" || cfg.ScalerPath == "" {
		return nil, errors.New("MODEL_PATH and SCALER_PATH are both required")
	}
	if cfg.EventsEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("PREDICTION_EVENTS_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.EventsEnabled && cfg.KafkaPredictionTopic == "" {
		return nil, errors.New("KAFKA_PREDICTION_TOPIC is required when prediction events are enabled")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseBool(key string, def bool) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "":
		return def, nil
	case "1", "true", "yes":
		return true, nil
	case "0", "false", "no":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s", key)
	}
}
