// Command validate checks that the model artifacts and the mock fixtures are
// consistent before a deploy: the scaler and model form a matched pair, every
// fixture payload extracts to its expected observation, and the model output
// for every fixture has a usable shape. It also prints the prediction for a
// feature vector given on the command line.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -model model/model.json \
//	  -scaler model/scaler.json \
//	  -fixtures data/mock/owm_current_conditions.json \
//	  -temp 12 -humidity 70 -wind 4 -pressure 1010
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"

	"github.com/couchcryptid/weather-predict-service/internal/domain"
	"github.com/couchcryptid/weather-predict-service/internal/model"
	"github.com/couchcryptid/weather-predict-service/internal/observability"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

type fixture struct {
	City     string          `json:"city"`
	Payload  json.RawMessage `json:"payload"`
	Expected struct {
		domain.Observation
		Video string `json:"video"`
	} `json:"expected"`
}

type artifacts struct {
	scaler *model.StandardScaler
	model  *model.LinearRegression
	engine *model.Engine
}

func main() {
	modelPath := flag.String("model", "model/model.json", "path to the model artifact")
	scalerPath := flag.String("scaler", "model/scaler.json", "path to the scaler artifact")
	fixturesPath := flag.String("fixtures", "data/mock/owm_current_conditions.json", "path to the OWM fixture file")
	temp := flag.Float64("temp", 15, "sample temperature (°C)")
	humidity := flag.Float64("humidity", 70, "sample relative humidity (%)")
	wind := flag.Float64("wind", 4, "sample wind speed (m/s)")
	pressure := flag.Float64("pressure", 1013, "sample pressure (hPa)")
	flag.Parse()

	sample := domain.Observation{City: "sample", Temperature: *temp, Humidity: *humidity, WindSpeed: *wind, Pressure: *pressure}
	os.Exit(run(*modelPath, *scalerPath, *fixturesPath, sample))
}

func run(modelPath, scalerPath, fixturesPath string, sample domain.Observation) int {
	fmt.Println("=== Model Artifact Validation ===")
	fmt.Println()

	fixtures, err := loadFixtures(fixturesPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load fixtures: %v\n", err)
		return 1
	}

	art, pairing := validatePairing(modelPath, scalerPath)
	phases := []*phase{
		pairing,
		validateExtraction(fixtures),
	}
	if art != nil {
		phases = append(phases, validateOutputs(art, fixtures))
	}

	// ── Report results ──
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Fixtures: %d\n", len(fixtures))
	if art != nil {
		pred := art.engine.Predict(sample)
		fmt.Printf("Sample (%.1f°C, %.0f%%, %.1f m/s, %.0f hPa): predicted %.2f°C, %.2f mm\n",
			sample.Temperature, sample.Humidity, sample.WindSpeed, sample.Pressure,
			pred.Temperature, pred.Precipitation)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

func loadFixtures(path string) ([]fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []fixture
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return out, nil
}

// validatePairing loads both artifacts and checks they describe the same
// features. Returns nil artifacts when the pair is unusable.
func validatePairing(modelPath, scalerPath string) (*artifacts, *phase) {
	p := &phase{name: "Phase 1: Artifact pairing"}

	scaler, err := model.LoadScaler(scalerPath)
	if err != nil {
		p.errorf("scaler: %v", err)
	}
	lr, err := model.LoadLinearRegression(modelPath)
	if err != nil {
		p.errorf("model: %v", err)
	}
	if !p.passed() {
		return nil, p
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine, err := model.NewEngine(scaler, lr, logger, observability.NewMetricsForTesting())
	if err != nil {
		p.errorf("pair: %v", err)
		return nil, p
	}
	return &artifacts{scaler: scaler, model: lr, engine: engine}, p
}

// validateExtraction re-extracts every fixture payload and compares it with
// the stored expectation.
func validateExtraction(fixtures []fixture) *phase {
	p := &phase{name: "Phase 2: Fixture extraction"}

	for i := range fixtures {
		fx := &fixtures[i]
		var raw domain.RawWeather
		if err := json.Unmarshal(fx.Payload, &raw); err != nil {
			p.errorf("%s: decode payload: %v", fx.City, err)
			continue
		}
		obs, err := domain.Extract(domain.DisplayCity(fx.City), raw)
		if err != nil {
			p.errorf("%s: extract: %v", fx.City, err)
			continue
		}
		if obs != fx.Expected.Observation {
			p.errorf("%s: observation mismatch: got %+v, want %+v", fx.City, obs, fx.Expected.Observation)
		}
		if v := domain.VideoFor(obs.Condition); v != fx.Expected.Video {
			p.errorf("%s: video %q, want %q", fx.City, v, fx.Expected.Video)
		}
	}
	return p
}

// validateOutputs runs the raw model on every fixture and flags outputs the
// service would silently replace with the zero forecast.
func validateOutputs(art *artifacts, fixtures []fixture) *phase {
	p := &phase{name: "Phase 3: Model output shape"}

	for i := range fixtures {
		obs := fixtures[i].Expected.Observation
		scaled, err := art.scaler.Transform(obs.Features().Slice())
		if err != nil {
			p.errorf("%s: scale: %v", obs.City, err)
			continue
		}
		out, err := art.model.Predict(scaled)
		if err != nil {
			p.errorf("%s: predict: %v", obs.City, err)
			continue
		}
		if !out.Recognized() {
			p.errorf("%s: unusable output %v (scalar=%t)", obs.City, out.Values, out.Scalar)
			continue
		}
		if t := out.Values[0]; math.Abs(t) > 100 {
			p.errorf("%s: implausible predicted temperature %.2f", obs.City, t)
		}
	}
	return p
}
