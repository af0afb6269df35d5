// Command genmock reads a historical weather CSV (the same export the model is
// trained on) and generates OpenWeatherMap-shaped fixtures for the pipeline
// test suite. Expected observations are computed with the actual domain
// package so the fixture matches real extraction behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -csv data/global_weather_sample.csv \
//	  -out data/mock/owm_current_conditions.json
package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/weather-predict-service/internal/domain"
)

// fixture pairs a provider payload with the observation and background the
// pipeline must produce for it.
type fixture struct {
	City     string          `json:"city"`
	Payload  json.RawMessage `json:"payload"`
	Expected expected        `json:"expected"`
}

type expected struct {
	domain.Observation
	Video string `json:"video"`
}

// payload mirrors the subset of /data/2.5/weather the service reads, plus
// name and dt for realism.
type payload struct {
	Name    string      `json:"name"`
	Dt      int64       `json:"dt"`
	Weather []condition `json:"weather"`
	Main    mainBlock   `json:"main"`
	Wind    windBlock   `json:"wind"`
	Rain    *volume     `json:"rain,omitempty"`
	Snow    *volume     `json:"snow,omitempty"`
}

type condition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type mainBlock struct {
	Temp     float64 `json:"temp"`
	Humidity float64 `json:"humidity"`
	Pressure float64 `json:"pressure"`
}

type windBlock struct {
	Speed float64 `json:"speed"`
}

type volume struct {
	OneHour float64 `json:"1h"`
}

// conditionRule maps a free-text condition to an OpenWeatherMap group.
// Rules are checked in order; the first keyword match wins.
type conditionRule struct {
	keywords []string
	main     string
	icon     string
}

var conditionRules = []conditionRule{
	{[]string{"thunder"}, "Thunderstorm", "11d"},
	{[]string{"drizzle"}, "Drizzle", "09d"},
	{[]string{"snow", "sleet", "blizzard", "ice"}, "Snow", "13d"},
	{[]string{"rain", "shower"}, "Rain", "10d"},
	{[]string{"mist"}, "Mist", "50d"},
	{[]string{"fog"}, "Fog", "50d"},
	{[]string{"haze"}, "Haze", "50d"},
	{[]string{"sand", "dust"}, "Dust", "50d"},
	{[]string{"overcast"}, "Clouds", "04d"},
	{[]string{"cloud"}, "Clouds", "02d"},
	{[]string{"sunny", "clear"}, "Clear", "01d"},
}

const kphPerMetrePerSecond = 3.6

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	csvPath := flag.String("csv", "data/global_weather_sample.csv", "historical weather CSV export")
	out := flag.String("out", "data/mock/owm_current_conditions.json", "output path for the fixture")
	flag.Parse()

	if *csvPath == "" || *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -csv, -out")
	}

	fixtures, err := processCSV(*csvPath)
	if err != nil {
		return fmt.Errorf("processing %s: %w", *csvPath, err)
	}
	log.Printf("total: %d fixtures", len(fixtures))

	if err := writeJSON(*out, fixtures); err != nil {
		return fmt.Errorf("writing fixture: %w", err)
	}
	log.Printf("wrote fixture: %s", *out)

	printStats(fixtures)
	return nil
}

func processCSV(path string) ([]fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("no data rows")
	}

	colIdx := map[string]int{}
	for i, h := range rows[0] {
		colIdx[h] = i
	}

	fixtures := make([]fixture, 0, len(rows)-1)
	for n, row := range rows[1:] {
		fx, err := buildFixture(row, colIdx)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", n+2, err)
		}
		fixtures = append(fixtures, fx)
	}
	return fixtures, nil
}

func buildFixture(row []string, colIdx map[string]int) (fixture, error) {
	city := get(row, colIdx, "location_name")
	if city == "" {
		return fixture{}, fmt.Errorf("missing location_name")
	}

	var nums [5]float64
	for i, col := range []string{"temperature_celsius", "humidity", "wind_kph", "pressure_mb", "precip_mm"} {
		v, err := strconv.ParseFloat(get(row, colIdx, col), 64)
		if err != nil {
			return fixture{}, fmt.Errorf("%s: %w", col, err)
		}
		nums[i] = v
	}
	temp, humidity, windKph, pressure, precip := nums[0], nums[1], nums[2], nums[3], nums[4]

	text := get(row, colIdx, "condition_text")
	group, icon := classify(text)

	p := payload{
		Name:    city,
		Dt:      parseUpdated(get(row, colIdx, "last_updated")),
		Weather: []condition{{Main: group, Description: strings.ToLower(text), Icon: icon}},
		Main:    mainBlock{Temp: temp, Humidity: humidity, Pressure: pressure},
		Wind:    windBlock{Speed: domain.Round2(windKph / kphPerMetrePerSecond)},
	}
	if precip > 0 {
		switch group {
		case "Snow":
			p.Snow = &volume{OneHour: precip}
		default:
			p.Rain = &volume{OneHour: precip}
		}
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fixture{}, fmt.Errorf("marshal payload: %w", err)
	}

	// Run the actual extraction.
	var raw domain.RawWeather
	if err := json.Unmarshal(data, &raw); err != nil {
		return fixture{}, fmt.Errorf("decode payload: %w", err)
	}
	obs, err := domain.Extract(domain.DisplayCity(city), raw)
	if err != nil {
		return fixture{}, fmt.Errorf("extract: %w", err)
	}

	return fixture{
		City:     city,
		Payload:  data,
		Expected: expected{Observation: obs, Video: domain.VideoFor(obs.Condition)},
	}, nil
}

func classify(text string) (group, icon string) {
	lower := strings.ToLower(text)
	for _, r := range conditionRules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.main, r.icon
			}
		}
	}
	return "Clear", domain.DefaultIcon
}

func parseUpdated(s string) int64 {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		return 0
	}
	return t.UTC().Unix()
}

func get(row []string, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(fixtures []fixture) {
	videos := map[string]int{}
	var wet int
	for i := range fixtures {
		videos[fixtures[i].Expected.Video]++
		if fixtures[i].Expected.Precipitation > 0 {
			wet++
		}
	}

	keys := make([]string, 0, len(videos))
	for k := range videos {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d\n", len(fixtures))
	fmt.Printf("With precipitation: %d\n", wet)
	fmt.Print("By video:")
	for _, k := range keys {
		fmt.Printf(" %s=%d", k, videos[k])
	}
	fmt.Println()
}
