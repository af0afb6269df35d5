package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// DefaultIcon is used when the provider omits the condition icon.
const DefaultIcon = "01d"

// RawWeather is the subset of the OpenWeatherMap current-conditions payload
// the pipeline consumes. Pointer members distinguish "absent" from zero.
type RawWeather struct {
	Main    *RawMain       `json:"main"`
	Wind    *RawWind       `json:"wind"`
	Weather []RawCondition `json:"weather"`
	Rain    Accumulation   `json:"rain"`
	Snow    Accumulation   `json:"snow"`
}

type RawMain struct {
	Temp     *float64 `json:"temp"`
	Humidity *float64 `json:"humidity"`
	Pressure *float64 `json:"pressure"`
}

type RawWind struct {
	Speed *float64 `json:"speed"`
}

type RawCondition struct {
	Main *string     `json:"main"`
	Icon LooseString `json:"icon"`
}

// Accumulation holds a rain or snow volume block. Any shape other than an
// object decodes to the zero value instead of failing the payload.
type Accumulation struct {
	OneHour LooseFloat `json:"1h"`
}

func (a *Accumulation) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		*a = Accumulation{}
		return nil
	}
	type plain Accumulation
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		*a = Accumulation{}
		return nil //nolint:nilerr // optional block, malformed means absent
	}
	*a = Accumulation(p)
	return nil
}

// LooseFloat accepts a JSON number or a numeric string. Anything else,
// including NaN and infinities, leaves it invalid.
type LooseFloat struct {
	Value float64
	Valid bool
}

func (f *LooseFloat) UnmarshalJSON(data []byte) error {
	*f = LooseFloat{}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil //nolint:nilerr // best-effort field
	}
	var n float64
	switch t := v.(type) {
	case float64:
		n = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil //nolint:nilerr // best-effort field
		}
		n = parsed
	default:
		return nil
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return nil
	}
	f.Value, f.Valid = n, true
	return nil
}

// OrZero returns the value, or 0 when absent, invalid or negative.
func (f LooseFloat) OrZero() float64 {
	if !f.Valid || f.Value < 0 {
		return 0
	}
	return f.Value
}

// LooseString accepts a JSON string. Any other shape leaves it invalid
// instead of failing the payload.
type LooseString struct {
	Value string
	Valid bool
}

func (s *LooseString) UnmarshalJSON(data []byte) error {
	*s = LooseString{}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil //nolint:nilerr // best-effort field
	}
	if str, ok := v.(string); ok {
		s.Value, s.Valid = str, true
	}
	return nil
}

// Observation is the current weather for a city as fed to the model.
type Observation struct {
	City          string  `json:"city"`
	Temperature   float64 `json:"temperature"`
	Humidity      float64 `json:"humidity"`
	WindSpeed     float64 `json:"wind_speed"`
	Pressure      float64 `json:"pressure"`
	Precipitation float64 `json:"precipitation"`
	Condition     string  `json:"weather_condition"`
	Icon          string  `json:"icon"`
}

// Features returns the model input in training order:
// temperature, humidity, wind speed, pressure.
func (o Observation) Features() FeatureVector {
	return FeatureVector{o.Temperature, o.Humidity, o.WindSpeed, o.Pressure}
}
