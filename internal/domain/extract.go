package domain

import (
	"math"
	"strings"
)

// Extract converts a provider payload into an Observation for city.
// Missing measurements or condition label yield a KindMalformedResponse
// error; the icon and rain/snow volumes fall back to defaults.
func Extract(city string, raw RawWeather) (Observation, error) {
	if raw.Main == nil {
		return Observation{}, ErrMalformed("missing main block")
	}
	if raw.Main.Temp == nil {
		return Observation{}, ErrMalformed("missing main.temp")
	}
	if raw.Main.Humidity == nil {
		return Observation{}, ErrMalformed("missing main.humidity")
	}
	if raw.Main.Pressure == nil {
		return Observation{}, ErrMalformed("missing main.pressure")
	}
	if raw.Wind == nil || raw.Wind.Speed == nil {
		return Observation{}, ErrMalformed("missing wind.speed")
	}
	if len(raw.Weather) == 0 || raw.Weather[0].Main == nil {
		return Observation{}, ErrMalformed("missing weather[0].main")
	}

	icon := DefaultIcon
	if c := raw.Weather[0].Icon; c.Valid && c.Value != "" {
		icon = c.Value
	}

	return Observation{
		City:          city,
		Temperature:   *raw.Main.Temp,
		Humidity:      *raw.Main.Humidity,
		WindSpeed:     *raw.Wind.Speed,
		Pressure:      *raw.Main.Pressure,
		Precipitation: Precipitation(raw),
		Condition:     strings.ToLower(strings.TrimSpace(*raw.Weather[0].Main)),
		Icon:          icon,
	}, nil
}

// Precipitation is the last hour's rain plus snow in millimetres, rounded to
// two decimals. Absent or unusable volumes count as zero.
// A sum that overflows saturates at math.MaxFloat64.
func Precipitation(raw RawWeather) float64 {
	total := raw.Rain.OneHour.OrZero() + raw.Snow.OneHour.OrZero()
	if math.IsInf(total, 1) {
		total = math.MaxFloat64
	}
	return Round2(total)
}

// Round2 rounds v to two decimal places. Values too large to scale are
// returned unchanged; at that magnitude they carry no fractional digits.
func Round2(v float64) float64 {
	scaled := v * 100
	if math.IsInf(scaled, 0) || math.IsNaN(scaled) {
		return v
	}
	return math.Round(scaled) / 100
}
