package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultVideo is the background token for conditions without a dedicated asset.
const DefaultVideo = "default"

var videoByCondition = map[string]string{
	"clear":        "sunny",
	"clouds":       "cloudy",
	"rain":         "rain",
	"drizzle":      "rain",
	"snow":         "snow",
	"thunderstorm": "rain",
	"mist":         "cloudy",
	"fog":          "cloudy",
	"haze":         "cloudy",
}

// VideoFor returns the background asset token for a weather condition label.
// Matching is case-insensitive.
func VideoFor(condition string) string {
	if v, ok := videoByCondition[strings.ToLower(strings.TrimSpace(condition))]; ok {
		return v
	}
	return DefaultVideo
}

// DisplayCity title-cases a city name using Unicode word boundaries:
// "new york" -> "New York", "winston-salem" -> "Winston-Salem". An apostrophe
// does not start a new word, so "o'fallon" -> "O'fallon".
func DisplayCity(city string) string {
	// cases.Caser is stateful; build one per call.
	return cases.Title(language.Und).String(strings.TrimSpace(city))
}
