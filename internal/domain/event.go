package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// PredictionEvent records one successful prediction for downstream consumers.
type PredictionEvent struct {
	ID          string      `json:"id"`
	City        string      `json:"city"`
	Observation Observation `json:"observation"`
	Prediction  Prediction  `json:"prediction"`
	Video       string      `json:"video"`
	PredictedAt time.Time   `json:"predicted_at"`
}

// NewPredictionEvent stamps a response with an ID and the current time.
func NewPredictionEvent(resp Response) PredictionEvent {
	return PredictionEvent{
		ID:          uuid.NewString(),
		City:        resp.City,
		Observation: resp.Observation,
		Prediction:  resp.Prediction,
		Video:       resp.Video,
		PredictedAt: clock.Now().UTC(),
	}
}

// Key partitions events by city so per-city ordering is kept.
func (e PredictionEvent) Key() []byte {
	return []byte(strings.ToLower(e.City))
}
