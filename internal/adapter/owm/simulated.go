package owm

import (
	"context"

	"github.com/couchcryptid/weather-predict-service/internal/domain"
)

// SimulatedSource returns a fixed rainy observation without calling the
// provider. It backs USE_FAKE_DATA for offline development.
type SimulatedSource struct{}

// NewSimulatedSource creates a SimulatedSource.
func NewSimulatedSource() *SimulatedSource { return &SimulatedSource{} }

// Fetch returns the canned payload for any city. It only fails when ctx is
// already done.
func (s *SimulatedSource) Fetch(ctx context.Context, _ string) (domain.RawWeather, error) {
	if err := ctx.Err(); err != nil {
		return domain.RawWeather{}, &domain.Error{Kind: domain.KindUnavailable, Err: err}
	}
	return simulatedPayload(), nil
}

func simulatedPayload() domain.RawWeather {
	return domain.RawWeather{
		Main: &domain.RawMain{
			Temp:     ptr(22.3),
			Humidity: ptr(92.0),
			Pressure: ptr(1001.0),
		},
		Wind:    &domain.RawWind{Speed: ptr(3.8)},
		Weather: []domain.RawCondition{{Main: ptr("Rain"), Icon: domain.LooseString{Value: "09d", Valid: true}}},
		Rain:    domain.Accumulation{OneHour: domain.LooseFloat{Value: 3.2, Valid: true}},
	}
}

func ptr[T any](v T) *T { return &v }
