package weather

import (
	"context"
	"encoding/json"
)

// ForecastProvider abstracts a forecast source (e.g. OpenWeatherMap, Open-Meteo).
type ForecastProvider interface {
	Name() string
	FetchForecast(ctx context.Context, coords Coordinates) (Forecast, error)
}

// CurrentProvider returns the provider's current-weather payload untouched.
type CurrentProvider interface {
	Current(ctx context.Context, coords Coordinates) (json.RawMessage, error)
}

// Geocoder resolves free text to a place. A nil place with a nil error means no match.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (*Place, error)
}
