package providers

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/weather-risk-alerts/internal/weather"
)

// geocoderMu guards the package-level API key of kelvins/geocoder.
var geocoderMu sync.Mutex

// GoogleGeocoder resolves free text with the Google Geocoding API. It is the
// secondary geocoder, consulted after OpenWeatherMap finds nothing.
type GoogleGeocoder struct {
	apiKey  string
	country string
	lookup  func(geocoder.Address) (geocoder.Location, error)
}

// NewGoogleGeocoder biases lookups towards country (may be empty).
func NewGoogleGeocoder(apiKey, country string) *GoogleGeocoder {
	return &GoogleGeocoder{
		apiKey:  apiKey,
		country: country,
		lookup:  geocoder.Geocoding,
	}
}

func (g *GoogleGeocoder) Geocode(ctx context.Context, query string) (*weather.Place, error) {
	if g.apiKey == "" {
		return nil, fmt.Errorf("google geocoder: %w", ErrNotConfigured)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	query = strings.TrimSpace(query)
	addr := geocoder.Address{City: query, Country: g.country}

	geocoderMu.Lock()
	geocoder.ApiKey = g.apiKey
	loc, err := g.lookup(addr)
	geocoderMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("google geocoder: %w", err)
	}
	if loc.Latitude == 0 && loc.Longitude == 0 {
		return nil, nil
	}

	return &weather.Place{
		Name:        query,
		Country:     g.country,
		Coordinates: weather.Coordinates{Lat: loc.Latitude, Lon: loc.Longitude},
	}, nil
}
