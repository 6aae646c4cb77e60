package weather

import (
	"fmt"
	"time"
)

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (c Coordinates) String() string {
	return fmt.Sprintf("%.4f,%.4f", c.Lat, c.Lon)
}

// Place is a geocoding match.
type Place struct {
	Name    string `json:"name"`
	Country string `json:"country"`
	Coordinates
}

// Label returns "Name, Country" (or just the name when the country is unknown).
func (p Place) Label() string {
	if p.Country == "" {
		return p.Name
	}
	return p.Name + ", " + p.Country
}

// KeyLocation is one of the fixed places evaluated by every prediction cycle.
type KeyLocation struct {
	Name string  `json:"name" yaml:"name"`
	Lat  float64 `json:"lat" yaml:"lat"`
	Lon  float64 `json:"lon" yaml:"lon"`
}

// Coordinates returns the location as a coordinate pair.
func (l KeyLocation) Coordinates() Coordinates {
	return Coordinates{Lat: l.Lat, Lon: l.Lon}
}

// DefaultKeyLocations are the Sierra cities with volcanic/seismic exposure.
func DefaultKeyLocations() []KeyLocation {
	return []KeyLocation{
		{Name: "Quito", Lat: -0.1807, Lon: -78.4678},
		{Name: "Latacunga", Lat: -0.9281, Lon: -78.6119},
		{Name: "Ambato", Lat: -1.2392, Lon: -78.6339},
		{Name: "Riobamba", Lat: -1.6734, Lon: -78.6294},
	}
}

// ForecastSample is one time step of a multi-day forecast.
type ForecastSample struct {
	Time            time.Time `json:"time"` // always UTC
	Temperature     float64   `json:"temperatureC"`
	FeelsLike       float64   `json:"feelsLikeC"`
	Description     string    `json:"description"`
	Humidity        float64   `json:"humidityPercent"`
	WindSpeed       float64   `json:"windSpeed"`       // m/s
	RainProbability float64   `json:"rainProbability"` // 0-1
}

// Forecast is a provider's forecast for one place.
// Samples are ordered by Time ascending.
type Forecast struct {
	Provider string           `json:"provider"`
	City     string           `json:"city"`
	Country  string           `json:"country"`
	Samples  []ForecastSample `json:"samples"`
}

// Next returns the nearest forecast sample.
func (f Forecast) Next() (ForecastSample, bool) {
	if len(f.Samples) == 0 {
		return ForecastSample{}, false
	}
	return f.Samples[0], true
}
