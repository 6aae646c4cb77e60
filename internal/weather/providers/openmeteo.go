package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/i474232898/weather-risk-alerts/internal/weather"
	"github.com/sony/gobreaker"
)

// forecastStepHours samples hourly series at the same 3h cadence as OpenWeatherMap.
const forecastStepHours = 3

// OpenMeteoProvider is a keyless forecast source used when the primary one fails.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	now     func() time.Time
}

func NewOpenMeteoProvider(cfg HTTPClientConfig) *OpenMeteoProvider {
	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: "https://api.open-meteo.com/v1/forecast",
		httpCfg: cfg,
		circuit: newBreaker("openmeteo"),
		now:     time.Now,
	}
}

// WithBaseURL points the provider at another endpoint (used by tests).
func (p *OpenMeteoProvider) WithBaseURL(u string) *OpenMeteoProvider {
	p.baseURL = u
	return p
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) FetchForecast(ctx context.Context, coords weather.Coordinates) (weather.Forecast, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", strconv.FormatFloat(coords.Lat, 'f', -1, 64))
		values.Set("longitude", strconv.FormatFloat(coords.Lon, 'f', -1, 64))
		values.Set("hourly", "temperature_2m,apparent_temperature,relative_humidity_2m,precipitation_probability,wind_speed_10m,weather_code")
		values.Set("wind_speed_unit", "ms")
		values.Set("timezone", "UTC")
		values.Set("forecast_days", "5")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.Forecast{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Hourly struct {
			Time          []string  `json:"time"`
			Temperature   []float64 `json:"temperature_2m"`
			Apparent      []float64 `json:"apparent_temperature"`
			Humidity      []float64 `json:"relative_humidity_2m"`
			Precipitation []float64 `json:"precipitation_probability"`
			WindSpeed     []float64 `json:"wind_speed_10m"`
			WeatherCode   []int     `json:"weather_code"`
		} `json:"hourly"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Forecast{}, fmt.Errorf("openmeteo: decode forecast: %w", err)
	}

	h := payload.Hourly
	f := weather.Forecast{Provider: p.name}
	now := p.now().UTC().Truncate(time.Hour)
	for i := 0; i < len(h.Time); i += forecastStepHours {
		ts, err := time.Parse("2006-01-02T15:04", h.Time[i])
		if err != nil || ts.Before(now) {
			continue
		}
		f.Samples = append(f.Samples, weather.ForecastSample{
			Time:            ts.UTC(),
			Temperature:     at(h.Temperature, i),
			FeelsLike:       at(h.Apparent, i),
			Description:     describeWMOCode(int(at(h.WeatherCode, i))),
			Humidity:        at(h.Humidity, i),
			WindSpeed:       at(h.WindSpeed, i),
			RainProbability: at(h.Precipitation, i) / 100,
		})
	}
	return f, nil
}

func at[T int | float64](s []T, i int) float64 {
	if i < len(s) {
		return float64(s[i])
	}
	return 0
}

// describeWMOCode maps Open-Meteo weather codes to Spanish descriptions.
func describeWMOCode(code int) string {
	switch {
	case code == 0:
		return "cielo claro"
	case code >= 1 && code <= 3:
		return "nubes"
	case code == 45 || code == 48:
		return "niebla"
	case code >= 51 && code <= 57:
		return "llovizna"
	case (code >= 61 && code <= 67) || (code >= 80 && code <= 82):
		return "lluvia"
	case code >= 71 && code <= 77:
		return "nieve"
	case code >= 95:
		return "tormenta"
	default:
		return "desconocido"
	}
}
