package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/i474232898/weather-risk-alerts/internal/weather"
	"github.com/sony/gobreaker"
)

const openWeatherBaseURL = "https://api.openweathermap.org"

// OpenWeatherProvider talks to OpenWeatherMap: current weather, the 5-day/3-hour
// forecast and direct geocoding.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(cfg HTTPClientConfig, apiKey string) *OpenWeatherProvider {
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: openWeatherBaseURL,
		httpCfg: cfg,
		circuit: newBreaker("openweather"),
	}
}

// WithBaseURL points the provider at another host (used by tests).
func (p *OpenWeatherProvider) WithBaseURL(u string) *OpenWeatherProvider {
	p.baseURL = u
	return p
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

func (p *OpenWeatherProvider) get(ctx context.Context, path string, values url.Values) (*http.Response, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("openweather: %w", ErrNotConfigured)
	}
	values.Set("appid", p.apiKey)

	buildRequest := func() (*http.Request, error) {
		u := fmt.Sprintf("%s%s?%s", p.baseURL, path, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}
	return doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
}

func coordValues(coords weather.Coordinates) url.Values {
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(coords.Lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(coords.Lon, 'f', -1, 64))
	values.Set("units", "metric")
	values.Set("lang", "es")
	return values
}

// Current returns the /data/2.5/weather payload as received.
func (p *OpenWeatherProvider) Current(ctx context.Context, coords weather.Coordinates) (json.RawMessage, error) {
	resp, err := p.get(ctx, "/data/2.5/weather", coordValues(coords))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("openweather: invalid JSON in current weather response")
	}
	return json.RawMessage(body), nil
}

type openWeatherForecast struct {
	City struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"city"`
	List []struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			Humidity  float64 `json:"humidity"`
		} `json:"main"`
		Weather []struct {
			Description string `json:"description"`
		} `json:"weather"`
		Wind struct {
			Speed float64 `json:"speed"`
		} `json:"wind"`
		Pop float64 `json:"pop"`
	} `json:"list"`
}

func (p *OpenWeatherProvider) FetchForecast(ctx context.Context, coords weather.Coordinates) (weather.Forecast, error) {
	resp, err := p.get(ctx, "/data/2.5/forecast", coordValues(coords))
	if err != nil {
		return weather.Forecast{}, err
	}
	defer resp.Body.Close()

	var payload openWeatherForecast
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Forecast{}, fmt.Errorf("openweather: decode forecast: %w", err)
	}

	f := weather.Forecast{
		Provider: p.name,
		City:     payload.City.Name,
		Country:  payload.City.Country,
		Samples:  make([]weather.ForecastSample, 0, len(payload.List)),
	}
	for _, item := range payload.List {
		var desc string
		if len(item.Weather) > 0 {
			desc = item.Weather[0].Description
		}
		f.Samples = append(f.Samples, weather.ForecastSample{
			Time:            time.Unix(item.Dt, 0).UTC(),
			Temperature:     item.Main.Temp,
			FeelsLike:       item.Main.FeelsLike,
			Description:     desc,
			Humidity:        item.Main.Humidity,
			WindSpeed:       item.Wind.Speed,
			RainProbability: item.Pop,
		})
	}
	return f, nil
}

// Geocode resolves free text with the direct geocoding API, first match only.
func (p *OpenWeatherProvider) Geocode(ctx context.Context, query string) (*weather.Place, error) {
	values := url.Values{}
	values.Set("q", query)
	values.Set("limit", "1")

	resp, err := p.get(ctx, "/geo/1.0/direct", values)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var matches []struct {
		Name    string  `json:"name"`
		Country string  `json:"country"`
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&matches); err != nil {
		return nil, fmt.Errorf("openweather: decode geocoding: %w", err)
	}
	if len(matches) == 0 {
		return nil, nil
	}

	m := matches[0]
	return &weather.Place{
		Name:        m.Name,
		Country:     m.Country,
		Coordinates: weather.Coordinates{Lat: m.Lat, Lon: m.Lon},
	}, nil
}
