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

// weatherAPIDays is the longest forecast the free WeatherAPI plan returns.
const weatherAPIDays = 3

// WeatherAPIProvider is a keyed forecast source backed by WeatherAPI.com.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	now     func() time.Time
}

func NewWeatherAPIProvider(cfg HTTPClientConfig, apiKey string) *WeatherAPIProvider {
	return &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: "https://api.weatherapi.com/v1/forecast.json",
		httpCfg: cfg,
		circuit: newBreaker("weatherapi"),
		now:     time.Now,
	}
}

// WithBaseURL points the provider at another endpoint (used by tests).
func (p *WeatherAPIProvider) WithBaseURL(u string) *WeatherAPIProvider {
	p.baseURL = u
	return p
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

type weatherAPIForecast struct {
	Location struct {
		Name    string `json:"name"`
		Country string `json:"country"`
	} `json:"location"`
	Forecast struct {
		ForecastDay []struct {
			Hour []struct {
				TimeEpoch    int64   `json:"time_epoch"`
				TempC        float64 `json:"temp_c"`
				FeelsLikeC   float64 `json:"feelslike_c"`
				Humidity     float64 `json:"humidity"`
				WindKph      float64 `json:"wind_kph"`
				ChanceOfRain float64 `json:"chance_of_rain"`
				Condition    struct {
					Text string `json:"text"`
				} `json:"condition"`
			} `json:"hour"`
		} `json:"forecastday"`
	} `json:"forecast"`
}

// FetchForecast returns the hourly forecast sampled every three hours from now on.
func (p *WeatherAPIProvider) FetchForecast(ctx context.Context, coords weather.Coordinates) (weather.Forecast, error) {
	if p.apiKey == "" {
		return weather.Forecast{}, fmt.Errorf("weatherapi: %w", ErrNotConfigured)
	}

	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("key", p.apiKey)
		// "q" accepts "lat,lon".
		values.Set("q", strconv.FormatFloat(coords.Lat, 'f', -1, 64)+","+strconv.FormatFloat(coords.Lon, 'f', -1, 64))
		values.Set("days", strconv.Itoa(weatherAPIDays))
		values.Set("lang", "es")
		values.Set("aqi", "no")
		values.Set("alerts", "no")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return weather.Forecast{}, err
	}
	defer resp.Body.Close()

	var payload weatherAPIForecast
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Forecast{}, fmt.Errorf("weatherapi: decode forecast: %w", err)
	}

	f := weather.Forecast{
		Provider: p.name,
		City:     payload.Location.Name,
		Country:  payload.Location.Country,
	}
	now := p.now().UTC().Truncate(time.Hour)
	for _, day := range payload.Forecast.ForecastDay {
		for _, h := range day.Hour {
			ts := time.Unix(h.TimeEpoch, 0).UTC()
			if ts.Before(now) || ts.Hour()%forecastStepHours != 0 {
				continue
			}
			f.Samples = append(f.Samples, weather.ForecastSample{
				Time:            ts,
				Temperature:     h.TempC,
				FeelsLike:       h.FeelsLikeC,
				Description:     h.Condition.Text,
				Humidity:        h.Humidity,
				WindSpeed:       h.WindKph / 3.6,
				RainProbability: h.ChanceOfRain / 100,
			})
		}
	}
	return f, nil
}
