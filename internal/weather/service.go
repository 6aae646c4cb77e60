package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/i474232898/weather-risk-alerts/internal/llm"
)

// ServiceConfig wires the external collaborators of a Service.
type ServiceConfig struct {
	// Forecasts are tried in order; the first non-empty forecast wins.
	Forecasts   []ForecastProvider
	Current     CurrentProvider
	Geocoder    Geocoder
	Model       llm.Completer
	Transcriber llm.Transcriber
	// Location renders forecast dates for the model. Defaults to time.Local.
	Location *time.Location
}

// Service answers weather questions by chaining geocoding, forecast and model calls.
type Service struct {
	forecasts   []ForecastProvider
	current     CurrentProvider
	geocoder    Geocoder
	model       llm.Completer
	transcriber llm.Transcriber
	loc         *time.Location
	now         func() time.Time
}

// NewService creates a new Service.
func NewService(cfg ServiceConfig) *Service {
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		forecasts:   cfg.Forecasts,
		current:     cfg.Current,
		geocoder:    cfg.Geocoder,
		model:       cfg.Model,
		transcriber: cfg.Transcriber,
		loc:         loc,
		now:         time.Now,
	}
}

// AskRequest is a text question with an optional place.
type AskRequest struct {
	Question string
	Location *Place
}

// AudioRequest points at an uploaded recording. The caller owns the file.
type AudioRequest struct {
	Path        string
	Coordinates *Coordinates
}

// Summary is the risk snapshot returned next to every answer.
type Summary struct {
	RiskLevel   RiskLevel `json:"risk_level"`
	Probability int       `json:"probability"`
	Temperature int       `json:"temperature"`
	Description string    `json:"description"`
	Location    string    `json:"location"`
}

// Answer is the model reply plus the risk summary of the nearest forecast step.
type Answer struct {
	Transcription string    `json:"transcription,omitempty"`
	Response      string    `json:"response"`
	WeatherData   Summary   `json:"weather_data"`
	Timestamp     time.Time `json:"timestamp"`
}

// CurrentWeather returns the provider's current-weather payload for coords.
func (s *Service) CurrentWeather(ctx context.Context, coords Coordinates) (json.RawMessage, error) {
	if s.current == nil {
		return nil, ErrProviderNotConfigured
	}
	raw, err := s.current.Current(ctx, coords)
	if err != nil {
		if errors.Is(err, ErrProviderNotConfigured) {
			return nil, err
		}
		return nil, upstream("weather", err)
	}
	return raw, nil
}

// Forecast asks each provider in order and returns the first non-empty forecast.
func (s *Service) Forecast(ctx context.Context, coords Coordinates) (Forecast, error) {
	if len(s.forecasts) == 0 {
		return Forecast{}, fmt.Errorf("no weather providers configured")
	}

	var lastErr error
	for _, p := range s.forecasts {
		f, err := p.FetchForecast(ctx, coords)
		if err != nil {
			log.Printf("provider %s forecast failed for %s: %v", p.Name(), coords, err)
			lastErr = upstream(p.Name(), err)
			continue
		}
		if len(f.Samples) == 0 {
			lastErr = upstream(p.Name(), ErrNoForecast)
			continue
		}
		return f, nil
	}
	return Forecast{}, lastErr
}

// Ask answers a text question. Without a location the question itself is geocoded.
func (s *Service) Ask(ctx context.Context, req AskRequest) (Answer, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return Answer{}, ErrMissingQuestion
	}

	place := req.Location
	if place == nil {
		log.Printf("DEBUG: no coordinates; geocoding question %q", question)
		place = Resolve(ctx, s.geocoder, question)
		if place == nil {
			return Answer{}, ErrLocationUnresolved
		}
		log.Printf("DEBUG: geocoding found %s (%s)", place.Label(), place.Coordinates)
	}

	return s.answer(ctx, place, func(fc ForecastContext) llm.ChatRequest {
		return llm.ChatRequest{
			System:      chatSystemPrompt,
			Prompt:      chatPrompt(fc, question),
			MaxTokens:   answerMaxTokens,
			Temperature: answerTemperature,
		}
	})
}

// AskAudio transcribes the recording and answers it. Without coordinates the
// transcript is geocoded.
func (s *Service) AskAudio(ctx context.Context, req AudioRequest) (Answer, error) {
	if s.transcriber == nil {
		return Answer{}, llm.ErrNotConfigured
	}
	transcript, err := s.transcriber.Transcribe(ctx, req.Path)
	if err != nil {
		return Answer{}, modelError(err)
	}
	log.Printf("DEBUG: transcription: %q", transcript)

	var place *Place
	if req.Coordinates != nil {
		place = &Place{Coordinates: *req.Coordinates}
	} else {
		place = Resolve(ctx, s.geocoder, transcript)
		if place == nil {
			return Answer{}, ErrTranscriptUnresolved
		}
	}

	ans, err := s.answer(ctx, place, func(fc ForecastContext) llm.ChatRequest {
		return llm.ChatRequest{
			System:      audioSystemPrompt,
			Prompt:      audioPrompt(fc, transcript),
			MaxTokens:   answerMaxTokens,
			Temperature: answerTemperature,
		}
	})
	if err != nil {
		return Answer{}, err
	}
	ans.Transcription = transcript
	return ans, nil
}

func (s *Service) answer(ctx context.Context, place *Place, build func(ForecastContext) llm.ChatRequest) (Answer, error) {
	if s.model == nil {
		return Answer{}, llm.ErrNotConfigured
	}

	forecast, err := s.Forecast(ctx, place.Coordinates)
	if err != nil {
		return Answer{}, err
	}
	if forecast.City == "" {
		forecast.City = place.Name
		forecast.Country = place.Country
	}

	fc := BuildForecastContext(forecast, s.loc)
	reply, err := s.model.Complete(ctx, build(fc))
	if err != nil {
		return Answer{}, modelError(err)
	}

	next, _ := forecast.Next()
	risk := ClassifySample(next)

	return Answer{
		Response: reply,
		WeatherData: Summary{
			RiskLevel:   risk.Level,
			Probability: risk.Probability,
			Temperature: int(math.Round(next.Temperature)),
			Description: next.Description,
			Location:    forecast.City,
		},
		Timestamp: s.now().UTC(),
	}, nil
}

func modelError(err error) error {
	if errors.Is(err, llm.ErrNotConfigured) {
		return err
	}
	return upstream("openai", err)
}
