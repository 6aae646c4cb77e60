package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/hashicorp/go-multierror"

	"github.com/i474232898/weather-risk-alerts/internal/llm"
	"github.com/i474232898/weather-risk-alerts/internal/metrics"
	"github.com/i474232898/weather-risk-alerts/internal/weather"
)

const (
	cycleSystemPrompt = "Eres un asistente de predicción climática. Responde siempre en JSON válido."
	cycleMaxTokens    = 300
	cycleTemperature  = 0.3

	assessSystemPrompt = "Eres un asistente que genera predicciones de riesgo climático y volcánico basadas en datos."
	assessMaxTokens    = 400
	assessTemperature  = 0.2
)

// PredictorConfig configures a Predictor.
type PredictorConfig struct {
	Model     llm.Completer
	Alerts    *Service
	Locations []weather.KeyLocation
	Metrics   *metrics.Recorder
	// Structured requests a strict JSON schema response from the model.
	Structured bool
}

// Predictor asks the model for risk predictions and turns high ones into alerts.
type Predictor struct {
	model      llm.Completer
	alerts     *Service
	locations  []weather.KeyLocation
	metrics    *metrics.Recorder
	structured bool
}

// NewPredictor creates a new Predictor.
func NewPredictor(cfg PredictorConfig) *Predictor {
	locs := cfg.Locations
	if len(locs) == 0 {
		locs = weather.DefaultKeyLocations()
	}
	return &Predictor{
		model:      cfg.Model,
		alerts:     cfg.Alerts,
		locations:  locs,
		metrics:    cfg.Metrics,
		structured: cfg.Structured,
	}
}

// Locations returns the key locations evaluated by each cycle.
func (p *Predictor) Locations() []weather.KeyLocation {
	return p.locations
}

func (p *Predictor) enabled() bool {
	if p.model == nil {
		return false
	}
	if e, ok := p.model.(interface{ Enabled() bool }); ok {
		return e.Enabled()
	}
	return true
}

// RunCycle evaluates every key location in order. A failing location is logged
// and does not stop the others; all failures are returned together.
// With no model configured the cycle is skipped.
func (p *Predictor) RunCycle(ctx context.Context) ([]Alert, error) {
	if !p.enabled() {
		log.Printf("ERROR: predictor: %v; skipping cycle", llm.ErrNotConfigured)
		for _, loc := range p.locations {
			p.metrics.Prediction(loc.Name, metrics.OutcomeNotEnabled)
		}
		return nil, nil
	}

	log.Printf("INFO: predictor: generating predictions for %d key locations", len(p.locations))

	var created []Alert
	var result *multierror.Error
	for _, loc := range p.locations {
		if err := ctx.Err(); err != nil {
			result = multierror.Append(result, err)
			break
		}
		out, err := p.PredictLocation(ctx, loc)
		if err != nil {
			log.Printf("ERROR: predictor: prediction for %s failed: %v", loc.Name, err)
			result = multierror.Append(result, fmt.Errorf("%s: %w", loc.Name, err))
			continue
		}
		if out.Alert != nil {
			created = append(created, *out.Alert)
		}
	}
	return created, result.ErrorOrNil()
}

// Outcome is the result of one location's prediction.
type Outcome struct {
	Location   string
	Prediction llm.Prediction
	// Alert is set when the prediction crossed the threshold.
	Alert *Alert
}

// PredictLocation requests a prediction for loc and records an alert when its
// probability exceeds the alert service threshold. Model output that is not
// usable JSON yields the fallback prediction, never an error.
func (p *Predictor) PredictLocation(ctx context.Context, loc weather.KeyLocation) (Outcome, error) {
	out := Outcome{Location: loc.Name}
	if p.model == nil {
		return out, llm.ErrNotConfigured
	}
	if p.alerts == nil {
		return out, errors.New("predictor has no alert service")
	}

	req := llm.ChatRequest{
		System:      cycleSystemPrompt,
		Prompt:      cyclePrompt(loc),
		MaxTokens:   cycleMaxTokens,
		Temperature: cycleTemperature,
	}
	if p.structured {
		req.Schema = llm.PredictionSchema()
	}

	content, err := p.model.Complete(ctx, req)
	if err != nil {
		p.metrics.Prediction(loc.Name, metrics.OutcomeFailed)
		return out, err
	}

	pred, err := llm.ParsePrediction(content)
	if err != nil {
		var pe *llm.ParseError
		if errors.As(err, &pe) {
			log.Printf("DEBUG: predictor: %s: %v", loc.Name, pe)
		}
		pred = llm.FallbackPrediction(content)
	}
	out.Prediction = pred
	log.Printf("INFO: predictor: prediction for %s: %s", loc.Name, pred)

	if !pred.Structured() {
		p.metrics.Prediction(loc.Name, metrics.OutcomeFallback)
		return out, nil
	}
	if !p.alerts.Exceeds(pred.Probability) {
		p.metrics.Prediction(loc.Name, metrics.OutcomeBelow)
		return out, nil
	}

	p.metrics.Prediction(loc.Name, metrics.OutcomeAlert)
	a, err := p.alerts.Record(ctx, Draft{
		Location:    loc.Name,
		RiskLevel:   pred.RiskLevel,
		Probability: pred.Probability,
		Message:     pred.Message,
		Actions:     pred.RecommendedActions,
	})
	if err != nil {
		return out, err
	}
	out.Alert = &a
	return out, nil
}

// AssessInput is the free-form body of an on-demand prediction.
type AssessInput struct {
	Location json.RawMessage `json:"location,omitempty"`
	History  json.RawMessage `json:"history,omitempty"`
	Notes    json.RawMessage `json:"notes,omitempty"`
}

// Assess asks the model for a one-off prediction. The reply is returned as a
// JSON object, or as {"raw": text} when it is not one.
func (p *Predictor) Assess(ctx context.Context, in AssessInput) (json.RawMessage, error) {
	if !p.enabled() {
		return nil, llm.ErrNotConfigured
	}

	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode prediction input: %w", err)
	}

	content, err := p.model.Complete(ctx, llm.ChatRequest{
		System:      assessSystemPrompt,
		Prompt:      assessPrompt(string(data)),
		MaxTokens:   assessMaxTokens,
		Temperature: assessTemperature,
	})
	if err != nil {
		if errors.Is(err, llm.ErrNotConfigured) {
			return nil, err
		}
		return nil, &weather.UpstreamError{Provider: "openai", Err: err}
	}
	return llm.ParseObject(content), nil
}

func cyclePrompt(loc weather.KeyLocation) string {
	return fmt.Sprintf(`Genera una predicción de riesgo climático y volcánico para %s, Ecuador (%s, %s).
Responde en JSON: { risk_level: "bajo|medio|alto", probability: 0-100, message: "texto corto", recommended_actions: ["acción1", "acción2"] }`,
		loc.Name, formatCoord(loc.Lat), formatCoord(loc.Lon))
}

func assessPrompt(data string) string {
	return "Eres un asistente climatológico especializado en Ecuador. Recibes estos datos en JSON:\n" + data +
		"\n\nDevuelve un JSON con keys: risk_level (bajo/medio/alto), probability (0-100), message (texto corto), recommended_actions (array)."
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
