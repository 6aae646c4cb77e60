package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"github.com/tidwall/gjson"
)

// FallbackMessage is carried by predictions whose model output was not usable JSON.
const FallbackMessage = "Predicción generada (formato no estructurado)"

var validate = validator.New()

// Prediction is the structured risk assessment requested from the model.
type Prediction struct {
	RiskLevel          string   `json:"risk_level" validate:"omitempty,oneof=bajo medio alto" jsonschema:"enum=bajo,enum=medio,enum=alto" jsonschema_description:"Risk level: bajo, medio or alto"`
	Probability        float64  `json:"probability" validate:"gte=0,lte=100" jsonschema:"minimum=0,maximum=100" jsonschema_description:"Probability of the risk materializing, 0-100"`
	Message            string   `json:"message" jsonschema_description:"Short message for the population, in Spanish"`
	RecommendedActions []string `json:"recommended_actions" jsonschema_description:"Recommended actions, in Spanish"`

	// Raw is only set on fallback predictions.
	Raw string `json:"raw,omitempty" jsonschema:"-"`
}

// Structured reports whether the prediction came from valid model JSON.
func (p Prediction) Structured() bool {
	return p.Raw == ""
}

// ParseError describes model output that could not be turned into a Prediction.
type ParseError struct {
	Raw    string
	Reason string
}

func (e *ParseError) Error() string {
	return "unusable prediction output: " + e.Reason
}

// FallbackPrediction is substituted when ParsePrediction fails.
func FallbackPrediction(raw string) Prediction {
	return Prediction{Raw: raw, Message: FallbackMessage}
}

// PredictionSchema reflects Prediction into the strict JSON schema sent with
// structured requests.
func PredictionSchema() *ResponseSchema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	return &ResponseSchema{
		Name:        "risk_prediction",
		Description: "Climate and volcanic risk prediction",
		Schema:      reflector.Reflect(Prediction{}),
	}
}

// riskLevels maps accepted spellings to the stored level.
var riskLevels = map[string]string{
	"bajo": "bajo", "low": "bajo",
	"medio": "medio", "medium": "medio", "moderado": "medio",
	"alto": "alto", "high": "alto",
}

// normalizeRiskLevel returns the canonical level, or "" when s is not one.
func normalizeRiskLevel(s string) string {
	return riskLevels[strings.ToLower(strings.TrimSpace(s))]
}

// ParsePrediction extracts a Prediction from model output. Code fences and text
// around the JSON object are tolerated; the probability must be present and
// every field must pass validation. An unknown risk level is dropped rather
// than rejected. Failures are returned as *ParseError.
func ParsePrediction(content string) (Prediction, error) {
	doc, ok := extractObject(content)
	if !ok {
		return Prediction{}, &ParseError{Raw: content, Reason: "no JSON object found"}
	}

	res := gjson.Parse(doc)
	prob := res.Get("probability")
	if !prob.Exists() {
		return Prediction{}, &ParseError{Raw: content, Reason: "probability missing"}
	}

	p := Prediction{
		RiskLevel:   normalizeRiskLevel(res.Get("risk_level").String()),
		Probability: prob.Float(),
		Message:     strings.TrimSpace(res.Get("message").String()),
	}
	for _, a := range res.Get("recommended_actions").Array() {
		if s := strings.TrimSpace(a.String()); s != "" {
			p.RecommendedActions = append(p.RecommendedActions, s)
		}
	}

	if err := validate.Struct(p); err != nil {
		return Prediction{}, &ParseError{Raw: content, Reason: err.Error()}
	}
	return p, nil
}

// ParseObject returns the model output as a JSON object, or {"raw": content}
// when it is not one.
func ParseObject(content string) json.RawMessage {
	if doc, ok := extractObject(content); ok {
		return json.RawMessage(doc)
	}
	raw, err := json.Marshal(map[string]string{"raw": content})
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return raw
}

func extractObject(content string) (string, bool) {
	s := strings.TrimSpace(content)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	if !gjson.Valid(s) || !gjson.Parse(s).IsObject() {
		start, end := strings.Index(s, "{"), strings.LastIndex(s, "}")
		if start < 0 || end <= start {
			return "", false
		}
		s = s[start : end+1]
		if !gjson.Valid(s) || !gjson.Parse(s).IsObject() {
			return "", false
		}
	}
	return s, true
}

func (p Prediction) String() string {
	if !p.Structured() {
		return fmt.Sprintf("unstructured(%q)", p.Raw)
	}
	return fmt.Sprintf("%s %g%%: %s", p.RiskLevel, p.Probability, p.Message)
}
