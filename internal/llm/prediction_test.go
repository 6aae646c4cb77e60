package llm

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePredictionValid(t *testing.T) {
	p, err := ParsePrediction(`{"risk_level":"Alto","probability":85,"message":"Lluvias fuertes","recommended_actions":["Evitar quebradas"," "]}`)
	require.NoError(t, err)

	assert.Equal(t, "alto", p.RiskLevel)
	assert.Equal(t, 85.0, p.Probability)
	assert.Equal(t, "Lluvias fuertes", p.Message)
	assert.Equal(t, []string{"Evitar quebradas"}, p.RecommendedActions)
	assert.True(t, p.Structured())
}

func TestParsePredictionToleratesFencesAndProse(t *testing.T) {
	content := "Aquí está:\n```json\n{\"risk_level\":\"medio\",\"probability\":55,\"message\":\"ok\"}\n```"
	p, err := ParsePrediction(content)
	require.NoError(t, err)
	assert.Equal(t, 55.0, p.Probability)
}

func TestParsePredictionKeepsFractionalProbability(t *testing.T) {
	p, err := ParsePrediction(`{"risk_level":"alto","probability":70.5,"message":"Tormentas"}`)
	require.NoError(t, err)
	assert.Equal(t, 70.5, p.Probability)
}

func TestParsePredictionNormalizesRiskLevel(t *testing.T) {
	cases := map[string]string{
		`{"risk_level":"high","probability":95}`:     "alto",
		`{"risk_level":" Medium ","probability":50}`: "medio",
		`{"risk_level":"low","probability":5}`:       "bajo",
		`{"risk_level":"extremo","probability":90}`:  "",
		`{"probability":90}`:                         "",
	}
	for content, want := range cases {
		t.Run(content, func(t *testing.T) {
			p, err := ParsePrediction(content)
			require.NoError(t, err)
			assert.Equal(t, want, p.RiskLevel)
			assert.True(t, p.Structured())
		})
	}
}

func TestParsePredictionRejects(t *testing.T) {
	cases := map[string]string{
		"not json":            "El riesgo es alto en Quito",
		"missing probability": `{"risk_level":"alto","message":"x"}`,
		"out of range":        `{"risk_level":"alto","probability":140}`,
		"negative":            `{"risk_level":"bajo","probability":-5}`,
		"array":               `[1,2,3]`,
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePrediction(content)
			var perr *ParseError
			require.True(t, errors.As(err, &perr), "expected ParseError, got %v", err)
			assert.Equal(t, content, perr.Raw)
		})
	}
}

func TestFallbackPredictionCarriesMessage(t *testing.T) {
	p := FallbackPrediction("texto libre")
	assert.False(t, p.Structured())
	assert.NotEmpty(t, p.Message)
	assert.Equal(t, "texto libre", p.Raw)
	assert.Zero(t, p.Probability)
}

func TestParseObject(t *testing.T) {
	assert.JSONEq(t, `{"a":1}`, string(ParseObject("```json\n{\"a\":1}\n```")))

	var got map[string]string
	require.NoError(t, json.Unmarshal(ParseObject("sin json"), &got))
	assert.Equal(t, "sin json", got["raw"])
}

func TestPredictionSchemaExcludesRaw(t *testing.T) {
	s := PredictionSchema()
	b, err := json.Marshal(s.Schema)
	require.NoError(t, err)
	assert.Contains(t, string(b), "risk_level")
	assert.Contains(t, string(b), "recommended_actions")
	assert.NotContains(t, string(b), `"raw"`)
}
