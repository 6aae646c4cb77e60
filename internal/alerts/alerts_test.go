package alerts

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-risk-alerts/internal/llm"
	"github.com/i474232898/weather-risk-alerts/internal/metrics"
	"github.com/i474232898/weather-risk-alerts/internal/weather"
)

type sliceRepo struct {
	mu    sync.Mutex
	items []Alert
	err   error
}

func (r *sliceRepo) Add(ctx context.Context, a Alert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.items = append([]Alert{a}, r.items...)
	return nil
}

func (r *sliceRepo) Recent(ctx context.Context, limit int) ([]Alert, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Alert(nil), r.items[:min(limit, len(r.items))]...), nil
}

func (r *sliceRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.items[:0]
	for _, a := range r.items {
		if !a.CreatedAt.Before(cutoff) {
			kept = append(kept, a)
		}
	}
	n := len(r.items) - len(kept)
	r.items = kept
	return n, nil
}

type recordingNotifier struct {
	got []Alert
	err error
}

func (n *recordingNotifier) Notify(ctx context.Context, a Alert) error {
	n.got = append(n.got, a)
	return n.err
}

// scriptedModel replies per location name found in the prompt.
type scriptedModel struct {
	replies map[string]string
	errs    map[string]error
	enabled bool
	prompts []llm.ChatRequest
}

func (m *scriptedModel) Enabled() bool { return m.enabled }

func (m *scriptedModel) Complete(ctx context.Context, req llm.ChatRequest) (string, error) {
	m.prompts = append(m.prompts, req)
	for name, err := range m.errs {
		if strings.Contains(req.Prompt, name) {
			return "", err
		}
	}
	for name, reply := range m.replies {
		if strings.Contains(req.Prompt, name) {
			return reply, nil
		}
	}
	return `{"risk_level":"bajo","probability":10,"message":"tranquilo","recommended_actions":[]}`, nil
}

var fixedNow = time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)

func newTestAlerts(repo Repository, opts ...Option) *Service {
	s := NewService(repo, opts...)
	s.now = func() time.Time { return fixedNow }
	return s
}

func TestRecordAppliesDefaults(t *testing.T) {
	repo := &sliceRepo{}
	n := &recordingNotifier{err: errors.New("telegram down")}
	s := newTestAlerts(repo, WithNotifier(n))

	a, err := s.Record(context.Background(), Draft{Location: "Quito", Probability: 85})
	require.NoError(t, err)

	id, err := uuid.Parse(a.ID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(7), id.Version())
	assert.Equal(t, "desconocido", a.RiskLevel)
	assert.Equal(t, "Alerta automática generada", a.Message)
	assert.Equal(t, []string{}, a.Actions)
	assert.Equal(t, fixedNow, a.CreatedAt)
	assert.Len(t, n.got, 1)
	assert.Len(t, repo.items, 1)
}

func TestRecordStoreFailure(t *testing.T) {
	s := newTestAlerts(&sliceRepo{err: errors.New("disk full")})
	_, err := s.Record(context.Background(), Draft{Location: "Quito", Probability: 90})
	assert.ErrorContains(t, err, "disk full")
}

func TestRecordRefusesDraftsAtOrBelowThreshold(t *testing.T) {
	repo := &sliceRepo{}
	n := &recordingNotifier{}
	s := newTestAlerts(repo, WithThreshold(90), WithNotifier(n))
	assert.Equal(t, 90, s.Threshold())

	for _, p := range []float64{80, 90} {
		_, err := s.Record(context.Background(), Draft{Location: "Latacunga", Probability: p})
		assert.ErrorIs(t, err, ErrBelowThreshold)
	}
	assert.Empty(t, repo.items)
	assert.Empty(t, n.got)

	a, err := s.Record(context.Background(), Draft{Location: "Latacunga", Probability: 90.5})
	require.NoError(t, err)
	assert.Equal(t, 90.5, a.Probability)
	assert.Len(t, repo.items, 1)
}

func TestAlertJSONShape(t *testing.T) {
	a := Alert{ID: "x", Location: "Ambato", RiskLevel: "alto", Probability: 75, Message: "m", Actions: []string{"a"}, CreatedAt: fixedNow}
	b, err := json.Marshal(a)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"x","location":"Ambato","riskLevel":"alto","probability":75,"message":"m","actions":["a"],"createdAt":"2025-10-15T12:00:00Z"}`, string(b))
}

func TestRecentIsNeverNull(t *testing.T) {
	s := newTestAlerts(&sliceRepo{})
	list, err := s.Recent(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestRecentLimit(t *testing.T) {
	s := newTestAlerts(&sliceRepo{})
	for i := 0; i < 15; i++ {
		_, err := s.Record(context.Background(), Draft{Location: "Quito", Probability: float64(71 + i)})
		require.NoError(t, err)
	}
	list, err := s.Recent(context.Background())
	require.NoError(t, err)
	require.Len(t, list, RecentLimit)
	assert.Equal(t, 85.0, list[0].Probability)
}

func TestCleanupRemovesOnlyExpired(t *testing.T) {
	repo := &sliceRepo{items: []Alert{
		{ID: "new", CreatedAt: fixedNow.Add(-6 * 24 * time.Hour)},
		{ID: "old", CreatedAt: fixedNow.Add(-8 * 24 * time.Hour)},
	}}
	m := metrics.New()
	s := newTestAlerts(repo, WithMetrics(m))

	n, err := s.Cleanup(context.Background(), fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, repo.items, 1)
	assert.Equal(t, "new", repo.items[0].ID)
}

func TestCleanupCustomMaxAge(t *testing.T) {
	repo := &sliceRepo{items: []Alert{{ID: "a", CreatedAt: fixedNow.Add(-2 * time.Hour)}}}
	s := newTestAlerts(repo, WithMaxAge(time.Hour))
	n, err := s.Cleanup(context.Background(), fixedNow)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func testLocations() []weather.KeyLocation {
	return weather.DefaultKeyLocations()
}

func TestRunCycleThreshold(t *testing.T) {
	repo := &sliceRepo{}
	model := &scriptedModel{enabled: true, replies: map[string]string{
		"Quito":     `{"risk_level":"alto","probability":85,"message":"Posible caída de ceniza","recommended_actions":["Usar mascarilla"]}`,
		"Latacunga": `{"risk_level":"medio","probability":70,"message":"Lluvias"}`,
		"Ambato":    "```json\n{\"risk_level\":\"ALTO\",\"probability\":71,\"message\":\"Tormentas\"}\n```",
		"Riobamba":  "No puedo generar JSON ahora.",
	}}
	p := NewPredictor(PredictorConfig{Model: model, Alerts: newTestAlerts(repo), Locations: testLocations()})

	created, err := p.RunCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, "Quito", created[0].Location)
	assert.Equal(t, []string{"Usar mascarilla"}, created[0].Actions)
	assert.Equal(t, "Ambato", created[1].Location)
	assert.Equal(t, "alto", created[1].RiskLevel)

	// newest first
	assert.Equal(t, "Ambato", repo.items[0].Location)
	assert.Len(t, model.prompts, 4)
	assert.Equal(t, cycleSystemPrompt, model.prompts[0].System)
	assert.Contains(t, model.prompts[0].Prompt, "Quito, Ecuador (-0.1807, -78.4678)")
	assert.EqualValues(t, 300, model.prompts[0].MaxTokens)
}

func TestPredictLocationFallback(t *testing.T) {
	repo := &sliceRepo{}
	model := &scriptedModel{enabled: true, replies: map[string]string{"Quito": "Lo siento, no puedo responder en JSON."}}
	p := NewPredictor(PredictorConfig{Model: model, Alerts: newTestAlerts(repo)})

	out, err := p.PredictLocation(context.Background(), weather.KeyLocation{Name: "Quito"})
	require.NoError(t, err)
	assert.Nil(t, out.Alert)
	assert.False(t, out.Prediction.Structured())
	assert.NotEmpty(t, out.Prediction.Message)
	assert.Equal(t, "Lo siento, no puedo responder en JSON.", out.Prediction.Raw)
	assert.Empty(t, repo.items)
}

func TestRunCycleIsolatesFailures(t *testing.T) {
	repo := &sliceRepo{}
	model := &scriptedModel{
		enabled: true,
		errs:    map[string]error{"Latacunga": errors.New("timeout")},
		replies: map[string]string{"Riobamba": `{"risk_level":"alto","probability":95,"message":"Erupción"}`},
	}
	p := NewPredictor(PredictorConfig{Model: model, Alerts: newTestAlerts(repo), Locations: testLocations()})

	created, err := p.RunCycle(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Latacunga")
	require.Len(t, created, 1)
	assert.Equal(t, "Riobamba", created[0].Location)
	assert.Len(t, model.prompts, 4)
}

func TestRunCycleSkippedWithoutModel(t *testing.T) {
	model := &scriptedModel{enabled: false}
	p := NewPredictor(PredictorConfig{Model: model, Alerts: newTestAlerts(&sliceRepo{})})

	created, err := p.RunCycle(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, created)
	assert.Empty(t, model.prompts)
}

func TestPredictorDefaults(t *testing.T) {
	p := NewPredictor(PredictorConfig{})
	assert.Len(t, p.Locations(), 4)
	assert.Equal(t, DefaultThreshold, NewService(&sliceRepo{}).Threshold())
}

func TestPredictLocationComparesFractionalProbability(t *testing.T) {
	repo := &sliceRepo{}
	model := &scriptedModel{enabled: true, replies: map[string]string{
		"Quito": `{"risk_level":"alto","probability":70.5,"message":"Tormentas"}`,
	}}
	p := NewPredictor(PredictorConfig{Model: model, Alerts: newTestAlerts(repo)})

	out, err := p.PredictLocation(context.Background(), weather.KeyLocation{Name: "Quito"})
	require.NoError(t, err)
	require.NotNil(t, out.Alert)
	assert.Equal(t, 70.5, out.Alert.Probability)
}

func TestPredictLocationUsesServiceThreshold(t *testing.T) {
	repo := &sliceRepo{}
	model := &scriptedModel{enabled: true, replies: map[string]string{
		"Quito":  `{"risk_level":"alto","probability":85}`,
		"Ambato": `{"risk_level":"high","probability":95}`,
	}}
	p := NewPredictor(PredictorConfig{Model: model, Alerts: newTestAlerts(repo, WithThreshold(90))})

	out, err := p.PredictLocation(context.Background(), weather.KeyLocation{Name: "Quito"})
	require.NoError(t, err)
	assert.Nil(t, out.Alert)

	out, err = p.PredictLocation(context.Background(), weather.KeyLocation{Name: "Ambato"})
	require.NoError(t, err)
	require.NotNil(t, out.Alert)
	assert.Equal(t, "alto", out.Alert.RiskLevel)
	assert.Len(t, repo.items, 1)
}

func TestStructuredPredictionSendsSchema(t *testing.T) {
	model := &scriptedModel{enabled: true}
	p := NewPredictor(PredictorConfig{Model: model, Alerts: newTestAlerts(&sliceRepo{}), Structured: true})

	_, err := p.PredictLocation(context.Background(), weather.KeyLocation{Name: "Quito"})
	require.NoError(t, err)
	require.NotNil(t, model.prompts[0].Schema)
	assert.Equal(t, "risk_prediction", model.prompts[0].Schema.Name)
}

func TestAssess(t *testing.T) {
	model := &scriptedModel{enabled: true, replies: map[string]string{
		"Cuenca": `{"risk_level":"bajo","probability":5}`,
		"Loja":   "sin datos suficientes",
	}}
	p := NewPredictor(PredictorConfig{Model: model})

	out, err := p.Assess(context.Background(), AssessInput{Location: json.RawMessage(`{"name":"Cuenca"}`)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"risk_level":"bajo","probability":5}`, string(out))
	assert.Equal(t, assessSystemPrompt, model.prompts[0].System)
	assert.Contains(t, model.prompts[0].Prompt, "Recibes estos datos en JSON:\n{\n  \"location\": {")
	assert.EqualValues(t, 400, model.prompts[0].MaxTokens)

	out, err = p.Assess(context.Background(), AssessInput{Location: json.RawMessage(`{"name":"Loja"}`)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"raw":"sin datos suficientes"}`, string(out))
}

func TestAssessErrors(t *testing.T) {
	p := NewPredictor(PredictorConfig{Model: &scriptedModel{enabled: false}})
	_, err := p.Assess(context.Background(), AssessInput{})
	assert.ErrorIs(t, err, llm.ErrNotConfigured)

	p = NewPredictor(PredictorConfig{Model: &scriptedModel{enabled: true, errs: map[string]error{"Ecuador": errors.New("429")}}})
	_, err = p.Assess(context.Background(), AssessInput{})
	var ue *weather.UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, "openai", ue.Provider)
}
