package weather

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		p, w float64
		want Risk
	}{
		{"heavy rain", 0.75, 0, Risk{RiskHigh, 80}},
		{"strong wind", 0, 20, Risk{RiskHigh, 80}},
		{"moderate rain", 0.5, 0, Risk{RiskMedium, 50}},
		{"moderate wind", 0, 12, Risk{RiskMedium, 50}},
		{"calm", 0.1, 5, Risk{RiskLow, 20}},
		{"rain boundary is strict", 0.7, 0, Risk{RiskMedium, 50}},
		{"medium rain boundary is strict", 0.4, 0, Risk{RiskLow, 20}},
		{"wind boundary is strict", 0, 15, Risk{RiskMedium, 50}},
		{"medium wind boundary is strict", 0, 10, Risk{RiskLow, 20}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.p, tc.w))
		})
	}
}

func TestClassifySampleUsesRainAndWind(t *testing.T) {
	got := ClassifySample(ForecastSample{RainProbability: 0.9, WindSpeed: 1})
	assert.Equal(t, RiskHigh, got.Level)
	assert.Equal(t, 80, got.Probability)
}
