package weather

// RiskLevel is the three-bucket risk category exposed to clients.
type RiskLevel string

const (
	RiskLow    RiskLevel = "bajo"
	RiskMedium RiskLevel = "medio"
	RiskHigh   RiskLevel = "alto"
)

// Risk pairs a level with its fixed probability score.
type Risk struct {
	Level       RiskLevel `json:"risk_level"`
	Probability int       `json:"probability"`
}

const (
	highRainProbability   = 0.7
	highWindSpeed         = 15.0
	mediumRainProbability = 0.4
	mediumWindSpeed       = 10.0
)

// Classify maps a rain probability (0-1) and wind speed (m/s) to a risk bucket.
// Comparisons are strict.
func Classify(rainProbability, windSpeed float64) Risk {
	switch {
	case rainProbability > highRainProbability || windSpeed > highWindSpeed:
		return Risk{Level: RiskHigh, Probability: 80}
	case rainProbability > mediumRainProbability || windSpeed > mediumWindSpeed:
		return Risk{Level: RiskMedium, Probability: 50}
	default:
		return Risk{Level: RiskLow, Probability: 20}
	}
}

// ClassifySample classifies a forecast sample.
func ClassifySample(s ForecastSample) Risk {
	return Classify(s.RainProbability, s.WindSpeed)
}
