package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/i474232898/weather-risk-alerts/internal/scheduler"
	"github.com/i474232898/weather-risk-alerts/internal/weather"
)

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

type AppConfig struct {
	Port string

	OpenWeatherAPIKey string
	WeatherAPIKey     string
	GoogleGeocoderKey string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	// HTTPTimeout bounds every outbound provider call.
	HTTPTimeout        time.Duration
	ProviderMaxRetries int

	PredictionSchedule string
	VolcanoSchedule    string
	CleanupSchedule    string
	SchedulerLocation  *time.Location
	SchedulerJitter    time.Duration

	AlertThreshold int
	AlertMaxAge    time.Duration

	// KeyLocations are evaluated by every prediction cycle.
	KeyLocations []weather.KeyLocation

	StorageDriver string
	SQLitePath    string

	UploadDir     string
	MaxAudioBytes int

	VolcanoStatusURL string

	TelegramBotToken string
	TelegramChatID   int64
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := &AppConfig{}

	cfg.Port = getenvDefault("PORT", "4000")
	cfg.OpenWeatherAPIKey = getenvDefault("OPENWEATHER_KEY", os.Getenv("OPENWEATHER_API_KEY"))
	cfg.WeatherAPIKey = os.Getenv("WEATHERAPI_KEY")
	cfg.GoogleGeocoderKey = os.Getenv("GOOGLE_GEOCODER_API_KEY")

	cfg.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	cfg.OpenAIModel = getenvDefault("OPENAI_MODEL", "gpt-4o-mini")
	cfg.OpenAIBaseURL = os.Getenv("OPENAI_BASE_URL")

	var err error
	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.ProviderMaxRetries, err = getenvInt("PROVIDER_MAX_RETRIES", 0); err != nil {
		return nil, err
	}
	if cfg.ProviderMaxRetries < 0 {
		return nil, fmt.Errorf("invalid PROVIDER_MAX_RETRIES: %d", cfg.ProviderMaxRetries)
	}

	// Schedules: every 6 hours, hourly, daily at midnight.
	cfg.PredictionSchedule = getenvDefault("PREDICTION_SCHEDULE", "0 */6 * * *")
	cfg.VolcanoSchedule = getenvDefault("VOLCANO_SCHEDULE", "0 * * * *")
	cfg.CleanupSchedule = getenvDefault("CLEANUP_SCHEDULE", "0 0 * * *")
	for key, spec := range map[string]string{
		"PREDICTION_SCHEDULE": cfg.PredictionSchedule,
		"VOLCANO_SCHEDULE":    cfg.VolcanoSchedule,
		"CLEANUP_SCHEDULE":    cfg.CleanupSchedule,
	} {
		if err := scheduler.ValidateSpec(spec); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", key, err)
		}
	}

	tz := getenvDefault("SCHEDULER_TIMEZONE", "Local")
	if cfg.SchedulerLocation, err = time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("invalid SCHEDULER_TIMEZONE: %w", err)
	}
	if cfg.SchedulerJitter, err = getenvDuration("SCHEDULER_JITTER", 0); err != nil {
		return nil, err
	}

	if cfg.AlertThreshold, err = getenvInt("ALERT_THRESHOLD", 70); err != nil {
		return nil, err
	}
	// Alerts require a probability strictly above the threshold.
	if cfg.AlertThreshold < 1 || cfg.AlertThreshold > 100 {
		return nil, fmt.Errorf("invalid ALERT_THRESHOLD: %d", cfg.AlertThreshold)
	}
	if cfg.AlertMaxAge, err = getenvDuration("ALERT_MAX_AGE", 7*24*time.Hour); err != nil {
		return nil, err
	}

	cfg.KeyLocations = weather.DefaultKeyLocations()
	if path := os.Getenv("KEY_LOCATIONS_FILE"); path != "" {
		if cfg.KeyLocations, err = LoadKeyLocations(path); err != nil {
			return nil, err
		}
	}

	cfg.StorageDriver = strings.ToLower(getenvDefault("STORAGE_DRIVER", DriverMemory))
	if cfg.StorageDriver != DriverMemory && cfg.StorageDriver != DriverSQLite {
		return nil, fmt.Errorf("invalid STORAGE_DRIVER %q (want %s or %s)", cfg.StorageDriver, DriverMemory, DriverSQLite)
	}
	cfg.SQLitePath = getenvDefault("SQLITE_PATH", filepath.Join("data", "alerts.db"))

	cfg.UploadDir = getenvDefault("UPLOAD_DIR", filepath.Join(os.TempDir(), "weather-risk-uploads"))
	if cfg.MaxAudioBytes, err = getenvInt("MAX_AUDIO_BYTES", 25*1024*1024); err != nil {
		return nil, err
	}
	if cfg.MaxAudioBytes <= 0 {
		return nil, fmt.Errorf("invalid MAX_AUDIO_BYTES: %d", cfg.MaxAudioBytes)
	}

	cfg.VolcanoStatusURL = os.Getenv("VOLCANO_STATUS_URL")

	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if cfg.TelegramChatID, err = strconv.ParseInt(v, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
	}

	return cfg, nil
}

// LoadKeyLocations reads a YAML list of {name, lat, lon}.
func LoadKeyLocations(path string) ([]weather.KeyLocation, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key locations: %w", err)
	}
	var locs []weather.KeyLocation
	if err := yaml.Unmarshal(data, &locs); err != nil {
		return nil, fmt.Errorf("parse key locations %s: %w", path, err)
	}
	if len(locs) == 0 {
		return nil, fmt.Errorf("key locations file %s is empty", path)
	}
	for i, l := range locs {
		if strings.TrimSpace(l.Name) == "" {
			return nil, fmt.Errorf("key location %d has no name", i)
		}
		if l.Lat < -90 || l.Lat > 90 || l.Lon < -180 || l.Lon > 180 {
			return nil, fmt.Errorf("key location %s has invalid coordinates", l.Name)
		}
	}
	return locs, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
