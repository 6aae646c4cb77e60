package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/i474232898/weather-risk-alerts/internal/alerts"
	httpapi "github.com/i474232898/weather-risk-alerts/internal/api/http"
	"github.com/i474232898/weather-risk-alerts/internal/config"
	"github.com/i474232898/weather-risk-alerts/internal/feed"
	"github.com/i474232898/weather-risk-alerts/internal/llm"
	"github.com/i474232898/weather-risk-alerts/internal/metrics"
	"github.com/i474232898/weather-risk-alerts/internal/notify"
	"github.com/i474232898/weather-risk-alerts/internal/scheduler"
	"github.com/i474232898/weather-risk-alerts/internal/store"
	"github.com/i474232898/weather-risk-alerts/internal/volcano"
	"github.com/i474232898/weather-risk-alerts/internal/weather"
	"github.com/i474232898/weather-risk-alerts/internal/weather/providers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	httpCfg := providers.NewHTTPClientConfig(httpClient, cfg.ProviderMaxRetries)

	rec := metrics.New()

	openWeather := providers.NewOpenWeatherProvider(httpCfg, cfg.OpenWeatherAPIKey)
	openMeteo := providers.NewOpenMeteoProvider(httpCfg)
	forecasts := []weather.ForecastProvider{openWeather}
	if cfg.WeatherAPIKey != "" {
		forecasts = append(forecasts, providers.NewWeatherAPIProvider(httpCfg, cfg.WeatherAPIKey))
	}
	forecasts = append(forecasts, openMeteo)
	if cfg.OpenWeatherAPIKey == "" {
		log.Println("INFO: OPENWEATHER_KEY not set; /api/weather will answer 500 and forecasts fall back to Open-Meteo")
	}

	geocoders := weather.ChainGeocoder{openWeather}
	if cfg.GoogleGeocoderKey != "" {
		geocoders = append(geocoders, providers.NewGoogleGeocoder(cfg.GoogleGeocoderKey, "EC"))
	}

	model := llm.NewOpenAIClient(llm.OpenAIConfig{
		APIKey:     cfg.OpenAIAPIKey,
		Model:      cfg.OpenAIModel,
		BaseURL:    cfg.OpenAIBaseURL,
		HTTPClient: httpClient,
		MaxRetries: cfg.ProviderMaxRetries,
	})
	if !model.Enabled() {
		log.Println("INFO: OPENAI_API_KEY not set; chat, audio and prediction endpoints will answer 500")
	}

	weatherSvc := weather.NewService(weather.ServiceConfig{
		Forecasts:   forecasts,
		Current:     openWeather,
		Geocoder:    geocoders,
		Model:       model,
		Transcriber: model,
		Location:    cfg.SchedulerLocation,
	})

	// Storage.
	var (
		alertRepo alerts.Repository
		feedRepo  feed.Repository
		closers   []func() error
	)
	switch cfg.StorageDriver {
	case config.DriverSQLite:
		db, err := store.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("failed to open sqlite store: %v", err)
		}
		alertRepo, feedRepo = db.Alerts(), db.Feed()
		closers = append(closers, db.Close)
	default:
		alertRepo, feedRepo = store.NewMemoryAlertStore(), store.NewMemoryFeedStore()
	}

	alertOpts := []alerts.Option{
		alerts.WithMetrics(rec),
		alerts.WithMaxAge(cfg.AlertMaxAge),
		alerts.WithThreshold(cfg.AlertThreshold),
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != 0 {
		tg, err := notify.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			log.Printf("ERROR: telegram notifications disabled: %v", err)
		} else {
			alertOpts = append(alertOpts, alerts.WithNotifier(tg))
		}
	}
	alertSvc := alerts.NewService(alertRepo, alertOpts...)

	predictor := alerts.NewPredictor(alerts.PredictorConfig{
		Model:      model,
		Alerts:     alertSvc,
		Locations:  cfg.KeyLocations,
		Metrics:    rec,
		Structured: true,
	})

	catalog := volcano.NewCatalog()
	var source volcano.StatusSource
	if cfg.VolcanoStatusURL != "" {
		source = volcano.NewHTMLSource(cfg.VolcanoStatusURL, httpClient)
	}
	checker := volcano.NewChecker(catalog, source, alertSvc)

	// Scheduled tasks.
	sched := scheduler.New(cfg.SchedulerLocation, cfg.SchedulerJitter, rec)
	tasks := []scheduler.Task{
		{
			Name: "predictions",
			Spec: cfg.PredictionSchedule,
			Run: func(ctx context.Context) error {
				_, err := predictor.RunCycle(ctx)
				return err
			},
		},
		{
			Name:    "volcano-check",
			Spec:    cfg.VolcanoSchedule,
			Timeout: time.Minute,
			Run:     checker.Check,
		},
		{
			Name:    "alert-cleanup",
			Spec:    cfg.CleanupSchedule,
			Timeout: time.Minute,
			Run: func(ctx context.Context) error {
				_, err := alertSvc.Cleanup(ctx, time.Now())
				return err
			},
		},
	}
	for _, t := range tasks {
		if err := sched.Register(t); err != nil {
			log.Fatalf("failed to register task: %v", err)
		}
	}
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}

	app := httpapi.New(httpapi.Deps{
		Weather:       weatherSvc,
		Feed:          feed.NewService(feedRepo),
		Alerts:        alertSvc,
		Predictor:     predictor,
		Volcanoes:     catalog,
		Metrics:       rec,
		UploadDir:     cfg.UploadDir,
		MaxAudioBytes: cfg.MaxAudioBytes,
	})

	go func() {
		log.Printf("INFO: listening on port %s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	sched.Stop()

	var result *multierror.Error
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		result = multierror.Append(result, err)
	}
	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			result = multierror.Append(result, err)
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
