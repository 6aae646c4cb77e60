package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"

	"github.com/i474232898/weather-risk-alerts/internal/alerts"
	"github.com/i474232898/weather-risk-alerts/internal/feed"
	"github.com/i474232898/weather-risk-alerts/internal/metrics"
	"github.com/i474232898/weather-risk-alerts/internal/volcano"
	"github.com/i474232898/weather-risk-alerts/internal/weather"
)

var validate = validator.New()

const defaultMaxAudioBytes = 25 * 1024 * 1024

// Deps are the services behind the HTTP API.
type Deps struct {
	Weather   *weather.Service
	Feed      *feed.Service
	Alerts    *alerts.Service
	Predictor *alerts.Predictor
	Volcanoes *volcano.Catalog
	Metrics   *metrics.Recorder

	// UploadDir receives audio uploads while they are processed.
	UploadDir     string
	MaxAudioBytes int
}

// New creates the Fiber app with middleware, error handling and every route.
func New(d Deps) *fiber.App {
	if d.MaxAudioBytes <= 0 {
		d.MaxAudioBytes = defaultMaxAudioBytes
	}
	if d.UploadDir == "" {
		d.UploadDir = filepath.Join(os.TempDir(), "weather-risk-uploads")
	}

	app := fiber.New(fiber.Config{
		AppName:               "weather-risk-alerts",
		DisableStartupMessage: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          2 * time.Minute,
		// Leave room for the multipart envelope; the audio size itself is checked per file.
		BodyLimit:    d.MaxAudioBytes + 1<<20,
		ErrorHandler: ErrorHandler,
	})

	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New())

	RegisterRoutes(app, d)
	return app
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	h := &handlers{Deps: d, now: time.Now}

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"message": "weather-risk-alerts server running"})
	})

	api := app.Group("/api")
	api.Get("/weather", h.currentWeather)
	api.Post("/chat-weather", h.chatWeather)
	api.Post("/audio-weather", h.audioWeather)
	api.Get("/feed", h.listFeed)
	api.Post("/feed", h.createPost)
	api.Get("/volcanoes", h.volcanoes)
	api.Post("/predict", h.predict)
	api.Get("/alerts", h.recentAlerts)

	if d.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(d.Metrics.Handler()))
	}
}

type handlers struct {
	Deps
	now func() time.Time
}

func (h *handlers) currentWeather(c *fiber.Ctx) error {
	latStr, lonStr := c.Query("lat"), c.Query("lon")
	if latStr == "" || lonStr == "" {
		return badRequest("lat and lon required")
	}
	coords, err := parseCoordinates(latStr, lonStr)
	if err != nil {
		return badRequest(err.Error())
	}

	raw, err := h.Weather.CurrentWeather(c.UserContext(), coords)
	if err != nil {
		return toAPIError(err, weatherFailure)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(raw)
}

// chatRequest is the body of POST /api/chat-weather.
type chatRequest struct {
	Question string        `json:"question"`
	Location *locationBody `json:"location"`
}

type locationBody struct {
	Lat  *float64 `json:"lat" validate:"omitempty,latitude"`
	Lon  *float64 `json:"lon" validate:"omitempty,longitude"`
	Name string   `json:"name"`
}

// place returns nil unless both coordinates are present.
func (l *locationBody) place() *weather.Place {
	if l == nil || l.Lat == nil || l.Lon == nil {
		return nil
	}
	return &weather.Place{Name: l.Name, Coordinates: weather.Coordinates{Lat: *l.Lat, Lon: *l.Lon}}
}

func (h *handlers) chatWeather(c *fiber.Ctx) error {
	var req chatRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid JSON body")
	}
	if req.Location != nil {
		if err := validate.Struct(req.Location); err != nil {
			return toAPIError(err, chatFailure)
		}
	}
	log.Printf("DEBUG: chat-weather question=%q location=%v", req.Question, req.Location.place())

	ans, err := h.Weather.Ask(c.UserContext(), weather.AskRequest{
		Question: req.Question,
		Location: req.Location.place(),
	})
	if err != nil {
		return toAPIError(err, chatFailure)
	}
	return c.JSON(ans)
}

func (h *handlers) audioWeather(c *fiber.Ctx) error {
	fh, err := c.FormFile("audio")
	if err != nil {
		return badRequest("No se recibió archivo de audio")
	}
	if fh.Size > int64(h.MaxAudioBytes) {
		return &APIError{
			Status:  fiber.StatusRequestEntityTooLarge,
			Message: fmt.Sprintf("El archivo de audio supera el límite de %d MB", h.MaxAudioBytes>>20),
		}
	}

	var coords *weather.Coordinates
	if lat, lon := c.FormValue("latitude"), c.FormValue("longitude"); lat != "" && lon != "" {
		parsed, err := parseCoordinates(lat, lon)
		if err != nil {
			return badRequest(err.Error())
		}
		coords = &parsed
	}

	if err := os.MkdirAll(h.UploadDir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if ext == "" {
		ext = ".m4a"
	}
	path := filepath.Join(h.UploadDir, fmt.Sprintf("audio-%d-%s%s", h.now().UnixMilli(), uuid.NewString()[:8], ext))

	defer removeUpload(path)
	if err := c.SaveFile(fh, path); err != nil {
		return fmt.Errorf("save audio upload: %w", err)
	}
	log.Printf("DEBUG: audio saved to %s (%d bytes)", path, fh.Size)

	ans, err := h.Weather.AskAudio(c.UserContext(), weather.AudioRequest{Path: path, Coordinates: coords})
	if err != nil {
		return toAPIError(err, audioFailure)
	}
	return c.JSON(ans)
}

func removeUpload(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("ERROR: removing temporary audio %s: %v", path, err)
	}
}

func (h *handlers) listFeed(c *fiber.Ctx) error {
	posts, err := h.Feed.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"feed": posts})
}

func (h *handlers) createPost(c *fiber.Ctx) error {
	var in feed.NewPost
	if err := c.BodyParser(&in); err != nil {
		return badRequest("invalid JSON body")
	}
	post, err := h.Feed.Create(c.UserContext(), in)
	if err != nil {
		return toAPIError(err, feedFailure)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"item": post})
}

func (h *handlers) volcanoes(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"volcanoes": h.Volcanoes.List(h.now()),
		"source":    volcano.Source,
	})
}

func (h *handlers) predict(c *fiber.Ctx) error {
	var in alerts.AssessInput
	if len(c.Body()) > 0 {
		if err := json.Unmarshal(c.Body(), &in); err != nil {
			return badRequest("invalid JSON body")
		}
	}
	result, err := h.Predictor.Assess(c.UserContext(), in)
	if err != nil {
		return toAPIError(err, predictFailure)
	}
	return c.JSON(fiber.Map{"result": result})
}

func (h *handlers) recentAlerts(c *fiber.Ctx) error {
	list, err := h.Alerts.Recent(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"alerts": list, "count": len(list)})
}

func parseCoordinates(latStr, lonStr string) (weather.Coordinates, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(latStr), 64)
	if err != nil || lat < -90 || lat > 90 {
		return weather.Coordinates{}, fmt.Errorf("invalid lat %q", latStr)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonStr), 64)
	if err != nil || lon < -180 || lon > 180 {
		return weather.Coordinates{}, fmt.Errorf("invalid lon %q", lonStr)
	}
	return weather.Coordinates{Lat: lat, Lon: lon}, nil
}
