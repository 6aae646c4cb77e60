package httpapi

import (
	"errors"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-risk-alerts/internal/feed"
	"github.com/i474232898/weather-risk-alerts/internal/llm"
	"github.com/i474232898/weather-risk-alerts/internal/weather"
)

// APIError is an error with the status and body sent to the client.
type APIError struct {
	Status  int
	Message string
	Details any
	Err     error
}

func (e *APIError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *APIError) Unwrap() error { return e.Err }

func badRequest(msg string) *APIError {
	return &APIError{Status: fiber.StatusBadRequest, Message: msg}
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// ErrorHandler is the centralized Fiber error handler.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Status >= fiber.StatusInternalServerError {
			log.Printf("ERROR: %s %s: %v", c.Method(), c.Path(), err)
		}
		return c.Status(apiErr.Status).JSON(errorBody{Error: apiErr.Message, Details: apiErr.Details})
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(errorBody{Error: fe.Message})
	}

	log.Printf("ERROR: %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(errorBody{Error: "Internal Server Error"})
}

// upstreamFailure describes how a route reports provider failures.
type upstreamFailure struct {
	Status  int
	Message string
}

var (
	weatherFailure = upstreamFailure{fiber.StatusBadGateway, "Failed to fetch weather data"}
	chatFailure    = upstreamFailure{fiber.StatusBadGateway, "Error al procesar la consulta climática"}
	audioFailure   = upstreamFailure{fiber.StatusInternalServerError, "Error al procesar el audio"}
	predictFailure = upstreamFailure{fiber.StatusBadGateway, "AI prediction failed"}
	feedFailure    = upstreamFailure{fiber.StatusInternalServerError, "failed to create post"}
)

// toAPIError classifies a service error for the client.
func toAPIError(err error, uf upstreamFailure) error {
	var validationErrs validator.ValidationErrors
	var ue *weather.UpstreamError
	switch {
	case errors.Is(err, weather.ErrMissingQuestion),
		errors.Is(err, weather.ErrLocationUnresolved),
		errors.Is(err, weather.ErrTranscriptUnresolved),
		errors.Is(err, feed.ErrMissingMessage):
		return &APIError{Status: fiber.StatusBadRequest, Message: err.Error(), Err: err}
	case errors.As(err, &validationErrs):
		return &APIError{Status: fiber.StatusBadRequest, Message: "invalid request", Details: validationErrs.Error(), Err: err}
	case errors.Is(err, llm.ErrNotConfigured):
		return &APIError{Status: fiber.StatusInternalServerError, Message: llm.ErrNotConfigured.Error(), Err: err}
	case errors.Is(err, weather.ErrProviderNotConfigured):
		return &APIError{Status: fiber.StatusInternalServerError, Message: "OPENWEATHER_KEY not set on server", Err: err}
	case errors.As(err, &ue):
		return &APIError{Status: uf.Status, Message: uf.Message, Details: ue.Details(), Err: err}
	default:
		return &APIError{Status: fiber.StatusInternalServerError, Message: uf.Message, Details: err.Error(), Err: err}
	}
}
