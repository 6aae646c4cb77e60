package weather

import (
	"errors"
	"fmt"
)

var (
	ErrMissingQuestion      = errors.New("Se requiere una pregunta")
	ErrLocationUnresolved   = errors.New("Se requiere ubicación o menciona una ciudad en tu pregunta (ej. \"¿Cómo está el clima en Guayaquil?\")")
	ErrTranscriptUnresolved = errors.New("No se recibió ubicación y no se pudo inferir una ciudad de la grabación. Por favor especifica la ciudad en tu mensaje.")
	ErrNoForecast           = errors.New("no forecast data available")

	// ErrProviderNotConfigured is returned by providers that need a missing API key.
	ErrProviderNotConfigured = errors.New("provider api key is not configured")
)

// UpstreamError wraps a failure of an external provider.
type UpstreamError struct {
	Provider string
	Err      error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Details returns what the provider sent back, or the error text.
func (e *UpstreamError) Details() any {
	var d interface{ Details() any }
	if errors.As(e.Err, &d) {
		return d.Details()
	}
	return e.Err.Error()
}

func upstream(provider string, err error) error {
	if err == nil {
		return nil
	}
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return err
	}
	return &UpstreamError{Provider: provider, Err: err}
}
