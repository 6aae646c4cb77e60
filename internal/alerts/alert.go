// Package alerts creates, stores and expires high-risk alerts produced by the
// periodic prediction cycle and the volcano check.
package alerts

import (
	"context"
	"errors"
	"time"
)

const (
	// DefaultThreshold is the probability (0-100) an alert must exceed.
	DefaultThreshold = 70
	// DefaultMaxAge is how long alerts are kept.
	DefaultMaxAge = 7 * 24 * time.Hour
	// RecentLimit bounds the list returned to clients.
	RecentLimit = 10

	unknownRiskLevel = "desconocido"
	defaultMessage   = "Alerta automática generada"
)

// ErrBelowThreshold is returned by Record for drafts whose probability does not
// exceed the service threshold.
var ErrBelowThreshold = errors.New("probability does not exceed the alert threshold")

// Alert is an immutable high-risk notice for a location.
type Alert struct {
	ID          string    `json:"id"`
	Location    string    `json:"location"`
	RiskLevel   string    `json:"riskLevel"`
	Probability float64   `json:"probability"`
	Message     string    `json:"message"`
	Actions     []string  `json:"actions"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Repository persists alerts.
type Repository interface {
	Add(ctx context.Context, a Alert) error
	// Recent returns at most limit alerts, newest first.
	Recent(ctx context.Context, limit int) ([]Alert, error)
	// DeleteOlderThan removes alerts created strictly before cutoff.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// Notifier pushes new alerts to an external channel.
type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}
