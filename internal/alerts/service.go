package alerts

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/weather-risk-alerts/internal/metrics"
)

// Draft is an alert before it gets an ID and timestamp.
type Draft struct {
	Location    string
	RiskLevel   string
	Probability float64
	Message     string
	Actions     []string
}

// Service records and expires alerts.
type Service struct {
	repo      Repository
	notifier  Notifier
	metrics   *metrics.Recorder
	maxAge    time.Duration
	threshold int
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithNotifier pushes every recorded alert through n.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithMetrics counts created and purged alerts.
func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Service) { s.metrics = m }
}

// WithMaxAge overrides DefaultMaxAge.
func WithMaxAge(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.maxAge = d
		}
	}
}

// WithThreshold overrides DefaultThreshold. Record refuses drafts whose
// probability is not strictly above it.
func WithThreshold(n int) Option {
	return func(s *Service) { s.threshold = n }
}

// NewService creates a new Service.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:      repo,
		maxAge:    DefaultMaxAge,
		threshold: DefaultThreshold,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Threshold returns the probability an alert must exceed.
func (s *Service) Threshold() int {
	return s.threshold
}

// Exceeds reports whether probability is high enough to raise an alert.
func (s *Service) Exceeds(probability float64) bool {
	return probability > float64(s.threshold)
}

// Record stores a new alert built from d. Drafts that do not exceed the
// threshold fail with ErrBelowThreshold. Notification failures are logged only.
func (s *Service) Record(ctx context.Context, d Draft) (Alert, error) {
	if !s.Exceeds(d.Probability) {
		return Alert{}, fmt.Errorf("%w: %s at %g%% (threshold %d%%)", ErrBelowThreshold, d.Location, d.Probability, s.threshold)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return Alert{}, fmt.Errorf("generate alert id: %w", err)
	}

	a := Alert{
		ID:          id.String(),
		Location:    d.Location,
		RiskLevel:   strings.TrimSpace(d.RiskLevel),
		Probability: d.Probability,
		Message:     strings.TrimSpace(d.Message),
		Actions:     d.Actions,
		CreatedAt:   s.now().UTC(),
	}
	if a.RiskLevel == "" {
		a.RiskLevel = unknownRiskLevel
	}
	if a.Message == "" {
		a.Message = defaultMessage
	}
	if a.Actions == nil {
		a.Actions = []string{}
	}

	if err := s.repo.Add(ctx, a); err != nil {
		return Alert{}, fmt.Errorf("store alert for %s: %w", a.Location, err)
	}
	s.metrics.AlertCreated(a.Location)
	log.Printf("INFO: high risk alert for %s: %s %g%% %q", a.Location, a.RiskLevel, a.Probability, a.Message)

	if s.notifier != nil {
		if err := s.notifier.Notify(ctx, a); err != nil {
			log.Printf("ERROR: notify alert %s: %v", a.ID, err)
		}
	}
	return a, nil
}

// Recent returns the latest alerts, newest first.
func (s *Service) Recent(ctx context.Context) ([]Alert, error) {
	list, err := s.repo.Recent(ctx, RecentLimit)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []Alert{}
	}
	return list, nil
}

// Cleanup removes alerts older than the configured max age relative to now.
func (s *Service) Cleanup(ctx context.Context, now time.Time) (int, error) {
	n, err := s.repo.DeleteOlderThan(ctx, now.Add(-s.maxAge))
	if err != nil {
		return 0, fmt.Errorf("purge alerts: %w", err)
	}
	s.metrics.AlertsPurged(n)
	log.Printf("INFO: removed %d old alerts", n)
	return n, nil
}

// Now returns the service clock.
func (s *Service) Now() time.Time {
	return s.now()
}
