package store

import (
	"context"
	"sync"
	"time"

	"github.com/i474232898/weather-risk-alerts/internal/alerts"
	"github.com/i474232898/weather-risk-alerts/internal/feed"
)

// MemoryAlertStore is a concurrency-safe in-memory alert repository.
// Alerts are kept newest first.
type MemoryAlertStore struct {
	mu     sync.RWMutex
	alerts []alerts.Alert
}

// NewMemoryAlertStore creates an empty MemoryAlertStore.
func NewMemoryAlertStore() *MemoryAlertStore {
	return &MemoryAlertStore{}
}

// Add prepends a.
func (s *MemoryAlertStore) Add(_ context.Context, a alerts.Alert) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.alerts = append(s.alerts, alerts.Alert{})
	copy(s.alerts[1:], s.alerts)
	s.alerts[0] = a
	return nil
}

// Recent returns up to limit alerts, newest first. limit <= 0 returns all.
func (s *MemoryAlertStore) Recent(_ context.Context, limit int) ([]alerts.Alert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.alerts)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]alerts.Alert, n)
	copy(out, s.alerts[:n])
	return out, nil
}

// DeleteOlderThan drops alerts created before cutoff and reports how many went.
func (s *MemoryAlertStore) DeleteOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.alerts[:0]
	for _, a := range s.alerts {
		if !a.CreatedAt.Before(cutoff) {
			kept = append(kept, a)
		}
	}
	removed := len(s.alerts) - len(kept)
	clear(s.alerts[len(kept):])
	s.alerts = kept
	return removed, nil
}

// MemoryFeedStore is a concurrency-safe in-memory feed repository.
type MemoryFeedStore struct {
	mu    sync.RWMutex
	posts []feed.Post
}

// NewMemoryFeedStore creates an empty MemoryFeedStore.
func NewMemoryFeedStore() *MemoryFeedStore {
	return &MemoryFeedStore{}
}

// Add prepends p.
func (s *MemoryFeedStore) Add(_ context.Context, p feed.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.posts = append(s.posts, feed.Post{})
	copy(s.posts[1:], s.posts)
	s.posts[0] = p
	return nil
}

// List returns a copy of every post, newest first.
func (s *MemoryFeedStore) List(_ context.Context) ([]feed.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]feed.Post, len(s.posts))
	copy(out, s.posts)
	return out, nil
}
