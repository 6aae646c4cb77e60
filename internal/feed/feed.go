// Package feed holds the community report feed.
package feed

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/i474232898/weather-risk-alerts/internal/common"
)

const (
	defaultUserID   = "anonymous"
	defaultUserName = "Anónimo"
	defaultType     = "report"
)

// ErrMissingMessage is returned when a post has no message.
var ErrMissingMessage = errors.New("message is required")

// Point is the optional location of a post.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Post is a user-submitted report.
type Post struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	UserName  string    `json:"userName"`
	Message   string    `json:"message"`
	Type      string    `json:"type"`
	Location  *Point    `json:"location"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewPost is the input of Create. Only Message is required.
type NewPost struct {
	UserID   string   `json:"userId" validate:"max=128"`
	UserName string   `json:"userName" validate:"max=128"`
	Message  string   `json:"message" validate:"required"`
	Type     string   `json:"type" validate:"max=64"`
	Lat      *float64 `json:"lat" validate:"omitempty,latitude"`
	Lon      *float64 `json:"lon" validate:"omitempty,longitude"`
}

// Repository persists posts.
type Repository interface {
	Add(ctx context.Context, p Post) error
	// List returns every post, newest first.
	List(ctx context.Context) ([]Post, error)
}

// Service creates and lists posts.
type Service struct {
	repo     Repository
	validate *validator.Validate
	now      func() time.Time

	mu     sync.Mutex
	lastID int64
}

// NewService creates a new Service.
func NewService(repo Repository) *Service {
	return &Service{
		repo:     repo,
		validate: validator.New(),
		now:      time.Now,
	}
}

// Create validates in, fills the defaults and stores the post.
func (s *Service) Create(ctx context.Context, in NewPost) (Post, error) {
	in.Message = strings.TrimSpace(in.Message)
	if in.Message == "" {
		return Post{}, ErrMissingMessage
	}
	if err := s.validate.Struct(in); err != nil {
		return Post{}, err
	}

	now := s.now()
	p := Post{
		ID:        s.nextID(now),
		UserID:    common.FirstNonEmpty(in.UserID, defaultUserID),
		UserName:  common.FirstNonEmpty(in.UserName, defaultUserName),
		Message:   in.Message,
		Type:      common.FirstNonEmpty(in.Type, defaultType),
		CreatedAt: now.UTC(),
	}
	if in.Lat != nil && in.Lon != nil {
		p.Location = &Point{Lat: *in.Lat, Lon: *in.Lon}
	}

	if err := s.repo.Add(ctx, p); err != nil {
		return Post{}, fmt.Errorf("store post: %w", err)
	}
	return p, nil
}

// List returns all posts, newest first.
func (s *Service) List(ctx context.Context) ([]Post, error) {
	posts, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []Post{}
	}
	return posts, nil
}

// nextID returns the creation time in milliseconds, bumped so that IDs never
// repeat within the process.
func (s *Service) nextID(now time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := now.UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return strconv.FormatInt(id, 10)
}
