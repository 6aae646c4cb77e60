package feed

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sliceRepo struct {
	posts []Post
	err   error
}

func (r *sliceRepo) Add(ctx context.Context, p Post) error {
	if r.err != nil {
		return r.err
	}
	r.posts = append([]Post{p}, r.posts...)
	return nil
}

func (r *sliceRepo) List(ctx context.Context) ([]Post, error) {
	return r.posts, nil
}

func ptr(v float64) *float64 { return &v }

func TestCreateDefaults(t *testing.T) {
	now := time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)
	s := NewService(&sliceRepo{})
	s.now = func() time.Time { return now }

	p, err := s.Create(context.Background(), NewPost{Message: "Ceniza en Latacunga"})
	require.NoError(t, err)

	assert.Equal(t, strconv.FormatInt(now.UnixMilli(), 10), p.ID)
	assert.Equal(t, "anonymous", p.UserID)
	assert.Equal(t, "Anónimo", p.UserName)
	assert.Equal(t, "report", p.Type)
	assert.Nil(t, p.Location)
	assert.Equal(t, now, p.CreatedAt)
}

func TestCreateKeepsProvidedFields(t *testing.T) {
	s := NewService(&sliceRepo{})
	p, err := s.Create(context.Background(), NewPost{
		UserID: "u1", UserName: "Ana", Message: "Lluvia fuerte", Type: "alert",
		Lat: ptr(-0.18), Lon: ptr(-78.47),
	})
	require.NoError(t, err)
	assert.Equal(t, "u1", p.UserID)
	assert.Equal(t, "Ana", p.UserName)
	assert.Equal(t, "alert", p.Type)
	assert.Equal(t, &Point{Lat: -0.18, Lon: -78.47}, p.Location)
}

func TestCreateLocationNeedsBothCoordinates(t *testing.T) {
	s := NewService(&sliceRepo{})
	p, err := s.Create(context.Background(), NewPost{Message: "x", Lat: ptr(-0.18)})
	require.NoError(t, err)
	assert.Nil(t, p.Location)
}

func TestCreateValidation(t *testing.T) {
	s := NewService(&sliceRepo{})

	_, err := s.Create(context.Background(), NewPost{Message: "   "})
	assert.ErrorIs(t, err, ErrMissingMessage)

	_, err = s.Create(context.Background(), NewPost{Message: "x", Lat: ptr(123), Lon: ptr(0)})
	assert.Error(t, err)
}

func TestCreateStoreFailure(t *testing.T) {
	s := NewService(&sliceRepo{err: errors.New("locked")})
	_, err := s.Create(context.Background(), NewPost{Message: "x"})
	assert.ErrorContains(t, err, "locked")
}

func TestIDsStrictlyIncrease(t *testing.T) {
	now := time.Date(2025, 10, 15, 12, 0, 0, 0, time.UTC)
	s := NewService(&sliceRepo{})
	s.now = func() time.Time { return now }

	var prev int64
	for i := 0; i < 5; i++ {
		p, err := s.Create(context.Background(), NewPost{Message: "x"})
		require.NoError(t, err)
		id, err := strconv.ParseInt(p.ID, 10, 64)
		require.NoError(t, err)
		assert.Greater(t, id, prev)
		prev = id
	}
}

func TestListNewestFirst(t *testing.T) {
	s := NewService(&sliceRepo{})

	empty, err := s.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, empty)

	for _, m := range []string{"primero", "segundo"} {
		_, err := s.Create(context.Background(), NewPost{Message: m})
		require.NoError(t, err)
	}
	posts, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, "segundo", posts[0].Message)
}
