package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/i474232898/weather-risk-alerts/internal/alerts"
	"github.com/i474232898/weather-risk-alerts/internal/feed"
)

const schema = `
CREATE TABLE IF NOT EXISTS alerts (
	id TEXT PRIMARY KEY,
	location TEXT NOT NULL,
	risk_level TEXT NOT NULL,
	probability REAL NOT NULL,
	message TEXT NOT NULL,
	actions TEXT NOT NULL DEFAULT '[]',
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_alerts_created_at ON alerts(created_at);

CREATE TABLE IF NOT EXISTS feed_posts (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	user_name TEXT NOT NULL,
	message TEXT NOT NULL,
	type TEXT NOT NULL,
	lat REAL,
	lon REAL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_feed_posts_created_at ON feed_posts(created_at);`

// SQLiteStore persists alerts and feed posts in a SQLite database.
// Timestamps are stored as Unix milliseconds.
type SQLiteStore struct {
	db   *sql.DB
	Path string
}

// NewSQLiteStore opens (and creates if needed) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path == "" {
		path = filepath.Join("data", "alerts.db")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	log.Printf("INFO: opening database at %s", path)
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &SQLiteStore{db: db, Path: path}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Alerts returns the alert repository view of the store.
func (s *SQLiteStore) Alerts() alerts.Repository { return sqliteAlerts{s.db} }

// Feed returns the feed repository view of the store.
func (s *SQLiteStore) Feed() feed.Repository { return sqliteFeed{s.db} }

type sqliteAlerts struct{ db *sql.DB }

func (r sqliteAlerts) Add(ctx context.Context, a alerts.Alert) error {
	actions, err := json.Marshal(a.Actions)
	if err != nil {
		return fmt.Errorf("encode actions: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO alerts(id, location, risk_level, probability, message, actions, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Location, a.RiskLevel, a.Probability, a.Message, string(actions), a.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert alert %s: %w", a.ID, err)
	}
	return nil
}

func (r sqliteAlerts) Recent(ctx context.Context, limit int) ([]alerts.Alert, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, location, risk_level, probability, message, actions, created_at
		FROM alerts
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	out := []alerts.Alert{}
	for rows.Next() {
		var (
			a       alerts.Alert
			actions string
			created int64
		)
		if err := rows.Scan(&a.ID, &a.Location, &a.RiskLevel, &a.Probability, &a.Message, &actions, &created); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		if err := json.Unmarshal([]byte(actions), &a.Actions); err != nil {
			return nil, fmt.Errorf("decode actions of %s: %w", a.ID, err)
		}
		if a.Actions == nil {
			a.Actions = []string{}
		}
		a.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r sqliteAlerts) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM alerts WHERE created_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete alerts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

type sqliteFeed struct{ db *sql.DB }

func (r sqliteFeed) Add(ctx context.Context, p feed.Post) error {
	var lat, lon sql.NullFloat64
	if p.Location != nil {
		lat = sql.NullFloat64{Float64: p.Location.Lat, Valid: true}
		lon = sql.NullFloat64{Float64: p.Location.Lon, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO feed_posts(id, user_id, user_name, message, type, lat, lon, created_at)
		VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.UserName, p.Message, p.Type, lat, lon, p.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to insert post %s: %w", p.ID, err)
	}
	return nil
}

func (r sqliteFeed) List(ctx context.Context) ([]feed.Post, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, user_name, message, type, lat, lon, created_at
		FROM feed_posts
		ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query feed: %w", err)
	}
	defer rows.Close()

	out := []feed.Post{}
	for rows.Next() {
		var (
			p        feed.Post
			lat, lon sql.NullFloat64
			created  int64
		)
		if err := rows.Scan(&p.ID, &p.UserID, &p.UserName, &p.Message, &p.Type, &lat, &lon, &created); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		if lat.Valid && lon.Valid {
			p.Location = &feed.Point{Lat: lat.Float64, Lon: lon.Float64}
		}
		p.CreatedAt = time.UnixMilli(created).UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}
