package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // CGO-free SQLite

	"github.com/shehryarbajwa/tabtrace/pkg/models"
)

// ErrMissingFields is returned when url, startTime or endTime is absent
var ErrMissingFields = errors.New("missing required fields: url/startTime/endTime")

// Store persists activities in a single SQLite table
type Store struct {
	db   *sql.DB
	path string
}

// Stats summarizes the store for the health check endpoint
type Stats struct {
	Path   string            `json:"database"`
	Tables []string          `json:"collections"`
	Total  int               `json:"totalActivities"`
	Sample []models.Activity `json:"sampleActivities"`
}

// Open opens (or creates) the database at path
func Open(path string) (*Store, error) {
	// WAL + busy timeout to avoid "database is locked"
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, path: path}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
	CREATE TABLE IF NOT EXISTS activities(
	  id         TEXT    PRIMARY KEY,
	  url        TEXT    NOT NULL,
	  title      TEXT    NOT NULL DEFAULT '',
	  start_time INTEGER NOT NULL,
	  end_time   INTEGER NOT NULL,
	  duration   INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_activities_start ON activities(start_time);
	`)
	if err != nil {
		return fmt.Errorf("failed to create database tables: %w", err)
	}
	return nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.path
}

// Ping checks the database connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Validate checks the fields the REST contract requires
func Validate(activity models.Activity) error {
	if activity.URL == "" || activity.StartTime.IsZero() || activity.EndTime.IsZero() {
		return ErrMissingFields
	}
	return nil
}

// InsertActivity stores one activity and returns it with its assigned id
func (s *Store) InsertActivity(ctx context.Context, activity models.Activity) (models.Activity, error) {
	stored, err := s.InsertActivities(ctx, []models.Activity{activity})
	if err != nil {
		return models.Activity{}, err
	}
	return stored[0], nil
}

// InsertActivities stores activities in one transaction
func (s *Store) InsertActivities(ctx context.Context, activities []models.Activity) ([]models.Activity, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO activities(id, url, title, start_time, end_time, duration) VALUES(?,?,?,?,?,?)`)
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	stored := make([]models.Activity, 0, len(activities))
	for _, activity := range activities {
		if err := Validate(activity); err != nil {
			_ = tx.Rollback()
			return nil, err
		}

		activity.ID = uuid.New().String()
		if _, err := stmt.ExecContext(ctx,
			activity.ID,
			activity.URL,
			activity.Title,
			activity.StartTime.UnixMilli(),
			activity.EndTime.UnixMilli(),
			activity.Duration,
		); err != nil {
			_ = tx.Rollback()
			return nil, fmt.Errorf("failed to insert activity: %w", err)
		}
		stored = append(stored, activity)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return stored, nil
}

// ListActivities returns activities ordered by start time, newest first.
// A limit of zero or less returns all of them.
func (s *Store) ListActivities(ctx context.Context, limit int) ([]models.Activity, error) {
	query := `SELECT id, url, title, start_time, end_time, duration FROM activities ORDER BY start_time DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer rows.Close()

	activities := make([]models.Activity, 0)
	for rows.Next() {
		var (
			activity models.Activity
			startMS  int64
			endMS    int64
		)
		if err := rows.Scan(&activity.ID, &activity.URL, &activity.Title, &startMS, &endMS, &activity.Duration); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		activity.StartTime = models.FromMillis(startMS)
		activity.EndTime = models.FromMillis(endMS)
		activities = append(activities, activity)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read activities: %w", err)
	}
	return activities, nil
}

// CountActivities returns the number of stored activities
func (s *Store) CountActivities(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM activities`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count activities: %w", err)
	}
	return count, nil
}

// Stats reports connection details, totals and a few recent activities
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	if err := s.Ping(ctx); err != nil {
		return Stats{}, fmt.Errorf("database is not connected: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	tables := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return Stats{}, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("failed to read tables: %w", err)
	}

	total, err := s.CountActivities(ctx)
	if err != nil {
		return Stats{}, err
	}
	sample, err := s.ListActivities(ctx, 3)
	if err != nil {
		return Stats{}, err
	}

	return Stats{Path: s.Path(), Tables: tables, Total: total, Sample: sample}, nil
}

// DemoActivities returns the fixed development data set, relative to now
func DemoActivities(now time.Time) []models.Activity {
	demo := []struct {
		url, title       string
		startAgo, endAgo time.Duration
	}{
		{"https://github.com", "GitHub - Where the world builds software", time.Hour, 45 * time.Minute},
		{"https://stackoverflow.com", "Stack Overflow - Where Developers Learn", 2 * time.Hour, 105 * time.Minute},
		{"https://youtube.com", "YouTube", 3 * time.Hour, 150 * time.Minute},
		{"https://amazon.com", "Amazon - Online Shopping", 4 * time.Hour, 225 * time.Minute},
		{"https://wikipedia.org", "Wikipedia - Free Encyclopedia", 5 * time.Hour, 270 * time.Minute},
	}

	activities := make([]models.Activity, 0, len(demo))
	for _, d := range demo {
		activities = append(activities, models.NewActivity(d.url, d.title, now.Add(-d.startAgo), now.Add(-d.endAgo)))
	}
	return activities
}
