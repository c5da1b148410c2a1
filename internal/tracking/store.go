// Package tracking records email opens, clicks and bounces keyed by an
// opaque tracking identifier.
package tracking

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Entry is one tracked email
type Entry struct {
	TrackingID  string     `json:"tracking_id"`
	ClientName  string     `json:"client_name"`
	ClientEmail string     `json:"client_email"`
	SentAt      time.Time  `json:"sent_at"`
	OpenedAt    *time.Time `json:"opened_at,omitempty"`
	ClickedAt   *time.Time `json:"clicked_at,omitempty"`
	BouncedAt   *time.Time `json:"bounced_at,omitempty"`
	OpenCount   int        `json:"open_count"`
	ClickCount  int        `json:"click_count"`
	UserAgent   string     `json:"user_agent,omitempty"`
	IPAddress   string     `json:"ip_address,omitempty"`
}

// Stats is the aggregate tracking view
type Stats struct {
	TotalSent    int     `json:"total_sent"`
	TotalOpened  int     `json:"total_opened"`
	TotalClicked int     `json:"total_clicked"`
	TotalBounced int     `json:"total_bounced"`
	OpenRate     float64 `json:"open_rate"`
	ClickRate    float64 `json:"click_rate"`
}

// Store persists tracking entries in SQLite.
type Store struct {
	db *sql.DB
}

// NewStore opens (and if needed creates) the tracking database.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create tracking directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open tracking database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply tracking schema: %w", err)
	}

	return &Store{db: db}, nil
}

const schema = `
CREATE TABLE IF NOT EXISTS email_tracking (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	tracking_id TEXT UNIQUE NOT NULL,
	client_name TEXT NOT NULL,
	client_email TEXT NOT NULL,
	sent_date TIMESTAMP NOT NULL,
	opened_date TIMESTAMP,
	clicked_date TIMESTAMP,
	bounce_date TIMESTAMP,
	open_count INTEGER DEFAULT 0,
	click_count INTEGER DEFAULT 0,
	user_agent TEXT,
	ip_address TEXT,
	created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
)`

// Create inserts a new tracking entry and returns its tracking ID.
func (s *Store) Create(ctx context.Context, name, email string) (string, error) {
	id := uuid.New().String()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO email_tracking (tracking_id, client_name, client_email, sent_date) VALUES (?, ?, ?, ?)`,
		id, name, email, time.Now(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create tracking entry: %w", err)
	}
	return id, nil
}

// RecordOpen bumps the open counter for an entry.
func (s *Store) RecordOpen(ctx context.Context, trackingID, userAgent, ip string) error {
	return s.record(ctx,
		`UPDATE email_tracking SET opened_date = ?, open_count = open_count + 1, user_agent = ?, ip_address = ? WHERE tracking_id = ?`,
		time.Now(), userAgent, ip, trackingID,
	)
}

// RecordClick bumps the click counter for an entry.
func (s *Store) RecordClick(ctx context.Context, trackingID, userAgent, ip string) error {
	return s.record(ctx,
		`UPDATE email_tracking SET clicked_date = ?, click_count = click_count + 1, user_agent = ?, ip_address = ? WHERE tracking_id = ?`,
		time.Now(), userAgent, ip, trackingID,
	)
}

// RecordBounce marks an entry as bounced.
func (s *Store) RecordBounce(ctx context.Context, trackingID string) error {
	return s.record(ctx,
		`UPDATE email_tracking SET bounce_date = ? WHERE tracking_id = ?`,
		time.Now(), trackingID,
	)
}

func (s *Store) record(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to record tracking event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("unknown tracking id")
	}
	return nil
}

// Stats aggregates the tracked entries.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COUNT(opened_date),
			COUNT(clicked_date),
			COUNT(bounce_date)
		FROM email_tracking`,
	).Scan(&stats.TotalSent, &stats.TotalOpened, &stats.TotalClicked, &stats.TotalBounced)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracking stats: %w", err)
	}

	if stats.TotalSent > 0 {
		stats.OpenRate = float64(stats.TotalOpened) / float64(stats.TotalSent) * 100
		stats.ClickRate = float64(stats.TotalClicked) / float64(stats.TotalSent) * 100
	}
	return stats, nil
}

// List returns all entries, most recent first.
func (s *Store) List(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT tracking_id, client_name, client_email, sent_date,
			opened_date, clicked_date, bounce_date,
			open_count, click_count,
			COALESCE(user_agent, ''), COALESCE(ip_address, '')
		FROM email_tracking ORDER BY sent_date DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracking entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.TrackingID, &e.ClientName, &e.ClientEmail, &e.SentAt,
			&e.OpenedAt, &e.ClickedAt, &e.BouncedAt,
			&e.OpenCount, &e.ClickCount,
			&e.UserAgent, &e.IPAddress,
		); err != nil {
			return nil, fmt.Errorf("failed to scan tracking entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
