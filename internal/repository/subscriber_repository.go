// Package repository provides data access implementations
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/abelzeko/ache-o-meter/internal/entities"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned by updates of an unknown subscriber
var ErrNotFound = errors.New("subscriber not found")

// DefaultNotificationTime is used for new subscribers when none is configured
const DefaultNotificationTime = "08:00"

// SubscriberRepository defines the interface for subscriber persistence operations
type SubscriberRepository interface {
	// Get returns nil without error when the user is unknown.
	Get(ctx context.Context, userID int64) (*entities.Subscriber, error)
	ListActive(ctx context.Context) ([]entities.Subscriber, error)
	// Upsert stores location and chat and activates the subscription.
	// An existing notification time is preserved.
	Upsert(ctx context.Context, sub entities.Subscriber) error
	SetActive(ctx context.Context, userID int64, active bool) error
	SetNotificationTime(ctx context.Context, userID int64, hhmm string) error
	Close() error
}

// SQLiteSubscriberRepository implements SubscriberRepository using SQLite
type SQLiteSubscriberRepository struct {
	db                      *sql.DB
	DBPath                  string
	defaultNotificationTime string
}

// NewSQLiteSubscriberRepository creates and initializes a new SQLite repository
func NewSQLiteSubscriberRepository(dbPath, defaultNotificationTime string) (*SQLiteSubscriberRepository, error) {
	if dbPath == "" {
		dbPath = filepath.Join("data", "users.db")
	}
	if defaultNotificationTime == "" {
		defaultNotificationTime = DefaultNotificationTime
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %v", err)
		}
	}

	log.Printf("Opening database at %s", dbPath)
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %v", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS users (
		user_id INTEGER PRIMARY KEY,
		chat_id INTEGER NOT NULL,
		lat REAL NOT NULL,
		lon REAL NOT NULL,
		timezone TEXT NOT NULL DEFAULT 'UTC',
		is_active INTEGER NOT NULL DEFAULT 1,
		notification_time TEXT NOT NULL DEFAULT '08:00',
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_users_active ON users(is_active);`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %v", err)
	}

	return &SQLiteSubscriberRepository{
		db:                      db,
		DBPath:                  dbPath,
		defaultNotificationTime: defaultNotificationTime,
	}, nil
}

// Close closes the database connection
func (r *SQLiteSubscriberRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const selectSubscriber = `
	SELECT user_id, chat_id, lat, lon, timezone, is_active, notification_time, updated_at
	FROM users`

// Get retrieves a subscriber by user id
func (r *SQLiteSubscriberRepository) Get(ctx context.Context, userID int64) (*entities.Subscriber, error) {
	row := r.db.QueryRowContext(ctx, selectSubscriber+" WHERE user_id = ?", userID)
	sub, err := scanSubscriber(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get subscriber %d: %v", userID, err)
	}
	return &sub, nil
}

// ListActive returns all subscribers with an active subscription
func (r *SQLiteSubscriberRepository) ListActive(ctx context.Context) ([]entities.Subscriber, error) {
	rows, err := r.db.QueryContext(ctx, selectSubscriber+" WHERE is_active = 1 ORDER BY user_id")
	if err != nil {
		return nil, fmt.Errorf("failed to query active subscribers: %v", err)
	}
	defer rows.Close()

	var result []entities.Subscriber
	for rows.Next() {
		sub, err := scanSubscriber(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %v", err)
		}
		result = append(result, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during row iteration: %v", err)
	}

	return result, nil
}

// Upsert adds or updates a subscriber and activates the subscription
func (r *SQLiteSubscriberRepository) Upsert(ctx context.Context, sub entities.Subscriber) error {
	notificationTime := sub.NotificationTime
	if notificationTime == "" {
		notificationTime = r.defaultNotificationTime
	}
	timezone := sub.Timezone
	if timezone == "" {
		timezone = "UTC"
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (user_id, chat_id, lat, lon, timezone, is_active, notification_time, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			chat_id=excluded.chat_id,
			lat=excluded.lat,
			lon=excluded.lon,
			timezone=excluded.timezone,
			is_active=1,
			updated_at=excluded.updated_at`,
		sub.UserID,
		sub.ChatID,
		sub.Location.Latitude,
		sub.Location.Longitude,
		timezone,
		notificationTime,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to save subscriber %d: %v", sub.UserID, err)
	}

	log.Printf("Subscriber %d saved: location %s, timezone %s", sub.UserID, sub.Location, timezone)
	return nil
}

// SetActive changes the subscription status
func (r *SQLiteSubscriberRepository) SetActive(ctx context.Context, userID int64, active bool) error {
	return r.update(ctx, userID, "is_active", active)
}

// SetNotificationTime changes the local time of day forecasts are sent at
func (r *SQLiteSubscriberRepository) SetNotificationTime(ctx context.Context, userID int64, hhmm string) error {
	return r.update(ctx, userID, "notification_time", hhmm)
}

// update sets one column; column is never user input.
func (r *SQLiteSubscriberRepository) update(ctx context.Context, userID int64, column string, value any) error {
	res, err := r.db.ExecContext(ctx,
		fmt.Sprintf("UPDATE users SET %s = ?, updated_at = ? WHERE user_id = ?", column),
		value, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("failed to update %s for subscriber %d: %v", column, userID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("subscriber %d: %w", userID, ErrNotFound)
	}

	log.Printf("Subscriber %d: %s set to %v", userID, column, value)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubscriber(row rowScanner) (entities.Subscriber, error) {
	var (
		sub       entities.Subscriber
		updatedAt sql.NullTime
	)
	err := row.Scan(
		&sub.UserID,
		&sub.ChatID,
		&sub.Location.Latitude,
		&sub.Location.Longitude,
		&sub.Timezone,
		&sub.IsActive,
		&sub.NotificationTime,
		&updatedAt,
	)
	if err != nil {
		return entities.Subscriber{}, err
	}
	if updatedAt.Valid {
		sub.UpdatedAt = updatedAt.Time
	}
	return sub, nil
}
