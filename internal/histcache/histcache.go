// Package histcache keeps a local sqlite cache of fetched history and
// food-scan results. It lets the CLI show the last known data when the
// backend is unreachable and skip re-uploading a photo it has already
// had recognized. The cache is advisory: every failure degrades to
// "no cached data" and never blocks the live path.
package histcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	_ "modernc.org/sqlite"

	"fittrack/internal/api"
)

const createTables = `
CREATE TABLE IF NOT EXISTS daily_logs (
	date TEXT PRIMARY KEY,
	payload TEXT NOT NULL,
	fetched_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS scans (
	image_digest TEXT PRIMARY KEY,
	food_item TEXT NOT NULL,
	calories REAL NOT NULL,
	protein REAL NOT NULL,
	carbs REAL NOT NULL,
	fat REAL NOT NULL,
	fiber REAL NOT NULL,
	confidence REAL NOT NULL,
	scanned_at DATETIME NOT NULL
);
`

// Cache is a read-through store for daily history and scan results.
type Cache struct {
	db *sql.DB
}

// Open opens (or creates) the cache database at the given path and
// ensures the schema exists.
func Open(ctx context.Context, path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	// Single connection keeps sqlite happy with concurrent use.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, createTables); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache tables: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close releases the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// PutDaily stores one day's history, replacing any earlier fetch.
func (c *Cache) PutDaily(ctx context.Context, day api.DailyHistory) error {
	if day.Date == "" {
		return errors.New("daily history has no date")
	}
	payload, err := json.Marshal(day)
	if err != nil {
		return fmt.Errorf("marshal daily history: %w", err)
	}
	_, err = c.db.ExecContext(ctx, `
INSERT INTO daily_logs (date, payload, fetched_at)
VALUES (?, ?, ?)
ON CONFLICT(date) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at`,
		day.Date, string(payload), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert daily history: %w", err)
	}
	return nil
}

// GetDaily returns the cached history for a date, or (nil, nil) when
// the date has never been fetched.
func (c *Cache) GetDaily(ctx context.Context, date string) (*api.DailyHistory, error) {
	var payload string
	err := c.db.QueryRowContext(ctx,
		`SELECT payload FROM daily_logs WHERE date = ?`, date,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query daily history: %w", err)
	}

	var day api.DailyHistory
	if err := json.Unmarshal([]byte(payload), &day); err != nil {
		return nil, fmt.Errorf("unmarshal daily history: %w", err)
	}
	return &day, nil
}

// RecordScan stores a recognition result keyed by the image digest.
func (c *Cache) RecordScan(ctx context.Context, digest string, pred api.FoodPrediction) error {
	_, err := c.db.ExecContext(ctx, `
INSERT INTO scans (image_digest, food_item, calories, protein, carbs, fat, fiber, confidence, scanned_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(image_digest) DO UPDATE SET
	food_item = excluded.food_item,
	calories = excluded.calories,
	protein = excluded.protein,
	carbs = excluded.carbs,
	fat = excluded.fat,
	fiber = excluded.fiber,
	confidence = excluded.confidence,
	scanned_at = excluded.scanned_at`,
		digest, pred.FoodItem, pred.Calories, pred.Protein, pred.Carbs,
		pred.Fat, pred.Fiber, pred.Confidence, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert scan: %w", err)
	}
	return nil
}

// LookupScan returns the cached recognition result for an image digest,
// or (nil, nil) when the image has never been scanned.
func (c *Cache) LookupScan(ctx context.Context, digest string) (*api.FoodPrediction, error) {
	var pred api.FoodPrediction
	err := c.db.QueryRowContext(ctx, `
SELECT food_item, calories, protein, carbs, fat, fiber, confidence
FROM scans WHERE image_digest = ?`, digest,
	).Scan(&pred.FoodItem, &pred.Calories, &pred.Protein, &pred.Carbs,
		&pred.Fat, &pred.Fiber, &pred.Confidence)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query scan: %w", err)
	}
	return &pred, nil
}

// ImageDigest returns the content digest used to deduplicate scan uploads.
func ImageDigest(data []byte) string {
	return strconv.FormatUint(xxhash.Sum64(data), 16)
}
