// Package sqlite is the client's local store: favorite cars, recent
// searches, and the last successfully fetched bookings snapshot used as a
// fallback display when the live fetch fails.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"asaancar/internal/api"
)

// historyCap bounds the recent-search list.
const historyCap = 20

// Store wraps the on-disk sqlite database.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	store := &Store{db: db}
	if err := store.createTables(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS favorites (
		car_id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		added_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS search_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		query TEXT NOT NULL,
		searched_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS booking_cache (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		payload TEXT NOT NULL,
		fetched_at TIMESTAMP NOT NULL
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("sqlite: create tables: %w", err)
	}
	return nil
}

// AddFavorite marks a car as a favorite. Re-adding is a no-op.
func (s *Store) AddFavorite(ctx context.Context, carID api.ID, name string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO favorites (car_id, name) VALUES (?, ?)`,
		string(carID), name)
	if err != nil {
		return fmt.Errorf("sqlite: add favorite: %w", err)
	}
	return nil
}

// RemoveFavorite unmarks a car. Removing an absent id is a no-op.
func (s *Store) RemoveFavorite(ctx context.Context, carID api.ID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM favorites WHERE car_id = ?`, string(carID))
	if err != nil {
		return fmt.Errorf("sqlite: remove favorite: %w", err)
	}
	return nil
}

// Favorite is a locally saved car reference.
type Favorite struct {
	CarID   api.ID
	Name    string
	AddedAt time.Time
}

// Favorites lists saved cars, newest first.
func (s *Store) Favorites(ctx context.Context) ([]Favorite, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT car_id, name, added_at FROM favorites ORDER BY added_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list favorites: %w", err)
	}
	defer rows.Close()

	var favorites []Favorite
	for rows.Next() {
		var fav Favorite
		var carID string
		if err := rows.Scan(&carID, &fav.Name, &fav.AddedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scan favorite: %w", err)
		}
		fav.CarID = api.ID(carID)
		favorites = append(favorites, fav)
	}
	return favorites, rows.Err()
}

// IsFavorite reports whether a car is saved.
func (s *Store) IsFavorite(ctx context.Context, carID api.ID) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM favorites WHERE car_id = ?`, string(carID)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: favorite lookup: %w", err)
	}
	return n > 0, nil
}

// RecordSearch appends a query to the history and trims it to the cap.
func (s *Store) RecordSearch(ctx context.Context, query string) error {
	if query == "" {
		return nil
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO search_history (query) VALUES (?)`, query); err != nil {
		return fmt.Errorf("sqlite: record search: %w", err)
	}
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM search_history WHERE id NOT IN (
			SELECT id FROM search_history ORDER BY id DESC LIMIT ?
		)`, historyCap)
	if err != nil {
		return fmt.Errorf("sqlite: trim search history: %w", err)
	}
	return nil
}

// RecentSearches returns up to limit queries, newest first.
func (s *Store) RecentSearches(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 || limit > historyCap {
		limit = historyCap
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT query FROM search_history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("sqlite: recent searches: %w", err)
	}
	defer rows.Close()

	var queries []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("sqlite: scan search: %w", err)
		}
		queries = append(queries, q)
	}
	return queries, rows.Err()
}

// SaveBookings stores the latest successfully fetched bookings snapshot.
func (s *Store) SaveBookings(ctx context.Context, bookings []api.Booking) error {
	payload, err := json.Marshal(bookings)
	if err != nil {
		return fmt.Errorf("sqlite: encode bookings: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO booking_cache (id, payload, fetched_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at`,
		string(payload), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("sqlite: save bookings: %w", err)
	}
	return nil
}

// CachedBookings returns the stored snapshot and when it was fetched.
// No snapshot yields an empty list and a zero time, not an error, so the
// caller can tell "no data" from "error".
func (s *Store) CachedBookings(ctx context.Context) ([]api.Booking, time.Time, error) {
	var payload string
	var fetchedAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, fetched_at FROM booking_cache WHERE id = 1`).Scan(&payload, &fetchedAt)
	if err == sql.ErrNoRows {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("sqlite: load booking cache: %w", err)
	}
	var bookings []api.Booking
	if err := json.Unmarshal([]byte(payload), &bookings); err != nil {
		return nil, time.Time{}, fmt.Errorf("sqlite: decode booking cache: %w", err)
	}
	return bookings, fetchedAt, nil
}
