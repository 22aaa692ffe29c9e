// Package store persists the light inventory: which lights were seen on
// which provider and the virtual audio node each one maps to. The
// populate command diffs against it and the discover command reports
// from it; it holds current state only, not synchronization history.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dokzlo13/lightwire/internal/light"
)

// Store wraps the SQLite inventory database.
type Store struct {
	db *sql.DB
}

// Record is one inventoried light.
type Record struct {
	Provider   string
	ID         light.ID
	Label      string
	NodeName   string
	Brightness float64
	Power      bool
	LastSeen   time.Time
}

// Open opens the database and initializes the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS lights (
			provider TEXT NOT NULL,
			id TEXT NOT NULL,
			label TEXT NOT NULL,
			node_name TEXT NOT NULL,
			brightness REAL NOT NULL,
			power INTEGER NOT NULL,
			last_seen INTEGER NOT NULL,
			PRIMARY KEY (provider, id)
		);
		CREATE INDEX IF NOT EXISTS idx_lights_provider ON lights(provider);
	`)
	if err != nil {
		return fmt.Errorf("failed to create lights table: %w", err)
	}
	return nil
}

// Upsert inserts or refreshes one light record.
func (s *Store) Upsert(r Record) error {
	lastSeen := r.LastSeen
	if lastSeen.IsZero() {
		lastSeen = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO lights (provider, id, label, node_name, brightness, power, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(provider, id) DO UPDATE SET
			label = excluded.label,
			node_name = excluded.node_name,
			brightness = excluded.brightness,
			power = excluded.power,
			last_seen = excluded.last_seen
	`, r.Provider, string(r.ID), r.Label, r.NodeName, r.Brightness, boolToInt(r.Power), lastSeen.UnixNano())
	if err != nil {
		return fmt.Errorf("upsert light %s: %w", r.ID, err)
	}
	return nil
}

// List returns all inventoried lights ordered by provider then label.
func (s *Store) List() ([]Record, error) {
	rows, err := s.db.Query(`
		SELECT provider, id, label, node_name, brightness, power, last_seen
		FROM lights ORDER BY provider, label
	`)
	if err != nil {
		return nil, fmt.Errorf("list lights: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var id string
		var power int
		var lastSeen int64
		if err := rows.Scan(&r.Provider, &id, &r.Label, &r.NodeName, &r.Brightness, &power, &lastSeen); err != nil {
			return nil, fmt.Errorf("scan light row: %w", err)
		}
		r.ID = light.ID(id)
		r.Power = power != 0
		r.LastSeen = time.Unix(0, lastSeen)
		records = append(records, r)
	}
	return records, rows.Err()
}

// Forget removes lights not seen since the cutoff, returning how many
// rows were dropped. Timestamps are nanosecond-resolution so a refresh
// can prune against its own start time.
func (s *Store) Forget(cutoff time.Time) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM lights WHERE last_seen < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("forget lights: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
