// Package server implements the leaflog backend: sqlite persistence
// for plants, care events, photos and notes, plus the HTTP handlers
// the client gateway talks to.
package server

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const currentVersion = 1

// ErrConflict marks an insert that collides with an existing identity
// (duplicate event type+timestamp, duplicate note timestamp). Handlers
// map it to 409.
var ErrConflict = errors.New("already exists")

// ErrNotFound marks a lookup of a missing record.
var ErrNotFound = errors.New("not found")

type Store struct {
	db *sql.DB
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// NewMemory creates an in-memory store for testing.
func NewMemory() (*Store, error) {
	return New(":memory:")
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	var version int
	err := s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version >= currentVersion {
		return nil
	}

	if version < 1 {
		if err := s.migrateV1(); err != nil {
			return err
		}
	}

	_, err = s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentVersion))
	return err
}

func (s *Store) migrateV1() error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS plants (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		name              TEXT NOT NULL,
		default_photo_key INTEGER,
		created_at        TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ','now'))
	);

	CREATE TABLE IF NOT EXISTS care_events (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		plant_id  INTEGER NOT NULL REFERENCES plants(id),
		type      TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		UNIQUE(plant_id, type, timestamp)
	);

	CREATE INDEX IF NOT EXISTS idx_events_plant ON care_events(plant_id);

	CREATE TABLE IF NOT EXISTS photos (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		plant_id     INTEGER NOT NULL REFERENCES plants(id),
		timestamp    TEXT NOT NULL,
		thumb_path   TEXT NOT NULL DEFAULT '',
		preview_path TEXT NOT NULL DEFAULT '',
		full_path    TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_photos_plant ON photos(plant_id);

	CREATE TABLE IF NOT EXISTS notes (
		id        INTEGER PRIMARY KEY AUTOINCREMENT,
		plant_id  INTEGER NOT NULL REFERENCES plants(id),
		timestamp TEXT NOT NULL,
		text      TEXT NOT NULL DEFAULT '',
		UNIQUE(plant_id, timestamp)
	);

	CREATE TABLE IF NOT EXISTS settings (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`
	_, err := s.db.Exec(ddl)
	return err
}

// DefaultDBPath returns ~/.config/leaflog/leaflog.db
func DefaultDBPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, "leaflog", "leaflog.db"), nil
}

// GetSetting reads one settings value.
func (s *Store) GetSetting(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

// SetSetting writes one settings value.
func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	return err
}
