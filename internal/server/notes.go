package server

import (
	"database/sql"
	"fmt"
	"time"
)

// AddNote records a note. A duplicate timestamp for the plant returns
// ErrConflict.
func (s *Store) AddNote(plantID int64, ts time.Time, text string) (*Note, error) {
	stamp := formatStamp(ts)

	var exists int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM notes WHERE plant_id = ? AND timestamp = ?`, plantID, stamp,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check note: %w", err)
	}
	if exists > 0 {
		return nil, ErrConflict
	}

	res, err := s.db.Exec(
		`INSERT INTO notes (plant_id, timestamp, text) VALUES (?, ?, ?)`,
		plantID, stamp, text,
	)
	if err != nil {
		return nil, fmt.Errorf("add note: %w", err)
	}
	id, _ := res.LastInsertId()
	return &Note{ID: id, PlantID: plantID, Timestamp: ts.UTC(), Text: text}, nil
}

// EditNote replaces the text of the note at the timestamp.
func (s *Store) EditNote(plantID int64, ts time.Time, text string) (*Note, error) {
	res, err := s.db.Exec(
		`UPDATE notes SET text = ? WHERE plant_id = ? AND timestamp = ?`,
		text, plantID, formatStamp(ts),
	)
	if err != nil {
		return nil, fmt.Errorf("edit note: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return nil, ErrNotFound
	}
	return s.GetNote(plantID, ts)
}

// GetNote fetches one note by timestamp.
func (s *Store) GetNote(plantID int64, ts time.Time) (*Note, error) {
	n := &Note{}
	var stamp string
	err := s.db.QueryRow(
		`SELECT id, plant_id, timestamp, text FROM notes WHERE plant_id = ? AND timestamp = ?`,
		plantID, formatStamp(ts),
	).Scan(&n.ID, &n.PlantID, &stamp, &n.Text)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get note: %w", err)
	}
	n.Timestamp, err = parseStamp(stamp)
	if err != nil {
		return nil, fmt.Errorf("stored timestamp %q: %w", stamp, err)
	}
	return n, nil
}

// ListNotes returns all of a plant's notes, oldest first.
func (s *Store) ListNotes(plantID int64) ([]Note, error) {
	rows, err := s.db.Query(
		`SELECT id, plant_id, timestamp, text FROM notes WHERE plant_id = ? ORDER BY timestamp`,
		plantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		var n Note
		var stamp string
		if err := rows.Scan(&n.ID, &n.PlantID, &stamp, &n.Text); err != nil {
			return nil, err
		}
		n.Timestamp, err = parseStamp(stamp)
		if err != nil {
			return nil, fmt.Errorf("stored timestamp %q: %w", stamp, err)
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

// DeleteNote removes one note by timestamp; false means no such note
// existed.
func (s *Store) DeleteNote(plantID int64, ts time.Time) (bool, error) {
	res, err := s.db.Exec(
		`DELETE FROM notes WHERE plant_id = ? AND timestamp = ?`, plantID, formatStamp(ts),
	)
	if err != nil {
		return false, fmt.Errorf("delete note: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
