package server

import (
	"fmt"
	"time"

	"github.com/emres/leaflog/internal/timeline"
)

// AddEvent records a care event. A duplicate (type, timestamp) pair
// for the plant returns ErrConflict.
func (s *Store) AddEvent(plantID int64, typ timeline.EventType, ts time.Time) (*CareEvent, error) {
	stamp := formatStamp(ts)

	var exists int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM care_events WHERE plant_id = ? AND type = ? AND timestamp = ?`,
		plantID, string(typ), stamp,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("check event: %w", err)
	}
	if exists > 0 {
		return nil, ErrConflict
	}

	res, err := s.db.Exec(
		`INSERT INTO care_events (plant_id, type, timestamp) VALUES (?, ?, ?)`,
		plantID, string(typ), stamp,
	)
	if err != nil {
		return nil, fmt.Errorf("add event: %w", err)
	}
	id, _ := res.LastInsertId()
	return &CareEvent{ID: id, PlantID: plantID, Type: typ, Timestamp: ts.UTC()}, nil
}

// ListEvents returns all of a plant's events, oldest first.
func (s *Store) ListEvents(plantID int64) ([]CareEvent, error) {
	rows, err := s.db.Query(
		`SELECT id, plant_id, type, timestamp FROM care_events WHERE plant_id = ? ORDER BY timestamp`,
		plantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []CareEvent
	for rows.Next() {
		var e CareEvent
		var typ, stamp string
		if err := rows.Scan(&e.ID, &e.PlantID, &typ, &stamp); err != nil {
			return nil, err
		}
		e.Type = timeline.EventType(typ)
		e.Timestamp, err = parseStamp(stamp)
		if err != nil {
			return nil, fmt.Errorf("stored timestamp %q: %w", stamp, err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// DeleteEvent removes one event by identity; false means no such event
// existed.
func (s *Store) DeleteEvent(plantID int64, typ timeline.EventType, ts time.Time) (bool, error) {
	res, err := s.db.Exec(
		`DELETE FROM care_events WHERE plant_id = ? AND type = ? AND timestamp = ?`,
		plantID, string(typ), formatStamp(ts),
	)
	if err != nil {
		return false, fmt.Errorf("delete event: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}
