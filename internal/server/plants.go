package server

import (
	"database/sql"
	"fmt"
	"time"
)

// CreatePlant registers a new plant.
func (s *Store) CreatePlant(name string) (*Plant, error) {
	res, err := s.db.Exec(`INSERT INTO plants (name) VALUES (?)`, name)
	if err != nil {
		return nil, fmt.Errorf("create plant: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetPlant(id)
}

// GetPlant fetches one plant by id.
func (s *Store) GetPlant(id int64) (*Plant, error) {
	p := &Plant{}
	var createdAt string
	var pin sql.NullInt64
	err := s.db.QueryRow(
		`SELECT id, name, default_photo_key, created_at FROM plants WHERE id = ?`, id,
	).Scan(&p.ID, &p.Name, &pin, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get plant %d: %w", id, err)
	}
	if pin.Valid {
		p.DefaultPhotoKey = &pin.Int64
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return p, nil
}

// ListPlants returns all plants ordered by name.
func (s *Store) ListPlants() ([]Plant, error) {
	rows, err := s.db.Query(`SELECT id, name, default_photo_key, created_at FROM plants ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list plants: %w", err)
	}
	defer rows.Close()

	var plants []Plant
	for rows.Next() {
		var p Plant
		var createdAt string
		var pin sql.NullInt64
		if err := rows.Scan(&p.ID, &p.Name, &pin, &createdAt); err != nil {
			return nil, err
		}
		if pin.Valid {
			p.DefaultPhotoKey = &pin.Int64
		}
		p.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		plants = append(plants, p)
	}
	return plants, rows.Err()
}

// SetDefaultPhoto pins the plant's representative photo. The photo
// must belong to the plant.
func (s *Store) SetDefaultPhoto(plantID, photoID int64) error {
	var exists int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM photos WHERE id = ? AND plant_id = ?`, photoID, plantID,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check photo: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}
	_, err = s.db.Exec(`UPDATE plants SET default_photo_key = ? WHERE id = ?`, photoID, plantID)
	return err
}

// ClearDefaultPhoto removes the pin.
func (s *Store) ClearDefaultPhoto(plantID int64) error {
	_, err := s.db.Exec(`UPDATE plants SET default_photo_key = NULL WHERE id = ?`, plantID)
	return err
}
