package server

import (
	"database/sql"
	"fmt"
	"time"
)

// AddPhoto records a photo's metadata; the derivative files are
// written by the media pipeline before this is called.
func (s *Store) AddPhoto(plantID int64, ts time.Time, thumbPath, previewPath, fullPath string) (*Photo, error) {
	res, err := s.db.Exec(
		`INSERT INTO photos (plant_id, timestamp, thumb_path, preview_path, full_path) VALUES (?, ?, ?, ?, ?)`,
		plantID, formatStamp(ts), thumbPath, previewPath, fullPath,
	)
	if err != nil {
		return nil, fmt.Errorf("add photo: %w", err)
	}
	id, _ := res.LastInsertId()
	return &Photo{
		ID:          id,
		PlantID:     plantID,
		Timestamp:   ts.UTC(),
		ThumbPath:   thumbPath,
		PreviewPath: previewPath,
		FullPath:    fullPath,
	}, nil
}

// UpdatePhotoPaths stores the final derivative paths once the photo id
// is known.
func (s *Store) UpdatePhotoPaths(id int64, thumbPath, previewPath, fullPath string) error {
	_, err := s.db.Exec(
		`UPDATE photos SET thumb_path = ?, preview_path = ?, full_path = ? WHERE id = ?`,
		thumbPath, previewPath, fullPath, id,
	)
	return err
}

// GetPhoto fetches one photo by id, scoped to the plant.
func (s *Store) GetPhoto(plantID, id int64) (*Photo, error) {
	p := &Photo{}
	var stamp string
	err := s.db.QueryRow(
		`SELECT id, plant_id, timestamp, thumb_path, preview_path, full_path
		 FROM photos WHERE id = ? AND plant_id = ?`, id, plantID,
	).Scan(&p.ID, &p.PlantID, &stamp, &p.ThumbPath, &p.PreviewPath, &p.FullPath)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get photo %d: %w", id, err)
	}
	p.Timestamp, err = parseStamp(stamp)
	if err != nil {
		return nil, fmt.Errorf("stored timestamp %q: %w", stamp, err)
	}
	return p, nil
}

// FindPhoto fetches one photo by id alone, for media serving.
func (s *Store) FindPhoto(id int64) (*Photo, error) {
	var plantID int64
	err := s.db.QueryRow(`SELECT plant_id FROM photos WHERE id = ?`, id).Scan(&plantID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find photo %d: %w", id, err)
	}
	return s.GetPhoto(plantID, id)
}

// ListPhotos returns all of a plant's photos, oldest first.
func (s *Store) ListPhotos(plantID int64) ([]Photo, error) {
	rows, err := s.db.Query(
		`SELECT id, plant_id, timestamp, thumb_path, preview_path, full_path
		 FROM photos WHERE plant_id = ? ORDER BY timestamp`, plantID,
	)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	defer rows.Close()

	var photos []Photo
	for rows.Next() {
		var p Photo
		var stamp string
		if err := rows.Scan(&p.ID, &p.PlantID, &stamp, &p.ThumbPath, &p.PreviewPath, &p.FullPath); err != nil {
			return nil, err
		}
		p.Timestamp, err = parseStamp(stamp)
		if err != nil {
			return nil, fmt.Errorf("stored timestamp %q: %w", stamp, err)
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}

// DeletePhoto removes one photo row; the removed record is returned so
// the caller can delete its files. false means no such photo existed.
func (s *Store) DeletePhoto(plantID, id int64) (*Photo, bool, error) {
	p, err := s.GetPhoto(plantID, id)
	if err == ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if _, err := s.db.Exec(`DELETE FROM photos WHERE id = ?`, id); err != nil {
		return nil, false, fmt.Errorf("delete photo: %w", err)
	}
	return p, true, nil
}
