package server

import (
	"time"

	"github.com/emres/leaflog/internal/timeline"
)

type Plant struct {
	ID              int64
	Name            string
	DefaultPhotoKey *int64
	CreatedAt       time.Time
}

type CareEvent struct {
	ID        int64
	PlantID   int64
	Type      timeline.EventType
	Timestamp time.Time
}

type Photo struct {
	ID          int64
	PlantID     int64
	Timestamp   time.Time
	ThumbPath   string
	PreviewPath string
	FullPath    string
}

type Note struct {
	ID        int64
	PlantID   int64
	Timestamp time.Time
	Text      string
}

// stampLayout is the stored timestamp format. Millisecond precision is
// kept so identities survive the round trip through clients that key
// on unix milliseconds.
const stampLayout = time.RFC3339Nano

func formatStamp(t time.Time) string {
	return t.UTC().Format(stampLayout)
}

func parseStamp(s string) (time.Time, error) {
	return time.Parse(stampLayout, s)
}
