package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/emres/leaflog/internal/timeline"
)

type jsonExport struct {
	ExportedAt string      `json:"exported_at"`
	EventCount int         `json:"event_count"`
	NoteCount  int         `json:"note_count"`
	Events     []jsonEvent `json:"events"`
	Notes      []jsonNote  `json:"notes"`
}

type jsonEvent struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
	LocalDate string `json:"local_date"`
}

type jsonNote struct {
	Timestamp string `json:"timestamp"`
	LocalDate string `json:"local_date"`
	Text      string `json:"text"`
}

// ToJSON writes the care journal to path. Timestamps are rendered in
// the machine's local zone alongside the date key they bucket into.
func ToJSON(events []timeline.Event, notes []timeline.Note, path string) error {
	out := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		EventCount: len(events),
		NoteCount:  len(notes),
	}

	for _, e := range events {
		out.Events = append(out.Events, jsonEvent{
			Type:      string(e.Type),
			Timestamp: e.Timestamp.Local().Format(time.RFC3339),
			LocalDate: timeline.LocalDateKey(e.Timestamp, time.Local),
		})
	}
	for _, n := range notes {
		out.Notes = append(out.Notes, jsonNote{
			Timestamp: n.Timestamp.Local().Format(time.RFC3339),
			LocalDate: timeline.LocalDateKey(n.Timestamp, time.Local),
			Text:      n.Text,
		})
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}
