package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/emres/leaflog/internal/timeline"
)

// ToCSV writes one row per event followed by one row per note. The
// Kind column tells the two apart.
func ToCSV(events []timeline.Event, notes []timeline.Note, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"Kind", "Type", "Timestamp", "Local Date", "Text"}); err != nil {
		return err
	}

	for _, e := range events {
		row := []string{
			"event",
			string(e.Type),
			e.Timestamp.Local().Format(time.RFC3339),
			timeline.LocalDateKey(e.Timestamp, time.Local),
			"",
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	for _, n := range notes {
		row := []string{
			"note",
			"",
			n.Timestamp.Local().Format(time.RFC3339),
			timeline.LocalDateKey(n.Timestamp, time.Local),
			n.Text,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}
