package api

import (
	"time"

	"github.com/emres/leaflog/internal/timeline"
)

// EventDeleteSelection groups event timestamps by type, the shape the
// bulk-delete endpoint expects and answers in.
type EventDeleteSelection map[timeline.EventType][]time.Time

// EventDeleteResult is the authoritative outcome of a bulk event
// delete. Only identities in Deleted may be removed from local state.
type EventDeleteResult struct {
	Deleted EventDeleteSelection
	Failed  EventDeleteSelection
}

// FailedCount returns the number of identities the server refused.
func (r EventDeleteResult) FailedCount() int {
	n := 0
	for _, ts := range r.Failed {
		n += len(ts)
	}
	return n
}

// PhotoDeleteResult is the authoritative outcome of a photo delete.
type PhotoDeleteResult struct {
	Deleted []int64
	Failed  []int64
}

// NoteDeleteResult is the authoritative outcome of a note delete.
type NoteDeleteResult struct {
	Deleted []time.Time
	Failed  []time.Time
}

// Timeline is the initial-load payload for one plant.
type Timeline struct {
	Events          []timeline.Event
	Photos          []timeline.Photo
	Notes           []timeline.Note
	DefaultPhotoKey *int64
}

// PhotoUpload is one file to send to the photo endpoint.
type PhotoUpload struct {
	Name string
	Data []byte
}

// --- wire shapes ---

type eventJSON struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

type photoJSON struct {
	Key       int64  `json:"key"`
	Timestamp string `json:"timestamp"`
	Thumbnail string `json:"thumbnail"`
	Preview   string `json:"preview"`
	Full      string `json:"full"`
}

type noteJSON struct {
	Timestamp string `json:"timestamp"`
	Text      string `json:"text"`
}

type timelineJSON struct {
	Events          []eventJSON `json:"events"`
	Photos          []photoJSON `json:"photos"`
	Notes           []noteJSON  `json:"notes"`
	DefaultPhotoKey *int64      `json:"default_photo_key"`
}

type eventDeleteJSON struct {
	Deleted map[string][]string `json:"deleted"`
	Failed  map[string][]string `json:"failed"`
}

type photoDeleteJSON struct {
	Deleted []int64 `json:"deleted"`
	Failed  []int64 `json:"failed"`
}

type noteDeleteJSON struct {
	Deleted []string `json:"deleted"`
	Failed  []string `json:"failed"`
}

type errorJSON struct {
	Error string `json:"error"`
}

func wireTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseWireTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

func selectionToWire(sel EventDeleteSelection) map[string][]string {
	out := make(map[string][]string, len(sel))
	for typ, stamps := range sel {
		list := make([]string, 0, len(stamps))
		for _, ts := range stamps {
			list = append(list, wireTime(ts))
		}
		out[string(typ)] = list
	}
	return out
}

func selectionFromWire(m map[string][]string) (EventDeleteSelection, error) {
	out := make(EventDeleteSelection, len(m))
	for typ, stamps := range m {
		if len(stamps) == 0 {
			continue
		}
		list := make([]time.Time, 0, len(stamps))
		for _, s := range stamps {
			ts, err := parseWireTime(s)
			if err != nil {
				return nil, err
			}
			list = append(list, ts)
		}
		out[timeline.EventType(typ)] = list
	}
	return out, nil
}

func (p photoJSON) toPhoto() (timeline.Photo, error) {
	ts, err := parseWireTime(p.Timestamp)
	if err != nil {
		return timeline.Photo{}, err
	}
	return timeline.Photo{
		Key:          p.Key,
		Timestamp:    ts,
		ThumbnailRef: p.Thumbnail,
		PreviewRef:   p.Preview,
		FullRef:      p.Full,
	}, nil
}
