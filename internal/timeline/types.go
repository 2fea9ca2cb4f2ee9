package timeline

import "time"

// EventType is a kind of care activity.
type EventType string

const (
	Water     EventType = "water"
	Fertilize EventType = "fertilize"
	Prune     EventType = "prune"
	Repot     EventType = "repot"
)

// EventTypes lists all event types in their fixed rendering precedence.
var EventTypes = []EventType{Water, Fertilize, Prune, Repot}

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case Water, Fertilize, Prune, Repot:
		return true
	}
	return false
}

// precedence returns the fixed ordering rank of an event type.
func (t EventType) precedence() int {
	for i, et := range EventTypes {
		if et == t {
			return i
		}
	}
	return len(EventTypes)
}

// Event is a single care activity. Identity is (Type, Timestamp).
type Event struct {
	Type      EventType
	Timestamp time.Time
}

// EventKey identifies an event. Timestamps are compared at millisecond
// precision so a key survives a round trip through the wire format.
type EventKey struct {
	Type EventType
	Unix int64 // unix milliseconds, UTC
}

func (e Event) Key() EventKey {
	return EventKey{Type: e.Type, Unix: e.Timestamp.UnixMilli()}
}

// Photo is a photograph of the plant. Identity is Key; photos are never
// compared by struct equality.
type Photo struct {
	Key          int64
	Timestamp    time.Time
	ThumbnailRef string
	PreviewRef   string
	FullRef      string
}

// Note is a free-text note. Identity is the timestamp.
type Note struct {
	Timestamp time.Time
	Text      string
}

func (n Note) Key() int64 { return n.Timestamp.UnixMilli() }

// ItemKind distinguishes the three record kinds in a day's item list.
type ItemKind int

const (
	KindEvent ItemKind = iota
	KindPhoto
	KindNote
)

func (k ItemKind) String() string {
	switch k {
	case KindEvent:
		return "event"
	case KindPhoto:
		return "photo"
	case KindNote:
		return "note"
	}
	return "unknown"
}

// Item is one renderable entry in a day bucket. Exactly one of Event,
// Photo, Note is meaningful, according to Kind.
type Item struct {
	Kind  ItemKind
	Event Event
	Photo Photo
	Note  Note
}

// Timestamp returns the underlying record's timestamp.
func (it Item) Timestamp() time.Time {
	switch it.Kind {
	case KindEvent:
		return it.Event.Timestamp
	case KindPhoto:
		return it.Photo.Timestamp
	}
	return it.Note.Timestamp
}
