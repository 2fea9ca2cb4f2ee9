package timeline

import (
	"sort"
	"time"
)

// Store owns the canonical event/photo/note collections for one plant
// and the per-day indexes derived from them. All mutation goes through
// the Insert*/Remove* methods so the derived indexes can never diverge
// from the flat collections; everything else on Store is read-only.
type Store struct {
	loc *time.Location

	events map[EventKey]Event
	photos map[int64]Photo
	notes  map[int64]Note

	days map[string]*dayBucket

	pinned    int64
	pinActive bool
}

// dayBucket tracks which records currently map to one local date.
// Event counts are kept per type so a calendar marker is removed only
// once the last event of that type on the date is gone.
type dayBucket struct {
	eventCount map[EventType]int
	photoKeys  map[int64]struct{}
	noteKeys   map[int64]struct{}
}

func (b *dayBucket) empty() bool {
	return len(b.eventCount) == 0 && len(b.photoKeys) == 0 && len(b.noteKeys) == 0
}

// NewStore creates an empty store bucketing dates in loc. A nil loc
// falls back to time.Local.
func NewStore(loc *time.Location) *Store {
	if loc == nil {
		loc = time.Local
	}
	return &Store{
		loc:    loc,
		events: make(map[EventKey]Event),
		photos: make(map[int64]Photo),
		notes:  make(map[int64]Note),
		days:   make(map[string]*dayBucket),
	}
}

// Location returns the zone used for day bucketing.
func (s *Store) Location() *time.Location { return s.loc }

func (s *Store) bucket(key string) *dayBucket {
	b, ok := s.days[key]
	if !ok {
		b = &dayBucket{
			eventCount: make(map[EventType]int),
			photoKeys:  make(map[int64]struct{}),
			noteKeys:   make(map[int64]struct{}),
		}
		s.days[key] = b
	}
	return b
}

// dropIfEmpty destroys the bucket once no record of any kind maps to
// the date. Called after every removal, whichever kind triggered it.
func (s *Store) dropIfEmpty(key string) {
	if b, ok := s.days[key]; ok && b.empty() {
		delete(s.days, key)
	}
}

// InsertEvent adds an event. Inserting an already-present (type,
// timestamp) identity is a no-op.
func (s *Store) InsertEvent(e Event) {
	k := e.Key()
	if _, ok := s.events[k]; ok {
		return
	}
	s.events[k] = e
	b := s.bucket(LocalDateKey(e.Timestamp, s.loc))
	b.eventCount[e.Type]++
}

// RemoveEvents removes the given event identities. Absent identities
// are skipped: the backend's authoritative deleted list may include
// records this client already dropped.
func (s *Store) RemoveEvents(keys []EventKey) {
	for _, k := range keys {
		e, ok := s.events[k]
		if !ok {
			continue
		}
		delete(s.events, k)
		day := LocalDateKey(e.Timestamp, s.loc)
		if b, ok := s.days[day]; ok {
			b.eventCount[e.Type]--
			if b.eventCount[e.Type] <= 0 {
				delete(b.eventCount, e.Type)
			}
		}
		s.dropIfEmpty(day)
	}
}

// InsertPhoto adds a photo. Re-inserting an existing key replaces the
// stored refs but does not duplicate the day entry.
func (s *Store) InsertPhoto(p Photo) {
	if old, ok := s.photos[p.Key]; ok {
		// Same identity: refresh payload, keep bucket membership.
		if old.Timestamp.Equal(p.Timestamp) {
			s.photos[p.Key] = p
			return
		}
		s.RemovePhotos([]int64{p.Key})
	}
	s.photos[p.Key] = p
	b := s.bucket(LocalDateKey(p.Timestamp, s.loc))
	b.photoKeys[p.Key] = struct{}{}
}

// RemovePhotos removes photos by key; absent keys are no-ops.
func (s *Store) RemovePhotos(keys []int64) {
	for _, k := range keys {
		p, ok := s.photos[k]
		if !ok {
			continue
		}
		delete(s.photos, k)
		day := LocalDateKey(p.Timestamp, s.loc)
		if b, ok := s.days[day]; ok {
			delete(b.photoKeys, k)
		}
		s.dropIfEmpty(day)
	}
}

// InsertNote adds a note keyed by its timestamp. Inserting a timestamp
// that is already present is a no-op; use EditNote to change the text.
func (s *Store) InsertNote(n Note) {
	k := n.Key()
	if _, ok := s.notes[k]; ok {
		return
	}
	s.notes[k] = n
	b := s.bucket(LocalDateKey(n.Timestamp, s.loc))
	b.noteKeys[k] = struct{}{}
}

// RemoveNotes removes notes by timestamp; absent timestamps are no-ops.
func (s *Store) RemoveNotes(timestamps []time.Time) {
	for _, ts := range timestamps {
		k := ts.UnixMilli()
		n, ok := s.notes[k]
		if !ok {
			continue
		}
		delete(s.notes, k)
		day := LocalDateKey(n.Timestamp, s.loc)
		if b, ok := s.days[day]; ok {
			delete(b.noteKeys, k)
		}
		s.dropIfEmpty(day)
	}
}

// EditNote replaces the text of the note at timestamp. The note keeps
// its position and bucket membership; editing an absent note is a
// no-op.
func (s *Store) EditNote(timestamp time.Time, text string) {
	k := timestamp.UnixMilli()
	n, ok := s.notes[k]
	if !ok {
		return
	}
	n.Text = text
	s.notes[k] = n
}

// HasEvent reports whether the event identity is present.
func (s *Store) HasEvent(k EventKey) bool {
	_, ok := s.events[k]
	return ok
}

// HasPhoto reports whether a photo with the key is present.
func (s *Store) HasPhoto(key int64) bool {
	_, ok := s.photos[key]
	return ok
}

// HasNote reports whether a note exists at the timestamp.
func (s *Store) HasNote(timestamp time.Time) bool {
	_, ok := s.notes[timestamp.UnixMilli()]
	return ok
}

// Photo returns the photo with the given key.
func (s *Store) Photo(key int64) (Photo, bool) {
	p, ok := s.photos[key]
	return p, ok
}

// Note returns the note at the given timestamp.
func (s *Store) Note(timestamp time.Time) (Note, bool) {
	n, ok := s.notes[timestamp.UnixMilli()]
	return n, ok
}

// Counts returns the sizes of the three canonical collections.
func (s *Store) Counts() (events, photos, notes int) {
	return len(s.events), len(s.photos), len(s.notes)
}

// DayKeys returns all dates that currently have at least one record,
// newest first.
func (s *Store) DayKeys() []string {
	keys := make([]string, 0, len(s.days))
	for k := range s.days {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	return keys
}

// Day returns the ordered items for one local date: events first in
// type precedence (then by time), then photos and notes each in
// ascending timestamp order. The slice is freshly built; callers may
// not mutate the store through it.
func (s *Store) Day(key string) []Item {
	b, ok := s.days[key]
	if !ok {
		return nil
	}

	var items []Item
	var events []Event
	for _, e := range s.events {
		if b.eventCount[e.Type] > 0 && LocalDateKey(e.Timestamp, s.loc) == key {
			events = append(events, e)
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].Type != events[j].Type {
			return events[i].Type.precedence() < events[j].Type.precedence()
		}
		return events[i].Timestamp.Before(events[j].Timestamp)
	})
	for _, e := range events {
		items = append(items, Item{Kind: KindEvent, Event: e})
	}

	var photos []Photo
	for k := range b.photoKeys {
		photos = append(photos, s.photos[k])
	}
	sort.Slice(photos, func(i, j int) bool {
		return photos[i].Timestamp.Before(photos[j].Timestamp)
	})
	for _, p := range photos {
		items = append(items, Item{Kind: KindPhoto, Photo: p})
	}

	var notes []Note
	for k := range b.noteKeys {
		notes = append(notes, s.notes[k])
	}
	sort.Slice(notes, func(i, j int) bool {
		return notes[i].Timestamp.Before(notes[j].Timestamp)
	})
	for _, n := range notes {
		items = append(items, Item{Kind: KindNote, Note: n})
	}

	return items
}

// Markers returns the calendar markers for one local date: each event
// type present on that date exactly once, in type precedence order.
func (s *Store) Markers(key string) []EventType {
	b, ok := s.days[key]
	if !ok {
		return nil
	}
	var types []EventType
	for _, t := range EventTypes {
		if b.eventCount[t] > 0 {
			types = append(types, t)
		}
	}
	return types
}

// MonthMarkers returns, for every date in the given year/month with at
// least one event, its deduplicated marker set.
func (s *Store) MonthMarkers(year int, month time.Month) map[string][]EventType {
	prefix := time.Date(year, month, 1, 0, 0, 0, 0, s.loc).Format("2006-01")
	out := make(map[string][]EventType)
	for key := range s.days {
		if len(key) < 7 || key[:7] != prefix {
			continue
		}
		if m := s.Markers(key); len(m) > 0 {
			out[key] = m
		}
	}
	return out
}

// Photos returns all photos, newest first.
func (s *Store) Photos() []Photo {
	out := make([]Photo, 0, len(s.photos))
	for _, p := range s.photos {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// Events returns all events, newest first.
func (s *Store) Events() []Event {
	out := make([]Event, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// Notes returns all notes, newest first.
func (s *Store) Notes() []Note {
	out := make([]Note, 0, len(s.notes))
	for _, n := range s.notes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}
