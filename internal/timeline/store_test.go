package timeline

import (
	"testing"
	"time"
)

// UTC-8, fixed offset so tests are independent of the host zone.
var testZone = time.FixedZone("UTC-8", -8*60*60)

func ts(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatalf("parse %q: %v", value, err)
	}
	return parsed
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(testZone)
}

// ============================================================
// Date bucketing
// ============================================================

func TestLocalDateKeyCrossesMidnight(t *testing.T) {
	// 06:00Z is still the previous day in UTC-8; 10:00Z is not.
	a := ts(t, "2024-03-01T06:00:00Z")
	b := ts(t, "2024-03-01T10:00:00Z")

	if got := LocalDateKey(a, testZone); got != "2024-02-29" {
		t.Fatalf("expected 2024-02-29, got %s", got)
	}
	if got := LocalDateKey(b, testZone); got != "2024-03-01" {
		t.Fatalf("expected 2024-03-01, got %s", got)
	}
}

func TestLocalDateKeyUTC(t *testing.T) {
	a := ts(t, "2024-03-01T06:00:00Z")
	if got := LocalDateKey(a, time.UTC); got != "2024-03-01" {
		t.Fatalf("expected 2024-03-01, got %s", got)
	}
}

func TestParseDateKeyRoundTrip(t *testing.T) {
	day, err := ParseDateKey("2024-02-29", testZone)
	if err != nil {
		t.Fatal(err)
	}
	if got := LocalDateKey(day, testZone); got != "2024-02-29" {
		t.Fatalf("round trip changed key: %s", got)
	}
}

// ============================================================
// Events and calendar markers
// ============================================================

func TestInsertEventCreatesMarker(t *testing.T) {
	s := newTestStore(t)
	s.InsertEvent(Event{Type: Water, Timestamp: ts(t, "2024-03-01T10:00:00Z")})

	markers := s.Markers("2024-03-01")
	if len(markers) != 1 || markers[0] != Water {
		t.Fatalf("expected [water], got %v", markers)
	}
}

func TestSameTypeSameDayDedupsMarker(t *testing.T) {
	s := newTestStore(t)
	s.InsertEvent(Event{Type: Water, Timestamp: ts(t, "2024-03-01T10:00:00Z")})
	s.InsertEvent(Event{Type: Water, Timestamp: ts(t, "2024-03-01T18:00:00Z")})

	markers := s.Markers("2024-03-01")
	if len(markers) != 1 {
		t.Fatalf("expected one deduplicated marker, got %v", markers)
	}

	// Removing one of the two must keep the marker.
	s.RemoveEvents([]EventKey{{Type: Water, Unix: ts(t, "2024-03-01T10:00:00Z").UnixMilli()}})
	if m := s.Markers("2024-03-01"); len(m) != 1 {
		t.Fatalf("marker should survive while one event remains, got %v", m)
	}

	// Removing the last one must drop marker and bucket.
	s.RemoveEvents([]EventKey{{Type: Water, Unix: ts(t, "2024-03-01T18:00:00Z").UnixMilli()}})
	if m := s.Markers("2024-03-01"); m != nil {
		t.Fatalf("marker should be gone, got %v", m)
	}
	if keys := s.DayKeys(); len(keys) != 0 {
		t.Fatalf("bucket should be destroyed, got %v", keys)
	}
}

func TestInsertEventIdempotent(t *testing.T) {
	s := newTestStore(t)
	e := Event{Type: Prune, Timestamp: ts(t, "2024-03-01T10:00:00Z")}
	s.InsertEvent(e)
	s.InsertEvent(e)

	events, _, _ := s.Counts()
	if events != 1 {
		t.Fatalf("expected 1 event after duplicate insert, got %d", events)
	}
	// Duplicate insert must not inflate the marker count either.
	s.RemoveEvents([]EventKey{e.Key()})
	if m := s.Markers("2024-03-01"); m != nil {
		t.Fatalf("marker left behind after removal: %v", m)
	}
}

func TestRemoveAbsentEventIsNoOp(t *testing.T) {
	s := newTestStore(t)
	s.InsertEvent(Event{Type: Water, Timestamp: ts(t, "2024-03-01T10:00:00Z")})
	s.RemoveEvents([]EventKey{{Type: Repot, Unix: 12345}})

	events, _, _ := s.Counts()
	if events != 1 {
		t.Fatalf("no-op remove changed state: %d events", events)
	}
}

func TestEventsSplitAcrossLocalMidnight(t *testing.T) {
	s := newTestStore(t)
	a := Event{Type: Water, Timestamp: ts(t, "2024-03-01T06:00:00Z")}
	b := Event{Type: Water, Timestamp: ts(t, "2024-03-01T10:00:00Z")}
	s.InsertEvent(a)
	s.InsertEvent(b)

	keys := s.DayKeys()
	if len(keys) != 2 || keys[0] != "2024-03-01" || keys[1] != "2024-02-29" {
		t.Fatalf("expected two local days, got %v", keys)
	}

	// Deleting B leaves A's bucket, marker and timeline entry intact.
	s.RemoveEvents([]EventKey{b.Key()})
	if m := s.Markers("2024-02-29"); len(m) != 1 || m[0] != Water {
		t.Fatalf("expected A's marker intact, got %v", m)
	}
	if items := s.Day("2024-02-29"); len(items) != 1 || items[0].Kind != KindEvent {
		t.Fatalf("expected A's timeline entry intact, got %v", items)
	}
	if m := s.Markers("2024-03-01"); m != nil {
		t.Fatalf("B's marker should be gone, got %v", m)
	}
}

// ============================================================
// Cross-kind bucket lifecycle
// ============================================================

func TestBucketSurvivesUntilAllKindsEmpty(t *testing.T) {
	s := newTestStore(t)
	when := ts(t, "2024-03-01T20:00:00Z")
	day := LocalDateKey(when, testZone)

	s.InsertEvent(Event{Type: Water, Timestamp: when})
	s.InsertPhoto(Photo{Key: 1, Timestamp: when})
	s.InsertNote(Note{Timestamp: when, Text: "new leaf"})

	s.RemoveEvents([]EventKey{{Type: Water, Unix: when.UnixMilli()}})
	if s.Day(day) == nil {
		t.Fatal("bucket should survive: photo and note remain")
	}
	s.RemovePhotos([]int64{1})
	if s.Day(day) == nil {
		t.Fatal("bucket should survive: note remains")
	}
	s.RemoveNotes([]time.Time{when})
	if s.Day(day) != nil {
		t.Fatal("bucket should be destroyed once all kinds are empty")
	}
	if len(s.DayKeys()) != 0 {
		t.Fatal("day key still listed after bucket destruction")
	}
}

func TestLastEventRemovalAfterUnrelatedDeletes(t *testing.T) {
	// Photos and notes on the date are removed first by unrelated
	// operations; deleting the last event must still drop the bucket.
	s := newTestStore(t)
	when := ts(t, "2024-03-01T20:00:00Z")
	day := LocalDateKey(when, testZone)

	s.InsertPhoto(Photo{Key: 7, Timestamp: when})
	s.InsertNote(Note{Timestamp: when.Add(time.Minute), Text: "repotted"})
	s.InsertEvent(Event{Type: Repot, Timestamp: when})

	s.RemovePhotos([]int64{7})
	s.RemoveNotes([]time.Time{when.Add(time.Minute)})
	s.RemoveEvents([]EventKey{{Type: Repot, Unix: when.UnixMilli()}})

	if s.Day(day) != nil || s.Markers(day) != nil {
		t.Fatal("stale bucket or marker after last-item removal")
	}
}

// ============================================================
// Item ordering
// ============================================================

func TestDayOrdersEventsByTypePrecedence(t *testing.T) {
	s := newTestStore(t)
	base := ts(t, "2024-03-01T20:00:00Z")
	s.InsertEvent(Event{Type: Repot, Timestamp: base})
	s.InsertEvent(Event{Type: Water, Timestamp: base.Add(time.Hour)})
	s.InsertEvent(Event{Type: Prune, Timestamp: base.Add(2 * time.Minute)})
	s.InsertEvent(Event{Type: Fertilize, Timestamp: base.Add(time.Minute)})

	items := s.Day(LocalDateKey(base, testZone))
	want := []EventType{Water, Fertilize, Prune, Repot}
	if len(items) != len(want) {
		t.Fatalf("expected %d items, got %d", len(want), len(items))
	}
	for i, w := range want {
		if items[i].Event.Type != w {
			t.Fatalf("position %d: expected %s, got %s", i, w, items[i].Event.Type)
		}
	}
}

func TestDayOrdersNotesByTimestamp(t *testing.T) {
	s := newTestStore(t)
	noon := ts(t, "2024-03-01T20:00:00Z")
	ten := ts(t, "2024-03-01T18:00:00Z")

	// Inserted out of order on purpose.
	s.InsertNote(Note{Timestamp: noon, Text: "noon"})
	s.InsertNote(Note{Timestamp: ten, Text: "ten"})

	items := s.Day(LocalDateKey(noon, testZone))
	if len(items) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(items))
	}
	if items[0].Note.Text != "ten" || items[1].Note.Text != "noon" {
		t.Fatalf("notes out of order: %q, %q", items[0].Note.Text, items[1].Note.Text)
	}
}

func TestDayOrdersKinds(t *testing.T) {
	s := newTestStore(t)
	when := ts(t, "2024-03-01T20:00:00Z")
	s.InsertNote(Note{Timestamp: when, Text: "n"})
	s.InsertPhoto(Photo{Key: 1, Timestamp: when})
	s.InsertEvent(Event{Type: Water, Timestamp: when})

	items := s.Day(LocalDateKey(when, testZone))
	kinds := []ItemKind{KindEvent, KindPhoto, KindNote}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	for i, k := range kinds {
		if items[i].Kind != k {
			t.Fatalf("position %d: expected kind %s, got %s", i, k, items[i].Kind)
		}
	}
}

// ============================================================
// Notes
// ============================================================

func TestEditNotePreservesPosition(t *testing.T) {
	s := newTestStore(t)
	when := ts(t, "2024-03-01T20:00:00Z")
	s.InsertNote(Note{Timestamp: when, Text: "old"})
	s.InsertNote(Note{Timestamp: when.Add(time.Hour), Text: "later"})

	s.EditNote(when, "new")

	day := LocalDateKey(when, testZone)
	items := s.Day(day)
	if items[0].Note.Text != "new" {
		t.Fatalf("expected edited text first, got %q", items[0].Note.Text)
	}
	_, _, notes := s.Counts()
	if notes != 2 {
		t.Fatalf("edit changed note count: %d", notes)
	}
}

func TestEditAbsentNoteIsNoOp(t *testing.T) {
	s := newTestStore(t)
	s.EditNote(ts(t, "2024-03-01T20:00:00Z"), "ghost")
	if _, _, notes := s.Counts(); notes != 0 {
		t.Fatalf("edit of absent note created one: %d", notes)
	}
}

func TestInsertNoteDuplicateTimestampIsNoOp(t *testing.T) {
	s := newTestStore(t)
	when := ts(t, "2024-03-01T20:00:00Z")
	s.InsertNote(Note{Timestamp: when, Text: "first"})
	s.InsertNote(Note{Timestamp: when, Text: "second"})

	n, ok := s.Note(when)
	if !ok || n.Text != "first" {
		t.Fatalf("duplicate insert should not replace text: %+v", n)
	}
}

// ============================================================
// Month markers
// ============================================================

func TestMonthMarkers(t *testing.T) {
	s := newTestStore(t)
	s.InsertEvent(Event{Type: Water, Timestamp: ts(t, "2024-03-05T20:00:00Z")})
	s.InsertEvent(Event{Type: Prune, Timestamp: ts(t, "2024-03-05T21:00:00Z")})
	s.InsertEvent(Event{Type: Water, Timestamp: ts(t, "2024-04-01T20:00:00Z")})
	// Photo-only day: no marker.
	s.InsertPhoto(Photo{Key: 1, Timestamp: ts(t, "2024-03-10T20:00:00Z")})

	m := s.MonthMarkers(2024, time.March)
	if len(m) != 1 {
		t.Fatalf("expected one marked date in March, got %v", m)
	}
	day := m["2024-03-05"]
	if len(day) != 2 || day[0] != Water || day[1] != Prune {
		t.Fatalf("expected [water prune], got %v", day)
	}
}
