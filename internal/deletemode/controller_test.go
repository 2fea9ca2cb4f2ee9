package deletemode

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/emres/leaflog/internal/api"
	"github.com/emres/leaflog/internal/timeline"
)

// fakeGateway records call order and serves canned outcomes. By default
// every requested identity is reported deleted, the backend's happy
// path.
type fakeGateway struct {
	calls []string

	eventErr    error
	eventFailed api.EventDeleteSelection

	photoErr    error
	photoFailed map[int64]bool

	noteErr    error
	noteFailed map[int64]bool
}

func (g *fakeGateway) BulkDeleteEvents(_ context.Context, sel api.EventDeleteSelection) (api.EventDeleteResult, error) {
	g.calls = append(g.calls, "events")
	if g.eventErr != nil {
		return api.EventDeleteResult{}, g.eventErr
	}
	res := api.EventDeleteResult{Deleted: make(api.EventDeleteSelection), Failed: g.eventFailed}
	for typ, stamps := range sel {
	next:
		for _, ts := range stamps {
			for _, f := range g.eventFailed[typ] {
				if f.Equal(ts) {
					continue next
				}
			}
			res.Deleted[typ] = append(res.Deleted[typ], ts)
		}
	}
	return res, nil
}

func (g *fakeGateway) DeletePhotos(_ context.Context, keys []int64) (api.PhotoDeleteResult, error) {
	g.calls = append(g.calls, "photos")
	if g.photoErr != nil {
		return api.PhotoDeleteResult{}, g.photoErr
	}
	var res api.PhotoDeleteResult
	for _, k := range keys {
		if g.photoFailed[k] {
			res.Failed = append(res.Failed, k)
		} else {
			res.Deleted = append(res.Deleted, k)
		}
	}
	return res, nil
}

func (g *fakeGateway) DeleteNotes(_ context.Context, stamps []time.Time) (api.NoteDeleteResult, error) {
	g.calls = append(g.calls, "notes")
	if g.noteErr != nil {
		return api.NoteDeleteResult{}, g.noteErr
	}
	var res api.NoteDeleteResult
	for _, ts := range stamps {
		if g.noteFailed[ts.UnixMilli()] {
			res.Failed = append(res.Failed, ts)
		} else {
			res.Deleted = append(res.Deleted, ts)
		}
	}
	return res, nil
}

func fixedTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		t.Fatal(err)
	}
	return ts
}

func seededController(t *testing.T, gw Gateway) (*Controller, *timeline.Store) {
	t.Helper()
	s := timeline.NewStore(time.UTC)
	s.InsertEvent(timeline.Event{Type: timeline.Water, Timestamp: fixedTime(t, "2024-03-01T10:00:00Z")})
	s.InsertEvent(timeline.Event{Type: timeline.Prune, Timestamp: fixedTime(t, "2024-03-02T10:00:00Z")})
	s.InsertPhoto(timeline.Photo{Key: 1, Timestamp: fixedTime(t, "2024-03-01T11:00:00Z")})
	s.InsertNote(timeline.Note{Timestamp: fixedTime(t, "2024-03-01T12:00:00Z"), Text: "looking good"})
	return NewController(s, gw, DefaultHoldDelay), s
}

func eventItem(t *testing.T, typ timeline.EventType, value string) timeline.Item {
	return timeline.Item{Kind: timeline.KindEvent, Event: timeline.Event{Type: typ, Timestamp: fixedTime(t, value)}}
}

func photoItem(key int64) timeline.Item {
	return timeline.Item{Kind: timeline.KindPhoto, Photo: timeline.Photo{Key: key}}
}

func noteItem(t *testing.T, value string) timeline.Item {
	return timeline.Item{Kind: timeline.KindNote, Note: timeline.Note{Timestamp: fixedTime(t, value)}}
}

// ============================================================
// Selection state machine
// ============================================================

func TestEnterClearsPreviousSelection(t *testing.T) {
	c, _ := seededController(t, &fakeGateway{})

	c.Enter()
	c.ToggleItem(photoItem(1))
	if c.SelectionCount() != 1 {
		t.Fatal("toggle did not select")
	}
	c.Cancel()
	if c.State() != StateIdle {
		t.Fatalf("cancel should return to idle, got %v", c.State())
	}

	c.Enter()
	if c.SelectionCount() != 0 {
		t.Fatal("selection carried across sessions")
	}
}

func TestToggleIsMembershipFlip(t *testing.T) {
	c, _ := seededController(t, &fakeGateway{})
	c.Enter()

	it := eventItem(t, timeline.Water, "2024-03-01T10:00:00Z")
	c.ToggleItem(it)
	c.ToggleItem(it)
	if c.SelectionCount() != 0 {
		t.Fatalf("double toggle should deselect, count=%d", c.SelectionCount())
	}
	c.ToggleItem(it)
	c.ToggleItem(it)
	c.ToggleItem(it)
	if c.SelectionCount() != 1 || !c.IsSelected(it) {
		t.Fatal("odd number of toggles should leave item selected once")
	}
}

func TestInstructionText(t *testing.T) {
	c, _ := seededController(t, &fakeGateway{})
	c.Enter()
	if got := c.Instruction(); got != "Select items to delete" {
		t.Fatalf("empty selection prompt: %q", got)
	}
	c.ToggleItem(photoItem(1))
	c.ToggleItem(noteItem(t, "2024-03-01T12:00:00Z"))
	if got := c.Instruction(); got != "2 item(s) selected" {
		t.Fatalf("selection count text: %q", got)
	}
}

func TestBeginConfirmRequiresSelection(t *testing.T) {
	c, _ := seededController(t, &fakeGateway{})
	c.Enter()
	c.BeginConfirm(time.Now())
	if c.State() != StateSelecting {
		t.Fatal("confirm should not start with an empty selection")
	}
}

func TestReleaseConfirmKeepsSelection(t *testing.T) {
	c, _ := seededController(t, &fakeGateway{})
	c.Enter()
	c.ToggleItem(photoItem(1))

	now := time.Now()
	c.BeginConfirm(now)
	if c.State() != StateConfirming {
		t.Fatal("confirm did not start")
	}
	c.ReleaseConfirm()
	if c.State() != StateSelecting || c.SelectionCount() != 1 {
		t.Fatal("release before expiry must keep state unchanged")
	}
	// The abandoned timer must not fire later.
	if res := c.PollConfirm(context.Background(), now.Add(time.Hour)); res != nil {
		t.Fatal("stray expiry committed after release")
	}
}

func TestPollConfirmCommitsExactlyOnce(t *testing.T) {
	gw := &fakeGateway{}
	c, _ := seededController(t, gw)
	c.Enter()
	c.ToggleItem(photoItem(1))

	now := time.Now()
	c.BeginConfirm(now)
	if res := c.PollConfirm(context.Background(), now.Add(time.Second)); res != nil {
		t.Fatal("committed before hold expiry")
	}
	res := c.PollConfirm(context.Background(), now.Add(2*time.Second))
	if res == nil || res.Err != nil {
		t.Fatalf("expected clean commit, got %+v", res)
	}
	if len(gw.calls) != 1 {
		t.Fatalf("expected one backend call, got %v", gw.calls)
	}
	if c.State() != StateIdle {
		t.Fatalf("full success should return to idle, got %v", c.State())
	}
}

// ============================================================
// Commit orchestration
// ============================================================

func TestCommitOrderAndSkipsEmptyKinds(t *testing.T) {
	gw := &fakeGateway{}
	c, _ := seededController(t, gw)
	c.Enter()
	c.ToggleItem(noteItem(t, "2024-03-01T12:00:00Z"))
	c.ToggleItem(eventItem(t, timeline.Water, "2024-03-01T10:00:00Z"))

	res := c.Commit(context.Background())
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	want := []string{"events", "notes"}
	if len(gw.calls) != 2 || gw.calls[0] != want[0] || gw.calls[1] != want[1] {
		t.Fatalf("expected %v, got %v", want, gw.calls)
	}
}

func TestCommitAppliesAuthoritativeDeletes(t *testing.T) {
	gw := &fakeGateway{}
	c, s := seededController(t, gw)
	c.Enter()
	c.ToggleItem(eventItem(t, timeline.Water, "2024-03-01T10:00:00Z"))
	c.ToggleItem(photoItem(1))
	c.ToggleItem(noteItem(t, "2024-03-01T12:00:00Z"))

	res := c.Commit(context.Background())
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if res.DeletedEvents != 1 || res.DeletedPhotos != 1 || res.DeletedNotes != 1 {
		t.Fatalf("unexpected counts: %+v", res)
	}

	events, photos, notes := s.Counts()
	if events != 1 || photos != 0 || notes != 0 {
		t.Fatalf("store not updated: %d/%d/%d", events, photos, notes)
	}
	// 2024-03-01 had the deleted event, photo and note; bucket gone.
	if s.Day("2024-03-01") != nil {
		t.Fatal("emptied day bucket survived commit")
	}
	if s.Day("2024-03-02") == nil {
		t.Fatal("unrelated day bucket lost")
	}
}

func TestCommitStopsOnFirstRequestError(t *testing.T) {
	boom := errors.New("connection refused")
	gw := &fakeGateway{photoErr: boom}
	c, s := seededController(t, gw)
	c.Enter()
	c.ToggleItem(eventItem(t, timeline.Water, "2024-03-01T10:00:00Z"))
	c.ToggleItem(photoItem(1))
	c.ToggleItem(noteItem(t, "2024-03-01T12:00:00Z"))

	res := c.Commit(context.Background())
	if !errors.Is(res.Err, boom) {
		t.Fatalf("expected request error surfaced, got %v", res.Err)
	}
	// Events call succeeded before the failure: applied, not rolled back.
	if res.DeletedEvents != 1 {
		t.Fatalf("event deletion should have been applied, got %d", res.DeletedEvents)
	}
	if s.HasEvent(timeline.EventKey{Type: timeline.Water, Unix: fixedTime(t, "2024-03-01T10:00:00Z").UnixMilli()}) {
		t.Fatal("committed event deletion was rolled back")
	}
	// The notes call must never have been issued.
	if len(gw.calls) != 2 {
		t.Fatalf("sequence did not stop: %v", gw.calls)
	}
	// Photo and note remain selected for a retry.
	if !c.IsSelected(photoItem(1)) || !c.IsSelected(noteItem(t, "2024-03-01T12:00:00Z")) {
		t.Fatal("unprocessed selections were dropped")
	}
	if c.IsSelected(eventItem(t, timeline.Water, "2024-03-01T10:00:00Z")) {
		t.Fatal("deleted event still selected")
	}
	if c.State() != StateSelecting {
		t.Fatalf("failed commit should return to selecting, got %v", c.State())
	}
}

func TestCommitPartialFailureKeepsFailedSelected(t *testing.T) {
	gw := &fakeGateway{photoFailed: map[int64]bool{1: true}}
	c, s := seededController(t, gw)
	c.Enter()
	c.ToggleItem(photoItem(1))
	c.ToggleItem(noteItem(t, "2024-03-01T12:00:00Z"))

	res := c.Commit(context.Background())
	var partial *PartialFailure
	if !errors.As(res.Err, &partial) {
		t.Fatalf("expected PartialFailure, got %v", res.Err)
	}
	if partial.Photos != 1 {
		t.Fatalf("expected 1 failed photo, got %+v", partial)
	}
	// The failed photo stays in local state and in the selection.
	if !s.HasPhoto(1) || !c.IsSelected(photoItem(1)) {
		t.Fatal("failed identity was dropped")
	}
	// A partial failure does not stop later kinds.
	if res.DeletedNotes != 1 {
		t.Fatal("notes call should still have run")
	}
	if c.State() != StateSelecting {
		t.Fatalf("partial failure should return to selecting, got %v", c.State())
	}
}

func TestCommitEventsGroupedByType(t *testing.T) {
	gw := &fakeGateway{}
	c, s := seededController(t, gw)
	s.InsertEvent(timeline.Event{Type: timeline.Water, Timestamp: fixedTime(t, "2024-03-03T10:00:00Z")})
	c.Enter()
	c.ToggleItem(eventItem(t, timeline.Water, "2024-03-01T10:00:00Z"))
	c.ToggleItem(eventItem(t, timeline.Water, "2024-03-03T10:00:00Z"))
	c.ToggleItem(eventItem(t, timeline.Prune, "2024-03-02T10:00:00Z"))

	res := c.Commit(context.Background())
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if len(gw.calls) != 1 {
		t.Fatalf("all events must go in one request, got %v", gw.calls)
	}
	if res.DeletedEvents != 3 {
		t.Fatalf("expected 3 deleted events, got %d", res.DeletedEvents)
	}
	if events, _, _ := s.Counts(); events != 0 {
		t.Fatalf("events left behind: %d", events)
	}
}

func TestCancelDuringConfirmDisarmsTimer(t *testing.T) {
	gw := &fakeGateway{}
	c, _ := seededController(t, gw)
	c.Enter()
	c.ToggleItem(photoItem(1))

	now := time.Now()
	c.BeginConfirm(now)
	c.Cancel()
	if c.State() != StateIdle {
		t.Fatalf("cancel from confirming should idle, got %v", c.State())
	}
	if res := c.PollConfirm(context.Background(), now.Add(time.Hour)); res != nil {
		t.Fatal("delayed commit fired after cancel")
	}
	if len(gw.calls) != 0 {
		t.Fatalf("backend was called after cancel: %v", gw.calls)
	}
}
