// Package deletemode drives multi-select bulk deletion: a selection
// state machine, a hold-to-confirm gesture, and the orchestration that
// turns one confirmed gesture into sequential backend deletes whose
// authoritative results are fed back into the timeline store.
package deletemode

import (
	"context"
	"fmt"
	"time"

	"github.com/emres/leaflog/internal/api"
	"github.com/emres/leaflog/internal/timeline"
)

// State is the controller's position in the delete-mode lifecycle.
type State int

const (
	StateIdle State = iota
	StateSelecting
	StateConfirming
	StateCommitting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateSelecting:
		return "selecting"
	case StateConfirming:
		return "confirming"
	case StateCommitting:
		return "committing"
	}
	return "unknown"
}

// DefaultHoldDelay is how long the confirm gesture must be sustained.
const DefaultHoldDelay = 1500 * time.Millisecond

// Gateway is the slice of the backend the controller needs. api.Client
// satisfies it.
type Gateway interface {
	BulkDeleteEvents(ctx context.Context, sel api.EventDeleteSelection) (api.EventDeleteResult, error)
	DeletePhotos(ctx context.Context, keys []int64) (api.PhotoDeleteResult, error)
	DeleteNotes(ctx context.Context, stamps []time.Time) (api.NoteDeleteResult, error)
}

// PartialFailure reports identities the server refused to delete. The
// corresponding records stay in local state and remain selected.
type PartialFailure struct {
	Events int
	Photos int
	Notes  int
}

func (e *PartialFailure) Error() string {
	return fmt.Sprintf("%d item(s) could not be deleted", e.Events+e.Photos+e.Notes)
}

// Result summarizes one commit. Err is nil on full success, a
// *PartialFailure when the server refused some identities, or the
// request error that stopped the sequence. Deletions applied before a
// failure are never rolled back.
type Result struct {
	DeletedEvents int
	DeletedPhotos int
	DeletedNotes  int
	Err           error
}

// Controller owns delete-mode state for one plant. It reads the store
// to resolve selections but mutates it only with server-confirmed
// deletions.
type Controller struct {
	store     *timeline.Store
	gw        Gateway
	holdDelay time.Duration

	state  State
	hold   HoldTimer
	events map[timeline.EventKey]struct{}
	photos map[int64]struct{}
	notes  map[int64]struct{}
}

// NewController creates an idle controller. holdDelay <= 0 uses
// DefaultHoldDelay.
func NewController(store *timeline.Store, gw Gateway, holdDelay time.Duration) *Controller {
	if holdDelay <= 0 {
		holdDelay = DefaultHoldDelay
	}
	return &Controller{
		store:     store,
		gw:        gw,
		holdDelay: holdDelay,
		events:    make(map[timeline.EventKey]struct{}),
		photos:    make(map[int64]struct{}),
		notes:     make(map[int64]struct{}),
	}
}

// State returns the current lifecycle state.
func (c *Controller) State() State { return c.state }

// Active reports whether delete mode is engaged at all.
func (c *Controller) Active() bool { return c.state != StateIdle }

// Enter starts a delete-mode session. Selections never carry over from
// a previous session, so any leftovers are cleared unconditionally.
func (c *Controller) Enter() {
	if c.state != StateIdle {
		return
	}
	c.clearSelections()
	c.state = StateSelecting
}

// Cancel abandons the session, clears every selection and disarms any
// pending confirm so a stray expiry cannot commit after the fact.
func (c *Controller) Cancel() {
	if c.state == StateIdle || c.state == StateCommitting {
		return
	}
	c.hold.Disarm()
	c.clearSelections()
	c.state = StateIdle
}

func (c *Controller) clearSelections() {
	clear(c.events)
	clear(c.photos)
	clear(c.notes)
}

// ToggleItem flips the selection membership of one timeline item.
func (c *Controller) ToggleItem(it timeline.Item) {
	if c.state != StateSelecting {
		return
	}
	switch it.Kind {
	case timeline.KindEvent:
		toggle(c.events, it.Event.Key())
	case timeline.KindPhoto:
		toggle(c.photos, it.Photo.Key)
	case timeline.KindNote:
		toggle(c.notes, it.Note.Key())
	}
}

func toggle[K comparable](set map[K]struct{}, k K) {
	if _, ok := set[k]; ok {
		delete(set, k)
	} else {
		set[k] = struct{}{}
	}
}

// IsSelected reports whether the item is currently selected.
func (c *Controller) IsSelected(it timeline.Item) bool {
	switch it.Kind {
	case timeline.KindEvent:
		_, ok := c.events[it.Event.Key()]
		return ok
	case timeline.KindPhoto:
		_, ok := c.photos[it.Photo.Key]
		return ok
	case timeline.KindNote:
		_, ok := c.notes[it.Note.Key()]
		return ok
	}
	return false
}

// SelectionCount returns the number of selected items across kinds.
func (c *Controller) SelectionCount() int {
	return len(c.events) + len(c.photos) + len(c.notes)
}

// Instruction is the status line for the current selection.
func (c *Controller) Instruction() string {
	n := c.SelectionCount()
	if n == 0 {
		return "Select items to delete"
	}
	return fmt.Sprintf("%d item(s) selected", n)
}

// BeginConfirm starts the hold-to-confirm gesture. It is a no-op
// unless the controller is selecting with a non-empty selection.
func (c *Controller) BeginConfirm(now time.Time) {
	if c.state != StateSelecting || c.SelectionCount() == 0 {
		return
	}
	c.state = StateConfirming
	c.hold.Arm(now, c.holdDelay)
}

// ReleaseConfirm abandons the gesture before expiry: back to selecting
// with the selection untouched.
func (c *Controller) ReleaseConfirm() {
	if c.state != StateConfirming {
		return
	}
	c.hold.Disarm()
	c.state = StateSelecting
}

// HoldProgress reports the gesture's progress for rendering.
func (c *Controller) HoldProgress(now time.Time) float64 {
	return c.hold.Progress(now)
}

// PollConfirm advances the gesture clock. When the hold expires it
// commits, exactly once, and returns the result; before expiry it
// returns nil.
func (c *Controller) PollConfirm(ctx context.Context, now time.Time) *Result {
	if c.state != StateConfirming || !c.hold.Poll(now) {
		return nil
	}
	res := c.Commit(ctx)
	return &res
}

// Commit issues one bulk delete per kind with a non-empty selection,
// sequentially and in fixed order: events, photos, notes. Each call is
// awaited before the next so a later failure never leaves doubt about
// which earlier deletions committed. Only the server's authoritative
// deleted lists mutate the store; failed identities stay selected. The
// first request error stops the sequence; nothing is rolled back.
func (c *Controller) Commit(ctx context.Context) Result {
	c.state = StateCommitting
	var res Result
	var partial PartialFailure

	if len(c.events) > 0 {
		out, err := c.gw.BulkDeleteEvents(ctx, c.eventSelection())
		if err != nil {
			res.Err = err
			c.state = StateSelecting
			return res
		}
		for typ, stamps := range out.Deleted {
			keys := make([]timeline.EventKey, 0, len(stamps))
			for _, ts := range stamps {
				k := timeline.EventKey{Type: typ, Unix: ts.UnixMilli()}
				keys = append(keys, k)
				delete(c.events, k)
			}
			c.store.RemoveEvents(keys)
			res.DeletedEvents += len(keys)
		}
		partial.Events = out.FailedCount()
	}

	if len(c.photos) > 0 {
		keys := make([]int64, 0, len(c.photos))
		for k := range c.photos {
			keys = append(keys, k)
		}
		out, err := c.gw.DeletePhotos(ctx, keys)
		if err != nil {
			res.Err = err
			c.state = StateSelecting
			return res
		}
		c.store.RemovePhotos(out.Deleted)
		for _, k := range out.Deleted {
			delete(c.photos, k)
		}
		res.DeletedPhotos = len(out.Deleted)
		partial.Photos = len(out.Failed)
	}

	if len(c.notes) > 0 {
		stamps := make([]time.Time, 0, len(c.notes))
		for k := range c.notes {
			stamps = append(stamps, time.UnixMilli(k).UTC())
		}
		out, err := c.gw.DeleteNotes(ctx, stamps)
		if err != nil {
			res.Err = err
			c.state = StateSelecting
			return res
		}
		c.store.RemoveNotes(out.Deleted)
		for _, ts := range out.Deleted {
			delete(c.notes, ts.UnixMilli())
		}
		res.DeletedNotes = len(out.Deleted)
		partial.Notes = len(out.Failed)
	}

	if partial.Events+partial.Photos+partial.Notes > 0 {
		res.Err = &partial
		c.state = StateSelecting
		return res
	}

	c.clearSelections()
	c.state = StateIdle
	return res
}

// eventSelection groups the selected events by type, the shape the
// bulk endpoint expects.
func (c *Controller) eventSelection() api.EventDeleteSelection {
	sel := make(api.EventDeleteSelection)
	for k := range c.events {
		sel[k.Type] = append(sel[k.Type], time.UnixMilli(k.Unix).UTC())
	}
	return sel
}
