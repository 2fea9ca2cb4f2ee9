package tui

import (
	"time"

	"github.com/emres/leaflog/internal/deletemode"
	"github.com/emres/leaflog/internal/timeline"
)

// viewState represents the currently active view.
type viewState int

const (
	viewTimeline viewState = iota
	viewCalendar
	viewPhotos
	viewStats
)

var viewNames = []string{"Timeline", "Calendar", "Photos", "Stats"}

// --- Messages ---

// timelineLoadedMsg carries the initial (or refreshed) record set from
// the backend. The payload is applied to the store in Update, so all
// store mutation stays on the event-loop goroutine.
type timelineLoadedMsg struct {
	events []timeline.Event
	photos []timeline.Photo
	notes  []timeline.Note
	pinned *int64
}

type eventAddedMsg struct {
	event timeline.Event
}

type noteAddedMsg struct {
	note timeline.Note
}

type noteEditedMsg struct {
	note timeline.Note
}

type photosAddedMsg struct {
	photos []timeline.Photo
}

type pinChangedMsg struct {
	key    int64
	pinned bool
}

type commitDoneMsg struct {
	result deletemode.Result
}

// statusMsg is a transient, non-blocking notice in the footer.
type statusMsg struct {
	text    string
	isError bool
}

// blockingErrorMsg opens the modal error display; it must be dismissed
// explicitly.
type blockingErrorMsg struct {
	text string
}

type tickMsg time.Time

// holdTickMsg drives the hold-to-confirm gesture while it is armed.
type holdTickMsg time.Time

type exportDoneMsg struct {
	path string
}

// --- Helpers ---

var eventGlyphs = map[timeline.EventType]string{
	timeline.Water:     "W",
	timeline.Fertilize: "F",
	timeline.Prune:     "P",
	timeline.Repot:     "R",
}

var eventLabels = map[timeline.EventType]string{
	timeline.Water:     "Watered",
	timeline.Fertilize: "Fertilized",
	timeline.Prune:     "Pruned",
	timeline.Repot:     "Repotted",
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
