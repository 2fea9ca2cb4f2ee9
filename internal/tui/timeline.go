package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/emres/leaflog/internal/api"
	"github.com/emres/leaflog/internal/deletemode"
	"github.com/emres/leaflog/internal/timeline"
)

// timeInputLayout is how the forms display and parse timestamps, in
// the viewer's zone.
const timeInputLayout = "2006-01-02 15:04"

type timelineForm int

const (
	formNone timelineForm = iota
	formAddEvent
	formAddNote
	formEditNote
)

// row is one rendered line: either a day header or an item.
type row struct {
	header bool
	day    string
	item   timeline.Item
}

type timelineModel struct {
	client *api.Client
	store  *timeline.Store
	ctrl   *deletemode.Controller
	width  int
	height int

	cursor int

	formActive bool
	formKind   timelineForm
	form       *huh.Form

	// Form values as pointers (survive value copies).
	eventType *string
	timestamp *string
	noteText  *string
	editStamp time.Time
}

func newTimelineModel(client *api.Client, store *timeline.Store, ctrl *deletemode.Controller) timelineModel {
	et, ts, nt := "", "", ""
	return timelineModel{
		client:    client,
		store:     store,
		ctrl:      ctrl,
		eventType: &et,
		timestamp: &ts,
		noteText:  &nt,
	}
}

func (m *timelineModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

// rows flattens the store snapshot into renderable lines, newest day
// first.
func (m timelineModel) rows() []row {
	var rows []row
	for _, day := range m.store.DayKeys() {
		rows = append(rows, row{header: true, day: day})
		for _, it := range m.store.Day(day) {
			rows = append(rows, row{day: day, item: it})
		}
	}
	return rows
}

// itemRows returns the indexes of the non-header rows.
func itemRows(rows []row) []int {
	var idx []int
	for i, r := range rows {
		if !r.header {
			idx = append(idx, i)
		}
	}
	return idx
}

// currentItem resolves the cursor to the item under it.
func (m timelineModel) currentItem() (timeline.Item, bool) {
	items := itemRows(m.rows())
	if len(items) == 0 {
		return timeline.Item{}, false
	}
	c := clampInt(m.cursor, 0, len(items)-1)
	return m.rows()[items[c]].item, true
}

func (m timelineModel) update(msg tea.Msg) (timelineModel, tea.Cmd) {
	if m.formActive && m.form != nil {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case holdTickMsg:
		return m.pollHold()

	case tea.KeyMsg:
		if m.ctrl.Active() {
			return m.updateDeleteMode(msg)
		}

		switch {
		case key.Matches(msg, keys.Up):
			m.cursor--
			m.clampCursor()
		case key.Matches(msg, keys.Down):
			m.cursor++
			m.clampCursor()
		case key.Matches(msg, keys.AddEvent):
			return m.showAddEventForm()
		case key.Matches(msg, keys.AddNote):
			return m.showNoteForm(formAddNote, time.Now(), "")
		case key.Matches(msg, keys.EditNote):
			it, ok := m.currentItem()
			if !ok || it.Kind != timeline.KindNote {
				return m, nil
			}
			return m.showNoteForm(formEditNote, it.Note.Timestamp, it.Note.Text)
		case key.Matches(msg, keys.DeleteMode):
			m.ctrl.Enter()
			return m, nil
		}
	}
	return m, nil
}

func (m timelineModel) updateDeleteMode(msg tea.KeyMsg) (timelineModel, tea.Cmd) {
	switch m.ctrl.State() {
	case deletemode.StateSelecting:
		switch {
		case key.Matches(msg, keys.Up):
			m.cursor--
			m.clampCursor()
		case key.Matches(msg, keys.Down):
			m.cursor++
			m.clampCursor()
		case key.Matches(msg, keys.Select):
			if it, ok := m.currentItem(); ok {
				m.ctrl.ToggleItem(it)
			}
		case key.Matches(msg, keys.Confirm):
			m.ctrl.BeginConfirm(time.Now())
			if m.ctrl.State() == deletemode.StateConfirming {
				return m, holdTickCmd()
			}
		case key.Matches(msg, keys.Back):
			m.ctrl.Cancel()
		}

	case deletemode.StateConfirming:
		// Any key besides waiting releases the hold; esc also exits
		// back to selecting explicitly.
		if key.Matches(msg, keys.Back) {
			m.ctrl.ReleaseConfirm()
		}
	}
	return m, nil
}

func holdTickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return holdTickMsg(t)
	})
}

// pollHold advances the confirm gesture. The commit itself runs here,
// synchronously on the update goroutine, so the store is never touched
// from two goroutines.
func (m timelineModel) pollHold() (timelineModel, tea.Cmd) {
	if m.ctrl.State() != deletemode.StateConfirming {
		return m, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	if res := m.ctrl.PollConfirm(ctx, time.Now()); res != nil {
		m.clampCursor()
		result := *res
		return m, func() tea.Msg { return commitDoneMsg{result: result} }
	}
	return m, holdTickCmd()
}

func (m *timelineModel) clampCursor() {
	items := itemRows(m.rows())
	if len(items) == 0 {
		m.cursor = 0
		return
	}
	m.cursor = clampInt(m.cursor, 0, len(items)-1)
}

// --- forms ---

func (m timelineModel) showAddEventForm() (timelineModel, tea.Cmd) {
	*m.eventType = string(timeline.Water)
	*m.timestamp = time.Now().Format(timeInputLayout)

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().Title("Activity").
				Options(
					huh.NewOption("Water", string(timeline.Water)),
					huh.NewOption("Fertilize", string(timeline.Fertilize)),
					huh.NewOption("Prune", string(timeline.Prune)),
					huh.NewOption("Repot", string(timeline.Repot)),
				).Value(m.eventType),
			huh.NewInput().Title("When (local)").Value(m.timestamp),
		).Title("Add care event"),
	).WithShowHelp(true).WithShowErrors(true)

	m.formActive = true
	m.formKind = formAddEvent
	return m, m.form.Init()
}

func (m timelineModel) showNoteForm(kind timelineForm, ts time.Time, text string) (timelineModel, tea.Cmd) {
	*m.timestamp = ts.In(m.store.Location()).Format(timeInputLayout)
	*m.noteText = text

	fields := []huh.Field{}
	if kind == formAddNote {
		fields = append(fields, huh.NewInput().Title("When (local)").Value(m.timestamp))
	}
	fields = append(fields, huh.NewText().Title("Note").Value(m.noteText))

	title := "Add note"
	if kind == formEditNote {
		title = "Edit note"
		m.editStamp = ts
	}
	m.form = huh.NewForm(huh.NewGroup(fields...).Title(title)).
		WithShowHelp(true).WithShowErrors(true)

	m.formActive = true
	m.formKind = kind
	return m, m.form.Init()
}

func (m timelineModel) updateForm(msg tea.Msg) (timelineModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			m.formActive = false
			m.form = nil
			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.formActive = false
		return m, m.submitForm()
	}

	return m, cmd
}

func (m timelineModel) submitForm() tea.Cmd {
	switch m.formKind {
	case formAddEvent:
		typ := timeline.EventType(*m.eventType)
		return m.submitEvent(typ, *m.timestamp)
	case formAddNote:
		return m.submitNote(*m.timestamp, *m.noteText)
	case formEditNote:
		return m.submitEdit(m.editStamp, *m.noteText)
	}
	return nil
}

func (m timelineModel) parseInput(value string) (time.Time, error) {
	return time.ParseInLocation(timeInputLayout, strings.TrimSpace(value), m.store.Location())
}

func (m timelineModel) submitEvent(typ timeline.EventType, stamp string) tea.Cmd {
	ts, err := m.parseInput(stamp)
	if err != nil {
		return func() tea.Msg {
			return statusMsg{text: "Invalid time, use " + timeInputLayout, isError: true}
		}
	}
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		e, err := client.AddEvent(ctx, typ, ts.UTC())
		if err != nil {
			return classifyError(err)
		}
		return eventAddedMsg{event: e}
	}
}

func (m timelineModel) submitNote(stamp, text string) tea.Cmd {
	ts, err := m.parseInput(stamp)
	if err != nil {
		return func() tea.Msg {
			return statusMsg{text: "Invalid time, use " + timeInputLayout, isError: true}
		}
	}
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		n, err := client.AddNote(ctx, ts.UTC(), text)
		if err != nil {
			return classifyError(err)
		}
		return noteAddedMsg{note: n}
	}
}

func (m timelineModel) submitEdit(ts time.Time, text string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		n, err := client.EditNote(ctx, ts, text)
		if err != nil {
			return classifyError(err)
		}
		return noteEditedMsg{note: n}
	}
}

// --- rendering ---

func (m timelineModel) view() string {
	w := m.width - 4

	if m.formActive && m.form != nil {
		return activePanelStyle.Width(w).Render(m.form.View())
	}

	if m.ctrl.State() == deletemode.StateConfirming {
		return m.renderConfirm(w)
	}

	rows := m.rows()
	if len(rows) == 0 {
		return panelStyle.Width(w).Render(
			mutedStyle.Render("No activity yet. Press a to record a care event."))
	}

	items := itemRows(rows)
	cursorRow := -1
	if len(items) > 0 {
		cursorRow = items[clampInt(m.cursor, 0, len(items)-1)]
	}

	var lines []string
	if m.ctrl.Active() {
		lines = append(lines, selectedMarkStyle.Render("DELETE MODE")+"  "+
			subtitleStyle.Render(m.ctrl.Instruction())+
			mutedStyle.Render("   space: select  y: confirm  esc: cancel"))
		lines = append(lines, "")
	}
	prefix := len(lines)

	for i, r := range rows {
		if r.header {
			lines = append(lines, dayHeaderStyle.Render(formatDayHeader(r.day, m.store.Location())))
			continue
		}
		lines = append(lines, m.renderItem(r.item, i == cursorRow))
	}

	cursorLine := -1
	if cursorRow >= 0 {
		cursorLine = cursorRow + prefix
	}
	lines = m.clip(lines, cursorLine)
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// clip keeps the cursor line visible within the panel height.
func (m timelineModel) clip(lines []string, cursorRow int) []string {
	visible := m.height - 6
	if visible < 4 || len(lines) <= visible {
		return lines
	}
	start := 0
	if cursorRow >= 0 && cursorRow > visible-2 {
		start = cursorRow - (visible - 2)
	}
	if start+visible > len(lines) {
		start = len(lines) - visible
	}
	return lines[start : start+visible]
}

func (m timelineModel) renderItem(it timeline.Item, underCursor bool) string {
	mark := "  "
	if m.ctrl.Active() {
		if m.ctrl.IsSelected(it) {
			mark = selectedMarkStyle.Render("✓ ")
		} else {
			mark = mutedStyle.Render("· ")
		}
	}

	cursor := "  "
	style := normalItemStyle
	if underCursor {
		cursor = "> "
		style = selectedItemStyle
	}

	local := it.Timestamp().In(m.store.Location()).Format("15:04")
	var body string
	switch it.Kind {
	case timeline.KindEvent:
		glyph := lipgloss.NewStyle().Foreground(eventColors[it.Event.Type]).Render(eventGlyphs[it.Event.Type])
		body = fmt.Sprintf("%s %s", glyph, eventLabels[it.Event.Type])
	case timeline.KindPhoto:
		body = fmt.Sprintf("📷 Photo #%d", it.Photo.Key)
		if p, ok := m.store.ResolveDefaultPhoto(); ok && p.Key == it.Photo.Key {
			body += " " + highlightStyle.Render("(default)")
		}
	case timeline.KindNote:
		body = "✎ " + firstLine(it.Note.Text)
	}

	return fmt.Sprintf("%s%s%s  %s", cursor, mark, mutedStyle.Render(local), style.Render(body))
}

func (m timelineModel) renderConfirm(w int) string {
	n := m.ctrl.SelectionCount()
	progress := m.ctrl.HoldProgress(time.Now())

	barWidth := w - 12
	if barWidth < 10 {
		barWidth = 10
	}
	filled := int(progress * float64(barWidth))
	bar := errorStyle.Render(strings.Repeat("█", filled)) +
		mutedStyle.Render(strings.Repeat("░", barWidth-filled))

	body := lipgloss.JoinVertical(lipgloss.Left,
		errorStyle.Bold(true).Render(fmt.Sprintf("Deleting %d item(s)", n)),
		"",
		bar,
		"",
		mutedStyle.Render("Hold... release with esc to cancel"),
	)
	return dangerPanelStyle.Width(w).Render(body)
}

func formatDayHeader(day string, loc *time.Location) string {
	t, err := timeline.ParseDateKey(day, loc)
	if err != nil {
		return day
	}
	return t.Format("Mon, 02 Jan 2006")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i] + "…"
	}
	return s
}
