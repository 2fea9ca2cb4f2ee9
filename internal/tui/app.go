// Package tui renders the plant care timeline and drives delete mode.
// All timeline.Store mutation happens on the Update goroutine: network
// commands return messages carrying payloads, and Update feeds those
// payloads into the store.
package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/emres/leaflog/internal/api"
	"github.com/emres/leaflog/internal/deletemode"
	"github.com/emres/leaflog/internal/export"
	"github.com/emres/leaflog/internal/timeline"
)

const requestTimeout = 15 * time.Second

// App is the root Bubble Tea model.
type App struct {
	client *api.Client
	store  *timeline.Store
	ctrl   *deletemode.Controller

	width  int
	height int

	activeView  viewState
	showHelp    bool
	loading     bool
	blockingErr string

	exportPicking bool
	exportCursor  int

	tl     timelineModel
	cal    calendarModel
	photos photosModel
	stats  statsModel

	help      help.Model
	status    string
	statusErr bool
}

// NewApp wires the client, store and delete-mode controller together.
func NewApp(client *api.Client, store *timeline.Store, holdDelay time.Duration) App {
	h := help.New()
	h.ShowAll = false

	ctrl := deletemode.NewController(store, client, holdDelay)
	return App{
		client:  client,
		store:   store,
		ctrl:    ctrl,
		loading: true,
		tl:      newTimelineModel(client, store, ctrl),
		cal:     newCalendarModel(store),
		photos:  newPhotosModel(client, store),
		stats:   newStatsModel(store),
		help:    h,
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(a.loadTimeline(), tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// loadTimeline fetches the full record set; the store is populated
// when the message arrives in Update.
func (a App) loadTimeline() tea.Cmd {
	client := a.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		tl, err := client.GetTimeline(ctx)
		if err != nil {
			return classifyError(err)
		}
		return timelineLoadedMsg{events: tl.Events, photos: tl.Photos, notes: tl.Notes, pinned: tl.DefaultPhotoKey}
	}
}

// classifyError maps the gateway taxonomy onto UI surfaces: conflicts
// are transient notices, validation errors block until dismissed,
// transport failures are generic status errors.
func classifyError(err error) tea.Msg {
	var conflict *api.ConflictError
	var validation *api.ValidationError
	switch {
	case errors.As(err, &conflict):
		return statusMsg{text: conflict.Error(), isError: false}
	case errors.As(err, &validation):
		return blockingErrorMsg{text: validation.Message}
	default:
		return statusMsg{text: fmt.Sprintf("Network error: %v", err), isError: true}
	}
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.tl.setSize(a.width, contentHeight)
		a.cal.setSize(a.width, contentHeight)
		a.photos.setSize(a.width, contentHeight)
		a.stats.setSize(a.width, contentHeight)
		return a, nil

	case timelineLoadedMsg:
		a.loading = false
		for _, e := range msg.events {
			a.store.InsertEvent(e)
		}
		for _, p := range msg.photos {
			a.store.InsertPhoto(p)
		}
		for _, n := range msg.notes {
			a.store.InsertNote(n)
		}
		if msg.pinned != nil {
			a.store.Pin(*msg.pinned)
		}
		return a, nil

	case eventAddedMsg:
		a.store.InsertEvent(msg.event)
		a.status = eventLabels[msg.event.Type]
		a.statusErr = false
		return a, nil

	case noteAddedMsg:
		a.store.InsertNote(msg.note)
		a.status = "Note added"
		a.statusErr = false
		return a, nil

	case noteEditedMsg:
		a.store.EditNote(msg.note.Timestamp, msg.note.Text)
		a.status = "Note updated"
		a.statusErr = false
		return a, nil

	case photosAddedMsg:
		for _, p := range msg.photos {
			a.store.InsertPhoto(p)
		}
		a.status = fmt.Sprintf("%d photo(s) added", len(msg.photos))
		a.statusErr = false
		return a, nil

	case pinChangedMsg:
		if msg.pinned {
			a.store.Pin(msg.key)
			a.status = "Default photo pinned"
		} else {
			a.store.Unpin()
			a.status = "Pin cleared"
		}
		a.statusErr = false
		return a, nil

	case commitDoneMsg:
		return a.applyCommit(msg.result), nil

	case statusMsg:
		a.status = msg.text
		a.statusErr = msg.isError
		return a, nil

	case blockingErrorMsg:
		a.blockingErr = msg.text
		return a, nil

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		a.statusErr = false
		return a, nil

	case tickMsg:
		return a, tickCmd()

	case tea.KeyMsg:
		// Modal error display captures everything until dismissed.
		if a.blockingErr != "" {
			if key.Matches(msg, keys.Back) || key.Matches(msg, keys.Enter) {
				a.blockingErr = ""
			}
			return a, nil
		}

		// Export picker
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// A child form captures input first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		// Delete mode owns its keys, including the hold gesture.
		if a.activeView == viewTimeline && a.ctrl.Active() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			a.activeView = viewTimeline
			return a, nil
		case key.Matches(msg, keys.Tab2):
			a.activeView = viewCalendar
			return a, nil
		case key.Matches(msg, keys.Tab3):
			a.activeView = viewPhotos
			return a, nil
		case key.Matches(msg, keys.Tab4):
			a.activeView = viewStats
			return a, nil
		case key.Matches(msg, keys.Tab):
			a.activeView = (a.activeView + 1) % 4
			return a, nil
		}
	}

	return a.updateActiveView(msg)
}

// applyCommit surfaces the outcome of a delete-mode commit.
func (a App) applyCommit(res deletemode.Result) App {
	deleted := res.DeletedEvents + res.DeletedPhotos + res.DeletedNotes
	if res.Err == nil {
		a.status = fmt.Sprintf("Deleted %d item(s)", deleted)
		a.statusErr = false
		return a
	}

	var partial *deletemode.PartialFailure
	switch {
	case errors.As(res.Err, &partial):
		a.status = fmt.Sprintf("Deleted %d item(s); %s", deleted, partial.Error())
		a.statusErr = true
	default:
		msg := classifyError(res.Err)
		switch m := msg.(type) {
		case statusMsg:
			a.status = m.text
			a.statusErr = m.isError
		case blockingErrorMsg:
			a.blockingErr = m.text
		}
	}
	return a
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewTimeline:
		a.tl, cmd = a.tl.update(msg)
	case viewCalendar:
		a.cal, cmd = a.cal.update(msg)
	case viewPhotos:
		a.photos, cmd = a.photos.update(msg)
	case viewStats:
		a.stats, cmd = a.stats.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewTimeline:
		return a.tl.formActive
	case viewPhotos:
		return a.photos.formActive
	}
	return false
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	if a.loading {
		content = mutedStyle.Render("Loading timeline...")
	} else {
		switch a.activeView {
		case viewTimeline:
			content = a.tl.view()
		case viewCalendar:
			content = a.cal.view()
		case viewPhotos:
			content = a.photos.view()
		case viewStats:
			content = a.stats.view()
		}
	}

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := a.height - headerHeight - footerHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	if a.exportPicking {
		content = a.renderExportPicker()
	}
	if a.blockingErr != "" {
		content = a.renderBlockingError()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderExportPicker() string {
	title := titleStyle.Render("Export Format")
	formats := []string{"JSON", "CSV"}
	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	for i, f := range formats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	w := a.width - 4
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < 1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func (a App) doExport(format int) tea.Cmd {
	events := a.store.Events()
	notes := a.store.Notes()
	return func() tea.Msg {
		home, _ := os.UserHomeDir()
		dateStr := time.Now().Format("2006-01-02")

		var path string
		if format == 0 {
			path = filepath.Join(home, fmt.Sprintf("leaflog-export-%s.json", dateStr))
			if err := export.ToJSON(events, notes, path); err != nil {
				return statusMsg{text: fmt.Sprintf("JSON error: %v", err), isError: true}
			}
		} else {
			path = filepath.Join(home, fmt.Sprintf("leaflog-export-%s.csv", dateStr))
			if err := export.ToCSV(events, notes, path); err != nil {
				return statusMsg{text: fmt.Sprintf("CSV error: %v", err), isError: true}
			}
		}

		return exportDoneMsg{path: path}
	}
}

func (a App) renderBlockingError() string {
	w := a.width - 4
	body := lipgloss.JoinVertical(lipgloss.Left,
		errorStyle.Bold(true).Render("Error"),
		"",
		normalItemStyle.Render(a.blockingErr),
		"",
		mutedStyle.Render("  esc: dismiss"),
	)
	return dangerPanelStyle.Width(w).Render(body)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("leaflog")
	gap := a.width - lipgloss.Width(title) - lipgloss.Width(tabRow) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		if a.statusErr {
			status = errorStyle.Render(" " + a.status)
		} else {
			status = mutedStyle.Render(" " + a.status)
		}
	}

	deleteInfo := ""
	if a.ctrl.Active() {
		deleteInfo = accentStyle.Render(" ⌫ " + a.ctrl.Instruction())
	}

	left := footerStyle.Render(helpView)
	right := deleteInfo + status

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}
