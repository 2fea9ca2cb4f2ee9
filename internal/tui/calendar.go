package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/emres/leaflog/internal/timeline"
)

// calendarModel shows one month of care activity as a grid with
// per-activity markers under each day.
type calendarModel struct {
	store  *timeline.Store
	width  int
	height int

	year  int
	month time.Month
}

func newCalendarModel(store *timeline.Store) calendarModel {
	now := time.Now().In(store.Location())
	return calendarModel{store: store, year: now.Year(), month: now.Month()}
}

func (m *calendarModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

func (m calendarModel) update(msg tea.Msg) (calendarModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, keys.Left):
			m.year, m.month = prevMonth(m.year, m.month)
		case key.Matches(msg, keys.Right):
			m.year, m.month = nextMonth(m.year, m.month)
		case key.Matches(msg, keys.Back):
			now := time.Now().In(m.store.Location())
			m.year, m.month = now.Year(), now.Month()
		}
	}
	return m, nil
}

func prevMonth(year int, month time.Month) (int, time.Month) {
	if month == time.January {
		return year - 1, time.December
	}
	return year, month - 1
}

func nextMonth(year int, month time.Month) (int, time.Month) {
	if month == time.December {
		return year + 1, time.January
	}
	return year, month + 1
}

const calCellWidth = 9

func (m calendarModel) view() string {
	w := m.width - 4
	markers := m.store.MonthMarkers(m.year, m.month)
	loc := m.store.Location()

	title := subtitleStyle.Render(fmt.Sprintf("%s %d", m.month, m.year)) +
		mutedStyle.Render("   ←/→ month  esc today")

	var header strings.Builder
	for _, d := range []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"} {
		header.WriteString(padCell(mutedStyle.Render(d), calCellWidth))
	}

	first := time.Date(m.year, m.month, 1, 0, 0, 0, 0, loc)
	daysIn := time.Date(m.year, m.month+1, 0, 0, 0, 0, 0, loc).Day()
	// Monday-based column of the 1st.
	offset := (int(first.Weekday()) + 6) % 7
	today := timeline.LocalDateKey(time.Now().UTC(), loc)

	var weeks []string
	cells := make([]string, 0, 7)
	for i := 0; i < offset; i++ {
		cells = append(cells, strings.Repeat(" ", calCellWidth))
	}
	for day := 1; day <= daysIn; day++ {
		k := time.Date(m.year, m.month, day, 0, 0, 0, 0, loc).Format(timeline.DateKeyLayout)
		cells = append(cells, m.renderCell(day, k, markers[k], k == today))
		if len(cells) == 7 {
			weeks = append(weeks, joinWeek(cells))
			cells = cells[:0]
		}
	}
	if len(cells) > 0 {
		for len(cells) < 7 {
			cells = append(cells, strings.Repeat(" ", calCellWidth))
		}
		weeks = append(weeks, joinWeek(cells))
	}

	legend := m.renderLegend()

	parts := []string{title, "", header.String()}
	parts = append(parts, weeks...)
	parts = append(parts, "", legend)
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

// renderCell draws the day number with one glyph per activity kind
// logged that day.
func (m calendarModel) renderCell(day int, key string, marks []timeline.EventType, isToday bool) string {
	num := fmt.Sprintf("%2d", day)
	if isToday {
		num = highlightStyle.Render(num)
	}

	var glyphs strings.Builder
	width := 2
	for _, typ := range marks {
		glyphs.WriteString(lipgloss.NewStyle().Foreground(eventColors[typ]).Render(eventGlyphs[typ]))
		width++
	}
	pad := calCellWidth - width - 1
	if pad < 0 {
		pad = 0
	}
	return num + glyphs.String() + strings.Repeat(" ", pad) + " "
}

func (m calendarModel) renderLegend() string {
	var b strings.Builder
	for _, typ := range []timeline.EventType{timeline.Water, timeline.Fertilize, timeline.Prune, timeline.Repot} {
		b.WriteString(lipgloss.NewStyle().Foreground(eventColors[typ]).Render(eventGlyphs[typ]))
		b.WriteString(" " + eventLabels[typ] + "   ")
	}
	return mutedStyle.Render(b.String())
}

func padCell(s string, width int) string {
	n := width - lipgloss.Width(s)
	if n < 0 {
		n = 0
	}
	return s + strings.Repeat(" ", n)
}

func joinWeek(cells []string) string {
	return strings.Join(cells, "")
}
