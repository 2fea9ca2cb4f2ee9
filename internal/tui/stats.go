package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/emres/leaflog/internal/timeline"
)

const statsWindowDays = 14

// statsModel charts care activity per day over a sliding two-week
// window.
type statsModel struct {
	store  *timeline.Store
	width  int
	height int

	offset int // 14-day blocks back from today (0 = current)
	chart  barchart.Model
}

func newStatsModel(store *timeline.Store) statsModel {
	return statsModel{
		store: store,
		chart: barchart.New(60, 12),
	}
}

func (m *statsModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

func (m statsModel) update(msg tea.Msg) (statsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, keys.Left):
			m.offset++
		case key.Matches(msg, keys.Right):
			if m.offset > 0 {
				m.offset--
			}
		case key.Matches(msg, keys.Back):
			m.offset = 0
		}
	}
	return m, nil
}

func (m statsModel) dateRange() (time.Time, time.Time) {
	now := time.Now().In(m.store.Location())
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, m.store.Location())
	to := today.AddDate(0, 0, 1-m.offset*statsWindowDays)
	return to.AddDate(0, 0, -statsWindowDays), to
}

// countsByDay tallies events per type for each date key in the window.
func (m statsModel) countsByDay(from, to time.Time) map[string]map[timeline.EventType]int {
	counts := make(map[string]map[timeline.EventType]int)
	for _, e := range m.store.Events() {
		if e.Timestamp.Before(from.UTC()) || !e.Timestamp.Before(to.UTC()) {
			continue
		}
		k := timeline.LocalDateKey(e.Timestamp, m.store.Location())
		if counts[k] == nil {
			counts[k] = make(map[timeline.EventType]int)
		}
		counts[k][e.Type]++
	}
	return counts
}

func (m *statsModel) rebuildChart() {
	chartWidth := m.width - 10
	if chartWidth < 30 {
		chartWidth = 30
	}
	chartHeight := m.height - 12
	if chartHeight < 6 {
		chartHeight = 6
	}
	m.chart = barchart.New(chartWidth, chartHeight)

	from, to := m.dateRange()
	counts := m.countsByDay(from, to)

	var bars []barchart.BarData
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		k := d.Format(timeline.DateKeyLayout)
		label := d.Format("02")

		var values []barchart.BarValue
		for _, typ := range []timeline.EventType{timeline.Water, timeline.Fertilize, timeline.Prune, timeline.Repot} {
			if n := counts[k][typ]; n > 0 {
				values = append(values, barchart.BarValue{
					Name:  eventLabels[typ],
					Value: float64(n),
					Style: lipgloss.NewStyle().Foreground(eventColors[typ]),
				})
			}
		}
		if len(values) == 0 {
			values = []barchart.BarValue{{Name: "", Value: 0, Style: lipgloss.NewStyle().Foreground(colorSubtle)}}
		}

		bars = append(bars, barchart.BarData{Label: label, Values: values})
	}

	m.chart.PushAll(bars)
	m.chart.Draw()
}

func (m statsModel) view() string {
	w := m.width - 4

	m.rebuildChart()
	from, to := m.dateRange()

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		subtitleStyle.Render("Care activity"), "  ",
		mutedStyle.Render(fmt.Sprintf("%s — %s", from.Format("Jan 02"), to.AddDate(0, 0, -1).Format("Jan 02, 2006"))),
	)

	events, photos, notes := m.store.Counts()
	totals := mutedStyle.Render(fmt.Sprintf("  %d events  %d photos  %d notes overall", events, photos, notes))

	var legend strings.Builder
	for _, typ := range []timeline.EventType{timeline.Water, timeline.Fertilize, timeline.Prune, timeline.Repot} {
		legend.WriteString(lipgloss.NewStyle().Foreground(eventColors[typ]).Render("●"))
		legend.WriteString(" " + eventLabels[typ] + "   ")
	}

	nav := mutedStyle.Render("  ←/→: window  esc: today")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", m.chart.View(), "", legend.String(), totals, "", nav,
		),
	)
}
