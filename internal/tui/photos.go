package tui

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/emres/leaflog/internal/api"
	"github.com/emres/leaflog/internal/timeline"
)

// photosModel lists the photo collection newest first and manages the
// default-photo pin.
type photosModel struct {
	client *api.Client
	store  *timeline.Store
	width  int
	height int

	cursor int

	formActive bool
	form       *huh.Form
	uploadPath *string
}

func newPhotosModel(client *api.Client, store *timeline.Store) photosModel {
	path := ""
	return photosModel{client: client, store: store, uploadPath: &path}
}

func (m *photosModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

func (m photosModel) update(msg tea.Msg) (photosModel, tea.Cmd) {
	if m.formActive && m.form != nil {
		return m.updateForm(msg)
	}

	if msg, ok := msg.(tea.KeyMsg); ok {
		photos := m.store.Photos()
		switch {
		case key.Matches(msg, keys.Up):
			m.cursor = clampInt(m.cursor-1, 0, maxIdx(photos))
		case key.Matches(msg, keys.Down):
			m.cursor = clampInt(m.cursor+1, 0, maxIdx(photos))
		case key.Matches(msg, keys.Pin):
			if len(photos) == 0 {
				return m, nil
			}
			p := photos[clampInt(m.cursor, 0, maxIdx(photos))]
			return m, m.togglePin(p.Key)
		case key.Matches(msg, keys.AddPhoto):
			return m.showUploadForm()
		}
	}
	return m, nil
}

func maxIdx(photos []timeline.Photo) int {
	if len(photos) == 0 {
		return 0
	}
	return len(photos) - 1
}

// togglePin pins the photo, or clears the pin if it is already the
// pinned one. The store is only mutated when the server accepts.
func (m photosModel) togglePin(photoKey int64) tea.Cmd {
	client := m.client
	clearing := false
	if pinned, ok := m.store.PinnedKey(); ok && pinned == photoKey {
		clearing = true
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		var err error
		if clearing {
			err = client.ClearDefaultPhoto(ctx)
		} else {
			err = client.SetDefaultPhoto(ctx, photoKey)
		}
		if err != nil {
			return classifyError(err)
		}
		return pinChangedMsg{key: photoKey, pinned: !clearing}
	}
}

func (m photosModel) showUploadForm() (photosModel, tea.Cmd) {
	*m.uploadPath = ""
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Image file").
				Description("Path to a JPEG or PNG; separate several with commas").
				Value(m.uploadPath),
		).Title("Upload photos"),
	).WithShowHelp(true).WithShowErrors(true)
	m.formActive = true
	return m, m.form.Init()
}

func (m photosModel) updateForm(msg tea.Msg) (photosModel, tea.Cmd) {
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
		return m, m.submitUpload(*m.uploadPath)
	}
	return m, cmd
}

func (m photosModel) submitUpload(raw string) tea.Cmd {
	client := m.client
	return func() tea.Msg {
		var uploads []api.PhotoUpload
		for _, p := range strings.Split(raw, ",") {
			p = strings.TrimSpace(p)
			if p == "" {
				continue
			}
			data, err := os.ReadFile(p)
			if err != nil {
				return statusMsg{text: fmt.Sprintf("Read error: %v", err), isError: true}
			}
			uploads = append(uploads, api.PhotoUpload{Name: filepath.Base(p), Data: data})
		}
		if len(uploads) == 0 {
			return statusMsg{text: "No files given", isError: true}
		}

		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		photos, err := client.AddPhotos(ctx, uploads)
		if err != nil {
			return classifyError(err)
		}
		return photosAddedMsg{photos: photos}
	}
}

func (m photosModel) view() string {
	w := m.width - 4

	if m.formActive && m.form != nil {
		return activePanelStyle.Width(w).Render(m.form.View())
	}

	photos := m.store.Photos()
	if len(photos) == 0 {
		return panelStyle.Width(w).Render(
			mutedStyle.Render("No photos yet. Press u to upload one."))
	}

	resolved, hasResolved := m.store.ResolveDefaultPhoto()
	pinnedKey, hasPin := m.store.PinnedKey()

	lines := []string{subtitleStyle.Render(fmt.Sprintf("%d photo(s)", len(photos))) +
		mutedStyle.Render("   p: pin/unpin  u: upload"), ""}

	cursor := clampInt(m.cursor, 0, maxIdx(photos))
	for i, p := range photos {
		prefix := "  "
		style := normalItemStyle
		if i == cursor {
			prefix = "> "
			style = selectedItemStyle
		}

		when := p.Timestamp.In(m.store.Location()).Format("2006-01-02 15:04")
		line := fmt.Sprintf("%s📷 #%-4d %s", prefix, p.Key, mutedStyle.Render(when))

		var tags []string
		if hasPin && pinnedKey == p.Key {
			tags = append(tags, highlightStyle.Render("pinned"))
		}
		if hasResolved && resolved.Key == p.Key {
			tags = append(tags, selectedMarkStyle.Render("default"))
		}
		if len(tags) > 0 {
			line += "  " + strings.Join(tags, " ")
		}
		lines = append(lines, style.Render(line))
	}

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
