package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/emres/leaflog/internal/api"
	"github.com/emres/leaflog/internal/timeline"
	"github.com/emres/leaflog/internal/tui"
)

func main() {
	var (
		serverURL = flag.String("server", "http://localhost:8484", "leaflogd base URL")
		plantID   = flag.Int64("plant", 1, "plant to show")
		holdDelay = flag.Duration("hold-delay", 1500*time.Millisecond, "how long the delete confirm must be held")
	)
	flag.Parse()

	client := api.NewClient(*serverURL, *plantID, nil)
	store := timeline.NewStore(time.Local)

	app := tui.NewApp(client, store, *holdDelay)
	p := tea.NewProgram(app, tea.WithAltScreen())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
