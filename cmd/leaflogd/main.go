package main

import (
	"flag"
	"log"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/emres/leaflog/internal/server"
)

func main() {
	defaultDB, err := server.DefaultDBPath()
	if err != nil {
		log.Fatalf("resolve db path: %v", err)
	}

	var (
		addr     = flag.String("listen", ":8484", "address to listen on")
		dbPath   = flag.String("db", defaultDB, "sqlite database path")
		mediaDir = flag.String("media", filepath.Join(filepath.Dir(defaultDB), "media"), "directory for photo files")
	)
	flag.Parse()

	store, err := server.New(*dbPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer store.Close()

	media, err := server.NewMediaStore(*mediaDir)
	if err != nil {
		log.Fatalf("open media store: %v", err)
	}

	if err := ensureDefaultPlant(store); err != nil {
		log.Fatalf("seed plant: %v", err)
	}

	srv := server.NewServer(store, media)
	log.Printf("leaflogd listening on %s (db %s)", *addr, *dbPath)
	if err := http.ListenAndServe(*addr, srv); err != nil {
		log.Fatal(err)
	}
}

// ensureDefaultPlant creates a plant on first run so a fresh client
// can talk to a fresh server without a setup step. The seeded id is
// remembered in settings so later runs skip the list query.
func ensureDefaultPlant(store *server.Store) error {
	if _, err := store.GetSetting("default_plant_id"); err == nil {
		return nil
	}

	plants, err := store.ListPlants()
	if err != nil {
		return err
	}
	if len(plants) == 0 {
		p, err := store.CreatePlant("My Plant")
		if err != nil {
			return err
		}
		return store.SetSetting("default_plant_id", strconv.FormatInt(p.ID, 10))
	}
	return store.SetSetting("default_plant_id", strconv.FormatInt(plants[0].ID, 10))
}
