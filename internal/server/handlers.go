package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/emres/leaflog/internal/timeline"
)

// Server routes the leaflog HTTP API onto a Store and a MediaStore.
type Server struct {
	store *Store
	media *MediaStore
	mux   *http.ServeMux
}

func NewServer(store *Store, media *MediaStore) *Server {
	s := &Server{store: store, media: media, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /plants", s.handleCreatePlant)
	s.mux.HandleFunc("GET /plants", s.handleListPlants)
	s.mux.HandleFunc("GET /plants/{plant}/timeline", s.handleTimeline)
	s.mux.HandleFunc("POST /plants/{plant}/events", s.handleAddEvent)
	s.mux.HandleFunc("POST /plants/{plant}/events/delete", s.handleDeleteEvents)
	s.mux.HandleFunc("POST /plants/{plant}/photos", s.handleAddPhotos)
	s.mux.HandleFunc("POST /plants/{plant}/photos/delete", s.handleDeletePhotos)
	s.mux.HandleFunc("POST /plants/{plant}/notes", s.handleAddNote)
	s.mux.HandleFunc("PUT /plants/{plant}/notes", s.handleEditNote)
	s.mux.HandleFunc("POST /plants/{plant}/notes/delete", s.handleDeleteNotes)
	s.mux.HandleFunc("PUT /plants/{plant}/default-photo", s.handleSetDefaultPhoto)
	s.mux.HandleFunc("DELETE /plants/{plant}/default-photo", s.handleClearDefaultPhoto)
	s.mux.HandleFunc("GET /media/{photo}/{name}", s.handleMedia)
}

// --- wire shapes ---

type eventJSON struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

type photoJSON struct {
	Key       int64  `json:"key"`
	Timestamp string `json:"timestamp"`
	Thumbnail string `json:"thumbnail"`
	Preview   string `json:"preview"`
	Full      string `json:"full"`
}

type noteJSON struct {
	Timestamp string `json:"timestamp"`
	Text      string `json:"text"`
}

type plantJSON struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	DefaultPhotoKey *int64 `json:"default_photo_key"`
}

func photoToWire(p Photo) photoJSON {
	return photoJSON{
		Key:       p.ID,
		Timestamp: formatStamp(p.Timestamp),
		Thumbnail: fmt.Sprintf("/media/%d/thumb", p.ID),
		Preview:   fmt.Sprintf("/media/%d/preview", p.ID),
		Full:      fmt.Sprintf("/media/%d/full", p.ID),
	}
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) plantID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("plant"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid plant id")
		return 0, false
	}
	if _, err := s.store.GetPlant(id); err != nil {
		if errors.Is(err, ErrNotFound) {
			writeError(w, http.StatusNotFound, "plant not found")
		} else {
			log.Printf("get plant %d: %v", id, err)
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return 0, false
	}
	return id, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// --- plants ---

func (s *Server) handleCreatePlant(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name string `json:"name"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	if in.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	p, err := s.store.CreatePlant(in.Name)
	if err != nil {
		log.Printf("create plant: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, plantJSON{ID: p.ID, Name: p.Name})
}

func (s *Server) handleListPlants(w http.ResponseWriter, r *http.Request) {
	plants, err := s.store.ListPlants()
	if err != nil {
		log.Printf("list plants: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	out := make([]plantJSON, 0, len(plants))
	for _, p := range plants {
		out = append(out, plantJSON{ID: p.ID, Name: p.Name, DefaultPhotoKey: p.DefaultPhotoKey})
	}
	writeJSON(w, http.StatusOK, out)
}

// --- timeline ---

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	plantID, ok := s.plantID(w, r)
	if !ok {
		return
	}

	fail := func(err error) {
		log.Printf("timeline for plant %d: %v", plantID, err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}

	events, err := s.store.ListEvents(plantID)
	if err != nil {
		fail(err)
		return
	}
	photos, err := s.store.ListPhotos(plantID)
	if err != nil {
		fail(err)
		return
	}
	notes, err := s.store.ListNotes(plantID)
	if err != nil {
		fail(err)
		return
	}
	plant, err := s.store.GetPlant(plantID)
	if err != nil {
		fail(err)
		return
	}

	out := struct {
		Events          []eventJSON `json:"events"`
		Photos          []photoJSON `json:"photos"`
		Notes           []noteJSON  `json:"notes"`
		DefaultPhotoKey *int64      `json:"default_photo_key"`
	}{
		Events:          make([]eventJSON, 0, len(events)),
		Photos:          make([]photoJSON, 0, len(photos)),
		Notes:           make([]noteJSON, 0, len(notes)),
		DefaultPhotoKey: plant.DefaultPhotoKey,
	}
	for _, e := range events {
		out.Events = append(out.Events, eventJSON{Type: string(e.Type), Timestamp: formatStamp(e.Timestamp)})
	}
	for _, p := range photos {
		out.Photos = append(out.Photos, photoToWire(p))
	}
	for _, n := range notes {
		out.Notes = append(out.Notes, noteJSON{Timestamp: formatStamp(n.Timestamp), Text: n.Text})
	}
	writeJSON(w, http.StatusOK, out)
}

// --- events ---

func (s *Server) handleAddEvent(w http.ResponseWriter, r *http.Request) {
	plantID, ok := s.plantID(w, r)
	if !ok {
		return
	}
	var in eventJSON
	if !decodeBody(w, r, &in) {
		return
	}
	typ := timeline.EventType(in.Type)
	if !typ.Valid() {
		writeError(w, http.StatusBadRequest, "unknown event type")
		return
	}
	ts, err := parseStamp(in.Timestamp)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid timestamp")
		return
	}

	e, err := s.store.AddEvent(plantID, typ, ts)
	if errors.Is(err, ErrConflict) {
		writeError(w, http.StatusConflict, "event already recorded at this time")
		return
	}
	if err != nil {
		log.Printf("add event: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, eventJSON{Type: string(e.Type), Timestamp: formatStamp(e.Timestamp)})
}

func (s *Server) handleDeleteEvents(w http.ResponseWriter, r *http.Request) {
	plantID, ok := s.plantID(w, r)
	if !ok {
		return
	}
	var in map[string][]string
	if !decodeBody(w, r, &in) {
		return
	}

	deleted := make(map[string][]string)
	failed := make(map[string][]string)
	for typ, stamps := range in {
		deleted[typ] = []string{}
		failed[typ] = []string{}
		valid := timeline.EventType(typ).Valid()
		for _, stamp := range stamps {
			ts, err := parseStamp(stamp)
			if !valid || err != nil {
				failed[typ] = append(failed[typ], stamp)
				continue
			}
			ok, err := s.store.DeleteEvent(plantID, timeline.EventType(typ), ts)
			if err != nil {
				log.Printf("delete event: %v", err)
			}
			if ok {
				deleted[typ] = append(deleted[typ], stamp)
			} else {
				failed[typ] = append(failed[typ], stamp)
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted, "failed": failed})
}

// --- photos ---

func (s *Server) handleAddPhotos(w http.ResponseWriter, r *http.Request) {
	plantID, ok := s.plantID(w, r)
	if !ok {
		return
	}
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload")
		return
	}
	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no files")
		return
	}

	out := make([]photoJSON, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable file "+fh.Filename)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, "unreadable file "+fh.Filename)
			return
		}

		p, err := s.store.AddPhoto(plantID, time.Now().UTC(), "", "", "")
		if err != nil {
			log.Printf("add photo: %v", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		thumb, preview, full, err := s.media.Save(p.ID, data)
		if err != nil {
			// Roll the row back so no phantom photo lingers.
			s.store.DeletePhoto(plantID, p.ID)
			writeError(w, http.StatusBadRequest, "not an image: "+fh.Filename)
			return
		}
		if err := s.store.UpdatePhotoPaths(p.ID, thumb, preview, full); err != nil {
			log.Printf("update photo paths: %v", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		out = append(out, photoToWire(*p))
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleDeletePhotos(w http.ResponseWriter, r *http.Request) {
	plantID, ok := s.plantID(w, r)
	if !ok {
		return
	}
	var in struct {
		Keys []int64 `json:"keys"`
	}
	if !decodeBody(w, r, &in) {
		return
	}

	deleted := []int64{}
	failed := []int64{}
	for _, key := range in.Keys {
		p, ok, err := s.store.DeletePhoto(plantID, key)
		if err != nil {
			log.Printf("delete photo %d: %v", key, err)
		}
		if !ok {
			failed = append(failed, key)
			continue
		}
		deleted = append(deleted, p.ID)
		if err := s.media.Remove(p.ID); err != nil {
			log.Printf("remove media for photo %d: %v", p.ID, err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted, "failed": failed})
}

// --- notes ---

func (s *Server) handleAddNote(w http.ResponseWriter, r *http.Request) {
	plantID, ok := s.plantID(w, r)
	if !ok {
		return
	}
	var in noteJSON
	if !decodeBody(w, r, &in) {
		return
	}
	ts, err := parseStamp(in.Timestamp)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid timestamp")
		return
	}

	n, err := s.store.AddNote(plantID, ts, in.Text)
	if errors.Is(err, ErrConflict) {
		writeError(w, http.StatusConflict, "a note already exists at this time")
		return
	}
	if err != nil {
		log.Printf("add note: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, noteJSON{Timestamp: formatStamp(n.Timestamp), Text: n.Text})
}

func (s *Server) handleEditNote(w http.ResponseWriter, r *http.Request) {
	plantID, ok := s.plantID(w, r)
	if !ok {
		return
	}
	var in noteJSON
	if !decodeBody(w, r, &in) {
		return
	}
	ts, err := parseStamp(in.Timestamp)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid timestamp")
		return
	}

	n, err := s.store.EditNote(plantID, ts, in.Text)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "no note at this time")
		return
	}
	if err != nil {
		log.Printf("edit note: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, noteJSON{Timestamp: formatStamp(n.Timestamp), Text: n.Text})
}

func (s *Server) handleDeleteNotes(w http.ResponseWriter, r *http.Request) {
	plantID, ok := s.plantID(w, r)
	if !ok {
		return
	}
	var in struct {
		Timestamps []string `json:"timestamps"`
	}
	if !decodeBody(w, r, &in) {
		return
	}

	deleted := []string{}
	failed := []string{}
	for _, stamp := range in.Timestamps {
		ts, err := parseStamp(stamp)
		if err != nil {
			failed = append(failed, stamp)
			continue
		}
		ok, err := s.store.DeleteNote(plantID, ts)
		if err != nil {
			log.Printf("delete note: %v", err)
		}
		if ok {
			deleted = append(deleted, stamp)
		} else {
			failed = append(failed, stamp)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": deleted, "failed": failed})
}

// --- default photo ---

func (s *Server) handleSetDefaultPhoto(w http.ResponseWriter, r *http.Request) {
	plantID, ok := s.plantID(w, r)
	if !ok {
		return
	}
	var in struct {
		Key int64 `json:"key"`
	}
	if !decodeBody(w, r, &in) {
		return
	}
	err := s.store.SetDefaultPhoto(plantID, in.Key)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "no such photo")
		return
	}
	if err != nil {
		log.Printf("set default photo: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleClearDefaultPhoto(w http.ResponseWriter, r *http.Request) {
	plantID, ok := s.plantID(w, r)
	if !ok {
		return
	}
	if err := s.store.ClearDefaultPhoto(plantID); err != nil {
		log.Printf("clear default photo: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- media ---

func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("photo"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid photo id")
		return
	}
	if _, err := s.store.FindPhoto(id); err != nil {
		writeError(w, http.StatusNotFound, "photo not found")
		return
	}
	path, ok := s.media.Path(id, r.PathValue("name"))
	if !ok {
		writeError(w, http.StatusNotFound, "no such derivative")
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeFile(w, r, path)
}
