package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/emres/leaflog/internal/timeline"
)

func newTestServer(t *testing.T) (*Server, *Store) {
	t.Helper()
	store := newTestStore(t)
	media, err := NewMediaStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return NewServer(store, media), store
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func decodeInto(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
}

// tinyPNG renders a small test image.
func tinyPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{G: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestCreatePlantAndTimelineEmpty(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doJSON(t, srv, http.MethodPost, "/plants", map[string]string{"name": "Ficus"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create plant: %d %s", w.Code, w.Body.String())
	}
	var plant struct {
		ID int64 `json:"id"`
	}
	decodeInto(t, w, &plant)

	w = doJSON(t, srv, http.MethodGet, "/plants/1/timeline", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("timeline: %d %s", w.Code, w.Body.String())
	}
	var tl struct {
		Events []any `json:"events"`
		Photos []any `json:"photos"`
		Notes  []any `json:"notes"`
	}
	decodeInto(t, w, &tl)
	if len(tl.Events)+len(tl.Photos)+len(tl.Notes) != 0 {
		t.Fatalf("expected empty timeline, got %s", w.Body.String())
	}
}

func TestTimelineUnknownPlant(t *testing.T) {
	srv, _ := newTestServer(t)
	w := doJSON(t, srv, http.MethodGet, "/plants/42/timeline", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestAddEventConflictStatus(t *testing.T) {
	srv, store := newTestServer(t)
	testPlant(t, store)

	body := map[string]string{"type": "water", "timestamp": "2024-03-01T10:00:00Z"}
	w := doJSON(t, srv, http.MethodPost, "/plants/1/events", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("add event: %d %s", w.Code, w.Body.String())
	}
	w = doJSON(t, srv, http.MethodPost, "/plants/1/events", body)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}
	var e struct {
		Error string `json:"error"`
	}
	decodeInto(t, w, &e)
	if e.Error == "" {
		t.Fatal("conflict response should carry a message")
	}
}

func TestAddEventUnknownType(t *testing.T) {
	srv, store := newTestServer(t)
	testPlant(t, store)
	w := doJSON(t, srv, http.MethodPost, "/plants/1/events",
		map[string]string{"type": "mist", "timestamp": "2024-03-01T10:00:00Z"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestBulkDeleteEventsAuthoritativeLists(t *testing.T) {
	srv, store := newTestServer(t)
	p := testPlant(t, store)
	ts := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	store.AddEvent(p.ID, timeline.Water, ts)

	body := map[string][]string{
		"water": {formatStamp(ts), formatStamp(ts.Add(time.Hour))},
	}
	w := doJSON(t, srv, http.MethodPost, "/plants/1/events/delete", body)
	if w.Code != http.StatusOK {
		t.Fatalf("bulk delete: %d %s", w.Code, w.Body.String())
	}

	var out struct {
		Deleted map[string][]string `json:"deleted"`
		Failed  map[string][]string `json:"failed"`
	}
	decodeInto(t, w, &out)
	if len(out.Deleted["water"]) != 1 {
		t.Fatalf("expected 1 deleted, got %v", out.Deleted)
	}
	if len(out.Failed["water"]) != 1 {
		t.Fatalf("expected 1 failed (never existed), got %v", out.Failed)
	}

	events, _ := store.ListEvents(p.ID)
	if len(events) != 0 {
		t.Fatalf("event not deleted: %+v", events)
	}
}

func TestNoteAddEditDelete(t *testing.T) {
	srv, store := newTestServer(t)
	testPlant(t, store)
	stamp := "2024-03-01T12:00:00Z"

	w := doJSON(t, srv, http.MethodPost, "/plants/1/notes", noteJSON{Timestamp: stamp, Text: "sprout"})
	if w.Code != http.StatusCreated {
		t.Fatalf("add note: %d %s", w.Code, w.Body.String())
	}
	// Duplicate timestamp conflicts.
	w = doJSON(t, srv, http.MethodPost, "/plants/1/notes", noteJSON{Timestamp: stamp, Text: "again"})
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", w.Code)
	}

	w = doJSON(t, srv, http.MethodPut, "/plants/1/notes", noteJSON{Timestamp: stamp, Text: "two sprouts"})
	if w.Code != http.StatusOK {
		t.Fatalf("edit note: %d %s", w.Code, w.Body.String())
	}
	var n noteJSON
	decodeInto(t, w, &n)
	if n.Text != "two sprouts" {
		t.Fatalf("edit not applied: %+v", n)
	}

	w = doJSON(t, srv, http.MethodPost, "/plants/1/notes/delete",
		map[string][]string{"timestamps": {stamp, "2024-03-09T09:00:00Z"}})
	var out struct {
		Deleted []string `json:"deleted"`
		Failed  []string `json:"failed"`
	}
	decodeInto(t, w, &out)
	if len(out.Deleted) != 1 || len(out.Failed) != 1 {
		t.Fatalf("unexpected result: %+v", out)
	}
}

func TestEditMissingNote(t *testing.T) {
	srv, store := newTestServer(t)
	testPlant(t, store)
	w := doJSON(t, srv, http.MethodPut, "/plants/1/notes", noteJSON{Timestamp: "2024-03-01T12:00:00Z", Text: "x"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestPhotoUploadDeriveServeDelete(t *testing.T) {
	srv, store := newTestServer(t)
	testPlant(t, store)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("files", "leaf.png")
	part.Write(tinyPNG(t))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/plants/1/photos", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("upload: %d %s", w.Code, w.Body.String())
	}

	var photos []photoJSON
	decodeInto(t, w, &photos)
	if len(photos) != 1 {
		t.Fatalf("expected 1 photo, got %d", len(photos))
	}
	if !strings.HasPrefix(photos[0].Thumbnail, "/media/") {
		t.Fatalf("unexpected thumbnail ref: %s", photos[0].Thumbnail)
	}

	// Serve the thumbnail derivative.
	wThumb := doJSON(t, srv, http.MethodGet, photos[0].Thumbnail, nil)
	if wThumb.Code != http.StatusOK {
		t.Fatalf("serve thumbnail: %d", wThumb.Code)
	}

	// Delete it; the derivative disappears with it.
	wDel := doJSON(t, srv, http.MethodPost, "/plants/1/photos/delete",
		map[string][]int64{"keys": {photos[0].Key, 777}})
	var out struct {
		Deleted []int64 `json:"deleted"`
		Failed  []int64 `json:"failed"`
	}
	decodeInto(t, wDel, &out)
	if len(out.Deleted) != 1 || len(out.Failed) != 1 {
		t.Fatalf("unexpected delete result: %+v", out)
	}
	after := doJSON(t, srv, http.MethodGet, photos[0].Thumbnail, nil)
	if after.Code != http.StatusNotFound {
		t.Fatalf("deleted derivative still served: %d", after.Code)
	}
}

func TestUploadNonImage(t *testing.T) {
	srv, store := newTestServer(t)
	p := testPlant(t, store)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, _ := mw.CreateFormFile("files", "notes.txt")
	part.Write([]byte("not an image"))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/plants/1/photos", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	// The placeholder row must not linger.
	photos, _ := store.ListPhotos(p.ID)
	if len(photos) != 0 {
		t.Fatalf("phantom photo row: %+v", photos)
	}
}

func TestDefaultPhotoEndpoints(t *testing.T) {
	srv, store := newTestServer(t)
	p := testPlant(t, store)
	photo, _ := store.AddPhoto(p.ID, time.Now().UTC(), "", "", "")

	w := doJSON(t, srv, http.MethodPut, "/plants/1/default-photo", map[string]int64{"key": photo.ID})
	if w.Code != http.StatusOK {
		t.Fatalf("set pin: %d %s", w.Code, w.Body.String())
	}
	got, _ := store.GetPlant(p.ID)
	if got.DefaultPhotoKey == nil || *got.DefaultPhotoKey != photo.ID {
		t.Fatal("pin not stored")
	}

	w = doJSON(t, srv, http.MethodPut, "/plants/1/default-photo", map[string]int64{"key": 999})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown photo, got %d", w.Code)
	}

	w = doJSON(t, srv, http.MethodDelete, "/plants/1/default-photo", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("clear pin: %d", w.Code)
	}
	got, _ = store.GetPlant(p.ID)
	if got.DefaultPhotoKey != nil {
		t.Fatal("pin not cleared")
	}
}
