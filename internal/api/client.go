// Package api is the HTTP client for the leaflog backend. All methods
// translate the backend's response taxonomy into typed errors:
// ConflictError for duplicate identities, ValidationError for rejected
// requests, NetworkError for transport failures.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/emres/leaflog/internal/timeline"
)

// Client talks to one plant's records on a leaflog server.
type Client struct {
	baseURL string
	plantID int64
	hc      *http.Client
}

// NewClient creates a client for the given server and plant. A nil
// httpClient uses a default with a 15s timeout.
func NewClient(baseURL string, plantID int64, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		plantID: plantID,
		hc:      httpClient,
	}
}

func (c *Client) url(path string) string {
	return fmt.Sprintf("%s/plants/%d%s", c.baseURL, c.plantID, path)
}

// do sends a JSON request and decodes a JSON response into out (which
// may be nil). Non-2xx statuses become ConflictError or
// ValidationError; transport failures become NetworkError.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return &NetworkError{Op: method + " " + path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var e errorJSON
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err := json.Unmarshal(data, &e); err != nil || e.Error == "" {
		e.Error = strings.TrimSpace(string(data))
	}
	if resp.StatusCode == http.StatusConflict {
		return &ConflictError{Message: e.Error}
	}
	return &ValidationError{Status: resp.StatusCode, Message: e.Error}
}

// GetTimeline fetches the plant's full record set for initial load.
func (c *Client) GetTimeline(ctx context.Context) (Timeline, error) {
	var wire timelineJSON
	if err := c.do(ctx, http.MethodGet, "/timeline", nil, &wire); err != nil {
		return Timeline{}, err
	}

	var tl Timeline
	tl.DefaultPhotoKey = wire.DefaultPhotoKey
	for _, e := range wire.Events {
		ts, err := parseWireTime(e.Timestamp)
		if err != nil {
			return Timeline{}, fmt.Errorf("event timestamp: %w", err)
		}
		tl.Events = append(tl.Events, timeline.Event{Type: timeline.EventType(e.Type), Timestamp: ts})
	}
	for _, p := range wire.Photos {
		photo, err := p.toPhoto()
		if err != nil {
			return Timeline{}, fmt.Errorf("photo timestamp: %w", err)
		}
		tl.Photos = append(tl.Photos, photo)
	}
	for _, n := range wire.Notes {
		ts, err := parseWireTime(n.Timestamp)
		if err != nil {
			return Timeline{}, fmt.Errorf("note timestamp: %w", err)
		}
		tl.Notes = append(tl.Notes, timeline.Note{Timestamp: ts, Text: n.Text})
	}
	return tl, nil
}

// AddEvent records a care event. A duplicate (type, timestamp) pair
// comes back as a ConflictError.
func (c *Client) AddEvent(ctx context.Context, typ timeline.EventType, ts time.Time) (timeline.Event, error) {
	in := eventJSON{Type: string(typ), Timestamp: wireTime(ts)}
	var out eventJSON
	if err := c.do(ctx, http.MethodPost, "/events", in, &out); err != nil {
		return timeline.Event{}, err
	}
	stamped, err := parseWireTime(out.Timestamp)
	if err != nil {
		return timeline.Event{}, fmt.Errorf("event timestamp: %w", err)
	}
	return timeline.Event{Type: timeline.EventType(out.Type), Timestamp: stamped}, nil
}

// BulkDeleteEvents deletes events grouped by type and returns the
// server's authoritative deleted/failed lists in the same shape.
func (c *Client) BulkDeleteEvents(ctx context.Context, sel EventDeleteSelection) (EventDeleteResult, error) {
	var wire eventDeleteJSON
	if err := c.do(ctx, http.MethodPost, "/events/delete", selectionToWire(sel), &wire); err != nil {
		return EventDeleteResult{}, err
	}
	deleted, err := selectionFromWire(wire.Deleted)
	if err != nil {
		return EventDeleteResult{}, fmt.Errorf("deleted list: %w", err)
	}
	failed, err := selectionFromWire(wire.Failed)
	if err != nil {
		return EventDeleteResult{}, fmt.Errorf("failed list: %w", err)
	}
	return EventDeleteResult{Deleted: deleted, Failed: failed}, nil
}

// AddPhotos uploads photo files and returns the stored records.
func (c *Client) AddPhotos(ctx context.Context, files []PhotoUpload) ([]timeline.Photo, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := mw.CreateFormFile("files", f.Name)
		if err != nil {
			return nil, fmt.Errorf("build upload: %w", err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return nil, fmt.Errorf("build upload: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("/photos"), &buf)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, &NetworkError{Op: "POST /photos", Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, decodeError(resp)
	}

	var wire []photoJSON
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	photos := make([]timeline.Photo, 0, len(wire))
	for _, p := range wire {
		photo, err := p.toPhoto()
		if err != nil {
			return nil, fmt.Errorf("photo timestamp: %w", err)
		}
		photos = append(photos, photo)
	}
	return photos, nil
}

// DeletePhotos deletes photos by key.
func (c *Client) DeletePhotos(ctx context.Context, keys []int64) (PhotoDeleteResult, error) {
	in := struct {
		Keys []int64 `json:"keys"`
	}{Keys: keys}
	var wire photoDeleteJSON
	if err := c.do(ctx, http.MethodPost, "/photos/delete", in, &wire); err != nil {
		return PhotoDeleteResult{}, err
	}
	return PhotoDeleteResult{Deleted: wire.Deleted, Failed: wire.Failed}, nil
}

// AddNote records a note. A duplicate timestamp comes back as a
// ConflictError.
func (c *Client) AddNote(ctx context.Context, ts time.Time, text string) (timeline.Note, error) {
	in := noteJSON{Timestamp: wireTime(ts), Text: text}
	var out noteJSON
	if err := c.do(ctx, http.MethodPost, "/notes", in, &out); err != nil {
		return timeline.Note{}, err
	}
	stamped, err := parseWireTime(out.Timestamp)
	if err != nil {
		return timeline.Note{}, fmt.Errorf("note timestamp: %w", err)
	}
	return timeline.Note{Timestamp: stamped, Text: out.Text}, nil
}

// EditNote replaces the text of the note at ts.
func (c *Client) EditNote(ctx context.Context, ts time.Time, text string) (timeline.Note, error) {
	in := noteJSON{Timestamp: wireTime(ts), Text: text}
	var out noteJSON
	if err := c.do(ctx, http.MethodPut, "/notes", in, &out); err != nil {
		return timeline.Note{}, err
	}
	stamped, err := parseWireTime(out.Timestamp)
	if err != nil {
		return timeline.Note{}, fmt.Errorf("note timestamp: %w", err)
	}
	return timeline.Note{Timestamp: stamped, Text: out.Text}, nil
}

// DeleteNotes deletes notes by timestamp.
func (c *Client) DeleteNotes(ctx context.Context, stamps []time.Time) (NoteDeleteResult, error) {
	wireStamps := make([]string, 0, len(stamps))
	for _, ts := range stamps {
		wireStamps = append(wireStamps, wireTime(ts))
	}
	in := struct {
		Timestamps []string `json:"timestamps"`
	}{Timestamps: wireStamps}

	var wire noteDeleteJSON
	if err := c.do(ctx, http.MethodPost, "/notes/delete", in, &wire); err != nil {
		return NoteDeleteResult{}, err
	}

	var out NoteDeleteResult
	for _, s := range wire.Deleted {
		ts, err := parseWireTime(s)
		if err != nil {
			return NoteDeleteResult{}, fmt.Errorf("deleted list: %w", err)
		}
		out.Deleted = append(out.Deleted, ts)
	}
	for _, s := range wire.Failed {
		ts, err := parseWireTime(s)
		if err != nil {
			return NoteDeleteResult{}, fmt.Errorf("failed list: %w", err)
		}
		out.Failed = append(out.Failed, ts)
	}
	return out, nil
}

// DeleteNote is the single-item variant of DeleteNotes. A note the
// server reports as failed surfaces as a ValidationError.
func (c *Client) DeleteNote(ctx context.Context, ts time.Time) error {
	res, err := c.DeleteNotes(ctx, []time.Time{ts})
	if err != nil {
		return err
	}
	if len(res.Failed) > 0 {
		return &ValidationError{Status: http.StatusUnprocessableEntity, Message: "note could not be deleted"}
	}
	return nil
}

// SetDefaultPhoto pins the plant's representative photo on the server.
func (c *Client) SetDefaultPhoto(ctx context.Context, key int64) error {
	in := struct {
		Key int64 `json:"key"`
	}{Key: key}
	return c.do(ctx, http.MethodPut, "/default-photo", in, nil)
}

// ClearDefaultPhoto removes the pin so resolution falls back to the
// newest photo.
func (c *Client) ClearDefaultPhoto(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/default-photo", nil, nil)
}
