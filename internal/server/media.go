package server

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"strconv"

	_ "image/gif"
	_ "image/png"

	"github.com/nfnt/resize"
)

const (
	thumbSize   = 300
	previewSize = 1200
	jpegQuality = 85
)

// MediaStore writes photo files and their resized derivatives under a
// root directory, one subdirectory per photo id.
type MediaStore struct {
	root string
}

func NewMediaStore(root string) (*MediaStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create media directory: %w", err)
	}
	return &MediaStore{root: root}, nil
}

func (m *MediaStore) photoDir(id int64) string {
	return filepath.Join(m.root, strconv.FormatInt(id, 10))
}

// Save decodes the uploaded image, writes the original plus thumbnail
// and preview derivatives, and returns their paths.
func (m *MediaStore) Save(id int64, data []byte) (thumb, preview, full string, err error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", "", "", fmt.Errorf("decode image: %w", err)
	}

	dir := m.photoDir(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", "", fmt.Errorf("create photo directory: %w", err)
	}

	full = filepath.Join(dir, "full.jpg")
	if err := writeJPEG(full, img); err != nil {
		return "", "", "", err
	}

	preview = filepath.Join(dir, "preview.jpg")
	if err := writeJPEG(preview, resize.Thumbnail(previewSize, previewSize, img, resize.Lanczos3)); err != nil {
		return "", "", "", err
	}

	thumb = filepath.Join(dir, "thumb.jpg")
	if err := writeJPEG(thumb, resize.Thumbnail(thumbSize, thumbSize, img, resize.Lanczos3)); err != nil {
		return "", "", "", err
	}

	return thumb, preview, full, nil
}

// Remove deletes all files for a photo id.
func (m *MediaStore) Remove(id int64) error {
	return os.RemoveAll(m.photoDir(id))
}

// Path resolves a derivative name ("thumb", "preview", "full") to its
// file for serving.
func (m *MediaStore) Path(id int64, name string) (string, bool) {
	switch name {
	case "thumb", "preview", "full":
	default:
		return "", false
	}
	p := filepath.Join(m.photoDir(id), name+".jpg")
	if _, err := os.Stat(p); err != nil {
		return "", false
	}
	return p, true
}

func writeJPEG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	return nil
}
