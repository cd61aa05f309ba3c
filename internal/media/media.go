// Package media stores uploaded recipe images on local disk.
package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Media errors.
var (
	ErrNotImage    = errors.New("upload is not a supported image")
	ErrTooLarge    = errors.New("upload exceeds maximum size")
	ErrInvalidPath = errors.New("invalid media path")
)

// recipeDir is the directory, relative to the media root, holding recipe images.
const recipeDir = "uploads/recipe"

var extensions = map[string]string{
	"jpeg": "jpg",
	"png":  "png",
	"gif":  "gif",
}

// Store writes images below a root directory and hands back paths relative to it.
type Store struct {
	root    string
	maxSize int64
}

// NewStore creates the root directory if needed and returns a Store.
func NewStore(root string, maxSize int64) (*Store, error) {
	if root == "" {
		return nil, errors.New("media root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve media root: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(abs, filepath.FromSlash(recipeDir)), 0o755); err != nil {
		return nil, fmt.Errorf("create media root: %w", err)
	}
	return &Store{root: abs, maxSize: maxSize}, nil
}

// Root returns the absolute media root.
func (s *Store) Root() string {
	return s.root
}

// Save validates r as an image and writes it under a fresh uuid name.
// The returned path is slash separated and relative to the root,
// e.g. "uploads/recipe/<uuid>.jpg".
func (s *Store) Save(ctx context.Context, r io.Reader) (string, error) {
	var buf bytes.Buffer
	limit := s.maxSize
	if limit <= 0 {
		limit = 5 << 20
	}
	n, err := io.Copy(&buf, io.LimitReader(r, limit+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if n > limit {
		return "", ErrTooLarge
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return "", ErrNotImage
	}
	ext, ok := extensions[format]
	if !ok {
		return "", ErrNotImage
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	rel := path.Join(recipeDir, uuid.NewString()+"."+ext)
	dst, err := s.resolve(rel)
	if err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("write image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close image: %w", err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("store image: %w", err)
	}

	return rel, nil
}

// Delete removes a previously saved file. Missing files are not an error.
func (s *Store) Delete(rel string) error {
	if rel == "" {
		return nil
	}
	p, err := s.resolve(rel)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete image: %w", err)
	}
	return nil
}

// Handler serves stored files with the given URL prefix stripped.
// Directory listings are not served.
func (s *Store) Handler(prefix string) http.Handler {
	files := http.FileServer(http.Dir(s.root))
	return http.StripPrefix(prefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	}))
}

// resolve maps a relative media path to an absolute path inside the root.
func (s *Store) resolve(rel string) (string, error) {
	clean := path.Clean("/" + rel)
	if clean == "/" || rel != strings.TrimPrefix(clean, "/") {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.root, filepath.FromSlash(clean)), nil
}
