package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 10, 10))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func newTestStore(t *testing.T, maxSize int64) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), maxSize)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func TestStore_SaveAndDelete(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, 1<<20)

	rel, err := store.Save(context.Background(), bytes.NewReader(pngBytes(t)))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !strings.HasPrefix(rel, "uploads/recipe/") || !strings.HasSuffix(rel, ".png") {
		t.Errorf("unexpected path %q", rel)
	}

	full := filepath.Join(store.Root(), filepath.FromSlash(rel))
	if _, err := os.Stat(full); err != nil {
		t.Fatalf("saved file missing: %v", err)
	}

	if err := store.Delete(rel); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := os.Stat(full); !os.IsNotExist(err) {
		t.Errorf("file should be gone, stat err = %v", err)
	}

	// second delete is a no-op
	if err := store.Delete(rel); err != nil {
		t.Errorf("Delete of missing file: %v", err)
	}
}

func TestStore_SaveUniqueNames(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, 1<<20)
	data := pngBytes(t)

	a, err := store.Save(context.Background(), bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	b, err := store.Save(context.Background(), bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if a == b {
		t.Errorf("expected distinct names, both %q", a)
	}
}

func TestStore_SaveRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		maxSize int64
		data    []byte
		wantErr error
	}{
		{"not an image", 1 << 20, []byte("notimage"), ErrNotImage},
		{"empty", 1 << 20, nil, ErrNotImage},
		{"too large", 16, pngBytes(t), ErrTooLarge},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := newTestStore(t, tt.maxSize)
			_, err := store.Save(context.Background(), bytes.NewReader(tt.data))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Save() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestStore_DeleteRejectsTraversal(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, 1<<20)

	for _, rel := range []string{"../etc/passwd", "uploads/../../x", "/abs/path"} {
		if err := store.Delete(rel); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Delete(%q) error = %v, want ErrInvalidPath", rel, err)
		}
	}
}

func TestStore_Handler(t *testing.T) {
	t.Parallel()

	store := newTestStore(t, 1<<20)
	rel, err := store.Save(context.Background(), bytes.NewReader(pngBytes(t)))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	h := store.Handler("/media/")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/"+rel, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("file status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/media/uploads/recipe/", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("directory status = %d, want 404", rec.Code)
	}
}
