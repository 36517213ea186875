package fs

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(t.TempDir(), 85)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store
}

func TestSaveOriginalRoundTrip(t *testing.T) {
	store := newTestStore(t)

	data := []byte("payload-bytes")
	path, err := store.SaveOriginal(data, "abc123.png")
	if err != nil {
		t.Fatalf("SaveOriginal: %v", err)
	}
	if !store.Exists(path) {
		t.Fatalf("expected stored file to exist at %s", path)
	}

	got, err := store.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(got) != string(data) {
		t.Fatalf("round trip mismatch: %q", got)
	}
}

func TestSaveOriginalRejectsEmptyName(t *testing.T) {
	store := newTestStore(t)
	if _, err := store.SaveOriginal([]byte("x"), "  "); err == nil {
		t.Fatal("expected error for empty stored name")
	}
}

func TestSaveOriginalStripsDirectoryComponents(t *testing.T) {
	store := newTestStore(t)
	path, err := store.SaveOriginal([]byte("x"), "../../evil.png")
	if err != nil {
		t.Fatalf("SaveOriginal: %v", err)
	}
	if filepath.Base(path) != "evil.png" {
		t.Fatalf("expected basename only, got %s", path)
	}
	if !strings.Contains(path, filepath.Join("originals", "evil.png")) {
		t.Fatalf("file escaped originals dir: %s", path)
	}
}

func TestOpenRefusesPathsOutsideRoot(t *testing.T) {
	store := newTestStore(t)

	outside := filepath.Join(t.TempDir(), "outside.txt")
	if err := os.WriteFile(outside, []byte("x"), 0o644); err != nil {
		t.Fatalf("write outside file: %v", err)
	}
	if _, err := store.Open(outside); err == nil {
		t.Fatal("expected traversal rejection")
	}
	if store.Exists(outside) {
		t.Fatal("Exists must not see files outside the media dir")
	}
}

func TestSaveThumbnailWritesDeterministicPath(t *testing.T) {
	store := newTestStore(t)

	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}

	sha := strings.Repeat("a", 64)
	path, err := store.SaveThumbnail(img, sha, "small")
	if err != nil {
		t.Fatalf("SaveThumbnail: %v", err)
	}
	if path != store.ThumbnailPath(sha, "small") {
		t.Fatalf("thumbnail path mismatch: %s", path)
	}
	if !store.Exists(path) {
		t.Fatal("thumbnail not written")
	}
}

func TestNoTempFilesLeftBehind(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir, 85)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if _, err := store.SaveOriginal([]byte("data"), "keep.png"); err != nil {
		t.Fatalf("SaveOriginal: %v", err)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "originals"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".upload-") {
			t.Fatalf("temp file left behind: %s", entry.Name())
		}
	}
}
