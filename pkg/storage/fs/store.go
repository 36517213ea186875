package fs

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

const (
	originalsDir  = "originals"
	thumbnailsDir = "thumbnails"
)

// ThumbnailSizes is the fixed set of derived variants the pipeline produces.
var ThumbnailSizes = []string{"small", "medium"}

// Store persists originals and derived thumbnails on the local filesystem.
// Writes go through a temp file + rename so a failed write never leaves a
// partial file at the final path.
type Store struct {
	baseDir     string
	jpegQuality int
}

// NewStore roots a store at baseDir, creating the directory tree.
func NewStore(baseDir string, jpegQuality int) (*Store, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, errors.New("media dir is required")
	}
	if jpegQuality <= 0 || jpegQuality > 100 {
		jpegQuality = 85
	}
	if err := os.MkdirAll(filepath.Join(baseDir, originalsDir), 0o755); err != nil {
		return nil, fmt.Errorf("create originals dir: %w", err)
	}
	for _, size := range ThumbnailSizes {
		if err := os.MkdirAll(filepath.Join(baseDir, thumbnailsDir, size), 0o755); err != nil {
			return nil, fmt.Errorf("create thumbnails dir: %w", err)
		}
	}
	return &Store{baseDir: baseDir, jpegQuality: jpegQuality}, nil
}

// SaveOriginal writes the raw upload under originals/<storedName> and returns
// the absolute path. Partial files are removed on failure.
func (s *Store) SaveOriginal(data []byte, storedName string) (string, error) {
	clean := filepath.Base(strings.TrimSpace(storedName))
	if clean == "" || clean == "." {
		return "", errors.New("stored name is required")
	}
	dest := filepath.Join(s.baseDir, originalsDir, clean)
	if err := s.writeAtomic(dest, data); err != nil {
		return "", err
	}
	return dest, nil
}

// Open returns a reader over a previously stored file.
func (s *Store) Open(path string) (io.ReadCloser, error) {
	if err := s.ensureInside(path); err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("stored file missing: %s", filepath.Base(path))
		}
		return nil, fmt.Errorf("open stored file: %w", err)
	}
	return f, nil
}

// ReadFile returns the full contents of a previously stored file.
func (s *Store) ReadFile(path string) ([]byte, error) {
	r, err := s.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Exists reports whether path holds a stored file.
func (s *Store) Exists(path string) bool {
	if err := s.ensureInside(path); err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ThumbnailPath is the deterministic location of a content hash's variant.
func (s *Store) ThumbnailPath(sha256, size string) string {
	return filepath.Join(s.baseDir, thumbnailsDir, size, sha256+".jpeg")
}

// SaveThumbnail encodes img as JPEG at the variant's deterministic path.
func (s *Store) SaveThumbnail(img image.Image, sha256, size string) (string, error) {
	dest := s.ThumbnailPath(sha256, size)
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".thumb-*")
	if err != nil {
		return "", fmt.Errorf("create temp thumbnail: %w", err)
	}
	tmpName := tmp.Name()

	if err := imaging.Encode(tmp, img, imaging.JPEG, imaging.JPEGQuality(s.jpegQuality)); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("encode thumbnail: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("flush thumbnail: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("publish thumbnail: %w", err)
	}
	return dest, nil
}

func (s *Store) writeAtomic(dest string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".upload-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("flush upload: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publish upload: %w", err)
	}
	return nil
}

// ensureInside guards against paths escaping the store root.
func (s *Store) ensureInside(path string) error {
	base, err := filepath.Abs(s.baseDir)
	if err != nil {
		return err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if abs != base && !strings.HasPrefix(abs, base+string(filepath.Separator)) {
		return fmt.Errorf("path outside media dir: %s", path)
	}
	return nil
}
