package jobs

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/martinsandoval/imagevault-backend/pkg/enums"
	"github.com/martinsandoval/imagevault-backend/pkg/logger"
	"github.com/martinsandoval/imagevault-backend/pkg/queue"
)

type stubRepo struct {
	exifBySHA    map[string]string
	captionBySHA map[string]string
	closed       map[uuid.UUID]enums.OutcomeStatus
	processedAt  map[uuid.UUID]time.Time

	exifErr    error
	captionErr error
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		exifBySHA:    map[string]string{},
		captionBySHA: map[string]string{},
		closed:       map[uuid.UUID]enums.OutcomeStatus{},
		processedAt:  map[uuid.UUID]time.Time{},
	}
}

func (r *stubRepo) SetContentEXIF(_ context.Context, sha256, exifJSON string) error {
	if r.exifErr != nil {
		return r.exifErr
	}
	r.exifBySHA[sha256] = exifJSON
	return nil
}

func (r *stubRepo) SetContentCaption(_ context.Context, sha256, caption string) error {
	if r.captionErr != nil {
		return r.captionErr
	}
	r.captionBySHA[sha256] = caption
	return nil
}

func (r *stubRepo) SetAttemptProcessedAt(_ context.Context, id uuid.UUID, processedAt time.Time) error {
	r.processedAt[id] = processedAt
	return nil
}

func (r *stubRepo) CompleteOutcome(_ context.Context, attemptID uuid.UUID, status enums.OutcomeStatus) error {
	r.closed[attemptID] = status
	return nil
}

type stubStore struct {
	files  map[string][]byte
	saved  map[string]image.Image
	readAs error
}

func newStubStore() *stubStore {
	return &stubStore{files: map[string][]byte{}, saved: map[string]image.Image{}}
}

func (s *stubStore) ReadFile(path string) ([]byte, error) {
	if s.readAs != nil {
		return nil, s.readAs
	}
	data, ok := s.files[path]
	if !ok {
		return nil, errors.New("file missing")
	}
	return data, nil
}

func (s *stubStore) SaveThumbnail(img image.Image, sha256, size string) (string, error) {
	s.saved[sha256+"/"+size] = img
	return "/thumbs/" + size + "/" + sha256 + ".jpeg", nil
}

type stubCaptioner struct {
	text string
	err  error
}

func (c *stubCaptioner) Warmup(context.Context) error { return nil }

func (c *stubCaptioner) Caption(context.Context, []byte) (string, error) {
	return c.text, c.err
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func newTestHandlers(t *testing.T, repo *stubRepo, store *stubStore, captioner *stubCaptioner) *Handlers {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard})
	h, err := NewHandlers(repo, store, captioner, map[string]int{"small": 4, "medium": 8}, logg, nil)
	if err != nil {
		t.Fatalf("NewHandlers: %v", err)
	}
	return h
}

func TestHandleThumbnailWritesAllVariants(t *testing.T) {
	repo := newStubRepo()
	store := newStubStore()
	store.files["/media/originals/a.png"] = pngBytes(t, 32, 16)
	h := newTestHandlers(t, repo, store, &stubCaptioner{})

	task, err := queue.NewThumbnailTask("abc", "/media/originals/a.png")
	if err != nil {
		t.Fatalf("NewThumbnailTask: %v", err)
	}
	if err := h.HandleThumbnail(context.Background(), task); err != nil {
		t.Fatalf("HandleThumbnail: %v", err)
	}

	small, ok := store.saved["abc/small"]
	if !ok {
		t.Fatal("missing small variant")
	}
	if _, ok := store.saved["abc/medium"]; !ok {
		t.Fatal("missing medium variant")
	}
	bounds := small.Bounds()
	if bounds.Dx() > 4 || bounds.Dy() > 4 {
		t.Errorf("small variant %dx%d exceeds its box", bounds.Dx(), bounds.Dy())
	}
	// source is 2:1, the fit must keep that ratio
	if bounds.Dx() != 2*bounds.Dy() {
		t.Errorf("aspect ratio lost: %dx%d", bounds.Dx(), bounds.Dy())
	}
}

func TestHandleThumbnailMissingOriginal(t *testing.T) {
	h := newTestHandlers(t, newStubRepo(), newStubStore(), &stubCaptioner{})

	task, err := queue.NewThumbnailTask("abc", "/media/originals/gone.png")
	if err != nil {
		t.Fatalf("NewThumbnailTask: %v", err)
	}
	if err := h.HandleThumbnail(context.Background(), task); err == nil {
		t.Fatal("expected error for missing original")
	}
}

func TestHandleEXIFStoresEmptyDocumentWhenAbsent(t *testing.T) {
	repo := newStubRepo()
	store := newStubStore()
	// plain PNG, no EXIF block
	store.files["/media/originals/b.png"] = pngBytes(t, 4, 4)
	h := newTestHandlers(t, repo, store, &stubCaptioner{})

	task, err := queue.NewEXIFTask("bcd", "/media/originals/b.png")
	if err != nil {
		t.Fatalf("NewEXIFTask: %v", err)
	}
	if err := h.HandleEXIF(context.Background(), task); err != nil {
		t.Fatalf("HandleEXIF: %v", err)
	}
	if got := repo.exifBySHA["bcd"]; got != "{}" {
		t.Errorf("exif document = %q, want empty object", got)
	}
}

func TestHandleEXIFStoreFailurePropagates(t *testing.T) {
	repo := newStubRepo()
	repo.exifErr = errors.New("db down")
	store := newStubStore()
	store.files["/p"] = pngBytes(t, 4, 4)
	h := newTestHandlers(t, repo, store, &stubCaptioner{})

	task, err := queue.NewEXIFTask("x", "/p")
	if err != nil {
		t.Fatalf("NewEXIFTask: %v", err)
	}
	if err := h.HandleEXIF(context.Background(), task); err == nil {
		t.Fatal("expected error when persistence fails")
	}
}

func TestHandleCaptionSuccessClosesOutcome(t *testing.T) {
	repo := newStubRepo()
	store := newStubStore()
	store.files["/p"] = pngBytes(t, 4, 4)
	h := newTestHandlers(t, repo, store, &stubCaptioner{text: "a small square"})

	attemptID := uuid.New()
	task, err := queue.NewCaptionTask("cde", "/p", attemptID.String())
	if err != nil {
		t.Fatalf("NewCaptionTask: %v", err)
	}
	if err := h.HandleCaption(context.Background(), task); err != nil {
		t.Fatalf("HandleCaption: %v", err)
	}

	if repo.captionBySHA["cde"] != "a small square" {
		t.Errorf("caption = %q", repo.captionBySHA["cde"])
	}
	if repo.closed[attemptID] != enums.OutcomeStatusSuccess {
		t.Errorf("outcome = %s, want success", repo.closed[attemptID])
	}
	if _, ok := repo.processedAt[attemptID]; !ok {
		t.Error("completion must refresh the attempt's processed_at")
	}
}

func TestHandleCaptionFailureMarksOutcomeFailed(t *testing.T) {
	repo := newStubRepo()
	store := newStubStore()
	store.files["/p"] = pngBytes(t, 4, 4)
	h := newTestHandlers(t, repo, store, &stubCaptioner{err: errors.New("model offline")})

	attemptID := uuid.New()
	task, err := queue.NewCaptionTask("cde", "/p", attemptID.String())
	if err != nil {
		t.Fatalf("NewCaptionTask: %v", err)
	}
	// context carries no retry metadata, so this counts as the final attempt
	if err := h.HandleCaption(context.Background(), task); err == nil {
		t.Fatal("expected caption failure to propagate")
	}
	if repo.closed[attemptID] != enums.OutcomeStatusFailed {
		t.Errorf("outcome = %s, want failed", repo.closed[attemptID])
	}
	if _, ok := repo.processedAt[attemptID]; ok {
		t.Error("a failed caption must not refresh processed_at")
	}
}
