package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/martinsandoval/imagevault-backend/pkg/db/models"
	"github.com/martinsandoval/imagevault-backend/pkg/enums"
	apperrors "github.com/martinsandoval/imagevault-backend/pkg/errors"
)

var dbSeq int

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dbSeq++
	dsn := fmt.Sprintf("file:ledger_test_%d?mode=memory&cache=shared&_busy_timeout=5000", dbSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.ContentRecord{}, &models.UploadAttempt{}, &models.ProcessingOutcome{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func testContent(sha string) *models.ContentRecord {
	return &models.ContentRecord{
		SHA256:    sha,
		Width:     10,
		Height:    20,
		Format:    "png",
		SizeBytes: 512,
	}
}

func testAttempt(sha *string) (*models.UploadAttempt, *models.ProcessingOutcome) {
	id := uuid.New()
	attempt := &models.UploadAttempt{
		ID:            id,
		OriginalName:  "photo.png",
		ContentSHA256: sha,
	}
	outcome := &models.ProcessingOutcome{
		AttemptID: id,
		Status:    enums.OutcomeStatusPending,
	}
	return attempt, outcome
}

func strPtr(s string) *string { return &s }

func TestGetOrCreateContent(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()

	wasNew, err := repo.GetOrCreateContent(ctx, testContent("aaa"))
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	if !wasNew {
		t.Error("expected first insert to report new content")
	}

	dup := testContent("aaa")
	dup.Width = 999 // loses against the stored row
	wasNew, err = repo.GetOrCreateContent(ctx, dup)
	if err != nil {
		t.Fatalf("duplicate insert: %v", err)
	}
	if wasNew {
		t.Error("expected duplicate insert to report existing content")
	}
	if dup.Width != 10 {
		t.Errorf("duplicate record not refreshed from store, width = %d", dup.Width)
	}
}

func TestGetOrCreateContentConcurrent(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()

	const workers = 8
	results := make([]bool, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = repo.GetOrCreateContent(ctx, testContent("race"))
		}(i)
	}
	wg.Wait()

	created := 0
	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if results[i] {
			created++
		}
	}
	if created != 1 {
		t.Errorf("expected exactly one creator, got %d", created)
	}
}

func TestRecordAttemptPersistsBothRows(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	if _, err := repo.GetOrCreateContent(ctx, testContent("bbb")); err != nil {
		t.Fatalf("seed content: %v", err)
	}
	attempt, outcome := testAttempt(strPtr("bbb"))
	if err := repo.RecordAttempt(ctx, attempt, outcome); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}

	got, err := repo.GetAttempt(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("GetAttempt: %v", err)
	}
	if got.Content == nil || got.Content.SHA256 != "bbb" {
		t.Error("expected attempt to carry its content record")
	}

	outcomes, err := repo.ListOutcomes(ctx)
	if err != nil {
		t.Fatalf("ListOutcomes: %v", err)
	}
	if len(outcomes) != 1 || outcomes[0].Status != enums.OutcomeStatusPending {
		t.Errorf("outcomes = %+v, want one pending row", outcomes)
	}
}

func TestSetContentFields(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()

	if _, err := repo.GetOrCreateContent(ctx, testContent("ccc")); err != nil {
		t.Fatalf("seed content: %v", err)
	}

	if err := repo.SetContentEXIF(ctx, "ccc", `{"Make":"Canon"}`); err != nil {
		t.Fatalf("SetContentEXIF: %v", err)
	}
	if err := repo.SetContentCaption(ctx, "ccc", "a red bicycle"); err != nil {
		t.Fatalf("SetContentCaption: %v", err)
	}

	var rec models.ContentRecord
	if err := repo.(*repository).db.Where("sha256 = ?", "ccc").First(&rec).Error; err != nil {
		t.Fatalf("reload record: %v", err)
	}
	if rec.EXIF == nil || *rec.EXIF != `{"Make":"Canon"}` {
		t.Errorf("exif = %v", rec.EXIF)
	}
	if rec.Caption == nil || *rec.Caption != "a red bicycle" {
		t.Errorf("caption = %v", rec.Caption)
	}

	if err := repo.SetContentCaption(ctx, "missing", "x"); err == nil {
		t.Error("expected not-found error for unknown hash")
	}
}

func TestCompleteOutcome(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()

	attempt, outcome := testAttempt(nil)
	if err := repo.RecordAttempt(ctx, attempt, outcome); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}

	if err := repo.CompleteOutcome(ctx, attempt.ID, enums.OutcomeStatusSuccess); err != nil {
		t.Fatalf("CompleteOutcome: %v", err)
	}

	outcomes, err := repo.ListOutcomes(ctx)
	if err != nil {
		t.Fatalf("ListOutcomes: %v", err)
	}
	if outcomes[0].Status != enums.OutcomeStatusSuccess {
		t.Errorf("status = %s, want success", outcomes[0].Status)
	}
	if outcomes[0].EndedAt == nil {
		t.Error("expected ended_at to be stamped")
	}

	err = repo.CompleteOutcome(ctx, uuid.New(), enums.OutcomeStatusFailed)
	typed := apperrors.As(err)
	if typed == nil || typed.Code() != apperrors.CodeNotFound {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestSetAttemptProcessedAt(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	ctx := context.Background()

	attempt, outcome := testAttempt(nil)
	if err := repo.RecordAttempt(ctx, attempt, outcome); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}

	finished := time.Date(2026, 8, 1, 12, 30, 0, 0, time.UTC)
	if err := repo.SetAttemptProcessedAt(ctx, attempt.ID, finished); err != nil {
		t.Fatalf("SetAttemptProcessedAt: %v", err)
	}

	got, err := repo.GetAttempt(ctx, attempt.ID)
	if err != nil {
		t.Fatalf("GetAttempt: %v", err)
	}
	if !got.ProcessedAt.UTC().Equal(finished) {
		t.Errorf("processed_at = %v, want %v", got.ProcessedAt, finished)
	}

	err = repo.SetAttemptProcessedAt(ctx, uuid.New(), finished)
	typed := apperrors.As(err)
	if typed == nil || typed.Code() != apperrors.CodeNotFound {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestGetAttemptNotFound(t *testing.T) {
	repo := NewRepository(newTestDB(t))

	_, err := repo.GetAttempt(context.Background(), uuid.New())
	typed := apperrors.As(err)
	if typed == nil || typed.Code() != apperrors.CodeNotFound {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestListAttemptsNewestFirst(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		attempt, outcome := testAttempt(nil)
		if err := repo.RecordAttempt(ctx, attempt, outcome); err != nil {
			t.Fatalf("RecordAttempt %d: %v", i, err)
		}
	}

	attempts, err := repo.ListAttempts(ctx)
	if err != nil {
		t.Fatalf("ListAttempts: %v", err)
	}
	if len(attempts) != 3 {
		t.Fatalf("len = %d, want 3", len(attempts))
	}
	for i := 0; i+1 < len(attempts); i++ {
		if attempts[i].ProcessedAt.Before(attempts[i+1].ProcessedAt) {
			t.Errorf("attempts not ordered newest first at index %d", i)
		}
	}
}
