package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/martinsandoval/imagevault-backend/pkg/db/models"
	"github.com/martinsandoval/imagevault-backend/pkg/enums"
	apperrors "github.com/martinsandoval/imagevault-backend/pkg/errors"
)

// Repository manages persistence for the upload ledger: content records,
// upload attempts, and their processing outcomes.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	// GetOrCreateContent inserts the record if its hash is unseen and reports
	// whether this call created it. On a dedup hit the stored row wins and
	// the passed record is refreshed from it.
	GetOrCreateContent(ctx context.Context, record *models.ContentRecord) (bool, error)

	// RecordAttempt persists an attempt and its outcome row atomically.
	RecordAttempt(ctx context.Context, attempt *models.UploadAttempt, outcome *models.ProcessingOutcome) error

	SetContentEXIF(ctx context.Context, sha256, exifJSON string) error
	SetContentCaption(ctx context.Context, sha256, caption string) error

	// SetAttemptProcessedAt refreshes an attempt's processing timestamp when
	// its pipeline finishes.
	SetAttemptProcessedAt(ctx context.Context, id uuid.UUID, processedAt time.Time) error

	// CompleteOutcome moves an outcome to a terminal status and stamps its end time.
	CompleteOutcome(ctx context.Context, attemptID uuid.UUID, status enums.OutcomeStatus) error

	GetAttempt(ctx context.Context, id uuid.UUID) (*models.UploadAttempt, error)
	ListAttempts(ctx context.Context) ([]models.UploadAttempt, error)
	ListOutcomes(ctx context.Context) ([]models.ProcessingOutcome, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an upload ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) GetOrCreateContent(ctx context.Context, record *models.ContentRecord) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(record)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	// Conflict: another upload already claimed this hash.
	if err := r.db.WithContext(ctx).
		Where("sha256 = ?", record.SHA256).
		First(record).Error; err != nil {
		return false, err
	}
	return false, nil
}

func (r *repository) RecordAttempt(ctx context.Context, attempt *models.UploadAttempt, outcome *models.ProcessingOutcome) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(attempt).Error; err != nil {
			return err
		}
		return tx.Create(outcome).Error
	})
}

func (r *repository) SetContentEXIF(ctx context.Context, sha256, exifJSON string) error {
	return r.updateContent(ctx, sha256, map[string]any{"exif_json": exifJSON})
}

func (r *repository) SetContentCaption(ctx context.Context, sha256, caption string) error {
	return r.updateContent(ctx, sha256, map[string]any{"caption": caption})
}

func (r *repository) updateContent(ctx context.Context, sha256 string, fields map[string]any) error {
	res := r.db.WithContext(ctx).
		Model(&models.ContentRecord{}).
		Where("sha256 = ?", sha256).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.New(apperrors.CodeNotFound, "content record not found")
	}
	return nil
}

func (r *repository) SetAttemptProcessedAt(ctx context.Context, id uuid.UUID, processedAt time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&models.UploadAttempt{}).
		Where("id = ?", id).
		Update("processed_at", processedAt)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.New(apperrors.CodeNotFound, "upload attempt not found")
	}
	return nil
}

func (r *repository) CompleteOutcome(ctx context.Context, attemptID uuid.UUID, status enums.OutcomeStatus) error {
	now := time.Now().UTC()
	res := r.db.WithContext(ctx).
		Model(&models.ProcessingOutcome{}).
		Where("attempt_id = ?", attemptID).
		Updates(map[string]any{"status": status, "ended_at": now})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperrors.New(apperrors.CodeNotFound, "processing outcome not found")
	}
	return nil
}

func (r *repository) GetAttempt(ctx context.Context, id uuid.UUID) (*models.UploadAttempt, error) {
	var attempt models.UploadAttempt
	err := r.db.WithContext(ctx).
		Preload("Content").
		Where("id = ?", id).
		First(&attempt).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.New(apperrors.CodeNotFound, "Image not found")
		}
		return nil, err
	}
	return &attempt, nil
}

func (r *repository) ListAttempts(ctx context.Context) ([]models.UploadAttempt, error) {
	var attempts []models.UploadAttempt
	if err := r.db.WithContext(ctx).
		Preload("Content").
		Order("processed_at DESC").
		Order("id DESC").
		Find(&attempts).Error; err != nil {
		return nil, err
	}
	return attempts, nil
}

func (r *repository) ListOutcomes(ctx context.Context) ([]models.ProcessingOutcome, error) {
	var outcomes []models.ProcessingOutcome
	if err := r.db.WithContext(ctx).Find(&outcomes).Error; err != nil {
		return nil, err
	}
	return outcomes, nil
}
