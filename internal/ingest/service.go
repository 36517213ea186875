package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/martinsandoval/imagevault-backend/internal/validator"
	"github.com/martinsandoval/imagevault-backend/pkg/db/models"
	"github.com/martinsandoval/imagevault-backend/pkg/enums"
	apperrors "github.com/martinsandoval/imagevault-backend/pkg/errors"
	"github.com/martinsandoval/imagevault-backend/pkg/logger"
	"github.com/martinsandoval/imagevault-backend/pkg/metrics"
	"github.com/martinsandoval/imagevault-backend/pkg/storage/fs"
)

type repository interface {
	GetOrCreateContent(ctx context.Context, record *models.ContentRecord) (bool, error)
	RecordAttempt(ctx context.Context, attempt *models.UploadAttempt, outcome *models.ProcessingOutcome) error
	GetAttempt(ctx context.Context, id uuid.UUID) (*models.UploadAttempt, error)
	ListAttempts(ctx context.Context) ([]models.UploadAttempt, error)
}

type contentStore interface {
	SaveOriginal(data []byte, storedName string) (string, error)
	ThumbnailPath(sha256, size string) string
	Exists(path string) bool
}

type payloadValidator interface {
	Validate(filename, contentType string, data []byte) (*validator.ValidatedUpload, error)
}

type jobOrchestrator interface {
	EnqueueAll(ctx context.Context, sha256, storagePath string, attemptID uuid.UUID) error
}

// Service exposes the upload intake and read paths.
type Service interface {
	Upload(ctx context.Context, input UploadInput) (*Item, error)
	Get(ctx context.Context, id uuid.UUID, baseURL string) (*Item, error)
	List(ctx context.Context, baseURL string) ([]Item, error)
	ThumbnailFile(ctx context.Context, id uuid.UUID, size string) (*ThumbnailFile, error)
}

type service struct {
	repo         repository
	store        contentStore
	validate     payloadValidator
	orchestrator jobOrchestrator
	logg         *logger.Logger
	metrics      *metrics.PipelineMetrics
}

// NewService constructs the ingest service. Metrics may be nil; everything
// else is required.
func NewService(repo repository, store contentStore, validate payloadValidator, orchestrator jobOrchestrator, logg *logger.Logger, pipelineMetrics *metrics.PipelineMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository required")
	}
	if store == nil {
		return nil, fmt.Errorf("content store required")
	}
	if validate == nil {
		return nil, fmt.Errorf("validator required")
	}
	if orchestrator == nil {
		return nil, fmt.Errorf("orchestrator required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:         repo,
		store:        store,
		validate:     validate,
		orchestrator: orchestrator,
		logg:         logg,
		metrics:      pipelineMetrics,
	}, nil
}

// UploadInput models one multipart upload as received by the API layer.
type UploadInput struct {
	OriginalName string
	ContentType  string
	Data         []byte
	BaseURL      string
}

// Upload runs validation, stores the payload, deduplicates by content hash,
// and enqueues the processing jobs when the content is new. A validation
// failure is not an error to the caller: the attempt is recorded and a failed
// item returned. Errors mean the upload could not be durably recorded.
func (s *service) Upload(ctx context.Context, input UploadInput) (*Item, error) {
	originalName := input.OriginalName
	if originalName == "" {
		originalName = "upload"
	}

	attemptID := uuid.New()
	ctx = s.logg.WithAttemptID(ctx, attemptID.String())

	validated, err := s.validate.Validate(originalName, input.ContentType, input.Data)
	if err != nil {
		typed := apperrors.As(err)
		if typed == nil || typed.Code() != apperrors.CodeValidation {
			return nil, err
		}
		return s.recordRejection(ctx, attemptID, originalName, typed.Message())
	}

	storedName := attemptID.String() + validated.Extension
	storagePath, err := s.store.SaveOriginal(validated.Bytes, storedName)
	if err != nil {
		s.metrics.IncUpload("storage_error")
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "Failed to save image")
	}

	record := &models.ContentRecord{
		SHA256:    validated.SHA256,
		Width:     validated.Width,
		Height:    validated.Height,
		Format:    validated.Format,
		SizeBytes: int64(len(validated.Bytes)),
	}
	wasNew, err := s.repo.GetOrCreateContent(ctx, record)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "persist content record")
	}

	ctx = s.logg.WithContentSHA(ctx, record.SHA256)
	if wasNew {
		if err := s.orchestrator.EnqueueAll(ctx, record.SHA256, storagePath, attemptID); err != nil {
			// Content is committed; jobs can be replayed later.
			s.logg.Error(ctx, "failed to enqueue processing jobs", err)
		}
	} else {
		s.metrics.IncDedupHit()
		s.logg.Info(ctx, "duplicate content, processing skipped")
	}

	attempt := &models.UploadAttempt{
		ID:            attemptID,
		OriginalName:  originalName,
		StoragePath:   &storagePath,
		ContentSHA256: &record.SHA256,
		Content:       record,
	}
	outcome := &models.ProcessingOutcome{
		AttemptID: attemptID,
		Status:    enums.OutcomeStatusPending,
	}
	if !wasNew {
		// The content was already processed by an earlier upload; no job will
		// ever revisit this attempt, so close it out now.
		now := time.Now().UTC()
		outcome.Status = enums.OutcomeStatusSuccess
		outcome.EndedAt = &now
	}
	if err := s.repo.RecordAttempt(ctx, attempt, outcome); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "persist upload attempt")
	}

	s.metrics.IncUpload("accepted")
	s.logg.Info(ctx, "upload accepted")
	return successItem(attempt, input.BaseURL), nil
}

func (s *service) recordRejection(ctx context.Context, attemptID uuid.UUID, originalName, reason string) (*Item, error) {
	attempt := &models.UploadAttempt{
		ID:           attemptID,
		OriginalName: originalName,
		Error:        &reason,
	}
	now := time.Now().UTC()
	outcome := &models.ProcessingOutcome{
		AttemptID: attemptID,
		Status:    enums.OutcomeStatusFailed,
		EndedAt:   &now,
	}
	if err := s.repo.RecordAttempt(ctx, attempt, outcome); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeDependency, err, "persist rejected attempt")
	}

	s.metrics.IncUpload("rejected")
	s.metrics.IncValidationFailure(reason)
	s.logg.Warn(s.logg.WithField(ctx, "reason", reason), "upload rejected")
	return failedItem(attempt), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID, baseURL string) (*Item, error) {
	attempt, err := s.repo.GetAttempt(ctx, id)
	if err != nil {
		return nil, err
	}
	item := ItemFor(attempt, baseURL)
	// The detail view additionally exposes where the original was stored.
	item.Data.ImagePath = attempt.StoragePath
	return item, nil
}

func (s *service) List(ctx context.Context, baseURL string) ([]Item, error) {
	attempts, err := s.repo.ListAttempts(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]Item, 0, len(attempts))
	for i := range attempts {
		items = append(items, *ItemFor(&attempts[i], baseURL))
	}
	return items, nil
}

// ThumbnailFile locates a generated thumbnail variant on disk.
type ThumbnailFile struct {
	Path     string
	Filename string
}

func (s *service) ThumbnailFile(ctx context.Context, id uuid.UUID, size string) (*ThumbnailFile, error) {
	if !validSize(size) {
		return nil, apperrors.New(apperrors.CodeValidation, "Invalid thumbnail size")
	}

	attempt, err := s.repo.GetAttempt(ctx, id)
	if err != nil {
		return nil, err
	}
	if attempt.ContentSHA256 == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "No thumbnail for failed upload")
	}

	sha := *attempt.ContentSHA256
	path := s.store.ThumbnailPath(sha, size)
	if !s.store.Exists(path) {
		return nil, apperrors.New(apperrors.CodeNotFound, "Thumbnail not generated yet")
	}
	return &ThumbnailFile{
		Path:     path,
		Filename: fmt.Sprintf("%s_%s.jpeg", sha, size),
	}, nil
}

func validSize(size string) bool {
	for _, s := range fs.ThumbnailSizes {
		if s == size {
			return true
		}
	}
	return false
}
