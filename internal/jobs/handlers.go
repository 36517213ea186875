package jobs

import (
	"context"
	"fmt"
	"image"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/martinsandoval/imagevault-backend/pkg/caption"
	"github.com/martinsandoval/imagevault-backend/pkg/enums"
	"github.com/martinsandoval/imagevault-backend/pkg/logger"
	"github.com/martinsandoval/imagevault-backend/pkg/metrics"
	"github.com/martinsandoval/imagevault-backend/pkg/queue"
)

type ledgerRepo interface {
	SetContentEXIF(ctx context.Context, sha256, exifJSON string) error
	SetContentCaption(ctx context.Context, sha256, caption string) error
	SetAttemptProcessedAt(ctx context.Context, id uuid.UUID, processedAt time.Time) error
	CompleteOutcome(ctx context.Context, attemptID uuid.UUID, status enums.OutcomeStatus) error
}

type contentStore interface {
	ReadFile(path string) ([]byte, error)
	SaveThumbnail(img image.Image, sha256, size string) (string, error)
}

// Handlers owns the background job implementations. Each handler is
// independent: a thumbnail failure never blocks EXIF extraction, and only the
// caption job, the last stage, moves the attempt's outcome to terminal state.
type Handlers struct {
	repo       ledgerRepo
	store      contentStore
	captioner  caption.Captioner
	thumbSizes map[string]int
	logg       *logger.Logger
	metrics    *metrics.PipelineMetrics
}

// NewHandlers wires the job set. Metrics may be nil.
func NewHandlers(repo ledgerRepo, store contentStore, captioner caption.Captioner, thumbSizes map[string]int, logg *logger.Logger, pipelineMetrics *metrics.PipelineMetrics) (*Handlers, error) {
	if repo == nil {
		return nil, fmt.Errorf("repository required")
	}
	if store == nil {
		return nil, fmt.Errorf("content store required")
	}
	if captioner == nil {
		return nil, fmt.Errorf("captioner required")
	}
	if len(thumbSizes) == 0 {
		return nil, fmt.Errorf("thumbnail sizes required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Handlers{
		repo:       repo,
		store:      store,
		captioner:  captioner,
		thumbSizes: thumbSizes,
		logg:       logg,
		metrics:    pipelineMetrics,
	}, nil
}

// Register mounts every handler on the worker mux.
func (h *Handlers) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(queue.TypeThumbnail, h.instrument("thumbnail", h.HandleThumbnail))
	mux.HandleFunc(queue.TypeEXIF, h.instrument("exif", h.HandleEXIF))
	mux.HandleFunc(queue.TypeCaption, h.instrument("caption", h.HandleCaption))
}

func (h *Handlers) instrument(name string, fn asynq.HandlerFunc) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		ctx = h.logg.WithJob(ctx, name)
		start := time.Now()
		err := fn(ctx, task)
		h.metrics.ObserveJobDuration(name, time.Since(start))
		if err != nil {
			h.metrics.IncJobFailure(name)
			h.logg.Error(ctx, "job failed", err)
			return err
		}
		h.metrics.IncJobSuccess(name)
		return nil
	}
}

// lastAttempt reports whether the task has exhausted its retry budget.
func lastAttempt(ctx context.Context) bool {
	retried, ok := asynq.GetRetryCount(ctx)
	if !ok {
		return true
	}
	maxRetry, ok := asynq.GetMaxRetry(ctx)
	if !ok {
		return true
	}
	return retried >= maxRetry
}
