package ingest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"go.uber.org/multierr"

	"github.com/martinsandoval/imagevault-backend/pkg/logger"
	"github.com/martinsandoval/imagevault-backend/pkg/queue"
)

// Orchestrator fans out the processing jobs for freshly seen content:
// thumbnail, EXIF, and caption. Enqueue failures are combined and reported to
// the caller; any job that did make it onto the queue stays there.
type Orchestrator struct {
	enqueuer queue.Enqueuer
	logg     *logger.Logger
}

func NewOrchestrator(enqueuer queue.Enqueuer, logg *logger.Logger) (*Orchestrator, error) {
	if enqueuer == nil {
		return nil, fmt.Errorf("enqueuer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Orchestrator{enqueuer: enqueuer, logg: logg}, nil
}

// EnqueueAll submits the full job set for one content hash. Called exactly
// once per unique content, on the upload that first created its record.
func (o *Orchestrator) EnqueueAll(ctx context.Context, sha256, storagePath string, attemptID uuid.UUID) error {
	ctx = o.logg.WithContentSHA(ctx, sha256)

	thumbnail, err := queue.NewThumbnailTask(sha256, storagePath)
	if err != nil {
		return fmt.Errorf("build thumbnail task: %w", err)
	}
	exif, err := queue.NewEXIFTask(sha256, storagePath)
	if err != nil {
		return fmt.Errorf("build exif task: %w", err)
	}
	caption, err := queue.NewCaptionTask(sha256, storagePath, attemptID.String())
	if err != nil {
		return fmt.Errorf("build caption task: %w", err)
	}

	var combined error
	for _, task := range []*asynq.Task{thumbnail, exif, caption} {
		handle, err := o.enqueuer.Enqueue(ctx, task)
		if err != nil {
			combined = multierr.Append(combined, fmt.Errorf("enqueue %s: %w", task.Type(), err))
			continue
		}
		jobCtx := o.logg.WithField(o.logg.WithJob(ctx, task.Type()), "task_id", handle.ID)
		o.logg.Info(jobCtx, "job enqueued")
	}
	return combined
}
