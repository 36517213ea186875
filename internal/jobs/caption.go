package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/martinsandoval/imagevault-backend/pkg/enums"
	"github.com/martinsandoval/imagevault-backend/pkg/queue"
)

// HandleCaption generates a caption for the content and closes out the
// originating attempt's outcome. It is the last pipeline stage: success marks
// the outcome successful, and once the retry budget is spent a failure marks
// it failed so the attempt never stays pending forever.
func (h *Handlers) HandleCaption(ctx context.Context, task *asynq.Task) error {
	var payload queue.CaptionPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("parse caption payload: %w", err)
	}
	ctx = h.logg.WithContentSHA(h.logg.WithAttemptID(ctx, payload.AttemptID), payload.SHA256)

	attemptID, err := uuid.Parse(payload.AttemptID)
	if err != nil {
		return fmt.Errorf("parse attempt id: %w", err)
	}

	if err := h.generateCaption(ctx, payload); err != nil {
		if lastAttempt(ctx) {
			if closeErr := h.repo.CompleteOutcome(ctx, attemptID, enums.OutcomeStatusFailed); closeErr != nil {
				h.logg.Error(ctx, "failed to close outcome after caption failure", closeErr)
			}
		}
		return err
	}

	if err := h.repo.CompleteOutcome(ctx, attemptID, enums.OutcomeStatusSuccess); err != nil {
		return fmt.Errorf("close outcome: %w", err)
	}
	if err := h.repo.SetAttemptProcessedAt(ctx, attemptID, time.Now().UTC()); err != nil {
		// The outcome is already terminal; the stale timestamp is not worth a retry.
		h.logg.Error(ctx, "failed to refresh attempt timestamp", err)
	}

	h.logg.Info(ctx, "caption stored")
	return nil
}

func (h *Handlers) generateCaption(ctx context.Context, payload queue.CaptionPayload) error {
	data, err := h.store.ReadFile(payload.StoragePath)
	if err != nil {
		return fmt.Errorf("read original: %w", err)
	}

	text, err := h.captioner.Caption(ctx, data)
	if err != nil {
		return fmt.Errorf("generate caption: %w", err)
	}

	if err := h.repo.SetContentCaption(ctx, payload.SHA256, text); err != nil {
		return fmt.Errorf("store caption: %w", err)
	}
	return nil
}
