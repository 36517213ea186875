package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/disintegration/imaging"
	"github.com/hibiken/asynq"

	"github.com/martinsandoval/imagevault-backend/pkg/queue"
)

// HandleThumbnail decodes the stored original and writes one JPEG variant per
// configured size, bounded to a square box with aspect ratio preserved.
func (h *Handlers) HandleThumbnail(ctx context.Context, task *asynq.Task) error {
	var payload queue.ContentPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("parse thumbnail payload: %w", err)
	}
	ctx = h.logg.WithContentSHA(ctx, payload.SHA256)

	data, err := h.store.ReadFile(payload.StoragePath)
	if err != nil {
		return fmt.Errorf("read original: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("decode original: %w", err)
	}

	for size, bound := range h.thumbSizes {
		variant := imaging.Fit(img, bound, bound, imaging.Lanczos)
		if _, err := h.store.SaveThumbnail(variant, payload.SHA256, size); err != nil {
			return fmt.Errorf("save %s thumbnail: %w", size, err)
		}
	}

	h.logg.Info(ctx, "thumbnails generated")
	return nil
}
