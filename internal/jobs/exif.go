package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"github.com/martinsandoval/imagevault-backend/pkg/queue"
)

// HandleEXIF extracts the original's EXIF block into a JSON document on the
// content record. Images with no EXIF data are normal: they get an empty
// document rather than a failure.
func (h *Handlers) HandleEXIF(ctx context.Context, task *asynq.Task) error {
	var payload queue.ContentPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("parse exif payload: %w", err)
	}
	ctx = h.logg.WithContentSHA(ctx, payload.SHA256)

	data, err := h.store.ReadFile(payload.StoragePath)
	if err != nil {
		return fmt.Errorf("read original: %w", err)
	}

	document, err := extractEXIF(data)
	if err != nil {
		h.logg.Warn(ctx, "no exif data, storing empty document")
		document = "{}"
	}

	if err := h.repo.SetContentEXIF(ctx, payload.SHA256, document); err != nil {
		return fmt.Errorf("store exif document: %w", err)
	}

	h.logg.Info(ctx, "exif extracted")
	return nil
}

type exifCollector struct {
	fields map[string]any
}

func (c *exifCollector) Walk(name exif.FieldName, tag *tiff.Tag) error {
	c.fields[string(name)] = jsonSafeTag(tag)
	return nil
}

// jsonSafeTag flattens a TIFF tag into a JSON-encodable value. Byte blobs
// become hex strings so the document stays valid UTF-8.
func jsonSafeTag(tag *tiff.Tag) any {
	switch tag.Format() {
	case tiff.StringVal:
		if v, err := tag.StringVal(); err == nil {
			return v
		}
	case tiff.IntVal:
		if v, err := tag.Int64(0); err == nil {
			return v
		}
	case tiff.FloatVal:
		if v, err := tag.Float(0); err == nil {
			return v
		}
	case tiff.RatVal:
		if num, den, err := tag.Rat2(0); err == nil && den != 0 {
			return float64(num) / float64(den)
		}
	case tiff.UndefVal:
		return fmt.Sprintf("%x", tag.Val)
	}
	return tag.String()
}

func extractEXIF(data []byte) (string, error) {
	parsed, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("decode exif: %w", err)
	}

	collector := &exifCollector{fields: map[string]any{}}
	if err := parsed.Walk(collector); err != nil {
		return "", fmt.Errorf("walk exif fields: %w", err)
	}

	encoded, err := json.Marshal(collector.fields)
	if err != nil {
		return "", fmt.Errorf("encode exif document: %w", err)
	}
	return string(encoded), nil
}
