package queue

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

// Task type names for the fixed post-processing set enqueued per new content.
const (
	TypeThumbnail = "image:thumbnail"
	TypeEXIF      = "image:exif"
	TypeCaption   = "image:caption"
)

// ContentPayload is carried by the thumbnail and EXIF tasks.
type ContentPayload struct {
	SHA256      string `json:"sha256"`
	StoragePath string `json:"storage_path"`
}

// CaptionPayload additionally carries the attempt ID: the caption job drives
// the attempt's terminal outcome.
type CaptionPayload struct {
	SHA256      string `json:"sha256"`
	StoragePath string `json:"storage_path"`
	AttemptID   string `json:"attempt_id"`
}

// NewThumbnailTask builds the thumbnail generation task for a content hash.
func NewThumbnailTask(sha256, storagePath string) (*asynq.Task, error) {
	payload, err := json.Marshal(ContentPayload{SHA256: sha256, StoragePath: storagePath})
	if err != nil {
		return nil, fmt.Errorf("marshal thumbnail payload: %w", err)
	}
	return asynq.NewTask(TypeThumbnail, payload), nil
}

// NewEXIFTask builds the EXIF extraction task for a content hash.
func NewEXIFTask(sha256, storagePath string) (*asynq.Task, error) {
	payload, err := json.Marshal(ContentPayload{SHA256: sha256, StoragePath: storagePath})
	if err != nil {
		return nil, fmt.Errorf("marshal exif payload: %w", err)
	}
	return asynq.NewTask(TypeEXIF, payload), nil
}

// NewCaptionTask builds the caption task for a content hash and attempt.
func NewCaptionTask(sha256, storagePath, attemptID string) (*asynq.Task, error) {
	payload, err := json.Marshal(CaptionPayload{SHA256: sha256, StoragePath: storagePath, AttemptID: attemptID})
	if err != nil {
		return nil, fmt.Errorf("marshal caption payload: %w", err)
	}
	return asynq.NewTask(TypeCaption, payload), nil
}
