package ingest

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/martinsandoval/imagevault-backend/pkg/db/models"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// ImagesBasePath is where the router mounts the image resources. Thumbnail
// links are generated against it, so the two must never diverge.
const ImagesBasePath = "/api/v1/images"

// Item is the canonical per-upload response shape. Status discriminates the
// two variants: failed items carry a non-nil Error and empty metadata,
// successful ones carry populated Metadata and thumbnail links.
type Item struct {
	Status string   `json:"status"`
	Data   ItemData `json:"data"`
	Error  *string  `json:"error"`
}

type ItemData struct {
	ImageID      string            `json:"image_id"`
	OriginalName string            `json:"original_name"`
	ProcessedAt  string            `json:"processed_at"`
	ImagePath    *string           `json:"image_path,omitempty"`
	Metadata     map[string]any    `json:"metadata"`
	Thumbnails   map[string]string `json:"thumbnails"`
}

func thumbnailLinks(baseURL, imageID string) map[string]string {
	base := strings.TrimRight(baseURL, "/")
	return map[string]string{
		"small":  fmt.Sprintf("%s%s/%s/thumbnails/small", base, ImagesBasePath, imageID),
		"medium": fmt.Sprintf("%s%s/%s/thumbnails/medium", base, ImagesBasePath, imageID),
	}
}

func failedItem(attempt *models.UploadAttempt) *Item {
	msg := "unknown error"
	if attempt.Error != nil {
		msg = *attempt.Error
	}
	return &Item{
		Status: StatusFailed,
		Data: ItemData{
			ImageID:      attempt.ID.String(),
			OriginalName: attempt.OriginalName,
			ProcessedAt:  attempt.ProcessedAt.UTC().Format(time.RFC3339),
			Metadata:     map[string]any{},
			Thumbnails:   map[string]string{},
		},
		Error: &msg,
	}
}

func successItem(attempt *models.UploadAttempt, baseURL string) *Item {
	metadata := map[string]any{}
	if rec := attempt.Content; rec != nil {
		metadata["width"] = rec.Width
		metadata["height"] = rec.Height
		metadata["format"] = rec.Format
		metadata["size_bytes"] = rec.SizeBytes
		metadata["sha256"] = rec.SHA256
		metadata["first_upload"] = rec.FirstSeenAt.UTC().Format(time.RFC3339)
		if rec.Caption != nil {
			metadata["caption"] = *rec.Caption
		}
		if rec.EXIF != nil {
			metadata["exif_json"] = decodeEXIF(*rec.EXIF)
		}
	}
	return &Item{
		Status: StatusSuccess,
		Data: ItemData{
			ImageID:      attempt.ID.String(),
			OriginalName: attempt.OriginalName,
			ProcessedAt:  attempt.ProcessedAt.UTC().Format(time.RFC3339),
			Metadata:     metadata,
			Thumbnails:   thumbnailLinks(baseURL, attempt.ID.String()),
		},
		Error: nil,
	}
}

// decodeEXIF re-hydrates the stored JSON document. Rows written before the
// json column was enforced may hold arbitrary text; those surface under _raw.
func decodeEXIF(stored string) any {
	var decoded any
	if err := json.Unmarshal([]byte(stored), &decoded); err != nil {
		return map[string]any{"_raw": stored}
	}
	return decoded
}

// ItemFor renders an attempt into its response shape. Attempts with no
// associated content hash are permanent validation failures.
func ItemFor(attempt *models.UploadAttempt, baseURL string) *Item {
	if attempt.ContentSHA256 == nil {
		return failedItem(attempt)
	}
	return successItem(attempt, baseURL)
}
