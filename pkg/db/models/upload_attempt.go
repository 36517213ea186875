package models

import (
	"time"

	"github.com/google/uuid"
)

// UploadAttempt records every upload call, accepted or rejected. A nil
// ContentSHA256 means validation failed before the hash could be trusted.
type UploadAttempt struct {
	ID            uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OriginalName  string    `gorm:"column:original_name;not null"`
	ProcessedAt   time.Time `gorm:"column:processed_at;autoCreateTime"`
	StoragePath   *string   `gorm:"column:storage_path"`
	ContentSHA256 *string   `gorm:"column:content_sha256;size:64"`
	Error         *string   `gorm:"column:error"`

	Content *ContentRecord `gorm:"foreignKey:ContentSHA256;references:SHA256"`
}

// TableName pins the table name independent of GORM pluralization.
func (UploadAttempt) TableName() string {
	return "upload_attempts"
}
