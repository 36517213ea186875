package models

import "time"

// ContentRecord is the dedup anchor: one row per unique payload, keyed by the
// SHA-256 of the raw uploaded bytes. The ingestion path creates it; only the
// processing jobs mutate it afterwards.
type ContentRecord struct {
	SHA256      string    `gorm:"column:sha256;primaryKey;size:64"`
	Width       int       `gorm:"column:width;not null"`
	Height      int       `gorm:"column:height;not null"`
	Format      string    `gorm:"column:format;not null"`
	SizeBytes   int64     `gorm:"column:size_bytes;not null"`
	FirstSeenAt time.Time `gorm:"column:first_seen_at;autoCreateTime"`
	EXIF        *string   `gorm:"column:exif_json"`
	Caption     *string   `gorm:"column:caption"`
}

// TableName pins the table name independent of GORM pluralization.
func (ContentRecord) TableName() string {
	return "content_records"
}
