package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/martinsandoval/imagevault-backend/pkg/enums"
)

// ProcessingOutcome tracks the terminal result of one upload attempt. Created
// alongside the attempt; EndedAt stays nil until validation rejects the upload
// or the caption job, the last stage, completes.
type ProcessingOutcome struct {
	AttemptID uuid.UUID           `gorm:"column:attempt_id;type:uuid;primaryKey"`
	StartedAt time.Time           `gorm:"column:started_at;autoCreateTime"`
	EndedAt   *time.Time          `gorm:"column:ended_at"`
	Status    enums.OutcomeStatus `gorm:"column:status;not null"`
}

// TableName pins the table name independent of GORM pluralization.
func (ProcessingOutcome) TableName() string {
	return "processing_outcomes"
}
