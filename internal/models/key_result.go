package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type KeyResult struct {
	ID                 uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	ObjectiveID        uuid.UUID      `json:"objectiveId" gorm:"type:uuid;index;not null"`
	Title              string         `json:"title" gorm:"not null"`
	Unit               string         `json:"unit"`
	Status             string         `json:"status" gorm:"not null;default:'active'"` // active, completed, at_risk
	TargetValue        float64        `json:"targetValue" gorm:"default:100"`
	CurrentValue       float64        `json:"currentValue" gorm:"default:0"`
	ProgressPercentage float64        `json:"progressPercentage" gorm:"default:0"`
	AutoUpdateProgress bool           `json:"autoUpdateProgress" gorm:"default:true"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
	DeletedAt          gorm.DeletedAt `json:"-" gorm:"index"`
}

func (kr *KeyResult) BeforeCreate(tx *gorm.DB) error {
	if kr.ID == uuid.Nil {
		kr.ID = uuid.New()
	}
	return nil
}

// RecomputeProgress derives progress from current/target, clamped to [0,100].
// A non-positive target yields 0.
func (kr *KeyResult) RecomputeProgress() {
	if kr.TargetValue <= 0 {
		kr.ProgressPercentage = 0
		return
	}
	progress := kr.CurrentValue / kr.TargetValue * 100
	if progress > 100 {
		progress = 100
	}
	if progress < 0 {
		progress = 0
	}
	kr.ProgressPercentage = progress
}

// KeyResult DTOs
type CreateKeyResultRequest struct {
	Title              string   `json:"title" validate:"required"`
	Unit               string   `json:"unit"`
	TargetValue        *float64 `json:"targetValue"`
	CurrentValue       *float64 `json:"currentValue"`
	AutoUpdateProgress *bool    `json:"autoUpdateProgress"`
}

type UpdateKeyResultRequest struct {
	Title              *string  `json:"title"`
	Unit               *string  `json:"unit"`
	Status             *string  `json:"status"`
	TargetValue        *float64 `json:"targetValue"`
	CurrentValue       *float64 `json:"currentValue"`
	AutoUpdateProgress *bool    `json:"autoUpdateProgress"`
}
