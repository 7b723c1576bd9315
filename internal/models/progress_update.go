package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProgressUpdate is an immutable audit row for one value transition on an
// objective. A nil UserID marks a system or webhook-originated change.
type ProgressUpdate struct {
	ID               uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	ObjectiveID      uuid.UUID      `json:"objectiveId" gorm:"type:uuid;index;not null"`
	UserID           *uuid.UUID     `json:"userId" gorm:"type:uuid"`
	PreviousValue    float64        `json:"previousValue"`
	NewValue         float64        `json:"newValue"`
	PreviousProgress float64        `json:"previousProgress"`
	NewProgress      float64        `json:"newProgress"`
	Note             string         `json:"note"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
	DeletedAt        gorm.DeletedAt `json:"-" gorm:"index"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (p *ProgressUpdate) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
