package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Notification struct {
	ID               uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	UserID           uuid.UUID      `json:"userId" gorm:"type:uuid;index;not null"`
	Type             string         `json:"type" gorm:"not null"` // mention, comment, progress_update, objective_update
	Title            string         `json:"title" gorm:"not null"`
	Body             string         `json:"body"`
	Read             bool           `json:"read" gorm:"default:false"`
	ObjectiveID      *uuid.UUID     `json:"objectiveId" gorm:"type:uuid"`
	CommentID        *uuid.UUID     `json:"commentId" gorm:"type:uuid"`
	ProgressUpdateID *uuid.UUID     `json:"progressUpdateId" gorm:"type:uuid"`
	CreatedAt        time.Time      `json:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"`
	DeletedAt        gorm.DeletedAt `json:"-" gorm:"index"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	return nil
}
