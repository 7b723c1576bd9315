package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment belongs to an objective. A nil UserID marks a system-generated
// comment, e.g. webhook narration.
type Comment struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	ObjectiveID uuid.UUID      `json:"objectiveId" gorm:"type:uuid;index;not null"`
	UserID      *uuid.UUID     `json:"userId" gorm:"type:uuid"`
	Content     string         `json:"content" gorm:"type:text;not null"`
	MediaURL    *string        `json:"mediaUrl"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	User *User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

type CreateCommentRequest struct {
	Content  string  `json:"content"`
	MediaURL *string `json:"mediaUrl"`
}
