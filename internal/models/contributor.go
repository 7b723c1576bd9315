package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ObjectiveContributor links a user to an objective they contribute to.
type ObjectiveContributor struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	ObjectiveID uuid.UUID      `json:"objectiveId" gorm:"type:uuid;not null;uniqueIndex:idx_objective_contributor"`
	UserID      uuid.UUID      `json:"userId" gorm:"type:uuid;not null;uniqueIndex:idx_objective_contributor"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`

	User User `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

func (oc *ObjectiveContributor) BeforeCreate(tx *gorm.DB) error {
	if oc.ID == uuid.Nil {
		oc.ID = uuid.New()
	}
	return nil
}

// ObjectiveSubscription marks a user watching an objective for notifications.
type ObjectiveSubscription struct {
	ID          uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	ObjectiveID uuid.UUID      `json:"objectiveId" gorm:"type:uuid;not null;uniqueIndex:idx_objective_subscriber"`
	UserID      uuid.UUID      `json:"userId" gorm:"type:uuid;not null;uniqueIndex:idx_objective_subscriber"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	DeletedAt   gorm.DeletedAt `json:"-" gorm:"index"`
}

func (os *ObjectiveSubscription) BeforeCreate(tx *gorm.DB) error {
	if os.ID == uuid.Nil {
		os.ID = uuid.New()
	}
	return nil
}
