package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Department struct {
	ID             uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	OrganizationID uuid.UUID      `json:"organizationId" gorm:"type:uuid;index;not null"`
	Name           string         `json:"name" gorm:"not null"`
	Description    string         `json:"description"`
	LeadID         *uuid.UUID     `json:"leadId" gorm:"type:uuid"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`

	Lead *User `json:"lead,omitempty" gorm:"foreignKey:LeadID"`
}

func (d *Department) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

type CreateDepartmentRequest struct {
	Name        string     `json:"name" validate:"required"`
	Description string     `json:"description"`
	LeadID      *uuid.UUID `json:"leadId"`
}

type UpdateDepartmentRequest struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	LeadID      *uuid.UUID `json:"leadId"`
}
