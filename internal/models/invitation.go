package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Invitation struct {
	ID             uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	OrganizationID uuid.UUID      `json:"organizationId" gorm:"type:uuid;index;not null"`
	Email          string         `json:"email" gorm:"not null"`
	Role           string         `json:"role" gorm:"not null;default:'member'"`
	Token          string         `json:"token" gorm:"uniqueIndex;not null"`
	InviterID      uuid.UUID      `json:"inviterId" gorm:"type:uuid;not null"`
	ExpiresAt      *time.Time     `json:"expiresAt"`
	AcceptedAt     *time.Time     `json:"acceptedAt"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`
}

func (i *Invitation) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	if i.Token == "" {
		i.Token = generateInviteToken()
	}
	return nil
}

// IsValid checks if the invitation is still usable
func (i *Invitation) IsValid() bool {
	if i.AcceptedAt != nil {
		return false
	}
	if i.ExpiresAt != nil && time.Now().After(*i.ExpiresAt) {
		return false
	}
	return true
}

func generateInviteToken() string {
	b := make([]byte, 16) // 32 hex chars
	rand.Read(b)
	return hex.EncodeToString(b)
}

type CreateInvitationRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Role      string `json:"role"`
	ExpiresIn int    `json:"expiresIn"` // hours, 0 = never
}

type AcceptInvitationRequest struct {
	Password string `json:"password" validate:"required,min=6"`
	Name     string `json:"name"`
}
