package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// WebhookIntegration is a per-objective inbound endpoint identity. WebhookID
// is the public identifier in the receiver URL; Secret is the HMAC key.
type WebhookIntegration struct {
	ID             uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	ObjectiveID    uuid.UUID      `json:"objectiveId" gorm:"type:uuid;index;not null"`
	WebhookID      string         `json:"webhookId" gorm:"uniqueIndex;not null"`
	Secret         string         `json:"secret"`
	FieldMapping   *string        `json:"fieldMapping"` // JSON object: internal field -> payload.* path
	Status         string         `json:"status" gorm:"not null;default:'active'"` // active, inactive
	FailureCount   int            `json:"failureCount" gorm:"default:0"`
	LastReceivedAt *time.Time     `json:"lastReceivedAt"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`
}

func (w *WebhookIntegration) BeforeCreate(tx *gorm.DB) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	if w.WebhookID == "" {
		w.WebhookID = generateWebhookID()
	}
	if w.Secret == "" {
		w.Secret = generateWebhookSecret()
	}
	return nil
}

func generateWebhookID() string {
	b := make([]byte, 16) // 32 hex chars
	rand.Read(b)
	return hex.EncodeToString(b)
}

func generateWebhookSecret() string {
	b := make([]byte, 24) // 48 hex chars
	rand.Read(b)
	return hex.EncodeToString(b)
}

// WebhookEvent is the immutable log of one inbound delivery.
type WebhookEvent struct {
	ID             uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	IntegrationID  uuid.UUID      `json:"integrationId" gorm:"type:uuid;index;not null"`
	Payload        string         `json:"payload" gorm:"type:text"`
	Headers        string         `json:"headers" gorm:"type:text"` // JSON object snapshot
	Processed      bool           `json:"processed" gorm:"default:false"`
	ErrorMessage   *string        `json:"errorMessage"`
	PreviousValues *string        `json:"previousValues"` // JSON snapshot before mutation
	NewValues      *string        `json:"newValues"`      // JSON snapshot after mutation
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`
}

func (e *WebhookEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// Webhook DTOs
type CreateWebhookRequest struct {
	ObjectiveID  uuid.UUID         `json:"objectiveId" validate:"required"`
	FieldMapping map[string]string `json:"fieldMapping"`
	Secret       string            `json:"secret"`
}

type UpdateWebhookRequest struct {
	FieldMapping map[string]string `json:"fieldMapping"`
	Status       *string           `json:"status"`
	Secret       *string           `json:"secret"`
}
