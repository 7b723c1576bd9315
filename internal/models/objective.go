package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Objective struct {
	ID                 uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	OrganizationID     uuid.UUID      `json:"organizationId" gorm:"type:uuid;index;not null"`
	Title              string         `json:"title" gorm:"not null"`
	Description        string         `json:"description" gorm:"type:text"`
	OwnerID            uuid.UUID      `json:"ownerId" gorm:"type:uuid;index;not null"`
	DepartmentID       *uuid.UUID     `json:"departmentId" gorm:"type:uuid;index"`
	ParentID           *uuid.UUID     `json:"parentId" gorm:"type:uuid;index"`
	Status             string         `json:"status" gorm:"not null;default:'draft'"` // draft, active, on_hold, completed
	Priority           string         `json:"priority" gorm:"not null;default:'medium'"` // low, medium, high
	StartDate          *time.Time     `json:"startDate"`
	DueDate            *time.Time     `json:"dueDate"`
	TargetValue        float64        `json:"targetValue" gorm:"default:100"`
	CurrentValue       float64        `json:"currentValue" gorm:"default:0"`
	ProgressPercentage float64        `json:"progressPercentage" gorm:"default:0"`
	Tags               *string        `json:"-"` // JSON array of strings
	CompletedAt        *time.Time     `json:"completedAt"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
	DeletedAt          gorm.DeletedAt `json:"-" gorm:"index"`

	Owner      *User       `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	KeyResults []KeyResult `json:"keyResults,omitempty" gorm:"foreignKey:ObjectiveID"`
	Children   []Objective `json:"children,omitempty" gorm:"foreignKey:ParentID"`
}

func (o *Objective) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// TagList decodes the stored tags column. A missing or malformed column is an
// empty list.
func (o *Objective) TagList() []string {
	if o.Tags == nil {
		return []string{}
	}
	var tags []string
	if err := json.Unmarshal([]byte(*o.Tags), &tags); err != nil {
		return []string{}
	}
	return tags
}

func (o *Objective) SetTags(tags []string) {
	data, err := json.Marshal(tags)
	if err != nil {
		return
	}
	s := string(data)
	o.Tags = &s
}

// MarshalJSON surfaces tags as a real array in API responses.
func (o Objective) MarshalJSON() ([]byte, error) {
	type alias Objective
	return json.Marshal(struct {
		alias
		Tags []string `json:"tags"`
	}{alias(o), o.TagList()})
}

var (
	ValidObjectiveStatuses = map[string]bool{"draft": true, "active": true, "on_hold": true, "completed": true}
	ValidPriorities        = map[string]bool{"low": true, "medium": true, "high": true}
)

// Objective DTOs
type CreateObjectiveRequest struct {
	Title        string     `json:"title" validate:"required"`
	Description  string     `json:"description"`
	OwnerID      *uuid.UUID `json:"ownerId"`
	DepartmentID *uuid.UUID `json:"departmentId"`
	ParentID     *uuid.UUID `json:"parentId"`
	Status       *string    `json:"status"`
	Priority     *string    `json:"priority"`
	StartDate    *time.Time `json:"startDate"`
	DueDate      *time.Time `json:"dueDate"`
	TargetValue  *float64   `json:"targetValue"`
	Tags         []string   `json:"tags"`
}

type UpdateObjectiveRequest struct {
	Title        *string    `json:"title"`
	Description  *string    `json:"description"`
	OwnerID      *uuid.UUID `json:"ownerId"`
	DepartmentID *uuid.UUID `json:"departmentId"`
	ParentID     *uuid.UUID `json:"parentId"`
	Status       *string    `json:"status"`
	Priority     *string    `json:"priority"`
	StartDate    *time.Time `json:"startDate"`
	DueDate      *time.Time `json:"dueDate"`
	TargetValue  *float64   `json:"targetValue"`
	Tags         []string   `json:"tags"`
}

type PatchProgressRequest struct {
	CurrentValue *float64 `json:"currentValue" validate:"required"`
	Note         string   `json:"note"`
}
