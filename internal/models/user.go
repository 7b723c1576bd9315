package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID             uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	OrganizationID uuid.UUID      `json:"organizationId" gorm:"type:uuid;index;not null"`
	Email          string         `json:"email" gorm:"uniqueIndex;not null"`
	Password       string         `json:"-"`
	Name           string         `json:"name"`
	Role           string         `json:"role" gorm:"not null;default:'member'"` // admin, manager, member
	AvatarURL      string         `json:"avatarUrl"`
	DepartmentID   *uuid.UUID     `json:"departmentId" gorm:"type:uuid"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

var ValidRoles = map[string]bool{"admin": true, "manager": true, "member": true}

// Auth DTOs
type RegisterRequest struct {
	Email            string `json:"email" validate:"required,email"`
	Password         string `json:"password" validate:"required,min=6"`
	Name             string `json:"name"`
	OrganizationName string `json:"organizationName" validate:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type UpdateProfileRequest struct {
	Name         *string    `json:"name"`
	AvatarURL    *string    `json:"avatarUrl"`
	DepartmentID *uuid.UUID `json:"departmentId"`
}

type UpdateUserRequest struct {
	Name         *string    `json:"name"`
	Role         *string    `json:"role"`
	DepartmentID *uuid.UUID `json:"departmentId"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
