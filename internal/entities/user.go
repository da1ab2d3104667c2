package entities

import (
	"time"

	"gorm.io/gorm"
)

type UserRole string

const (
	UserRoleAdmin  UserRole = "admin"
	UserRoleStaff  UserRole = "staff"
	UserRoleMember UserRole = "member"
)

// IsStaff reports whether the role grants inventory privileges.
func (r UserRole) IsStaff() bool {
	return r == UserRoleAdmin || r == UserRoleStaff
}

type User struct {
	ID           uint     `gorm:"primaryKey" json:"id"`
	Username     string   `gorm:"uniqueIndex;size:100" json:"username"`
	Email        string   `gorm:"uniqueIndex;size:255" json:"email"`
	PasswordHash string   `gorm:"size:100" json:"-"`
	Role         UserRole `gorm:"size:20;default:'member'" json:"role"`

	// API token (only the hash is stored)
	TokenHash      string     `gorm:"index;size:64" json:"-"`
	TokenCreatedAt *time.Time `json:"-"`

	// Login tracking
	LastLoginAt      *time.Time `json:"last_login_at,omitempty"`
	FailedLoginCount int        `gorm:"default:0" json:"-"`
	LockedUntil      *time.Time `json:"-"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}
