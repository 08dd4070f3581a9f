package models

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
	UserStatusBlocked  UserStatus = "blocked"
)

func (s UserStatus) Valid() bool {
	switch s {
	case UserStatusActive, UserStatusInactive, UserStatusBlocked:
		return true
	}
	return false
}

type User struct {
	ID           uint64         `gorm:"primarykey" json:"id"`
	FirstName    string         `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName     string         `gorm:"type:varchar(100);not null" json:"last_name"`
	Email        string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"column:password;type:varchar(255);not null" json:"-"`
	RoleID       *uint64        `gorm:"index" json:"role_id"`
	Status       UserStatus     `gorm:"type:varchar(20);not null;default:'active'" json:"status"`
	Avatar       string         `gorm:"type:varchar(255)" json:"avatar"`
	Phone        string         `gorm:"type:varchar(50)" json:"phone"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Role            *Role     `gorm:"foreignKey:RoleID" json:"role,omitempty"`
	CreatedProjects []Project `gorm:"foreignKey:CreatedBy" json:"-"`
	CreatedTasks    []Task    `gorm:"foreignKey:CreatedBy" json:"-"`
	AssignedTasks   []Task    `gorm:"foreignKey:AssignedTo" json:"-"`
}

// FullName returns "First Last", falling back to the email when both are empty.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// IsActive reports whether the user may authenticate.
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}

// HasPermission reports whether the user's role grants permission.
// Users without a loaded, active role have no permissions.
func (u *User) HasPermission(permission string) bool {
	if u.Role == nil {
		return false
	}
	return u.Role.HasPermission(permission)
}
