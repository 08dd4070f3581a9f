package models

import (
	"slices"
	"time"

	"gorm.io/datatypes"
)

type Role struct {
	ID          uint64                      `gorm:"primarykey" json:"id"`
	Slug        string                      `gorm:"type:varchar(100);uniqueIndex;not null" json:"slug"`
	Name        string                      `gorm:"type:varchar(255);not null" json:"name"`
	Permissions datatypes.JSONSlice[string] `json:"permissions"`
	IsActive    bool                        `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time                   `json:"created_at"`
	UpdatedAt   time.Time                   `json:"updated_at"`
}

// HasPermission checks set membership of permission. Inactive roles grant nothing.
func (r *Role) HasPermission(permission string) bool {
	if !r.IsActive {
		return false
	}
	return slices.Contains(r.Permissions, permission)
}
