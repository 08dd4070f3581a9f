package dto

import (
	"time"

	"github.com/yukikurage/project-management-api/internal/models"
)

// RoleDTO represents a role in API responses
type RoleDTO struct {
	ID          uint64    `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	Permissions []string  `json:"permissions"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ToRoleDTO converts a Role model to RoleDTO
func ToRoleDTO(role models.Role) RoleDTO {
	permissions := []string(role.Permissions)
	if permissions == nil {
		permissions = []string{}
	}

	return RoleDTO{
		ID:          role.ID,
		Slug:        role.Slug,
		Name:        role.Name,
		Permissions: permissions,
		IsActive:    role.IsActive,
		CreatedAt:   role.CreatedAt,
		UpdatedAt:   role.UpdatedAt,
	}
}

// ToRoleDTOs converts roles to RoleDTOs
func ToRoleDTOs(roles []models.Role) []RoleDTO {
	items := make([]RoleDTO, len(roles))
	for i, role := range roles {
		items[i] = ToRoleDTO(role)
	}
	return items
}
