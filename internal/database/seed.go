package database

import (
	"errors"
	"fmt"

	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DefaultRoles returns the roles created on first migration.
func DefaultRoles() []models.Role {
	return []models.Role{
		{
			Slug:        constants.RoleAdmin,
			Name:        "Administrator",
			Permissions: datatypes.JSONSlice[string](append([]string(nil), constants.AllPermissions...)),
			IsActive:    true,
		},
		{
			Slug: constants.RoleManager,
			Name: "Project Manager",
			Permissions: datatypes.JSONSlice[string]{
				constants.PermProjectsView, constants.PermProjectsCreate, constants.PermProjectsUpdate, constants.PermProjectsDelete,
				constants.PermTasksView, constants.PermTasksCreate, constants.PermTasksUpdate, constants.PermTasksDelete, constants.PermTasksAssign,
				constants.PermUsersView,
				constants.PermStatisticsView,
			},
			IsActive: true,
		},
		{
			Slug: constants.RoleMember,
			Name: "Member",
			Permissions: datatypes.JSONSlice[string]{
				constants.PermProjectsView,
				constants.PermTasksView, constants.PermTasksCreate,
			},
			IsActive: true,
		},
	}
}

// SeedRoles inserts the default roles that do not exist yet. Existing roles are left untouched.
func SeedRoles(db *gorm.DB) error {
	for _, role := range DefaultRoles() {
		var existing models.Role
		err := db.Where("slug = ?", role.Slug).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to look up role %s: %w", role.Slug, err)
		}
		if err := db.Create(&role).Error; err != nil {
			return fmt.Errorf("failed to create role %s: %w", role.Slug, err)
		}
	}
	return nil
}
