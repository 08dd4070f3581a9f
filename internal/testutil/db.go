// Package testutil holds fixtures shared by package tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yukikurage/project-management-api/internal/database"
	"github.com/yukikurage/project-management-api/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDB opens a migrated in-memory SQLite database with the default roles seeded.
// The pool is pinned to one connection so every query sees the same memory database.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db, zap.NewNop()))

	t.Cleanup(func() {
		_ = sqlDB.Close()
	})
	return db
}

// Role loads a seeded role by slug.
func Role(t testing.TB, db *gorm.DB, slug string) *models.Role {
	t.Helper()

	var role models.Role
	require.NoError(t, db.Where("slug = ?", slug).First(&role).Error)
	return &role
}

// CreateUser inserts an active user holding the role with roleSlug.
// An empty roleSlug creates a user without a role.
func CreateUser(t testing.TB, db *gorm.DB, email, roleSlug string) *models.User {
	t.Helper()

	user := &models.User{
		FirstName:    "Test",
		LastName:     email,
		Email:        email,
		PasswordHash: "hashedpassword",
		Status:       models.UserStatusActive,
	}
	if roleSlug != "" {
		role := Role(t, db, roleSlug)
		user.RoleID = &role.ID
		user.Role = role
	}
	require.NoError(t, db.Omit("Role").Create(user).Error)
	return user
}

// CreateProject inserts an active project owned by creator.
func CreateProject(t testing.TB, db *gorm.DB, name string, creator *models.User) *models.Project {
	t.Helper()

	project := &models.Project{
		Name:        name,
		Description: fmt.Sprintf("%s description", name),
		Status:      models.ProjectStatusActive,
		CreatedBy:   creator.ID,
	}
	require.NoError(t, db.Omit("Creator", "Tasks").Create(project).Error)
	return project
}

// CreateTask inserts a pending task in project. A nil assignee leaves it unassigned.
func CreateTask(t testing.TB, db *gorm.DB, title string, project *models.Project, creator, assignee *models.User) *models.Task {
	t.Helper()

	task := &models.Task{
		Title:     title,
		Status:    models.TaskStatusPending,
		Priority:  models.TaskPriorityMedium,
		ProjectID: project.ID,
		CreatedBy: creator.ID,
	}
	if assignee != nil {
		task.AssignedTo = &assignee.ID
	}
	require.NoError(t, db.Omit("Project", "Assignee", "Creator").Create(task).Error)
	return task
}
