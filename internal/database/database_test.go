package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/models"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestMigrate_IsRepeatable(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, Migrate(db, zap.NewNop()))
	require.NoError(t, Migrate(db, zap.NewNop()))

	var roles []models.Role
	require.NoError(t, db.Order("id").Find(&roles).Error)
	require.Len(t, roles, 3)
	assert.Equal(t, constants.RoleAdmin, roles[0].Slug)
	assert.ElementsMatch(t, constants.AllPermissions, []string(roles[0].Permissions))

	for _, idx := range []struct{ table, name string }{
		{"tasks", "idx_tasks_project_status"},
		{"tasks", "idx_tasks_assignee_status"},
		{"projects", "idx_projects_creator_status"},
	} {
		assert.True(t, db.Migrator().HasIndex(idx.table, idx.name), idx.name)
	}
}

func TestSeedRoles_KeepsEditedRoles(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, Migrate(db, zap.NewNop()))

	require.NoError(t, db.Model(&models.Role{}).
		Where("slug = ?", constants.RoleMember).
		Update("name", "Contributor").Error)

	require.NoError(t, SeedRoles(db))

	var member models.Role
	require.NoError(t, db.Where("slug = ?", constants.RoleMember).First(&member).Error)
	assert.Equal(t, "Contributor", member.Name)
}

func TestPaginate(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.AutoMigrate(&models.Role{}))
	for _, slug := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, db.Create(&models.Role{Slug: slug, Name: slug, IsActive: true}).Error)
	}

	tests := []struct {
		name     string
		page     int
		pageSize int
		want     []string
	}{
		{"first page", 1, 2, []string{"a", "b"}},
		{"last partial page", 3, 2, []string{"e"}},
		{"past the end", 4, 2, []string{}},
		{"unpaginated", 0, 0, []string{"a", "b", "c", "d", "e"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var slugs []string
			require.NoError(t, db.Model(&models.Role{}).
				Order("id").
				Scopes(Paginate(tt.page, tt.pageSize)).
				Pluck("slug", &slugs).Error)
			if len(tt.want) == 0 {
				assert.Empty(t, slugs)
				return
			}
			assert.Equal(t, tt.want, slugs)
		})
	}
}
