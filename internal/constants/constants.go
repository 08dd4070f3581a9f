package constants

const (
	// ContextKeyUserID is the gin context key holding the authenticated user ID.
	ContextKeyUserID = "user_id"
	// ContextKeyUser is the gin context key holding the authenticated *models.User.
	ContextKeyUser = "user"
	// ContextKeyTokenID is the gin context key holding the JWT ID of the current token.
	ContextKeyTokenID = "token_id"

	MinPasswordLength = 8

	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100

	MaxAIGeneratedTasks = 20
)

// Permissions
const (
	PermProjectsView   = "projects.view"
	PermProjectsCreate = "projects.create"
	PermProjectsUpdate = "projects.update"
	PermProjectsDelete = "projects.delete"

	PermTasksView   = "tasks.view"
	PermTasksCreate = "tasks.create"
	PermTasksUpdate = "tasks.update"
	PermTasksDelete = "tasks.delete"
	PermTasksAssign = "tasks.assign"

	PermUsersView   = "users.view"
	PermUsersCreate = "users.create"
	PermUsersUpdate = "users.update"
	PermUsersDelete = "users.delete"

	PermRolesView   = "roles.view"
	PermRolesManage = "roles.manage"

	PermStatisticsView = "statistics.view"
)

// AllPermissions lists every permission known to the API, in display order.
var AllPermissions = []string{
	PermProjectsView, PermProjectsCreate, PermProjectsUpdate, PermProjectsDelete,
	PermTasksView, PermTasksCreate, PermTasksUpdate, PermTasksDelete, PermTasksAssign,
	PermUsersView, PermUsersCreate, PermUsersUpdate, PermUsersDelete,
	PermRolesView, PermRolesManage,
	PermStatisticsView,
}

// Role slugs seeded on first migration.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleMember  = "member"
)
