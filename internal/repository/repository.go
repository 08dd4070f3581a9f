package repository

import (
	"context"
	"time"

	"github.com/yukikurage/project-management-api/internal/models"
)

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	// Create creates a new project
	Create(ctx context.Context, project *models.Project) error

	// FindByID finds a project by ID with optional preloading
	FindByID(ctx context.Context, id uint64, preload ...string) (*models.Project, error)

	// List retrieves projects with filtering and pagination
	List(ctx context.Context, filter ProjectFilter) ([]models.Project, int64, error)

	// Update updates a project
	Update(ctx context.Context, project *models.Project) error

	// Delete soft deletes a project and its tasks
	Delete(ctx context.Context, id uint64) error

	// ListAssigneeIDs returns the distinct assignees of the project's tasks
	ListAssigneeIDs(ctx context.Context, projectID uint64) ([]uint64, error)

	// CountByStatus counts projects grouped by status
	CountByStatus(ctx context.Context) (map[models.ProjectStatus]int64, error)
}

// ProjectFilter holds filtering options for listing projects
type ProjectFilter struct {
	Status    *models.ProjectStatus
	CreatedBy *uint64
	Search    string
	Page      int
	PageSize  int
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(ctx context.Context, task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(ctx context.Context, id uint64, preload ...string) (*models.Task, error)

	// List retrieves tasks with filtering and pagination
	List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)

	// Update updates a task
	Update(ctx context.Context, task *models.Task) error

	// Delete soft deletes a task
	Delete(ctx context.Context, id uint64) error

	// CountByStatus counts tasks grouped by status
	CountByStatus(ctx context.Context) (map[models.TaskStatus]int64, error)

	// CountOverdue counts tasks past their due date that are not completed
	CountOverdue(ctx context.Context, now time.Time) (int64, error)

	// TopAssignees returns the users with the most open assigned tasks
	TopAssignees(ctx context.Context, limit int) ([]AssigneeCount, error)
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	ProjectID     *uint64
	Status        *models.TaskStatus
	Priority      *models.TaskPriority
	AssignedTo    *uint64
	CreatedBy     *uint64
	DueDateFrom   *time.Time
	DueDateTo     *time.Time
	SortByDueDate bool
	Page          int
	PageSize      int
}

// AssigneeCount is one row of the open-task ranking
type AssigneeCount struct {
	UserID    uint64
	TaskCount int64
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// CreateWithRole creates a user holding the role with the given slug
	CreateWithRole(ctx context.Context, user *models.User, roleSlug string) error

	// FindByID finds a user by ID with the role preloaded
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByIDs finds the users with the given IDs, in no particular order
	FindByIDs(ctx context.Context, ids []uint64) ([]models.User, error)

	// FindByEmail finds a user by email with the role preloaded
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// List retrieves users with filtering and pagination
	List(ctx context.Context, filter UserFilter) ([]models.User, int64, error)

	// Update updates a user
	Update(ctx context.Context, user *models.User) error

	// Delete soft deletes a user
	Delete(ctx context.Context, id uint64) error
}

// UserFilter holds filtering options for listing users
type UserFilter struct {
	Status   *models.UserStatus
	RoleID   *uint64
	Search   string
	Page     int
	PageSize int
}

// RoleRepository defines the interface for role data access
type RoleRepository interface {
	Create(ctx context.Context, role *models.Role) error
	FindByID(ctx context.Context, id uint64) (*models.Role, error)
	FindBySlug(ctx context.Context, slug string) (*models.Role, error)
	List(ctx context.Context) ([]models.Role, error)
	Update(ctx context.Context, role *models.Role) error
	Delete(ctx context.Context, id uint64) error

	// CountUsers counts users holding the role
	CountUsers(ctx context.Context, roleID uint64) (int64, error)
}
