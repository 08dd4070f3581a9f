package middleware

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/project-management-api/internal/constants"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"gorm.io/gorm"
)

const contextKeyTask = "task"

// RequireTaskAccess loads the task named by the :id parameter into the context
func RequireTaskAccess(tasks repository.TaskRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		taskID, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid task ID")
			c.Abort()
			return
		}

		if _, exists := GetUserID(c); !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		task, err := tasks.FindByID(c.Request.Context(), taskID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				apierrors.NotFound(c, "Task not found")
			} else {
				apierrors.InternalError(c, "Failed to load task")
			}
			c.Abort()
			return
		}

		c.Set(contextKeyTask, task)
		c.Next()
	}
}

// RequireTaskStatusPermission allows a status change by users holding
// tasks.update and by the task's assignee. RequireTaskAccess must run first.
func RequireTaskStatusPermission() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := GetUser(c)
		if !ok {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		task, ok := GetTask(c)
		if !ok {
			apierrors.InternalError(c, "Task not loaded")
			c.Abort()
			return
		}

		if user.HasPermission(constants.PermTasksUpdate) || task.IsAssignedTo(user.ID) {
			c.Next()
			return
		}

		apierrors.MissingPermission(c, constants.PermTasksUpdate)
		c.Abort()
	}
}

// GetTask retrieves the task loaded by RequireTaskAccess
func GetTask(c *gin.Context) (*models.Task, bool) {
	value, exists := c.Get(contextKeyTask)
	if !exists {
		return nil, false
	}
	task, ok := value.(*models.Task)
	return task, ok
}
