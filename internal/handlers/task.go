package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/dto"
	apierrors "github.com/yukikurage/project-management-api/internal/errors"
	"github.com/yukikurage/project-management-api/internal/middleware"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/services"
	"github.com/yukikurage/project-management-api/internal/utils"
	"go.uber.org/zap"
)

// TaskHandler handles task endpoints
type TaskHandler struct {
	taskService *services.TaskService
	logger      *zap.Logger
	now         func() time.Time
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(taskService *services.TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
		logger:      logger,
		now:         time.Now,
	}
}

// taskFilterFromQuery reads status, priority, assigned_to, created_by,
// assigned_to_me, due_today and sort from the query string
func taskFilterFromQuery(c *gin.Context) (services.ListTasksInput, bool) {
	var input services.ListTasksInput

	if status := c.Query("status"); status != "" {
		s := models.TaskStatus(status)
		input.Status = &s
	}
	if priority := c.Query("priority"); priority != "" {
		p := models.TaskPriority(priority)
		input.Priority = &p
	}

	var ok bool
	if input.AssignedTo, ok = optionalUint(c, "assigned_to"); !ok {
		return input, false
	}
	if input.CreatedBy, ok = optionalUint(c, "created_by"); !ok {
		return input, false
	}

	if c.Query("assigned_to_me") == "true" {
		if userID, exists := middleware.GetUserID(c); exists {
			input.AssignedTo = &userID
		}
	}
	input.DueToday = c.Query("due_today") == "true"
	input.SortByDueDate = c.Query("sort") == "due_date"

	return input, true
}

// ListTasks lists tasks across projects
func (h *TaskHandler) ListTasks(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	input, ok := taskFilterFromQuery(c)
	if !ok {
		return
	}
	if input.ProjectID, ok = optionalUint(c, "project_id"); !ok {
		return
	}
	input.Page = params.Page
	input.PageSize = params.Limit

	tasks, total, err := h.taskService.ListTasks(c.Request.Context(), input)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(tasks, params, total, h.now()))
}

// GetTask returns a task with its project, assignee and creator
func (h *TaskHandler) GetTask(c *gin.Context) {
	taskID, ok := idParam(c, "task")
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(c.Request.Context(), taskID)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task, h.now()))
}

// CreateTask creates a task
func (h *TaskHandler) CreateTask(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}

	type CreateTaskRequest struct {
		Title       string              `json:"title" binding:"required,max=255"`
		Description string              `json:"description"`
		Status      models.TaskStatus   `json:"status" binding:"omitempty,oneof=pending in_progress completed"`
		Priority    models.TaskPriority `json:"priority" binding:"omitempty,oneof=low medium high"`
		ProjectID   uint64              `json:"project_id" binding:"required"`
		AssignedTo  *uint64             `json:"assigned_to"`
		DueDate     *time.Time          `json:"due_date"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequestWithDetails(c, "Invalid request body", validationDetails(err))
		return
	}

	if req.AssignedTo != nil && !user.HasPermission(constants.PermTasksAssign) {
		apierrors.MissingPermission(c, constants.PermTasksAssign)
		return
	}

	task, err := h.taskService.CreateTask(c.Request.Context(), services.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		ProjectID:   req.ProjectID,
		AssignedTo:  req.AssignedTo,
		DueDate:     req.DueDate,
	}, user)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task, h.now()))
}

// UpdateTask updates the fields present in the request. Sending null for
// due_date or assigned_to clears it.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := idParam(c, "task")
	if !ok {
		return
	}

	type UpdateTaskRequest struct {
		Title       *string              `json:"title" binding:"omitempty,max=255"`
		Description *string              `json:"description"`
		Status      *models.TaskStatus   `json:"status" binding:"omitempty,oneof=pending in_progress completed"`
		Priority    *models.TaskPriority `json:"priority" binding:"omitempty,oneof=low medium high"`
		AssignedTo  *uint64              `json:"assigned_to"`
		DueDate     *time.Time           `json:"due_date"`
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindBodyWith(&req, binding.JSON); err != nil {
		apierrors.BadRequestWithDetails(c, "Invalid request body", validationDetails(err))
		return
	}

	// Parse raw JSON to detect which fields were sent
	var raw map[string]any
	if err := c.ShouldBindBodyWith(&raw, binding.JSON); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}
	dueDateValue, dueDateSent := raw["due_date"]
	assigneeValue, assigneeSent := raw["assigned_to"]

	if assigneeSent && !user.HasPermission(constants.PermTasksAssign) {
		apierrors.MissingPermission(c, constants.PermTasksAssign)
		return
	}

	task, err := h.taskService.UpdateTask(c.Request.Context(), taskID, services.UpdateTaskInput{
		Title:        req.Title,
		Description:  req.Description,
		Status:       req.Status,
		Priority:     req.Priority,
		AssignedTo:   req.AssignedTo,
		Unassign:     assigneeSent && assigneeValue == nil,
		DueDate:      req.DueDate,
		ClearDueDate: dueDateSent && dueDateValue == nil,
	}, user)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task, h.now()))
}

// UpdateTaskStatus changes the task status
func (h *TaskHandler) UpdateTaskStatus(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	type UpdateStatusRequest struct {
		Status models.TaskStatus `json:"status" binding:"required,oneof=pending in_progress completed"`
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequestWithDetails(c, "Invalid request body", validationDetails(err))
		return
	}

	updated, err := h.taskService.UpdateStatus(c.Request.Context(), task.ID, req.Status, user)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*updated, h.now()))
}

// AssignTask assigns the task to a user
func (h *TaskHandler) AssignTask(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := idParam(c, "task")
	if !ok {
		return
	}

	type AssignRequest struct {
		UserID uint64 `json:"user_id" binding:"required"`
	}

	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.AssignTask(c.Request.Context(), taskID, req.UserID, user)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task, h.now()))
}

// UnassignTask clears the task assignee
func (h *TaskHandler) UnassignTask(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	taskID, ok := idParam(c, "task")
	if !ok {
		return
	}

	task, err := h.taskService.UnassignTask(c.Request.Context(), taskID, user)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task, h.now()))
}

// DeleteTask deletes a task
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	taskID, ok := idParam(c, "task")
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(c.Request.Context(), taskID); err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Task deleted successfully",
	})
}
