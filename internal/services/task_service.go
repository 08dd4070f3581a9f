package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/project-management-api/internal/cache"
	"github.com/yukikurage/project-management-api/internal/constants"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/observers"
	"github.com/yukikurage/project-management-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound           = errors.New("task not found")
	ErrTitleRequired          = errors.New("title is required")
	ErrTitleEmpty             = errors.New("title cannot be empty")
	ErrInvalidTaskStatus      = errors.New("invalid task status")
	ErrInvalidTaskPriority    = errors.New("invalid task priority")
	ErrInvalidTaskAssignee    = errors.New("assignee does not exist or is not active")
	ErrAIServiceNotConfigured = errors.New("AI service is not configured")
	ErrAINoTasksGenerated     = errors.New("AI did not generate any tasks")
	ErrAINoValidTasks         = errors.New("no valid tasks could be created from AI output")
)

// taskPreloads are the relations returned with a single task
var taskPreloads = []string{"Project", "Assignee", "Creator"}

// TaskService handles task business logic
type TaskService struct {
	taskRepo    repository.TaskRepository
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
	observer    *observers.TaskObserver
	cache       *cache.Tagged
	suggester   TaskSuggester
	now         func() time.Time
}

// NewTaskService creates a new TaskService. cache and suggester may be nil.
func NewTaskService(
	taskRepo repository.TaskRepository,
	projectRepo repository.ProjectRepository,
	userRepo repository.UserRepository,
	observer *observers.TaskObserver,
	c *cache.Tagged,
	suggester TaskSuggester,
) *TaskService {
	return &TaskService{
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
		userRepo:    userRepo,
		observer:    observer,
		cache:       c,
		suggester:   suggester,
		now:         time.Now,
	}
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	ProjectID     *uint64
	Status        *models.TaskStatus
	Priority      *models.TaskPriority
	AssignedTo    *uint64
	CreatedBy     *uint64
	DueToday      bool
	SortByDueDate bool
	Page          int
	PageSize      int
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title       string
	Description string
	Status      models.TaskStatus
	Priority    models.TaskPriority
	ProjectID   uint64
	AssignedTo  *uint64
	DueDate     *time.Time
}

// UpdateTaskInput represents input for updating a task
type UpdateTaskInput struct {
	Title        *string
	Description  *string
	Status       *models.TaskStatus
	Priority     *models.TaskPriority
	AssignedTo   *uint64
	Unassign     bool
	DueDate      *time.Time
	ClearDueDate bool
}

// ListTasks returns tasks matching the filters
func (s *TaskService) ListTasks(ctx context.Context, input ListTasksInput) ([]models.Task, int64, error) {
	if input.Status != nil && !input.Status.Valid() {
		return nil, 0, ErrInvalidTaskStatus
	}
	if input.Priority != nil && !input.Priority.Valid() {
		return nil, 0, ErrInvalidTaskPriority
	}

	filter := repository.TaskFilter{
		ProjectID:     input.ProjectID,
		Status:        input.Status,
		Priority:      input.Priority,
		AssignedTo:    input.AssignedTo,
		CreatedBy:     input.CreatedBy,
		SortByDueDate: input.SortByDueDate,
		Page:          input.Page,
		PageSize:      input.PageSize,
	}

	if input.DueToday {
		now := s.now()
		startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		endOfDay := startOfDay.Add(24 * time.Hour)
		filter.DueDateFrom = &startOfDay
		filter.DueDateTo = &endOfDay
	}

	tasks, total, err := s.taskRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, total, nil
}

// GetTask returns a task with related data
func (s *TaskService) GetTask(ctx context.Context, taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID, taskPreloads...)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	return task, nil
}

// CreateTask creates a task in a project. A task created with an assignee
// raises an assignment event.
func (s *TaskService) CreateTask(ctx context.Context, input CreateTaskInput, actor *models.User) (*models.Task, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if input.Status == "" {
		input.Status = models.TaskStatusPending
	}
	if !input.Status.Valid() {
		return nil, ErrInvalidTaskStatus
	}
	if input.Priority == "" {
		input.Priority = models.TaskPriorityMedium
	}
	if !input.Priority.Valid() {
		return nil, ErrInvalidTaskPriority
	}

	if err := s.ensureProjectExists(ctx, input.ProjectID); err != nil {
		return nil, err
	}
	if input.AssignedTo != nil {
		if err := s.ensureAssignable(ctx, *input.AssignedTo); err != nil {
			return nil, err
		}
	}

	task := &models.Task{
		Title:       title,
		Description: input.Description,
		Status:      input.Status,
		Priority:    input.Priority,
		ProjectID:   input.ProjectID,
		AssignedTo:  input.AssignedTo,
		CreatedBy:   actor.ID,
		DueDate:     input.DueDate,
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	s.flush()

	s.observer.Created(ctx, task, actor)
	return s.GetTask(ctx, task.ID)
}

// UpdateTask updates an existing task and raises events for assignee and status changes
func (s *TaskService) UpdateTask(ctx context.Context, taskID uint64, input UpdateTaskInput, actor *models.User) (*models.Task, error) {
	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	before := *task

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrTitleEmpty
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, ErrInvalidTaskStatus
		}
		task.Status = *input.Status
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return nil, ErrInvalidTaskPriority
		}
		task.Priority = *input.Priority
	}
	if input.Unassign {
		task.AssignedTo = nil
	} else if input.AssignedTo != nil {
		if !task.IsAssignedTo(*input.AssignedTo) {
			if err := s.ensureAssignable(ctx, *input.AssignedTo); err != nil {
				return nil, err
			}
		}
		assignee := *input.AssignedTo
		task.AssignedTo = &assignee
	}
	if input.ClearDueDate {
		task.DueDate = nil
	} else if input.DueDate != nil {
		task.DueDate = input.DueDate
	}

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.observer.Updated(ctx, &before, task, actor)
	return s.GetTask(ctx, task.ID)
}

// UpdateStatus changes only the task status
func (s *TaskService) UpdateStatus(ctx context.Context, taskID uint64, status models.TaskStatus, actor *models.User) (*models.Task, error) {
	return s.UpdateTask(ctx, taskID, UpdateTaskInput{Status: &status}, actor)
}

// AssignTask assigns the task to userID
func (s *TaskService) AssignTask(ctx context.Context, taskID, userID uint64, actor *models.User) (*models.Task, error) {
	return s.UpdateTask(ctx, taskID, UpdateTaskInput{AssignedTo: &userID}, actor)
}

// UnassignTask clears the task assignee
func (s *TaskService) UnassignTask(ctx context.Context, taskID uint64, actor *models.User) (*models.Task, error) {
	return s.UpdateTask(ctx, taskID, UpdateTaskInput{Unassign: true}, actor)
}

// DeleteTask deletes a task
func (s *TaskService) DeleteTask(ctx context.Context, taskID uint64) error {
	if _, err := s.findTask(ctx, taskID); err != nil {
		return err
	}

	if err := s.taskRepo.Delete(ctx, taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	s.flush()

	return nil
}

// SuggestTasks uses AI to propose tasks for a project from text. Nothing is persisted.
func (s *TaskService) SuggestTasks(ctx context.Context, projectID uint64, text string) ([]SuggestedTask, error) {
	if s.suggester == nil {
		return nil, ErrAIServiceNotConfigured
	}

	project, err := s.projectRepo.FindByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	suggestions, err := s.suggester.SuggestTasks(ctx, project.Name, text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tasks: %w", err)
	}

	if len(suggestions) == 0 {
		return nil, ErrAINoTasksGenerated
	}
	if len(suggestions) > constants.MaxAIGeneratedTasks {
		return nil, fmt.Errorf("AI generated too many tasks (max %d)", constants.MaxAIGeneratedTasks)
	}

	valid := make([]SuggestedTask, 0, len(suggestions))
	cutoff := s.now().Add(-24 * time.Hour)
	for _, suggestion := range suggestions {
		if strings.TrimSpace(suggestion.Title) == "" {
			continue
		}
		if suggestion.DueDate != nil && suggestion.DueDate.Before(cutoff) {
			suggestion.DueDate = nil
		}
		if !models.TaskPriority(suggestion.Priority).Valid() {
			suggestion.Priority = string(models.TaskPriorityMedium)
		}

		valid = append(valid, suggestion)
	}

	if len(valid) == 0 {
		return nil, ErrAINoValidTasks
	}

	return valid, nil
}

func (s *TaskService) findTask(ctx context.Context, taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

func (s *TaskService) ensureProjectExists(ctx context.Context, projectID uint64) error {
	if _, err := s.projectRepo.FindByID(ctx, projectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("failed to find project: %w", err)
	}
	return nil
}

// ensureAssignable verifies that a user exists and is active
func (s *TaskService) ensureAssignable(ctx context.Context, userID uint64) error {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInvalidTaskAssignee
		}
		return fmt.Errorf("failed to verify assignee: %w", err)
	}
	if !user.IsActive() {
		return ErrInvalidTaskAssignee
	}
	return nil
}

func (s *TaskService) flush() {
	if s.cache != nil {
		s.cache.Flush(cache.TagTasks)
	}
}
