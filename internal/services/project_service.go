package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/project-management-api/internal/cache"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/observers"
	"github.com/yukikurage/project-management-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrProjectNotFound      = errors.New("project not found")
	ErrProjectNameRequired  = errors.New("project name is required")
	ErrInvalidProjectStatus = errors.New("invalid project status")
)

// ProjectService handles project business logic
type ProjectService struct {
	projectRepo repository.ProjectRepository
	observer    *observers.ProjectObserver
	cache       *cache.Tagged
}

// NewProjectService creates a new ProjectService. cache may be nil.
func NewProjectService(projectRepo repository.ProjectRepository, observer *observers.ProjectObserver, c *cache.Tagged) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		observer:    observer,
		cache:       c,
	}
}

// ListProjectsInput represents filters for listing projects
type ListProjectsInput struct {
	Status    *models.ProjectStatus
	CreatedBy *uint64
	Search    string
	Page      int
	PageSize  int
}

// CreateProjectInput represents input for creating a project
type CreateProjectInput struct {
	Name        string
	Description string
	Status      models.ProjectStatus
}

// UpdateProjectInput represents input for updating a project
type UpdateProjectInput struct {
	Name        *string
	Description *string
	Status      *models.ProjectStatus
}

// ListProjects returns projects matching the filters
func (s *ProjectService) ListProjects(ctx context.Context, input ListProjectsInput) ([]models.Project, int64, error) {
	if input.Status != nil && !input.Status.Valid() {
		return nil, 0, ErrInvalidProjectStatus
	}

	projects, total, err := s.projectRepo.List(ctx, repository.ProjectFilter{
		Status:    input.Status,
		CreatedBy: input.CreatedBy,
		Search:    strings.TrimSpace(input.Search),
		Page:      input.Page,
		PageSize:  input.PageSize,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, total, nil
}

// GetProject returns a project with its creator
func (s *ProjectService) GetProject(ctx context.Context, id uint64) (*models.Project, error) {
	project, err := s.projectRepo.FindByID(ctx, id, "Creator")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	return project, nil
}

// CreateProject creates a project owned by actor
func (s *ProjectService) CreateProject(ctx context.Context, input CreateProjectInput, actor *models.User) (*models.Project, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrProjectNameRequired
	}
	if input.Status == "" {
		input.Status = models.ProjectStatusActive
	}
	if !input.Status.Valid() {
		return nil, ErrInvalidProjectStatus
	}

	project := &models.Project{
		Name:        name,
		Description: input.Description,
		Status:      input.Status,
		CreatedBy:   actor.ID,
	}

	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	s.flush(cache.TagProjects)

	return s.GetProject(ctx, project.ID)
}

// UpdateProject updates a project and raises a status change event when the status moved
func (s *ProjectService) UpdateProject(ctx context.Context, id uint64, input UpdateProjectInput, actor *models.User) (*models.Project, error) {
	project, err := s.GetProject(ctx, id)
	if err != nil {
		return nil, err
	}
	before := *project

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrProjectNameRequired
		}
		project.Name = name
	}
	if input.Description != nil {
		project.Description = *input.Description
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, ErrInvalidProjectStatus
		}
		project.Status = *input.Status
	}

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	s.observer.Updated(ctx, &before, project, actor)
	return project, nil
}

// UpdateStatus changes only the project status
func (s *ProjectService) UpdateStatus(ctx context.Context, id uint64, status models.ProjectStatus, actor *models.User) (*models.Project, error) {
	return s.UpdateProject(ctx, id, UpdateProjectInput{Status: &status}, actor)
}

// DeleteProject deletes a project together with its tasks
func (s *ProjectService) DeleteProject(ctx context.Context, id uint64) error {
	if _, err := s.GetProject(ctx, id); err != nil {
		return err
	}

	if err := s.projectRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	s.flush(cache.TagProjects, cache.TagTasks)
	return nil
}

func (s *ProjectService) flush(tags ...string) {
	if s.cache != nil {
		s.cache.Flush(tags...)
	}
}
