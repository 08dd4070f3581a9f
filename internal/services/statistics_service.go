package services

import (
	"context"
	"fmt"
	"time"

	"github.com/yukikurage/project-management-api/internal/cache"
	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/repository"
	"golang.org/x/sync/errgroup"
)

const (
	dashboardCacheKey = "statistics:dashboard"
	topAssigneeLimit  = 5
)

// Dashboard is the aggregated statistics read model.
type Dashboard struct {
	ProjectsByStatus map[models.ProjectStatus]int64 `json:"projects_by_status"`
	TasksByStatus    map[models.TaskStatus]int64    `json:"tasks_by_status"`
	OverdueTasks     int64                          `json:"overdue_tasks"`
	TopAssignees     []TopAssignee                  `json:"top_assignees"`
	GeneratedAt      time.Time                      `json:"generated_at"`
}

// TopAssignee is a user ranked by open assigned tasks.
type TopAssignee struct {
	UserID    uint64 `json:"user_id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	OpenTasks int64  `json:"open_tasks"`
}

// StatisticsService computes the dashboard and caches it under the projects and tasks tags
type StatisticsService struct {
	projectRepo repository.ProjectRepository
	taskRepo    repository.TaskRepository
	userRepo    repository.UserRepository
	cache       *cache.Tagged
	ttl         time.Duration
	now         func() time.Time
}

// NewStatisticsService creates a new StatisticsService
func NewStatisticsService(
	projectRepo repository.ProjectRepository,
	taskRepo repository.TaskRepository,
	userRepo repository.UserRepository,
	c *cache.Tagged,
	ttl time.Duration,
) *StatisticsService {
	return &StatisticsService{
		projectRepo: projectRepo,
		taskRepo:    taskRepo,
		userRepo:    userRepo,
		cache:       c,
		ttl:         ttl,
		now:         time.Now,
	}
}

// Dashboard returns the cached dashboard, computing it on a miss
func (s *StatisticsService) Dashboard(ctx context.Context) (*Dashboard, error) {
	if s.cache == nil {
		return s.compute(ctx)
	}
	return cache.Remember(ctx, s.cache, []string{cache.TagProjects, cache.TagTasks}, dashboardCacheKey, s.ttl, s.compute)
}

func (s *StatisticsService) compute(ctx context.Context) (*Dashboard, error) {
	d := &Dashboard{GeneratedAt: s.now().UTC()}
	var ranking []repository.AssigneeCount

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		counts, err := s.projectRepo.CountByStatus(gctx)
		if err != nil {
			return fmt.Errorf("failed to count projects: %w", err)
		}
		d.ProjectsByStatus = withProjectStatuses(counts)
		return nil
	})
	g.Go(func() error {
		counts, err := s.taskRepo.CountByStatus(gctx)
		if err != nil {
			return fmt.Errorf("failed to count tasks: %w", err)
		}
		d.TasksByStatus = withTaskStatuses(counts)
		return nil
	})
	g.Go(func() error {
		overdue, err := s.taskRepo.CountOverdue(gctx, d.GeneratedAt)
		if err != nil {
			return fmt.Errorf("failed to count overdue tasks: %w", err)
		}
		d.OverdueTasks = overdue
		return nil
	})
	g.Go(func() error {
		rows, err := s.taskRepo.TopAssignees(gctx, topAssigneeLimit)
		if err != nil {
			return fmt.Errorf("failed to rank assignees: %w", err)
		}
		ranking = rows
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	top, err := s.resolveAssignees(ctx, ranking)
	if err != nil {
		return nil, err
	}
	d.TopAssignees = top
	return d, nil
}

func (s *StatisticsService) resolveAssignees(ctx context.Context, ranking []repository.AssigneeCount) ([]TopAssignee, error) {
	ids := make([]uint64, 0, len(ranking))
	for _, row := range ranking {
		ids = append(ids, row.UserID)
	}

	users, err := s.userRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load assignees: %w", err)
	}
	byID := make(map[uint64]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	top := make([]TopAssignee, 0, len(ranking))
	for _, row := range ranking {
		u, ok := byID[row.UserID]
		if !ok {
			continue
		}
		top = append(top, TopAssignee{
			UserID:    u.ID,
			Name:      u.FullName(),
			Email:     u.Email,
			OpenTasks: row.TaskCount,
		})
	}
	return top, nil
}

// withProjectStatuses reports every known status, including those with no projects
func withProjectStatuses(counts map[models.ProjectStatus]int64) map[models.ProjectStatus]int64 {
	result := map[models.ProjectStatus]int64{
		models.ProjectStatusActive:    0,
		models.ProjectStatusCompleted: 0,
		models.ProjectStatusArchived:  0,
	}
	for status, n := range counts {
		result[status] = n
	}
	return result
}

func withTaskStatuses(counts map[models.TaskStatus]int64) map[models.TaskStatus]int64 {
	result := map[models.TaskStatus]int64{
		models.TaskStatusPending:    0,
		models.TaskStatusInProgress: 0,
		models.TaskStatusCompleted:  0,
	}
	for status, n := range counts {
		result[status] = n
	}
	return result
}
