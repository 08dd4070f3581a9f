// Package jobs holds the background notification jobs: their payloads, how
// they are enqueued, and the handlers that deliver them.
package jobs

import (
	"time"

	"github.com/yukikurage/project-management-api/internal/mail"
	"github.com/yukikurage/project-management-api/internal/queue"
	"github.com/yukikurage/project-management-api/internal/ratelimit"
	"github.com/yukikurage/project-management-api/internal/repository"
	"go.uber.org/zap"
)

// Job types
const (
	TypeTaskAssigned         = "notification.task_assigned"
	TypeTaskStatusChanged    = "notification.task_status_changed"
	TypeProjectStatusChanged = "notification.project_status_changed"
)

// QueueNotifications is the queue every notification job runs on.
const QueueNotifications = "notifications"

// Retry and scheduling policy shared by notification jobs.
const (
	MaxAttempts    = 3
	Backoff        = 60 * time.Second
	Timeout        = 30 * time.Second
	RateLimitDelay = 60 * time.Second

	TaskAssignedUniqueFor         = 300 * time.Second
	TaskStatusChangedUniqueFor    = 180 * time.Second
	ProjectStatusChangedUniqueFor = 300 * time.Second
)

// Policy is the queue policy for notification jobs. A timeout fails the job.
func Policy() queue.Policy {
	return queue.Policy{
		Backoff:       Backoff,
		Timeout:       Timeout,
		FailOnTimeout: true,
	}
}

// Deps are the collaborators of the notification handlers.
type Deps struct {
	Tasks    repository.TaskRepository
	Projects repository.ProjectRepository
	Users    repository.UserRepository
	Mailer   mail.Mailer
	Composer mail.Composer
	Limiter  *ratelimit.Limiter

	// AdminEmail receives failure alerts and, with BccAdmin, a blind copy of every notification.
	AdminEmail string
	BccAdmin   bool

	Logger *zap.Logger
}

// Register binds every notification handler to worker.
func Register(worker *queue.Worker, deps Deps) {
	n := newNotifier(deps)
	worker.Register(TypeTaskAssigned, &TaskAssignedHandler{n: n}, Policy())
	worker.Register(TypeTaskStatusChanged, &TaskStatusChangedHandler{n: n}, Policy())
	worker.Register(TypeProjectStatusChanged, &ProjectStatusChangedHandler{n: n}, Policy())
}
