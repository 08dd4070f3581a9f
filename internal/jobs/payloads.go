package jobs

import (
	"fmt"
	"time"

	"github.com/yukikurage/project-management-api/internal/models"
	"github.com/yukikurage/project-management-api/internal/queue"
)

// ActorRef identifies who made a change. It is captured when the job is
// queued since workers have no request context.
type ActorRef struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// NewActorRef captures u. A nil user yields the zero ActorRef.
func NewActorRef(u *models.User) ActorRef {
	if u == nil {
		return ActorRef{}
	}
	return ActorRef{ID: u.ID, Name: u.FullName()}
}

// TaskAssignedPayload is the payload of TypeTaskAssigned.
type TaskAssignedPayload struct {
	TaskID             uint64   `json:"task_id"`
	AssigneeID         uint64   `json:"assignee_id"`
	PreviousAssigneeID *uint64  `json:"previous_assignee_id,omitempty"`
	AssignedBy         ActorRef `json:"assigned_by"`
}

// UniqueKey has no timestamp: one assignment of a task to a user is announced once per window.
func (p TaskAssignedPayload) UniqueKey() string {
	return fmt.Sprintf("task_assigned_%d_%d", p.TaskID, p.AssigneeID)
}

// TaskStatusChangedPayload is the payload of TypeTaskStatusChanged.
type TaskStatusChangedPayload struct {
	TaskID      uint64            `json:"task_id"`
	RecipientID uint64            `json:"recipient_id"`
	OldStatus   models.TaskStatus `json:"old_status"`
	NewStatus   models.TaskStatus `json:"new_status"`
	ChangedBy   ActorRef          `json:"changed_by"`
	ChangedAt   time.Time         `json:"changed_at"`
}

func (p TaskStatusChangedPayload) UniqueKey() string {
	return fmt.Sprintf("task_status_%d_%d_%d", p.TaskID, p.RecipientID, p.ChangedAt.Unix())
}

// ProjectStatusChangedPayload is the payload of TypeProjectStatusChanged.
type ProjectStatusChangedPayload struct {
	ProjectID   uint64               `json:"project_id"`
	RecipientID uint64               `json:"recipient_id"`
	OldStatus   models.ProjectStatus `json:"old_status"`
	NewStatus   models.ProjectStatus `json:"new_status"`
	ChangedBy   ActorRef             `json:"changed_by"`
	ChangedAt   time.Time            `json:"changed_at"`
}

func (p ProjectStatusChangedPayload) UniqueKey() string {
	return fmt.Sprintf("project_status_%d_%d_%d", p.ProjectID, p.RecipientID, p.ChangedAt.Unix())
}

// TaskAssignedEnvelope builds the queue envelope for p.
func TaskAssignedEnvelope(p TaskAssignedPayload) queue.Envelope {
	return queue.Envelope{
		Type:        TypeTaskAssigned,
		Payload:     p,
		Queue:       QueueNotifications,
		MaxAttempts: MaxAttempts,
		UniqueKey:   p.UniqueKey(),
		UniqueFor:   TaskAssignedUniqueFor,
	}
}

// TaskStatusChangedEnvelope builds the queue envelope for p.
func TaskStatusChangedEnvelope(p TaskStatusChangedPayload) queue.Envelope {
	return queue.Envelope{
		Type:        TypeTaskStatusChanged,
		Payload:     p,
		Queue:       QueueNotifications,
		MaxAttempts: MaxAttempts,
		UniqueKey:   p.UniqueKey(),
		UniqueFor:   TaskStatusChangedUniqueFor,
	}
}

// ProjectStatusChangedEnvelope builds the queue envelope for p.
func ProjectStatusChangedEnvelope(p ProjectStatusChangedPayload) queue.Envelope {
	return queue.Envelope{
		Type:        TypeProjectStatusChanged,
		Payload:     p,
		Queue:       QueueNotifications,
		MaxAttempts: MaxAttempts,
		UniqueKey:   p.UniqueKey(),
		UniqueFor:   ProjectStatusChangedUniqueFor,
	}
}
