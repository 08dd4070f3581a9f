// Package events defines the domain events raised by the service layer and
// an in-process dispatcher delivering them to listeners.
package events

import (
	"time"

	"github.com/yukikurage/project-management-api/internal/models"
)

// Event names. These are stable and appear in logs and metrics.
const (
	NameProjectStatusChanged = "project.status_changed"
	NameTaskStatusChanged    = "task.status_changed"
	NameTaskAssigned         = "task.assigned"
)

// Event is a record of a state transition. Entities are held by reference.
type Event interface {
	// Name returns the stable event name.
	Name() string

	// ShouldBroadcast reports whether the transition is real.
	ShouldBroadcast() bool

	// BroadcastPayload returns a projection of the event safe to serialize
	// across any transport boundary.
	BroadcastPayload() map[string]any
}

// ProjectStatusChanged is raised after a project's status has been persisted.
type ProjectStatusChanged struct {
	Project    *models.Project
	OldStatus  models.ProjectStatus
	NewStatus  models.ProjectStatus
	ChangedBy  *models.User
	OccurredAt time.Time
}

func (e *ProjectStatusChanged) Name() string { return NameProjectStatusChanged }

func (e *ProjectStatusChanged) ShouldBroadcast() bool {
	return e.OldStatus != e.NewStatus
}

func (e *ProjectStatusChanged) BroadcastPayload() map[string]any {
	return map[string]any{
		"project_id":   e.Project.ID,
		"project_name": e.Project.Name,
		"old_status":   string(e.OldStatus),
		"new_status":   string(e.NewStatus),
		"changed_by":   actorPayload(e.ChangedBy),
		"timestamp":    timestamp(e.OccurredAt),
	}
}

// TaskStatusChanged is raised after a task's status has been persisted.
type TaskStatusChanged struct {
	Task       *models.Task
	OldStatus  models.TaskStatus
	NewStatus  models.TaskStatus
	ChangedBy  *models.User
	OccurredAt time.Time
}

func (e *TaskStatusChanged) Name() string { return NameTaskStatusChanged }

func (e *TaskStatusChanged) ShouldBroadcast() bool {
	return e.OldStatus != e.NewStatus
}

func (e *TaskStatusChanged) BroadcastPayload() map[string]any {
	return map[string]any{
		"task_id":     e.Task.ID,
		"task_title":  e.Task.Title,
		"project_id":  e.Task.ProjectID,
		"assigned_to": e.Task.AssignedTo,
		"old_status":  string(e.OldStatus),
		"new_status":  string(e.NewStatus),
		"changed_by":  actorPayload(e.ChangedBy),
		"timestamp":   timestamp(e.OccurredAt),
	}
}

// TaskAssigned is raised after a task's assignee has been persisted, including
// creation of an already assigned task. PreviousAssigneeID is nil in that case.
type TaskAssigned struct {
	Task               *models.Task
	PreviousAssigneeID *uint64
	AssignedBy         *models.User
	OccurredAt         time.Time
}

func (e *TaskAssigned) Name() string { return NameTaskAssigned }

func (e *TaskAssigned) ShouldBroadcast() bool {
	if e.Task.AssignedTo == nil {
		return false
	}
	return e.PreviousAssigneeID == nil || *e.PreviousAssigneeID != *e.Task.AssignedTo
}

func (e *TaskAssigned) BroadcastPayload() map[string]any {
	return map[string]any{
		"task_id":              e.Task.ID,
		"task_title":           e.Task.Title,
		"project_id":           e.Task.ProjectID,
		"assigned_to":          e.Task.AssignedTo,
		"previous_assignee_id": e.PreviousAssigneeID,
		"assigned_by":          actorPayload(e.AssignedBy),
		"timestamp":            timestamp(e.OccurredAt),
	}
}

func actorPayload(u *models.User) map[string]any {
	if u == nil {
		return nil
	}
	return map[string]any{
		"id":   u.ID,
		"name": u.FullName(),
	}
}

func timestamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339)
}
