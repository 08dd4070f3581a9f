// Package observers turns persisted model changes into domain events.
//
// The service layer calls an observer after every successful write, passing
// the row as it was before the write, the row as it is now, and the user who
// made the change. Observers never touch storage.
package observers

import (
	"context"
	"time"

	"github.com/yukikurage/project-management-api/internal/events"
	"github.com/yukikurage/project-management-api/internal/models"
	"go.uber.org/zap"
)

// Publisher delivers events to listeners.
type Publisher interface {
	Dispatch(ctx context.Context, event events.Event)
}

// TaskObserver watches a task's assignee and status.
type TaskObserver struct {
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewTaskObserver creates a TaskObserver.
func NewTaskObserver(publisher Publisher, logger *zap.Logger) *TaskObserver {
	return &TaskObserver{
		publisher: publisher,
		logger:    logger.With(zap.String("component", "task_observer")),
		now:       time.Now,
	}
}

// WithClock replaces the time source stamped on events.
func (o *TaskObserver) WithClock(now func() time.Time) *TaskObserver {
	o.now = now
	return o
}

// Created raises TaskAssigned when a task is created with an assignee.
func (o *TaskObserver) Created(ctx context.Context, task *models.Task, actor *models.User) {
	if task.AssignedTo == nil {
		return
	}
	if actor == nil {
		o.logger.Warn("cannot attribute task assignment, event suppressed", zap.Uint64("task_id", task.ID))
		return
	}

	o.publisher.Dispatch(ctx, &events.TaskAssigned{
		Task:       task,
		AssignedBy: actor,
		OccurredAt: o.now(),
	})
}

// Updated raises TaskAssigned and TaskStatusChanged for the watched fields
// that differ between before and after, in that order.
func (o *TaskObserver) Updated(ctx context.Context, before, after *models.Task, actor *models.User) {
	for _, event := range o.Changes(before, after, actor) {
		o.publisher.Dispatch(ctx, event)
	}
}

// Changes returns the events describing the transition from before to after.
func (o *TaskObserver) Changes(before, after *models.Task, actor *models.User) []events.Event {
	assigneeChanged := !sameID(before.AssignedTo, after.AssignedTo)
	statusChanged := before.Status != after.Status
	if !assigneeChanged && !statusChanged {
		return nil
	}

	if actor == nil {
		o.logger.Warn("cannot attribute task change, event suppressed",
			zap.Uint64("task_id", after.ID),
			zap.Bool("assignee_changed", assigneeChanged),
			zap.Bool("status_changed", statusChanged))
		return nil
	}

	now := o.now()
	var changes []events.Event
	if assigneeChanged && after.AssignedTo != nil {
		changes = append(changes, &events.TaskAssigned{
			Task:               after,
			PreviousAssigneeID: before.AssignedTo,
			AssignedBy:         actor,
			OccurredAt:         now,
		})
	}
	if statusChanged {
		changes = append(changes, &events.TaskStatusChanged{
			Task:       after,
			OldStatus:  before.Status,
			NewStatus:  after.Status,
			ChangedBy:  actor,
			OccurredAt: now,
		})
	}
	return changes
}

// ProjectObserver watches a project's status.
type ProjectObserver struct {
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time
}

// NewProjectObserver creates a ProjectObserver.
func NewProjectObserver(publisher Publisher, logger *zap.Logger) *ProjectObserver {
	return &ProjectObserver{
		publisher: publisher,
		logger:    logger.With(zap.String("component", "project_observer")),
		now:       time.Now,
	}
}

// WithClock replaces the time source stamped on events.
func (o *ProjectObserver) WithClock(now func() time.Time) *ProjectObserver {
	o.now = now
	return o
}

// Updated raises ProjectStatusChanged when the status differs.
func (o *ProjectObserver) Updated(ctx context.Context, before, after *models.Project, actor *models.User) {
	if before.Status == after.Status {
		return
	}
	if actor == nil {
		o.logger.Warn("cannot attribute project status change, event suppressed",
			zap.Uint64("project_id", after.ID),
			zap.String("old_status", string(before.Status)),
			zap.String("new_status", string(after.Status)))
		return
	}

	o.publisher.Dispatch(ctx, &events.ProjectStatusChanged{
		Project:    after,
		OldStatus:  before.Status,
		NewStatus:  after.Status,
		ChangedBy:  actor,
		OccurredAt: o.now(),
	})
}

func sameID(a, b *uint64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
