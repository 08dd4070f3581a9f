package listeners

import (
	"context"
	"errors"
	"slices"

	"github.com/yukikurage/project-management-api/internal/events"
	"github.com/yukikurage/project-management-api/internal/jobs"
	"github.com/yukikurage/project-management-api/internal/queue"
	"github.com/yukikurage/project-management-api/internal/repository"
	"go.uber.org/zap"
)

// SendTaskAssignedNotification queues one job for the task's new assignee.
type SendTaskAssignedNotification struct {
	queue  queue.Dispatcher
	logger *zap.Logger
}

func (l *SendTaskAssignedNotification) Handle(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.TaskAssigned)
	if !ok {
		return unexpected(event)
	}
	if !e.ShouldBroadcast() {
		l.logger.Debug("task assignment unchanged, nothing to send", zap.Uint64("task_id", e.Task.ID))
		return nil
	}

	return enqueue(ctx, l.queue, l.logger, jobs.TaskAssignedEnvelope(jobs.TaskAssignedPayload{
		TaskID:             e.Task.ID,
		AssigneeID:         *e.Task.AssignedTo,
		PreviousAssigneeID: e.PreviousAssigneeID,
		AssignedBy:         jobs.NewActorRef(e.AssignedBy),
	}))
}

// SendTaskStatusChangedNotification queues one job for the task's assignee.
type SendTaskStatusChangedNotification struct {
	queue  queue.Dispatcher
	logger *zap.Logger
}

func (l *SendTaskStatusChangedNotification) Handle(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.TaskStatusChanged)
	if !ok {
		return unexpected(event)
	}

	switch {
	case e.Task.AssignedTo == nil:
		l.logger.Debug("task has no assignee, nothing to send", zap.Uint64("task_id", e.Task.ID))
		return nil
	case !e.ShouldBroadcast():
		l.logger.Debug("task status unchanged, nothing to send", zap.Uint64("task_id", e.Task.ID))
		return nil
	case e.ChangedBy == nil:
		l.logger.Warn("task status change has no actor, nothing to send", zap.Uint64("task_id", e.Task.ID))
		return nil
	}

	return enqueue(ctx, l.queue, l.logger, jobs.TaskStatusChangedEnvelope(jobs.TaskStatusChangedPayload{
		TaskID:      e.Task.ID,
		RecipientID: *e.Task.AssignedTo,
		OldStatus:   e.OldStatus,
		NewStatus:   e.NewStatus,
		ChangedBy:   jobs.NewActorRef(e.ChangedBy),
		ChangedAt:   e.OccurredAt,
	}))
}

// SendProjectStatusChangedNotification queues one job per project member
// other than the user who made the change. Members are the creator and the
// assignees of the project's tasks.
type SendProjectStatusChangedNotification struct {
	queue    queue.Dispatcher
	projects repository.ProjectRepository
	logger   *zap.Logger
}

func (l *SendProjectStatusChangedNotification) Handle(ctx context.Context, event events.Event) error {
	e, ok := event.(*events.ProjectStatusChanged)
	if !ok {
		return unexpected(event)
	}
	if !e.ShouldBroadcast() {
		l.logger.Debug("project status unchanged, nothing to send", zap.Uint64("project_id", e.Project.ID))
		return nil
	}

	recipients, err := l.Recipients(ctx, e)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		l.logger.Debug("no recipients for project status change", zap.Uint64("project_id", e.Project.ID))
		return nil
	}

	actor := jobs.NewActorRef(e.ChangedBy)
	var errs []error
	for _, recipientID := range recipients {
		err := enqueue(ctx, l.queue, l.logger, jobs.ProjectStatusChangedEnvelope(jobs.ProjectStatusChangedPayload{
			ProjectID:   e.Project.ID,
			RecipientID: recipientID,
			OldStatus:   e.OldStatus,
			NewStatus:   e.NewStatus,
			ChangedBy:   actor,
			ChangedAt:   e.OccurredAt,
		}))
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recipients returns the creator and every task assignee of the project,
// deduplicated and without the actor, in ascending ID order.
func (l *SendProjectStatusChangedNotification) Recipients(ctx context.Context, e *events.ProjectStatusChanged) ([]uint64, error) {
	assignees, err := l.projects.ListAssigneeIDs(ctx, e.Project.ID)
	if err != nil {
		return nil, err
	}

	ids := append([]uint64{e.Project.CreatedBy}, assignees...)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	if e.ChangedBy != nil {
		ids = slices.DeleteFunc(ids, func(id uint64) bool { return id == e.ChangedBy.ID })
	}
	return ids, nil
}
