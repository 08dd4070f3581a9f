package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/project-management-api/internal/mail"
	"github.com/yukikurage/project-management-api/internal/queue"
	"gorm.io/gorm"
)

// TaskStatusChangedHandler tells a task's assignee that its status changed.
type TaskStatusChangedHandler struct {
	n *notifier
}

func (h *TaskStatusChangedHandler) Handle(ctx context.Context, job *queue.Job) error {
	var p TaskStatusChangedPayload
	if err := job.Decode(&p); err != nil {
		return err
	}

	return h.n.outcome(job, h.handle(ctx, job, p))
}

func (h *TaskStatusChangedHandler) handle(ctx context.Context, job *queue.Job, p TaskStatusChangedPayload) error {
	task, err := h.n.deps.Tasks.FindByID(ctx, p.TaskID, "Project")
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: task %d no longer exists", errSkip, p.TaskID)
	}
	if err != nil {
		return fmt.Errorf("failed to load task: %w", err)
	}
	if !task.IsAssignedTo(p.RecipientID) {
		return fmt.Errorf("%w: task %d is no longer assigned to user %d", errSkip, p.TaskID, p.RecipientID)
	}
	if task.Status != p.NewStatus {
		return fmt.Errorf("%w: task %d moved on to %s", errSkip, p.TaskID, task.Status)
	}

	recipient, err := h.n.recipient(ctx, p.RecipientID)
	if err != nil {
		return err
	}

	msg := h.n.deps.Composer.TaskStatusChanged(task, recipient, p.OldStatus, p.NewStatus, mail.Actor(p.ChangedBy))
	return h.n.deliver(ctx, job, recipient.ID, task.ID, msg)
}

func (h *TaskStatusChangedHandler) Failed(ctx context.Context, job *queue.Job, cause error) {
	var p TaskStatusChangedPayload
	_ = job.Decode(&p)
	h.n.failed(ctx, job, cause, "task", p.TaskID, p.RecipientID, p.ChangedBy)
}
