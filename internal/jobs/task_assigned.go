package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/project-management-api/internal/mail"
	"github.com/yukikurage/project-management-api/internal/queue"
	"gorm.io/gorm"
)

// TaskAssignedHandler tells a user they were assigned a task.
type TaskAssignedHandler struct {
	n *notifier
}

func (h *TaskAssignedHandler) Handle(ctx context.Context, job *queue.Job) error {
	var p TaskAssignedPayload
	if err := job.Decode(&p); err != nil {
		return err
	}

	return h.n.outcome(job, h.handle(ctx, job, p))
}

func (h *TaskAssignedHandler) handle(ctx context.Context, job *queue.Job, p TaskAssignedPayload) error {
	task, err := h.n.deps.Tasks.FindByID(ctx, p.TaskID, "Project")
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: task %d no longer exists", errSkip, p.TaskID)
	}
	if err != nil {
		return fmt.Errorf("failed to load task: %w", err)
	}
	if !task.IsAssignedTo(p.AssigneeID) {
		return fmt.Errorf("%w: task %d is no longer assigned to user %d", errSkip, p.TaskID, p.AssigneeID)
	}

	recipient, err := h.n.recipient(ctx, p.AssigneeID)
	if err != nil {
		return err
	}

	msg := h.n.deps.Composer.TaskAssigned(task, recipient, mail.Actor(p.AssignedBy))
	return h.n.deliver(ctx, job, recipient.ID, task.ID, msg)
}

func (h *TaskAssignedHandler) Failed(ctx context.Context, job *queue.Job, cause error) {
	var p TaskAssignedPayload
	_ = job.Decode(&p)
	h.n.failed(ctx, job, cause, "task", p.TaskID, p.AssigneeID, p.AssignedBy)
}
