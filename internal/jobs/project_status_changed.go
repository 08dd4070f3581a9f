package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/project-management-api/internal/mail"
	"github.com/yukikurage/project-management-api/internal/queue"
	"gorm.io/gorm"
)

// ProjectStatusChangedHandler tells one project member that the project's status changed.
type ProjectStatusChangedHandler struct {
	n *notifier
}

func (h *ProjectStatusChangedHandler) Handle(ctx context.Context, job *queue.Job) error {
	var p ProjectStatusChangedPayload
	if err := job.Decode(&p); err != nil {
		return err
	}

	return h.n.outcome(job, h.handle(ctx, job, p))
}

func (h *ProjectStatusChangedHandler) handle(ctx context.Context, job *queue.Job, p ProjectStatusChangedPayload) error {
	project, err := h.n.deps.Projects.FindByID(ctx, p.ProjectID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: project %d no longer exists", errSkip, p.ProjectID)
	}
	if err != nil {
		return fmt.Errorf("failed to load project: %w", err)
	}
	if project.Status != p.NewStatus {
		return fmt.Errorf("%w: project %d moved on to %s", errSkip, p.ProjectID, project.Status)
	}

	recipient, err := h.n.recipient(ctx, p.RecipientID)
	if err != nil {
		return err
	}

	msg := h.n.deps.Composer.ProjectStatusChanged(project, recipient, p.OldStatus, p.NewStatus, mail.Actor(p.ChangedBy))
	return h.n.deliver(ctx, job, recipient.ID, project.ID, msg)
}

func (h *ProjectStatusChangedHandler) Failed(ctx context.Context, job *queue.Job, cause error) {
	var p ProjectStatusChangedPayload
	_ = job.Decode(&p)
	h.n.failed(ctx, job, cause, "project", p.ProjectID, p.RecipientID, p.ChangedBy)
}
