// Package listeners reacts to domain events: it resolves who should be
// notified and queues one notification job per recipient, and it keeps the
// statistics cache in step with writes.
package listeners

import (
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/project-management-api/internal/cache"
	"github.com/yukikurage/project-management-api/internal/events"
	"github.com/yukikurage/project-management-api/internal/queue"
	"github.com/yukikurage/project-management-api/internal/repository"
	"go.uber.org/zap"
)

// Deps are the collaborators of the listeners.
type Deps struct {
	Queue    queue.Dispatcher
	Projects repository.ProjectRepository
	Cache    *cache.Tagged
	Logger   *zap.Logger
}

// Register subscribes every listener to dispatcher.
func Register(dispatcher *events.Dispatcher, deps Deps) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("component", "listeners"))

	invalidate := &InvalidateStatistics{cache: deps.Cache}

	dispatcher.Listen(events.NameTaskAssigned, &SendTaskAssignedNotification{queue: deps.Queue, logger: logger})
	dispatcher.Listen(events.NameTaskStatusChanged, &SendTaskStatusChangedNotification{queue: deps.Queue, logger: logger})
	dispatcher.Listen(events.NameProjectStatusChanged, &SendProjectStatusChangedNotification{queue: deps.Queue, projects: deps.Projects, logger: logger})

	dispatcher.Listen(events.NameTaskAssigned, invalidate)
	dispatcher.Listen(events.NameTaskStatusChanged, invalidate)
	dispatcher.Listen(events.NameProjectStatusChanged, invalidate)
}

// enqueue dispatches env. A duplicate within the unique window is not an error.
func enqueue(ctx context.Context, q queue.Dispatcher, logger *zap.Logger, env queue.Envelope) error {
	jobID, err := q.Dispatch(ctx, env)
	if errors.Is(err, queue.ErrDuplicateJob) {
		logger.Debug("duplicate notification suppressed",
			zap.String("job_type", env.Type),
			zap.String("unique_key", env.UniqueKey))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to queue %s: %w", env.Type, err)
	}

	logger.Debug("notification queued",
		zap.String("job_id", jobID),
		zap.String("job_type", env.Type),
		zap.String("unique_key", env.UniqueKey))
	return nil
}

func unexpected(event events.Event) error {
	return fmt.Errorf("unexpected event %T", event)
}
