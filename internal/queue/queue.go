package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/yukikurage/project-management-api/internal/metrics"
	"github.com/yukikurage/project-management-api/internal/models"
	"go.uber.org/zap"
)

// Dispatcher enqueues jobs.
type Dispatcher interface {
	Dispatch(ctx context.Context, env Envelope) (string, error)
}

// Queue is the producer side of the job queue.
type Queue struct {
	store  *Store
	logger *zap.Logger
}

// New creates a Queue writing to store.
func New(store *Store, logger *zap.Logger) *Queue {
	return &Queue{
		store:  store,
		logger: logger.With(zap.String("component", "queue")),
	}
}

// Dispatch serializes the envelope payload and stores the job. It returns the
// new job ID, or ErrDuplicateJob when the envelope's unique key is locked.
func (q *Queue) Dispatch(ctx context.Context, env Envelope) (string, error) {
	if env.Type == "" {
		return "", errors.New("queue: envelope has no type")
	}

	payload, err := json.Marshal(env.Payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s payload: %w", env.Type, err)
	}

	queueName := env.Queue
	if queueName == "" {
		queueName = DefaultQueue
	}
	maxAttempts := env.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	now := q.store.Now()
	row := &models.QueuedJob{
		ID:          uuid.NewString(),
		Queue:       queueName,
		Type:        env.Type,
		Payload:     payload,
		MaxAttempts: maxAttempts,
		UniqueKey:   env.UniqueKey,
		AvailableAt: now.Add(env.Delay),
		CreatedAt:   now,
	}

	if err := q.store.Push(ctx, row, env.UniqueFor); err != nil {
		if errors.Is(err, ErrDuplicateJob) {
			metrics.JobsDuplicateTotal.WithLabelValues(env.Type).Inc()
		}
		return "", err
	}

	metrics.JobsDispatchedTotal.WithLabelValues(env.Type).Inc()
	q.logger.Debug("job dispatched",
		zap.String("job_id", row.ID),
		zap.String("job_type", row.Type),
		zap.String("queue", row.Queue),
		zap.String("unique_key", row.UniqueKey),
		zap.Duration("delay", env.Delay))

	return row.ID, nil
}
